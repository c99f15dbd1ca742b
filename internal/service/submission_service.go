package service

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/vina-edu/academic-api/internal/models"
	appErrors "github.com/vina-edu/academic-api/pkg/errors"
	"github.com/vina-edu/academic-api/pkg/export"
	"github.com/vina-edu/academic-api/pkg/jobs"
	"github.com/vina-edu/academic-api/pkg/notify"
)

type submissionStore interface {
	Get(ctx context.Context, termID, studentID string) (*models.SubmissionRecord, error)
	Submit(ctx context.Context, record *models.SubmissionRecord) error
	ListByStudents(ctx context.Context, termID string, studentIDs []string) (map[string]models.SubmissionRecord, error)
	UpsertBroadcast(ctx context.Context, broadcast *models.ParentBroadcast) error
	GetBroadcast(ctx context.Context, termID, classID string) (*models.ParentBroadcast, error)
}

type submissionRoster interface {
	ListClassStudents(ctx context.Context, classID, termID string) ([]models.ClassStudent, error)
	ListClassSubjects(ctx context.Context, classID, termID string) ([]models.Subject, error)
	ListGuardians(ctx context.Context, studentIDs []string) (map[string][]models.Guardian, error)
	GetTeacher(ctx context.Context, id string) (*models.TeacherContact, error)
}

type summaryComputer interface {
	ComputeSummary(ctx context.Context, scope models.GradeScope) (*models.SummaryGrade, error)
	ReportCard(ctx context.Context, termID, classID, studentID string) (*models.ReportCard, error)
}

type pdfRenderer interface {
	Render(data export.Dataset, title string) ([]byte, error)
}

type notifyQueue interface {
	Enqueue(job jobs.Job) error
}

// SubmissionService runs the two distribution hops: admin to homeroom
// teachers, then homeroom to parents. Both hops fan out per student
// with partial success.
type SubmissionService struct {
	submissions submissionStore
	roster      submissionRoster
	grades      summaryComputer
	exporter    pdfRenderer
	queue       notifyQueue
	pool        *jobs.Pool
	logger      *zap.Logger
}

// NewSubmissionService constructs SubmissionService.
func NewSubmissionService(submissions submissionStore, roster submissionRoster, grades summaryComputer, exporter pdfRenderer, queue notifyQueue, pool *jobs.Pool, logger *zap.Logger) *SubmissionService {
	if pool == nil {
		pool = jobs.NewPool(jobs.PoolConfig{})
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SubmissionService{
		submissions: submissions,
		roster:      roster,
		grades:      grades,
		exporter:    exporter,
		queue:       queue,
		pool:        pool,
		logger:      logger,
	}
}

// SubmitClassToHomeroom distributes a class's summary grades to each
// student's homeroom teacher. Students fail independently: an
// incomplete grade set, a missing homeroom assignment, or a repeat send
// without a reason skips that student and the rest proceed.
func (s *SubmissionService) SubmitClassToHomeroom(ctx context.Context, actor *models.Actor, termID, classID, reason string) (*models.ClassSubmissionResult, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	if actor.Role != models.RoleAdmin {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only administrators distribute grades")
	}

	students, err := s.roster.ListClassStudents(ctx, classID, termID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load class roster")
	}
	students = collapseRoster(students)
	if len(students) == 0 {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "class has no enrolled students for the term")
	}
	subjects, err := s.roster.ListClassSubjects(ctx, classID, termID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load class subjects")
	}
	if len(subjects) == 0 {
		return nil, appErrors.Clone(appErrors.ErrPreconditionFailed, "class has no subjects for the term")
	}

	studentIDs := make([]string, len(students))
	byID := make(map[string]models.ClassStudent, len(students))
	for i, st := range students {
		studentIDs[i] = st.StudentID
		byID[st.StudentID] = st
	}
	existing, err := s.submissions.ListByStudents(ctx, termID, studentIDs)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load submission records")
	}

	var submissionReason *string
	if reason != "" {
		submissionReason = &reason
	}

	var failures sync.Map
	items := make([]jobs.Item, len(students))
	for i, st := range students {
		items[i] = jobs.Item{ID: st.StudentID}
	}

	results := s.pool.Run(ctx, items, func(ctx context.Context, item jobs.Item) error {
		student := byID[item.ID]

		if prior, ok := existing[student.StudentID]; ok && prior.SubmissionCount >= 1 && reason == "" {
			failures.Store(student.StudentID, models.StudentSubmissionError{
				StudentID:   student.StudentID,
				StudentName: student.StudentName,
				Reason:      "resubmission requires a reason",
			})
			return appErrors.ErrReasonRequired
		}
		if student.HomeroomTeacherID == nil {
			failures.Store(student.StudentID, models.StudentSubmissionError{
				StudentID:   student.StudentID,
				StudentName: student.StudentName,
				Reason:      "no homeroom teacher assigned for the current academic year",
			})
			return appErrors.Clone(appErrors.ErrPreconditionFailed, "missing homeroom teacher")
		}

		missing, err := s.missingSubjects(ctx, termID, classID, student.StudentID, subjects)
		if err != nil {
			failures.Store(student.StudentID, models.StudentSubmissionError{
				StudentID:   student.StudentID,
				StudentName: student.StudentName,
				Reason:      "failed to evaluate summary grades",
			})
			return err
		}
		if len(missing) > 0 {
			failures.Store(student.StudentID, models.StudentSubmissionError{
				StudentID:       student.StudentID,
				StudentName:     student.StudentName,
				Reason:          "summary grades incomplete",
				MissingSubjects: missing,
			})
			return appErrors.ErrIncomplete
		}

		record := &models.SubmissionRecord{
			TermID:            termID,
			StudentID:         student.StudentID,
			HomeroomTeacherID: *student.HomeroomTeacherID,
			Status:            models.SubmissionStatusSubmitted,
			SubmissionReason:  submissionReason,
		}
		if err := s.submissions.Submit(ctx, record); err != nil {
			failures.Store(student.StudentID, models.StudentSubmissionError{
				StudentID:   student.StudentID,
				StudentName: student.StudentName,
				Reason:      "failed to persist submission",
			})
			return err
		}

		s.notifyTeacher(ctx, record, student)
		return nil
	})

	result := &models.ClassSubmissionResult{TermID: termID, ClassID: classID}
	for _, r := range results {
		if r.Err == nil {
			result.SuccessCount++
			continue
		}
		result.ErrorCount++
		if v, ok := failures.Load(r.ID); ok {
			result.Errors = append(result.Errors, v.(models.StudentSubmissionError))
			continue
		}
		student := byID[r.ID]
		result.Errors = append(result.Errors, models.StudentSubmissionError{
			StudentID:   r.ID,
			StudentName: student.StudentName,
			Reason:      r.Err.Error(),
		})
	}
	sort.Slice(result.Errors, func(i, j int) bool { return result.Errors[i].StudentID < result.Errors[j].StudentID })

	s.logger.Info("class grades submitted",
		zap.String("term_id", termID),
		zap.String("class_id", classID),
		zap.Int("success", result.SuccessCount),
		zap.Int("errors", result.ErrorCount),
		zap.String("actor", actor.ID),
	)
	return result, nil
}

// SubmitToParents broadcasts report cards to every guardian of a class.
// The broadcast is refused while any student in the class is still
// unsubmitted to their homeroom teacher; within an eligible class,
// guardian resolution and rendering failures stay per-student.
func (s *SubmissionService) SubmitToParents(ctx context.Context, actor *models.Actor, termID, classID string) (*models.BroadcastResult, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	if actor.Role != models.RoleAdmin && actor.Role != models.RoleTeacher {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only staff broadcast report cards")
	}

	students, err := s.roster.ListClassStudents(ctx, classID, termID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load class roster")
	}
	students = collapseRoster(students)
	if len(students) == 0 {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "class has no enrolled students for the term")
	}

	studentIDs := make([]string, len(students))
	byID := make(map[string]models.ClassStudent, len(students))
	for i, st := range students {
		studentIDs[i] = st.StudentID
		byID[st.StudentID] = st
	}
	submitted, err := s.submissions.ListByStudents(ctx, termID, studentIDs)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load submission records")
	}

	var unsubmitted []string
	for _, st := range students {
		record, ok := submitted[st.StudentID]
		if !ok || record.Status != models.SubmissionStatusSubmitted {
			unsubmitted = append(unsubmitted, st.StudentName)
		}
	}
	if len(unsubmitted) > 0 {
		sort.Strings(unsubmitted)
		return nil, appErrors.Clone(appErrors.ErrPreconditionFailed,
			fmt.Sprintf("broadcast requires every student submitted to homeroom; pending: %s", strings.Join(unsubmitted, ", ")))
	}

	guardians, err := s.roster.ListGuardians(ctx, studentIDs)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load guardians")
	}

	var failures sync.Map
	var recipients sync.Map
	items := make([]jobs.Item, len(students))
	for i, st := range students {
		items[i] = jobs.Item{ID: st.StudentID}
	}

	results := s.pool.Run(ctx, items, func(ctx context.Context, item jobs.Item) error {
		student := byID[item.ID]

		wards := guardians[student.StudentID]
		if len(wards) == 0 {
			failures.Store(student.StudentID, models.StudentSubmissionError{
				StudentID:   student.StudentID,
				StudentName: student.StudentName,
				Reason:      "student has no registered guardian",
			})
			return appErrors.ErrPreconditionFailed
		}

		attachment, err := s.renderReportCard(ctx, termID, classID, student.StudentID)
		if err != nil {
			failures.Store(student.StudentID, models.StudentSubmissionError{
				StudentID:   student.StudentID,
				StudentName: student.StudentName,
				Reason:      "failed to render report card",
			})
			return err
		}

		var count int
		for _, guardian := range wards {
			s.enqueue(jobs.Job{
				ID:   uuid.NewString(),
				Type: string(notify.TemplateReportCard),
				Payload: notify.Message{
					Recipient:  guardian.Email,
					Template:   notify.TemplateReportCard,
					Subject:    fmt.Sprintf("Report card for %s", student.StudentName),
					Payload:    map[string]interface{}{"student_id": student.StudentID, "term_id": termID},
					Attachment: attachment,
				},
			})
			count++
		}
		recipients.Store(student.StudentID, count)
		return nil
	})

	result := &models.BroadcastResult{TermID: termID, ClassID: classID}
	for _, r := range results {
		if r.Err == nil {
			result.StudentCount++
			if v, ok := recipients.Load(r.ID); ok {
				result.RecipientCount += v.(int)
			}
			continue
		}
		if v, ok := failures.Load(r.ID); ok {
			result.Errors = append(result.Errors, v.(models.StudentSubmissionError))
			continue
		}
		student := byID[r.ID]
		result.Errors = append(result.Errors, models.StudentSubmissionError{
			StudentID:   r.ID,
			StudentName: student.StudentName,
			Reason:      r.Err.Error(),
		})
	}
	sort.Slice(result.Errors, func(i, j int) bool { return result.Errors[i].StudentID < result.Errors[j].StudentID })

	if result.StudentCount > 0 {
		broadcast := &models.ParentBroadcast{TermID: termID, ClassID: classID, SentBy: actor.ID}
		if err := s.submissions.UpsertBroadcast(ctx, broadcast); err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to record broadcast")
		}
	}

	s.logger.Info("report cards broadcast",
		zap.String("term_id", termID),
		zap.String("class_id", classID),
		zap.Int("students", result.StudentCount),
		zap.Int("recipients", result.RecipientCount),
		zap.Int("errors", len(result.Errors)),
		zap.String("actor", actor.ID),
	)
	return result, nil
}

// ListClassSubmissions returns per-student submission records for a
// class scope, with absent records omitted.
func (s *SubmissionService) ListClassSubmissions(ctx context.Context, termID, classID string) ([]models.SubmissionRecord, error) {
	students, err := s.roster.ListClassStudents(ctx, classID, termID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load class roster")
	}
	students = collapseRoster(students)
	ids := make([]string, len(students))
	for i, st := range students {
		ids[i] = st.StudentID
	}
	byStudent, err := s.submissions.ListByStudents(ctx, termID, ids)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load submission records")
	}
	records := make([]models.SubmissionRecord, 0, len(byStudent))
	for _, st := range students {
		if record, ok := byStudent[st.StudentID]; ok {
			records = append(records, record)
		}
	}
	return records, nil
}

// GetSubmission returns one student's record for a term, or nil.
func (s *SubmissionService) GetSubmission(ctx context.Context, termID, studentID string) (*models.SubmissionRecord, error) {
	record, err := s.submissions.Get(ctx, termID, studentID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load submission record")
	}
	return record, nil
}

// collapseRoster folds duplicate roster rows into one entry per
// student. A row carrying a homeroom assignment wins over one without,
// so a duplicate can never double-process a student or mask a valid
// assignment.
func collapseRoster(students []models.ClassStudent) []models.ClassStudent {
	out := make([]models.ClassStudent, 0, len(students))
	index := make(map[string]int, len(students))
	for _, st := range students {
		if i, ok := index[st.StudentID]; ok {
			if out[i].HomeroomTeacherID == nil && st.HomeroomTeacherID != nil {
				out[i] = st
			}
			continue
		}
		index[st.StudentID] = len(out)
		out = append(out, st)
	}
	return out
}

// missingSubjects returns subject codes without a computable summary.
func (s *SubmissionService) missingSubjects(ctx context.Context, termID, classID, studentID string, subjects []models.Subject) ([]string, error) {
	var missing []string
	for _, subject := range subjects {
		scope := models.GradeScope{TermID: termID, StudentID: studentID, SubjectID: subject.ID, ClassID: classID}
		summary, err := s.grades.ComputeSummary(ctx, scope)
		if err != nil {
			return nil, err
		}
		if summary.Value == nil {
			missing = append(missing, subject.Code)
		}
	}
	return missing, nil
}

func (s *SubmissionService) renderReportCard(ctx context.Context, termID, classID, studentID string) ([]byte, error) {
	card, err := s.grades.ReportCard(ctx, termID, classID, studentID)
	if err != nil {
		return nil, err
	}
	data := export.Dataset{Headers: []string{"Subject", "Summary"}}
	for _, subject := range card.Subjects {
		value := "-"
		if subject.Summary != nil {
			value = fmt.Sprintf("%.1f", *subject.Summary)
		}
		data.Rows = append(data.Rows, map[string]string{"Subject": subject.SubjectName, "Summary": value})
	}
	return s.exporter.Render(data, fmt.Sprintf("Report card - %s", card.StudentName))
}

func (s *SubmissionService) notifyTeacher(ctx context.Context, record *models.SubmissionRecord, student models.ClassStudent) {
	teacher, err := s.roster.GetTeacher(ctx, record.HomeroomTeacherID)
	if err != nil || teacher == nil {
		s.logger.Warn("homeroom teacher lookup failed",
			zap.String("teacher_id", record.HomeroomTeacherID),
			zap.Error(err),
		)
		return
	}
	s.enqueue(jobs.Job{
		ID:   uuid.NewString(),
		Type: string(notify.TemplateGradesSubmitted),
		Payload: notify.Message{
			Recipient: teacher.Email,
			Template:  notify.TemplateGradesSubmitted,
			Subject:   fmt.Sprintf("Grades submitted for %s", student.StudentName),
			Payload: map[string]interface{}{
				"student_id":       student.StudentID,
				"term_id":          record.TermID,
				"submission_count": record.SubmissionCount,
			},
		},
	})
}

// enqueue hands a notification to the delivery queue. Delivery is
// best-effort and never fails the workflow.
func (s *SubmissionService) enqueue(job jobs.Job) {
	if s.queue == nil {
		return
	}
	if err := s.queue.Enqueue(job); err != nil {
		s.logger.Warn("notification enqueue failed", zap.String("job_id", job.ID), zap.Error(err))
	}
}
