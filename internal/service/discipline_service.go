package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/vina-edu/academic-api/internal/models"
	appErrors "github.com/vina-edu/academic-api/pkg/errors"
	"github.com/vina-edu/academic-api/pkg/jobs"
	"github.com/vina-edu/academic-api/pkg/notify"
)

type caseStore interface {
	Create(ctx context.Context, c *models.DisciplinaryCase) error
	GetByID(ctx context.Context, id string) (*models.DisciplinaryCase, error)
	List(ctx context.Context, filter models.CaseFilter) ([]models.DisciplinaryCase, error)
	AdvanceStatus(ctx context.Context, id string, from, to models.CaseStatus) error
	SoftDelete(ctx context.Context, id string) error
}

type caseRoster interface {
	GetStudent(ctx context.Context, id string) (*models.Student, error)
	GetTeacher(ctx context.Context, id string) (*models.TeacherContact, error)
	ListClassStudents(ctx context.Context, classID, termID string) ([]models.ClassStudent, error)
}

// CreateCaseRequest opens a new disciplinary case in DRAFT.
type CreateCaseRequest struct {
	StudentID   string `json:"student_id" validate:"required"`
	ClassID     string `json:"class_id" validate:"required"`
	TermID      string `json:"term_id" validate:"required"`
	Title       string `json:"title" validate:"required,min=3,max=200"`
	Description string `json:"description" validate:"max=4000"`
}

// DisciplineService owns the forward-only case ladder. A case advances
// one rung at a time and never moves backward; removal is a soft
// delete available from any rung.
type DisciplineService struct {
	cases     caseStore
	roster    caseRoster
	queue     notifyQueue
	validator *validator.Validate
	logger    *zap.Logger
}

// NewDisciplineService constructs DisciplineService.
func NewDisciplineService(cases caseStore, roster caseRoster, queue notifyQueue, validate *validator.Validate, logger *zap.Logger) *DisciplineService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DisciplineService{cases: cases, roster: roster, queue: queue, validator: validate, logger: logger}
}

// Create opens a case in DRAFT for the acting teacher or admin.
func (s *DisciplineService) Create(ctx context.Context, actor *models.Actor, req CreateCaseRequest) (*models.DisciplinaryCase, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	if actor.Role != models.RoleAdmin && actor.Role != models.RoleTeacher {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only staff open disciplinary cases")
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid case payload")
	}
	if _, err := s.roster.GetStudent(ctx, req.StudentID); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrNotFound.Code, appErrors.ErrNotFound.Status, "student not found")
	}

	c := &models.DisciplinaryCase{
		StudentID:   req.StudentID,
		ClassID:     req.ClassID,
		TermID:      req.TermID,
		Title:       req.Title,
		Description: req.Description,
		CreatedBy:   actor.ID,
	}
	if err := s.cases.Create(ctx, c); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create case")
	}
	s.logger.Info("disciplinary case opened", zap.String("case_id", c.ID), zap.String("actor", actor.ID))
	return c, nil
}

// Get loads one live case.
func (s *DisciplineService) Get(ctx context.Context, id string) (*models.DisciplinaryCase, error) {
	c, err := s.cases.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "case not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load case")
	}
	if c.Deleted {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "case not found")
	}
	return c, nil
}

// List returns live cases matching the filter.
func (s *DisciplineService) List(ctx context.Context, filter models.CaseFilter) ([]models.DisciplinaryCase, error) {
	if filter.Status != "" && !filter.Status.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unknown case status %s", filter.Status))
	}
	if filter.Limit <= 0 || filter.Limit > 200 {
		filter.Limit = 50
	}
	cases, err := s.cases.List(ctx, filter)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list cases")
	}
	return cases, nil
}

// Advance moves a case to the requested status. The target must be the
// immediate successor of the case's current status; skipping rungs or
// moving backward is rejected. The store's equality guard settles
// concurrent advances: the loser observes a state mismatch.
func (s *DisciplineService) Advance(ctx context.Context, actor *models.Actor, id string, target models.CaseStatus) (*models.DisciplinaryCase, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	if actor.Role != models.RoleAdmin && actor.Role != models.RoleTeacher {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only staff advance cases")
	}
	if !target.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unknown case status %s", target))
	}

	c, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	next := c.Status.Next()
	if next == "" {
		return nil, appErrors.Clone(appErrors.ErrInvalidTransition, "case is already resolved")
	}
	if target != next {
		return nil, appErrors.Clone(appErrors.ErrInvalidTransition,
			fmt.Sprintf("cannot move from %s to %s; next allowed status is %s", c.Status, target, next))
	}

	if err := s.cases.AdvanceStatus(ctx, id, c.Status, target); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrConflict, "case changed state concurrently")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to advance case")
	}
	c.Status = target

	if target == models.CaseStatusSentToHomeroom {
		s.notifyHomeroom(ctx, c)
	}
	s.logger.Info("disciplinary case advanced",
		zap.String("case_id", id),
		zap.String("status", string(target)),
		zap.String("actor", actor.ID),
	)
	return c, nil
}

// Delete soft-removes a case. Admins remove any case; teachers only
// their own.
func (s *DisciplineService) Delete(ctx context.Context, actor *models.Actor, id string) error {
	if actor == nil {
		return appErrors.ErrUnauthorized
	}
	c, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if actor.Role != models.RoleAdmin && c.CreatedBy != actor.ID {
		return appErrors.Clone(appErrors.ErrForbidden, "only the creator or an administrator removes a case")
	}
	if err := s.cases.SoftDelete(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "case not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to remove case")
	}
	s.logger.Info("disciplinary case removed", zap.String("case_id", id), zap.String("actor", actor.ID))
	return nil
}

// notifyHomeroom alerts the student's homeroom teacher that a case
// reached their queue. Best-effort.
func (s *DisciplineService) notifyHomeroom(ctx context.Context, c *models.DisciplinaryCase) {
	if s.queue == nil {
		return
	}
	students, err := s.roster.ListClassStudents(ctx, c.ClassID, c.TermID)
	if err != nil {
		s.logger.Warn("roster lookup failed for case notification", zap.String("case_id", c.ID), zap.Error(err))
		return
	}
	var teacherID *string
	for _, st := range students {
		if st.StudentID == c.StudentID {
			teacherID = st.HomeroomTeacherID
			break
		}
	}
	if teacherID == nil {
		return
	}
	teacher, err := s.roster.GetTeacher(ctx, *teacherID)
	if err != nil || teacher == nil {
		return
	}
	job := jobs.Job{
		ID:   uuid.NewString(),
		Type: string(notify.TemplateCaseForwarded),
		Payload: notify.Message{
			Recipient: teacher.Email,
			Template:  notify.TemplateCaseForwarded,
			Subject:   fmt.Sprintf("Disciplinary case: %s", c.Title),
			Payload:   map[string]interface{}{"case_id": c.ID, "student_id": c.StudentID},
		},
	}
	if err := s.queue.Enqueue(job); err != nil {
		s.logger.Warn("case notification enqueue failed", zap.String("case_id", c.ID), zap.Error(err))
	}
}
