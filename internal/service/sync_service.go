package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/vina-edu/academic-api/internal/models"
	appErrors "github.com/vina-edu/academic-api/pkg/errors"
)

type syncMarkStore interface {
	GetMark(ctx context.Context, termID, classID string) (*models.SyncMark, error)
	UpsertMark(ctx context.Context, termID, classID string, syncedAt time.Time) error
	EarliestSubmittedAt(ctx context.Context, termID, classID string) (*time.Time, error)
}

type watermarkReader interface {
	SourceWatermarks(ctx context.Context, classID string, termIDs []string) (map[string]time.Time, error)
}

type broadcastReader interface {
	GetBroadcast(ctx context.Context, termID, classID string) (*models.ParentBroadcast, error)
}

type syncRoster interface {
	GetTerm(ctx context.Context, id string) (*models.Term, error)
	ListTermsForYear(ctx context.Context, academicYear string) ([]models.Term, error)
	ListClassStudents(ctx context.Context, classID, termID string) ([]models.ClassStudent, error)
	ListClassSubjects(ctx context.Context, classID, termID string) ([]models.Subject, error)
}

type summaryRefresher interface {
	RefreshSummary(ctx context.Context, scope models.GradeScope) (*models.SummaryGrade, error)
}

// SyncService detects stale distributed reports. Staleness is computed
// lazily on read by comparing grade-store watermarks against the last
// distribution or reconciliation point; nothing is recomputed on write.
type SyncService struct {
	marks      syncMarkStore
	grades     watermarkReader
	broadcasts broadcastReader
	roster     syncRoster
	summaries  summaryRefresher
	logger     *zap.Logger
}

// NewSyncService constructs SyncService.
func NewSyncService(marks syncMarkStore, grades watermarkReader, broadcasts broadcastReader, roster syncRoster, summaries summaryRefresher, logger *zap.Logger) *SyncService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SyncService{marks: marks, grades: grades, broadcasts: broadcasts, roster: roster, summaries: summaries, logger: logger}
}

// CheckSyncStatus reports whether distributed reports for a scope still
// reflect the grade store. A scope that was never distributed is never
// stale. For an aggregate term every term of its academic year feeds
// the verdict, since the distributed summary derives from all of them.
func (s *SyncService) CheckSyncStatus(ctx context.Context, scope models.SyncScope) (*models.SyncStatus, error) {
	status := &models.SyncStatus{Scope: scope}

	baseline, err := s.distributionBaseline(ctx, scope)
	if err != nil {
		return nil, err
	}
	if baseline == nil {
		return status, nil
	}
	status.LastSyncTime = baseline

	termIDs, err := s.relevantTerms(ctx, scope.TermID)
	if err != nil {
		return nil, err
	}
	watermarks, err := s.grades.SourceWatermarks(ctx, scope.ClassID, termIDs)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load grade watermarks")
	}

	for termID, watermark := range watermarks {
		if status.LastSourceWrite == nil || watermark.After(*status.LastSourceWrite) {
			w := watermark
			status.LastSourceWrite = &w
		}
		if watermark.After(*baseline) {
			status.AffectedPeriods = append(status.AffectedPeriods, termID)
		}
	}
	status.NeedsResync = len(status.AffectedPeriods) > 0
	return status, nil
}

// ForceResync recomputes the scope's summary aggregates and advances
// its reconciliation mark. Recipients are not re-notified: sending
// refreshed copies remains an explicit re-submission action.
func (s *SyncService) ForceResync(ctx context.Context, actor *models.Actor, scope models.SyncScope) (*models.SyncStatus, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	if actor.Role != models.RoleAdmin && actor.Role != models.RoleTeacher {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only staff reconcile reports")
	}

	baseline, err := s.distributionBaseline(ctx, scope)
	if err != nil {
		return nil, err
	}
	if baseline == nil {
		return nil, appErrors.Clone(appErrors.ErrPreconditionFailed, "nothing was distributed for this scope")
	}

	if err := s.refreshAggregates(ctx, scope); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	if err := s.marks.UpsertMark(ctx, scope.TermID, scope.ClassID, now); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to advance sync mark")
	}
	s.logger.Info("scope reconciled",
		zap.String("term_id", scope.TermID),
		zap.String("class_id", scope.ClassID),
		zap.String("actor", actor.ID),
	)
	return s.CheckSyncStatus(ctx, scope)
}

// distributionBaseline returns the point in time distributed copies are
// assumed current as of: the latest of the reconciliation mark, the
// oldest homeroom submission, and the parent broadcast. Nil means the
// scope was never distributed.
func (s *SyncService) distributionBaseline(ctx context.Context, scope models.SyncScope) (*time.Time, error) {
	earliest, err := s.marks.EarliestSubmittedAt(ctx, scope.TermID, scope.ClassID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load submission times")
	}
	broadcast, err := s.broadcasts.GetBroadcast(ctx, scope.TermID, scope.ClassID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load broadcast")
	}
	mark, err := s.marks.GetMark(ctx, scope.TermID, scope.ClassID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load sync mark")
	}

	var baseline *time.Time
	consider := func(t *time.Time) {
		if t == nil {
			return
		}
		if baseline == nil || t.After(*baseline) {
			v := *t
			baseline = &v
		}
	}
	consider(earliest)
	if broadcast != nil {
		consider(&broadcast.SentAt)
	}
	if mark != nil {
		consider(&mark.LastSyncedAt)
	}
	return baseline, nil
}

// refreshAggregates recomputes every (student, subject) summary in the
// scope so distributed report data derives from current components.
func (s *SyncService) refreshAggregates(ctx context.Context, scope models.SyncScope) error {
	if s.summaries == nil {
		return nil
	}
	students, err := s.roster.ListClassStudents(ctx, scope.ClassID, scope.TermID)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load class roster")
	}
	subjects, err := s.roster.ListClassSubjects(ctx, scope.ClassID, scope.TermID)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load class subjects")
	}
	for _, student := range students {
		for _, subject := range subjects {
			gradeScope := models.GradeScope{
				TermID:    scope.TermID,
				ClassID:   scope.ClassID,
				StudentID: student.StudentID,
				SubjectID: subject.ID,
			}
			if _, err := s.summaries.RefreshSummary(ctx, gradeScope); err != nil {
				return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to recompute summaries")
			}
		}
	}
	return nil
}

func (s *SyncService) relevantTerms(ctx context.Context, termID string) ([]string, error) {
	term, err := s.roster.GetTerm(ctx, termID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load term")
	}
	if !term.Type.IsAggregate() {
		return []string{term.ID}, nil
	}
	terms, err := s.roster.ListTermsForYear(ctx, term.AcademicYear)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list year terms")
	}
	ids := make([]string, 0, len(terms))
	for _, t := range terms {
		ids = append(ids, t.ID)
	}
	return ids, nil
}
