package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/vina-edu/academic-api/internal/models"
	appErrors "github.com/vina-edu/academic-api/pkg/errors"
)

type auditStore interface {
	History(ctx context.Context, filter models.AuditFilter) ([]models.GradeAuditEntry, error)
	ListPending(ctx context.Context, limit int) ([]models.GradeAuditEntry, error)
	GetByID(ctx context.Context, id string) (*models.GradeAuditEntry, error)
	Review(ctx context.Context, id string, status models.AuditStatus, processedBy string) (*models.GradeAuditEntry, error)
	LatestPerGrade(ctx context.Context, classID, termID string) (map[string]models.GradeAuditEntry, error)
}

type gradeLister interface {
	ListByClassTerm(ctx context.Context, classID, termID string) ([]models.GradeComponent, error)
}

// AuditService exposes the change ledger and its admin review loop.
type AuditService struct {
	audits auditStore
	grades gradeLister
	logger *zap.Logger
}

// NewAuditService constructs AuditService.
func NewAuditService(audits auditStore, grades gradeLister, logger *zap.Logger) *AuditService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuditService{audits: audits, grades: grades, logger: logger}
}

// History returns a student's audit trail, newest first.
func (s *AuditService) History(ctx context.Context, filter models.AuditFilter) ([]models.GradeAuditEntry, error) {
	if filter.StudentID == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "student id is required")
	}
	if filter.Limit <= 0 || filter.Limit > 200 {
		filter.Limit = 50
	}
	entries, err := s.audits.History(ctx, filter)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load audit history")
	}
	return entries, nil
}

// ListPending returns changes awaiting review, oldest first.
func (s *AuditService) ListPending(ctx context.Context, limit int) ([]models.GradeAuditEntry, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	entries, err := s.audits.ListPending(ctx, limit)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list pending changes")
	}
	return entries, nil
}

// Review settles one pending change. Only admins may review; rejection
// rolls the grade cell back to the entry's prior value.
func (s *AuditService) Review(ctx context.Context, actor *models.Actor, entryID string, approve bool) (*models.GradeAuditEntry, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	if actor.Role != models.RoleAdmin {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only administrators review grade changes")
	}
	status := models.AuditStatusApproved
	if !approve {
		status = models.AuditStatusRejected
	}
	entry, err := s.audits.Review(ctx, entryID, status, actor.ID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrConflict, "change is not pending review")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to review change")
	}
	s.logger.Info("grade change reviewed",
		zap.String("entry_id", entryID),
		zap.String("status", string(status)),
		zap.String("reviewer", actor.ID),
	)
	return entry, nil
}

// VerifyConsistency cross-checks every grade cell in a class/term scope
// against its latest audit entry and reports disagreements. A grade
// with no ledger entry at all is also an issue: values only enter the
// store through the audited path.
func (s *AuditService) VerifyConsistency(ctx context.Context, classID, termID string) ([]models.ConsistencyIssue, error) {
	components, err := s.grades.ListByClassTerm(ctx, classID, termID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list grade cells")
	}
	latest, err := s.audits.LatestPerGrade(ctx, classID, termID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load ledger")
	}

	var issues []models.ConsistencyIssue
	for _, component := range components {
		// Derived summary slots are materialized outside the audit
		// path and carry no ledger entries.
		entry, ok := latest[component.ID]
		if !ok {
			if component.ComponentType.IsSummary() {
				continue
			}
			issues = append(issues, models.ConsistencyIssue{
				GradeID:       component.ID,
				ComponentType: component.ComponentType,
				StoredValue:   component.Value,
				Detail:        "grade cell has no audit entry",
			})
			continue
		}
		expected := entry.NewValue
		if entry.Status == models.AuditStatusRejected {
			if entry.OldValue == nil {
				continue
			}
			expected = *entry.OldValue
		}
		if component.Value == nil || *component.Value != expected {
			auditValue := expected
			issues = append(issues, models.ConsistencyIssue{
				GradeID:       component.ID,
				ComponentType: component.ComponentType,
				StoredValue:   component.Value,
				AuditValue:    &auditValue,
				Detail:        fmt.Sprintf("stored value disagrees with ledger entry %s", entry.ID),
			})
		}
	}
	return issues, nil
}
