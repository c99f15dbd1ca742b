package service

import (
	"context"
	"fmt"
	"math"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/vina-edu/academic-api/internal/models"
	appErrors "github.com/vina-edu/academic-api/pkg/errors"
)

type gradeComponentStore interface {
	GetComponents(ctx context.Context, scope models.GradeScope) ([]models.GradeComponent, error)
	GetComponentsForTerms(ctx context.Context, termIDs []string, studentID, subjectID, classID string) ([]models.GradeComponent, error)
	Find(ctx context.Context, scope models.GradeScope, componentType models.ComponentType) (*models.GradeComponent, error)
	UpsertWithAudit(ctx context.Context, component *models.GradeComponent, entry *models.GradeAuditEntry) error
	UpsertSummary(ctx context.Context, component *models.GradeComponent) error
}

type auditReader interface {
	LatestForGrade(ctx context.Context, gradeID string) (*models.GradeAuditEntry, error)
}

type rosterReader interface {
	GetTerm(ctx context.Context, id string) (*models.Term, error)
	ListTermsForYear(ctx context.Context, academicYear string) ([]models.Term, error)
	GetStudent(ctx context.Context, id string) (*models.Student, error)
	GetSubject(ctx context.Context, id string) (*models.Subject, error)
	ListClassSubjects(ctx context.Context, classID, termID string) ([]models.Subject, error)
}

// SummaryCache is the advisory read-acceleration layer for derived
// summaries. Implementations must never fail the read path.
type SummaryCache interface {
	GetSummary(ctx context.Context, scope models.GradeScope) (*float64, bool)
	SetSummary(ctx context.Context, scope models.GradeScope, value float64)
	DeleteSummary(ctx context.Context, scope models.GradeScope)
}

// RecordGradeRequest is a single grade entry or correction payload.
type RecordGradeRequest struct {
	TermID        string               `json:"term_id" validate:"required"`
	StudentID     string               `json:"student_id" validate:"required"`
	SubjectID     string               `json:"subject_id" validate:"required"`
	ClassID       string               `json:"class_id" validate:"required"`
	ComponentType models.ComponentType `json:"component_type" validate:"required"`
	Value         *float64             `json:"value" validate:"required"`
	Reason        string               `json:"reason"`
	Lock          bool                 `json:"lock"`
}

// GradeService owns summary computation and the audit-gated write path.
type GradeService struct {
	components gradeComponentStore
	audits     auditReader
	roster     rosterReader
	cache      SummaryCache
	validator  *validator.Validate
	logger     *zap.Logger
}

// NewGradeService constructs GradeService.
func NewGradeService(components gradeComponentStore, audits auditReader, roster rosterReader, cache SummaryCache, validate *validator.Validate, logger *zap.Logger) *GradeService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &GradeService{
		components: components,
		audits:     audits,
		roster:     roster,
		cache:      cache,
		validator:  validate,
		logger:     logger,
	}
}

// SummarizeComponents derives the subject summary from a component set.
// An explicitly entered summary slot of the requested kind always wins
// over derivation; materialized (derived) summary rows do not, since
// the raw components stay authoritative. With no regular/midterm/final
// data at all the result is nil: the grade is not yet available, which
// is distinct from zero.
func SummarizeComponents(components []models.GradeComponent, summaryType models.ComponentType) (value *float64, explicit bool) {
	for _, c := range components {
		if c.ComponentType == summaryType && c.Value != nil && !c.Derived {
			v := *c.Value
			return &v, true
		}
	}

	var regularSum float64
	var regularCount int
	var midterm, final float64
	var any bool
	for _, c := range components {
		if c.Value == nil {
			continue
		}
		switch {
		case c.ComponentType.IsRegular():
			regularSum += *c.Value
			regularCount++
			any = true
		case c.ComponentType == models.ComponentMidterm:
			midterm = *c.Value
			any = true
		case c.ComponentType == models.ComponentFinal:
			final = *c.Value
			any = true
		}
	}
	if !any {
		return nil, false
	}

	// Fixed weighting: regulars x1, midterm x2, final x3, denominator
	// is the regular count plus five.
	summary := (regularSum + 2*midterm + 3*final) / (float64(regularCount) + 5)
	return &summary, false
}

// RoundDisplay rounds a summary to one decimal place for presentation;
// the full-precision value is retained internally.
func RoundDisplay(v float64) float64 {
	return math.Round(v*10) / 10
}

// ComputeSummary resolves a student's subject summary for a term,
// gathering components across the academic year when the term is an
// aggregate. Derived values are materialized best-effort.
func (s *GradeService) ComputeSummary(ctx context.Context, scope models.GradeScope) (*models.SummaryGrade, error) {
	term, err := s.roster.GetTerm(ctx, scope.TermID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load term")
	}
	summaryType := term.Type.SummaryComponent()
	if summaryType == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("term %s has no summary component", term.ID))
	}

	if s.cache != nil {
		if cached, ok := s.cache.GetSummary(ctx, scope); ok {
			// Only derived summaries enter the cache, and every explicit
			// write invalidates the key, so a hit is never explicit.
			display := RoundDisplay(*cached)
			return &models.SummaryGrade{Scope: scope, Value: cached, Display: &display}, nil
		}
	}

	components, err := s.gatherComponents(ctx, term, scope)
	if err != nil {
		return nil, err
	}

	value, explicit := SummarizeComponents(components, summaryType)
	result := &models.SummaryGrade{Scope: scope, Value: value, Explicit: explicit}
	if value == nil {
		return result, nil
	}
	display := RoundDisplay(*value)
	result.Display = &display

	if !explicit {
		s.materialize(ctx, scope, summaryType, *value)
	}
	return result, nil
}

// RefreshSummary recomputes a summary from raw components, bypassing
// and replacing any cached value. Used when reconciling distributed
// reports after source grades changed.
func (s *GradeService) RefreshSummary(ctx context.Context, scope models.GradeScope) (*models.SummaryGrade, error) {
	if s.cache != nil {
		s.cache.DeleteSummary(ctx, scope)
	}
	return s.ComputeSummary(ctx, scope)
}

// ReportCard assembles a student's per-subject summaries for a term.
func (s *GradeService) ReportCard(ctx context.Context, termID, classID, studentID string) (*models.ReportCard, error) {
	student, err := s.roster.GetStudent(ctx, studentID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}
	subjects, err := s.roster.ListClassSubjects(ctx, classID, termID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list subjects")
	}
	card := &models.ReportCard{StudentID: studentID, StudentName: student.FullName, TermID: termID}
	for _, subject := range subjects {
		scope := models.GradeScope{TermID: termID, StudentID: studentID, SubjectID: subject.ID, ClassID: classID}
		summary, err := s.ComputeSummary(ctx, scope)
		if err != nil {
			return nil, err
		}
		card.Subjects = append(card.Subjects, models.ReportCardSubject{
			SubjectID:   subject.ID,
			SubjectCode: subject.Code,
			SubjectName: subject.Name,
			Summary:     summary.Display,
		})
	}
	return card, nil
}

// RecordGradeChange validates and applies one grade mutation through
// the audit-gated path. The grade write and the audit entry commit in a
// single transaction.
func (s *GradeService) RecordGradeChange(ctx context.Context, actor *models.Actor, req RecordGradeRequest) (*models.GradeComponent, *models.GradeAuditEntry, error) {
	if actor == nil {
		return nil, nil, appErrors.ErrUnauthorized
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid grade payload")
	}
	if !req.ComponentType.Valid() {
		return nil, nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unknown component type %s", req.ComponentType))
	}
	if *req.Value < 0 || *req.Value > 10 {
		return nil, nil, appErrors.Clone(appErrors.ErrValidation, "grade value must be between 0 and 10")
	}

	scope := models.GradeScope{TermID: req.TermID, StudentID: req.StudentID, SubjectID: req.SubjectID, ClassID: req.ClassID}
	existing, err := s.components.Find(ctx, scope, req.ComponentType)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load grade cell")
	}

	student, err := s.roster.GetStudent(ctx, req.StudentID)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}
	subject, err := s.roster.GetSubject(ctx, req.SubjectID)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load subject")
	}

	status, oldValue, err := s.resolveAuditStatus(ctx, actor, existing)
	if err != nil {
		return nil, nil, err
	}

	component := &models.GradeComponent{
		TermID:        req.TermID,
		StudentID:     req.StudentID,
		SubjectID:     req.SubjectID,
		ClassID:       req.ClassID,
		ComponentType: req.ComponentType,
		Value:         req.Value,
		Locked:        req.Lock,
	}
	if existing != nil {
		component.ID = existing.ID
		component.CreatedAt = existing.CreatedAt
		component.Locked = existing.Locked || req.Lock
	}

	entry := &models.GradeAuditEntry{
		OldValue:      oldValue,
		NewValue:      *req.Value,
		ChangedBy:     actor.ID,
		ChangeReason:  req.Reason,
		ComponentType: req.ComponentType,
		StudentName:   student.FullName,
		SubjectName:   subject.Name,
		Status:        status,
	}
	if err := s.components.UpsertWithAudit(ctx, component, entry); err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to record grade change")
	}

	// The derived summary may have shifted; drop the cached value.
	if s.cache != nil {
		s.cache.DeleteSummary(ctx, scope)
	}

	s.logger.Info("grade change recorded",
		zap.String("grade_id", component.ID),
		zap.String("component", string(req.ComponentType)),
		zap.String("status", string(status)),
		zap.String("actor", actor.ID),
	)
	return component, entry, nil
}

// resolveAuditStatus applies the review policy: first entry and admin
// writes self-approve; a non-admin correcting someone else's value, or
// touching a locked cell, pends admin review.
func (s *GradeService) resolveAuditStatus(ctx context.Context, actor *models.Actor, existing *models.GradeComponent) (models.AuditStatus, *float64, error) {
	if existing == nil {
		return models.AuditStatusApproved, nil, nil
	}
	var oldValue *float64
	if existing.Value != nil {
		v := *existing.Value
		oldValue = &v
	}
	if actor.Role == models.RoleAdmin {
		return models.AuditStatusApproved, oldValue, nil
	}
	if existing.Locked {
		return models.AuditStatusPending, oldValue, nil
	}
	last, err := s.audits.LatestForGrade(ctx, existing.ID)
	if err != nil {
		return "", nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load audit trail")
	}
	if last != nil && last.ChangedBy == actor.ID {
		return models.AuditStatusApproved, oldValue, nil
	}
	return models.AuditStatusPending, oldValue, nil
}

func (s *GradeService) gatherComponents(ctx context.Context, term *models.Term, scope models.GradeScope) ([]models.GradeComponent, error) {
	if !term.Type.IsAggregate() {
		components, err := s.components.GetComponents(ctx, scope)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load components")
		}
		return components, nil
	}
	terms, err := s.roster.ListTermsForYear(ctx, term.AcademicYear)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list year terms")
	}
	termIDs := make([]string, 0, len(terms))
	for _, t := range terms {
		termIDs = append(termIDs, t.ID)
	}
	components, err := s.components.GetComponentsForTerms(ctx, termIDs, scope.StudentID, scope.SubjectID, scope.ClassID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load year components")
	}
	return components, nil
}

// materialize persists a derived summary as a summary-type component
// and primes the cache. Both writes are advisory: failures are logged
// and never surface to the read path.
func (s *GradeService) materialize(ctx context.Context, scope models.GradeScope, summaryType models.ComponentType, value float64) {
	if s.cache != nil {
		s.cache.SetSummary(ctx, scope, value)
	}
	component := &models.GradeComponent{
		TermID:        scope.TermID,
		StudentID:     scope.StudentID,
		SubjectID:     scope.SubjectID,
		ClassID:       scope.ClassID,
		ComponentType: summaryType,
		Value:         &value,
		Derived:       true,
	}
	if err := s.components.UpsertSummary(ctx, component); err != nil {
		s.logger.Warn("summary materialization failed",
			zap.String("term_id", scope.TermID),
			zap.String("student_id", scope.StudentID),
			zap.String("subject_id", scope.SubjectID),
			zap.Error(err),
		)
	}
}
