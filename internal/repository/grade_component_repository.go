package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/vina-edu/academic-api/internal/models"
)

// GradeComponentRepository handles grade cell persistence.
type GradeComponentRepository struct {
	db *sqlx.DB
}

// NewGradeComponentRepository creates a new grade component repository.
func NewGradeComponentRepository(db *sqlx.DB) *GradeComponentRepository {
	return &GradeComponentRepository{db: db}
}

const gradeComponentColumns = `id, term_id, student_id, subject_id, class_id, component_type, value, locked, derived, created_at, updated_at`

// GetComponents returns every component cell for one subject grade scope.
func (r *GradeComponentRepository) GetComponents(ctx context.Context, scope models.GradeScope) ([]models.GradeComponent, error) {
	query := fmt.Sprintf(`SELECT %s FROM grade_components
        WHERE term_id = $1 AND student_id = $2 AND subject_id = $3 AND class_id = $4
        ORDER BY component_type`, gradeComponentColumns)
	var components []models.GradeComponent
	if err := r.db.SelectContext(ctx, &components, query, scope.TermID, scope.StudentID, scope.SubjectID, scope.ClassID); err != nil {
		return nil, fmt.Errorf("get components: %w", err)
	}
	return components, nil
}

// GetComponentsForTerms gathers a student's subject components across
// several terms, used when an aggregate term summarises its semesters.
func (r *GradeComponentRepository) GetComponentsForTerms(ctx context.Context, termIDs []string, studentID, subjectID, classID string) ([]models.GradeComponent, error) {
	if len(termIDs) == 0 {
		return nil, nil
	}
	placeholders := make([]string, len(termIDs))
	args := make([]interface{}, 0, len(termIDs)+3)
	for i, id := range termIDs {
		placeholders[i] = fmt.Sprintf("$%d", i+1)
		args = append(args, id)
	}
	args = append(args, studentID, subjectID, classID)
	query := fmt.Sprintf(`SELECT %s FROM grade_components
        WHERE term_id IN (%s) AND student_id = $%d AND subject_id = $%d AND class_id = $%d
        ORDER BY term_id, component_type`,
		gradeComponentColumns, strings.Join(placeholders, ","), len(termIDs)+1, len(termIDs)+2, len(termIDs)+3)
	var components []models.GradeComponent
	if err := r.db.SelectContext(ctx, &components, query, args...); err != nil {
		return nil, fmt.Errorf("get components for terms: %w", err)
	}
	return components, nil
}

// Find returns a single component cell, or nil when the slot is empty.
func (r *GradeComponentRepository) Find(ctx context.Context, scope models.GradeScope, componentType models.ComponentType) (*models.GradeComponent, error) {
	query := fmt.Sprintf(`SELECT %s FROM grade_components
        WHERE term_id = $1 AND student_id = $2 AND subject_id = $3 AND class_id = $4 AND component_type = $5`, gradeComponentColumns)
	var component models.GradeComponent
	err := r.db.GetContext(ctx, &component, query, scope.TermID, scope.StudentID, scope.SubjectID, scope.ClassID, componentType)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("find component: %w", err)
	}
	return &component, nil
}

const upsertComponentQuery = `INSERT INTO grade_components (id, term_id, student_id, subject_id, class_id, component_type, value, locked, derived, created_at, updated_at)
        VALUES (:id, :term_id, :student_id, :subject_id, :class_id, :component_type, :value, :locked, :derived, :created_at, :updated_at)
        ON CONFLICT (term_id, student_id, subject_id, class_id, component_type)
        DO UPDATE SET value = EXCLUDED.value, locked = EXCLUDED.locked, derived = EXCLUDED.derived, updated_at = EXCLUDED.updated_at
        RETURNING id`

// UpsertWithAudit writes the grade cell and its audit entry in one
// transaction. A grade value with no matching audit entry is a
// consistency violation, so the two writes commit together or not at all.
func (r *GradeComponentRepository) UpsertWithAudit(ctx context.Context, component *models.GradeComponent, entry *models.GradeAuditEntry) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	if err := upsertComponentTx(ctx, tx, component); err != nil {
		tx.Rollback() //nolint:errcheck
		return err
	}
	entry.GradeID = component.ID
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if entry.ChangedAt.IsZero() {
		entry.ChangedAt = time.Now().UTC()
	}
	const auditQuery = `INSERT INTO grade_audit_entries (id, grade_id, old_value, new_value, changed_by, changed_at, change_reason, component_type, student_name, subject_name, status, processed_by, processed_at)
        VALUES (:id, :grade_id, :old_value, :new_value, :changed_by, :changed_at, :change_reason, :component_type, :student_name, :subject_name, :status, :processed_by, :processed_at)`
	if _, err := tx.NamedExecContext(ctx, auditQuery, entry); err != nil {
		tx.Rollback() //nolint:errcheck
		return fmt.Errorf("append audit entry: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit grade change: %w", err)
	}
	return nil
}

// UpsertSummary materializes a derived summary component. It is a cache
// write outside the audit-gated path; callers treat failures as
// non-fatal. Derived rows never shadow an explicitly entered summary
// when recomputing.
func (r *GradeComponentRepository) UpsertSummary(ctx context.Context, component *models.GradeComponent) error {
	component.Derived = true
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	if err := upsertComponentTx(ctx, tx, component); err != nil {
		tx.Rollback() //nolint:errcheck
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit summary: %w", err)
	}
	return nil
}

func upsertComponentTx(ctx context.Context, tx *sqlx.Tx, component *models.GradeComponent) error {
	if component.ID == "" {
		component.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if component.CreatedAt.IsZero() {
		component.CreatedAt = now
	}
	component.UpdatedAt = now

	rows, err := tx.NamedQuery(upsertComponentQuery, component)
	if err != nil {
		return fmt.Errorf("upsert component: %w", err)
	}
	defer rows.Close()
	if rows.Next() {
		// The conflict target may resolve to a pre-existing row id.
		if err := rows.Scan(&component.ID); err != nil {
			return fmt.Errorf("scan component id: %w", err)
		}
	}
	return rows.Err()
}

// ListByClassTerm returns every grade cell in a class/term scope.
func (r *GradeComponentRepository) ListByClassTerm(ctx context.Context, classID, termID string) ([]models.GradeComponent, error) {
	query := fmt.Sprintf(`SELECT %s FROM grade_components
        WHERE class_id = $1 AND term_id = $2
        ORDER BY student_id, subject_id, component_type`, gradeComponentColumns)
	var components []models.GradeComponent
	if err := r.db.SelectContext(ctx, &components, query, classID, termID); err != nil {
		return nil, fmt.Errorf("list by class term: %w", err)
	}
	return components, nil
}

// SourceWatermarks returns the latest raw grade write per term for a
// class. Derived summary rows are cache artifacts refreshed on reads,
// so they never count as source writes.
func (r *GradeComponentRepository) SourceWatermarks(ctx context.Context, classID string, termIDs []string) (map[string]time.Time, error) {
	result := make(map[string]time.Time, len(termIDs))
	if len(termIDs) == 0 {
		return result, nil
	}
	placeholders := make([]string, len(termIDs))
	args := make([]interface{}, 0, len(termIDs)+1)
	args = append(args, classID)
	for i, id := range termIDs {
		placeholders[i] = fmt.Sprintf("$%d", i+2)
		args = append(args, id)
	}
	query := fmt.Sprintf(`SELECT term_id, MAX(updated_at) AS last_write FROM grade_components
        WHERE class_id = $1 AND derived = false AND term_id IN (%s)
        GROUP BY term_id`, strings.Join(placeholders, ","))
	rows, err := r.db.QueryxContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("source watermarks: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var termID string
		var lastWrite time.Time
		if err := rows.Scan(&termID, &lastWrite); err != nil {
			return nil, fmt.Errorf("scan watermark: %w", err)
		}
		result[termID] = lastWrite
	}
	return result, rows.Err()
}
