package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/vina-edu/academic-api/internal/models"
)

// DisciplineRepository persists disciplinary cases.
type DisciplineRepository struct {
	db *sqlx.DB
}

// NewDisciplineRepository constructs the repository.
func NewDisciplineRepository(db *sqlx.DB) *DisciplineRepository {
	return &DisciplineRepository{db: db}
}

const caseColumns = `id, student_id, class_id, term_id, title, description, status, created_by, deleted, deleted_at, created_at, updated_at`

// Create inserts a new case in DRAFT.
func (r *DisciplineRepository) Create(ctx context.Context, c *models.DisciplinaryCase) error {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	c.CreatedAt = now
	c.UpdatedAt = now
	c.Status = models.CaseStatusDraft
	const query = `INSERT INTO disciplinary_cases (id, student_id, class_id, term_id, title, description, status, created_by, deleted, deleted_at, created_at, updated_at)
        VALUES (:id, :student_id, :class_id, :term_id, :title, :description, :status, :created_by, :deleted, :deleted_at, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, c); err != nil {
		return fmt.Errorf("create case: %w", err)
	}
	return nil
}

// GetByID loads one case including soft-deleted rows.
func (r *DisciplineRepository) GetByID(ctx context.Context, id string) (*models.DisciplinaryCase, error) {
	query := fmt.Sprintf(`SELECT %s FROM disciplinary_cases WHERE id = $1`, caseColumns)
	var c models.DisciplinaryCase
	if err := r.db.GetContext(ctx, &c, query, id); err != nil {
		return nil, fmt.Errorf("get case: %w", err)
	}
	return &c, nil
}

// List returns live cases matching the filter, newest first.
func (r *DisciplineRepository) List(ctx context.Context, filter models.CaseFilter) ([]models.DisciplinaryCase, error) {
	query := fmt.Sprintf(`SELECT %s FROM disciplinary_cases WHERE deleted = false`, caseColumns)
	var args []interface{}
	if filter.StudentID != "" {
		query += fmt.Sprintf(" AND student_id = $%d", len(args)+1)
		args = append(args, filter.StudentID)
	}
	if filter.ClassID != "" {
		query += fmt.Sprintf(" AND class_id = $%d", len(args)+1)
		args = append(args, filter.ClassID)
	}
	if filter.TermID != "" {
		query += fmt.Sprintf(" AND term_id = $%d", len(args)+1)
		args = append(args, filter.TermID)
	}
	if filter.Status != "" {
		query += fmt.Sprintf(" AND status = $%d", len(args)+1)
		args = append(args, filter.Status)
	}
	query += " ORDER BY created_at DESC"
	if filter.Limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d", len(args)+1)
		args = append(args, filter.Limit)
	}
	if filter.Offset > 0 {
		query += fmt.Sprintf(" OFFSET $%d", len(args)+1)
		args = append(args, filter.Offset)
	}
	var cases []models.DisciplinaryCase
	if err := r.db.SelectContext(ctx, &cases, query, args...); err != nil {
		return nil, fmt.Errorf("list cases: %w", err)
	}
	return cases, nil
}

// AdvanceStatus moves a case one rung up the ladder. The equality guard
// on the current status serializes concurrent advances; zero affected
// rows means the case was not in the expected state.
func (r *DisciplineRepository) AdvanceStatus(ctx context.Context, id string, from, to models.CaseStatus) error {
	const query = `UPDATE disciplinary_cases SET status = $1, updated_at = $2
        WHERE id = $3 AND status = $4 AND deleted = false`
	result, err := r.db.ExecContext(ctx, query, to, time.Now().UTC(), id, from)
	if err != nil {
		return fmt.Errorf("advance case: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("advance case result: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// SoftDelete marks a case deleted from any state.
func (r *DisciplineRepository) SoftDelete(ctx context.Context, id string) error {
	now := time.Now().UTC()
	const query = `UPDATE disciplinary_cases SET deleted = true, deleted_at = $1, updated_at = $1 WHERE id = $2 AND deleted = false`
	result, err := r.db.ExecContext(ctx, query, now, id)
	if err != nil {
		return fmt.Errorf("delete case: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete case result: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}
