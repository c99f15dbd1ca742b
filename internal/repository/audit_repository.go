package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/vina-edu/academic-api/internal/models"
)

// AuditRepository manages the append-only grade change ledger.
type AuditRepository struct {
	db *sqlx.DB
}

// NewAuditRepository constructs the repository.
func NewAuditRepository(db *sqlx.DB) *AuditRepository {
	return &AuditRepository{db: db}
}

const auditColumns = `a.id, a.grade_id, a.old_value, a.new_value, a.changed_by, a.changed_at, a.change_reason, a.component_type, a.student_name, a.subject_name, a.status, a.processed_by, a.processed_at`

// History returns audit entries for a student, newest first.
func (r *AuditRepository) History(ctx context.Context, filter models.AuditFilter) ([]models.GradeAuditEntry, error) {
	query := fmt.Sprintf(`SELECT %s FROM grade_audit_entries a
        JOIN grade_components g ON g.id = a.grade_id
        WHERE g.student_id = $1`, auditColumns)
	args := []interface{}{filter.StudentID}
	if filter.TermID != "" {
		query += fmt.Sprintf(" AND g.term_id = $%d", len(args)+1)
		args = append(args, filter.TermID)
	}
	if filter.Status != "" {
		query += fmt.Sprintf(" AND a.status = $%d", len(args)+1)
		args = append(args, filter.Status)
	}
	query += " ORDER BY a.changed_at DESC"
	if filter.Limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d", len(args)+1)
		args = append(args, filter.Limit)
	}
	if filter.Offset > 0 {
		query += fmt.Sprintf(" OFFSET $%d", len(args)+1)
		args = append(args, filter.Offset)
	}
	var entries []models.GradeAuditEntry
	if err := r.db.SelectContext(ctx, &entries, query, args...); err != nil {
		return nil, fmt.Errorf("audit history: %w", err)
	}
	return entries, nil
}

// ListPending returns entries awaiting admin review, oldest first.
func (r *AuditRepository) ListPending(ctx context.Context, limit int) ([]models.GradeAuditEntry, error) {
	query := fmt.Sprintf(`SELECT %s FROM grade_audit_entries a
        WHERE a.status = $1 ORDER BY a.changed_at ASC`, auditColumns)
	args := []interface{}{models.AuditStatusPending}
	if limit > 0 {
		query += " LIMIT $2"
		args = append(args, limit)
	}
	var entries []models.GradeAuditEntry
	if err := r.db.SelectContext(ctx, &entries, query, args...); err != nil {
		return nil, fmt.Errorf("list pending audits: %w", err)
	}
	return entries, nil
}

// GetByID loads one audit entry.
func (r *AuditRepository) GetByID(ctx context.Context, id string) (*models.GradeAuditEntry, error) {
	query := fmt.Sprintf(`SELECT %s FROM grade_audit_entries a WHERE a.id = $1`, auditColumns)
	var entry models.GradeAuditEntry
	if err := r.db.GetContext(ctx, &entry, query, id); err != nil {
		return nil, fmt.Errorf("get audit entry: %w", err)
	}
	return &entry, nil
}

// LatestForGrade returns the most recent entry for one grade cell, or
// nil when the cell has never been audited.
func (r *AuditRepository) LatestForGrade(ctx context.Context, gradeID string) (*models.GradeAuditEntry, error) {
	query := fmt.Sprintf(`SELECT %s FROM grade_audit_entries a
        WHERE a.grade_id = $1 ORDER BY a.changed_at DESC LIMIT 1`, auditColumns)
	var entry models.GradeAuditEntry
	err := r.db.GetContext(ctx, &entry, query, gradeID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("latest for grade: %w", err)
	}
	return &entry, nil
}

// Review settles a pending entry. Rejection restores the grade cell to
// the entry's old value inside the same transaction so the ledger and
// the store keep agreeing.
func (r *AuditRepository) Review(ctx context.Context, id string, status models.AuditStatus, processedBy string) (*models.GradeAuditEntry, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	var entry models.GradeAuditEntry
	query := fmt.Sprintf(`SELECT %s FROM grade_audit_entries a WHERE a.id = $1 FOR UPDATE`, auditColumns)
	if err := tx.GetContext(ctx, &entry, query, id); err != nil {
		tx.Rollback() //nolint:errcheck
		return nil, fmt.Errorf("load audit entry: %w", err)
	}
	if entry.Status != models.AuditStatusPending {
		tx.Rollback() //nolint:errcheck
		return nil, sql.ErrNoRows
	}
	now := time.Now().UTC()
	if _, err := tx.ExecContext(ctx,
		`UPDATE grade_audit_entries SET status = $1, processed_by = $2, processed_at = $3 WHERE id = $4`,
		status, processedBy, now, id); err != nil {
		tx.Rollback() //nolint:errcheck
		return nil, fmt.Errorf("update audit status: %w", err)
	}
	if status == models.AuditStatusRejected {
		if _, err := tx.ExecContext(ctx,
			`UPDATE grade_components SET value = $1, updated_at = $2 WHERE id = $3`,
			entry.OldValue, now, entry.GradeID); err != nil {
			tx.Rollback() //nolint:errcheck
			return nil, fmt.Errorf("restore grade value: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit review: %w", err)
	}
	entry.Status = status
	entry.ProcessedBy = &processedBy
	entry.ProcessedAt = &now
	return &entry, nil
}

// LatestPerGrade returns the most recent entry per grade cell in a
// class/term scope, used for store-vs-ledger consistency verification.
func (r *AuditRepository) LatestPerGrade(ctx context.Context, classID, termID string) (map[string]models.GradeAuditEntry, error) {
	query := fmt.Sprintf(`SELECT %s FROM grade_audit_entries a
        JOIN grade_components g ON g.id = a.grade_id
        WHERE g.class_id = $1 AND g.term_id = $2
        ORDER BY a.changed_at ASC`, auditColumns)
	rows, err := r.db.QueryxContext(ctx, query, classID, termID)
	if err != nil {
		return nil, fmt.Errorf("latest per grade: %w", err)
	}
	defer rows.Close()
	result := make(map[string]models.GradeAuditEntry)
	for rows.Next() {
		var entry models.GradeAuditEntry
		if err := rows.StructScan(&entry); err != nil {
			return nil, fmt.Errorf("scan audit entry: %w", err)
		}
		// Ascending order means the last scan wins per grade id.
		result[entry.GradeID] = entry
	}
	return result, rows.Err()
}
