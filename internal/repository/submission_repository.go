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

// SubmissionRepository persists distribution records.
type SubmissionRepository struct {
	db *sqlx.DB
}

// NewSubmissionRepository constructs the repository.
func NewSubmissionRepository(db *sqlx.DB) *SubmissionRepository {
	return &SubmissionRepository{db: db}
}

const submissionColumns = `id, term_id, student_id, homeroom_teacher_id, submission_count, status, submission_reason, submitted_at, created_at, updated_at`

// Get returns the submission record for one (term, student), or nil.
func (r *SubmissionRepository) Get(ctx context.Context, termID, studentID string) (*models.SubmissionRecord, error) {
	query := fmt.Sprintf(`SELECT %s FROM submission_records WHERE term_id = $1 AND student_id = $2`, submissionColumns)
	var record models.SubmissionRecord
	err := r.db.GetContext(ctx, &record, query, termID, studentID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("get submission: %w", err)
	}
	return &record, nil
}

// Submit upserts one hop. A conflicting row keeps its identity and
// increments submission_count; the store's conflict key serializes
// concurrent sends for the same (term, student).
func (r *SubmissionRepository) Submit(ctx context.Context, record *models.SubmissionRecord) error {
	if record.ID == "" {
		record.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if record.CreatedAt.IsZero() {
		record.CreatedAt = now
	}
	record.UpdatedAt = now
	if record.SubmissionCount <= 0 {
		record.SubmissionCount = 1
	}
	if record.SubmittedAt == nil {
		record.SubmittedAt = &now
	}
	const query = `INSERT INTO submission_records (id, term_id, student_id, homeroom_teacher_id, submission_count, status, submission_reason, submitted_at, created_at, updated_at)
        VALUES (:id, :term_id, :student_id, :homeroom_teacher_id, :submission_count, :status, :submission_reason, :submitted_at, :created_at, :updated_at)
        ON CONFLICT (term_id, student_id)
        DO UPDATE SET homeroom_teacher_id = EXCLUDED.homeroom_teacher_id,
            submission_count = submission_records.submission_count + 1,
            status = EXCLUDED.status,
            submission_reason = EXCLUDED.submission_reason,
            submitted_at = EXCLUDED.submitted_at,
            updated_at = EXCLUDED.updated_at
        RETURNING id, submission_count, created_at`
	rows, err := r.db.NamedQueryContext(ctx, query, record)
	if err != nil {
		return fmt.Errorf("submit record: %w", err)
	}
	defer rows.Close()
	if rows.Next() {
		if err := rows.Scan(&record.ID, &record.SubmissionCount, &record.CreatedAt); err != nil {
			return fmt.Errorf("scan submission: %w", err)
		}
	}
	return rows.Err()
}

// ListByStudents returns submission records for a term keyed by student.
func (r *SubmissionRepository) ListByStudents(ctx context.Context, termID string, studentIDs []string) (map[string]models.SubmissionRecord, error) {
	result := make(map[string]models.SubmissionRecord, len(studentIDs))
	if len(studentIDs) == 0 {
		return result, nil
	}
	placeholders := make([]string, len(studentIDs))
	args := make([]interface{}, 0, len(studentIDs)+1)
	args = append(args, termID)
	for i, id := range studentIDs {
		placeholders[i] = fmt.Sprintf("$%d", i+2)
		args = append(args, id)
	}
	query := fmt.Sprintf(`SELECT %s FROM submission_records
        WHERE term_id = $1 AND student_id IN (%s)`, submissionColumns, strings.Join(placeholders, ","))
	rows, err := r.db.QueryxContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list submissions: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var record models.SubmissionRecord
		if err := rows.StructScan(&record); err != nil {
			return nil, fmt.Errorf("scan submission: %w", err)
		}
		result[record.StudentID] = record
	}
	return result, rows.Err()
}

// UpsertBroadcast refreshes the parent broadcast watermark for a class.
func (r *SubmissionRepository) UpsertBroadcast(ctx context.Context, broadcast *models.ParentBroadcast) error {
	if broadcast.ID == "" {
		broadcast.ID = uuid.NewString()
	}
	if broadcast.SentAt.IsZero() {
		broadcast.SentAt = time.Now().UTC()
	}
	const query = `INSERT INTO parent_broadcasts (id, term_id, class_id, sent_by, sent_at)
        VALUES (:id, :term_id, :class_id, :sent_by, :sent_at)
        ON CONFLICT (term_id, class_id)
        DO UPDATE SET sent_by = EXCLUDED.sent_by, sent_at = EXCLUDED.sent_at`
	if _, err := r.db.NamedExecContext(ctx, query, broadcast); err != nil {
		return fmt.Errorf("upsert broadcast: %w", err)
	}
	return nil
}

// GetBroadcast returns the broadcast watermark for a scope, or nil.
func (r *SubmissionRepository) GetBroadcast(ctx context.Context, termID, classID string) (*models.ParentBroadcast, error) {
	const query = `SELECT id, term_id, class_id, sent_by, sent_at FROM parent_broadcasts WHERE term_id = $1 AND class_id = $2`
	var broadcast models.ParentBroadcast
	err := r.db.GetContext(ctx, &broadcast, query, termID, classID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("get broadcast: %w", err)
	}
	return &broadcast, nil
}
