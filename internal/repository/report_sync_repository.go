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

// ReportSyncRepository stores reconciliation marks for distributed
// reports.
type ReportSyncRepository struct {
	db *sqlx.DB
}

// NewReportSyncRepository constructs the repository.
func NewReportSyncRepository(db *sqlx.DB) *ReportSyncRepository {
	return &ReportSyncRepository{db: db}
}

// GetMark returns the last reconciliation point for a scope, or nil.
func (r *ReportSyncRepository) GetMark(ctx context.Context, termID, classID string) (*models.SyncMark, error) {
	const query = `SELECT id, term_id, class_id, last_synced_at FROM report_sync_marks WHERE term_id = $1 AND class_id = $2`
	var mark models.SyncMark
	err := r.db.GetContext(ctx, &mark, query, termID, classID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("get sync mark: %w", err)
	}
	return &mark, nil
}

// UpsertMark advances the reconciliation point for a scope.
func (r *ReportSyncRepository) UpsertMark(ctx context.Context, termID, classID string, syncedAt time.Time) error {
	mark := models.SyncMark{ID: uuid.NewString(), TermID: termID, ClassID: classID, LastSyncedAt: syncedAt.UTC()}
	const query = `INSERT INTO report_sync_marks (id, term_id, class_id, last_synced_at)
        VALUES (:id, :term_id, :class_id, :last_synced_at)
        ON CONFLICT (term_id, class_id)
        DO UPDATE SET last_synced_at = EXCLUDED.last_synced_at`
	if _, err := r.db.NamedExecContext(ctx, query, mark); err != nil {
		return fmt.Errorf("upsert sync mark: %w", err)
	}
	return nil
}

// EarliestSubmittedAt returns the oldest submitted_at across a class's
// submission records for a term, or nil when nothing was distributed.
func (r *ReportSyncRepository) EarliestSubmittedAt(ctx context.Context, termID, classID string) (*time.Time, error) {
	const query = `SELECT MIN(sr.submitted_at) FROM submission_records sr
        JOIN enrollments e ON e.student_id = sr.student_id AND e.term_id = sr.term_id
        WHERE sr.term_id = $1 AND e.class_id = $2 AND sr.status = $3`
	var earliest sql.NullTime
	if err := r.db.GetContext(ctx, &earliest, query, termID, classID, models.SubmissionStatusSubmitted); err != nil {
		return nil, fmt.Errorf("earliest submitted_at: %w", err)
	}
	if !earliest.Valid {
		return nil, nil
	}
	t := earliest.Time
	return &t, nil
}
