package repository

import (
	"context"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vina-edu/academic-api/internal/models"
)

func TestSubmitResendIncrementsCounter(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewSubmissionRepository(db)

	created := time.Now().Add(-24 * time.Hour)
	mock.ExpectQuery("INSERT INTO submission_records").
		WillReturnRows(sqlmock.NewRows([]string{"id", "submission_count", "created_at"}).
			AddRow("rec-1", 2, created))

	reason := "corrected math grades"
	record := &models.SubmissionRecord{
		TermID: "sem1", StudentID: "st-1", HomeroomTeacherID: "tch-1",
		Status: models.SubmissionStatusSubmitted, SubmissionReason: &reason,
	}
	require.NoError(t, repo.Submit(context.Background(), record))

	// The conflicting row kept its identity and counted the resend.
	assert.Equal(t, "rec-1", record.ID)
	assert.Equal(t, 2, record.SubmissionCount)
	assert.True(t, record.CreatedAt.Equal(created))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGetSubmissionNilWhenAbsent(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewSubmissionRepository(db)

	mock.ExpectQuery("SELECT .+ FROM submission_records").
		WithArgs("sem1", "st-1").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	record, err := repo.Get(context.Background(), "sem1", "st-1")
	require.NoError(t, err)
	assert.Nil(t, record)
}

func TestUpsertBroadcastRefreshesWatermark(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewSubmissionRepository(db)

	mock.ExpectExec("INSERT INTO parent_broadcasts").
		WillReturnResult(sqlmock.NewResult(1, 1))

	broadcast := &models.ParentBroadcast{TermID: "sem1", ClassID: "cls-1", SentBy: "adm-1"}
	require.NoError(t, repo.UpsertBroadcast(context.Background(), broadcast))
	assert.NotEmpty(t, broadcast.ID)
	assert.False(t, broadcast.SentAt.IsZero())
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestEarliestSubmittedAtNilWhenNothingDistributed(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewReportSyncRepository(db)

	mock.ExpectQuery("SELECT MIN\\(sr.submitted_at\\)").
		WithArgs("sem1", "cls-1", models.SubmissionStatusSubmitted).
		WillReturnRows(sqlmock.NewRows([]string{"min"}).AddRow(nil))

	earliest, err := repo.EarliestSubmittedAt(context.Background(), "sem1", "cls-1")
	require.NoError(t, err)
	assert.Nil(t, earliest)
}
