package repository

import (
	"context"
	"database/sql"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vina-edu/academic-api/internal/models"
)

func auditRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"id", "grade_id", "old_value", "new_value", "changed_by", "changed_at",
		"change_reason", "component_type", "student_name", "subject_name",
		"status", "processed_by", "processed_at",
	})
}

func TestReviewRejectRestoresGradeValue(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewAuditRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT .+ FROM grade_audit_entries a WHERE a.id = \\$1 FOR UPDATE").
		WithArgs("e-1").
		WillReturnRows(auditRows().AddRow(
			"e-1", "g-1", 7.0, 9.0, "t-2", time.Now(),
			"", "MIDTERM", "Nguyen Van A", "Mathematics",
			"PENDING", nil, nil,
		))
	mock.ExpectExec("UPDATE grade_audit_entries SET status").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE grade_components SET value").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	entry, err := repo.Review(context.Background(), "e-1", models.AuditStatusRejected, "adm-1")
	require.NoError(t, err)
	assert.Equal(t, models.AuditStatusRejected, entry.Status)
	require.NotNil(t, entry.ProcessedBy)
	assert.Equal(t, "adm-1", *entry.ProcessedBy)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestReviewApproveLeavesGradeUntouched(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewAuditRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT .+ FOR UPDATE").
		WithArgs("e-1").
		WillReturnRows(auditRows().AddRow(
			"e-1", "g-1", 7.0, 9.0, "t-2", time.Now(),
			"", "MIDTERM", "Nguyen Van A", "Mathematics",
			"PENDING", nil, nil,
		))
	mock.ExpectExec("UPDATE grade_audit_entries SET status").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	entry, err := repo.Review(context.Background(), "e-1", models.AuditStatusApproved, "adm-1")
	require.NoError(t, err)
	assert.Equal(t, models.AuditStatusApproved, entry.Status)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestReviewSettledEntryFails(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewAuditRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT .+ FOR UPDATE").
		WithArgs("e-1").
		WillReturnRows(auditRows().AddRow(
			"e-1", "g-1", nil, 9.0, "t-2", time.Now(),
			"", "MIDTERM", "Nguyen Van A", "Mathematics",
			"APPROVED", "adm-0", time.Now(),
		))
	mock.ExpectRollback()

	_, err := repo.Review(context.Background(), "e-1", models.AuditStatusApproved, "adm-1")
	assert.ErrorIs(t, err, sql.ErrNoRows)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestLatestForGradeNilWhenUnaudited(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewAuditRepository(db)

	mock.ExpectQuery("SELECT .+ FROM grade_audit_entries a").
		WithArgs("g-1").
		WillReturnRows(auditRows())

	entry, err := repo.LatestForGrade(context.Background(), "g-1")
	require.NoError(t, err)
	assert.Nil(t, entry)
}

func TestLatestPerGradeLastEntryWins(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewAuditRepository(db)

	earlier := time.Now().Add(-time.Hour)
	later := time.Now()
	mock.ExpectQuery("SELECT .+ FROM grade_audit_entries a").
		WithArgs("cls-1", "sem1").
		WillReturnRows(auditRows().
			AddRow("e-1", "g-1", nil, 7.0, "t-1", earlier, "", "MIDTERM", "A", "Math", "APPROVED", nil, nil).
			AddRow("e-2", "g-1", 7.0, 9.0, "t-1", later, "", "MIDTERM", "A", "Math", "APPROVED", nil, nil))

	latest, err := repo.LatestPerGrade(context.Background(), "cls-1", "sem1")
	require.NoError(t, err)
	require.Len(t, latest, 1)
	assert.Equal(t, "e-2", latest["g-1"].ID)
}
