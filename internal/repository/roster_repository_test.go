package repository

import (
	"context"
	"regexp"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestListClassStudentsResolvesHomeroomWithinYear(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewRosterRepository(db)

	// The homeroom lookup must be pinned to the term's academic year so
	// a historical enrollment elsewhere cannot add a second row.
	rows := sqlmock.NewRows([]string{"student_id", "student_name", "homeroom_teacher_id"}).
		AddRow("st-1", "An", "tch-1").
		AddRow("st-2", "Binh", nil)
	mock.ExpectQuery(regexp.QuoteMeta("ty.academic_year = t.academic_year")).
		WithArgs("cls-1", "sem1").
		WillReturnRows(rows)

	students, err := repo.ListClassStudents(context.Background(), "cls-1", "sem1")
	require.NoError(t, err)
	require.Len(t, students, 2)
	require.NotNil(t, students[0].HomeroomTeacherID)
	assert.Equal(t, "tch-1", *students[0].HomeroomTeacherID)
	assert.Nil(t, students[1].HomeroomTeacherID)
	require.NoError(t, mock.ExpectationsWereMet())
}
