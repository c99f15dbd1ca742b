package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/vina-edu/academic-api/internal/models"
)

// RosterRepository reads class membership, guardians, and calendar data
// the workflow engine needs to resolve recipients.
type RosterRepository struct {
	db *sqlx.DB
}

// NewRosterRepository constructs the repository.
func NewRosterRepository(db *sqlx.DB) *RosterRepository {
	return &RosterRepository{db: db}
}

// ListClassStudents returns the students enrolled in a class for a
// term, one row per student, with the homeroom teacher resolved from
// the student's class assignment in the term's academic year. A
// mid-year class change resolves to the most recent assignment;
// enrollments from other academic years never contribute. Students
// without a current-year assignment carry a nil homeroom teacher.
func (r *RosterRepository) ListClassStudents(ctx context.Context, classID, termID string) ([]models.ClassStudent, error) {
	const query = `SELECT st.id AS student_id, st.full_name AS student_name, hr.homeroom_teacher_id
        FROM enrollments e
        JOIN students st ON st.id = e.student_id
        JOIN terms t ON t.id = e.term_id
        LEFT JOIN LATERAL (
            SELECT cy.homeroom_teacher_id
            FROM enrollments ey
            JOIN terms ty ON ty.id = ey.term_id AND ty.academic_year = t.academic_year
            JOIN classes cy ON cy.id = ey.class_id AND cy.academic_year = t.academic_year
            WHERE ey.student_id = st.id
            ORDER BY ty.start_date DESC
            LIMIT 1
        ) hr ON TRUE
        WHERE e.class_id = $1 AND e.term_id = $2
        ORDER BY st.full_name`
	var students []models.ClassStudent
	if err := r.db.SelectContext(ctx, &students, query, classID, termID); err != nil {
		return nil, fmt.Errorf("list class students: %w", err)
	}
	return students, nil
}

// ListClassSubjects returns every subject taught in a class for a term.
func (r *RosterRepository) ListClassSubjects(ctx context.Context, classID, termID string) ([]models.Subject, error) {
	const query = `SELECT s.id, s.code, s.name, s.created_at, s.updated_at
        FROM class_subjects cs
        JOIN subjects s ON s.id = cs.subject_id
        WHERE cs.class_id = $1 AND cs.term_id = $2
        ORDER BY s.code`
	var subjects []models.Subject
	if err := r.db.SelectContext(ctx, &subjects, query, classID, termID); err != nil {
		return nil, fmt.Errorf("list class subjects: %w", err)
	}
	return subjects, nil
}

// ListGuardians returns guardians keyed by student id.
func (r *RosterRepository) ListGuardians(ctx context.Context, studentIDs []string) (map[string][]models.Guardian, error) {
	result := make(map[string][]models.Guardian, len(studentIDs))
	if len(studentIDs) == 0 {
		return result, nil
	}
	placeholders := make([]string, len(studentIDs))
	args := make([]interface{}, len(studentIDs))
	for i, id := range studentIDs {
		placeholders[i] = fmt.Sprintf("$%d", i+1)
		args[i] = id
	}
	query := fmt.Sprintf(`SELECT id, student_id, full_name, email, created_at
        FROM guardians WHERE student_id IN (%s) ORDER BY full_name`, strings.Join(placeholders, ","))
	rows, err := r.db.QueryxContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list guardians: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var guardian models.Guardian
		if err := rows.StructScan(&guardian); err != nil {
			return nil, fmt.Errorf("scan guardian: %w", err)
		}
		result[guardian.StudentID] = append(result[guardian.StudentID], guardian)
	}
	return result, rows.Err()
}

// GetTeacher loads one teacher contact, or nil when unknown.
func (r *RosterRepository) GetTeacher(ctx context.Context, id string) (*models.TeacherContact, error) {
	const query = `SELECT id, full_name, email FROM teachers WHERE id = $1`
	var teacher models.TeacherContact
	err := r.db.GetContext(ctx, &teacher, query, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("get teacher: %w", err)
	}
	return &teacher, nil
}

// GetTerm loads one term.
func (r *RosterRepository) GetTerm(ctx context.Context, id string) (*models.Term, error) {
	const query = `SELECT id, name, type, academic_year, start_date, end_date, is_active, created_at, updated_at
        FROM terms WHERE id = $1`
	var term models.Term
	if err := r.db.GetContext(ctx, &term, query, id); err != nil {
		return nil, fmt.Errorf("get term: %w", err)
	}
	return &term, nil
}

// ListTermsForYear returns every term of an academic year, used when an
// aggregate term gathers components across its semesters.
func (r *RosterRepository) ListTermsForYear(ctx context.Context, academicYear string) ([]models.Term, error) {
	const query = `SELECT id, name, type, academic_year, start_date, end_date, is_active, created_at, updated_at
        FROM terms WHERE academic_year = $1 ORDER BY start_date`
	var terms []models.Term
	if err := r.db.SelectContext(ctx, &terms, query, academicYear); err != nil {
		return nil, fmt.Errorf("list terms for year: %w", err)
	}
	return terms, nil
}

// GetStudent loads one student.
func (r *RosterRepository) GetStudent(ctx context.Context, id string) (*models.Student, error) {
	const query = `SELECT id, code, full_name, active, created_at, updated_at FROM students WHERE id = $1`
	var student models.Student
	if err := r.db.GetContext(ctx, &student, query, id); err != nil {
		return nil, fmt.Errorf("get student: %w", err)
	}
	return &student, nil
}

// GetSubject loads one subject.
func (r *RosterRepository) GetSubject(ctx context.Context, id string) (*models.Subject, error) {
	const query = `SELECT id, code, name, created_at, updated_at FROM subjects WHERE id = $1`
	var subject models.Subject
	if err := r.db.GetContext(ctx, &subject, query, id); err != nil {
		return nil, fmt.Errorf("get subject: %w", err)
	}
	return &subject, nil
}
