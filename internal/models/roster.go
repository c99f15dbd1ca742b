package models

import "time"

// Student represents a learner registered in the institution.
type Student struct {
	ID        string    `db:"id" json:"id"`
	Code      string    `db:"code" json:"code"`
	FullName  string    `db:"full_name" json:"full_name"`
	Active    bool      `db:"active" json:"active"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// Subject represents an academic subject.
type Subject struct {
	ID        string    `db:"id" json:"id"`
	Code      string    `db:"code" json:"code"`
	Name      string    `db:"name" json:"name"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// Class represents an academic class or section. The homeroom teacher
// on the class assignment for the current academic year is the
// recipient of that class's submitted grades.
type Class struct {
	ID                string    `db:"id" json:"id"`
	Name              string    `db:"name" json:"name"`
	AcademicYear      string    `db:"academic_year" json:"academic_year"`
	HomeroomTeacherID *string   `db:"homeroom_teacher_id" json:"homeroom_teacher_id,omitempty"`
	CreatedAt         time.Time `db:"created_at" json:"created_at"`
	UpdatedAt         time.Time `db:"updated_at" json:"updated_at"`
}

// Enrollment captures a student's registration to a class within a term.
type Enrollment struct {
	ID        string    `db:"id" json:"id"`
	StudentID string    `db:"student_id" json:"student_id"`
	ClassID   string    `db:"class_id" json:"class_id"`
	TermID    string    `db:"term_id" json:"term_id"`
	JoinedAt  time.Time `db:"joined_at" json:"joined_at"`
}

// ClassStudent pairs a student with the homeroom teacher resolved from
// the student's current-year class assignment.
type ClassStudent struct {
	StudentID         string  `db:"student_id" json:"student_id"`
	StudentName       string  `db:"student_name" json:"student_name"`
	HomeroomTeacherID *string `db:"homeroom_teacher_id" json:"homeroom_teacher_id,omitempty"`
}

// Guardian is one parent or guardian linked to a student. A student may
// have several; each receives an independent notification.
type Guardian struct {
	ID        string    `db:"id" json:"id"`
	StudentID string    `db:"student_id" json:"student_id"`
	FullName  string    `db:"full_name" json:"full_name"`
	Email     string    `db:"email" json:"email"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// TeacherContact is the minimal teacher projection used by fan-out.
type TeacherContact struct {
	ID       string `db:"id" json:"id"`
	FullName string `db:"full_name" json:"full_name"`
	Email    string `db:"email" json:"email"`
}
