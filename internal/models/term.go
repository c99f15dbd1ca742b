package models

import "time"

// TermType declares what a term aggregates.
type TermType string

const (
	TermTypeSemester1 TermType = "SEMESTER_1"
	TermTypeSemester2 TermType = "SEMESTER_2"
	TermTypeYearly    TermType = "YEARLY"
)

// SummaryComponent maps a term type to the component slot that stores
// its entered or derived summary grade.
func (t TermType) SummaryComponent() ComponentType {
	switch t {
	case TermTypeSemester1:
		return ComponentSemester1
	case TermTypeSemester2:
		return ComponentSemester2
	case TermTypeYearly:
		return ComponentYearly
	}
	return ""
}

// IsAggregate reports whether the term summarises other terms of the
// same academic year rather than carrying its own raw components.
func (t TermType) IsAggregate() bool {
	return t == TermTypeYearly
}

// Term models one grading period in the institution calendar.
type Term struct {
	ID           string    `db:"id" json:"id"`
	Name         string    `db:"name" json:"name"`
	Type         TermType  `db:"type" json:"type"`
	AcademicYear string    `db:"academic_year" json:"academic_year"`
	StartDate    time.Time `db:"start_date" json:"start_date"`
	EndDate      time.Time `db:"end_date" json:"end_date"`
	IsActive     bool      `db:"is_active" json:"is_active"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time `db:"updated_at" json:"updated_at"`
}
