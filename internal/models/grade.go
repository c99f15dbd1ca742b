package models

import "time"

// ComponentType identifies one graded slot inside a subject grade.
type ComponentType string

const (
	ComponentRegular1  ComponentType = "REGULAR_1"
	ComponentRegular2  ComponentType = "REGULAR_2"
	ComponentRegular3  ComponentType = "REGULAR_3"
	ComponentRegular4  ComponentType = "REGULAR_4"
	ComponentMidterm   ComponentType = "MIDTERM"
	ComponentFinal     ComponentType = "FINAL"
	ComponentSemester1 ComponentType = "SEMESTER_1"
	ComponentSemester2 ComponentType = "SEMESTER_2"
	ComponentYearly    ComponentType = "YEARLY"
)

// ComponentTypes lists every accepted slot.
var ComponentTypes = []ComponentType{
	ComponentRegular1, ComponentRegular2, ComponentRegular3, ComponentRegular4,
	ComponentMidterm, ComponentFinal,
	ComponentSemester1, ComponentSemester2, ComponentYearly,
}

// IsRegular reports whether the component counts with weight 1.
func (t ComponentType) IsRegular() bool {
	switch t {
	case ComponentRegular1, ComponentRegular2, ComponentRegular3, ComponentRegular4:
		return true
	}
	return false
}

// IsSummary reports whether the component stores an entered or derived
// per-term summary value rather than a raw score.
func (t ComponentType) IsSummary() bool {
	switch t {
	case ComponentSemester1, ComponentSemester2, ComponentYearly:
		return true
	}
	return false
}

// Valid reports whether the component type is one of the accepted slots.
func (t ComponentType) Valid() bool {
	for _, known := range ComponentTypes {
		if t == known {
			return true
		}
	}
	return false
}

// GradeComponent is one graded cell for a (term, student, subject, class)
// tuple. At most one live value exists per component type; writes replace
// the cell through the upsert key, never delete it.
type GradeComponent struct {
	ID            string        `db:"id" json:"id"`
	TermID        string        `db:"term_id" json:"term_id"`
	StudentID     string        `db:"student_id" json:"student_id"`
	SubjectID     string        `db:"subject_id" json:"subject_id"`
	ClassID       string        `db:"class_id" json:"class_id"`
	ComponentType ComponentType `db:"component_type" json:"component_type"`
	Value         *float64      `db:"value" json:"value,omitempty"`
	Locked        bool          `db:"locked" json:"locked"`
	Derived       bool          `db:"derived" json:"derived"`
	CreatedAt     time.Time     `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time     `db:"updated_at" json:"updated_at"`
}

// GradeScope addresses one subject grade cell set.
type GradeScope struct {
	TermID    string
	StudentID string
	SubjectID string
	ClassID   string
}

// SummaryGrade carries a computed or entered per-subject summary.
type SummaryGrade struct {
	Scope    GradeScope `json:"scope"`
	Value    *float64   `json:"value,omitempty"`
	Display  *float64   `json:"display,omitempty"`
	Explicit bool       `json:"explicit"`
}

// ReportCardSubject is one subject line on a student's report card.
type ReportCardSubject struct {
	SubjectID   string   `db:"subject_id" json:"subject_id"`
	SubjectCode string   `db:"subject_code" json:"subject_code"`
	SubjectName string   `db:"subject_name" json:"subject_name"`
	Summary     *float64 `json:"summary,omitempty"`
}

// ReportCard aggregates a student's summaries for a term.
type ReportCard struct {
	StudentID   string              `json:"student_id"`
	StudentName string              `json:"student_name"`
	TermID      string              `json:"term_id"`
	Subjects    []ReportCardSubject `json:"subjects"`
}
