package models

import "time"

// CaseStatus is the forward-only disciplinary case ladder.
type CaseStatus string

const (
	CaseStatusDraft            CaseStatus = "DRAFT"
	CaseStatusSentToHomeroom   CaseStatus = "SENT_TO_HOMEROOM"
	CaseStatusAcknowledged     CaseStatus = "ACKNOWLEDGED"
	CaseStatusMeetingScheduled CaseStatus = "MEETING_SCHEDULED"
	CaseStatusResolved         CaseStatus = "RESOLVED"
)

// caseLadder orders the statuses; transitions advance one rung at a time.
var caseLadder = []CaseStatus{
	CaseStatusDraft,
	CaseStatusSentToHomeroom,
	CaseStatusAcknowledged,
	CaseStatusMeetingScheduled,
	CaseStatusResolved,
}

// Next returns the immediate successor status, or empty when the case
// is already resolved or the status is unknown.
func (s CaseStatus) Next() CaseStatus {
	for i, status := range caseLadder {
		if status == s && i+1 < len(caseLadder) {
			return caseLadder[i+1]
		}
	}
	return ""
}

// Valid reports whether the status is part of the ladder.
func (s CaseStatus) Valid() bool {
	for _, status := range caseLadder {
		if status == s {
			return true
		}
	}
	return false
}

// DisciplinaryCase tracks one behavioural incident through review.
type DisciplinaryCase struct {
	ID          string     `db:"id" json:"id"`
	StudentID   string     `db:"student_id" json:"student_id"`
	ClassID     string     `db:"class_id" json:"class_id"`
	TermID      string     `db:"term_id" json:"term_id"`
	Title       string     `db:"title" json:"title"`
	Description string     `db:"description" json:"description"`
	Status      CaseStatus `db:"status" json:"status"`
	CreatedBy   string     `db:"created_by" json:"created_by"`
	Deleted     bool       `db:"deleted" json:"deleted"`
	DeletedAt   *time.Time `db:"deleted_at" json:"deleted_at,omitempty"`
	CreatedAt   time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time  `db:"updated_at" json:"updated_at"`
}

// CaseFilter constrains case listings.
type CaseFilter struct {
	StudentID string
	ClassID   string
	TermID    string
	Status    CaseStatus
	Limit     int
	Offset    int
}
