package models

import "time"

// AuditStatus captures the review state of one grade change.
type AuditStatus string

const (
	AuditStatusPending  AuditStatus = "PENDING"
	AuditStatusApproved AuditStatus = "APPROVED"
	AuditStatusRejected AuditStatus = "REJECTED"
)

// GradeAuditEntry is one immutable record of a grade value transition.
// Only the status and processed fields change after creation, and only
// through admin review.
type GradeAuditEntry struct {
	ID            string        `db:"id" json:"id"`
	GradeID       string        `db:"grade_id" json:"grade_id"`
	OldValue      *float64      `db:"old_value" json:"old_value,omitempty"`
	NewValue      float64       `db:"new_value" json:"new_value"`
	ChangedBy     string        `db:"changed_by" json:"changed_by"`
	ChangedAt     time.Time     `db:"changed_at" json:"changed_at"`
	ChangeReason  string        `db:"change_reason" json:"change_reason"`
	ComponentType ComponentType `db:"component_type" json:"component_type"`
	StudentName   string        `db:"student_name" json:"student_name"`
	SubjectName   string        `db:"subject_name" json:"subject_name"`
	Status        AuditStatus   `db:"status" json:"status"`
	ProcessedBy   *string       `db:"processed_by" json:"processed_by,omitempty"`
	ProcessedAt   *time.Time    `db:"processed_at" json:"processed_at,omitempty"`
}

// AuditFilter constrains audit history queries.
type AuditFilter struct {
	StudentID string
	TermID    string
	Status    AuditStatus
	Limit     int
	Offset    int
}

// ConsistencyIssue flags a grade cell whose value disagrees with its
// latest audit entry.
type ConsistencyIssue struct {
	GradeID       string        `json:"grade_id"`
	ComponentType ComponentType `json:"component_type"`
	StoredValue   *float64      `json:"stored_value,omitempty"`
	AuditValue    *float64      `json:"audit_value,omitempty"`
	Detail        string        `json:"detail"`
}
