package models

import "time"

// SubmissionStatus tracks one hop of grade distribution.
type SubmissionStatus string

const (
	SubmissionStatusDraft     SubmissionStatus = "DRAFT"
	SubmissionStatusSubmitted SubmissionStatus = "SUBMITTED"
)

// SubmissionRecord is one admin-to-homeroom distribution row keyed by
// (term, student). Resending increments SubmissionCount and requires a
// reason from the second send onward.
type SubmissionRecord struct {
	ID                string           `db:"id" json:"id"`
	TermID            string           `db:"term_id" json:"term_id"`
	StudentID         string           `db:"student_id" json:"student_id"`
	HomeroomTeacherID string           `db:"homeroom_teacher_id" json:"homeroom_teacher_id"`
	SubmissionCount   int              `db:"submission_count" json:"submission_count"`
	Status            SubmissionStatus `db:"status" json:"status"`
	SubmissionReason  *string          `db:"submission_reason" json:"submission_reason,omitempty"`
	SubmittedAt       *time.Time       `db:"submitted_at" json:"submitted_at,omitempty"`
	CreatedAt         time.Time        `db:"created_at" json:"created_at"`
	UpdatedAt         time.Time        `db:"updated_at" json:"updated_at"`
}

// StudentSubmissionError describes why one student's hop failed without
// aborting siblings in the batch.
type StudentSubmissionError struct {
	StudentID       string   `json:"student_id"`
	StudentName     string   `json:"student_name,omitempty"`
	Reason          string   `json:"reason"`
	MissingSubjects []string `json:"missing_subjects,omitempty"`
}

// ClassSubmissionResult summarises a partial-success class fan-out.
type ClassSubmissionResult struct {
	TermID       string                   `json:"term_id"`
	ClassID      string                   `json:"class_id"`
	SuccessCount int                      `json:"success_count"`
	ErrorCount   int                      `json:"error_count"`
	Errors       []StudentSubmissionError `json:"errors,omitempty"`
}

// ParentBroadcast records that a class's report cards were sent to
// parents for a term. It is a one-shot watermark, not a counted
// resubmission record.
type ParentBroadcast struct {
	ID      string    `db:"id" json:"id"`
	TermID  string    `db:"term_id" json:"term_id"`
	ClassID string    `db:"class_id" json:"class_id"`
	SentBy  string    `db:"sent_by" json:"sent_by"`
	SentAt  time.Time `db:"sent_at" json:"sent_at"`
}

// BroadcastResult summarises a parent fan-out.
type BroadcastResult struct {
	TermID         string                   `json:"term_id"`
	ClassID        string                   `json:"class_id"`
	StudentCount   int                      `json:"student_count"`
	RecipientCount int                      `json:"recipient_count"`
	Errors         []StudentSubmissionError `json:"errors,omitempty"`
}
