package models

import "time"

// SyncScope addresses one distributed report set.
type SyncScope struct {
	TermID  string `json:"term_id"`
	ClassID string `json:"class_id"`
}

// SyncStatus is the lazily computed staleness verdict for a scope.
type SyncStatus struct {
	Scope           SyncScope  `json:"scope"`
	NeedsResync     bool       `json:"needs_resync"`
	AffectedPeriods []string   `json:"affected_periods,omitempty"`
	LastSourceWrite *time.Time `json:"last_source_write,omitempty"`
	LastSyncTime    *time.Time `json:"last_sync_time,omitempty"`
}

// SyncMark records the last reconciliation point for a scope.
type SyncMark struct {
	ID           string    `db:"id" json:"id"`
	TermID       string    `db:"term_id" json:"term_id"`
	ClassID      string    `db:"class_id" json:"class_id"`
	LastSyncedAt time.Time `db:"last_synced_at" json:"last_synced_at"`
}
