package models

import "time"

// Import task lifecycle.
const (
	ImportStatusProcessing = "processing"
	ImportStatusCommitted  = "committed"
	ImportStatusAborted    = "aborted"
)

// ImportTask tracks one consolidation run end to end: which upload it came
// from, a fingerprint of the batch for idempotency auditing, and the headline
// counts once the run finishes.
type ImportTask struct {
	ID          string      `json:"id" db:"id"`
	ProfileID   string      `json:"profile_id" db:"profile_id"`
	UploadID    string      `json:"upload_id" db:"upload_id"`
	Fingerprint string      `json:"fingerprint" db:"fingerprint"`
	Status      string      `json:"status" db:"status"`
	Error       *string     `json:"error,omitempty" db:"error"`
	Added       int         `json:"added" db:"added"`
	Merged      int         `json:"merged" db:"merged"`
	Flagged     int         `json:"flagged" db:"flagged"`
	Skipped     int         `json:"skipped" db:"skipped"`
	CreatedAt   time.Time   `json:"created_at" db:"created_at"`
	FinishedAt  *time.Time  `json:"finished_at,omitempty" db:"finished_at"`
}
