package models

// EntryRef identifies one entry touched by a consolidation run.
type EntryRef struct {
	EntryID string      `json:"entry_id"`
	Section SectionType `json:"section"`
}

// FlaggedMatch records a candidate that fell in the ambiguous score band and
// was queued for manual review instead of being merged.
type FlaggedMatch struct {
	Candidate   Candidate `json:"candidate"`
	BestMatchID string    `json:"best_match_id"`
	Score       float64   `json:"score"`
	ReviewID    string    `json:"review_id"`
}

// SkippedRecord records a candidate dropped by validation, with the reason.
type SkippedRecord struct {
	Candidate Candidate `json:"candidate"`
	Reason    string    `json:"reason"`
}

// FieldConflict records a scalar field where the existing and incoming values
// disagreed and the merger had to pick one.
type FieldConflict struct {
	Section    SectionType `json:"section"`
	EntryID    string      `json:"entry_id"`
	Field      string      `json:"field"`
	Existing   string      `json:"existing"`
	Incoming   string      `json:"incoming"`
	Resolution string      `json:"resolution"`
}

// ConsolidationReport summarizes what one consolidation run did.
type ConsolidationReport struct {
	ProfileID string          `json:"profile_id"`
	UploadID  string          `json:"upload_id"`
	TaskID    string          `json:"task_id,omitempty"`
	Added     []EntryRef      `json:"added"`
	Merged    []EntryRef      `json:"merged"`
	Flagged   []FlaggedMatch  `json:"flagged"`
	Skipped   []SkippedRecord `json:"skipped"`
	Conflicts []FieldConflict `json:"conflicts"`
}

// Counts returns the headline numbers for logging and task bookkeeping.
func (r *ConsolidationReport) Counts() (added, merged, flagged, skipped int) {
	return len(r.Added), len(r.Merged), len(r.Flagged), len(r.Skipped)
}
