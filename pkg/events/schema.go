package events

import (
	"time"

	"github.com/google/uuid"

	"github.com/careerark/arc/pkg/models"
)

// EventType defines the type of event
type EventType string

const (
	// Profile events
	EventTypeProfileConsolidated EventType = "profile.consolidated"
	EventTypeEntryDeleted        EventType = "profile.entry.deleted"
	EventTypeEntryReordered      EventType = "profile.entry.reordered"

	// Review events
	EventTypeReviewFlagged  EventType = "review.flagged"
	EventTypeReviewResolved EventType = "review.resolved"
)

// BaseEvent contains common fields for all events
type BaseEvent struct {
	EventType     EventType `json:"event_type"`
	SchemaVersion string    `json:"schema_version"`
	ProfileID     string    `json:"profile_id"`
	Timestamp     time.Time `json:"timestamp"`
	CorrelationID string    `json:"correlation_id,omitempty"`
}

// ProfileConsolidatedEvent is emitted after a consolidation run commits
type ProfileConsolidatedEvent struct {
	BaseEvent
	UploadID  string                 `json:"upload_id"`
	TaskID    string                 `json:"task_id"`
	Added     int                    `json:"added"`
	Merged    int                    `json:"merged"`
	Flagged   int                    `json:"flagged"`
	Skipped   int                    `json:"skipped"`
	Conflicts []models.FieldConflict `json:"conflicts,omitempty"`
}

// EntryDeletedEvent is emitted when an entry is removed from a profile
type EntryDeletedEvent struct {
	BaseEvent
	EntryID string             `json:"entry_id"`
	Section models.SectionType `json:"section"`
}

// EntryReorderedEvent is emitted when an entry is moved within its section
type EntryReorderedEvent struct {
	BaseEvent
	EntryID    string             `json:"entry_id"`
	Section    models.SectionType `json:"section"`
	OrderIndex int                `json:"order_index"`
}

// ReviewFlaggedEvent is emitted for each ambiguous match a consolidation run
// parks for review
type ReviewFlaggedEvent struct {
	BaseEvent
	ReviewID    string             `json:"review_id"`
	Section     models.SectionType `json:"section"`
	BestMatchID string             `json:"best_match_id"`
	Score       float64            `json:"score"`
}

// ReviewResolvedEvent is emitted when a parked ambiguous match is decided
type ReviewResolvedEvent struct {
	BaseEvent
	ReviewID string             `json:"review_id"`
	Section  models.SectionType `json:"section"`
	Decision string             `json:"decision"` // confirmed, rejected
}

// NewBaseEvent creates a base event with common fields
func NewBaseEvent(eventType EventType, profileID string) BaseEvent {
	return BaseEvent{
		EventType:     eventType,
		SchemaVersion: SchemaVersion,
		ProfileID:     profileID,
		Timestamp:     time.Now().UTC(),
		CorrelationID: uuid.New().String(),
	}
}
