// Package events handles event emission for profile lifecycle changes
package events

import (
	"context"
	"encoding/json"

	"github.com/Gobusters/ectologger"

	"github.com/careerark/arc/internal/tracing"
	"github.com/careerark/arc/pkg/kafka"
	"github.com/careerark/arc/pkg/models"
)

// SchemaVersion is the current event schema version
const SchemaVersion = "1.0"

// Publisher is the producer surface the emitter writes through.
type Publisher interface {
	PublishProfileEvent(ctx context.Context, event *kafka.ProfileEvent) error
}

// Emitter publishes profile events to the output topic. It satisfies the
// consolidation engine's Reporter, so every committed run produces an event
// downstream services (search indexing, notifications) can react to.
type Emitter struct {
	producer Publisher
	logger   ectologger.Logger
}

// NewEmitter creates a new event emitter
func NewEmitter(producer Publisher, logger ectologger.Logger) *Emitter {
	return &Emitter{
		producer: producer,
		logger:   logger,
	}
}

// ConsolidationCompleted emits a profile.consolidated event. Emission is best
// effort: the run has already committed, so a publish failure is logged and
// swallowed rather than failing the request.
func (e *Emitter) ConsolidationCompleted(ctx context.Context, report *models.ConsolidationReport) {
	ctx, span := tracing.StartSpan(ctx, "events.Emitter.ConsolidationCompleted")
	defer span.End()

	added, merged, flagged, skipped := report.Counts()
	payload := ProfileConsolidatedEvent{
		BaseEvent: NewBaseEvent(EventTypeProfileConsolidated, report.ProfileID),
		UploadID:  report.UploadID,
		TaskID:    report.TaskID,
		Added:     added,
		Merged:    merged,
		Flagged:   flagged,
		Skipped:   skipped,
		Conflicts: report.Conflicts,
	}
	data, _ := json.Marshal(payload)

	event := &kafka.ProfileEvent{
		EventType: string(EventTypeProfileConsolidated),
		ProfileID: report.ProfileID,
		UploadID:  report.UploadID,
		TaskID:    report.TaskID,
		Data:      data,
	}

	if err := e.producer.PublishProfileEvent(ctx, event); err != nil {
		e.logger.WithContext(ctx).WithError(err).Error("Failed to emit profile.consolidated event")
	}

	for _, flag := range report.Flagged {
		payload := ReviewFlaggedEvent{
			BaseEvent:   NewBaseEvent(EventTypeReviewFlagged, report.ProfileID),
			ReviewID:    flag.ReviewID,
			Section:     flag.Candidate.Section,
			BestMatchID: flag.BestMatchID,
			Score:       flag.Score,
		}
		data, _ := json.Marshal(payload)

		event := &kafka.ProfileEvent{
			EventType: string(EventTypeReviewFlagged),
			ProfileID: report.ProfileID,
			UploadID:  report.UploadID,
			TaskID:    report.TaskID,
			Data:      data,
		}
		if err := e.producer.PublishProfileEvent(ctx, event); err != nil {
			e.logger.WithContext(ctx).WithError(err).WithField("review_id", flag.ReviewID).
				Error("Failed to emit review.flagged event")
		}
	}
}

// EmitEntryReordered emits an event after an entry moves to a new position.
func (e *Emitter) EmitEntryReordered(ctx context.Context, profileID string, section models.SectionType, entryID string, orderIndex int) error {
	ctx, span := tracing.StartSpan(ctx, "events.Emitter.EmitEntryReordered")
	defer span.End()

	payload := EntryReorderedEvent{
		BaseEvent:  NewBaseEvent(EventTypeEntryReordered, profileID),
		EntryID:    entryID,
		Section:    section,
		OrderIndex: orderIndex,
	}
	data, _ := json.Marshal(payload)

	event := &kafka.ProfileEvent{
		EventType: string(EventTypeEntryReordered),
		ProfileID: profileID,
		Data:      data,
	}

	if err := e.producer.PublishProfileEvent(ctx, event); err != nil {
		e.logger.WithContext(ctx).WithError(err).Error("Failed to emit entry reordered event")
		return err
	}
	return nil
}

// EmitEntryDeleted emits an event after an entry is removed from a profile.
func (e *Emitter) EmitEntryDeleted(ctx context.Context, profileID string, section models.SectionType, entryID string) error {
	ctx, span := tracing.StartSpan(ctx, "events.Emitter.EmitEntryDeleted")
	defer span.End()

	payload := EntryDeletedEvent{
		BaseEvent: NewBaseEvent(EventTypeEntryDeleted, profileID),
		EntryID:   entryID,
		Section:   section,
	}
	data, _ := json.Marshal(payload)

	event := &kafka.ProfileEvent{
		EventType: string(EventTypeEntryDeleted),
		ProfileID: profileID,
		Data:      data,
	}

	if err := e.producer.PublishProfileEvent(ctx, event); err != nil {
		e.logger.WithContext(ctx).WithError(err).Error("Failed to emit entry deleted event")
		return err
	}
	return nil
}

// EmitReviewResolved emits an event after a parked ambiguous match is decided.
func (e *Emitter) EmitReviewResolved(ctx context.Context, profileID string, section models.SectionType, reviewID, decision string) error {
	ctx, span := tracing.StartSpan(ctx, "events.Emitter.EmitReviewResolved")
	defer span.End()

	payload := ReviewResolvedEvent{
		BaseEvent: NewBaseEvent(EventTypeReviewResolved, profileID),
		ReviewID:  reviewID,
		Section:   section,
		Decision:  decision,
	}
	data, _ := json.Marshal(payload)

	event := &kafka.ProfileEvent{
		EventType: string(EventTypeReviewResolved),
		ProfileID: profileID,
		Data:      data,
	}

	if err := e.producer.PublishProfileEvent(ctx, event); err != nil {
		e.logger.WithContext(ctx).WithError(err).Error("Failed to emit review resolved event")
		return err
	}
	return nil
}
