package consolidation

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/careerark/arc/pkg/matching"
	"github.com/careerark/arc/pkg/models"
)

// rejectCandidate returns a skip reason for candidates that fail validation,
// or "" for a valid candidate. Rejects are per-candidate: one bad record must
// not sink the batch.
func (e *Engine) rejectCandidate(candidate models.Candidate) string {
	if !candidate.Section.IsValid() {
		return fmt.Sprintf("unknown section %q", candidate.Section)
	}
	if err := e.validate.Struct(candidate.Fields); err != nil {
		return fmt.Sprintf("missing required fields: %v", err)
	}

	start, end := candidateDates(candidate.Fields)
	if end != nil && start.Valid && end.Valid && end.Before(start) {
		return "end date before start date"
	}
	return ""
}

func candidateDates(fields models.SectionFields) (models.Date, *models.Date) {
	switch f := fields.(type) {
	case models.WorkExperienceFields:
		return f.StartDate, f.EndDate
	case models.EducationFields:
		return f.StartDate, f.EndDate
	}
	return models.Date{}, nil
}

func (e *Engine) mergeCandidate(ctx context.Context, entry *models.Entry, candidate models.Candidate, report *models.ConsolidationReport) error {
	res, err := e.merger.Merge(entry, candidate)
	if err != nil {
		return err
	}

	if res.Changed {
		if err := e.entries.Update(ctx, entry); err != nil {
			return err
		}
	}

	report.Merged = append(report.Merged, models.EntryRef{EntryID: entry.ID, Section: candidate.Section})
	report.Conflicts = append(report.Conflicts, res.Conflicts...)
	return nil
}

func (e *Engine) flagCandidate(ctx context.Context, profileID string, candidate models.Candidate, best *matching.ScoredMatch, report *models.ConsolidationReport) error {
	snapshot, err := models.NewReviewCandidate(candidate)
	if err != nil {
		return fmt.Errorf("snapshot review candidate: %w", err)
	}

	item := &models.ReviewItem{
		ID:          uuid.NewString(),
		ProfileID:   profileID,
		Section:     candidate.Section,
		Candidate:   snapshot,
		BestMatchID: best.Entry.ID,
		Score:       best.Score,
		Status:      models.ReviewStatusPending,
	}
	if err := e.reviews.Enqueue(ctx, item); err != nil {
		return err
	}

	report.Flagged = append(report.Flagged, models.FlaggedMatch{
		Candidate:   candidate,
		BestMatchID: best.Entry.ID,
		Score:       best.Score,
		ReviewID:    item.ID,
	})
	return nil
}

// addCandidate inserts a candidate as a new entry at the end of its section.
func (e *Engine) addCandidate(ctx context.Context, profileID string, candidate models.Candidate, now time.Time) (*models.Entry, error) {
	index := 0
	if candidate.Section.Ordered() {
		var err error
		index, err = e.order.AppendIndex(ctx, profileID, candidate.Section)
		if err != nil {
			return nil, err
		}
	}

	entry := &models.Entry{
		ID:         uuid.NewString(),
		ProfileID:  profileID,
		SectionTyp: candidate.Section,
		OrderIndex: index,
		Provenance: models.Provenance{}.Add(candidate.UploadID),
		CreatedAt:  now,
		UpdatedAt:  now,
		Fields:     candidate.Fields,
	}
	if err := e.entries.Insert(ctx, entry); err != nil {
		return nil, err
	}
	return entry, nil
}

func (e *Engine) finishTask(ctx context.Context, task *models.ImportTask, report *models.ConsolidationReport, runErr error) {
	// The task outcome must be written even when the run was canceled.
	ctx = context.WithoutCancel(ctx)

	task.Added, task.Merged, task.Flagged, task.Skipped = report.Counts()
	now := e.now()
	task.FinishedAt = &now

	if runErr != nil {
		task.Status = models.ImportStatusAborted
		msg := runErr.Error()
		task.Error = &msg
	} else {
		task.Status = models.ImportStatusCommitted
	}

	if err := e.tasks.Finish(ctx, task); err != nil {
		e.logger.WithContext(ctx).WithError(err).WithField("task_id", task.ID).
			Error("failed to record import task outcome")
	}
}
