package consolidation

import (
	"context"
	"net/http"

	"github.com/Gobusters/ectoerror/httperror"

	"github.com/careerark/arc/internal/tracing"
	"github.com/careerark/arc/pkg/models"
)

// ReadSection returns a section's entries, ordered sections sorted by order
// index. Reads do not take the profile lock.
func (e *Engine) ReadSection(ctx context.Context, profileID string, section models.SectionType) ([]models.Entry, error) {
	ctx, span := tracing.StartSpan(ctx, "consolidation.ReadSection")
	defer span.End()

	if !section.IsValid() {
		return nil, httperror.NewHTTPErrorf(http.StatusBadRequest, "unknown section %q", section)
	}
	if _, err := e.profiles.Get(ctx, profileID); err != nil {
		return nil, err
	}
	return e.entries.List(ctx, profileID, section)
}

// Reorder moves an entry to a new position, shifting the entries in between.
func (e *Engine) Reorder(ctx context.Context, profileID string, section models.SectionType, entryID string, newIndex int) error {
	ctx, span := tracing.StartSpan(ctx, "consolidation.Reorder")
	defer span.End()

	if !section.Ordered() {
		return httperror.NewHTTPErrorf(http.StatusBadRequest, "section %q has no order", section)
	}
	if newIndex < 0 {
		return httperror.NewHTTPError(http.StatusBadRequest, "order index must not be negative")
	}

	release, ok := e.locks.TryAcquire(profileID)
	if !ok {
		return httperror.NewHTTPError(http.StatusConflict, ErrProfileLocked.Error())
	}
	defer release()

	return e.tx.RunInTx(ctx, func(ctx context.Context) error {
		if _, err := e.entries.Get(ctx, profileID, section, entryID); err != nil {
			return err
		}
		if err := e.order.Move(ctx, profileID, section, entryID, newIndex); err != nil {
			return err
		}
		return e.profiles.Touch(ctx, profileID)
	})
}

// DeleteEntry removes an entry and closes the gap it leaves in the order.
func (e *Engine) DeleteEntry(ctx context.Context, profileID string, section models.SectionType, entryID string) error {
	ctx, span := tracing.StartSpan(ctx, "consolidation.DeleteEntry")
	defer span.End()

	if !section.IsValid() {
		return httperror.NewHTTPErrorf(http.StatusBadRequest, "unknown section %q", section)
	}

	release, ok := e.locks.TryAcquire(profileID)
	if !ok {
		return httperror.NewHTTPError(http.StatusConflict, ErrProfileLocked.Error())
	}
	defer release()

	return e.tx.RunInTx(ctx, func(ctx context.Context) error {
		entry, err := e.entries.Get(ctx, profileID, section, entryID)
		if err != nil {
			return err
		}
		if err := e.entries.Delete(ctx, profileID, section, entryID); err != nil {
			return err
		}
		if section.Ordered() {
			if err := e.order.CloseGap(ctx, profileID, section, entry.OrderIndex); err != nil {
				return err
			}
		}
		return e.profiles.Touch(ctx, profileID)
	})
}

// PendingReviews lists a profile's unresolved review items.
func (e *Engine) PendingReviews(ctx context.Context, profileID string) ([]models.ReviewItem, error) {
	ctx, span := tracing.StartSpan(ctx, "consolidation.PendingReviews")
	defer span.End()

	if _, err := e.profiles.Get(ctx, profileID); err != nil {
		return nil, err
	}
	return e.reviews.ListPending(ctx, profileID)
}

// ConfirmReview accepts an ambiguous match: the parked candidate is merged
// into the entry it resembled. If that entry has been deleted since, the
// candidate is added as a new entry instead.
func (e *Engine) ConfirmReview(ctx context.Context, reviewID string) error {
	return e.resolveReview(ctx, reviewID, models.ReviewStatusConfirmed)
}

// RejectReview declares an ambiguous match distinct: the parked candidate is
// added as a new entry at the end of its section.
func (e *Engine) RejectReview(ctx context.Context, reviewID string) error {
	return e.resolveReview(ctx, reviewID, models.ReviewStatusRejected)
}

func (e *Engine) resolveReview(ctx context.Context, reviewID, status string) error {
	ctx, span := tracing.StartSpan(ctx, "consolidation.resolveReview")
	defer span.End()

	item, err := e.reviews.Get(ctx, reviewID)
	if err != nil {
		return err
	}

	release, ok := e.locks.TryAcquire(item.ProfileID)
	if !ok {
		return httperror.NewHTTPError(http.StatusConflict, ErrProfileLocked.Error())
	}
	defer release()

	return e.tx.RunInTx(ctx, func(ctx context.Context) error {
		// Re-read under the lock: another decision may have won the race.
		item, err := e.reviews.Get(ctx, reviewID)
		if err != nil {
			return err
		}
		if item.Status != models.ReviewStatusPending {
			return httperror.NewHTTPErrorf(http.StatusConflict, "review %s already %s", reviewID, item.Status)
		}

		fields, err := item.DecodeFields()
		if err != nil {
			return err
		}
		candidate := models.Candidate{
			Section:  item.Section,
			UploadID: item.Candidate.UploadID,
			Fields:   fields,
		}

		if status == models.ReviewStatusConfirmed {
			entry, err := e.entries.Get(ctx, item.ProfileID, item.Section, item.BestMatchID)
			switch {
			case err == nil:
				report := &models.ConsolidationReport{ProfileID: item.ProfileID}
				if err := e.mergeCandidate(ctx, entry, candidate, report); err != nil {
					return err
				}
				if len(report.Conflicts) > 0 {
					e.logger.WithContext(ctx).WithFields(map[string]any{
						"review_id":  reviewID,
						"profile_id": item.ProfileID,
						"entry_id":   entry.ID,
						"conflicts":  report.Conflicts,
					}).Warn("review merge kept existing values over conflicting fields")
				}
			case httperror.GetStatusCode(err) == http.StatusNotFound:
				if _, err := e.addCandidate(ctx, item.ProfileID, candidate, e.now()); err != nil {
					return err
				}
			default:
				return err
			}
		} else {
			if _, err := e.addCandidate(ctx, item.ProfileID, candidate, e.now()); err != nil {
				return err
			}
		}

		if err := e.reviews.SetStatus(ctx, reviewID, status); err != nil {
			return err
		}
		return e.profiles.Touch(ctx, item.ProfileID)
	})
}
