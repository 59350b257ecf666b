// Package consolidation runs the end-to-end pipeline that folds extracted CV
// batches into a profile: validate, score, resolve, then insert, merge, or
// flag each candidate inside a single transaction.
package consolidation

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/careerark/arc/internal/tracing"
	"github.com/careerark/arc/pkg/fingerprint"
	"github.com/careerark/arc/pkg/matching"
	"github.com/careerark/arc/pkg/merging"
	"github.com/careerark/arc/pkg/models"
	"github.com/careerark/arc/pkg/ordering"
)

// Engine coordinates scoring, matching, merging, and ordering over the
// stores. All writes for one run happen in one transaction under the
// profile's lock.
type Engine struct {
	logger   ectologger.Logger
	tx       TxRunner
	profiles ProfileStore
	entries  EntryStore
	reviews  ReviewStore
	tasks    TaskStore
	resolver *matching.Resolver
	merger   *merging.FieldMerger
	order    *ordering.Manager
	locks    *ProfileLocks
	validate *validator.Validate
	reporter Reporter
	now      func() time.Time
}

// NewEngine creates an Engine. The reporter may be nil.
func NewEngine(
	logger ectologger.Logger,
	tx TxRunner,
	profiles ProfileStore,
	entries EntryStore,
	reviews ReviewStore,
	tasks TaskStore,
	resolver *matching.Resolver,
	merger *merging.FieldMerger,
	reporter Reporter,
) *Engine {
	return &Engine{
		logger:   logger,
		tx:       tx,
		profiles: profiles,
		entries:  entries,
		reviews:  reviews,
		tasks:    tasks,
		resolver: resolver,
		merger:   merger,
		order:    ordering.NewManager(entries),
		locks:    NewProfileLocks(),
		validate: validator.New(),
		reporter: reporter,
		now:      time.Now,
	}
}

// Consolidate folds one extraction batch into its profile and reports what
// happened to every candidate. The batch either fully commits or leaves the
// profile untouched; the import task records the outcome either way.
func (e *Engine) Consolidate(ctx context.Context, batch *models.CandidateBatch) (*models.ConsolidationReport, error) {
	ctx, span := tracing.StartSpan(ctx, "consolidation.Consolidate")
	defer span.End()

	if err := e.validate.Struct(batch); err != nil {
		return nil, httperror.NewHTTPErrorf(http.StatusBadRequest, "invalid batch: %v", err)
	}

	release, err := e.locks.Acquire(ctx, batch.ProfileID)
	if err != nil {
		return nil, httperror.NewHTTPError(http.StatusConflict, "profile is being consolidated, retry later")
	}
	defer release()

	log := e.logger.WithContext(ctx).WithFields(map[string]any{
		"profile_id": batch.ProfileID,
		"upload_id":  batch.UploadID,
		"candidates": batch.Len(),
	})

	task := &models.ImportTask{
		ID:          uuid.NewString(),
		ProfileID:   batch.ProfileID,
		UploadID:    batch.UploadID,
		Fingerprint: fingerprint.Batch(batch),
		Status:      models.ImportStatusProcessing,
	}
	if err := e.tasks.Create(ctx, task); err != nil {
		return nil, err
	}

	report := &models.ConsolidationReport{
		ProfileID: batch.ProfileID,
		UploadID:  batch.UploadID,
		TaskID:    task.ID,
	}

	err = e.tx.RunInTx(ctx, func(ctx context.Context) error {
		if _, err := e.profiles.Get(ctx, batch.ProfileID); err != nil {
			return err
		}
		if err := e.consolidateCandidates(ctx, batch, report); err != nil {
			return err
		}
		return e.profiles.Touch(ctx, batch.ProfileID)
	})

	if err != nil {
		e.finishTask(ctx, task, report, err)
		log.WithError(err).Error("consolidation aborted, profile left untouched")
		return nil, err
	}

	e.finishTask(ctx, task, report, nil)

	added, merged, flagged, skipped := report.Counts()
	log.WithFields(map[string]any{
		"added":   added,
		"merged":  merged,
		"flagged": flagged,
		"skipped": skipped,
	}).Info("consolidation committed")

	if e.reporter != nil {
		e.reporter.ConsolidationCompleted(ctx, report)
	}
	return report, nil
}

// consolidateCandidates processes candidates in section order. Entries added
// earlier in the batch are matched against later candidates, so a batch that
// repeats itself still produces one entry.
func (e *Engine) consolidateCandidates(ctx context.Context, batch *models.CandidateBatch, report *models.ConsolidationReport) error {
	now := e.now()
	sections := map[models.SectionType][]models.Entry{}

	for _, candidate := range batch.Candidates() {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("consolidation canceled: %w", err)
		}

		if reason := e.rejectCandidate(candidate); reason != "" {
			report.Skipped = append(report.Skipped, models.SkippedRecord{Candidate: candidate, Reason: reason})
			continue
		}

		entries, ok := sections[candidate.Section]
		if !ok {
			var err error
			entries, err = e.entries.List(ctx, batch.ProfileID, candidate.Section)
			if err != nil {
				return err
			}
			sections[candidate.Section] = entries
		}

		outcome, best := e.resolver.Resolve(ctx, candidate, entries, now)

		switch outcome {
		case matching.OutcomeDuplicate:
			if err := e.mergeCandidate(ctx, best.Entry, candidate, report); err != nil {
				return err
			}

		case matching.OutcomeAmbiguous:
			if err := e.flagCandidate(ctx, batch.ProfileID, candidate, best, report); err != nil {
				return err
			}

		default:
			entry, err := e.addCandidate(ctx, batch.ProfileID, candidate, now)
			if err != nil {
				return err
			}
			sections[candidate.Section] = append(sections[candidate.Section], *entry)
			report.Added = append(report.Added, models.EntryRef{EntryID: entry.ID, Section: candidate.Section})
		}
	}
	return nil
}
