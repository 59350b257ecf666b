// Package reviewqueue persists ambiguous matches parked for a human decision.
package reviewqueue

import (
	"context"
	"database/sql"
	"errors"
	"net/http"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"
	"github.com/huandu/go-sqlbuilder"

	"github.com/careerark/arc/internal/database"
	"github.com/careerark/arc/internal/tracing"
	"github.com/careerark/arc/pkg/models"
)

// Repository handles review queue persistence
type Repository struct {
	db     database.DB
	logger ectologger.Logger
}

// NewRepository creates a Repository
func NewRepository(db database.DB, logger ectologger.Logger) *Repository {
	return &Repository{db: db, logger: logger}
}

var reviewColumns = []string{"id", "profile_id", "section", "candidate", "best_match_id", "score", "status", "created_at", "resolved_at"}

// Enqueue stores a new pending review item.
func (r *Repository) Enqueue(ctx context.Context, item *models.ReviewItem) error {
	ctx, span := tracing.StartSpan(ctx, "reviewqueue.Repository.Enqueue")
	defer span.End()

	ib := database.NewInsertBuilder().
		InsertInto("review_queue").
		Cols("id", "profile_id", "section", "candidate", "best_match_id", "score", "status").
		Values(item.ID, item.ProfileID, item.Section, item.Candidate, item.BestMatchID, item.Score, item.Status)

	query, args := ib.Build()
	if _, err := r.db.Querier(ctx).ExecContext(ctx, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"profile_id": item.ProfileID, "section": item.Section}).Error("Failed to enqueue review item")
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to enqueue review item")
	}
	return nil
}

// Get returns a review item by ID.
func (r *Repository) Get(ctx context.Context, id string) (*models.ReviewItem, error) {
	ctx, span := tracing.StartSpan(ctx, "reviewqueue.Repository.Get")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select(reviewColumns...)
	sb.From("review_queue")
	sb.Where(sb.Equal("id", id))

	query, args := sb.Build()
	var item models.ReviewItem
	err := r.db.Querier(ctx).GetContext(ctx, &item, query, args...)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, httperror.NewHTTPErrorf(http.StatusNotFound, "review item %s not found", id)
		}
		r.logger.WithContext(ctx).WithError(err).WithField("review_id", id).Error("Failed to get review item")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to get review item")
	}
	return &item, nil
}

// SetStatus resolves a review item. Only pending items can be resolved; the
// engine checks status inside the same transaction before calling this.
func (r *Repository) SetStatus(ctx context.Context, id, status string) error {
	ctx, span := tracing.StartSpan(ctx, "reviewqueue.Repository.SetStatus")
	defer span.End()

	query := "UPDATE review_queue SET status = $1, resolved_at = NOW() WHERE id = $2"
	res, err := r.db.Querier(ctx).ExecContext(ctx, query, status, id)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"review_id": id, "status": status}).Error("Failed to update review status")
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to update review status")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return httperror.NewHTTPErrorf(http.StatusNotFound, "review item %s not found", id)
	}
	return nil
}

// ListPending returns a profile's unresolved review items, oldest first.
func (r *Repository) ListPending(ctx context.Context, profileID string) ([]models.ReviewItem, error) {
	ctx, span := tracing.StartSpan(ctx, "reviewqueue.Repository.ListPending")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select(reviewColumns...)
	sb.From("review_queue")
	sb.Where(sb.Equal("profile_id", profileID), sb.Equal("status", models.ReviewStatusPending))
	sb.OrderBy("created_at ASC")

	query, args := sb.Build()
	var items []models.ReviewItem
	if err := r.db.Querier(ctx).SelectContext(ctx, &items, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithField("profile_id", profileID).Error("Failed to list pending review items")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to list pending review items")
	}
	return items, nil
}
