// Package profile persists the profile aggregate roots.
package profile

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

// Repository handles profile persistence
type Repository struct {
	db     database.DB
	logger ectologger.Logger
}

// NewRepository creates a Repository
func NewRepository(db database.DB, logger ectologger.Logger) *Repository {
	return &Repository{db: db, logger: logger}
}

// Create stores a new profile.
func (r *Repository) Create(ctx context.Context, profile *models.Profile) error {
	ctx, span := tracing.StartSpan(ctx, "profile.Repository.Create")
	defer span.End()

	ib := database.NewInsertBuilder().
		InsertInto("profiles").
		Cols("id", "user_id", "name", "email").
		Values(profile.ID, profile.UserID, profile.Name, profile.Email)

	query, args := ib.Build()
	if _, err := r.db.Querier(ctx).ExecContext(ctx, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithField("profile_id", profile.ID).Error("Failed to create profile")
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to create profile")
	}
	return nil
}

// Get returns a profile by ID.
func (r *Repository) Get(ctx context.Context, profileID string) (*models.Profile, error) {
	ctx, span := tracing.StartSpan(ctx, "profile.Repository.Get")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select("id", "user_id", "name", "email", "created_at", "updated_at")
	sb.From("profiles")
	sb.Where(sb.Equal("id", profileID))

	query, args := sb.Build()
	var profile models.Profile
	err := r.db.Querier(ctx).GetContext(ctx, &profile, query, args...)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, httperror.NewHTTPErrorf(http.StatusNotFound, "profile %s not found", profileID)
		}
		r.logger.WithContext(ctx).WithError(err).WithField("profile_id", profileID).Error("Failed to get profile")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to get profile")
	}
	return &profile, nil
}

// List returns all profiles, newest first.
func (r *Repository) List(ctx context.Context, limit, offset int) ([]models.Profile, error) {
	ctx, span := tracing.StartSpan(ctx, "profile.Repository.List")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select("id", "user_id", "name", "email", "created_at", "updated_at")
	sb.From("profiles")
	sb.OrderBy("created_at DESC")
	sb.Limit(limit)
	sb.Offset(offset)

	query, args := sb.Build()
	var profiles []models.Profile
	if err := r.db.Querier(ctx).SelectContext(ctx, &profiles, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to list profiles")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to list profiles")
	}
	return profiles, nil
}

// Delete removes a profile. Section entries, review items and the order
// indexes go with it through the cascading foreign keys.
func (r *Repository) Delete(ctx context.Context, profileID string) error {
	ctx, span := tracing.StartSpan(ctx, "profile.Repository.Delete")
	defer span.End()

	query := "DELETE FROM profiles WHERE id = $1"
	res, err := r.db.Querier(ctx).ExecContext(ctx, query, profileID)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).WithField("profile_id", profileID).Error("Failed to delete profile")
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to delete profile")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return httperror.NewHTTPErrorf(http.StatusNotFound, "profile %s not found", profileID)
	}
	return nil
}

// Touch bumps a profile's updated_at after any consolidation or edit.
func (r *Repository) Touch(ctx context.Context, profileID string) error {
	ctx, span := tracing.StartSpan(ctx, "profile.Repository.Touch")
	defer span.End()

	query := "UPDATE profiles SET updated_at = NOW() WHERE id = $1"
	res, err := r.db.Querier(ctx).ExecContext(ctx, query, profileID)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).WithField("profile_id", profileID).Error("Failed to touch profile")
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to touch profile")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return httperror.NewHTTPErrorf(http.StatusNotFound, "profile %s not found", profileID)
	}
	return nil
}
