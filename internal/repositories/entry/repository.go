// Package entry persists profile section entries across the per-section
// tables. One repository serves all five sections; the section type picks the
// table and column set.
package entry

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

// Repository handles section entry persistence
type Repository struct {
	db     database.DB
	logger ectologger.Logger
}

// NewRepository creates a Repository
func NewRepository(db database.DB, logger ectologger.Logger) *Repository {
	return &Repository{db: db, logger: logger}
}

func tableFor(section models.SectionType) (string, error) {
	switch section {
	case models.SectionWorkExperience:
		return "work_experiences", nil
	case models.SectionEducation:
		return "education", nil
	case models.SectionProject:
		return "projects", nil
	case models.SectionCertification:
		return "certifications", nil
	case models.SectionSkill:
		return "skills", nil
	}
	return "", httperror.NewHTTPErrorf(http.StatusBadRequest, "unknown section %q", section)
}

// List returns a section's entries, ordered sections by order index and
// skills by name.
func (r *Repository) List(ctx context.Context, profileID string, section models.SectionType) ([]models.Entry, error) {
	ctx, span := tracing.StartSpan(ctx, "entry.Repository.List")
	defer span.End()

	table, err := tableFor(section)
	if err != nil {
		return nil, err
	}

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select(columnsFor(section)...)
	sb.From(table)
	sb.Where(sb.Equal("profile_id", profileID))
	if section.Ordered() {
		sb.OrderBy("order_index ASC")
	} else {
		sb.OrderBy("normalized_name ASC")
	}

	query, args := sb.Build()
	entries, err := r.selectEntries(ctx, section, query, args)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"profile_id": profileID, "section": section}).Error("Failed to list entries")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to list entries")
	}
	return entries, nil
}

// Get returns one entry by ID.
func (r *Repository) Get(ctx context.Context, profileID string, section models.SectionType, entryID string) (*models.Entry, error) {
	ctx, span := tracing.StartSpan(ctx, "entry.Repository.Get")
	defer span.End()

	table, err := tableFor(section)
	if err != nil {
		return nil, err
	}

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select(columnsFor(section)...)
	sb.From(table)
	sb.Where(sb.Equal("profile_id", profileID), sb.Equal("id", entryID))

	query, args := sb.Build()
	entries, err := r.selectEntries(ctx, section, query, args)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"profile_id": profileID, "entry_id": entryID}).Error("Failed to get entry")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to get entry")
	}
	if len(entries) == 0 {
		return nil, httperror.NewHTTPErrorf(http.StatusNotFound, "entry %s not found", entryID)
	}
	return &entries[0], nil
}

// Insert stores a new entry.
func (r *Repository) Insert(ctx context.Context, entry *models.Entry) error {
	ctx, span := tracing.StartSpan(ctx, "entry.Repository.Insert")
	defer span.End()

	table, err := tableFor(entry.SectionTyp)
	if err != nil {
		return err
	}

	cols, vals, err := insertValues(entry)
	if err != nil {
		return err
	}

	ib := database.NewInsertBuilder().InsertInto(table).Cols(cols...).Values(vals...)
	if entry.SectionTyp == models.SectionSkill {
		// Another instance may have written the same skill; the unique key on
		// (profile_id, normalized_name) makes the replay a no-op.
		ib.OnConflictDoNothing("profile_id", "normalized_name")
	}
	query, args := ib.Build()
	if _, err := r.db.Querier(ctx).ExecContext(ctx, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"profile_id": entry.ProfileID, "section": entry.SectionTyp}).Error("Failed to insert entry")
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to insert entry")
	}
	return nil
}

// Update rewrites an entry's fields and bumps updated_at. The order index is
// managed separately.
func (r *Repository) Update(ctx context.Context, entry *models.Entry) error {
	ctx, span := tracing.StartSpan(ctx, "entry.Repository.Update")
	defer span.End()

	table, err := tableFor(entry.SectionTyp)
	if err != nil {
		return err
	}

	assignments, err := updateAssignments(entry)
	if err != nil {
		return err
	}

	ub := sqlbuilder.PostgreSQL.NewUpdateBuilder()
	ub.Update(table)
	sets := make([]string, 0, len(assignments)+2)
	for col, val := range assignments {
		sets = append(sets, ub.Assign(col, val))
	}
	sets = append(sets, ub.Assign("provenance", entry.Provenance))
	sets = append(sets, "updated_at = NOW()")
	ub.Set(sets...)
	ub.Where(ub.Equal("id", entry.ID), ub.Equal("profile_id", entry.ProfileID))

	query, args := ub.Build()
	res, err := r.db.Querier(ctx).ExecContext(ctx, query, args...)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"entry_id": entry.ID, "section": entry.SectionTyp}).Error("Failed to update entry")
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to update entry")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return httperror.NewHTTPErrorf(http.StatusNotFound, "entry %s not found", entry.ID)
	}
	return nil
}

// Delete removes an entry. The caller closes the order gap.
func (r *Repository) Delete(ctx context.Context, profileID string, section models.SectionType, entryID string) error {
	ctx, span := tracing.StartSpan(ctx, "entry.Repository.Delete")
	defer span.End()

	table, err := tableFor(section)
	if err != nil {
		return err
	}

	db := sqlbuilder.PostgreSQL.NewDeleteBuilder()
	db.DeleteFrom(table)
	db.Where(db.Equal("profile_id", profileID), db.Equal("id", entryID))

	query, args := db.Build()
	res, err := r.db.Querier(ctx).ExecContext(ctx, query, args...)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"entry_id": entryID, "section": section}).Error("Failed to delete entry")
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to delete entry")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return httperror.NewHTTPErrorf(http.StatusNotFound, "entry %s not found", entryID)
	}
	return nil
}

// Count returns the number of entries in a section.
func (r *Repository) Count(ctx context.Context, profileID string, section models.SectionType) (int, error) {
	ctx, span := tracing.StartSpan(ctx, "entry.Repository.Count")
	defer span.End()

	table, err := tableFor(section)
	if err != nil {
		return 0, err
	}

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select("COUNT(*)")
	sb.From(table)
	sb.Where(sb.Equal("profile_id", profileID))

	query, args := sb.Build()
	var count int
	if err := r.db.Querier(ctx).GetContext(ctx, &count, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithField("profile_id", profileID).Error("Failed to count entries")
		return 0, httperror.NewHTTPError(http.StatusInternalServerError, "failed to count entries")
	}
	return count, nil
}

// IndexOf returns an entry's order index.
func (r *Repository) IndexOf(ctx context.Context, profileID string, section models.SectionType, entryID string) (int, error) {
	ctx, span := tracing.StartSpan(ctx, "entry.Repository.IndexOf")
	defer span.End()

	table, err := tableFor(section)
	if err != nil {
		return 0, err
	}
	if !section.Ordered() {
		return 0, httperror.NewHTTPErrorf(http.StatusBadRequest, "section %q has no order", section)
	}

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select("order_index")
	sb.From(table)
	sb.Where(sb.Equal("profile_id", profileID), sb.Equal("id", entryID))

	query, args := sb.Build()
	var index int
	err = r.db.Querier(ctx).GetContext(ctx, &index, query, args...)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, httperror.NewHTTPErrorf(http.StatusNotFound, "entry %s not found", entryID)
		}
		r.logger.WithContext(ctx).WithError(err).WithField("entry_id", entryID).Error("Failed to read order index")
		return 0, httperror.NewHTTPError(http.StatusInternalServerError, "failed to read order index")
	}
	return index, nil
}

// ShiftRange adds delta to every order index in [from, to]. Safe mid-
// transaction: the unique index on (profile_id, order_index) is deferred.
func (r *Repository) ShiftRange(ctx context.Context, profileID string, section models.SectionType, from, to, delta int) error {
	ctx, span := tracing.StartSpan(ctx, "entry.Repository.ShiftRange")
	defer span.End()

	table, err := tableFor(section)
	if err != nil {
		return err
	}

	query := "UPDATE " + table + " SET order_index = order_index + $1, updated_at = NOW() WHERE profile_id = $2 AND order_index BETWEEN $3 AND $4"
	if _, err := r.db.Querier(ctx).ExecContext(ctx, query, delta, profileID, from, to); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"profile_id": profileID, "from": from, "to": to, "delta": delta}).Error("Failed to shift order indexes")
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to shift order indexes")
	}
	return nil
}

// SetIndex moves one entry to the given order index.
func (r *Repository) SetIndex(ctx context.Context, profileID string, section models.SectionType, entryID string, index int) error {
	ctx, span := tracing.StartSpan(ctx, "entry.Repository.SetIndex")
	defer span.End()

	table, err := tableFor(section)
	if err != nil {
		return err
	}

	query := "UPDATE " + table + " SET order_index = $1, updated_at = NOW() WHERE profile_id = $2 AND id = $3"
	res, err := r.db.Querier(ctx).ExecContext(ctx, query, index, profileID, entryID)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).WithField("entry_id", entryID).Error("Failed to set order index")
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to set order index")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return httperror.NewHTTPErrorf(http.StatusNotFound, "entry %s not found", entryID)
	}
	return nil
}
