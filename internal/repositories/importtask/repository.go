// Package importtask persists consolidation run records. Tasks are written
// outside the consolidation transaction so an aborted run still leaves a row.
package importtask

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

// Repository handles import task persistence
type Repository struct {
	db     database.DB
	logger ectologger.Logger
}

// NewRepository creates a Repository
func NewRepository(db database.DB, logger ectologger.Logger) *Repository {
	return &Repository{db: db, logger: logger}
}

var taskColumns = []string{"id", "profile_id", "upload_id", "fingerprint", "status", "error", "added", "merged", "flagged", "skipped", "created_at", "finished_at"}

// Create stores a new processing task row.
func (r *Repository) Create(ctx context.Context, task *models.ImportTask) error {
	ctx, span := tracing.StartSpan(ctx, "importtask.Repository.Create")
	defer span.End()

	ib := database.NewInsertBuilder().
		InsertInto("import_tasks").
		Cols("id", "profile_id", "upload_id", "fingerprint", "status").
		Values(task.ID, task.ProfileID, task.UploadID, task.Fingerprint, task.Status)

	query, args := ib.Build()
	if _, err := r.db.Querier(ctx).ExecContext(ctx, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"profile_id": task.ProfileID, "upload_id": task.UploadID}).Error("Failed to create import task")
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to create import task")
	}
	return nil
}

// Finish records the task's terminal status and counts.
func (r *Repository) Finish(ctx context.Context, task *models.ImportTask) error {
	ctx, span := tracing.StartSpan(ctx, "importtask.Repository.Finish")
	defer span.End()

	ub := sqlbuilder.PostgreSQL.NewUpdateBuilder()
	ub.Update("import_tasks")
	ub.Set(
		ub.Assign("status", task.Status),
		ub.Assign("error", task.Error),
		ub.Assign("added", task.Added),
		ub.Assign("merged", task.Merged),
		ub.Assign("flagged", task.Flagged),
		ub.Assign("skipped", task.Skipped),
		"finished_at = NOW()",
	)
	ub.Where(ub.Equal("id", task.ID))

	query, args := ub.Build()
	res, err := r.db.Querier(ctx).ExecContext(ctx, query, args...)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).WithField("task_id", task.ID).Error("Failed to finish import task")
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to finish import task")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return httperror.NewHTTPErrorf(http.StatusNotFound, "import task %s not found", task.ID)
	}
	return nil
}

// Get returns a task by ID.
func (r *Repository) Get(ctx context.Context, id string) (*models.ImportTask, error) {
	ctx, span := tracing.StartSpan(ctx, "importtask.Repository.Get")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select(taskColumns...)
	sb.From("import_tasks")
	sb.Where(sb.Equal("id", id))

	query, args := sb.Build()
	var task models.ImportTask
	err := r.db.Querier(ctx).GetContext(ctx, &task, query, args...)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, httperror.NewHTTPErrorf(http.StatusNotFound, "import task %s not found", id)
		}
		r.logger.WithContext(ctx).WithError(err).WithField("task_id", id).Error("Failed to get import task")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to get import task")
	}
	return &task, nil
}

// ListForProfile returns a profile's tasks, newest first.
func (r *Repository) ListForProfile(ctx context.Context, profileID string, limit int) ([]models.ImportTask, error) {
	ctx, span := tracing.StartSpan(ctx, "importtask.Repository.ListForProfile")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select(taskColumns...)
	sb.From("import_tasks")
	sb.Where(sb.Equal("profile_id", profileID))
	sb.OrderBy("created_at DESC")
	sb.Limit(limit)

	query, args := sb.Build()
	var tasks []models.ImportTask
	if err := r.db.Querier(ctx).SelectContext(ctx, &tasks, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithField("profile_id", profileID).Error("Failed to list import tasks")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to list import tasks")
	}
	return tasks, nil
}
