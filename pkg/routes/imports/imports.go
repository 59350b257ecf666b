package imports

import (
	"net/http"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectoinject"
	"github.com/labstack/echo/v4"

	"github.com/careerark/arc/internal/repositories/importtask"
)

// Register registers import task routes
func Register(g *echo.Group) {
	g.GET("/:id", GetImportTask)
}

// RegisterProfileRoutes registers the per-profile import history listing
func RegisterProfileRoutes(g *echo.Group) {
	g.GET("/:id/imports", ListImportTasks)
}

// GetImportTask gets an import task by ID
func GetImportTask(c echo.Context) error {
	ctx := c.Request().Context()
	taskID := c.Param("id")

	ctx, repo, err := ectoinject.GetContext[*importtask.Repository](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "service unavailable")
	}

	task, err := repo.Get(ctx, taskID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, task)
}

// ListImportTasks lists a profile's import tasks, newest first
func ListImportTasks(c echo.Context) error {
	ctx := c.Request().Context()
	profileID := c.Param("id")

	limit := 50
	if err := echo.QueryParamsBinder(c).Int("limit", &limit).BindError(); err != nil {
		return httperror.NewHTTPError(http.StatusBadRequest, "limit must be an integer")
	}
	if limit <= 0 || limit > 200 {
		limit = 50
	}

	ctx, repo, err := ectoinject.GetContext[*importtask.Repository](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "service unavailable")
	}

	tasks, err := repo.ListForProfile(ctx, profileID, limit)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, tasks)
}
