package section

import (
	"net/http"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectoinject"
	"github.com/Gobusters/ectologger"
	"github.com/labstack/echo/v4"

	"github.com/careerark/arc/pkg/consolidation"
	"github.com/careerark/arc/pkg/events"
	"github.com/careerark/arc/pkg/models"
)

// Register registers section routes on the profiles group
func Register(g *echo.Group) {
	g.GET("/:id/sections/:section", ReadSection)
	g.PUT("/:id/sections/:section/entries/:entryId/position", ReorderEntry)
	g.DELETE("/:id/sections/:section/entries/:entryId", DeleteEntry)
}

// ReadSection returns a section's entries in display order
func ReadSection(c echo.Context) error {
	ctx := c.Request().Context()
	profileID := c.Param("id")
	section := models.SectionType(c.Param("section"))

	ctx, engine, err := ectoinject.GetContext[*consolidation.Engine](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "service unavailable")
	}

	entries, err := engine.ReadSection(ctx, profileID, section)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, entries)
}

// ReorderRequest is the payload for moving an entry
type ReorderRequest struct {
	OrderIndex int `json:"order_index"`
}

// ReorderEntry moves an entry to a new position within its section
func ReorderEntry(c echo.Context) error {
	ctx := c.Request().Context()
	profileID := c.Param("id")
	section := models.SectionType(c.Param("section"))
	entryID := c.Param("entryId")

	var req ReorderRequest
	if err := c.Bind(&req); err != nil {
		return httperror.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	ctx, engine, err := ectoinject.GetContext[*consolidation.Engine](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "service unavailable")
	}

	if err := engine.Reorder(ctx, profileID, section, entryID, req.OrderIndex); err != nil {
		return err
	}

	ctx, emitter, _ := ectoinject.GetContext[*events.Emitter](ctx)
	if emitter != nil {
		if err := emitter.EmitEntryReordered(ctx, profileID, section, entryID, req.OrderIndex); err != nil {
			ctx, logger, _ := ectoinject.GetContext[ectologger.Logger](ctx)
			if logger != nil {
				logger.WithContext(ctx).WithError(err).Warn("Entry reordered but event emission failed")
			}
		}
	}

	return c.JSON(http.StatusOK, map[string]any{"entry_id": entryID, "order_index": req.OrderIndex})
}

// DeleteEntry removes an entry from a section
func DeleteEntry(c echo.Context) error {
	ctx := c.Request().Context()
	profileID := c.Param("id")
	section := models.SectionType(c.Param("section"))
	entryID := c.Param("entryId")

	ctx, engine, err := ectoinject.GetContext[*consolidation.Engine](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "service unavailable")
	}

	if err := engine.DeleteEntry(ctx, profileID, section, entryID); err != nil {
		return err
	}

	ctx, emitter, _ := ectoinject.GetContext[*events.Emitter](ctx)
	if emitter != nil {
		if err := emitter.EmitEntryDeleted(ctx, profileID, section, entryID); err != nil {
			ctx, logger, _ := ectoinject.GetContext[ectologger.Logger](ctx)
			if logger != nil {
				logger.WithContext(ctx).WithError(err).Warn("Entry deleted but event emission failed")
			}
		}
	}

	return c.NoContent(http.StatusNoContent)
}
