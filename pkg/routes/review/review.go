package review

import (
	"net/http"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectoinject"
	"github.com/Gobusters/ectologger"
	"github.com/labstack/echo/v4"

	"github.com/careerark/arc/internal/repositories/reviewqueue"
	"github.com/careerark/arc/pkg/consolidation"
	"github.com/careerark/arc/pkg/events"
	"github.com/careerark/arc/pkg/models"
)

// Register registers review resolution routes
func Register(g *echo.Group) {
	g.POST("/:id/confirm", ConfirmReview)
	g.POST("/:id/reject", RejectReview)
}

// RegisterProfileRoutes registers the per-profile review listing
func RegisterProfileRoutes(g *echo.Group) {
	g.GET("/:id/reviews", ListPendingReviews)
}

// ListPendingReviews lists a profile's unresolved review items
func ListPendingReviews(c echo.Context) error {
	ctx := c.Request().Context()
	profileID := c.Param("id")

	ctx, engine, err := ectoinject.GetContext[*consolidation.Engine](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "service unavailable")
	}

	items, err := engine.PendingReviews(ctx, profileID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, items)
}

// ConfirmReview accepts an ambiguous match, merging the parked candidate into
// the entry it resembled
func ConfirmReview(c echo.Context) error {
	return resolveReview(c, models.ReviewStatusConfirmed)
}

// RejectReview declares an ambiguous match distinct, adding the parked
// candidate as a new entry
func RejectReview(c echo.Context) error {
	return resolveReview(c, models.ReviewStatusRejected)
}

func resolveReview(c echo.Context, decision string) error {
	ctx := c.Request().Context()
	reviewID := c.Param("id")

	ctx, engine, err := ectoinject.GetContext[*consolidation.Engine](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "service unavailable")
	}

	if decision == models.ReviewStatusConfirmed {
		err = engine.ConfirmReview(ctx, reviewID)
	} else {
		err = engine.RejectReview(ctx, reviewID)
	}
	if err != nil {
		return err
	}

	// The decision is committed; event emission is best effort.
	ctx, repo, repoErr := ectoinject.GetContext[*reviewqueue.Repository](ctx)
	ctx, emitter, emitErr := ectoinject.GetContext[*events.Emitter](ctx)
	if repoErr == nil && emitErr == nil && emitter != nil {
		if item, getErr := repo.Get(ctx, reviewID); getErr == nil {
			if err := emitter.EmitReviewResolved(ctx, item.ProfileID, item.Section, reviewID, decision); err != nil {
				ctx, logger, _ := ectoinject.GetContext[ectologger.Logger](ctx)
				if logger != nil {
					logger.WithContext(ctx).WithError(err).Warn("Review resolved but event emission failed")
				}
			}
		}
	}

	return c.JSON(http.StatusOK, map[string]string{"status": decision})
}
