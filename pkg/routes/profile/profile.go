package profile

import (
	"net/http"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectoinject"
	"github.com/Gobusters/ectologger"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/careerark/arc/internal/repositories/profile"
	"github.com/careerark/arc/pkg/consolidation"
	"github.com/careerark/arc/pkg/models"
)

// Register registers profile routes
func Register(g *echo.Group) {
	g.POST("", CreateProfile)
	g.GET("", ListProfiles)
	g.GET("/:id", GetProfile)
	g.DELETE("/:id", DeleteProfile)
	g.POST("/:id/consolidate", ConsolidateProfile)
}

// CreateProfileRequest is the payload for creating a profile
type CreateProfileRequest struct {
	UserID string  `json:"user_id" validate:"required"`
	Name   string  `json:"name" validate:"required"`
	Email  *string `json:"email"`
}

// CreateProfile creates a new empty profile
func CreateProfile(c echo.Context) error {
	ctx := c.Request().Context()

	var req CreateProfileRequest
	if err := c.Bind(&req); err != nil {
		return httperror.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if req.UserID == "" || req.Name == "" {
		return httperror.NewHTTPError(http.StatusBadRequest, "user_id and name are required")
	}

	ctx, repo, err := ectoinject.GetContext[*profile.Repository](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "service unavailable")
	}

	p := &models.Profile{
		ID:     uuid.NewString(),
		UserID: req.UserID,
		Name:   req.Name,
		Email:  req.Email,
	}
	if err := repo.Create(ctx, p); err != nil {
		return err
	}

	ctx, logger, _ := ectoinject.GetContext[ectologger.Logger](ctx)
	if logger != nil {
		logger.WithContext(ctx).WithFields(map[string]any{
			"profile_id": p.ID,
			"user_id":    p.UserID,
		}).Info("Created profile")
	}

	return c.JSON(http.StatusCreated, p)
}

// ListProfiles lists profiles, newest first
func ListProfiles(c echo.Context) error {
	ctx := c.Request().Context()

	limit := 50
	offset := 0
	if err := echo.QueryParamsBinder(c).Int("limit", &limit).Int("offset", &offset).BindError(); err != nil {
		return httperror.NewHTTPError(http.StatusBadRequest, "limit and offset must be integers")
	}
	if limit <= 0 || limit > 200 {
		limit = 50
	}

	ctx, repo, err := ectoinject.GetContext[*profile.Repository](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "service unavailable")
	}

	profiles, err := repo.List(ctx, limit, offset)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, profiles)
}

// GetProfile gets a profile by ID
func GetProfile(c echo.Context) error {
	ctx := c.Request().Context()
	profileID := c.Param("id")

	ctx, repo, err := ectoinject.GetContext[*profile.Repository](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "service unavailable")
	}

	p, err := repo.Get(ctx, profileID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, p)
}

// DeleteProfile removes a profile and everything under it
func DeleteProfile(c echo.Context) error {
	ctx := c.Request().Context()
	profileID := c.Param("id")

	ctx, repo, err := ectoinject.GetContext[*profile.Repository](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "service unavailable")
	}

	if err := repo.Delete(ctx, profileID); err != nil {
		return err
	}

	ctx, logger, _ := ectoinject.GetContext[ectologger.Logger](ctx)
	if logger != nil {
		logger.WithContext(ctx).WithField("profile_id", profileID).Info("Deleted profile")
	}

	return c.NoContent(http.StatusNoContent)
}

// ConsolidateProfile folds an extraction batch into the profile and returns
// the consolidation report. The same endpoint the Kafka consumer drives, for
// synchronous imports and backfills.
func ConsolidateProfile(c echo.Context) error {
	ctx := c.Request().Context()
	profileID := c.Param("id")

	var batch models.CandidateBatch
	if err := c.Bind(&batch); err != nil {
		return httperror.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	batch.ProfileID = profileID

	ctx, engine, err := ectoinject.GetContext[*consolidation.Engine](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "service unavailable")
	}

	report, err := engine.Consolidate(ctx, &batch)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, report)
}
