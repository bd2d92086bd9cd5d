package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/ssmap-api/internal/models"
	appErrors "github.com/noah-isme/ssmap-api/pkg/errors"
	"github.com/noah-isme/ssmap-api/pkg/response"
)

type settingsService interface {
	Get(ctx context.Context, hubID string) (*models.Settings, error)
	Update(ctx context.Context, hubID string, settings models.Settings) (*models.Settings, error)
	SetActiveSeries(ctx context.Context, hubID, series string) (*models.Settings, error)
	ResetData(ctx context.Context, hubID string) error
}

type activeSeriesRequest struct {
	Series string `json:"series" binding:"required"`
}

type resetRequest struct {
	Confirm bool `json:"confirm"`
}

// SettingsHandler exposes hub configuration endpoints.
type SettingsHandler struct {
	service settingsService
}

// NewSettingsHandler constructs a settings handler.
func NewSettingsHandler(svc settingsService) *SettingsHandler {
	return &SettingsHandler{service: svc}
}

// Get godoc
// @Summary Get hub settings
// @Tags Settings
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /settings [get]
func (h *SettingsHandler) Get(c *gin.Context) {
	hubID, err := hubFromContext(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	settings, err := h.service.Get(c.Request.Context(), hubID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, settings, nil)
}

// Update godoc
// @Summary Replace hub settings
// @Description Validates grading bands, category thresholds and SBA weights before saving
// @Tags Settings
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param payload body models.Settings true "Settings"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 422 {object} response.Envelope
// @Router /settings [put]
func (h *SettingsHandler) Update(c *gin.Context) {
	hubID, err := hubFromContext(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	var req models.Settings
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid settings payload"))
		return
	}

	settings, err := h.service.Update(c.Request.Context(), hubID, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, settings, nil)
}

// SetActiveSeries godoc
// @Summary Switch the active series
// @Tags Settings
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param payload body activeSeriesRequest true "Series"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /settings/active-series [put]
func (h *SettingsHandler) SetActiveSeries(c *gin.Context) {
	hubID, err := hubFromContext(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	var req activeSeriesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid series payload"))
		return
	}

	settings, err := h.service.SetActiveSeries(c.Request.Context(), hubID, req.Series)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, settings, nil)
}

// Reset godoc
// @Summary Wipe hub data
// @Description Removes every student and facilitator assignment. Requires {"confirm": true}.
// @Tags Settings
// @Accept json
// @Security BearerAuth
// @Success 204
// @Failure 400 {object} response.Envelope
// @Router /settings/reset [post]
func (h *SettingsHandler) Reset(c *gin.Context) {
	hubID, err := hubFromContext(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	var req resetRequest
	if err := c.ShouldBindJSON(&req); err != nil || !req.Confirm {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "reset must be confirmed"))
		return
	}

	if err := h.service.ResetData(c.Request.Context(), hubID); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
