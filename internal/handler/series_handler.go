package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/ssmap-api/internal/engine"
	"github.com/noah-isme/ssmap-api/internal/service"
	"github.com/noah-isme/ssmap-api/pkg/response"
)

type seriesService interface {
	Commit(ctx context.Context, hubID, series string) (*service.CommitResult, error)
	Timeline(ctx context.Context, hubID string, studentID int) ([]engine.TimelineEntry, error)
	Growth(ctx context.Context, hubID, current, previous string) (*service.GrowthReport, error)
	Tracker(ctx context.Context, hubID string) (*service.TrackerReport, error)
}

// SeriesHandler exposes series commit and trend endpoints.
type SeriesHandler struct {
	service seriesService
}

// NewSeriesHandler constructs a series handler.
func NewSeriesHandler(svc seriesService) *SeriesHandler {
	return &SeriesHandler{service: svc}
}

// Commit godoc
// @Summary Commit a series
// @Description Freezes every pupil's result for the series into their history and updates the registry
// @Tags Series
// @Produce json
// @Security BearerAuth
// @Param series path string true "Series"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /series/{series}/commit [post]
func (h *SeriesHandler) Commit(c *gin.Context) {
	hubID, err := hubFromContext(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	result, err := h.service.Commit(c.Request.Context(), hubID, c.Param("series"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// Timeline godoc
// @Summary Pupil performance timeline
// @Tags Series
// @Produce json
// @Security BearerAuth
// @Param id path int true "Index number"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /students/{id}/timeline [get]
func (h *SeriesHandler) Timeline(c *gin.Context) {
	hubID, studentID, ok := hubAndStudent(c)
	if !ok {
		return
	}
	timeline, err := h.service.Timeline(c.Request.Context(), hubID, studentID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, timeline, nil)
}

// Growth godoc
// @Summary Growth between two series
// @Tags Series
// @Produce json
// @Security BearerAuth
// @Param series query string false "Current series"
// @Param previous query string false "Previous series"
// @Success 200 {object} response.Envelope
// @Router /series/growth [get]
func (h *SeriesHandler) Growth(c *gin.Context) {
	hubID, err := hubFromContext(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	report, err := h.service.Growth(c.Request.Context(), hubID, seriesQuery(c), c.Query("previous"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, report, nil)
}

// Tracker godoc
// @Summary Series tracker
// @Tags Series
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Envelope
// @Router /series/tracker [get]
func (h *SeriesHandler) Tracker(c *gin.Context) {
	hubID, err := hubFromContext(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	report, err := h.service.Tracker(c.Request.Context(), hubID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, report, nil)
}
