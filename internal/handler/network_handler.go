package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/ssmap-api/internal/engine"
	"github.com/noah-isme/ssmap-api/internal/models"
	"github.com/noah-isme/ssmap-api/internal/service"
	appErrors "github.com/noah-isme/ssmap-api/pkg/errors"
	"github.com/noah-isme/ssmap-api/pkg/response"
)

type networkService interface {
	GlobalRanking(ctx context.Context, series string) (*service.NetworkRanking, error)
	GlobalRankOf(ctx context.Context, hubID string, studentID int, series string) (*engine.GlobalEntry, error)
	NetworkSummary(ctx context.Context) (*service.NetworkSummary, error)
}

// NetworkHandler exposes cross-institution rankings.
type NetworkHandler struct {
	service networkService
}

// NewNetworkHandler constructs a network handler.
func NewNetworkHandler(svc networkService) *NetworkHandler {
	return &NetworkHandler{service: svc}
}

// Ranking godoc
// @Summary Network-wide pupil ranking
// @Tags Network
// @Produce json
// @Security BearerAuth
// @Param series query string true "Series"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /network/ranking [get]
func (h *NetworkHandler) Ranking(c *gin.Context) {
	series := seriesQuery(c)
	if series == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "series is required"))
		return
	}
	ranking, err := h.service.GlobalRanking(c.Request.Context(), series)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, ranking, &models.Pagination{Page: 1, PageSize: len(ranking.Entries), TotalCount: len(ranking.Entries)})
}

// Summary godoc
// @Summary Network summary
// @Tags Network
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Envelope
// @Router /network/summary [get]
func (h *NetworkHandler) Summary(c *gin.Context) {
	summary, err := h.service.NetworkSummary(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, summary, nil)
}

// RankOf godoc
// @Summary A pupil's network rank
// @Tags Network
// @Produce json
// @Security BearerAuth
// @Param id path int true "Index number"
// @Param series query string false "Series"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /network/rank/{id} [get]
func (h *NetworkHandler) RankOf(c *gin.Context) {
	hubID, studentID, ok := hubAndStudent(c)
	if !ok {
		return
	}
	entry, err := h.service.GlobalRankOf(c.Request.Context(), hubID, studentID, seriesQuery(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, entry, nil)
}
