package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/ssmap-api/internal/service"
	appErrors "github.com/noah-isme/ssmap-api/pkg/errors"
	"github.com/noah-isme/ssmap-api/pkg/response"
)

type rewardService interface {
	FacilitatorRewards(ctx context.Context, hubID, series, beceYear string, pool float64) (*service.RewardReport, error)
	SigDiffRanking(ctx context.Context, hubID, beceYear string) (*service.RewardReport, error)
	PupilMerit(ctx context.Context, hubID, series string) (*service.PupilMeritReport, error)
}

// RewardHandler exposes the merit and reward rankings.
type RewardHandler struct {
	service rewardService
}

// NewRewardHandler constructs a reward handler.
func NewRewardHandler(svc rewardService) *RewardHandler {
	return &RewardHandler{service: svc}
}

// Facilitators godoc
// @Summary Facilitator reward ranking
// @Description Ranks facilitators by teaching efficiency index and shares the pool
// @Tags Rewards
// @Produce json
// @Security BearerAuth
// @Param series query string false "Series"
// @Param year query string false "BECE year"
// @Param pool query number false "Reward pool"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /rewards/facilitators [get]
func (h *RewardHandler) Facilitators(c *gin.Context) {
	hubID, err := hubFromContext(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	pool := 0.0
	if raw := c.Query("pool"); raw != "" {
		pool, err = strconv.ParseFloat(raw, 64)
		if err != nil {
			response.Error(c, appErrors.Clone(appErrors.ErrValidation, "pool must be a number"))
			return
		}
	}

	report, err := h.service.FacilitatorRewards(c.Request.Context(), hubID, seriesQuery(c), c.Query("year"), pool)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, report, nil)
}

// SigDiff godoc
// @Summary Facilitators by significant difference
// @Tags Rewards
// @Produce json
// @Security BearerAuth
// @Param year query string false "BECE year"
// @Success 200 {object} response.Envelope
// @Router /rewards/sig-diff [get]
func (h *RewardHandler) SigDiff(c *gin.Context) {
	hubID, err := hubFromContext(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	report, err := h.service.SigDiffRanking(c.Request.Context(), hubID, c.Query("year"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, report, nil)
}

// Pupils godoc
// @Summary Pupil merit ranking
// @Tags Rewards
// @Produce json
// @Security BearerAuth
// @Param series query string false "Series"
// @Success 200 {object} response.Envelope
// @Router /rewards/pupils [get]
func (h *RewardHandler) Pupils(c *gin.Context) {
	hubID, err := hubFromContext(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	report, err := h.service.PupilMerit(c.Request.Context(), hubID, seriesQuery(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, report, nil)
}
