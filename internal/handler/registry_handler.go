package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/ssmap-api/internal/models"
	appErrors "github.com/noah-isme/ssmap-api/pkg/errors"
	"github.com/noah-isme/ssmap-api/pkg/response"
)

type registryService interface {
	Register(ctx context.Context, req models.RegistrationRequest) (*models.RegistrationResponse, error)
	List(ctx context.Context) ([]models.RegistryEntry, error)
	Get(ctx context.Context, hubID string) (*models.RegistryEntry, error)
	SetStatus(ctx context.Context, hubID string, req models.StatusUpdateRequest) (*models.RegistryEntry, error)
}

// RegistryHandler manages the institution registry.
type RegistryHandler struct {
	service registryService
}

// NewRegistryHandler constructs a registry handler.
func NewRegistryHandler(svc registryService) *RegistryHandler {
	return &RegistryHandler{service: svc}
}

// Register godoc
// @Summary Register institution
// @Description Register a school hub and receive its hub id and access key
// @Tags Registry
// @Accept json
// @Produce json
// @Param payload body models.RegistrationRequest true "Registration payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /registry [post]
func (h *RegistryHandler) Register(c *gin.Context) {
	var req models.RegistrationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid registration payload"))
		return
	}

	res, err := h.service.Register(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, res)
}

// List godoc
// @Summary List institutions
// @Tags Registry
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /registry [get]
func (h *RegistryHandler) List(c *gin.Context) {
	entries, err := h.service.List(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	public := make([]models.RegistryEntry, len(entries))
	for i, e := range entries {
		public[i] = e.Public()
	}
	response.JSON(c, http.StatusOK, public, &models.Pagination{Page: 1, PageSize: len(public), TotalCount: len(public)})
}

// Get godoc
// @Summary Get institution
// @Tags Registry
// @Produce json
// @Security BearerAuth
// @Param id path string true "Hub ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /registry/{id} [get]
func (h *RegistryHandler) Get(c *gin.Context) {
	entry, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, entry.Public(), nil)
}

// SetStatus godoc
// @Summary Suspend or reactivate institution
// @Tags Registry
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Hub ID"
// @Param payload body models.StatusUpdateRequest true "Status payload"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /registry/{id}/status [put]
func (h *RegistryHandler) SetStatus(c *gin.Context) {
	var req models.StatusUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid status payload"))
		return
	}

	entry, err := h.service.SetStatus(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, entry.Public(), nil)
}
