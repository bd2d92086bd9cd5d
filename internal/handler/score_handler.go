package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/ssmap-api/internal/models"
	"github.com/noah-isme/ssmap-api/internal/service"
	appErrors "github.com/noah-isme/ssmap-api/pkg/errors"
	"github.com/noah-isme/ssmap-api/pkg/response"
)

const maxRosterBytes = 4 << 20

type scoreService interface {
	Enroll(ctx context.Context, hubID string, req models.EnrollStudentRequest) (*models.Student, error)
	ImportRoster(ctx context.Context, hubID string, payload []byte) (*service.ImportResult, error)
	UpsertScore(ctx context.Context, hubID string, req models.ScoreEntryRequest) (*models.ScoreEntryResult, error)
	BulkUpsert(ctx context.Context, hubID string, req models.BulkScoreRequest) (*models.ScoreEntryResult, error)
	UpdateConduct(ctx context.Context, hubID string, studentID int, req models.ConductUpdateRequest) (*models.Student, error)
	UpdateRemark(ctx context.Context, hubID string, studentID int, req models.RemarkUpdateRequest) (*models.Student, error)
	RecordBece(ctx context.Context, hubID string, studentID int, req models.BeceEntryRequest) (*models.Student, error)
	UpdateFacilitators(ctx context.Context, hubID string, assignments []models.StaffAssignment) (models.Facilitators, error)
}

// ScoreHandler exposes enrolment and score entry endpoints.
type ScoreHandler struct {
	service scoreService
}

// NewScoreHandler constructs a score handler.
func NewScoreHandler(svc scoreService) *ScoreHandler {
	return &ScoreHandler{service: svc}
}

// Enroll godoc
// @Summary Enroll a pupil
// @Tags Students
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param payload body models.EnrollStudentRequest true "Pupil"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /students [post]
func (h *ScoreHandler) Enroll(c *gin.Context) {
	hubID, err := hubFromContext(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	var req models.EnrollStudentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid student payload"))
		return
	}

	student, err := h.service.Enroll(c.Request.Context(), hubID, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, student)
}

// Import godoc
// @Summary Import a roster document
// @Description Accepts a JSON roster validated against the roster schema
// @Tags Students
// @Accept json
// @Produce json
// @Security BearerAuth
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /students/import [post]
func (h *ScoreHandler) Import(c *gin.Context) {
	hubID, err := hubFromContext(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxRosterBytes)
	payload, err := c.GetRawData()
	if err != nil || len(payload) == 0 {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "roster document is required"))
		return
	}

	result, err := h.service.ImportRoster(c.Request.Context(), hubID, payload)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, result)
}

// UpsertScore godoc
// @Summary Record a subject score
// @Description Facilitators may only record scores for the subject they teach
// @Tags Scores
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param payload body models.ScoreEntryRequest true "Score"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /scores [put]
func (h *ScoreHandler) UpsertScore(c *gin.Context) {
	hubID, err := hubFromContext(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	var req models.ScoreEntryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid score payload"))
		return
	}
	if err := checkSubjectAccess(c, req.Subject); err != nil {
		response.Error(c, err)
		return
	}

	result, err := h.service.UpsertScore(c.Request.Context(), hubID, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// BulkUpsert godoc
// @Summary Record many scores
// @Tags Scores
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param payload body models.BulkScoreRequest true "Scores"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /scores/bulk [post]
func (h *ScoreHandler) BulkUpsert(c *gin.Context) {
	hubID, err := hubFromContext(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	var req models.BulkScoreRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid bulk score payload"))
		return
	}
	for _, entry := range req.Entries {
		if err := checkSubjectAccess(c, entry.Subject); err != nil {
			response.Error(c, err)
			return
		}
	}

	result, err := h.service.BulkUpsert(c.Request.Context(), hubID, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// UpdateConduct godoc
// @Summary Record attendance and conduct
// @Tags Students
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Index number"
// @Param payload body models.ConductUpdateRequest true "Conduct"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /students/{id}/conduct [put]
func (h *ScoreHandler) UpdateConduct(c *gin.Context) {
	hubID, studentID, ok := hubAndStudent(c)
	if !ok {
		return
	}
	var req models.ConductUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid conduct payload"))
		return
	}

	student, err := h.service.UpdateConduct(c.Request.Context(), hubID, studentID, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, student, nil)
}

// UpdateRemark godoc
// @Summary Record a facilitator remark
// @Tags Students
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Index number"
// @Param payload body models.RemarkUpdateRequest true "Remark"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /students/{id}/remark [put]
func (h *ScoreHandler) UpdateRemark(c *gin.Context) {
	hubID, studentID, ok := hubAndStudent(c)
	if !ok {
		return
	}
	var req models.RemarkUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid remark payload"))
		return
	}
	if err := checkSubjectAccess(c, req.Subject); err != nil {
		response.Error(c, err)
		return
	}

	student, err := h.service.UpdateRemark(c.Request.Context(), hubID, studentID, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, student, nil)
}

// RecordBece godoc
// @Summary Record final examination grades
// @Tags Students
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Index number"
// @Param payload body models.BeceEntryRequest true "BECE grades"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /students/{id}/bece [put]
func (h *ScoreHandler) RecordBece(c *gin.Context) {
	hubID, studentID, ok := hubAndStudent(c)
	if !ok {
		return
	}
	var req models.BeceEntryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid bece payload"))
		return
	}

	student, err := h.service.RecordBece(c.Request.Context(), hubID, studentID, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, student, nil)
}

// UpdateFacilitators godoc
// @Summary Assign facilitators to subjects
// @Tags Staff
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param payload body []models.StaffAssignment true "Assignments"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /facilitators [put]
func (h *ScoreHandler) UpdateFacilitators(c *gin.Context) {
	hubID, err := hubFromContext(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	var req []models.StaffAssignment
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid facilitator payload"))
		return
	}

	facilitators, err := h.service.UpdateFacilitators(c.Request.Context(), hubID, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, facilitators, nil)
}

// checkSubjectAccess rejects writes by a facilitator outside their taught subject.
func checkSubjectAccess(c *gin.Context, subject string) error {
	taught := facilitatorSubject(c)
	if taught == "" {
		return nil
	}
	if !strings.EqualFold(strings.TrimSpace(subject), taught) {
		return appErrors.Clone(appErrors.ErrForbidden, "facilitators may only record "+taught)
	}
	return nil
}

// hubAndStudent resolves both identifiers, writing the error response on failure.
func hubAndStudent(c *gin.Context) (string, int, bool) {
	hubID, err := hubFromContext(c)
	if err != nil {
		response.Error(c, err)
		return "", 0, false
	}
	studentID, err := studentIDParam(c)
	if err != nil {
		response.Error(c, err)
		return "", 0, false
	}
	return hubID, studentID, true
}
