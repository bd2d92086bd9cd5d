package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/ssmap-api/internal/engine"
	"github.com/noah-isme/ssmap-api/internal/middleware"
	"github.com/noah-isme/ssmap-api/internal/service"
	"github.com/noah-isme/ssmap-api/pkg/response"
)

type aggregationService interface {
	Broadsheet(ctx context.Context, hubID, series string) (*service.Broadsheet, bool, error)
	ReportCard(ctx context.Context, hubID string, studentID int, series string) (*service.ReportCard, error)
	Statistics(ctx context.Context, hubID, series string) (*engine.ClassStatistics, error)
}

type exportService interface {
	Broadsheet(ctx context.Context, hubID, series string, format service.ExportFormat) (*service.ExportFile, error)
	ReportCardPDF(ctx context.Context, hubID string, studentID int, series string) (*service.ExportFile, error)
}

// BroadsheetHandler serves processed class results and their downloads.
type BroadsheetHandler struct {
	aggregation aggregationService
	exports     exportService
}

// NewBroadsheetHandler constructs a broadsheet handler.
func NewBroadsheetHandler(aggregation aggregationService, exports exportService) *BroadsheetHandler {
	return &BroadsheetHandler{aggregation: aggregation, exports: exports}
}

// Broadsheet godoc
// @Summary Class broadsheet
// @Description Normalized composites, grades, best-six aggregates, categories and ranks for a series
// @Tags Results
// @Produce json
// @Security BearerAuth
// @Param series query string false "Series, defaults to the active series"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /broadsheet [get]
func (h *BroadsheetHandler) Broadsheet(c *gin.Context) {
	hubID, err := hubFromContext(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	sheet, hit, err := h.aggregation.Broadsheet(c.Request.Context(), hubID, seriesQuery(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	middleware.SetCacheHit(c, hit)
	middleware.SetSeries(c, sheet.Result.Series)
	response.JSON(c, http.StatusOK, sheet, nil, middleware.ExtractMeta(c))
}

// Export godoc
// @Summary Download the broadsheet
// @Tags Results
// @Produce octet-stream
// @Security BearerAuth
// @Param series query string false "Series"
// @Param format query string false "csv, pdf or xlsx"
// @Success 200 {file} file
// @Failure 400 {object} response.Envelope
// @Router /broadsheet/export [get]
func (h *BroadsheetHandler) Export(c *gin.Context) {
	hubID, err := hubFromContext(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	format, err := service.ParseExportFormat(c.Query("format"))
	if err != nil {
		response.Error(c, err)
		return
	}
	file, err := h.exports.Broadsheet(c.Request.Context(), hubID, seriesQuery(c), format)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Attachment(c, file.Filename, file.ContentType, file.Data)
}

// Statistics godoc
// @Summary Per-subject class statistics
// @Tags Results
// @Produce json
// @Security BearerAuth
// @Param series query string false "Series"
// @Success 200 {object} response.Envelope
// @Router /statistics [get]
func (h *BroadsheetHandler) Statistics(c *gin.Context) {
	hubID, err := hubFromContext(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	stats, err := h.aggregation.Statistics(c.Request.Context(), hubID, seriesQuery(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, stats, nil)
}

// ReportCard godoc
// @Summary Pupil report card
// @Tags Results
// @Produce json
// @Security BearerAuth
// @Param id path int true "Index number"
// @Param series query string false "Series"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /students/{id}/report-card [get]
func (h *BroadsheetHandler) ReportCard(c *gin.Context) {
	hubID, studentID, ok := hubAndStudent(c)
	if !ok {
		return
	}
	card, err := h.aggregation.ReportCard(c.Request.Context(), hubID, studentID, seriesQuery(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, card, nil)
}

// ReportCardPDF godoc
// @Summary Download a pupil report card
// @Tags Results
// @Produce application/pdf
// @Security BearerAuth
// @Param id path int true "Index number"
// @Param series query string false "Series"
// @Success 200 {file} file
// @Failure 404 {object} response.Envelope
// @Router /students/{id}/report-card/pdf [get]
func (h *BroadsheetHandler) ReportCardPDF(c *gin.Context) {
	hubID, studentID, ok := hubAndStudent(c)
	if !ok {
		return
	}
	file, err := h.exports.ReportCardPDF(c.Request.Context(), hubID, studentID, seriesQuery(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Attachment(c, file.Filename, file.ContentType, file.Data)
}
