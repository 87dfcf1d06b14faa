// Package handlers implements the HTTP endpoints of the scoring service.
package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/openprocure/tenderisk/internal/application"
	"github.com/openprocure/tenderisk/internal/application/dto"
	"github.com/openprocure/tenderisk/internal/infrastructure/tabular"
	"github.com/openprocure/tenderisk/pkg/constants"
	"github.com/openprocure/tenderisk/pkg/errors"
	"github.com/openprocure/tenderisk/pkg/logger"
)

// AnalysisHandler serves batch analysis endpoints.
type AnalysisHandler struct {
	service        *application.AnalysisService
	maxUploadBytes int64
	log            logger.Logger
}

// NewAnalysisHandler creates the handler.
func NewAnalysisHandler(service *application.AnalysisService, maxUploadBytes int64, log logger.Logger) *AnalysisHandler {
	return &AnalysisHandler{
		service:        service,
		maxUploadBytes: maxUploadBytes,
		log:            log.WithComponent("analysis_handler"),
	}
}

// Create accepts a CSV upload in the "file" form field, scores it, and
// returns the full analysis.
func (h *AnalysisHandler) Create(c *gin.Context) {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		respondError(c, errors.New(constants.ErrCodeInvalidArgument, "missing file upload"))
		return
	}
	if h.maxUploadBytes > 0 && fileHeader.Size > h.maxUploadBytes {
		respondError(c, errors.Newf(constants.ErrCodeInvalidArgument,
			"upload exceeds %d bytes", h.maxUploadBytes))
		return
	}

	var cutoff *int
	if raw := c.PostForm("high_risk_cutoff"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil {
			respondError(c, errors.New(constants.ErrCodeInvalidArgument, "high_risk_cutoff must be an integer"))
			return
		}
		cutoff = &v
	}

	f, err := fileHeader.Open()
	if err != nil {
		respondError(c, errors.Wrap(err, constants.ErrCodeInvalidArgument, "open upload"))
		return
	}
	defer f.Close()

	table, err := tabular.ReadTable(f)
	if err != nil {
		respondError(c, err)
		return
	}

	analysis, err := h.service.Analyze(c.Request.Context(), table, cutoff)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, dto.FromAnalysis(analysis))
}

// Get returns a stored analysis.
func (h *AnalysisHandler) Get(c *gin.Context) {
	analysis, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.FromAnalysis(analysis))
}

// rethresholdRequest is the body of a threshold update.
type rethresholdRequest struct {
	HighRiskCutoff int `json:"high_risk_cutoff" binding:"required"`
}

// Rethreshold regenerates profiles under a new high risk cutoff.
func (h *AnalysisHandler) Rethreshold(c *gin.Context) {
	var req rethresholdRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, errors.New(constants.ErrCodeInvalidArgument, "high_risk_cutoff is required"))
		return
	}
	analysis, err := h.service.Rethreshold(c.Request.Context(), c.Param("id"), req.HighRiskCutoff)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.FromAnalysis(analysis))
}

// Report returns the plain-text audit summary.
func (h *AnalysisHandler) Report(c *gin.Context) {
	report, err := h.service.Report(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.String(http.StatusOK, report)
}

// Export streams the scored batch as CSV.
func (h *AnalysisHandler) Export(c *gin.Context) {
	id := c.Param("id")
	c.Header("Content-Type", "text/csv")
	c.Header("Content-Disposition", `attachment; filename="analysis-`+id+`.csv"`)
	if err := h.service.ExportCSV(c.Request.Context(), id, c.Writer); err != nil {
		// Headers may already be written; log and surface what we can.
		h.log.Error(c.Request.Context(), "csv export failed", err,
			logger.String("analysis_id", id))
		if c.Writer.Written() {
			return
		}
		respondError(c, err)
	}
}

// Explain streams a narrative explanation for one record.
func (h *AnalysisHandler) Explain(c *gin.Context) {
	id := c.Param("id")
	contractID := c.Param("contract_id")
	c.Header("Content-Type", "text/plain; charset=utf-8")
	c.Header("X-Accel-Buffering", "no")
	if err := h.service.Explain(c.Request.Context(), id, contractID, c.Writer); err != nil {
		h.log.Warn(c.Request.Context(), "explanation failed",
			logger.String("analysis_id", id),
			logger.String("contract_id", contractID),
			logger.String("reason", err.Error()))
		if c.Writer.Written() {
			return
		}
		respondError(c, err)
	}
}

// respondError maps an error onto the uniform error body.
func respondError(c *gin.Context, err error) {
	_ = c.Error(err)
	appErr, ok := errors.AsAppError(err)
	if !ok {
		appErr = errors.Wrap(err, constants.ErrCodeInternal, "internal error")
	}
	c.JSON(appErr.HTTPStatus(), dto.ErrorResponse{
		Code:    string(appErr.Code()),
		Message: appErr.Error(),
	})
}
