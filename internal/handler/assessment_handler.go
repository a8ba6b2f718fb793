package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/uni-obs/curricula-api/internal/service"
	appErrors "github.com/uni-obs/curricula-api/pkg/errors"
	"github.com/uni-obs/curricula-api/pkg/response"
)

// AssessmentHandler handles id-addressed assessment endpoints, outcome
// mappings, the grade sheet and its export.
type AssessmentHandler struct {
	service *service.AssessmentService
	export  *service.ExportService
}

// NewAssessmentHandler creates a new assessment handler.
func NewAssessmentHandler(svc *service.AssessmentService, export *service.ExportService) *AssessmentHandler {
	return &AssessmentHandler{service: svc, export: export}
}

// Get godoc
// @Summary Get assessment
// @Tags Assessments
// @Produce json
// @Param id path string true "Assessment ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /assessments/{id} [get]
func (h *AssessmentHandler) Get(c *gin.Context) {
	assessment, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, assessment, nil)
}

// Update godoc
// @Summary Update assessment
// @Tags Assessments
// @Accept json
// @Produce json
// @Param id path string true "Assessment ID"
// @Param payload body service.AssessmentRequest true "Assessment payload"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /assessments/{id} [put]
func (h *AssessmentHandler) Update(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req service.AssessmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}

	assessment, err := h.service.Update(c.Request.Context(), claims, c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, assessment, nil)
}

// Delete godoc
// @Summary Delete assessment
// @Tags Assessments
// @Param id path string true "Assessment ID"
// @Success 204 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /assessments/{id} [delete]
func (h *AssessmentHandler) Delete(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	if err := h.service.Delete(c.Request.Context(), claims, c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}

	response.NoContent(c)
}

// ListOutcomes godoc
// @Summary List assessment outcome mappings
// @Description The curriculum's learning outcomes with the assessment's current weight per row
// @Tags Assessments
// @Produce json
// @Param id path string true "Assessment ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /assessments/{id}/outcomes [get]
func (h *AssessmentHandler) ListOutcomes(c *gin.Context) {
	mappings, err := h.service.ListMappedLearningOutcomes(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, mappings, nil)
}

// ApplyOutcomes godoc
// @Summary Apply assessment to LO mapping batch
// @Description Upserts, clamps and removals per the submitted weight cells; malformed rows are skipped
// @Tags Assessments
// @Accept json
// @Produce json
// @Param id path string true "Assessment ID"
// @Param payload body service.MappingBatchRequest true "Mapping batch"
// @Success 204 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /assessments/{id}/outcomes [put]
func (h *AssessmentHandler) ApplyOutcomes(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req service.MappingBatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}

	if err := h.service.ApplyMappings(c.Request.Context(), claims, c.Param("id"), req); err != nil {
		response.Error(c, err)
		return
	}

	response.NoContent(c)
}

// ListGrades godoc
// @Summary List grade sheet
// @Description The full roster of the assessment's curriculum with current scores
// @Tags Grades
// @Produce json
// @Param id path string true "Assessment ID"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /assessments/{id}/grades [get]
func (h *AssessmentHandler) ListGrades(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	rows, err := h.service.ListGrades(c.Request.Context(), claims, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, rows, nil)
}

// ApplyGrades godoc
// @Summary Apply grade batch
// @Description Blank and unparsable cells are skipped, off-roster students ignored, the rest upserted in one transaction
// @Tags Grades
// @Accept json
// @Produce json
// @Param id path string true "Assessment ID"
// @Param payload body service.GradeBatchRequest true "Grade batch"
// @Success 204 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /assessments/{id}/grades [put]
func (h *AssessmentHandler) ApplyGrades(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req service.GradeBatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}

	if err := h.service.ApplyGrades(c.Request.Context(), claims, c.Param("id"), req); err != nil {
		response.Error(c, err)
		return
	}

	response.NoContent(c)
}

// Export godoc
// @Summary Export grade sheet
// @Description Renders the roster with scores, percentages and contributions as CSV or PDF
// @Tags Grades
// @Produce octet-stream
// @Param id path string true "Assessment ID"
// @Param format query string false "csv or pdf" default(csv)
// @Success 200 {file} binary
// @Failure 400 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /assessments/{id}/export [get]
func (h *AssessmentHandler) Export(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	if h.export == nil {
		response.Error(c, appErrors.Clone(appErrors.ErrNotFound, "exports are disabled"))
		return
	}

	format := service.ExportFormat(c.DefaultQuery("format", "csv"))
	sheet, err := h.export.GradeSheet(c.Request.Context(), claims, c.Param("id"), format)
	if err != nil {
		response.Error(c, err)
		return
	}

	c.Header("Content-Disposition", `attachment; filename="`+sheet.Filename+`"`)
	c.Data(http.StatusOK, sheet.ContentType, sheet.Payload)
}
