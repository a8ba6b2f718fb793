package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/uni-obs/curricula-api/internal/service"
	appErrors "github.com/uni-obs/curricula-api/pkg/errors"
	"github.com/uni-obs/curricula-api/pkg/response"
)

// OutcomeHandler handles id-addressed outcome endpoints and the LO→PO
// mapping batch.
type OutcomeHandler struct {
	service *service.OutcomeService
}

// NewOutcomeHandler creates a new outcome handler.
func NewOutcomeHandler(svc *service.OutcomeService) *OutcomeHandler {
	return &OutcomeHandler{service: svc}
}

// UpdateProgramOutcome godoc
// @Summary Update program outcome
// @Tags Outcomes
// @Accept json
// @Produce json
// @Param id path string true "Program outcome ID"
// @Param payload body service.OutcomeRequest true "Outcome payload"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /program-outcomes/{id} [put]
func (h *OutcomeHandler) UpdateProgramOutcome(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req service.OutcomeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}

	outcome, err := h.service.UpdateProgramOutcome(c.Request.Context(), claims, c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, outcome, nil)
}

// DeleteProgramOutcome godoc
// @Summary Delete program outcome
// @Tags Outcomes
// @Param id path string true "Program outcome ID"
// @Success 204 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /program-outcomes/{id} [delete]
func (h *OutcomeHandler) DeleteProgramOutcome(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	if err := h.service.DeleteProgramOutcome(c.Request.Context(), claims, c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}

	response.NoContent(c)
}

// UpdateLearningOutcome godoc
// @Summary Update learning outcome
// @Tags Outcomes
// @Accept json
// @Produce json
// @Param id path string true "Learning outcome ID"
// @Param payload body service.OutcomeRequest true "Outcome payload"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /learning-outcomes/{id} [put]
func (h *OutcomeHandler) UpdateLearningOutcome(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req service.OutcomeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}

	outcome, err := h.service.UpdateLearningOutcome(c.Request.Context(), claims, c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, outcome, nil)
}

// DeleteLearningOutcome godoc
// @Summary Delete learning outcome
// @Tags Outcomes
// @Param id path string true "Learning outcome ID"
// @Success 204 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /learning-outcomes/{id} [delete]
func (h *OutcomeHandler) DeleteLearningOutcome(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	if err := h.service.DeleteLearningOutcome(c.Request.Context(), claims, c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}

	response.NoContent(c)
}

// ListMappings godoc
// @Summary List LO to PO mappings
// @Description The program's outcomes with the learning outcome's current weight per row
// @Tags Outcomes
// @Produce json
// @Param id path string true "Learning outcome ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /learning-outcomes/{id}/mappings [get]
func (h *OutcomeHandler) ListMappings(c *gin.Context) {
	mappings, err := h.service.ListMappedProgramOutcomes(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, mappings, nil)
}

// ApplyMappings godoc
// @Summary Apply LO to PO mapping batch
// @Description Upserts, clamps and removals per the submitted weight cells; malformed rows are skipped
// @Tags Outcomes
// @Accept json
// @Produce json
// @Param id path string true "Learning outcome ID"
// @Param payload body service.MappingBatchRequest true "Mapping batch"
// @Success 204 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /learning-outcomes/{id}/mappings [put]
func (h *OutcomeHandler) ApplyMappings(c *gin.Context) {
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
