package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/uni-obs/curricula-api/internal/models"
	"github.com/uni-obs/curricula-api/internal/service"
	appErrors "github.com/uni-obs/curricula-api/pkg/errors"
	"github.com/uni-obs/curricula-api/pkg/response"
)

// CurriculumHandler handles curriculum CRUD, the derived roster and the
// curriculum-scoped collections (learning outcomes, assessments).
type CurriculumHandler struct {
	service     *service.CurriculumService
	outcomes    *service.OutcomeService
	assessments *service.AssessmentService
}

// NewCurriculumHandler creates a new curriculum handler.
func NewCurriculumHandler(svc *service.CurriculumService, outcomes *service.OutcomeService, assessments *service.AssessmentService) *CurriculumHandler {
	return &CurriculumHandler{service: svc, outcomes: outcomes, assessments: assessments}
}

// List godoc
// @Summary List curricula
// @Tags Curricula
// @Produce json
// @Param page query int false "Page number"
// @Param page_size query int false "Page size"
// @Param program_id query string false "Program filter"
// @Param year query int false "Year filter"
// @Param semester query string false "Semester filter"
// @Param search query string false "Search term"
// @Success 200 {object} response.Envelope
// @Router /curricula [get]
func (h *CurriculumHandler) List(c *gin.Context) {
	var filter models.CurriculumFilter

	if page, err := strconv.Atoi(c.DefaultQuery("page", "1")); err == nil {
		filter.Page = page
	}
	if size, err := strconv.Atoi(c.DefaultQuery("page_size", "20")); err == nil {
		filter.PageSize = size
	}
	if year := c.Query("year"); year != "" {
		if val, err := strconv.Atoi(year); err == nil {
			filter.Year = &val
		}
	}
	filter.ProgramID = c.Query("program_id")
	filter.Semester = models.Semester(c.Query("semester"))
	filter.Search = c.Query("search")
	filter.SortBy = c.Query("sort_by")
	filter.SortOrder = c.Query("sort_order")

	curricula, pagination, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, curricula, pagination)
}

// Get godoc
// @Summary Get curriculum
// @Tags Curricula
// @Produce json
// @Param id path string true "Curriculum ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /curricula/{id} [get]
func (h *CurriculumHandler) Get(c *gin.Context) {
	curriculum, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, curriculum, nil)
}

// Students godoc
// @Summary List enrolled students
// @Description Returns the derived roster of the curriculum
// @Tags Curricula
// @Produce json
// @Param id path string true "Curriculum ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /curricula/{id}/students [get]
func (h *CurriculumHandler) Students(c *gin.Context) {
	students, err := h.service.ListStudents(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, students, nil)
}

// Mine godoc
// @Summary List own curricula
// @Description Curricula the lecturer teaches, directly or via the lecturer set
// @Tags Curricula
// @Produce json
// @Success 200 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Router /curricula/mine [get]
func (h *CurriculumHandler) Mine(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	curricula, err := h.service.ListMine(c.Request.Context(), claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, curricula, nil)
}

// Create godoc
// @Summary Create curriculum
// @Description Create a curriculum; the student roster is derived in the same transaction
// @Tags Curricula
// @Accept json
// @Produce json
// @Param payload body service.CurriculumRequest true "Curriculum payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /curricula [post]
func (h *CurriculumHandler) Create(c *gin.Context) {
	var req service.CurriculumRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}

	curriculum, err := h.service.Create(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, curriculum)
}

// Update godoc
// @Summary Update curriculum
// @Description Update a curriculum; the student roster is re-derived in the same transaction
// @Tags Curricula
// @Accept json
// @Produce json
// @Param id path string true "Curriculum ID"
// @Param payload body service.CurriculumRequest true "Curriculum payload"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /curricula/{id} [put]
func (h *CurriculumHandler) Update(c *gin.Context) {
	var req service.CurriculumRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}

	curriculum, err := h.service.Update(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, curriculum, nil)
}

// Delete godoc
// @Summary Delete curriculum
// @Tags Curricula
// @Param id path string true "Curriculum ID"
// @Success 204 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /curricula/{id} [delete]
func (h *CurriculumHandler) Delete(c *gin.Context) {
	if err := h.service.Delete(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}

	response.NoContent(c)
}

// ListLearningOutcomes godoc
// @Summary List learning outcomes
// @Tags Outcomes
// @Produce json
// @Param id path string true "Curriculum ID"
// @Success 200 {object} response.Envelope
// @Router /curricula/{id}/learning-outcomes [get]
func (h *CurriculumHandler) ListLearningOutcomes(c *gin.Context) {
	outcomes, err := h.outcomes.ListLearningOutcomes(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, outcomes, nil)
}

// CreateLearningOutcome godoc
// @Summary Create learning outcome
// @Description Create a learning outcome; requires manage rights on the curriculum
// @Tags Outcomes
// @Accept json
// @Produce json
// @Param id path string true "Curriculum ID"
// @Param payload body service.OutcomeRequest true "Outcome payload"
// @Success 201 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /curricula/{id}/learning-outcomes [post]
func (h *CurriculumHandler) CreateLearningOutcome(c *gin.Context) {
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

	outcome, err := h.outcomes.CreateLearningOutcome(c.Request.Context(), claims, c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, outcome)
}

// ListAssessments godoc
// @Summary List assessments
// @Tags Assessments
// @Produce json
// @Param id path string true "Curriculum ID"
// @Success 200 {object} response.Envelope
// @Router /curricula/{id}/assessments [get]
func (h *CurriculumHandler) ListAssessments(c *gin.Context) {
	assessments, err := h.assessments.ListByCurriculum(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, assessments, nil)
}

// CreateAssessment godoc
// @Summary Create assessment
// @Description Create an assessment; requires manage rights on the curriculum
// @Tags Assessments
// @Accept json
// @Produce json
// @Param id path string true "Curriculum ID"
// @Param payload body service.AssessmentRequest true "Assessment payload"
// @Success 201 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /curricula/{id}/assessments [post]
func (h *CurriculumHandler) CreateAssessment(c *gin.Context) {
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

	assessment, err := h.assessments.Create(c.Request.Context(), claims, c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, assessment)
}
