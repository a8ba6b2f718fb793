package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/uni-obs/curricula-api/internal/service"
	appErrors "github.com/uni-obs/curricula-api/pkg/errors"
	"github.com/uni-obs/curricula-api/pkg/response"
)

// DashboardHandler serves the role-scoped read views.
type DashboardHandler struct {
	service *service.DashboardService
}

// NewDashboardHandler creates a new dashboard handler.
func NewDashboardHandler(svc *service.DashboardService) *DashboardHandler {
	return &DashboardHandler{service: svc}
}

// Landing godoc
// @Summary Role landing route
// @Description Returns the route the client should send the authenticated role to
// @Tags Dashboard
// @Produce json
// @Success 200 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Router /dashboard/landing [get]
func (h *DashboardHandler) Landing(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	response.JSON(c, http.StatusOK, h.service.Landing(claims), nil)
}

// Student godoc
// @Summary Student dashboard
// @Description The student's program, grade and derived enrollments
// @Tags Dashboard
// @Produce json
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /dashboard/student [get]
func (h *DashboardHandler) Student(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	dashboard, err := h.service.StudentDashboard(c.Request.Context(), claims)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, dashboard, nil)
}

// CourseDetail godoc
// @Summary Student course detail
// @Description Assessments with own score, percentage, contribution and the weighted outcome breakdown
// @Tags Dashboard
// @Produce json
// @Param id path string true "Curriculum ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /dashboard/student/curricula/{id} [get]
func (h *DashboardHandler) CourseDetail(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	detail, err := h.service.StudentCourseDetail(c.Request.Context(), claims, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, detail, nil)
}

// Faculty godoc
// @Summary Faculty member dashboard
// @Description The member's faculty, its programs and per-program counts
// @Tags Dashboard
// @Produce json
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /dashboard/faculty [get]
func (h *DashboardHandler) Faculty(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	dashboard, err := h.service.FacultyDashboard(c.Request.Context(), claims)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, dashboard, nil)
}
