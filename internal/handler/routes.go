package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/uni-obs/curricula-api/internal/middleware"
	"github.com/uni-obs/curricula-api/internal/models"
	"github.com/uni-obs/curricula-api/internal/repository"
	"github.com/uni-obs/curricula-api/internal/service"
)

// Router aggregates the handlers and registers the HTTP surface.
type Router struct {
	Auth        *AuthHandler
	Users       *UserHandler
	Faculties   *FacultyHandler
	Programs    *ProgramHandler
	Curricula   *CurriculumHandler
	Outcomes    *OutcomeHandler
	Assessments *AssessmentHandler
	Dashboard   *DashboardHandler
	Metrics     *MetricsHandler

	AuthService *service.AuthService
	AuditRepo   *repository.TokenRepository
}

// Register wires every route with its role gate. Administrators with the
// superuser flag pass every gate; the RBAC middleware enforces that an admin
// role without the flag does not.
func (rt *Router) Register(r *gin.Engine) {
	authRequired := middleware.JWT(rt.AuthService)

	audit := func(action, resource string) gin.HandlerFunc {
		if rt.AuditRepo == nil {
			return func(c *gin.Context) { c.Next() }
		}
		return middleware.Audit(rt.AuditRepo, action, resource)
	}

	auth := r.Group("/auth")
	{
		auth.POST("/login", rt.Auth.Login)
		auth.POST("/refresh", rt.Auth.Refresh)
		auth.POST("/logout", authRequired, rt.Auth.Logout)
		auth.POST("/change-password", authRequired, rt.Auth.ChangePassword)
		auth.GET("/me", authRequired, rt.Auth.Me)
	}

	staffOnly := middleware.RequireRoles(models.RoleStudentAffairs)
	orgRead := middleware.RequireRoles(models.RoleStudentAffairs, models.RoleFacultyMember, models.RoleLecturer)
	curriculaRead := middleware.RequireRoles(models.RoleStudentAffairs, models.RoleLecturer, models.RoleFacultyMember)
	rosterRead := middleware.RequireRoles(models.RoleStudentAffairs, models.RoleLecturer)
	facultyScoped := middleware.RequireRoles(models.RoleFacultyMember, models.RoleStudentAffairs)
	lecturerScoped := middleware.RequireRoles(models.RoleLecturer, models.RoleFacultyMember, models.RoleStudentAffairs)

	users := r.Group("/users", authRequired, staffOnly)
	{
		users.GET("", rt.Users.List)
		users.POST("", audit("CREATE", "users"), rt.Users.Create)
		users.GET("/:id", rt.Users.Get)
		users.PUT("/:id", audit("UPDATE", "users"), rt.Users.Update)
		users.DELETE("/:id", audit("DELETE", "users"), rt.Users.Delete)
	}

	faculties := r.Group("/faculties", authRequired)
	{
		faculties.GET("", orgRead, rt.Faculties.List)
		faculties.GET("/:id", orgRead, rt.Faculties.Get)
		faculties.POST("", staffOnly, rt.Faculties.Create)
		faculties.PUT("/:id", staffOnly, rt.Faculties.Update)
		faculties.DELETE("/:id", staffOnly, rt.Faculties.Delete)
	}

	programs := r.Group("/programs", authRequired)
	{
		programs.GET("", orgRead, rt.Programs.List)
		programs.GET("/:id", orgRead, rt.Programs.Get)
		programs.POST("", staffOnly, rt.Programs.Create)
		programs.PUT("/:id", staffOnly, rt.Programs.Update)
		programs.DELETE("/:id", staffOnly, rt.Programs.Delete)

		programs.GET("/:id/outcomes", orgRead, rt.Programs.ListOutcomes)
		programs.POST("/:id/outcomes", facultyScoped, rt.Programs.CreateOutcome)
	}

	programOutcomes := r.Group("/program-outcomes", authRequired, facultyScoped)
	{
		programOutcomes.PUT("/:id", rt.Outcomes.UpdateProgramOutcome)
		programOutcomes.DELETE("/:id", rt.Outcomes.DeleteProgramOutcome)
	}

	curricula := r.Group("/curricula", authRequired)
	{
		curricula.GET("", curriculaRead, rt.Curricula.List)
		curricula.GET("/mine", middleware.RequireRoles(models.RoleLecturer), rt.Curricula.Mine)
		curricula.GET("/:id", curriculaRead, rt.Curricula.Get)
		curricula.POST("", staffOnly, audit("CREATE", "curricula"), rt.Curricula.Create)
		curricula.PUT("/:id", staffOnly, audit("UPDATE", "curricula"), rt.Curricula.Update)
		curricula.DELETE("/:id", staffOnly, audit("DELETE", "curricula"), rt.Curricula.Delete)
		curricula.GET("/:id/students", rosterRead, rt.Curricula.Students)

		curricula.GET("/:id/learning-outcomes", curriculaRead, rt.Curricula.ListLearningOutcomes)
		curricula.POST("/:id/learning-outcomes", lecturerScoped, rt.Curricula.CreateLearningOutcome)
		curricula.GET("/:id/assessments", curriculaRead, rt.Curricula.ListAssessments)
		curricula.POST("/:id/assessments", lecturerScoped, rt.Curricula.CreateAssessment)
	}

	learningOutcomes := r.Group("/learning-outcomes", authRequired, lecturerScoped)
	{
		learningOutcomes.PUT("/:id", rt.Outcomes.UpdateLearningOutcome)
		learningOutcomes.DELETE("/:id", rt.Outcomes.DeleteLearningOutcome)
		learningOutcomes.GET("/:id/mappings", rt.Outcomes.ListMappings)
		learningOutcomes.PUT("/:id/mappings", rt.Outcomes.ApplyMappings)
	}

	assessments := r.Group("/assessments", authRequired, lecturerScoped)
	{
		assessments.GET("/:id", rt.Assessments.Get)
		assessments.PUT("/:id", rt.Assessments.Update)
		assessments.DELETE("/:id", rt.Assessments.Delete)
		assessments.GET("/:id/outcomes", rt.Assessments.ListOutcomes)
		assessments.PUT("/:id/outcomes", rt.Assessments.ApplyOutcomes)
		assessments.GET("/:id/grades", rt.Assessments.ListGrades)
		assessments.PUT("/:id/grades", audit("GRADE_BATCH", "assessments"), rt.Assessments.ApplyGrades)
		assessments.GET("/:id/export", rt.Assessments.Export)
	}

	dashboard := r.Group("/dashboard", authRequired)
	{
		dashboard.GET("/landing", rt.Dashboard.Landing)
		dashboard.GET("/student", middleware.RequireRoles(models.RoleStudent), rt.Dashboard.Student)
		dashboard.GET("/student/curricula/:id", middleware.RequireRoles(models.RoleStudent), rt.Dashboard.CourseDetail)
		dashboard.GET("/faculty", middleware.RequireRoles(models.RoleFacultyMember), rt.Dashboard.Faculty)
	}

	r.GET("/metrics", rt.Metrics.Prometheus)
	r.GET("/metrics/summary", rt.Metrics.Summary)
}
