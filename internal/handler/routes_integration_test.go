package handler

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	internalmiddleware "github.com/uni-obs/curricula-api/internal/middleware"
	"github.com/uni-obs/curricula-api/internal/models"
	"github.com/uni-obs/curricula-api/internal/service"
)

type facultyRepoIntegrationMock struct{}

func (facultyRepoIntegrationMock) List(ctx context.Context, search string) ([]models.FacultyDetail, error) {
	return []models.FacultyDetail{{Faculty: models.Faculty{ID: "fac-1", Code: "ENG", Name: "Engineering"}}}, nil
}

func (facultyRepoIntegrationMock) FindDetailByID(ctx context.Context, id string) (*models.FacultyDetail, error) {
	return &models.FacultyDetail{Faculty: models.Faculty{ID: id, Code: "ENG", Name: "Engineering"}}, nil
}

func (facultyRepoIntegrationMock) Create(ctx context.Context, faculty *models.Faculty) error {
	faculty.ID = "fac-new"
	return nil
}

func (facultyRepoIntegrationMock) Update(ctx context.Context, faculty *models.Faculty) error {
	return nil
}

func (facultyRepoIntegrationMock) Delete(ctx context.Context, id string) error {
	return nil
}

type userRepoIntegrationMock struct{}

func (userRepoIntegrationMock) List(ctx context.Context, filter models.UserFilter) ([]models.User, int, error) {
	return []models.User{{ID: "u1", Username: "jdoe", Role: models.RoleLecturer}}, 1, nil
}

func (userRepoIntegrationMock) FindByID(ctx context.Context, id string) (*models.User, error) {
	return &models.User{ID: id, Username: "jdoe", Role: models.RoleLecturer, Active: true}, nil
}

func (userRepoIntegrationMock) FindDetailByID(ctx context.Context, id string) (*models.UserDetail, error) {
	return &models.UserDetail{User: models.User{ID: id, Username: "jdoe", Role: models.RoleLecturer, Active: true}}, nil
}

func (userRepoIntegrationMock) Create(ctx context.Context, user *models.User, programIDs, curriculumIDs []string) error {
	user.ID = "u-new"
	return nil
}

func (userRepoIntegrationMock) Update(ctx context.Context, user *models.User, programIDs, curriculumIDs []string) error {
	return nil
}

func (userRepoIntegrationMock) Delete(ctx context.Context, id string) error {
	return nil
}

func buildGatedRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(func(c *gin.Context) {
		if role := c.GetHeader("X-Test-Role"); role != "" {
			superuser, _ := strconv.ParseBool(c.GetHeader("X-Test-Superuser"))
			c.Set(internalmiddleware.ContextUserKey, &models.JWTClaims{
				UserID:    "test-user",
				Role:      models.UserRole(role),
				Superuser: superuser,
			})
		}
		c.Next()
	})

	userHandler := NewUserHandler(service.NewUserService(userRepoIntegrationMock{}, nil, nil))
	facultyHandler := NewFacultyHandler(service.NewFacultyService(facultyRepoIntegrationMock{}, nil, nil))

	staffOnly := internalmiddleware.RequireRoles(models.RoleStudentAffairs)
	orgRead := internalmiddleware.RequireRoles(models.RoleStudentAffairs, models.RoleFacultyMember, models.RoleLecturer)

	router.GET("/users", staffOnly, userHandler.List)
	router.POST("/users", staffOnly, userHandler.Create)
	router.GET("/faculties", orgRead, facultyHandler.List)
	router.POST("/faculties", staffOnly, facultyHandler.Create)

	return router
}

func serve(router *gin.Engine, req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestRoleGatesIntegration(t *testing.T) {
	router := buildGatedRouter()

	t.Run("unauthenticated request is rejected", func(t *testing.T) {
		req, _ := http.NewRequest(http.MethodGet, "/users", nil)
		resp := serve(router, req)
		require.Equal(t, http.StatusUnauthorized, resp.Code)
	})

	t.Run("student affairs lists users", func(t *testing.T) {
		req, _ := http.NewRequest(http.MethodGet, "/users", nil)
		req.Header.Set("X-Test-Role", string(models.RoleStudentAffairs))
		resp := serve(router, req)
		require.Equal(t, http.StatusOK, resp.Code)
		require.Contains(t, resp.Body.String(), `"jdoe"`)
	})

	t.Run("lecturer cannot list users", func(t *testing.T) {
		req, _ := http.NewRequest(http.MethodGet, "/users", nil)
		req.Header.Set("X-Test-Role", string(models.RoleLecturer))
		resp := serve(router, req)
		require.Equal(t, http.StatusForbidden, resp.Code)
	})

	t.Run("superuser admin passes every gate", func(t *testing.T) {
		req, _ := http.NewRequest(http.MethodGet, "/users", nil)
		req.Header.Set("X-Test-Role", string(models.RoleAdmin))
		req.Header.Set("X-Test-Superuser", "true")
		resp := serve(router, req)
		require.Equal(t, http.StatusOK, resp.Code)
	})

	t.Run("admin role without superuser is blocked", func(t *testing.T) {
		req, _ := http.NewRequest(http.MethodGet, "/users", nil)
		req.Header.Set("X-Test-Role", string(models.RoleAdmin))
		resp := serve(router, req)
		require.Equal(t, http.StatusForbidden, resp.Code)
	})

	t.Run("faculty member reads faculties but cannot create", func(t *testing.T) {
		req, _ := http.NewRequest(http.MethodGet, "/faculties", nil)
		req.Header.Set("X-Test-Role", string(models.RoleFacultyMember))
		resp := serve(router, req)
		require.Equal(t, http.StatusOK, resp.Code)

		payload := `{"code":"SCI","name":"Science"}`
		req, _ = http.NewRequest(http.MethodPost, "/faculties", bytes.NewBufferString(payload))
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("X-Test-Role", string(models.RoleFacultyMember))
		resp = serve(router, req)
		require.Equal(t, http.StatusForbidden, resp.Code)
	})

	t.Run("student affairs creates faculty", func(t *testing.T) {
		payload := `{"code":"SCI","name":"Science"}`
		req, _ := http.NewRequest(http.MethodPost, "/faculties", bytes.NewBufferString(payload))
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("X-Test-Role", string(models.RoleStudentAffairs))
		resp := serve(router, req)
		require.Equal(t, http.StatusCreated, resp.Code)
	})
}
