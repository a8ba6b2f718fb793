package service

import (
	"context"
	"database/sql"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/uni-obs/curricula-api/internal/models"
	appErrors "github.com/uni-obs/curricula-api/pkg/errors"
)

type mockUserRepo struct {
	users         map[string]*models.User
	lastPrograms  []string
	lastCurricula []string
	deleted       []string
}

func (m *mockUserRepo) List(ctx context.Context, filter models.UserFilter) ([]models.User, int, error) {
	return nil, 0, nil
}

func (m *mockUserRepo) FindByID(ctx context.Context, id string) (*models.User, error) {
	if u, ok := m.users[id]; ok {
		return u, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockUserRepo) FindDetailByID(ctx context.Context, id string) (*models.UserDetail, error) {
	u, err := m.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return &models.UserDetail{User: *u}, nil
}

func (m *mockUserRepo) Create(ctx context.Context, user *models.User, programIDs, curriculumIDs []string) error {
	if m.users == nil {
		m.users = make(map[string]*models.User)
	}
	user.ID = "new"
	m.users[user.ID] = user
	m.lastPrograms = programIDs
	m.lastCurricula = curriculumIDs
	return nil
}

func (m *mockUserRepo) Update(ctx context.Context, user *models.User, programIDs, curriculumIDs []string) error {
	m.users[user.ID] = user
	m.lastPrograms = programIDs
	m.lastCurricula = curriculumIDs
	return nil
}

func (m *mockUserRepo) Delete(ctx context.Context, id string) error {
	m.deleted = append(m.deleted, id)
	delete(m.users, id)
	return nil
}

func strPtr(s string) *string { return &s }
func intPtr(i int) *int       { return &i }

func TestCreateStudentRequiresPlacement(t *testing.T) {
	svc := NewUserService(&mockUserRepo{}, validator.New(), zap.NewNop())

	_, err := svc.Create(context.Background(), CreateUserRequest{
		Username: "s1",
		Password: "secret1",
		FullName: "Student One",
		Role:     models.RoleStudent,
	})
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErr.Code)
}

func TestCreateLecturerClearsStudentColumns(t *testing.T) {
	repo := &mockUserRepo{}
	svc := NewUserService(repo, validator.New(), zap.NewNop())

	detail, err := svc.Create(context.Background(), CreateUserRequest{
		Username:              "lect1",
		Password:              "secret1",
		FullName:              "Lecturer One",
		Role:                  models.RoleLecturer,
		StudentGrade:          intPtr(2),
		StudentProgramID:      strPtr("p1"),
		StudentFacultyID:      strPtr("f1"),
		LecturerProgramIDs:    []string{"p1"},
		LecturerCurriculumIDs: []string{"c1", "c2"},
	})
	require.NoError(t, err)
	assert.Nil(t, detail.StudentGrade, "student columns must be cleared for non-students")
	assert.Nil(t, detail.StudentProgramID)
	assert.Nil(t, detail.StudentFacultyID)
	assert.Equal(t, []string{"p1"}, repo.lastPrograms)
	assert.Equal(t, []string{"c1", "c2"}, repo.lastCurricula)
}

func TestCreateStudentClearsLecturerSets(t *testing.T) {
	repo := &mockUserRepo{}
	svc := NewUserService(repo, validator.New(), zap.NewNop())

	detail, err := svc.Create(context.Background(), CreateUserRequest{
		Username:              "s1",
		Password:              "secret1",
		FullName:              "Student One",
		Role:                  models.RoleStudent,
		StudentGrade:          intPtr(3),
		StudentProgramID:      strPtr("p1"),
		StudentFacultyID:      strPtr("f1"),
		LecturerCurriculumIDs: []string{"c1"},
	})
	require.NoError(t, err)
	require.NotNil(t, detail.StudentGrade)
	assert.Equal(t, 3, *detail.StudentGrade)
	assert.Empty(t, repo.lastCurricula, "lecturer sets must be cleared for students")
}

func TestUpdateSuperuserIsForbidden(t *testing.T) {
	repo := &mockUserRepo{users: map[string]*models.User{
		"root": {ID: "root", Username: "root", Role: models.RoleAdmin, Superuser: true},
	}}
	svc := NewUserService(repo, validator.New(), zap.NewNop())

	_, err := svc.Update(context.Background(), "root", UpdateUserRequest{
		Username: "root",
		FullName: "Root",
		Role:     models.RoleAdmin,
		Active:   true,
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
}

func TestDeleteSuperuserIsForbidden(t *testing.T) {
	repo := &mockUserRepo{users: map[string]*models.User{
		"root": {ID: "root", Username: "root", Role: models.RoleAdmin, Superuser: true},
	}}
	svc := NewUserService(repo, validator.New(), zap.NewNop())

	err := svc.Delete(context.Background(), "root")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
	assert.Empty(t, repo.deleted)
}

func TestStudentGradeRangeValidated(t *testing.T) {
	svc := NewUserService(&mockUserRepo{}, validator.New(), zap.NewNop())

	_, err := svc.Create(context.Background(), CreateUserRequest{
		Username:         "s1",
		Password:         "secret1",
		FullName:         "Student One",
		Role:             models.RoleStudent,
		StudentGrade:     intPtr(7),
		StudentProgramID: strPtr("p1"),
		StudentFacultyID: strPtr("f1"),
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}
