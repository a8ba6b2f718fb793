package service

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/uni-obs/curricula-api/internal/models"
	"github.com/uni-obs/curricula-api/internal/repository"
)

type mockProgramOwnership struct {
	ownerships map[string]*repository.ProgramOwnership
}

func (m *mockProgramOwnership) FindOwnership(ctx context.Context, id string) (*repository.ProgramOwnership, error) {
	if o, ok := m.ownerships[id]; ok {
		return o, nil
	}
	return nil, sql.ErrNoRows
}

type mockCurriculumOwnership struct {
	ownerships map[string]*repository.CurriculumOwnership
}

func (m *mockCurriculumOwnership) FindOwnership(ctx context.Context, id string) (*repository.CurriculumOwnership, error) {
	if o, ok := m.ownerships[id]; ok {
		return o, nil
	}
	return nil, sql.ErrNoRows
}

type mockPolicyUsers struct {
	users       map[string]*models.User
	assignments map[string]bool
}

func (m *mockPolicyUsers) FindByID(ctx context.Context, id string) (*models.User, error) {
	if u, ok := m.users[id]; ok {
		return u, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockPolicyUsers) IsAssignedLecturer(ctx context.Context, userID, curriculumID string) (bool, error) {
	return m.assignments[userID+"/"+curriculumID], nil
}

func claimsFor(userID string, role models.UserRole, superuser bool) *models.JWTClaims {
	return &models.JWTClaims{UserID: userID, Role: role, Superuser: superuser}
}

func newTestPolicy() *Policy {
	lecturerID := "lect1"
	responsibleID := "resp1"
	facultyID := "fac1"
	return NewPolicy(
		&mockProgramOwnership{ownerships: map[string]*repository.ProgramOwnership{
			"prog1": {ProgramID: "prog1", FacultyID: facultyID, FacultyResponsibleID: &responsibleID},
		}},
		&mockCurriculumOwnership{ownerships: map[string]*repository.CurriculumOwnership{
			"cur1": {CurriculumID: "cur1", ProgramID: "prog1", LecturerID: &lecturerID},
			"cur2": {CurriculumID: "cur2", ProgramID: "prog1"},
		}},
		&mockPolicyUsers{
			users: map[string]*models.User{
				"fm1": {ID: "fm1", Role: models.RoleFacultyMember, FacultyMemberFacultyID: &facultyID},
				"fm2": {ID: "fm2", Role: models.RoleFacultyMember},
			},
			assignments: map[string]bool{"lect2/cur2": true},
		},
	)
}

func TestPolicyAdminManagesEverything(t *testing.T) {
	policy := newTestPolicy()
	admin := claimsFor("root", models.RoleAdmin, true)

	ok, err := policy.CanManageProgram(context.Background(), admin, "prog1")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = policy.CanManageCurriculum(context.Background(), admin, "cur1")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestPolicyAdminRoleWithoutSuperuserIsNotAdmin(t *testing.T) {
	policy := newTestPolicy()
	claims := claimsFor("half", models.RoleAdmin, false)

	ok, err := policy.CanManageProgram(context.Background(), claims, "prog1")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestPolicyFacultyMemberScope(t *testing.T) {
	policy := newTestPolicy()

	ok, err := policy.CanManageProgram(context.Background(), claimsFor("fm1", models.RoleFacultyMember, false), "prog1")
	require.NoError(t, err)
	assert.True(t, ok, "faculty member of the owning faculty may manage")

	ok, err = policy.CanManageProgram(context.Background(), claimsFor("fm2", models.RoleFacultyMember, false), "prog1")
	require.NoError(t, err)
	assert.False(t, ok, "faculty member of another faculty may not")

	ok, err = policy.CanManageProgram(context.Background(), claimsFor("resp1", models.RoleFacultyMember, false), "prog1")
	require.NoError(t, err)
	assert.True(t, ok, "the faculty responsible may manage")
}

func TestPolicyLecturerScope(t *testing.T) {
	policy := newTestPolicy()

	ok, err := policy.CanManageCurriculum(context.Background(), claimsFor("lect1", models.RoleLecturer, false), "cur1")
	require.NoError(t, err)
	assert.True(t, ok, "direct lecturer may manage")

	ok, err = policy.CanManageCurriculum(context.Background(), claimsFor("lect2", models.RoleLecturer, false), "cur2")
	require.NoError(t, err)
	assert.True(t, ok, "lecturer-set member may manage")

	ok, err = policy.CanManageCurriculum(context.Background(), claimsFor("lect2", models.RoleLecturer, false), "cur1")
	require.NoError(t, err)
	assert.False(t, ok, "unassigned lecturer may not")

	ok, err = policy.CanManageCurriculum(context.Background(), claimsFor("stud1", models.RoleStudent, false), "cur1")
	require.NoError(t, err)
	assert.False(t, ok)
}
