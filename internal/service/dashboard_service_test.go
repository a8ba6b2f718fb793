package service

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/uni-obs/curricula-api/internal/models"
	appErrors "github.com/uni-obs/curricula-api/pkg/errors"
)

type mockDashUsers struct {
	users map[string]*models.User
}

func (m *mockDashUsers) FindByID(ctx context.Context, id string) (*models.User, error) {
	if u, ok := m.users[id]; ok {
		return u, nil
	}
	return nil, sql.ErrNoRows
}

type mockDashRoster struct {
	curricula  map[string][]models.CurriculumDetail
	enrollment map[string]bool
}

func (m *mockDashRoster) ListCurriculaForStudent(ctx context.Context, studentID string) ([]models.CurriculumDetail, error) {
	return m.curricula[studentID], nil
}

func (m *mockDashRoster) IsEnrolled(ctx context.Context, studentID, curriculumID string) (bool, error) {
	return m.enrollment[studentID+"/"+curriculumID], nil
}

type mockDashPrograms struct {
	programs map[string]*models.Program
	rows     map[string][]models.FacultyDashboardRow
}

func (m *mockDashPrograms) FindByID(ctx context.Context, id string) (*models.Program, error) {
	if p, ok := m.programs[id]; ok {
		return p, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockDashPrograms) ListByFaculty(ctx context.Context, facultyID string) ([]models.FacultyDashboardRow, error) {
	return m.rows[facultyID], nil
}

type mockDashFaculties struct {
	faculties map[string]*models.FacultyDetail
}

func (m *mockDashFaculties) FindDetailByID(ctx context.Context, id string) (*models.FacultyDetail, error) {
	if f, ok := m.faculties[id]; ok {
		return f, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockDashFaculties) FindByResponsible(ctx context.Context, userID string) (*models.FacultyDetail, error) {
	for _, f := range m.faculties {
		if f.ResponsibleID != nil && *f.ResponsibleID == userID {
			return f, nil
		}
	}
	return nil, sql.ErrNoRows
}

type mockDashCurricula struct {
	curricula map[string]*models.CurriculumDetail
}

func (m *mockDashCurricula) FindDetailByID(ctx context.Context, id string) (*models.CurriculumDetail, error) {
	if c, ok := m.curricula[id]; ok {
		return c, nil
	}
	return nil, sql.ErrNoRows
}

type mockDashAssessments struct {
	assessments map[string][]models.Assessment
	mapped      map[string][]models.MappedLearningOutcome
	results     map[string][]models.StudentAssessmentResult
}

func (m *mockDashAssessments) ListByCurriculum(ctx context.Context, curriculumID string) ([]models.Assessment, error) {
	return m.assessments[curriculumID], nil
}

func (m *mockDashAssessments) ListMappedLearningOutcomes(ctx context.Context, assessmentID string) ([]models.MappedLearningOutcome, error) {
	return m.mapped[assessmentID], nil
}

func (m *mockDashAssessments) ListResultsForStudentByCurriculum(ctx context.Context, studentID, curriculumID string) ([]models.StudentAssessmentResult, error) {
	return m.results[studentID+"/"+curriculumID], nil
}

type mockDashOutcomes struct {
	mapped map[string][]models.MappedProgramOutcome
}

func (m *mockDashOutcomes) ListMappedProgramOutcomes(ctx context.Context, learningOutcomeID string) ([]models.MappedProgramOutcome, error) {
	return m.mapped[learningOutcomeID], nil
}

func weightPtr(w int) *int { return &w }

func newDashboardFixture() *DashboardService {
	grade := 2
	programID := "p1"
	score := 85.5
	return NewDashboardService(DashboardServiceParams{
		Users: &mockDashUsers{users: map[string]*models.User{
			"stud1": {ID: "stud1", Username: "stud1", FullName: "Student One", Role: models.RoleStudent,
				StudentGrade: &grade, StudentProgramID: &programID},
			"fm1": {ID: "fm1", Username: "fm1", FullName: "Faculty Member", Role: models.RoleFacultyMember,
				FacultyMemberFacultyID: strPtr("fac1")},
		}},
		Roster: &mockDashRoster{
			curricula: map[string][]models.CurriculumDetail{"stud1": {
				{Curriculum: models.Curriculum{ID: "c1", Code: "CENG201"}},
			}},
			enrollment: map[string]bool{"stud1/c1": true},
		},
		Programs: &mockDashPrograms{
			programs: map[string]*models.Program{"p1": {ID: "p1", Code: "CENG"}},
			rows: map[string][]models.FacultyDashboardRow{"fac1": {
				{Program: models.Program{ID: "p1", Code: "CENG"}, OutcomeCount: 8, CurriculumCount: 12},
			}},
		},
		Faculties: &mockDashFaculties{faculties: map[string]*models.FacultyDetail{
			"fac1": {Faculty: models.Faculty{ID: "fac1", Code: "ENG"}},
		}},
		Curricula: &mockDashCurricula{curricula: map[string]*models.CurriculumDetail{
			"c1": {Curriculum: models.Curriculum{ID: "c1", Code: "CENG201", ProgramID: "p1"}},
		}},
		Assessments: &mockDashAssessments{
			assessments: map[string][]models.Assessment{"c1": {
				{ID: "a1", CurriculumID: "c1", Name: "Midterm", Type: models.AssessmentMidterm, WeightInCourse: 30, MaxScore: 100},
				{ID: "a2", CurriculumID: "c1", Name: "Broken", Type: models.AssessmentOther, WeightInCourse: 10, MaxScore: 0},
			}},
			mapped: map[string][]models.MappedLearningOutcome{"a1": {
				{LearningOutcome: models.LearningOutcome{ID: "lo1", Code: "LO1", ShortTitle: "Model"}, Weight: weightPtr(60)},
				{LearningOutcome: models.LearningOutcome{ID: "lo2", Code: "LO2"}},
			}},
			results: map[string][]models.StudentAssessmentResult{"stud1/c1": {
				{AssessmentID: "a1", StudentID: "stud1", RawScore: floatPtr(85.5)},
				{AssessmentID: "a2", StudentID: "stud1", RawScore: &score},
			}},
		},
		Outcomes: &mockDashOutcomes{mapped: map[string][]models.MappedProgramOutcome{
			"lo1": {
				{ProgramOutcome: models.ProgramOutcome{ID: "po1", Code: "PO1", ShortTitle: "Engineering"}, Weight: weightPtr(40)},
				{ProgramOutcome: models.ProgramOutcome{ID: "po2", Code: "PO2"}},
			},
		}},
		Logger: zap.NewNop(),
	})
}

func floatPtr(f float64) *float64 { return &f }

func TestLandingRoutesPerRole(t *testing.T) {
	svc := newDashboardFixture()

	cases := map[models.UserRole]string{
		models.RoleAdmin:          "/admin",
		models.RoleStudentAffairs: "/users",
		models.RoleFacultyMember:  "/dashboard/faculty",
		models.RoleLecturer:       "/curricula/mine",
		models.RoleStudent:        "/dashboard/student",
	}
	for role, route := range cases {
		landing := svc.Landing(&models.JWTClaims{Role: role})
		assert.Equal(t, route, landing.Route)
	}
}

func TestStudentDashboardListsEnrollments(t *testing.T) {
	svc := newDashboardFixture()

	dashboard, err := svc.StudentDashboard(context.Background(), &models.JWTClaims{UserID: "stud1", Role: models.RoleStudent})
	require.NoError(t, err)
	require.NotNil(t, dashboard.Program)
	assert.Equal(t, "CENG", dashboard.Program.Code)
	require.NotNil(t, dashboard.Grade)
	assert.Equal(t, 2, *dashboard.Grade)
	require.Len(t, dashboard.Curricula, 1)
	assert.Equal(t, "CENG201", dashboard.Curricula[0].Code)
}

func TestStudentDashboardRejectsOtherRoles(t *testing.T) {
	svc := newDashboardFixture()

	_, err := svc.StudentDashboard(context.Background(), &models.JWTClaims{UserID: "fm1", Role: models.RoleFacultyMember})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
}

func TestCourseDetailComputesContribution(t *testing.T) {
	svc := newDashboardFixture()

	detail, err := svc.StudentCourseDetail(context.Background(), &models.JWTClaims{UserID: "stud1", Role: models.RoleStudent}, "c1")
	require.NoError(t, err)
	require.Len(t, detail.Assessments, 2)

	midterm := detail.Assessments[0]
	require.NotNil(t, midterm.Contribution)
	assert.InDelta(t, 25.65, *midterm.Contribution, 1e-9)
	require.NotNil(t, midterm.Percentage)
	assert.InDelta(t, 85.5, *midterm.Percentage, 1e-9)

	require.Len(t, midterm.Outcomes, 1, "unmapped learning outcomes are omitted")
	assert.Equal(t, "LO1", midterm.Outcomes[0].LearningOutcomeCode)
	assert.Equal(t, 60, midterm.Outcomes[0].WeightInAssessment)
	require.Len(t, midterm.Outcomes[0].ProgramOutcomes, 1)
	assert.Equal(t, "PO1", midterm.Outcomes[0].ProgramOutcomes[0].Code)

	broken := detail.Assessments[1]
	assert.Nil(t, broken.Percentage, "zero max score must not divide")
	assert.Nil(t, broken.Contribution)
}

func TestCourseDetailOutsideEnrollmentIsNotFound(t *testing.T) {
	svc := newDashboardFixture()

	_, err := svc.StudentCourseDetail(context.Background(), &models.JWTClaims{UserID: "stud1", Role: models.RoleStudent}, "c9")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestFacultyDashboard(t *testing.T) {
	svc := newDashboardFixture()

	dashboard, err := svc.FacultyDashboard(context.Background(), &models.JWTClaims{UserID: "fm1", Role: models.RoleFacultyMember})
	require.NoError(t, err)
	assert.Equal(t, "ENG", dashboard.Faculty.Code)
	require.Len(t, dashboard.Programs, 1)
	assert.Equal(t, 8, dashboard.Programs[0].OutcomeCount)
	assert.Equal(t, 12, dashboard.Programs[0].CurriculumCount)
}
