package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/uni-obs/curricula-api/internal/models"
	appErrors "github.com/uni-obs/curricula-api/pkg/errors"
)

type dashboardUserRepository interface {
	FindByID(ctx context.Context, id string) (*models.User, error)
}

type dashboardRosterRepository interface {
	ListCurriculaForStudent(ctx context.Context, studentID string) ([]models.CurriculumDetail, error)
	IsEnrolled(ctx context.Context, studentID, curriculumID string) (bool, error)
}

type dashboardProgramRepository interface {
	FindByID(ctx context.Context, id string) (*models.Program, error)
	ListByFaculty(ctx context.Context, facultyID string) ([]models.FacultyDashboardRow, error)
}

type dashboardFacultyRepository interface {
	FindDetailByID(ctx context.Context, id string) (*models.FacultyDetail, error)
	FindByResponsible(ctx context.Context, userID string) (*models.FacultyDetail, error)
}

type dashboardCurriculumRepository interface {
	FindDetailByID(ctx context.Context, id string) (*models.CurriculumDetail, error)
}

type dashboardAssessmentRepository interface {
	ListByCurriculum(ctx context.Context, curriculumID string) ([]models.Assessment, error)
	ListMappedLearningOutcomes(ctx context.Context, assessmentID string) ([]models.MappedLearningOutcome, error)
	ListResultsForStudentByCurriculum(ctx context.Context, studentID, curriculumID string) ([]models.StudentAssessmentResult, error)
}

type dashboardOutcomeRepository interface {
	ListMappedProgramOutcomes(ctx context.Context, learningOutcomeID string) ([]models.MappedProgramOutcome, error)
}

// Landing routes per role.
var roleRoutes = map[models.UserRole]string{
	models.RoleAdmin:          "/admin",
	models.RoleStudentAffairs: "/users",
	models.RoleFacultyMember:  "/dashboard/faculty",
	models.RoleLecturer:       "/curricula/mine",
	models.RoleStudent:        "/dashboard/student",
}

// DashboardService composes the role-scoped read views. Student payloads are
// served through a TTL-bounded cache.
type DashboardService struct {
	users       dashboardUserRepository
	roster      dashboardRosterRepository
	programs    dashboardProgramRepository
	faculties   dashboardFacultyRepository
	curricula   dashboardCurriculumRepository
	assessments dashboardAssessmentRepository
	outcomes    dashboardOutcomeRepository
	cache       *CacheService
	cacheTTL    time.Duration
	logger      *zap.Logger
}

// DashboardServiceParams groups constructor dependencies.
type DashboardServiceParams struct {
	Users       dashboardUserRepository
	Roster      dashboardRosterRepository
	Programs    dashboardProgramRepository
	Faculties   dashboardFacultyRepository
	Curricula   dashboardCurriculumRepository
	Assessments dashboardAssessmentRepository
	Outcomes    dashboardOutcomeRepository
	Cache       *CacheService
	CacheTTL    time.Duration
	Logger      *zap.Logger
}

// NewDashboardService constructs the dashboard service.
func NewDashboardService(params DashboardServiceParams) *DashboardService {
	logger := params.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DashboardService{
		users:       params.Users,
		roster:      params.Roster,
		programs:    params.Programs,
		faculties:   params.Faculties,
		curricula:   params.Curricula,
		assessments: params.Assessments,
		outcomes:    params.Outcomes,
		cache:       params.Cache,
		cacheTTL:    params.CacheTTL,
		logger:      logger,
	}
}

// Landing returns the route a client should send the authenticated role to.
func (s *DashboardService) Landing(claims *models.JWTClaims) models.Landing {
	route, ok := roleRoutes[claims.Role]
	if !ok {
		route = "/"
	}
	return models.Landing{Role: claims.Role, Route: route}
}

// StudentDashboard returns the student's program, grade and derived
// enrollments.
func (s *DashboardService) StudentDashboard(ctx context.Context, claims *models.JWTClaims) (*models.StudentDashboard, error) {
	cacheKey := fmt.Sprintf("dashboard:student:%s", claims.UserID)
	var cached models.StudentDashboard
	if hit, _ := s.cache.Get(ctx, cacheKey, &cached); hit {
		return &cached, nil
	}

	user, err := s.users.FindByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "user not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load user")
	}
	if !user.IsStudent() {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "student dashboard is only available to students")
	}

	dashboard := &models.StudentDashboard{
		Student: models.UserInfo{
			ID:        user.ID,
			Username:  user.Username,
			FullName:  user.FullName,
			Role:      user.Role,
			Superuser: user.Superuser,
		},
		Grade:     user.StudentGrade,
		Curricula: []models.CurriculumDetail{},
	}
	if user.StudentProgramID != nil {
		program, err := s.programs.FindByID(ctx, *user.StudentProgramID)
		if err != nil && !errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load program")
		}
		dashboard.Program = program
	}

	curricula, err := s.roster.ListCurriculaForStudent(ctx, user.ID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load enrollments")
	}
	if curricula != nil {
		dashboard.Curricula = curricula
	}

	if err := s.cache.Set(ctx, cacheKey, dashboard, s.cacheTTL); err != nil {
		s.logger.Debug("student dashboard cache write failed", zap.Error(err))
	}
	return dashboard, nil
}

// StudentCourseDetail returns the student's view of one enrolled curriculum:
// every assessment with the own score, percentage and contribution, plus the
// weighted LO→PO breakdown. Curricula outside the student's enrollments are
// not found.
func (s *DashboardService) StudentCourseDetail(ctx context.Context, claims *models.JWTClaims, curriculumID string) (*models.CourseDetail, error) {
	cacheKey := fmt.Sprintf("dashboard:student:%s:course:%s", claims.UserID, curriculumID)
	var cached models.CourseDetail
	if hit, _ := s.cache.Get(ctx, cacheKey, &cached); hit {
		return &cached, nil
	}

	enrolled, err := s.roster.IsEnrolled(ctx, claims.UserID, curriculumID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check enrollment")
	}
	if !enrolled {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "curriculum not found")
	}

	curriculum, err := s.curricula.FindDetailByID(ctx, curriculumID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "curriculum not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load curriculum")
	}

	assessments, err := s.assessments.ListByCurriculum(ctx, curriculumID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load assessments")
	}
	results, err := s.assessments.ListResultsForStudentByCurriculum(ctx, claims.UserID, curriculumID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load results")
	}
	scores := make(map[string]*float64, len(results))
	for _, result := range results {
		scores[result.AssessmentID] = result.RawScore
	}

	detail := &models.CourseDetail{
		Curriculum:  *curriculum,
		Assessments: make([]models.CourseAssessment, 0, len(assessments)),
	}
	for _, assessment := range assessments {
		raw := scores[assessment.ID]
		entry := models.CourseAssessment{
			Assessment:   assessment,
			RawScore:     raw,
			Percentage:   scorePercentage(raw, assessment.MaxScore),
			Contribution: scoreContribution(raw, assessment.MaxScore, assessment.WeightInCourse),
			Outcomes:     []models.CourseOutcomeMapping{},
		}

		mapped, err := s.assessments.ListMappedLearningOutcomes(ctx, assessment.ID)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load outcome mappings")
		}
		for _, lo := range mapped {
			if lo.Weight == nil {
				continue
			}
			mapping := models.CourseOutcomeMapping{
				LearningOutcomeCode:  lo.Code,
				LearningOutcomeTitle: lo.ShortTitle,
				WeightInAssessment:   *lo.Weight,
				ProgramOutcomes:      []models.WeightedOutcome{},
			}
			pos, err := s.outcomes.ListMappedProgramOutcomes(ctx, lo.ID)
			if err != nil {
				return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load program outcome links")
			}
			for _, po := range pos {
				if po.Weight == nil {
					continue
				}
				mapping.ProgramOutcomes = append(mapping.ProgramOutcomes, models.WeightedOutcome{
					Code:       po.Code,
					ShortTitle: po.ShortTitle,
					Weight:     *po.Weight,
				})
			}
			entry.Outcomes = append(entry.Outcomes, mapping)
		}
		detail.Assessments = append(detail.Assessments, entry)
	}

	if err := s.cache.Set(ctx, cacheKey, detail, s.cacheTTL); err != nil {
		s.logger.Debug("course detail cache write failed", zap.Error(err))
	}
	return detail, nil
}

// FacultyDashboard returns the faculty member's read-only view: their
// faculty, its programs and per-program outcome and curriculum counts.
func (s *DashboardService) FacultyDashboard(ctx context.Context, claims *models.JWTClaims) (*models.FacultyDashboard, error) {
	user, err := s.users.FindByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "user not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load user")
	}

	var faculty *models.FacultyDetail
	switch {
	case user.FacultyMemberFacultyID != nil:
		faculty, err = s.faculties.FindDetailByID(ctx, *user.FacultyMemberFacultyID)
	default:
		faculty, err = s.faculties.FindByResponsible(ctx, user.ID)
	}
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "no faculty assigned")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load faculty")
	}

	rows, err := s.programs.ListByFaculty(ctx, faculty.ID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load faculty programs")
	}
	if rows == nil {
		rows = []models.FacultyDashboardRow{}
	}
	return &models.FacultyDashboard{Faculty: *faculty, Programs: rows}, nil
}
