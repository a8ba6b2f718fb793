package service

import (
	"context"
	"database/sql"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/uni-obs/curricula-api/internal/models"
	"github.com/uni-obs/curricula-api/pkg/database"
	appErrors "github.com/uni-obs/curricula-api/pkg/errors"
)

type assessmentRepository interface {
	ListByCurriculum(ctx context.Context, curriculumID string) ([]models.Assessment, error)
	FindByID(ctx context.Context, id string) (*models.Assessment, error)
	Create(ctx context.Context, assessment *models.Assessment) error
	Update(ctx context.Context, assessment *models.Assessment) error
	Delete(ctx context.Context, id string) error

	ListMappings(ctx context.Context, assessmentID string) ([]models.AssessmentMapping, error)
	ListMappedLearningOutcomes(ctx context.Context, assessmentID string) ([]models.MappedLearningOutcome, error)
	ApplyMappings(ctx context.Context, assessmentID string, upserts []models.AssessmentMapping, removals []string) error

	ListGradeRows(ctx context.Context, assessmentID string) ([]models.GradeRow, error)
	UpsertResults(ctx context.Context, assessmentID string, results []models.StudentAssessmentResult) error
}

// AssessmentRequest holds payload for creating and updating assessments.
type AssessmentRequest struct {
	Name           string                `json:"name" validate:"required"`
	Type           models.AssessmentType `json:"type" validate:"required"`
	WeightInCourse int                   `json:"weight_in_course" validate:"min=0,max=100"`
	MaxScore       int                   `json:"max_score" validate:"min=0"`
	Date           *time.Time            `json:"date"`
}

// GradeEntry is one submitted grade cell: a student and the score text
// exactly as entered.
type GradeEntry struct {
	StudentID string `json:"student_id" validate:"required"`
	Score     string `json:"score"`
}

// GradeBatchRequest is the submitted grade sheet for one assessment.
type GradeBatchRequest struct {
	Entries []GradeEntry `json:"entries" validate:"required,dive"`
}

// AssessmentService handles assessments, their LO mappings and grading.
type AssessmentService struct {
	repo      assessmentRepository
	policy    *Policy
	cache     *CacheService
	validator *validator.Validate
	logger    *zap.Logger
}

// NewAssessmentService constructs the assessment service. The cache may be
// nil; it is only used to drop stale dashboard payloads after writes.
func NewAssessmentService(repo assessmentRepository, policy *Policy, cache *CacheService, validate *validator.Validate, logger *zap.Logger) *AssessmentService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AssessmentService{repo: repo, policy: policy, cache: cache, validator: validate, logger: logger}
}

// ListByCurriculum returns a curriculum's assessments.
func (s *AssessmentService) ListByCurriculum(ctx context.Context, curriculumID string) ([]models.Assessment, error) {
	assessments, err := s.repo.ListByCurriculum(ctx, curriculumID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list assessments")
	}
	return assessments, nil
}

// Get returns an assessment by ID.
func (s *AssessmentService) Get(ctx context.Context, id string) (*models.Assessment, error) {
	assessment, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "assessment not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load assessment")
	}
	return assessment, nil
}

// Create adds an assessment to a curriculum.
func (s *AssessmentService) Create(ctx context.Context, claims *models.JWTClaims, curriculumID string, req AssessmentRequest) (*models.Assessment, error) {
	if err := s.policy.requireManageCurriculum(ctx, claims, curriculumID); err != nil {
		return nil, err
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid assessment payload")
	}
	if !models.ValidAssessmentType(req.Type) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "unknown assessment type")
	}
	assessment := &models.Assessment{
		CurriculumID:   curriculumID,
		Name:           req.Name,
		Type:           req.Type,
		WeightInCourse: req.WeightInCourse,
		MaxScore:       req.MaxScore,
		Date:           req.Date,
	}
	if err := s.repo.Create(ctx, assessment); err != nil {
		if database.IsUniqueViolation(err) {
			return nil, appErrors.Clone(appErrors.ErrUniqueViolation, "assessment name already in use for this curriculum")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create assessment")
	}
	return assessment, nil
}

// Update rewrites an assessment.
func (s *AssessmentService) Update(ctx context.Context, claims *models.JWTClaims, id string, req AssessmentRequest) (*models.Assessment, error) {
	existing, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.policy.requireManageCurriculum(ctx, claims, existing.CurriculumID); err != nil {
		return nil, err
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid assessment payload")
	}
	if !models.ValidAssessmentType(req.Type) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "unknown assessment type")
	}
	assessment := &models.Assessment{
		ID:             id,
		CurriculumID:   existing.CurriculumID,
		Name:           req.Name,
		Type:           req.Type,
		WeightInCourse: req.WeightInCourse,
		MaxScore:       req.MaxScore,
		Date:           req.Date,
	}
	if err := s.repo.Update(ctx, assessment); err != nil {
		if database.IsUniqueViolation(err) {
			return nil, appErrors.Clone(appErrors.ErrUniqueViolation, "assessment name already in use for this curriculum")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update assessment")
	}
	return assessment, nil
}

// Delete removes an assessment, its mappings and results.
func (s *AssessmentService) Delete(ctx context.Context, claims *models.JWTClaims, id string) error {
	existing, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := s.policy.requireManageCurriculum(ctx, claims, existing.CurriculumID); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete assessment")
	}
	return nil
}

// ListMappedLearningOutcomes returns the assessment's mapping form: every LO
// of the curriculum with the stored weight where one exists.
func (s *AssessmentService) ListMappedLearningOutcomes(ctx context.Context, id string) ([]models.MappedLearningOutcome, error) {
	if _, err := s.Get(ctx, id); err != nil {
		return nil, err
	}
	outcomes, err := s.repo.ListMappedLearningOutcomes(ctx, id)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list mapped learning outcomes")
	}
	return outcomes, nil
}

// ApplyMappings applies a submitted assessment→LO batch. Same row rules as
// the LO→PO batch.
func (s *AssessmentService) ApplyMappings(ctx context.Context, claims *models.JWTClaims, id string, req MappingBatchRequest) error {
	existing, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := s.policy.requireManageCurriculum(ctx, claims, existing.CurriculumID); err != nil {
		return err
	}
	if err := s.validator.Struct(req); err != nil {
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid mapping payload")
	}

	current, err := s.repo.ListMappings(ctx, id)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load current mappings")
	}
	existingSet := make(map[string]bool, len(current))
	for _, m := range current {
		existingSet[m.LearningOutcomeID] = true
	}

	weights, removals := resolveWeights(req.Entries, existingSet)
	upserts := make([]models.AssessmentMapping, 0, len(weights))
	for learningOutcomeID, weight := range weights {
		upserts = append(upserts, models.AssessmentMapping{
			AssessmentID:      id,
			LearningOutcomeID: learningOutcomeID,
			Weight:            weight,
		})
	}
	if err := s.repo.ApplyMappings(ctx, id, upserts, removals); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to apply mappings")
	}
	_ = s.cache.Invalidate(ctx, "dashboard:student:*")
	return nil
}

// ListGrades returns the roster with each student's current score.
func (s *AssessmentService) ListGrades(ctx context.Context, claims *models.JWTClaims, id string) ([]models.GradeRow, error) {
	existing, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.policy.requireManageCurriculum(ctx, claims, existing.CurriculumID); err != nil {
		return nil, err
	}
	rows, err := s.repo.ListGradeRows(ctx, id)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list grades")
	}
	return rows, nil
}

// ApplyGrades applies a submitted grade sheet. Blank or unparsable cells are
// skipped and leave any stored score untouched; every other cell inserts or
// overwrites the student's single result row. Rows for students not on the
// roster are ignored. The whole batch is one transaction.
func (s *AssessmentService) ApplyGrades(ctx context.Context, claims *models.JWTClaims, id string, req GradeBatchRequest) error {
	existing, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := s.policy.requireManageCurriculum(ctx, claims, existing.CurriculumID); err != nil {
		return err
	}
	if err := s.validator.Struct(req); err != nil {
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid grade payload")
	}

	roster, err := s.repo.ListGradeRows(ctx, id)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load roster")
	}
	enrolled := make(map[string]bool, len(roster))
	for _, row := range roster {
		enrolled[row.StudentID] = true
	}

	var results []models.StudentAssessmentResult
	for _, entry := range req.Entries {
		if !enrolled[entry.StudentID] {
			continue
		}
		raw := strings.TrimSpace(entry.Score)
		if raw == "" {
			continue
		}
		score, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			continue
		}
		results = append(results, models.StudentAssessmentResult{
			StudentID: entry.StudentID,
			RawScore:  &score,
		})
	}
	if err := s.repo.UpsertResults(ctx, id, results); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store grades")
	}
	_ = s.cache.Invalidate(ctx, "dashboard:student:*")
	return nil
}

// scorePercentage returns raw/max*100, nil when the score is absent or the
// max score is zero.
func scorePercentage(raw *float64, maxScore int) *float64 {
	if raw == nil || maxScore == 0 {
		return nil
	}
	v := *raw / float64(maxScore) * 100
	return &v
}

// scoreContribution returns raw/max*weight, the points this assessment adds
// to the course total. Nil under the same conditions as scorePercentage.
func scoreContribution(raw *float64, maxScore, weightInCourse int) *float64 {
	if raw == nil || maxScore == 0 {
		return nil
	}
	v := *raw / float64(maxScore) * float64(weightInCourse)
	return &v
}
