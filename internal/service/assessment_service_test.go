package service

import (
	"context"
	"database/sql"
	"sort"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/uni-obs/curricula-api/internal/models"
	appErrors "github.com/uni-obs/curricula-api/pkg/errors"
)

type mockAssessmentRepo struct {
	assessments  map[string]*models.Assessment
	mappings     map[string][]models.AssessmentMapping
	gradeRows    map[string][]models.GradeRow
	lastUpserts  []models.AssessmentMapping
	lastRemovals []string
	lastResults  []models.StudentAssessmentResult
}

func (m *mockAssessmentRepo) ListByCurriculum(ctx context.Context, curriculumID string) ([]models.Assessment, error) {
	var out []models.Assessment
	for _, a := range m.assessments {
		if a.CurriculumID == curriculumID {
			out = append(out, *a)
		}
	}
	return out, nil
}

func (m *mockAssessmentRepo) FindByID(ctx context.Context, id string) (*models.Assessment, error) {
	if a, ok := m.assessments[id]; ok {
		return a, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockAssessmentRepo) Create(ctx context.Context, assessment *models.Assessment) error {
	if m.assessments == nil {
		m.assessments = make(map[string]*models.Assessment)
	}
	assessment.ID = "new"
	m.assessments[assessment.ID] = assessment
	return nil
}

func (m *mockAssessmentRepo) Update(ctx context.Context, assessment *models.Assessment) error {
	m.assessments[assessment.ID] = assessment
	return nil
}

func (m *mockAssessmentRepo) Delete(ctx context.Context, id string) error {
	delete(m.assessments, id)
	return nil
}

func (m *mockAssessmentRepo) ListMappings(ctx context.Context, assessmentID string) ([]models.AssessmentMapping, error) {
	return m.mappings[assessmentID], nil
}

func (m *mockAssessmentRepo) ListMappedLearningOutcomes(ctx context.Context, assessmentID string) ([]models.MappedLearningOutcome, error) {
	return nil, nil
}

func (m *mockAssessmentRepo) ApplyMappings(ctx context.Context, assessmentID string, upserts []models.AssessmentMapping, removals []string) error {
	m.lastUpserts = upserts
	m.lastRemovals = removals
	return nil
}

func (m *mockAssessmentRepo) ListGradeRows(ctx context.Context, assessmentID string) ([]models.GradeRow, error) {
	return m.gradeRows[assessmentID], nil
}

func (m *mockAssessmentRepo) UpsertResults(ctx context.Context, assessmentID string, results []models.StudentAssessmentResult) error {
	m.lastResults = results
	return nil
}

func permissivePolicy() *Policy {
	return NewPolicy(
		&mockProgramOwnership{},
		&mockCurriculumOwnership{},
		&mockPolicyUsers{},
	)
}

func adminClaims() *models.JWTClaims {
	return &models.JWTClaims{UserID: "root", Role: models.RoleAdmin, Superuser: true}
}

func newAssessmentService(repo *mockAssessmentRepo) *AssessmentService {
	return NewAssessmentService(repo, permissivePolicy(), nil, validator.New(), zap.NewNop())
}

func TestApplyGradesSkipsBlankAndUnparsableCells(t *testing.T) {
	repo := &mockAssessmentRepo{
		assessments: map[string]*models.Assessment{"a1": {ID: "a1", CurriculumID: "c1", MaxScore: 100}},
		gradeRows: map[string][]models.GradeRow{"a1": {
			{StudentID: "s1"}, {StudentID: "s2"}, {StudentID: "s3"},
		}},
	}
	svc := newAssessmentService(repo)

	err := svc.ApplyGrades(context.Background(), adminClaims(), "a1", GradeBatchRequest{Entries: []GradeEntry{
		{StudentID: "s1", Score: "85.5"},
		{StudentID: "s2", Score: ""},
		{StudentID: "s3", Score: "not a number"},
	}})
	require.NoError(t, err)
	require.Len(t, repo.lastResults, 1, "blank and unparsable cells leave stored scores untouched")
	assert.Equal(t, "s1", repo.lastResults[0].StudentID)
	assert.Equal(t, 85.5, *repo.lastResults[0].RawScore)
}

func TestApplyGradesIgnoresStudentsOffTheRoster(t *testing.T) {
	repo := &mockAssessmentRepo{
		assessments: map[string]*models.Assessment{"a1": {ID: "a1", CurriculumID: "c1", MaxScore: 100}},
		gradeRows:   map[string][]models.GradeRow{"a1": {{StudentID: "s1"}}},
	}
	svc := newAssessmentService(repo)

	err := svc.ApplyGrades(context.Background(), adminClaims(), "a1", GradeBatchRequest{Entries: []GradeEntry{
		{StudentID: "s1", Score: "70"},
		{StudentID: "intruder", Score: "100"},
	}})
	require.NoError(t, err)
	require.Len(t, repo.lastResults, 1)
	assert.Equal(t, "s1", repo.lastResults[0].StudentID)
}

func TestApplyMappingsClampsAndRemoves(t *testing.T) {
	repo := &mockAssessmentRepo{
		assessments: map[string]*models.Assessment{"a1": {ID: "a1", CurriculumID: "c1"}},
		mappings: map[string][]models.AssessmentMapping{"a1": {
			{AssessmentID: "a1", LearningOutcomeID: "lo3", Weight: 50},
		}},
	}
	svc := newAssessmentService(repo)

	err := svc.ApplyMappings(context.Background(), adminClaims(), "a1", MappingBatchRequest{Entries: []WeightEntry{
		{TargetID: "lo1", Weight: "150"},
		{TargetID: "lo2", Weight: "40"},
		{TargetID: "lo3", Weight: ""},
	}})
	require.NoError(t, err)

	weights := make(map[string]int)
	for _, m := range repo.lastUpserts {
		weights[m.LearningOutcomeID] = m.Weight
	}
	assert.Equal(t, map[string]int{"lo1": 100, "lo2": 40}, weights)
	assert.Equal(t, []string{"lo3"}, repo.lastRemovals)
}

func TestApplyMappingsIsIdempotent(t *testing.T) {
	repo := &mockAssessmentRepo{
		assessments: map[string]*models.Assessment{"a1": {ID: "a1", CurriculumID: "c1"}},
	}
	svc := newAssessmentService(repo)
	req := MappingBatchRequest{Entries: []WeightEntry{{TargetID: "lo1", Weight: "60"}}}

	require.NoError(t, svc.ApplyMappings(context.Background(), adminClaims(), "a1", req))
	first := append([]models.AssessmentMapping(nil), repo.lastUpserts...)

	require.NoError(t, svc.ApplyMappings(context.Background(), adminClaims(), "a1", req))
	sort.Slice(first, func(i, j int) bool { return first[i].LearningOutcomeID < first[j].LearningOutcomeID })
	sort.Slice(repo.lastUpserts, func(i, j int) bool {
		return repo.lastUpserts[i].LearningOutcomeID < repo.lastUpserts[j].LearningOutcomeID
	})
	assert.Equal(t, first, repo.lastUpserts)
}

func TestCreateRejectsUnknownType(t *testing.T) {
	svc := newAssessmentService(&mockAssessmentRepo{})

	_, err := svc.Create(context.Background(), adminClaims(), "c1", AssessmentRequest{
		Name: "Surprise", Type: models.AssessmentType("POP_QUIZ"), MaxScore: 10,
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestScoreDerivations(t *testing.T) {
	raw := 85.5
	contribution := scoreContribution(&raw, 100, 30)
	require.NotNil(t, contribution)
	assert.InDelta(t, 25.65, *contribution, 1e-9)

	percentage := scorePercentage(&raw, 100)
	require.NotNil(t, percentage)
	assert.InDelta(t, 85.5, *percentage, 1e-9)
}

func TestScoreDerivationsNilOnZeroMax(t *testing.T) {
	raw := 10.0
	assert.Nil(t, scorePercentage(&raw, 0), "zero max score must not divide")
	assert.Nil(t, scoreContribution(&raw, 0, 30))
	assert.Nil(t, scorePercentage(nil, 100))
	assert.Nil(t, scoreContribution(nil, 100, 30))
}
