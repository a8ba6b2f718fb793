package service

import (
	"context"
	"database/sql"
	"errors"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/uni-obs/curricula-api/internal/models"
	"github.com/uni-obs/curricula-api/pkg/database"
	appErrors "github.com/uni-obs/curricula-api/pkg/errors"
)

type outcomeRepository interface {
	ListProgramOutcomes(ctx context.Context, programID string) ([]models.ProgramOutcome, error)
	FindProgramOutcomeByID(ctx context.Context, id string) (*models.ProgramOutcome, error)
	CreateProgramOutcome(ctx context.Context, outcome *models.ProgramOutcome) error
	UpdateProgramOutcome(ctx context.Context, outcome *models.ProgramOutcome) error
	DeleteProgramOutcome(ctx context.Context, id string) error

	ListLearningOutcomes(ctx context.Context, curriculumID string) ([]models.LearningOutcome, error)
	FindLearningOutcomeByID(ctx context.Context, id string) (*models.LearningOutcome, error)
	CreateLearningOutcome(ctx context.Context, outcome *models.LearningOutcome) error
	UpdateLearningOutcome(ctx context.Context, outcome *models.LearningOutcome) error
	DeleteLearningOutcome(ctx context.Context, id string) error

	ListMappings(ctx context.Context, learningOutcomeID string) ([]models.LearningOutcomeMapping, error)
	ListMappedProgramOutcomes(ctx context.Context, learningOutcomeID string) ([]models.MappedProgramOutcome, error)
	ApplyMappings(ctx context.Context, learningOutcomeID string, upserts []models.LearningOutcomeMapping, removals []string) error
}

// OutcomeRequest holds payload for creating and updating outcomes on either
// level of the graph.
type OutcomeRequest struct {
	Code        string `json:"code" validate:"required"`
	ShortTitle  string `json:"short_title" validate:"required"`
	Description string `json:"description"`
	SortOrder   int    `json:"sort_order"`
	Active      *bool  `json:"active"`
}

// MappingBatchRequest is the submitted LO→PO mapping form.
type MappingBatchRequest struct {
	Entries []WeightEntry `json:"entries" validate:"required,dive"`
}

// OutcomeService handles the outcome graph: program outcomes, learning
// outcomes and the weighted links between them. Manage rights are decided by
// the policy per resource.
type OutcomeService struct {
	repo      outcomeRepository
	policy    *Policy
	validator *validator.Validate
	logger    *zap.Logger
}

// NewOutcomeService constructs the outcome service.
func NewOutcomeService(repo outcomeRepository, policy *Policy, validate *validator.Validate, logger *zap.Logger) *OutcomeService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &OutcomeService{repo: repo, policy: policy, validator: validate, logger: logger}
}

// ListProgramOutcomes returns a program's POs.
func (s *OutcomeService) ListProgramOutcomes(ctx context.Context, programID string) ([]models.ProgramOutcome, error) {
	outcomes, err := s.repo.ListProgramOutcomes(ctx, programID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list program outcomes")
	}
	return outcomes, nil
}

// CreateProgramOutcome adds a PO to a program.
func (s *OutcomeService) CreateProgramOutcome(ctx context.Context, claims *models.JWTClaims, programID string, req OutcomeRequest) (*models.ProgramOutcome, error) {
	if err := s.policy.requireManageProgram(ctx, claims, programID); err != nil {
		return nil, err
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid outcome payload")
	}
	outcome := &models.ProgramOutcome{
		ProgramID:   programID,
		Code:        req.Code,
		ShortTitle:  req.ShortTitle,
		Description: req.Description,
		SortOrder:   req.SortOrder,
		Active:      req.Active == nil || *req.Active,
	}
	if err := s.repo.CreateProgramOutcome(ctx, outcome); err != nil {
		if database.IsUniqueViolation(err) {
			return nil, appErrors.Clone(appErrors.ErrUniqueViolation, "outcome code already in use for this program")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create program outcome")
	}
	return outcome, nil
}

// UpdateProgramOutcome rewrites a PO.
func (s *OutcomeService) UpdateProgramOutcome(ctx context.Context, claims *models.JWTClaims, id string, req OutcomeRequest) (*models.ProgramOutcome, error) {
	existing, err := s.repo.FindProgramOutcomeByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "program outcome not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load program outcome")
	}
	if err := s.policy.requireManageProgram(ctx, claims, existing.ProgramID); err != nil {
		return nil, err
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid outcome payload")
	}
	outcome := &models.ProgramOutcome{
		ID:          id,
		ProgramID:   existing.ProgramID,
		Code:        req.Code,
		ShortTitle:  req.ShortTitle,
		Description: req.Description,
		SortOrder:   req.SortOrder,
		Active:      req.Active == nil || *req.Active,
	}
	if err := s.repo.UpdateProgramOutcome(ctx, outcome); err != nil {
		if database.IsUniqueViolation(err) {
			return nil, appErrors.Clone(appErrors.ErrUniqueViolation, "outcome code already in use for this program")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update program outcome")
	}
	return outcome, nil
}

// DeleteProgramOutcome removes a PO and its mapping rows.
func (s *OutcomeService) DeleteProgramOutcome(ctx context.Context, claims *models.JWTClaims, id string) error {
	existing, err := s.repo.FindProgramOutcomeByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "program outcome not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load program outcome")
	}
	if err := s.policy.requireManageProgram(ctx, claims, existing.ProgramID); err != nil {
		return err
	}
	if err := s.repo.DeleteProgramOutcome(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete program outcome")
	}
	return nil
}

// ListLearningOutcomes returns a curriculum's LOs.
func (s *OutcomeService) ListLearningOutcomes(ctx context.Context, curriculumID string) ([]models.LearningOutcome, error) {
	outcomes, err := s.repo.ListLearningOutcomes(ctx, curriculumID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list learning outcomes")
	}
	return outcomes, nil
}

// CreateLearningOutcome adds an LO to a curriculum.
func (s *OutcomeService) CreateLearningOutcome(ctx context.Context, claims *models.JWTClaims, curriculumID string, req OutcomeRequest) (*models.LearningOutcome, error) {
	if err := s.policy.requireManageCurriculum(ctx, claims, curriculumID); err != nil {
		return nil, err
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid outcome payload")
	}
	outcome := &models.LearningOutcome{
		CurriculumID: curriculumID,
		Code:         req.Code,
		ShortTitle:   req.ShortTitle,
		Description:  req.Description,
		SortOrder:    req.SortOrder,
		Active:       req.Active == nil || *req.Active,
	}
	if err := s.repo.CreateLearningOutcome(ctx, outcome); err != nil {
		if database.IsUniqueViolation(err) {
			return nil, appErrors.Clone(appErrors.ErrUniqueViolation, "outcome code already in use for this curriculum")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create learning outcome")
	}
	return outcome, nil
}

// UpdateLearningOutcome rewrites an LO.
func (s *OutcomeService) UpdateLearningOutcome(ctx context.Context, claims *models.JWTClaims, id string, req OutcomeRequest) (*models.LearningOutcome, error) {
	existing, err := s.repo.FindLearningOutcomeByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "learning outcome not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load learning outcome")
	}
	if err := s.policy.requireManageCurriculum(ctx, claims, existing.CurriculumID); err != nil {
		return nil, err
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid outcome payload")
	}
	outcome := &models.LearningOutcome{
		ID:           id,
		CurriculumID: existing.CurriculumID,
		Code:         req.Code,
		ShortTitle:   req.ShortTitle,
		Description:  req.Description,
		SortOrder:    req.SortOrder,
		Active:       req.Active == nil || *req.Active,
	}
	if err := s.repo.UpdateLearningOutcome(ctx, outcome); err != nil {
		if database.IsUniqueViolation(err) {
			return nil, appErrors.Clone(appErrors.ErrUniqueViolation, "outcome code already in use for this curriculum")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update learning outcome")
	}
	return outcome, nil
}

// DeleteLearningOutcome removes an LO and its mapping rows.
func (s *OutcomeService) DeleteLearningOutcome(ctx context.Context, claims *models.JWTClaims, id string) error {
	existing, err := s.repo.FindLearningOutcomeByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "learning outcome not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load learning outcome")
	}
	if err := s.policy.requireManageCurriculum(ctx, claims, existing.CurriculumID); err != nil {
		return err
	}
	if err := s.repo.DeleteLearningOutcome(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete learning outcome")
	}
	return nil
}

// ListMappedProgramOutcomes returns the LO's mapping form: every PO of the
// parent program with the stored weight where one exists.
func (s *OutcomeService) ListMappedProgramOutcomes(ctx context.Context, id string) ([]models.MappedProgramOutcome, error) {
	if _, err := s.repo.FindLearningOutcomeByID(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "learning outcome not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load learning outcome")
	}
	outcomes, err := s.repo.ListMappedProgramOutcomes(ctx, id)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list mapped program outcomes")
	}
	return outcomes, nil
}

// ApplyMappings applies a submitted LO→PO batch in one transaction.
func (s *OutcomeService) ApplyMappings(ctx context.Context, claims *models.JWTClaims, id string, req MappingBatchRequest) error {
	existing, err := s.repo.FindLearningOutcomeByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "learning outcome not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load learning outcome")
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
		existingSet[m.ProgramOutcomeID] = true
	}

	weights, removals := resolveWeights(req.Entries, existingSet)
	upserts := make([]models.LearningOutcomeMapping, 0, len(weights))
	for programOutcomeID, weight := range weights {
		upserts = append(upserts, models.LearningOutcomeMapping{
			LearningOutcomeID: id,
			ProgramOutcomeID:  programOutcomeID,
			Weight:            weight,
		})
	}
	if err := s.repo.ApplyMappings(ctx, id, upserts, removals); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to apply mappings")
	}
	return nil
}
