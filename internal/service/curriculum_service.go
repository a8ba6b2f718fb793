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

type curriculumRepository interface {
	List(ctx context.Context, filter models.CurriculumFilter) ([]models.CurriculumDetail, int, error)
	FindDetailByID(ctx context.Context, id string) (*models.CurriculumDetail, error)
	ListForLecturer(ctx context.Context, lecturerID string) ([]models.CurriculumDetail, error)
	Create(ctx context.Context, curriculum *models.Curriculum) error
	Update(ctx context.Context, curriculum *models.Curriculum) error
	Delete(ctx context.Context, id string) error
}

type rosterReader interface {
	ListStudents(ctx context.Context, curriculumID string) ([]models.RosterEntry, error)
}

// CurriculumRequest holds payload for creating and updating curricula.
type CurriculumRequest struct {
	ProgramID   string          `json:"program_id" validate:"required"`
	Code        string          `json:"code" validate:"required"`
	Name        string          `json:"name" validate:"required"`
	Year        *int            `json:"year" validate:"omitempty,min=1,max=4"`
	Semester    models.Semester `json:"semester" validate:"required"`
	ECTS        *float64        `json:"ects"`
	Credit      *float64        `json:"credit"`
	Description string          `json:"description"`
	LecturerID  *string         `json:"lecturer_id"`
}

// CurriculumService handles curriculum use-cases. Every successful write also
// re-derives the curriculum's student roster inside the repository
// transaction.
type CurriculumService struct {
	repo      curriculumRepository
	roster    rosterReader
	validator *validator.Validate
	logger    *zap.Logger
}

// NewCurriculumService constructs the curriculum service.
func NewCurriculumService(repo curriculumRepository, roster rosterReader, validate *validator.Validate, logger *zap.Logger) *CurriculumService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CurriculumService{repo: repo, roster: roster, validator: validate, logger: logger}
}

// List returns curricula and pagination metadata.
func (s *CurriculumService) List(ctx context.Context, filter models.CurriculumFilter) ([]models.CurriculumDetail, *models.Pagination, error) {
	curricula, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list curricula")
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 {
		size = 20
	}
	return curricula, &models.Pagination{Page: page, PageSize: size, TotalCount: total}, nil
}

// Get returns a curriculum by ID.
func (s *CurriculumService) Get(ctx context.Context, id string) (*models.CurriculumDetail, error) {
	curriculum, err := s.repo.FindDetailByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "curriculum not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load curriculum")
	}
	return curriculum, nil
}

// ListStudents returns the derived roster of a curriculum.
func (s *CurriculumService) ListStudents(ctx context.Context, id string) ([]models.RosterEntry, error) {
	if _, err := s.Get(ctx, id); err != nil {
		return nil, err
	}
	entries, err := s.roster.ListStudents(ctx, id)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load roster")
	}
	return entries, nil
}

// ListMine returns the curricula a lecturer teaches, via the direct lecturer
// field or lecturer-set membership.
func (s *CurriculumService) ListMine(ctx context.Context, lecturerID string) ([]models.CurriculumDetail, error) {
	curricula, err := s.repo.ListForLecturer(ctx, lecturerID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list lecturer curricula")
	}
	return curricula, nil
}

// Create registers a new curriculum and derives its roster.
func (s *CurriculumService) Create(ctx context.Context, req CurriculumRequest) (*models.Curriculum, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid curriculum payload")
	}
	if !models.ValidSemester(req.Semester) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "unknown semester")
	}
	curriculum := &models.Curriculum{
		ProgramID:   req.ProgramID,
		Code:        req.Code,
		Name:        req.Name,
		Year:        req.Year,
		Semester:    req.Semester,
		ECTS:        req.ECTS,
		Credit:      req.Credit,
		Description: req.Description,
		LecturerID:  req.LecturerID,
	}
	if err := s.repo.Create(ctx, curriculum); err != nil {
		if database.IsUniqueViolation(err) {
			return nil, appErrors.Clone(appErrors.ErrUniqueViolation, "curriculum code already in use for this program")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create curriculum")
	}
	return curriculum, nil
}

// Update rewrites a curriculum and re-derives its roster.
func (s *CurriculumService) Update(ctx context.Context, id string, req CurriculumRequest) (*models.Curriculum, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid curriculum payload")
	}
	if !models.ValidSemester(req.Semester) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "unknown semester")
	}
	curriculum := &models.Curriculum{
		ID:          id,
		ProgramID:   req.ProgramID,
		Code:        req.Code,
		Name:        req.Name,
		Year:        req.Year,
		Semester:    req.Semester,
		ECTS:        req.ECTS,
		Credit:      req.Credit,
		Description: req.Description,
		LecturerID:  req.LecturerID,
	}
	if err := s.repo.Update(ctx, curriculum); err != nil {
		if database.IsUniqueViolation(err) {
			return nil, appErrors.Clone(appErrors.ErrUniqueViolation, "curriculum code already in use for this program")
		}
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "curriculum not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update curriculum")
	}
	return curriculum, nil
}

// Delete removes a curriculum and everything under it.
func (s *CurriculumService) Delete(ctx context.Context, id string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "curriculum not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete curriculum")
	}
	return nil
}
