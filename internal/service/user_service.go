package service

import (
	"context"
	"database/sql"
	"errors"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/uni-obs/curricula-api/internal/models"
	"github.com/uni-obs/curricula-api/pkg/database"
	appErrors "github.com/uni-obs/curricula-api/pkg/errors"
)

type userRepository interface {
	List(ctx context.Context, filter models.UserFilter) ([]models.User, int, error)
	FindByID(ctx context.Context, id string) (*models.User, error)
	FindDetailByID(ctx context.Context, id string) (*models.UserDetail, error)
	Create(ctx context.Context, user *models.User, programIDs, curriculumIDs []string) error
	Update(ctx context.Context, user *models.User, programIDs, curriculumIDs []string) error
	Delete(ctx context.Context, id string) error
}

// CreateUserRequest holds payload for creating users.
type CreateUserRequest struct {
	Username string          `json:"username" validate:"required"`
	Email    *string         `json:"email" validate:"omitempty,email"`
	Password string          `json:"password" validate:"required,min=6"`
	FullName string          `json:"full_name" validate:"required"`
	Phone    *string         `json:"phone"`
	Role     models.UserRole `json:"role" validate:"required"`
	Active   *bool           `json:"active"`

	StudentGrade           *int     `json:"student_grade"`
	StudentFacultyID       *string  `json:"student_faculty_id"`
	StudentProgramID       *string  `json:"student_program_id"`
	FacultyMemberFacultyID *string  `json:"faculty_member_faculty_id"`
	LecturerProgramIDs     []string `json:"lecturer_program_ids"`
	LecturerCurriculumIDs  []string `json:"lecturer_curriculum_ids"`
}

// UpdateUserRequest holds payload for updating users.
type UpdateUserRequest struct {
	Username string          `json:"username" validate:"required"`
	Email    *string         `json:"email" validate:"omitempty,email"`
	FullName string          `json:"full_name" validate:"required"`
	Phone    *string         `json:"phone"`
	Role     models.UserRole `json:"role" validate:"required"`
	Active   bool            `json:"active"`

	StudentGrade           *int     `json:"student_grade"`
	StudentFacultyID       *string  `json:"student_faculty_id"`
	StudentProgramID       *string  `json:"student_program_id"`
	FacultyMemberFacultyID *string  `json:"faculty_member_faculty_id"`
	LecturerProgramIDs     []string `json:"lecturer_program_ids"`
	LecturerCurriculumIDs  []string `json:"lecturer_curriculum_ids"`
}

// UserService handles user management use-cases.
type UserService struct {
	repo      userRepository
	validator *validator.Validate
	logger    *zap.Logger
}

// NewUserService constructs the user service.
func NewUserService(repo userRepository, validate *validator.Validate, logger *zap.Logger) *UserService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &UserService{repo: repo, validator: validate, logger: logger}
}

// List returns users and pagination metadata.
func (s *UserService) List(ctx context.Context, filter models.UserFilter) ([]models.User, *models.Pagination, error) {
	users, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list users")
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 {
		size = 20
	}
	return users, &models.Pagination{Page: page, PageSize: size, TotalCount: total}, nil
}

// Get returns a user with their lecturer assignment sets.
func (s *UserService) Get(ctx context.Context, id string) (*models.UserDetail, error) {
	detail, err := s.repo.FindDetailByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "user not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load user")
	}
	return detail, nil
}

// Create registers a new user. Columns and assignment sets that do not match
// the chosen role are cleared before the write.
func (s *UserService) Create(ctx context.Context, req CreateUserRequest) (*models.UserDetail, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid user payload")
	}
	if !models.ValidRole(req.Role) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "unknown role")
	}
	if err := validateRoleFields(req.Role, req.StudentGrade, req.StudentProgramID, req.StudentFacultyID, req.FacultyMemberFacultyID); err != nil {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to hash password")
	}

	active := true
	if req.Active != nil {
		active = *req.Active
	}
	user := &models.User{
		Username:     req.Username,
		Email:        req.Email,
		PasswordHash: string(hash),
		FullName:     req.FullName,
		Phone:        req.Phone,
		Role:         req.Role,
		Active:       active,
	}
	programIDs, curriculumIDs := applyRoleFields(user, req.Role,
		req.StudentGrade, req.StudentFacultyID, req.StudentProgramID, req.FacultyMemberFacultyID,
		req.LecturerProgramIDs, req.LecturerCurriculumIDs)

	if err := s.repo.Create(ctx, user, programIDs, curriculumIDs); err != nil {
		if database.IsUniqueViolation(err) {
			return nil, appErrors.Clone(appErrors.ErrUniqueViolation, "username or email already in use")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create user")
	}
	return &models.UserDetail{
		User:                  *user,
		LecturerProgramIDs:    programIDs,
		LecturerCurriculumIDs: curriculumIDs,
	}, nil
}

// Update rewrites a user. Superuser accounts are exempt from management.
func (s *UserService) Update(ctx context.Context, id string, req UpdateUserRequest) (*models.UserDetail, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid user payload")
	}
	if !models.ValidRole(req.Role) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "unknown role")
	}
	if err := validateRoleFields(req.Role, req.StudentGrade, req.StudentProgramID, req.StudentFacultyID, req.FacultyMemberFacultyID); err != nil {
		return nil, err
	}

	existing, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "user not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load user")
	}
	if existing.Superuser {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "superuser accounts cannot be modified")
	}

	user := &models.User{
		ID:           id,
		Username:     req.Username,
		Email:        req.Email,
		PasswordHash: existing.PasswordHash,
		FullName:     req.FullName,
		Phone:        req.Phone,
		Role:         req.Role,
		Superuser:    existing.Superuser,
		Active:       req.Active,
		CreatedAt:    existing.CreatedAt,
	}
	programIDs, curriculumIDs := applyRoleFields(user, req.Role,
		req.StudentGrade, req.StudentFacultyID, req.StudentProgramID, req.FacultyMemberFacultyID,
		req.LecturerProgramIDs, req.LecturerCurriculumIDs)

	if err := s.repo.Update(ctx, user, programIDs, curriculumIDs); err != nil {
		if database.IsUniqueViolation(err) {
			return nil, appErrors.Clone(appErrors.ErrUniqueViolation, "username or email already in use")
		}
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "user not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update user")
	}
	return &models.UserDetail{
		User:                  *user,
		LecturerProgramIDs:    programIDs,
		LecturerCurriculumIDs: curriculumIDs,
	}, nil
}

// Delete removes a user. Superuser accounts are exempt.
func (s *UserService) Delete(ctx context.Context, id string) error {
	existing, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "user not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load user")
	}
	if existing.Superuser {
		return appErrors.Clone(appErrors.ErrForbidden, "superuser accounts cannot be deleted")
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "user not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete user")
	}
	return nil
}

// validateRoleFields enforces the per-role required fields.
func validateRoleFields(role models.UserRole, studentGrade *int, studentProgramID, studentFacultyID, facultyMemberFacultyID *string) error {
	switch role {
	case models.RoleStudent:
		if studentProgramID == nil || studentFacultyID == nil || studentGrade == nil {
			return appErrors.Clone(appErrors.ErrValidation, "students require a faculty, a program and a grade")
		}
		if *studentGrade < 1 || *studentGrade > 4 {
			return appErrors.Clone(appErrors.ErrValidation, "student grade must be between 1 and 4")
		}
	case models.RoleFacultyMember:
		if facultyMemberFacultyID == nil {
			return appErrors.Clone(appErrors.ErrValidation, "faculty members require a faculty")
		}
	}
	return nil
}

// applyRoleFields sets the role-conditional columns matching the role and
// clears every other one, returning the lecturer sets to persist.
func applyRoleFields(user *models.User, role models.UserRole,
	studentGrade *int, studentFacultyID, studentProgramID, facultyMemberFacultyID *string,
	lecturerProgramIDs, lecturerCurriculumIDs []string) ([]string, []string) {

	user.StudentGrade = nil
	user.StudentFacultyID = nil
	user.StudentProgramID = nil
	user.FacultyMemberFacultyID = nil

	switch role {
	case models.RoleStudent:
		user.StudentGrade = studentGrade
		user.StudentFacultyID = studentFacultyID
		user.StudentProgramID = studentProgramID
	case models.RoleFacultyMember:
		user.FacultyMemberFacultyID = facultyMemberFacultyID
	case models.RoleLecturer:
		return lecturerProgramIDs, lecturerCurriculumIDs
	}
	return nil, nil
}
