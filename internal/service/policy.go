package service

import (
	"context"
	"database/sql"
	"errors"

	"github.com/uni-obs/curricula-api/internal/models"
	"github.com/uni-obs/curricula-api/internal/repository"
	appErrors "github.com/uni-obs/curricula-api/pkg/errors"
)

type policyProgramRepository interface {
	FindOwnership(ctx context.Context, id string) (*repository.ProgramOwnership, error)
}

type policyCurriculumRepository interface {
	FindOwnership(ctx context.Context, id string) (*repository.CurriculumOwnership, error)
}

type policyUserRepository interface {
	FindByID(ctx context.Context, id string) (*models.User, error)
	IsAssignedLecturer(ctx context.Context, userID, curriculumID string) (bool, error)
}

// Policy centralizes the manage checks shared by the outcome, assessment and
// grading endpoints. Role gates in middleware decide who may reach a route;
// Policy decides whether this actor may touch this particular resource.
type Policy struct {
	programs  policyProgramRepository
	curricula policyCurriculumRepository
	users     policyUserRepository
}

// NewPolicy constructs the policy checker.
func NewPolicy(programs policyProgramRepository, curricula policyCurriculumRepository, users policyUserRepository) *Policy {
	return &Policy{programs: programs, curricula: curricula, users: users}
}

// CanManageProgram reports whether the actor may manage a program's outcome
// definitions. Admins and student affairs always may; a faculty member may
// when the program belongs to their faculty, they are the faculty's
// responsible member, or they coordinate the program.
func (p *Policy) CanManageProgram(ctx context.Context, claims *models.JWTClaims, programID string) (bool, error) {
	if claims == nil {
		return false, nil
	}
	if claims.IsAdmin() || claims.Role == models.RoleStudentAffairs {
		return true, nil
	}
	if claims.Role != models.RoleFacultyMember {
		return false, nil
	}

	ownership, err := p.programs.FindOwnership(ctx, programID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, appErrors.Clone(appErrors.ErrNotFound, "program not found")
		}
		return false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load program ownership")
	}
	if ownership.FacultyResponsibleID != nil && *ownership.FacultyResponsibleID == claims.UserID {
		return true, nil
	}
	if ownership.CoordinatorID != nil && *ownership.CoordinatorID == claims.UserID {
		return true, nil
	}

	user, err := p.users.FindByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load actor")
	}
	return user.FacultyMemberFacultyID != nil && *user.FacultyMemberFacultyID == ownership.FacultyID, nil
}

// CanManageCurriculum reports whether the actor may manage a curriculum's
// learning outcomes, assessments and grades. Admins and student affairs
// always may; a lecturer may when they are the direct lecturer or a member of
// the curriculum's lecturer set.
func (p *Policy) CanManageCurriculum(ctx context.Context, claims *models.JWTClaims, curriculumID string) (bool, error) {
	if claims == nil {
		return false, nil
	}
	if claims.IsAdmin() || claims.Role == models.RoleStudentAffairs {
		return true, nil
	}
	if claims.Role != models.RoleLecturer {
		return false, nil
	}

	ownership, err := p.curricula.FindOwnership(ctx, curriculumID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, appErrors.Clone(appErrors.ErrNotFound, "curriculum not found")
		}
		return false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load curriculum ownership")
	}
	if ownership.LecturerID != nil && *ownership.LecturerID == claims.UserID {
		return true, nil
	}
	assigned, err := p.users.IsAssignedLecturer(ctx, claims.UserID, curriculumID)
	if err != nil {
		return false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check lecturer assignment")
	}
	return assigned, nil
}

// requireManageCurriculum is the forbidden-by-default form used by services.
func (p *Policy) requireManageCurriculum(ctx context.Context, claims *models.JWTClaims, curriculumID string) error {
	allowed, err := p.CanManageCurriculum(ctx, claims, curriculumID)
	if err != nil {
		return err
	}
	if !allowed {
		return appErrors.Clone(appErrors.ErrForbidden, "not allowed to manage this curriculum")
	}
	return nil
}

func (p *Policy) requireManageProgram(ctx context.Context, claims *models.JWTClaims, programID string) error {
	allowed, err := p.CanManageProgram(ctx, claims, programID)
	if err != nil {
		return err
	}
	if !allowed {
		return appErrors.Clone(appErrors.ErrForbidden, "not allowed to manage this program")
	}
	return nil
}
