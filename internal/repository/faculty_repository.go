package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/uni-obs/curricula-api/internal/models"
)

// FacultyRepository handles persistence of faculties.
type FacultyRepository struct {
	db *sqlx.DB
}

// NewFacultyRepository constructs the repository.
func NewFacultyRepository(db *sqlx.DB) *FacultyRepository {
	return &FacultyRepository{db: db}
}

// List returns faculties with their responsible member's name.
func (r *FacultyRepository) List(ctx context.Context, search string) ([]models.FacultyDetail, error) {
	query := `SELECT f.id, f.code, f.name, f.description, f.responsible_id, u.full_name AS responsible_name
        FROM faculties f
        LEFT JOIN users u ON u.id = f.responsible_id`
	var args []interface{}
	if search != "" {
		query += " WHERE f.code ILIKE $1 OR f.name ILIKE $1"
		args = append(args, "%"+strings.TrimSpace(search)+"%")
	}
	query += " ORDER BY f.code"

	var faculties []models.FacultyDetail
	if err := r.db.SelectContext(ctx, &faculties, query, args...); err != nil {
		return nil, fmt.Errorf("list faculties: %w", err)
	}
	return faculties, nil
}

// FindByID returns a faculty by its ID.
func (r *FacultyRepository) FindByID(ctx context.Context, id string) (*models.Faculty, error) {
	const query = `SELECT id, code, name, description, responsible_id FROM faculties WHERE id = $1`
	var faculty models.Faculty
	if err := r.db.GetContext(ctx, &faculty, query, id); err != nil {
		return nil, err
	}
	return &faculty, nil
}

// FindDetailByID returns a faculty with the responsible member's name.
func (r *FacultyRepository) FindDetailByID(ctx context.Context, id string) (*models.FacultyDetail, error) {
	const query = `SELECT f.id, f.code, f.name, f.description, f.responsible_id, u.full_name AS responsible_name
        FROM faculties f
        LEFT JOIN users u ON u.id = f.responsible_id
        WHERE f.id = $1`
	var faculty models.FacultyDetail
	if err := r.db.GetContext(ctx, &faculty, query, id); err != nil {
		return nil, err
	}
	return &faculty, nil
}

// FindByResponsible returns the faculty a user is responsible for, if any.
func (r *FacultyRepository) FindByResponsible(ctx context.Context, userID string) (*models.FacultyDetail, error) {
	const query = `SELECT f.id, f.code, f.name, f.description, f.responsible_id, u.full_name AS responsible_name
        FROM faculties f
        LEFT JOIN users u ON u.id = f.responsible_id
        WHERE f.responsible_id = $1`
	var faculty models.FacultyDetail
	if err := r.db.GetContext(ctx, &faculty, query, userID); err != nil {
		return nil, err
	}
	return &faculty, nil
}

// Create persists a new faculty.
func (r *FacultyRepository) Create(ctx context.Context, faculty *models.Faculty) error {
	if faculty.ID == "" {
		faculty.ID = uuid.NewString()
	}
	const query = `INSERT INTO faculties (id, code, name, description, responsible_id)
        VALUES (:id, :code, :name, :description, :responsible_id)`
	if _, err := r.db.NamedExecContext(ctx, query, faculty); err != nil {
		return fmt.Errorf("insert faculty: %w", err)
	}
	return nil
}

// Update rewrites a faculty row.
func (r *FacultyRepository) Update(ctx context.Context, faculty *models.Faculty) error {
	const query = `UPDATE faculties SET code = :code, name = :name, description = :description,
        responsible_id = :responsible_id WHERE id = :id`
	res, err := r.db.NamedExecContext(ctx, query, faculty)
	if err != nil {
		return fmt.Errorf("update faculty: %w", err)
	}
	if affected, err := res.RowsAffected(); err == nil && affected == 0 {
		return fmt.Errorf("update faculty %s: %w", faculty.ID, errNoRowsAffected)
	}
	return nil
}

// Delete removes a faculty. Programs and everything under them cascade.
func (r *FacultyRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, "DELETE FROM faculties WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("delete faculty: %w", err)
	}
	if affected, err := res.RowsAffected(); err == nil && affected == 0 {
		return fmt.Errorf("delete faculty %s: %w", id, errNoRowsAffected)
	}
	return nil
}
