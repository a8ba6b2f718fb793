package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/uni-obs/curricula-api/internal/models"
)

// CurriculumOwnership carries the references a policy check needs to decide
// who may manage a curriculum.
type CurriculumOwnership struct {
	CurriculumID string  `db:"curriculum_id"`
	ProgramID    string  `db:"program_id"`
	LecturerID   *string `db:"lecturer_id"`
}

// CurriculumRepository handles persistence of curricula and keeps the derived
// roster in step with curriculum writes.
type CurriculumRepository struct {
	db *sqlx.DB
}

// NewCurriculumRepository constructs the repository.
func NewCurriculumRepository(db *sqlx.DB) *CurriculumRepository {
	return &CurriculumRepository{db: db}
}

// List returns curricula filtered by the provided criteria.
func (r *CurriculumRepository) List(ctx context.Context, filter models.CurriculumFilter) ([]models.CurriculumDetail, int, error) {
	base := `FROM curricula c
JOIN programs p ON p.id = c.program_id
LEFT JOIN users l ON l.id = c.lecturer_id`
	var conditions []string
	var args []interface{}

	if filter.ProgramID != "" {
		conditions = append(conditions, fmt.Sprintf("c.program_id = $%d", len(args)+1))
		args = append(args, filter.ProgramID)
	}
	if filter.LecturerID != "" {
		conditions = append(conditions, fmt.Sprintf("c.lecturer_id = $%d", len(args)+1))
		args = append(args, filter.LecturerID)
	}
	if filter.Year != nil {
		conditions = append(conditions, fmt.Sprintf("c.year = $%d", len(args)+1))
		args = append(args, *filter.Year)
	}
	if filter.Semester != "" {
		conditions = append(conditions, fmt.Sprintf("c.semester = $%d", len(args)+1))
		args = append(args, filter.Semester)
	}
	if filter.Search != "" {
		conditions = append(conditions, fmt.Sprintf("(c.code ILIKE $%d OR c.name ILIKE $%d)", len(args)+1, len(args)+1))
		args = append(args, "%"+filter.Search+"%")
	}

	clause := ""
	if len(conditions) > 0 {
		clause = " WHERE " + strings.Join(conditions, " AND ")
	}

	allowedSorts := map[string]string{
		"code":     "c.code",
		"name":     "c.name",
		"year":     "c.year",
		"semester": "c.semester",
	}
	orderBy := allowedSorts[filter.SortBy]
	if orderBy == "" {
		orderBy = "c.code"
	}
	order := strings.ToUpper(filter.SortOrder)
	if order != "ASC" && order != "DESC" {
		order = "ASC"
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	offset := (page - 1) * size

	query := fmt.Sprintf(`SELECT c.id, c.program_id, c.code, c.name, c.year, c.semester, c.ects, c.credit, c.description, c.lecturer_id,
        p.code AS program_code, p.name AS program_name, l.full_name AS lecturer_name
        %s ORDER BY %s %s LIMIT %d OFFSET %d`, base+clause, orderBy, order, size, offset)

	var curricula []models.CurriculumDetail
	if err := r.db.SelectContext(ctx, &curricula, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list curricula: %w", err)
	}

	countQuery := "SELECT COUNT(*) " + base + clause
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count curricula: %w", err)
	}
	return curricula, total, nil
}

// FindByID returns a curriculum by its ID.
func (r *CurriculumRepository) FindByID(ctx context.Context, id string) (*models.Curriculum, error) {
	const query = `SELECT id, program_id, code, name, year, semester, ects, credit, description, lecturer_id
        FROM curricula WHERE id = $1`
	var curriculum models.Curriculum
	if err := r.db.GetContext(ctx, &curriculum, query, id); err != nil {
		return nil, err
	}
	return &curriculum, nil
}

// FindDetailByID returns a curriculum with program and lecturer context.
func (r *CurriculumRepository) FindDetailByID(ctx context.Context, id string) (*models.CurriculumDetail, error) {
	const query = `SELECT c.id, c.program_id, c.code, c.name, c.year, c.semester, c.ects, c.credit, c.description, c.lecturer_id,
        p.code AS program_code, p.name AS program_name, l.full_name AS lecturer_name
        FROM curricula c
        JOIN programs p ON p.id = c.program_id
        LEFT JOIN users l ON l.id = c.lecturer_id
        WHERE c.id = $1`
	var curriculum models.CurriculumDetail
	if err := r.db.GetContext(ctx, &curriculum, query, id); err != nil {
		return nil, err
	}
	return &curriculum, nil
}

// FindOwnership loads the references policy checks need for a curriculum.
func (r *CurriculumRepository) FindOwnership(ctx context.Context, id string) (*CurriculumOwnership, error) {
	const query = `SELECT id AS curriculum_id, program_id, lecturer_id FROM curricula WHERE id = $1`
	var ownership CurriculumOwnership
	if err := r.db.GetContext(ctx, &ownership, query, id); err != nil {
		return nil, err
	}
	return &ownership, nil
}

// ListForLecturer returns the curricula assigned to a lecturer either via the
// direct lecturer field or via lecturer-set membership.
func (r *CurriculumRepository) ListForLecturer(ctx context.Context, lecturerID string) ([]models.CurriculumDetail, error) {
	const query = `SELECT DISTINCT c.id, c.program_id, c.code, c.name, c.year, c.semester, c.ects, c.credit, c.description, c.lecturer_id,
        p.code AS program_code, p.name AS program_name, l.full_name AS lecturer_name
        FROM curricula c
        JOIN programs p ON p.id = c.program_id
        LEFT JOIN users l ON l.id = c.lecturer_id
        LEFT JOIN lecturer_curricula lc ON lc.curriculum_id = c.id
        WHERE c.lecturer_id = $1 OR lc.user_id = $1
        ORDER BY c.code`
	var curricula []models.CurriculumDetail
	if err := r.db.SelectContext(ctx, &curricula, query, lecturerID); err != nil {
		return nil, fmt.Errorf("list lecturer curricula: %w", err)
	}
	return curricula, nil
}

// Create inserts a curriculum and derives its roster in one transaction.
func (r *CurriculumRepository) Create(ctx context.Context, curriculum *models.Curriculum) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	if curriculum.ID == "" {
		curriculum.ID = uuid.NewString()
	}
	const query = `INSERT INTO curricula (id, program_id, code, name, year, semester, ects, credit, description, lecturer_id)
        VALUES (:id, :program_id, :code, :name, :year, :semester, :ects, :credit, :description, :lecturer_id)`
	if _, err := tx.NamedExecContext(ctx, query, curriculum); err != nil {
		tx.Rollback() //nolint:errcheck
		return fmt.Errorf("insert curriculum: %w", err)
	}
	if err := syncCurriculumRosterTx(ctx, tx, curriculum.ID); err != nil {
		tx.Rollback() //nolint:errcheck
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit curriculum: %w", err)
	}
	return nil
}

// Update rewrites a curriculum row and re-derives its roster in one
// transaction.
func (r *CurriculumRepository) Update(ctx context.Context, curriculum *models.Curriculum) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	const query = `UPDATE curricula SET program_id = :program_id, code = :code, name = :name, year = :year,
        semester = :semester, ects = :ects, credit = :credit, description = :description, lecturer_id = :lecturer_id
        WHERE id = :id`
	res, err := tx.NamedExecContext(ctx, query, curriculum)
	if err != nil {
		tx.Rollback() //nolint:errcheck
		return fmt.Errorf("update curriculum: %w", err)
	}
	if affected, err := res.RowsAffected(); err == nil && affected == 0 {
		tx.Rollback() //nolint:errcheck
		return fmt.Errorf("update curriculum %s: %w", curriculum.ID, errNoRowsAffected)
	}
	if err := syncCurriculumRosterTx(ctx, tx, curriculum.ID); err != nil {
		tx.Rollback() //nolint:errcheck
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit curriculum: %w", err)
	}
	return nil
}

// Delete removes a curriculum. Learning outcomes, assessments, results and
// roster rows cascade.
func (r *CurriculumRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, "DELETE FROM curricula WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("delete curriculum: %w", err)
	}
	if affected, err := res.RowsAffected(); err == nil && affected == 0 {
		return fmt.Errorf("delete curriculum %s: %w", id, errNoRowsAffected)
	}
	return nil
}
