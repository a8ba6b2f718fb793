package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/uni-obs/curricula-api/internal/models"
)

// ProgramOwnership carries the references a policy check needs to decide who
// may manage a program.
type ProgramOwnership struct {
	ProgramID            string  `db:"program_id"`
	FacultyID            string  `db:"faculty_id"`
	FacultyResponsibleID *string `db:"responsible_id"`
	CoordinatorID        *string `db:"coordinator_id"`
}

// ProgramRepository handles persistence of programs.
type ProgramRepository struct {
	db *sqlx.DB
}

// NewProgramRepository constructs the repository.
func NewProgramRepository(db *sqlx.DB) *ProgramRepository {
	return &ProgramRepository{db: db}
}

// List returns programs filtered by the provided criteria.
func (r *ProgramRepository) List(ctx context.Context, filter models.ProgramFilter) ([]models.ProgramDetail, int, error) {
	base := `FROM programs p
JOIN faculties f ON f.id = p.faculty_id
LEFT JOIN users u ON u.id = p.coordinator_id`
	var conditions []string
	var args []interface{}

	if filter.FacultyID != "" {
		conditions = append(conditions, fmt.Sprintf("p.faculty_id = $%d", len(args)+1))
		args = append(args, filter.FacultyID)
	}
	if filter.Search != "" {
		conditions = append(conditions, fmt.Sprintf("(p.code ILIKE $%d OR p.name ILIKE $%d)", len(args)+1, len(args)+1))
		args = append(args, "%"+filter.Search+"%")
	}

	clause := ""
	if len(conditions) > 0 {
		clause = " WHERE " + strings.Join(conditions, " AND ")
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

	query := fmt.Sprintf(`SELECT p.id, p.code, p.name, p.description, p.faculty_id, p.coordinator_id,
        f.code AS faculty_code, f.name AS faculty_name, u.full_name AS coordinator_name
        %s ORDER BY p.code LIMIT %d OFFSET %d`, base+clause, size, offset)

	var programs []models.ProgramDetail
	if err := r.db.SelectContext(ctx, &programs, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list programs: %w", err)
	}

	countQuery := "SELECT COUNT(*) " + base + clause
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count programs: %w", err)
	}
	return programs, total, nil
}

// FindByID returns a program by its ID.
func (r *ProgramRepository) FindByID(ctx context.Context, id string) (*models.Program, error) {
	const query = `SELECT id, code, name, description, faculty_id, coordinator_id FROM programs WHERE id = $1`
	var program models.Program
	if err := r.db.GetContext(ctx, &program, query, id); err != nil {
		return nil, err
	}
	return &program, nil
}

// FindDetailByID returns a program with faculty context.
func (r *ProgramRepository) FindDetailByID(ctx context.Context, id string) (*models.ProgramDetail, error) {
	const query = `SELECT p.id, p.code, p.name, p.description, p.faculty_id, p.coordinator_id,
        f.code AS faculty_code, f.name AS faculty_name, u.full_name AS coordinator_name
        FROM programs p
        JOIN faculties f ON f.id = p.faculty_id
        LEFT JOIN users u ON u.id = p.coordinator_id
        WHERE p.id = $1`
	var program models.ProgramDetail
	if err := r.db.GetContext(ctx, &program, query, id); err != nil {
		return nil, err
	}
	return &program, nil
}

// FindOwnership loads the references policy checks need for a program.
func (r *ProgramRepository) FindOwnership(ctx context.Context, id string) (*ProgramOwnership, error) {
	const query = `SELECT p.id AS program_id, p.faculty_id, f.responsible_id, p.coordinator_id
        FROM programs p
        JOIN faculties f ON f.id = p.faculty_id
        WHERE p.id = $1`
	var ownership ProgramOwnership
	if err := r.db.GetContext(ctx, &ownership, query, id); err != nil {
		return nil, err
	}
	return &ownership, nil
}

// ListByFaculty returns the programs of one faculty with outcome and
// curriculum counts, for the faculty member dashboard.
func (r *ProgramRepository) ListByFaculty(ctx context.Context, facultyID string) ([]models.FacultyDashboardRow, error) {
	const query = `SELECT p.id, p.code, p.name, p.description, p.faculty_id, p.coordinator_id,
        (SELECT COUNT(*) FROM program_outcomes po WHERE po.program_id = p.id) AS outcome_count,
        (SELECT COUNT(*) FROM curricula c WHERE c.program_id = p.id) AS curriculum_count
        FROM programs p
        WHERE p.faculty_id = $1
        ORDER BY p.code`
	rows, err := r.db.QueryxContext(ctx, query, facultyID)
	if err != nil {
		return nil, fmt.Errorf("list faculty programs: %w", err)
	}
	defer rows.Close()

	var result []models.FacultyDashboardRow
	for rows.Next() {
		var row models.FacultyDashboardRow
		if err := rows.Scan(&row.Program.ID, &row.Program.Code, &row.Program.Name, &row.Program.Description,
			&row.Program.FacultyID, &row.Program.CoordinatorID, &row.OutcomeCount, &row.CurriculumCount); err != nil {
			return nil, fmt.Errorf("scan faculty program: %w", err)
		}
		result = append(result, row)
	}
	return result, rows.Err()
}

// Create persists a new program.
func (r *ProgramRepository) Create(ctx context.Context, program *models.Program) error {
	if program.ID == "" {
		program.ID = uuid.NewString()
	}
	const query = `INSERT INTO programs (id, code, name, description, faculty_id, coordinator_id)
        VALUES (:id, :code, :name, :description, :faculty_id, :coordinator_id)`
	if _, err := r.db.NamedExecContext(ctx, query, program); err != nil {
		return fmt.Errorf("insert program: %w", err)
	}
	return nil
}

// Update rewrites a program row.
func (r *ProgramRepository) Update(ctx context.Context, program *models.Program) error {
	const query = `UPDATE programs SET code = :code, name = :name, description = :description,
        faculty_id = :faculty_id, coordinator_id = :coordinator_id WHERE id = :id`
	res, err := r.db.NamedExecContext(ctx, query, program)
	if err != nil {
		return fmt.Errorf("update program: %w", err)
	}
	if affected, err := res.RowsAffected(); err == nil && affected == 0 {
		return fmt.Errorf("update program %s: %w", program.ID, errNoRowsAffected)
	}
	return nil
}

// Delete removes a program. Curricula, outcomes, assessments and results
// under it cascade.
func (r *ProgramRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, "DELETE FROM programs WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("delete program: %w", err)
	}
	if affected, err := res.RowsAffected(); err == nil && affected == 0 {
		return fmt.Errorf("delete program %s: %w", id, errNoRowsAffected)
	}
	return nil
}
