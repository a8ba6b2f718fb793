package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/uni-obs/curricula-api/internal/models"
)

type queryObserver interface {
	ObserveDBQuery(label string, duration time.Duration)
}

// RosterRepository reads the derived enrollment relation. The relation itself
// is never edited directly: both write paths (user save, curriculum save) run
// the same derivation below inside their own transaction.
type RosterRepository struct {
	db  *sqlx.DB
	obs queryObserver
}

// NewRosterRepository constructs the repository.
func NewRosterRepository(db *sqlx.DB) *RosterRepository {
	return &RosterRepository{db: db}
}

// WithMetrics attaches a query-duration observer to the roster reads.
func (r *RosterRepository) WithMetrics(obs queryObserver) *RosterRepository {
	r.obs = obs
	return r
}

func (r *RosterRepository) observe(label string, start time.Time) {
	if r.obs != nil {
		r.obs.ObserveDBQuery(label, time.Since(start))
	}
}

// ListStudents returns the enrolled students of a curriculum.
func (r *RosterRepository) ListStudents(ctx context.Context, curriculumID string) ([]models.RosterEntry, error) {
	const query = `SELECT u.id AS student_id, u.username, u.full_name, u.student_grade
        FROM curriculum_students cs
        JOIN users u ON u.id = cs.student_id
        WHERE cs.curriculum_id = $1
        ORDER BY u.full_name, u.username`
	defer r.observe("roster_list_students", time.Now())
	var entries []models.RosterEntry
	if err := r.db.SelectContext(ctx, &entries, query, curriculumID); err != nil {
		return nil, fmt.Errorf("list roster: %w", err)
	}
	return entries, nil
}

// ListCurriculaForStudent returns the curricula a student is enrolled in.
func (r *RosterRepository) ListCurriculaForStudent(ctx context.Context, studentID string) ([]models.CurriculumDetail, error) {
	const query = `SELECT c.id, c.program_id, c.code, c.name, c.year, c.semester, c.ects, c.credit, c.description, c.lecturer_id,
        p.code AS program_code, p.name AS program_name, l.full_name AS lecturer_name
        FROM curriculum_students cs
        JOIN curricula c ON c.id = cs.curriculum_id
        JOIN programs p ON p.id = c.program_id
        LEFT JOIN users l ON l.id = c.lecturer_id
        WHERE cs.student_id = $1
        ORDER BY c.semester, c.code`
	defer r.observe("roster_list_curricula", time.Now())
	var curricula []models.CurriculumDetail
	if err := r.db.SelectContext(ctx, &curricula, query, studentID); err != nil {
		return nil, fmt.Errorf("list student curricula: %w", err)
	}
	return curricula, nil
}

// IsEnrolled reports whether the student is on the curriculum's roster.
func (r *RosterRepository) IsEnrolled(ctx context.Context, studentID, curriculumID string) (bool, error) {
	var exists int
	err := r.db.GetContext(ctx, &exists,
		"SELECT 1 FROM curriculum_students WHERE student_id = $1 AND curriculum_id = $2 LIMIT 1",
		studentID, curriculumID)
	if err != nil {
		if isNoRows(err) {
			return false, nil
		}
		return false, fmt.Errorf("check enrollment: %w", err)
	}
	return true, nil
}

// syncStudentRosterTx re-derives one user's enrollments: a student with a
// program and a grade is enrolled in exactly the curricula whose (program,
// year) matches; everyone else holds no enrollments. Full replace.
func syncStudentRosterTx(ctx context.Context, tx *sqlx.Tx, userID string) error {
	if _, err := tx.ExecContext(ctx, "DELETE FROM curriculum_students WHERE student_id = $1", userID); err != nil {
		return fmt.Errorf("clear student enrollments: %w", err)
	}
	const derive = `INSERT INTO curriculum_students (curriculum_id, student_id)
        SELECT c.id, u.id
        FROM users u
        JOIN curricula c ON c.program_id = u.student_program_id AND c.year = u.student_grade
        WHERE u.id = $1 AND u.role = $2
          AND u.student_program_id IS NOT NULL AND u.student_grade IS NOT NULL`
	if _, err := tx.ExecContext(ctx, derive, userID, models.RoleStudent); err != nil {
		return fmt.Errorf("derive student enrollments: %w", err)
	}
	return nil
}

// syncCurriculumRosterTx re-derives one curriculum's roster from the same
// invariant, triggered from the curriculum side. Full replace.
func syncCurriculumRosterTx(ctx context.Context, tx *sqlx.Tx, curriculumID string) error {
	if _, err := tx.ExecContext(ctx, "DELETE FROM curriculum_students WHERE curriculum_id = $1", curriculumID); err != nil {
		return fmt.Errorf("clear curriculum roster: %w", err)
	}
	const derive = `INSERT INTO curriculum_students (curriculum_id, student_id)
        SELECT c.id, u.id
        FROM curricula c
        JOIN users u ON u.student_program_id = c.program_id AND u.student_grade = c.year
        WHERE c.id = $1 AND c.year IS NOT NULL AND u.role = $2`
	if _, err := tx.ExecContext(ctx, derive, curriculumID, models.RoleStudent); err != nil {
		return fmt.Errorf("derive curriculum roster: %w", err)
	}
	return nil
}
