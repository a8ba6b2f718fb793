package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/uni-obs/curricula-api/internal/models"
)

// AssessmentRepository handles assessments, their LO mappings and the
// per-student results.
type AssessmentRepository struct {
	db *sqlx.DB
}

// NewAssessmentRepository constructs the repository.
func NewAssessmentRepository(db *sqlx.DB) *AssessmentRepository {
	return &AssessmentRepository{db: db}
}

// ListByCurriculum returns the assessments of a curriculum.
func (r *AssessmentRepository) ListByCurriculum(ctx context.Context, curriculumID string) ([]models.Assessment, error) {
	const query = `SELECT id, curriculum_id, name, type, weight_in_course, max_score, date
        FROM assessments WHERE curriculum_id = $1 ORDER BY date NULLS LAST, name`
	var assessments []models.Assessment
	if err := r.db.SelectContext(ctx, &assessments, query, curriculumID); err != nil {
		return nil, fmt.Errorf("list assessments: %w", err)
	}
	return assessments, nil
}

// FindByID returns an assessment by its ID.
func (r *AssessmentRepository) FindByID(ctx context.Context, id string) (*models.Assessment, error) {
	const query = `SELECT id, curriculum_id, name, type, weight_in_course, max_score, date
        FROM assessments WHERE id = $1`
	var assessment models.Assessment
	if err := r.db.GetContext(ctx, &assessment, query, id); err != nil {
		return nil, err
	}
	return &assessment, nil
}

// FindOwnership resolves the curriculum ownership behind an assessment so
// policy checks can reuse the curriculum rules.
func (r *AssessmentRepository) FindOwnership(ctx context.Context, id string) (*CurriculumOwnership, error) {
	const query = `SELECT c.id AS curriculum_id, c.program_id, c.lecturer_id
        FROM assessments a
        JOIN curricula c ON c.id = a.curriculum_id
        WHERE a.id = $1`
	var ownership CurriculumOwnership
	if err := r.db.GetContext(ctx, &ownership, query, id); err != nil {
		return nil, err
	}
	return &ownership, nil
}

// Create persists a new assessment.
func (r *AssessmentRepository) Create(ctx context.Context, assessment *models.Assessment) error {
	if assessment.ID == "" {
		assessment.ID = uuid.NewString()
	}
	const query = `INSERT INTO assessments (id, curriculum_id, name, type, weight_in_course, max_score, date)
        VALUES (:id, :curriculum_id, :name, :type, :weight_in_course, :max_score, :date)`
	if _, err := r.db.NamedExecContext(ctx, query, assessment); err != nil {
		return fmt.Errorf("insert assessment: %w", err)
	}
	return nil
}

// Update rewrites an assessment row.
func (r *AssessmentRepository) Update(ctx context.Context, assessment *models.Assessment) error {
	const query = `UPDATE assessments SET name = :name, type = :type, weight_in_course = :weight_in_course,
        max_score = :max_score, date = :date WHERE id = :id`
	res, err := r.db.NamedExecContext(ctx, query, assessment)
	if err != nil {
		return fmt.Errorf("update assessment: %w", err)
	}
	if affected, err := res.RowsAffected(); err == nil && affected == 0 {
		return fmt.Errorf("update assessment %s: %w", assessment.ID, errNoRowsAffected)
	}
	return nil
}

// Delete removes an assessment. Mappings and results cascade.
func (r *AssessmentRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, "DELETE FROM assessments WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("delete assessment: %w", err)
	}
	if affected, err := res.RowsAffected(); err == nil && affected == 0 {
		return fmt.Errorf("delete assessment %s: %w", id, errNoRowsAffected)
	}
	return nil
}

// ListMappings returns the stored assessment→LO links of one assessment.
func (r *AssessmentRepository) ListMappings(ctx context.Context, assessmentID string) ([]models.AssessmentMapping, error) {
	const query = `SELECT assessment_id, learning_outcome_id, weight_in_assessment
        FROM assessment_learning_outcomes WHERE assessment_id = $1`
	var mappings []models.AssessmentMapping
	if err := r.db.SelectContext(ctx, &mappings, query, assessmentID); err != nil {
		return nil, fmt.Errorf("list assessment mappings: %w", err)
	}
	return mappings, nil
}

// ListMappedLearningOutcomes returns every LO of the assessment's curriculum
// together with the mapping weight, nil where unmapped.
func (r *AssessmentRepository) ListMappedLearningOutcomes(ctx context.Context, assessmentID string) ([]models.MappedLearningOutcome, error) {
	const query = `SELECT lo.id, lo.curriculum_id, lo.code, lo.short_title, lo.description, lo.sort_order, lo.active, m.weight_in_assessment AS weight
        FROM assessments a
        JOIN learning_outcomes lo ON lo.curriculum_id = a.curriculum_id
        LEFT JOIN assessment_learning_outcomes m
            ON m.learning_outcome_id = lo.id AND m.assessment_id = a.id
        WHERE a.id = $1
        ORDER BY lo.sort_order, lo.code`
	var outcomes []models.MappedLearningOutcome
	if err := r.db.SelectContext(ctx, &outcomes, query, assessmentID); err != nil {
		return nil, fmt.Errorf("list mapped learning outcomes: %w", err)
	}
	return outcomes, nil
}

// ApplyMappings upserts and removes assessment→LO links in one transaction.
func (r *AssessmentRepository) ApplyMappings(ctx context.Context, assessmentID string, upserts []models.AssessmentMapping, removals []string) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	const upsert = `INSERT INTO assessment_learning_outcomes (assessment_id, learning_outcome_id, weight_in_assessment)
        VALUES (:assessment_id, :learning_outcome_id, :weight_in_assessment)
        ON CONFLICT (assessment_id, learning_outcome_id)
        DO UPDATE SET weight_in_assessment = EXCLUDED.weight_in_assessment`
	for i := range upserts {
		upserts[i].AssessmentID = assessmentID
		if _, err := tx.NamedExecContext(ctx, upsert, upserts[i]); err != nil {
			tx.Rollback() //nolint:errcheck
			return fmt.Errorf("upsert assessment mapping: %w", err)
		}
	}
	for _, learningOutcomeID := range removals {
		if _, err := tx.ExecContext(ctx,
			"DELETE FROM assessment_learning_outcomes WHERE assessment_id = $1 AND learning_outcome_id = $2",
			assessmentID, learningOutcomeID); err != nil {
			tx.Rollback() //nolint:errcheck
			return fmt.Errorf("delete assessment mapping: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit assessment mappings: %w", err)
	}
	return nil
}

// ListGradeRows returns the curriculum roster joined with each student's
// current score for the assessment, nil where no score was entered yet.
func (r *AssessmentRepository) ListGradeRows(ctx context.Context, assessmentID string) ([]models.GradeRow, error) {
	const query = `SELECT u.id AS student_id, u.username, u.full_name, res.raw_score
        FROM assessments a
        JOIN curriculum_students cs ON cs.curriculum_id = a.curriculum_id
        JOIN users u ON u.id = cs.student_id
        LEFT JOIN student_assessment_results res
            ON res.assessment_id = a.id AND res.student_id = u.id
        WHERE a.id = $1
        ORDER BY u.full_name, u.username`
	var rows []models.GradeRow
	if err := r.db.SelectContext(ctx, &rows, query, assessmentID); err != nil {
		return nil, fmt.Errorf("list grade rows: %w", err)
	}
	return rows, nil
}

// UpsertResults applies a batch of scores in one transaction. Each entry
// inserts or overwrites the single result row per (assessment, student).
func (r *AssessmentRepository) UpsertResults(ctx context.Context, assessmentID string, results []models.StudentAssessmentResult) error {
	if len(results) == 0 {
		return nil
	}
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	const upsert = `INSERT INTO student_assessment_results (id, assessment_id, student_id, raw_score, created_at, updated_at)
        VALUES (:id, :assessment_id, :student_id, :raw_score, NOW(), NOW())
        ON CONFLICT (assessment_id, student_id)
        DO UPDATE SET raw_score = EXCLUDED.raw_score, updated_at = NOW()`
	for i := range results {
		results[i].AssessmentID = assessmentID
		if results[i].ID == "" {
			results[i].ID = uuid.NewString()
		}
		if _, err := tx.NamedExecContext(ctx, upsert, results[i]); err != nil {
			tx.Rollback() //nolint:errcheck
			return fmt.Errorf("upsert result: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit results: %w", err)
	}
	return nil
}

// ListResultsForStudentByCurriculum returns a student's results joined with
// the assessment rows of one curriculum, for the course detail view.
func (r *AssessmentRepository) ListResultsForStudentByCurriculum(ctx context.Context, studentID, curriculumID string) ([]models.StudentAssessmentResult, error) {
	const query = `SELECT res.id, res.assessment_id, res.student_id, res.raw_score, res.created_at, res.updated_at
        FROM student_assessment_results res
        JOIN assessments a ON a.id = res.assessment_id
        WHERE res.student_id = $1 AND a.curriculum_id = $2`
	var results []models.StudentAssessmentResult
	if err := r.db.SelectContext(ctx, &results, query, studentID, curriculumID); err != nil {
		return nil, fmt.Errorf("list student results: %w", err)
	}
	return results, nil
}
