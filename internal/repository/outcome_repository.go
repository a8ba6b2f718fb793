package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/uni-obs/curricula-api/internal/models"
)

// OutcomeRepository handles program outcomes, learning outcomes and the
// weighted LO→PO mapping rows.
type OutcomeRepository struct {
	db *sqlx.DB
}

// NewOutcomeRepository constructs the repository.
func NewOutcomeRepository(db *sqlx.DB) *OutcomeRepository {
	return &OutcomeRepository{db: db}
}

// ListProgramOutcomes returns the POs of a program in display order.
func (r *OutcomeRepository) ListProgramOutcomes(ctx context.Context, programID string) ([]models.ProgramOutcome, error) {
	const query = `SELECT id, program_id, code, short_title, description, sort_order, active
        FROM program_outcomes WHERE program_id = $1 ORDER BY sort_order, code`
	var outcomes []models.ProgramOutcome
	if err := r.db.SelectContext(ctx, &outcomes, query, programID); err != nil {
		return nil, fmt.Errorf("list program outcomes: %w", err)
	}
	return outcomes, nil
}

// FindProgramOutcomeByID returns a PO by its ID.
func (r *OutcomeRepository) FindProgramOutcomeByID(ctx context.Context, id string) (*models.ProgramOutcome, error) {
	const query = `SELECT id, program_id, code, short_title, description, sort_order, active
        FROM program_outcomes WHERE id = $1`
	var outcome models.ProgramOutcome
	if err := r.db.GetContext(ctx, &outcome, query, id); err != nil {
		return nil, err
	}
	return &outcome, nil
}

// CreateProgramOutcome persists a new PO.
func (r *OutcomeRepository) CreateProgramOutcome(ctx context.Context, outcome *models.ProgramOutcome) error {
	if outcome.ID == "" {
		outcome.ID = uuid.NewString()
	}
	const query = `INSERT INTO program_outcomes (id, program_id, code, short_title, description, sort_order, active)
        VALUES (:id, :program_id, :code, :short_title, :description, :sort_order, :active)`
	if _, err := r.db.NamedExecContext(ctx, query, outcome); err != nil {
		return fmt.Errorf("insert program outcome: %w", err)
	}
	return nil
}

// UpdateProgramOutcome rewrites a PO row.
func (r *OutcomeRepository) UpdateProgramOutcome(ctx context.Context, outcome *models.ProgramOutcome) error {
	const query = `UPDATE program_outcomes SET code = :code, short_title = :short_title, description = :description,
        sort_order = :sort_order, active = :active WHERE id = :id`
	res, err := r.db.NamedExecContext(ctx, query, outcome)
	if err != nil {
		return fmt.Errorf("update program outcome: %w", err)
	}
	if affected, err := res.RowsAffected(); err == nil && affected == 0 {
		return fmt.Errorf("update program outcome %s: %w", outcome.ID, errNoRowsAffected)
	}
	return nil
}

// DeleteProgramOutcome removes a PO. Mapping rows cascade.
func (r *OutcomeRepository) DeleteProgramOutcome(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, "DELETE FROM program_outcomes WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("delete program outcome: %w", err)
	}
	if affected, err := res.RowsAffected(); err == nil && affected == 0 {
		return fmt.Errorf("delete program outcome %s: %w", id, errNoRowsAffected)
	}
	return nil
}

// ListLearningOutcomes returns the LOs of a curriculum in display order.
func (r *OutcomeRepository) ListLearningOutcomes(ctx context.Context, curriculumID string) ([]models.LearningOutcome, error) {
	const query = `SELECT id, curriculum_id, code, short_title, description, sort_order, active
        FROM learning_outcomes WHERE curriculum_id = $1 ORDER BY sort_order, code`
	var outcomes []models.LearningOutcome
	if err := r.db.SelectContext(ctx, &outcomes, query, curriculumID); err != nil {
		return nil, fmt.Errorf("list learning outcomes: %w", err)
	}
	return outcomes, nil
}

// FindLearningOutcomeByID returns an LO by its ID.
func (r *OutcomeRepository) FindLearningOutcomeByID(ctx context.Context, id string) (*models.LearningOutcome, error) {
	const query = `SELECT id, curriculum_id, code, short_title, description, sort_order, active
        FROM learning_outcomes WHERE id = $1`
	var outcome models.LearningOutcome
	if err := r.db.GetContext(ctx, &outcome, query, id); err != nil {
		return nil, err
	}
	return &outcome, nil
}

// CreateLearningOutcome persists a new LO.
func (r *OutcomeRepository) CreateLearningOutcome(ctx context.Context, outcome *models.LearningOutcome) error {
	if outcome.ID == "" {
		outcome.ID = uuid.NewString()
	}
	const query = `INSERT INTO learning_outcomes (id, curriculum_id, code, short_title, description, sort_order, active)
        VALUES (:id, :curriculum_id, :code, :short_title, :description, :sort_order, :active)`
	if _, err := r.db.NamedExecContext(ctx, query, outcome); err != nil {
		return fmt.Errorf("insert learning outcome: %w", err)
	}
	return nil
}

// UpdateLearningOutcome rewrites an LO row.
func (r *OutcomeRepository) UpdateLearningOutcome(ctx context.Context, outcome *models.LearningOutcome) error {
	const query = `UPDATE learning_outcomes SET code = :code, short_title = :short_title, description = :description,
        sort_order = :sort_order, active = :active WHERE id = :id`
	res, err := r.db.NamedExecContext(ctx, query, outcome)
	if err != nil {
		return fmt.Errorf("update learning outcome: %w", err)
	}
	if affected, err := res.RowsAffected(); err == nil && affected == 0 {
		return fmt.Errorf("update learning outcome %s: %w", outcome.ID, errNoRowsAffected)
	}
	return nil
}

// DeleteLearningOutcome removes an LO. Mapping rows cascade.
func (r *OutcomeRepository) DeleteLearningOutcome(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, "DELETE FROM learning_outcomes WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("delete learning outcome: %w", err)
	}
	if affected, err := res.RowsAffected(); err == nil && affected == 0 {
		return fmt.Errorf("delete learning outcome %s: %w", id, errNoRowsAffected)
	}
	return nil
}

// ListMappings returns the stored LO→PO links of one LO.
func (r *OutcomeRepository) ListMappings(ctx context.Context, learningOutcomeID string) ([]models.LearningOutcomeMapping, error) {
	const query = `SELECT learning_outcome_id, program_outcome_id, weight
        FROM learning_outcome_program_outcomes WHERE learning_outcome_id = $1`
	var mappings []models.LearningOutcomeMapping
	if err := r.db.SelectContext(ctx, &mappings, query, learningOutcomeID); err != nil {
		return nil, fmt.Errorf("list outcome mappings: %w", err)
	}
	return mappings, nil
}

// ListMappedProgramOutcomes returns every PO of the LO's program together
// with the mapping weight, nil where unmapped.
func (r *OutcomeRepository) ListMappedProgramOutcomes(ctx context.Context, learningOutcomeID string) ([]models.MappedProgramOutcome, error) {
	const query = `SELECT po.id, po.program_id, po.code, po.short_title, po.description, po.sort_order, po.active, m.weight
        FROM learning_outcomes lo
        JOIN curricula c ON c.id = lo.curriculum_id
        JOIN program_outcomes po ON po.program_id = c.program_id
        LEFT JOIN learning_outcome_program_outcomes m
            ON m.program_outcome_id = po.id AND m.learning_outcome_id = lo.id
        WHERE lo.id = $1
        ORDER BY po.sort_order, po.code`
	var outcomes []models.MappedProgramOutcome
	if err := r.db.SelectContext(ctx, &outcomes, query, learningOutcomeID); err != nil {
		return nil, fmt.Errorf("list mapped program outcomes: %w", err)
	}
	return outcomes, nil
}

// ApplyMappings upserts and removes LO→PO links in one transaction.
func (r *OutcomeRepository) ApplyMappings(ctx context.Context, learningOutcomeID string, upserts []models.LearningOutcomeMapping, removals []string) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	const upsert = `INSERT INTO learning_outcome_program_outcomes (learning_outcome_id, program_outcome_id, weight)
        VALUES (:learning_outcome_id, :program_outcome_id, :weight)
        ON CONFLICT (learning_outcome_id, program_outcome_id)
        DO UPDATE SET weight = EXCLUDED.weight`
	for i := range upserts {
		upserts[i].LearningOutcomeID = learningOutcomeID
		if _, err := tx.NamedExecContext(ctx, upsert, upserts[i]); err != nil {
			tx.Rollback() //nolint:errcheck
			return fmt.Errorf("upsert outcome mapping: %w", err)
		}
	}
	for _, programOutcomeID := range removals {
		if _, err := tx.ExecContext(ctx,
			"DELETE FROM learning_outcome_program_outcomes WHERE learning_outcome_id = $1 AND program_outcome_id = $2",
			learningOutcomeID, programOutcomeID); err != nil {
			tx.Rollback() //nolint:errcheck
			return fmt.Errorf("delete outcome mapping: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit outcome mappings: %w", err)
	}
	return nil
}
