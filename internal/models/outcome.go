package models

// ProgramOutcome is a program-level competency statement (PO).
type ProgramOutcome struct {
	ID          string `db:"id" json:"id"`
	ProgramID   string `db:"program_id" json:"program_id"`
	Code        string `db:"code" json:"code"`
	ShortTitle  string `db:"short_title" json:"short_title"`
	Description string `db:"description" json:"description"`
	SortOrder   int    `db:"sort_order" json:"sort_order"`
	Active      bool   `db:"active" json:"active"`
}

// LearningOutcome is a curriculum-level competency statement (LO).
type LearningOutcome struct {
	ID           string `db:"id" json:"id"`
	CurriculumID string `db:"curriculum_id" json:"curriculum_id"`
	Code         string `db:"code" json:"code"`
	ShortTitle   string `db:"short_title" json:"short_title"`
	Description  string `db:"description" json:"description"`
	SortOrder    int    `db:"sort_order" json:"sort_order"`
	Active       bool   `db:"active" json:"active"`
}

// LearningOutcomeMapping is one weighted LO→PO link. Weight is the percentage
// this LO contributes to the PO; a link with weight zero is never stored.
type LearningOutcomeMapping struct {
	LearningOutcomeID string `db:"learning_outcome_id" json:"learning_outcome_id"`
	ProgramOutcomeID  string `db:"program_outcome_id" json:"program_outcome_id"`
	Weight            int    `db:"weight" json:"weight"`
}

// MappedProgramOutcome is a PO row joined with its mapping weight for one LO.
// Weight is nil when the PO is not mapped.
type MappedProgramOutcome struct {
	ProgramOutcome
	Weight *int `db:"weight" json:"weight,omitempty"`
}
