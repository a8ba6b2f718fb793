package models

import "time"

// AssessmentType enumerates graded activities.
type AssessmentType string

const (
	AssessmentQuiz    AssessmentType = "QUIZ"
	AssessmentMidterm AssessmentType = "MIDTERM"
	AssessmentFinal   AssessmentType = "FINAL"
	AssessmentProject AssessmentType = "PROJECT"
	AssessmentOther   AssessmentType = "OTHER"
)

// ValidAssessmentType reports whether the value is a known type.
func ValidAssessmentType(t AssessmentType) bool {
	switch t {
	case AssessmentQuiz, AssessmentMidterm, AssessmentFinal, AssessmentProject, AssessmentOther:
		return true
	}
	return false
}

// Assessment is a graded activity owned by a curriculum.
type Assessment struct {
	ID             string         `db:"id" json:"id"`
	CurriculumID   string         `db:"curriculum_id" json:"curriculum_id"`
	Name           string         `db:"name" json:"name"`
	Type           AssessmentType `db:"type" json:"type"`
	WeightInCourse int            `db:"weight_in_course" json:"weight_in_course"`
	MaxScore       int            `db:"max_score" json:"max_score"`
	Date           *time.Time     `db:"date" json:"date,omitempty"`
}

// AssessmentMapping is one weighted assessment→LO link.
type AssessmentMapping struct {
	AssessmentID      string `db:"assessment_id" json:"assessment_id"`
	LearningOutcomeID string `db:"learning_outcome_id" json:"learning_outcome_id"`
	Weight            int    `db:"weight_in_assessment" json:"weight_in_assessment"`
}

// MappedLearningOutcome is an LO row joined with its mapping weight for one
// assessment. Weight is nil when the LO is not mapped.
type MappedLearningOutcome struct {
	LearningOutcome
	Weight *int `db:"weight" json:"weight,omitempty"`
}

// StudentAssessmentResult holds the single current raw score of a student for
// an assessment. RawScore stays nil until a score is entered.
type StudentAssessmentResult struct {
	ID           string    `db:"id" json:"id"`
	AssessmentID string    `db:"assessment_id" json:"assessment_id"`
	StudentID    string    `db:"student_id" json:"student_id"`
	RawScore     *float64  `db:"raw_score" json:"raw_score,omitempty"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time `db:"updated_at" json:"updated_at"`
}

// GradeRow is one roster entry joined with the student's current score for an
// assessment, used by the grade-entry screen and exports.
type GradeRow struct {
	StudentID string   `db:"student_id" json:"student_id"`
	Username  string   `db:"username" json:"username"`
	FullName  string   `db:"full_name" json:"full_name"`
	RawScore  *float64 `db:"raw_score" json:"raw_score,omitempty"`
}
