package models

// Landing tells a client where to send the authenticated user.
type Landing struct {
	Role  UserRole `json:"role"`
	Route string   `json:"route"`
}

// StudentDashboard lists the student's derived enrollments.
type StudentDashboard struct {
	Student   UserInfo           `json:"student"`
	Program   *Program           `json:"program,omitempty"`
	Grade     *int               `json:"grade,omitempty"`
	Curricula []CurriculumDetail `json:"curricula"`
}

// CourseDetail is the student's view of one enrolled curriculum.
type CourseDetail struct {
	Curriculum  CurriculumDetail   `json:"curriculum"`
	Assessments []CourseAssessment `json:"assessments"`
}

// CourseAssessment pairs an assessment with the student's own result and the
// weighted outcome breakdown. Percentage and Contribution are nil when the
// score or max score is absent, or max score is zero.
type CourseAssessment struct {
	Assessment   Assessment             `json:"assessment"`
	RawScore     *float64               `json:"raw_score,omitempty"`
	Percentage   *float64               `json:"percentage,omitempty"`
	Contribution *float64               `json:"contribution,omitempty"`
	Outcomes     []CourseOutcomeMapping `json:"outcomes"`
}

// CourseOutcomeMapping shows one LO targeted by an assessment and the POs the
// LO contributes to.
type CourseOutcomeMapping struct {
	LearningOutcomeCode  string            `json:"learning_outcome_code"`
	LearningOutcomeTitle string            `json:"learning_outcome_title"`
	WeightInAssessment   int               `json:"weight_in_assessment"`
	ProgramOutcomes      []WeightedOutcome `json:"program_outcomes"`
}

// WeightedOutcome is a PO reference with the LO's contribution weight.
type WeightedOutcome struct {
	Code       string `json:"code"`
	ShortTitle string `json:"short_title"`
	Weight     int    `json:"weight"`
}

// FacultyDashboard is the faculty member's read-only view of their faculty.
type FacultyDashboard struct {
	Faculty  FacultyDetail         `json:"faculty"`
	Programs []FacultyDashboardRow `json:"programs"`
}

// FacultyDashboardRow summarises one program of the faculty.
type FacultyDashboardRow struct {
	Program         Program `json:"program"`
	OutcomeCount    int     `json:"outcome_count"`
	CurriculumCount int     `json:"curriculum_count"`
}
