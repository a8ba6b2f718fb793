package models

// Semester enumerates when a curriculum is taught.
type Semester string

const (
	SemesterFall     Semester = "FALL"
	SemesterSpring   Semester = "SPRING"
	SemesterYearLong Semester = "YEARLONG"
)

// ValidSemester reports whether the value is a known semester.
func ValidSemester(s Semester) bool {
	switch s {
	case SemesterFall, SemesterSpring, SemesterYearLong:
		return true
	}
	return false
}

// Curriculum is a course offering owned by a program. Year is the grade level
// the course is typically taken in; when both program and year are set the
// enrolled-student roster is derived automatically.
type Curriculum struct {
	ID          string   `db:"id" json:"id"`
	ProgramID   string   `db:"program_id" json:"program_id"`
	Code        string   `db:"code" json:"code"`
	Name        string   `db:"name" json:"name"`
	Year        *int     `db:"year" json:"year,omitempty"`
	Semester    Semester `db:"semester" json:"semester"`
	ECTS        *float64 `db:"ects" json:"ects,omitempty"`
	Credit      *float64 `db:"credit" json:"credit,omitempty"`
	Description string   `db:"description" json:"description"`
	LecturerID  *string  `db:"lecturer_id" json:"lecturer_id,omitempty"`
}

// CurriculumDetail adds program and lecturer context.
type CurriculumDetail struct {
	Curriculum
	ProgramCode  string  `db:"program_code" json:"program_code"`
	ProgramName  string  `db:"program_name" json:"program_name"`
	LecturerName *string `db:"lecturer_name" json:"lecturer_name,omitempty"`
}

// CurriculumFilter captures list criteria for curricula.
type CurriculumFilter struct {
	ProgramID  string
	LecturerID string
	Year       *int
	Semester   Semester
	Search     string
	Page       int
	PageSize   int
	SortBy     string
	SortOrder  string
}

// RosterEntry is one derived enrollment row of a curriculum.
type RosterEntry struct {
	StudentID string `db:"student_id" json:"student_id"`
	Username  string `db:"username" json:"username"`
	FullName  string `db:"full_name" json:"full_name"`
	Grade     *int   `db:"student_grade" json:"grade,omitempty"`
}
