package models

// Faculty is the root of the organizational tree.
type Faculty struct {
	ID            string  `db:"id" json:"id"`
	Code          string  `db:"code" json:"code"`
	Name          string  `db:"name" json:"name"`
	Description   string  `db:"description" json:"description"`
	ResponsibleID *string `db:"responsible_id" json:"responsible_id,omitempty"`
}

// FacultyDetail adds the responsible user's display name.
type FacultyDetail struct {
	Faculty
	ResponsibleName *string `db:"responsible_name" json:"responsible_name,omitempty"`
}

// Program belongs to exactly one faculty.
type Program struct {
	ID            string  `db:"id" json:"id"`
	Code          string  `db:"code" json:"code"`
	Name          string  `db:"name" json:"name"`
	Description   string  `db:"description" json:"description"`
	FacultyID     string  `db:"faculty_id" json:"faculty_id"`
	CoordinatorID *string `db:"coordinator_id" json:"coordinator_id,omitempty"`
}

// ProgramDetail adds faculty context for list views.
type ProgramDetail struct {
	Program
	FacultyCode     string  `db:"faculty_code" json:"faculty_code"`
	FacultyName     string  `db:"faculty_name" json:"faculty_name"`
	CoordinatorName *string `db:"coordinator_name" json:"coordinator_name,omitempty"`
}

// ProgramFilter captures list criteria for programs.
type ProgramFilter struct {
	FacultyID string
	Search    string
	Page      int
	PageSize  int
}
