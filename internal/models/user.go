package models

import "time"

// UserRole represents the available roles for the RBAC system.
type UserRole string

const (
	RoleAdmin          UserRole = "ADMIN"
	RoleStudentAffairs UserRole = "STUDENT_AFFAIRS"
	RoleFacultyMember  UserRole = "FACULTY_MEMBER"
	RoleLecturer       UserRole = "LECTURER"
	RoleStudent        UserRole = "STUDENT"
)

// ValidRole reports whether the role is one of the five known roles.
func ValidRole(role UserRole) bool {
	switch role {
	case RoleAdmin, RoleStudentAffairs, RoleFacultyMember, RoleLecturer, RoleStudent:
		return true
	}
	return false
}

// User represents an application user stored in the users table. Columns that
// only apply to one role stay NULL for every other role; the user service
// clears them on each write.
type User struct {
	ID           string     `db:"id" json:"id"`
	Username     string     `db:"username" json:"username"`
	Email        *string    `db:"email" json:"email,omitempty"`
	PasswordHash string     `db:"password_hash" json:"-"`
	FullName     string     `db:"full_name" json:"full_name"`
	Phone        *string    `db:"phone" json:"phone,omitempty"`
	Role         UserRole   `db:"role" json:"role"`
	Superuser    bool       `db:"superuser" json:"superuser"`
	Active       bool       `db:"active" json:"active"`
	LastLogin    *time.Time `db:"last_login" json:"last_login,omitempty"`
	CreatedAt    time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time  `db:"updated_at" json:"updated_at"`

	StudentGrade           *int    `db:"student_grade" json:"student_grade,omitempty"`
	StudentFacultyID       *string `db:"student_faculty_id" json:"student_faculty_id,omitempty"`
	StudentProgramID       *string `db:"student_program_id" json:"student_program_id,omitempty"`
	FacultyMemberFacultyID *string `db:"faculty_member_faculty_id" json:"faculty_member_faculty_id,omitempty"`
}

// IsAdmin reports the administrator capability. The admin role alone is not
// sufficient, the elevated superuser flag is required as well.
func (u *User) IsAdmin() bool { return u.Role == RoleAdmin && u.Superuser }

func (u *User) IsStudentAffairs() bool { return u.Role == RoleStudentAffairs }
func (u *User) IsFacultyMember() bool  { return u.Role == RoleFacultyMember }
func (u *User) IsLecturer() bool       { return u.Role == RoleLecturer }
func (u *User) IsStudent() bool        { return u.Role == RoleStudent }

// UserDetail extends User with the lecturer assignment sets.
type UserDetail struct {
	User
	LecturerProgramIDs    []string `json:"lecturer_program_ids,omitempty"`
	LecturerCurriculumIDs []string `json:"lecturer_curriculum_ids,omitempty"`
}

// UserFilter captures filtering criteria for listing users.
type UserFilter struct {
	Role      *UserRole
	Active    *bool
	ProgramID string
	Search    string
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}
