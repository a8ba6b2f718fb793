package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/uni-obs/curricula-api/internal/models"
)

const userColumns = `id, username, email, password_hash, full_name, phone, role, superuser, active,
        last_login, created_at, updated_at,
        student_grade, student_faculty_id, student_program_id, faculty_member_faculty_id`

// UserRepository handles persistence of users and their role assignments.
type UserRepository struct {
	db *sqlx.DB
}

// NewUserRepository constructs the repository.
func NewUserRepository(db *sqlx.DB) *UserRepository {
	return &UserRepository{db: db}
}

// List returns users filtered by the provided criteria.
func (r *UserRepository) List(ctx context.Context, filter models.UserFilter) ([]models.User, int, error) {
	base := "FROM users u"
	var conditions []string
	var args []interface{}

	if filter.Role != nil {
		conditions = append(conditions, fmt.Sprintf("u.role = $%d", len(args)+1))
		args = append(args, *filter.Role)
	}
	if filter.Active != nil {
		conditions = append(conditions, fmt.Sprintf("u.active = $%d", len(args)+1))
		args = append(args, *filter.Active)
	}
	if filter.ProgramID != "" {
		conditions = append(conditions, fmt.Sprintf("u.student_program_id = $%d", len(args)+1))
		args = append(args, filter.ProgramID)
	}
	if filter.Search != "" {
		conditions = append(conditions, fmt.Sprintf("(u.username ILIKE $%d OR u.full_name ILIKE $%d)", len(args)+1, len(args)+1))
		args = append(args, "%"+filter.Search+"%")
	}

	clause := ""
	if len(conditions) > 0 {
		clause = " WHERE " + strings.Join(conditions, " AND ")
	}

	allowedSorts := map[string]string{
		"username":   "u.username",
		"full_name":  "u.full_name",
		"created_at": "u.created_at",
	}
	orderBy := allowedSorts[filter.SortBy]
	if orderBy == "" {
		orderBy = "u.username"
	}
	order := strings.ToUpper(filter.SortOrder)
	if order != "ASC" && order != "DESC" {
		order = "ASC"
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

	query := fmt.Sprintf("SELECT %s %s ORDER BY %s %s LIMIT %d OFFSET %d",
		userColumns, base+clause, orderBy, order, size, offset)

	var users []models.User
	if err := r.db.SelectContext(ctx, &users, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list users: %w", err)
	}

	countQuery := "SELECT COUNT(*) " + base + clause
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count users: %w", err)
	}
	return users, total, nil
}

// FindByID returns a user by its ID.
func (r *UserRepository) FindByID(ctx context.Context, id string) (*models.User, error) {
	query := fmt.Sprintf("SELECT %s FROM users WHERE id = $1", userColumns)
	var user models.User
	if err := r.db.GetContext(ctx, &user, query, id); err != nil {
		return nil, err
	}
	return &user, nil
}

// FindByUsername returns a user by its unique username.
func (r *UserRepository) FindByUsername(ctx context.Context, username string) (*models.User, error) {
	query := fmt.Sprintf("SELECT %s FROM users WHERE username = $1", userColumns)
	var user models.User
	if err := r.db.GetContext(ctx, &user, query, username); err != nil {
		return nil, err
	}
	return &user, nil
}

// FindDetailByID returns a user together with the lecturer assignment sets.
func (r *UserRepository) FindDetailByID(ctx context.Context, id string) (*models.UserDetail, error) {
	user, err := r.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	detail := &models.UserDetail{User: *user}

	if err := r.db.SelectContext(ctx, &detail.LecturerProgramIDs,
		"SELECT program_id FROM lecturer_programs WHERE user_id = $1 ORDER BY program_id", id); err != nil {
		return nil, fmt.Errorf("load lecturer programs: %w", err)
	}
	if err := r.db.SelectContext(ctx, &detail.LecturerCurriculumIDs,
		"SELECT curriculum_id FROM lecturer_curricula WHERE user_id = $1 ORDER BY curriculum_id", id); err != nil {
		return nil, fmt.Errorf("load lecturer curricula: %w", err)
	}
	return detail, nil
}

// Create inserts a user, its lecturer assignments and re-derives the user's
// curriculum enrollments, all in one transaction.
func (r *UserRepository) Create(ctx context.Context, user *models.User, programIDs, curriculumIDs []string) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	user.CreatedAt = now
	user.UpdatedAt = now

	const query = `INSERT INTO users (id, username, email, password_hash, full_name, phone, role, superuser, active,
        created_at, updated_at, student_grade, student_faculty_id, student_program_id, faculty_member_faculty_id)
        VALUES (:id, :username, :email, :password_hash, :full_name, :phone, :role, :superuser, :active,
        :created_at, :updated_at, :student_grade, :student_faculty_id, :student_program_id, :faculty_member_faculty_id)`
	if _, err := tx.NamedExecContext(ctx, query, user); err != nil {
		tx.Rollback() //nolint:errcheck
		return fmt.Errorf("insert user: %w", err)
	}
	if err := r.replaceLecturerSetsTx(ctx, tx, user.ID, programIDs, curriculumIDs); err != nil {
		tx.Rollback() //nolint:errcheck
		return err
	}
	if err := syncStudentRosterTx(ctx, tx, user.ID); err != nil {
		tx.Rollback() //nolint:errcheck
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit user: %w", err)
	}
	return nil
}

// Update rewrites a user row, its lecturer assignments and the derived
// enrollments in one transaction.
func (r *UserRepository) Update(ctx context.Context, user *models.User, programIDs, curriculumIDs []string) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	user.UpdatedAt = time.Now().UTC()

	const query = `UPDATE users SET username = :username, email = :email, full_name = :full_name, phone = :phone,
        role = :role, active = :active, updated_at = :updated_at,
        student_grade = :student_grade, student_faculty_id = :student_faculty_id,
        student_program_id = :student_program_id, faculty_member_faculty_id = :faculty_member_faculty_id
        WHERE id = :id`
	res, err := tx.NamedExecContext(ctx, query, user)
	if err != nil {
		tx.Rollback() //nolint:errcheck
		return fmt.Errorf("update user: %w", err)
	}
	if affected, err := res.RowsAffected(); err == nil && affected == 0 {
		tx.Rollback() //nolint:errcheck
		return fmt.Errorf("update user %s: %w", user.ID, errNoRowsAffected)
	}
	if err := r.replaceLecturerSetsTx(ctx, tx, user.ID, programIDs, curriculumIDs); err != nil {
		tx.Rollback() //nolint:errcheck
		return err
	}
	if err := syncStudentRosterTx(ctx, tx, user.ID); err != nil {
		tx.Rollback() //nolint:errcheck
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit user: %w", err)
	}
	return nil
}

// Delete removes a user. Weak references (faculty responsible, program
// coordinator, curriculum lecturer) are nulled by the schema; enrollment and
// lecturer join rows cascade.
func (r *UserRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, "DELETE FROM users WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	if affected, err := res.RowsAffected(); err == nil && affected == 0 {
		return fmt.Errorf("delete user %s: %w", id, errNoRowsAffected)
	}
	return nil
}

// UpdateLastLogin stamps the user's last successful login.
func (r *UserRepository) UpdateLastLogin(ctx context.Context, id string, ts time.Time) error {
	if _, err := r.db.ExecContext(ctx, "UPDATE users SET last_login = $2 WHERE id = $1", id, ts); err != nil {
		return fmt.Errorf("update last login: %w", err)
	}
	return nil
}

// UpdatePassword replaces the stored password hash.
func (r *UserRepository) UpdatePassword(ctx context.Context, id, passwordHash string, updatedAt time.Time) error {
	if _, err := r.db.ExecContext(ctx, "UPDATE users SET password_hash = $2, updated_at = $3 WHERE id = $1",
		id, passwordHash, updatedAt); err != nil {
		return fmt.Errorf("update password: %w", err)
	}
	return nil
}

// IsAssignedLecturer reports whether the user is in the curriculum's
// lecturer set.
func (r *UserRepository) IsAssignedLecturer(ctx context.Context, userID, curriculumID string) (bool, error) {
	var exists int
	err := r.db.GetContext(ctx, &exists,
		"SELECT 1 FROM lecturer_curricula WHERE user_id = $1 AND curriculum_id = $2 LIMIT 1", userID, curriculumID)
	if err != nil {
		if isNoRows(err) {
			return false, nil
		}
		return false, fmt.Errorf("check lecturer assignment: %w", err)
	}
	return true, nil
}

func (r *UserRepository) replaceLecturerSetsTx(ctx context.Context, tx *sqlx.Tx, userID string, programIDs, curriculumIDs []string) error {
	if _, err := tx.ExecContext(ctx, "DELETE FROM lecturer_programs WHERE user_id = $1", userID); err != nil {
		return fmt.Errorf("clear lecturer programs: %w", err)
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM lecturer_curricula WHERE user_id = $1", userID); err != nil {
		return fmt.Errorf("clear lecturer curricula: %w", err)
	}
	for _, programID := range programIDs {
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO lecturer_programs (user_id, program_id) VALUES ($1, $2)", userID, programID); err != nil {
			return fmt.Errorf("insert lecturer program: %w", err)
		}
	}
	for _, curriculumID := range curriculumIDs {
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO lecturer_curricula (user_id, curriculum_id) VALUES ($1, $2)", userID, curriculumID); err != nil {
			return fmt.Errorf("insert lecturer curriculum: %w", err)
		}
	}
	return nil
}
