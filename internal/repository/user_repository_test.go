package repository

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/uni-obs/curricula-api/internal/models"
)

func newMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	sqlxdb := sqlx.NewDb(db, "sqlmock")
	return sqlxdb, mock, func() {
		db.Close()
	}
}

func userRows(id, username string, role models.UserRole) *sqlmock.Rows {
	now := time.Now()
	return sqlmock.NewRows([]string{"id", "username", "email", "password_hash", "full_name", "phone",
		"role", "superuser", "active", "last_login", "created_at", "updated_at",
		"student_grade", "student_faculty_id", "student_program_id", "faculty_member_faculty_id"}).
		AddRow(id, username, nil, "hash", "User "+username, nil,
			string(role), false, true, now, now, now, nil, nil, nil, nil)
}

func TestFindByUsername(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewUserRepository(db)

	mock.ExpectQuery("FROM users WHERE username").
		WithArgs("jdoe").
		WillReturnRows(userRows("u1", "jdoe", models.RoleLecturer))

	user, err := repo.FindByUsername(context.Background(), "jdoe")
	require.NoError(t, err)
	assert.Equal(t, "jdoe", user.Username)
	assert.Equal(t, models.RoleLecturer, user.Role)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListUsersFiltersByRole(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewUserRepository(db)

	mock.ExpectQuery("FROM users u WHERE u.role").
		WithArgs(models.RoleStudent).
		WillReturnRows(userRows("u2", "student1", models.RoleStudent))
	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM users u WHERE u.role`).
		WithArgs(models.RoleStudent).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	role := models.RoleStudent
	users, total, err := repo.List(context.Background(), models.UserFilter{Role: &role})
	require.NoError(t, err)
	assert.Len(t, users, 1)
	assert.Equal(t, 1, total)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateUserDerivesEnrollments(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewUserRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO users").WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("DELETE FROM lecturer_programs WHERE user_id").
		WithArgs("u3").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("DELETE FROM lecturer_curricula WHERE user_id").
		WithArgs("u3").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("DELETE FROM curriculum_students WHERE student_id").
		WithArgs("u3").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("INSERT INTO curriculum_students").
		WithArgs("u3", models.RoleStudent).WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectCommit()

	grade := 2
	program := "p1"
	user := &models.User{
		ID:               "u3",
		Username:         "student2",
		FullName:         "Student Two",
		Role:             models.RoleStudent,
		Active:           true,
		StudentGrade:     &grade,
		StudentProgramID: &program,
	}
	err := repo.Create(context.Background(), user, nil, nil)
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateUserReplacesLecturerSets(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewUserRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE users SET").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("DELETE FROM lecturer_programs WHERE user_id").
		WithArgs("u4").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("DELETE FROM lecturer_curricula WHERE user_id").
		WithArgs("u4").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO lecturer_programs").
		WithArgs("u4", "p1").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO lecturer_curricula").
		WithArgs("u4", "c1").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("DELETE FROM curriculum_students WHERE student_id").
		WithArgs("u4").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("INSERT INTO curriculum_students").
		WithArgs("u4", models.RoleStudent).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()

	user := &models.User{ID: "u4", Username: "lect1", FullName: "Lecturer One", Role: models.RoleLecturer, Active: true}
	err := repo.Update(context.Background(), user, []string{"p1"}, []string{"c1"})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateUserMissingRowRollsBack(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewUserRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE users SET").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	user := &models.User{ID: "missing", Username: "ghost", Role: models.RoleStudent}
	err := repo.Update(context.Background(), user, nil, nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, sql.ErrNoRows))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestIsAssignedLecturer(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewUserRepository(db)

	mock.ExpectQuery("SELECT 1 FROM lecturer_curricula").
		WithArgs("u5", "c1").
		WillReturnRows(sqlmock.NewRows([]string{"?column?"}).AddRow(1))
	mock.ExpectQuery("SELECT 1 FROM lecturer_curricula").
		WithArgs("u5", "c2").
		WillReturnError(sql.ErrNoRows)

	assigned, err := repo.IsAssignedLecturer(context.Background(), "u5", "c1")
	require.NoError(t, err)
	assert.True(t, assigned)

	assigned, err = repo.IsAssignedLecturer(context.Background(), "u5", "c2")
	require.NoError(t, err)
	assert.False(t, assigned)
	assert.NoError(t, mock.ExpectationsWereMet())
}
