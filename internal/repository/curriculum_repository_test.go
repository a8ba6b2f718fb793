package repository

import (
	"context"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/uni-obs/curricula-api/internal/models"
)

func curriculumDetailRows(id, code string) *sqlmock.Rows {
	return sqlmock.NewRows([]string{"id", "program_id", "code", "name", "year", "semester", "ects", "credit",
		"description", "lecturer_id", "program_code", "program_name", "lecturer_name"}).
		AddRow(id, "p1", code, "Course "+code, 2, string(models.SemesterFall), 6.0, 4.0, "", nil, "CENG", "Computer Engineering", nil)
}

func TestListCurriculaByProgram(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewCurriculumRepository(db)

	mock.ExpectQuery("FROM curricula c").
		WithArgs("p1").
		WillReturnRows(curriculumDetailRows("c1", "CENG201"))
	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM curricula c`).
		WithArgs("p1").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	curricula, total, err := repo.List(context.Background(), models.CurriculumFilter{ProgramID: "p1"})
	require.NoError(t, err)
	assert.Len(t, curricula, 1)
	assert.Equal(t, 1, total)
	assert.Equal(t, "CENG201", curricula[0].Code)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateCurriculumSyncsRoster(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewCurriculumRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO curricula").WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("DELETE FROM curriculum_students WHERE curriculum_id").
		WithArgs("c2").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("INSERT INTO curriculum_students").
		WithArgs("c2", models.RoleStudent).WillReturnResult(sqlmock.NewResult(0, 3))
	mock.ExpectCommit()

	year := 2
	curriculum := &models.Curriculum{
		ID:        "c2",
		ProgramID: "p1",
		Code:      "CENG202",
		Name:      "Data Structures",
		Year:      &year,
		Semester:  models.SemesterSpring,
	}
	err := repo.Create(context.Background(), curriculum)
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateCurriculumRederivesRoster(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewCurriculumRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE curricula SET").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("DELETE FROM curriculum_students WHERE curriculum_id").
		WithArgs("c3").WillReturnResult(sqlmock.NewResult(0, 3))
	mock.ExpectExec("INSERT INTO curriculum_students").
		WithArgs("c3", models.RoleStudent).WillReturnResult(sqlmock.NewResult(0, 5))
	mock.ExpectCommit()

	year := 3
	curriculum := &models.Curriculum{
		ID:        "c3",
		ProgramID: "p1",
		Code:      "CENG301",
		Name:      "Algorithms",
		Year:      &year,
		Semester:  models.SemesterFall,
	}
	err := repo.Update(context.Background(), curriculum)
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListForLecturerCoversBothAssignments(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewCurriculumRepository(db)

	rows := curriculumDetailRows("c1", "CENG201").
		AddRow("c4", "p1", "CENG401", "Compilers", 4, string(models.SemesterFall), 6.0, 4.0, "", "u5", "CENG", "Computer Engineering", "Lecturer Five")
	mock.ExpectQuery("LEFT JOIN lecturer_curricula lc").
		WithArgs("u5").
		WillReturnRows(rows)

	curricula, err := repo.ListForLecturer(context.Background(), "u5")
	require.NoError(t, err)
	assert.Len(t, curricula, 2)
	assert.NoError(t, mock.ExpectationsWereMet())
}
