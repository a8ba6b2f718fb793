package repository

import (
	"context"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/uni-obs/curricula-api/internal/models"
)

func TestListGradeRowsIncludesUnscoredStudents(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewAssessmentRepository(db)

	score := 85.5
	rows := sqlmock.NewRows([]string{"student_id", "username", "full_name", "raw_score"}).
		AddRow("s1", "student1", "Student One", score).
		AddRow("s2", "student2", "Student Two", nil)
	mock.ExpectQuery("LEFT JOIN student_assessment_results").
		WithArgs("a1").
		WillReturnRows(rows)

	grades, err := repo.ListGradeRows(context.Background(), "a1")
	require.NoError(t, err)
	require.Len(t, grades, 2)
	require.NotNil(t, grades[0].RawScore)
	assert.Equal(t, 85.5, *grades[0].RawScore)
	assert.Nil(t, grades[1].RawScore)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpsertResultsBatch(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewAssessmentRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO student_assessment_results").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO student_assessment_results").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	one, two := 70.0, 92.5
	err := repo.UpsertResults(context.Background(), "a1", []models.StudentAssessmentResult{
		{StudentID: "s1", RawScore: &one},
		{StudentID: "s2", RawScore: &two},
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpsertResultsEmptyBatchIsNoop(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewAssessmentRepository(db)

	err := repo.UpsertResults(context.Background(), "a1", nil)
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestApplyAssessmentMappings(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewAssessmentRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO assessment_learning_outcomes").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("DELETE FROM assessment_learning_outcomes").
		WithArgs("a1", "lo2").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := repo.ApplyMappings(context.Background(), "a1",
		[]models.AssessmentMapping{{LearningOutcomeID: "lo1", Weight: 100}},
		[]string{"lo2"})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListMappedLearningOutcomes(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewAssessmentRepository(db)

	weight := 60
	rows := sqlmock.NewRows([]string{"id", "curriculum_id", "code", "short_title", "description", "sort_order", "active", "weight"}).
		AddRow("lo1", "c1", "LO1", "Model problems", "", 1, true, weight).
		AddRow("lo2", "c1", "LO2", "Apply algorithms", "", 2, true, nil)
	mock.ExpectQuery("LEFT JOIN assessment_learning_outcomes").
		WithArgs("a1").
		WillReturnRows(rows)

	outcomes, err := repo.ListMappedLearningOutcomes(context.Background(), "a1")
	require.NoError(t, err)
	require.Len(t, outcomes, 2)
	require.NotNil(t, outcomes[0].Weight)
	assert.Equal(t, 60, *outcomes[0].Weight)
	assert.Nil(t, outcomes[1].Weight)
	assert.NoError(t, mock.ExpectationsWereMet())
}
