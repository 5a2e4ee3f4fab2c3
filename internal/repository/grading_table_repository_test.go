package repository

import (
	"context"
	"errors"
	"regexp"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-results-api/internal/models"
)

func TestGradingTableRepositoryLoadGradeBands(t *testing.T) {
	db, mock, cleanup := newSQLMock(t)
	defer cleanup()
	repo := NewGradingTableRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("FROM grade_bands ORDER BY education_level ASC, position ASC")).
		WillReturnRows(sqlmock.NewRows([]string{"education_level", "grade", "min_marks", "max_marks", "points", "position"}).
			AddRow("O_LEVEL", "A", 75, 100, 1, 1).
			AddRow("O_LEVEL", "F", 0, 74, 5, 2))

	bands, err := repo.LoadGradeBands(context.Background())
	require.NoError(t, err)
	require.Len(t, bands, 2)
	assert.Equal(t, models.LevelOrdinary, bands[0].EducationLevel)
	assert.Equal(t, 75, bands[0].MinMarks)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGradingTableRepositoryReplaceGradeTable(t *testing.T) {
	db, mock, cleanup := newSQLMock(t)
	defer cleanup()
	repo := NewGradingTableRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM grade_bands WHERE education_level = $1")).
		WithArgs("O_LEVEL").
		WillReturnResult(sqlmock.NewResult(0, 5))
	mock.ExpectExec("INSERT INTO grade_bands").
		WithArgs("O_LEVEL", "A", 50, 100, 1, 1).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("INSERT INTO grade_bands").
		WithArgs("O_LEVEL", "F", 0, 49, 5, 2).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	err := repo.ReplaceGradeTable(context.Background(), models.GradeTable{Level: models.LevelOrdinary, Bands: []models.GradeBand{
		{Grade: "A", MinMarks: 50, MaxMarks: 100, Points: 1},
		{Grade: "F", MinMarks: 0, MaxMarks: 49, Points: 5},
	}})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGradingTableRepositoryReplaceDivisionTableRollsBack(t *testing.T) {
	db, mock, cleanup := newSQLMock(t)
	defer cleanup()
	repo := NewGradingTableRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM division_bands WHERE education_level = $1")).
		WithArgs("A_LEVEL").
		WillReturnResult(sqlmock.NewResult(0, 5))
	mock.ExpectExec("INSERT INTO division_bands").
		WillReturnError(errors.New("constraint violation"))
	mock.ExpectRollback()

	err := repo.ReplaceDivisionTable(context.Background(), models.DivisionTable{Level: models.LevelAdvanced, Bands: []models.DivisionBand{
		{Division: "I", MinPoints: 3, MaxPoints: 9},
	}})
	require.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}
