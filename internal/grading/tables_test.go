package grading

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-results-api/internal/models"
)

func TestDefaultTablesAreValid(t *testing.T) {
	for _, level := range models.EducationLevels {
		require.NoError(t, ValidateGradeTable(DefaultGradeTable(level)), level)
		require.NoError(t, ValidateDivisionTable(DefaultDivisionTable(level)), level)
	}
	assert.Len(t, DefaultGradeTable(models.LevelOrdinary).Bands, 5)
	assert.Len(t, DefaultGradeTable(models.LevelAdvanced).Bands, 7)
}

func TestValidateGradeTable(t *testing.T) {
	valid := func() models.GradeTable { return DefaultGradeTable(models.LevelOrdinary) }

	cases := []struct {
		name   string
		mutate func(*models.GradeTable)
	}{
		{"unknown level", func(tb *models.GradeTable) { tb.Level = "PRIMARY" }},
		{"no bands", func(tb *models.GradeTable) { tb.Bands = nil }},
		{"gap", func(tb *models.GradeTable) { tb.Bands[1].MinMarks = 66 }},
		{"overlap", func(tb *models.GradeTable) { tb.Bands[1].MaxMarks = 80 }},
		{"does not reach 100", func(tb *models.GradeTable) { tb.Bands[0].MaxMarks = 99 }},
		{"does not start at 0", func(tb *models.GradeTable) { tb.Bands[4].MinMarks = 1 }},
		{"duplicate grade", func(tb *models.GradeTable) { tb.Bands[1].Grade = "A" }},
		{"inverted band", func(tb *models.GradeTable) { tb.Bands[0].MinMarks = 101 }},
		{"better grade more points", func(tb *models.GradeTable) { tb.Bands[0].Points = 9 }},
		{"zero points", func(tb *models.GradeTable) { tb.Bands[4].Points = 0 }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			table := valid()
			tc.mutate(&table)
			assert.ErrorIs(t, ValidateGradeTable(table), ErrInvalidTable)
		})
	}
}

func TestValidateDivisionTable(t *testing.T) {
	table := DefaultDivisionTable(models.LevelAdvanced)
	table.Bands[2].MinPoints = 14
	assert.ErrorIs(t, ValidateDivisionTable(table), ErrInvalidTable)

	table = DefaultDivisionTable(models.LevelAdvanced)
	table.Bands[2].MinPoints = 12
	assert.ErrorIs(t, ValidateDivisionTable(table), ErrInvalidTable)

	table = DefaultDivisionTable(models.LevelAdvanced)
	table.Bands[0].Division = ""
	assert.ErrorIs(t, ValidateDivisionTable(table), ErrInvalidTable)

	scrambled := models.DivisionTable{Level: models.LevelOrdinary, Bands: []models.DivisionBand{
		{Division: "III", MinPoints: 7, MaxPoints: 17},
		{Division: "I", MinPoints: 18, MaxPoints: 21},
		{Division: "II", MinPoints: 22, MaxPoints: 25},
		{Division: "IV", MinPoints: 26, MaxPoints: 33},
		{Division: models.DivisionFail, MinPoints: 34, MaxPoints: 35},
	}}
	assert.ErrorIs(t, ValidateDivisionTable(scrambled), ErrInvalidTable)

	table = DefaultDivisionTable(models.LevelOrdinary)
	table.Bands = table.Bands[:4]
	assert.ErrorIs(t, ValidateDivisionTable(table), ErrInvalidTable)

	table = DefaultDivisionTable(models.LevelAdvanced)
	table.Bands[1].Division = "V"
	assert.ErrorIs(t, ValidateDivisionTable(table), ErrInvalidTable)

	// Band order in the payload does not matter.
	table = DefaultDivisionTable(models.LevelOrdinary)
	table.Bands[0], table.Bands[4] = table.Bands[4], table.Bands[0]
	assert.NoError(t, ValidateDivisionTable(table))
}
