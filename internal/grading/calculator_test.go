package grading

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-results-api/internal/models"
)

func TestGradeAndPointsCoversEveryMark(t *testing.T) {
	snap := DefaultSnapshot()
	for _, level := range models.EducationLevels {
		table, ok := snap.GradeTable(level)
		require.True(t, ok)
		declared := make(map[string]int, len(table.Bands))
		for _, band := range table.Bands {
			declared[band.Grade] = band.Points
		}
		for marks := 0; marks <= 100; marks++ {
			got, err := snap.GradeAndPoints(float64(marks), level)
			require.NoError(t, err, "level %s marks %d", level, marks)
			points, ok := declared[got.Grade]
			require.True(t, ok, "grade %s not in %s table", got.Grade, level)
			assert.Equal(t, points, got.Points)
		}
	}
}

func TestGradeAndPointsBoundaries(t *testing.T) {
	snap := DefaultSnapshot()
	cases := []struct {
		name   string
		marks  float64
		level  models.EducationLevel
		grade  string
		points int
	}{
		{"o level top", 100, models.LevelOrdinary, "A", 1},
		{"o level 82", 82, models.LevelOrdinary, "A", 1},
		{"o level lower edge of A", 75, models.LevelOrdinary, "A", 1},
		{"o level just below A", 74, models.LevelOrdinary, "B", 2},
		{"o level zero", 0, models.LevelOrdinary, "F", 5},
		{"a level subsidiary band", 37, models.LevelAdvanced, "S", 6},
		{"a level 92", 92, models.LevelAdvanced, "A", 1},
		{"a level 78", 78, models.LevelAdvanced, "B", 2},
		{"a level 65", 65, models.LevelAdvanced, "C", 3},
		{"a level 50", 50, models.LevelAdvanced, "D", 4},
		{"fraction rounds up", 79.5, models.LevelAdvanced, "A", 1},
		{"fraction rounds down", 79.4, models.LevelAdvanced, "B", 2},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := snap.GradeAndPoints(tc.marks, tc.level)
			require.NoError(t, err)
			assert.Equal(t, tc.grade, got.Grade)
			assert.Equal(t, tc.points, got.Points)
		})
	}
}

func TestGradeAndPointsRejectsInvalidMarks(t *testing.T) {
	snap := DefaultSnapshot()
	for _, marks := range []float64{-1, -0.01, 100.01, 101, math.NaN(), math.Inf(1)} {
		_, err := snap.GradeAndPoints(marks, models.LevelOrdinary)
		assert.ErrorIs(t, err, ErrMarksOutOfRange, "marks %v", marks)
	}
}

func TestGradeAndPointsUnknownLevel(t *testing.T) {
	_, err := DefaultSnapshot().GradeAndPoints(50, models.EducationLevel("PRIMARY"))
	assert.ErrorIs(t, err, ErrUnknownLevel)
}

func TestGradeAndPointsFailsLoudlyOnGap(t *testing.T) {
	snap := NewSnapshot([]models.GradeTable{{
		Level: models.LevelOrdinary,
		Bands: []models.GradeBand{
			{Grade: "A", MinMarks: 80, MaxMarks: 100, Points: 1},
			{Grade: "F", MinMarks: 0, MaxMarks: 49, Points: 5},
		},
	}}, nil)

	_, err := snap.GradeAndPoints(60, models.LevelOrdinary)
	assert.ErrorIs(t, err, ErrNoGradeBand)

	got, err := snap.GradeAndPoints(85, models.LevelOrdinary)
	require.NoError(t, err)
	assert.Equal(t, "A", got.Grade)
}
