package grading

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-results-api/internal/models"
)

func TestSnapshotReturnsCopies(t *testing.T) {
	snap := DefaultSnapshot()
	table, ok := snap.GradeTable(models.LevelOrdinary)
	require.True(t, ok)
	table.Bands[0].Grade = "Z"

	again, _ := snap.GradeTable(models.LevelOrdinary)
	assert.Equal(t, "A", again.Bands[0].Grade)
}

func TestWithGradeTableLeavesOriginalUntouched(t *testing.T) {
	base := DefaultSnapshot()
	strict := models.GradeTable{Level: models.LevelOrdinary, Bands: []models.GradeBand{
		{Grade: "A", MinMarks: 90, MaxMarks: 100, Points: 1},
		{Grade: "F", MinMarks: 0, MaxMarks: 89, Points: 5},
	}}
	next := base.WithGradeTable(strict)

	got, err := next.GradeAndPoints(82, models.LevelOrdinary)
	require.NoError(t, err)
	assert.Equal(t, "F", got.Grade)

	got, err = base.GradeAndPoints(82, models.LevelOrdinary)
	require.NoError(t, err)
	assert.Equal(t, "A", got.Grade)

	// The other level is carried over.
	got, err = next.GradeAndPoints(82, models.LevelAdvanced)
	require.NoError(t, err)
	assert.Equal(t, "A", got.Grade)
}

func TestWorstPoints(t *testing.T) {
	snap := DefaultSnapshot()
	worst, ok := snap.WorstPoints(models.LevelAdvanced)
	require.True(t, ok)
	assert.Equal(t, 7, worst)

	worst, ok = snap.WorstPoints(models.LevelOrdinary)
	require.True(t, ok)
	assert.Equal(t, 5, worst)

	_, ok = snap.WorstPoints("PRIMARY")
	assert.False(t, ok)
}

func TestViewListsBothLevels(t *testing.T) {
	registry := NewRegistry(nil)
	view := registry.Current().View()
	assert.Equal(t, int64(1), view.Version)
	require.Len(t, view.Grades, 2)
	require.Len(t, view.Divisions, 2)
	assert.Equal(t, "A", view.Grades[0].Bands[0].Grade)
}

func TestRegistrySwapIsAtomic(t *testing.T) {
	registry := NewRegistry(nil)
	strict := registry.Current().WithGradeTable(models.GradeTable{Level: models.LevelOrdinary, Bands: []models.GradeBand{
		{Grade: "A", MinMarks: 90, MaxMarks: 100, Points: 1},
		{Grade: "F", MinMarks: 0, MaxMarks: 89, Points: 5},
	}})

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 200; j++ {
				got, err := registry.Current().GradeAndPoints(82, models.LevelOrdinary)
				assert.NoError(t, err)
				assert.Contains(t, []string{"A", "F"}, got.Grade)
			}
		}()
	}
	previous := registry.Swap(strict)
	wg.Wait()

	assert.Equal(t, int64(1), previous.Version())
	assert.Equal(t, int64(2), registry.Current().Version())
}
