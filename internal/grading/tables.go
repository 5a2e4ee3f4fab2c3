package grading

import (
	"errors"
	"fmt"
	"sort"

	"github.com/noah-isme/sma-results-api/internal/models"
)

var (
	// ErrInvalidTable is returned when a table has gaps, overlaps or bad bounds.
	ErrInvalidTable = errors.New("invalid grading table")
	// ErrUnknownLevel is returned when no table is configured for a level.
	ErrUnknownLevel = errors.New("unknown education level")
)

// DefaultGradeTable returns the built-in grade boundaries for a level.
func DefaultGradeTable(level models.EducationLevel) models.GradeTable {
	switch level {
	case models.LevelAdvanced:
		return models.GradeTable{Level: level, Bands: []models.GradeBand{
			{Grade: "A", MinMarks: 80, MaxMarks: 100, Points: 1},
			{Grade: "B", MinMarks: 70, MaxMarks: 79, Points: 2},
			{Grade: "C", MinMarks: 60, MaxMarks: 69, Points: 3},
			{Grade: "D", MinMarks: 50, MaxMarks: 59, Points: 4},
			{Grade: "E", MinMarks: 40, MaxMarks: 49, Points: 5},
			{Grade: "S", MinMarks: 35, MaxMarks: 39, Points: 6},
			{Grade: "F", MinMarks: 0, MaxMarks: 34, Points: 7},
		}}
	default:
		return models.GradeTable{Level: models.LevelOrdinary, Bands: []models.GradeBand{
			{Grade: "A", MinMarks: 75, MaxMarks: 100, Points: 1},
			{Grade: "B", MinMarks: 65, MaxMarks: 74, Points: 2},
			{Grade: "C", MinMarks: 45, MaxMarks: 64, Points: 3},
			{Grade: "D", MinMarks: 30, MaxMarks: 44, Points: 4},
			{Grade: "F", MinMarks: 0, MaxMarks: 29, Points: 5},
		}}
	}
}

// DefaultDivisionTable returns the built-in division boundaries for a level.
func DefaultDivisionTable(level models.EducationLevel) models.DivisionTable {
	switch level {
	case models.LevelAdvanced:
		return models.DivisionTable{Level: level, Bands: []models.DivisionBand{
			{Division: "I", MinPoints: 3, MaxPoints: 9},
			{Division: "II", MinPoints: 10, MaxPoints: 12},
			{Division: "III", MinPoints: 13, MaxPoints: 17},
			{Division: "IV", MinPoints: 18, MaxPoints: 19},
			{Division: models.DivisionFail, MinPoints: 20, MaxPoints: 21},
		}}
	default:
		return models.DivisionTable{Level: models.LevelOrdinary, Bands: []models.DivisionBand{
			{Division: "I", MinPoints: 7, MaxPoints: 17},
			{Division: "II", MinPoints: 18, MaxPoints: 21},
			{Division: "III", MinPoints: 22, MaxPoints: 25},
			{Division: "IV", MinPoints: 26, MaxPoints: 33},
			{Division: models.DivisionFail, MinPoints: 34, MaxPoints: 35},
		}}
	}
}

// ValidateGradeTable checks that the bands cover 0..100 contiguously with no
// overlap and that better bands never carry more points than worse ones.
func ValidateGradeTable(table models.GradeTable) error {
	if !table.Level.Valid() {
		return fmt.Errorf("%w: %w %q", ErrInvalidTable, ErrUnknownLevel, table.Level)
	}
	if len(table.Bands) == 0 {
		return fmt.Errorf("%w: %s has no grade bands", ErrInvalidTable, table.Level)
	}
	bands := sortedGradeBands(table.Bands)
	seen := make(map[string]bool, len(bands))
	if bands[0].MinMarks != 0 {
		return fmt.Errorf("%w: lowest grade band starts at %d, want 0", ErrInvalidTable, bands[0].MinMarks)
	}
	for i, band := range bands {
		if band.Grade == "" {
			return fmt.Errorf("%w: band %d has no grade", ErrInvalidTable, i)
		}
		if seen[band.Grade] {
			return fmt.Errorf("%w: grade %s appears twice", ErrInvalidTable, band.Grade)
		}
		seen[band.Grade] = true
		if band.MinMarks > band.MaxMarks {
			return fmt.Errorf("%w: grade %s has min %d above max %d", ErrInvalidTable, band.Grade, band.MinMarks, band.MaxMarks)
		}
		if band.Points < 1 {
			return fmt.Errorf("%w: grade %s has non-positive points", ErrInvalidTable, band.Grade)
		}
		if i == 0 {
			continue
		}
		prev := bands[i-1]
		switch {
		case band.MinMarks <= prev.MaxMarks:
			return fmt.Errorf("%w: grades %s and %s overlap", ErrInvalidTable, prev.Grade, band.Grade)
		case band.MinMarks != prev.MaxMarks+1:
			return fmt.Errorf("%w: gap between %d and %d", ErrInvalidTable, prev.MaxMarks, band.MinMarks)
		case band.Points > prev.Points:
			return fmt.Errorf("%w: grade %s scores more points than lower grade %s", ErrInvalidTable, band.Grade, prev.Grade)
		}
	}
	if last := bands[len(bands)-1]; last.MaxMarks != 100 {
		return fmt.Errorf("%w: highest grade band ends at %d, want 100", ErrInvalidTable, last.MaxMarks)
	}
	return nil
}

// divisionRank orders division codes from best to worst.
var divisionRank = map[string]int{
	"I":                 1,
	"II":                2,
	"III":               3,
	"IV":                4,
	models.DivisionFail: 5,
}

// ValidateDivisionTable checks that the bands are contiguous, non-overlapping,
// that the division order does not improve as the point total grows and that
// the worst band is the fail division.
func ValidateDivisionTable(table models.DivisionTable) error {
	if !table.Level.Valid() {
		return fmt.Errorf("%w: %w %q", ErrInvalidTable, ErrUnknownLevel, table.Level)
	}
	if len(table.Bands) == 0 {
		return fmt.Errorf("%w: %s has no division bands", ErrInvalidTable, table.Level)
	}
	bands := sortedDivisionBands(table.Bands)
	for i, band := range bands {
		if band.Division == "" {
			return fmt.Errorf("%w: band %d has no division", ErrInvalidTable, i)
		}
		if _, ok := divisionRank[band.Division]; !ok {
			return fmt.Errorf("%w: unknown division %q", ErrInvalidTable, band.Division)
		}
		if band.MinPoints > band.MaxPoints {
			return fmt.Errorf("%w: division %s has min %d above max %d", ErrInvalidTable, band.Division, band.MinPoints, band.MaxPoints)
		}
		if i == 0 {
			continue
		}
		prev := bands[i-1]
		if band.MinPoints <= prev.MaxPoints {
			return fmt.Errorf("%w: divisions %s and %s overlap", ErrInvalidTable, prev.Division, band.Division)
		}
		if band.MinPoints != prev.MaxPoints+1 {
			return fmt.Errorf("%w: gap between %d and %d", ErrInvalidTable, prev.MaxPoints, band.MinPoints)
		}
		if divisionRank[band.Division] < divisionRank[prev.Division] {
			return fmt.Errorf("%w: division %s at %d points is better than %s below it", ErrInvalidTable, band.Division, band.MinPoints, prev.Division)
		}
	}
	if last := bands[len(bands)-1]; last.Division != models.DivisionFail {
		return fmt.Errorf("%w: worst band is %s, want %s", ErrInvalidTable, last.Division, models.DivisionFail)
	}
	return nil
}

// sortedGradeBands orders bands from the lowest marks range upwards.
func sortedGradeBands(bands []models.GradeBand) []models.GradeBand {
	out := make([]models.GradeBand, len(bands))
	copy(out, bands)
	sort.SliceStable(out, func(i, j int) bool { return out[i].MinMarks < out[j].MinMarks })
	return out
}

// sortedDivisionBands orders bands from the best (lowest) point total upwards.
func sortedDivisionBands(bands []models.DivisionBand) []models.DivisionBand {
	out := make([]models.DivisionBand, len(bands))
	copy(out, bands)
	sort.SliceStable(out, func(i, j int) bool { return out[i].MinPoints < out[j].MinPoints })
	return out
}
