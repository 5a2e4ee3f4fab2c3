package grading

import (
	"errors"
	"fmt"
	"math"

	"github.com/noah-isme/sma-results-api/internal/models"
)

var (
	// ErrMarksOutOfRange is returned for marks outside 0..100 or not a number.
	ErrMarksOutOfRange = errors.New("marks out of range")
	// ErrNoGradeBand is returned when the configured table has no band for a mark.
	ErrNoGradeBand = errors.New("no grade band matches marks")
)

const (
	minMarks = 0
	maxMarks = 100
)

// ValidateMarks rejects marks the calculator must never clamp.
func ValidateMarks(marks float64) error {
	if math.IsNaN(marks) || math.IsInf(marks, 0) || marks < minMarks || marks > maxMarks {
		return fmt.Errorf("%w: %v", ErrMarksOutOfRange, marks)
	}
	return nil
}

// GradeAndPoints derives the grade and point value for marks under the level's
// grade table. Fractional marks are rounded half away from zero before lookup.
func (s *Snapshot) GradeAndPoints(marks float64, level models.EducationLevel) (models.Derivation, error) {
	if err := ValidateMarks(marks); err != nil {
		return models.Derivation{}, err
	}
	bands, ok := s.grades[level]
	if !ok {
		return models.Derivation{}, fmt.Errorf("%w: %q", ErrUnknownLevel, level)
	}
	rounded := int(math.Round(marks))
	for _, band := range bands {
		if rounded >= band.MinMarks && rounded <= band.MaxMarks {
			return models.Derivation{Grade: band.Grade, Points: band.Points}, nil
		}
	}
	return models.Derivation{}, fmt.Errorf("%w: %v under %s table", ErrNoGradeBand, marks, level)
}
