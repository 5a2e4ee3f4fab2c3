package grading

import (
	"errors"
	"fmt"

	"github.com/noah-isme/sma-results-api/internal/models"
)

// ErrNoDivisionBand is returned when a point total falls below or between configured bands.
var ErrNoDivisionBand = errors.New("no division band matches point total")

// DivisionFor maps a best-subset point total to a division. Totals beyond the
// worst band are a fail, not an error.
func (s *Snapshot) DivisionFor(total int, level models.EducationLevel) (string, error) {
	bands, ok := s.divisions[level]
	if !ok || len(bands) == 0 {
		return "", fmt.Errorf("%w: %q", ErrUnknownLevel, level)
	}
	for _, band := range bands {
		if total >= band.MinPoints && total <= band.MaxPoints {
			return band.Division, nil
		}
	}
	if total > bands[len(bands)-1].MaxPoints {
		return models.DivisionFail, nil
	}
	return "", fmt.Errorf("%w: %d under %s table", ErrNoDivisionBand, total, level)
}

// Aggregate is the point total of a best subset and the division it earns.
type Aggregate struct {
	BestNPoints  int
	BestNCount   int
	MissingSlots int
	Division     string
}

// Aggregate selects the best subset and resolves its division. Unfilled slots are
// charged at the level's worst point value so a short subset never beats a full one.
func (s *Snapshot) Aggregate(subjects []models.ScoredSubject, level models.EducationLevel) (Aggregate, []models.ScoredSubject, error) {
	selected, missing := SelectBestSubset(subjects, level)
	agg := Aggregate{
		BestNPoints:  SumPoints(selected),
		BestNCount:   len(selected),
		MissingSlots: missing,
	}
	divisionTotal := agg.BestNPoints
	if missing > 0 {
		worst, ok := s.WorstPoints(level)
		if !ok {
			return agg, selected, fmt.Errorf("%w: %q", ErrUnknownLevel, level)
		}
		divisionTotal += missing * worst
	}
	division, err := s.DivisionFor(divisionTotal, level)
	if err != nil {
		return agg, selected, err
	}
	agg.Division = division
	return agg, selected, nil
}
