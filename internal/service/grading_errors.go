package service

import (
	"errors"

	"github.com/noah-isme/sma-results-api/internal/grading"
	appErrors "github.com/noah-isme/sma-results-api/pkg/errors"
)

// snapshotSource hands out the grading snapshot to use for one operation.
type snapshotSource interface {
	Current() *grading.Snapshot
}

// translateGradingError maps calculator failures onto the API taxonomy: bad input is a
// validation error, a table that cannot answer is a configuration error.
func translateGradingError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, grading.ErrMarksOutOfRange), errors.Is(err, grading.ErrUnknownLevel):
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, err.Error())
	case errors.Is(err, grading.ErrNoGradeBand), errors.Is(err, grading.ErrNoDivisionBand), errors.Is(err, grading.ErrInvalidTable):
		return appErrors.Wrap(err, appErrors.ErrConfiguration.Code, appErrors.ErrConfiguration.Status, err.Error())
	default:
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "grading failed")
	}
}
