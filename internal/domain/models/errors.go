package models

import (
	"errors"
	"fmt"
)

// Undefined computations (zero or missing denominators, short windows) are never errors:
// they surface as NaN values in the affected series.

var (
	// ErrDataUnavailable means the source returned nothing usable for a window or ticker.
	ErrDataUnavailable = errors.New("market data unavailable")

	ErrReportNotFound = errors.New("report not found")

	// ErrAnalysisInProgress means another worker holds the lock for the same contract date.
	ErrAnalysisInProgress = errors.New("analysis already in progress")

	ErrInvalidSupplier      = errors.New("invalid supplier")
	ErrSupplierExists       = errors.New("supplier already exists")
	ErrSupplierNotFound     = errors.New("supplier not found")
	ErrUnknownSupplierField = errors.New("unknown supplier field")
)

// DateFormatError is returned when a contract date is not MM/DD/YYYY.
type DateFormatError struct {
	Input string
	Err   error
}

func (e *DateFormatError) Error() string {
	return fmt.Sprintf("invalid contract date %q: expected MM/DD/YYYY", e.Input)
}

func (e *DateFormatError) Unwrap() error { return e.Err }

// StageFailure wraps an unexpected error (or recovered panic) inside one unit of a stage.
type StageFailure struct {
	Stage string
	Unit  string
	Err   error
}

func (e *StageFailure) Error() string {
	if e.Unit == "" {
		return fmt.Sprintf("%s: %v", e.Stage, e.Err)
	}
	return fmt.Sprintf("%s[%s]: %v", e.Stage, e.Unit, e.Err)
}

func (e *StageFailure) Unwrap() error { return e.Err }
