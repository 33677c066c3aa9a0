package analytics

import (
	"fmt"

	"ContractScan/internal/domain/models"
)

// runUnit executes one ticker's or pair's computation, turning errors and panics into a
// StageFailure so a single bad unit never aborts the stage.
func runUnit(stage, unit string, fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &models.StageFailure{Stage: stage, Unit: unit, Err: fmt.Errorf("panic: %v", r)}
		}
	}()
	if ferr := fn(); ferr != nil {
		return &models.StageFailure{Stage: stage, Unit: unit, Err: ferr}
	}
	return nil
}
