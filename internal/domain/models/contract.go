package models

import (
	"time"

	"ContractScan/pkg/util"
)

// ParseContractDate parses the MM/DD/YYYY date of the contractual event.
func ParseContractDate(s string) (time.Time, error) {
	t, err := util.ParseUSDate(s)
	if err != nil {
		return time.Time{}, &DateFormatError{Input: s, Err: err}
	}
	return t, nil
}
