package util

import (
	"fmt"
	"strings"
	"time"
)

// USDateLayout accepts M/D/YYYY with or without zero padding.
const USDateLayout = "1/2/2006"

// StampLayout is the compact form used in artifact names and report keys.
const StampLayout = "20060102"

// ParseUSDate parses a month/day/year date into a naive UTC date.
func ParseUSDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, fmt.Errorf("empty date")
	}
	t, err := time.Parse(USDateLayout, s)
	if err != nil {
		return time.Time{}, err
	}
	return t, nil
}

// ParseStamp parses a YYYYMMDD date.
func ParseStamp(s string) (time.Time, bool) {
	t, err := time.Parse(StampLayout, strings.TrimSpace(s))
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// LookbackWindow returns [end-lookback, end) where end = anchor + lookahead.
func LookbackWindow(anchor time.Time, lookahead, lookback time.Duration) (time.Time, time.Time) {
	end := anchor.Add(lookahead)
	return end.Add(-lookback), end
}

// Days converts a day count to a duration.
func Days(n int) time.Duration { return time.Duration(n) * 24 * time.Hour }
