package server

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

func parseOptionalBool(value string) (*bool, error) {
	if value = strings.TrimSpace(value); value == "" {
		return nil, nil
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return nil, err
	}
	return &parsed, nil
}

// parseOptionalTime accepts RFC3339 or a bare date. A bare date is read as a
// calendar day in loc, starting at midnight or ending at its last instant.
func parseOptionalTime(value string, loc *time.Location, endOfDay bool) (*time.Time, error) {
	if value = strings.TrimSpace(value); value == "" {
		return nil, nil
	}
	if parsed, err := time.Parse(time.RFC3339, value); err == nil {
		return &parsed, nil
	}
	if loc == nil {
		loc = time.UTC
	}
	day, err := time.ParseInLocation(time.DateOnly, value, loc)
	if err != nil {
		return nil, fmt.Errorf("invalid time %q", value)
	}
	if endOfDay {
		day = day.AddDate(0, 0, 1).Add(-time.Nanosecond)
	}
	return &day, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
