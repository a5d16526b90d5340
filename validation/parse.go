package validation

import (
	"math"
	"strconv"
	"strings"
	"time"
)

// DateLayout is the calendar-date format accepted on every input boundary.
const DateLayout = "2006-01-02"

// ParseFloat parses a required numeric field. Blank or malformed input is
// recorded as a violation and never coerced to zero.
func ParseFloat(field, raw string, v Violations) float64 {
	s := strings.TrimSpace(raw)
	if s == "" {
		v[field] = "required"
		return 0
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		v[field] = "invalid_number"
		return 0
	}
	return f
}

// ParseOptionalFloat returns nil for blank input and a violation for
// malformed input.
func ParseOptionalFloat(field, raw string, v Violations) *float64 {
	s := strings.TrimSpace(raw)
	if s == "" {
		return nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		v[field] = "invalid_number"
		return nil
	}
	return &f
}

// ParseInt parses a required integer field.
func ParseInt(field, raw string, v Violations) int {
	s := strings.TrimSpace(raw)
	if s == "" {
		v[field] = "required"
		return 0
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		v[field] = "invalid_integer"
		return 0
	}
	return n
}

// ParseOptionalInt returns 0, false for blank input.
func ParseOptionalInt(field, raw string, v Violations) (int, bool) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return 0, false
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		v[field] = "invalid_integer"
		return 0, false
	}
	return n, true
}

// ParseDate parses a required YYYY-MM-DD date into UTC midnight.
func ParseDate(field, raw string, v Violations) time.Time {
	s := strings.TrimSpace(raw)
	if s == "" {
		v[field] = "required"
		return time.Time{}
	}
	d, err := time.ParseInLocation(DateLayout, s, time.UTC)
	if err != nil {
		v[field] = "invalid_date"
		return time.Time{}
	}
	return d
}

// ParseOptionalDate returns nil for blank input.
func ParseOptionalDate(field, raw string, v Violations) *time.Time {
	s := strings.TrimSpace(raw)
	if s == "" {
		return nil
	}
	d, err := time.ParseInLocation(DateLayout, s, time.UTC)
	if err != nil {
		v[field] = "invalid_date"
		return nil
	}
	return &d
}

// ParseBool accepts "1", "true", "yes", "on" as true.
func ParseBool(raw string) bool {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "1", "true", "yes", "on":
		return true
	default:
		return false
	}
}
