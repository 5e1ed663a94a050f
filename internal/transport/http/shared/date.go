package shared

import "time"

const queryDateLayout = "2006-01-02"

// ParseDate reads a date query parameter. Filter parameters on this
// API are documented as YYYY-MM-DD; full RFC3339 timestamps are also
// accepted for clients that send them.
func ParseDate(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, nil
	}
	if parsed, err := time.Parse(queryDateLayout, value); err == nil {
		return parsed, nil
	}
	return time.Parse(time.RFC3339, value)
}
