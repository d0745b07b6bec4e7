package clock

import "time"

// Now returns the current UTC time as an RFC3339-like string used in
// API response envelopes.
func Now() string {
	return time.Now().UTC().Format("2006-01-02T15:04:05Z")
}

// StartOfDay returns midnight UTC of the given time's calendar day.
// The intake daily sequence counter resets on this boundary.
func StartOfDay(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
