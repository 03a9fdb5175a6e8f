package domain

import (
	"fmt"
	"time"
)

// TimeLayout is the ISO-8601 UTC form used for API filters and file names.
const TimeLayout = "2006-01-02T15:04:05Z"

// TimeWindow is the [Start, End] range of access logs requested from the API.
// Bounds are inclusive as far as the API is concerned; Start <= End is the
// caller's responsibility.
type TimeWindow struct {
	Start time.Time
	End   time.Time
}

// NewTimeWindow normalises both bounds to UTC with second precision.
func NewTimeWindow(start, end time.Time) TimeWindow {
	return TimeWindow{
		Start: start.UTC().Truncate(time.Second),
		End:   end.UTC().Truncate(time.Second),
	}
}

// WindowEndingAt returns the window of length d that ends at end.
func WindowEndingAt(end time.Time, d time.Duration) TimeWindow {
	return NewTimeWindow(end.Add(-d), end)
}

// StartString renders Start in TimeLayout.
func (w TimeWindow) StartString() string { return w.Start.UTC().Format(TimeLayout) }

// EndString renders End in TimeLayout.
func (w TimeWindow) EndString() string { return w.End.UTC().Format(TimeLayout) }

// Duration returns End - Start.
func (w TimeWindow) Duration() time.Duration { return w.End.Sub(w.Start) }

func (w TimeWindow) String() string {
	return w.StartString() + " to " + w.EndString()
}

// ParseTimestamp accepts RFC 3339 timestamps (with or without fractional
// seconds or a numeric offset) and returns the instant in UTC.
func ParseTimestamp(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, ErrValidation("invalid timestamp %q: expected ISO-8601 such as 2023-01-01T00:00:00Z", s)
	}
	return t.UTC().Truncate(time.Second), nil
}

// ValidateWindow checks that the window is not inverted.
func ValidateWindow(w TimeWindow) error {
	if w.End.Before(w.Start) {
		return ErrValidation("start time %s is after end time %s", w.StartString(), w.EndString())
	}
	return nil
}

// FormatSeconds renders d as a whole number of seconds, the unit operators
// configure intervals in.
func FormatSeconds(d time.Duration) string {
	return fmt.Sprintf("%d seconds", int64(d/time.Second))
}
