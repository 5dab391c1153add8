package util

import (
	"fmt"
	"time"
)

// TimeProvider renders timestamps in a fixed timezone.
type TimeProvider struct {
	location *time.Location
}

// NewTimeProvider creates a provider for the given timezone name.
// An empty name or "UTC" yields UTC, "Local" the host timezone.
func NewTimeProvider(timezone string) (*TimeProvider, error) {
	tp := &TimeProvider{location: time.UTC}
	if err := tp.SetTimezone(timezone); err != nil {
		return nil, err
	}
	return tp, nil
}

// SetTimezone updates the timezone for the time provider
func (tp *TimeProvider) SetTimezone(timezone string) error {
	loc := time.UTC
	switch timezone {
	case "", "UTC":
	case "Local":
		loc = time.Local
	default:
		l, err := time.LoadLocation(timezone)
		if err != nil {
			// Provide helpful error message with examples
			return fmt.Errorf("invalid timezone '%s': %w\nValid examples: Local, UTC, America/New_York, Asia/Shanghai, Europe/London", timezone, err)
		}
		loc = l
	}
	tp.location = loc
	return nil
}

// Location returns the configured timezone.
func (tp *TimeProvider) Location() *time.Location {
	if tp == nil || tp.location == nil {
		return time.UTC
	}
	return tp.location
}

// Format formats a time according to the layout in the configured timezone.
// The zero time formats as an empty string.
func (tp *TimeProvider) Format(t time.Time, layout string) string {
	if t.IsZero() {
		return ""
	}
	return t.In(tp.Location()).Format(layout)
}
