package util

import (
	"fmt"
	"sync"
	"time"
)

// Clock supplies the current instant. Block activity, projections and cache
// TTL checks read "now" through a Clock so tests can pin it.
type Clock interface {
	Now() time.Time
}

// ClockFunc adapts a function to the Clock interface.
type ClockFunc func() time.Time

func (f ClockFunc) Now() time.Time { return f() }

// SystemClock reports wall-clock time in UTC.
var SystemClock Clock = ClockFunc(func() time.Time { return time.Now().UTC() })

// FixedClock always reports t.
func FixedClock(t time.Time) Clock {
	return ClockFunc(func() time.Time { return t })
}

// TimeProvider handles timezone-aware rendering of instants.
type TimeProvider struct {
	mu       sync.RWMutex
	location *time.Location
}

// NewTimeProvider creates a provider for the named zone ("Local", "UTC", IANA names).
func NewTimeProvider(timezone string) (*TimeProvider, error) {
	tp := &TimeProvider{}
	if err := tp.SetTimezone(timezone); err != nil {
		return nil, err
	}
	return tp, nil
}

// SetTimezone updates the timezone for the time provider
func (tp *TimeProvider) SetTimezone(timezone string) error {
	loc := time.Local
	if timezone != "" && timezone != "Local" {
		l, err := time.LoadLocation(timezone)
		if err != nil {
			return fmt.Errorf("invalid timezone '%s': %w\nValid examples: Local, UTC, America/New_York, Asia/Shanghai, Europe/London", timezone, err)
		}
		loc = l
	}

	tp.mu.Lock()
	tp.location = loc
	tp.mu.Unlock()
	return nil
}

// Location returns the configured zone.
func (tp *TimeProvider) Location() *time.Location {
	tp.mu.RLock()
	defer tp.mu.RUnlock()
	return tp.location
}

// Now returns the current time in the configured timezone
func (tp *TimeProvider) Now() time.Time {
	return time.Now().In(tp.Location())
}

// Format formats t in the configured timezone.
func (tp *TimeProvider) Format(t time.Time, layout string) string {
	return t.In(tp.Location()).Format(layout)
}
