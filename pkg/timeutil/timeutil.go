// Package timeutil provides the school clock: the configured timezone and
// "today" as a calendar date, for report windows and record timestamps.
// No external dependencies - uses only standard library.
package timeutil

import (
	"fmt"
	"time"
)

// DefaultTimezone is used when no timezone is configured.
const DefaultTimezone = "Asia/Almaty"

// AlmatyTZ is the Almaty timezone (UTC+5, no DST). It is the fallback when
// the tz database is not available on the host.
var AlmatyTZ = time.FixedZone("Asia/Almaty", 5*60*60)

// FormatDate is the calendar date layout used in every record (YYYY-MM-DD).
const FormatDate = "2006-01-02"

// LoadLocation resolves a timezone name. "UTC" and "" are UTC; Asia/Almaty
// falls back to a fixed zone when the tz database is missing.
func LoadLocation(name string) (*time.Location, error) {
	switch name {
	case "", "UTC":
		return time.UTC, nil
	}
	loc, err := time.LoadLocation(name)
	if err == nil {
		return loc, nil
	}
	if name == DefaultTimezone {
		return AlmatyTZ, nil
	}
	return nil, fmt.Errorf("timeutil: unknown timezone %q: %w", name, err)
}

// ══════════════════════════════════════════════════════════════════════════════
// CLOCK
// ══════════════════════════════════════════════════════════════════════════════

// Clock reports the current time in the school's timezone.
type Clock struct {
	loc *time.Location
	now func() time.Time
}

// NewClock creates a wall clock in loc. A nil loc means UTC.
func NewClock(loc *time.Location) *Clock {
	if loc == nil {
		loc = time.UTC
	}
	return &Clock{loc: loc, now: time.Now}
}

// FixedClock always returns t. Used by tests and replays.
func FixedClock(t time.Time) *Clock {
	return &Clock{loc: t.Location(), now: func() time.Time { return t }}
}

// Now returns the current time in the clock's timezone.
func (c *Clock) Now() time.Time {
	return c.now().In(c.loc)
}

// Today returns the current calendar date as YYYY-MM-DD.
func (c *Clock) Today() string {
	return c.Now().Format(FormatDate)
}

// DaysAgo returns the calendar date n days before today.
func (c *Clock) DaysAgo(n int) string {
	return c.Now().AddDate(0, 0, -n).Format(FormatDate)
}
