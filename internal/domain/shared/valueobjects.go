package shared

import (
	"fmt"
	"math"
	"strings"
	"time"
)

// ═══════════════════════════════════════════════════════════════════════════
// Date Value Object
// ═══════════════════════════════════════════════════════════════════════════

// DateLayout is the only accepted calendar date format. Zero-padded ISO dates
// sort lexicographically in chronological order, which the attendance range
// filters rely on.
const DateLayout = "2006-01-02"

// Date is a calendar day in YYYY-MM-DD form.
type Date string

// String returns the string representation.
func (d Date) String() string {
	return string(d)
}

// IsZero reports whether the date is unset.
func (d Date) IsZero() bool {
	return d == ""
}

// Time returns midnight of the date in loc.
func (d Date) Time(loc *time.Location) time.Time {
	t, _ := time.ParseInLocation(DateLayout, string(d), loc)
	return t
}

// Before reports whether d is strictly before other.
func (d Date) Before(other Date) bool {
	return d < other
}

// After reports whether d is strictly after other.
func (d Date) After(other Date) bool {
	return d > other
}

// AddDays returns the date shifted by n days.
func (d Date) AddDays(n int) Date {
	return DateOf(d.Time(time.UTC).AddDate(0, 0, n))
}

// DateOf truncates t to its calendar day in t's own location.
func DateOf(t time.Time) Date {
	return Date(t.Format(DateLayout))
}

// ParseDate validates and normalizes a date string.
func ParseDate(value string) (Date, error) {
	value = strings.TrimSpace(value)
	t, err := time.Parse(DateLayout, value)
	if err != nil {
		return "", Errorf("shared", "ParseDate", ErrInvalidFormat, "invalid date %q, expected YYYY-MM-DD", value)
	}
	return DateOf(t), nil
}

// ═══════════════════════════════════════════════════════════════════════════
// DateRange Value Object
// ═══════════════════════════════════════════════════════════════════════════

// DateRange is an inclusive range of calendar days.
type DateRange struct {
	From Date
	To   Date
}

// Contains reports whether d falls inside the range, both ends included.
func (r DateRange) Contains(d Date) bool {
	return !d.Before(r.From) && !d.After(r.To)
}

// IsValid checks that both ends are set and ordered.
func (r DateRange) IsValid() bool {
	return !r.From.IsZero() && !r.To.IsZero() && !r.From.After(r.To)
}

// Days returns the number of calendar days covered.
func (r DateRange) Days() int {
	if !r.IsValid() {
		return 0
	}
	return int(r.To.Time(time.UTC).Sub(r.From.Time(time.UTC)).Hours()/24) + 1
}

// NewDateRange creates a DateRange with validation.
func NewDateRange(from, to Date) (DateRange, error) {
	r := DateRange{From: from, To: to}
	if !r.IsValid() {
		return DateRange{}, Errorf("shared", "NewDateRange", ErrInvalidInput, "start date %s is after end date %s", from, to)
	}
	return r, nil
}

// LastNDays returns the window [today-n, today].
func LastNDays(today Date, n int) DateRange {
	return DateRange{From: today.AddDays(-n), To: today}
}

// ═══════════════════════════════════════════════════════════════════════════
// Percentage Value Object
// ═══════════════════════════════════════════════════════════════════════════

// Percentage is a share of a whole on a 0..100 scale.
type Percentage float64

// Ratio returns part/whole*100, or 0 when whole is not positive.
func Ratio(part, whole float64) Percentage {
	if whole <= 0 {
		return 0
	}
	return Percentage(part * 100 / whole)
}

// Float64 returns the underlying value.
func (p Percentage) Float64() float64 {
	return float64(p)
}

// Round returns the percentage rounded to the given number of decimals.
func (p Percentage) Round(decimals int) Percentage {
	pow := math.Pow(10, float64(decimals))
	return Percentage(math.Round(float64(p)*pow) / pow)
}

// String formats the percentage with one decimal.
func (p Percentage) String() string {
	return fmt.Sprintf("%.1f%%", float64(p))
}
