package shared

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDate(t *testing.T) {
	d, err := ParseDate(" 2024-03-01 ")
	require.NoError(t, err)
	assert.Equal(t, Date("2024-03-01"), d)

	for _, bad := range []string{"", "2024-3-1", "01/03/2024", "2024-02-30"} {
		_, err := ParseDate(bad)
		assert.True(t, errors.Is(err, ErrInvalidFormat), bad)
		assert.True(t, IsValidation(err), bad)
	}
}

func TestDateArithmetic(t *testing.T) {
	assert.Equal(t, Date("2024-02-29"), Date("2024-03-01").AddDays(-1))
	assert.Equal(t, Date("2025-01-01"), Date("2024-12-31").AddDays(1))
	assert.True(t, Date("2024-01-09").Before("2024-01-10"))
	assert.Equal(t, Date("2024-03-01"), DateOf(time.Date(2024, 3, 1, 23, 59, 0, 0, time.UTC)))
}

func TestDateRange(t *testing.T) {
	r := LastNDays("2024-01-31", 30)
	assert.Equal(t, Date("2024-01-01"), r.From)
	assert.Equal(t, 31, r.Days())
	assert.True(t, r.Contains("2024-01-01"))
	assert.True(t, r.Contains("2024-01-31"))
	assert.False(t, r.Contains("2023-12-31"))
	assert.False(t, r.Contains("2024-02-01"))

	_, err := NewDateRange("2024-02-01", "2024-01-01")
	assert.True(t, errors.Is(err, ErrInvalidInput))
	assert.Equal(t, 0, DateRange{}.Days())
}

func TestRatio(t *testing.T) {
	assert.Equal(t, Percentage(0), Ratio(5, 0))
	assert.Equal(t, Percentage(0), Ratio(5, -1))
	assert.Equal(t, Percentage(93), Ratio(93, 100))
	assert.Equal(t, Percentage(58), Ratio(29, 50))
	assert.Equal(t, Percentage(33.3), Ratio(1, 3).Round(1))
	assert.Equal(t, "25.0%", Ratio(1, 4).String())
}
