package shared

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDomainErrorMatching(t *testing.T) {
	err := fmt.Errorf("enroll: %w", ErrStudentAlreadyEnrolled)

	assert.True(t, errors.Is(err, ErrAlreadyEnrolled))
	assert.True(t, IsAlreadyExists(err))
	assert.True(t, IsRejection(err))
	assert.False(t, IsValidation(err))

	var de *DomainError
	assert.True(t, errors.As(err, &de))
	assert.Equal(t, "roster", de.Domain)
}

func TestWrapErrorKeepsBothKinds(t *testing.T) {
	inner := Errorf("shared", "ParseDate", ErrInvalidFormat, "bad")
	err := WrapError("attendance", "Report", ErrInvalidInput, "invalid start date", inner)

	assert.True(t, errors.Is(err, ErrInvalidInput))
	assert.True(t, errors.Is(err, ErrInvalidFormat))
	assert.Contains(t, err.Error(), "attendance.Report: invalid start date")
}

func TestIsRejection(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"not found", ErrSessionNotFound, true},
		{"forbidden", ErrNotCourseTeacher, true},
		{"unauthorized", ErrAuthFailed, true},
		{"duplicate session", ErrSessionExists, true},
		{"out of range", ErrPointsOutOfRange, true},
		{"not enrolled", ErrStudentNotEnrolled, true},
		{"invalid state", ErrUserNotPending, true},
		{"storage fault", errors.New("disk on fire"), false},
		{"wrapped storage fault", fmt.Errorf("commit: %w", errors.New("io")), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsRejection(tt.err))
		})
	}
}
