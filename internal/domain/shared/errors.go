// Package shared holds the types every record-keeping domain uses: errors,
// events and small value objects. It imports nothing outside the standard
// library.
package shared

import (
	"errors"
	"fmt"
)

// Error kinds. Every DomainError carries one of these so callers can use
// errors.Is without knowing which domain produced the failure.
var (
	ErrNotFound          = errors.New("entity not found")
	ErrAlreadyExists     = errors.New("entity already exists")
	ErrDuplicateUsername = errors.New("duplicate username")
	ErrDuplicateSession  = errors.New("duplicate attendance session")
	ErrAlreadyEnrolled   = errors.New("already enrolled")

	ErrInvalidInput      = errors.New("invalid input")
	ErrInvalidRole       = errors.New("invalid role")
	ErrInvalidAssignment = errors.New("invalid assignment")
	ErrValueOutOfRange   = errors.New("value out of range")
	ErrInvalidFormat     = errors.New("invalid format")

	ErrInvalidState = errors.New("invalid state")
	ErrNotEnrolled  = errors.New("not enrolled")

	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")
)

var (
	conflictKinds   = []error{ErrAlreadyExists, ErrDuplicateUsername, ErrDuplicateSession, ErrAlreadyEnrolled}
	validationKinds = []error{ErrInvalidInput, ErrInvalidRole, ErrInvalidAssignment, ErrValueOutOfRange, ErrInvalidFormat}
	refusalKinds    = []error{ErrNotFound, ErrInvalidState, ErrNotEnrolled, ErrUnauthorized, ErrForbidden}
)

func isAny(err error, kinds []error) bool {
	for _, k := range kinds {
		if errors.Is(err, k) {
			return true
		}
	}
	return false
}

// IsAlreadyExists reports a uniqueness conflict of any flavour.
func IsAlreadyExists(err error) bool { return isAny(err, conflictKinds) }

// IsValidation reports malformed input.
func IsValidation(err error) bool { return isAny(err, validationKinds) }

// IsRejection reports an expected refusal by a core operation, as opposed
// to a storage or programming fault.
func IsRejection(err error) bool {
	return IsAlreadyExists(err) || IsValidation(err) || isAny(err, refusalKinds)
}

// DomainError is a failure raised by a domain operation.
type DomainError struct {
	Domain  string // identity, roster, attendance, grading, schedule
	Op      string
	Kind    error
	Message string // shown to the user as is
	Err     error
}

func (e *DomainError) Error() string {
	msg := e.Domain + "." + e.Op + ": " + e.Message
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap exposes both the kind and the cause.
func (e *DomainError) Unwrap() []error {
	out := make([]error, 0, 2)
	if e.Kind != nil {
		out = append(out, e.Kind)
	}
	if e.Err != nil {
		out = append(out, e.Err)
	}
	return out
}

func NewDomainError(domain, op string, kind error, message string) *DomainError {
	return &DomainError{Domain: domain, Op: op, Kind: kind, Message: message}
}

func Errorf(domain, op string, kind error, format string, args ...any) *DomainError {
	return NewDomainError(domain, op, kind, fmt.Sprintf(format, args...))
}

// WrapError attaches a cause; errors.Is matches the kinds of both.
func WrapError(domain, op string, kind error, message string, err error) *DomainError {
	return &DomainError{Domain: domain, Op: op, Kind: kind, Message: message, Err: err}
}

// identity
var (
	ErrAuthFailed      = NewDomainError("identity", "Authenticate", ErrUnauthorized, "invalid username or password")
	ErrAdminRequired   = NewDomainError("identity", "Authorize", ErrForbidden, "only administrators can perform this action")
	ErrUserNotPending  = NewDomainError("identity", "RejectPending", ErrInvalidState, "user is not a pending registration")
	ErrRegistrationOff = NewDomainError("identity", "Register", ErrForbidden, "self registration is disabled")
)

// roster
var (
	ErrStudentAlreadyEnrolled = NewDomainError("roster", "Enroll", ErrAlreadyEnrolled, "student is already enrolled in this course")
	ErrStudentNotEnrolled     = NewDomainError("roster", "Unenroll", ErrNotEnrolled, "student is not enrolled in this course")
	ErrTeacherAlreadyAssigned = NewDomainError("roster", "AssignTeacher", ErrAlreadyExists, "teacher is already assigned to this course")
	ErrTeacherNotAssigned     = NewDomainError("roster", "UnassignTeacher", ErrInvalidState, "teacher is not assigned to this course")
	ErrNotPrimaryTeacher      = NewDomainError("roster", "UnassignTeacher", ErrForbidden, "teacher is not the primary teacher for this course")
	ErrDuplicateCourseCode    = NewDomainError("roster", "CreateCourse", ErrAlreadyExists, "a course with this code already exists")
)

// attendance
var (
	ErrNotCourseTeacher  = NewDomainError("attendance", "Authorize", ErrForbidden, "teacher is not authorized for this course")
	ErrSessionExists     = NewDomainError("attendance", "Mark", ErrDuplicateSession, "attendance for this course and date has already been marked")
	ErrSessionNotFound   = NewDomainError("attendance", "Update", ErrNotFound, "no attendance record for this course and date")
	ErrDuplicateAttendee = NewDomainError("attendance", "Validate", ErrInvalidInput, "student listed more than once")
)

// grading
var (
	ErrNonPositiveMaxPoints = NewDomainError("grading", "Validate", ErrInvalidAssignment, "max points must be greater than zero")
	ErrPointsOutOfRange     = NewDomainError("grading", "Validate", ErrValueOutOfRange, "points must be between 0 and max points")
	ErrDuplicateGrade       = NewDomainError("grading", "RecordGrade", ErrAlreadyExists, "a grade for this assignment already exists")
	ErrAssignmentClosed     = NewDomainError("grading", "RecordGrade", ErrInvalidState, "assignment is closed")
)

// schedule
var (
	ErrEventNotFound  = NewDomainError("schedule", "FindEvent", ErrNotFound, "event not found")
	ErrEventCancelled = NewDomainError("schedule", "UpdateEvent", ErrInvalidState, "event is cancelled")
)
