// Package attendance contains attendance sessions, per-student statistics
// and date-range reports. It is a pure domain layer: callers load and store
// sessions through the document store.
package attendance

import (
	"strings"
	"time"

	"github.com/alem-hub/school-records/internal/domain/shared"
)

// Status is a student's attendance status within one session.
type Status string

const (
	StatusPresent Status = "present"
	StatusAbsent  Status = "absent"
	StatusLate    Status = "late"
	StatusExcused Status = "excused"
)

// Statuses lists every valid status in reporting order.
var Statuses = []Status{StatusPresent, StatusAbsent, StatusLate, StatusExcused}

// IsValid checks if the status belongs to the closed set.
func (s Status) IsValid() bool {
	switch s {
	case StatusPresent, StatusAbsent, StatusLate, StatusExcused:
		return true
	}
	return false
}

// String returns the string representation of Status.
func (s Status) String() string {
	return string(s)
}

// ParseStatus normalizes case and validates.
func ParseStatus(value string) (Status, error) {
	s := Status(strings.ToLower(strings.TrimSpace(value)))
	if !s.IsValid() {
		return "", shared.Errorf("attendance", "ParseStatus", shared.ErrInvalidInput, "unknown attendance status %q", value)
	}
	return s, nil
}

// Record is one student's line in a session.
type Record struct {
	StudentID string `json:"student_id"`
	Status    Status `json:"status"`
}

// Session is the attendance for one course on one date.
type Session struct {
	CourseID  string      `json:"course_id"`
	Date      shared.Date `json:"date"`
	MarkedBy  string      `json:"marked_by"`
	MarkedAt  time.Time   `json:"marked_at"`
	UpdatedBy string      `json:"updated_by,omitempty"`
	UpdatedAt *time.Time  `json:"updated_at,omitempty"`
	Students  []Record    `json:"students"`
}

// SessionKey builds the storage key for (courseID, date).
func SessionKey(courseID string, date shared.Date) string {
	return courseID + "_" + date.String()
}

// NewSession creates a session after validating the records.
func NewSession(courseID string, date shared.Date, teacherID string, records []Record, now time.Time) (*Session, error) {
	if err := ValidateRecords(records); err != nil {
		return nil, err
	}
	return &Session{
		CourseID: courseID,
		Date:     date,
		MarkedBy: teacherID,
		MarkedAt: now,
		Students: append([]Record(nil), records...),
	}, nil
}

// Key returns the storage key of the session.
func (s *Session) Key() string {
	return SessionKey(s.CourseID, s.Date)
}

// Replace overwrites the student list. It is a full replace, not a merge.
func (s *Session) Replace(teacherID string, records []Record, now time.Time) error {
	if err := ValidateRecords(records); err != nil {
		return err
	}
	s.Students = append([]Record(nil), records...)
	s.UpdatedBy = teacherID
	s.UpdatedAt = &now
	return nil
}

// StatusOf returns the status recorded for a student, if any.
func (s *Session) StatusOf(studentID string) (Status, bool) {
	for _, r := range s.Students {
		if r.StudentID == studentID {
			return r.Status, true
		}
	}
	return "", false
}

// Counts returns the number of records per status.
func (s *Session) Counts() map[string]int {
	counts := make(map[string]int, len(Statuses))
	for _, r := range s.Students {
		counts[r.Status.String()]++
	}
	return counts
}

// ValidateRecords checks statuses and rejects a student listed twice.
func ValidateRecords(records []Record) error {
	seen := make(map[string]bool, len(records))
	for _, r := range records {
		if strings.TrimSpace(r.StudentID) == "" {
			return shared.NewDomainError("attendance", "Validate", shared.ErrInvalidInput, "student id is required")
		}
		if !r.Status.IsValid() {
			return shared.Errorf("attendance", "Validate", shared.ErrInvalidInput, "unknown attendance status %q for %s", r.Status, r.StudentID)
		}
		if seen[r.StudentID] {
			return shared.ErrDuplicateAttendee
		}
		seen[r.StudentID] = true
	}
	return nil
}
