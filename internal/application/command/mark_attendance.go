package command

import (
	"context"
	"fmt"

	"github.com/alem-hub/school-records/internal/domain/attendance"
	"github.com/alem-hub/school-records/internal/domain/document"
	"github.com/alem-hub/school-records/internal/domain/roster"
	"github.com/alem-hub/school-records/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// ATTENDANCE COMMANDS
// A session is one course on one date. Only the course's teacher may mark
// or update it, and a (course, date) pair is marked at most once; later
// corrections go through update, which replaces the whole student list.
// ══════════════════════════════════════════════════════════════════════════════

// AttendanceCommand contains one session's records.
type AttendanceCommand struct {
	// TeacherID is the teacher profile ID of the caller.
	TeacherID string

	CourseID string

	// Date is YYYY-MM-DD; empty means today in the school timezone.
	Date string

	Records []attendance.Record

	// CorrelationID for tracing.
	CorrelationID string
}

// AttendanceResult contains the stored session.
type AttendanceResult struct {
	Session *attendance.Session

	// Events contains domain events generated.
	Events []shared.Event
}

// AttendanceHandler handles mark and update.
type AttendanceHandler struct {
	store          document.Store
	clock          Clock
	policy         Policy
	eventPublisher shared.EventPublisher
}

// NewAttendanceHandler creates a new AttendanceHandler.
func NewAttendanceHandler(store document.Store, clock Clock, policy Policy, eventPublisher shared.EventPublisher) *AttendanceHandler {
	return &AttendanceHandler{store: store, clock: clock, policy: policy, eventPublisher: eventPublisher}
}

// Mark records attendance for a session that does not exist yet.
func (h *AttendanceHandler) Mark(ctx context.Context, cmd AttendanceCommand) (*AttendanceResult, error) {
	date, err := h.resolveDate(cmd.Date, "Mark")
	if err != nil {
		return nil, fmt.Errorf("mark_attendance: %w", err)
	}

	var session *attendance.Session
	err = h.store.Update(ctx, func(tx document.Tx) error {
		course, err := h.authorize(tx, cmd, "Mark")
		if err != nil {
			return err
		}

		key := attendance.SessionKey(course.ID, date)
		exists, err := document.Exists(tx, document.Attendance, key)
		if err != nil {
			return err
		}
		if exists {
			return shared.ErrSessionExists
		}

		session, err = attendance.NewSession(course.ID, date, cmd.TeacherID, cmd.Records, h.clock.Now())
		if err != nil {
			return err
		}
		if err := h.checkRoster(course, cmd.Records, "Mark"); err != nil {
			return err
		}
		return document.Put(tx, document.Attendance, key, session)
	})
	if err != nil {
		return nil, fmt.Errorf("mark_attendance: %w", err)
	}

	event := shared.NewAttendanceMarkedEvent(session.Key(), session.CourseID, session.Date.String(), session.Counts(), cmd.TeacherID)
	event.BaseEvent = event.WithCorrelationID(correlationID(cmd.CorrelationID))
	result := &AttendanceResult{Session: session, Events: []shared.Event{event}}
	publishAll(h.eventPublisher, result.Events)

	return result, nil
}

// Update replaces the student list of an existing session.
func (h *AttendanceHandler) Update(ctx context.Context, cmd AttendanceCommand) (*AttendanceResult, error) {
	date, err := h.resolveDate(cmd.Date, "Update")
	if err != nil {
		return nil, fmt.Errorf("update_attendance: %w", err)
	}

	var session *attendance.Session
	err = h.store.Update(ctx, func(tx document.Tx) error {
		course, err := h.authorize(tx, cmd, "Update")
		if err != nil {
			return err
		}

		key := attendance.SessionKey(course.ID, date)
		stored, ok, err := document.Find[attendance.Session](tx, document.Attendance, key)
		if err != nil {
			return err
		}
		if !ok {
			return shared.ErrSessionNotFound
		}

		if err := stored.Replace(cmd.TeacherID, cmd.Records, h.clock.Now()); err != nil {
			return err
		}
		if err := h.checkRoster(course, cmd.Records, "Update"); err != nil {
			return err
		}
		session = &stored
		return document.Put(tx, document.Attendance, key, session)
	})
	if err != nil {
		return nil, fmt.Errorf("update_attendance: %w", err)
	}

	event := shared.NewAttendanceUpdatedEvent(session.Key(), session.CourseID, session.Date.String(), session.Counts(), cmd.TeacherID)
	event.BaseEvent = event.WithCorrelationID(correlationID(cmd.CorrelationID))
	result := &AttendanceResult{Session: session, Events: []shared.Event{event}}
	publishAll(h.eventPublisher, result.Events)

	return result, nil
}

func (h *AttendanceHandler) resolveDate(value, op string) (shared.Date, error) {
	if value == "" {
		return shared.DateOf(h.clock.Now()), nil
	}
	d, err := shared.ParseDate(value)
	if err != nil {
		return "", shared.WrapError("attendance", op, shared.ErrInvalidInput, "invalid session date", err)
	}
	return d, nil
}

// authorize loads the course and checks that the caller is its teacher.
func (h *AttendanceHandler) authorize(tx document.Tx, cmd AttendanceCommand, op string) (*roster.Course, error) {
	course, err := loadCourse(tx, "attendance", op, cmd.CourseID)
	if err != nil {
		return nil, err
	}
	if cmd.TeacherID == "" || !course.IsTaughtBy(cmd.TeacherID) {
		return nil, shared.ErrNotCourseTeacher
	}
	return course, nil
}

// checkRoster rejects students outside the course when strict roster
// checking is enabled.
func (h *AttendanceHandler) checkRoster(course *roster.Course, records []attendance.Record, op string) error {
	if h.policy == nil || !h.policy.StrictAttendanceRoster() {
		return nil
	}
	for _, r := range records {
		if !course.HasStudent(r.StudentID) {
			return shared.Errorf("attendance", op, shared.ErrNotEnrolled, "student %q is not enrolled in %s", r.StudentID, course.ID)
		}
	}
	return nil
}
