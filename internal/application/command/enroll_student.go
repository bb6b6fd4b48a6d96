package command

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/alem-hub/school-records/internal/domain/document"
	"github.com/alem-hub/school-records/internal/domain/roster"
	"github.com/alem-hub/school-records/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// ENROLLMENT COMMANDS
// Enroll and unenroll keep both sides of the student/course link in step:
// the student's course list and the course's student list are written in
// one transaction, so either both change or neither does.
// ══════════════════════════════════════════════════════════════════════════════

// EnrollmentCommand identifies a student/course pair.
type EnrollmentCommand struct {
	// StudentID is the student profile ID.
	StudentID string

	// CourseID is the course ID.
	CourseID string

	// Actor is recorded as modified_by on both records.
	Actor string

	// CorrelationID for tracing.
	CorrelationID string
}

// Validate validates the command.
func (c EnrollmentCommand) Validate() error {
	if c.StudentID == "" {
		return shared.NewDomainError("roster", "Enroll", shared.ErrInvalidInput, "student_id is required")
	}
	if c.CourseID == "" {
		return shared.NewDomainError("roster", "Enroll", shared.ErrInvalidInput, "course_id is required")
	}
	return nil
}

// EnrollmentResult contains both sides of the link after the change.
type EnrollmentResult struct {
	Student *roster.Student
	Course  *roster.Course

	// Events contains domain events generated.
	Events []shared.Event
}

// EnrollmentHandler handles enroll and unenroll.
type EnrollmentHandler struct {
	store          document.Store
	clock          Clock
	eventPublisher shared.EventPublisher
}

// NewEnrollmentHandler creates a new EnrollmentHandler.
func NewEnrollmentHandler(store document.Store, clock Clock, eventPublisher shared.EventPublisher) *EnrollmentHandler {
	return &EnrollmentHandler{store: store, clock: clock, eventPublisher: eventPublisher}
}

// Enroll adds the student to the course.
func (h *EnrollmentHandler) Enroll(ctx context.Context, cmd EnrollmentCommand) (*EnrollmentResult, error) {
	result, err := h.apply(ctx, cmd, "Enroll", roster.Enroll)
	if err != nil {
		return nil, fmt.Errorf("enroll: %w", err)
	}

	event := shared.NewStudentEnrolledEvent(cmd.StudentID, cmd.CourseID, cmd.Actor)
	event.BaseEvent = event.WithCorrelationID(correlationID(cmd.CorrelationID))
	result.Events = []shared.Event{event}
	publishAll(h.eventPublisher, result.Events)
	return result, nil
}

// Unenroll removes the student from the course.
func (h *EnrollmentHandler) Unenroll(ctx context.Context, cmd EnrollmentCommand) (*EnrollmentResult, error) {
	result, err := h.apply(ctx, cmd, "Unenroll", roster.Unenroll)
	if err != nil {
		return nil, fmt.Errorf("unenroll: %w", err)
	}

	event := shared.NewStudentUnenrolledEvent(cmd.StudentID, cmd.CourseID, cmd.Actor)
	event.BaseEvent = event.WithCorrelationID(correlationID(cmd.CorrelationID))
	result.Events = []shared.Event{event}
	publishAll(h.eventPublisher, result.Events)
	return result, nil
}

type linkFunc func(s *roster.Student, c *roster.Course, actor string, now time.Time) error

func (h *EnrollmentHandler) apply(ctx context.Context, cmd EnrollmentCommand, op string, link linkFunc) (*EnrollmentResult, error) {
	if err := cmd.Validate(); err != nil {
		var de *shared.DomainError
		if errors.As(err, &de) {
			de.Op = op
		}
		return nil, err
	}

	var result EnrollmentResult
	err := h.store.Update(ctx, func(tx document.Tx) error {
		student, err := loadStudent(tx, "roster", op, cmd.StudentID)
		if err != nil {
			return err
		}
		course, err := loadCourse(tx, "roster", op, cmd.CourseID)
		if err != nil {
			return err
		}
		if err := link(student, course, cmd.Actor, h.clock.Now()); err != nil {
			return err
		}
		if err := document.Put(tx, document.Students, student.ID, student); err != nil {
			return err
		}
		if err := document.Put(tx, document.Courses, course.ID, course); err != nil {
			return err
		}
		result = EnrollmentResult{Student: student, Course: course}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &result, nil
}
