package command

import (
	"context"
	"fmt"

	"github.com/alem-hub/school-records/internal/domain/document"
	"github.com/alem-hub/school-records/internal/domain/roster"
	"github.com/alem-hub/school-records/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// TEACHER ASSIGNMENT COMMANDS
// A course has at most one primary teacher; the teacher's class list and
// the course's teacher_id always agree. Reassigning a course moves it off
// the previous teacher's list in the same transaction.
// ══════════════════════════════════════════════════════════════════════════════

// TeacherAssignmentCommand identifies a teacher/course pair.
type TeacherAssignmentCommand struct {
	TeacherID string
	CourseID  string

	// Actor is recorded as modified_by.
	Actor string

	// CorrelationID for tracing.
	CorrelationID string
}

// TeacherAssignmentResult contains the records after the change.
type TeacherAssignmentResult struct {
	Teacher *roster.Teacher
	Course  *roster.Course

	// PreviousTeacherID is set when assign moved the course from someone else.
	PreviousTeacherID string

	// Events contains domain events generated.
	Events []shared.Event
}

// TeacherAssignmentHandler handles assign and unassign.
type TeacherAssignmentHandler struct {
	store          document.Store
	clock          Clock
	eventPublisher shared.EventPublisher
}

// NewTeacherAssignmentHandler creates a new TeacherAssignmentHandler.
func NewTeacherAssignmentHandler(store document.Store, clock Clock, eventPublisher shared.EventPublisher) *TeacherAssignmentHandler {
	return &TeacherAssignmentHandler{store: store, clock: clock, eventPublisher: eventPublisher}
}

// Assign makes the teacher the course's primary teacher.
func (h *TeacherAssignmentHandler) Assign(ctx context.Context, cmd TeacherAssignmentCommand) (*TeacherAssignmentResult, error) {
	var result TeacherAssignmentResult
	err := h.store.Update(ctx, func(tx document.Tx) error {
		result = TeacherAssignmentResult{}

		teacher, err := loadTeacher(tx, "roster", "AssignTeacher", cmd.TeacherID)
		if err != nil {
			return err
		}
		course, err := loadCourse(tx, "roster", "AssignTeacher", cmd.CourseID)
		if err != nil {
			return err
		}

		var previous *roster.Teacher
		if course.TeacherID != "" && course.TeacherID != teacher.ID {
			prev, ok, err := document.Find[roster.Teacher](tx, document.Teachers, course.TeacherID)
			if err != nil {
				return err
			}
			if ok {
				previous = &prev
			}
			result.PreviousTeacherID = course.TeacherID
		}

		if err := roster.AssignTeacher(teacher, course, previous, cmd.Actor, h.clock.Now()); err != nil {
			return err
		}
		if previous != nil {
			if err := document.Put(tx, document.Teachers, previous.ID, previous); err != nil {
				return err
			}
		}
		if err := document.Put(tx, document.Teachers, teacher.ID, teacher); err != nil {
			return err
		}
		if err := document.Put(tx, document.Courses, course.ID, course); err != nil {
			return err
		}
		result.Teacher, result.Course = teacher, course
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("assign_teacher: %w", err)
	}

	var events []shared.Event
	cid := correlationID(cmd.CorrelationID)
	if result.PreviousTeacherID != "" {
		removed := shared.NewTeacherUnassignedEvent(result.PreviousTeacherID, cmd.CourseID, cmd.Actor)
		removed.BaseEvent = removed.WithCorrelationID(cid)
		events = append(events, removed)
	}
	assigned := shared.NewTeacherAssignedEvent(cmd.TeacherID, cmd.CourseID, cmd.Actor)
	assigned.BaseEvent = assigned.WithCorrelationID(cid)
	result.Events = append(events, assigned)
	publishAll(h.eventPublisher, result.Events)

	return &result, nil
}

// Unassign removes the teacher from the course.
func (h *TeacherAssignmentHandler) Unassign(ctx context.Context, cmd TeacherAssignmentCommand) (*TeacherAssignmentResult, error) {
	var result TeacherAssignmentResult
	err := h.store.Update(ctx, func(tx document.Tx) error {
		teacher, err := loadTeacher(tx, "roster", "UnassignTeacher", cmd.TeacherID)
		if err != nil {
			return err
		}
		course, err := loadCourse(tx, "roster", "UnassignTeacher", cmd.CourseID)
		if err != nil {
			return err
		}
		if err := roster.UnassignTeacher(teacher, course, cmd.Actor, h.clock.Now()); err != nil {
			return err
		}
		if err := document.Put(tx, document.Teachers, teacher.ID, teacher); err != nil {
			return err
		}
		if err := document.Put(tx, document.Courses, course.ID, course); err != nil {
			return err
		}
		result = TeacherAssignmentResult{Teacher: teacher, Course: course}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("unassign_teacher: %w", err)
	}

	event := shared.NewTeacherUnassignedEvent(cmd.TeacherID, cmd.CourseID, cmd.Actor)
	event.BaseEvent = event.WithCorrelationID(correlationID(cmd.CorrelationID))
	result.Events = []shared.Event{event}
	publishAll(h.eventPublisher, result.Events)

	return &result, nil
}
