package command

import (
	"context"
	"fmt"

	"github.com/alem-hub/school-records/internal/application/validation"
	"github.com/alem-hub/school-records/internal/domain/document"
	"github.com/alem-hub/school-records/internal/domain/grading"
	"github.com/alem-hub/school-records/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// ASSIGNMENT COMMANDS
// Teachers create assignments for their own courses and close them when
// grading is over. Closed assignments accept no new grades.
// ══════════════════════════════════════════════════════════════════════════════

// CreateAssignmentCommand contains the data for a new assignment.
type CreateAssignmentCommand struct {
	TeacherID string  `json:"teacher_id"`
	CourseID  string  `json:"course_id" validate:"required"`
	Name      string  `json:"name" validate:"required,notblank,max=128"`
	Type      string  `json:"type"`
	MaxPoints float64 `json:"max_points"`
	DueDate   string  `json:"due_date" validate:"omitempty,isodate"`

	// CorrelationID for tracing.
	CorrelationID string `json:"-"`
}

// Validate validates the command. max_points is checked first so that its
// error kind is InvalidAssignment rather than InvalidInput.
func (c CreateAssignmentCommand) Validate() error {
	if c.MaxPoints <= 0 {
		return shared.ErrNonPositiveMaxPoints
	}
	return validation.Struct("grading", "CreateAssignment", c)
}

// AssignmentResult contains the stored assignment.
type AssignmentResult struct {
	Assignment *grading.Assignment

	// Events contains domain events generated.
	Events []shared.Event
}

// AssignmentHandler handles create and close.
type AssignmentHandler struct {
	store          document.Store
	clock          Clock
	eventPublisher shared.EventPublisher
}

// NewAssignmentHandler creates a new AssignmentHandler.
func NewAssignmentHandler(store document.Store, clock Clock, eventPublisher shared.EventPublisher) *AssignmentHandler {
	return &AssignmentHandler{store: store, clock: clock, eventPublisher: eventPublisher}
}

// Create adds an active assignment to a course taught by the caller.
func (h *AssignmentHandler) Create(ctx context.Context, cmd CreateAssignmentCommand) (*AssignmentResult, error) {
	if err := cmd.Validate(); err != nil {
		return nil, fmt.Errorf("create_assignment: validation failed: %w", err)
	}
	typ, err := grading.ParseAssignmentType(cmd.Type)
	if err != nil {
		return nil, fmt.Errorf("create_assignment: %w", err)
	}
	var due shared.Date
	if cmd.DueDate != "" {
		if due, err = shared.ParseDate(cmd.DueDate); err != nil {
			return nil, fmt.Errorf("create_assignment: %w", err)
		}
	}

	var assignment *grading.Assignment
	err = h.store.Update(ctx, func(tx document.Tx) error {
		course, err := loadCourse(tx, "grading", "CreateAssignment", cmd.CourseID)
		if err != nil {
			return err
		}
		if cmd.TeacherID == "" || !course.IsTaughtBy(cmd.TeacherID) {
			return shared.Errorf("grading", "CreateAssignment", shared.ErrForbidden, "teacher is not authorized for course %s", course.ID)
		}

		id, err := document.NextID(tx, document.Assignments, grading.AssignmentIDPrefix)
		if err != nil {
			return err
		}
		assignment, err = grading.NewAssignment(id, course.ID, cmd.Name, typ, cmd.MaxPoints, due, cmd.TeacherID, h.clock.Now())
		if err != nil {
			return err
		}
		return document.Put(tx, document.Assignments, assignment.ID, assignment)
	})
	if err != nil {
		return nil, fmt.Errorf("create_assignment: %w", err)
	}

	event := shared.NewAssignmentCreatedEvent(assignment.ID, assignment.CourseID, assignment.Name, assignment.MaxPoints, cmd.TeacherID)
	event.BaseEvent = event.WithCorrelationID(correlationID(cmd.CorrelationID))
	result := &AssignmentResult{Assignment: assignment, Events: []shared.Event{event}}
	publishAll(h.eventPublisher, result.Events)

	return result, nil
}

// CloseAssignmentCommand identifies the assignment to close.
type CloseAssignmentCommand struct {
	TeacherID    string
	AssignmentID string

	// CorrelationID for tracing.
	CorrelationID string
}

// Close marks the assignment closed.
func (h *AssignmentHandler) Close(ctx context.Context, cmd CloseAssignmentCommand) (*AssignmentResult, error) {
	var assignment *grading.Assignment
	err := h.store.Update(ctx, func(tx document.Tx) error {
		a, ok, err := document.Find[grading.Assignment](tx, document.Assignments, cmd.AssignmentID)
		if err != nil {
			return err
		}
		if !ok {
			return shared.Errorf("grading", "CloseAssignment", shared.ErrNotFound, "assignment %q not found", cmd.AssignmentID)
		}
		course, err := loadCourse(tx, "grading", "CloseAssignment", a.CourseID)
		if err != nil {
			return err
		}
		if cmd.TeacherID == "" || !course.IsTaughtBy(cmd.TeacherID) {
			return shared.Errorf("grading", "CloseAssignment", shared.ErrForbidden, "teacher is not authorized for course %s", course.ID)
		}
		if err := a.Close(h.clock.Now()); err != nil {
			return err
		}
		assignment = &a
		return document.Put(tx, document.Assignments, a.ID, assignment)
	})
	if err != nil {
		return nil, fmt.Errorf("close_assignment: %w", err)
	}

	event := shared.NewAssignmentClosedEvent(assignment.ID, assignment.CourseID, assignment.Name, assignment.MaxPoints, cmd.TeacherID)
	event.BaseEvent = event.WithCorrelationID(correlationID(cmd.CorrelationID))
	result := &AssignmentResult{Assignment: assignment, Events: []shared.Event{event}}
	publishAll(h.eventPublisher, result.Events)

	return result, nil
}
