package command

import (
	"context"
	"fmt"
	"strings"

	"github.com/alem-hub/school-records/internal/application/validation"
	"github.com/alem-hub/school-records/internal/domain/document"
	"github.com/alem-hub/school-records/internal/domain/roster"
	"github.com/alem-hub/school-records/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// CREATE COURSE COMMAND
// Adds a course with a generated CRS id. Course codes are unique.
// ══════════════════════════════════════════════════════════════════════════════

// CreateCourseCommand contains the data for a new course.
type CreateCourseCommand struct {
	Actor       string `json:"actor"`
	Name        string `json:"name" validate:"required,notblank,max=128"`
	Code        string `json:"code" validate:"required,notblank,max=32"`
	Description string `json:"description" validate:"max=1024"`

	// CorrelationID for tracing.
	CorrelationID string `json:"-"`
}

// Validate validates the command.
func (c CreateCourseCommand) Validate() error {
	return validation.Struct("roster", "CreateCourse", c)
}

// CreateCourseResult contains the created course.
type CreateCourseResult struct {
	Course *roster.Course

	// Events contains domain events generated.
	Events []shared.Event
}

// CreateCourseHandler handles the CreateCourseCommand.
type CreateCourseHandler struct {
	store          document.Store
	clock          Clock
	eventPublisher shared.EventPublisher
}

// NewCreateCourseHandler creates a new CreateCourseHandler.
func NewCreateCourseHandler(store document.Store, clock Clock, eventPublisher shared.EventPublisher) *CreateCourseHandler {
	return &CreateCourseHandler{store: store, clock: clock, eventPublisher: eventPublisher}
}

// Handle executes the create course command.
func (h *CreateCourseHandler) Handle(ctx context.Context, cmd CreateCourseCommand) (*CreateCourseResult, error) {
	if err := cmd.Validate(); err != nil {
		return nil, fmt.Errorf("create_course: validation failed: %w", err)
	}

	var course *roster.Course
	err := h.store.Update(ctx, func(tx document.Tx) error {
		if _, err := requireAdmin(tx, cmd.Actor); err != nil {
			return err
		}

		courses, err := document.All[roster.Course](tx, document.Courses)
		if err != nil {
			return err
		}
		code := strings.ToUpper(strings.TrimSpace(cmd.Code))
		for _, c := range courses {
			if c.Code == code {
				return shared.ErrDuplicateCourseCode
			}
		}

		id, err := document.NextID(tx, document.Courses, roster.CourseIDPrefix)
		if err != nil {
			return err
		}
		course, err = roster.NewCourse(id, cmd.Name, code, cmd.Description, cmd.Actor, h.clock.Now())
		if err != nil {
			return err
		}
		return document.Put(tx, document.Courses, course.ID, course)
	})
	if err != nil {
		return nil, fmt.Errorf("create_course: %w", err)
	}

	event := shared.NewCourseCreatedEvent(course.ID, course.Name, course.Code, cmd.Actor)
	event.BaseEvent = event.WithCorrelationID(correlationID(cmd.CorrelationID))
	result := &CreateCourseResult{Course: course, Events: []shared.Event{event}}
	publishAll(h.eventPublisher, result.Events)

	return result, nil
}
