package command

import (
	"context"
	"fmt"

	"github.com/alem-hub/school-records/internal/domain/document"
	"github.com/alem-hub/school-records/internal/domain/grading"
	"github.com/alem-hub/school-records/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// RECORD GRADE COMMAND
// Stores one grade for a student on an assignment. The percentage and the
// letter are computed once, at recording time, and stored with the grade.
// ══════════════════════════════════════════════════════════════════════════════

// RecordGradeCommand contains the data for a grade.
type RecordGradeCommand struct {
	// TeacherID is the teacher profile ID of the caller.
	TeacherID string

	StudentID    string
	CourseID     string
	AssignmentID string

	Points    float64
	MaxPoints float64

	// CorrelationID for tracing.
	CorrelationID string
}

// Validate checks the point values. Everything else needs stored state.
func (c RecordGradeCommand) Validate() error {
	return grading.ValidatePoints(c.Points, c.MaxPoints)
}

// RecordGradeResult contains the stored grade.
type RecordGradeResult struct {
	Grade *grading.Grade

	// Events contains domain events generated.
	Events []shared.Event
}

// ══════════════════════════════════════════════════════════════════════════════
// HANDLER
// ══════════════════════════════════════════════════════════════════════════════

// RecordGradeHandler handles the RecordGradeCommand.
type RecordGradeHandler struct {
	store          document.Store
	clock          Clock
	policy         Policy
	eventPublisher shared.EventPublisher
}

// NewRecordGradeHandler creates a new RecordGradeHandler.
func NewRecordGradeHandler(store document.Store, clock Clock, policy Policy, eventPublisher shared.EventPublisher) *RecordGradeHandler {
	return &RecordGradeHandler{store: store, clock: clock, policy: policy, eventPublisher: eventPublisher}
}

// Handle executes the record grade command.
func (h *RecordGradeHandler) Handle(ctx context.Context, cmd RecordGradeCommand) (*RecordGradeResult, error) {
	if err := cmd.Validate(); err != nil {
		return nil, fmt.Errorf("record_grade: validation failed: %w", err)
	}

	var grade *grading.Grade
	err := h.store.Update(ctx, func(tx document.Tx) error {
		if _, err := loadStudent(tx, "grading", "RecordGrade", cmd.StudentID); err != nil {
			return err
		}
		course, err := loadCourse(tx, "grading", "RecordGrade", cmd.CourseID)
		if err != nil {
			return err
		}
		assignment, ok, err := document.Find[grading.Assignment](tx, document.Assignments, cmd.AssignmentID)
		if err != nil {
			return err
		}
		if !ok {
			return shared.Errorf("grading", "RecordGrade", shared.ErrNotFound, "assignment %q not found", cmd.AssignmentID)
		}

		if cmd.TeacherID == "" || !course.IsTaughtBy(cmd.TeacherID) {
			return shared.Errorf("grading", "RecordGrade", shared.ErrForbidden, "teacher is not authorized for course %s", course.ID)
		}
		if assignment.CourseID != course.ID {
			return shared.Errorf("grading", "RecordGrade", shared.ErrInvalidAssignment, "assignment %s does not belong to course %s", assignment.ID, course.ID)
		}
		if assignment.IsClosed() {
			return shared.ErrAssignmentClosed
		}

		if h.policy == nil || h.policy.UniqueGradesPerAssignment() {
			grades, err := document.All[grading.Grade](tx, document.Grades)
			if err != nil {
				return err
			}
			if grading.HasGradeFor(grades, cmd.StudentID, assignment.ID) {
				return shared.ErrDuplicateGrade
			}
		}

		id, err := document.NextID(tx, document.Grades, grading.GradeIDPrefix)
		if err != nil {
			return err
		}
		grade, err = grading.NewGrade(id, cmd.StudentID, course.ID, assignment.ID, cmd.Points, cmd.MaxPoints, cmd.TeacherID, h.clock.Now())
		if err != nil {
			return err
		}
		return document.Put(tx, document.Grades, grade.ID, grade)
	})
	if err != nil {
		return nil, fmt.Errorf("record_grade: %w", err)
	}

	event := shared.NewGradeRecordedEvent(grade.ID, grade.StudentID, grade.CourseID, grade.AssignmentID, grade.Percentage.Float64(), grade.LetterGrade, cmd.TeacherID)
	event.BaseEvent = event.WithCorrelationID(correlationID(cmd.CorrelationID))
	result := &RecordGradeResult{Grade: grade, Events: []shared.Event{event}}
	publishAll(h.eventPublisher, result.Events)

	return result, nil
}
