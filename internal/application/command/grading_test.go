package command

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alem-hub/school-records/internal/domain/grading"
	"github.com/alem-hub/school-records/internal/domain/shared"
)

func (f *fixture) assignment(s *school, courseID string, maxPoints float64) *grading.Assignment {
	f.t.Helper()
	res, err := NewAssignmentHandler(f.store, f.clock, f.events).Create(f.ctx, CreateAssignmentCommand{
		TeacherID: s.teacher,
		CourseID:  courseID,
		Name:      "Quiz",
		Type:      "quiz",
		MaxPoints: maxPoints,
	})
	require.NoError(f.t, err)
	return res.Assignment
}

func TestCreateAssignment(t *testing.T) {
	f := newFixture(t)
	s := f.seed()
	h := NewAssignmentHandler(f.store, f.clock, f.events)

	res, err := h.Create(f.ctx, CreateAssignmentCommand{TeacherID: s.teacher, CourseID: s.course, Name: "Essay", MaxPoints: 20, DueDate: "2024-04-01"})
	require.NoError(t, err)
	assert.Equal(t, "ASN0001", res.Assignment.ID)
	assert.Equal(t, grading.TypeHomework, res.Assignment.Type)
	assert.Equal(t, grading.AssignmentActive, res.Assignment.Status)
	assert.Equal(t, shared.Date("2024-04-01"), res.Assignment.DueDate)

	tests := []struct {
		name     string
		cmd      CreateAssignmentCommand
		wantKind error
	}{
		{"zero max points", CreateAssignmentCommand{TeacherID: s.teacher, CourseID: s.course, Name: "X", MaxPoints: 0}, shared.ErrInvalidAssignment},
		{"other teacher", CreateAssignmentCommand{TeacherID: s.teacher2, CourseID: s.course, Name: "X", MaxPoints: 10}, shared.ErrForbidden},
		{"missing course", CreateAssignmentCommand{TeacherID: s.teacher, CourseID: "CRS9999", Name: "X", MaxPoints: 10}, shared.ErrNotFound},
		{"unknown type", CreateAssignmentCommand{TeacherID: s.teacher, CourseID: s.course, Name: "X", Type: "lab", MaxPoints: 10}, shared.ErrInvalidAssignment},
		{"bad due date", CreateAssignmentCommand{TeacherID: s.teacher, CourseID: s.course, Name: "X", MaxPoints: 10, DueDate: "soon"}, shared.ErrInvalidInput},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := h.Create(f.ctx, tt.cmd)
			assert.ErrorIs(t, err, tt.wantKind)
		})
	}
}

func TestCloseAssignment(t *testing.T) {
	f := newFixture(t)
	s := f.seed()
	a := f.assignment(s, s.course, 10)
	h := NewAssignmentHandler(f.store, f.clock, f.events)

	_, err := h.Close(f.ctx, CloseAssignmentCommand{TeacherID: s.teacher2, AssignmentID: a.ID})
	assert.ErrorIs(t, err, shared.ErrForbidden)

	res, err := h.Close(f.ctx, CloseAssignmentCommand{TeacherID: s.teacher, AssignmentID: a.ID})
	require.NoError(t, err)
	assert.True(t, res.Assignment.IsClosed())
	require.NotNil(t, res.Assignment.ClosedAt)

	_, err = h.Close(f.ctx, CloseAssignmentCommand{TeacherID: s.teacher, AssignmentID: a.ID})
	assert.ErrorIs(t, err, shared.ErrInvalidState)

	_, err = h.Close(f.ctx, CloseAssignmentCommand{TeacherID: s.teacher, AssignmentID: "ASN9999"})
	assert.ErrorIs(t, err, shared.ErrNotFound)
}

func TestRecordGrade(t *testing.T) {
	f := newFixture(t)
	s := f.seed()
	a := f.assignment(s, s.course, 50)
	f.events.Reset()
	h := NewRecordGradeHandler(f.store, f.clock, f.policy, f.events)

	res, err := h.Handle(f.ctx, RecordGradeCommand{
		TeacherID:    s.teacher,
		StudentID:    s.students[0],
		CourseID:     s.course,
		AssignmentID: a.ID,
		Points:       29,
		MaxPoints:    50,
	})
	require.NoError(t, err)
	assert.Equal(t, "GRD0001", res.Grade.ID)
	assert.InDelta(t, 58.0, res.Grade.Percentage.Float64(), 1e-9)
	assert.Equal(t, "F", res.Grade.LetterGrade)

	require.Len(t, f.events.Events(), 1)
	ev := f.events.Events()[0].(shared.GradeRecordedEvent)
	assert.Equal(t, "F", ev.Letter)
	assert.Equal(t, s.teacher, ev.Actor)
}

func TestRecordGrade_CheckOrder(t *testing.T) {
	f := newFixture(t)
	s := f.seed()
	a := f.assignment(s, s.course, 10)

	other, err := NewCreateCourseHandler(f.store, f.clock, f.events).Handle(f.ctx, CreateCourseCommand{Actor: s.admin, Name: "Art", Code: "ART"})
	require.NoError(t, err)
	_, err = NewTeacherAssignmentHandler(f.store, f.clock, f.events).Assign(f.ctx, TeacherAssignmentCommand{TeacherID: s.teacher, CourseID: other.Course.ID})
	require.NoError(t, err)

	h := NewRecordGradeHandler(f.store, f.clock, f.policy, f.events)
	alice := s.students[0]

	tests := []struct {
		name     string
		cmd      RecordGradeCommand
		wantKind error
	}{
		// max_points is checked before anything else, even a missing student.
		{"zero max points", RecordGradeCommand{TeacherID: s.teacher, StudentID: "ghost", CourseID: s.course, AssignmentID: a.ID, Points: 5, MaxPoints: 0}, shared.ErrInvalidAssignment},
		{"negative points", RecordGradeCommand{TeacherID: s.teacher, StudentID: "ghost", CourseID: s.course, AssignmentID: a.ID, Points: -1, MaxPoints: 10}, shared.ErrValueOutOfRange},
		{"points above max", RecordGradeCommand{TeacherID: s.teacher, StudentID: alice, CourseID: s.course, AssignmentID: a.ID, Points: 11, MaxPoints: 10}, shared.ErrValueOutOfRange},
		{"missing student", RecordGradeCommand{TeacherID: s.teacher2, StudentID: "ghost", CourseID: s.course, AssignmentID: a.ID, Points: 5, MaxPoints: 10}, shared.ErrNotFound},
		{"missing assignment", RecordGradeCommand{TeacherID: s.teacher2, StudentID: alice, CourseID: s.course, AssignmentID: "ASN9999", Points: 5, MaxPoints: 10}, shared.ErrNotFound},
		{"not course teacher", RecordGradeCommand{TeacherID: s.teacher2, StudentID: alice, CourseID: s.course, AssignmentID: a.ID, Points: 5, MaxPoints: 10}, shared.ErrForbidden},
		{"assignment of other course", RecordGradeCommand{TeacherID: s.teacher, StudentID: alice, CourseID: other.Course.ID, AssignmentID: a.ID, Points: 5, MaxPoints: 10}, shared.ErrInvalidAssignment},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := h.Handle(f.ctx, tt.cmd)
			assert.ErrorIs(t, err, tt.wantKind)
		})
	}
}

func TestRecordGrade_Duplicates(t *testing.T) {
	f := newFixture(t)
	s := f.seed()
	a := f.assignment(s, s.course, 100)
	h := NewRecordGradeHandler(f.store, f.clock, f.policy, f.events)
	cmd := RecordGradeCommand{TeacherID: s.teacher, StudentID: s.students[0], CourseID: s.course, AssignmentID: a.ID, Points: 90, MaxPoints: 100}

	_, err := h.Handle(f.ctx, cmd)
	require.NoError(t, err)

	_, err = h.Handle(f.ctx, cmd)
	assert.ErrorIs(t, err, shared.ErrAlreadyExists)

	f.policy.unique = false
	cmd.Points = 70
	res, err := h.Handle(f.ctx, cmd)
	require.NoError(t, err)
	assert.Equal(t, "GRD0002", res.Grade.ID)
}

func TestRecordGrade_ClosedAssignment(t *testing.T) {
	f := newFixture(t)
	s := f.seed()
	a := f.assignment(s, s.course, 10)
	_, err := NewAssignmentHandler(f.store, f.clock, f.events).Close(f.ctx, CloseAssignmentCommand{TeacherID: s.teacher, AssignmentID: a.ID})
	require.NoError(t, err)

	_, err = NewRecordGradeHandler(f.store, f.clock, f.policy, f.events).Handle(f.ctx, RecordGradeCommand{
		TeacherID: s.teacher, StudentID: s.students[0], CourseID: s.course, AssignmentID: a.ID, Points: 5, MaxPoints: 10,
	})
	assert.ErrorIs(t, err, shared.ErrInvalidState)
}
