package command

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alem-hub/school-records/internal/domain/shared"
)

func TestCreateCourse(t *testing.T) {
	f := newFixture(t)
	s := f.seed()
	h := NewCreateCourseHandler(f.store, f.clock, f.events)

	res, err := h.Handle(f.ctx, CreateCourseCommand{Actor: s.admin, Name: " Physics ", Code: "phy-1", Description: "Mechanics"})
	require.NoError(t, err)
	assert.Equal(t, "CRS0002", res.Course.ID)
	assert.Equal(t, "Physics", res.Course.Name)
	assert.Equal(t, "PHY-1", res.Course.Code)
	assert.Equal(t, []shared.EventType{shared.EventCourseCreated}, f.events.Types())

	tests := []struct {
		name     string
		cmd      CreateCourseCommand
		wantKind error
	}{
		{"not admin", CreateCourseCommand{Actor: "teacher1", Name: "Art", Code: "ART"}, shared.ErrForbidden},
		{"duplicate code ignores case", CreateCourseCommand{Actor: s.admin, Name: "Math again", Code: "MATH101"}, shared.ErrAlreadyExists},
		{"blank name", CreateCourseCommand{Actor: s.admin, Name: "   ", Code: "X1"}, shared.ErrInvalidInput},
		{"missing code", CreateCourseCommand{Actor: s.admin, Name: "History"}, shared.ErrInvalidInput},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := h.Handle(f.ctx, tt.cmd)
			assert.ErrorIs(t, err, tt.wantKind)
		})
	}
}

func TestEnrollment_BothSides(t *testing.T) {
	f := newFixture(t)
	s := f.seed()
	h := NewEnrollmentHandler(f.store, f.clock, f.events)
	alice := s.students[0]

	res, err := h.Enroll(f.ctx, EnrollmentCommand{StudentID: alice, CourseID: s.course, Actor: s.admin})
	require.NoError(t, err)
	assert.Equal(t, []string{s.course}, res.Student.Courses)
	assert.Equal(t, []string{s.course}, f.student(alice).Courses)
	assert.Equal(t, []string{alice}, f.course(s.course).Students)
	assert.Equal(t, s.admin, f.student(alice).ModifiedBy)

	_, err = h.Enroll(f.ctx, EnrollmentCommand{StudentID: alice, CourseID: s.course, Actor: s.admin})
	assert.ErrorIs(t, err, shared.ErrAlreadyEnrolled)
	assert.Len(t, f.course(s.course).Students, 1)

	_, err = h.Unenroll(f.ctx, EnrollmentCommand{StudentID: alice, CourseID: s.course, Actor: s.admin})
	require.NoError(t, err)
	assert.Empty(t, f.student(alice).Courses)
	assert.Empty(t, f.course(s.course).Students)

	_, err = h.Unenroll(f.ctx, EnrollmentCommand{StudentID: alice, CourseID: s.course, Actor: s.admin})
	assert.ErrorIs(t, err, shared.ErrNotEnrolled)

	assert.Equal(t, []shared.EventType{shared.EventStudentEnrolled, shared.EventStudentUnenrolled}, f.events.Types())
}

func TestEnrollment_NotFound(t *testing.T) {
	f := newFixture(t)
	s := f.seed()
	h := NewEnrollmentHandler(f.store, f.clock, f.events)

	_, err := h.Enroll(f.ctx, EnrollmentCommand{StudentID: "ghost", CourseID: s.course})
	assert.ErrorIs(t, err, shared.ErrNotFound)

	_, err = h.Enroll(f.ctx, EnrollmentCommand{StudentID: s.students[0], CourseID: "CRS9999"})
	assert.ErrorIs(t, err, shared.ErrNotFound)

	_, err = h.Unenroll(f.ctx, EnrollmentCommand{StudentID: s.students[0]})
	assert.ErrorIs(t, err, shared.ErrInvalidInput)
}

func TestEnrollment_RollsBackWhenCourseWriteFails(t *testing.T) {
	f := newFixture(t)
	s := f.seed()
	h := NewEnrollmentHandler(failingStore{Store: f.store, collection: "courses"}, f.clock, f.events)

	_, err := h.Enroll(f.ctx, EnrollmentCommand{StudentID: s.students[0], CourseID: s.course, Actor: s.admin})
	require.ErrorIs(t, err, errInjected)
	assert.False(t, shared.IsRejection(err))

	assert.Empty(t, f.student(s.students[0]).Courses)
	assert.Empty(t, f.course(s.course).Students)
	assert.Empty(t, f.events.Events())
}

func TestUnenroll_ToleratesMissingCourseSide(t *testing.T) {
	f := newFixture(t)
	s := f.seed()
	f.enroll(s.students[0], s.course)

	// Break the course side by hand.
	h := NewEnrollmentHandler(f.store, f.clock, f.events)
	course := f.course(s.course)
	course.Students = nil
	putDoc(f, "courses", course.ID, course)

	_, err := h.Unenroll(f.ctx, EnrollmentCommand{StudentID: s.students[0], CourseID: s.course})
	require.NoError(t, err)
	assert.Empty(t, f.student(s.students[0]).Courses)
}

func TestLinkParent_FullReplace(t *testing.T) {
	f := newFixture(t)
	s := f.seed()
	h := NewLinkParentHandler(f.store, f.clock, f.events)
	alice, bob := s.students[0], s.students[1]
	p1, p2 := s.parents[0], s.parents[1]

	res, err := h.Handle(f.ctx, LinkParentCommand{ParentID: p1, StudentIDs: []string{alice, bob, alice}, Actor: s.admin})
	require.NoError(t, err)
	assert.Equal(t, []string{alice, bob}, res.Parent.Children)
	assert.Equal(t, p1, f.student(alice).ParentID)
	assert.Equal(t, p1, f.student(bob).ParentID)

	// Narrowing the set releases bob.
	res, err = h.Handle(f.ctx, LinkParentCommand{ParentID: p1, StudentIDs: []string{alice}, Actor: s.admin})
	require.NoError(t, err)
	assert.Equal(t, []string{bob}, res.Released)
	assert.Empty(t, f.student(bob).ParentID)
	assert.Equal(t, []string{alice}, f.parent(p1).Children)

	// Linking alice to a second parent removes her from the first.
	res, err = h.Handle(f.ctx, LinkParentCommand{ParentID: p2, StudentIDs: []string{alice}, Actor: s.admin})
	require.NoError(t, err)
	assert.Equal(t, []string{p1}, res.FormerParents)
	assert.Equal(t, p2, f.student(alice).ParentID)
	assert.Empty(t, f.parent(p1).Children)
	assert.Equal(t, []string{alice}, f.parent(p2).Children)

	// Empty set clears everything.
	_, err = h.Handle(f.ctx, LinkParentCommand{ParentID: p2, Actor: s.admin})
	require.NoError(t, err)
	assert.Empty(t, f.student(alice).ParentID)
	assert.Empty(t, f.parent(p2).Children)
}

func TestLinkParent_NotFoundLeavesStateUnchanged(t *testing.T) {
	f := newFixture(t)
	s := f.seed()
	h := NewLinkParentHandler(f.store, f.clock, f.events)

	_, err := h.Handle(f.ctx, LinkParentCommand{ParentID: "nobody", StudentIDs: []string{s.students[0]}})
	assert.ErrorIs(t, err, shared.ErrNotFound)

	_, err = h.Handle(f.ctx, LinkParentCommand{ParentID: s.parents[0], StudentIDs: []string{s.students[0], "ghost"}})
	assert.ErrorIs(t, err, shared.ErrNotFound)
	assert.Empty(t, f.student(s.students[0]).ParentID)
	assert.Empty(t, f.parent(s.parents[0]).Children)
}

func TestTeacherAssignment(t *testing.T) {
	f := newFixture(t)
	s := f.seed()
	h := NewTeacherAssignmentHandler(f.store, f.clock, f.events)

	assert.Equal(t, []string{s.course}, f.teacher(s.teacher).Classes)
	assert.Equal(t, s.teacher, f.course(s.course).TeacherID)

	_, err := h.Assign(f.ctx, TeacherAssignmentCommand{TeacherID: s.teacher, CourseID: s.course})
	assert.ErrorIs(t, err, shared.ErrAlreadyExists)

	// Reassignment moves the course between class lists.
	res, err := h.Assign(f.ctx, TeacherAssignmentCommand{TeacherID: s.teacher2, CourseID: s.course, Actor: s.admin})
	require.NoError(t, err)
	assert.Equal(t, s.teacher, res.PreviousTeacherID)
	assert.Empty(t, f.teacher(s.teacher).Classes)
	assert.Equal(t, []string{s.course}, f.teacher(s.teacher2).Classes)
	assert.Equal(t, s.teacher2, f.course(s.course).TeacherID)
	assert.Equal(t, []shared.EventType{shared.EventTeacherUnassigned, shared.EventTeacherAssigned}, f.events.Types())

	_, err = h.Unassign(f.ctx, TeacherAssignmentCommand{TeacherID: s.teacher, CourseID: s.course})
	assert.ErrorIs(t, err, shared.ErrInvalidState)

	_, err = h.Unassign(f.ctx, TeacherAssignmentCommand{TeacherID: s.teacher2, CourseID: s.course})
	require.NoError(t, err)
	assert.Empty(t, f.teacher(s.teacher2).Classes)
	assert.Empty(t, f.course(s.course).TeacherID)

	_, err = h.Assign(f.ctx, TeacherAssignmentCommand{TeacherID: "ghost", CourseID: s.course})
	assert.ErrorIs(t, err, shared.ErrNotFound)
}

func TestUnassignTeacher_NotPrimary(t *testing.T) {
	f := newFixture(t)
	s := f.seed()

	// A stale class entry without the matching teacher_id.
	teacher := f.teacher(s.teacher2)
	teacher.Classes = append(teacher.Classes, s.course)
	putDoc(f, "teachers", teacher.ID, teacher)

	_, err := NewTeacherAssignmentHandler(f.store, f.clock, f.events).Unassign(f.ctx, TeacherAssignmentCommand{TeacherID: s.teacher2, CourseID: s.course})
	assert.ErrorIs(t, err, shared.ErrForbidden)
}
