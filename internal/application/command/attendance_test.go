package command

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alem-hub/school-records/internal/domain/attendance"
	"github.com/alem-hub/school-records/internal/domain/document"
	"github.com/alem-hub/school-records/internal/domain/shared"
)

func records(pairs ...string) []attendance.Record {
	out := make([]attendance.Record, 0, len(pairs)/2)
	for i := 0; i+1 < len(pairs); i += 2 {
		out = append(out, attendance.Record{StudentID: pairs[i], Status: attendance.Status(pairs[i+1])})
	}
	return out
}

func TestMarkAttendance(t *testing.T) {
	f := newFixture(t)
	s := f.seed()
	h := NewAttendanceHandler(f.store, f.clock, f.policy, f.events)
	alice, bob := s.students[0], s.students[1]

	res, err := h.Mark(f.ctx, AttendanceCommand{
		TeacherID: s.teacher,
		CourseID:  s.course,
		Date:      "2024-03-10",
		Records:   records(alice, "present", bob, "late"),
	})
	require.NoError(t, err)
	assert.Equal(t, s.course+"_2024-03-10", res.Session.Key())
	assert.Equal(t, s.teacher, res.Session.MarkedBy)
	assert.Nil(t, res.Session.UpdatedAt)

	stored := get[attendance.Session](f, document.Attendance, s.course+"_2024-03-10")
	assert.Len(t, stored.Students, 2)

	require.Len(t, f.events.Events(), 1)
	ev := f.events.Events()[0].(shared.AttendanceEvent)
	assert.Equal(t, shared.EventAttendanceMarked, ev.EventType())
	assert.Equal(t, map[string]int{"present": 1, "late": 1}, ev.Counts)
}

func TestMarkAttendance_DefaultsToToday(t *testing.T) {
	f := newFixture(t)
	s := f.seed()

	res, err := NewAttendanceHandler(f.store, f.clock, f.policy, f.events).Mark(f.ctx, AttendanceCommand{
		TeacherID: s.teacher,
		CourseID:  s.course,
		Records:   records(s.students[0], "present"),
	})
	require.NoError(t, err)
	assert.Equal(t, shared.Date("2024-03-15"), res.Session.Date)
}

func TestMarkAttendance_Rejections(t *testing.T) {
	f := newFixture(t)
	s := f.seed()
	h := NewAttendanceHandler(f.store, f.clock, f.policy, f.events)
	alice := s.students[0]

	_, err := h.Mark(f.ctx, AttendanceCommand{TeacherID: s.teacher, CourseID: s.course, Date: "2024-03-10", Records: records(alice, "present")})
	require.NoError(t, err)
	f.events.Reset()

	tests := []struct {
		name     string
		cmd      AttendanceCommand
		wantKind error
	}{
		{"missing course", AttendanceCommand{TeacherID: s.teacher, CourseID: "CRS9999", Date: "2024-03-11"}, shared.ErrNotFound},
		{"other teacher", AttendanceCommand{TeacherID: s.teacher2, CourseID: s.course, Date: "2024-03-11"}, shared.ErrForbidden},
		{"duplicate session", AttendanceCommand{TeacherID: s.teacher, CourseID: s.course, Date: "2024-03-10", Records: records(alice, "absent")}, shared.ErrDuplicateSession},
		{"unknown status", AttendanceCommand{TeacherID: s.teacher, CourseID: s.course, Date: "2024-03-11", Records: records(alice, "sick")}, shared.ErrInvalidInput},
		{"student twice", AttendanceCommand{TeacherID: s.teacher, CourseID: s.course, Date: "2024-03-11", Records: records(alice, "present", alice, "late")}, shared.ErrInvalidInput},
		{"bad date", AttendanceCommand{TeacherID: s.teacher, CourseID: s.course, Date: "2024-13-01"}, shared.ErrInvalidInput},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := h.Mark(f.ctx, tt.cmd)
			assert.ErrorIs(t, err, tt.wantKind)
		})
	}
	assert.False(t, f.exists(document.Attendance, s.course+"_2024-03-11"))
	assert.Empty(t, f.events.Events())

	first := get[attendance.Session](f, document.Attendance, s.course+"_2024-03-10")
	assert.Equal(t, []attendance.Record{{StudentID: alice, Status: attendance.StatusPresent}}, first.Students)
}

func TestUpdateAttendance(t *testing.T) {
	f := newFixture(t)
	s := f.seed()
	h := NewAttendanceHandler(f.store, f.clock, f.policy, f.events)
	alice, bob := s.students[0], s.students[1]

	_, err := h.Update(f.ctx, AttendanceCommand{TeacherID: s.teacher, CourseID: s.course, Date: "2024-03-10", Records: records(alice, "present")})
	assert.ErrorIs(t, err, shared.ErrNotFound)

	_, err = h.Mark(f.ctx, AttendanceCommand{TeacherID: s.teacher, CourseID: s.course, Date: "2024-03-10", Records: records(alice, "present", bob, "absent")})
	require.NoError(t, err)

	_, err = h.Update(f.ctx, AttendanceCommand{TeacherID: s.teacher2, CourseID: s.course, Date: "2024-03-10", Records: records(alice, "late")})
	assert.ErrorIs(t, err, shared.ErrForbidden)

	res, err := h.Update(f.ctx, AttendanceCommand{TeacherID: s.teacher, CourseID: s.course, Date: "2024-03-10", Records: records(alice, "excused")})
	require.NoError(t, err)
	assert.Equal(t, s.teacher, res.Session.UpdatedBy)
	require.NotNil(t, res.Session.UpdatedAt)

	stored := get[attendance.Session](f, document.Attendance, s.course+"_2024-03-10")
	assert.Equal(t, records(alice, "excused"), stored.Students)
	assert.Equal(t, s.teacher, stored.MarkedBy)
	assert.Equal(t, []shared.EventType{shared.EventAttendanceMarked, shared.EventAttendanceUpdated}, f.events.Types())
}

func TestMarkAttendance_StrictRoster(t *testing.T) {
	f := newFixture(t)
	s := f.seed()
	f.enroll(s.students[0], s.course)
	f.policy.strict = true
	h := NewAttendanceHandler(f.store, f.clock, f.policy, f.events)

	_, err := h.Mark(f.ctx, AttendanceCommand{TeacherID: s.teacher, CourseID: s.course, Date: "2024-03-10", Records: records(s.students[0], "present", s.students[1], "present")})
	assert.ErrorIs(t, err, shared.ErrNotEnrolled)

	_, err = h.Mark(f.ctx, AttendanceCommand{TeacherID: s.teacher, CourseID: s.course, Date: "2024-03-10", Records: records(s.students[0], "present")})
	require.NoError(t, err)
}
