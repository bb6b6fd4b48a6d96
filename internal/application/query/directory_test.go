package query

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alem-hub/school-records/internal/domain/document"
	"github.com/alem-hub/school-records/internal/domain/identity"
	"github.com/alem-hub/school-records/internal/domain/roster"
	"github.com/alem-hub/school-records/internal/domain/schedule"
	"github.com/alem-hub/school-records/internal/domain/shared"
)

func usernames(ms []MemberDTO) []string {
	out := make([]string, 0, len(ms))
	for _, m := range ms {
		out = append(out, m.Username)
	}
	return out
}

func TestDirectoryLookups(t *testing.T) {
	sd := seed(t)
	ctx := context.Background()

	put(t, sd.store, document.Students, "S-ZED", roster.Student{ID: "S-ZED", Username: "zed", GradeLevel: "9A"})
	put(t, sd.store, document.Students, "S-AMY", roster.Student{ID: "S-AMY", Username: "amy", GradeLevel: "9a"})
	put(t, sd.store, document.Students, "S-ANON", roster.Student{ID: "S-ANON", Username: "anon", GradeLevel: "10"})

	user(t, sd.store, "kim", identity.RoleTeacher, "Kim", "Lee", base)
	user(t, sd.store, "bo", identity.RoleTeacher, "Bo", "Chen", base)
	put(t, sd.store, document.Teachers, "T1", roster.Teacher{ID: "T1", Username: "kim", Department: "Science", Subjects: []string{"Physics"}})
	put(t, sd.store, document.Teachers, "T2", roster.Teacher{ID: "T2", Username: "bo", Department: "science", Subjects: []string{"Chemistry", "physics"}})

	user(t, sd.store, "max", identity.RoleStaff, "Max", "Orr", base)
	put(t, sd.store, document.Staff, "ST1", roster.Staff{ID: "ST1", Username: "max", Department: "Facilities", Position: "Caretaker"})

	h := NewRosterQueryHandler(sd.store)

	students, err := h.StudentsByGrade(ctx, " 9A ")
	require.NoError(t, err)
	assert.Equal(t, []string{"amy", "zed"}, usernames(students))
	assert.Equal(t, "Amy Adams", students[0].FullName)

	teachers, err := h.TeachersByDepartment(ctx, "SCIENCE")
	require.NoError(t, err)
	assert.Equal(t, []string{"bo", "kim"}, usernames(teachers))

	teachers, err = h.TeachersBySubject(ctx, "chemistry")
	require.NoError(t, err)
	assert.Equal(t, []string{"bo"}, usernames(teachers))

	staff, err := h.StaffByPosition(ctx, "caretaker")
	require.NoError(t, err)
	assert.Equal(t, []string{"max"}, usernames(staff))
	assert.Equal(t, identity.RoleStaff, staff[0].Role)

	none, err := h.StaffByDepartment(ctx, "Kitchen")
	require.NoError(t, err)
	assert.NotNil(t, none)
	assert.Empty(t, none)

	_, err = h.StudentsByGrade(ctx, "  ")
	assert.ErrorIs(t, err, shared.ErrInvalidInput)
}

func TestScheduleQueries(t *testing.T) {
	sd := seed(t)
	ctx := context.Background()

	for _, e := range []schedule.Event{
		{ID: "EVT0001", Title: "Past fair", StartDate: "2024-03-01"},
		{ID: "EVT0002", Title: "Exams", StartDate: "2024-04-10", Visibility: []string{"student", "teacher"}},
		{ID: "EVT0003", Title: "Parents day", StartDate: "2024-04-02", Visibility: []string{"parent"}},
		{ID: "EVT0004", Title: "Cancelled trip", StartDate: "2024-04-01", IsCancelled: true},
		{ID: "EVT0005", Title: "Spring break", StartDate: "2024-03-31", Visibility: []string{"all"}},
	} {
		put(t, sd.store, document.Events, e.ID, e)
	}
	h := NewScheduleQueryHandler(sd.store, sd.clock)

	all, err := h.Events(ctx)
	require.NoError(t, err)
	var titles []string
	for _, e := range all {
		titles = append(titles, e.Title)
	}
	assert.Equal(t, []string{"Past fair", "Spring break", "Parents day", "Exams"}, titles)

	upcoming, err := h.Upcoming(ctx, identity.RoleStudent, 0)
	require.NoError(t, err)
	require.Len(t, upcoming, 2)
	assert.Equal(t, "Spring break", upcoming[0].Title)
	assert.Equal(t, "Exams", upcoming[1].Title)

	upcoming, err = h.Upcoming(ctx, identity.RoleParent, 1)
	require.NoError(t, err)
	require.Len(t, upcoming, 1)
	assert.Equal(t, "Spring break", upcoming[0].Title)

	cancelled, err := h.Event(ctx, "EVT0004")
	require.NoError(t, err)
	assert.True(t, cancelled.IsCancelled)

	_, err = h.Event(ctx, "EVT0404")
	assert.ErrorIs(t, err, shared.ErrNotFound)
}
