package school

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/alem-hub/school-records/config"
	"github.com/alem-hub/school-records/internal/application/command"
	"github.com/alem-hub/school-records/internal/application/query"
	"github.com/alem-hub/school-records/internal/domain/attendance"
	"github.com/alem-hub/school-records/internal/domain/identity"
	"github.com/alem-hub/school-records/internal/domain/shared"
	"github.com/alem-hub/school-records/internal/infrastructure/messaging"
	"github.com/alem-hub/school-records/internal/infrastructure/persistence/memory"
	"github.com/alem-hub/school-records/pkg/timeutil"
)

func TestService_SchoolDay(t *testing.T) {
	identity.HashCost = bcrypt.MinCost
	ctx := context.Background()

	bus := messaging.NewInMemoryEventBus(messaging.DefaultInMemoryEventBusConfig())
	defer bus.Close()
	var seen []shared.EventType
	require.NoError(t, bus.SubscribeAll(func(e shared.Event) error {
		seen = append(seen, e.EventType())
		return nil
	}))

	svc := NewService(Dependencies{
		Store:            memory.NewStore(),
		Publisher:        bus,
		Clock:            timeutil.FixedClock(time.Date(2024, 9, 2, 8, 0, 0, 0, time.UTC)),
		Policy:           config.NewFeatureFlags(),
		ReportWindowDays: 7,
	})

	reg, err := svc.Register(ctx, "principal", "secret1")
	require.NoError(t, err)
	require.Equal(t, identity.RoleAdmin, reg.RoleAssigned)

	_, err = svc.Register(ctx, "newkid", "secret1")
	require.NoError(t, err)
	pending, err := svc.PendingRegistrations(ctx)
	require.NoError(t, err)
	require.Len(t, pending, 1)

	approved, err := svc.ApprovePending(ctx, "principal", "newkid", "student", command.ProfileAttributes{GradeLevel: "10"})
	require.NoError(t, err)
	studentID := approved.User.ID

	teacher, err := svc.AddMember(ctx, command.AddMemberCommand{Actor: "principal", Username: "mr.lee", Password: "secret1", Role: "teacher", FirstName: "Tom", LastName: "Lee"})
	require.NoError(t, err)
	teacherID := teacher.User.ID

	course, err := svc.CreateCourse(ctx, "principal", "Biology", "bio", "")
	require.NoError(t, err)
	courseID := course.Course.ID

	_, err = svc.AssignTeacher(ctx, teacherID, courseID, "principal")
	require.NoError(t, err)
	_, err = svc.Enroll(ctx, studentID, courseID, "principal")
	require.NoError(t, err)

	_, err = svc.MarkAttendance(ctx, teacherID, courseID, "", []attendance.Record{{StudentID: studentID, Status: attendance.StatusPresent}})
	require.NoError(t, err)

	asn, err := svc.CreateAssignment(ctx, command.CreateAssignmentCommand{TeacherID: teacherID, CourseID: courseID, Name: "Cells", MaxPoints: 20})
	require.NoError(t, err)
	g, err := svc.RecordGrade(ctx, command.RecordGradeCommand{TeacherID: teacherID, StudentID: studentID, CourseID: courseID, AssignmentID: asn.Assignment.ID, Points: 19, MaxPoints: 20})
	require.NoError(t, err)
	assert.Equal(t, "A", g.Grade.LetterGrade)

	stats, err := svc.AttendanceStats(ctx, studentID, "")
	require.NoError(t, err)
	assert.Equal(t, 1, stats.PresentDays)

	report, err := svc.AttendanceReport(ctx, query.ReportQuery{})
	require.NoError(t, err)
	assert.Equal(t, shared.Date("2024-08-26"), report.Window.From)
	require.Len(t, report.Rows, 1)
	assert.Equal(t, "Biology", report.Rows[0].CourseName)
	assert.Equal(t, attendance.UnknownName, report.Rows[0].StudentName, "self-registered users have no name")

	overall, err := svc.OverallAverage(ctx, studentID, nil)
	require.NoError(t, err)
	assert.InDelta(t, 95.0, overall.AveragePercentage.Float64(), 1e-9)

	counts, err := svc.CountByRole(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[identity.Role]int{
		identity.RoleAdmin: 1, identity.RoleTeacher: 1, identity.RoleStudent: 1,
		identity.RoleParent: 0, identity.RoleStaff: 0, identity.RolePending: 0,
	}, counts)

	_, err = svc.Authenticate(ctx, "newkid", "secret1")
	require.NoError(t, err)
	_, err = svc.SetActive(ctx, "principal", "newkid", false)
	require.NoError(t, err)
	_, err = svc.Authenticate(ctx, "newkid", "secret1")
	assert.ErrorIs(t, err, shared.ErrUnauthorized)

	assert.Equal(t, []shared.EventType{
		shared.EventUserRegistered,
		shared.EventUserRegistered,
		shared.EventRoleChanged,
		shared.EventMemberAdded,
		shared.EventCourseCreated,
		shared.EventTeacherAssigned,
		shared.EventStudentEnrolled,
		shared.EventAttendanceMarked,
		shared.EventAssignmentCreated,
		shared.EventGradeRecorded,
		shared.EventUserActivation,
	}, seen)
}

func TestService_ProfilesAndCalendar(t *testing.T) {
	identity.HashCost = bcrypt.MinCost
	ctx := context.Background()
	svc := NewService(Dependencies{
		Store:     memory.NewStore(),
		Publisher: &messaging.Recorder{},
		Clock:     timeutil.FixedClock(time.Date(2024, 9, 2, 8, 0, 0, 0, time.UTC)),
		Policy:    config.NewFeatureFlags(),
	})

	_, err := svc.Register(ctx, "principal", "secret1")
	require.NoError(t, err)
	_, err = svc.AddMember(ctx, command.AddMemberCommand{Actor: "principal", Username: "ms.kim", Password: "secret1", Role: "teacher", FirstName: "Ann", LastName: "Kim"})
	require.NoError(t, err)

	res, err := svc.UpdateProfile(ctx, command.UpdateProfileCommand{Actor: "principal", Username: "ms.kim", Profile: command.ProfileAttributes{Department: "Languages", Subjects: []string{"English"}}})
	require.NoError(t, err)
	assert.Equal(t, []string{"department", "subjects"}, res.Changed)

	found, err := svc.TeachersBySubject(ctx, "english")
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, "Ann Kim", found[0].FullName)

	_, err = svc.CreateEvent(ctx, "principal", command.EventDetails{Title: "First bell", StartDate: "2024-09-02", Visibility: []string{"all"}})
	require.NoError(t, err)
	_, err = svc.CreateEvent(ctx, "principal", command.EventDetails{Title: "Staff meeting", StartDate: "2024-09-03", Visibility: []string{"teacher"}})
	require.NoError(t, err)

	upcoming, err := svc.UpcomingEvents(ctx, identity.RoleStudent, 0)
	require.NoError(t, err)
	require.Len(t, upcoming, 1)
	assert.Equal(t, "First bell", upcoming[0].Title)

	_, err = svc.CancelEvent(ctx, "principal", upcoming[0].ID)
	require.NoError(t, err)
	events, err := svc.Events(ctx)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "Staff meeting", events[0].Title)
}
