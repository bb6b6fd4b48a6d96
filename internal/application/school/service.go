// Package school wires the command and query handlers into one facade.
// It is the only entry point the CLI uses.
package school

import (
	"context"

	"github.com/alem-hub/school-records/internal/application/command"
	"github.com/alem-hub/school-records/internal/application/query"
	"github.com/alem-hub/school-records/internal/domain/attendance"
	"github.com/alem-hub/school-records/internal/domain/document"
	"github.com/alem-hub/school-records/internal/domain/grading"
	"github.com/alem-hub/school-records/internal/domain/identity"
	"github.com/alem-hub/school-records/internal/domain/schedule"
	"github.com/alem-hub/school-records/internal/domain/shared"
)

// Dependencies holds everything the service needs.
type Dependencies struct {
	Store     document.Store
	Publisher shared.EventPublisher
	Clock     command.Clock
	Policy    command.Policy

	// ReportWindowDays is the default report window; 0 means 30.
	ReportWindowDays int
}

// Service exposes every school operation.
type Service struct {
	register      *command.RegisterUserHandler
	setRole       *command.SetRoleHandler
	rejectPending *command.RejectPendingHandler
	addMember     *command.AddMemberHandler
	password      *command.ChangePasswordHandler
	activation    *command.SetActiveHandler
	profiles      *command.UpdateProfileHandler
	createCourse  *command.CreateCourseHandler
	teachers      *command.TeacherAssignmentHandler
	enrollment    *command.EnrollmentHandler
	linkParent    *command.LinkParentHandler
	attendance    *command.AttendanceHandler
	assignments   *command.AssignmentHandler
	recordGrade   *command.RecordGradeHandler
	calendar      *command.ScheduleHandler

	auth        *query.AuthenticateHandler
	users       *query.UserDirectoryHandler
	attendanceQ *query.AttendanceQueryHandler
	grades      *query.GradeQueryHandler
	roster      *query.RosterQueryHandler
	schedule    *query.ScheduleQueryHandler
}

// NewService builds every handler over the same store and publisher.
func NewService(deps Dependencies) *Service {
	st, clk, pub, pol := deps.Store, deps.Clock, deps.Publisher, deps.Policy
	return &Service{
		register:      command.NewRegisterUserHandler(st, clk, pol, pub),
		setRole:       command.NewSetRoleHandler(st, clk, pub),
		rejectPending: command.NewRejectPendingHandler(st, pub),
		addMember:     command.NewAddMemberHandler(st, clk, pub),
		password:      command.NewChangePasswordHandler(st, clk, pub),
		activation:    command.NewSetActiveHandler(st, clk, pub),
		profiles:      command.NewUpdateProfileHandler(st, clk, pub),
		createCourse:  command.NewCreateCourseHandler(st, clk, pub),
		teachers:      command.NewTeacherAssignmentHandler(st, clk, pub),
		enrollment:    command.NewEnrollmentHandler(st, clk, pub),
		linkParent:    command.NewLinkParentHandler(st, clk, pub),
		attendance:    command.NewAttendanceHandler(st, clk, pol, pub),
		assignments:   command.NewAssignmentHandler(st, clk, pub),
		recordGrade:   command.NewRecordGradeHandler(st, clk, pol, pub),
		calendar:      command.NewScheduleHandler(st, clk, pub),

		auth:        query.NewAuthenticateHandler(st),
		users:       query.NewUserDirectoryHandler(st),
		attendanceQ: query.NewAttendanceQueryHandler(st, clk, deps.ReportWindowDays),
		grades:      query.NewGradeQueryHandler(st),
		roster:      query.NewRosterQueryHandler(st),
		schedule:    query.NewScheduleQueryHandler(st, clk),
	}
}

// ═══════════════════════════════════════════════════════════════════════════
// Identity
// ═══════════════════════════════════════════════════════════════════════════

// Register creates an account; the first one becomes admin.
func (s *Service) Register(ctx context.Context, username, password string) (*command.RegisterUserResult, error) {
	return s.register.Handle(ctx, command.RegisterUserCommand{Username: username, Password: password})
}

// Authenticate checks credentials.
func (s *Service) Authenticate(ctx context.Context, username, password string) (*identity.User, error) {
	return s.auth.Handle(ctx, query.AuthenticateQuery{Username: username, Password: password})
}

// SetRole changes a user's role.
func (s *Service) SetRole(ctx context.Context, actor, username, role string, profile command.ProfileAttributes) (*command.SetRoleResult, error) {
	return s.setRole.Handle(ctx, command.SetRoleCommand{Actor: actor, Username: username, Role: role, Profile: profile})
}

// ApprovePending is SetRole applied to a pending registration.
func (s *Service) ApprovePending(ctx context.Context, actor, username, role string, profile command.ProfileAttributes) (*command.SetRoleResult, error) {
	return s.SetRole(ctx, actor, username, role, profile)
}

// RejectPending deletes a pending registration.
func (s *Service) RejectPending(ctx context.Context, actor, username string) (*command.RejectPendingResult, error) {
	return s.rejectPending.Handle(ctx, command.RejectPendingCommand{Actor: actor, Username: username})
}

// AddMember creates an account with a role and profile.
func (s *Service) AddMember(ctx context.Context, cmd command.AddMemberCommand) (*command.AddMemberResult, error) {
	return s.addMember.Handle(ctx, cmd)
}

// ChangePassword resets a password.
func (s *Service) ChangePassword(ctx context.Context, actor, username, newPassword string) error {
	_, err := s.password.Handle(ctx, command.ChangePasswordCommand{Actor: actor, Username: username, NewPassword: newPassword})
	return err
}

// SetActive activates or deactivates an account.
func (s *Service) SetActive(ctx context.Context, actor, username string, active bool) (*command.SetActiveResult, error) {
	return s.activation.Handle(ctx, command.SetActiveCommand{Actor: actor, Username: username, Active: active})
}

// UpdateProfile edits contact fields and role profile attributes.
func (s *Service) UpdateProfile(ctx context.Context, cmd command.UpdateProfileCommand) (*command.UpdateProfileResult, error) {
	return s.profiles.Handle(ctx, cmd)
}

// PendingRegistrations lists pending accounts, oldest first.
func (s *Service) PendingRegistrations(ctx context.Context) ([]identity.User, error) {
	return s.users.PendingRegistrations(ctx)
}

// CountByRole counts users per role.
func (s *Service) CountByRole(ctx context.Context) (map[identity.Role]int, error) {
	return s.users.CountByRole(ctx)
}

// ═══════════════════════════════════════════════════════════════════════════
// Roster
// ═══════════════════════════════════════════════════════════════════════════

// CreateCourse adds a course.
func (s *Service) CreateCourse(ctx context.Context, actor, name, code, description string) (*command.CreateCourseResult, error) {
	return s.createCourse.Handle(ctx, command.CreateCourseCommand{Actor: actor, Name: name, Code: code, Description: description})
}

// AssignTeacher makes teacherID the course's primary teacher.
func (s *Service) AssignTeacher(ctx context.Context, teacherID, courseID, actor string) (*command.TeacherAssignmentResult, error) {
	return s.teachers.Assign(ctx, command.TeacherAssignmentCommand{TeacherID: teacherID, CourseID: courseID, Actor: actor})
}

// UnassignTeacher removes teacherID from the course.
func (s *Service) UnassignTeacher(ctx context.Context, teacherID, courseID, actor string) (*command.TeacherAssignmentResult, error) {
	return s.teachers.Unassign(ctx, command.TeacherAssignmentCommand{TeacherID: teacherID, CourseID: courseID, Actor: actor})
}

// Enroll links a student and a course.
func (s *Service) Enroll(ctx context.Context, studentID, courseID, actor string) (*command.EnrollmentResult, error) {
	return s.enrollment.Enroll(ctx, command.EnrollmentCommand{StudentID: studentID, CourseID: courseID, Actor: actor})
}

// Unenroll removes a student/course link.
func (s *Service) Unenroll(ctx context.Context, studentID, courseID, actor string) (*command.EnrollmentResult, error) {
	return s.enrollment.Unenroll(ctx, command.EnrollmentCommand{StudentID: studentID, CourseID: courseID, Actor: actor})
}

// LinkParent replaces a parent's children.
func (s *Service) LinkParent(ctx context.Context, parentID string, studentIDs []string, actor string) (*command.LinkParentResult, error) {
	return s.linkParent.Handle(ctx, command.LinkParentCommand{ParentID: parentID, StudentIDs: studentIDs, Actor: actor})
}

// Courses lists every course.
func (s *Service) Courses(ctx context.Context) ([]query.CourseDTO, error) {
	return s.roster.Courses(ctx)
}

// StudentCourses lists a student's courses.
func (s *Service) StudentCourses(ctx context.Context, studentID string) ([]query.CourseDTO, error) {
	return s.roster.StudentCourses(ctx, studentID)
}

// CourseRoster lists a course's students.
func (s *Service) CourseRoster(ctx context.Context, courseID string) (*query.CourseRosterDTO, error) {
	return s.roster.CourseRoster(ctx, courseID)
}

// ParentChildren lists a parent's children.
func (s *Service) ParentChildren(ctx context.Context, parentID string) ([]query.MemberDTO, error) {
	return s.roster.ParentChildren(ctx, parentID)
}

// StudentsByGrade lists the students of a grade level.
func (s *Service) StudentsByGrade(ctx context.Context, grade string) ([]query.MemberDTO, error) {
	return s.roster.StudentsByGrade(ctx, grade)
}

// TeachersByDepartment lists the teachers of a department.
func (s *Service) TeachersByDepartment(ctx context.Context, department string) ([]query.MemberDTO, error) {
	return s.roster.TeachersByDepartment(ctx, department)
}

// TeachersBySubject lists the teachers of a subject.
func (s *Service) TeachersBySubject(ctx context.Context, subject string) ([]query.MemberDTO, error) {
	return s.roster.TeachersBySubject(ctx, subject)
}

// StaffByDepartment lists the staff of a department.
func (s *Service) StaffByDepartment(ctx context.Context, department string) ([]query.MemberDTO, error) {
	return s.roster.StaffByDepartment(ctx, department)
}

// StaffByPosition lists the staff holding a position.
func (s *Service) StaffByPosition(ctx context.Context, position string) ([]query.MemberDTO, error) {
	return s.roster.StaffByPosition(ctx, position)
}

// ═══════════════════════════════════════════════════════════════════════════
// Attendance
// ═══════════════════════════════════════════════════════════════════════════

// MarkAttendance records a new session.
func (s *Service) MarkAttendance(ctx context.Context, teacherID, courseID, date string, records []attendance.Record) (*command.AttendanceResult, error) {
	return s.attendance.Mark(ctx, command.AttendanceCommand{TeacherID: teacherID, CourseID: courseID, Date: date, Records: records})
}

// UpdateAttendance replaces an existing session.
func (s *Service) UpdateAttendance(ctx context.Context, teacherID, courseID, date string, records []attendance.Record) (*command.AttendanceResult, error) {
	return s.attendance.Update(ctx, command.AttendanceCommand{TeacherID: teacherID, CourseID: courseID, Date: date, Records: records})
}

// AttendanceStats returns a student's counts and percentages.
func (s *Service) AttendanceStats(ctx context.Context, studentID, courseID string) (attendance.Stats, error) {
	return s.attendanceQ.Stats(ctx, query.StatsQuery{StudentID: studentID, CourseID: courseID})
}

// AttendanceReport returns report rows for a window.
func (s *Service) AttendanceReport(ctx context.Context, q query.ReportQuery) (*query.ReportDTO, error) {
	return s.attendanceQ.Report(ctx, q)
}

// AttendanceSession returns one session.
func (s *Service) AttendanceSession(ctx context.Context, courseID, date string) (*attendance.Session, error) {
	return s.attendanceQ.Session(ctx, courseID, date)
}

// StudentHistory returns a student's attendance timeline.
func (s *Service) StudentHistory(ctx context.Context, studentID, start, end string) ([]attendance.HistoryEntry, error) {
	return s.attendanceQ.History(ctx, query.HistoryQuery{StudentID: studentID, StartDate: start, EndDate: end})
}

// ═══════════════════════════════════════════════════════════════════════════
// Grading
// ═══════════════════════════════════════════════════════════════════════════

// CreateAssignment adds an assignment to a course.
func (s *Service) CreateAssignment(ctx context.Context, cmd command.CreateAssignmentCommand) (*command.AssignmentResult, error) {
	return s.assignments.Create(ctx, cmd)
}

// CloseAssignment closes an assignment.
func (s *Service) CloseAssignment(ctx context.Context, teacherID, assignmentID string) (*command.AssignmentResult, error) {
	return s.assignments.Close(ctx, command.CloseAssignmentCommand{TeacherID: teacherID, AssignmentID: assignmentID})
}

// Assignments lists assignments, optionally of one course.
func (s *Service) Assignments(ctx context.Context, courseID string) ([]grading.Assignment, error) {
	return s.grades.Assignments(ctx, courseID)
}

// RecordGrade stores a grade.
func (s *Service) RecordGrade(ctx context.Context, cmd command.RecordGradeCommand) (*command.RecordGradeResult, error) {
	return s.recordGrade.Handle(ctx, cmd)
}

// CourseAverage returns a student's average in one course.
func (s *Service) CourseAverage(ctx context.Context, studentID, courseID string) (grading.CourseAverage, error) {
	return s.grades.CourseAverage(ctx, studentID, courseID)
}

// OverallAverage returns a student's mean over graded courses.
func (s *Service) OverallAverage(ctx context.Context, studentID string, courseIDs []string) (grading.OverallAverage, error) {
	return s.grades.OverallAverage(ctx, query.OverallAverageQuery{StudentID: studentID, CourseIDs: courseIDs})
}

// StudentGrades lists a student's grades.
func (s *Service) StudentGrades(ctx context.Context, studentID string) ([]grading.Grade, error) {
	return s.grades.StudentGrades(ctx, studentID)
}

// ═══════════════════════════════════════════════════════════════════════════
// Schedule
// ═══════════════════════════════════════════════════════════════════════════

// CreateEvent adds a calendar event.
func (s *Service) CreateEvent(ctx context.Context, actor string, details command.EventDetails) (*command.ScheduleResult, error) {
	return s.calendar.Create(ctx, command.ScheduleEventCommand{Actor: actor, Details: details})
}

// EditEvent changes the non-blank fields of an event.
func (s *Service) EditEvent(ctx context.Context, actor, eventID string, details command.EventDetails) (*command.ScheduleResult, error) {
	return s.calendar.Edit(ctx, command.EditEventCommand{Actor: actor, EventID: eventID, Details: details})
}

// CancelEvent cancels an event.
func (s *Service) CancelEvent(ctx context.Context, actor, eventID string) (*command.ScheduleResult, error) {
	return s.calendar.Cancel(ctx, command.CancelEventCommand{Actor: actor, EventID: eventID})
}

// Events lists active events by start.
func (s *Service) Events(ctx context.Context) ([]schedule.Event, error) {
	return s.schedule.Events(ctx)
}

// Event returns one event, cancelled or not.
func (s *Service) Event(ctx context.Context, id string) (*schedule.Event, error) {
	return s.schedule.Event(ctx, id)
}

// UpcomingEvents lists the next events visible to role.
func (s *Service) UpcomingEvents(ctx context.Context, role identity.Role, limit int) ([]schedule.Event, error) {
	return s.schedule.Upcoming(ctx, role, limit)
}
