package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"golang.org/x/term"

	"github.com/alem-hub/school-records/internal/application/command"
	"github.com/alem-hub/school-records/internal/application/query"
	"github.com/alem-hub/school-records/internal/application/school"
	"github.com/alem-hub/school-records/internal/domain/attendance"
	"github.com/alem-hub/school-records/internal/domain/identity"
	"github.com/alem-hub/school-records/internal/domain/schedule"
	"github.com/alem-hub/school-records/internal/domain/shared"
	"github.com/alem-hub/school-records/internal/infrastructure/persistence/postgres"
)

var (
	readPasswordFunc = term.ReadPassword // mockable

	errHelp = errors.New("help provided")

	errLoginRequired = shared.NewDomainError("identity", "Authenticate", shared.ErrUnauthorized, "this command needs -as USERNAME")
	errNoMigrations  = shared.NewDomainError("storage", "Migrate", shared.ErrInvalidState, "only the postgres backend keeps a schema")
)

// migrator is the slice of *postgres.Migrator the CLI drives.
type migrator interface {
	Migrate(ctx context.Context) ([]int, error)
	Rollback(ctx context.Context) error
	Status(ctx context.Context) ([]postgres.Migration, error)
}

type commandLine struct {
	svc      *school.Service
	migrator migrator // nil unless the backend is postgres
	out      io.Writer
	errOut   io.Writer

	// set from global flags on every run
	as       string
	password string
	user     *identity.User
}

func (cli *commandLine) printUsage() {
	fmt.Fprintln(cli.errOut, "Usage: schoolctl [-as USERNAME] [-password PASSWORD] COMMAND [flags]")
	fmt.Fprintln(cli.errOut, "")
	fmt.Fprintln(cli.errOut, "Accounts:")
	fmt.Fprintln(cli.errOut, "  register          -username U                    create an account (first one is admin)")
	fmt.Fprintln(cli.errOut, "  login                                            check the -as credentials")
	fmt.Fprintln(cli.errOut, "  pending                                          list registrations awaiting approval")
	fmt.Fprintln(cli.errOut, "  approve           -username U -role R [profile]  approve a pending registration")
	fmt.Fprintln(cli.errOut, "  reject            -username U                    delete a pending registration")
	fmt.Fprintln(cli.errOut, "  set-role          -username U -role R [profile]  change a user's role")
	fmt.Fprintln(cli.errOut, "  add-member        -username U -role R [...]      create an account directly")
	fmt.Fprintln(cli.errOut, "  passwd            [-username U]                  change a password")
	fmt.Fprintln(cli.errOut, "  deactivate        -username U                    block sign-in")
	fmt.Fprintln(cli.errOut, "  activate          -username U                    restore sign-in")
	fmt.Fprintln(cli.errOut, "  update-user       -username U [fields]           edit contact and profile fields")
	fmt.Fprintln(cli.errOut, "  roles                                            count users per role")
	fmt.Fprintln(cli.errOut, "Roster:")
	fmt.Fprintln(cli.errOut, "  add-course        -name N -code C")
	fmt.Fprintln(cli.errOut, "  courses           [-student ID]")
	fmt.Fprintln(cli.errOut, "  assign-teacher    -teacher ID -course ID")
	fmt.Fprintln(cli.errOut, "  unassign-teacher  -teacher ID -course ID")
	fmt.Fprintln(cli.errOut, "  enroll            -student ID -course ID")
	fmt.Fprintln(cli.errOut, "  unenroll          -student ID -course ID")
	fmt.Fprintln(cli.errOut, "  link-parent       -parent ID -students ID,ID")
	fmt.Fprintln(cli.errOut, "  students          -grade G")
	fmt.Fprintln(cli.errOut, "  teachers          -department D | -subject S")
	fmt.Fprintln(cli.errOut, "  staff             -department D | -position P")
	fmt.Fprintln(cli.errOut, "Attendance:")
	fmt.Fprintln(cli.errOut, "  mark              -course ID [-date D] -records ID=status,...")
	fmt.Fprintln(cli.errOut, "  update-attendance -course ID [-date D] -records ID=status,...")
	fmt.Fprintln(cli.errOut, "  stats             -student ID [-course ID]")
	fmt.Fprintln(cli.errOut, "  report            [-course ID] [-student ID] [-from D] [-to D]")
	fmt.Fprintln(cli.errOut, "  history           -student ID [-from D] [-to D]")
	fmt.Fprintln(cli.errOut, "Grading:")
	fmt.Fprintln(cli.errOut, "  add-assignment    -course ID -name N -max P [-type T] [-due D]")
	fmt.Fprintln(cli.errOut, "  close-assignment  -assignment ID")
	fmt.Fprintln(cli.errOut, "  grade             -student ID -course ID -assignment ID -points P [-max P]")
	fmt.Fprintln(cli.errOut, "  course-average    -student ID -course ID")
	fmt.Fprintln(cli.errOut, "  overall-average   -student ID [-courses ID,ID]")
	fmt.Fprintln(cli.errOut, "Schedule:")
	fmt.Fprintln(cli.errOut, "  add-event         -title T -date D [-time HH:MM] [-type K] [-visible R,R] [...]")
	fmt.Fprintln(cli.errOut, "  edit-event        -id ID [event flags]")
	fmt.Fprintln(cli.errOut, "  cancel-event      -id ID")
	fmt.Fprintln(cli.errOut, "  events            [-upcoming] [-limit N]")
	fmt.Fprintln(cli.errOut, "Storage:")
	fmt.Fprintln(cli.errOut, "  migrate           up|down|status")
}

func (cli *commandLine) run(ctx context.Context, args []string) error {
	if len(args) < 2 {
		cli.printUsage()
		return errHelp
	}

	global := flag.NewFlagSet(args[0], flag.ContinueOnError)
	global.SetOutput(cli.errOut)
	global.Usage = cli.printUsage
	as := global.String("as", "", "Username to act as. The password is prompted unless -password is given.")
	password := global.String("password", "", "Password for -as (or for the new account with register).")
	if err := global.Parse(args[1:]); err != nil {
		return errHelp
	}
	cli.as, cli.password, cli.user = *as, *password, nil

	rest := global.Args()
	if len(rest) == 0 {
		cli.printUsage()
		return errHelp
	}
	name, sub := rest[0], rest[1:]

	switch name {
	case "register":
		return cli.register(ctx, sub)
	case "login":
		return cli.login(ctx, sub)
	case "pending":
		return cli.pending(ctx, sub)
	case "approve":
		return cli.setRole(ctx, name, sub, cli.svc.ApprovePending)
	case "reject":
		return cli.reject(ctx, sub)
	case "set-role":
		return cli.setRole(ctx, name, sub, cli.svc.SetRole)
	case "add-member":
		return cli.addMember(ctx, sub)
	case "passwd":
		return cli.passwd(ctx, sub)
	case "deactivate":
		return cli.setActive(ctx, name, sub, false)
	case "activate":
		return cli.setActive(ctx, name, sub, true)
	case "update-user":
		return cli.updateUser(ctx, sub)
	case "roles":
		return cli.roles(ctx, sub)
	case "add-course":
		return cli.addCourse(ctx, sub)
	case "courses":
		return cli.courses(ctx, sub)
	case "assign-teacher":
		return cli.teacherAssignment(ctx, name, sub, cli.svc.AssignTeacher)
	case "unassign-teacher":
		return cli.teacherAssignment(ctx, name, sub, cli.svc.UnassignTeacher)
	case "enroll":
		return cli.enrollment(ctx, name, sub, cli.svc.Enroll)
	case "unenroll":
		return cli.enrollment(ctx, name, sub, cli.svc.Unenroll)
	case "link-parent":
		return cli.linkParent(ctx, sub)
	case "students", "teachers", "staff":
		return cli.directory(ctx, name, sub)
	case "mark":
		return cli.attendance(ctx, name, sub, cli.svc.MarkAttendance)
	case "update-attendance":
		return cli.attendance(ctx, name, sub, cli.svc.UpdateAttendance)
	case "stats":
		return cli.stats(ctx, sub)
	case "report":
		return cli.report(ctx, sub)
	case "history":
		return cli.history(ctx, sub)
	case "add-assignment":
		return cli.addAssignment(ctx, sub)
	case "close-assignment":
		return cli.closeAssignment(ctx, sub)
	case "grade":
		return cli.grade(ctx, sub)
	case "course-average":
		return cli.courseAverage(ctx, sub)
	case "overall-average":
		return cli.overallAverage(ctx, sub)
	case "add-event":
		return cli.addEvent(ctx, sub)
	case "edit-event":
		return cli.editEvent(ctx, sub)
	case "cancel-event":
		return cli.cancelEvent(ctx, sub)
	case "events":
		return cli.events(ctx, sub)
	case "migrate":
		return cli.migrate(ctx, sub)
	default:
		cli.printUsage()
		return errHelp
	}
}

// ══════════════════════════════════════════════════════════════════════════════
// HELPERS
// ══════════════════════════════════════════════════════════════════════════════

func (cli *commandLine) flagSet(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(cli.errOut)
	return fs
}

// parse returns errHelp when flags are malformed or a required one is empty.
func parse(fs *flag.FlagSet, args []string, required ...*string) error {
	if err := fs.Parse(args); err != nil {
		return errHelp
	}
	for _, r := range required {
		if strings.TrimSpace(*r) == "" {
			fs.Usage()
			return errHelp
		}
	}
	return nil
}

// prompt reads a line without echo.
func (cli *commandLine) prompt(label string) (string, error) {
	fmt.Fprint(cli.errOut, label)
	pwd, err := readPasswordFunc(int(os.Stdin.Fd()))
	fmt.Fprintln(cli.errOut)
	if err != nil {
		return "", err
	}
	return string(pwd), nil
}

// actor authenticates the -as user once per run.
func (cli *commandLine) actor(ctx context.Context) (*identity.User, error) {
	if cli.user != nil {
		return cli.user, nil
	}
	if cli.as == "" {
		return nil, errLoginRequired
	}
	pwd := cli.password
	if pwd == "" {
		var err error
		if pwd, err = cli.prompt("Password:"); err != nil {
			return nil, err
		}
	}
	u, err := cli.svc.Authenticate(ctx, cli.as, pwd)
	if err != nil {
		return nil, err
	}
	cli.user = u
	return u, nil
}

// admin authenticates the -as user and requires the admin role.
func (cli *commandLine) admin(ctx context.Context) (*identity.User, error) {
	u, err := cli.actor(ctx)
	if err != nil {
		return nil, err
	}
	if err := identity.RequireAdmin(u); err != nil {
		return nil, err
	}
	return u, nil
}

// ownID defaults an empty student flag to the caller's own profile.
func ownID(flagValue string, u *identity.User) string {
	if flagValue == "" && u.Role == identity.RoleStudent {
		return u.ID
	}
	return flagValue
}

func splitList(s string) []string {
	out := make([]string, 0)
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// parseRecords turns "id=status,id=status" into attendance records.
func parseRecords(s string) ([]attendance.Record, error) {
	parts := splitList(s)
	records := make([]attendance.Record, 0, len(parts))
	for _, part := range parts {
		id, status, ok := strings.Cut(part, "=")
		if !ok || strings.TrimSpace(id) == "" {
			return nil, shared.Errorf("attendance", "ParseRecords", shared.ErrInvalidInput, "record %q must look like STUDENT_ID=status", part)
		}
		st, err := attendance.ParseStatus(status)
		if err != nil {
			return nil, err
		}
		records = append(records, attendance.Record{StudentID: strings.TrimSpace(id), Status: st})
	}
	return records, nil
}

type profileFlags struct {
	gradeLevel, dateOfBirth, department, subjects, hireDate, position *string
}

func addProfileFlags(fs *flag.FlagSet) profileFlags {
	return profileFlags{
		gradeLevel:  fs.String("grade-level", "", "Student grade level."),
		dateOfBirth: fs.String("dob", "", "Student date of birth (YYYY-MM-DD)."),
		department:  fs.String("department", "", "Teacher or staff department."),
		subjects:    fs.String("subjects", "", "Teacher subjects, comma separated."),
		hireDate:    fs.String("hire-date", "", "Teacher hire date (YYYY-MM-DD)."),
		position:    fs.String("position", "", "Staff position."),
	}
}

func (p profileFlags) attributes() command.ProfileAttributes {
	return command.ProfileAttributes{
		GradeLevel:  *p.gradeLevel,
		DateOfBirth: *p.dateOfBirth,
		Department:  *p.department,
		Subjects:    splitList(*p.subjects),
		HireDate:    *p.hireDate,
		Position:    *p.position,
	}
}

// ══════════════════════════════════════════════════════════════════════════════
// ACCOUNTS
// ══════════════════════════════════════════════════════════════════════════════

func (cli *commandLine) register(ctx context.Context, args []string) error {
	fs := cli.flagSet("register")
	username := fs.String("username", "", "Login for the new account. The password is prompted next.")
	if err := parse(fs, args, username); err != nil {
		return err
	}
	pwd := cli.password
	if pwd == "" {
		var err error
		if pwd, err = cli.prompt("Enter password:"); err != nil {
			return err
		}
	}
	res, err := cli.svc.Register(ctx, *username, pwd)
	if err != nil {
		return err
	}
	fmt.Fprintf(cli.out, "registered %s as %s\n", res.User.Username, res.RoleAssigned)
	return nil
}

func (cli *commandLine) login(ctx context.Context, args []string) error {
	fs := cli.flagSet("login")
	if err := parse(fs, args); err != nil {
		return err
	}
	u, err := cli.actor(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(cli.out, "%s\t%s\t%s\n", u.Username, u.Role, u.ID)
	return nil
}

func (cli *commandLine) pending(ctx context.Context, args []string) error {
	fs := cli.flagSet("pending")
	if err := parse(fs, args); err != nil {
		return err
	}
	if _, err := cli.admin(ctx); err != nil {
		return err
	}
	users, err := cli.svc.PendingRegistrations(ctx)
	if err != nil {
		return err
	}
	for _, u := range users {
		fmt.Fprintf(cli.out, "%s\t%s\n", u.Username, u.CreatedAt.Format("2006-01-02 15:04"))
	}
	return nil
}

type setRoleFunc func(ctx context.Context, actor, username, role string, profile command.ProfileAttributes) (*command.SetRoleResult, error)

func (cli *commandLine) setRole(ctx context.Context, name string, args []string, apply setRoleFunc) error {
	fs := cli.flagSet(name)
	username := fs.String("username", "", "The user to change.")
	role := fs.String("role", "", "admin, teacher, student, parent or staff.")
	profile := addProfileFlags(fs)
	if err := parse(fs, args, username, role); err != nil {
		return err
	}
	actor, err := cli.actor(ctx)
	if err != nil {
		return err
	}
	res, err := apply(ctx, actor.Username, *username, *role, profile.attributes())
	if err != nil {
		return err
	}
	fmt.Fprintf(cli.out, "%s: %s -> %s\n", res.User.Username, res.OldRole, res.User.Role)
	if res.ProfileCreated {
		fmt.Fprintf(cli.out, "profile %s\n", res.User.ID)
	}
	return nil
}

func (cli *commandLine) reject(ctx context.Context, args []string) error {
	fs := cli.flagSet("reject")
	username := fs.String("username", "", "The pending registration to delete.")
	if err := parse(fs, args, username); err != nil {
		return err
	}
	actor, err := cli.actor(ctx)
	if err != nil {
		return err
	}
	res, err := cli.svc.RejectPending(ctx, actor.Username, *username)
	if err != nil {
		return err
	}
	fmt.Fprintf(cli.out, "rejected %s\n", res.Rejected.Username)
	return nil
}

func (cli *commandLine) addMember(ctx context.Context, args []string) error {
	fs := cli.flagSet("add-member")
	username := fs.String("username", "", "Login for the new member.")
	role := fs.String("role", "", "admin, teacher, student, parent or staff.")
	initial := fs.String("initial-password", "", "Initial password. Prompted when empty.")
	first := fs.String("first-name", "", "First name.")
	last := fs.String("last-name", "", "Last name.")
	email := fs.String("email", "", "Email address.")
	phone := fs.String("phone", "", "Phone number.")
	profile := addProfileFlags(fs)
	if err := parse(fs, args, username, role); err != nil {
		return err
	}
	actor, err := cli.actor(ctx)
	if err != nil {
		return err
	}
	pwd := *initial
	if pwd == "" {
		if pwd, err = cli.prompt("Member password:"); err != nil {
			return err
		}
	}
	res, err := cli.svc.AddMember(ctx, command.AddMemberCommand{
		Actor:     actor.Username,
		Username:  *username,
		Password:  pwd,
		Role:      *role,
		FirstName: *first,
		LastName:  *last,
		Email:     *email,
		Phone:     *phone,
		Profile:   profile.attributes(),
	})
	if err != nil {
		return err
	}
	fmt.Fprintf(cli.out, "added %s as %s (id %s)\n", res.User.Username, res.User.Role, res.User.ID)
	return nil
}

func (cli *commandLine) passwd(ctx context.Context, args []string) error {
	fs := cli.flagSet("passwd")
	username := fs.String("username", "", "Whose password to change. Defaults to -as.")
	newPwd := fs.String("new", "", "The new password. Prompted when empty.")
	if err := parse(fs, args); err != nil {
		return err
	}
	actor, err := cli.actor(ctx)
	if err != nil {
		return err
	}
	target := *username
	if target == "" {
		target = actor.Username
	}
	pwd := *newPwd
	if pwd == "" {
		if pwd, err = cli.prompt("New password:"); err != nil {
			return err
		}
	}
	if err := cli.svc.ChangePassword(ctx, actor.Username, target, pwd); err != nil {
		return err
	}
	fmt.Fprintf(cli.out, "password changed for %s\n", target)
	return nil
}

func (cli *commandLine) setActive(ctx context.Context, name string, args []string, active bool) error {
	fs := cli.flagSet(name)
	username := fs.String("username", "", "The account to change.")
	if err := parse(fs, args, username); err != nil {
		return err
	}
	actor, err := cli.actor(ctx)
	if err != nil {
		return err
	}
	res, err := cli.svc.SetActive(ctx, actor.Username, *username, active)
	if err != nil {
		return err
	}
	state := "inactive"
	if res.User.IsActive {
		state = "active"
	}
	if !res.Changed {
		fmt.Fprintf(cli.out, "%s already %s\n", res.User.Username, state)
		return nil
	}
	fmt.Fprintf(cli.out, "%s is now %s\n", res.User.Username, state)
	return nil
}

func (cli *commandLine) updateUser(ctx context.Context, args []string) error {
	fs := cli.flagSet("update-user")
	username := fs.String("username", "", "The account to edit.")
	first := fs.String("first-name", "", "First name.")
	last := fs.String("last-name", "", "Last name.")
	email := fs.String("email", "", "Email address.")
	phone := fs.String("phone", "", "Phone number.")
	profile := addProfileFlags(fs)
	if err := parse(fs, args, username); err != nil {
		return err
	}
	actor, err := cli.admin(ctx)
	if err != nil {
		return err
	}
	res, err := cli.svc.UpdateProfile(ctx, command.UpdateProfileCommand{
		Actor:     actor.Username,
		Username:  *username,
		FirstName: *first,
		LastName:  *last,
		Email:     *email,
		Phone:     *phone,
		Profile:   profile.attributes(),
	})
	if err != nil {
		return err
	}
	if len(res.Changed) == 0 {
		fmt.Fprintf(cli.out, "%s unchanged\n", res.User.Username)
		return nil
	}
	fmt.Fprintf(cli.out, "updated %s: %s\n", res.User.Username, strings.Join(res.Changed, ","))
	return nil
}

func (cli *commandLine) roles(ctx context.Context, args []string) error {
	fs := cli.flagSet("roles")
	if err := parse(fs, args); err != nil {
		return err
	}
	if _, err := cli.admin(ctx); err != nil {
		return err
	}
	counts, err := cli.svc.CountByRole(ctx)
	if err != nil {
		return err
	}
	for _, r := range append(append([]identity.Role{}, identity.AssignableRoles...), identity.RolePending) {
		fmt.Fprintf(cli.out, "%s\t%d\n", r, counts[r])
	}
	return nil
}

// ══════════════════════════════════════════════════════════════════════════════
// ROSTER
// ══════════════════════════════════════════════════════════════════════════════

func (cli *commandLine) addCourse(ctx context.Context, args []string) error {
	fs := cli.flagSet("add-course")
	name := fs.String("name", "", "Course name.")
	code := fs.String("code", "", "Unique course code.")
	description := fs.String("description", "", "Optional description.")
	if err := parse(fs, args, name, code); err != nil {
		return err
	}
	actor, err := cli.actor(ctx)
	if err != nil {
		return err
	}
	res, err := cli.svc.CreateCourse(ctx, actor.Username, *name, *code, *description)
	if err != nil {
		return err
	}
	fmt.Fprintf(cli.out, "%s\t%s\t%s\n", res.Course.ID, res.Course.Code, res.Course.Name)
	return nil
}

func (cli *commandLine) courses(ctx context.Context, args []string) error {
	fs := cli.flagSet("courses")
	student := fs.String("student", "", "Only courses of this student.")
	if err := parse(fs, args); err != nil {
		return err
	}
	actor, err := cli.actor(ctx)
	if err != nil {
		return err
	}
	var list []query.CourseDTO
	if id := ownID(*student, actor); id != "" {
		list, err = cli.svc.StudentCourses(ctx, id)
	} else {
		list, err = cli.svc.Courses(ctx)
	}
	if err != nil {
		return err
	}
	for _, c := range list {
		fmt.Fprintf(cli.out, "%s\t%s\t%s\t%d\n", c.ID, c.Code, c.Name, c.StudentCount)
	}
	return nil
}

type teacherAssignmentFunc func(ctx context.Context, teacherID, courseID, actor string) (*command.TeacherAssignmentResult, error)

func (cli *commandLine) teacherAssignment(ctx context.Context, name string, args []string, apply teacherAssignmentFunc) error {
	fs := cli.flagSet(name)
	teacher := fs.String("teacher", "", "Teacher profile ID.")
	course := fs.String("course", "", "Course ID.")
	if err := parse(fs, args, teacher, course); err != nil {
		return err
	}
	actor, err := cli.admin(ctx)
	if err != nil {
		return err
	}
	res, err := apply(ctx, *teacher, *course, actor.Username)
	if err != nil {
		return err
	}
	fmt.Fprintf(cli.out, "%s teacher: %s\n", res.Course.ID, strOrDash(res.Course.TeacherID))
	if res.PreviousTeacherID != "" {
		fmt.Fprintf(cli.out, "previous teacher: %s\n", res.PreviousTeacherID)
	}
	return nil
}

type enrollmentFunc func(ctx context.Context, studentID, courseID, actor string) (*command.EnrollmentResult, error)

func (cli *commandLine) enrollment(ctx context.Context, name string, args []string, apply enrollmentFunc) error {
	fs := cli.flagSet(name)
	student := fs.String("student", "", "Student profile ID.")
	course := fs.String("course", "", "Course ID.")
	if err := parse(fs, args, student, course); err != nil {
		return err
	}
	actor, err := cli.admin(ctx)
	if err != nil {
		return err
	}
	res, err := apply(ctx, *student, *course, actor.Username)
	if err != nil {
		return err
	}
	fmt.Fprintf(cli.out, "%s: %d students\n", res.Course.ID, len(res.Course.Students))
	return nil
}

func (cli *commandLine) linkParent(ctx context.Context, args []string) error {
	fs := cli.flagSet("link-parent")
	parent := fs.String("parent", "", "Parent profile ID.")
	students := fs.String("students", "", "The complete list of children, comma separated. Empty unlinks all.")
	if err := parse(fs, args, parent); err != nil {
		return err
	}
	actor, err := cli.admin(ctx)
	if err != nil {
		return err
	}
	res, err := cli.svc.LinkParent(ctx, *parent, splitList(*students), actor.Username)
	if err != nil {
		return err
	}
	fmt.Fprintf(cli.out, "%s children: %s\n", res.Parent.ID, strings.Join(res.Parent.Children, ","))
	if len(res.Released) > 0 {
		fmt.Fprintf(cli.out, "released: %s\n", strings.Join(res.Released, ","))
	}
	return nil
}

func strOrDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

type directoryFunc func(ctx context.Context, value string) ([]query.MemberDTO, error)

// directory looks people up by one profile attribute; exactly one filter
// flag must be set.
func (cli *commandLine) directory(ctx context.Context, name string, args []string) error {
	fs := cli.flagSet(name)
	filters := map[string]directoryFunc{}
	values := map[string]*string{}
	add := func(flagName, usage string, fn directoryFunc) {
		values[flagName] = fs.String(flagName, "", usage)
		filters[flagName] = fn
	}
	switch name {
	case "students":
		add("grade", "Grade level.", cli.svc.StudentsByGrade)
	case "teachers":
		add("department", "Department.", cli.svc.TeachersByDepartment)
		add("subject", "Subject taught.", cli.svc.TeachersBySubject)
	case "staff":
		add("department", "Department.", cli.svc.StaffByDepartment)
		add("position", "Position.", cli.svc.StaffByPosition)
	}
	if err := parse(fs, args); err != nil {
		return err
	}

	var (
		lookup directoryFunc
		value  string
	)
	for flagName, v := range values {
		if strings.TrimSpace(*v) == "" {
			continue
		}
		if lookup != nil {
			fs.Usage()
			return errHelp
		}
		lookup, value = filters[flagName], *v
	}
	if lookup == nil {
		fs.Usage()
		return errHelp
	}

	if _, err := cli.actor(ctx); err != nil {
		return err
	}
	members, err := lookup(ctx, value)
	if err != nil {
		return err
	}
	for _, m := range members {
		fmt.Fprintf(cli.out, "%s\t%s\t%s\n", m.ID, m.Username, strOrDash(m.FullName))
	}
	return nil
}

// ══════════════════════════════════════════════════════════════════════════════
// ATTENDANCE
// ══════════════════════════════════════════════════════════════════════════════

type attendanceFunc func(ctx context.Context, teacherID, courseID, date string, records []attendance.Record) (*command.AttendanceResult, error)

func (cli *commandLine) attendance(ctx context.Context, name string, args []string, apply attendanceFunc) error {
	fs := cli.flagSet(name)
	course := fs.String("course", "", "Course ID.")
	date := fs.String("date", "", "Session date (YYYY-MM-DD). Defaults to today.")
	records := fs.String("records", "", "STUDENT_ID=present|absent|late|excused, comma separated.")
	if err := parse(fs, args, course, records); err != nil {
		return err
	}
	actor, err := cli.actor(ctx)
	if err != nil {
		return err
	}
	recs, err := parseRecords(*records)
	if err != nil {
		return err
	}
	res, err := apply(ctx, actor.ID, *course, *date, recs)
	if err != nil {
		return err
	}
	counts := res.Session.Counts()
	fmt.Fprintf(cli.out, "%s %s:", res.Session.CourseID, res.Session.Date)
	for _, st := range attendance.Statuses {
		fmt.Fprintf(cli.out, " %s=%d", st, counts[st.String()])
	}
	fmt.Fprintln(cli.out)
	return nil
}

func (cli *commandLine) stats(ctx context.Context, args []string) error {
	fs := cli.flagSet("stats")
	student := fs.String("student", "", "Student profile ID. Students default to themselves.")
	course := fs.String("course", "", "Limit to one course.")
	if err := parse(fs, args); err != nil {
		return err
	}
	actor, err := cli.actor(ctx)
	if err != nil {
		return err
	}
	id := ownID(*student, actor)
	if id == "" {
		fs.Usage()
		return errHelp
	}
	st, err := cli.svc.AttendanceStats(ctx, id, *course)
	if err != nil {
		return err
	}
	fmt.Fprintf(cli.out, "total\t%d\n", st.TotalDays)
	fmt.Fprintf(cli.out, "present\t%d\t%s\n", st.PresentDays, st.PresentPercentage)
	fmt.Fprintf(cli.out, "absent\t%d\t%s\n", st.AbsentDays, st.AbsentPercentage)
	fmt.Fprintf(cli.out, "late\t%d\t%s\n", st.LateDays, st.LatePercentage)
	fmt.Fprintf(cli.out, "excused\t%d\t%s\n", st.ExcusedDays, st.ExcusedPercentage)
	return nil
}

func (cli *commandLine) report(ctx context.Context, args []string) error {
	fs := cli.flagSet("report")
	course := fs.String("course", "", "Only this course.")
	student := fs.String("student", "", "Only this student.")
	from := fs.String("from", "", "Window start (YYYY-MM-DD).")
	to := fs.String("to", "", "Window end (YYYY-MM-DD). Defaults to today.")
	if err := parse(fs, args); err != nil {
		return err
	}
	if _, err := cli.actor(ctx); err != nil {
		return err
	}
	rep, err := cli.svc.AttendanceReport(ctx, query.ReportQuery{
		CourseID:  *course,
		StudentID: *student,
		StartDate: *from,
		EndDate:   *to,
	})
	if err != nil {
		return err
	}
	fmt.Fprintf(cli.out, "window %s..%s\n", rep.Window.From, rep.Window.To)
	for _, r := range rep.Rows {
		fmt.Fprintf(cli.out, "%s\t%s\t%s\t%s\n", r.Date, r.CourseName, r.StudentName, r.Status)
	}
	return nil
}

func (cli *commandLine) history(ctx context.Context, args []string) error {
	fs := cli.flagSet("history")
	student := fs.String("student", "", "Student profile ID. Students default to themselves.")
	from := fs.String("from", "", "Window start (YYYY-MM-DD).")
	to := fs.String("to", "", "Window end (YYYY-MM-DD).")
	if err := parse(fs, args); err != nil {
		return err
	}
	actor, err := cli.actor(ctx)
	if err != nil {
		return err
	}
	id := ownID(*student, actor)
	if id == "" {
		fs.Usage()
		return errHelp
	}
	entries, err := cli.svc.StudentHistory(ctx, id, *from, *to)
	if err != nil {
		return err
	}
	for _, e := range entries {
		fmt.Fprintf(cli.out, "%s\t%s\t%s\n", e.Date, e.CourseName, e.Status)
	}
	return nil
}

// ══════════════════════════════════════════════════════════════════════════════
// GRADING
// ══════════════════════════════════════════════════════════════════════════════

func (cli *commandLine) addAssignment(ctx context.Context, args []string) error {
	fs := cli.flagSet("add-assignment")
	course := fs.String("course", "", "Course ID.")
	name := fs.String("name", "", "Assignment name.")
	typ := fs.String("type", "", "homework, quiz, exam, project or other.")
	maxPoints := fs.Float64("max", 0, "Maximum points, greater than zero.")
	due := fs.String("due", "", "Due date (YYYY-MM-DD).")
	if err := parse(fs, args, course, name); err != nil {
		return err
	}
	actor, err := cli.actor(ctx)
	if err != nil {
		return err
	}
	res, err := cli.svc.CreateAssignment(ctx, command.CreateAssignmentCommand{
		TeacherID: actor.ID,
		CourseID:  *course,
		Name:      *name,
		Type:      *typ,
		MaxPoints: *maxPoints,
		DueDate:   *due,
	})
	if err != nil {
		return err
	}
	a := res.Assignment
	fmt.Fprintf(cli.out, "%s\t%s\t%s\t%s\n", a.ID, a.Name, a.Type, formatPoints(a.MaxPoints))
	return nil
}

func (cli *commandLine) closeAssignment(ctx context.Context, args []string) error {
	fs := cli.flagSet("close-assignment")
	id := fs.String("assignment", "", "Assignment ID.")
	if err := parse(fs, args, id); err != nil {
		return err
	}
	actor, err := cli.actor(ctx)
	if err != nil {
		return err
	}
	res, err := cli.svc.CloseAssignment(ctx, actor.ID, *id)
	if err != nil {
		return err
	}
	fmt.Fprintf(cli.out, "%s %s\n", res.Assignment.ID, res.Assignment.Status)
	return nil
}

func (cli *commandLine) grade(ctx context.Context, args []string) error {
	fs := cli.flagSet("grade")
	student := fs.String("student", "", "Student profile ID.")
	course := fs.String("course", "", "Course ID.")
	assignment := fs.String("assignment", "", "Assignment ID.")
	points := fs.String("points", "", "Points earned.")
	maxPoints := fs.Float64("max", 0, "Maximum points. Defaults to the assignment's.")
	if err := parse(fs, args, student, course, assignment, points); err != nil {
		return err
	}
	pts, err := strconv.ParseFloat(*points, 64)
	if err != nil {
		return shared.Errorf("grading", "RecordGrade", shared.ErrInvalidInput, "points %q is not a number", *points)
	}
	actor, err := cli.actor(ctx)
	if err != nil {
		return err
	}
	limit := *maxPoints
	if limit == 0 {
		if limit, err = cli.assignmentMax(ctx, *course, *assignment); err != nil {
			return err
		}
	}
	res, err := cli.svc.RecordGrade(ctx, command.RecordGradeCommand{
		TeacherID:    actor.ID,
		StudentID:    *student,
		CourseID:     *course,
		AssignmentID: *assignment,
		Points:       pts,
		MaxPoints:    limit,
	})
	if err != nil {
		return err
	}
	g := res.Grade
	fmt.Fprintf(cli.out, "%s\t%s/%s\t%s\t%s\n", g.ID, formatPoints(g.Points), formatPoints(g.MaxPoints), g.Percentage, g.LetterGrade)
	return nil
}

// assignmentMax looks up the max points of an assignment of the course.
func (cli *commandLine) assignmentMax(ctx context.Context, courseID, assignmentID string) (float64, error) {
	list, err := cli.svc.Assignments(ctx, courseID)
	if err != nil {
		return 0, err
	}
	for _, a := range list {
		if a.ID == assignmentID {
			return a.MaxPoints, nil
		}
	}
	return 0, shared.Errorf("grading", "RecordGrade", shared.ErrNotFound, "assignment %q not found in course %q", assignmentID, courseID)
}

func (cli *commandLine) courseAverage(ctx context.Context, args []string) error {
	fs := cli.flagSet("course-average")
	student := fs.String("student", "", "Student profile ID. Students default to themselves.")
	course := fs.String("course", "", "Course ID.")
	if err := parse(fs, args, course); err != nil {
		return err
	}
	actor, err := cli.actor(ctx)
	if err != nil {
		return err
	}
	id := ownID(*student, actor)
	if id == "" {
		fs.Usage()
		return errHelp
	}
	avg, err := cli.svc.CourseAverage(ctx, id, *course)
	if err != nil {
		return err
	}
	fmt.Fprintf(cli.out, "%s\t%s\t%s\t%d grades\n", avg.CourseID, avg.AveragePercentage, avg.Letter, avg.GradeCount)
	return nil
}

func (cli *commandLine) overallAverage(ctx context.Context, args []string) error {
	fs := cli.flagSet("overall-average")
	student := fs.String("student", "", "Student profile ID. Students default to themselves.")
	courses := fs.String("courses", "", "Course IDs, comma separated. Defaults to the student's courses.")
	if err := parse(fs, args); err != nil {
		return err
	}
	actor, err := cli.actor(ctx)
	if err != nil {
		return err
	}
	id := ownID(*student, actor)
	if id == "" {
		fs.Usage()
		return errHelp
	}
	avg, err := cli.svc.OverallAverage(ctx, id, splitList(*courses))
	if err != nil {
		return err
	}
	for _, c := range avg.Courses {
		fmt.Fprintf(cli.out, "%s\t%s\t%s\n", c.CourseID, c.AveragePercentage, c.Letter)
	}
	fmt.Fprintf(cli.out, "overall\t%s\t%s\n", avg.AveragePercentage, avg.Letter)
	return nil
}

func formatPoints(p float64) string {
	return strconv.FormatFloat(p, 'f', -1, 64)
}

// ══════════════════════════════════════════════════════════════════════════════
// SCHEDULE
// ══════════════════════════════════════════════════════════════════════════════

type eventFlags struct {
	title, description, kind, date, startTime, endDate, endTime, location, visible *string
}

func addEventFlags(fs *flag.FlagSet) eventFlags {
	return eventFlags{
		title:       fs.String("title", "", "Event title."),
		description: fs.String("description", "", "Optional description."),
		kind:        fs.String("type", "", "holiday, exam, meeting, activity or other."),
		date:        fs.String("date", "", "Start date (YYYY-MM-DD)."),
		startTime:   fs.String("time", "", "Start time (HH:MM)."),
		endDate:     fs.String("end-date", "", "End date (YYYY-MM-DD). Defaults to the start date."),
		endTime:     fs.String("end-time", "", "End time (HH:MM)."),
		location:    fs.String("location", "", "Where it takes place."),
		visible:     fs.String("visible", "", "Roles that see the event, comma separated, or all."),
	}
}

func (e eventFlags) details() command.EventDetails {
	d := command.EventDetails{
		Title:       *e.title,
		Description: *e.description,
		Type:        *e.kind,
		StartDate:   *e.date,
		StartTime:   *e.startTime,
		EndDate:     *e.endDate,
		EndTime:     *e.endTime,
		Location:    *e.location,
	}
	// an empty -visible keeps the current visibility on edit
	if strings.TrimSpace(*e.visible) != "" {
		d.Visibility = splitList(*e.visible)
	}
	return d
}

func (cli *commandLine) printEvent(e *schedule.Event) {
	when := e.StartDate.String()
	if e.StartTime != "" {
		when += " " + e.StartTime
	}
	fmt.Fprintf(cli.out, "%s\t%s\t%s\t%s\n", e.ID, when, e.Kind, e.Title)
}

func (cli *commandLine) addEvent(ctx context.Context, args []string) error {
	fs := cli.flagSet("add-event")
	ev := addEventFlags(fs)
	if err := parse(fs, args, ev.title, ev.date); err != nil {
		return err
	}
	actor, err := cli.admin(ctx)
	if err != nil {
		return err
	}
	res, err := cli.svc.CreateEvent(ctx, actor.Username, ev.details())
	if err != nil {
		return err
	}
	cli.printEvent(res.Event)
	return nil
}

func (cli *commandLine) editEvent(ctx context.Context, args []string) error {
	fs := cli.flagSet("edit-event")
	id := fs.String("id", "", "Event ID.")
	ev := addEventFlags(fs)
	if err := parse(fs, args, id); err != nil {
		return err
	}
	actor, err := cli.admin(ctx)
	if err != nil {
		return err
	}
	res, err := cli.svc.EditEvent(ctx, actor.Username, *id, ev.details())
	if err != nil {
		return err
	}
	cli.printEvent(res.Event)
	return nil
}

func (cli *commandLine) cancelEvent(ctx context.Context, args []string) error {
	fs := cli.flagSet("cancel-event")
	id := fs.String("id", "", "Event ID.")
	if err := parse(fs, args, id); err != nil {
		return err
	}
	actor, err := cli.admin(ctx)
	if err != nil {
		return err
	}
	res, err := cli.svc.CancelEvent(ctx, actor.Username, *id)
	if err != nil {
		return err
	}
	fmt.Fprintf(cli.out, "cancelled %s\n", res.Event.ID)
	return nil
}

// events lists the calendar. Admins see every active event, everyone else
// only what is visible to their role.
func (cli *commandLine) events(ctx context.Context, args []string) error {
	fs := cli.flagSet("events")
	upcoming := fs.Bool("upcoming", false, "Only events from today on.")
	limit := fs.Int("limit", schedule.DefaultUpcomingLimit, "How many upcoming events to show.")
	if err := parse(fs, args); err != nil {
		return err
	}
	actor, err := cli.actor(ctx)
	if err != nil {
		return err
	}

	var list []schedule.Event
	if *upcoming {
		list, err = cli.svc.UpcomingEvents(ctx, actor.Role, *limit)
	} else {
		list, err = cli.svc.Events(ctx)
	}
	if err != nil {
		return err
	}
	for i := range list {
		if actor.IsAdmin() || list[i].VisibleTo(actor.Role) {
			cli.printEvent(&list[i])
		}
	}
	return nil
}

// ══════════════════════════════════════════════════════════════════════════════
// STORAGE
// ══════════════════════════════════════════════════════════════════════════════

func (cli *commandLine) migrate(ctx context.Context, args []string) error {
	if len(args) == 0 {
		fmt.Fprintln(cli.errOut, "Usage: schoolctl migrate up|down|status")
		return errHelp
	}
	if cli.migrator == nil {
		return errNoMigrations
	}

	switch args[0] {
	case "up":
		applied, err := cli.migrator.Migrate(ctx)
		if err != nil {
			return err
		}
		if len(applied) == 0 {
			fmt.Fprintln(cli.out, "no pending migrations")
		}
		for _, v := range applied {
			fmt.Fprintf(cli.out, "applied %d\n", v)
		}
		return nil
	case "down":
		if err := cli.migrator.Rollback(ctx); err != nil {
			return err
		}
		fmt.Fprintln(cli.out, "rolled back")
		return nil
	case "status":
		migrations, err := cli.migrator.Status(ctx)
		if err != nil {
			return err
		}
		for _, m := range migrations {
			state := "pending"
			if m.IsApplied {
				state = "applied " + m.AppliedAt.Format("2006-01-02 15:04")
			}
			fmt.Fprintf(cli.out, "%d\t%s\t%s\n", m.Version, m.Name, state)
		}
		return nil
	default:
		return fmt.Errorf("%q: no such migrate command", args[0])
	}
}
