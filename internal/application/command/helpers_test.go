package command

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/alem-hub/school-records/internal/domain/document"
	"github.com/alem-hub/school-records/internal/domain/identity"
	"github.com/alem-hub/school-records/internal/domain/roster"
	"github.com/alem-hub/school-records/internal/infrastructure/messaging"
	"github.com/alem-hub/school-records/internal/infrastructure/persistence/memory"
	"github.com/alem-hub/school-records/pkg/timeutil"
)

func init() {
	identity.HashCost = bcrypt.MinCost
}

type testPolicy struct {
	unique, strict, selfRegistration bool
}

func (p *testPolicy) UniqueGradesPerAssignment() bool { return p.unique }
func (p *testPolicy) StrictAttendanceRoster() bool    { return p.strict }
func (p *testPolicy) SelfRegistration() bool          { return p.selfRegistration }

type fixture struct {
	t      *testing.T
	ctx    context.Context
	store  document.Store
	clock  *timeutil.Clock
	policy *testPolicy
	events *messaging.Recorder
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	return &fixture{
		t:      t,
		ctx:    context.Background(),
		store:  memory.NewStore(),
		clock:  timeutil.FixedClock(time.Date(2024, 3, 15, 10, 0, 0, 0, time.UTC)),
		policy: &testPolicy{unique: true, selfRegistration: true},
		events: &messaging.Recorder{},
	}
}

// school is a small seeded roster: an admin, two teachers, two students,
// two parents and one course taught by the first teacher.
type school struct {
	admin     string
	teacher   string
	teacher2  string
	students  []string
	parents   []string
	course    string
	usernames map[string]string
}

func (f *fixture) addMember(actor, username, role string) *identity.User {
	f.t.Helper()
	res, err := NewAddMemberHandler(f.store, f.clock, f.events).Handle(f.ctx, AddMemberCommand{
		Actor:     actor,
		Username:  username,
		Password:  "secret123",
		Role:      role,
		FirstName: username,
		LastName:  "Test",
	})
	require.NoError(f.t, err)
	return res.User
}

func (f *fixture) seed() *school {
	f.t.Helper()
	_, err := NewRegisterUserHandler(f.store, f.clock, f.policy, f.events).Handle(f.ctx, RegisterUserCommand{
		Username: "admin",
		Password: "admin123",
	})
	require.NoError(f.t, err)

	s := &school{admin: "admin", usernames: map[string]string{}}
	s.teacher = f.addMember("admin", "teacher1", "teacher").ID
	s.teacher2 = f.addMember("admin", "teacher2", "teacher").ID
	for _, name := range []string{"alice", "bob"} {
		u := f.addMember("admin", name, "student")
		s.students = append(s.students, u.ID)
		s.usernames[u.ID] = name
	}
	for _, name := range []string{"parent1", "parent2"} {
		s.parents = append(s.parents, f.addMember("admin", name, "parent").ID)
	}

	course, err := NewCreateCourseHandler(f.store, f.clock, f.events).Handle(f.ctx, CreateCourseCommand{
		Actor: "admin",
		Name:  "Mathematics",
		Code:  "math101",
	})
	require.NoError(f.t, err)
	s.course = course.Course.ID

	_, err = NewTeacherAssignmentHandler(f.store, f.clock, f.events).Assign(f.ctx, TeacherAssignmentCommand{
		TeacherID: s.teacher,
		CourseID:  s.course,
		Actor:     "admin",
	})
	require.NoError(f.t, err)

	f.events.Reset()
	return s
}

func (f *fixture) enroll(studentID, courseID string) {
	f.t.Helper()
	_, err := NewEnrollmentHandler(f.store, f.clock, f.events).Enroll(f.ctx, EnrollmentCommand{
		StudentID: studentID,
		CourseID:  courseID,
		Actor:     "admin",
	})
	require.NoError(f.t, err)
}

func get[T any](f *fixture, collection, id string) T {
	f.t.Helper()
	var v T
	err := f.store.View(f.ctx, func(tx document.Tx) error {
		var err error
		v, err = document.Get[T](tx, collection, id)
		return err
	})
	require.NoError(f.t, err)
	return v
}

func (f *fixture) exists(collection, id string) bool {
	f.t.Helper()
	var ok bool
	err := f.store.View(f.ctx, func(tx document.Tx) error {
		var err error
		ok, err = document.Exists(tx, collection, id)
		return err
	})
	require.NoError(f.t, err)
	return ok
}

func (f *fixture) student(id string) roster.Student { return get[roster.Student](f, document.Students, id) }
func (f *fixture) course(id string) roster.Course   { return get[roster.Course](f, document.Courses, id) }
func (f *fixture) teacher(id string) roster.Teacher { return get[roster.Teacher](f, document.Teachers, id) }
func (f *fixture) parent(id string) roster.Parent   { return get[roster.Parent](f, document.Parents, id) }

// failingStore makes every Put into one collection fail, to prove that the
// other writes of the same Update are rolled back.
type failingStore struct {
	document.Store
	collection string
}

var errInjected = errors.New("injected put failure")

func (s failingStore) Update(ctx context.Context, fn func(tx document.Tx) error) error {
	return s.Store.Update(ctx, func(tx document.Tx) error {
		return fn(failingTx{Tx: tx, collection: s.collection})
	})
}

type failingTx struct {
	document.Tx
	collection string
}

func (t failingTx) Put(collection, id string, doc []byte) error {
	if collection == t.collection {
		return errInjected
	}
	return t.Tx.Put(collection, id, doc)
}

func putDoc(f *fixture, collection, id string, v any) {
	f.t.Helper()
	require.NoError(f.t, f.store.Update(f.ctx, func(tx document.Tx) error {
		return document.Put(tx, collection, id, v)
	}))
}
