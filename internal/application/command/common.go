// Package command contains write operations (CQRS - Commands).
//
// Every handler validates its command, runs all reads and writes inside one
// document.Store Update so multi-record links commit or roll back together,
// and publishes domain events only after the commit succeeded.
package command

import (
	"time"

	"github.com/google/uuid"

	"github.com/alem-hub/school-records/internal/domain/document"
	"github.com/alem-hub/school-records/internal/domain/identity"
	"github.com/alem-hub/school-records/internal/domain/roster"
	"github.com/alem-hub/school-records/internal/domain/shared"
)

// Clock supplies the current time. *timeutil.Clock satisfies it.
type Clock interface {
	Now() time.Time
}

// Policy answers feature-flag questions. *config.FeatureFlags satisfies it.
type Policy interface {
	UniqueGradesPerAssignment() bool
	StrictAttendanceRoster() bool
	SelfRegistration() bool
}

// ══════════════════════════════════════════════════════════════════════════════
// LOADERS
// ══════════════════════════════════════════════════════════════════════════════

func loadUser(tx document.Tx, domain, op, username string) (*identity.User, error) {
	u, ok, err := document.Find[identity.User](tx, document.Users, username)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, shared.Errorf(domain, op, shared.ErrNotFound, "user %q not found", username)
	}
	return &u, nil
}

// loadActor returns nil for an unknown actor so authorization checks report
// Forbidden rather than NotFound.
func loadActor(tx document.Tx, username string) (*identity.User, error) {
	if username == "" {
		return nil, nil
	}
	u, ok, err := document.Find[identity.User](tx, document.Users, username)
	if err != nil || !ok {
		return nil, err
	}
	return &u, nil
}

func requireAdmin(tx document.Tx, actorUsername string) (*identity.User, error) {
	actor, err := loadActor(tx, actorUsername)
	if err != nil {
		return nil, err
	}
	if err := identity.RequireAdmin(actor); err != nil {
		return nil, err
	}
	return actor, nil
}

func loadStudent(tx document.Tx, domain, op, id string) (*roster.Student, error) {
	s, ok, err := document.Find[roster.Student](tx, document.Students, id)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, shared.Errorf(domain, op, shared.ErrNotFound, "student %q not found", id)
	}
	return &s, nil
}

func loadCourse(tx document.Tx, domain, op, id string) (*roster.Course, error) {
	c, ok, err := document.Find[roster.Course](tx, document.Courses, id)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, shared.Errorf(domain, op, shared.ErrNotFound, "course %q not found", id)
	}
	return &c, nil
}

func loadTeacher(tx document.Tx, domain, op, id string) (*roster.Teacher, error) {
	t, ok, err := document.Find[roster.Teacher](tx, document.Teachers, id)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, shared.Errorf(domain, op, shared.ErrNotFound, "teacher %q not found", id)
	}
	return &t, nil
}

func loadParent(tx document.Tx, domain, op, id string) (*roster.Parent, error) {
	p, ok, err := document.Find[roster.Parent](tx, document.Parents, id)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, shared.Errorf(domain, op, shared.ErrNotFound, "parent %q not found", id)
	}
	return &p, nil
}

// ══════════════════════════════════════════════════════════════════════════════
// PROFILES
// ══════════════════════════════════════════════════════════════════════════════

// ProfileAttributes carries the role-specific fields of a new profile.
// Fields that do not apply to the role are ignored.
type ProfileAttributes struct {
	GradeLevel  string   `json:"grade_level"`
	DateOfBirth string   `json:"date_of_birth" validate:"omitempty,isodate"`
	Department  string   `json:"department"`
	Subjects    []string `json:"subjects"`
	HireDate    string   `json:"hire_date" validate:"omitempty,isodate"`
	Position    string   `json:"position"`
}

// ensureProfile creates the profile record for the user's role unless one
// already exists. Roles without profiles are a no-op.
func ensureProfile(tx document.Tx, u *identity.User, attrs ProfileAttributes, actor string, now time.Time) (bool, error) {
	if !u.Role.HasProfile() {
		return false, nil
	}
	collection := profileCollection(u.Role)
	exists, err := document.Exists(tx, collection, u.ID)
	if err != nil || exists {
		return false, err
	}

	var profile any
	switch u.Role {
	case identity.RoleStudent:
		profile = roster.Student{
			ID:             u.ID,
			Username:       u.Username,
			GradeLevel:     attrs.GradeLevel,
			DateOfBirth:    attrs.DateOfBirth,
			Courses:        []string{},
			EnrollmentDate: shared.DateOf(now).String(),
			ModifiedAt:     now,
			ModifiedBy:     actor,
		}
	case identity.RoleTeacher:
		profile = roster.Teacher{
			ID:         u.ID,
			Username:   u.Username,
			Department: attrs.Department,
			Subjects:   roster.Dedupe(attrs.Subjects),
			Classes:    []string{},
			HireDate:   attrs.HireDate,
			ModifiedAt: now,
			ModifiedBy: actor,
		}
	case identity.RoleParent:
		profile = roster.Parent{
			ID:         u.ID,
			Username:   u.Username,
			Children:   []string{},
			ModifiedAt: now,
			ModifiedBy: actor,
		}
	case identity.RoleStaff:
		profile = roster.Staff{
			ID:         u.ID,
			Username:   u.Username,
			Department: attrs.Department,
			Position:   attrs.Position,
			ModifiedAt: now,
			ModifiedBy: actor,
		}
	}
	if err := document.Put(tx, collection, u.ID, profile); err != nil {
		return false, err
	}
	return true, nil
}

func profileCollection(r identity.Role) string {
	switch r {
	case identity.RoleStudent:
		return document.Students
	case identity.RoleTeacher:
		return document.Teachers
	case identity.RoleParent:
		return document.Parents
	case identity.RoleStaff:
		return document.Staff
	default:
		return ""
	}
}

// ══════════════════════════════════════════════════════════════════════════════
// EVENTS
// ══════════════════════════════════════════════════════════════════════════════

// correlationID returns id, or a fresh one when the caller did not set it.
func correlationID(id string) string {
	if id == "" {
		return uuid.NewString()
	}
	return id
}

// publishAll sends events after commit. Publish errors are ignored: the state
// change is already durable and subscribers only observe it.
func publishAll(p shared.EventPublisher, events []shared.Event) {
	if p == nil {
		return
	}
	for _, e := range events {
		_ = p.Publish(e)
	}
}
