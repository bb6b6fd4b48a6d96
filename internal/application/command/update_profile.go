package command

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/alem-hub/school-records/internal/application/validation"
	"github.com/alem-hub/school-records/internal/domain/document"
	"github.com/alem-hub/school-records/internal/domain/identity"
	"github.com/alem-hub/school-records/internal/domain/roster"
	"github.com/alem-hub/school-records/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// UPDATE PROFILE COMMAND
// An administrator edits account contact fields and the attributes of the
// role profile. Blank fields keep their value; username, role and links are
// never touched here.
// ══════════════════════════════════════════════════════════════════════════════

// UpdateProfileCommand contains the fields to change.
type UpdateProfileCommand struct {
	Actor    string `json:"actor"`
	Username string `json:"username" validate:"required"`

	FirstName string `json:"first_name" validate:"omitempty,notblank,max=64"`
	LastName  string `json:"last_name" validate:"omitempty,notblank,max=64"`
	Email     string `json:"email" validate:"omitempty,school_email"`
	Phone     string `json:"phone" validate:"omitempty,phone"`

	// Profile holds role-specific changes. Fields of other roles are ignored.
	Profile ProfileAttributes `json:"profile"`

	// CorrelationID for tracing.
	CorrelationID string `json:"-"`
}

// Validate validates the command.
func (c UpdateProfileCommand) Validate() error {
	return validation.Struct("identity", "UpdateProfile", c)
}

// UpdateProfileResult contains the result of an edit.
type UpdateProfileResult struct {
	User *identity.User

	// Changed lists the edited fields; empty when nothing differed.
	Changed []string

	// Events contains domain events generated.
	Events []shared.Event
}

// UpdateProfileHandler handles the UpdateProfileCommand.
type UpdateProfileHandler struct {
	store          document.Store
	clock          Clock
	eventPublisher shared.EventPublisher
}

// NewUpdateProfileHandler creates a new UpdateProfileHandler.
func NewUpdateProfileHandler(store document.Store, clock Clock, eventPublisher shared.EventPublisher) *UpdateProfileHandler {
	return &UpdateProfileHandler{store: store, clock: clock, eventPublisher: eventPublisher}
}

// Handle executes the update profile command.
func (h *UpdateProfileHandler) Handle(ctx context.Context, cmd UpdateProfileCommand) (*UpdateProfileResult, error) {
	if err := cmd.Validate(); err != nil {
		return nil, fmt.Errorf("update_profile: validation failed: %w", err)
	}

	var result UpdateProfileResult
	err := h.store.Update(ctx, func(tx document.Tx) error {
		result = UpdateProfileResult{}
		if _, err := requireAdmin(tx, cmd.Actor); err != nil {
			return err
		}
		user, err := loadUser(tx, "identity", "UpdateProfile", cmd.Username)
		if err != nil {
			return err
		}
		result.User = user
		now := h.clock.Now()

		for _, f := range []struct {
			name string
			dst  *string
			v    string
		}{
			{"first_name", &user.FirstName, cmd.FirstName},
			{"last_name", &user.LastName, cmd.LastName},
			{"email", &user.Email, cmd.Email},
			{"phone", &user.Phone, cmd.Phone},
		} {
			if v := strings.TrimSpace(f.v); v != "" && v != *f.dst {
				*f.dst = v
				result.Changed = append(result.Changed, f.name)
			}
		}
		if len(result.Changed) > 0 {
			user.Touch(cmd.Actor, now)
			if err := document.Put(tx, document.Users, user.Username, user); err != nil {
				return err
			}
		}

		changed, err := editProfile(tx, user, cmd.Profile, cmd.Actor, now)
		if err != nil {
			return err
		}
		result.Changed = append(result.Changed, changed...)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("update_profile: %w", err)
	}

	if len(result.Changed) > 0 {
		event := shared.NewProfileUpdatedEvent(result.User.ID, result.User.Username, result.Changed, cmd.Actor)
		event.BaseEvent = event.WithCorrelationID(correlationID(cmd.CorrelationID))
		result.Events = []shared.Event{event}
		publishAll(h.eventPublisher, result.Events)
	}
	return &result, nil
}

// editProfile applies attrs to the user's role profile. A missing profile is
// created from attrs, as add_member would have done.
func editProfile(tx document.Tx, u *identity.User, attrs ProfileAttributes, actor string, now time.Time) ([]string, error) {
	edit := roster.ProfileEdit{
		GradeLevel:  attrs.GradeLevel,
		DateOfBirth: attrs.DateOfBirth,
		Department:  attrs.Department,
		Subjects:    attrs.Subjects,
		HireDate:    attrs.HireDate,
		Position:    attrs.Position,
	}

	var (
		changed []string
		profile any
		found   bool
		err     error
	)
	switch u.Role {
	case identity.RoleStudent:
		var p roster.Student
		if p, found, err = document.Find[roster.Student](tx, document.Students, u.ID); found {
			changed, profile = p.Edit(edit, actor, now), &p
		}
	case identity.RoleTeacher:
		var p roster.Teacher
		if p, found, err = document.Find[roster.Teacher](tx, document.Teachers, u.ID); found {
			changed, profile = p.Edit(edit, actor, now), &p
		}
	case identity.RoleStaff:
		var p roster.Staff
		if p, found, err = document.Find[roster.Staff](tx, document.Staff, u.ID); found {
			changed, profile = p.Edit(edit, actor, now), &p
		}
	default:
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	if !found {
		created, err := ensureProfile(tx, u, attrs, actor, now)
		if err != nil || !created {
			return nil, err
		}
		return []string{"profile"}, nil
	}
	if len(changed) == 0 {
		return nil, nil
	}
	if err := document.Put(tx, profileCollection(u.Role), u.ID, profile); err != nil {
		return nil, err
	}
	return changed, nil
}
