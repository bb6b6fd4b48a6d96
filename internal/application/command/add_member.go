package command

import (
	"context"
	"fmt"
	"strings"

	"github.com/alem-hub/school-records/internal/application/validation"
	"github.com/alem-hub/school-records/internal/domain/document"
	"github.com/alem-hub/school-records/internal/domain/identity"
	"github.com/alem-hub/school-records/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// ADD MEMBER COMMAND
// An administrator creates a fully set-up account: the user record with a
// role and the matching profile, written together.
// ══════════════════════════════════════════════════════════════════════════════

// AddMemberCommand contains the data for a new member.
type AddMemberCommand struct {
	// Actor is the username of the administrator.
	Actor string `json:"actor"`

	// Username is the login of the new member.
	Username string `json:"username" validate:"required,min=3,max=32,username"`

	// Password is the initial password.
	Password string `json:"password" validate:"required,min=6"`

	// Role is one of the assignable roles.
	Role string `json:"role" validate:"required"`

	FirstName string `json:"first_name" validate:"omitempty,notblank,max=64"`
	LastName  string `json:"last_name" validate:"omitempty,notblank,max=64"`
	Email     string `json:"email" validate:"omitempty,school_email"`
	Phone     string `json:"phone" validate:"omitempty,phone"`

	// Profile holds the role-specific attributes.
	Profile ProfileAttributes `json:"profile"`

	// CorrelationID for tracing.
	CorrelationID string `json:"-"`
}

// Validate validates the command.
func (c AddMemberCommand) Validate() error {
	return validation.Struct("identity", "AddMember", c)
}

// AddMemberResult contains the result of adding a member.
type AddMemberResult struct {
	// User is the stored account.
	User *identity.User

	// ProfileCreated is true when the role keeps a profile record.
	ProfileCreated bool

	// Events contains domain events generated.
	Events []shared.Event
}

// ══════════════════════════════════════════════════════════════════════════════
// HANDLER
// ══════════════════════════════════════════════════════════════════════════════

// AddMemberHandler handles the AddMemberCommand.
type AddMemberHandler struct {
	store          document.Store
	clock          Clock
	eventPublisher shared.EventPublisher
}

// NewAddMemberHandler creates a new AddMemberHandler.
func NewAddMemberHandler(store document.Store, clock Clock, eventPublisher shared.EventPublisher) *AddMemberHandler {
	return &AddMemberHandler{
		store:          store,
		clock:          clock,
		eventPublisher: eventPublisher,
	}
}

// Handle executes the add member command.
func (h *AddMemberHandler) Handle(ctx context.Context, cmd AddMemberCommand) (*AddMemberResult, error) {
	if err := cmd.Validate(); err != nil {
		return nil, fmt.Errorf("add_member: validation failed: %w", err)
	}

	var result AddMemberResult
	err := h.store.Update(ctx, func(tx document.Tx) error {
		result = AddMemberResult{}

		if _, err := requireAdmin(tx, cmd.Actor); err != nil {
			return err
		}
		role, err := identity.ParseRole(cmd.Role)
		if err != nil {
			return err
		}
		exists, err := document.Exists(tx, document.Users, cmd.Username)
		if err != nil {
			return err
		}
		if exists {
			return shared.Errorf("identity", "AddMember", shared.ErrDuplicateUsername, "username %q is already taken", cmd.Username)
		}

		now := h.clock.Now()
		user, err := identity.NewUser(cmd.Username, cmd.Password, role, cmd.Actor, now)
		if err != nil {
			return err
		}
		user.FirstName = strings.TrimSpace(cmd.FirstName)
		user.LastName = strings.TrimSpace(cmd.LastName)
		user.Email = strings.TrimSpace(cmd.Email)
		user.Phone = strings.TrimSpace(cmd.Phone)
		if err := document.Put(tx, document.Users, user.Username, user); err != nil {
			return err
		}

		result.ProfileCreated, err = ensureProfile(tx, user, cmd.Profile, cmd.Actor, now)
		if err != nil {
			return err
		}
		result.User = user
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("add_member: %w", err)
	}

	event := shared.NewMemberAddedEvent(result.User.ID, result.User.Username, result.User.Role.String(), cmd.Actor)
	event.BaseEvent = event.WithCorrelationID(correlationID(cmd.CorrelationID))
	result.Events = []shared.Event{event}
	publishAll(h.eventPublisher, result.Events)

	return &result, nil
}
