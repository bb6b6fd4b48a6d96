package command

import (
	"context"
	"fmt"

	"github.com/alem-hub/school-records/internal/application/validation"
	"github.com/alem-hub/school-records/internal/domain/document"
	"github.com/alem-hub/school-records/internal/domain/identity"
	"github.com/alem-hub/school-records/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// SET ROLE COMMAND
// Changes a user's role. Approving a pending registration is the same
// operation. When the new role keeps a profile record and the user has none
// yet, the profile is created in the same transaction.
// ══════════════════════════════════════════════════════════════════════════════

// SetRoleCommand contains the data to change a role.
type SetRoleCommand struct {
	// Actor is the username of the administrator.
	Actor string `json:"actor"`

	// Username is the target account.
	Username string `json:"username"`

	// Role is the new role. pending is not accepted.
	Role string `json:"role"`

	// Profile holds optional attributes for a newly created profile.
	Profile ProfileAttributes `json:"profile"`

	// CorrelationID for tracing.
	CorrelationID string `json:"-"`
}

// Validate validates the command. Role and permissions are checked by the
// handler, in a fixed order, against stored state.
func (c SetRoleCommand) Validate() error {
	return validation.Struct("identity", "SetRole", c)
}

// SetRoleResult contains the result of a role change.
type SetRoleResult struct {
	// User is the updated account.
	User *identity.User

	// OldRole is the role before the change.
	OldRole identity.Role

	// ProfileCreated is true when a profile record was added.
	ProfileCreated bool

	// Events contains domain events generated.
	Events []shared.Event
}

// ══════════════════════════════════════════════════════════════════════════════
// HANDLER
// ══════════════════════════════════════════════════════════════════════════════

// SetRoleHandler handles the SetRoleCommand.
type SetRoleHandler struct {
	store          document.Store
	clock          Clock
	eventPublisher shared.EventPublisher
}

// NewSetRoleHandler creates a new SetRoleHandler.
func NewSetRoleHandler(store document.Store, clock Clock, eventPublisher shared.EventPublisher) *SetRoleHandler {
	return &SetRoleHandler{
		store:          store,
		clock:          clock,
		eventPublisher: eventPublisher,
	}
}

// Handle executes the set role command.
func (h *SetRoleHandler) Handle(ctx context.Context, cmd SetRoleCommand) (*SetRoleResult, error) {
	if err := cmd.Validate(); err != nil {
		return nil, fmt.Errorf("set_role: validation failed: %w", err)
	}

	var result SetRoleResult
	err := h.store.Update(ctx, func(tx document.Tx) error {
		result = SetRoleResult{}

		// 1. Only an administrator may change roles.
		if _, err := requireAdmin(tx, cmd.Actor); err != nil {
			return err
		}

		// 2. Target must exist.
		user, err := loadUser(tx, "identity", "SetRole", cmd.Username)
		if err != nil {
			return err
		}

		// 3. Role must be assignable.
		role, err := identity.ParseRole(cmd.Role)
		if err != nil {
			return err
		}

		now := h.clock.Now()
		result.OldRole = user.Role
		user.Role = role
		user.Touch(cmd.Actor, now)
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
		return nil, fmt.Errorf("set_role: %w", err)
	}

	event := shared.NewRoleChangedEvent(result.User.ID, result.User.Username, result.OldRole.String(), result.User.Role.String(), cmd.Actor)
	event.BaseEvent = event.WithCorrelationID(correlationID(cmd.CorrelationID))
	result.Events = []shared.Event{event}
	publishAll(h.eventPublisher, result.Events)

	return &result, nil
}
