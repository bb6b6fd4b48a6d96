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
// CHANGE PASSWORD COMMAND
// Administrators reset any password, everyone else only their own.
// ══════════════════════════════════════════════════════════════════════════════

// ChangePasswordCommand contains the new password.
type ChangePasswordCommand struct {
	Actor       string `json:"actor"`
	Username    string `json:"username" validate:"required"`
	NewPassword string `json:"new_password" validate:"required,min=6"`

	// CorrelationID for tracing.
	CorrelationID string `json:"-"`
}

// Validate validates the command.
func (c ChangePasswordCommand) Validate() error {
	return validation.Struct("identity", "ChangePassword", c)
}

// ChangePasswordHandler handles the ChangePasswordCommand.
type ChangePasswordHandler struct {
	store          document.Store
	clock          Clock
	eventPublisher shared.EventPublisher
}

// NewChangePasswordHandler creates a new ChangePasswordHandler.
func NewChangePasswordHandler(store document.Store, clock Clock, eventPublisher shared.EventPublisher) *ChangePasswordHandler {
	return &ChangePasswordHandler{store: store, clock: clock, eventPublisher: eventPublisher}
}

// Handle executes the change password command.
func (h *ChangePasswordHandler) Handle(ctx context.Context, cmd ChangePasswordCommand) ([]shared.Event, error) {
	if err := cmd.Validate(); err != nil {
		return nil, fmt.Errorf("change_password: validation failed: %w", err)
	}

	var user *identity.User
	err := h.store.Update(ctx, func(tx document.Tx) error {
		actor, err := loadActor(tx, cmd.Actor)
		if err != nil {
			return err
		}
		if !identity.CanChangePassword(actor, cmd.Username) {
			return shared.NewDomainError("identity", "ChangePassword", shared.ErrForbidden, "you may only change your own password")
		}
		user, err = loadUser(tx, "identity", "ChangePassword", cmd.Username)
		if err != nil {
			return err
		}
		if err := user.SetPassword(cmd.NewPassword); err != nil {
			return err
		}
		user.Touch(cmd.Actor, h.clock.Now())
		return document.Put(tx, document.Users, user.Username, user)
	})
	if err != nil {
		return nil, fmt.Errorf("change_password: %w", err)
	}

	event := shared.NewPasswordChangedEvent(user.ID, user.Username, cmd.Actor)
	event.BaseEvent = event.WithCorrelationID(correlationID(cmd.CorrelationID))
	events := []shared.Event{event}
	publishAll(h.eventPublisher, events)
	return events, nil
}

// ══════════════════════════════════════════════════════════════════════════════
// SET ACTIVE COMMAND
// Deactivated accounts keep their records but can no longer authenticate.
// ══════════════════════════════════════════════════════════════════════════════

// SetActiveCommand toggles an account.
type SetActiveCommand struct {
	Actor    string
	Username string
	Active   bool

	// CorrelationID for tracing.
	CorrelationID string
}

// SetActiveResult contains the result of an activation change.
type SetActiveResult struct {
	User *identity.User

	// Changed is false when the account already had the requested state.
	Changed bool

	// Events contains domain events generated.
	Events []shared.Event
}

// SetActiveHandler handles the SetActiveCommand.
type SetActiveHandler struct {
	store          document.Store
	clock          Clock
	eventPublisher shared.EventPublisher
}

// NewSetActiveHandler creates a new SetActiveHandler.
func NewSetActiveHandler(store document.Store, clock Clock, eventPublisher shared.EventPublisher) *SetActiveHandler {
	return &SetActiveHandler{store: store, clock: clock, eventPublisher: eventPublisher}
}

// Handle executes the set active command.
func (h *SetActiveHandler) Handle(ctx context.Context, cmd SetActiveCommand) (*SetActiveResult, error) {
	var result SetActiveResult
	err := h.store.Update(ctx, func(tx document.Tx) error {
		result = SetActiveResult{}
		if _, err := requireAdmin(tx, cmd.Actor); err != nil {
			return err
		}
		user, err := loadUser(tx, "identity", "SetActive", cmd.Username)
		if err != nil {
			return err
		}
		if !cmd.Active && user.Username == cmd.Actor {
			return shared.NewDomainError("identity", "SetActive", shared.ErrInvalidState, "administrators cannot deactivate themselves")
		}
		result.User = user
		if user.IsActive == cmd.Active {
			return nil
		}
		user.IsActive = cmd.Active
		user.Touch(cmd.Actor, h.clock.Now())
		result.Changed = true
		return document.Put(tx, document.Users, user.Username, user)
	})
	if err != nil {
		return nil, fmt.Errorf("set_active: %w", err)
	}

	if result.Changed {
		event := shared.NewActivationChangedEvent(result.User.ID, result.User.Username, cmd.Active, cmd.Actor)
		event.BaseEvent = event.WithCorrelationID(correlationID(cmd.CorrelationID))
		result.Events = []shared.Event{event}
		publishAll(h.eventPublisher, result.Events)
	}
	return &result, nil
}
