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
// REGISTER USER COMMAND
// Self-registration. The very first account becomes the administrator,
// everyone after it waits in the pending queue until an admin approves.
// ══════════════════════════════════════════════════════════════════════════════

// RegisterUserCommand contains the data for a new account.
type RegisterUserCommand struct {
	// Username is the login, unique across the school.
	Username string `json:"username" validate:"required,min=3,max=32,username"`

	// Password is the plain-text password; only its hash is stored.
	Password string `json:"password" validate:"required,min=6"`

	// CorrelationID for tracing.
	CorrelationID string `json:"-"`
}

// Validate validates the command.
func (c RegisterUserCommand) Validate() error {
	return validation.Struct("identity", "Register", c)
}

// RegisterUserResult contains the result of a registration.
type RegisterUserResult struct {
	// User is the stored account.
	User *identity.User

	// RoleAssigned is admin for the first user and pending otherwise.
	RoleAssigned identity.Role

	// Events contains domain events generated.
	Events []shared.Event
}

// ══════════════════════════════════════════════════════════════════════════════
// HANDLER
// ══════════════════════════════════════════════════════════════════════════════

// RegisterUserHandler handles the RegisterUserCommand.
type RegisterUserHandler struct {
	store          document.Store
	clock          Clock
	policy         Policy
	eventPublisher shared.EventPublisher
}

// NewRegisterUserHandler creates a new RegisterUserHandler.
func NewRegisterUserHandler(
	store document.Store,
	clock Clock,
	policy Policy,
	eventPublisher shared.EventPublisher,
) *RegisterUserHandler {
	return &RegisterUserHandler{
		store:          store,
		clock:          clock,
		policy:         policy,
		eventPublisher: eventPublisher,
	}
}

// Handle executes the register user command.
func (h *RegisterUserHandler) Handle(ctx context.Context, cmd RegisterUserCommand) (*RegisterUserResult, error) {
	if err := cmd.Validate(); err != nil {
		return nil, fmt.Errorf("register_user: validation failed: %w", err)
	}

	var user *identity.User
	err := h.store.Update(ctx, func(tx document.Tx) error {
		exists, err := document.Exists(tx, document.Users, cmd.Username)
		if err != nil {
			return err
		}
		if exists {
			return shared.Errorf("identity", "Register", shared.ErrDuplicateUsername, "username %q is already taken", cmd.Username)
		}

		users, err := tx.ReadCollection(document.Users)
		if err != nil {
			return err
		}
		role := identity.RoleForRegistration(len(users))
		if role == identity.RolePending && h.policy != nil && !h.policy.SelfRegistration() {
			return shared.ErrRegistrationOff
		}

		user, err = identity.NewUser(cmd.Username, cmd.Password, role, cmd.Username, h.clock.Now())
		if err != nil {
			return err
		}
		return document.Put(tx, document.Users, user.Username, user)
	})
	if err != nil {
		return nil, fmt.Errorf("register_user: %w", err)
	}

	event := shared.NewUserRegisteredEvent(user.ID, user.Username, user.Role.String())
	event.BaseEvent = event.WithCorrelationID(correlationID(cmd.CorrelationID))
	result := &RegisterUserResult{
		User:         user,
		RoleAssigned: user.Role,
		Events:       []shared.Event{event},
	}
	publishAll(h.eventPublisher, result.Events)

	return result, nil
}
