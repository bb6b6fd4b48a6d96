package command

import (
	"context"
	"fmt"

	"github.com/alem-hub/school-records/internal/domain/document"
	"github.com/alem-hub/school-records/internal/domain/identity"
	"github.com/alem-hub/school-records/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// REJECT PENDING COMMAND
// Deletes a pending registration. This is the only hard delete of a user.
// ══════════════════════════════════════════════════════════════════════════════

// RejectPendingCommand identifies the registration to reject.
type RejectPendingCommand struct {
	// Actor is the username of the administrator.
	Actor string

	// Username is the pending account.
	Username string

	// CorrelationID for tracing.
	CorrelationID string
}

// RejectPendingResult contains the result of a rejection.
type RejectPendingResult struct {
	// Rejected is the deleted account as it was stored.
	Rejected *identity.User

	// Events contains domain events generated.
	Events []shared.Event
}

// RejectPendingHandler handles the RejectPendingCommand.
type RejectPendingHandler struct {
	store          document.Store
	eventPublisher shared.EventPublisher
}

// NewRejectPendingHandler creates a new RejectPendingHandler.
func NewRejectPendingHandler(store document.Store, eventPublisher shared.EventPublisher) *RejectPendingHandler {
	return &RejectPendingHandler{
		store:          store,
		eventPublisher: eventPublisher,
	}
}

// Handle executes the reject pending command.
func (h *RejectPendingHandler) Handle(ctx context.Context, cmd RejectPendingCommand) (*RejectPendingResult, error) {
	var user *identity.User
	err := h.store.Update(ctx, func(tx document.Tx) error {
		if _, err := requireAdmin(tx, cmd.Actor); err != nil {
			return err
		}
		var err error
		user, err = loadUser(tx, "identity", "RejectPending", cmd.Username)
		if err != nil {
			return err
		}
		if !user.IsPending() {
			return shared.ErrUserNotPending
		}
		return tx.Delete(document.Users, user.Username)
	})
	if err != nil {
		return nil, fmt.Errorf("reject_pending: %w", err)
	}

	event := shared.NewRegistrationRejectedEvent(user.ID, user.Username, cmd.Actor)
	event.BaseEvent = event.WithCorrelationID(correlationID(cmd.CorrelationID))
	result := &RejectPendingResult{
		Rejected: user,
		Events:   []shared.Event{event},
	}
	publishAll(h.eventPublisher, result.Events)

	return result, nil
}
