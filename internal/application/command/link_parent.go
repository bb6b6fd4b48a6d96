package command

import (
	"context"
	"fmt"

	"github.com/alem-hub/school-records/internal/domain/document"
	"github.com/alem-hub/school-records/internal/domain/roster"
	"github.com/alem-hub/school-records/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// LINK PARENT COMMAND
// Replaces a parent's children set. Students dropped from the set lose
// their parent_id, students added to it move over from any previous parent.
// ══════════════════════════════════════════════════════════════════════════════

// LinkParentCommand contains the desired children of a parent.
type LinkParentCommand struct {
	// ParentID is the parent profile ID.
	ParentID string

	// StudentIDs is the complete desired set; duplicates are collapsed.
	StudentIDs []string

	// Actor is recorded as modified_by.
	Actor string

	// CorrelationID for tracing.
	CorrelationID string
}

// LinkParentResult describes what changed.
type LinkParentResult struct {
	Parent *roster.Parent

	// Released lists students whose parent_id was cleared.
	Released []string

	// FormerParents lists other parents that lost a child to this one.
	FormerParents []string

	// Events contains domain events generated.
	Events []shared.Event
}

// LinkParentHandler handles the LinkParentCommand.
type LinkParentHandler struct {
	store          document.Store
	clock          Clock
	eventPublisher shared.EventPublisher
}

// NewLinkParentHandler creates a new LinkParentHandler.
func NewLinkParentHandler(store document.Store, clock Clock, eventPublisher shared.EventPublisher) *LinkParentHandler {
	return &LinkParentHandler{store: store, clock: clock, eventPublisher: eventPublisher}
}

// Handle executes the link parent command.
func (h *LinkParentHandler) Handle(ctx context.Context, cmd LinkParentCommand) (*LinkParentResult, error) {
	var result LinkParentResult
	err := h.store.Update(ctx, func(tx document.Tx) error {
		result = LinkParentResult{}

		parent, err := loadParent(tx, "roster", "LinkParent", cmd.ParentID)
		if err != nil {
			return err
		}
		allStudents, err := document.All[roster.Student](tx, document.Students)
		if err != nil {
			return err
		}
		allParents, err := document.All[roster.Parent](tx, document.Parents)
		if err != nil {
			return err
		}

		desired := roster.Dedupe(cmd.StudentIDs)
		wanted := make(map[string]bool, len(desired))
		for _, id := range desired {
			wanted[id] = true
		}

		// Every listed student plus every current child of this parent.
		students := make(map[string]*roster.Student)
		for _, id := range desired {
			s, ok := allStudents[id]
			if !ok {
				return shared.Errorf("roster", "LinkParent", shared.ErrNotFound, "student %q not found", id)
			}
			students[id] = &s
		}
		for id, s := range allStudents {
			if s.ParentID == parent.ID && !wanted[id] {
				students[id] = &s
			}
		}

		others := make(map[string]*roster.Parent)
		for _, id := range desired {
			prevID := students[id].ParentID
			if prevID == "" || prevID == parent.ID {
				continue
			}
			if p, ok := allParents[prevID]; ok {
				others[prevID] = &p
			}
		}

		res, err := roster.RelinkParent(parent, desired, students, others, cmd.Actor, h.clock.Now())
		if err != nil {
			return err
		}

		for _, s := range res.Students {
			if err := document.Put(tx, document.Students, s.ID, s); err != nil {
				return err
			}
		}
		for _, p := range res.FormerParents {
			if err := document.Put(tx, document.Parents, p.ID, p); err != nil {
				return err
			}
			result.FormerParents = append(result.FormerParents, p.ID)
		}
		if err := document.Put(tx, document.Parents, parent.ID, parent); err != nil {
			return err
		}

		result.Parent = parent
		result.Released = res.Released
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("link_parent: %w", err)
	}

	event := shared.NewParentLinkedEvent(result.Parent.ID, result.Parent.Children, result.Released, cmd.Actor)
	event.BaseEvent = event.WithCorrelationID(correlationID(cmd.CorrelationID))
	result.Events = []shared.Event{event}
	publishAll(h.eventPublisher, result.Events)

	return &result, nil
}
