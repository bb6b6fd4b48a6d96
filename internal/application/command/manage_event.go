package command

import (
	"context"
	"fmt"

	"github.com/alem-hub/school-records/internal/application/validation"
	"github.com/alem-hub/school-records/internal/domain/document"
	"github.com/alem-hub/school-records/internal/domain/schedule"
	"github.com/alem-hub/school-records/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// SCHEDULE COMMANDS
// Administrators keep the school calendar. Cancelled events stay in the
// store but are frozen and hidden from listings.
// ══════════════════════════════════════════════════════════════════════════════

// EventDetails are the editable fields of a calendar event.
type EventDetails struct {
	Title       string   `json:"title" validate:"omitempty,notblank,max=128"`
	Description string   `json:"description" validate:"max=1024"`
	Type        string   `json:"event_type"`
	StartDate   string   `json:"start_date" validate:"omitempty,isodate"`
	StartTime   string   `json:"start_time"`
	EndDate     string   `json:"end_date" validate:"omitempty,isodate"`
	EndTime     string   `json:"end_time"`
	Location    string   `json:"location" validate:"max=128"`
	Visibility  []string `json:"visibility"`
}

func (d EventDetails) domain() schedule.Details {
	return schedule.Details{
		Title:       d.Title,
		Description: d.Description,
		Kind:        d.Type,
		StartDate:   d.StartDate,
		StartTime:   d.StartTime,
		EndDate:     d.EndDate,
		EndTime:     d.EndTime,
		Location:    d.Location,
		Visibility:  d.Visibility,
	}
}

// ScheduleEventCommand creates a calendar event.
type ScheduleEventCommand struct {
	Actor   string       `json:"actor"`
	Details EventDetails `json:"details"`

	// CorrelationID for tracing.
	CorrelationID string `json:"-"`
}

// Validate validates the command.
func (c ScheduleEventCommand) Validate() error {
	return validation.Struct("schedule", "CreateEvent", c)
}

// EditEventCommand changes the non-blank fields of an event.
type EditEventCommand struct {
	Actor   string       `json:"actor"`
	EventID string       `json:"event_id" validate:"required"`
	Details EventDetails `json:"details"`

	// CorrelationID for tracing.
	CorrelationID string `json:"-"`
}

// Validate validates the command.
func (c EditEventCommand) Validate() error {
	return validation.Struct("schedule", "UpdateEvent", c)
}

// CancelEventCommand identifies the event to cancel.
type CancelEventCommand struct {
	Actor   string
	EventID string

	// CorrelationID for tracing.
	CorrelationID string
}

// ScheduleResult contains the stored event.
type ScheduleResult struct {
	Event *schedule.Event

	// Events contains domain events generated.
	Events []shared.Event
}

// ScheduleHandler handles create, edit and cancel.
type ScheduleHandler struct {
	store          document.Store
	clock          Clock
	eventPublisher shared.EventPublisher
}

// NewScheduleHandler creates a new ScheduleHandler.
func NewScheduleHandler(store document.Store, clock Clock, eventPublisher shared.EventPublisher) *ScheduleHandler {
	return &ScheduleHandler{store: store, clock: clock, eventPublisher: eventPublisher}
}

// Create adds an event to the calendar.
func (h *ScheduleHandler) Create(ctx context.Context, cmd ScheduleEventCommand) (*ScheduleResult, error) {
	if err := cmd.Validate(); err != nil {
		return nil, fmt.Errorf("create_event: validation failed: %w", err)
	}

	var event *schedule.Event
	err := h.store.Update(ctx, func(tx document.Tx) error {
		if _, err := requireAdmin(tx, cmd.Actor); err != nil {
			return err
		}
		id, err := document.NextID(tx, document.Events, schedule.EventIDPrefix)
		if err != nil {
			return err
		}
		event, err = schedule.NewEvent(id, cmd.Details.domain(), cmd.Actor, h.clock.Now())
		if err != nil {
			return err
		}
		return document.Put(tx, document.Events, event.ID, event)
	})
	if err != nil {
		return nil, fmt.Errorf("create_event: %w", err)
	}

	return h.done(event, shared.NewEventScheduledEvent(event.ID, event.Title, event.StartDate.String(), cmd.Actor), cmd.CorrelationID), nil
}

// Edit changes an active event.
func (h *ScheduleHandler) Edit(ctx context.Context, cmd EditEventCommand) (*ScheduleResult, error) {
	if err := cmd.Validate(); err != nil {
		return nil, fmt.Errorf("update_event: validation failed: %w", err)
	}

	var event *schedule.Event
	err := h.store.Update(ctx, func(tx document.Tx) error {
		if _, err := requireAdmin(tx, cmd.Actor); err != nil {
			return err
		}
		e, err := loadEvent(tx, cmd.EventID)
		if err != nil {
			return err
		}
		if err := e.Update(cmd.Details.domain(), cmd.Actor, h.clock.Now()); err != nil {
			return err
		}
		event = e
		return document.Put(tx, document.Events, e.ID, e)
	})
	if err != nil {
		return nil, fmt.Errorf("update_event: %w", err)
	}

	return h.done(event, shared.NewEventRescheduledEvent(event.ID, event.Title, event.StartDate.String(), cmd.Actor), cmd.CorrelationID), nil
}

// Cancel marks an event cancelled.
func (h *ScheduleHandler) Cancel(ctx context.Context, cmd CancelEventCommand) (*ScheduleResult, error) {
	var event *schedule.Event
	err := h.store.Update(ctx, func(tx document.Tx) error {
		if _, err := requireAdmin(tx, cmd.Actor); err != nil {
			return err
		}
		e, err := loadEvent(tx, cmd.EventID)
		if err != nil {
			return err
		}
		if err := e.Cancel(cmd.Actor, h.clock.Now()); err != nil {
			return err
		}
		event = e
		return document.Put(tx, document.Events, e.ID, e)
	})
	if err != nil {
		return nil, fmt.Errorf("cancel_event: %w", err)
	}

	return h.done(event, shared.NewEventCancelledEvent(event.ID, event.Title, event.StartDate.String(), cmd.Actor), cmd.CorrelationID), nil
}

func (h *ScheduleHandler) done(e *schedule.Event, ev shared.ScheduleEvent, corrID string) *ScheduleResult {
	ev.BaseEvent = ev.WithCorrelationID(correlationID(corrID))
	result := &ScheduleResult{Event: e, Events: []shared.Event{ev}}
	publishAll(h.eventPublisher, result.Events)
	return result
}

func loadEvent(tx document.Tx, id string) (*schedule.Event, error) {
	e, ok, err := document.Find[schedule.Event](tx, document.Events, id)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, shared.Errorf("schedule", "FindEvent", shared.ErrNotFound, "event %q not found", id)
	}
	return &e, nil
}
