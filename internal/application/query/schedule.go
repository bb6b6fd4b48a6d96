package query

import (
	"context"
	"fmt"

	"github.com/alem-hub/school-records/internal/domain/document"
	"github.com/alem-hub/school-records/internal/domain/identity"
	"github.com/alem-hub/school-records/internal/domain/schedule"
	"github.com/alem-hub/school-records/internal/domain/shared"
)

// ScheduleQueryHandler читает школьный календарь.
type ScheduleQueryHandler struct {
	store document.Store
	clock Clock
}

// NewScheduleQueryHandler создаёт новый обработчик.
func NewScheduleQueryHandler(store document.Store, clock Clock) *ScheduleQueryHandler {
	return &ScheduleQueryHandler{store: store, clock: clock}
}

// Events возвращает все неотменённые события по дате начала.
func (h *ScheduleQueryHandler) Events(ctx context.Context) ([]schedule.Event, error) {
	all, err := h.load(ctx)
	if err != nil {
		return nil, fmt.Errorf("list_events: %w", err)
	}
	return schedule.Active(all), nil
}

// Event возвращает событие по ID, в том числе отменённое.
func (h *ScheduleQueryHandler) Event(ctx context.Context, id string) (*schedule.Event, error) {
	var (
		e  schedule.Event
		ok bool
	)
	err := h.store.View(ctx, func(tx document.Tx) error {
		var err error
		e, ok, err = document.Find[schedule.Event](tx, document.Events, id)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("get_event: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("get_event %s: %w", id, shared.ErrEventNotFound)
	}
	return &e, nil
}

// Upcoming возвращает ближайшие события, видимые роли, начиная с сегодня.
func (h *ScheduleQueryHandler) Upcoming(ctx context.Context, role identity.Role, limit int) ([]schedule.Event, error) {
	all, err := h.load(ctx)
	if err != nil {
		return nil, fmt.Errorf("upcoming_events: %w", err)
	}
	return schedule.Upcoming(all, role, today(h.clock), limit), nil
}

func (h *ScheduleQueryHandler) load(ctx context.Context) ([]schedule.Event, error) {
	var out []schedule.Event
	err := h.store.View(ctx, func(tx document.Tx) error {
		all, err := document.All[schedule.Event](tx, document.Events)
		if err != nil {
			return err
		}
		out = make([]schedule.Event, 0, len(all))
		for _, id := range document.SortedKeys(all) {
			out = append(out, all[id])
		}
		return nil
	})
	return out, err
}
