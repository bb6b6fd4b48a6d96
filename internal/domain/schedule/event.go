// Package schedule содержит школьный календарь: праздники, экзамены,
// собрания и прочие события с видимостью по ролям.
package schedule

import (
	"slices"
	"sort"
	"strings"
	"time"

	"github.com/alem-hub/school-records/internal/domain/identity"
	"github.com/alem-hub/school-records/internal/domain/shared"
)

// EventIDPrefix - префикс ID событий (EVT0001).
const EventIDPrefix = "EVT"

// DefaultUpcomingLimit - сколько ближайших событий показывать по умолчанию.
const DefaultUpcomingLimit = 5

// TimeLayout - формат времени начала и конца (HH:MM).
const TimeLayout = "15:04"

// VisibleToAll открывает событие всем ролям.
const VisibleToAll = "all"

// Kind - вид события.
type Kind string

const (
	KindHoliday  Kind = "holiday"
	KindExam     Kind = "exam"
	KindMeeting  Kind = "meeting"
	KindActivity Kind = "activity"
	KindOther    Kind = "other"
)

// ParseKind нормализует вид события. Пустая строка даёт other.
func ParseKind(value string) (Kind, error) {
	k := Kind(strings.ToLower(strings.TrimSpace(value)))
	switch k {
	case "":
		return KindOther, nil
	case KindHoliday, KindExam, KindMeeting, KindActivity, KindOther:
		return k, nil
	}
	return "", shared.Errorf("schedule", "ParseKind", shared.ErrInvalidInput, "unknown event type %q", value)
}

// ParseVisibility проверяет список ролей. "all" или пустой список - событие
// видят все.
func ParseVisibility(values []string) ([]string, error) {
	out := make([]string, 0, len(values))
	for _, v := range values {
		v = strings.ToLower(strings.TrimSpace(v))
		if v == "" || slices.Contains(out, v) {
			continue
		}
		if v != VisibleToAll && !identity.Role(v).IsAssignable() {
			return nil, shared.Errorf("schedule", "ParseVisibility", shared.ErrInvalidRole, "invalid role %q in visibility", v)
		}
		out = append(out, v)
	}
	return out, nil
}

func parseClock(op, value string) (string, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return "", nil
	}
	t, err := time.Parse(TimeLayout, value)
	if err != nil {
		return "", shared.Errorf("schedule", op, shared.ErrInvalidFormat, "invalid time %q, expected HH:MM", value)
	}
	return t.Format(TimeLayout), nil
}

// Details - вводимые поля события. При правке пустое поле оставляет
// текущее значение, nil Visibility - текущую видимость.
type Details struct {
	Title       string
	Description string
	Kind        string
	StartDate   string
	StartTime   string
	EndDate     string
	EndTime     string
	Location    string
	Visibility  []string
}

// Event - запись школьного календаря.
type Event struct {
	ID          string      `json:"id"`
	Title       string      `json:"title"`
	Description string      `json:"description,omitempty"`
	Kind        Kind        `json:"event_type"`
	StartDate   shared.Date `json:"start_date"`
	StartTime   string      `json:"start_time,omitempty"`
	EndDate     shared.Date `json:"end_date"`
	EndTime     string      `json:"end_time,omitempty"`
	Location    string      `json:"location,omitempty"`
	Visibility  []string    `json:"visibility"`
	CreatedAt   time.Time   `json:"created_at"`
	CreatedBy   string      `json:"created_by"`
	ModifiedAt  time.Time   `json:"modified_at"`
	ModifiedBy  string      `json:"modified_by,omitempty"`
	IsCancelled bool        `json:"is_cancelled"`
	CancelledAt *time.Time  `json:"cancelled_at,omitempty"`
	CancelledBy string      `json:"cancelled_by,omitempty"`
}

// NewEvent создаёт событие. Без даты окончания событие однодневное.
func NewEvent(id string, d Details, actor string, now time.Time) (*Event, error) {
	e := &Event{
		ID:         id,
		Visibility: []string{},
		CreatedAt:  now,
		CreatedBy:  actor,
		ModifiedAt: now,
		ModifiedBy: actor,
	}
	if err := e.apply(d, "CreateEvent"); err != nil {
		return nil, err
	}
	if strings.TrimSpace(e.Title) == "" {
		return nil, shared.NewDomainError("schedule", "CreateEvent", shared.ErrInvalidInput, "event title is required")
	}
	if e.StartDate.IsZero() {
		return nil, shared.NewDomainError("schedule", "CreateEvent", shared.ErrInvalidInput, "event start date is required")
	}
	if e.EndDate.IsZero() {
		e.EndDate = e.StartDate
	}
	return e, nil
}

// Update правит событие. Отменённое событие не меняется.
func (e *Event) Update(d Details, actor string, now time.Time) error {
	if e.IsCancelled {
		return shared.ErrEventCancelled
	}
	next := *e
	if err := next.apply(d, "UpdateEvent"); err != nil {
		return err
	}
	next.ModifiedAt = now
	next.ModifiedBy = actor
	*e = next
	return nil
}

// Cancel отменяет событие. Повторная отмена - ошибка состояния.
func (e *Event) Cancel(actor string, now time.Time) error {
	if e.IsCancelled {
		return shared.Errorf("schedule", "CancelEvent", shared.ErrInvalidState, "event %s is already cancelled", e.ID)
	}
	e.IsCancelled = true
	e.CancelledAt = &now
	e.CancelledBy = actor
	return nil
}

// apply переносит непустые поля d. Даты и время проверяются до записи.
func (e *Event) apply(d Details, op string) error {
	set := func(dst *string, v string) {
		if v = strings.TrimSpace(v); v != "" {
			*dst = v
		}
	}
	set(&e.Title, d.Title)
	set(&e.Description, d.Description)
	set(&e.Location, d.Location)

	if strings.TrimSpace(d.Kind) != "" {
		k, err := ParseKind(d.Kind)
		if err != nil {
			return err
		}
		e.Kind = k
	} else if e.Kind == "" {
		e.Kind = KindOther
	}

	for _, f := range []struct {
		dst *shared.Date
		v   string
	}{{&e.StartDate, d.StartDate}, {&e.EndDate, d.EndDate}} {
		if strings.TrimSpace(f.v) == "" {
			continue
		}
		date, err := shared.ParseDate(f.v)
		if err != nil {
			return err
		}
		*f.dst = date
	}
	for _, f := range []struct {
		dst *string
		v   string
	}{{&e.StartTime, d.StartTime}, {&e.EndTime, d.EndTime}} {
		clock, err := parseClock(op, f.v)
		if err != nil {
			return err
		}
		if clock != "" {
			*f.dst = clock
		}
	}

	if d.Visibility != nil {
		v, err := ParseVisibility(d.Visibility)
		if err != nil {
			return err
		}
		e.Visibility = v
	}
	return nil
}

// VisibleTo возвращает true, если роль видит событие.
func (e *Event) VisibleTo(role identity.Role) bool {
	if len(e.Visibility) == 0 || slices.Contains(e.Visibility, VisibleToAll) {
		return true
	}
	return slices.Contains(e.Visibility, string(role))
}

// ══════════════════════════════════════════════════════════════════════════════
// LISTS
// ══════════════════════════════════════════════════════════════════════════════

// Sort упорядочивает события по дате и времени начала, затем по ID.
func Sort(events []Event) {
	sort.SliceStable(events, func(i, j int) bool {
		a, b := events[i], events[j]
		if a.StartDate != b.StartDate {
			return a.StartDate < b.StartDate
		}
		if a.StartTime != b.StartTime {
			return a.StartTime < b.StartTime
		}
		return a.ID < b.ID
	})
}

// Active возвращает неотменённые события в порядке Sort.
func Active(events []Event) []Event {
	out := make([]Event, 0, len(events))
	for _, e := range events {
		if !e.IsCancelled {
			out = append(out, e)
		}
	}
	Sort(out)
	return out
}

// Upcoming возвращает до limit активных событий, которые начинаются не
// раньше today и видны роли. limit <= 0 означает DefaultUpcomingLimit.
func Upcoming(events []Event, role identity.Role, today shared.Date, limit int) []Event {
	if limit <= 0 {
		limit = DefaultUpcomingLimit
	}
	out := make([]Event, 0, limit)
	for _, e := range Active(events) {
		if e.StartDate.Before(today) || !e.VisibleTo(role) {
			continue
		}
		out = append(out, e)
		if len(out) == limit {
			break
		}
	}
	return out
}
