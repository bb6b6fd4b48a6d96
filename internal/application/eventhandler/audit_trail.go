// Package eventhandler содержит обработчики доменных событий.
package eventhandler

import (
	"context"
	"log/slog"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/alem-hub/school-records/internal/domain/shared"
	"github.com/alem-hub/school-records/pkg/logger"
)

// ═══════════════════════════════════════════════════════════════════════════
// AUDIT TRAIL HANDLER
// Записывает каждое доменное событие в журнал.
//
// Событие попадает в slog всегда, а если настроен файл аудита
// (LOG_AUDIT_FILE), то ещё и строкой JSON в этот файл. Пароли в событиях
// не передаются, поэтому журнал можно хранить как есть.
// ═══════════════════════════════════════════════════════════════════════════

// AuditTrailHandler журналирует доменные события.
type AuditTrailHandler struct {
	logger *slog.Logger
	sink   *logger.Logger
	config AuditTrailConfig

	written atomic.Int64
}

// AuditTrailConfig содержит конфигурацию обработчика.
type AuditTrailConfig struct {
	// IncludePayload: писать ли данные события в slog (в файл пишутся всегда).
	IncludePayload bool

	// Level: уровень slog для записей аудита.
	Level slog.Level
}

// DefaultAuditTrailConfig возвращает конфигурацию по умолчанию.
func DefaultAuditTrailConfig() AuditTrailConfig {
	return AuditTrailConfig{
		IncludePayload: false,
		Level:          slog.LevelInfo,
	}
}

// NewAuditTrailHandler создаёт обработчик. sink может быть nil.
func NewAuditTrailHandler(log *slog.Logger, sink *logger.Logger, config AuditTrailConfig) *AuditTrailHandler {
	if log == nil {
		log = slog.Default()
	}
	return &AuditTrailHandler{
		logger: log.With("handler", "audit_trail"),
		sink:   sink,
		config: config,
	}
}

// Handle записывает событие. Реализует shared.EventHandler.
func (h *AuditTrailHandler) Handle(event shared.Event) error {
	env, err := shared.NewEventEnvelope(uuid.NewString(), event)
	if err != nil {
		h.logger.Warn("cannot serialize event",
			"event_type", event.EventType(),
			"error", err,
		)
		return err
	}

	attrs := []any{
		"event_id", env.ID,
		"event_type", env.Type,
		"aggregate_id", env.AggregateID,
		"actor", env.Actor,
		"correlation_id", env.CorrelationID,
	}
	if h.config.IncludePayload {
		attrs = append(attrs, "payload", string(env.Payload))
	}
	h.logger.Log(context.Background(), h.config.Level, "domain event", attrs...)

	if h.sink != nil {
		h.sink.WithCorrelationID(env.CorrelationID).Info("domain event",
			logger.EventType(string(env.Type)),
			logger.String("event_id", env.ID),
			logger.String("aggregate_id", env.AggregateID),
			logger.Actor(env.Actor),
			logger.Time("occurred_at", env.Timestamp),
			logger.Any("payload", env.Payload),
		)
	}

	h.written.Add(1)
	return nil
}

// Written возвращает число записанных событий.
func (h *AuditTrailHandler) Written() int64 {
	return h.written.Load()
}

// Register подписывает обработчик на все события шины.
func (h *AuditTrailHandler) Register(bus shared.EventSubscriber) error {
	return bus.SubscribeAll(h.Handle)
}
