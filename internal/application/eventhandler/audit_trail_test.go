package eventhandler

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alem-hub/school-records/internal/domain/shared"
	"github.com/alem-hub/school-records/internal/infrastructure/messaging"
	"github.com/alem-hub/school-records/pkg/logger"
)

func TestAuditTrailHandler_WritesSlogAndSink(t *testing.T) {
	var slogBuf, sinkBuf bytes.Buffer
	log := slog.New(slog.NewJSONHandler(&slogBuf, nil))
	sink := logger.New(logger.Options{Output: &sinkBuf, Level: logger.LevelInfo})

	h := NewAuditTrailHandler(log, sink, AuditTrailConfig{IncludePayload: true, Level: slog.LevelInfo})

	event := shared.NewRoleChangedEvent("u-1", "jane", "pending", "teacher", "admin")
	event.BaseEvent = event.WithCorrelationID("corr-1")
	require.NoError(t, h.Handle(event))
	assert.EqualValues(t, 1, h.Written())

	var rec map[string]any
	require.NoError(t, json.Unmarshal(slogBuf.Bytes(), &rec))
	assert.Equal(t, "domain event", rec["msg"])
	assert.Equal(t, "audit_trail", rec["handler"])
	assert.Equal(t, string(shared.EventRoleChanged), rec["event_type"])
	assert.Equal(t, "admin", rec["actor"])
	assert.Equal(t, "corr-1", rec["correlation_id"])
	assert.Contains(t, rec["payload"], `"new_role":"teacher"`)

	var entry logger.LogEntry
	require.NoError(t, json.Unmarshal(sinkBuf.Bytes(), &entry))
	assert.Equal(t, "domain event", entry.Message)
	assert.Equal(t, "corr-1", entry.Fields[logger.CorrelationIDKey])
	assert.Equal(t, "u-1", entry.Fields["aggregate_id"])
	payload, ok := entry.Fields["payload"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "jane", payload["username"])
}

func TestAuditTrailHandler_WithoutSink(t *testing.T) {
	var buf bytes.Buffer
	h := NewAuditTrailHandler(slog.New(slog.NewTextHandler(&buf, nil)), nil, DefaultAuditTrailConfig())

	require.NoError(t, h.Handle(shared.NewCourseCreatedEvent("CRS0001", "Math", "MATH", "admin")))
	assert.Contains(t, buf.String(), "event_type="+string(shared.EventCourseCreated))
	assert.NotContains(t, buf.String(), "payload=")
}

func TestAuditTrailHandler_RegisteredOnBus(t *testing.T) {
	bus := messaging.NewInMemoryEventBus(messaging.DefaultInMemoryEventBusConfig())
	defer bus.Close()

	var buf bytes.Buffer
	h := NewAuditTrailHandler(slog.New(slog.NewTextHandler(&buf, nil)), nil, DefaultAuditTrailConfig())
	require.NoError(t, h.Register(bus))

	require.NoError(t, bus.Publish(shared.NewStudentEnrolledEvent("S1", "CRS0001", "admin")))
	require.NoError(t, bus.Publish(shared.NewStudentUnenrolledEvent("S1", "CRS0001", "admin")))
	assert.EqualValues(t, 2, h.Written())
}
