package audit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"

	"github.com/nexus-vita/session-service/internal/config"
	"github.com/nexus-vita/session-service/internal/events"
)

func TestRecordWithoutRedisDegradesToLogOnly(t *testing.T) {
	recorder := NewRecorder(nil, config.AuditConfig{Stream: "nv:audit", MaxStream: 100}, zap.NewNop())

	err := recorder.Record(context.Background(), events.Event{
		ID:        "1",
		Type:      events.EventLoginFailed,
		Timestamp: time.Now(),
		Payload:   events.LoginFailedPayload{Email: "ada@example.com", Reason: "wrong password"},
	})
	assert.NoError(t, err)
}

func TestRegisterHandlersSubscribesAllEventTypes(t *testing.T) {
	recorder := NewRecorder(nil, config.AuditConfig{Stream: "nv:audit"}, zap.NewNop())
	dispatcher := events.NewInMemoryDispatcher()
	recorder.RegisterHandlers(dispatcher)

	for _, eventType := range []events.EventType{
		events.EventAccountRegistered,
		events.EventLoginSucceeded,
		events.EventLoginFailed,
		events.EventSessionRejected,
		events.EventAccessDenied,
	} {
		err := dispatcher.Publish(context.Background(), events.Event{ID: "x", Type: eventType, Timestamp: time.Now()})
		assert.NoError(t, err)
	}
}
