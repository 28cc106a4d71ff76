package audit

import (
	"context"
	"encoding/json"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/nexus-vita/session-service/internal/config"
	"github.com/nexus-vita/session-service/internal/events"
)

// Recorder appends security events to a Redis stream. Write failures degrade
// to log-only so the audit channel never blocks or fails a request.
type Recorder struct {
	client *redis.Client
	logger *zap.Logger
	stream string
	maxLen int64
}

// NewRecorder builds a recorder writing to the configured stream.
func NewRecorder(client *redis.Client, cfg config.AuditConfig, logger *zap.Logger) *Recorder {
	return &Recorder{
		client: client,
		logger: logger,
		stream: cfg.Stream,
		maxLen: cfg.MaxStream,
	}
}

// RegisterHandlers subscribes the recorder to every security event type.
func (r *Recorder) RegisterHandlers(dispatcher events.Dispatcher) {
	for _, eventType := range []events.EventType{
		events.EventAccountRegistered,
		events.EventLoginSucceeded,
		events.EventLoginFailed,
		events.EventSessionRejected,
		events.EventAccessDenied,
	} {
		dispatcher.Subscribe(eventType, r.Record)
	}
}

// Record appends one event to the audit stream.
func (r *Recorder) Record(ctx context.Context, event events.Event) error {
	entry, err := json.Marshal(event)
	if err != nil {
		r.logger.Error("marshal audit event", zap.Error(err))
		return nil
	}

	if r.client == nil {
		r.logger.Info("audit", zap.ByteString("event", entry))
		return nil
	}

	err = r.client.XAdd(ctx, &redis.XAddArgs{
		Stream: r.stream,
		MaxLen: r.maxLen,
		Approx: true,
		Values: map[string]interface{}{
			"type":  string(event.Type),
			"event": entry,
		},
	}).Err()
	if err != nil {
		r.logger.Warn("audit stream write failed", zap.Error(err), zap.String("type", string(event.Type)))
	}
	return nil
}
