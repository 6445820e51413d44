package notification

import (
	"context"
	"encoding/json"

	otellog "go.opentelemetry.io/otel/log"
	sdklog "go.opentelemetry.io/otel/sdk/log"
)

// recordEmitter is the subset of otellog.Logger the sink uses.
type recordEmitter interface {
	Emit(ctx context.Context, rec otellog.Record)
}

// LogSink emits each event as an OTel log record.
type LogSink struct {
	logger recordEmitter
}

// NewLogSink returns a sink backed by provider. A nil provider yields a sink that discards events.
func NewLogSink(provider *sdklog.LoggerProvider) *LogSink {
	if provider == nil {
		return &LogSink{}
	}
	return &LogSink{logger: provider.Logger("organizer.membership.notification")}
}

// NewLogSinkWithLogger returns a sink that emits to l.
func NewLogSinkWithLogger(l recordEmitter) *LogSink {
	return &LogSink{logger: l}
}

func (s *LogSink) Notify(ctx context.Context, event Event) error {
	if s.logger == nil {
		return nil
	}
	body, err := json.Marshal(event)
	if err != nil {
		return err
	}
	rec := otellog.Record{}
	rec.SetTimestamp(event.OccurredAt)
	rec.SetSeverity(otellog.SeverityInfo)
	rec.SetEventName(string(event.Type))
	rec.SetBody(otellog.BytesValue(body))
	rec.AddAttributes(
		otellog.String("event_type", string(event.Type)),
		otellog.String("organizer_id", event.OrganizerID),
		otellog.String("user_id", event.UserID),
		otellog.String("actor_id", event.ActorID),
	)
	s.logger.Emit(ctx, rec)
	return nil
}
