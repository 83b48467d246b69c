package audit

import (
	"context"

	"github.com/platinummonkey/larder/pkg/observability"
)

// LogLogger writes audit events as structured log lines.
// It is the default sink when no audit database is configured.
type LogLogger struct {
	logger *observability.Logger
}

// NewLogLogger creates a log-backed audit sink
func NewLogLogger(logger *observability.Logger) *LogLogger {
	return &LogLogger{logger: logger.WithField("component", "audit")}
}

// Log writes one line per event; denied and failed events log at warn
func (l *LogLogger) Log(ctx context.Context, event *Event) error {
	fields := map[string]interface{}{
		"event_type": string(event.EventType),
		"status":     string(event.Status),
		"timestamp":  event.Timestamp,
	}
	setIf(fields, "user_id", event.UserID)
	setIf(fields, "email", event.Email)
	setIf(fields, "resource_type", string(event.ResourceType))
	setIf(fields, "resource_id", event.ResourceID)
	setIf(fields, "ip_address", event.IPAddress)
	setIf(fields, "user_agent", event.UserAgent)
	setIf(fields, "request_id", event.RequestID)
	setIf(fields, "error_message", event.ErrorMessage)
	if len(event.Metadata) > 0 {
		fields["metadata"] = event.Metadata
	}

	entry := l.logger.WithFields(fields)
	msg := event.Message
	if msg == "" {
		msg = string(event.EventType)
	}

	if event.Status == EventStatusSuccess {
		entry.Info(msg)
	} else {
		entry.Warn(msg)
	}
	return nil
}

// Close is a no-op
func (l *LogLogger) Close() error {
	return nil
}

func setIf(fields map[string]interface{}, key, value string) {
	if value != "" {
		fields[key] = value
	}
}
