package audit

import (
	"context"
	"time"

	"github.com/platinummonkey/larder/pkg/contextkeys"
)

// Logger is the interface for audit sinks
type Logger interface {
	// Log logs an audit event
	Log(ctx context.Context, event *Event) error

	// Close closes the logger and flushes any buffered logs
	Close() error
}

// Searcher queries stored audit events
type Searcher interface {
	Search(ctx context.Context, filter SearchFilter) ([]*Event, error)
}

// NoOpLogger discards every event
type NoOpLogger struct{}

func (NoOpLogger) Log(ctx context.Context, event *Event) error { return nil }

func (NoOpLogger) Close() error { return nil }

// NewEvent creates an event populated from the request context
func NewEvent(ctx context.Context, eventType EventType, status EventStatus) *Event {
	return &Event{
		Timestamp: time.Now().UTC(),
		EventType: eventType,
		Status:    status,
		UserID:    contextkeys.GetUserID(ctx),
		IPAddress: contextkeys.GetClientIP(ctx),
		UserAgent: contextkeys.GetUserAgent(ctx),
		RequestID: contextkeys.GetRequestID(ctx),
		Metadata:  make(map[string]interface{}),
	}
}

// Recorder builds typed events and writes them to a Logger.
// Sink errors are reported to onError and never fail the caller.
type Recorder struct {
	logger  Logger
	onError func(error)
}

// NewRecorder creates a recorder; a nil logger discards events
func NewRecorder(logger Logger, onError func(error)) *Recorder {
	if logger == nil {
		logger = NoOpLogger{}
	}
	return &Recorder{logger: logger, onError: onError}
}

// Record writes a fully built event
func (r *Recorder) Record(ctx context.Context, event *Event) {
	if r == nil {
		return
	}
	if err := r.logger.Log(ctx, event); err != nil && r.onError != nil {
		r.onError(err)
	}
}

// Authentication records an account event for the given identity
func (r *Recorder) Authentication(ctx context.Context, eventType EventType, userID, email string, status EventStatus, message string) {
	if r == nil {
		return
	}
	event := NewEvent(ctx, eventType, status)
	if userID != "" {
		event.UserID = userID
	}
	event.Email = email
	event.ResourceType = ResourceTypeUser
	event.ResourceID = userID
	event.Message = message
	r.Record(ctx, event)
}

// Authorization records an access decision
func (r *Recorder) Authorization(ctx context.Context, eventType EventType, resourceType ResourceType, resourceID string, status EventStatus, message string) {
	if r == nil {
		return
	}
	event := NewEvent(ctx, eventType, status)
	event.ResourceType = resourceType
	event.ResourceID = resourceID
	event.Message = message
	r.Record(ctx, event)
}

// DataMutation records a successful write to an owned resource
func (r *Recorder) DataMutation(ctx context.Context, eventType EventType, userID string, resourceType ResourceType, resourceID, message string) {
	if r == nil {
		return
	}
	event := NewEvent(ctx, eventType, EventStatusSuccess)
	if userID != "" {
		event.UserID = userID
	}
	event.ResourceType = resourceType
	event.ResourceID = resourceID
	event.Message = message
	r.Record(ctx, event)
}
