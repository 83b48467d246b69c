package audit

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/platinummonkey/larder/pkg/contextkeys"
	"github.com/platinummonkey/larder/pkg/observability"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func requestContext() context.Context {
	ctx := contextkeys.WithRequestID(context.Background(), "req-1")
	ctx = contextkeys.WithClientIP(ctx, "203.0.113.9")
	ctx = contextkeys.WithUserAgent(ctx, "curl/8")
	return contextkeys.WithUserID(ctx, "u-ctx")
}

func TestNewEvent_FromContext(t *testing.T) {
	event := NewEvent(requestContext(), EventTypeAuthLogout, EventStatusSuccess)

	assert.Equal(t, EventTypeAuthLogout, event.EventType)
	assert.Equal(t, EventStatusSuccess, event.Status)
	assert.Equal(t, "u-ctx", event.UserID)
	assert.Equal(t, "203.0.113.9", event.IPAddress)
	assert.Equal(t, "curl/8", event.UserAgent)
	assert.Equal(t, "req-1", event.RequestID)
	assert.False(t, event.Timestamp.IsZero())
}

func TestRecorder_Authentication(t *testing.T) {
	sink := &mockLogger{}
	recorder := NewRecorder(sink, nil)

	recorder.Authentication(requestContext(), EventTypeAuthLogin, "u-1", "a@x.io", EventStatusSuccess, "logged in")

	require.Len(t, sink.events, 1)
	event := sink.events[0]
	assert.Equal(t, "u-1", event.UserID, "explicit user wins over context")
	assert.Equal(t, "a@x.io", event.Email)
	assert.Equal(t, ResourceTypeUser, event.ResourceType)
	assert.Equal(t, "u-1", event.ResourceID)
	assert.Equal(t, "logged in", event.Message)
}

func TestRecorder_AuthenticationUnknownUser(t *testing.T) {
	sink := &mockLogger{}
	NewRecorder(sink, nil).Authentication(context.Background(), EventTypeAuthLoginFailed, "", "ghost@x.io", EventStatusFailure, "invalid credentials")

	require.Len(t, sink.events, 1)
	assert.Empty(t, sink.events[0].UserID)
	assert.Equal(t, "ghost@x.io", sink.events[0].Email)
}

func TestRecorder_AuthorizationAndMutation(t *testing.T) {
	sink := &mockLogger{}
	recorder := NewRecorder(sink, nil)

	recorder.Authorization(requestContext(), EventTypeAuthzAccessDenied, ResourceTypeRecipe, "r-1", EventStatusDenied, "not the owner")
	recorder.DataMutation(context.Background(), EventTypeDataRecipeDelete, "u-2", ResourceTypeRecipe, "r-1", "deleted")

	require.Len(t, sink.events, 2)
	assert.Equal(t, EventStatusDenied, sink.events[0].Status)
	assert.Equal(t, "u-ctx", sink.events[0].UserID)
	assert.Equal(t, EventStatusSuccess, sink.events[1].Status)
	assert.Equal(t, "u-2", sink.events[1].UserID)
}

func TestRecorder_SinkErrorsReported(t *testing.T) {
	var reported error
	recorder := NewRecorder(&mockLogger{err: errors.New("db down")}, func(err error) { reported = err })

	recorder.Record(context.Background(), testEvent())
	assert.EqualError(t, reported, "db down")
}

func TestRecorder_NilSafe(t *testing.T) {
	var recorder *Recorder
	assert.NotPanics(t, func() {
		recorder.Record(context.Background(), testEvent())
		recorder.Authentication(context.Background(), EventTypeAuthLogin, "", "", EventStatusSuccess, "")
		recorder.Authorization(context.Background(), EventTypeAuthzAccessDenied, ResourceTypeRecipe, "", EventStatusDenied, "")
		recorder.DataMutation(context.Background(), EventTypeDataRecipeCreate, "", ResourceTypeRecipe, "", "")
	})

	assert.NotPanics(t, func() {
		NewRecorder(nil, nil).Record(context.Background(), testEvent())
	})
}

func TestLogLogger(t *testing.T) {
	var buf bytes.Buffer
	sink := NewLogLogger(observability.NewLogger(observability.InfoLevel, &buf))

	event := NewEvent(requestContext(), EventTypeAuthzAccessDenied, EventStatusDenied)
	event.ResourceType = ResourceTypeRecipe
	event.ResourceID = "r-9"
	event.Metadata["route"] = "/api/recipes/{id}"

	require.NoError(t, sink.Log(context.Background(), event))
	require.NoError(t, sink.Close())

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "WARN", entry["level"])
	assert.Equal(t, "authz.access_denied", entry["msg"])
	assert.Equal(t, "audit", entry["component"])
	assert.Equal(t, "r-9", entry["resource_id"])
	assert.Equal(t, "req-1", entry["request_id"])
	assert.NotContains(t, entry, "email")
}

func TestNoOpLogger(t *testing.T) {
	var l Logger = NoOpLogger{}
	assert.NoError(t, l.Log(context.Background(), testEvent()))
	assert.NoError(t, l.Close())
}
