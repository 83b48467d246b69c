package audit

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockLogger records events in memory
type mockLogger struct {
	mu      sync.Mutex
	events  []*Event
	ctxErrs []error
	err     error
	closed  bool
}

func (m *mockLogger) Log(ctx context.Context, event *Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, event)
	m.ctxErrs = append(m.ctxErrs, ctx.Err())
	return m.err
}

func (m *mockLogger) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return m.err
}

func (m *mockLogger) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.events)
}

func testEvent() *Event {
	return &Event{
		Timestamp: time.Now(),
		EventType: EventTypeAuthLogin,
		Status:    EventStatusSuccess,
		Metadata:  make(map[string]interface{}),
	}
}

func TestMultiLogger_Log_Sync(t *testing.T) {
	logger1 := &mockLogger{}
	logger2 := &mockLogger{}

	multiLogger := NewMultiLogger(logger1, logger2)

	require.NoError(t, multiLogger.Log(context.Background(), testEvent()))

	assert.Equal(t, 1, logger1.count())
	assert.Equal(t, 1, logger2.count())
}

func TestMultiLogger_Log_SyncReturnsFirstError(t *testing.T) {
	failing := &mockLogger{err: errors.New("insert failed")}
	healthy := &mockLogger{}

	multiLogger := NewMultiLogger(failing, healthy)

	err := multiLogger.Log(context.Background(), testEvent())
	assert.EqualError(t, err, "insert failed")
	assert.Equal(t, 1, healthy.count(), "later sinks still receive the event")
}

func TestMultiLogger_Log_Async(t *testing.T) {
	logger1 := &mockLogger{}
	logger2 := &mockLogger{err: errors.New("down")}

	multiLogger := NewMultiLogger(logger1, logger2)
	multiLogger.SetAsync(true)

	var mu sync.Mutex
	var errs []error
	multiLogger.SetErrorHandler(func(err error) {
		mu.Lock()
		defer mu.Unlock()
		errs = append(errs, err)
	})

	require.NoError(t, multiLogger.Log(context.Background(), testEvent()))
	multiLogger.Wait()

	assert.Equal(t, 1, logger1.count())
	assert.Equal(t, 1, logger2.count())

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, errs, 1)
	assert.EqualError(t, errs[0], "down")
}

func TestMultiLogger_Log_AsyncWithoutErrorHandler(t *testing.T) {
	multiLogger := NewMultiLogger(&mockLogger{err: errors.New("down")})
	multiLogger.SetAsync(true)

	require.NoError(t, multiLogger.Log(context.Background(), testEvent()))
	multiLogger.Wait()
}

func TestMultiLogger_Log_AsyncDetachesCancellation(t *testing.T) {
	sink := &mockLogger{}
	multiLogger := NewMultiLogger(sink)
	multiLogger.SetAsync(true)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	require.NoError(t, multiLogger.Log(ctx, testEvent()))
	multiLogger.Wait()

	require.Len(t, sink.ctxErrs, 1)
	assert.NoError(t, sink.ctxErrs[0])
}

func TestMultiLogger_Empty(t *testing.T) {
	assert.NoError(t, NewMultiLogger().Log(context.Background(), testEvent()))
}

func TestMultiLogger_Close(t *testing.T) {
	logger1 := &mockLogger{}
	logger2 := &mockLogger{}

	multiLogger := NewMultiLogger(logger1, logger2)
	require.NoError(t, multiLogger.Close())

	assert.True(t, logger1.closed)
	assert.True(t, logger2.closed)

	failing := NewMultiLogger(&mockLogger{err: errors.New("flush")})
	assert.ErrorContains(t, failing.Close(), "failed to close logger")
}

type panicLogger struct{}

func (panicLogger) Log(ctx context.Context, event *Event) error { panic("sink exploded") }

func (panicLogger) Close() error { return nil }

func TestMultiLogger_Log_AsyncRecoversPanic(t *testing.T) {
	healthy := &mockLogger{}
	multiLogger := NewMultiLogger(panicLogger{}, healthy)
	multiLogger.SetAsync(true)

	assert.NotPanics(t, func() {
		require.NoError(t, multiLogger.Log(context.Background(), testEvent()))
		multiLogger.Wait()
	})
	assert.Equal(t, 1, healthy.count())
}
