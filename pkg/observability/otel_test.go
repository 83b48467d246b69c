package observability

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

func TestInitOTel_Disabled(t *testing.T) {
	logger := NewLogger(InfoLevel, &bytes.Buffer{})

	providers, err := InitOTel(context.Background(), OTelConfig{Enabled: false}, logger)

	assert.NoError(t, err)
	assert.Nil(t, providers)
}

func TestInitOTel_Enabled(t *testing.T) {
	logger := NewLogger(InfoLevel, &bytes.Buffer{})

	// OTLP exporters connect lazily, so creation succeeds without a collector
	providers, err := InitOTel(context.Background(), OTelConfig{
		Enabled:     true,
		Endpoint:    "localhost:4317",
		Insecure:    true,
		SampleRatio: 0.5,
	}, logger)
	require.NoError(t, err)
	require.NotNil(t, providers)
	assert.NotNil(t, providers.TracerProvider)
	assert.NotNil(t, providers.MeterProvider)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_ = providers.Shutdown(ctx)
}

func TestOTelProviders_Shutdown(t *testing.T) {
	var none *OTelProviders
	assert.NoError(t, none.Shutdown(context.Background()))
	assert.NoError(t, (&OTelProviders{}).Shutdown(context.Background()))
	assert.NoError(t, (&OTelProviders{
		TracerProvider: sdktrace.NewTracerProvider(),
	}).Shutdown(context.Background()))
}

func TestTraceSampler(t *testing.T) {
	assert.Equal(t, sdktrace.AlwaysSample().Description(), traceSampler(0).Description())
	assert.Equal(t, sdktrace.AlwaysSample().Description(), traceSampler(1).Description())
	assert.Contains(t, traceSampler(0.25).Description(), "TraceIDRatioBased")
}

func TestWithTraceIDs(t *testing.T) {
	t.Run("no span leaves logger untouched", func(t *testing.T) {
		logger := NewLogger(InfoLevel, &bytes.Buffer{})
		assert.Same(t, logger, withTraceIDs(context.Background(), logger))
	})

	t.Run("recording span adds ids", func(t *testing.T) {
		tp := sdktrace.NewTracerProvider()
		ctx, span := tp.Tracer("test").Start(context.Background(), "op")
		defer span.End()

		var buf bytes.Buffer
		withTraceIDs(ctx, NewLogger(InfoLevel, &buf)).Info("traced")

		var entry map[string]interface{}
		require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
		assert.Equal(t, span.SpanContext().TraceID().String(), entry["trace_id"])
		assert.Equal(t, span.SpanContext().SpanID().String(), entry["span_id"])
	})

	t.Run("non-recording span is ignored", func(t *testing.T) {
		tp := sdktrace.NewTracerProvider(sdktrace.WithSampler(sdktrace.NeverSample()))
		ctx, span := tp.Tracer("test").Start(context.Background(), "op")
		defer span.End()

		logger := NewLogger(InfoLevel, &bytes.Buffer{})
		assert.Same(t, logger, withTraceIDs(ctx, logger))
	})
}
