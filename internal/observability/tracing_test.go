package observability

import (
	"context"
	"errors"
	"testing"

	"deepthoughts/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

func TestInitTracing_Disabled(t *testing.T) {
	shutdown, err := InitTracing(context.Background(), &config.Config{Env: "test"}, "test")
	require.NoError(t, err)
	assert.NoError(t, shutdown(context.Background()))

	_, span := StartOperation(context.Background(), "thoughts")
	assert.False(t, span.SpanContext().IsSampled())
	span.End()
}

func TestInitTracing_Stdout(t *testing.T) {
	cfg := &config.Config{
		Env:             "test",
		TracingEnabled:  true,
		TracingExporter: config.TracingExporterStdout,
		TracingSampler:  1,
	}
	shutdown, err := InitTracing(context.Background(), cfg, "test")
	require.NoError(t, err)
	t.Cleanup(func() { _ = shutdown(context.Background()) })

	ctx, span := StartStoreSpan(context.Background(), "FindUsers", "users")
	assert.True(t, span.SpanContext().IsSampled())
	EndSpan(span, errors.New("boom"))
	assert.NotNil(t, ctx)
}

func TestInitTracing_UnknownExporter(t *testing.T) {
	cfg := &config.Config{TracingEnabled: true, TracingExporter: "jaeger"}
	_, err := InitTracing(context.Background(), cfg, "test")
	assert.Error(t, err)
}

func TestSampler(t *testing.T) {
	tests := []struct {
		ratio    float64
		expected string
	}{
		{1, sdktrace.AlwaysSample().Description()},
		{2, sdktrace.AlwaysSample().Description()},
		{0, sdktrace.ParentBased(sdktrace.NeverSample()).Description()},
		{0.5, sdktrace.ParentBased(sdktrace.TraceIDRatioBased(0.5)).Description()},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, sampler(tt.ratio).Description())
	}
}
