package tracing

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

func TestInitTracer_DisabledStillPropagates(t *testing.T) {
	shutdown, err := InitTracer(context.Background(), Config{ServiceName: "storefront"})
	require.NoError(t, err)
	assert.NoError(t, shutdown(context.Background()))

	assert.Contains(t, otel.GetTextMapPropagator().Fields(), "traceparent")
	assert.Contains(t, otel.GetTextMapPropagator().Fields(), "baggage")
}

func TestInitTracer_Enabled(t *testing.T) {
	// Export is batched, so an unroutable collector only fails at flush.
	shutdown, err := InitTracer(context.Background(), Config{
		ServiceName:    "storefront",
		ServiceVersion: "test",
		Environment:    "test",
		OTLPEndpoint:   "127.0.0.1:0",
		SampleRate:     1,
		Enabled:        true,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = shutdown(context.Background()) })

	assert.IsType(t, &sdktrace.TracerProvider{}, otel.GetTracerProvider())
}

func TestSampler(t *testing.T) {
	tests := map[float64]string{
		1:    "ParentBased{root:AlwaysOnSampler",
		3:    "ParentBased{root:AlwaysOnSampler",
		0:    "ParentBased{root:AlwaysOffSampler",
		-0.5: "ParentBased{root:AlwaysOffSampler",
		0.25: "ParentBased{root:TraceIDRatioBased{0.25}",
	}
	for rate, prefix := range tests {
		assert.Contains(t, Sampler(rate).Description(), prefix, "rate %v", rate)
	}
}
