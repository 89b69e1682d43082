package telemetry

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"
)

func TestInitDisabledIsNoop(t *testing.T) {
	shutdown, err := Init(context.Background(), Settings{})
	require.NoError(t, err)
	require.NoError(t, shutdown(context.Background()))
}

func TestNewProviderSetsServiceName(t *testing.T) {
	rec := tracetest.NewSpanRecorder()
	tp, err := NewProvider(context.Background(), Settings{ServiceName: "hiremind-test", Version: "1.2.3"}, sdktrace.WithSpanProcessor(rec))
	require.NoError(t, err)
	_, span := tp.Tracer("t").Start(context.Background(), "op")
	span.End()
	require.NoError(t, tp.Shutdown(context.Background()))

	spans := rec.Ended()
	require.Len(t, spans, 1)
	attrs := spans[0].Resource().Attributes()
	assert.Contains(t, attrs, semconv.ServiceName("hiremind-test"))
	assert.Contains(t, attrs, semconv.ServiceVersion("1.2.3"))
}

func TestPropagatorFields(t *testing.T) {
	assert.ElementsMatch(t, []string{"traceparent", "tracestate", "baggage"}, Propagator().Fields())
}
