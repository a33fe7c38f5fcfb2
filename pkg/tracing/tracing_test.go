package tracing_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"

	"agenda/pkg/tracing"
)

func TestStart(t *testing.T) {
	t.Run("should install provider without exporter", func(t *testing.T) {
		tp, err := tracing.Start("agenda-test", "")

		require.NoError(t, err)
		require.NotNil(t, tp)
		assert.Equal(t, tp, otel.GetTracerProvider())

		_, span := otel.Tracer("test").Start(context.Background(), "op")
		span.End()

		assert.NoError(t, tracing.Shutdown(tp, time.Second))
	})

	t.Run("should install provider with jaeger exporter", func(t *testing.T) {
		tp, err := tracing.Start("agenda-test", "http://localhost:14268/api/traces")

		require.NoError(t, err)
		require.NotNil(t, tp)
		// nothing was recorded, so the flush does not reach the collector
		assert.NoError(t, tracing.Shutdown(tp, time.Second))
	})
}
