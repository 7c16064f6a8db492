// Package otel provides OpenTelemetry instrumentation for Planwright.
// Tracing setup is a stub until an OTLP collector is deployed alongside
// the service; spans and metrics are recorded through the global providers.
package otel

import (
	"context"
	"log/slog"
)

// ShutdownFunc is called to flush and shut down the trace provider.
type ShutdownFunc func(ctx context.Context) error

// InitTracer returns a no-op shutdown function. When an OTLP endpoint is
// available this is where the exporter and TracerProvider get wired.
func InitTracer(serviceName string) ShutdownFunc {
	slog.Info("otel stub: InitTracer called", "service", serviceName)
	return func(_ context.Context) error {
		slog.Info("otel stub: shutdown called")
		return nil
	}
}
