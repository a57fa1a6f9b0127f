// Package otel publishes engine counters as OpenTelemetry observable
// instruments. The caller owns the MeterProvider; see internal/telemetry for
// the OTLP wiring used by the server.
package otel
