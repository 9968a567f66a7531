// Package telemetry groups the observability packages.
//
// logging configures slog with credential redaction and request context,
// metrics exposes Prometheus collectors for lookups, cache, and research,
// health aggregates readiness checks, and tracing installs the
// OpenTelemetry provider.
package telemetry
