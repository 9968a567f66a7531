// Package tracing installs the OpenTelemetry tracer provider.
//
// Library packages create spans through otel.Tracer with their own
// instrumentation name; they record nothing until New installs an SDK
// provider. HTTPMiddleware continues W3C trace context from incoming
// requests.
package tracing
