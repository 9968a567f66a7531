package tracing

import (
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Attribute keys shared by sentinel spans.
const (
	KeyProductKey     = attribute.Key("sentinel.product.key")
	KeyLookupSource   = attribute.Key("sentinel.lookup.source")
	KeyBackend        = attribute.Key("sentinel.research.backend")
	KeyTaskID         = attribute.Key("sentinel.research.task_id")
	KeyTaskStatus     = attribute.Key("sentinel.research.status")
	KeyFailureReason  = attribute.Key("sentinel.research.reason")
	KeyForcedRefresh  = attribute.Key("sentinel.lookup.forced")
	KeyCorrectedItems = attribute.Key("sentinel.truth.corrections")
)

// LookupAttributes describes a coordinator lookup.
func LookupAttributes(productKey, source string, forced bool) []attribute.KeyValue {
	return []attribute.KeyValue{
		KeyProductKey.String(productKey),
		KeyLookupSource.String(source),
		KeyForcedRefresh.Bool(forced),
	}
}

// ResearchAttributes describes a research run outcome.
func ResearchAttributes(backend, taskID, status, reason string) []attribute.KeyValue {
	attrs := []attribute.KeyValue{
		KeyBackend.String(backend),
		KeyTaskStatus.String(status),
	}
	if taskID != "" {
		attrs = append(attrs, KeyTaskID.String(taskID))
	}
	if reason != "" {
		attrs = append(attrs, KeyFailureReason.String(reason))
	}
	return attrs
}

// RecordError marks span as failed. A nil err is ignored.
func RecordError(span trace.Span, err error) {
	if err == nil {
		return
	}
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}
