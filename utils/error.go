package utils

import (
	"context"

	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/trace"
)

// LogFields returns the structured fields carried by ctx, including the active trace id.
func LogFields(ctx context.Context) logrus.Fields {
	fields := logrus.Fields{}
	if v, ok := GetCorrelationIdFromContext(ctx); ok {
		fields["correlation_id"] = v
	}
	if v, ok := GetDocumentTypeFromContext(ctx); ok {
		fields["document_type"] = v
	}
	if v, ok := GetBatchLabelFromContext(ctx); ok {
		fields["batch"] = v
	}
	if sc := trace.SpanFromContext(ctx).SpanContext(); sc.HasTraceID() {
		fields["trace_id"] = sc.TraceID().String()
	}
	return fields
}
