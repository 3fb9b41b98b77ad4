package service

import (
	"strings"

	"github.com/Manoj-git-hub/ecommerce-project/internal/domain"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var tracer = otel.Tracer("github.com/Manoj-git-hub/ecommerce-project/internal/service")

// endSpan records err on span and ends it. Classified domain errors are
// expected outcomes: they are tagged with their kind but leave the span status
// unset. Only unclassified failures mark the span as an error.
func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		kind := domain.KindOf(err)
		span.SetAttributes(attribute.String("error.kind", string(kind)))
		if kind == domain.KindInternal {
			span.SetStatus(codes.Error, err.Error())
		}
	}
	span.End()
}

// outcome is the metrics label for an operation result.
func outcome(err error) string {
	if err == nil {
		return "success"
	}
	return strings.ToLower(string(domain.KindOf(err)))
}
