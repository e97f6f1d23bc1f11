package telemetry

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const engineTracerName = "retailpulse/analytics"

// StartAnalysis starts a span for one engine operation (forecast, pricing or
// trend) for a single product.
func StartAnalysis(ctx context.Context, kind string, ownerID string, productID string) (context.Context, trace.Span) {
	ctx, span := Tracer(engineTracerName).Start(ctx, "analytics."+kind,
		trace.WithAttributes(
			attribute.String("analysis.kind", kind),
			attribute.String("owner.id", ownerID),
			attribute.String("product.id", productID),
		))
	return ctx, span
}

// RecordSeriesSize attaches the size of the analyzed series to a span.
func RecordSeriesSize(span trace.Span, buckets int, observed int) {
	span.SetAttributes(
		attribute.Int("series.buckets", buckets),
		attribute.Int("series.observed", observed),
	)
}

// RecordPattern attaches detection results to a span.
func RecordPattern(span trace.Span, period string, strength float64, magnitude float64) {
	span.SetAttributes(
		attribute.String("seasonality.period", period),
		attribute.Float64("seasonality.strength", strength),
		attribute.Float64("seasonality.magnitude", magnitude),
	)
}

// EndAnalysis finishes an analysis span, recording the error if any.
func EndAnalysis(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End()
}
