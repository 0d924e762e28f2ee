// Package otel provides the metric instruments and span helpers for the
// migration service. Instruments resolve against the globally registered
// providers; wiring an exporter is a deployment concern.
package otel

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "atelier"

// StartRunSpan starts a span for one migration run.
func StartRunSpan(ctx context.Context, runID, mode string) (context.Context, trace.Span) {
	return otel.Tracer(tracerName).Start(ctx, "migration.run",
		trace.WithAttributes(
			attribute.String("run.id", runID),
			attribute.String("run.mode", mode),
		),
	)
}

// StartPhaseSpan starts a span for one entity phase within a run.
func StartPhaseSpan(ctx context.Context, runID, entity string) (context.Context, trace.Span) {
	return otel.Tracer(tracerName).Start(ctx, "migration.phase",
		trace.WithAttributes(
			attribute.String("run.id", runID),
			attribute.String("phase.entity", entity),
		),
	)
}
