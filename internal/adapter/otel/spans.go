package otel

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "voyago"

// StartQuerySpan starts a span covering a query's full execution.
func StartQuerySpan(ctx context.Context, queryID, threadID string) (context.Context, trace.Span) {
	return otel.Tracer(tracerName).Start(ctx, "query",
		trace.WithAttributes(
			attribute.String("query.id", queryID),
			attribute.String("thread.id", threadID),
		),
	)
}

// StartWorkerSpan starts a span for one worker agent's run within a query.
func StartWorkerSpan(ctx context.Context, queryID, worker string) (context.Context, trace.Span) {
	return otel.Tracer(tracerName).Start(ctx, "worker",
		trace.WithAttributes(
			attribute.String("query.id", queryID),
			attribute.String("worker.agent", worker),
		),
	)
}

// StartProviderSpan starts a span for an external provider call.
func StartProviderSpan(ctx context.Context, provider string) (context.Context, trace.Span) {
	return otel.Tracer(tracerName).Start(ctx, "provider",
		trace.WithAttributes(
			attribute.String("provider.name", provider),
		),
	)
}
