package otel

import (
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

const meterName = "voyago"

// Metrics holds all voyago metric instruments.
type Metrics struct {
	QueriesStarted     metric.Int64Counter
	QueriesCompleted   metric.Int64Counter
	QueriesInterrupted metric.Int64Counter
	QueriesErrored     metric.Int64Counter
	EventsEmitted      metric.Int64Counter
	UpstreamFailures   metric.Int64Counter
	QueryDuration      metric.Float64Histogram
}

// NewMetrics creates all metric instruments.
func NewMetrics() (*Metrics, error) {
	meter := otel.Meter(meterName)
	m := &Metrics{}
	var err error

	m.QueriesStarted, err = meter.Int64Counter("voyago.queries.started",
		metric.WithDescription("Number of queries submitted"))
	if err != nil {
		return nil, err
	}

	m.QueriesCompleted, err = meter.Int64Counter("voyago.queries.completed",
		metric.WithDescription("Number of queries completed successfully"))
	if err != nil {
		return nil, err
	}

	m.QueriesInterrupted, err = meter.Int64Counter("voyago.queries.interrupted",
		metric.WithDescription("Number of queries interrupted by cancellation"))
	if err != nil {
		return nil, err
	}

	m.QueriesErrored, err = meter.Int64Counter("voyago.queries.errored",
		metric.WithDescription("Number of queries that ended in error"))
	if err != nil {
		return nil, err
	}

	m.EventsEmitted, err = meter.Int64Counter("voyago.events.emitted",
		metric.WithDescription("Number of stream events emitted"))
	if err != nil {
		return nil, err
	}

	m.UpstreamFailures, err = meter.Int64Counter("voyago.upstream.failures",
		metric.WithDescription("Number of failed provider calls"))
	if err != nil {
		return nil, err
	}

	m.QueryDuration, err = meter.Float64Histogram("voyago.query.duration_seconds",
		metric.WithDescription("Query duration in seconds"))
	if err != nil {
		return nil, err
	}

	return m, nil
}
