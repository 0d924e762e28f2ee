package otel

import (
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

const meterName = "atelier"

// Metrics holds all Atelier migration metric instruments.
type Metrics struct {
	RunsStarted     metric.Int64Counter
	RunsCompleted   metric.Int64Counter
	RunsFailed      metric.Int64Counter
	RecordsUpserted metric.Int64Counter
	RecordsSkipped  metric.Int64Counter
	RunDuration     metric.Float64Histogram
}

// NewMetrics creates all metric instruments.
func NewMetrics() (*Metrics, error) {
	meter := otel.Meter(meterName)
	m := &Metrics{}
	var err error

	m.RunsStarted, err = meter.Int64Counter("atelier.migration.runs.started",
		metric.WithDescription("Number of migration runs started"))
	if err != nil {
		return nil, err
	}

	m.RunsCompleted, err = meter.Int64Counter("atelier.migration.runs.completed",
		metric.WithDescription("Number of migration runs completed"))
	if err != nil {
		return nil, err
	}

	m.RunsFailed, err = meter.Int64Counter("atelier.migration.runs.failed",
		metric.WithDescription("Number of migration runs ended fatal"))
	if err != nil {
		return nil, err
	}

	m.RecordsUpserted, err = meter.Int64Counter("atelier.migration.records.upserted",
		metric.WithDescription("Number of records upserted"))
	if err != nil {
		return nil, err
	}

	m.RecordsSkipped, err = meter.Int64Counter("atelier.migration.records.skipped",
		metric.WithDescription("Number of records skipped"))
	if err != nil {
		return nil, err
	}

	m.RunDuration, err = meter.Float64Histogram("atelier.migration.run.duration_seconds",
		metric.WithDescription("Migration run duration in seconds"))
	if err != nil {
		return nil, err
	}

	return m, nil
}
