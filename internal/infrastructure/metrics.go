package infrastructure

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// AnalysisMetrics are the instruments recorded for every analysis run.
type AnalysisMetrics struct {
	RecordsIngested metric.Int64Counter
	RecordsDropped  metric.Int64Counter
	Anomalies       metric.Int64Counter
	SchemaErrors    metric.Int64Counter
	Duration        metric.Float64Histogram
}

// CreateAnalysisMetrics registers the analysis instruments on meter.
// A nil meter uses the global provider.
func CreateAnalysisMetrics(meter metric.Meter) (*AnalysisMetrics, error) {
	if meter == nil {
		meter = otel.Meter(MeterName)
	}

	ingested, err := meter.Int64Counter(
		"fermentation_records_ingested_total",
		metric.WithDescription("Rows read from fermentation logs"),
	)
	if err != nil {
		return nil, err
	}

	dropped, err := meter.Int64Counter(
		"fermentation_records_dropped_total",
		metric.WithDescription("Rows dropped for missing critical fields"),
	)
	if err != nil {
		return nil, err
	}

	anomalies, err := meter.Int64Counter(
		"fermentation_anomalies_total",
		metric.WithDescription("Records flagged by a detection rule"),
	)
	if err != nil {
		return nil, err
	}

	schemaErrors, err := meter.Int64Counter(
		"fermentation_schema_errors_total",
		metric.WithDescription("Runs rejected for missing required columns"),
	)
	if err != nil {
		return nil, err
	}

	duration, err := meter.Float64Histogram(
		"fermentation_analysis_duration_seconds",
		metric.WithDescription("Wall time of one analysis run"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	return &AnalysisMetrics{
		RecordsIngested: ingested,
		RecordsDropped:  dropped,
		Anomalies:       anomalies,
		SchemaErrors:    schemaErrors,
		Duration:        duration,
	}, nil
}

// RecordRun records the outcome of a successful run.
func (m *AnalysisMetrics) RecordRun(ctx context.Context, schema string, read, dropped int, anomalies map[string]int, elapsed time.Duration) {
	if m == nil {
		return
	}
	schemaAttr := metric.WithAttributes(attribute.String("schema", schema))
	m.RecordsIngested.Add(ctx, int64(read), schemaAttr)
	m.RecordsDropped.Add(ctx, int64(dropped), schemaAttr)
	for rule, n := range anomalies {
		m.Anomalies.Add(ctx, int64(n), metric.WithAttributes(attribute.String("rule", rule)))
	}
	m.Duration.Record(ctx, elapsed.Seconds(), schemaAttr)
}

// RecordSchemaError counts a run rejected by the schema check.
func (m *AnalysisMetrics) RecordSchemaError(ctx context.Context, schema string) {
	if m == nil {
		return
	}
	m.SchemaErrors.Add(ctx, 1, metric.WithAttributes(attribute.String("schema", schema)))
}
