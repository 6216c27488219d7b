package fermentation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"
)

const tracerName = "fermcli/internal/fermentation"

// Analysis modes.
const (
	ModeAllLots   = "all"
	ModeSingleLot = "lot"
)

// Options configure one run.
type Options struct {
	Schema             Schema
	RapidDropThreshold float64
	HighTempThreshold  float64
	// Lot restricts the run to one lot. Empty means every lot.
	Lot string
	// Parallelism bounds how many lots are analyzed at once.
	Parallelism int
}

// DefaultOptions returns the minimal schema with the default thresholds.
func DefaultOptions() Options {
	return Options{
		Schema:             SchemaMinimal,
		RapidDropThreshold: DefaultRapidDropThreshold,
		HighTempThreshold:  DefaultHighTempThreshold,
		Parallelism:        4,
	}
}

// Validate checks the thresholds and schema.
func (o Options) Validate() error {
	if o.Schema.Name == "" || len(o.Schema.Required) == 0 {
		return fmt.Errorf("%w: schema not set", ErrInvalidOptions)
	}
	if math.IsNaN(o.RapidDropThreshold) || math.IsInf(o.RapidDropThreshold, 0) || o.RapidDropThreshold < 0 {
		return fmt.Errorf("%w: rapid drop threshold must be a finite non-negative number, got %v", ErrInvalidOptions, o.RapidDropThreshold)
	}
	if math.IsNaN(o.HighTempThreshold) || math.IsInf(o.HighTempThreshold, 0) {
		return fmt.Errorf("%w: high temperature threshold must be finite, got %v", ErrInvalidOptions, o.HighTempThreshold)
	}
	if o.Parallelism < 0 {
		return fmt.Errorf("%w: parallelism must not be negative", ErrInvalidOptions)
	}
	return nil
}

// LotAnalysis is the per-lot output of a run.
type LotAnalysis struct {
	Lot            string          `json:"lot"`
	FirstTimestamp time.Time       `json:"first_timestamp"`
	LastTimestamp  time.Time       `json:"last_timestamp"`
	Records        []FlaggedRecord `json:"records"`
	Summary        Summary         `json:"summary"`
	FlatBrixCount  int             `json:"flat_brix_count"`
	RapidDropCount int             `json:"rapid_drop_count"`
	HighTempCount  int             `json:"high_temp_count"`
}

// Result is everything a run produces.
type Result struct {
	Schema             string               `json:"schema"`
	Mode               string               `json:"mode"`
	SelectedLot        string               `json:"selected_lot,omitempty"`
	RapidDropThreshold float64              `json:"rapid_drop_threshold"`
	HighTempThreshold  float64              `json:"high_temp_threshold"`
	Columns            []string             `json:"columns"`
	Report             CoercionReport       `json:"report"`
	Lots               []LotAnalysis        `json:"lots"`
	Overall            *Summary             `json:"overall,omitempty"`
	LotMeans           *LotMeans            `json:"lot_means,omitempty"`
	Warnings           []EmptySeriesWarning `json:"warnings,omitempty"`
	Dataset            *Dataset             `json:"-"`
}

// AnomalyCounts returns the number of flagged records per rule.
func (r *Result) AnomalyCounts() map[string]int {
	counts := map[string]int{"flat_brix": 0, "rapid_drop": 0, "high_temp": 0}
	for _, l := range r.Lots {
		counts["flat_brix"] += l.FlatBrixCount
		counts["rapid_drop"] += l.RapidDropCount
		counts["high_temp"] += l.HighTempCount
	}
	return counts
}

// Analyzer runs the pipeline. It holds no per-run state and is safe for
// concurrent use.
type Analyzer struct {
	logger *slog.Logger
	tracer trace.Tracer
}

// NewAnalyzer creates an Analyzer.
func NewAnalyzer(logger *slog.Logger) *Analyzer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Analyzer{
		logger: logger.With(slog.String("component", "analyzer")),
		tracer: otel.Tracer(tracerName),
	}
}

// Analyze validates, coerces, partitions, flags and summarizes raw.
// A *SchemaError aborts the run before any record is produced.
func (a *Analyzer) Analyze(ctx context.Context, raw RawTable, opts Options) (*Result, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	ctx, span := a.tracer.Start(ctx, "fermentation.Analyze", trace.WithAttributes(
		attribute.String("schema", opts.Schema.Name),
		attribute.String("lot", opts.Lot),
		attribute.Int("rows", len(raw.Rows)),
	))
	defer span.End()

	table, err := NormalizeAndCheck(raw, opts.Schema)
	if err != nil {
		var schemaErr *SchemaError
		if errors.As(err, &schemaErr) {
			a.logger.WarnContext(ctx, "schema check failed",
				slog.String("schema", schemaErr.Schema),
				slog.Any("missing", schemaErr.Missing))
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, "schema check failed")
		return nil, err
	}

	records, report := Coerce(table, opts.Schema)
	span.AddEvent("coerced", trace.WithAttributes(
		attribute.Int("kept", report.RowsKept),
		attribute.Int("dropped", report.RowsDropped),
		attribute.Int("malformed", report.MalformedCount),
	))
	if report.RowsDropped > 0 || report.MalformedCount > 0 {
		a.logger.InfoContext(ctx, "coercion dropped rows",
			slog.Int("rows_read", report.RowsRead),
			slog.Int("rows_dropped", report.RowsDropped),
			slog.Int("malformed", report.MalformedCount))
	}

	ds := Partition(records)
	res := &Result{
		Schema:             opts.Schema.Name,
		Mode:               ModeAllLots,
		SelectedLot:        opts.Lot,
		RapidDropThreshold: opts.RapidDropThreshold,
		HighTempThreshold:  opts.HighTempThreshold,
		Columns:            append([]string(nil), opts.Schema.Numeric...),
		Report:             report,
		Dataset:            ds,
	}

	lots := ds.Lots()
	if opts.Lot != "" {
		res.Mode = ModeSingleLot
		if _, ok := ds.Series(opts.Lot); ok {
			lots = []string{opts.Lot}
		} else {
			lots = nil
			res.Warnings = append(res.Warnings, newEmptySeriesWarning(opts.Lot))
		}
	}
	if ds.Len() == 0 {
		res.Warnings = append(res.Warnings, newEmptySeriesWarning(""))
	}

	res.Lots, err = a.analyzeLots(ctx, ds, lots, opts)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "lot analysis failed")
		return nil, err
	}

	if res.Mode == ModeAllLots {
		overall := Summarize(ds.Records(), res.Columns)
		means := MeansByLot(ds, res.Columns)
		res.Overall = &overall
		res.LotMeans = &means
	}

	a.logger.InfoContext(ctx, "analysis complete",
		slog.String("schema", res.Schema),
		slog.String("mode", res.Mode),
		slog.Int("lots", len(res.Lots)),
		slog.Int("records", ds.RecordCount()),
		slog.Any("anomalies", res.AnomalyCounts()))
	return res, nil
}

func (a *Analyzer) analyzeLots(ctx context.Context, ds *Dataset, lots []string, opts Options) ([]LotAnalysis, error) {
	out := make([]LotAnalysis, len(lots))
	g, ctx := errgroup.WithContext(ctx)
	if opts.Parallelism > 0 {
		g.SetLimit(opts.Parallelism)
	}
	detector := Detector{RapidDropThreshold: opts.RapidDropThreshold, HighTempThreshold: opts.HighTempThreshold}

	for i, lot := range lots {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			series, _ := ds.Series(lot)
			out[i] = analyzeLot(series, detector, opts.Schema.Numeric)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("analyze lots: %w", err)
	}
	return out, nil
}

func analyzeLot(series LotSeries, detector Detector, columns []string) LotAnalysis {
	flags := detector.Detect(series)
	la := LotAnalysis{
		Lot:     series.Lot,
		Records: make([]FlaggedRecord, series.Len()),
		Summary: Summarize(series.Records, columns),
	}
	la.FirstTimestamp, la.LastTimestamp = series.DateRange()
	for i, rec := range series.Records {
		f := flags[i]
		la.Records[i] = FlaggedRecord{Record: rec, Flags: f}
		if f.FlatBrix {
			la.FlatBrixCount++
		}
		if f.RapidDrop {
			la.RapidDropCount++
		}
		if f.HighTemp {
			la.HighTempCount++
		}
	}
	return la
}
