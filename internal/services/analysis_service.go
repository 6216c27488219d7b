package services

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"fermcli/internal/config"
	"fermcli/internal/dataprocessing"
	"fermcli/internal/fermentation"
	"fermcli/internal/infrastructure"
	api "fermcli/pkg/contracts/api/v1"
)

// AnalysisService runs the fermentation pipeline over any source.
type AnalysisService struct {
	analyzer *fermentation.Analyzer
	sheets   dataprocessing.SheetFetcher
	metrics  *infrastructure.AnalysisMetrics
	defaults config.AnalysisConfig
	logger   *slog.Logger
}

// NewAnalysisService creates the service. sheets and metrics may be nil.
func NewAnalysisService(defaults config.AnalysisConfig, sheets dataprocessing.SheetFetcher, metrics *infrastructure.AnalysisMetrics, logger *slog.Logger) *AnalysisService {
	if logger == nil {
		logger = slog.Default()
	}
	return &AnalysisService{
		analyzer: fermentation.NewAnalyzer(logger),
		sheets:   sheets,
		metrics:  metrics,
		defaults: defaults,
		logger:   logger.With(slog.String("component", "analysis_service")),
	}
}

// Run is one completed analysis.
type Run struct {
	ID        string
	Source    string
	StartedAt time.Time
	Duration  time.Duration
	Result    *fermentation.Result
}

// Response converts the run to its API representation.
func (r *Run) Response() api.AnalysisResponse {
	return api.AnalysisResponse{
		RunID:      r.ID,
		Source:     r.Source,
		AnalyzedAt: r.StartedAt.UTC(),
		DurationMS: r.Duration.Milliseconds(),
		Result:     r.Result,
	}
}

// ResolveOptions applies request overrides to the configured defaults.
func (s *AnalysisService) ResolveOptions(req api.AnalysisOptions) (fermentation.Options, error) {
	name := req.Schema
	if name == "" {
		name = s.defaults.Schema
	}
	schema, err := fermentation.LookupSchema(name)
	if err != nil {
		return fermentation.Options{}, err
	}

	opts := fermentation.Options{
		Schema:             schema,
		RapidDropThreshold: s.defaults.RapidDropThreshold,
		HighTempThreshold:  s.defaults.HighTempThreshold,
		Lot:                req.Lot,
		Parallelism:        s.defaults.Parallelism,
	}
	if req.RapidDropThreshold != nil {
		opts.RapidDropThreshold = *req.RapidDropThreshold
	}
	if req.HighTempThreshold != nil {
		opts.HighTempThreshold = *req.HighTempThreshold
	}
	return opts, opts.Validate()
}

// Run loads src and analyzes it with opts.
func (s *AnalysisService) Run(ctx context.Context, src dataprocessing.Source, opts fermentation.Options) (*Run, error) {
	run := &Run{
		ID:        uuid.New().String(),
		Source:    src.Name(),
		StartedAt: time.Now(),
	}
	logger := s.logger.With(
		slog.String("run_id", run.ID),
		slog.String("source", run.Source),
	)

	raw, err := src.Load(ctx)
	if err != nil {
		logger.WarnContext(ctx, "failed to load source", slog.String("error", err.Error()))
		return nil, err
	}

	res, err := s.analyzer.Analyze(ctx, raw, opts)
	if err != nil {
		var schemaErr *fermentation.SchemaError
		if errors.As(err, &schemaErr) {
			s.metrics.RecordSchemaError(ctx, opts.Schema.Name)
		}
		return nil, err
	}
	run.Result = res
	run.Duration = time.Since(run.StartedAt)

	s.metrics.RecordRun(ctx, res.Schema, res.Report.RowsRead, res.Report.RowsDropped, res.AnomalyCounts(), run.Duration)
	logger.InfoContext(ctx, "analysis completed",
		slog.String("mode", res.Mode),
		slog.Int("lots", len(res.Lots)),
		slog.Int("rows_kept", res.Report.RowsKept),
		slog.Duration("duration", run.Duration),
	)
	return run, nil
}

// Analyze runs an in-memory table with request overrides.
func (s *AnalysisService) Analyze(ctx context.Context, label string, raw fermentation.RawTable, req api.AnalysisOptions) (*Run, error) {
	opts, err := s.ResolveOptions(req)
	if err != nil {
		return nil, err
	}
	return s.Run(ctx, dataprocessing.TableSource{Label: label, Table: raw}, opts)
}

// AnalyzeSheet fetches a Google Sheets range and analyzes it.
func (s *AnalysisService) AnalyzeSheet(ctx context.Context, req api.SheetAnalysisRequest) (*Run, error) {
	if s.sheets == nil {
		return nil, ErrSheetsDisabled
	}
	opts, err := s.ResolveOptions(req.AnalysisOptions)
	if err != nil {
		return nil, err
	}
	return s.Run(ctx, dataprocessing.SheetSource{
		Client:        s.sheets,
		SpreadsheetID: req.SpreadsheetID,
		Range:         req.Range,
	}, opts)
}

// SheetsEnabled reports whether a Sheets client is configured.
func (s *AnalysisService) SheetsEnabled() bool {
	return s.sheets != nil
}

// Schemas lists the schema variants, marking the configured default.
func (s *AnalysisService) Schemas() api.SchemasResponse {
	var out api.SchemasResponse
	for _, sc := range fermentation.Schemas() {
		out.Schemas = append(out.Schemas, api.SchemaInfo{
			Name:        sc.Name,
			Description: sc.Description,
			Required:    sc.Required,
			Numeric:     sc.Numeric,
			RequirePH:   sc.RequirePH,
			Default:     sc.Name == s.defaults.Schema,
		})
	}
	return out
}
