package exporter

import (
	"context"
	"log/slog"
	"os"

	"fermcli/internal/config"
	apierrors "fermcli/internal/errors"
	"fermcli/internal/fermentation"
)

// ReportExporter writes the CSV tables of a run to the output directory.
type ReportExporter struct {
	paths  *config.Paths
	csv    *CSVWriter
	logger *slog.Logger
	// Workbook also writes the combined xlsx report when set.
	Workbook bool
}

// NewReportExporter creates a report exporter.
func NewReportExporter(paths *config.Paths, logger *slog.Logger) *ReportExporter {
	if logger == nil {
		logger = slog.Default()
	}
	return &ReportExporter{
		paths:  paths,
		csv:    NewCSVWriter(paths, logger),
		logger: logger.With(slog.String("component", "exporter")),
	}
}

// Export writes the run's tables and returns the paths written, in order.
//
// All-lots runs write summary_stats.csv and lot_means.csv; single-lot runs
// write <lot>_summary_stats.csv instead. anomalies.csv is always written,
// high_temps.csv only when some reading exceeded the threshold.
func (e *ReportExporter) Export(ctx context.Context, res *fermentation.Result) ([]string, error) {
	if err := e.paths.EnsureDirectories(); err != nil {
		return nil, apierrors.NewStorageError("failed to create output directories", err)
	}

	var jobs []struct {
		file  string
		table fermentation.FlatTable
	}
	add := func(file string, t fermentation.FlatTable) {
		jobs = append(jobs, struct {
			file  string
			table fermentation.FlatTable
		}{file, t})
	}

	if res.Mode == fermentation.ModeSingleLot {
		add(config.LotSummaryFileName(res.SelectedLot), res.SummaryTable())
	} else {
		add(config.SummaryFileName, res.SummaryTable())
		add(config.LotMeansFileName, res.LotMeansTable())
	}
	add(config.AnomaliesFileName, res.AnomalyTable())
	if high := res.HighTempTable(); len(high.Rows) > 0 {
		add(config.HighTempsFileName, high)
	} else {
		// A stale file from an earlier run would read as current anomalies.
		_ = os.Remove(e.paths.GetOutputPath(config.HighTempsFileName))
	}

	written := make([]string, 0, len(jobs)+1)
	for _, job := range jobs {
		if err := ctx.Err(); err != nil {
			return written, err
		}
		path, err := e.csv.WriteTable(job.file, job.table)
		if err != nil {
			return written, apierrors.NewStorageError("failed to write "+job.file, err).
				With("file", job.file)
		}
		written = append(written, path)
	}

	if e.Workbook {
		path := e.paths.GetOutputPath(config.WorkbookFileName)
		if err := WriteWorkbook(path, res); err != nil {
			return written, apierrors.NewStorageError("failed to write workbook", err)
		}
		written = append(written, path)
	}

	e.logger.InfoContext(ctx, "report exported",
		slog.String("output_dir", e.paths.OutputDir),
		slog.Int("files", len(written)))
	return written, nil
}
