package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"text/tabwriter"

	"fermcli/internal/config"
	"fermcli/internal/dataprocessing"
	apierrors "fermcli/internal/errors"
	"fermcli/internal/exporter"
	"fermcli/internal/fermentation"
	"fermcli/internal/files"
	"fermcli/internal/infrastructure"
	"fermcli/internal/services"
	"fermcli/internal/validation"
	"fermcli/pkg/contracts"
	api "fermcli/pkg/contracts/api/v1"
)

// Exit codes
const (
	exitOK     = 0
	exitError  = 1
	exitSchema = 2
	exitUsage  = 64
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	os.Exit(run(ctx, os.Args[1:], os.Stdout, os.Stderr))
}

type cliOptions struct {
	configFile string
	dir        string
	latest     bool
	sheetID    string
	sheetRange string
	xlsxSheet  string
	outDir     string
	workbook   bool
	quiet      bool
	version    bool
	logLevel   string
	request    api.AnalysisOptions
	inputs     []string
}

func parseFlags(args []string, stderr io.Writer) (*cliOptions, error) {
	fs := flag.NewFlagSet("analyzer", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.Usage = func() {
		fmt.Fprintf(stderr, "Usage: analyzer [flags] [log.csv|log.xlsx ...]\n\n")
		fmt.Fprintf(stderr, "Analyzes fermentation logs for stuck fermentations, rapid brix drops and high temperatures.\n\n")
		fs.PrintDefaults()
	}

	opts := &cliOptions{}
	fs.StringVar(&opts.configFile, "config", "", "config file (default: config.yaml or configs/config.yaml when present)")
	fs.StringVar(&opts.dir, "dir", "", "analyze every .csv and .xlsx log in this directory")
	fs.BoolVar(&opts.latest, "latest", false, "with -dir, analyze only the most recently modified log")
	fs.StringVar(&opts.sheetID, "sheet", "", "Google Sheets spreadsheet ID to analyze")
	fs.StringVar(&opts.sheetRange, "range", "", "Google Sheets range (default from config)")
	fs.StringVar(&opts.xlsxSheet, "worksheet", "", "worksheet to read from .xlsx logs (default: first sheet with a brix column)")
	fs.StringVar(&opts.request.Schema, "schema", "", "schema variant: minimal, timed, extended or core")
	threshold := fs.String("threshold", "", "rapid drop threshold in brix per reading (default 8)")
	highTemp := fs.String("high-temp", "", "high temperature threshold in degrees C (default 35)")
	fs.StringVar(&opts.request.Lot, "lot", "", "analyze a single lot")
	fs.StringVar(&opts.outDir, "out", "", "output directory (default outputs)")
	fs.BoolVar(&opts.workbook, "xlsx", false, "also write an .xlsx workbook with every table")
	fs.BoolVar(&opts.quiet, "q", false, "do not print tables")
	fs.StringVar(&opts.logLevel, "log-level", "warn", "log level: debug, info, warn or error")
	fs.BoolVar(&opts.version, "version", false, "print version and exit")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	opts.inputs = fs.Args()

	var err error
	if opts.request.RapidDropThreshold, err = parseFloatFlag("threshold", *threshold); err != nil {
		return nil, err
	}
	if opts.request.HighTempThreshold, err = parseFloatFlag("high-temp", *highTemp); err != nil {
		return nil, err
	}
	if opts.sheetID != "" && (opts.dir != "" || len(opts.inputs) > 0) {
		return nil, errors.New("-sheet cannot be combined with -dir or file arguments")
	}
	if opts.dir != "" && len(opts.inputs) > 0 {
		return nil, errors.New("-dir cannot be combined with file arguments")
	}
	if opts.latest && opts.dir == "" {
		return nil, errors.New("-latest requires -dir")
	}
	return opts, nil
}

func parseFloatFlag(name, value string) (*float64, error) {
	if value == "" {
		return nil, nil
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
	if err != nil {
		return nil, fmt.Errorf("-%s: %q is not a number", name, value)
	}
	return &v, nil
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	opts, err := parseFlags(args, stderr)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return exitOK
		}
		fmt.Fprintln(stderr, "error:", err)
		return exitUsage
	}
	if opts.version {
		fmt.Fprintln(stdout, contracts.GetFullVersionString())
		return exitOK
	}

	cfg, err := loadConfig(opts.configFile)
	if err != nil {
		fmt.Fprintln(stderr, "error:", err)
		return exitError
	}
	logger := infrastructure.NewLoggerTo(stderr, opts.logLevel)

	otelCfg := infrastructure.OTelConfigFrom(cfg.Telemetry)
	otelCfg.EnableMetrics = false
	otelCfg.TraceWriter = stderr
	providers, err := infrastructure.InitializeOTel(otelCfg, logger)
	if err != nil {
		fmt.Fprintln(stderr, "error:", err)
		return exitError
	}
	defer providers.Shutdown(context.Background())

	a := &analyzerCLI{
		cfg:    cfg,
		opts:   opts,
		stdout: stdout,
		logger: logger,
	}
	if err := a.run(ctx); err != nil {
		fmt.Fprintln(stderr, "error:", err)
		var schemaErr *fermentation.SchemaError
		if errors.As(err, &schemaErr) {
			return exitSchema
		}
		return exitError
	}
	return exitOK
}

func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.LoadFile(path)
	}
	return config.Load()
}

type analyzerCLI struct {
	cfg    *config.Config
	opts   *cliOptions
	stdout io.Writer
	logger *slog.Logger
}

// job is one input to analyze and where its outputs go.
type job struct {
	source dataprocessing.Source
	paths  *config.Paths
}

func (a *analyzerCLI) run(ctx context.Context) error {
	paths, err := config.NewPaths(a.cfg.Paths)
	if err != nil {
		return err
	}
	if a.opts.outDir != "" {
		paths = paths.WithOutputDir(a.opts.outDir)
	}

	var sheets dataprocessing.SheetFetcher
	if a.opts.sheetID != "" {
		client, err := dataprocessing.NewSheetsClient(ctx, dataprocessing.SheetsOptions{
			CredentialsFile: a.cfg.Sheets.CredentialsFile,
			APIKey:          a.cfg.Sheets.APIKey,
			DefaultRange:    a.cfg.Sheets.DefaultRange,
			Timeout:         a.cfg.Sheets.Timeout,
		}, a.logger)
		if err != nil {
			return err
		}
		sheets = client
	}

	svc := services.NewAnalysisService(a.cfg.Analysis, sheets, nil, a.logger)
	opts, err := svc.ResolveOptions(a.opts.request)
	if err != nil {
		return err
	}

	jobs, err := a.jobs(paths, sheets)
	if err != nil {
		return err
	}

	validator := validation.NewFileValidator(a.logger)
	var failed []string
	for _, j := range jobs {
		if err := validator.ValidateOutputDirectory(j.paths.OutputDir); err != nil {
			return err
		}
		err := a.analyze(ctx, svc, j, opts)
		if err == nil {
			continue
		}
		// A single input fails the run; in directory mode keep going unless
		// outputs cannot be written at all.
		if len(jobs) == 1 || ctx.Err() != nil {
			return err
		}
		if typ, ok := apierrors.TypeOf(err); ok && typ == apierrors.ErrTypeStorage {
			return err
		}
		fmt.Fprintf(a.stdout, "\n%s: %v\n", j.source.Name(), err)
		failed = append(failed, j.source.Name())
	}
	if len(failed) > 0 {
		return fmt.Errorf("%d of %d logs failed: %s", len(failed), len(jobs), strings.Join(failed, ", "))
	}
	return nil
}

// jobs resolves the inputs. Several inputs write into one subdirectory of
// the output directory per input.
func (a *analyzerCLI) jobs(paths *config.Paths, sheets dataprocessing.SheetFetcher) ([]job, error) {
	if sheets != nil {
		return []job{{
			source: dataprocessing.SheetSource{Client: sheets, SpreadsheetID: a.opts.sheetID, Range: a.opts.sheetRange},
			paths:  paths,
		}}, nil
	}

	inputs := a.opts.inputs
	discovery := files.NewDiscovery(paths.BaseDir)
	switch {
	case a.opts.dir != "" && a.opts.latest:
		latest, err := discovery.Latest(a.opts.dir)
		if err != nil {
			return nil, err
		}
		inputs = append(inputs, latest.Path)
	case a.opts.dir != "":
		found, err := discovery.FindInputFiles(a.opts.dir)
		if err != nil {
			return nil, err
		}
		if len(found) == 0 {
			return nil, fmt.Errorf("no .csv or .xlsx logs found in %s", a.opts.dir)
		}
		for _, f := range found {
			inputs = append(inputs, f.Path)
		}
	}
	if len(inputs) == 0 {
		inputs = []string{paths.DefaultInputPath()}
	}

	validator := validation.NewFileValidator(a.logger)
	jobs := make([]job, 0, len(inputs))
	for _, in := range inputs {
		if err := validator.ValidateInputFile(in); err != nil {
			return nil, err
		}
		p := paths
		if len(inputs) > 1 {
			p = paths.WithOutputDir(filepath.Join(paths.OutputDir, outputSubdir(in)))
		}
		jobs = append(jobs, job{
			source: dataprocessing.FileSource{Path: in, Sheet: a.opts.xlsxSheet},
			paths:  p,
		})
	}
	return jobs, nil
}

// outputSubdir names the report directory of one input. The extension is
// kept so that log.csv and log.xlsx do not share a directory.
func outputSubdir(path string) string {
	base := filepath.Base(path)
	ext := filepath.Ext(base)
	stem := strings.TrimSuffix(base, ext)
	if ext == "" {
		return stem
	}
	return stem + "_" + strings.ToLower(strings.TrimPrefix(ext, "."))
}

func (a *analyzerCLI) analyze(ctx context.Context, svc *services.AnalysisService, j job, opts fermentation.Options) error {
	run, err := svc.Run(ctx, j.source, opts)
	if err != nil {
		return err
	}

	if !a.opts.quiet {
		printReport(a.stdout, run)
	}

	exp := exporter.NewReportExporter(j.paths, a.logger)
	exp.Workbook = a.opts.workbook
	written, err := exp.Export(ctx, run.Result)
	if err != nil {
		return err
	}
	for _, p := range written {
		fmt.Fprintf(a.stdout, "Exported %s\n", p)
	}
	return nil
}

// printReport writes the console report for one run.
func printReport(w io.Writer, run *services.Run) {
	res := run.Result
	fmt.Fprintf(w, "\n== %s ==\n", run.Source)
	rep := res.Report
	fmt.Fprintf(w, "Rows read: %d, kept: %d, dropped: %d, malformed values: %d\n",
		rep.RowsRead, rep.RowsKept, rep.RowsDropped, rep.MalformedCount)
	for _, c := range rep.Collisions {
		fmt.Fprintf(w, "Duplicate column ignored: %s\n", c)
	}
	for _, warning := range res.Warnings {
		fmt.Fprintf(w, "Warning: %s\n", warning.Message)
	}

	title := "Summary (all lots)"
	if res.Mode == fermentation.ModeSingleLot {
		title = fmt.Sprintf("Summary (lot %s)", res.SelectedLot)
	}
	printTable(w, title, res.SummaryTable())
	if res.LotMeans != nil {
		printTable(w, "Lot means", res.LotMeansTable())
	}

	high := res.HighTempTable()
	if len(high.Rows) > 0 {
		printTable(w, fmt.Sprintf("High temperatures (> %s C)", fermentation.FormatFloat(res.HighTempThreshold)), high)
	} else {
		fmt.Fprintln(w, "\nNo dangerously high temperatures detected.")
	}

	anomalies := res.AnomalyTable()
	if len(anomalies.Rows) > 0 {
		printTable(w, "Brix anomalies (flat = stuck fermentation)", anomalies)
	} else {
		fmt.Fprintln(w, "\nNo flat or rapidly dropping brix detected.")
	}
}

func printTable(w io.Writer, title string, t fermentation.FlatTable) {
	fmt.Fprintf(w, "\n%s:\n", title)
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, strings.Join(t.Header, "\t"))
	for _, row := range t.Rows {
		fmt.Fprintln(tw, strings.Join(row, "\t"))
	}
	tw.Flush()
}
