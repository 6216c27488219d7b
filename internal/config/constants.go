package config

import "time"

// Application constants
const (
	AppName = "fermcli"

	// Rate limiting, requests per second
	DefaultRateLimit = 20
	DefaultBurstSize = 40

	DefaultRequestTimeout = 60 * time.Second
	DefaultSheetsTimeout  = 30 * time.Second
	DefaultSheetsRange    = "A1:Z"

	DefaultMaxUploadBytes int64 = 32 << 20

	// File paths, relative to the base directory
	DefaultDataDir   = "sample_data"
	DefaultOutputDir = "outputs"
	DefaultLogsDir   = "logs"

	DefaultInputFile = "sample_log.csv"

	// Output file names
	SummaryFileName   = "summary_stats.csv"
	LotMeansFileName  = "lot_means.csv"
	AnomaliesFileName = "anomalies.csv"
	HighTempsFileName = "high_temps.csv"
	WorkbookFileName  = "fermentation_report.xlsx"
	LotSummarySuffix  = "_summary_stats.csv"
)
