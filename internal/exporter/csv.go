package exporter

import (
	"encoding/csv"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"fermcli/internal/config"
	"fermcli/internal/fermentation"
)

// CSVWriter provides CSV export functionality
type CSVWriter struct {
	paths  *config.Paths
	logger *slog.Logger
}

// NewCSVWriter creates a CSV writer rooted at the configured output directory
func NewCSVWriter(paths *config.Paths, logger *slog.Logger) *CSVWriter {
	if logger == nil {
		logger = slog.Default()
	}
	return &CSVWriter{paths: paths, logger: logger}
}

// WriteOptions configures CSV writing behavior
type WriteOptions struct {
	Headers   []string
	Records   [][]string
	BOMPrefix bool // Add UTF-8 BOM for Excel compatibility
}

// WriteCSV writes data to a CSV file, replacing any existing file
func (w *CSVWriter) WriteCSV(filePath string, options WriteOptions) (string, error) {
	fullPath := w.resolvePath(filePath)

	if err := os.MkdirAll(filepath.Dir(fullPath), 0755); err != nil {
		return "", fmt.Errorf("failed to create directory: %w", err)
	}

	file, err := os.OpenFile(fullPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
	if err != nil {
		return "", fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	if options.BOMPrefix {
		if _, err := file.Write([]byte{0xEF, 0xBB, 0xBF}); err != nil {
			return "", fmt.Errorf("failed to write BOM: %w", err)
		}
	}

	if err := writeRecords(file, options.Headers, options.Records); err != nil {
		return "", err
	}

	w.logger.Debug("wrote csv",
		slog.String("path", fullPath),
		slog.Int("record_count", len(options.Records)))
	return fullPath, nil
}

// WriteTable writes a flat table to a CSV file with a BOM prefix.
func (w *CSVWriter) WriteTable(filePath string, table fermentation.FlatTable) (string, error) {
	return w.WriteCSV(filePath, WriteOptions{
		Headers:   table.Header,
		Records:   table.Rows,
		BOMPrefix: true,
	})
}

// WriteTableTo streams a flat table as CSV without a BOM.
func WriteTableTo(out io.Writer, table fermentation.FlatTable) error {
	return writeRecords(out, table.Header, table.Rows)
}

func writeRecords(out io.Writer, headers []string, records [][]string) error {
	writer := csv.NewWriter(out)
	if len(headers) > 0 {
		if err := writer.Write(headers); err != nil {
			return fmt.Errorf("failed to write headers: %w", err)
		}
	}
	for i, record := range records {
		if err := writer.Write(record); err != nil {
			return fmt.Errorf("failed to write record %d: %w", i, err)
		}
	}
	writer.Flush()
	return writer.Error()
}

// resolvePath keeps absolute paths and places relative ones in the output directory
func (w *CSVWriter) resolvePath(filePath string) string {
	if filepath.IsAbs(filePath) {
		return filePath
	}
	return w.paths.GetOutputPath(filePath)
}
