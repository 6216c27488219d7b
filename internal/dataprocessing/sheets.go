package dataprocessing

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"

	apierrors "fermcli/internal/errors"
	"fermcli/internal/fermentation"
)

// SheetsOptions configure access to the Google Sheets API.
type SheetsOptions struct {
	CredentialsFile string
	APIKey          string
	DefaultRange    string
	Timeout         time.Duration
}

// SheetsClient reads fermentation logs from Google Sheets ranges.
type SheetsClient struct {
	service      *sheets.Service
	defaultRange string
	timeout      time.Duration
	logger       *slog.Logger
}

// NewSheetsClient creates a read-only Sheets client. A service account
// credentials file takes precedence over an API key. Extra client options
// are appended after the credentials.
func NewSheetsClient(ctx context.Context, opts SheetsOptions, logger *slog.Logger, extra ...option.ClientOption) (*SheetsClient, error) {
	if logger == nil {
		logger = slog.Default()
	}

	var clientOpts []option.ClientOption
	switch {
	case opts.CredentialsFile != "":
		credentialsJSON, err := os.ReadFile(opts.CredentialsFile)
		if err != nil {
			return nil, apierrors.NewConfigError("failed to read sheets credentials", err).
				With("path", opts.CredentialsFile)
		}
		clientOpts = append(clientOpts,
			option.WithCredentialsJSON(credentialsJSON),
			option.WithScopes(sheets.SpreadsheetsReadonlyScope))
	case opts.APIKey != "":
		clientOpts = append(clientOpts, option.WithAPIKey(opts.APIKey))
	case len(extra) == 0:
		return nil, apierrors.NewConfigError("sheets source needs a credentials file or an API key", nil)
	}
	clientOpts = append(clientOpts, extra...)

	service, err := sheets.NewService(ctx, clientOpts...)
	if err != nil {
		return nil, apierrors.NewConfigError("failed to create sheets service", err)
	}

	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &SheetsClient{
		service:      service,
		defaultRange: opts.DefaultRange,
		timeout:      timeout,
		logger:       logger.With(slog.String("component", "sheets")),
	}, nil
}

// Fetch reads the range of a spreadsheet. The first row is the header.
// An empty readRange uses the configured default.
func (c *SheetsClient) Fetch(ctx context.Context, spreadsheetID, readRange string) (fermentation.RawTable, error) {
	if readRange == "" {
		readRange = c.defaultRange
	}
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	start := time.Now()
	resp, err := c.service.Spreadsheets.Values.Get(spreadsheetID, readRange).
		ValueRenderOption("UNFORMATTED_VALUE").
		DateTimeRenderOption("FORMATTED_STRING").
		Context(ctx).
		Do()
	if err != nil {
		return fermentation.RawTable{}, apierrors.NewSourceError("failed to fetch sheet values", err).
			With("spreadsheet_id", spreadsheetID).
			With("range", readRange)
	}

	c.logger.InfoContext(ctx, "fetched sheet range",
		slog.String("spreadsheet_id", spreadsheetID),
		slog.String("range", resp.Range),
		slog.Int("rows", len(resp.Values)),
		slog.Duration("elapsed", time.Since(start)))

	return TableFromValues(resp.Values)
}

// TableFromValues converts a Sheets value grid into a RawTable. Cell values
// keep their API types, so numbers stay numbers.
func TableFromValues(values [][]interface{}) (fermentation.RawTable, error) {
	headerRow := -1
	for i, row := range values {
		if !blankCells(row) {
			headerRow = i
			break
		}
	}
	if headerRow < 0 {
		return fermentation.RawTable{}, apierrors.NewParsingError("sheet range is empty", nil)
	}

	header := make([]string, len(values[headerRow]))
	for j, v := range values[headerRow] {
		header[j] = fmt.Sprint(v)
	}

	table := fermentation.RawTable{Columns: header}
	for _, cells := range values[headerRow+1:] {
		if blankCells(cells) {
			continue
		}
		row := make(fermentation.RawRow, len(header))
		for j, h := range header {
			if _, dup := row[h]; dup {
				continue
			}
			if j < len(cells) {
				row[h] = cells[j]
			} else {
				row[h] = nil
			}
		}
		table.Rows = append(table.Rows, row)
	}
	return table, nil
}

func blankCells(cells []interface{}) bool {
	for _, c := range cells {
		if s, ok := c.(string); ok && s == "" {
			continue
		}
		if c != nil {
			return false
		}
	}
	return true
}
