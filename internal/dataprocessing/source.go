package dataprocessing

import (
	"context"
	"fmt"

	"fermcli/internal/fermentation"
)

// Source produces one raw table per Load.
type Source interface {
	Load(ctx context.Context) (fermentation.RawTable, error)
	// Name identifies the source in logs and responses.
	Name() string
}

// FileSource reads a CSV or Excel file from disk.
type FileSource struct {
	Path  string
	Sheet string
}

func (s FileSource) Load(ctx context.Context) (fermentation.RawTable, error) {
	if err := ctx.Err(); err != nil {
		return fermentation.RawTable{}, err
	}
	return ParseFile(s.Path, s.Sheet)
}

func (s FileSource) Name() string {
	return s.Path
}

// SheetFetcher is the part of SheetsClient used by SheetSource.
type SheetFetcher interface {
	Fetch(ctx context.Context, spreadsheetID, readRange string) (fermentation.RawTable, error)
}

// SheetSource reads a Google Sheets range.
type SheetSource struct {
	Client        SheetFetcher
	SpreadsheetID string
	Range         string
}

func (s SheetSource) Load(ctx context.Context) (fermentation.RawTable, error) {
	return s.Client.Fetch(ctx, s.SpreadsheetID, s.Range)
}

func (s SheetSource) Name() string {
	return fmt.Sprintf("sheets:%s!%s", s.SpreadsheetID, s.Range)
}

// TableSource serves a table already in memory.
type TableSource struct {
	Label string
	Table fermentation.RawTable
}

func (s TableSource) Load(ctx context.Context) (fermentation.RawTable, error) {
	return s.Table, ctx.Err()
}

func (s TableSource) Name() string {
	return s.Label
}
