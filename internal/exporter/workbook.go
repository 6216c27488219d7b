package exporter

import (
	"fmt"

	"github.com/xuri/excelize/v2"

	"fermcli/internal/fermentation"
)

// Worksheet names of the workbook export.
const (
	SheetSummary   = "Summary"
	SheetLotMeans  = "Lot Means"
	SheetAnomalies = "Anomalies"
	SheetHighTemps = "High Temps"
)

// WriteWorkbook writes every table of the result to one xlsx file, one
// worksheet per table. The lot means sheet is omitted in single-lot mode.
func WriteWorkbook(path string, res *fermentation.Result) error {
	f := excelize.NewFile()
	defer f.Close()

	sheets := []struct {
		name  string
		table string
	}{
		{SheetSummary, fermentation.TableSummary},
		{SheetLotMeans, fermentation.TableLotMeans},
		{SheetAnomalies, fermentation.TableAnomalies},
		{SheetHighTemps, fermentation.TableHighTemps},
	}

	first := true
	for _, s := range sheets {
		table, ok := res.Table(s.table)
		if !ok {
			continue
		}
		if first {
			if err := f.SetSheetName("Sheet1", s.name); err != nil {
				return fmt.Errorf("failed to rename sheet: %w", err)
			}
			first = false
		} else if _, err := f.NewSheet(s.name); err != nil {
			return fmt.Errorf("failed to add sheet %s: %w", s.name, err)
		}
		if err := writeSheet(f, s.name, table); err != nil {
			return err
		}
	}

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("failed to save workbook: %w", err)
	}
	return nil
}

func writeSheet(f *excelize.File, sheet string, table fermentation.FlatTable) error {
	header := make([]interface{}, len(table.Header))
	for i, h := range table.Header {
		header[i] = h
	}
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return fmt.Errorf("failed to write %s header: %w", sheet, err)
	}

	for r, row := range table.Rows {
		cells := make([]interface{}, len(row))
		for i, v := range row {
			cells[i] = cellValue(v)
		}
		cell, err := excelize.CoordinatesToCellName(1, r+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &cells); err != nil {
			return fmt.Errorf("failed to write %s row %d: %w", sheet, r, err)
		}
	}

	if len(table.Header) > 0 {
		if err := f.SetPanes(sheet, &excelize.Panes{
			Freeze:      true,
			YSplit:      1,
			TopLeftCell: "A2",
			ActivePane:  "bottomLeft",
		}); err != nil {
			return fmt.Errorf("failed to freeze %s header: %w", sheet, err)
		}
	}
	return nil
}
