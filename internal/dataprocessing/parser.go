package dataprocessing

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"

	apierrors "fermcli/internal/errors"
	"fermcli/internal/fermentation"
)

// Supported input formats.
const (
	FormatCSV  = "csv"
	FormatXLSX = "xlsx"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// FormatForPath maps a file extension to an input format.
func FormatForPath(path string) (string, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv", ".txt":
		return FormatCSV, nil
	case ".xlsx", ".xlsm":
		return FormatXLSX, nil
	default:
		return "", apierrors.NewParsingError(fmt.Sprintf("unsupported file type %q", filepath.Ext(path)), nil).
			With("path", path)
	}
}

// ParseFile reads a fermentation log from a CSV or Excel file. For
// workbooks, sheet selects the worksheet; empty picks the first sheet whose
// header row has a brix column.
func ParseFile(filePath, sheet string) (fermentation.RawTable, error) {
	format, err := FormatForPath(filePath)
	if err != nil {
		return fermentation.RawTable{}, err
	}

	if format == FormatXLSX {
		f, err := excelize.OpenFile(filePath)
		if err != nil {
			return fermentation.RawTable{}, apierrors.NewParsingError("failed to open workbook", err).
				With("path", filePath)
		}
		defer f.Close()
		return readWorkbook(f, sheet)
	}

	file, err := os.Open(filePath)
	if err != nil {
		return fermentation.RawTable{}, apierrors.NewParsingError("failed to open file", err).
			With("path", filePath)
	}
	defer file.Close()
	return ReadCSV(file)
}

// Parse reads a log of the given format from r.
func Parse(r io.Reader, format, sheet string) (fermentation.RawTable, error) {
	switch format {
	case FormatCSV:
		return ReadCSV(r)
	case FormatXLSX:
		return ReadWorkbook(r, sheet)
	default:
		return fermentation.RawTable{}, apierrors.NewParsingError(fmt.Sprintf("unsupported format %q", format), nil)
	}
}

// ReadCSV reads a header row followed by data rows. Short rows are padded
// with empty cells. A leading UTF-8 byte order mark is ignored.
func ReadCSV(r io.Reader) (fermentation.RawTable, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return fermentation.RawTable{}, apierrors.NewParsingError("failed to read csv", err)
	}
	data = bytes.TrimPrefix(data, utf8BOM)

	reader := csv.NewReader(bytes.NewReader(data))
	reader.FieldsPerRecord = -1
	records, err := reader.ReadAll()
	if err != nil {
		return fermentation.RawTable{}, apierrors.NewParsingError("failed to parse csv", err)
	}
	if len(records) == 0 {
		return fermentation.RawTable{}, apierrors.NewParsingError("csv has no header row", nil)
	}
	rows := make([][]any, len(records)-1)
	for i, rec := range records[1:] {
		rows[i] = make([]any, len(rec))
		for j, v := range rec {
			rows[i][j] = v
		}
	}
	return tableFromCells(records[0], rows), nil
}

// ReadWorkbook reads a log from an xlsx stream.
func ReadWorkbook(r io.Reader, sheet string) (fermentation.RawTable, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return fermentation.RawTable{}, apierrors.NewParsingError("failed to open workbook", err)
	}
	defer f.Close()
	return readWorkbook(f, sheet)
}

func readWorkbook(f *excelize.File, sheet string) (fermentation.RawTable, error) {
	if sheet == "" {
		sheet = findLogSheet(f)
	}
	if sheet == "" {
		return fermentation.RawTable{}, apierrors.NewParsingError("workbook has no worksheets", nil)
	}

	// Raw values keep date cells as serial numbers; the display text of a
	// date cell depends on its number format and may drop the day.
	rows, err := f.GetRows(sheet, excelize.Options{RawCellValue: true})
	if err != nil {
		return fermentation.RawTable{}, apierrors.NewParsingError("failed to read worksheet", err).
			With("sheet", sheet)
	}

	headerRow := firstNonEmptyRow(rows)
	if headerRow < 0 {
		return fermentation.RawTable{}, apierrors.NewParsingError("worksheet is empty", nil).
			With("sheet", sheet)
	}

	dates := newDateCells(f, sheet)
	data := make([][]any, 0, len(rows)-headerRow-1)
	for i, row := range rows[headerRow+1:] {
		cells := make([]any, len(row))
		for j, v := range row {
			cells[j] = dates.value(j+1, headerRow+i+2, v)
		}
		data = append(data, cells)
	}
	return tableFromCells(rows[headerRow], data), nil
}

// findLogSheet prefers a sheet whose header row names a brix column and
// falls back to the first sheet.
func findLogSheet(f *excelize.File) string {
	sheets := f.GetSheetList()
	for _, name := range sheets {
		rows, err := f.GetRows(name)
		if err != nil {
			continue
		}
		i := firstNonEmptyRow(rows)
		if i < 0 {
			continue
		}
		for _, cell := range rows[i] {
			if fermentation.NormalizeColumn(cell) == fermentation.ColBrix {
				return name
			}
		}
	}
	if len(sheets) > 0 {
		return sheets[0]
	}
	return ""
}

func firstNonEmptyRow(rows [][]string) int {
	for i, row := range rows {
		for _, cell := range row {
			if strings.TrimSpace(cell) != "" {
				return i
			}
		}
	}
	return -1
}

// tableFromCells keys each data row by its header. When a header text
// repeats exactly, the first column keeps the key. Blank rows are skipped.
func tableFromCells(header []string, data [][]any) fermentation.RawTable {
	table := fermentation.RawTable{Columns: append([]string(nil), header...)}
	for _, rec := range data {
		if isBlank(rec) {
			continue
		}
		row := make(fermentation.RawRow, len(header))
		for j, h := range header {
			if _, dup := row[h]; dup {
				continue
			}
			if j < len(rec) {
				row[h] = rec[j]
			} else {
				row[h] = ""
			}
		}
		table.Rows = append(table.Rows, row)
	}
	return table
}

func isBlank(rec []any) bool {
	for _, cell := range rec {
		switch v := cell.(type) {
		case nil:
		case string:
			if strings.TrimSpace(v) != "" {
				return false
			}
		default:
			return false
		}
	}
	return true
}
