package dataprocessing

import (
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"
)

// dateCells converts workbook cells carrying a date or time number format
// from their serial value to time.Time. Other cells pass through as text.
type dateCells struct {
	f        *excelize.File
	sheet    string
	date1904 bool
	styles   map[int]bool
}

func newDateCells(f *excelize.File, sheet string) *dateCells {
	d := &dateCells{f: f, sheet: sheet, styles: map[int]bool{}}
	if props, err := f.GetWorkbookProps(); err == nil && props.Date1904 != nil {
		d.date1904 = *props.Date1904
	}
	return d
}

// value returns raw unchanged unless the cell at (col, row) is a numeric
// cell with a date format.
func (d *dateCells) value(col, row int, raw string) any {
	serial, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil || serial < 0 {
		return raw
	}
	cell, err := excelize.CoordinatesToCellName(col, row)
	if err != nil {
		return raw
	}
	styleID, err := d.f.GetCellStyle(d.sheet, cell)
	if err != nil || !d.isDateStyle(styleID) {
		return raw
	}
	t, err := excelize.ExcelDateToTime(serial, d.date1904)
	if err != nil {
		return raw
	}
	return t.Round(time.Second)
}

func (d *dateCells) isDateStyle(styleID int) bool {
	if isDate, ok := d.styles[styleID]; ok {
		return isDate
	}
	isDate := false
	if style, err := d.f.GetStyle(styleID); err == nil && style != nil {
		if style.CustomNumFmt != nil {
			isDate = isDateFormat(*style.CustomNumFmt)
		} else {
			isDate = isBuiltInDateFormat(style.NumFmt)
		}
	}
	d.styles[styleID] = isDate
	return isDate
}

// isBuiltInDateFormat reports whether a built-in number format id (ECMA-376
// 18.8.30, plus the CJK locale ids) renders a date or time.
func isBuiltInDateFormat(id int) bool {
	switch {
	case id >= 14 && id <= 22,
		id >= 27 && id <= 36,
		id >= 45 && id <= 47,
		id >= 50 && id <= 58:
		return true
	}
	return false
}

// isDateFormat reports whether a custom number format code has a date or
// time token outside quoted text, escapes and bracketed modifiers.
func isDateFormat(code string) bool {
	// Only the positive section decides.
	if i := strings.IndexByte(code, ';'); i >= 0 {
		code = code[:i]
	}
	inQuote, inBracket := false, false
	for i := 0; i < len(code); i++ {
		c := code[i]
		switch {
		case inQuote:
			inQuote = c != '"'
		case inBracket:
			inBracket = c != ']'
		case c == '"':
			inQuote = true
		case c == '[':
			inBracket = true
		case c == '\\' || c == '_' || c == '*':
			i++
		default:
			switch c | 0x20 {
			case 'y', 'd', 'h', 's':
				return true
			}
		}
	}
	return false
}
