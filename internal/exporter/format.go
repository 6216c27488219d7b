package exporter

import (
	"strconv"
)

// cellValue writes numeric text as a number so spreadsheet formulas work on it.
func cellValue(s string) interface{} {
	if s == "" {
		return nil
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return f
	}
	if b, err := strconv.ParseBool(s); err == nil && (s == "true" || s == "false") {
		return b
	}
	return s
}
