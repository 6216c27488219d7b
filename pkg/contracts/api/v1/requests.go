// Package api contains the HTTP API contract for fermcli.
// Version v1 is the current stable API version.
package api

// AnalysisOptions are the per-request overrides of the configured defaults.
// Nil thresholds keep the configured value.
type AnalysisOptions struct {
	Schema             string   `json:"schema,omitempty" query:"schema" validate:"omitempty,oneof=minimal timed extended core"`
	RapidDropThreshold *float64 `json:"threshold,omitempty" query:"threshold" validate:"omitempty,gte=0"`
	HighTempThreshold  *float64 `json:"high_temp,omitempty" query:"high_temp"`
	Lot                string   `json:"lot,omitempty" query:"lot" validate:"max=256"`
}

// AnalysisRequest carries a log inline as rows of column/value pairs.
// Columns is optional; without it a column counts as present only when
// every row has it.
type AnalysisRequest struct {
	AnalysisOptions
	Columns []string         `json:"columns,omitempty" validate:"omitempty,dive,required"`
	Rows    []map[string]any `json:"rows" validate:"required,min=1,max=100000"`
}

// SheetAnalysisRequest analyzes a Google Sheets range.
type SheetAnalysisRequest struct {
	AnalysisOptions
	SpreadsheetID string `json:"spreadsheet_id" validate:"required,min=10,max=128"`
	Range         string `json:"range,omitempty" validate:"max=128"`
}
