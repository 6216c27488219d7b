package fermentation

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidOptions is returned when analysis options fail validation.
var ErrInvalidOptions = errors.New("invalid analysis options")

// SchemaError reports required columns absent after header normalization.
// It is fatal to the run: no dataset or summary is produced.
type SchemaError struct {
	Schema  string
	Missing []string
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("schema %q: missing required columns: %s", e.Schema, strings.Join(e.Missing, ", "))
}

// MalformedValueError describes one cell that failed to parse. It is always
// recovered: the field degrades to missing and the error is only collected
// as a diagnostic.
type MalformedValueError struct {
	Row    int    `json:"row"`
	Column string `json:"column"`
	Value  string `json:"value"`
	Err    error  `json:"-"`
}

func (e MalformedValueError) Error() string {
	return fmt.Sprintf("row %d column %q: cannot parse %q: %v", e.Row, e.Column, e.Value, e.Err)
}

func (e MalformedValueError) Unwrap() error {
	return e.Err
}

// EmptySeriesWarning is informational: the selected lot, or the whole
// dataset when Lot is empty, has no usable records after coercion.
type EmptySeriesWarning struct {
	Lot     string `json:"lot,omitempty"`
	Message string `json:"message"`
}

func newEmptySeriesWarning(lot string) EmptySeriesWarning {
	if lot == "" {
		return EmptySeriesWarning{Message: "dataset has no usable records after coercion"}
	}
	return EmptySeriesWarning{Lot: lot, Message: fmt.Sprintf("lot %q has no usable records after coercion", lot)}
}

func (w EmptySeriesWarning) String() string {
	return w.Message
}
