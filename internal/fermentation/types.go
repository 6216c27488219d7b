package fermentation

import (
	"time"
)

// Canonical column names after header normalization.
const (
	ColDate    = "date"
	ColTime    = "time"
	ColLot     = "lot"
	ColTemp    = "temp"
	ColBrix    = "brix"
	ColPH      = "ph"
	ColVA      = "va"
	ColTA      = "ta"
	ColAlcohol = "alcohol"
	ColSO2     = "so2"
	ColMLF     = "mlf"
	ColNotes   = "notes"
)

// FieldTimestamp names the combined date+time field in critical-field reports.
const FieldTimestamp = "timestamp"

// numericColumns lists every column the coercer knows how to parse as a number.
var numericColumns = []string{ColTemp, ColBrix, ColPH, ColVA, ColTA, ColAlcohol, ColSO2}

// textColumns are carried through as text.
var textColumns = []string{ColMLF, ColNotes}

// RawRow is one input row keyed by header text exactly as the source supplied it.
// Values are strings, numbers, time.Time or nil.
type RawRow map[string]any

// RawTable is the tabular record set a data source hands to the engine.
// Columns holds the header row when the source has one; sources without a
// header row (JSON rows) leave it empty.
type RawTable struct {
	Columns []string `json:"columns,omitempty"`
	Rows    []RawRow `json:"rows"`
}

// Record is one usable measurement. Every critical field is set; optional
// measurements are nil when absent.
type Record struct {
	Index       int       `json:"index"`
	Lot         string    `json:"lot"`
	Timestamp   time.Time `json:"timestamp"`
	Temperature float64   `json:"temp"`
	Brix        float64   `json:"brix"`
	PH          *float64  `json:"ph"`
	VA          *float64  `json:"va,omitempty"`
	TA          *float64  `json:"ta,omitempty"`
	Alcohol     *float64  `json:"alcohol,omitempty"`
	SO2         *float64  `json:"so2,omitempty"`
	MLF         string    `json:"mlf,omitempty"`
	Notes       string    `json:"notes,omitempty"`
}

// Value returns the numeric measurement stored under a canonical column name.
func (r Record) Value(column string) (float64, bool) {
	switch column {
	case ColTemp:
		return r.Temperature, true
	case ColBrix:
		return r.Brix, true
	case ColPH:
		return deref(r.PH)
	case ColVA:
		return deref(r.VA)
	case ColTA:
		return deref(r.TA)
	case ColAlcohol:
		return deref(r.Alcohol)
	case ColSO2:
		return deref(r.SO2)
	}
	return 0, false
}

func deref(v *float64) (float64, bool) {
	if v == nil {
		return 0, false
	}
	return *v, true
}

// LotSeries is the records of one lot in ascending timestamp order.
type LotSeries struct {
	Lot     string
	Records []Record
}

// Len returns the number of records in the series.
func (s LotSeries) Len() int {
	return len(s.Records)
}

// Brix returns the series' brix readings in sequence order.
func (s LotSeries) Brix() []float64 {
	out := make([]float64, len(s.Records))
	for i, rec := range s.Records {
		out[i] = rec.Brix
	}
	return out
}

// Temperatures returns the series' temperature readings in sequence order.
func (s LotSeries) Temperatures() []float64 {
	out := make([]float64, len(s.Records))
	for i, rec := range s.Records {
		out[i] = rec.Temperature
	}
	return out
}

// DateRange returns the first and last timestamps of the series.
// Both are zero for an empty series.
func (s LotSeries) DateRange() (time.Time, time.Time) {
	if len(s.Records) == 0 {
		return time.Time{}, time.Time{}
	}
	return s.Records[0].Timestamp, s.Records[len(s.Records)-1].Timestamp
}

// Flags holds the independent anomaly markers attached to one record.
type Flags struct {
	FlatBrix  bool `json:"flat_brix"`
	RapidDrop bool `json:"rapid_drop"`
	HighTemp  bool `json:"high_temp"`
}

// Fermentation reports whether either brix rule fired.
func (f Flags) Fermentation() bool {
	return f.FlatBrix || f.RapidDrop
}

// FlaggedRecord pairs a record with the flags computed for it.
type FlaggedRecord struct {
	Record
	Flags
}
