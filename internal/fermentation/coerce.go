package fermentation

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// maxMalformedDiagnostics caps how many malformed cells are kept verbatim.
const maxMalformedDiagnostics = 200

var (
	errUnsupportedType = errors.New("unsupported value type")
	errNoLayout        = errors.New("no matching layout")
)

var dateLayouts = []string{
	"2006-01-02",
	"2006-1-2",
	"2006/01/02",
	"1/2/2006",
	"02-Jan-2006",
	"2-Jan-2006",
	"Jan 2, 2006",
	"2 Jan 2006",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02T15:04:05",
	"1/2/2006 15:04:05",
	"1/2/2006 15:04",
	time.RFC3339,
	time.RFC3339Nano,
}

var clockLayouts = []string{
	"15:04",
	"15:04:05",
	"3:04 PM",
	"3:04PM",
	"3:04:05 PM",
	"3:04:05PM",
}

// CoercionReport summarizes what the coercer kept, dropped and could not parse.
type CoercionReport struct {
	RowsRead    int `json:"rows_read"`
	RowsKept    int `json:"rows_kept"`
	RowsDropped int `json:"rows_dropped"`
	// MissingByField counts rows where a critical field was missing.
	// A row missing several fields is counted under each.
	MissingByField map[string]int        `json:"missing_by_field"`
	MalformedCount int                   `json:"malformed_count"`
	Malformed      []MalformedValueError `json:"malformed,omitempty"`
	Collisions     []string              `json:"header_collisions,omitempty"`
}

func (r *CoercionReport) malformed(row int, column string, raw any, err error) {
	r.MalformedCount++
	if len(r.Malformed) < maxMalformedDiagnostics {
		r.Malformed = append(r.Malformed, MalformedValueError{
			Row: row, Column: column, Value: fmt.Sprint(raw), Err: err,
		})
	}
}

// Coerce converts normalized rows into typed records. Cells that cannot be
// parsed become missing; rows missing any critical field are dropped. The
// surviving records keep their input order and carry their input index.
func Coerce(t Table, schema Schema) ([]Record, CoercionReport) {
	report := CoercionReport{
		RowsRead:       len(t.Rows),
		MissingByField: map[string]int{},
		Collisions:     t.Collisions,
	}
	useTime := t.HasColumn(ColTime)
	critical := schema.CriticalFields()

	records := make([]Record, 0, len(t.Rows))
	for i, row := range t.Rows {
		rec := Record{Index: i}
		have := map[string]bool{}

		if lot, ok := parseLot(row[ColLot]); ok {
			rec.Lot = lot
			have[ColLot] = true
		}

		ts, ok, err := parseTimestamp(row[ColDate], row[ColTime], useTime)
		if err != nil {
			col := ColDate
			var ce clockError
			if errors.As(err, &ce) {
				col = ColTime
				report.malformed(i, col, row[ColTime], err)
			} else {
				report.malformed(i, col, row[ColDate], err)
			}
		}
		if ok {
			rec.Timestamp = ts
			have[FieldTimestamp] = true
		}

		for _, col := range numericColumns {
			raw, present := row[col]
			if !present {
				continue
			}
			v, ok, err := parseNumber(raw)
			if err != nil {
				report.malformed(i, col, raw, err)
			}
			if !ok {
				continue
			}
			have[col] = true
			rec.set(col, v)
		}
		rec.MLF = textValue(row[ColMLF])
		rec.Notes = textValue(row[ColNotes])

		dropped := false
		for _, f := range critical {
			if !have[f] {
				report.MissingByField[f]++
				dropped = true
			}
		}
		if dropped {
			report.RowsDropped++
			continue
		}
		records = append(records, rec)
	}
	report.RowsKept = len(records)
	return records, report
}

func (r *Record) set(column string, v float64) {
	switch column {
	case ColTemp:
		r.Temperature = v
	case ColBrix:
		r.Brix = v
	case ColPH:
		r.PH = &v
	case ColVA:
		r.VA = &v
	case ColTA:
		r.TA = &v
	case ColAlcohol:
		r.Alcohol = &v
	case ColSO2:
		r.SO2 = &v
	}
}

// parseNumber reports ok=false for missing values. err is set only when a
// non-empty value could not be parsed.
func parseNumber(raw any) (float64, bool, error) {
	var v float64
	switch x := raw.(type) {
	case nil:
		return 0, false, nil
	case string:
		s := strings.TrimSpace(x)
		if s == "" {
			return 0, false, nil
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, false, err
		}
		v = f
	case json.Number:
		f, err := x.Float64()
		if err != nil {
			return 0, false, err
		}
		v = f
	case float64:
		v = x
	case float32:
		v = float64(x)
	case int:
		v = float64(x)
	case int8:
		v = float64(x)
	case int16:
		v = float64(x)
	case int32:
		v = float64(x)
	case int64:
		v = float64(x)
	case uint:
		v = float64(x)
	case uint8:
		v = float64(x)
	case uint16:
		v = float64(x)
	case uint32:
		v = float64(x)
	case uint64:
		v = float64(x)
	default:
		return 0, false, fmt.Errorf("%w: %T", errUnsupportedType, raw)
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false, nil
	}
	return v, true, nil
}

// parseLot keeps text lots verbatim. Numeric lots are rendered in their
// shortest form so that 101 and "101" group together.
func parseLot(raw any) (string, bool) {
	switch x := raw.(type) {
	case nil:
		return "", false
	case string:
		return x, x != ""
	case json.Number:
		return x.String(), x != ""
	case float64:
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return "", false
		}
		return strconv.FormatFloat(x, 'f', -1, 64), true
	case float32:
		return parseLot(float64(x))
	case int:
		return strconv.Itoa(x), true
	case int64:
		return strconv.FormatInt(x, 10), true
	default:
		s := fmt.Sprint(x)
		return s, s != ""
	}
}

func textValue(raw any) string {
	switch x := raw.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(x)
	case float64:
		if math.IsNaN(x) {
			return ""
		}
		return strconv.FormatFloat(x, 'f', -1, 64)
	default:
		return fmt.Sprint(x)
	}
}

type clockError struct {
	err error
}

func (e clockError) Error() string { return "time of day: " + e.err.Error() }
func (e clockError) Unwrap() error { return e.err }

// parseTimestamp builds a UTC timestamp from a date and, when the table has
// a time column, a time of day. A missing or unparsable component yields a
// missing timestamp.
func parseTimestamp(dateRaw, clockRaw any, useTime bool) (time.Time, bool, error) {
	day, ok, err := parseDate(dateRaw)
	if !ok {
		return time.Time{}, false, err
	}
	if !useTime {
		return day.UTC(), true, nil
	}
	h, m, s, ok, err := parseClock(clockRaw)
	if !ok {
		return time.Time{}, false, err
	}
	// The calendar day is read in the date's own zone.
	y, mo, d := day.Date()
	return time.Date(y, mo, d, h, m, s, 0, time.UTC), true, nil
}

func parseDate(raw any) (time.Time, bool, error) {
	switch x := raw.(type) {
	case nil:
		return time.Time{}, false, nil
	case time.Time:
		if x.IsZero() {
			return time.Time{}, false, nil
		}
		return x, true, nil
	case string:
		s := strings.TrimSpace(x)
		if s == "" {
			return time.Time{}, false, nil
		}
		for _, layout := range dateLayouts {
			if t, err := time.Parse(layout, s); err == nil {
				return t, true, nil
			}
		}
		return time.Time{}, false, fmt.Errorf("date %q: %w", s, errNoLayout)
	default:
		return time.Time{}, false, fmt.Errorf("date: %w: %T", errUnsupportedType, raw)
	}
}

func parseClock(raw any) (int, int, int, bool, error) {
	switch x := raw.(type) {
	case nil:
		return 0, 0, 0, false, nil
	case time.Time:
		return x.Hour(), x.Minute(), x.Second(), true, nil
	case string:
		s := strings.ToUpper(strings.TrimSpace(x))
		if s == "" {
			return 0, 0, 0, false, nil
		}
		for _, layout := range clockLayouts {
			if t, err := time.Parse(layout, s); err == nil {
				return t.Hour(), t.Minute(), t.Second(), true, nil
			}
		}
		return 0, 0, 0, false, clockError{fmt.Errorf("%q: %w", s, errNoLayout)}
	default:
		return 0, 0, 0, false, clockError{fmt.Errorf("%w: %T", errUnsupportedType, raw)}
	}
}
