package fermentation

import (
	"encoding/json"
	"math"
	"sort"
)

// Stat row labels in output order.
var statLabels = []string{"count", "mean", "std", "min", "25%", "50%", "75%", "max"}

// ColumnStats is the descriptive summary of one numeric column. Statistics
// that are undefined for the sample are NaN and serialize as null.
type ColumnStats struct {
	Column string
	Count  int
	Mean   float64
	Std    float64
	Min    float64
	P25    float64
	P50    float64
	P75    float64
	Max    float64
}

// Describe computes count, mean, sample standard deviation, min, quartiles
// and max. Quartiles interpolate linearly between order statistics.
func Describe(column string, values []float64) ColumnStats {
	st := ColumnStats{Column: column, Count: len(values)}
	nan := math.NaN()
	if len(values) == 0 {
		st.Mean, st.Std, st.Min, st.P25, st.P50, st.P75, st.Max = nan, nan, nan, nan, nan, nan, nan
		return st
	}

	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)

	var sum float64
	for _, v := range sorted {
		sum += v
	}
	st.Mean = sum / float64(len(sorted))

	st.Std = nan
	if len(sorted) > 1 {
		var sq float64
		for _, v := range sorted {
			d := v - st.Mean
			sq += d * d
		}
		st.Std = math.Sqrt(sq / float64(len(sorted)-1))
	}

	st.Min = sorted[0]
	st.Max = sorted[len(sorted)-1]
	st.P25 = quantile(sorted, 0.25)
	st.P50 = quantile(sorted, 0.50)
	st.P75 = quantile(sorted, 0.75)
	return st
}

// quantile expects sorted input.
func quantile(sorted []float64, q float64) float64 {
	pos := q * float64(len(sorted)-1)
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	if lo == hi {
		return sorted[lo]
	}
	return sorted[lo] + (sorted[hi]-sorted[lo])*(pos-float64(lo))
}

// Values returns the statistics in label order, count first.
func (c ColumnStats) Values() []float64 {
	return []float64{float64(c.Count), c.Mean, c.Std, c.Min, c.P25, c.P50, c.P75, c.Max}
}

func (c ColumnStats) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Column string   `json:"column"`
		Count  int      `json:"count"`
		Mean   *float64 `json:"mean"`
		Std    *float64 `json:"std"`
		Min    *float64 `json:"min"`
		P25    *float64 `json:"p25"`
		P50    *float64 `json:"p50"`
		P75    *float64 `json:"p75"`
		Max    *float64 `json:"max"`
	}{
		Column: c.Column,
		Count:  c.Count,
		Mean:   finite(c.Mean),
		Std:    finite(c.Std),
		Min:    finite(c.Min),
		P25:    finite(c.P25),
		P50:    finite(c.P50),
		P75:    finite(c.P75),
		Max:    finite(c.Max),
	})
}

func finite(v float64) *float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}

// Summary holds one ColumnStats per numeric column of the active schema.
type Summary struct {
	Columns []ColumnStats `json:"columns"`
}

// Summarize describes each column over the given records. Records missing
// an optional column do not count toward that column.
func Summarize(records []Record, columns []string) Summary {
	out := Summary{Columns: make([]ColumnStats, len(columns))}
	for i, col := range columns {
		values := make([]float64, 0, len(records))
		for _, rec := range records {
			if v, ok := rec.Value(col); ok {
				values = append(values, v)
			}
		}
		out.Columns[i] = Describe(col, values)
	}
	return out
}

// Column returns the stats for a column.
func (s Summary) Column(name string) (ColumnStats, bool) {
	for _, c := range s.Columns {
		if c.Column == name {
			return c, true
		}
	}
	return ColumnStats{}, false
}

// LotMean is one row of the per-lot means table.
type LotMean struct {
	Lot   string
	Means []float64
}

// LotMeans is the per-lot mean of every numeric column, rounded to two
// decimal places, with lots in ascending order.
type LotMeans struct {
	Columns []string
	Rows    []LotMean
}

// MeansByLot computes LotMeans over every lot of the dataset.
func MeansByLot(ds *Dataset, columns []string) LotMeans {
	out := LotMeans{Columns: append([]string(nil), columns...)}
	for _, lot := range ds.Lots() {
		series, _ := ds.Series(lot)
		sum := Summarize(series.Records, columns)
		row := LotMean{Lot: lot, Means: make([]float64, len(columns))}
		for i, c := range sum.Columns {
			row.Means[i] = round2(c.Mean)
		}
		out.Rows = append(out.Rows, row)
	}
	return out
}

// round2 rounds half to even at two decimal places. NaN passes through.
func round2(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return v
	}
	return math.RoundToEven(v*100) / 100
}

func (m LotMeans) MarshalJSON() ([]byte, error) {
	type row struct {
		Lot   string              `json:"lot"`
		Means map[string]*float64 `json:"means"`
	}
	rows := make([]row, len(m.Rows))
	for i, r := range m.Rows {
		means := make(map[string]*float64, len(m.Columns))
		for j, col := range m.Columns {
			means[col] = finite(r.Means[j])
		}
		rows[i] = row{Lot: r.Lot, Means: means}
	}
	return json.Marshal(struct {
		Columns []string `json:"columns"`
		Rows    []row    `json:"rows"`
	}{Columns: m.Columns, Rows: rows})
}
