package fermentation

import (
	"math"
	"strconv"
	"time"
)

// FlatTable is a header plus string rows, ready for CSV or spreadsheet export.
type FlatTable struct {
	Header []string
	Rows   [][]string
}

// Names of the exportable tables.
const (
	TableSummary   = "summary"
	TableLotMeans  = "lot_means"
	TableAnomalies = "anomalies"
	TableHighTemps = "high_temps"
)

// TableNames lists the exportable tables.
func TableNames() []string {
	return []string{TableSummary, TableLotMeans, TableAnomalies, TableHighTemps}
}

// FormatFloat renders a float in its shortest form. NaN renders empty.
func FormatFloat(v float64) string {
	if math.IsNaN(v) {
		return ""
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func formatTimestamp(t time.Time) string {
	return t.UTC().Format("2006-01-02 15:04:05")
}

func formatBool(b bool) string {
	if b {
		return "true"
	}
	return "false"
}

// Table returns the named table and whether it exists for this result.
func (r *Result) Table(name string) (FlatTable, bool) {
	switch name {
	case TableSummary:
		return r.SummaryTable(), true
	case TableLotMeans:
		if r.LotMeans == nil {
			return FlatTable{}, false
		}
		return r.LotMeansTable(), true
	case TableAnomalies:
		return r.AnomalyTable(), true
	case TableHighTemps:
		return r.HighTempTable(), true
	}
	return FlatTable{}, false
}

// SummaryTable lays the summary out with one row per statistic and one
// column per numeric field. In single-lot mode it describes that lot.
func (r *Result) SummaryTable() FlatTable {
	var sum Summary
	switch {
	case r.Overall != nil:
		sum = *r.Overall
	case len(r.Lots) == 1:
		sum = r.Lots[0].Summary
	default:
		sum = Summarize(nil, r.Columns)
	}
	return summaryTable(sum)
}

func summaryTable(sum Summary) FlatTable {
	t := FlatTable{Header: []string{"stat"}}
	for _, c := range sum.Columns {
		t.Header = append(t.Header, c.Column)
	}
	for i, label := range statLabels {
		row := []string{label}
		for _, c := range sum.Columns {
			row = append(row, FormatFloat(c.Values()[i]))
		}
		t.Rows = append(t.Rows, row)
	}
	return t
}

// LotMeansTable has one row per lot. It is empty in single-lot mode.
func (r *Result) LotMeansTable() FlatTable {
	if r.LotMeans == nil {
		return FlatTable{Header: append([]string{"lot"}, r.Columns...)}
	}
	t := FlatTable{Header: append([]string{"lot"}, r.LotMeans.Columns...)}
	for _, row := range r.LotMeans.Rows {
		out := []string{row.Lot}
		for _, m := range row.Means {
			out = append(out, FormatFloat(m))
		}
		t.Rows = append(t.Rows, out)
	}
	return t
}

// AnomalyTable lists every record flagged by a brix rule.
func (r *Result) AnomalyTable() FlatTable {
	t := FlatTable{Header: []string{"lot", "timestamp", "brix", "temp", "flat_brix", "rapid_drop"}}
	for _, l := range r.Lots {
		for _, rec := range l.Records {
			if !rec.Fermentation() {
				continue
			}
			t.Rows = append(t.Rows, []string{
				rec.Lot,
				formatTimestamp(rec.Timestamp),
				FormatFloat(rec.Brix),
				FormatFloat(rec.Temperature),
				formatBool(rec.FlatBrix),
				formatBool(rec.RapidDrop),
			})
		}
	}
	return t
}

// HighTempTable lists every record above the high temperature threshold.
func (r *Result) HighTempTable() FlatTable {
	t := FlatTable{Header: []string{"lot", "timestamp", "temp", "brix", "ph"}}
	for _, l := range r.Lots {
		for _, rec := range l.Records {
			if !rec.HighTemp {
				continue
			}
			ph := ""
			if rec.PH != nil {
				ph = FormatFloat(*rec.PH)
			}
			t.Rows = append(t.Rows, []string{
				rec.Lot,
				formatTimestamp(rec.Timestamp),
				FormatFloat(rec.Temperature),
				FormatFloat(rec.Brix),
				ph,
			})
		}
	}
	return t
}
