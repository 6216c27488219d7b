package fermentation

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func lotRows(lot string, start time.Time, brix ...float64) []RawRow {
	rows := make([]RawRow, len(brix))
	for i, b := range brix {
		rows[i] = RawRow{
			"Date": start.AddDate(0, 0, i).Format("2006-01-02"),
			"Lot":  lot,
			"Temp": "22.0",
			"Brix": fmt.Sprintf("%v", b),
			"pH":   "3.4",
		}
	}
	return rows
}

func table(rows ...[]RawRow) RawTable {
	t := RawTable{Columns: []string{"Date", "Lot", "Temp", "Brix", "pH"}}
	for _, r := range rows {
		t.Rows = append(t.Rows, r...)
	}
	return t
}

func analyze(t *testing.T, raw RawTable, mutate func(*Options)) *Result {
	t.Helper()
	opts := DefaultOptions()
	if mutate != nil {
		mutate(&opts)
	}
	res, err := NewAnalyzer(slog.Default()).Analyze(context.Background(), raw, opts)
	require.NoError(t, err)
	return res
}

var day0 = time.Date(2024, 9, 1, 0, 0, 0, 0, time.UTC)

func TestAnalyze_RapidDropScenario(t *testing.T) {
	res := analyze(t, table(lotRows("L1", day0, 20.0, 18.0, 9.0, 8.5)), nil)

	require.Len(t, res.Lots, 1)
	lot := res.Lots[0]
	assert.Equal(t, 1, lot.RapidDropCount)
	assert.Equal(t, 0, lot.FlatBrixCount)
	assert.True(t, lot.Records[2].RapidDrop)
	assert.Equal(t, 9.0, lot.Records[2].Brix)
}

func TestAnalyze_FlatBrixScenario(t *testing.T) {
	res := analyze(t, table(lotRows("L1", day0, 14.0, 14.0, 14.0, 14.0, 10.0)), nil)

	lot := res.Lots[0]
	assert.True(t, lot.Records[3].FlatBrix)
	assert.False(t, lot.Records[4].FlatBrix)
	assert.Equal(t, 1, lot.FlatBrixCount)
	assert.Equal(t, 0, lot.RapidDropCount)
}

func TestAnalyze_SchemaErrorAbortsEveryLot(t *testing.T) {
	good := lotRows("L1", day0, 20, 19, 18)
	bad := lotRows("L2", day0, 22, 21)
	for _, r := range bad {
		delete(r, "pH")
	}
	raw := RawTable{}
	raw.Rows = append(append(raw.Rows, good...), bad...)

	res, err := NewAnalyzer(nil).Analyze(context.Background(), raw, DefaultOptions())

	var schemaErr *SchemaError
	require.ErrorAs(t, err, &schemaErr)
	assert.Equal(t, []string{"ph"}, schemaErr.Missing)
	assert.Nil(t, res)
}

func TestAnalyze_SingleRecordLot(t *testing.T) {
	res := analyze(t, table(lotRows("solo", day0, 12.5)), func(o *Options) { o.Lot = "solo" })

	require.Len(t, res.Lots, 1)
	lot := res.Lots[0]
	for _, c := range lot.Summary.Columns {
		assert.Equal(t, 1, c.Count, c.Column)
		assert.True(t, math.IsNaN(c.Std), c.Column)
	}
	assert.False(t, lot.Records[0].FlatBrix)
	assert.False(t, lot.Records[0].RapidDrop)
	assert.Equal(t, ModeSingleLot, res.Mode)
	assert.Nil(t, res.Overall)
	assert.Nil(t, res.LotMeans)
}

func TestAnalyze_LotsNeverShareWindows(t *testing.T) {
	// L1 ends flat and L2 starts flat. Sorted by lot these would form one
	// run of four equal values if windows crossed the boundary.
	raw := table(
		lotRows("L1", day0, 20, 15, 15),
		lotRows("L2", day0, 15, 15, 3),
	)

	res := analyze(t, raw, nil)

	for _, lot := range res.Lots {
		assert.Zero(t, lot.FlatBrixCount, lot.Lot)
	}
	assert.Equal(t, 0, res.Lots[0].RapidDropCount)
	assert.Equal(t, 1, res.Lots[1].RapidDropCount)
}

func TestAnalyze_SortsByTimestampWithinLot(t *testing.T) {
	rows := lotRows("L1", day0, 20, 10, 18)
	rows[0], rows[1] = rows[1], rows[0]

	res := analyze(t, table(rows), nil)

	got := []float64{}
	for _, r := range res.Lots[0].Records {
		got = append(got, r.Brix)
	}
	assert.Equal(t, []float64{20, 10, 18}, got)
	assert.True(t, res.Lots[0].Records[1].RapidDrop)
	assert.Equal(t, day0, res.Lots[0].FirstTimestamp)
	assert.Equal(t, day0.AddDate(0, 0, 2), res.Lots[0].LastTimestamp)
}

func TestAnalyze_LotIdentityIsExact(t *testing.T) {
	res := analyze(t, table(lotRows("L1", day0, 10, 9), lotRows("l1", day0, 10)), nil)

	assert.Equal(t, []string{"L1", "l1"}, res.Dataset.Lots())
	require.NotNil(t, res.LotMeans)
	assert.Len(t, res.LotMeans.Rows, 2)
}

func TestAnalyze_Warnings(t *testing.T) {
	t.Run("unknown lot", func(t *testing.T) {
		res := analyze(t, table(lotRows("L1", day0, 10)), func(o *Options) { o.Lot = "L9" })
		assert.Empty(t, res.Lots)
		require.Len(t, res.Warnings, 1)
		assert.Equal(t, "L9", res.Warnings[0].Lot)
	})

	t.Run("everything dropped", func(t *testing.T) {
		rows := lotRows("L1", day0, 10, 11)
		for _, r := range rows {
			r["Brix"] = "?"
		}
		res := analyze(t, table(rows), nil)
		assert.Empty(t, res.Lots)
		require.Len(t, res.Warnings, 1)
		assert.Empty(t, res.Warnings[0].Lot)
		assert.Equal(t, 2, res.Report.RowsDropped)
		require.NotNil(t, res.Overall)
		assert.Equal(t, 0, res.Overall.Columns[0].Count)
	})
}

func TestAnalyze_InvalidOptions(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Options)
	}{
		{name: "negative threshold", mutate: func(o *Options) { o.RapidDropThreshold = -1 }},
		{name: "nan threshold", mutate: func(o *Options) { o.RapidDropThreshold = math.NaN() }},
		{name: "infinite high temp", mutate: func(o *Options) { o.HighTempThreshold = math.Inf(1) }},
		{name: "no schema", mutate: func(o *Options) { o.Schema = Schema{} }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := DefaultOptions()
			tt.mutate(&opts)
			_, err := NewAnalyzer(nil).Analyze(context.Background(), table(), opts)
			assert.ErrorIs(t, err, ErrInvalidOptions)
		})
	}
}

func TestAnalyze_RerunOnExportedRecordsIsStable(t *testing.T) {
	raw := table(
		lotRows("L2", day0, 14, 14, 14, 14, 2),
		lotRows("L1", day0, 25, 24, 12, 11),
	)
	first := analyze(t, raw, nil)

	again := RawTable{Columns: []string{"date", "lot", "temp", "brix", "ph"}}
	for _, rec := range first.Dataset.Records() {
		again.Rows = append(again.Rows, RawRow{
			"date": rec.Timestamp.Format("2006-01-02"),
			"lot":  rec.Lot,
			"temp": rec.Temperature,
			"brix": rec.Brix,
			"ph":   *rec.PH,
		})
	}
	second := analyze(t, again, nil)

	require.Equal(t, len(first.Lots), len(second.Lots))
	for i := range first.Lots {
		for j := range first.Lots[i].Records {
			assert.Equal(t, first.Lots[i].Records[j].Flags, second.Lots[i].Records[j].Flags)
		}
	}
	assert.Equal(t, first.AnomalyCounts(), second.AnomalyCounts())
}

func TestSequence_Idempotent(t *testing.T) {
	recs := []Record{
		{Index: 0, Timestamp: day0.AddDate(0, 0, 2)},
		{Index: 1, Timestamp: day0},
		{Index: 2, Timestamp: day0},
	}

	once := Sequence(recs)
	twice := Sequence(once)

	assert.Equal(t, once, twice)
	assert.Equal(t, 1, once[0].Index, "ties keep input order")
	assert.Equal(t, 2, once[1].Index)
}

func TestResult_Tables(t *testing.T) {
	rows := lotRows("L1", day0, 20, 10)
	rows[1]["Temp"] = "36.5"
	res := analyze(t, table(rows), nil)

	anomalies := res.AnomalyTable()
	require.Len(t, anomalies.Rows, 1)
	assert.Equal(t, []string{"L1", "2024-09-02 00:00:00", "10", "36.5", "false", "true"}, anomalies.Rows[0])

	hot := res.HighTempTable()
	require.Len(t, hot.Rows, 1)
	assert.Equal(t, "36.5", hot.Rows[0][2])

	summary := res.SummaryTable()
	assert.Equal(t, []string{"stat", "temp", "brix", "ph"}, summary.Header)
	assert.Equal(t, []string{"count", "2", "2", "2"}, summary.Rows[0])

	means, ok := res.Table(TableLotMeans)
	require.True(t, ok)
	assert.Equal(t, []string{"L1", "29.25", "15", "3.4"}, means.Rows[0])

	_, ok = res.Table("bogus")
	assert.False(t, ok)
}
