package fermentation

import (
	"sort"
)

// Dataset is the collection of lot series produced by one run.
type Dataset struct {
	lots   []string
	series map[string]LotSeries
}

// Partition groups records by exact lot value and orders each group by
// timestamp. Records with equal timestamps keep their input order.
func Partition(records []Record) *Dataset {
	grouped := map[string][]Record{}
	for _, rec := range records {
		grouped[rec.Lot] = append(grouped[rec.Lot], rec)
	}

	ds := &Dataset{series: make(map[string]LotSeries, len(grouped))}
	for lot, recs := range grouped {
		ds.lots = append(ds.lots, lot)
		ds.series[lot] = LotSeries{Lot: lot, Records: Sequence(recs)}
	}
	sort.Strings(ds.lots)
	return ds
}

// Sequence returns a copy of records stable-sorted by ascending timestamp.
func Sequence(records []Record) []Record {
	out := make([]Record, len(records))
	copy(out, records)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Timestamp.Before(out[j].Timestamp)
	})
	return out
}

// Lots returns the distinct lot identifiers in ascending order.
func (d *Dataset) Lots() []string {
	out := make([]string, len(d.lots))
	copy(out, d.lots)
	return out
}

// Series returns the series for a lot.
func (d *Dataset) Series(lot string) (LotSeries, bool) {
	s, ok := d.series[lot]
	return s, ok
}

// Len returns the number of lots.
func (d *Dataset) Len() int {
	return len(d.lots)
}

// RecordCount returns the number of records across all lots.
func (d *Dataset) RecordCount() int {
	n := 0
	for _, s := range d.series {
		n += len(s.Records)
	}
	return n
}

// Records returns every record, lot by lot in lot order.
func (d *Dataset) Records() []Record {
	out := make([]Record, 0, d.RecordCount())
	for _, lot := range d.lots {
		out = append(out, d.series[lot].Records...)
	}
	return out
}
