package fermentation

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRapidDrop(t *testing.T) {
	tests := []struct {
		name      string
		brix      []float64
		threshold float64
		want      []bool
	}{
		{
			name:      "drop of nine flagged at default threshold",
			brix:      []float64{20.0, 18.0, 9.0, 8.5},
			threshold: DefaultRapidDropThreshold,
			want:      []bool{false, false, true, false},
		},
		{
			name:      "drop equal to threshold not flagged",
			brix:      []float64{20.0, 12.0},
			threshold: 8.0,
			want:      []bool{false, false},
		},
		{
			name:      "rise never flagged",
			brix:      []float64{5.0, 25.0},
			threshold: 0,
			want:      []bool{false, false},
		},
		{
			name:      "zero threshold flags any decrease",
			brix:      []float64{10.0, 9.9, 9.9},
			threshold: 0,
			want:      []bool{false, true, false},
		},
		{
			name:      "single value",
			brix:      []float64{20.0},
			threshold: 8.0,
			want:      []bool{false},
		},
		{
			name:      "empty",
			brix:      nil,
			threshold: 8.0,
			want:      []bool{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, RapidDrop(tt.brix, tt.threshold))
		})
	}
}

func TestRapidDrop_MonotonicInThreshold(t *testing.T) {
	brix := []float64{24.0, 22.5, 13.0, 12.0, 3.0, 2.9, 2.9, -1.0}
	thresholds := []float64{0, 0.5, 1, 4, 8, 9.4, 9.5, 20}

	prev := RapidDrop(brix, thresholds[0])
	for _, th := range thresholds[1:] {
		cur := RapidDrop(brix, th)
		for i := range cur {
			if cur[i] {
				assert.True(t, prev[i], "position %d flagged at %v but not at a smaller threshold", i, th)
			}
		}
		prev = cur
	}
}

func TestFlatBrix(t *testing.T) {
	tests := []struct {
		name string
		brix []float64
		want []bool
	}{
		{
			name: "four equal values then a break",
			brix: []float64{14.0, 14.0, 14.0, 14.0, 10.0},
			want: []bool{false, false, false, true, false},
		},
		{
			name: "five equal values",
			brix: []float64{3.0, 3.0, 3.0, 3.0, 3.0},
			want: []bool{false, false, false, true, true},
		},
		{
			name: "three equal values are not enough",
			brix: []float64{3.0, 3.0, 3.0},
			want: []bool{false, false, false},
		},
		{
			name: "changes that cancel out are not flat",
			brix: []float64{10.0, 11.0, 10.0, 10.0},
			want: []bool{false, false, false, false},
		},
		{
			name: "declining series",
			brix: []float64{20.0, 18.0, 9.0, 8.5},
			want: []bool{false, false, false, false},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FlatBrix(tt.brix))
		})
	}
}

func TestHighTemp(t *testing.T) {
	assert.Equal(t, []bool{false, false, true}, HighTemp([]float64{20, 35, 35.1}, DefaultHighTempThreshold))
}

func TestDetector_Detect(t *testing.T) {
	base := time.Date(2024, 9, 1, 0, 0, 0, 0, time.UTC)
	series := LotSeries{Lot: "L1"}
	for i, b := range []float64{14.0, 14.0, 14.0, 14.0, 4.0} {
		series.Records = append(series.Records, Record{
			Lot:         "L1",
			Timestamp:   base.AddDate(0, 0, i),
			Brix:        b,
			Temperature: 20 + float64(i)*5,
		})
	}

	flags := Detector{RapidDropThreshold: 8, HighTempThreshold: 35}.Detect(series)

	assert.Equal(t, []Flags{
		{},
		{},
		{},
		{FlatBrix: true},
		{RapidDrop: true, HighTemp: true},
	}, flags)
}
