package fermentation

import (
	"math"
)

// Default detection thresholds.
const (
	DefaultRapidDropThreshold = 8.0
	DefaultHighTempThreshold  = 35.0
)

// flatBrixWindow is the number of consecutive zero differences that marks a stall.
const flatBrixWindow = 3

// RapidDrop flags position i when brix fell by more than threshold since
// position i-1. The first position is never flagged and a drop of exactly
// threshold is not flagged.
func RapidDrop(brix []float64, threshold float64) []bool {
	flags := make([]bool, len(brix))
	for i := 1; i < len(brix); i++ {
		if brix[i]-brix[i-1] < -threshold {
			flags[i] = true
		}
	}
	return flags
}

// FlatBrix flags position i when brix[i-3..i] are all equal, that is the
// three absolute differences ending at i sum to zero. Positions 0..2 are
// never flagged.
func FlatBrix(brix []float64) []bool {
	flags := make([]bool, len(brix))
	if len(brix) <= flatBrixWindow {
		return flags
	}
	diffs := make([]float64, len(brix))
	for i := 1; i < len(brix); i++ {
		diffs[i] = math.Abs(brix[i] - brix[i-1])
	}
	for i := flatBrixWindow; i < len(brix); i++ {
		var sum float64
		for j := i - flatBrixWindow + 1; j <= i; j++ {
			sum += diffs[j]
		}
		flags[i] = sum == 0
	}
	return flags
}

// HighTemp flags every temperature strictly above threshold.
func HighTemp(temps []float64, threshold float64) []bool {
	flags := make([]bool, len(temps))
	for i, t := range temps {
		flags[i] = t > threshold
	}
	return flags
}

// Detector applies every rule to a lot series.
type Detector struct {
	RapidDropThreshold float64
	HighTempThreshold  float64
}

// Detect returns one Flags per record of the series, aligned by position.
func (d Detector) Detect(s LotSeries) []Flags {
	brix := s.Brix()
	flat := FlatBrix(brix)
	drop := RapidDrop(brix, d.RapidDropThreshold)
	hot := HighTemp(s.Temperatures(), d.HighTempThreshold)

	flags := make([]Flags, s.Len())
	for i := range flags {
		flags[i] = Flags{FlatBrix: flat[i], RapidDrop: drop[i], HighTemp: hot[i]}
	}
	return flags
}
