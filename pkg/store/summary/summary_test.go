package summary

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ChrisMcGann/SpecMatch/pkg/core"
)

func TestSummarize(t *testing.T) {
	rt := 2.5
	lib := core.Library{
		{PrecursorMZ: 100, CompoundClass: "Amino acids", Peaks: []core.Peak{{MZ: 50, Intensity: 1}}},
		{PrecursorMZ: 200, RetentionTime: &rt, Peaks: []core.Peak{{MZ: 50, Intensity: 1}, {MZ: 60, Intensity: 1}}},
		{PrecursorMZ: 300, CompoundClass: "Amino acids", IsotopeRatios: []float64{0.1}},
		{PrecursorMZ: 400, CompoundClass: "Lipids", Peaks: make([]core.Peak, 5)},
	}

	s := Summarize(lib)
	assert.Equal(t, 4, s.Count)
	assert.True(t, s.Sorted)
	assert.Equal(t, 1, s.Empty)
	assert.Equal(t, 1, s.SinglePeak)
	assert.Equal(t, 1, s.WithRT)
	assert.Equal(t, 1, s.WithIsotopes)
	assert.Equal(t, map[string]int{"Amino acids": 2, "Lipids": 1}, s.Classes)

	assert.Equal(t, 100.0, s.Precursor.Min)
	assert.Equal(t, 400.0, s.Precursor.Max)
	assert.InDelta(t, 250.0, s.Precursor.Mean, 1e-9)
	assert.Equal(t, 200.0, s.Precursor.Median)
	assert.Greater(t, s.Precursor.StdDev, 0.0)

	assert.Equal(t, 0.0, s.Peaks.Min)
	assert.Equal(t, 5.0, s.Peaks.Max)
	assert.InDelta(t, 2.0, s.Peaks.Mean, 1e-9)
}

func TestSummarizeUnsorted(t *testing.T) {
	lib := core.Library{{PrecursorMZ: 300}, {PrecursorMZ: 100}}
	s := Summarize(lib)
	assert.False(t, s.Sorted)
	assert.Equal(t, 100.0, s.Precursor.Min)
	// the library itself is untouched
	assert.Equal(t, 300.0, lib[0].PrecursorMZ)
}

func TestSummarizeEmpty(t *testing.T) {
	s := Summarize(nil)
	assert.Zero(t, s.Count)
	assert.True(t, s.Sorted)
	assert.Equal(t, Distribution{}, s.Precursor)
}

func TestSummarizeSingle(t *testing.T) {
	s := Summarize(core.Library{{PrecursorMZ: 150}})
	assert.Equal(t, 150.0, s.Precursor.Median)
	assert.Zero(t, s.Precursor.StdDev)
}
