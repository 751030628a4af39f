// Package summary computes descriptive statistics over a reference library.
package summary

import (
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/ChrisMcGann/SpecMatch/pkg/core"
)

// Distribution describes one numeric attribute across the library.
type Distribution struct {
	Min    float64 `json:"min"`
	Q1     float64 `json:"q1"`
	Median float64 `json:"median"`
	Q3     float64 `json:"q3"`
	Max    float64 `json:"max"`
	Mean   float64 `json:"mean"`
	StdDev float64 `json:"std_dev"`
}

// Summary is the result of Summarize.
type Summary struct {
	Count        int            `json:"count"`
	Sorted       bool           `json:"sorted"`
	Empty        int            `json:"empty"`       // spectra without peaks
	SinglePeak   int            `json:"single_peak"` // scored as under-determined
	WithRT       int            `json:"with_rt"`
	WithIsotopes int            `json:"with_isotopes"`
	Precursor    Distribution   `json:"precursor_mz"`
	Peaks        Distribution   `json:"peaks_per_spectrum"`
	Classes      map[string]int `json:"classes,omitempty"`
}

// Summarize walks the library once. An empty library gives a zero Summary.
func Summarize(lib core.Library) Summary {
	s := Summary{
		Count:   len(lib),
		Sorted:  lib.Validate() == nil,
		Classes: map[string]int{},
	}
	if len(lib) == 0 {
		return s
	}

	precursors := make([]float64, 0, len(lib))
	counts := make([]float64, 0, len(lib))
	for _, spec := range lib {
		precursors = append(precursors, spec.PrecursorMZ)
		counts = append(counts, float64(len(spec.Peaks)))

		switch len(spec.Peaks) {
		case 0:
			s.Empty++
		case 1:
			s.SinglePeak++
		}
		if spec.RetentionTime != nil {
			s.WithRT++
		}
		if len(spec.IsotopeRatios) > 0 {
			s.WithIsotopes++
		}
		if spec.CompoundClass != "" {
			s.Classes[spec.CompoundClass]++
		}
	}

	s.Precursor = describe(precursors)
	s.Peaks = describe(counts)
	return s
}

// describe sorts xs in place.
func describe(xs []float64) Distribution {
	sort.Float64s(xs)
	mean, std := stat.MeanStdDev(xs, nil)
	if len(xs) < 2 {
		std = 0
	}
	return Distribution{
		Min:    floats.Min(xs),
		Q1:     stat.Quantile(0.25, stat.Empirical, xs, nil),
		Median: stat.Quantile(0.5, stat.Empirical, xs, nil),
		Q3:     stat.Quantile(0.75, stat.Empirical, xs, nil),
		Max:    floats.Max(xs),
		Mean:   mean,
		StdDev: std,
	}
}
