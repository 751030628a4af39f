package similarity

import (
	"math"

	"github.com/ChrisMcGann/SpecMatch/pkg/core"
)

const (
	// NoiseCutoff is the normalized intensity below which a bin is ignored
	// by the dot-product family.
	NoiseCutoff = 0.01
	// SignificantCutoff is the normalized reference intensity a bin needs
	// to count towards the peak-count penalty.
	SignificantCutoff = 0.1
)

// MSMS holds the three fragment-spectrum sub-scores used by the composite
// scorer. DotProduct and ReverseDotProduct already carry the peak-count
// penalty.
type MSMS struct {
	DotProduct        float64
	ReverseDotProduct float64
	Presence          float64
}

// DotProduct is the intensity weighted spectral similarity of query against
// reference. Bins whose normalized query intensity is below NoiseCutoff
// are skipped.
func DotProduct[P core.Peaker](query, reference []P, binHalfWidth float64) float64 {
	return dotFamily(Align(query, reference, binHalfWidth), false)
}

// ReverseDotProduct is DotProduct with the noise filter applied to the
// reference side, so extra query peaks that the reference lacks do not count
// against the match.
func ReverseDotProduct[P core.Peaker](query, reference []P, binHalfWidth float64) float64 {
	return dotFamily(Align(query, reference, binHalfWidth), true)
}

// PresencePercentage is the fraction of significant reference bins that
// also show query intensity.
func PresencePercentage[P core.Peaker](query, reference []P, binHalfWidth float64) float64 {
	return presence(Align(query, reference, binHalfWidth))
}

// Compare aligns the two spectra once and returns the penalized MS/MS
// sub-scores.
func Compare[P core.Peaker](query, reference []P, binHalfWidth float64) MSMS {
	bins := Align(query, reference, binHalfWidth)
	penalty := PeakCountPenalty(SignificantPeakCount(bins))
	return MSMS{
		DotProduct:        dotFamily(bins, false) * penalty,
		ReverseDotProduct: dotFamily(bins, true) * penalty,
		Presence:          presence(bins),
	}
}

// SignificantPeakCount counts reference bins whose normalized intensity
// exceeds SignificantCutoff.
func SignificantPeakCount(bins []Bin) int {
	_, maxRef := binMax(bins)
	if maxRef <= 0 {
		return 0
	}

	n := 0
	for _, b := range bins {
		if b.Reference/maxRef > SignificantCutoff {
			n++
		}
	}
	return n
}

// PeakCountPenalty down-weights matches against reference spectra that have
// only a handful of significant peaks.
func PeakCountPenalty(significantPeaks int) float64 {
	switch {
	case significantPeaks <= 1:
		return 0.75
	case significantPeaks == 2:
		return 0.88
	case significantPeaks == 3:
		return 0.94
	case significantPeaks == 4:
		return 0.97
	default:
		return 1.0
	}
}

// GaussianSimilarity scores the deviation of actual from reference on a
// Gaussian with the given tolerance as standard deviation. It is 1 at zero
// deviation. A non-positive tolerance only accepts an exact match.
func GaussianSimilarity(actual, reference, tolerance float64) float64 {
	if tolerance <= 0 {
		if actual == reference {
			return 1
		}
		return 0
	}
	z := (actual - reference) / tolerance
	return math.Exp(-0.5 * z * z)
}

// IsotopeSimilarity compares M+1, M+2, ... relative abundances. ok is false
// when either side has no ratios or the tolerance is not positive.
func IsotopeSimilarity(measured, reference []float64, tolerance float64) (sim float64, ok bool) {
	n := min(len(measured), len(reference))
	if n == 0 || tolerance <= 0 {
		return 0, false
	}

	sum := 0.0
	for i := 0; i < n; i++ {
		z := (measured[i] - reference[i]) / tolerance
		sum += z * z
	}
	return math.Exp(-0.5 * sum), true
}

func dotFamily(bins []Bin, reverse bool) float64 {
	maxQuery, maxRef := binMax(bins)
	if maxQuery <= 0 || maxRef <= 0 {
		return 0
	}

	var scalarQuery, scalarRef, covariance float64
	for _, b := range bins {
		q := b.Query / maxQuery
		r := b.Reference / maxRef

		gate := q
		if reverse {
			gate = r
		}
		if gate < NoiseCutoff {
			continue
		}

		scalarQuery += q * b.Mass
		scalarRef += r * b.Mass
		covariance += math.Sqrt(q*r) * b.Mass
	}

	if scalarQuery == 0 || scalarRef == 0 {
		return 0
	}
	return math.Min(1, covariance*covariance/(scalarQuery*scalarRef))
}

func presence(bins []Bin) float64 {
	_, maxRef := binMax(bins)
	if maxRef <= 0 {
		return 0
	}

	var total, found int
	for _, b := range bins {
		if b.Reference/maxRef < NoiseCutoff {
			continue
		}
		total++
		if b.Query > 0 {
			found++
		}
	}
	if total == 0 {
		return 0
	}
	return float64(found) / float64(total)
}

func binMax(bins []Bin) (query, reference float64) {
	for _, b := range bins {
		query = math.Max(query, b.Query)
		reference = math.Max(reference, b.Reference)
	}
	return query, reference
}
