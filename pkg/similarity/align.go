// Package similarity provides the spectrum alignment and the similarity
// metrics used to compare a query spectrum against a reference spectrum.
package similarity

import (
	"math"
	"sort"

	"github.com/ChrisMcGann/SpecMatch/pkg/core"
)

// Bin is one position of the common mass axis produced by Align, holding
// the summed intensity of each spectrum inside the bin.
type Bin struct {
	Mass      float64
	Query     float64
	Reference float64
}

// Align merges two m/z-sorted peak lists onto a common mass axis.
//
// Each bin is centred on the lowest unconsumed peak of either side and
// covers [mass-binHalfWidth, mass+binHalfWidth). The centre never
// decreases, so the walk is O(n+m). A single empty side still produces bins
// driven by the other side; two empty sides produce nil.
func Align[P core.Peaker](query, reference []P, binHalfWidth float64) []Bin {
	if len(query) == 0 && len(reference) == 0 {
		return nil
	}

	bins := make([]Bin, 0, max(len(query), len(reference)))
	qi, ri := 0, 0
	focused, ok := nextMass(query, reference, qi, ri)
	for ok {
		lo, hi := focused-binHalfWidth, focused+binHalfWidth

		var qSum, rSum float64
		nq, nr := qi, ri
		nq, qSum = sumBin(query, nq, focused, lo, hi)
		nr, rSum = sumBin(reference, nr, focused, lo, hi)
		bins = append(bins, Bin{Mass: focused, Query: qSum, Reference: rSum})

		// No cursor moved: bail out rather than spin.
		if nq == qi && nr == ri {
			break
		}
		qi, ri = nq, nr
		focused, ok = nextMass(query, reference, qi, ri)
	}

	return bins
}

// AlignRange aligns only the peaks inside [minMass, maxMass).
func AlignRange[P core.Peaker](query, reference []P, binHalfWidth, minMass, maxMass float64) []Bin {
	return Align(clip(query, minMass, maxMass), clip(reference, minMass, maxMass), binHalfWidth)
}

func clip[P core.Peaker](peaks []P, minMass, maxMass float64) []P {
	lo := sort.Search(len(peaks), func(i int) bool { return peaks[i].PeakMZ() >= minMass })
	hi := sort.Search(len(peaks), func(i int) bool { return peaks[i].PeakMZ() >= maxMass })
	if hi < lo {
		hi = lo
	}
	return peaks[lo:hi]
}

// sumBin consumes the peaks of one side that fall into the current bin.
// A peak sitting exactly on the centre always belongs to it, which keeps a
// zero bin width from stalling.
func sumBin[P core.Peaker](peaks []P, cursor int, focused, lo, hi float64) (int, float64) {
	sum := 0.0
	for ; cursor < len(peaks); cursor++ {
		mz := peaks[cursor].PeakMZ()
		if mz < lo {
			continue
		}
		if mz >= hi && mz != focused {
			break
		}
		sum += peaks[cursor].PeakIntensity()
	}
	return cursor, sum
}

func nextMass[P core.Peaker](query, reference []P, qi, ri int) (float64, bool) {
	next := math.Inf(1)
	ok := false
	if qi < len(query) {
		next = query[qi].PeakMZ()
		ok = true
	}
	if ri < len(reference) {
		if mz := reference[ri].PeakMZ(); !ok || mz < next {
			next = mz
		}
		ok = true
	}
	return next, ok
}
