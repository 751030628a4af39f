package search

import "github.com/ChrisMcGann/SpecMatch/pkg/core"

// boundIterations is the fixed number of bisection steps taken by
// LowerBound. Callers only rely on the result being a valid starting point
// for a forward scan, not on it being tight; keep the count fixed.
const boundIterations = 10

// LowerBound returns an index into lib, sorted by precursor m/z, from which a
// forward scan reaches every entry with PrecursorMZ >= targetMass-tolerance.
// The index is not necessarily tight. Scanning must still stop at the first
// entry above targetMass+tolerance.
func LowerBound(lib core.Library, targetMass, tolerance float64) int {
	if len(lib) == 0 {
		return 0
	}

	target := targetMass - tolerance
	lo, hi := 0, len(lib)-1
	if target > lib[hi].PrecursorMZ {
		return hi
	}

	// lo only moves onto entries strictly below target, so nothing in
	// front of it can be inside the window.
	for i := 0; i < boundIterations; i++ {
		mid := (lo + hi) / 2
		if lib[mid].PrecursorMZ < target {
			lo = mid
		} else {
			hi = mid
		}
	}
	return lo
}
