package search

import (
	"math/rand"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ChrisMcGann/SpecMatch/pkg/core"
)

func libraryOf(masses ...float64) core.Library {
	lib := make(core.Library, len(masses))
	for i, m := range masses {
		lib[i] = &core.Spectrum{ID: i, PrecursorMZ: m}
	}
	return lib
}

func TestLowerBoundExample(t *testing.T) {
	lib := libraryOf(100, 200, 300, 400, 500)

	idx := LowerBound(lib, 305, 10)
	assert.LessOrEqual(t, idx, 2)
	assert.GreaterOrEqual(t, idx, 0)
}

func TestLowerBoundEdges(t *testing.T) {
	assert.Zero(t, LowerBound(nil, 300, 0.01))

	lib := libraryOf(100, 200, 300)
	assert.Equal(t, 2, LowerBound(lib, 1000, 0.01), "target above the library returns the last index")
	assert.Zero(t, LowerBound(lib, 50, 0.01))

	dup := libraryOf(100, 100, 100, 200)
	assert.Zero(t, LowerBound(dup, 100, 0), "equal masses in front of the bound must stay reachable")
}

func TestLowerBoundIsValid(t *testing.T) {
	rng := rand.New(rand.NewSource(1))

	for trial := 0; trial < 300; trial++ {
		n := 1 + rng.Intn(5000)
		masses := make([]float64, n)
		for i := range masses {
			// coarse values so duplicates are common
			masses[i] = 100 + float64(rng.Intn(2000))/4
		}
		sort.Float64s(masses)
		lib := libraryOf(masses...)

		target := 80 + rng.Float64()*560
		tol := rng.Float64() * 2
		idx := LowerBound(lib, target, tol)
		require.GreaterOrEqual(t, idx, 0)
		require.Less(t, idx, n)

		for i := 0; i < idx; i++ {
			require.Less(t, lib[i].PrecursorMZ, target-tol, "entry %d skipped but inside window (n=%d, idx=%d)", i, n, idx)
		}
	}
}

func TestLowerBoundNarrowsLargeLibraries(t *testing.T) {
	masses := make([]float64, 1000)
	for i := range masses {
		masses[i] = 100 + float64(i)
	}
	lib := libraryOf(masses...)

	idx := LowerBound(lib, 800, 0.5)
	assert.LessOrEqual(t, lib[idx].PrecursorMZ, 799.5)
	assert.Greater(t, idx, 690, "ten halvings should leave only a short scan")
}
