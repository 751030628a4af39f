package cluster

import (
	"math/rand"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ChrisMcGann/SpecMatch/pkg/core"
)

func peaks(pairs ...float64) []core.Peak {
	out := make([]core.Peak, 0, len(pairs)/2)
	for i := 0; i+1 < len(pairs); i += 2 {
		out = append(out, core.Peak{MZ: pairs[i], Intensity: pairs[i+1]})
	}
	return out
}

func TestRefine(t *testing.T) {
	in := peaks(
		10, 5, 20, 50, 30, 40, 40, 30,
		101, 10, 110, 20, 120, 30, 130, 40, 140, 50, 150, 60,
		250, 500,
		260, 200,
		400, 100,
	)
	in[10].Annotation = core.AnnotationIsotope // 250

	got := Refine(in, 350)
	want := []core.Peak{
		{MZ: 20, Intensity: 250},
		{MZ: 30, Intensity: 200},
		{MZ: 110, Intensity: 100},
		{MZ: 120, Intensity: 150},
		{MZ: 130, Intensity: 200},
		{MZ: 140, Intensity: 250},
		{MZ: 150, Intensity: 300},
		{MZ: 260, Intensity: 1000},
	}
	if diff := cmp.Diff(want, got, cmpopts.EquateApprox(0, 1e-9)); diff != "" {
		t.Errorf("Refine() mismatch (-want +got):\n%s", diff)
	}
}

func TestRefineKeepsPrecursorMargin(t *testing.T) {
	got := Refine(peaks(100, 10, 300.15, 20, 300.25, 30), 300)
	require.Len(t, got, 2)
	assert.Equal(t, 300.15, got[1].MZ)
	assert.Empty(t, Refine[core.Peak](nil, 300))
}

func TestScoreIdentical(t *testing.T) {
	spec := peaks(91.05, 300, 119.05, 1000, 147.04, 650, 165.05, 400)

	assert.InDelta(t, 1.0, Score(spec, 183.06, spec, 183.06, DefaultOptions()), 1e-12)
	assert.InDelta(t, 1.0, ScoreWithShift(spec, 183.06, spec, 183.06, DefaultOptions()), 1e-12)
}

func shiftPair() (query []core.Peak, queryPrec float64, ref []core.Peak, refPrec float64) {
	// query is two units of 14 heavier; 214 and 264 carry the shift
	query = peaks(100, 1000, 150, 500, 214, 800, 264, 600)
	ref = peaks(100, 1000, 150, 500, 200, 800, 250, 600)
	return query, 328, ref, 300
}

func TestScoreWithShift(t *testing.T) {
	q, qp, r, rp := shiftPair()
	opts := Options{Tolerance: 0.05, ToleranceType: Dalton, ShiftUnit: 14}

	product := 1000.0*1000 + 500*500
	shifted := 0.25 * (800.0*800 + 600*600)
	assert.InDelta(t, product/(product+2*shifted), ScoreWithShift(q, qp, r, rp, opts), 1e-12)

	unshifted := 800.0*800 + 600*600
	assert.InDelta(t, product/(product+2*unshifted), Score(q, qp, r, rp, opts), 1e-12)

	assert.Greater(t, ScoreWithShift(q, qp, r, rp, opts), Score(q, qp, r, rp, opts))
}

func TestShiftMatchesNeedExactEvidence(t *testing.T) {
	q, qp, r, rp := shiftPair()
	// drop the shared 150 peak: one exact and two shift matches remain
	q = append(q[:1:1], q[2:]...)
	r = append(r[:1:1], r[2:]...)
	opts := Options{Tolerance: 0.05, ToleranceType: Dalton, ShiftUnit: 14}

	assert.Zero(t, ScoreWithShift(q, qp, r, rp, opts))

	qs, rs := prepare(q, qp).side(), prepare(r, rp).side()
	matchDirect(qs, rs, opts)
	matchShifted(qs, rs, opts.ShiftUnit)
	kinds := []MatchKind{}
	for _, s := range qs.peaks {
		kinds = append(kinds, s.kind)
	}
	assert.Equal(t, []MatchKind{ProductIon, Shifted, Shifted}, kinds)
}

func TestShiftRequiresWholeUnit(t *testing.T) {
	q, _, r, rp := shiftPair()
	opts := Options{Tolerance: 0.05, ToleranceType: Dalton, ShiftUnit: 14}

	// precursors within one unit: no shift matching at all
	qs, rs := prepare(q, rp+10).side(), prepare(r, rp).side()
	matchShifted(qs, rs, opts.ShiftUnit)
	for _, s := range qs.peaks {
		assert.Equal(t, Unmatched, s.kind)
	}
}

func TestNeutralLossMatch(t *testing.T) {
	q := peaks(150, 500, 300, 1000)
	r := peaks(150, 500, 320, 1000)

	qs, rs := prepare(q, 400).side(), prepare(r, 420).side()
	matchDirect(qs, rs, DefaultOptions())
	assert.Equal(t, ProductIon, qs.peaks[0].kind)
	assert.Equal(t, NeutralLoss, qs.peaks[1].kind)
	assert.Equal(t, 1, qs.peaks[1].partner)
	assert.Equal(t, NeutralLoss, rs.peaks[1].kind)

	assert.InDelta(t, 1.0, Score(q, 400, r, 420, DefaultOptions()), 1e-12)
}

func TestPeakMatchedOnce(t *testing.T) {
	q := peaks(100.00, 1000, 100.02, 900, 200, 500)
	r := peaks(100.01, 950, 200, 500)

	qs, rs := prepare(q, 300).side(), prepare(r, 300).side()
	matchDirect(qs, rs, DefaultOptions())
	assert.Equal(t, ProductIon, qs.peaks[0].kind)
	assert.Equal(t, Unmatched, qs.peaks[1].kind)
	assert.Equal(t, ProductIon, qs.peaks[2].kind)

	// Refine rescales each side to its own base peak
	r2 := 500.0 / 950 * 1000
	want := (1000*1000 + 500*r2) / (1000*1000 + 500*r2 + 900*900)
	assert.InDelta(t, want, Score(q, 300, r, 300, DefaultOptions()), 1e-9)
}

func TestPPMTolerance(t *testing.T) {
	q := peaks(200, 1000, 500.000, 800)
	r := peaks(200, 1000, 500.004, 800)

	loose := Options{Tolerance: 10, ToleranceType: PPM}
	tight := Options{Tolerance: 5, ToleranceType: PPM}

	assert.InDelta(t, 1.0, Score(q, 600, r, 600, loose), 1e-12)
	assert.Zero(t, Score(q, 600, r, 600, tight))
	assert.InDelta(t, 1.0, Score(q, 600, r, 600, DefaultOptions()), 1e-12)
}

func TestMinimumPeaks(t *testing.T) {
	single := peaks(150, 1000)
	assert.Zero(t, Score(single, 300, single, 300, DefaultOptions()))
	assert.Zero(t, ScoreWithShift(single, 300, single, 300, DefaultOptions()))

	// only one refined peak reaches 10% of the base peak
	weak := peaks(100, 1000, 150, 50)
	assert.Zero(t, Score(weak, 300, weak, 300, DefaultOptions()))
	assert.InDelta(t, 1.0, ScoreWithShift(weak, 300, weak, 300, DefaultOptions()), 1e-12)
}

func TestScoreBounded(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	gen := func() []core.Peak {
		n := rng.Intn(25)
		out := make([]core.Peak, n)
		mz := 40.0
		for i := range out {
			mz += rng.Float64() * 30
			out[i] = core.Peak{MZ: mz, Intensity: 1 + rng.Float64()*999}
		}
		return out
	}

	for i := 0; i < 200; i++ {
		q, r := gen(), gen()
		qp, rp := 300+rng.Float64()*200, 300+rng.Float64()*200
		for _, v := range []float64{
			Score(q, qp, r, rp, DefaultOptions()),
			ScoreWithShift(q, qp, r, rp, DefaultOptions()),
		} {
			assert.GreaterOrEqual(t, v, 0.0)
			assert.LessOrEqual(t, v, 1.0)
		}
	}
}

func TestNetwork(t *testing.T) {
	a := peaks(100, 1000, 150, 500, 200, 800)
	b := peaks(110, 1000, 160, 600, 210, 300)
	spectra := []*core.Spectrum{
		{ID: 1, PrecursorMZ: 300, Peaks: a},
		{ID: 2, PrecursorMZ: 300, Peaks: a},
		{ID: 3, PrecursorMZ: 300, Peaks: b},
	}

	edges := Network(spectra, DefaultOptions(), 0.5, false)
	require.Len(t, edges, 1)
	assert.Equal(t, 1, edges[0].Source)
	assert.Equal(t, 2, edges[0].Target)
	assert.InDelta(t, 1.0, edges[0].Score, 1e-12)

	assert.Empty(t, Network(spectra[:1], DefaultOptions(), 0.5, true))
}
