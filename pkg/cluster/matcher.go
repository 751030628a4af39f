package cluster

import (
	"math"
	"sort"

	"github.com/ChrisMcGann/SpecMatch/pkg/core"
)

// ToleranceType selects how Options.Tolerance is interpreted.
type ToleranceType int

const (
	Dalton ToleranceType = iota
	PPM
)

// MatchKind records how a peak was paired.
type MatchKind int

const (
	Unmatched MatchKind = iota
	ProductIon
	NeutralLoss
	Shifted
)

const (
	minRefinedPeaks   = 2
	minMajorIntensity = 100.0
	minExactMatches   = 2
	shiftWeight       = 0.5 // applied before squaring
)

// Options configures the peak matcher.
type Options struct {
	Tolerance     float64
	ToleranceType ToleranceType
	ShiftUnit     float64 // mass of the repeating unit for shift matching
}

// DefaultOptions matches within 0.05 Da and shifts by CH2.
func DefaultOptions() Options {
	return Options{
		Tolerance:     0.05,
		ToleranceType: Dalton,
		ShiftUnit:     core.MassCH2,
	}
}

func (o Options) absolute(mz float64) float64 {
	if o.ToleranceType == PPM {
		return core.PPMToDalton(mz, o.Tolerance)
	}
	return o.Tolerance
}

// matchState is the per-peak bookkeeping of one comparison. It lives in a
// slice owned by a single call and is never shared.
type matchState struct {
	mass        float64
	intensity   float64
	neutralLoss float64
	partner     int
	kind        MatchKind
}

type side struct {
	precursor float64
	peaks     []matchState
}

type prepared struct {
	precursor float64
	peaks     []core.Peak
	major     int
}

func prepare[P core.Peaker](peaks []P, precursorMZ float64) prepared {
	refined := Refine(peaks, precursorMZ)
	major := 0
	for _, p := range refined {
		if p.Intensity >= minMajorIntensity {
			major++
		}
	}
	return prepared{precursor: precursorMZ, peaks: refined, major: major}
}

func (p prepared) side() side {
	states := make([]matchState, len(p.peaks))
	for i, pk := range p.peaks {
		states[i] = matchState{
			mass:        pk.MZ,
			intensity:   pk.Intensity,
			neutralLoss: p.precursor - pk.MZ,
			partner:     -1,
		}
	}
	return side{precursor: p.precursor, peaks: states}
}

// Score compares two spectra by direct product ion and neutral loss
// matching. Spectra with fewer than two refined peaks at or above 10% of
// their base peak score 0.
func Score[P core.Peaker](query []P, queryPrecursor float64, reference []P, referencePrecursor float64, opts Options) float64 {
	return compare(prepare(query, queryPrecursor), prepare(reference, referencePrecursor), opts, false)
}

// ScoreWithShift is Score with additional shift matching of the remaining
// peaks by whole multiples of opts.ShiftUnit.
func ScoreWithShift[P core.Peaker](query []P, queryPrecursor float64, reference []P, referencePrecursor float64, opts Options) float64 {
	return compare(prepare(query, queryPrecursor), prepare(reference, referencePrecursor), opts, true)
}

func compare(q, r prepared, opts Options, shift bool) float64 {
	if len(q.peaks) < minRefinedPeaks || len(r.peaks) < minRefinedPeaks {
		return 0
	}
	if !shift && (q.major < minRefinedPeaks || r.major < minRefinedPeaks) {
		return 0
	}

	qs, rs := q.side(), r.side()
	matchDirect(qs, rs, opts)
	if shift {
		matchShifted(qs, rs, opts.ShiftUnit)
	}
	return finalScore(qs, rs)
}

func matchDirect(q, r side, opts Options) {
	for i := range q.peaks {
		qp := &q.peaks[i]
		best, bestKind, bestDiff := -1, Unmatched, math.Inf(1)

		for j := range r.peaks {
			rp := &r.peaks[j]
			if rp.kind != Unmatched {
				continue
			}

			kind := Unmatched
			if math.Abs(qp.mass-rp.mass) <= opts.absolute(rp.mass) {
				kind = ProductIon
			} else if math.Abs(qp.neutralLoss-rp.neutralLoss) <= opts.absolute(r.precursor) {
				kind = NeutralLoss
			}
			if kind == Unmatched {
				continue
			}

			if d := math.Abs(qp.intensity - rp.intensity); d < bestDiff {
				best, bestKind, bestDiff = j, kind, d
			}
		}

		if best >= 0 {
			link(q, r, i, best, bestKind)
		}
	}
}

// matchShifted pairs still unmatched peaks whose nominal mass or neutral
// loss differs by k shift units, k up to the number of whole units between
// the precursors, in the direction of the heavier precursor.
func matchShifted(q, r side, unit float64) {
	diff := q.precursor - r.precursor
	if unit <= 0 || math.Abs(diff) <= unit {
		return
	}
	steps := int(math.Floor(math.Abs(diff) / unit))
	sign := 1.0
	if diff < 0 {
		sign = -1
	}

	for i := range q.peaks {
		qp := &q.peaks[i]
		if qp.kind != Unmatched {
			continue
		}
		qMass, qLoss := core.NominalMass(qp.mass), core.NominalMass(qp.neutralLoss)

		best, bestDiff := -1, math.Inf(1)
		for j := range r.peaks {
			rp := &r.peaks[j]
			if rp.kind != Unmatched {
				continue
			}
			for k := 1; k <= steps; k++ {
				shift := sign * float64(k) * unit
				if qMass != core.NominalMass(rp.mass+shift) && qLoss != core.NominalMass(rp.neutralLoss+shift) {
					continue
				}
				if d := math.Abs(qp.intensity - rp.intensity); d < bestDiff {
					best, bestDiff = j, d
				}
				break
			}
		}

		if best >= 0 {
			link(q, r, i, best, Shifted)
		}
	}
}

func link(q, r side, i, j int, kind MatchKind) {
	q.peaks[i].partner, q.peaks[i].kind = j, kind
	r.peaks[j].partner, r.peaks[j].kind = i, kind
}

func finalScore(q, r side) float64 {
	var product float64
	exact := 0
	for _, s := range q.peaks {
		if s.kind == ProductIon || s.kind == NeutralLoss {
			product += s.intensity * r.peaks[s.partner].intensity
			exact++
		}
	}
	if exact < minExactMatches {
		return 0
	}

	den := product + unexplained(q.peaks) + unexplained(r.peaks)
	if den <= 0 {
		return 0
	}
	return product / den
}

// unexplained sums the squared intensity not covered by exact matches.
func unexplained(peaks []matchState) float64 {
	sum := 0.0
	for _, s := range peaks {
		switch s.kind {
		case Unmatched:
			sum += s.intensity * s.intensity
		case Shifted:
			v := s.intensity * shiftWeight
			sum += v * v
		}
	}
	return sum
}

// Edge links two spectra whose cluster score reached the network threshold.
type Edge struct {
	Source int
	Target int
	Score  float64
}

// Network scores every pair of spectra and returns the edges scoring at
// least minScore, best first. Each spectrum is refined once.
func Network(spectra []*core.Spectrum, opts Options, minScore float64, useShift bool) []Edge {
	prep := make([]prepared, len(spectra))
	for i, s := range spectra {
		prep[i] = prepare(s.Peaks, s.PrecursorMZ)
	}

	var edges []Edge
	for i := range prep {
		for j := i + 1; j < len(prep); j++ {
			sc := compare(prep[i], prep[j], opts, useShift)
			if sc > 0 && sc >= minScore {
				edges = append(edges, Edge{Source: spectra[i].ID, Target: spectra[j].ID, Score: sc})
			}
		}
	}

	sort.SliceStable(edges, func(a, b int) bool {
		return edges[a].Score > edges[b].Score
	})
	return edges
}
