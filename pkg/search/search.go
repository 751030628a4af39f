// Package search ranks library spectra against a query by composite
// similarity.
package search

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/ChrisMcGann/SpecMatch/pkg/core"
	"github.com/ChrisMcGann/SpecMatch/pkg/score"
	"github.com/ChrisMcGann/SpecMatch/pkg/similarity"
)

// ErrInvalidParams is returned for negative tolerances or an out of range
// cutoff.
var ErrInvalidParams = errors.New("invalid search parameters")

// Params configures a library search.
type Params struct {
	MS1Tolerance     float64  // precursor window half-width and Gaussian width, Da
	MS2Tolerance     float64  // fragment bin half-width, Da
	RTTolerance      *float64 // nil disables retention time scoring
	IsotopeTolerance float64  // 0 disables isotope scoring
	Cutoff           float64  // minimum total score, 0-100
	Profile          score.Profile
	UseRT            bool
}

// DefaultParams returns the parameters used when nothing else is configured.
func DefaultParams() Params {
	return Params{
		MS1Tolerance: 0.01,
		MS2Tolerance: 0.025,
		RTTolerance:  score.Value(0.5),
		Cutoff:       80,
		Profile:      score.General(),
	}
}

// Validate reports parameters the engine cannot work with.
func (p Params) Validate() error {
	check := func(name string, v float64) error {
		if math.IsNaN(v) || v < 0 {
			return fmt.Errorf("%w: %s must be non-negative, got %v", ErrInvalidParams, name, v)
		}
		return nil
	}

	if err := check("ms1 tolerance", p.MS1Tolerance); err != nil {
		return err
	}
	if err := check("ms2 tolerance", p.MS2Tolerance); err != nil {
		return err
	}
	if p.RTTolerance != nil {
		if err := check("rt tolerance", *p.RTTolerance); err != nil {
			return err
		}
	}
	if err := check("isotope tolerance", p.IsotopeTolerance); err != nil {
		return err
	}
	if math.IsNaN(p.Cutoff) || p.Cutoff < 0 || p.Cutoff > 100 {
		return fmt.Errorf("%w: cutoff must be within [0, 100], got %v", ErrInvalidParams, p.Cutoff)
	}
	return nil
}

// MatchScore is the result for one library candidate.
type MatchScore struct {
	ID    int
	Total float64

	Mass    float64
	RT      *float64
	Isotope *float64
	MSMS    similarity.MSMS
}

// Func is the signature shared by Search and SearchMS1.
type Func func(query *core.Spectrum, lib core.Library, p Params) ([]MatchScore, error)

// Search scores every library entry inside the precursor window of query and
// returns those whose total score exceeds the cutoff, best first. Ties keep
// library order. An empty library or an empty window yields no results.
//
// A query without fragment peaks is scored as SearchMS1 does. A candidate
// without peaks against a query with peaks keeps the MS/MS term at zero.
func Search(query *core.Spectrum, lib core.Library, p Params) ([]MatchScore, error) {
	if query != nil && len(query.Peaks) == 0 {
		return SearchMS1(query, lib, p)
	}
	return scan(query, lib, p, func(c *core.Spectrum, m *MatchScore) {
		m.MSMS = similarity.Compare(query.Peaks, c.Peaks, p.MS2Tolerance)
		m.Total = score.Total(score.Input{
			Mass:            m.Mass,
			RT:              m.RT,
			Isotope:         m.Isotope,
			MSMS:            m.MSMS,
			Underdetermined: len(c.Peaks) <= 1,
		}, p.Profile, p.UseRT)
	})
}

// SearchMS1 ranks candidates on precursor mass, retention time and isotope
// pattern alone, ignoring fragment spectra.
func SearchMS1(query *core.Spectrum, lib core.Library, p Params) ([]MatchScore, error) {
	return scan(query, lib, p, func(_ *core.Spectrum, m *MatchScore) {
		m.Total = score.TotalWithoutMSMS(m.Mass, m.RT, m.Isotope, p.Profile, p.UseRT)
	})
}

// IDs returns the candidate IDs in result order.
func IDs(results []MatchScore) []int {
	ids := make([]int, len(results))
	for i, r := range results {
		ids[i] = r.ID
	}
	return ids
}

func scan(query *core.Spectrum, lib core.Library, p Params, total func(*core.Spectrum, *MatchScore)) ([]MatchScore, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	if query == nil || len(lib) == 0 {
		return nil, nil
	}

	lower := query.PrecursorMZ - p.MS1Tolerance
	upper := query.PrecursorMZ + p.MS1Tolerance

	var results []MatchScore
	for _, c := range lib[LowerBound(lib, query.PrecursorMZ, p.MS1Tolerance):] {
		if c.PrecursorMZ > upper {
			break
		}
		if c.PrecursorMZ < lower {
			continue
		}

		m := MatchScore{
			ID:   c.ID,
			Mass: similarity.GaussianSimilarity(query.PrecursorMZ, c.PrecursorMZ, p.MS1Tolerance),
		}
		if p.RTTolerance != nil && query.RetentionTime != nil && c.RetentionTime != nil {
			m.RT = score.Value(similarity.GaussianSimilarity(*query.RetentionTime, *c.RetentionTime, *p.RTTolerance))
		}
		if sim, ok := similarity.IsotopeSimilarity(query.IsotopeRatios, c.IsotopeRatios, p.IsotopeTolerance); ok {
			m.Isotope = score.Value(sim)
		}

		total(c, &m)
		if m.Total*100 > p.Cutoff {
			results = append(results, m)
		}
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Total > results[j].Total
	})
	return results, nil
}
