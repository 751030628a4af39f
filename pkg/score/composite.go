package score

import "github.com/ChrisMcGann/SpecMatch/pkg/similarity"

// Input collects the sub-scores of one query/candidate pair. RT and
// Isotope are nil when the comparison does not apply; a nil term is left out
// of the weighted average entirely rather than scored as zero.
type Input struct {
	Mass    float64
	RT      *float64
	Isotope *float64
	MSMS    similarity.MSMS

	// Underdetermined marks a reference spectrum with at most one peak.
	Underdetermined bool
}

// Value returns a pointer to v, for filling the optional sub-scores.
func Value(v float64) *float64 {
	return &v
}

// MSMSSimilarity folds the three MS/MS sub-scores into one value.
func MSMSSimilarity(m similarity.MSMS, underdetermined bool, p Profile) float64 {
	wsum := p.DotProduct + p.ReverseDot + p.Presence
	if wsum <= 0 {
		return 0
	}

	sim := (p.DotProduct*m.DotProduct + p.ReverseDot*m.ReverseDotProduct + p.Presence*m.Presence) / wsum
	if underdetermined && p.HalveUnderdetermined {
		sim *= 0.5
	}
	return sim
}

// Total is the weighted average of the MS/MS, mass, retention time and
// isotope similarities. Retention time only takes part when useRT is set.
func Total(in Input, p Profile, useRT bool) float64 {
	msms := MSMSSimilarity(in.MSMS, in.Underdetermined, p)

	num := p.MSMS*msms + p.Mass*in.Mass
	den := p.MSMS + p.Mass
	num, den = fold(num, den, in.RT, in.Isotope, p, useRT)
	if den <= 0 {
		return 0
	}
	return num / den
}

// TotalWithoutMSMS scores a pair from mass, retention time and isotope
// similarity only, for entries without a fragment spectrum.
func TotalWithoutMSMS(mass float64, rt, isotope *float64, p Profile, useRT bool) float64 {
	num, den := fold(p.Mass*mass, p.Mass, rt, isotope, p, useRT)
	if den <= 0 {
		return 0
	}
	return num / den
}

func fold(num, den float64, rt, isotope *float64, p Profile, useRT bool) (float64, float64) {
	if useRT && rt != nil {
		num += p.RT * *rt
		den += p.RT
	}
	if isotope != nil {
		num += p.Isotope * *isotope
		den += p.Isotope
	}
	return num, den
}
