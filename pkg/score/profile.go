// Package score combines the individual similarity metrics into the total
// identification score used to rank library candidates.
package score

import (
	"fmt"
	"strings"
)

// Domain selects the weighting profile.
type Domain int

const (
	// DomainGeneral weights spectral similarity for small-molecule work.
	DomainGeneral Domain = iota
	// DomainLipid favours fragment presence over intensity agreement.
	DomainLipid
)

// String returns the tag accepted by ParseDomain.
func (d Domain) String() string {
	switch d {
	case DomainLipid:
		return "lipid"
	default:
		return "general"
	}
}

// ParseDomain parses a domain tag as accepted on the command line.
func ParseDomain(s string) (Domain, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "general", "metabolomics":
		return DomainGeneral, nil
	case "lipid", "lipidomics":
		return DomainLipid, nil
	default:
		return DomainGeneral, fmt.Errorf("unknown domain %q, expected general or lipid", s)
	}
}

// Profile is a bundle of score weights. Profiles are values; General and
// Lipid return a fresh copy on every call.
type Profile struct {
	Name string

	// MS/MS sub-score weights
	DotProduct float64
	ReverseDot float64
	Presence   float64

	// Final fold weights
	MSMS    float64
	Mass    float64
	RT      float64
	Isotope float64

	// HalveUnderdetermined halves the MS/MS similarity when the reference
	// spectrum has at most one peak. Lipid fragmentation concentrates into
	// few diagnostic ions, so the lipid profile leaves it off.
	HalveUnderdetermined bool
}

// General returns the profile for general small-molecule identification.
func General() Profile {
	return Profile{
		Name:                 "general",
		DotProduct:           3,
		ReverseDot:           2,
		Presence:             1,
		MSMS:                 1.5,
		Mass:                 1,
		RT:                   1,
		Isotope:              0,
		HalveUnderdetermined: true,
	}
}

// Lipid returns the profile for lipid identification.
func Lipid() Profile {
	return Profile{
		Name:       "lipid",
		DotProduct: 1,
		ReverseDot: 2,
		Presence:   3,
		MSMS:       1.5,
		Mass:       1,
		RT:         0.5,
		Isotope:    0,
	}
}

// ProfileFor returns the weighting profile of a domain.
func ProfileFor(d Domain) Profile {
	if d == DomainLipid {
		return Lipid()
	}
	return General()
}
