// Package core provides the spectrum and peak models shared by the readers,
// the scoring engine and the library store.
package core

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"
)

// AnnotationIsotope marks a peak as an isotopic signal rather than a fragment.
const AnnotationIsotope = "isotope"

// ErrUnsortedLibrary is returned by Library.Validate when precursor m/z values
// are not in ascending order.
var ErrUnsortedLibrary = errors.New("library is not sorted by precursor m/z")

// Peaker is the minimal capability the similarity routines need from a peak.
type Peaker interface {
	PeakMZ() float64
	PeakIntensity() float64
}

// Annotated is implemented by peaks that carry a free-text tag.
type Annotated interface {
	PeakAnnotation() string
}

// Spectrum represents a single MS/MS spectrum with its precursor information.
// It is used both for library entries and for measured queries.
type Spectrum struct {
	ID            int
	Name          string
	PrecursorMZ   float64
	RetentionTime *float64 // minutes, or iRT
	Peaks         []Peak

	// Relative abundances of M+1, M+2, ... against the monoisotopic peak.
	IsotopeRatios []float64

	// Optional metadata
	PrecursorType   string // adduct, e.g. [M+H]+
	Formula         string
	InChIKey        string
	CompoundClass   string
	IonMode         string
	CollisionEnergy *float64

	// Internal tracking
	SourceFile   string
	SourceFormat string // msp, sptxt, sqlite
}

// Peak represents a single m/z, intensity pair with optional metadata.
type Peak struct {
	MZ         float64
	Intensity  float64
	Annotation string
	Charge     int
}

func (p Peak) PeakMZ() float64        { return p.MZ }
func (p Peak) PeakIntensity() float64 { return p.Intensity }
func (p Peak) PeakAnnotation() string { return p.Annotation }

// ValidationError represents an error found during spectrum validation.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error in %s: %s", e.Field, e.Message)
}

// Validate checks that a spectrum can be scored. Empty peak lists are valid.
func (s *Spectrum) Validate() error {
	var errs []string

	if math.IsNaN(s.PrecursorMZ) || math.IsInf(s.PrecursorMZ, 0) || s.PrecursorMZ <= 0 {
		errs = append(errs, "precursor m/z must be positive")
	}
	if s.RetentionTime != nil && (math.IsNaN(*s.RetentionTime) || math.IsInf(*s.RetentionTime, 0)) {
		errs = append(errs, "retention time must be finite")
	}

	for i, peak := range s.Peaks {
		if math.IsNaN(peak.MZ) || math.IsInf(peak.MZ, 0) {
			errs = append(errs, fmt.Sprintf("peak %d has invalid m/z", i))
		}
		if math.IsNaN(peak.Intensity) || math.IsInf(peak.Intensity, 0) {
			errs = append(errs, fmt.Sprintf("peak %d has invalid intensity", i))
		}
		if peak.MZ <= 0 {
			errs = append(errs, fmt.Sprintf("peak %d m/z must be positive", i))
		}
		if peak.Intensity < 0 {
			errs = append(errs, fmt.Sprintf("peak %d intensity must be non-negative", i))
		}
	}

	if !s.ArePeaksSorted() {
		errs = append(errs, "peaks must be sorted by m/z")
	}

	if len(errs) > 0 {
		return &ValidationError{
			Field:   "Spectrum",
			Message: strings.Join(errs, "; "),
		}
	}

	return nil
}

// ArePeaksSorted checks if peaks are sorted by m/z in ascending order.
func (s *Spectrum) ArePeaksSorted() bool {
	for i := 1; i < len(s.Peaks); i++ {
		if s.Peaks[i].MZ < s.Peaks[i-1].MZ {
			return false
		}
	}
	return true
}

// SortPeaks sorts peaks by m/z in ascending order.
func (s *Spectrum) SortPeaks() {
	sort.SliceStable(s.Peaks, func(i, j int) bool {
		return s.Peaks[i].MZ < s.Peaks[j].MZ
	})
}

// Label returns the spectrum name, falling back to its ID.
func (s *Spectrum) Label() string {
	if s.Name != "" {
		return s.Name
	}
	return fmt.Sprintf("#%d", s.ID)
}

// Library is a collection of reference spectra sorted ascending by precursor
// m/z. The scoring engine relies on that order and never checks it itself.
type Library []*Spectrum

// Sort establishes the precursor ordering. Entries with equal precursor m/z
// keep their relative order.
func (l Library) Sort() {
	sort.SliceStable(l, func(i, j int) bool {
		return l[i].PrecursorMZ < l[j].PrecursorMZ
	})
}

// Validate is the opt-in check for the precursor ordering.
func (l Library) Validate() error {
	for i := 1; i < len(l); i++ {
		if l[i].PrecursorMZ < l[i-1].PrecursorMZ {
			return fmt.Errorf("entry %d (%.5f) after %.5f: %w", i, l[i].PrecursorMZ, l[i-1].PrecursorMZ, ErrUnsortedLibrary)
		}
	}
	return nil
}
