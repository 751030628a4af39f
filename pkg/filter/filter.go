// Package filter provides peak filtering applied to library entries on import
// and to measured spectra before they are scored
package filter

import (
	"fmt"
	"sort"
	"strings"

	"github.com/ChrisMcGann/SpecMatch/pkg/core"
)

// Config holds filtering configuration
type Config struct {
	TopN            int      // Keep only top N most intense peaks (0 = no limit)
	IntensityCutoff float64  // Keep only peaks above this % of base peak (0 = no cutoff)
	Annotations     []string // Keep only peaks whose annotation starts with one of these (nil = all)
}

// Validate checks the filter settings
func (c *Config) Validate() error {
	if c.TopN < 0 {
		return fmt.Errorf("top-n must be non-negative, got %d", c.TopN)
	}
	if c.IntensityCutoff < 0 || c.IntensityCutoff > 100 {
		return fmt.Errorf("intensity cutoff must be within [0, 100], got %g", c.IntensityCutoff)
	}
	return nil
}

// Enabled reports whether Apply would change anything
func (c *Config) Enabled() bool {
	return c.TopN > 0 || c.IntensityCutoff > 0 || len(c.Annotations) > 0
}

// Apply applies all configured filters to a spectrum
func (c *Config) Apply(spec *core.Spectrum) error {
	if err := c.Validate(); err != nil {
		return err
	}

	// Filter by annotation first
	if len(c.Annotations) > 0 {
		c.filterByAnnotation(spec)
	}

	// Apply intensity filters
	if c.IntensityCutoff > 0 {
		c.filterByIntensity(spec)
	}

	// Apply top-N filter
	if c.TopN > 0 {
		c.filterTopN(spec)
	}

	// Ensure peaks are sorted after all filtering
	spec.SortPeaks()

	return nil
}

// filterByAnnotation keeps only peaks matching the configured annotation prefixes
func (c *Config) filterByAnnotation(spec *core.Spectrum) {
	filtered := spec.Peaks[:0]
	for _, peak := range spec.Peaks {
		if matchesAnnotation(peak.Annotation, c.Annotations) {
			filtered = append(filtered, peak)
		}
	}
	spec.Peaks = filtered
}

func matchesAnnotation(annotation string, prefixes []string) bool {
	if annotation == "" {
		return false
	}

	for _, prefix := range prefixes {
		if strings.HasPrefix(annotation, prefix) {
			return true
		}
	}
	return false
}

// filterByIntensity removes peaks below the intensity cutoff percentage
func (c *Config) filterByIntensity(spec *core.Spectrum) {
	if len(spec.Peaks) == 0 {
		return
	}

	maxIntensity := 0.0
	for _, peak := range spec.Peaks {
		if peak.Intensity > maxIntensity {
			maxIntensity = peak.Intensity
		}
	}

	threshold := (c.IntensityCutoff / 100.0) * maxIntensity

	filtered := spec.Peaks[:0]
	for _, peak := range spec.Peaks {
		if peak.Intensity >= threshold {
			filtered = append(filtered, peak)
		}
	}
	spec.Peaks = filtered
}

// filterTopN keeps only the N most intense peaks
func (c *Config) filterTopN(spec *core.Spectrum) {
	if len(spec.Peaks) <= c.TopN {
		return
	}

	peaks := make([]core.Peak, len(spec.Peaks))
	copy(peaks, spec.Peaks)

	// ties keep the lower m/z
	sort.SliceStable(peaks, func(i, j int) bool {
		return peaks[i].Intensity > peaks[j].Intensity
	})

	spec.Peaks = peaks[:c.TopN]
}

// RemoveZeroIntensityPeaks removes peaks with zero or negative intensity
func RemoveZeroIntensityPeaks(spec *core.Spectrum) {
	filtered := spec.Peaks[:0]
	for _, peak := range spec.Peaks {
		if peak.Intensity > 0 {
			filtered = append(filtered, peak)
		}
	}
	spec.Peaks = filtered
}
