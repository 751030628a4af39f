// Package cluster scores pairs of MS/MS spectra for molecular networking.
// Unlike the library search it matches peaks one to one, by product ion or
// neutral loss, and can credit fragments that differ by a whole number of a
// fixed shift unit (e.g. CH2 homologs or labeled pairs).
package cluster

import (
	"math"
	"sort"

	"github.com/ChrisMcGann/SpecMatch/pkg/core"
)

const (
	precursorMargin = 0.2
	bucketWidth     = 100.0
	firstBucketTop  = 2
	bucketTop       = 5
	normalizedMax   = 1000.0
)

// Refine reduces a spectrum to its most informative fragments: peaks up to
// precursorMZ+0.2 that are not tagged as isotopes, the two most intense
// below m/z 100 and the five most intense in every following 100-wide
// window. Intensities are rescaled to 0-1000 and the result is sorted by m/z.
func Refine[P core.Peaker](peaks []P, precursorMZ float64) []core.Peak {
	kept := make([]core.Peak, 0, len(peaks))
	for _, p := range peaks {
		if p.PeakMZ() > precursorMZ+precursorMargin || p.PeakIntensity() <= 0 {
			continue
		}
		var annotation string
		if a, ok := any(p).(core.Annotated); ok {
			annotation = a.PeakAnnotation()
			if annotation == core.AnnotationIsotope {
				continue
			}
		}
		kept = append(kept, core.Peak{MZ: p.PeakMZ(), Intensity: p.PeakIntensity(), Annotation: annotation})
	}

	sort.SliceStable(kept, func(i, j int) bool {
		bi, bj := bucket(kept[i].MZ), bucket(kept[j].MZ)
		if bi != bj {
			return bi < bj
		}
		return kept[i].Intensity > kept[j].Intensity
	})

	refined := make([]core.Peak, 0, len(kept))
	for i := 0; i < len(kept); {
		b := bucket(kept[i].MZ)
		limit := bucketTop
		if b == 0 {
			limit = firstBucketTop
		}

		j := i
		for j < len(kept) && bucket(kept[j].MZ) == b {
			j++
		}
		refined = append(refined, kept[i:min(j, i+limit)]...)
		i = j
	}

	maxIntensity := 0.0
	for _, p := range refined {
		maxIntensity = math.Max(maxIntensity, p.Intensity)
	}
	for i := range refined {
		refined[i].Intensity = refined[i].Intensity / maxIntensity * normalizedMax
	}

	sort.SliceStable(refined, func(i, j int) bool {
		return refined[i].MZ < refined[j].MZ
	})
	return refined
}

func bucket(mz float64) int {
	return int(math.Floor(mz / bucketWidth))
}
