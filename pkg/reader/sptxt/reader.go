// Package sptxt provides a streaming reader for SPTXT (SpectraST) format spectral libraries
package sptxt

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/ChrisMcGann/SpecMatch/pkg/core"
)

// Reader provides streaming access to SPTXT format files
type Reader struct {
	scanner     *bufio.Scanner
	lineNum     int
	nextID      int
	currentSpec *core.Spectrum
	err         error
}

// NewReader creates a new SPTXT reader
func NewReader(r io.Reader) *Reader {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 4*1024*1024)

	return &Reader{
		scanner: scanner,
	}
}

// Next advances to the next spectrum. Returns false when no more spectra or error.
func (r *Reader) Next() bool {
	r.currentSpec = nil

	spec, err := r.readSpectrum()
	if err != nil {
		if err != io.EOF {
			r.err = err
		}
		return false
	}

	spec.ID = r.nextID
	r.nextID++
	r.currentSpec = spec
	return true
}

// Spectrum returns the current spectrum
func (r *Reader) Spectrum() *core.Spectrum {
	return r.currentSpec
}

// Err returns any error encountered during reading
func (r *Reader) Err() error {
	return r.err
}

// ReadAll reads every remaining spectrum.
func (r *Reader) ReadAll() ([]*core.Spectrum, error) {
	var out []*core.Spectrum
	for r.Next() {
		out = append(out, r.Spectrum())
	}
	return out, r.Err()
}

// readSpectrum reads a single spectrum entry from the SPTXT file
func (r *Reader) readSpectrum() (*core.Spectrum, error) {
	spec := &core.Spectrum{
		SourceFormat: "sptxt",
		Peaks:        []core.Peak{},
	}

	var numPeaks int
	inPeaks := false
	peaksRead := 0

	for r.scanner.Scan() {
		r.lineNum++
		line := strings.TrimSpace(r.scanner.Text())

		// Skip comments and empty lines
		if line == "" || strings.HasPrefix(line, "###") {
			continue
		}

		if !inPeaks {
			switch {
			case strings.HasPrefix(line, "Name: "):
				spec.Name = strings.TrimPrefix(line, "Name: ")
			case strings.HasPrefix(line, "PrecursorMZ: "):
				mz, err := strconv.ParseFloat(strings.TrimPrefix(line, "PrecursorMZ: "), 64)
				if err != nil {
					return nil, fmt.Errorf("line %d: invalid precursor m/z: %w", r.lineNum, err)
				}
				spec.PrecursorMZ = mz
			case strings.HasPrefix(line, "Comment: "):
				r.parseComment(spec, strings.TrimPrefix(line, "Comment: "))
			case strings.HasPrefix(line, "NumPeaks: "):
				n, err := strconv.Atoi(strings.TrimPrefix(line, "NumPeaks: "))
				if err != nil {
					return nil, fmt.Errorf("line %d: invalid num peaks: %w", r.lineNum, err)
				}
				numPeaks = n
				inPeaks = true
				if n == 0 {
					return spec, nil
				}
			}
			continue
		}

		peak, err := r.parsePeak(line)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", r.lineNum, err)
		}
		spec.Peaks = append(spec.Peaks, peak)
		peaksRead++

		if peaksRead >= numPeaks {
			break
		}
	}

	if err := r.scanner.Err(); err != nil {
		return nil, err
	}

	// If we have a partially read spectrum, return it
	if spec.Name == "" && !inPeaks {
		return nil, io.EOF
	}

	if !spec.ArePeaksSorted() {
		spec.SortPeaks()
	}
	return spec, nil
}

// parseComment extracts metadata from Comment field
func (r *Reader) parseComment(spec *core.Spectrum, comment string) {
	for _, field := range strings.Fields(comment) {
		key, value, ok := strings.Cut(field, "=")
		if !ok {
			continue
		}

		switch key {
		case "Parent":
			mz, err := strconv.ParseFloat(value, 64)
			if err == nil && spec.PrecursorMZ == 0 {
				spec.PrecursorMZ = mz
			}

		case "CollisionEnergy":
			ce, err := strconv.ParseFloat(value, 64)
			if err == nil {
				spec.CollisionEnergy = &ce
			}

		case "RetentionTime":
			// May be comma-separated list, take first value
			first, _, _ := strings.Cut(value, ",")
			rt, err := strconv.ParseFloat(first, 64)
			if err == nil {
				spec.RetentionTime = &rt
			}
		}
	}
}

// parsePeak parses a single peak line
// Format: "mz\tintensity\tannotation\t..."
func (r *Reader) parsePeak(line string) (core.Peak, error) {
	fields := strings.Fields(line)
	if len(fields) < 2 {
		return core.Peak{}, fmt.Errorf("invalid peak format, expected at least 2 fields")
	}

	mz, err := strconv.ParseFloat(fields[0], 64)
	if err != nil {
		return core.Peak{}, fmt.Errorf("invalid m/z value: %w", err)
	}

	intensity, err := strconv.ParseFloat(fields[1], 64)
	if err != nil {
		return core.Peak{}, fmt.Errorf("invalid intensity value: %w", err)
	}

	peak := core.Peak{
		MZ:        mz,
		Intensity: intensity,
	}

	// Annotation, with ppm error info removed (format: "y3/0.5ppm")
	if len(fields) >= 3 {
		annotation := fields[2]
		if idx := strings.Index(annotation, "/"); idx > 0 {
			annotation = annotation[:idx]
		}
		if annotation != "?" {
			peak.Annotation = annotation
		}
	}

	return peak, nil
}
