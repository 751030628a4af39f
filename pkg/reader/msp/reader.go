// Package msp provides a streaming reader for MSP format spectral libraries
// and measured spectra
package msp

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/ChrisMcGann/SpecMatch/pkg/core"
)

// Reader provides streaming access to MSP format files
type Reader struct {
	scanner     *bufio.Scanner
	lineNum     int
	nextID      int
	currentSpec *core.Spectrum
	err         error
}

// NewReader creates a new MSP reader. Spectra are numbered from 0 in file
// order.
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

// readSpectrum reads a single entry. An entry ends after its declared number
// of peaks or at a blank line.
func (r *Reader) readSpectrum() (*core.Spectrum, error) {
	spec := &core.Spectrum{
		SourceFormat: "msp",
		Peaks:        []core.Peak{},
	}

	started := false
	numPeaks := -1
	peaksRead := 0

	for r.scanner.Scan() {
		r.lineNum++
		line := strings.TrimSpace(r.scanner.Text())

		if line == "" {
			if started {
				break
			}
			continue
		}
		started = true

		if numPeaks >= 0 {
			n, err := r.parsePeaks(spec, line)
			if err != nil {
				return nil, fmt.Errorf("line %d: %w", r.lineNum, err)
			}
			peaksRead += n
			if peaksRead >= numPeaks {
				break
			}
			continue
		}

		key, value, ok := strings.Cut(line, ":")
		if !ok {
			return nil, fmt.Errorf("line %d: expected 'key: value', got %q", r.lineNum, line)
		}
		value = strings.TrimSpace(value)

		switch strings.ToUpper(strings.TrimSpace(key)) {
		case "NAME":
			spec.Name = value
		case "PRECURSORMZ", "PRECURSOR_MZ":
			mz, err := strconv.ParseFloat(value, 64)
			if err != nil {
				return nil, fmt.Errorf("line %d: invalid precursor m/z: %w", r.lineNum, err)
			}
			spec.PrecursorMZ = mz
		case "RETENTIONTIME", "RT":
			if rt, err := strconv.ParseFloat(value, 64); err == nil {
				spec.RetentionTime = &rt
			}
		case "PRECURSORTYPE", "ADDUCT":
			spec.PrecursorType = value
		case "FORMULA":
			spec.Formula = value
		case "INCHIKEY":
			spec.InChIKey = value
		case "IONMODE", "ION_MODE":
			spec.IonMode = value
		case "COMPOUNDCLASS", "ONTOLOGY":
			spec.CompoundClass = value
		case "COLLISIONENERGY", "COLLISION_ENERGY":
			if ce, err := strconv.ParseFloat(strings.TrimSuffix(value, "eV"), 64); err == nil {
				spec.CollisionEnergy = &ce
			}
		case "ISOTOPERATIOS":
			ratios, err := parseFloatList(value)
			if err != nil {
				return nil, fmt.Errorf("line %d: invalid isotope ratios: %w", r.lineNum, err)
			}
			spec.IsotopeRatios = ratios
		case "COMMENT":
			r.parseComment(spec, value)
		case "NUM PEAKS", "NUMPEAKS":
			n, err := strconv.Atoi(value)
			if err != nil {
				return nil, fmt.Errorf("line %d: invalid num peaks: %w", r.lineNum, err)
			}
			numPeaks = n
			if n == 0 {
				return spec, nil
			}
		}
	}

	if err := r.scanner.Err(); err != nil {
		return nil, err
	}

	if !started {
		return nil, io.EOF
	}
	if numPeaks > 0 && peaksRead < numPeaks {
		return nil, fmt.Errorf("line %d: entry %q declares %d peaks but has %d", r.lineNum, spec.Name, numPeaks, peaksRead)
	}

	if !spec.ArePeaksSorted() {
		spec.SortPeaks()
	}
	return spec, nil
}

// parseComment extracts metadata from a Prosit-style Comment field
// (key=value key=value...)
func (r *Reader) parseComment(spec *core.Spectrum, comment string) {
	for _, field := range strings.Fields(comment) {
		key, value, ok := strings.Cut(field, "=")
		if !ok {
			continue
		}

		switch key {
		case "Parent":
			if mz, err := strconv.ParseFloat(value, 64); err == nil && spec.PrecursorMZ == 0 {
				spec.PrecursorMZ = mz
			}
		case "iRT", "RetentionTime":
			if rt, err := strconv.ParseFloat(value, 64); err == nil && spec.RetentionTime == nil {
				spec.RetentionTime = &rt
			}
		case "Collision_energy", "CollisionEnergy":
			if ce, err := strconv.ParseFloat(value, 64); err == nil && spec.CollisionEnergy == nil {
				spec.CollisionEnergy = &ce
			}
		}
	}
}

// parsePeaks parses a peak line, either "mz intensity ["annotation"]" or
// several "mz intensity;" pairs on one line. Returns the number of peaks read.
func (r *Reader) parsePeaks(spec *core.Spectrum, line string) (int, error) {
	n := 0
	for _, chunk := range strings.Split(line, ";") {
		chunk = strings.TrimSpace(chunk)
		if chunk == "" {
			continue
		}

		fields := strings.Fields(chunk)
		if len(fields) < 2 {
			return n, fmt.Errorf("invalid peak format %q, expected at least 2 fields", chunk)
		}

		mz, err := strconv.ParseFloat(fields[0], 64)
		if err != nil {
			return n, fmt.Errorf("invalid m/z value: %w", err)
		}
		intensity, err := strconv.ParseFloat(fields[1], 64)
		if err != nil {
			return n, fmt.Errorf("invalid intensity value: %w", err)
		}

		peak := core.Peak{MZ: mz, Intensity: intensity}
		if len(fields) >= 3 {
			peak.Annotation = strings.Trim(strings.Join(fields[2:], " "), "\"")
		}
		spec.Peaks = append(spec.Peaks, peak)
		n++
	}
	return n, nil
}

func parseFloatList(s string) ([]float64, error) {
	var out []float64
	for _, part := range strings.FieldsFunc(s, func(c rune) bool { return c == ',' || c == ' ' }) {
		v, err := strconv.ParseFloat(part, 64)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}
