package sqlite

import (
	"context"
	"database/sql"
	"encoding/binary"
	"fmt"
	"math"
	"os"
	"strings"

	"github.com/ChrisMcGann/SpecMatch/pkg/core"
)

const selectLibrary = `
	SELECT s.SpectrumId, c.Name, c.Formula, c.CompoundClass, c.InChiKey,
		s.RetentionTime, s.PrecursorMass, s.CollisionEnergy, s.Polarity,
		s.PrecursorIonType, s.blobMass, s.blobIntensity, s.blobFlags,
		s.blobAnnotations, s.blobIsotopes, s.SourceFormat
	FROM SpectrumTable s
	LEFT JOIN CompoundTable c ON c.CompoundId = s.CompoundId
	ORDER BY s.PrecursorMass, s.SpectrumId
`

// LoadLibrary reads every spectrum from a library database. The result is
// sorted ascending by precursor m/z, ties in insertion order.
func LoadLibrary(ctx context.Context, path string) (core.Library, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("library database %s: %w", path, err)
	}

	db, err := sql.Open("sqlite3", "file:"+path+"?mode=ro")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	rows, err := db.QueryContext(ctx, selectLibrary)
	if err != nil {
		return nil, fmt.Errorf("failed to query spectra: %w", err)
	}
	defer rows.Close()

	var lib core.Library
	for rows.Next() {
		spec, err := scanSpectrum(rows)
		if err != nil {
			return nil, err
		}
		spec.SourceFile = path
		lib = append(lib, spec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read spectra: %w", err)
	}

	return lib, nil
}

func scanSpectrum(rows *sql.Rows) (*core.Spectrum, error) {
	var (
		id                                     int
		name, formula, class, inchiKey         sql.NullString
		rt, ce                                 sql.NullFloat64
		precursor                              float64
		polarity, ionType, sourceFormat        sql.NullString
		mzBlob, intBlob, flagBlob, isotopeBlob []byte
		annotationBlob                         []byte
	)

	err := rows.Scan(&id, &name, &formula, &class, &inchiKey,
		&rt, &precursor, &ce, &polarity,
		&ionType, &mzBlob, &intBlob, &flagBlob,
		&annotationBlob, &isotopeBlob, &sourceFormat)
	if err != nil {
		return nil, fmt.Errorf("failed to scan spectrum: %w", err)
	}

	peaks, err := decodePeaks(mzBlob, intBlob, flagBlob, annotationBlob)
	if err != nil {
		return nil, fmt.Errorf("spectrum %d: %w", id, err)
	}

	spec := &core.Spectrum{
		ID:            id,
		Name:          name.String,
		PrecursorMZ:   precursor,
		Peaks:         peaks,
		PrecursorType: ionType.String,
		Formula:       formula.String,
		InChIKey:      inchiKey.String,
		CompoundClass: class.String,
		SourceFormat:  sourceFormat.String,
	}
	if rt.Valid {
		v := rt.Float64
		spec.RetentionTime = &v
	}
	if ce.Valid {
		v := ce.Float64
		spec.CollisionEnergy = &v
	}
	switch polarity.String {
	case "-":
		spec.IonMode = "Negative"
	case "+":
		spec.IonMode = "Positive"
	}
	if len(isotopeBlob) > 0 {
		ratios, err := decodeFloat64s(isotopeBlob)
		if err != nil {
			return nil, fmt.Errorf("spectrum %d isotopes: %w", id, err)
		}
		spec.IsotopeRatios = ratios
	}

	return spec, nil
}

func decodePeaks(mzBlob, intBlob, flagBlob, annotationBlob []byte) ([]core.Peak, error) {
	mzs, err := decodeFloat64s(mzBlob)
	if err != nil {
		return nil, fmt.Errorf("blobMass: %w", err)
	}
	intensities, err := decodeFloat64s(intBlob)
	if err != nil {
		return nil, fmt.Errorf("blobIntensity: %w", err)
	}
	if len(mzs) != len(intensities) {
		return nil, fmt.Errorf("%d masses but %d intensities", len(mzs), len(intensities))
	}
	if len(flagBlob) > 0 && len(flagBlob) != len(mzs) {
		return nil, fmt.Errorf("%d flags for %d peaks", len(flagBlob), len(mzs))
	}

	var annotations []string
	if len(annotationBlob) > 0 {
		annotations = strings.Split(string(annotationBlob), annotationSep)
		if len(annotations) != len(mzs) {
			return nil, fmt.Errorf("%d annotations for %d peaks", len(annotations), len(mzs))
		}
	}

	peaks := make([]core.Peak, len(mzs))
	for i := range mzs {
		peaks[i] = core.Peak{MZ: mzs[i], Intensity: intensities[i]}
		switch {
		case annotations != nil:
			peaks[i].Annotation = annotations[i]
		case len(flagBlob) > 0 && flagBlob[i] == flagIsotope:
			peaks[i].Annotation = core.AnnotationIsotope
		}
	}
	return peaks, nil
}

func decodeFloat64s(buf []byte) ([]float64, error) {
	if len(buf)%8 != 0 {
		return nil, fmt.Errorf("blob length %d is not a multiple of 8", len(buf))
	}
	out := make([]float64, len(buf)/8)
	for i := range out {
		out[i] = math.Float64frombits(binary.LittleEndian.Uint64(buf[i*8:]))
	}
	return out, nil
}
