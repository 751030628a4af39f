// Package sqlite stores reference spectra in a SQLite library database and
// loads them back in the precursor order the search engine expects
package sqlite

import (
	"database/sql"
	"encoding/binary"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/ChrisMcGann/SpecMatch/pkg/core"
	_ "github.com/mattn/go-sqlite3"
)

const (
	// Date format for HeaderTable (ISO 8601)
	headerDateFormat = "2006-01-02"
	// Date format for MaintenanceTable
	maintenanceDateFormat = "2006 01 02"

	schemaVersion = 6

	// blobFlags values, one byte per peak
	flagNone    byte = 0
	flagIsotope byte = 1

	// separates peak annotations in blobAnnotations
	annotationSep = "\n"
)

// Writer handles writing spectra to SQLite database files
type Writer struct {
	db           *sql.DB
	tx           *sql.Tx
	outputPath   string
	compoundStmt *sql.Stmt
	spectrumStmt *sql.Stmt
	compoundID   int
	finalized    bool
}

// NewWriter creates a new SQLite writer. All inserts run in one transaction
// that is committed by Finalize.
func NewWriter(outputPath string) (*Writer, error) {
	db, err := sql.Open("sqlite3", outputPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	w := &Writer{
		db:         db,
		outputPath: outputPath,
		compoundID: 1,
	}

	if err := w.createTables(); err != nil {
		db.Close()
		return nil, err
	}

	if err := w.prepareStatements(); err != nil {
		db.Close()
		return nil, err
	}

	return w, nil
}

// createTables creates the required database schema
func (w *Writer) createTables() error {
	_, err := w.db.Exec(schema)
	if err != nil {
		return fmt.Errorf("failed to create tables: %w", err)
	}
	return nil
}

const schema = `
	CREATE TABLE IF NOT EXISTS CompoundTable (
		CompoundId INTEGER PRIMARY KEY,
		Formula TEXT,
		Name TEXT,
		CompoundClass TEXT,
		InChiKey TEXT
	);

	CREATE TABLE IF NOT EXISTS SpectrumTable (
		SpectrumId INTEGER PRIMARY KEY,
		CompoundId INTEGER REFERENCES CompoundTable(CompoundId),
		RetentionTime DOUBLE,
		PrecursorMass DOUBLE,
		CollisionEnergy DOUBLE,
		Polarity TEXT,
		PrecursorIonType TEXT,
		blobMass BLOB,
		blobIntensity BLOB,
		blobFlags BLOB,
		blobAnnotations BLOB,
		blobIsotopes BLOB,
		SourceFormat TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_spectrum_precursor ON SpectrumTable(PrecursorMass, SpectrumId);

	CREATE TABLE IF NOT EXISTS HeaderTable (
		version INTEGER NOT NULL DEFAULT 0,
		CreationDate TEXT,
		LastModifiedDate TEXT,
		Description TEXT
	);

	CREATE TABLE IF NOT EXISTS MaintenanceTable (
		CreationDate TEXT,
		NoofCompoundsModified INTEGER,
		Description TEXT
	);
	`

// prepareStatements prepares SQL statements for batch insertion
func (w *Writer) prepareStatements() error {
	tx, err := w.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	w.tx = tx

	w.compoundStmt, err = tx.Prepare(`
		INSERT INTO CompoundTable (
			CompoundId, Formula, Name, CompoundClass, InChiKey
		) VALUES (?, ?, ?, ?, ?)
	`)
	if err != nil {
		tx.Rollback()
		return fmt.Errorf("failed to prepare compound statement: %w", err)
	}

	w.spectrumStmt, err = tx.Prepare(`
		INSERT INTO SpectrumTable (
			SpectrumId, CompoundId, RetentionTime, PrecursorMass,
			CollisionEnergy, Polarity, PrecursorIonType, blobMass,
			blobIntensity, blobFlags, blobAnnotations, blobIsotopes,
			SourceFormat
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		tx.Rollback()
		return fmt.Errorf("failed to prepare spectrum statement: %w", err)
	}

	return nil
}

// WriteSpectrum writes a single spectrum to the database
func (w *Writer) WriteSpectrum(spec *core.Spectrum) error {
	if w.finalized {
		return fmt.Errorf("writer for %s is already finalized", w.outputPath)
	}

	// Ensure peaks are sorted
	if !spec.ArePeaksSorted() {
		spec.SortPeaks()
	}

	_, err := w.compoundStmt.Exec(
		w.compoundID,       // CompoundId
		spec.Formula,       // Formula
		spec.Name,          // Name
		spec.CompoundClass, // CompoundClass
		spec.InChIKey,      // InChiKey
	)
	if err != nil {
		return fmt.Errorf("failed to insert compound: %w", err)
	}

	// Handle optional retention time
	var rt interface{} = nil
	if spec.RetentionTime != nil {
		rt = *spec.RetentionTime
	}

	// Handle optional collision energy
	var ce interface{} = nil
	if spec.CollisionEnergy != nil {
		ce = *spec.CollisionEnergy
	}

	var isotopes []byte
	if len(spec.IsotopeRatios) > 0 {
		isotopes = encodeFloat64s(spec.IsotopeRatios)
	}

	_, err = w.spectrumStmt.Exec(
		w.compoundID,                          // SpectrumId (same as CompoundId for 1:1 mapping)
		w.compoundID,                          // CompoundId
		rt,                                    // RetentionTime
		spec.PrecursorMZ,                      // PrecursorMass
		ce,                                    // CollisionEnergy
		polarity(spec.IonMode),                // Polarity
		spec.PrecursorType,                    // PrecursorIonType
		encodePeaksFloat64(spec.Peaks, true),  // blobMass
		encodePeaksFloat64(spec.Peaks, false), // blobIntensity
		encodeFlags(spec.Peaks),               // blobFlags
		encodeAnnotations(spec.Peaks),         // blobAnnotations
		isotopes,                              // blobIsotopes
		spec.SourceFormat,                     // SourceFormat
	)
	if err != nil {
		return fmt.Errorf("failed to insert spectrum: %w", err)
	}

	w.compoundID++
	return nil
}

// Count returns the number of spectra written so far
func (w *Writer) Count() int {
	return w.compoundID - 1
}

// polarity maps an ion mode to the Polarity column. Unknown modes are
// stored empty.
func polarity(ionMode string) string {
	switch strings.ToLower(strings.TrimSpace(ionMode)) {
	case "negative", "neg", "n", "-":
		return "-"
	case "positive", "pos", "p", "+":
		return "+"
	default:
		return ""
	}
}

// encodePeaksFloat64 encodes peak data as little-endian float64 blob
func encodePeaksFloat64(peaks []core.Peak, useMZ bool) []byte {
	buf := make([]byte, len(peaks)*8)
	for i, peak := range peaks {
		var value float64
		if useMZ {
			value = peak.MZ
		} else {
			value = peak.Intensity
		}
		binary.LittleEndian.PutUint64(buf[i*8:], math.Float64bits(value))
	}
	return buf
}

func encodeFloat64s(values []float64) []byte {
	buf := make([]byte, len(values)*8)
	for i, v := range values {
		binary.LittleEndian.PutUint64(buf[i*8:], math.Float64bits(v))
	}
	return buf
}

func encodeFlags(peaks []core.Peak) []byte {
	buf := make([]byte, len(peaks))
	for i, peak := range peaks {
		if peak.Annotation == core.AnnotationIsotope {
			buf[i] = flagIsotope
		} else {
			buf[i] = flagNone
		}
	}
	return buf
}

// encodeAnnotations joins the peak annotations. It returns nil when no peak
// is annotated.
func encodeAnnotations(peaks []core.Peak) []byte {
	annotated := false
	parts := make([]string, len(peaks))
	for i, peak := range peaks {
		parts[i] = strings.ReplaceAll(peak.Annotation, annotationSep, " ")
		if parts[i] != "" {
			annotated = true
		}
	}
	if !annotated {
		return nil
	}
	return []byte(strings.Join(parts, annotationSep))
}

// Finalize writes the header and maintenance tables, commits and closes the database
func (w *Writer) Finalize() error {
	if w.finalized {
		return nil
	}
	w.finalized = true

	now := time.Now()
	_, err := w.tx.Exec(`
		INSERT INTO HeaderTable (version, CreationDate, LastModifiedDate, Description)
		VALUES (?, ?, ?, ?)
	`, schemaVersion, now.Format(headerDateFormat), now.Format(headerDateFormat), "specmatch reference library")
	if err != nil {
		w.abort()
		return fmt.Errorf("failed to insert header: %w", err)
	}

	_, err = w.tx.Exec(`
		INSERT INTO MaintenanceTable (CreationDate, NoofCompoundsModified, Description)
		VALUES (?, ?, ?)
	`, now.Format(maintenanceDateFormat), w.Count(), "")
	if err != nil {
		w.abort()
		return fmt.Errorf("failed to insert maintenance: %w", err)
	}

	w.closeStatements()
	if err := w.tx.Commit(); err != nil {
		w.db.Close()
		return fmt.Errorf("failed to commit library: %w", err)
	}

	if err := w.db.Close(); err != nil {
		return fmt.Errorf("failed to close database: %w", err)
	}

	return nil
}

// Close finalizes the database if that has not happened yet
func (w *Writer) Close() error {
	return w.Finalize()
}

func (w *Writer) closeStatements() {
	if w.compoundStmt != nil {
		w.compoundStmt.Close()
	}
	if w.spectrumStmt != nil {
		w.spectrumStmt.Close()
	}
}

func (w *Writer) abort() {
	w.closeStatements()
	w.tx.Rollback()
	w.db.Close()
}
