package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/ChrisMcGann/SpecMatch/pkg/core"
	"github.com/ChrisMcGann/SpecMatch/pkg/reader/msp"
	"github.com/ChrisMcGann/SpecMatch/pkg/reader/sptxt"
	"github.com/ChrisMcGann/SpecMatch/pkg/store/sqlite"
)

const (
	formatMSP    = "msp"
	formatSPTXT  = "sptxt"
	formatSQLite = "sqlite"
)

// spectrumReader is the streaming interface shared by the text readers.
type spectrumReader interface {
	Next() bool
	Spectrum() *core.Spectrum
	Err() error
}

// detectFormat resolves the input format, auto-detecting from the extension
// when none is given.
func detectFormat(path, format string) (string, error) {
	if format == "" {
		ext := strings.ToLower(filepath.Ext(path))
		switch ext {
		case ".msp":
			return formatMSP, nil
		case ".sptxt":
			return formatSPTXT, nil
		case ".db", ".sqlite", ".sqlite3":
			return formatSQLite, nil
		default:
			return "", fmt.Errorf("cannot auto-detect format from extension '%s', please specify --from", ext)
		}
	}

	format = strings.ToLower(format)
	switch format {
	case formatMSP, formatSPTXT, formatSQLite:
		return format, nil
	case "db":
		return formatSQLite, nil
	default:
		return "", fmt.Errorf("invalid input format '%s', must be msp, sptxt or sqlite", format)
	}
}

func newSpectrumReader(f *os.File, format string) (spectrumReader, error) {
	switch format {
	case formatMSP:
		return msp.NewReader(f), nil
	case formatSPTXT:
		return sptxt.NewReader(f), nil
	default:
		return nil, fmt.Errorf("format '%s' cannot be streamed", format)
	}
}

// readSpectra reads every spectrum from path in file order.
func readSpectra(ctx context.Context, path, format string) ([]*core.Spectrum, error) {
	format, err := detectFormat(path, format)
	if err != nil {
		return nil, err
	}
	if format == formatSQLite {
		return sqlite.LoadLibrary(ctx, path)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open input file: %w", err)
	}
	defer f.Close()

	reader, err := newSpectrumReader(f, format)
	if err != nil {
		return nil, err
	}

	var spectra []*core.Spectrum
	for reader.Next() {
		spec := reader.Spectrum()
		spec.SourceFile = path
		spectra = append(spectra, spec)
	}
	if err := reader.Err(); err != nil {
		return nil, fmt.Errorf("error reading %s: %w", path, err)
	}
	return spectra, nil
}

// loadLibrary reads a reference library and establishes the precursor order
// the search engine relies on.
func loadLibrary(ctx context.Context, path, format string) (core.Library, error) {
	spectra, err := readSpectra(ctx, path, format)
	if err != nil {
		return nil, err
	}
	lib := core.Library(spectra)
	lib.Sort()
	return lib, nil
}
