package sqlite

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ChrisMcGann/SpecMatch/pkg/core"
)

func ptr(v float64) *float64 { return &v }

func TestWriteAndLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "library.db")

	input := []*core.Spectrum{
		{
			Name:          "Tryptophan",
			PrecursorMZ:   205.0972,
			RetentionTime: ptr(4.1),
			Formula:       "C11H12N2O2",
			IonMode:       "Positive",
			PrecursorType: "[M+H]+",
			IsotopeRatios: []float64{0.12, 0.015},
			SourceFormat:  "msp",
			Peaks: []core.Peak{
				{MZ: 188.07, Intensity: 1000, Annotation: "[M+H-NH3]+"},
				{MZ: 146.06, Intensity: 600},
				{MZ: 189.07, Intensity: 120, Annotation: core.AnnotationIsotope},
			},
		},
		{
			Name:            "Caffeine",
			PrecursorMZ:     195.0877,
			CollisionEnergy: ptr(35),
			IonMode:         "Negative",
			Peaks:           []core.Peak{{MZ: 138.0662, Intensity: 1000}},
		},
		{
			Name:        "Caffeine duplicate",
			PrecursorMZ: 195.0877,
			Peaks:       []core.Peak{},
		},
	}

	w, err := NewWriter(path)
	require.NoError(t, err)
	for _, spec := range input {
		require.NoError(t, w.WriteSpectrum(spec))
	}
	assert.Equal(t, 3, w.Count())
	require.NoError(t, w.Finalize())
	require.NoError(t, w.Close(), "second close is a no-op")
	assert.Error(t, w.WriteSpectrum(input[0]))

	lib, err := LoadLibrary(context.Background(), path)
	require.NoError(t, err)
	require.Len(t, lib, 3)
	require.NoError(t, lib.Validate())

	names := []string{lib[0].Name, lib[1].Name, lib[2].Name}
	assert.Equal(t, []string{"Caffeine", "Caffeine duplicate", "Tryptophan"}, names)

	trp := lib[2]
	assert.Equal(t, 1, trp.ID)
	assert.Equal(t, path, trp.SourceFile)
	require.NotNil(t, trp.RetentionTime)
	assert.Equal(t, 4.1, *trp.RetentionTime)
	assert.Equal(t, "Positive", trp.IonMode)
	assert.Equal(t, "[M+H]+", trp.PrecursorType)
	wantPeaks := []core.Peak{
		{MZ: 146.06, Intensity: 600},
		{MZ: 188.07, Intensity: 1000, Annotation: "[M+H-NH3]+"},
		{MZ: 189.07, Intensity: 120, Annotation: core.AnnotationIsotope},
	}
	if diff := cmp.Diff(wantPeaks, trp.Peaks); diff != "" {
		t.Errorf("peaks mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, []float64{0.12, 0.015}, trp.IsotopeRatios)

	caffeine := lib[0]
	assert.Equal(t, "Negative", caffeine.IonMode)
	require.NotNil(t, caffeine.CollisionEnergy)
	assert.Equal(t, 35.0, *caffeine.CollisionEnergy)
	assert.Nil(t, caffeine.RetentionTime)
	assert.Empty(t, lib[1].Peaks)
	assert.Empty(t, lib[1].IonMode, "unknown ion mode stays unknown")
}

func TestPolarity(t *testing.T) {
	tests := []struct {
		ionMode, want string
	}{
		{"Positive", "+"},
		{"pos", "+"},
		{"+", "+"},
		{"NEGATIVE", "-"},
		{"N", "-"},
		{"", ""},
		{"both", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, polarity(tt.ionMode), tt.ionMode)
	}
}

func TestDecodePeaksAnnotations(t *testing.T) {
	peaks := []core.Peak{
		{MZ: 100, Intensity: 10, Annotation: "b2"},
		{MZ: 101, Intensity: 5, Annotation: core.AnnotationIsotope},
		{MZ: 150, Intensity: 20},
	}
	mz, intensity := encodePeaksFloat64(peaks, true), encodePeaksFloat64(peaks, false)

	got, err := decodePeaks(mz, intensity, encodeFlags(peaks), encodeAnnotations(peaks))
	require.NoError(t, err)
	if diff := cmp.Diff(peaks, got); diff != "" {
		t.Errorf("peaks mismatch (-want +got):\n%s", diff)
	}

	// libraries without annotations fall back to the isotope flags
	got, err = decodePeaks(mz, intensity, encodeFlags(peaks), nil)
	require.NoError(t, err)
	assert.Equal(t, "", got[0].Annotation)
	assert.Equal(t, core.AnnotationIsotope, got[1].Annotation)

	assert.Nil(t, encodeAnnotations([]core.Peak{{MZ: 1, Intensity: 1}}))

	_, err = decodePeaks(mz, intensity, nil, []byte("b2"))
	assert.Error(t, err)
}

func TestLoadLibraryMissing(t *testing.T) {
	_, err := LoadLibrary(context.Background(), filepath.Join(t.TempDir(), "nope.db"))
	assert.Error(t, err)
}

func TestDecodeFloat64sRejectsTruncatedBlob(t *testing.T) {
	_, err := decodeFloat64s(make([]byte, 12))
	assert.Error(t, err)

	values, err := decodeFloat64s(encodeFloat64s([]float64{1.5, -2}))
	require.NoError(t, err)
	assert.Equal(t, []float64{1.5, -2}, values)
}
