package sptxt

import (
	"strings"
	"testing"
)

const sampleSPTXT = `### SpectraST library
### comment lines are skipped

Name: AAAAQDEITGDGTTTVVC[160]LVGELLR/3
LibID: 0
MW: 2545.28
PrecursorMZ: 848.4267
Status: Normal
FullName: X.AAAAQDEITGDGTTTVVC[160]LVGELLR.X/3
Comment: Parent=848.427 CollisionEnergy=30 RetentionTime=3620.5,3600.1,3650.2
NumPeaks: 3
300.1000	1200.0	b3/0.2ppm
200.0500	800.0	?
400.2000	50.0	y4^2/-0.1ppm

Name: NOPRECURSOR/2
Comment: Parent=512.25
NumPeaks: 1
150.0	10.0	?
`

func TestReader(t *testing.T) {
	r := NewReader(strings.NewReader(sampleSPTXT))

	spectra, err := r.ReadAll()
	if err != nil {
		t.Fatalf("ReadAll() error = %v", err)
	}
	if len(spectra) != 2 {
		t.Fatalf("expected 2 spectra, got %d", len(spectra))
	}

	first := spectra[0]
	if first.Name != "AAAAQDEITGDGTTTVVC[160]LVGELLR/3" {
		t.Errorf("name = %q", first.Name)
	}
	if first.PrecursorMZ != 848.4267 {
		t.Errorf("precursor = %v", first.PrecursorMZ)
	}
	if first.RetentionTime == nil || *first.RetentionTime != 3620.5 {
		t.Errorf("retention time = %v", first.RetentionTime)
	}
	if first.CollisionEnergy == nil || *first.CollisionEnergy != 30 {
		t.Errorf("collision energy = %v", first.CollisionEnergy)
	}
	if len(first.Peaks) != 3 || !first.ArePeaksSorted() {
		t.Fatalf("unexpected peaks %+v", first.Peaks)
	}
	if first.Peaks[0].Annotation != "" || first.Peaks[1].Annotation != "b3" || first.Peaks[2].Annotation != "y4^2" {
		t.Errorf("annotations = %q, %q, %q", first.Peaks[0].Annotation, first.Peaks[1].Annotation, first.Peaks[2].Annotation)
	}

	second := spectra[1]
	if second.ID != 1 || second.PrecursorMZ != 512.25 {
		t.Errorf("unexpected second entry %+v", second)
	}
}

func TestReaderBadPeak(t *testing.T) {
	r := NewReader(strings.NewReader("Name: X/2\nNumPeaks: 1\nabc 10\n"))
	if r.Next() {
		t.Fatal("expected Next() to fail")
	}
	if r.Err() == nil {
		t.Error("expected an error")
	}
}
