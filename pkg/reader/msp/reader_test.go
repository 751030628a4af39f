package msp

import (
	"strings"
	"testing"
)

const sampleMSP = `NAME: Caffeine
PRECURSORMZ: 195.0877
PRECURSORTYPE: [M+H]+
FORMULA: C8H10N4O2
INCHIKEY: RYYVLZVUVIJVGH-UHFFFAOYSA-N
RETENTIONTIME: 3.42
IONMODE: Positive
ONTOLOGY: Xanthines
COLLISIONENERGY: 35eV
ISOTOPERATIOS: 0.095, 0.011
Num Peaks: 3
138.0662	1000	"C6H8N3O+"
110.0713	250
195.0877	80

Name: PC 16:0/18:1
PrecursorMZ: 760.5851
Comment: Parent=999.9 iRT=12.5
Num Peaks: 2
184.0733 999; 104.1070 50;

NAME: empty spectrum
PRECURSORMZ: 300.1
Num Peaks: 0
`

func TestReaderSmallMolecules(t *testing.T) {
	r := NewReader(strings.NewReader(sampleMSP))

	spectra, err := r.ReadAll()
	if err != nil {
		t.Fatalf("ReadAll() error = %v", err)
	}
	if len(spectra) != 3 {
		t.Fatalf("expected 3 spectra, got %d", len(spectra))
	}

	caffeine := spectra[0]
	if caffeine.ID != 0 || caffeine.Name != "Caffeine" {
		t.Errorf("unexpected first entry %d/%s", caffeine.ID, caffeine.Name)
	}
	if caffeine.PrecursorMZ != 195.0877 {
		t.Errorf("precursor = %v", caffeine.PrecursorMZ)
	}
	if caffeine.RetentionTime == nil || *caffeine.RetentionTime != 3.42 {
		t.Errorf("retention time = %v", caffeine.RetentionTime)
	}
	if caffeine.CollisionEnergy == nil || *caffeine.CollisionEnergy != 35 {
		t.Errorf("collision energy = %v", caffeine.CollisionEnergy)
	}
	if caffeine.PrecursorType != "[M+H]+" || caffeine.Formula != "C8H10N4O2" || caffeine.CompoundClass != "Xanthines" {
		t.Errorf("metadata not parsed: %+v", caffeine)
	}
	if len(caffeine.IsotopeRatios) != 2 || caffeine.IsotopeRatios[0] != 0.095 {
		t.Errorf("isotope ratios = %v", caffeine.IsotopeRatios)
	}
	if len(caffeine.Peaks) != 3 {
		t.Fatalf("expected 3 peaks, got %d", len(caffeine.Peaks))
	}
	if !caffeine.ArePeaksSorted() {
		t.Error("peaks should be sorted after reading")
	}
	if caffeine.Peaks[1].MZ != 138.0662 || caffeine.Peaks[1].Annotation != "C6H8N3O+" {
		t.Errorf("unexpected peak %+v", caffeine.Peaks[1])
	}

	lipid := spectra[1]
	if lipid.ID != 1 || lipid.Name != "PC 16:0/18:1" {
		t.Errorf("unexpected second entry %d/%s", lipid.ID, lipid.Name)
	}
	// explicit PrecursorMZ wins over Comment Parent=
	if lipid.PrecursorMZ != 760.5851 {
		t.Errorf("precursor = %v", lipid.PrecursorMZ)
	}
	if lipid.RetentionTime == nil || *lipid.RetentionTime != 12.5 {
		t.Errorf("iRT = %v", lipid.RetentionTime)
	}
	if len(lipid.Peaks) != 2 || lipid.Peaks[0].MZ != 104.1070 {
		t.Errorf("semicolon peaks = %+v", lipid.Peaks)
	}

	empty := spectra[2]
	if len(empty.Peaks) != 0 || empty.PrecursorMZ != 300.1 {
		t.Errorf("unexpected empty entry %+v", empty)
	}
}

func TestReaderErrors(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"bad precursor", "NAME: x\nPRECURSORMZ: abc\nNum Peaks: 0\n"},
		{"bad num peaks", "NAME: x\nNum Peaks: many\n"},
		{"bad peak", "NAME: x\nNum Peaks: 1\n100.0\n"},
		{"truncated peaks", "NAME: x\nNum Peaks: 3\n100 1\n\n"},
		{"no key", "NAME: x\njust text\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewReader(strings.NewReader(tt.input))
			if r.Next() {
				t.Fatal("expected Next() to fail")
			}
			if r.Err() == nil {
				t.Error("expected an error")
			}
		})
	}
}

func TestReaderEmptyInput(t *testing.T) {
	r := NewReader(strings.NewReader("\n\n"))
	if r.Next() {
		t.Fatal("expected no spectra")
	}
	if r.Err() != nil {
		t.Errorf("unexpected error %v", r.Err())
	}
}
