package channels

import "testing"

func TestCanonicalize(t *testing.T) {
	tests := []struct {
		raw  string
		want string
	}{
		{"EOGL", E1M2},
		{"EOGL-M2", E1M2},
		{"EOGR", E2M1},
		{"Chin1-Chin2", ChinEMG},
		{"LLeg1", LeftLeg},
		{"Left Leg", LeftLeg},
		{"RIGHT LEG", RightLeg},
		{"ECG II", ECG},
		{"Snore", Snore},
		{"PTAF", Flow},
		{"Nasal Pressure", Flow},
		{"Flow", Flow},
		{"Thermistor", Thermistor},
		{"Thor", Thorax},
		{"Abdo", Abdomen},
		{"SpO2", Saturation},
		{"SpO2-Pleth", Saturation},
		{"Saturation", Saturation},
		{"Audio Volume", Snore},
		{"X Axis", Position},
		{"Accelerometer", Position},
		{"YAxis", Position},
		{"Z AXIS", Position},
		{"EEG C3-M2", C3M2},
		{"C4:M1", C4M1},
		{"O1-M2", O1M2},
		{"O2-M1", O2M1},
		{"ＥＣＧ", ECG},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			if got := Canonicalize(tt.raw); got != tt.want {
				t.Fatalf("Canonicalize(%q) = %q, want %q", tt.raw, got, tt.want)
			}
		})
	}
}

func TestCanonicalizeExcludesOxStatus(t *testing.T) {
	if got := Canonicalize("OxStatus"); got == Saturation {
		t.Fatalf("OxStatus must not map to %q", Saturation)
	}
	if got := Canonicalize("OxStatus"); got != "OxStatus" {
		t.Fatalf("Canonicalize(OxStatus) = %q, want raw label", got)
	}
}

func TestCanonicalizeRequiresBothEEGElectrodes(t *testing.T) {
	if got := Canonicalize("C3-A2"); got == C3M2 {
		t.Fatalf("C3-A2 mapped to %q without an M2 reference", got)
	}
	if got := Canonicalize("M2"); got == C3M2 || got == O1M2 {
		t.Fatalf("M2 alone mapped to %q", got)
	}
}

func TestCanonicalizeFallsBackToTrimmedLabel(t *testing.T) {
	tests := map[string]string{
		"":            "",
		"   ":         "",
		"  Pleth  ":   "Pleth",
		"Body Temp":   "Body Temp",
		"SPO2X":       "SPO2X",
		"\tMarker\n": "Marker",
	}
	for raw, want := range tests {
		if got := Canonicalize(raw); got != want {
			t.Fatalf("Canonicalize(%q) = %q, want %q", raw, got, want)
		}
	}
}

func TestCanonicalizeIsStable(t *testing.T) {
	for _, name := range Names() {
		first := Canonicalize(name)
		if again := Canonicalize(first); again != first {
			t.Fatalf("Canonicalize not idempotent for %q: %q then %q", name, first, again)
		}
	}
}

func TestIsCanonical(t *testing.T) {
	if !IsCanonical(Saturation) {
		t.Fatalf("expected %q to be canonical", Saturation)
	}
	if IsCanonical("Pleth") {
		t.Fatal("expected Pleth to be non-canonical")
	}
}
