package channels

import (
	"regexp"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/unicode/norm"
)

// Canonical display names.
const (
	Position   = "Position"
	C3M2       = "C3-M2"
	C4M1       = "C4-M1"
	O1M2       = "O1-M2"
	O2M1       = "O2-M1"
	E1M2       = "E1-M2"
	E2M1       = "E2-M1"
	ChinEMG    = "Chin EMG"
	ECG        = "ECG"
	Flow       = "Flow"
	Thermistor = "Thermistor"
	Thorax     = "Thorax"
	Abdomen    = "Abdomen"
	Snore      = "Snore"
	LeftLeg    = "Left Leg"
	RightLeg   = "Right Leg"
	Saturation = "Saturation"
)

type rule struct {
	pattern *regexp.Regexp
	name    string
}

// Order matters: the first matching rule wins. Audio and volume sensors are
// folded into Snore, and every accelerometer axis collapses into Position.
var directRules = []rule{
	{regexp.MustCompile(`EOGL`), E1M2},
	{regexp.MustCompile(`EOGR`), E2M1},
	{regexp.MustCompile(`CHIN`), ChinEMG},
	{regexp.MustCompile(`LLEG|LEFT ?LEG`), LeftLeg},
	{regexp.MustCompile(`RLEG|RIGHT ?LEG`), RightLeg},
	{regexp.MustCompile(`ECG`), ECG},
	{regexp.MustCompile(`SNOR`), Snore},
	{regexp.MustCompile(`PTAF|NASAL|PTP|NPAF`), Flow},
	{regexp.MustCompile(`THERM`), Thermistor},
	{regexp.MustCompile(`THOR`), Thorax},
	{regexp.MustCompile(`ABD`), Abdomen},
	{regexp.MustCompile(`\bSPO2\b|SATUR`), Saturation},
	{regexp.MustCompile(`AUDIO|PTAFVOL|VOLUME`), Snore},
	{regexp.MustCompile(`X ?AXIS|ACCEL`), Position},
	{regexp.MustCompile(`Y ?AXIS`), Position},
	{regexp.MustCompile(`Z ?AXIS`), Position},
}

// EEG derivations need both electrodes present in the label.
var eegPairs = []struct {
	active, reference, name string
}{
	{"C3", "M2", C3M2},
	{"C4", "M1", C4M1},
	{"O1", "M2", O1M2},
	{"O2", "M1", O2M1},
}

var knownTokens = []struct {
	token, name string
}{
	{"XAXIS", Position},
	{"YAXIS", Position},
	{"ZAXIS", Position},
	{"C3-M2", C3M2},
	{"C4-M1", C4M1},
	{"O1-M2", O1M2},
	{"O2-M1", O2M1},
	{"E1-M2", E1M2},
	{"E2-M1", E2M1},
	{"CHINEMG", ChinEMG},
	{"ECG", ECG},
	{"FLOW", Flow},
	{"THERMISTOR", Thermistor},
	{"THORAX", Thorax},
	{"ABDOMEN", Abdomen},
	{"SNORE", Snore},
	{"AUDIOVOLUME", Snore},
	{"LEFTLEG", LeftLeg},
	{"RIGHTLEG", RightLeg},
	{"SATURATION", Saturation},
}

var (
	upper       = cases.Upper(language.Und)
	notLabel    = regexp.MustCompile(`[^A-Z0-9-]`)
	notAlphaNum = regexp.MustCompile(`[^A-Z0-9]`)
)

// Canonicalize returns the canonical channel name for a raw recording label.
// Labels that match no rule come back trimmed but otherwise unchanged.
func Canonicalize(raw string) string {
	if raw == "" {
		return ""
	}
	s := upper.String(norm.NFKC.String(raw))

	for _, r := range directRules {
		if r.pattern.MatchString(s) {
			return r.name
		}
	}
	for _, pair := range eegPairs {
		if strings.Contains(s, pair.active) && strings.Contains(s, pair.reference) {
			return pair.name
		}
	}

	cleaned := notLabel.ReplaceAllString(s, "")
	for _, known := range knownTokens {
		if strings.Contains(cleaned, notAlphaNum.ReplaceAllString(known.token, "")) {
			return known.name
		}
	}
	return strings.TrimSpace(raw)
}

// Names lists every canonical name Canonicalize can produce from a rule, in
// schema order.
func Names() []string {
	return []string{
		Position, C3M2, C4M1, O1M2, O2M1, E1M2, E2M1, ChinEMG, ECG, Flow,
		Thermistor, Thorax, Abdomen, Snore, LeftLeg, RightLeg, Saturation,
	}
}

// IsCanonical reports whether name is one of the canonical display names.
func IsCanonical(name string) bool {
	for _, n := range Names() {
		if n == name {
			return true
		}
	}
	return false
}
