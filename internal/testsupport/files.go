package testsupport

import (
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	"epochcap/internal/dataset"
	"epochcap/internal/edf"
)

// Signal describes one synthetic channel for WriteEDF.
type Signal struct {
	Label      string
	SampleRate int
	Samples    []float64
}

// Sine returns n samples of a sine wave with the given amplitude, completing
// one cycle every period samples.
func Sine(n int, amplitude float64, period int) []float64 {
	if period <= 0 {
		period = 1
	}
	out := make([]float64, n)
	for i := range out {
		out[i] = amplitude * math.Sin(2*math.Pi*float64(i)/float64(period))
	}
	return out
}

// Constant returns n copies of value.
func Constant(n int, value float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = value
	}
	return out
}

// WriteEDF writes a one-second-per-record EDF file. Shorter signals are padded
// with zeros so every signal spans the same number of records.
func WriteEDF(t testing.TB, path string, signals ...Signal) {
	t.Helper()

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir for %s: %v", path, err)
	}
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create %s: %v", path, err)
	}
	defer f.Close()

	records := 0
	hdr := edf.Header{
		Version:            edf.Version0,
		PatientID:          "X X X X",
		RecordingID:        "Startdate X X X X",
		StartTime:          time.Date(2024, 3, 1, 22, 0, 0, 0, time.UTC),
		DataRecordDuration: time.Second,
	}
	for _, sig := range signals {
		lo, hi := bounds(sig.Samples)
		hdr.Signals = append(hdr.Signals, edf.Signal{
			Label:            sig.Label,
			PhysicalMin:      lo,
			PhysicalMax:      hi,
			DigitalMin:       -32768,
			DigitalMax:       32767,
			SamplesPerRecord: sig.SampleRate,
		})
		if sig.SampleRate > 0 {
			records = max(records, (len(sig.Samples)+sig.SampleRate-1)/sig.SampleRate)
		}
	}

	w, err := edf.Create(f, hdr)
	if err != nil {
		t.Fatalf("edf create %s: %v", path, err)
	}
	for rec := 0; rec < records; rec++ {
		data := make([][]float64, len(signals))
		for i, sig := range signals {
			data[i] = make([]float64, sig.SampleRate)
			for j := range data[i] {
				if k := rec*sig.SampleRate + j; k < len(sig.Samples) {
					data[i][j] = sig.Samples[k]
				}
			}
		}
		if err := w.WriteRecord(data); err != nil {
			t.Fatalf("edf write record %d: %v", rec, err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatalf("edf close %s: %v", path, err)
	}
}

// WriteDatasetJSON writes a pre-decoded dataset in the JSON import format.
func WriteDatasetJSON(t testing.TB, path string, ds *dataset.Dataset) {
	t.Helper()

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir for %s: %v", path, err)
	}
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create %s: %v", path, err)
	}
	defer f.Close()
	if err := dataset.EncodeJSON(f, ds); err != nil {
		t.Fatalf("encode %s: %v", path, err)
	}
}

// WriteFile writes raw bytes, typically to produce an undecodable recording.
func WriteFile(t testing.TB, path string, data []byte) {
	t.Helper()

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir for %s: %v", path, err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

func bounds(samples []float64) (float64, float64) {
	lo, hi := -1.0, 1.0
	for _, v := range samples {
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}
	return lo, hi
}
