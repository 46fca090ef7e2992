// Package synth writes synthetic polysomnography recordings in EDF format.
// The output uses vendor-style labels so it exercises channel
// canonicalization end to end; it is meant for demos and smoke tests, not for
// physiological realism.
package synth

import (
	"fmt"
	"io"
	"math"
	"math/rand/v2"
	"os"
	"path/filepath"
	"time"

	"epochcap/internal/edf"
)

// Options controls the generated recording.
type Options struct {
	Duration time.Duration
	Seed     uint64
	Start    time.Time
}

// DefaultDuration yields twenty 30 second epochs.
const DefaultDuration = 10 * time.Minute

// Channel is one synthetic signal.
type Channel struct {
	Label     string
	Dimension string
	Rate      int
	Min, Max  float64
	wave      func(t float64, rng *rand.Rand) float64
}

func sine(freq, amp float64) func(float64) float64 {
	return func(t float64) float64 { return amp * math.Sin(2*math.Pi*freq*t) }
}

func eeg(t float64, rng *rand.Rand) float64 {
	return sine(10, 20)(t) + sine(2, 30)(t) + rng.NormFloat64()*5
}

// Montage returns the channels written by Write, in file order.
func Montage() []Channel {
	return []Channel{
		{Label: "X Axis", Dimension: "g", Rate: 10, Min: -2, Max: 2, wave: func(t float64, _ *rand.Rand) float64 {
			return math.Floor(t/120) - 2
		}},
		{Label: "C3-M2", Dimension: "uV", Rate: 100, Min: -150, Max: 150, wave: eeg},
		{Label: "C4-M1", Dimension: "uV", Rate: 100, Min: -150, Max: 150, wave: eeg},
		{Label: "O1-M2", Dimension: "uV", Rate: 100, Min: -150, Max: 150, wave: eeg},
		{Label: "O2-M1", Dimension: "uV", Rate: 100, Min: -150, Max: 150, wave: eeg},
		{Label: "EOGL-M2", Dimension: "uV", Rate: 100, Min: -200, Max: 200, wave: func(t float64, rng *rand.Rand) float64 {
			return sine(0.3, 80)(t) + rng.NormFloat64()*4
		}},
		{Label: "EOGR-M1", Dimension: "uV", Rate: 100, Min: -200, Max: 200, wave: func(t float64, rng *rand.Rand) float64 {
			return -sine(0.3, 80)(t) + rng.NormFloat64()*4
		}},
		{Label: "Chin1-Chin2", Dimension: "uV", Rate: 100, Min: -50, Max: 50, wave: func(_ float64, rng *rand.Rand) float64 {
			return rng.NormFloat64() * 8
		}},
		{Label: "ECG II", Dimension: "mV", Rate: 100, Min: -1, Max: 2, wave: func(t float64, _ *rand.Rand) float64 {
			phase := math.Mod(t, 0.9)
			if phase < 0.04 {
				return 1.5
			}
			return 0.1 * math.Sin(2*math.Pi*phase/0.9)
		}},
		{Label: "PTAF", Dimension: "cmH2O", Rate: 25, Min: -1, Max: 1, wave: func(t float64, _ *rand.Rand) float64 {
			return sine(0.25, 0.8)(t)
		}},
		{Label: "Therm", Dimension: "uV", Rate: 25, Min: -100, Max: 100, wave: func(t float64, _ *rand.Rand) float64 {
			return sine(0.25, 70)(t - 0.3)
		}},
		{Label: "Thor", Dimension: "uV", Rate: 25, Min: -500, Max: 500, wave: func(t float64, _ *rand.Rand) float64 {
			return sine(0.25, 300)(t)
		}},
		{Label: "Abd", Dimension: "uV", Rate: 25, Min: -500, Max: 500, wave: func(t float64, _ *rand.Rand) float64 {
			return sine(0.25, 250)(t - 0.2)
		}},
		{Label: "Snore", Dimension: "uV", Rate: 100, Min: -100, Max: 100, wave: func(t float64, rng *rand.Rand) float64 {
			if math.Mod(t, 60) < 20 {
				return rng.NormFloat64() * 30
			}
			return rng.NormFloat64() * 2
		}},
		{Label: "LLeg", Dimension: "uV", Rate: 100, Min: -100, Max: 100, wave: func(_ float64, rng *rand.Rand) float64 {
			return rng.NormFloat64() * 5
		}},
		{Label: "RLeg", Dimension: "uV", Rate: 100, Min: -100, Max: 100, wave: func(_ float64, rng *rand.Rand) float64 {
			return rng.NormFloat64() * 5
		}},
		{Label: "SpO2", Dimension: "%", Rate: 1, Min: 0, Max: 100, wave: func(t float64, _ *rand.Rand) float64 {
			return 95 + 3*math.Sin(2*math.Pi*t/300)
		}},
	}
}

// Write encodes a synthetic recording to w using one-second data records.
func Write(w io.WriteSeeker, opts Options) error {
	if opts.Duration <= 0 {
		opts.Duration = DefaultDuration
	}
	if opts.Start.IsZero() {
		opts.Start = time.Date(2024, 1, 1, 22, 0, 0, 0, time.UTC)
	}
	records := int(math.Ceil(opts.Duration.Seconds()))
	montage := Montage()

	hdr := edf.Header{
		Version:            edf.Version0,
		PatientID:          "X X X X",
		RecordingID:        "Startdate X X X synthetic",
		StartTime:          opts.Start,
		DataRecordDuration: time.Second,
	}
	for _, ch := range montage {
		hdr.Signals = append(hdr.Signals, edf.Signal{
			Label:             ch.Label,
			PhysicalDimension: ch.Dimension,
			PhysicalMin:       ch.Min,
			PhysicalMax:       ch.Max,
			DigitalMin:        -32768,
			DigitalMax:        32767,
			SamplesPerRecord:  ch.Rate,
		})
	}

	ew, err := edf.Create(w, hdr)
	if err != nil {
		return fmt.Errorf("create edf: %w", err)
	}
	rng := rand.New(rand.NewPCG(opts.Seed, opts.Seed^0x9e3779b97f4a7c15))
	record := make([][]float64, len(montage))
	for i, ch := range montage {
		record[i] = make([]float64, ch.Rate)
	}
	for r := 0; r < records; r++ {
		for i, ch := range montage {
			for j := range record[i] {
				t := float64(r) + float64(j)/float64(ch.Rate)
				record[i][j] = math.Max(ch.Min, math.Min(ch.Max, ch.wave(t, rng)))
			}
		}
		if err := ew.WriteRecord(record); err != nil {
			return fmt.Errorf("write record %d: %w", r, err)
		}
	}
	return ew.Close()
}

// WriteFile writes a synthetic recording to path, creating parent folders.
func WriteFile(path string, opts Options) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create folder: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := Write(f, opts); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}
