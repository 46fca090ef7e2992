package dataset

import (
	"math"

	"epochcap/internal/channels"
	"epochcap/internal/faults"
)

const (
	// DefaultSampleRate is assumed when a source omits or corrupts a
	// channel's sampling frequency.
	DefaultSampleRate = 100.0
	// DefaultEpochSeconds is the scoring epoch length used by AASM.
	DefaultEpochSeconds = 30
)

// Channel is one decoded signal with its canonical display name.
type Channel struct {
	Name       string
	RawLabel   string
	SampleRate float64
	Samples    []float64
}

// Dataset is an in-memory recording ready for rendering.
type Dataset struct {
	Source       string
	Channels     []Channel
	EpochSeconds int
}

// New assembles a dataset, canonicalizing names and applying the sample rate
// and epoch length defaults.
func New(source string, chans []Channel, epochSeconds int) (*Dataset, error) {
	if len(chans) == 0 {
		return nil, faults.Wrap(faults.ErrEmptyChannelSet, "dataset", "load", source, nil)
	}
	out := make([]Channel, len(chans))
	for i, ch := range chans {
		if ch.Name == "" {
			ch.Name = channels.Canonicalize(ch.RawLabel)
		}
		if ch.RawLabel == "" {
			ch.RawLabel = ch.Name
		}
		ch.SampleRate = NormalizeSampleRate(ch.SampleRate)
		if ch.Samples == nil {
			ch.Samples = []float64{}
		}
		out[i] = ch
	}
	return &Dataset{
		Source:       source,
		Channels:     out,
		EpochSeconds: NormalizeEpochSeconds(epochSeconds),
	}, nil
}

// NormalizeEpochSeconds coerces an epoch length to at least one second.
func NormalizeEpochSeconds(seconds int) int {
	if seconds < 1 {
		return 1
	}
	return seconds
}

// NormalizeSampleRate replaces non-positive or non-finite rates with
// DefaultSampleRate.
func NormalizeSampleRate(rate float64) float64 {
	if math.IsNaN(rate) || math.IsInf(rate, 0) || rate <= 0 {
		return DefaultSampleRate
	}
	return rate
}

// WithEpochSeconds returns a copy of the dataset using a different epoch
// length. Sample buffers are shared, not copied.
func (d *Dataset) WithEpochSeconds(seconds int) *Dataset {
	if d == nil {
		return nil
	}
	clone := *d
	clone.EpochSeconds = NormalizeEpochSeconds(seconds)
	return &clone
}

// Channel returns the first channel with the given canonical name.
func (d *Dataset) Channel(name string) (Channel, bool) {
	if d == nil {
		return Channel{}, false
	}
	for _, ch := range d.Channels {
		if ch.Name == name {
			return ch, true
		}
	}
	return Channel{}, false
}

// Duplicates lists canonical names claimed by more than one channel. Only the
// first channel of each name is reachable by name-based row resolution.
func (d *Dataset) Duplicates() []string {
	if d == nil {
		return nil
	}
	seen := make(map[string]int, len(d.Channels))
	var dups []string
	for _, ch := range d.Channels {
		seen[ch.Name]++
		if seen[ch.Name] == 2 {
			dups = append(dups, ch.Name)
		}
	}
	return dups
}

// Representative returns the first channel that carries samples, used for
// epoch range readouts.
func (d *Dataset) Representative() (Channel, bool) {
	if d == nil {
		return Channel{}, false
	}
	for _, ch := range d.Channels {
		if len(ch.Samples) > 0 {
			return ch, true
		}
	}
	return Channel{}, false
}
