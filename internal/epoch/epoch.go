// Package epoch converts epoch numbers into sample windows and counts how many
// epochs a dataset spans.
package epoch

import (
	"math"

	"epochcap/internal/dataset"
	"epochcap/internal/schema"
)

// Window is a contiguous run of samples within one channel.
type Window struct {
	Start int
	Count int
}

// End returns the exclusive end index of the window.
func (w Window) End() int {
	return w.Start + w.Count
}

// WindowFor returns the sample window of epoch index for a channel sampled at
// sampleRate Hz. Count is the same for every index of a given rate and epoch
// length; Start never decreases as index grows.
func WindowFor(sampleRate float64, epochSeconds, index int) Window {
	seconds := float64(dataset.NormalizeEpochSeconds(epochSeconds))
	rate := dataset.NormalizeSampleRate(sampleRate)
	if index < 0 {
		index = 0
	}
	return Window{
		Start: int(math.Round(float64(index) * seconds * rate)),
		Count: max(1, int(math.Round(rate*seconds))),
	}
}

// Slice returns the part of samples covered by the window. Windows running
// past the end are clipped; windows entirely past the end yield an empty
// slice.
func (w Window) Slice(samples []float64) []float64 {
	start := max(0, w.Start)
	if start >= len(samples) || w.Count <= 0 {
		return samples[:0:0]
	}
	end := min(len(samples), start+w.Count)
	return samples[start:end]
}

// SamplesPerEpoch is the per-epoch sample count used when counting epochs.
// It floors where WindowFor rounds, so a channel at a fractional rate can count
// one extra trailing epoch.
func SamplesPerEpoch(sampleRate float64, epochSeconds int) int {
	rate := dataset.NormalizeSampleRate(sampleRate)
	seconds := float64(dataset.NormalizeEpochSeconds(epochSeconds))
	return max(1, int(math.Floor(rate*seconds)))
}

// Count returns how many epochs a single channel spans.
func Count(ch *dataset.Channel, epochSeconds int) int {
	if ch == nil || len(ch.Samples) == 0 {
		return 0
	}
	per := SamplesPerEpoch(ch.SampleRate, epochSeconds)
	return (len(ch.Samples) + per - 1) / per
}

// PerRow returns the epoch count of every schema row. Rows without a channel
// count zero.
func PerRow(ds *dataset.Dataset, s schema.Schema) []int {
	counts := make([]int, len(s))
	if ds == nil {
		return counts
	}
	for i := range s {
		counts[i] = Count(s.Resolve(ds, i), ds.EpochSeconds)
	}
	return counts
}

// Total returns the number of navigable epochs: the largest per-row count, so
// the longest channel decides how far navigation reaches.
func Total(ds *dataset.Dataset, s schema.Schema) int {
	total := 0
	for _, n := range PerRow(ds, s) {
		total = max(total, n)
	}
	return total
}

// Clamp bounds index to [0, total-1]. With no epochs it returns 0.
func Clamp(index, total int) int {
	if total <= 0 || index < 0 {
		return 0
	}
	return min(index, total-1)
}

// Span describes where an epoch sits in time and in the samples of a
// representative channel.
type Span struct {
	Index        int
	StartSeconds int
	EndSeconds   int
	Channel      string
	SampleRate   float64
	StartSample  int
	EndSample    int
}

// Range reports the span of epoch index using the first channel that has
// samples as the representative. EndSample is inclusive.
func Range(ds *dataset.Dataset, index int) Span {
	if ds == nil {
		return Span{Index: index}
	}
	seconds := dataset.NormalizeEpochSeconds(ds.EpochSeconds)
	span := Span{
		Index:        index,
		StartSeconds: index * seconds,
		EndSeconds:   (index + 1) * seconds,
	}
	ch, ok := ds.Representative()
	if !ok {
		if len(ds.Channels) == 0 {
			return span
		}
		ch = ds.Channels[0]
	}
	span.Channel = ch.Name
	if span.Channel == "" {
		span.Channel = ch.RawLabel
	}
	span.SampleRate = dataset.NormalizeSampleRate(ch.SampleRate)
	w := WindowFor(span.SampleRate, seconds, index)
	span.StartSample = w.Start
	span.EndSample = w.End() - 1
	return span
}
