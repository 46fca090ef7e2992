// Package schema defines the fixed row layout of a PSG capture and resolves
// each row to a channel of a dataset.
package schema

import (
	"fmt"
	"regexp"
	"strings"

	"epochcap/internal/channels"
	"epochcap/internal/config"
	"epochcap/internal/dataset"
)

// Range is a fixed physical value range for a row.
type Range struct {
	Min float64
	Max float64
}

// Row is one display slot. An empty Name marks a blank spacer row.
type Row struct {
	Name   string
	Height int
	Range  *Range
}

// Blank reports whether the row is a spacer that never renders data.
func (r Row) Blank() bool {
	return strings.TrimSpace(r.Name) == ""
}

// Schema is an ordered list of rows, top to bottom.
type Schema []Row

const (
	defaultRowHeight = 43
	audioVolume      = "Audio Volume"
)

// Default returns the built-in PSG montage.
func Default() Schema {
	row := func(name string, height int) Row { return Row{Name: name, Height: height} }
	return Schema{
		row(channels.Position, defaultRowHeight),
		row(channels.Position, defaultRowHeight),
		row(channels.Position, defaultRowHeight),
		row(channels.C3M2, defaultRowHeight),
		row(channels.C4M1, defaultRowHeight),
		row(channels.O1M2, defaultRowHeight),
		row(channels.O2M1, defaultRowHeight),
		row(channels.E1M2, defaultRowHeight),
		row(channels.E2M1, defaultRowHeight),
		row(channels.ChinEMG, defaultRowHeight),
		row(channels.ECG, defaultRowHeight),
		row(channels.Flow, 129),
		row(channels.Thermistor, defaultRowHeight),
		row(channels.Thorax, defaultRowHeight),
		row(channels.Abdomen, defaultRowHeight),
		row(channels.Snore, defaultRowHeight),
		row(audioVolume, defaultRowHeight),
		row(channels.LeftLeg, defaultRowHeight),
		row(channels.RightLeg, defaultRowHeight),
		{Name: "Saturation (85-100%)", Height: 86, Range: &Range{Min: 85, Max: 100}},
		{Name: "Saturation (40-100%)", Height: 86, Range: &Range{Min: 40, Max: 100}},
	}
}

// FromConfig builds a schema from configured rows, falling back to Default
// when none are configured.
func FromConfig(cfg *config.Config) (Schema, error) {
	if cfg == nil || len(cfg.Schema.Rows) == 0 {
		return Default(), nil
	}
	out := make(Schema, 0, len(cfg.Schema.Rows))
	for i, r := range cfg.Schema.Rows {
		row := Row{Name: strings.TrimSpace(r.Name), Height: r.Height}
		if row.Height <= 0 {
			return nil, fmt.Errorf("schema row %d: height must be positive", i)
		}
		switch len(r.Range) {
		case 0:
		case 2:
			if r.Range[0] >= r.Range[1] {
				return nil, fmt.Errorf("schema row %d: range minimum must be below maximum", i)
			}
			row.Range = &Range{Min: r.Range[0], Max: r.Range[1]}
		default:
			return nil, fmt.Errorf("schema row %d: range must have two values", i)
		}
		out = append(out, row)
	}
	return out, nil
}

// TotalHeight sums the display heights of every row.
func (s Schema) TotalHeight() int {
	total := 0
	for _, r := range s {
		total += r.Height
	}
	return total
}

var audioLabel = regexp.MustCompile(`AUDIO|PTAFVOL|VOLUME`)

// Resolve returns the channel displayed by the row at index, or nil when the
// row renders empty. Resolution is recomputed on every call.
//
// A row takes the first channel with a matching canonical name. Saturation
// rows also accept a Saturation channel or any channel whose raw label
// mentions SPO2, and the Audio
// Volume row accepts a Snore channel or an audio/volume raw label. Rows that
// still have no match fall back to the channel at the same position.
func (s Schema) Resolve(ds *dataset.Dataset, index int) *dataset.Channel {
	if ds == nil || index < 0 || index >= len(s) {
		return nil
	}
	row := s[index]
	if row.Blank() {
		return nil
	}
	saturation := strings.HasPrefix(row.Name, channels.Saturation)
	for i := range ds.Channels {
		ch := &ds.Channels[i]
		if ch.Name == row.Name {
			return ch
		}
		if saturation && (ch.Name == channels.Saturation || strings.Contains(strings.ToUpper(ch.RawLabel), "SPO2")) {
			return ch
		}
	}
	if row.Name == audioVolume {
		for i := range ds.Channels {
			ch := &ds.Channels[i]
			if ch.Name == channels.Snore || audioLabel.MatchString(strings.ToUpper(ch.RawLabel)) {
				return ch
			}
		}
	}
	if index < len(ds.Channels) {
		return &ds.Channels[index]
	}
	return nil
}

// Assignment pairs a row with its resolved channel.
type Assignment struct {
	Index   int
	Row     Row
	Channel *dataset.Channel
}

// Assign resolves every row of the schema against ds.
func (s Schema) Assign(ds *dataset.Dataset) []Assignment {
	out := make([]Assignment, len(s))
	for i, row := range s {
		out[i] = Assignment{Index: i, Row: row, Channel: s.Resolve(ds, i)}
	}
	return out
}
