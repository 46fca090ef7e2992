package dataset

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"epochcap/internal/edf"
	"epochcap/internal/faults"
)

// Decoder turns a recording into a Dataset. Implementations return errors
// marked with faults.ErrDecode or faults.ErrEmptyChannelSet.
type Decoder interface {
	Decode(ctx context.Context, name string, r io.ReadSeeker) (*Dataset, error)
}

// EDFDecoder decodes EDF and EDF+ files. Annotation signals are skipped.
type EDFDecoder struct {
	EpochSeconds int
}

// Decode implements Decoder.
func (d EDFDecoder) Decode(ctx context.Context, name string, r io.ReadSeeker) (*Dataset, error) {
	reader, err := edf.Open(r)
	if err != nil {
		return nil, faults.Wrap(faults.ErrDecode, "dataset", "decode edf", name, err)
	}
	hdr := reader.Header()

	chans := make([]Channel, 0, len(hdr.Signals))
	for i, sig := range hdr.Signals {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if sig.IsAnnotation() {
			continue
		}
		samples, err := reader.ReadAll(i)
		if err != nil {
			return nil, faults.Wrap(faults.ErrDecode, "dataset", "decode edf", fmt.Sprintf("%s: signal %q", name, sig.Label), err)
		}
		chans = append(chans, Channel{
			RawLabel:   sig.Label,
			SampleRate: hdr.SampleRate(i),
			Samples:    samples,
		})
	}
	return New(name, chans, d.EpochSeconds)
}

type jsonChannel struct {
	Name       string    `json:"name"`
	Label      string    `json:"label"`
	RawLabel   string    `json:"rawLabel"`
	SampleRate float64   `json:"sampleRate"`
	Samples    []float64 `json:"samples"`
}

type jsonDataset struct {
	Channels     []jsonChannel `json:"channels"`
	SampleRate   float64       `json:"sampleRate"`
	EpochSeconds int           `json:"epochSeconds"`
}

// DecodeJSON imports a pre-decoded dataset. A channel-level sample rate wins
// over the top-level one; the epoch length falls back to epochSeconds when
// the document does not carry one.
func DecodeJSON(name string, r io.Reader, epochSeconds int) (*Dataset, error) {
	var doc jsonDataset
	if err := json.NewDecoder(r).Decode(&doc); err != nil {
		return nil, faults.Wrap(faults.ErrDecode, "dataset", "decode json", name, err)
	}
	chans := make([]Channel, 0, len(doc.Channels))
	for _, jc := range doc.Channels {
		raw := jc.RawLabel
		if raw == "" {
			raw = jc.Label
		}
		rate := jc.SampleRate
		if rate <= 0 {
			rate = doc.SampleRate
		}
		chans = append(chans, Channel{
			Name:       jc.Name,
			RawLabel:   raw,
			SampleRate: rate,
			Samples:    jc.Samples,
		})
	}
	if doc.EpochSeconds > 0 {
		epochSeconds = doc.EpochSeconds
	}
	return New(name, chans, epochSeconds)
}

// EncodeJSON writes the dataset in the format DecodeJSON reads.
func EncodeJSON(w io.Writer, d *Dataset) error {
	doc := jsonDataset{EpochSeconds: d.EpochSeconds}
	for _, ch := range d.Channels {
		doc.Channels = append(doc.Channels, jsonChannel{
			Name:       ch.Name,
			RawLabel:   ch.RawLabel,
			SampleRate: ch.SampleRate,
			Samples:    ch.Samples,
		})
	}
	enc := json.NewEncoder(w)
	return enc.Encode(doc)
}

// IsEDF reports whether a file name carries an EDF extension.
func IsEDF(name string) bool {
	return strings.EqualFold(filepath.Ext(name), ".edf")
}

// IsJSON reports whether a file name carries a JSON extension.
func IsJSON(name string) bool {
	return strings.EqualFold(filepath.Ext(name), ".json")
}

// LoadFile reads a recording from disk. JSON files bypass the decoder.
func LoadFile(ctx context.Context, path string, dec Decoder, epochSeconds int) (*Dataset, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, faults.Wrap(faults.ErrDecode, "dataset", "open", path, err)
	}
	defer f.Close()
	return Load(ctx, filepath.Base(path), f, dec, epochSeconds)
}

// Load decodes a recording from an open stream, choosing JSON import or the
// decoder by the name's extension.
func Load(ctx context.Context, name string, r io.ReadSeeker, dec Decoder, epochSeconds int) (*Dataset, error) {
	if IsJSON(name) {
		return DecodeJSON(name, r, epochSeconds)
	}
	if dec == nil {
		dec = EDFDecoder{EpochSeconds: epochSeconds}
	}
	ds, err := dec.Decode(ctx, name, r)
	if err != nil {
		return nil, err
	}
	if epochSeconds > 0 && ds.EpochSeconds != epochSeconds {
		ds = ds.WithEpochSeconds(epochSeconds)
	}
	return ds, nil
}
