// SPDX-License-Identifier: MPL-2.0
/*
 * Copyright (C) 2024 Damian Peckett <damian@pecke.tt>.
 *
 * This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at http://mozilla.org/MPL/2.0/.
 */

package edf_test

import (
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"epochcap/internal/edf"
)

func newHeader(records time.Duration, signals ...edf.Signal) edf.Header {
	return edf.Header{
		Version:            edf.Version0,
		PatientID:          "X X X X",
		RecordingID:        "Startdate 01-JAN-2024 PSG",
		StartTime:          time.Date(2024, 1, 1, 22, 30, 0, 0, time.UTC),
		DataRecordDuration: records,
		Signals:            signals,
	}
}

func flowSignal(samples int) edf.Signal {
	return edf.Signal{
		Label:             "Flow Patient",
		TransducerType:    "Pressure",
		PhysicalDimension: "cmH2O",
		PhysicalMin:       -100,
		PhysicalMax:       100,
		DigitalMin:        -32768,
		DigitalMax:        32767,
		SamplesPerRecord:  samples,
	}
}

func spo2Signal(samples int) edf.Signal {
	return edf.Signal{
		Label:             "SpO2",
		PhysicalDimension: "%",
		PhysicalMin:       0,
		PhysicalMax:       100,
		DigitalMin:        0,
		DigitalMax:        1000,
		SamplesPerRecord:  samples,
	}
}

func TestWriterReaderRoundTrip(t *testing.T) {
	f, err := os.OpenFile(filepath.Join(t.TempDir(), "study.edf"), os.O_RDWR|os.O_CREATE, 0o644)
	require.NoError(t, err)
	t.Cleanup(func() {
		require.NoError(t, f.Close())
	})

	ew, err := edf.Create(f, newHeader(time.Second, flowSignal(25), spo2Signal(1)))
	require.NoError(t, err)

	for rec := 0; rec < 4; rec++ {
		flow := make([]float64, 25)
		for i := range flow {
			flow[i] = float64(rec*25+i) - 50
		}
		require.NoError(t, ew.WriteRecord([][]float64{flow, {float64(90 + rec)}}))
	}
	require.NoError(t, ew.Close())

	er, err := edf.Open(f)
	require.NoError(t, err)

	hdr := er.Header()
	assert.Equal(t, 4, hdr.DataRecords)
	assert.Equal(t, 2, hdr.SignalCount)
	assert.Equal(t, "Flow Patient", hdr.Signals[0].Label)
	assert.Equal(t, 2024, hdr.StartTime.Year())
	assert.InDelta(t, 25.0, hdr.SampleRate(0), 1e-9)
	assert.InDelta(t, 1.0, hdr.SampleRate(1), 1e-9)

	flow, err := er.ReadAll(0)
	require.NoError(t, err)
	require.Len(t, flow, 100)
	for i := range flow {
		require.InDelta(t, float64(i)-50, flow[i], 0.01)
	}

	spo2, err := er.ReadAll(1)
	require.NoError(t, err)
	require.Len(t, spo2, 4)
	assert.InDelta(t, 93.0, spo2[3], 0.1)
}

func TestSignalReaderStreamsAcrossRecords(t *testing.T) {
	f, err := os.OpenFile(filepath.Join(t.TempDir(), "stream.edf"), os.O_RDWR|os.O_CREATE, 0o644)
	require.NoError(t, err)
	t.Cleanup(func() {
		require.NoError(t, f.Close())
	})

	ew, err := edf.Create(f, newHeader(2*time.Second, flowSignal(10)))
	require.NoError(t, err)
	record := make([]float64, 10)
	for rec := 0; rec < 3; rec++ {
		for i := range record {
			record[i] = float64(rec*10 + i)
		}
		require.NoError(t, ew.WriteRecord([][]float64{record}))
	}
	require.NoError(t, ew.Close())

	er, err := edf.Open(f)
	require.NoError(t, err)
	assert.InDelta(t, 5.0, er.Header().SampleRate(0), 1e-9)

	sr, err := er.Signal(0)
	require.NoError(t, err)

	buf := make([]float64, 7)
	var got []float64
	for {
		n, err := sr.Read(buf)
		got = append(got, buf[:n]...)
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
	}
	require.Len(t, got, 30)
	for i := range got {
		require.InDelta(t, float64(i), got[i], 0.01)
	}
}

func TestOpenInfersUnfinalizedRecordCount(t *testing.T) {
	f, err := os.OpenFile(filepath.Join(t.TempDir(), "partial.edf"), os.O_RDWR|os.O_CREATE, 0o644)
	require.NoError(t, err)
	t.Cleanup(func() {
		require.NoError(t, f.Close())
	})

	ew, err := edf.Create(f, newHeader(time.Second, spo2Signal(2)))
	require.NoError(t, err)
	require.NoError(t, ew.WriteRecord([][]float64{{95, 96}}))
	require.NoError(t, ew.WriteRecord([][]float64{{97, 98}}))
	// No Close: the header still says -1 records.

	er, err := edf.Open(f)
	require.NoError(t, err)
	assert.Equal(t, 2, er.Header().DataRecords)

	samples, err := er.ReadAll(0)
	require.NoError(t, err)
	assert.Len(t, samples, 4)
}

func TestWriteRecordRejectsWrongShape(t *testing.T) {
	f, err := os.OpenFile(filepath.Join(t.TempDir(), "bad.edf"), os.O_RDWR|os.O_CREATE, 0o644)
	require.NoError(t, err)
	t.Cleanup(func() {
		require.NoError(t, f.Close())
	})

	ew, err := edf.Create(f, newHeader(time.Second, spo2Signal(2)))
	require.NoError(t, err)
	assert.Error(t, ew.WriteRecord([][]float64{{1}}))
	assert.Error(t, ew.WriteRecord([][]float64{{1, 2}, {3, 4}}))
}

func TestOpenRejectsTruncatedHeader(t *testing.T) {
	path := filepath.Join(t.TempDir(), "short.edf")
	require.NoError(t, os.WriteFile(path, []byte("0       not an edf"), 0o644))

	f, err := os.Open(path)
	require.NoError(t, err)
	t.Cleanup(func() {
		require.NoError(t, f.Close())
	})

	_, err = edf.Open(f)
	assert.Error(t, err)
}

// writeSingleSignal writes a finalized one-signal recording and returns its
// path.
func writeSingleSignal(t *testing.T, records int) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "rec.edf")
	f, err := os.Create(path)
	require.NoError(t, err)
	ew, err := edf.Create(f, newHeader(time.Second, spo2Signal(2)))
	require.NoError(t, err)
	for range records {
		require.NoError(t, ew.WriteRecord([][]float64{{95, 96}}))
	}
	require.NoError(t, ew.Close())
	require.NoError(t, f.Close())
	return path
}

func patchHeader(t *testing.T, path string, offset int64, value string) {
	t.Helper()
	f, err := os.OpenFile(path, os.O_RDWR, 0o644)
	require.NoError(t, err)
	_, err = f.WriteAt([]byte(value), offset)
	require.NoError(t, err)
	require.NoError(t, f.Close())
}

func TestOpenRejectsOversizedHeaderCounts(t *testing.T) {
	const (
		dataRecordsOffset = 236
		// Fixed header plus every signal column before samples-per-record.
		samplesPerRecordOffset = 256 + 16 + 80 + 8 + 8 + 8 + 8 + 8 + 80
	)
	cases := []struct {
		name   string
		offset int64
		value  string
	}{
		{"data records", dataRecordsOffset, "99999999"},
		{"samples per record", samplesPerRecordOffset, "99999999"},
		{"negative samples per record", samplesPerRecordOffset, "-5      "},
		{"header bytes", 184, "10      "},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			path := writeSingleSignal(t, 3)
			patchHeader(t, path, tc.offset, tc.value)

			f, err := os.Open(path)
			require.NoError(t, err)
			t.Cleanup(func() { _ = f.Close() })

			_, err = edf.Open(f)
			assert.Error(t, err)
		})
	}
}

func TestOpenAcceptsExactDataSize(t *testing.T) {
	path := writeSingleSignal(t, 3)
	f, err := os.Open(path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = f.Close() })

	er, err := edf.Open(f)
	require.NoError(t, err)
	samples, err := er.ReadAll(0)
	require.NoError(t, err)
	assert.Len(t, samples, 6)
}

func TestAnnotationSignalDetection(t *testing.T) {
	assert.True(t, edf.Signal{Label: edf.AnnotationLabel}.IsAnnotation())
	assert.False(t, edf.Signal{Label: "ECG"}.IsAnnotation())
}
