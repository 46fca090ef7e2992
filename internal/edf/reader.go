// SPDX-License-Identifier: MPL-2.0
/*
 * Copyright (C) 2024 Damian Peckett <damian@pecke.tt>.
 *
 * This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at http://mozilla.org/MPL/2.0/.
 */

package edf

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"
)

const (
	fixedHeaderBytes  = 256
	signalHeaderBytes = 256
	bytesPerSample    = 2
)

// Reader reads EDF/EDF+ files.
type Reader struct {
	r   io.ReadSeeker
	hdr *Header
}

// Open parses the header of an EDF/EDF+ file and returns a reader positioned
// for signal access.
func Open(r io.ReadSeeker) (*Reader, error) {
	if _, err := r.Seek(0, io.SeekStart); err != nil {
		return nil, fmt.Errorf("error rewinding input: %w", err)
	}
	reader := bufio.NewReader(r)

	b := make([]byte, fixedHeaderBytes)
	if _, err := io.ReadFull(reader, b); err != nil {
		return nil, fmt.Errorf("error reading header: %w", err)
	}

	hdr := &Header{}
	hdr.Version = Version(field(b, 0, 8))
	hdr.PatientID = field(b, 8, 88)
	hdr.RecordingID = field(b, 88, 168)

	startDate, err := time.Parse("02.01.06", field(b, 168, 176))
	if err != nil {
		return nil, fmt.Errorf("error parsing start date: %w", err)
	}
	startTime, err := time.Parse("15.04.05", field(b, 176, 184))
	if err != nil {
		return nil, fmt.Errorf("error parsing start time: %w", err)
	}
	hdr.StartTime = time.Date(startDate.Year(), startDate.Month(), startDate.Day(),
		startTime.Hour(), startTime.Minute(), startTime.Second(), 0, time.UTC)

	if hdr.HeaderBytes, err = strconv.Atoi(field(b, 184, 192)); err != nil {
		return nil, fmt.Errorf("error parsing header bytes: %w", err)
	}
	if hdr.DataRecords, err = strconv.Atoi(field(b, 236, 244)); err != nil {
		return nil, fmt.Errorf("error parsing number of data records: %w", err)
	}
	if hdr.DataRecordDuration, err = time.ParseDuration(field(b, 244, 252) + "s"); err != nil {
		return nil, fmt.Errorf("error parsing data record duration: %w", err)
	}
	if hdr.SignalCount, err = strconv.Atoi(field(b, 252, 256)); err != nil {
		return nil, fmt.Errorf("error parsing signal count: %w", err)
	}
	if hdr.SignalCount < 0 {
		return nil, fmt.Errorf("invalid signal count %d", hdr.SignalCount)
	}

	// Signal headers are stored column-wise: every label, then every
	// transducer type, and so on.
	hdr.Signals = make([]Signal, hdr.SignalCount)
	columns := []struct {
		width  int
		assign func(*Signal, string)
	}{
		{16, func(s *Signal, v string) { s.Label = v }},
		{80, func(s *Signal, v string) { s.TransducerType = v }},
		{8, func(s *Signal, v string) { s.PhysicalDimension = v }},
		{8, func(s *Signal, v string) { s.PhysicalMin = parseFloat(v) }},
		{8, func(s *Signal, v string) { s.PhysicalMax = parseFloat(v) }},
		{8, func(s *Signal, v string) { s.DigitalMin = parseInt(v) }},
		{8, func(s *Signal, v string) { s.DigitalMax = parseInt(v) }},
		{80, func(s *Signal, v string) { s.Prefiltering = v }},
		{8, func(s *Signal, v string) { s.SamplesPerRecord = parseInt(v) }},
		{32, func(s *Signal, v string) { s.Reserved = v }},
	}
	for _, column := range columns {
		buf := make([]byte, column.width)
		for i := range hdr.Signals {
			if _, err := io.ReadFull(reader, buf); err != nil {
				return nil, fmt.Errorf("error reading signal headers: %w", err)
			}
			column.assign(&hdr.Signals[i], strings.TrimSpace(string(buf)))
		}
	}

	for i, sig := range hdr.Signals {
		if sig.SamplesPerRecord < 0 {
			return nil, fmt.Errorf("invalid samples per record %d for signal %d", sig.SamplesPerRecord, i)
		}
	}
	if minHeader := fixedHeaderBytes + signalHeaderBytes*hdr.SignalCount; hdr.HeaderBytes < minHeader {
		return nil, fmt.Errorf("header bytes %d smaller than %d needed for %d signals", hdr.HeaderBytes, minHeader, hdr.SignalCount)
	}

	er := &Reader{r: r, hdr: hdr}
	if hdr.DataRecords < 0 {
		if err := er.inferDataRecords(); err != nil {
			return nil, err
		}
		return er, nil
	}
	if err := er.checkDataSize(); err != nil {
		return nil, err
	}
	return er, nil
}

// checkDataSize rejects headers that declare more data records than the file
// holds, so sample buffers are never sized from an unchecked header.
func (er *Reader) checkDataSize() error {
	end, err := er.r.Seek(0, io.SeekEnd)
	if err != nil {
		return fmt.Errorf("error sizing data section: %w", err)
	}
	recordSize := er.recordSize()
	if recordSize == 0 || er.hdr.DataRecords == 0 {
		return nil
	}
	available := end - int64(er.hdr.HeaderBytes)
	if available < 0 || int64(er.hdr.DataRecords) > available/recordSize {
		return fmt.Errorf("header declares %d data records of %d bytes but file has %d data bytes",
			er.hdr.DataRecords, recordSize, max(available, 0))
	}
	return nil
}

// Header returns the parsed file header.
func (er *Reader) Header() *Header {
	return er.hdr
}

// inferDataRecords derives the record count from the file size when the
// writer never finalized the header.
func (er *Reader) inferDataRecords() error {
	end, err := er.r.Seek(0, io.SeekEnd)
	if err != nil {
		return fmt.Errorf("error sizing data section: %w", err)
	}
	recordSize := er.recordSize()
	if recordSize == 0 {
		er.hdr.DataRecords = 0
		return nil
	}
	dataBytes := end - int64(er.hdr.HeaderBytes)
	if dataBytes < 0 {
		dataBytes = 0
	}
	er.hdr.DataRecords = int(dataBytes / recordSize)
	return nil
}

func (er *Reader) recordSize() int64 {
	var size int64
	for _, sig := range er.hdr.Signals {
		size += int64(sig.SamplesPerRecord) * bytesPerSample
	}
	return size
}

// SignalReader reads continuous signal data from an EDF/EDF+ file.
type SignalReader struct {
	r             io.ReadSeeker
	hdr           *Header
	signalIndex   int
	currentRecord int
	currentSample int
	recordSize    int
	signalOffset  int
	record        []byte
}

// Signal creates a new SignalReader for a specified signal index.
func (er *Reader) Signal(signalIndex int) (*SignalReader, error) {
	if signalIndex < 0 || signalIndex >= len(er.hdr.Signals) {
		return nil, fmt.Errorf("signal index %d out of range", signalIndex)
	}

	signalOffset := 0
	for i := 0; i < signalIndex; i++ {
		signalOffset += er.hdr.Signals[i].SamplesPerRecord * bytesPerSample
	}

	return &SignalReader{
		r:            er.r,
		hdr:          er.hdr,
		signalIndex:  signalIndex,
		recordSize:   int(er.recordSize()),
		signalOffset: signalOffset,
	}, nil
}

// ReadAll returns every physical sample of the signal.
func (er *Reader) ReadAll(signalIndex int) ([]float64, error) {
	sr, err := er.Signal(signalIndex)
	if err != nil {
		return nil, err
	}
	total := er.hdr.DataRecords * er.hdr.Signals[signalIndex].SamplesPerRecord
	if total <= 0 {
		return []float64{}, nil
	}
	data := make([]float64, total)
	n, err := sr.Read(data)
	if err != nil && err != io.EOF {
		return nil, err
	}
	return data[:n], nil
}

// Read fills the provided float64 slice with the physical values from the
// signal. It returns io.EOF once every data record has been consumed.
func (sr *SignalReader) Read(data []float64) (int, error) {
	signal := sr.hdr.Signals[sr.signalIndex]
	if signal.SamplesPerRecord <= 0 {
		return 0, io.EOF
	}

	n := 0
	for n < len(data) {
		if sr.currentRecord >= sr.hdr.DataRecords {
			return n, io.EOF
		}
		if sr.currentSample == 0 || sr.record == nil {
			if err := sr.loadRecord(signal.SamplesPerRecord); err != nil {
				return n, err
			}
		}

		for sr.currentSample < signal.SamplesPerRecord && n < len(data) {
			raw := sr.record[sr.currentSample*bytesPerSample:]
			digital := int16(binary.LittleEndian.Uint16(raw))
			data[n] = convertDigitalToPhysical(digital, signal.DigitalMin, signal.DigitalMax, signal.PhysicalMin, signal.PhysicalMax)
			n++
			sr.currentSample++
		}
		if sr.currentSample >= signal.SamplesPerRecord {
			sr.currentSample = 0
			sr.currentRecord++
		}
	}

	return n, nil
}

// loadRecord reads this signal's slice of the current data record.
func (sr *SignalReader) loadRecord(samples int) error {
	pos := int64(sr.hdr.HeaderBytes) + int64(sr.currentRecord)*int64(sr.recordSize) + int64(sr.signalOffset)
	if _, err := sr.r.Seek(pos, io.SeekStart); err != nil {
		return fmt.Errorf("error seeking to position: %w", err)
	}
	if cap(sr.record) < samples*bytesPerSample {
		sr.record = make([]byte, samples*bytesPerSample)
	}
	sr.record = sr.record[:samples*bytesPerSample]
	if _, err := io.ReadFull(sr.r, sr.record); err != nil {
		return fmt.Errorf("error reading sample data: %w", err)
	}
	return nil
}

// convertDigitalToPhysical converts a digital value from the data record to a
// physical value using the calibration factors.
func convertDigitalToPhysical(digital int16, dmin, dmax int, pmin, pmax float64) float64 {
	if dmax == dmin {
		return 0
	}
	return pmin + (float64(digital)-float64(dmin))*(pmax-pmin)/float64(dmax-dmin)
}

func field(b []byte, from, to int) string {
	return strings.TrimSpace(string(b[from:to]))
}

func parseFloat(v string) float64 {
	f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
	if err != nil {
		return 0.0
	}
	return f
}

func parseInt(v string) int {
	i, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		return 0
	}
	return i
}
