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
	"math"
	"strconv"
)

// maxRecordBytes is the data record size recommended by the EDF standard.
const maxRecordBytes = 61440

// Writer writes EDF files.
type Writer struct {
	w           io.WriteSeeker
	hdr         *Header
	dataRecords int
}

// Create writes a provisional header and returns a writer for data records.
// The record count is finalized by Close.
func Create(w io.WriteSeeker, hdr Header) (*Writer, error) {
	hdr.DataRecords = -1
	hdr.SignalCount = len(hdr.Signals)

	ew := &Writer{w: w, hdr: &hdr}
	if err := ew.writeHeader(); err != nil {
		return nil, fmt.Errorf("error writing header: %w", err)
	}
	return ew, nil
}

// Close finalizes the EDF file by updating the header with the total number
// of data records.
func (ew *Writer) Close() error {
	ew.hdr.DataRecords = ew.dataRecords
	if err := ew.writeHeader(); err != nil {
		return fmt.Errorf("error writing header: %w", err)
	}
	_, err := ew.w.Seek(0, io.SeekEnd)
	return err
}

// WriteRecord appends one data record holding one sample slice per signal.
func (ew *Writer) WriteRecord(signals [][]float64) error {
	if len(signals) != ew.hdr.SignalCount {
		return fmt.Errorf("expected %d signals, got %d", ew.hdr.SignalCount, len(signals))
	}

	var totalSamples int
	for i, signal := range signals {
		if want := ew.hdr.Signals[i].SamplesPerRecord; len(signal) != want {
			return fmt.Errorf("signal %d: expected %d samples, got %d", i, want, len(signal))
		}
		totalSamples += len(signal)
	}
	if totalSamples*bytesPerSample > maxRecordBytes {
		return fmt.Errorf("data record too large: %d bytes, max is %d bytes", totalSamples*bytesPerSample, maxRecordBytes)
	}

	if _, err := ew.w.Seek(0, io.SeekEnd); err != nil {
		return err
	}
	writer := bufio.NewWriter(ew.w)
	for i, samples := range signals {
		signal := ew.hdr.Signals[i]
		for _, sample := range samples {
			digital := convertPhysicalToDigital(sample, signal.PhysicalMin, signal.PhysicalMax, signal.DigitalMin, signal.DigitalMax)
			if err := binary.Write(writer, binary.LittleEndian, digital); err != nil {
				return err
			}
		}
	}
	if err := writer.Flush(); err != nil {
		return err
	}

	ew.dataRecords++
	return nil
}

func (ew *Writer) writeHeader() error {
	if _, err := ew.w.Seek(0, io.SeekStart); err != nil {
		return err
	}

	hdr := ew.hdr
	hdr.HeaderBytes = fixedHeaderBytes + hdr.SignalCount*signalHeaderBytes

	fixed := []string{
		pad(string(hdr.Version), 8),
		pad(hdr.PatientID, 80),
		pad(hdr.RecordingID, 80),
		pad(hdr.StartTime.Format("02.01.06"), 8),
		pad(hdr.StartTime.Format("15.04.05"), 8),
		pad(strconv.Itoa(hdr.HeaderBytes), 8),
		pad("", 44),
		pad(strconv.Itoa(hdr.DataRecords), 8),
		pad(formatNumber(hdr.DataRecordDuration.Seconds()), 8),
		pad(strconv.Itoa(hdr.SignalCount), 4),
	}

	columns := []struct {
		width int
		value func(Signal) string
	}{
		{16, func(s Signal) string { return s.Label }},
		{80, func(s Signal) string { return s.TransducerType }},
		{8, func(s Signal) string { return s.PhysicalDimension }},
		{8, func(s Signal) string { return formatNumber(s.PhysicalMin) }},
		{8, func(s Signal) string { return formatNumber(s.PhysicalMax) }},
		{8, func(s Signal) string { return strconv.Itoa(s.DigitalMin) }},
		{8, func(s Signal) string { return strconv.Itoa(s.DigitalMax) }},
		{80, func(s Signal) string { return s.Prefiltering }},
		{8, func(s Signal) string { return strconv.Itoa(s.SamplesPerRecord) }},
		{32, func(s Signal) string { return "" }},
	}

	writer := bufio.NewWriter(ew.w)
	for _, value := range fixed {
		if _, err := writer.WriteString(value); err != nil {
			return err
		}
	}
	for _, column := range columns {
		for _, signal := range hdr.Signals {
			if _, err := writer.WriteString(pad(column.value(signal), column.width)); err != nil {
				return err
			}
		}
	}
	return writer.Flush()
}

// convertPhysicalToDigital converts a physical value to a digital value
// using the calibration factors, saturating at the digital range.
func convertPhysicalToDigital(physical float64, pmin, pmax float64, dmin, dmax int) int16 {
	if pmax == pmin {
		return 0
	}
	digital := math.Round((physical-pmin)*float64(dmax-dmin)/(pmax-pmin)) + float64(dmin)
	digital = math.Max(float64(dmin), math.Min(float64(dmax), digital))
	return int16(digital)
}

// formatNumber renders a header number within the 8-character field.
func formatNumber(val float64) string {
	s := strconv.FormatFloat(val, 'f', -1, 64)
	if len(s) > 8 {
		s = fmt.Sprintf("%.2f", val)
	}
	if len(s) > 8 {
		s = fmt.Sprintf("%.0f", val)
	}
	return s
}

func pad(value string, width int) string {
	if len(value) > width {
		return value[:width]
	}
	return fmt.Sprintf("%-*s", width, value)
}
