// SPDX-License-Identifier: MPL-2.0
/*
 * Copyright (C) 2024 Damian Peckett <damian@pecke.tt>.
 *
 * This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at http://mozilla.org/MPL/2.0/.
 */

// Package edf reads and writes EDF/EDF+ recordings.
//
// The reader decodes the fixed-width ASCII header and converts 16-bit digital
// samples to physical values using each signal's calibration. The writer
// exists so tests and demos can produce small synthetic recordings.
package edf

import "time"

type Version string

const (
	// Version0 represents the version of the EDF/EDF+ standard.
	Version0 Version = "0"
)

// AnnotationLabel is the label EDF+ uses for its annotation pseudo-signal.
const AnnotationLabel = "EDF Annotations"

// Header represents the EDF/EDF+ file header.
type Header struct {
	Version            Version       // Version of the EDF/EDF+ standard (usually "0")
	PatientID          string        // Identification of the patient
	RecordingID        string        // Identification of the recording session
	StartTime          time.Time     // Start date of the recording
	HeaderBytes        int           // Number of bytes in the header
	DataRecordDuration time.Duration // Duration of a single data record
	DataRecords        int           // Number of data records, -1 if unknown
	SignalCount        int           // Number of signals in each data record
	Signals            []Signal      // Details of each signal
}

// Signal represents the characteristics of each signal in the EDF/EDF+ file.
type Signal struct {
	Label             string  // Label of the signal (e.g., EEG C3-M2)
	TransducerType    string  // Type of transducer used
	PhysicalDimension string  // Physical dimension (e.g., uV, %)
	PhysicalMin       float64 // Minimum physical value
	PhysicalMax       float64 // Maximum physical value
	DigitalMin        int     // Minimum digital value
	DigitalMax        int     // Maximum digital value
	Prefiltering      string  // Pre-filtering information
	SamplesPerRecord  int     // Number of samples in each data record for this signal
	Reserved          string  // Reserved for future use
}

// SampleRate returns the signal's sampling frequency in Hz, or 0 when the
// header does not carry enough information to derive it.
func (h *Header) SampleRate(index int) float64 {
	if h == nil || index < 0 || index >= len(h.Signals) {
		return 0
	}
	seconds := h.DataRecordDuration.Seconds()
	if seconds <= 0 {
		return 0
	}
	return float64(h.Signals[index].SamplesPerRecord) / seconds
}

// IsAnnotation reports whether the signal is the EDF+ annotation channel.
func (s Signal) IsAnnotation() bool {
	return s.Label == AnnotationLabel
}
