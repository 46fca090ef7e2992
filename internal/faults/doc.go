// Package faults defines the error markers shared by the capture pipeline.
//
// Components wrap failures with one of the exported sentinels so callers can
// decide with errors.Is whether a failure aborts the requested operation
// (dataset load, folder enumeration) or is absorbed and logged (per-epoch and
// per-file work).
package faults
