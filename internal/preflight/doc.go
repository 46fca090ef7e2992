// Package preflight runs environment checks before capture work starts.
//
// Checks confirm that the configured output, fallback, and log folders exist
// with read/write access, that a batch folder actually contains recordings,
// and that the journal database can be opened. Results are plain values so
// the doctor command can render them as a table.
package preflight
