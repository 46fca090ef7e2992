// Package dataset holds decoded recordings in memory and loads them from disk.
//
// A Dataset is built once per load and never mutated afterwards; changing the
// epoch length produces a copy that shares the sample buffers. Recordings come
// either from an EDF file through a Decoder or from a pre-decoded JSON export.
package dataset
