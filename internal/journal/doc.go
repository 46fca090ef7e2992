// Package journal keeps a SQLite ledger of batch capture runs.
//
// Each run records the folder, the ordered file list, and per-file outcomes
// (epochs exported, fallbacks used, error text) so unattended runs can be
// audited after the fact. The journal never stores signal data or images.
// Store implements capture.Recorder.
package journal
