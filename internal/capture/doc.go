// Package capture drives epoch image export.
//
// Session is the single-recording controller behind on-demand and automatic
// capture: it owns the loaded dataset and the current epoch pointer. Batch
// walks a folder of recordings in a deterministic order and writes every epoch
// of each one into a per-recording subfolder, isolating failures per file.
//
// Both controllers run one capture at a time. Cancellation is a
// context.Context observed before each file, before each epoch, and during
// the pacing delays; an export write that has already started always
// finishes.
package capture
