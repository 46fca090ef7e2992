// Package render draws epoch waveforms into raster images.
//
// Rasterize maps one channel's epoch window into a rectangle using either a
// fixed physical range or symmetric auto-scaling. Composer stacks one band per
// schema row into a fixed-size frame for export, or into a variable-height
// strip that mirrors the live viewer.
package render
