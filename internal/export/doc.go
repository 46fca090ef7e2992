// Package export writes composed epoch images to a target folder.
//
// Directory abstracts the folder a capture writes into so batch runs and
// tests can substitute their own sinks. Exporter pairs a primary directory
// with a fallback ("download") directory: a failed primary write is logged
// and retried against the fallback instead of failing the capture.
package export
