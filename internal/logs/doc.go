// Package logs reads the epochcap log file for `epochcap logs`.
//
// Tail returns the last lines of the file, optionally only those mentioning a
// run id, together with the byte offset reached. Follow keeps reading from
// that offset until the context ends, starting over when the file shrinks.
package logs
