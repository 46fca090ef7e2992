// Package channels maps raw recording labels onto canonical PSG channel
// names.
//
// Sleep-study exports label the same sensor in many ways ("EOGL",
// "EOGL-M2", "E1-M2"). Canonicalize folds those variants into the display
// names used by the capture schema. The mapping is pure and total: any input,
// including the empty string, yields a string.
package channels
