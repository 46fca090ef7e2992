// Package textutil provides small string helpers for turning recording file
// names into safe output directory names and file prefixes.
package textutil
