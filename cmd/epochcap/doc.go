// Command epochcap browses polysomnography recordings epoch by epoch and
// exports each epoch as a fixed-size composite PNG.
//
// Single captures, unattended auto-capture over one recording, and folder
// batches share one configuration file (see `epochcap config init`). Ctrl-C
// stops auto-capture and batches between epochs; an image being written is
// always finished first.
package main
