// Package config loads, normalizes, and validates epochcap configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment fallbacks such as
// EPOCHCAP_NTFY_TOPIC. The Config type centralizes every knob the CLI needs:
// where captures land, how epochs are framed and paced, the optional custom
// channel schema, and the run journal.
//
// Always obtain settings through this package so downstream code receives
// expanded paths, clamped delays, and clear validation errors.
package config
