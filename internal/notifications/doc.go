// Package notifications delivers capture-run events to ntfy.
//
// NewService publishes to the topic configured in config.toml and degrades to
// a no-op when no topic is set, so capture code can call it unconditionally.
// The batch and errors toggles select which events are sent.
package notifications
