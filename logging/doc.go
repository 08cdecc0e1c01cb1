// Package logging provides the minimal logging interface used across tutormesh
// plus adapters for the structured loggers a deployment may choose.
//
//   - Logger interface for dependency injection
//   - SlogAdapter wrapping Go's structured logging
//   - ZapAdapter wrapping a sugared zap logger
//   - NoOpLogger for silent operation (tests, minimal setups)
//
// Usage:
//
//	logger, err := logging.New(logging.Config{Backend: "zap", Level: "debug", Format: "json"})
//
// Messages are dotted event keys ("handoff.send.start") followed by
// alternating key/value attributes.
package logging
