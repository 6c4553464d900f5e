// Package log provides a structured trace of mirror sync sessions.
//
// This package defines the Logger interface and Event types for capturing
// what a synchronizer did: snapshots installed, change events folded,
// lifecycle transitions and stream faults. It is separate from operational
// logging (slog); the trace is a complete machine-readable record that can
// be replayed and analyzed after the fact.
//
// # Basic Usage
//
// Applications configure tracing by providing a Logger implementation:
//
//	// For development: log to console via slog
//	cfg.EventLog = log.NewSlogAdapter(slog.Default())
//
//	// For production: write to binary file
//	cfg.EventLog, _ = log.NewFileLogger("/var/log/appwatch/sync.cbor")
//
//	// Both: Combine skips nil loggers
//	cfg.EventLog = log.Combine(
//	    log.NewSlogAdapter(slog.Default()),
//	    fileLogger,
//	)
//
// # Event Types
//
//   - Snapshot: a listing was installed as the initial collection (SnapshotEvent)
//   - Fold: one change event was applied (FoldEvent)
//   - State: synchronizer or subscription lifecycle transition (StateChangeEvent)
//   - Error: snapshot, open or stream failures (ErrorEventData)
//
// # File Format
//
// Trace files are a plain sequence of CBOR-encoded events, appended to
// across runs. Reader rejects records with an unknown category with
// ErrMalformedEvent. The appwatch-log tool provides viewing, filtering,
// statistics and export.
package log
