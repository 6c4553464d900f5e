package mirror

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/appwatch/appwatch-go/pkg/collection"
	"github.com/appwatch/appwatch-go/pkg/log"
)

// Synchronizer errors.
var (
	// ErrSourceUnavailable wraps a failed snapshot fetch. No stream is opened.
	ErrSourceUnavailable = errors.New("source unavailable")

	ErrAlreadyStarted = errors.New("synchronizer already started")
	ErrStopped        = errors.New("synchronizer stopped")
	ErrNilSource      = errors.New("nil source")
	ErrInvalidConfig  = errors.New("invalid configuration")

	errUnspecifiedFault = errors.New("unspecified stream fault")
)

// StreamError is passed to stream error handlers. It does not invalidate the
// collection already held.
type StreamError struct {
	// Err is the fault reported by the stream.
	Err error

	// Terminal is true when the stream ended and the session is over.
	Terminal bool
}

// Error implements error.
func (e *StreamError) Error() string {
	if e.Terminal {
		return fmt.Sprintf("change stream terminated: %v", e.Err)
	}
	return fmt.Sprintf("change stream error: %v", e.Err)
}

// Unwrap returns the underlying fault.
func (e *StreamError) Unwrap() error {
	return e.Err
}

// State represents the synchronizer state.
type State uint8

const (
	// StateIdle - created but never started.
	StateIdle State = iota

	// StateStarting - fetching the snapshot or opening the stream.
	StateStarting

	// StateRunning - folding change events.
	StateRunning

	// StateStopped - stopped by the consumer.
	StateStopped

	// StateFailed - the snapshot, open or stream failed.
	StateFailed
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "IDLE"
	case StateStarting:
		return "STARTING"
	case StateRunning:
		return "RUNNING"
	case StateStopped:
		return "STOPPED"
	case StateFailed:
		return "FAILED"
	default:
		return "UNKNOWN"
	}
}

// Change describes one fold that changed the collection.
type Change struct {
	// Event is the folded change event.
	Event collection.ChangeEvent

	// Collection is the collection after the fold.
	Collection collection.Collection

	// Index is the entity's position after the fold, -1 after a delete.
	Index int
}

// ChangeHandler is called after each fold that changed the collection.
type ChangeHandler func(Change)

// ErrorHandler is called for every stream fault.
type ErrorHandler func(*StreamError)

// Token identifies a registered handler.
type Token uint64

// Config configures a Synchronizer.
type Config struct {
	// Name identifies the mirror in logs and traces.
	Name string

	// Logger is the optional logger for debug output.
	// If nil, logging is disabled.
	Logger *slog.Logger

	// EventLog receives the structured sync trace. Nil disables tracing.
	EventLog log.Logger
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Name: "default",
	}
}

// Validate checks the configuration.
func (c Config) Validate() error {
	if c.Name == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidConfig)
	}
	return nil
}
