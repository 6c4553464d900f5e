package log

import (
	"strings"
	"time"

	"github.com/appwatch/appwatch-go/pkg/collection"
)

// Event represents one entry of a sync session trace.
// CBOR encoding uses integer keys for compactness.
type Event struct {
	// Timestamp when the event occurred (nanosecond precision).
	Timestamp time.Time `cbor:"1,keyasint"`

	// SessionID identifies the sync session (UUID, new for every Start).
	SessionID string `cbor:"2,keyasint"`

	// Mirror is the configured name of the synchronizer.
	Mirror string `cbor:"3,keyasint,omitempty"`

	// Category classifies the event type.
	Category Category `cbor:"4,keyasint"`

	// Type-specific payload (one of these will be set).
	Snapshot    *SnapshotEvent    `cbor:"10,keyasint,omitempty"`
	Fold        *FoldEvent        `cbor:"11,keyasint,omitempty"`
	StateChange *StateChangeEvent `cbor:"12,keyasint,omitempty"`
	Error       *ErrorEventData   `cbor:"13,keyasint,omitempty"`
}

// Category classifies the event type.
type Category uint8

const (
	// CategorySnapshot indicates a snapshot was installed.
	CategorySnapshot Category = 0
	// CategoryFold indicates a change event was folded.
	CategoryFold Category = 1
	// CategoryState indicates a lifecycle state change.
	CategoryState Category = 2
	// CategoryError indicates an error event.
	CategoryError Category = 3
)

// String returns the category name.
func (c Category) String() string {
	switch c {
	case CategorySnapshot:
		return "SNAPSHOT"
	case CategoryFold:
		return "FOLD"
	case CategoryState:
		return "STATE"
	case CategoryError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// ParseCategory parses a category name (case-insensitive).
func ParseCategory(s string) (Category, bool) {
	for c := CategorySnapshot; c <= CategoryError; c++ {
		if strings.EqualFold(c.String(), s) {
			return c, true
		}
	}
	return 0, false
}

// SnapshotEvent records the installation of a snapshot.
type SnapshotEvent struct {
	// Items is the number of entities in the snapshot.
	Items int `cbor:"1,keyasint"`

	// Version is the snapshot's as-of point.
	Version uint64 `cbor:"2,keyasint,omitempty"`

	// Duration is how long the fetch took.
	Duration time.Duration `cbor:"3,keyasint,omitempty"`
}

// FoldEvent records one applied change event.
type FoldEvent struct {
	// Type of the change event.
	Type collection.EventType `cbor:"1,keyasint"`

	// Key of the affected entity.
	Key collection.Key `cbor:"2,keyasint"`

	// Version of the change at the source.
	Version uint64 `cbor:"3,keyasint,omitempty"`

	// Changed is false when the fold left the collection as it was.
	Changed bool `cbor:"4,keyasint"`

	// Index is the entity's position after the fold, -1 if absent.
	Index int `cbor:"5,keyasint"`

	// Size is the collection length after the fold.
	Size int `cbor:"6,keyasint"`

	// Payload is the new entity state (Added/Modified only).
	Payload map[string]any `cbor:"7,keyasint,omitempty"`
}

// StateChangeEvent captures synchronizer and subscription lifecycle events.
type StateChangeEvent struct {
	// Entity being changed.
	Entity StateEntity `cbor:"1,keyasint"`

	// OldState is the previous state (may be empty).
	OldState string `cbor:"2,keyasint,omitempty"`

	// NewState is the new state.
	NewState string `cbor:"3,keyasint"`

	// Reason for the change (if available).
	Reason string `cbor:"4,keyasint,omitempty"`
}

// StateEntity indicates what entity changed state.
type StateEntity uint8

const (
	// StateEntitySynchronizer indicates a synchronizer state change.
	StateEntitySynchronizer StateEntity = 0
	// StateEntitySubscription indicates a change stream was opened or released.
	StateEntitySubscription StateEntity = 1
	// StateEntitySupervisor indicates a resync supervisor state change.
	StateEntitySupervisor StateEntity = 2
)

// String returns the state entity name.
func (s StateEntity) String() string {
	switch s {
	case StateEntitySynchronizer:
		return "SYNCHRONIZER"
	case StateEntitySubscription:
		return "SUBSCRIPTION"
	case StateEntitySupervisor:
		return "SUPERVISOR"
	default:
		return "UNKNOWN"
	}
}

// Stage indicates where an error happened.
type Stage uint8

const (
	// StageSnapshot is the snapshot fetch.
	StageSnapshot Stage = 0
	// StageOpen is opening the change stream.
	StageOpen Stage = 1
	// StageStream is a fault reported by, or termination of, an open stream.
	StageStream Stage = 2
)

// String returns the stage name.
func (s Stage) String() string {
	switch s {
	case StageSnapshot:
		return "SNAPSHOT"
	case StageOpen:
		return "OPEN"
	case StageStream:
		return "STREAM"
	default:
		return "UNKNOWN"
	}
}

// ErrorEventData captures errors at any stage.
type ErrorEventData struct {
	// Stage where the error occurred.
	Stage Stage `cbor:"1,keyasint"`

	// Message is the error message.
	Message string `cbor:"2,keyasint"`

	// Context describes what operation was being performed.
	Context string `cbor:"3,keyasint,omitempty"`
}
