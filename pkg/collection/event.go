package collection

import "fmt"

// EventType tags a ChangeEvent.
type EventType uint8

const (
	// EventAdded carries the full state of an entity that appeared.
	EventAdded EventType = iota

	// EventModified carries the full new state of an existing entity.
	EventModified

	// EventDeleted carries at least the key of a removed entity.
	EventDeleted

	// EventError signals a stream-level fault. It carries no entity.
	EventError
)

// String returns the event type name.
func (t EventType) String() string {
	switch t {
	case EventAdded:
		return "ADDED"
	case EventModified:
		return "MODIFIED"
	case EventDeleted:
		return "DELETED"
	case EventError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// ChangeEvent is one incremental change delivered by a change stream.
type ChangeEvent struct {
	// Type selects which of the remaining fields are meaningful.
	Type EventType

	// Entity is the new state (Added, Modified) or the removed entity (Deleted).
	Entity Entity

	// Err is the stream fault for EventError.
	Err error

	// Version is the source's position of this change, 0 if unversioned.
	Version uint64
}

// Added returns an EventAdded for e.
func Added(e Entity) ChangeEvent {
	return ChangeEvent{Type: EventAdded, Entity: e}
}

// Modified returns an EventModified for e.
func Modified(e Entity) ChangeEvent {
	return ChangeEvent{Type: EventModified, Entity: e}
}

// Deleted returns an EventDeleted for key.
func Deleted(key Key) ChangeEvent {
	return ChangeEvent{Type: EventDeleted, Entity: Entity{Key: key}}
}

// StreamError returns an EventError carrying err.
func StreamError(err error) ChangeEvent {
	return ChangeEvent{Type: EventError, Err: err}
}

// WithVersion returns a copy of ev stamped with version v.
func (ev ChangeEvent) WithVersion(v uint64) ChangeEvent {
	ev.Version = v
	return ev
}

// String implements fmt.Stringer.
func (ev ChangeEvent) String() string {
	if ev.Type == EventError {
		return fmt.Sprintf("%s(%v)", ev.Type, ev.Err)
	}
	return fmt.Sprintf("%s(%s)", ev.Type, ev.Entity.Key)
}
