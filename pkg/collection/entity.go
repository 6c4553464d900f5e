package collection

import (
	"maps"
	"reflect"
)

// Entity is a named item in a collection. Payload is opaque structured state
// owned by the remote side; nothing in this module interprets it.
type Entity struct {
	Key     Key            `cbor:"1,keyasint"`
	Payload map[string]any `cbor:"2,keyasint,omitempty"`
}

// NewEntity returns an entity with the given key and payload.
func NewEntity(key Key, payload map[string]any) Entity {
	return Entity{Key: key, Payload: payload}
}

// Clone returns a copy whose top-level payload map can be modified
// without affecting e. Nested values are shared.
func (e Entity) Clone() Entity {
	return Entity{Key: e.Key, Payload: maps.Clone(e.Payload)}
}

// Equal reports whether two entities have the same key and payload.
func (e Entity) Equal(other Entity) bool {
	if e.Key != other.Key {
		return false
	}
	if len(e.Payload) == 0 && len(other.Payload) == 0 {
		return true
	}
	return reflect.DeepEqual(e.Payload, other.Payload)
}
