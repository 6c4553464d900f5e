// Package collection defines the client-side data model of a mirrored
// remote collection: entities addressed by an identity key, the ordered
// Collection that holds them, and the change events that evolve it.
//
// # Ordering
//
// A Collection is an ordered sequence with unique identity keys. Entities
// that appear for the first time are inserted at the front (newest-first).
// Updates replace an entry in place and never reorder the sequence.
//
// # Immutability
//
// Collection is a value type. Fold never mutates its input; it builds a new
// Collection for every change. Callers may share a Collection between
// goroutines without copying, and Items returns a copy so that consumer-side
// edits cannot leak back into the mirror.
//
// # Fold
//
//	next, changed := collection.Fold(current, collection.Added(e))
//
// Added and Modified are both upserts, so duplicated or re-delivered Added
// events are tolerated. Deleting an absent key is a no-op. Error events never
// change the collection.
package collection
