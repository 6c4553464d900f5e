package collection

import "slices"

// Collection is an immutable ordered sequence of entities with unique keys.
// Entities are copied on the way in and on the way out, so changing a
// returned payload map never changes the collection. The zero value is an
// empty collection.
type Collection struct {
	items []Entity
}

// New builds a collection from entities in the given order. If a key occurs
// more than once, the later entity replaces the earlier one at the earlier
// position, so the result never holds duplicate keys.
func New(entities ...Entity) Collection {
	items := make([]Entity, 0, len(entities))
	index := make(map[Key]int, len(entities))
	for _, e := range entities {
		if i, ok := index[e.Key]; ok {
			items[i] = e.Clone()
			continue
		}
		index[e.Key] = len(items)
		items = append(items, e.Clone())
	}
	return Collection{items: items}
}

// Len returns the number of entities.
func (c Collection) Len() int {
	return len(c.items)
}

// At returns the entity at position i. It panics if i is out of range.
func (c Collection) At(i int) Entity {
	return c.items[i].Clone()
}

// Items returns a copy of the entities in order.
func (c Collection) Items() []Entity {
	out := make([]Entity, len(c.items))
	for i, e := range c.items {
		out[i] = e.Clone()
	}
	return out
}

// Keys returns the keys in order.
func (c Collection) Keys() []Key {
	keys := make([]Key, len(c.items))
	for i, e := range c.items {
		keys[i] = e.Key
	}
	return keys
}

// IndexOf returns the position of key, or -1 if absent.
func (c Collection) IndexOf(key Key) int {
	return slices.IndexFunc(c.items, func(e Entity) bool {
		return e.Key == key
	})
}

// Get returns the entity for key.
func (c Collection) Get(key Key) (Entity, bool) {
	i := c.IndexOf(key)
	if i < 0 {
		return Entity{}, false
	}
	return c.items[i].Clone(), true
}

// Contains reports whether key is present.
func (c Collection) Contains(key Key) bool {
	return c.IndexOf(key) >= 0
}

// Equal reports whether both collections hold equal entities in the same order.
func (c Collection) Equal(other Collection) bool {
	return slices.EqualFunc(c.items, other.items, Entity.Equal)
}

// upsert returns a new collection with e replacing the entry of the same key
// in place, or inserted at the front when absent.
func (c Collection) upsert(e Entity) Collection {
	if i := c.IndexOf(e.Key); i >= 0 {
		items := slices.Clone(c.items)
		items[i] = e.Clone()
		return Collection{items: items}
	}
	items := make([]Entity, 0, len(c.items)+1)
	items = append(items, e.Clone())
	items = append(items, c.items...)
	return Collection{items: items}
}

// remove returns a new collection without key and whether it was present.
func (c Collection) remove(key Key) (Collection, bool) {
	i := c.IndexOf(key)
	if i < 0 {
		return c, false
	}
	items := make([]Entity, 0, len(c.items)-1)
	items = append(items, c.items[:i]...)
	items = append(items, c.items[i+1:]...)
	return Collection{items: items}, true
}
