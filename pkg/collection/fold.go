package collection

// Fold applies one change event to c and returns the resulting collection.
// The boolean result reports whether the collection changed; it is false for
// EventError and for deleting a key that is not present.
//
// Fold is pure: it depends only on its arguments and never modifies c.
func Fold(c Collection, ev ChangeEvent) (Collection, bool) {
	switch ev.Type {
	case EventAdded, EventModified:
		return c.upsert(ev.Entity), true
	case EventDeleted:
		return c.remove(ev.Entity.Key)
	default:
		return c, false
	}
}

// Replay folds events into c in order and returns the final collection.
func Replay(c Collection, events ...ChangeEvent) Collection {
	for _, ev := range events {
		c, _ = Fold(c, ev)
	}
	return c
}
