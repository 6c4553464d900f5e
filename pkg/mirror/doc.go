// Package mirror keeps a client-side copy of a remotely owned collection
// current, using list-then-watch synchronization.
//
// A Synchronizer fetches a snapshot from a source.Source, installs it as the
// initial collection, opens the change stream from the snapshot's version,
// and then folds every change event into the collection strictly in arrival
// order. Registered handlers are told about every fold that changed the
// collection.
//
// # Sessions
//
// Start begins a session and Stop ends it. Stop is idempotent, may be called
// from any goroutine (including from inside a handler), and releases the
// change stream before returning, including a stream that a concurrent Start
// is still opening. No event is folded after Stop has returned. Handlers may
// still be called for an event that was folded before Stop; that delivery is
// checked once per handler and can race with Stop. Starting again after Stop
// begins a fresh session with a new snapshot; there is no resume from a
// checkpoint.
//
// # Stream Faults
//
// Error events from the stream never change the collection; they are passed
// to OnStreamError handlers and the session continues. If the stream ends on
// its own, error handlers receive a terminal *StreamError wrapping
// source.ErrStreamClosed and the session moves to StateFailed. The
// synchronizer never reconnects by itself; see package connection for an
// opt-in supervisor.
//
// # Handlers
//
// Handlers run synchronously on the fold goroutine in registration order.
// They must not block for long; hand long work off to another goroutine.
// The Collection passed to a handler is an immutable value: its accessors
// hand out copies of each entity's payload map.
package mirror
