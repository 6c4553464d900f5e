// Package subscription implements the lifecycle of a mirror's change stream.
//
// A Manager owns at most one open change stream at a time. Open returns a
// Handle; Close releases it. The handle-plus-cancellation pattern replaces
// implicit subscribe/unsubscribe so that teardown can be requested from any
// number of exit paths.
//
// # Exactly-Once Release
//
// The first Close of a handle cancels the stream's context, closes the
// source stream and waits for it to finish. Every later Close of the same
// handle is a no-op, as is Close(nil). Closing a handle from an earlier
// session never affects the current one.
//
// # Ordering
//
// Open takes the version of the snapshot the caller has already installed.
// The manager never fetches snapshots itself; callers must install the
// snapshot before opening the stream.
//
// # Lifecycle
//
// Streams are not restartable. After Close, or after the source ends the
// stream, a new Open is required.
package subscription
