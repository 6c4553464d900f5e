// Package source defines the Remote Collection Source consumed by the
// mirror: a snapshot listing plus a change stream.
//
// A Source is owned by the remote side. The mirror only reads from it:
// FetchSnapshot once per session, then OpenChangeStream from the snapshot's
// version. Streams are not restartable; after a fault or Close a new stream
// must be opened.
//
// Mutations (create, sync, delete) are a separate Mutator interface used by
// presentation glue. Their effects reach the mirror only through the change
// stream.
package source
