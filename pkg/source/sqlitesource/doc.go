// Package sqlitesource implements source.Source and source.Mutator on a
// SQLite database.
//
// Entities live in the entities table. Triggers on that table append every
// insert, update and delete to entity_change_log, whose seq column is the
// version counter shared by snapshots and streams: a snapshot reports the
// highest seq it has seen, and a stream opened from that seq polls the log
// for everything after it. A change committed between the two is therefore
// replayed, never lost.
//
// Payloads are stored as canonical CBOR blobs (see package wire).
package sqlitesource
