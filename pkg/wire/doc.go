// Package wire defines the CBOR encoding used for entity payloads wherever
// they leave process memory. The SQLite source stores payloads as CBOR blobs
// and reads its change log back as EventRecords.
//
// # CBOR Integer Keys
//
// Records use integer keys for compactness. Payload maps keep their string
// keys and decode as map[string]any at every nesting level, with integers
// as int64.
//
// # Records
//
// An EventRecord holds a persisted Added, Modified or Deleted change with
// its payload still encoded. Stream errors are transient and have no
// record form.
package wire
