// Package memsource provides an in-process Source with a versioned change
// log. It stands in for a remote collection in tests and demos, and exposes
// fault injection hooks and call counters for that purpose.
package memsource
