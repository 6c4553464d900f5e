package source

import (
	"context"
	"errors"

	"github.com/appwatch/appwatch-go/pkg/collection"
)

// Source errors.
var (
	ErrNotFound      = errors.New("entity not found")
	ErrAlreadyExists = errors.New("entity already exists")
	ErrStreamClosed  = errors.New("change stream closed")
	ErrClosed        = errors.New("source closed")
)

// Snapshot is a point-in-time listing of the whole collection.
type Snapshot struct {
	// Items is the listing in the order the source returned it.
	Items collection.Collection

	// Version is the as-of point of the listing. A stream opened with this
	// version delivers every change after it. Zero means unversioned.
	Version uint64
}

// Source is the remote side of a mirrored collection.
type Source interface {
	// FetchSnapshot returns the current full collection.
	FetchSnapshot(ctx context.Context) (Snapshot, error)

	// OpenChangeStream opens a live stream of changes after version since.
	// The stream ends when ctx is cancelled or the stream is closed.
	OpenChangeStream(ctx context.Context, since uint64) (Stream, error)
}

// Stream is an open change stream.
type Stream interface {
	// Events delivers changes in order. The channel is closed when the
	// stream terminates for any reason.
	Events() <-chan collection.ChangeEvent

	// Close releases the stream. It is safe to call more than once.
	Close() error
}

// Mutator issues mutation requests against the remote side. Implementations
// never touch any local mirror; a successful call becomes visible through a
// later change event.
type Mutator interface {
	Create(ctx context.Context, e collection.Entity) error
	Sync(ctx context.Context, e collection.Entity) error
	Delete(ctx context.Context, key collection.Key) error
}
