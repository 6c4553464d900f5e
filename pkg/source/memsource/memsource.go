package memsource

import (
	"context"
	"slices"
	"sync"

	"github.com/appwatch/appwatch-go/pkg/collection"
	"github.com/appwatch/appwatch-go/pkg/source"
)

// Source is a thread-safe in-memory collection source.
type Source struct {
	mu sync.Mutex

	// entities in creation order
	entities []collection.Entity

	// every applied change, stamped with its version
	log     []collection.ChangeEvent
	version uint64

	streams map[*stream]struct{}
	closed  bool

	// fault injection
	snapshotErr error
	openErr     error

	// spies
	snapshotCalls int
	streamOpens   int
}

// New creates a source holding the given entities, oldest first.
func New(entities ...collection.Entity) *Source {
	return &Source{
		entities: slices.Clone(entities),
		streams:  make(map[*stream]struct{}),
	}
}

// FetchSnapshot implements source.Source. Entities are listed newest first.
func (s *Source) FetchSnapshot(ctx context.Context) (source.Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return source.Snapshot{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.snapshotCalls++
	if s.closed {
		return source.Snapshot{}, source.ErrClosed
	}
	if s.snapshotErr != nil {
		return source.Snapshot{}, s.snapshotErr
	}

	items := make([]collection.Entity, 0, len(s.entities))
	for _, e := range slices.Backward(s.entities) {
		items = append(items, e.Clone())
	}
	return source.Snapshot{Items: collection.New(items...), Version: s.version}, nil
}

// OpenChangeStream implements source.Source. Changes logged after since are
// replayed before live delivery begins.
func (s *Source) OpenChangeStream(ctx context.Context, since uint64) (source.Stream, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.streamOpens++
	if s.closed {
		return nil, source.ErrClosed
	}
	if s.openErr != nil {
		return nil, s.openErr
	}

	st := newStream(ctx, s)
	for _, ev := range s.log {
		if ev.Version > since {
			st.push(ev)
		}
	}
	s.streams[st] = struct{}{}
	go st.run()

	return st, nil
}

// Create implements source.Mutator.
func (s *Source) Create(ctx context.Context, e collection.Entity) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.indexOf(e.Key) >= 0 {
		return source.ErrAlreadyExists
	}
	s.entities = append(s.entities, e.Clone())
	s.publishLocked(collection.Added(e.Clone()))
	return nil
}

// Sync implements source.Mutator. It replaces the stored payload.
func (s *Source) Sync(ctx context.Context, e collection.Entity) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexOf(e.Key)
	if i < 0 {
		return source.ErrNotFound
	}
	s.entities[i] = e.Clone()
	s.publishLocked(collection.Modified(e.Clone()))
	return nil
}

// Delete implements source.Mutator.
func (s *Source) Delete(ctx context.Context, key collection.Key) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexOf(key)
	if i < 0 {
		return source.ErrNotFound
	}
	removed := s.entities[i]
	s.entities = slices.Delete(s.entities, i, i+1)
	s.publishLocked(collection.ChangeEvent{Type: collection.EventDeleted, Entity: removed})
	return nil
}

// Deliver sends ev to every open stream without changing stored state or the
// change log. Use it to simulate duplicated or out-of-band deliveries.
func (s *Source) Deliver(ev collection.ChangeEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for st := range s.streams {
		st.push(ev)
	}
}

// InjectError delivers a stream error to every open stream.
func (s *Source) InjectError(err error) {
	s.Deliver(collection.StreamError(err))
}

// FailSnapshot makes FetchSnapshot return err until called again with nil.
func (s *Source) FailSnapshot(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snapshotErr = err
}

// FailOpen makes OpenChangeStream return err until called again with nil.
func (s *Source) FailOpen(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.openErr = err
}

// Disconnect terminates every open stream from the remote side.
func (s *Source) Disconnect() {
	s.mu.Lock()
	streams := make([]*stream, 0, len(s.streams))
	for st := range s.streams {
		streams = append(streams, st)
	}
	s.mu.Unlock()

	for _, st := range streams {
		st.Close()
	}
}

// Close disconnects all streams and rejects further calls.
func (s *Source) Close() error {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	s.Disconnect()
	return nil
}

// Version returns the version of the latest change.
func (s *Source) Version() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.version
}

// SnapshotCalls returns how many times FetchSnapshot was called.
func (s *Source) SnapshotCalls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotCalls
}

// StreamOpens returns how many times OpenChangeStream was called.
func (s *Source) StreamOpens() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.streamOpens
}

// OpenStreams returns the number of streams not yet closed.
func (s *Source) OpenStreams() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.streams)
}

func (s *Source) indexOf(key collection.Key) int {
	return slices.IndexFunc(s.entities, func(e collection.Entity) bool {
		return e.Key == key
	})
}

// publishLocked logs ev under a new version and fans it out. Caller holds s.mu.
func (s *Source) publishLocked(ev collection.ChangeEvent) {
	s.version++
	ev = ev.WithVersion(s.version)
	s.log = append(s.log, ev)
	for st := range s.streams {
		st.push(ev)
	}
}

func (s *Source) unregister(st *stream) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.streams, st)
}

var (
	_ source.Source  = (*Source)(nil)
	_ source.Mutator = (*Source)(nil)
)
