package sqlitesource

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/appwatch/appwatch-go/pkg/collection"
	"github.com/appwatch/appwatch-go/pkg/wire"
)

// logEntry mirrors one row of entity_change_log.
type logEntry struct {
	Seq       uint64
	Op        string
	Namespace string
	Name      string
	Payload   []byte
}

// record maps the entry onto its wire form.
func (l logEntry) record() (wire.EventRecord, error) {
	rec := wire.EventRecord{
		Key:     collection.NewKey(l.Namespace, l.Name),
		Payload: l.Payload,
		Version: l.Seq,
	}
	switch l.Op {
	case opInsert:
		rec.Type = collection.EventAdded
	case opUpdate:
		rec.Type = collection.EventModified
	case opDelete:
		rec.Type = collection.EventDeleted
	default:
		return wire.EventRecord{}, fmt.Errorf("log seq %d: unknown op %q", l.Seq, l.Op)
	}
	return rec, nil
}

// event converts the entry into a change event stamped with its seq.
func (l logEntry) event() (collection.ChangeEvent, error) {
	rec, err := l.record()
	if err != nil {
		return collection.ChangeEvent{}, err
	}
	ev, err := rec.Event()
	if err != nil {
		return collection.ChangeEvent{}, fmt.Errorf("decode log seq %d: %w", l.Seq, err)
	}
	return ev, nil
}

// stream polls the change log and forwards entries in seq order.
type stream struct {
	owner *Source
	last  uint64

	out    chan collection.ChangeEvent
	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}
	once   sync.Once
}

func newStream(ctx context.Context, owner *Source, since uint64) *stream {
	ctx, cancel := context.WithCancel(ctx)
	return &stream{
		owner:  owner,
		last:   since,
		out:    make(chan collection.ChangeEvent),
		ctx:    ctx,
		cancel: cancel,
		done:   make(chan struct{}),
	}
}

func (st *stream) Events() <-chan collection.ChangeEvent {
	return st.out
}

func (st *stream) Close() error {
	st.once.Do(func() {
		st.cancel()
		<-st.done
	})
	return nil
}

func (st *stream) run() {
	defer close(st.done)
	defer st.owner.unregister(st)
	defer close(st.out)

	ticker := time.NewTicker(st.owner.config.PollInterval)
	defer ticker.Stop()

	for {
		if !st.poll() {
			return
		}
		select {
		case <-ticker.C:
		case <-st.ctx.Done():
			return
		}
	}
}

// poll drains the log past st.last. It returns false when the stream
// should end.
func (st *stream) poll() bool {
	for {
		if st.owner.isClosed() {
			return false
		}
		entries, err := st.owner.readLog(st.ctx, st.last, st.owner.config.BatchSize)
		if err != nil {
			if st.ctx.Err() != nil {
				return false
			}
			st.owner.debugLog("poll failed", "after", st.last, "error", err)
			return st.send(collection.StreamError(fmt.Errorf("poll change log: %w", err)))
		}

		for _, entry := range entries {
			ev, err := entry.event()
			if err != nil {
				ev = collection.StreamError(err)
			}
			if !st.send(ev) {
				return false
			}
			st.last = entry.Seq
		}

		if len(entries) < st.owner.config.BatchSize {
			return true
		}
	}
}

func (st *stream) send(ev collection.ChangeEvent) bool {
	select {
	case st.out <- ev:
		return true
	case <-st.ctx.Done():
		return false
	}
}
