package subscription

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/appwatch/appwatch-go/pkg/collection"
	"github.com/appwatch/appwatch-go/pkg/source"
)

// Subscription errors.
var (
	// ErrAlreadyOpen means Open was called while a stream is open. This is a
	// programming error in the caller, not a runtime condition.
	ErrAlreadyOpen = errors.New("change stream already open")
	ErrNilSource   = errors.New("nil source")
)

// State of a handle.
type State uint8

const (
	// StateOpen indicates the stream is live.
	StateOpen State = iota

	// StateClosed indicates the stream has been released.
	StateClosed
)

// String returns a human-readable state name.
func (s State) String() string {
	switch s {
	case StateOpen:
		return "OPEN"
	case StateClosed:
		return "CLOSED"
	default:
		return "UNKNOWN"
	}
}

// Handle represents one open change stream.
type Handle struct {
	id       string
	since    uint64
	openedAt time.Time

	stream source.Stream
	cancel context.CancelFunc

	once     sync.Once
	closeErr error
	done     chan struct{}
}

// ID returns the handle's unique identifier.
func (h *Handle) ID() string {
	return h.id
}

// Since returns the version the stream was opened from.
func (h *Handle) Since() uint64 {
	return h.since
}

// OpenedAt returns when the stream was opened.
func (h *Handle) OpenedAt() time.Time {
	return h.openedAt
}

// Events returns the stream's event channel. It is closed when the stream
// terminates, whether released by Close or ended by the source.
func (h *Handle) Events() <-chan collection.ChangeEvent {
	return h.stream.Events()
}

// Done is closed once the handle has been released.
func (h *Handle) Done() <-chan struct{} {
	return h.done
}

// State returns the handle's state.
func (h *Handle) State() State {
	select {
	case <-h.done:
		return StateClosed
	default:
		return StateOpen
	}
}

// release tears the stream down exactly once and reports whether this call
// performed the teardown.
func (h *Handle) release() bool {
	first := false
	h.once.Do(func() {
		first = true
		h.cancel()
		h.closeErr = h.stream.Close()
		close(h.done)
	})
	return first
}
