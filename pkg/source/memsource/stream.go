package memsource

import (
	"context"
	"sync"

	"github.com/appwatch/appwatch-go/pkg/collection"
)

// stream buffers pushed events without bound so that publishers never block
// on a slow consumer, and forwards them in order to the out channel.
type stream struct {
	owner *Source

	mu     sync.Mutex
	queue  []collection.ChangeEvent
	notify chan struct{}

	out    chan collection.ChangeEvent
	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}
	once   sync.Once
}

func newStream(ctx context.Context, owner *Source) *stream {
	ctx, cancel := context.WithCancel(ctx)
	return &stream{
		owner:  owner,
		notify: make(chan struct{}, 1),
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

func (st *stream) push(ev collection.ChangeEvent) {
	st.mu.Lock()
	st.queue = append(st.queue, ev)
	st.mu.Unlock()

	select {
	case st.notify <- struct{}{}:
	default:
	}
}

func (st *stream) run() {
	defer close(st.done)
	defer st.owner.unregister(st)
	defer close(st.out)

	for {
		st.mu.Lock()
		pending := st.queue
		st.queue = nil
		st.mu.Unlock()

		for _, ev := range pending {
			select {
			case st.out <- ev:
			case <-st.ctx.Done():
				return
			}
		}

		if len(pending) > 0 {
			continue
		}

		select {
		case <-st.notify:
		case <-st.ctx.Done():
			return
		}
	}
}
