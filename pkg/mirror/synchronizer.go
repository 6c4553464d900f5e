package mirror

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/appwatch/appwatch-go/pkg/collection"
	"github.com/appwatch/appwatch-go/pkg/log"
	"github.com/appwatch/appwatch-go/pkg/source"
	"github.com/appwatch/appwatch-go/pkg/subscription"
	"github.com/google/uuid"
)

// Synchronizer mirrors one source into a local collection.
//
// Only the fold goroutine writes the collection. The mutex exists so Stop,
// Collection and State can be called from other goroutines.
type Synchronizer struct {
	src    source.Source
	config Config
	subs   *subscription.Manager

	mu        sync.Mutex
	state     State
	current   collection.Collection
	version   uint64
	sessionID string
	handle    *subscription.Handle
	last      *subscription.Handle
	cancel    context.CancelFunc
	done      chan struct{}
	// closed when the latest Start returns
	starting chan struct{}

	hmu            sync.RWMutex
	nextToken      Token
	changeHandlers []changeEntry
	errorHandlers  []errorEntry
}

// New creates a synchronizer for src.
func New(src source.Source, config Config) (*Synchronizer, error) {
	if src == nil {
		return nil, ErrNilSource
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if config.EventLog == nil {
		config.EventLog = log.NoopLogger{}
	}

	return &Synchronizer{
		src:    src,
		config: config,
		subs: subscription.NewManagerWithConfig(subscription.Config{
			Logger:   config.Logger,
			EventLog: config.EventLog,
		}),
	}, nil
}

// Start fetches the snapshot, installs it and opens the change stream from
// the snapshot's version. It returns once the snapshot is installed; events
// are folded on a background goroutine until Stop is called, ctx is
// cancelled or the stream ends.
//
// If the snapshot fetch fails the error wraps ErrSourceUnavailable, no
// stream is opened and the collection stays empty.
func (s *Synchronizer) Start(ctx context.Context) (collection.Collection, error) {
	sessionCtx, cancel := context.WithCancel(ctx)

	s.mu.Lock()
	if s.state == StateStarting || s.state == StateRunning {
		s.mu.Unlock()
		cancel()
		return collection.Collection{}, ErrAlreadyStarted
	}
	oldState := s.state
	starting := make(chan struct{})
	defer close(starting)
	s.state = StateStarting
	s.starting = starting
	s.current = collection.Collection{}
	s.version = 0
	s.sessionID = uuid.New().String()
	s.cancel = cancel
	s.handle = nil
	s.done = nil
	s.mu.Unlock()

	s.subs.SetSessionID(s.SessionID())
	s.logState(oldState, StateStarting, "")

	started := time.Now()
	snap, err := s.src.FetchSnapshot(sessionCtx)
	if err != nil {
		s.fail(cancel, StateStarting, log.StageSnapshot, err)
		return collection.Collection{}, fmt.Errorf("%w: %w", ErrSourceUnavailable, err)
	}

	s.mu.Lock()
	if s.state != StateStarting {
		s.mu.Unlock()
		return collection.Collection{}, ErrStopped
	}
	s.current = snap.Items
	s.version = snap.Version
	s.mu.Unlock()

	s.debugLog("snapshot installed", "items", snap.Items.Len(), "version", snap.Version)
	s.logEvent(log.Event{
		Category: log.CategorySnapshot,
		Snapshot: &log.SnapshotEvent{
			Items:    snap.Items.Len(),
			Version:  snap.Version,
			Duration: time.Since(started),
		},
	})

	h, err := s.subs.Open(sessionCtx, s.src, snap.Version)
	if err != nil {
		s.fail(cancel, StateStarting, log.StageOpen, err)
		return collection.Collection{}, fmt.Errorf("open change stream: %w", err)
	}

	s.mu.Lock()
	if s.state != StateStarting {
		s.mu.Unlock()
		_ = s.subs.Close(h)
		return collection.Collection{}, ErrStopped
	}
	done := make(chan struct{})
	s.handle = h
	s.last = h
	s.done = done
	s.state = StateRunning
	s.mu.Unlock()

	s.logState(StateStarting, StateRunning, "")

	go s.run(sessionCtx, h, done)

	return snap.Items, nil
}

// Stop ends the session and releases the change stream before returning.
// It is idempotent and safe to call from a handler. No event is folded after
// Stop returns. A handler call for an event folded before Stop may still
// be running or about to start.
//
// Stopping a session that is still starting waits for Start to return, so a
// stream opened by that Start is released too.
func (s *Synchronizer) Stop() {
	s.mu.Lock()
	if s.state != StateStarting && s.state != StateRunning {
		last := s.last
		starting := s.starting
		s.mu.Unlock()
		// Another path may still be releasing the stream.
		if starting != nil {
			<-starting
		}
		if last != nil {
			<-last.Done()
		}
		return
	}
	oldState := s.state
	s.state = StateStopped
	h := s.handle
	s.handle = nil
	cancel := s.cancel
	s.cancel = nil
	starting := s.starting
	s.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if err := s.subs.Close(h); err != nil {
		s.debugLog("stream close failed", "error", err)
	}

	s.logState(oldState, StateStopped, "stopped")

	if oldState == StateStarting && starting != nil {
		<-starting
	}
}

// Done returns a channel closed when the fold goroutine of the latest
// session has exited. It is closed already if no session is running.
func (s *Synchronizer) Done() <-chan struct{} {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.done == nil {
		ch := make(chan struct{})
		close(ch)
		return ch
	}
	return s.done
}

// Collection returns the current collection.
func (s *Synchronizer) Collection() collection.Collection {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}

// Version returns the version of the last folded event, or the snapshot
// version if nothing has been folded yet.
func (s *Synchronizer) Version() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.version
}

// State returns the synchronizer state.
func (s *Synchronizer) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// SessionID returns the ID of the latest session.
func (s *Synchronizer) SessionID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sessionID
}

// Name returns the configured mirror name.
func (s *Synchronizer) Name() string {
	return s.config.Name
}

func (s *Synchronizer) run(ctx context.Context, h *subscription.Handle, done chan struct{}) {
	defer close(done)

	for ev := range h.Events() {
		s.apply(h, ev)
	}
	s.streamEnded(ctx, h)
}

// apply folds one event. Events for a handle that is no longer current are
// dropped.
func (s *Synchronizer) apply(h *subscription.Handle, ev collection.ChangeEvent) {
	if ev.Type == collection.EventError {
		if !s.isActive(h) {
			return
		}
		err := ev.Err
		if err == nil {
			err = errUnspecifiedFault
		}
		s.debugLog("stream error", "error", err)
		s.logError(log.StageStream, err, "stream fault")
		s.notifyError(h, &StreamError{Err: err})
		return
	}

	s.mu.Lock()
	if s.state != StateRunning || s.handle != h {
		s.mu.Unlock()
		return
	}
	next, changed := collection.Fold(s.current, ev)
	s.current = next
	if ev.Version > s.version {
		s.version = ev.Version
	}
	s.mu.Unlock()

	idx := -1
	if ev.Type != collection.EventDeleted {
		idx = next.IndexOf(ev.Entity.Key)
	}

	s.debugLog("event folded", "type", ev.Type, "key", ev.Entity.Key, "changed", changed, "size", next.Len())
	fold := &log.FoldEvent{
		Type:    ev.Type,
		Key:     ev.Entity.Key,
		Version: ev.Version,
		Changed: changed,
		Index:   idx,
		Size:    next.Len(),
	}
	if ev.Type != collection.EventDeleted {
		fold.Payload = ev.Entity.Payload
	}
	s.logEvent(log.Event{Category: log.CategoryFold, Fold: fold})

	if !changed {
		return
	}
	change := Change{Event: ev, Collection: next, Index: idx}
	for _, fn := range s.changeHandlerList() {
		if !s.isActive(h) {
			return
		}
		fn(change)
	}
}

// streamEnded handles the event channel closing. A close caused by Stop is
// silent; a cancelled session context is treated as Stop; anything else is
// a terminal fault.
func (s *Synchronizer) streamEnded(ctx context.Context, h *subscription.Handle) {
	if !s.isActive(h) {
		return
	}
	if ctx.Err() != nil {
		s.Stop()
		return
	}

	s.mu.Lock()
	if s.state != StateRunning || s.handle != h {
		s.mu.Unlock()
		return
	}
	s.state = StateFailed
	s.handle = nil
	cancel := s.cancel
	s.cancel = nil
	s.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	_ = s.subs.Close(h)

	s.debugLog("change stream ended")
	s.logError(log.StageStream, source.ErrStreamClosed, "stream ended")
	s.logState(StateRunning, StateFailed, source.ErrStreamClosed.Error())

	sErr := &StreamError{Err: source.ErrStreamClosed, Terminal: true}
	for _, fn := range s.errorHandlerList() {
		fn(sErr)
	}
}

// fail moves a starting session to StateFailed unless Stop got there first.
func (s *Synchronizer) fail(cancel context.CancelFunc, from State, stage log.Stage, err error) {
	s.mu.Lock()
	if s.state != from {
		s.mu.Unlock()
		return
	}
	s.state = StateFailed
	s.current = collection.Collection{}
	s.cancel = nil
	s.mu.Unlock()

	cancel()
	s.debugLog("start failed", "stage", stage, "error", err)
	s.logError(stage, err, "start")
	s.logState(from, StateFailed, err.Error())
}

func (s *Synchronizer) notifyError(h *subscription.Handle, err *StreamError) {
	for _, fn := range s.errorHandlerList() {
		if !s.isActive(h) {
			return
		}
		fn(err)
	}
}

func (s *Synchronizer) isActive(h *subscription.Handle) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state == StateRunning && s.handle == h
}

func (s *Synchronizer) debugLog(msg string, args ...any) {
	if s.config.Logger != nil {
		s.config.Logger.Debug(msg, append([]any{"mirror", s.config.Name}, args...)...)
	}
}

func (s *Synchronizer) logEvent(ev log.Event) {
	ev.Timestamp = time.Now()
	ev.SessionID = s.SessionID()
	ev.Mirror = s.config.Name
	s.config.EventLog.Log(ev)
}

func (s *Synchronizer) logState(oldState, newState State, reason string) {
	s.logEvent(log.Event{
		Category: log.CategoryState,
		StateChange: &log.StateChangeEvent{
			Entity:   log.StateEntitySynchronizer,
			OldState: oldState.String(),
			NewState: newState.String(),
			Reason:   reason,
		},
	})
}

func (s *Synchronizer) logError(stage log.Stage, err error, op string) {
	s.logEvent(log.Event{
		Category: log.CategoryError,
		Error: &log.ErrorEventData{
			Stage:   stage,
			Message: err.Error(),
			Context: op,
		},
	})
}
