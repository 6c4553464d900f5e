package connection

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/appwatch/appwatch-go/pkg/collection"
	"github.com/appwatch/appwatch-go/pkg/log"
	"github.com/appwatch/appwatch-go/pkg/mirror"
)

// Supervisor errors.
var (
	ErrSupervisorClosed = errors.New("supervisor closed")
	ErrAlreadyRunning   = errors.New("supervisor already running")
)

// State represents the supervisor state.
type State uint8

const (
	// StateIdle indicates Start has not been called.
	StateIdle State = iota

	// StateSyncing indicates a session is running.
	StateSyncing

	// StateResyncing indicates the session failed and a resync is pending.
	StateResyncing

	// StateClosed indicates the supervisor has been closed.
	StateClosed
)

// String returns a human-readable state name.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "IDLE"
	case StateSyncing:
		return "SYNCING"
	case StateResyncing:
		return "RESYNCING"
	case StateClosed:
		return "CLOSED"
	default:
		return "UNKNOWN"
	}
}

// Target is the session a Supervisor restarts. *mirror.Synchronizer
// implements it.
type Target interface {
	Start(ctx context.Context) (collection.Collection, error)
	Stop()
	OnStreamError(fn mirror.ErrorHandler) mirror.Token
	Remove(token mirror.Token) bool
}

var _ Target = (*mirror.Synchronizer)(nil)

// Config configures a Supervisor.
type Config struct {
	// Backoff controls the delay between resync attempts.
	Backoff BackoffConfig

	// StartTimeout bounds each resync's snapshot fetch and stream open.
	// Zero means no bound.
	StartTimeout time.Duration

	// Logger is the optional logger for debug output.
	// If nil, logging is disabled.
	Logger *slog.Logger

	// EventLog receives supervisor state changes. Nil disables tracing.
	EventLog log.Logger
}

// DefaultConfig returns a Config with the default backoff.
func DefaultConfig() Config {
	return Config{
		Backoff:      DefaultBackoffConfig(),
		StartTimeout: 30 * time.Second,
	}
}

// Supervisor restarts a mirror session after its stream ends.
type Supervisor struct {
	mu sync.RWMutex

	state   State
	target  Target
	config  Config
	backoff *Backoff
	token   mirror.Token

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	// sessionCancel ends the context of the latest resynced session.
	sessionCancel context.CancelFunc

	resyncCh chan struct{}

	onStateChange func(oldState, newState State)
	onResyncing   func(attempt int, delay time.Duration)
	onResynced    func(c collection.Collection)
}

// NewSupervisor creates a supervisor for target.
func NewSupervisor(target Target, config Config) *Supervisor {
	if config.EventLog == nil {
		config.EventLog = log.NoopLogger{}
	}
	return &Supervisor{
		state:    StateIdle,
		target:   target,
		config:   config,
		backoff:  NewBackoffWithConfig(config.Backoff),
		resyncCh: make(chan struct{}, 1),
	}
}

// State returns the supervisor state.
func (s *Supervisor) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// Start starts the first session and begins supervising. An error from the
// first start is returned as is and nothing is supervised. Cancelling ctx
// ends supervision like Close.
func (s *Supervisor) Start(ctx context.Context) (collection.Collection, error) {
	s.mu.Lock()
	switch s.state {
	case StateClosed:
		s.mu.Unlock()
		return collection.Collection{}, ErrSupervisorClosed
	case StateSyncing, StateResyncing:
		s.mu.Unlock()
		return collection.Collection{}, ErrAlreadyRunning
	}
	s.ctx, s.cancel = context.WithCancel(ctx)
	s.token = s.target.OnStreamError(s.handleStreamError)
	s.mu.Unlock()

	// Syncing before the first start so an early stream fault is not missed.
	s.setState(StateSyncing, "starting")

	c, err := s.target.Start(s.ctx)
	if err != nil {
		s.target.Remove(s.token)
		s.cancel()
		s.setState(StateIdle, err.Error())
		return collection.Collection{}, err
	}

	s.wg.Add(1)
	go s.resyncLoop()

	return c, nil
}

// Close stops supervising and stops the target.
func (s *Supervisor) Close() {
	s.mu.Lock()
	if s.state == StateClosed {
		s.mu.Unlock()
		return
	}
	cancel := s.cancel
	s.mu.Unlock()

	s.setState(StateClosed, "closed")

	if cancel != nil {
		cancel()
	}
	s.wg.Wait()

	s.target.Remove(s.token)
	s.target.Stop()
}

// OnStateChange sets a callback for state changes.
func (s *Supervisor) OnStateChange(fn func(oldState, newState State)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onStateChange = fn
}

// OnResyncing sets a callback invoked before each resync attempt.
func (s *Supervisor) OnResyncing(fn func(attempt int, delay time.Duration)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onResyncing = fn
}

// OnResynced sets a callback invoked with the fresh snapshot after a
// successful resync.
func (s *Supervisor) OnResynced(fn func(c collection.Collection)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onResynced = fn
}

// BackoffAttempts returns the number of resync attempts since the last
// running session.
func (s *Supervisor) BackoffAttempts() int {
	return s.backoff.Attempts()
}

// handleStreamError runs on the target's fold goroutine.
func (s *Supervisor) handleStreamError(err *mirror.StreamError) {
	if !err.Terminal {
		return
	}

	s.mu.RLock()
	state := s.state
	s.mu.RUnlock()
	if state != StateSyncing {
		return
	}

	s.debugLog("session lost", "error", err)
	s.setState(StateResyncing, err.Error())
	s.triggerResync()
}

func (s *Supervisor) triggerResync() {
	select {
	case s.resyncCh <- struct{}{}:
	default:
		// Already pending
	}
}

func (s *Supervisor) resyncLoop() {
	defer s.wg.Done()

	for {
		select {
		case <-s.ctx.Done():
			return
		case <-s.resyncCh:
			s.attemptResync()
		}
	}
}

// attemptResync restarts the target with backoff until a session runs or
// the supervisor is closed.
func (s *Supervisor) attemptResync() {
	for {
		if s.State() != StateResyncing {
			return
		}

		delay := s.backoff.Next()
		attempt := s.backoff.Attempts()

		s.mu.RLock()
		onResyncing := s.onResyncing
		s.mu.RUnlock()
		if onResyncing != nil {
			onResyncing(attempt, delay)
		}
		s.debugLog("resync scheduled", "attempt", attempt, "delay", delay)

		select {
		case <-s.ctx.Done():
			return
		case <-time.After(delay):
		}

		if s.State() != StateResyncing {
			return
		}

		c, err := s.startSession()
		if err != nil {
			s.debugLog("resync failed", "attempt", attempt, "error", err)
			continue
		}

		s.backoff.Reset()
		s.setState(StateSyncing, "resynced")

		s.mu.RLock()
		onResynced := s.onResynced
		s.mu.RUnlock()
		if onResynced != nil {
			onResynced(c)
		}
		return
	}
}

// startSession starts a new session whose context lives until the next
// session or Close. StartTimeout bounds only the start itself.
func (s *Supervisor) startSession() (collection.Collection, error) {
	s.mu.Lock()
	if s.sessionCancel != nil {
		s.sessionCancel()
	}
	ctx, cancel := context.WithCancel(s.ctx)
	s.sessionCancel = cancel
	s.mu.Unlock()

	if s.config.StartTimeout <= 0 {
		return s.target.Start(ctx)
	}

	timer := time.AfterFunc(s.config.StartTimeout, cancel)
	c, err := s.target.Start(ctx)
	if !timer.Stop() && err == nil {
		// Timed out just after the session started; it is already ending.
		s.target.Stop()
		return collection.Collection{}, context.DeadlineExceeded
	}
	return c, err
}

func (s *Supervisor) setState(newState State, reason string) {
	s.mu.Lock()
	oldState := s.state
	if oldState == newState || oldState == StateClosed {
		s.mu.Unlock()
		return
	}
	s.state = newState
	onStateChange := s.onStateChange
	s.mu.Unlock()

	s.config.EventLog.Log(log.Event{
		Timestamp: time.Now(),
		Category:  log.CategoryState,
		StateChange: &log.StateChangeEvent{
			Entity:   log.StateEntitySupervisor,
			OldState: oldState.String(),
			NewState: newState.String(),
			Reason:   reason,
		},
	})
	if onStateChange != nil {
		onStateChange(oldState, newState)
	}
}

func (s *Supervisor) debugLog(msg string, args ...any) {
	if s.config.Logger != nil {
		s.config.Logger.Debug(msg, args...)
	}
}
