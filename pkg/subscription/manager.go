package subscription

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/appwatch/appwatch-go/pkg/log"
	"github.com/appwatch/appwatch-go/pkg/source"
	"github.com/google/uuid"
)

// Config holds subscription manager configuration.
type Config struct {
	// Logger is the optional logger for debug output.
	// If nil, logging is disabled.
	Logger *slog.Logger

	// EventLog receives open/close state changes. Nil disables tracing.
	EventLog log.Logger

	// SessionID tags trace events. Callers usually set it per session.
	SessionID string
}

// Manager governs the single change stream of a sync session.
type Manager struct {
	mu sync.Mutex

	config Config

	// current is the open handle, nil when none is open.
	current *Handle

	// opening is set while OpenChangeStream is in flight.
	opening bool
}

// NewManager creates a manager with default configuration.
func NewManager() *Manager {
	return NewManagerWithConfig(Config{})
}

// NewManagerWithConfig creates a manager with custom configuration.
func NewManagerWithConfig(config Config) *Manager {
	if config.EventLog == nil {
		config.EventLog = log.NoopLogger{}
	}
	return &Manager{config: config}
}

// SetSessionID updates the session ID used for trace events.
func (m *Manager) SetSessionID(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.config.SessionID = id
}

// Open opens the change stream of src from version since.
// It returns ErrAlreadyOpen if a stream is open or being opened.
func (m *Manager) Open(ctx context.Context, src source.Source, since uint64) (*Handle, error) {
	if src == nil {
		return nil, ErrNilSource
	}

	m.mu.Lock()
	if m.current != nil || m.opening {
		m.mu.Unlock()
		return nil, ErrAlreadyOpen
	}
	m.opening = true
	m.mu.Unlock()

	streamCtx, cancel := context.WithCancel(ctx)
	stream, err := src.OpenChangeStream(streamCtx, since)

	m.mu.Lock()
	m.opening = false
	if err != nil {
		m.mu.Unlock()
		cancel()
		return nil, err
	}

	h := &Handle{
		id:       uuid.New().String(),
		since:    since,
		openedAt: time.Now(),
		stream:   stream,
		cancel:   cancel,
		done:     make(chan struct{}),
	}
	m.current = h
	m.mu.Unlock()

	m.debugLog("change stream opened", "handle", h.id, "since", since)
	m.logState(h, "", StateOpen.String(), "")

	return h, nil
}

// Close releases h. The first call tears the stream down and returns the
// error from closing it; later calls, Close(nil), and closing a handle that
// is no longer current are no-ops returning nil.
func (m *Manager) Close(h *Handle) error {
	if h == nil {
		return nil
	}
	if !h.release() {
		return nil
	}

	m.mu.Lock()
	if m.current == h {
		m.current = nil
	}
	m.mu.Unlock()

	m.debugLog("change stream released", "handle", h.id, "err", h.closeErr)
	m.logState(h, StateOpen.String(), StateClosed.String(), errString(h.closeErr))

	return h.closeErr
}

// CloseCurrent releases whatever handle is open.
func (m *Manager) CloseCurrent() error {
	return m.Close(m.Current())
}

// Current returns the open handle, or nil.
func (m *Manager) Current() *Handle {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.current
}

// IsOpen reports whether a stream is open.
func (m *Manager) IsOpen() bool {
	return m.Current() != nil
}

func (m *Manager) debugLog(msg string, args ...any) {
	if m.config.Logger != nil {
		m.config.Logger.Debug(msg, args...)
	}
}

func (m *Manager) logState(h *Handle, oldState, newState, reason string) {
	m.mu.Lock()
	sessionID := m.config.SessionID
	eventLog := m.config.EventLog
	m.mu.Unlock()

	if reason == "" {
		reason = "handle " + h.id
	}
	eventLog.Log(log.Event{
		Timestamp: time.Now(),
		SessionID: sessionID,
		Category:  log.CategoryState,
		StateChange: &log.StateChangeEvent{
			Entity:   log.StateEntitySubscription,
			OldState: oldState,
			NewState: newState,
			Reason:   reason,
		},
	})
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
