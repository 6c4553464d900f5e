package connection

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/appwatch/appwatch-go/pkg/collection"
	"github.com/appwatch/appwatch-go/pkg/mirror"
	"github.com/appwatch/appwatch-go/pkg/source/memsource"
)

func TestBackoff(t *testing.T) {
	t.Run("DefaultSequence", func(t *testing.T) {
		b := NewBackoff()

		expected := append(BackoffSequence(), MaxBackoff)
		for i, exp := range expected {
			base := b.Current()
			_ = b.Next()

			if base != exp {
				t.Errorf("Attempt %d: base = %v, want %v", i, base, exp)
			}
		}
	})

	t.Run("Jitter", func(t *testing.T) {
		b := NewBackoffWithConfig(BackoffConfig{Jitter: JitterFactor, Seed: 7})

		samples := make([]time.Duration, 10)
		for i := range samples {
			samples[i] = b.Peek()
		}

		upper := time.Duration(float64(InitialBackoff) * (1 + JitterFactor))
		for i, s := range samples {
			if s < InitialBackoff || s > upper {
				t.Errorf("Sample %d: %v out of range [%v, %v]", i, s, InitialBackoff, upper)
			}
		}

		allSame := true
		for i := 1; i < len(samples); i++ {
			if samples[i] != samples[0] {
				allSame = false
				break
			}
		}
		if allSame {
			t.Error("All jittered samples are identical")
		}
	})

	t.Run("SeedIsDeterministic", func(t *testing.T) {
		a := NewBackoffWithConfig(BackoffConfig{Jitter: JitterFactor, Seed: 42})
		b := NewBackoffWithConfig(BackoffConfig{Jitter: JitterFactor, Seed: 42})
		for i := 0; i < 5; i++ {
			if x, y := a.Next(), b.Next(); x != y {
				t.Fatalf("Attempt %d: %v != %v", i, x, y)
			}
		}
	})

	t.Run("Reset", func(t *testing.T) {
		b := NewBackoff()
		for i := 0; i < 5; i++ {
			b.Next()
		}
		if b.Current() <= InitialBackoff {
			t.Error("Backoff should have increased")
		}

		b.Reset()

		if b.Current() != InitialBackoff {
			t.Errorf("Current() = %v after reset, want %v", b.Current(), InitialBackoff)
		}
		if b.Attempts() != 0 {
			t.Errorf("Attempts() = %d after reset, want 0", b.Attempts())
		}
	})

	t.Run("CustomConfig", func(t *testing.T) {
		b := NewBackoffWithConfig(BackoffConfig{
			Initial:    100 * time.Millisecond,
			Max:        500 * time.Millisecond,
			Multiplier: 2.0,
		})

		expected := []time.Duration{
			100 * time.Millisecond,
			200 * time.Millisecond,
			400 * time.Millisecond,
			500 * time.Millisecond,
			500 * time.Millisecond,
		}
		for i, exp := range expected {
			if got := b.Next(); got != exp {
				t.Errorf("Attempt %d: got %v, want %v", i, got, exp)
			}
		}
		if b.Attempts() != len(expected) {
			t.Errorf("Attempts() = %d, want %d", b.Attempts(), len(expected))
		}
	})
}

func fastConfig() Config {
	cfg := DefaultConfig()
	cfg.Backoff = BackoffConfig{Initial: 5 * time.Millisecond, Max: 20 * time.Millisecond}
	cfg.StartTimeout = time.Second
	return cfg
}

func newMirror(t *testing.T, src *memsource.Source) *mirror.Synchronizer {
	t.Helper()
	s, err := mirror.New(src, mirror.DefaultConfig())
	if err != nil {
		t.Fatalf("mirror.New() error = %v", err)
	}
	return s
}

func waitState(t *testing.T, sup *Supervisor, want State) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if sup.State() == want {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("State() = %v, want %v", sup.State(), want)
}

func TestSupervisor(t *testing.T) {
	t.Run("InitialState", func(t *testing.T) {
		sup := NewSupervisor(newMirror(t, memsource.New()), fastConfig())
		defer sup.Close()

		if sup.State() != StateIdle {
			t.Errorf("Initial state = %v, want StateIdle", sup.State())
		}
	})

	t.Run("StartFailureIsReturned", func(t *testing.T) {
		src := memsource.New()
		src.FailSnapshot(errors.New("unreachable"))
		sup := NewSupervisor(newMirror(t, src), fastConfig())
		defer sup.Close()

		_, err := sup.Start(context.Background())
		if !errors.Is(err, mirror.ErrSourceUnavailable) {
			t.Errorf("Start() error = %v, want ErrSourceUnavailable", err)
		}
		if sup.State() != StateIdle {
			t.Errorf("State() = %v, want StateIdle", sup.State())
		}
	})

	t.Run("AlreadyRunning", func(t *testing.T) {
		sup := NewSupervisor(newMirror(t, memsource.New()), fastConfig())
		defer sup.Close()

		if _, err := sup.Start(context.Background()); err != nil {
			t.Fatalf("Start() error = %v", err)
		}
		if _, err := sup.Start(context.Background()); err != ErrAlreadyRunning {
			t.Errorf("Second Start() error = %v, want ErrAlreadyRunning", err)
		}
	})

	t.Run("ResyncsAfterStreamEnds", func(t *testing.T) {
		src := memsource.New(collection.NewEntity(collection.NewKey("", "x1"), nil))
		m := newMirror(t, src)
		sup := NewSupervisor(m, fastConfig())
		defer sup.Close()

		resynced := make(chan collection.Collection, 1)
		sup.OnResynced(func(c collection.Collection) { resynced <- c })

		if _, err := sup.Start(context.Background()); err != nil {
			t.Fatalf("Start() error = %v", err)
		}

		src.Disconnect()

		select {
		case c := <-resynced:
			if c.Len() != 1 {
				t.Errorf("resynced collection len = %d, want 1", c.Len())
			}
		case <-time.After(2 * time.Second):
			t.Fatal("no resync")
		}

		waitState(t, sup, StateSyncing)
		if m.State() != mirror.StateRunning {
			t.Errorf("mirror state = %v, want RUNNING", m.State())
		}
		if src.StreamOpens() != 2 {
			t.Errorf("StreamOpens() = %d, want 2", src.StreamOpens())
		}
		if sup.BackoffAttempts() != 0 {
			t.Errorf("BackoffAttempts() = %d after resync, want 0", sup.BackoffAttempts())
		}
	})

	t.Run("RetriesWithBackoff", func(t *testing.T) {
		src := memsource.New()
		m := newMirror(t, src)
		sup := NewSupervisor(m, fastConfig())
		defer sup.Close()

		var attempts atomic.Int32
		sup.OnResyncing(func(attempt int, delay time.Duration) {
			if attempts.Add(1) == 3 {
				src.FailSnapshot(nil)
			}
		})

		if _, err := sup.Start(context.Background()); err != nil {
			t.Fatalf("Start() error = %v", err)
		}

		resynced := make(chan struct{}, 1)
		sup.OnResynced(func(collection.Collection) { resynced <- struct{}{} })

		src.FailSnapshot(errors.New("still down"))
		src.Disconnect()

		select {
		case <-resynced:
		case <-time.After(2 * time.Second):
			t.Fatal("no resync")
		}
		waitState(t, sup, StateSyncing)

		if got := attempts.Load(); got < 3 {
			t.Errorf("resync attempts = %d, want >= 3", got)
		}
	})

	t.Run("StreamErrorDoesNotResync", func(t *testing.T) {
		src := memsource.New()
		m := newMirror(t, src)
		sup := NewSupervisor(m, fastConfig())
		defer sup.Close()

		if _, err := sup.Start(context.Background()); err != nil {
			t.Fatalf("Start() error = %v", err)
		}

		seen := make(chan struct{}, 1)
		m.OnStreamError(func(*mirror.StreamError) { seen <- struct{}{} })
		src.InjectError(errors.New("transient"))
		<-seen

		if sup.State() != StateSyncing {
			t.Errorf("State() = %v, want StateSyncing", sup.State())
		}
		if src.SnapshotCalls() != 1 {
			t.Errorf("SnapshotCalls() = %d, want 1", src.SnapshotCalls())
		}
	})

	t.Run("CloseStopsTarget", func(t *testing.T) {
		src := memsource.New()
		m := newMirror(t, src)
		sup := NewSupervisor(m, fastConfig())

		var mu sync.Mutex
		var transitions []State
		sup.OnStateChange(func(_, newState State) {
			mu.Lock()
			defer mu.Unlock()
			transitions = append(transitions, newState)
		})

		if _, err := sup.Start(context.Background()); err != nil {
			t.Fatalf("Start() error = %v", err)
		}
		sup.Close()
		sup.Close()

		if m.State() != mirror.StateStopped {
			t.Errorf("mirror state = %v, want STOPPED", m.State())
		}
		if src.OpenStreams() != 0 {
			t.Errorf("OpenStreams() = %d, want 0", src.OpenStreams())
		}
		if _, err := sup.Start(context.Background()); err != ErrSupervisorClosed {
			t.Errorf("Start() after Close error = %v, want ErrSupervisorClosed", err)
		}

		mu.Lock()
		defer mu.Unlock()
		want := []State{StateSyncing, StateClosed}
		if len(transitions) != len(want) {
			t.Fatalf("transitions = %v, want %v", transitions, want)
		}
		for i := range want {
			if transitions[i] != want[i] {
				t.Errorf("transition %d = %v, want %v", i, transitions[i], want[i])
			}
		}
	})
}

func TestStateString(t *testing.T) {
	tests := []struct {
		state State
		want  string
	}{
		{StateIdle, "IDLE"},
		{StateSyncing, "SYNCING"},
		{StateResyncing, "RESYNCING"},
		{StateClosed, "CLOSED"},
		{State(99), "UNKNOWN"},
	}
	for _, tt := range tests {
		if got := tt.state.String(); got != tt.want {
			t.Errorf("State(%d).String() = %q, want %q", tt.state, got, tt.want)
		}
	}
}
