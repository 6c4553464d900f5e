package log

import (
	"testing"
	"time"
)

// recordingLogger records events for testing.
type recordingLogger struct {
	events []Event
}

func (r *recordingLogger) Log(event Event) {
	r.events = append(r.events, event)
}

func TestCombineCallsAllInOrder(t *testing.T) {
	var order []string
	first := LoggerFunc(func(Event) { order = append(order, "first") })
	second := LoggerFunc(func(Event) { order = append(order, "second") })
	r := &recordingLogger{}

	combined := Combine(first, nil, second, r)
	combined.Log(Event{Timestamp: time.Now(), SessionID: "session-123", Category: CategoryState})

	if len(order) != 2 || order[0] != "first" || order[1] != "second" {
		t.Errorf("call order = %v", order)
	}
	if len(r.events) != 1 || r.events[0].SessionID != "session-123" {
		t.Errorf("recorded %+v", r.events)
	}
}

func TestCombineCollapses(t *testing.T) {
	if _, ok := Combine().(NoopLogger); !ok {
		t.Errorf("Combine() = %T, want NoopLogger", Combine())
	}
	if _, ok := Combine(nil, nil).(NoopLogger); !ok {
		t.Error("Combine(nil, nil) should be NoopLogger")
	}

	r := &recordingLogger{}
	if got := Combine(nil, r); got != Logger(r) {
		t.Errorf("Combine with one logger = %T, want the logger itself", got)
	}
}

func TestLoggerFunc(t *testing.T) {
	var got Event
	LoggerFunc(func(e Event) { got = e }).Log(Event{Mirror: "apps"})
	if got.Mirror != "apps" {
		t.Errorf("Mirror = %q", got.Mirror)
	}
}
