package log

import (
	"testing"
	"time"

	"github.com/appwatch/appwatch-go/pkg/collection"
)

func TestNoopLoggerDoesNotPanic(t *testing.T) {
	logger := NoopLogger{}

	event := Event{
		Timestamp: time.Now(),
		SessionID: "session-1",
		Category:  CategorySnapshot,
	}
	logger.Log(event)

	event.Snapshot = &SnapshotEvent{Items: 3}
	logger.Log(event)

	event.Snapshot = nil
	event.Fold = &FoldEvent{Type: collection.EventAdded, Key: collection.NewKey("", "a")}
	logger.Log(event)

	event.Fold = nil
	event.StateChange = &StateChangeEvent{Entity: StateEntitySynchronizer, NewState: "RUNNING"}
	logger.Log(event)

	event.StateChange = nil
	event.Error = &ErrorEventData{Stage: StageStream, Message: "test error"}
	logger.Log(event)
}

func TestNoopLoggerIsZeroValue(t *testing.T) {
	var logger NoopLogger
	logger.Log(Event{})
}

func TestParseCategory(t *testing.T) {
	for _, c := range []Category{CategorySnapshot, CategoryFold, CategoryState, CategoryError} {
		got, ok := ParseCategory(c.String())
		if !ok || got != c {
			t.Errorf("ParseCategory(%q) = %v, %v", c.String(), got, ok)
		}
	}
	if got, ok := ParseCategory("fold"); !ok || got != CategoryFold {
		t.Errorf("ParseCategory is not case-insensitive: %v, %v", got, ok)
	}
	if _, ok := ParseCategory("nope"); ok {
		t.Error("ParseCategory accepted an unknown name")
	}
}

func TestStringers(t *testing.T) {
	if CategoryFold.String() != "FOLD" || Category(9).String() != "UNKNOWN" {
		t.Error("Category.String mismatch")
	}
	if StateEntitySubscription.String() != "SUBSCRIPTION" || StateEntity(9).String() != "UNKNOWN" {
		t.Error("StateEntity.String mismatch")
	}
	if StageOpen.String() != "OPEN" || Stage(9).String() != "UNKNOWN" {
		t.Error("Stage.String mismatch")
	}
}
