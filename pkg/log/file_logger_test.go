package log

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/appwatch/appwatch-go/pkg/collection"
)

func TestFileLoggerWritesCBOR(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.synclog")

	logger, err := NewFileLogger(path)
	if err != nil {
		t.Fatalf("NewFileLogger failed: %v", err)
	}

	event := Event{
		Timestamp: time.Now(),
		SessionID: "session-123",
		Mirror:    "applications",
		Category:  CategoryFold,
		Fold: &FoldEvent{
			Type:    collection.EventModified,
			Key:     collection.NewKey("argocd", "guestbook"),
			Version: 7,
			Changed: true,
			Index:   2,
			Size:    5,
			Payload: map[string]any{"health": "Healthy"},
		},
	}

	logger.Log(event)
	logger.Close()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read log file: %v", err)
	}

	decoded, err := DecodeEvent(data)
	if err != nil {
		t.Fatalf("failed to decode event: %v", err)
	}

	if decoded.SessionID != event.SessionID {
		t.Errorf("SessionID: got %q, want %q", decoded.SessionID, event.SessionID)
	}
	if decoded.Fold == nil {
		t.Fatal("Fold is nil")
	}
	if decoded.Fold.Key != event.Fold.Key {
		t.Errorf("Fold.Key: got %v, want %v", decoded.Fold.Key, event.Fold.Key)
	}
	if decoded.Fold.Index != 2 || decoded.Fold.Size != 5 || !decoded.Fold.Changed {
		t.Errorf("Fold: got %+v", decoded.Fold)
	}
	if decoded.Fold.Payload["health"] != "Healthy" {
		t.Errorf("Fold.Payload: got %v", decoded.Fold.Payload)
	}
	if !decoded.Timestamp.Equal(event.Timestamp) {
		t.Errorf("Timestamp: got %v, want %v", decoded.Timestamp, event.Timestamp)
	}
}

func TestFileLoggerAppends(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.synclog")

	for _, id := range []string{"s-1", "s-2"} {
		logger, err := NewFileLogger(path)
		if err != nil {
			t.Fatalf("NewFileLogger failed: %v", err)
		}
		logger.Log(Event{Timestamp: time.Now(), SessionID: id, Category: CategoryState})
		logger.Close()
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}

	decoder := newEventDecoder(bytes.NewReader(data))
	var events []Event
	for {
		event, err := decoder.next()
		if err != nil {
			break
		}
		events = append(events, event)
	}

	if len(events) != 2 {
		t.Fatalf("expected 2 events, got %d", len(events))
	}
	if events[0].SessionID != "s-1" || events[1].SessionID != "s-2" {
		t.Errorf("unexpected order: %q, %q", events[0].SessionID, events[1].SessionID)
	}
}

func TestFileLoggerCloseIsIdempotent(t *testing.T) {
	logger, err := NewFileLogger(filepath.Join(t.TempDir(), "test.synclog"))
	if err != nil {
		t.Fatal(err)
	}
	if err := logger.Close(); err != nil {
		t.Errorf("first Close: %v", err)
	}
	if err := logger.Close(); err != nil {
		t.Errorf("second Close: %v", err)
	}
	// Logging after close is ignored.
	logger.Log(Event{SessionID: "late"})
}

func TestFileLoggerConcurrentWrites(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.synclog")
	logger, err := NewFileLogger(path)
	if err != nil {
		t.Fatal(err)
	}

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 20; j++ {
				logger.Log(Event{Timestamp: time.Now(), SessionID: "concurrent", Category: CategoryFold})
			}
		}()
	}
	wg.Wait()
	logger.Close()

	reader, err := NewReader(path)
	if err != nil {
		t.Fatal(err)
	}
	defer reader.Close()

	count := 0
	for {
		if _, err := reader.Next(); err != nil {
			break
		}
		count++
	}
	if count != 200 {
		t.Errorf("read %d events, want 200", count)
	}
}

func TestFileLoggerStats(t *testing.T) {
	logger, err := NewFileLogger(filepath.Join(t.TempDir(), "test.synclog"))
	if err != nil {
		t.Fatal(err)
	}

	for i := 0; i < 3; i++ {
		logger.Log(Event{Timestamp: time.Now(), SessionID: "s", Category: CategoryState})
	}
	written, failed := logger.Stats()
	if written != 3 || failed != 0 {
		t.Errorf("Stats = %d, %d; want 3, 0", written, failed)
	}
	if err := logger.Err(); err != nil {
		t.Errorf("Err = %v", err)
	}

	logger.Close()
	logger.Log(Event{SessionID: "late"})
	if written, _ := logger.Stats(); written != 3 {
		t.Errorf("written after Close = %d, want 3", written)
	}
}

func TestDecodeEventRejectsUnknownCategory(t *testing.T) {
	data, err := EncodeEvent(Event{Timestamp: time.Now(), Category: Category(9)})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := DecodeEvent(data); !errors.Is(err, ErrMalformedEvent) {
		t.Errorf("DecodeEvent error = %v, want ErrMalformedEvent", err)
	}

	path := filepath.Join(t.TempDir(), "bad.synclog")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatal(err)
	}
	reader, err := NewReader(path)
	if err != nil {
		t.Fatal(err)
	}
	defer reader.Close()
	if _, err := reader.Next(); !errors.Is(err, ErrMalformedEvent) {
		t.Errorf("Next error = %v, want ErrMalformedEvent", err)
	}
}
