package commands

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/appwatch/appwatch-go/pkg/collection"
	"github.com/appwatch/appwatch-go/pkg/log"
)

func TestViewFormatsEvents(t *testing.T) {
	ts := time.Date(2026, 3, 2, 10, 15, 32, 0, time.UTC)
	path := createTestLogFile(t, sampleEvents(ts))

	var buf bytes.Buffer
	if err := RunView(path, ViewFilter{}, &buf); err != nil {
		t.Fatalf("RunView failed: %v", err)
	}

	output := buf.String()
	for _, want := range []string{
		"2026-03-02T10:15:32.000000Z [session:session-] apps STATE SYNCHRONIZER",
		"IDLE -> STARTING",
		"SNAPSHOT Snapshot",
		"Items: 2",
		"Version: 7",
		"Duration: 1.500ms",
		"FOLD MODIFIED",
		"Key: default/web",
		"Position: 0 of 2",
		`Payload: {"replicas":3}`,
		"ERROR STREAM",
		"Message: stream reset",
		"Context: watch",
	} {
		if !strings.Contains(output, want) {
			t.Errorf("expected %q in output:\n%s", want, output)
		}
	}
}

func TestViewFoldWithoutChange(t *testing.T) {
	ts := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)
	path := createTestLogFile(t, []log.Event{{
		Timestamp: ts,
		SessionID: "s1",
		Category:  log.CategoryFold,
		Fold: &log.FoldEvent{
			Type:  collection.EventDeleted,
			Key:   collection.NewKey("", "ghost"),
			Index: -1,
		},
	}})

	var buf bytes.Buffer
	if err := RunView(path, ViewFilter{}, &buf); err != nil {
		t.Fatalf("RunView failed: %v", err)
	}

	output := buf.String()
	if !strings.Contains(output, "[session:s1] - FOLD DELETED") {
		t.Errorf("unexpected header:\n%s", output)
	}
	if !strings.Contains(output, "No-op") {
		t.Errorf("expected No-op marker:\n%s", output)
	}
}

func TestViewFilterByCategory(t *testing.T) {
	ts := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)
	path := createTestLogFile(t, sampleEvents(ts))

	cat := log.CategoryFold
	var buf bytes.Buffer
	if err := RunView(path, ViewFilter{Category: &cat}, &buf); err != nil {
		t.Fatalf("RunView failed: %v", err)
	}

	output := buf.String()
	if strings.Contains(output, "SNAPSHOT") || strings.Contains(output, "STATE") {
		t.Errorf("expected only fold events:\n%s", output)
	}
	if !strings.Contains(output, "FOLD MODIFIED") {
		t.Errorf("expected fold event:\n%s", output)
	}
}

func TestViewFilterByKey(t *testing.T) {
	ts := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)
	events := []log.Event{
		{Timestamp: ts, Category: log.CategoryFold, Fold: &log.FoldEvent{Type: collection.EventAdded, Key: collection.NewKey("", "a"), Changed: true, Size: 1}},
		{Timestamp: ts, Category: log.CategoryFold, Fold: &log.FoldEvent{Type: collection.EventAdded, Key: collection.NewKey("", "b"), Changed: true, Size: 2}},
	}
	path := createTestLogFile(t, events)

	key := collection.NewKey("", "b")
	var buf bytes.Buffer
	if err := RunView(path, ViewFilter{Key: &key}, &buf); err != nil {
		t.Fatalf("RunView failed: %v", err)
	}

	output := buf.String()
	if strings.Contains(output, "Key: a\n") {
		t.Errorf("unexpected key a in output:\n%s", output)
	}
	if !strings.Contains(output, "Key: b\n") {
		t.Errorf("expected key b in output:\n%s", output)
	}
}

func TestParseCategoryFlag(t *testing.T) {
	tests := []struct {
		input string
		want  log.Category
		ok    bool
	}{
		{"snapshot", log.CategorySnapshot, true},
		{"FOLD", log.CategoryFold, true},
		{"State", log.CategoryState, true},
		{"error", log.CategoryError, true},
		{"message", 0, false},
	}

	for _, tt := range tests {
		got, err := ParseCategoryFlag(tt.input)
		if tt.ok && err != nil {
			t.Errorf("ParseCategoryFlag(%q) error: %v", tt.input, err)
		}
		if !tt.ok && err == nil {
			t.Errorf("ParseCategoryFlag(%q) expected error", tt.input)
		}
		if tt.ok && got != tt.want {
			t.Errorf("ParseCategoryFlag(%q) = %v, want %v", tt.input, got, tt.want)
		}
	}
}

func TestParseKeyFlag(t *testing.T) {
	k, err := ParseKeyFlag("default/web")
	if err != nil {
		t.Fatalf("ParseKeyFlag failed: %v", err)
	}
	if k != collection.NewKey("default", "web") {
		t.Errorf("unexpected key: %v", k)
	}

	if _, err := ParseKeyFlag("a/b/c"); err == nil {
		t.Error("expected error for a/b/c")
	}
}

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		d    time.Duration
		want string
	}{
		{500 * time.Nanosecond, "0.500us"},
		{1500 * time.Microsecond, "1.500ms"},
		{2500 * time.Millisecond, "2.500s"},
	}
	for _, tt := range tests {
		if got := formatDuration(tt.d); got != tt.want {
			t.Errorf("formatDuration(%v) = %q, want %q", tt.d, got, tt.want)
		}
	}
}
