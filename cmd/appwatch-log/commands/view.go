// Package commands implements the appwatch-log CLI commands.
package commands

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/appwatch/appwatch-go/pkg/collection"
	"github.com/appwatch/appwatch-go/pkg/log"
)

// ViewFilter specifies criteria for filtering events in the view command.
type ViewFilter struct {
	Category *log.Category
	Mirror   string
	Key      *collection.Key
}

func (f ViewFilter) logFilter() log.Filter {
	return log.Filter{Category: f.Category, Mirror: f.Mirror, Key: f.Key}
}

// formatEvent writes a human-readable representation of the event to w.
func formatEvent(w io.Writer, event log.Event) {
	// Header line: timestamp [session:id] mirror CATEGORY Type
	ts := event.Timestamp.UTC().Format("2006-01-02T15:04:05.000000Z")
	session := shortenID(event.SessionID)

	var typeLabel string
	switch {
	case event.Snapshot != nil:
		typeLabel = "Snapshot"
	case event.Fold != nil:
		typeLabel = event.Fold.Type.String()
	case event.StateChange != nil:
		typeLabel = event.StateChange.Entity.String()
	case event.Error != nil:
		typeLabel = event.Error.Stage.String()
	default:
		typeLabel = "Unknown"
	}

	mirror := event.Mirror
	if mirror == "" {
		mirror = "-"
	}
	fmt.Fprintf(w, "%s [session:%s] %s %s %s\n", ts, session, mirror, event.Category, typeLabel)

	switch {
	case event.Snapshot != nil:
		formatSnapshotDetails(w, event.Snapshot)
	case event.Fold != nil:
		formatFoldDetails(w, event.Fold)
	case event.StateChange != nil:
		formatStateChangeDetails(w, event.StateChange)
	case event.Error != nil:
		formatErrorDetails(w, event.Error)
	}

	fmt.Fprintln(w) // Blank line between events
}

// shortenID returns the first 8 characters of a session ID.
func shortenID(id string) string {
	if len(id) >= 8 {
		return id[:8]
	}
	return id
}

func formatSnapshotDetails(w io.Writer, snap *log.SnapshotEvent) {
	fmt.Fprintf(w, "  Items: %d\n", snap.Items)
	fmt.Fprintf(w, "  Version: %d\n", snap.Version)
	if snap.Duration > 0 {
		fmt.Fprintf(w, "  Duration: %s\n", formatDuration(snap.Duration))
	}
}

func formatFoldDetails(w io.Writer, fold *log.FoldEvent) {
	fmt.Fprintf(w, "  Key: %s\n", fold.Key)
	if fold.Version > 0 {
		fmt.Fprintf(w, "  Version: %d\n", fold.Version)
	}
	if !fold.Changed {
		fmt.Fprintln(w, "  No-op")
	} else if fold.Index >= 0 {
		fmt.Fprintf(w, "  Position: %d of %d\n", fold.Index, fold.Size)
	} else {
		fmt.Fprintf(w, "  Size: %d\n", fold.Size)
	}
	if fold.Payload != nil {
		payloadJSON, err := json.Marshal(fold.Payload)
		if err == nil {
			fmt.Fprintf(w, "  Payload: %s\n", string(payloadJSON))
		}
	}
}

func formatStateChangeDetails(w io.Writer, sc *log.StateChangeEvent) {
	if sc.OldState != "" {
		fmt.Fprintf(w, "  %s -> %s\n", sc.OldState, sc.NewState)
	} else {
		fmt.Fprintf(w, "  -> %s\n", sc.NewState)
	}
	if sc.Reason != "" {
		fmt.Fprintf(w, "  Reason: %s\n", sc.Reason)
	}
}

func formatErrorDetails(w io.Writer, err *log.ErrorEventData) {
	fmt.Fprintf(w, "  Message: %s\n", err.Message)
	if err.Context != "" {
		fmt.Fprintf(w, "  Context: %s\n", err.Context)
	}
}

// formatDuration formats a duration for display.
func formatDuration(d time.Duration) string {
	if d < time.Millisecond {
		return fmt.Sprintf("%.3fus", float64(d.Nanoseconds())/1000)
	}
	if d < time.Second {
		return fmt.Sprintf("%.3fms", float64(d.Microseconds())/1000)
	}
	return fmt.Sprintf("%.3fs", d.Seconds())
}

// ParseCategoryFlag parses a category string from command-line flag (case-insensitive).
func ParseCategoryFlag(s string) (log.Category, error) {
	c, ok := log.ParseCategory(s)
	if !ok {
		return 0, fmt.Errorf("invalid category: %s (must be snapshot, fold, state, or error)", s)
	}
	return c, nil
}

// ParseKeyFlag parses an entity key from a command-line flag.
func ParseKeyFlag(s string) (collection.Key, error) {
	k, err := collection.ParseKey(s)
	if err != nil {
		return collection.Key{}, fmt.Errorf("invalid key: %w", err)
	}
	return k, nil
}

// RunView executes the view command.
func RunView(path string, filter ViewFilter, output io.Writer) error {
	reader, err := log.NewFilteredReader(path, filter.logFilter())
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}
	defer reader.Close()

	for {
		event, err := reader.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return fmt.Errorf("failed to read event: %w", err)
		}
		formatEvent(output, event)
	}

	return nil
}
