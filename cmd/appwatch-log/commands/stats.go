package commands

import (
	"errors"
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/appwatch/appwatch-go/pkg/collection"
	"github.com/appwatch/appwatch-go/pkg/log"
)

// Stats holds aggregate statistics about a sync log file.
type Stats struct {
	TotalEvents      int
	EventsByCategory map[log.Category]int
	FoldsByType      map[collection.EventType]int
	NoopFolds        int
	Sessions         map[string]*SessionStats
	Errors           int
	TimeRange        struct {
		Start time.Time
		End   time.Time
	}
}

// SessionStats holds statistics for a single sync session.
type SessionStats struct {
	Mirror        string
	FirstSeen     time.Time
	LastSeen      time.Time
	Events        int
	SnapshotItems int
	Folds         int
	FinalSize     int
	FinalState    string
	Errors        int
}

// RunStats analyzes the log file and prints statistics.
func RunStats(path string, w io.Writer) error {
	stats, err := collectStats(path)
	if err != nil {
		return err
	}
	printStats(w, stats)
	return nil
}

func collectStats(path string) (*Stats, error) {
	reader, err := log.NewReader(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file: %w", err)
	}
	defer reader.Close()

	stats := &Stats{
		EventsByCategory: make(map[log.Category]int),
		FoldsByType:      make(map[collection.EventType]int),
		Sessions:         make(map[string]*SessionStats),
	}

	for {
		event, err := reader.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read event: %w", err)
		}

		stats.TotalEvents++
		stats.EventsByCategory[event.Category]++

		if stats.TimeRange.Start.IsZero() || event.Timestamp.Before(stats.TimeRange.Start) {
			stats.TimeRange.Start = event.Timestamp
		}
		if event.Timestamp.After(stats.TimeRange.End) {
			stats.TimeRange.End = event.Timestamp
		}

		sess, ok := stats.Sessions[event.SessionID]
		if !ok {
			sess = &SessionStats{
				FirstSeen: event.Timestamp,
				LastSeen:  event.Timestamp,
			}
			stats.Sessions[event.SessionID] = sess
		}
		sess.Events++
		if event.Timestamp.After(sess.LastSeen) {
			sess.LastSeen = event.Timestamp
		}
		if event.Mirror != "" && sess.Mirror == "" {
			sess.Mirror = event.Mirror
		}

		switch {
		case event.Snapshot != nil:
			sess.SnapshotItems = event.Snapshot.Items
			sess.FinalSize = event.Snapshot.Items
		case event.Fold != nil:
			stats.FoldsByType[event.Fold.Type]++
			sess.Folds++
			sess.FinalSize = event.Fold.Size
			if !event.Fold.Changed {
				stats.NoopFolds++
			}
		case event.StateChange != nil:
			if event.StateChange.Entity == log.StateEntitySynchronizer {
				sess.FinalState = event.StateChange.NewState
			}
		case event.Error != nil:
			stats.Errors++
			sess.Errors++
		}
	}

	return stats, nil
}

func printStats(w io.Writer, stats *Stats) {
	fmt.Fprintln(w, "=== Sync Log Statistics ===")
	fmt.Fprintln(w)

	if stats.TotalEvents > 0 {
		fmt.Fprintf(w, "Time Range: %s to %s\n",
			stats.TimeRange.Start.Format(time.RFC3339),
			stats.TimeRange.End.Format(time.RFC3339))
		fmt.Fprintf(w, "Duration:   %s\n", stats.TimeRange.End.Sub(stats.TimeRange.Start).Round(time.Second))
		fmt.Fprintln(w)
	}

	fmt.Fprintf(w, "Total Events: %d\n", stats.TotalEvents)
	fmt.Fprintln(w)

	fmt.Fprintln(w, "Events by Category:")
	for _, cat := range []log.Category{log.CategorySnapshot, log.CategoryFold, log.CategoryState, log.CategoryError} {
		if count := stats.EventsByCategory[cat]; count > 0 {
			fmt.Fprintf(w, "  %-12s %d\n", cat.String()+":", count)
		}
	}
	fmt.Fprintln(w)

	if len(stats.FoldsByType) > 0 {
		fmt.Fprintln(w, "Folds by Type:")
		for _, typ := range []collection.EventType{collection.EventAdded, collection.EventModified, collection.EventDeleted} {
			if count := stats.FoldsByType[typ]; count > 0 {
				fmt.Fprintf(w, "  %-12s %d\n", typ.String()+":", count)
			}
		}
		if stats.NoopFolds > 0 {
			fmt.Fprintf(w, "  %-12s %d\n", "NO-OP:", stats.NoopFolds)
		}
		fmt.Fprintln(w)
	}

	fmt.Fprintf(w, "Sessions: %d\n", len(stats.Sessions))
	if len(stats.Sessions) > 0 {
		type sessionInfo struct {
			id    string
			stats *SessionStats
		}
		sessions := make([]sessionInfo, 0, len(stats.Sessions))
		for id, ss := range stats.Sessions {
			sessions = append(sessions, sessionInfo{id, ss})
		}
		sort.Slice(sessions, func(i, j int) bool {
			return sessions[i].stats.FirstSeen.Before(sessions[j].stats.FirstSeen)
		})

		fmt.Fprintln(w)
		for _, s := range sessions {
			duration := s.stats.LastSeen.Sub(s.stats.FirstSeen).Round(time.Millisecond)
			fmt.Fprintf(w, "  [%s] %d events, duration %s\n", shortenID(s.id), s.stats.Events, duration)
			if s.stats.Mirror != "" {
				fmt.Fprintf(w, "           Mirror: %s\n", s.stats.Mirror)
			}
			fmt.Fprintf(w, "           Snapshot: %d items, %d folds, final size %d\n",
				s.stats.SnapshotItems, s.stats.Folds, s.stats.FinalSize)
			if s.stats.FinalState != "" {
				fmt.Fprintf(w, "           State: %s\n", s.stats.FinalState)
			}
			if s.stats.Errors > 0 {
				fmt.Fprintf(w, "           Errors: %d\n", s.stats.Errors)
			}
		}
	}

	if stats.Errors > 0 {
		fmt.Fprintln(w)
		fmt.Fprintf(w, "Errors: %d\n", stats.Errors)
	}
}
