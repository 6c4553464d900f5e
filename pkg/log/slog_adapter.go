package log

import (
	"context"
	"log/slog"
)

// SlogAdapter writes sync events to an slog.Logger at Debug level.
type SlogAdapter struct {
	logger *slog.Logger
}

// NewSlogAdapter creates a new SlogAdapter that writes to the given slog.Logger.
func NewSlogAdapter(logger *slog.Logger) *SlogAdapter {
	return &SlogAdapter{logger: logger}
}

// Log writes the event to the slog logger.
func (a *SlogAdapter) Log(event Event) {
	attrs := []slog.Attr{
		slog.String("session_id", event.SessionID),
		slog.String("category", event.Category.String()),
	}
	if event.Mirror != "" {
		attrs = append(attrs, slog.String("mirror", event.Mirror))
	}

	switch {
	case event.Snapshot != nil:
		attrs = append(attrs,
			slog.Int("items", event.Snapshot.Items),
			slog.Uint64("version", event.Snapshot.Version),
			slog.Duration("duration", event.Snapshot.Duration),
		)
	case event.Fold != nil:
		attrs = append(attrs,
			slog.String("type", event.Fold.Type.String()),
			slog.String("key", event.Fold.Key.String()),
			slog.Bool("changed", event.Fold.Changed),
			slog.Int("index", event.Fold.Index),
			slog.Int("size", event.Fold.Size),
		)
		if event.Fold.Version != 0 {
			attrs = append(attrs, slog.Uint64("version", event.Fold.Version))
		}
	case event.StateChange != nil:
		attrs = append(attrs,
			slog.String("entity", event.StateChange.Entity.String()),
			slog.String("old_state", event.StateChange.OldState),
			slog.String("new_state", event.StateChange.NewState),
		)
		if event.StateChange.Reason != "" {
			attrs = append(attrs, slog.String("reason", event.StateChange.Reason))
		}
	case event.Error != nil:
		attrs = append(attrs,
			slog.String("stage", event.Error.Stage.String()),
			slog.String("error_msg", event.Error.Message),
		)
		if event.Error.Context != "" {
			attrs = append(attrs, slog.String("error_context", event.Error.Context))
		}
	}

	a.logger.LogAttrs(context.Background(), slog.LevelDebug, "sync", attrs...)
}

var _ Logger = (*SlogAdapter)(nil)
