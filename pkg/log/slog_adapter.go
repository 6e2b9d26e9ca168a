package log

import (
	"context"
	"log/slog"
)

// SlogAdapter writes session events to an slog.Logger. Useful during
// development when you want to watch session traffic in the console.
type SlogAdapter struct {
	logger *slog.Logger
}

// NewSlogAdapter creates a SlogAdapter that writes to the given slog.Logger.
func NewSlogAdapter(logger *slog.Logger) *SlogAdapter {
	return &SlogAdapter{logger: logger}
}

// Log writes the event to the slog logger at Debug level.
func (a *SlogAdapter) Log(event Event) {
	attrs := []slog.Attr{
		slog.String("category", event.Category.String()),
	}

	if event.ConnectionID != "" {
		attrs = append(attrs, slog.String("conn_id", event.ConnectionID))
	}
	if event.Device != "" {
		attrs = append(attrs, slog.String("device", event.Device))
	}
	if event.Observer != "" {
		attrs = append(attrs, slog.String("observer", event.Observer))
	}

	switch {
	case event.Category == CategoryData:
		attrs = append(attrs,
			slog.String("direction", event.Direction.String()),
			slog.Int("size", len(event.Data)),
			slog.String("data", string(event.Data)),
		)
	case event.StateChange != nil:
		attrs = append(attrs,
			slog.String("from", event.StateChange.From),
			slog.String("to", event.StateChange.To),
		)
	case event.Outcome != nil:
		attrs = append(attrs, slog.String("outcome", event.Outcome.Outcome))
		if event.Outcome.Detail != "" {
			attrs = append(attrs, slog.String("detail", event.Outcome.Detail))
		}
	case event.Error != nil:
		attrs = append(attrs, slog.String("error", event.Error.Message))
	}

	a.logger.LogAttrs(context.Background(), slog.LevelDebug, "session event", attrs...)
}

// Compile-time interface satisfaction check.
var _ Logger = (*SlogAdapter)(nil)
