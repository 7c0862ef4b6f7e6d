package log

import (
	"context"
	"log/slog"
)

// SlogAdapter writes engine events to an slog.Logger at Debug level,
// errors at Warn level.
type SlogAdapter struct {
	logger *slog.Logger
}

// NewSlogAdapter creates a SlogAdapter writing to logger.
func NewSlogAdapter(logger *slog.Logger) *SlogAdapter {
	return &SlogAdapter{logger: logger}
}

// Log writes the event as one structured record.
func (a *SlogAdapter) Log(event Event) {
	attrs := []slog.Attr{
		slog.String("category", event.Category.String()),
	}
	if event.Group != "" {
		attrs = append(attrs, slog.String("group", event.Group))
	}
	if event.SubscriptionID != "" {
		attrs = append(attrs, slog.String("sub_id", event.SubscriptionID))
	}
	if event.SubscriptionType != 0 {
		attrs = append(attrs, slog.Uint64("sub_type", uint64(event.SubscriptionType)))
	}

	level := slog.LevelDebug
	switch {
	case event.Match != nil:
		attrs = append(attrs,
			slog.String("sender", event.Match.Sender),
			slog.Uint64("seq", event.Match.Sequence),
			slog.Uint64("tag", uint64(event.Match.Tag)),
			slog.Bool("matched", event.Match.Matched),
		)
		if event.Match.Fragment {
			attrs = append(attrs, slog.Bool("fragment", true))
		}
		if event.Match.Replay {
			attrs = append(attrs, slog.Bool("replay", true))
		}
	case event.Merge != nil:
		attrs = append(attrs,
			slog.Int("target_index", event.Merge.TargetIndex),
			slog.Uint64("target_type", uint64(event.Merge.TargetType)),
			slog.Bool("included", event.Merge.Included),
			slog.Bool("modified", event.Merge.Modified),
		)
	case event.Membership != nil:
		attrs = append(attrs,
			slog.String("action", event.Membership.Action.String()),
			slog.Int("consolidated", event.Membership.Consolidated),
		)
	case event.History != nil:
		attrs = append(attrs, slog.String("action", event.History.Action.String()))
		if event.History.Kind != "" {
			attrs = append(attrs, slog.String("kind", event.History.Kind))
		}
		if event.History.Count != 0 {
			attrs = append(attrs, slog.Int("count", event.History.Count))
		}
	case event.Error != nil:
		level = slog.LevelWarn
		attrs = append(attrs, slog.String("error", event.Error.Message))
		if event.Error.Context != "" {
			attrs = append(attrs, slog.String("context", event.Error.Context))
		}
	}

	a.logger.LogAttrs(context.Background(), level, "engine event", attrs...)
}

// Compile-time interface satisfaction check.
var _ Logger = (*SlogAdapter)(nil)
