package observability

import (
	"context"
	"log/slog"

	"github.com/aretw0/huddle/pkg/domain"
)

// LogHooks returns lifecycle hooks that write structured records to logger.
// Dispatches log at Debug; lifecycle changes at Info; errors at Warn.
func LogHooks(logger *slog.Logger) domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnActivityStart: func(ctx context.Context, e *domain.ActivityEvent) {
			logger.InfoContext(ctx, "activity_start",
				"room", e.RoomID,
				"slug", e.Slug,
				"phase", e.Phase,
				"sender", e.SenderID,
			)
		},
		OnActivityEnd: func(ctx context.Context, e *domain.ActivityEvent) {
			logger.InfoContext(ctx, "activity_end", "room", e.RoomID, "slug", e.Slug, "sender", e.SenderID)
		},
		OnDispatch: func(ctx context.Context, e *domain.DispatchEvent) {
			logger.DebugContext(ctx, "dispatch",
				"room", e.RoomID,
				"namespace", e.Namespace,
				"action", e.Action,
				"sender", e.SenderID,
				"duration", e.Duration,
			)
		},
		OnReaction: func(ctx context.Context, r domain.Reaction) {
			logger.DebugContext(ctx, "reaction", "id", r.ID, "symbol", r.Symbol, "sender", r.SenderID)
		},
		OnError: func(ctx context.Context, err error) {
			logger.WarnContext(ctx, "runtime_error", "kind", ErrorKind(err), "err", err)
		},
	}
}
