package observability

import (
	"context"
	"log/slog"

	"github.com/albertviilik/pipecat-flows/pkg/domain"
)

// LogHooks returns lifecycle hooks writing one structured line per event.
func LogHooks(logger *slog.Logger) domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnNodeEnter: func(ctx context.Context, e *domain.NodeEvent) {
			logger.DebugContext(ctx, "node_enter", "conversation_id", e.ConversationID, "node_id", e.NodeID)
		},
		OnNodeLeave: func(ctx context.Context, e *domain.NodeEvent) {
			logger.DebugContext(ctx, "node_leave", "conversation_id", e.ConversationID, "node_id", e.NodeID)
		},
		OnActionCall: func(ctx context.Context, e *domain.ActionEvent) {
			logger.DebugContext(ctx, "action_call",
				"conversation_id", e.ConversationID,
				"node_id", e.NodeID,
				"action", e.Action,
				"call_id", e.CallID,
			)
		},
		OnActionReturn: func(ctx context.Context, e *domain.ActionEvent) {
			logger.InfoContext(ctx, "action_return",
				"conversation_id", e.ConversationID,
				"node_id", e.NodeID,
				"action", e.Action,
				"kind", e.Kind,
				"is_error", e.IsError,
				"duration", e.Duration,
			)
		},
		OnDirective: func(ctx context.Context, e *domain.DirectiveEvent) {
			if e.Err != nil {
				return
			}
			logger.DebugContext(ctx, "directive", "node_id", e.NodeID, "directive", e.Directive, "phase", e.Phase)
		},
		OnConversationEnd: func(ctx context.Context, e *domain.NodeEvent) {
			logger.InfoContext(ctx, "conversation_end", "conversation_id", e.ConversationID, "node_id", e.NodeID)
		},
	}
}
