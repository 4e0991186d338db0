package ports

import (
	"context"

	"github.com/albertviilik/pipecat-flows/pkg/domain"
)

// Flow is one live conversation driven by the flow engine.
// Implementations are single-owner: callers serialize access.
type Flow interface {
	// Initialize seeds the context and enters the initial node.
	Initialize(ctx context.Context, seed []domain.Message) error

	// HandleCall runs one LLM function call against the current node.
	HandleCall(ctx context.Context, call domain.Call) (domain.Result, error)

	// Observe appends a user or assistant message to the context.
	Observe(msg domain.Message) error

	// Snapshot returns a copy of the observable state.
	Snapshot() *domain.Snapshot

	// Restore rehydrates the flow from a snapshot without running directives.
	Restore(snap *domain.Snapshot) error

	// Done is closed once the conversation ends.
	Done() <-chan struct{}
}
