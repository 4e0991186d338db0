package ports

import (
	"context"

	"github.com/albertviilik/pipecat-flows/pkg/domain"
)

// Dispatcher executes the handler bound to an action.
type Dispatcher interface {
	// Dispatch returns *domain.UnknownActionError when no handler is bound.
	Dispatch(ctx context.Context, call domain.Call, conv domain.ConversationView) (domain.Result, error)

	// Has reports whether a handler is bound to name.
	Has(name string) bool
}
