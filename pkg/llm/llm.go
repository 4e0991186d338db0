// Package llm defines the provider contract the conversation driver talks to.
package llm

import (
	"context"
	"errors"

	"github.com/albertviilik/pipecat-flows/pkg/domain"
)

// ErrEmptyResponse is returned when a provider answers with no message.
var ErrEmptyResponse = errors.New("llm returned no message")

// Provider completes a conversation context with one assistant message,
// which may request function calls from the advertised tools.
type Provider interface {
	Name() string
	Complete(ctx context.Context, messages []domain.Message, tools []domain.Tool) (domain.Message, error)
}
