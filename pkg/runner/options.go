package runner

import (
	"log/slog"
	"time"

	"github.com/albertviilik/pipecat-flows/pkg/ports"
)

// DefaultMaxSteps bounds the completions run for one user turn.
const DefaultMaxSteps = 10

// Option defines a functional option for configuring the Runner.
type Option func(*Runner)

// WithSpeaker sets the sink for assistant text.
func WithSpeaker(s ports.Speaker) Option {
	return func(r *Runner) {
		r.speaker = s
	}
}

// WithLogger configures the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Runner) {
		r.logger = logger
	}
}

// WithMaxSteps bounds the completions run for one user turn.
func WithMaxSteps(n int) Option {
	return func(r *Runner) {
		if n > 0 {
			r.maxSteps = n
		}
	}
}

// ProviderObserver is notified after every provider round trip.
type ProviderObserver func(provider string, d time.Duration, err error)

// WithProviderObserver registers fn, typically observability.Metrics.ObserveProvider.
func WithProviderObserver(fn ProviderObserver) Option {
	return func(r *Runner) {
		r.observe = fn
	}
}

// WithFarewell makes the runner ask the LLM for one last reply, without
// tools, after the flow ends. Enabled by default.
func WithFarewell(enabled bool) Option {
	return func(r *Runner) {
		r.farewell = enabled
	}
}
