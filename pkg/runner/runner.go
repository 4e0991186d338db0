package runner

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/albertviilik/pipecat-flows/internal/logging"
	"github.com/albertviilik/pipecat-flows/pkg/domain"
	"github.com/albertviilik/pipecat-flows/pkg/llm"
	"github.com/albertviilik/pipecat-flows/pkg/ports"
)

// ErrMaxSteps is returned when the model keeps requesting calls past the step bound.
var ErrMaxSteps = errors.New("too many llm steps in one turn")

// Runner drives one conversation: it alternates LLM completions and flow
// function calls. Like the flow it wraps, it is single-owner.
type Runner struct {
	flow     ports.Flow
	provider llm.Provider
	speaker  ports.Speaker
	logger   *slog.Logger
	maxSteps int
	farewell bool
	observe  ProviderObserver
}

// TurnResult summarizes one user turn.
type TurnResult struct {
	Replies []string `json:"replies,omitempty"`
	Calls   int      `json:"calls"`
	Node    string   `json:"node"`
	Ended   bool     `json:"ended"`
}

// New creates a runner for an initialized flow.
func New(flow ports.Flow, provider llm.Provider, opts ...Option) *Runner {
	r := &Runner{
		flow:     flow,
		provider: provider,
		logger:   logging.NewNop(),
		maxSteps: DefaultMaxSteps,
		farewell: true,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Start lets the model open the conversation from the initial node.
func (r *Runner) Start(ctx context.Context) (TurnResult, error) {
	return r.loop(ctx)
}

// Turn observes the user's text and runs the model until it answers without calls.
func (r *Runner) Turn(ctx context.Context, text string) (TurnResult, error) {
	if r.ended() {
		return TurnResult{Node: r.flow.Snapshot().CurrentNodeID, Ended: true}, domain.ErrConversationEnded
	}
	clean, err := SanitizeInput(text)
	if err != nil {
		return TurnResult{}, err
	}
	if err := r.flow.Observe(domain.Message{Role: domain.RoleUser, Content: clean}); err != nil {
		return TurnResult{}, err
	}
	return r.loop(ctx)
}

func (r *Runner) loop(ctx context.Context) (TurnResult, error) {
	var res TurnResult

	for step := 0; step < r.maxSteps; step++ {
		snap := r.flow.Snapshot()
		reply, err := r.complete(ctx, snap.Messages, snap.Tools)
		if err != nil {
			return r.finish(res), err
		}
		if err := r.flow.Observe(reply); err != nil {
			return r.finish(res), err
		}
		r.say(ctx, &res, reply.Content)

		if len(reply.ToolCalls) == 0 {
			return r.finish(res), nil
		}

		// Every call gets a tool reply, including those after the end.
		for _, tc := range reply.ToolCalls {
			ran, err := r.handle(ctx, tc)
			if err != nil {
				return r.finish(res), err
			}
			if ran {
				res.Calls++
			}
		}

		if r.ended() {
			if r.farewell {
				if err := r.sayFarewell(ctx, &res); err != nil {
					r.logger.WarnContext(ctx, "farewell completion failed", "error", err)
				}
			}
			return r.finish(res), nil
		}
	}
	return r.finish(res), fmt.Errorf("%w: %d", ErrMaxSteps, r.maxSteps)
}

// handle runs one requested call and reports whether it reached the node.
// Contract errors are already reported to the model through the tool
// message, so only engine failures are returned.
func (r *Runner) handle(ctx context.Context, tc domain.ToolCall) (bool, error) {
	call, err := tc.Call()
	if err != nil {
		r.logger.WarnContext(ctx, "malformed call arguments", "action", tc.Name, "call_id", tc.ID, "error", err)
	}

	_, err = r.flow.HandleCall(ctx, call)
	var invalid *domain.InvalidArgumentsError
	var notAvailable *domain.ActionNotAvailableError
	var unknown *domain.UnknownActionError
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, domain.ErrConversationEnded):
		r.logger.WarnContext(ctx, "call after conversation end not run", "action", tc.Name, "call_id", tc.ID)
		return false, nil
	case errors.As(err, &invalid):
		return false, nil
	case errors.As(err, &notAvailable), errors.As(err, &unknown):
		r.logger.InfoContext(ctx, "model called an unavailable action", "action", tc.Name, "error", err)
		return true, nil
	default:
		return false, fmt.Errorf("handle %s: %w", tc.Name, err)
	}
}

func (r *Runner) sayFarewell(ctx context.Context, res *TurnResult) error {
	reply, err := r.complete(ctx, r.flow.Snapshot().Messages, nil)
	if err != nil {
		return err
	}
	reply.ToolCalls = nil
	if err := r.flow.Observe(reply); err != nil {
		return err
	}
	r.say(ctx, res, reply.Content)
	return nil
}

func (r *Runner) complete(ctx context.Context, msgs []domain.Message, tools []domain.Tool) (domain.Message, error) {
	start := time.Now()
	reply, err := r.provider.Complete(ctx, msgs, tools)
	if r.observe != nil {
		r.observe(r.provider.Name(), time.Since(start), err)
	}
	if err != nil {
		return domain.Message{}, err
	}
	reply.Role = domain.RoleAssistant
	return reply, nil
}

func (r *Runner) say(ctx context.Context, res *TurnResult, text string) {
	if text == "" {
		return
	}
	res.Replies = append(res.Replies, text)
	if r.speaker == nil {
		return
	}
	if err := r.speaker.Speak(ctx, text); err != nil {
		r.logger.WarnContext(ctx, "speaker failed", "error", err)
	}
}

func (r *Runner) ended() bool {
	select {
	case <-r.flow.Done():
		return true
	default:
		return false
	}
}

func (r *Runner) finish(res TurnResult) TurnResult {
	res.Node = r.flow.Snapshot().CurrentNodeID
	res.Ended = r.ended()
	return res
}
