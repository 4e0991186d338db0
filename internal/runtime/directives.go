package runtime

import (
	"context"
	"errors"
	"fmt"

	"github.com/albertviilik/pipecat-flows/pkg/domain"
)

const (
	phasePre  = "pre"
	phasePost = "post"
)

// runDirectives executes ds in order. Failures and unknown types are logged
// and skipped.
func (e *Engine) runDirectives(ctx context.Context, nodeID, phase string, ds []domain.Directive) {
	for _, d := range ds {
		var err error
		if fn, ok := e.directives[d.Type]; ok {
			err = fn(ctx, d)
		} else {
			err = fmt.Errorf("unknown directive type %q", d.Type)
		}
		if err != nil {
			e.logger.WarnContext(ctx, "directive failed", "node", nodeID, "phase", phase, "directive", d.Type, "error", err)
		} else {
			e.logger.DebugContext(ctx, "directive executed", "node", nodeID, "phase", phase, "directive", d.Type)
		}
		e.emitDirective(ctx, nodeID, phase, d.Type, err)
	}
}

func (e *Engine) speak(ctx context.Context, d domain.Directive) error {
	if d.Text == "" {
		return errors.New("speak directive without text")
	}
	if e.speaker == nil {
		return errors.New("no speaker configured")
	}
	return e.speaker.Speak(ctx, d.Text)
}

func (e *Engine) endConversation(ctx context.Context, _ domain.Directive) error {
	e.end(ctx)
	return nil
}
