package runtime

import (
	"context"
	"time"

	"github.com/albertviilik/pipecat-flows/pkg/domain"
)

func (e *Engine) base(t domain.EventType) domain.EventBase {
	return domain.EventBase{Timestamp: time.Now(), Type: t, ConversationID: e.convID}
}

func (e *Engine) emitNodeEnter(ctx context.Context, nodeID string) {
	if e.hooks.OnNodeEnter != nil {
		e.hooks.OnNodeEnter(ctx, &domain.NodeEvent{EventBase: e.base(domain.EventNodeEnter), NodeID: nodeID})
	}
}

func (e *Engine) emitNodeLeave(ctx context.Context, nodeID string) {
	if e.hooks.OnNodeLeave != nil {
		e.hooks.OnNodeLeave(ctx, &domain.NodeEvent{EventBase: e.base(domain.EventNodeLeave), NodeID: nodeID})
	}
}

func (e *Engine) emitConversationEnd(ctx context.Context, nodeID string) {
	if e.hooks.OnConversationEnd != nil {
		e.hooks.OnConversationEnd(ctx, &domain.NodeEvent{EventBase: e.base(domain.EventConversationEnd), NodeID: nodeID})
	}
}

func (e *Engine) emitActionCall(ctx context.Context, a domain.Action, call domain.Call) {
	if e.hooks.OnActionCall != nil {
		e.hooks.OnActionCall(ctx, &domain.ActionEvent{
			EventBase: e.base(domain.EventActionCall),
			NodeID:    e.current.ID,
			Action:    a.Name,
			Kind:      a.Kind,
			CallID:    call.ID,
			Args:      call.Args,
		})
	}
}

func (e *Engine) emitActionReturn(ctx context.Context, a domain.Action, call domain.Call, res domain.Result, d time.Duration) {
	if e.hooks.OnActionReturn != nil {
		e.hooks.OnActionReturn(ctx, &domain.ActionEvent{
			EventBase: e.base(domain.EventActionReturn),
			NodeID:    e.current.ID,
			Action:    a.Name,
			Kind:      a.Kind,
			CallID:    call.ID,
			Args:      call.Args,
			Result:    res,
			IsError:   res.Failed(),
			Duration:  d,
		})
	}
}

func (e *Engine) emitDirective(ctx context.Context, nodeID, phase, typ string, err error) {
	if e.hooks.OnDirective != nil {
		e.hooks.OnDirective(ctx, &domain.DirectiveEvent{
			EventBase: e.base(domain.EventDirective),
			NodeID:    nodeID,
			Directive: typ,
			Phase:     phase,
			Err:       err,
		})
	}
}
