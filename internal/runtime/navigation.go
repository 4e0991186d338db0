package runtime

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/albertviilik/pipecat-flows/pkg/domain"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// HandleCall runs one LLM function call against the current node.
//
// The name is resolved only among the current node's actions. The result is
// always appended to the context as a tool message answering call.ID, even
// when the call fails, so the LLM can recover conversationally. A node action
// never changes the current node. A successful edge action transitions to its
// target; a failed one leaves the state unchanged. A call whose arguments
// did not decode (Call.ArgsErr) is answered with an error result and never
// dispatched. Calls after the end are answered the same way and return
// ErrConversationEnded.
func (e *Engine) HandleCall(ctx context.Context, call domain.Call) (domain.Result, error) {
	ctx, span := e.tracer.Start(ctx, "flow.handle_call", trace.WithAttributes(
		attribute.String("flow.conversation_id", e.convID),
		attribute.String("flow.node", e.current.ID),
		attribute.String("flow.action", call.Name),
	))
	defer span.End()

	if !e.initialized {
		return nil, domain.ErrNotInitialized
	}
	if e.ended {
		// Still answer the call so the context stays a valid tool exchange.
		res := domain.ErrorResult(domain.ErrConversationEnded.Error())
		if call.ID != "" {
			e.appendResult(call, res)
		}
		span.SetStatus(codes.Error, domain.ErrConversationEnded.Error())
		return res, domain.ErrConversationEnded
	}
	if call.ArgsErr != nil {
		err := call.ArgsErr
		var invalid *domain.InvalidArgumentsError
		if !errors.As(err, &invalid) {
			err = &domain.InvalidArgumentsError{Name: call.Name, Err: err}
		}
		e.logger.WarnContext(ctx, "rejecting call with invalid arguments", "action", call.Name, "node", e.current.ID, "error", call.ArgsErr)
		res := domain.ErrorResult(err.Error())
		e.appendResult(call, res)
		span.SetStatus(codes.Error, err.Error())
		return res, err
	}

	action, ok := e.current.Action(call.Name)
	if !ok {
		err := &domain.ActionNotAvailableError{
			Name:      call.Name,
			NodeID:    e.current.ID,
			Available: e.current.ActionNames(),
		}
		e.logger.WarnContext(ctx, "action not available", "action", call.Name, "node", e.current.ID)
		res := domain.ErrorResult(err.Error())
		e.appendResult(call, res)
		span.SetStatus(codes.Error, err.Error())
		return res, err
	}

	start := time.Now()
	e.emitActionCall(ctx, action, call)

	res, err := e.dispatch(ctx, action, call)
	if err != nil {
		var unknown *domain.UnknownActionError
		if errors.As(err, &unknown) {
			res = domain.ErrorResult(err.Error())
			e.appendResult(call, res)
			e.emitActionReturn(ctx, action, call, res, time.Since(start))
			span.SetStatus(codes.Error, err.Error())
			return res, err
		}
		e.logger.WarnContext(ctx, "action handler failed", "action", call.Name, "node", e.current.ID, "error", err)
		res = domain.ErrorResult(err.Error())
	}

	e.appendResult(call, res)
	e.emitActionReturn(ctx, action, call, res, time.Since(start))

	if res.Failed() {
		span.SetAttributes(attribute.Bool("flow.failed", true))
		if action.IsEdge() {
			e.logger.InfoContext(ctx, "edge action failed, staying in node", "action", call.Name, "node", e.current.ID, "error", res.ErrorMessage())
		}
		return res, nil
	}
	if !action.IsEdge() {
		return res, nil
	}

	if err := e.transition(ctx, action.Target); err != nil {
		span.SetStatus(codes.Error, err.Error())
		return res, err
	}
	span.SetAttributes(attribute.String("flow.target", action.Target))
	return res, nil
}

// dispatch invokes the bound handler. Edge actions without a handler only
// acknowledge the transition.
func (e *Engine) dispatch(ctx context.Context, action domain.Action, call domain.Call) (domain.Result, error) {
	if call.Args == nil {
		call.Args = map[string]any{}
	}
	if action.IsEdge() && !e.dispatcher.Has(action.Name) {
		return domain.Result{"status": "success", "node": action.Target}, nil
	}
	res, err := e.dispatcher.Dispatch(ctx, call, view{e})
	if err != nil {
		return nil, err
	}
	if res == nil {
		res = domain.Result{"status": "success"}
	}
	return res, nil
}

func (e *Engine) appendResult(call domain.Call, res domain.Result) {
	content, err := json.Marshal(res)
	if err != nil {
		content, _ = json.Marshal(domain.ErrorResult(fmt.Sprintf("unencodable result: %v", err)))
	}
	e.messages = append(e.messages, domain.Message{
		Role:       domain.RoleTool,
		Name:       call.Name,
		ToolCallID: call.ID,
		Content:    string(content),
	})
}

// transition leaves the current node for target: post_actions of the current
// node, pre_actions of the target, new tools, target prompt. When the post
// actions end the conversation the target is not entered.
func (e *Engine) transition(ctx context.Context, target string) error {
	from := e.current

	next, err := e.store.Get(target)
	if err != nil {
		return fmt.Errorf("transition from %s: %w", from.ID, err)
	}

	e.runDirectives(ctx, from.ID, phasePost, from.PostActions)
	e.emitNodeLeave(ctx, from.ID)
	if e.ended {
		// An end_conversation post action stops the flow in the source node.
		e.logger.InfoContext(ctx, "conversation ended before entering target", "from", from.ID, "to", next.ID)
		return nil
	}

	e.runDirectives(ctx, next.ID, phasePre, next.PreActions)
	e.setCurrent(next)
	e.appendPrompt(next)
	e.emitNodeEnter(ctx, next.ID)
	e.logger.InfoContext(ctx, "transitioned", "from", from.ID, "to", next.ID)

	if next.IsTerminal() {
		e.finish(ctx)
	}
	return nil
}

// view is the read-only conversation handed to handlers.
type view struct{ e *Engine }

func (v view) ConversationID() string { return v.e.convID }

func (v view) CurrentNode() string { return v.e.current.ID }

func (v view) Messages() []domain.Message { return v.e.Messages() }
