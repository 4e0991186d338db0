package domain

import (
	"context"
	"time"
)

// EventType defines the category of the event.
type EventType string

const (
	EventNodeEnter       EventType = "node_enter"
	EventNodeLeave       EventType = "node_leave"
	EventActionCall      EventType = "action_call"
	EventActionReturn    EventType = "action_return"
	EventDirective       EventType = "directive"
	EventConversationEnd EventType = "conversation_end"
)

// EventBase contains common fields for all events.
type EventBase struct {
	Timestamp      time.Time `json:"timestamp"`
	Type           EventType `json:"type"`
	ConversationID string    `json:"conversation_id"`
}

// NodeEvent represents entry or exit from a node.
type NodeEvent struct {
	EventBase
	NodeID string `json:"node_id"`
}

// ActionEvent represents one action dispatch.
type ActionEvent struct {
	EventBase
	NodeID   string        `json:"node_id"`
	Action   string        `json:"action"`
	Kind     ActionKind    `json:"kind"`
	CallID   string        `json:"call_id"`
	Args     any           `json:"args,omitempty"`
	Result   Result        `json:"result,omitempty"`
	IsError  bool          `json:"is_error,omitempty"`
	Duration time.Duration `json:"duration,omitempty"`
}

// DirectiveEvent represents the execution of one directive.
type DirectiveEvent struct {
	EventBase
	NodeID    string `json:"node_id"`
	Directive string `json:"directive"`
	Phase     string `json:"phase"` // "pre" or "post"
	Err       error  `json:"-"`
}

// LifecycleHooks defines callbacks for engine observability.
type LifecycleHooks struct {
	OnNodeEnter       func(context.Context, *NodeEvent)
	OnNodeLeave       func(context.Context, *NodeEvent)
	OnActionCall      func(context.Context, *ActionEvent)
	OnActionReturn    func(context.Context, *ActionEvent)
	OnDirective       func(context.Context, *DirectiveEvent)
	OnConversationEnd func(context.Context, *NodeEvent)
}

// MergeHooks chains several hook sets; callbacks run in argument order.
func MergeHooks(sets ...LifecycleHooks) LifecycleHooks {
	var out LifecycleHooks
	for _, h := range sets {
		out.OnNodeEnter = chain(out.OnNodeEnter, h.OnNodeEnter)
		out.OnNodeLeave = chain(out.OnNodeLeave, h.OnNodeLeave)
		out.OnActionCall = chain(out.OnActionCall, h.OnActionCall)
		out.OnActionReturn = chain(out.OnActionReturn, h.OnActionReturn)
		out.OnDirective = chain(out.OnDirective, h.OnDirective)
		out.OnConversationEnd = chain(out.OnConversationEnd, h.OnConversationEnd)
	}
	return out
}

func chain[E any](a, b func(context.Context, E)) func(context.Context, E) {
	switch {
	case a == nil:
		return b
	case b == nil:
		return a
	}
	return func(ctx context.Context, e E) {
		a(ctx, e)
		b(ctx, e)
	}
}
