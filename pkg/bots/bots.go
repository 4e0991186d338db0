// Package bots bundles ready-to-run conversation flows with their handlers.
package bots

import (
	"context"
	"fmt"
	"io"

	flows "github.com/albertviilik/pipecat-flows"
	"github.com/albertviilik/pipecat-flows/pkg/domain"
	"github.com/albertviilik/pipecat-flows/pkg/graph"
	"github.com/albertviilik/pipecat-flows/pkg/ports"
	"github.com/albertviilik/pipecat-flows/pkg/registry"
	"github.com/albertviilik/pipecat-flows/pkg/session"
)

// HandlerFactory builds the action registry of one conversation. The
// closer, if any, releases what the handlers allocated.
type HandlerFactory func(ctx context.Context) (*registry.Registry, io.Closer, error)

// Bot is a flow graph together with its handlers and seed context.
type Bot struct {
	Name     string
	Graph    *graph.Store
	Seed     []domain.Message
	Handlers HandlerFactory
}

// NewFlow builds one conversation without initializing it.
func (b *Bot) NewFlow(ctx context.Context, opts ...flows.Option) (*flows.Flow, io.Closer, error) {
	reg := registry.NewRegistry()
	var closer io.Closer
	if b.Handlers != nil {
		var err error
		reg, closer, err = b.Handlers(ctx)
		if err != nil {
			return nil, nil, fmt.Errorf("%s handlers: %w", b.Name, err)
		}
	}

	flow, err := flows.New(b.Graph, reg, opts...)
	if err != nil {
		if closer != nil {
			_ = closer.Close()
		}
		return nil, nil, fmt.Errorf("%s: %w", b.Name, err)
	}
	return flow, closer, nil
}

// Factory adapts the bot for a session.Manager; opts returns the flow
// options of each conversation.
func (b *Bot) Factory(opts func(conversationID string) []flows.Option) session.Factory {
	return func(ctx context.Context, id string) (ports.Flow, io.Closer, error) {
		flowOpts := []flows.Option{flows.WithConversationID(id)}
		if opts != nil {
			flowOpts = append(flowOpts, opts(id)...)
		}
		return b.NewFlow(ctx, flowOpts...)
	}
}

// FromGraph wraps a flow that has no Go handlers, such as one read from a
// file. The register funcs bind the handlers that exist; every other node
// action acknowledges its call and echoes the arguments, which is enough
// to drive the flow from an LLM or a test client.
func FromGraph(name string, g *graph.Store, seed []domain.Message, register ...func(*registry.Registry) error) *Bot {
	return &Bot{
		Name:  name,
		Graph: g,
		Seed:  seed,
		Handlers: func(context.Context) (*registry.Registry, io.Closer, error) {
			reg := registry.NewRegistry()
			for _, fn := range register {
				if err := fn(reg); err != nil {
					return nil, nil, err
				}
			}
			for _, n := range g.Nodes() {
				for _, a := range n.Actions {
					if a.IsEdge() || reg.Has(a.Name) {
						continue
					}
					if err := reg.Register(a.Name, acknowledge); err != nil {
						return nil, nil, err
					}
				}
			}
			return reg, nil, nil
		},
	}
}

func acknowledge(_ context.Context, call domain.Call, _ domain.ConversationView) (domain.Result, error) {
	res := domain.Result{"status": "success"}
	if len(call.Args) > 0 {
		res["arguments"] = call.Args
	}
	return res, nil
}
