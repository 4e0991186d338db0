package dsl

import (
	"fmt"

	"github.com/albertviilik/pipecat-flows/pkg/domain"
	"github.com/albertviilik/pipecat-flows/pkg/graph"
)

// Builder manages the flow construction.
type Builder struct {
	initial string
	nodes   map[string]*NodeBuilder
	order   []string
}

// New creates a new flow builder whose conversations start in initial.
func New(initial string) *Builder {
	return &Builder{
		initial: initial,
		nodes:   make(map[string]*NodeBuilder),
	}
}

// Add creates a new node in the flow.
// If the node already exists, it returns the existing builder.
func (b *Builder) Add(id string) *NodeBuilder {
	if nb, ok := b.nodes[id]; ok {
		return nb
	}
	nb := &NodeBuilder{
		node: domain.Node{
			ID: id,
		},
		builder: b,
	}
	b.nodes[id] = nb
	b.order = append(b.order, id)
	return nb
}

// Definition returns the flow in declarative form without validating it.
func (b *Builder) Definition() domain.FlowDefinition {
	nodes := make([]domain.Node, 0, len(b.order))
	for _, id := range b.order {
		nodes = append(nodes, b.nodes[id].Build())
	}
	return domain.FlowDefinition{Initial: b.initial, Nodes: nodes}
}

// Build validates the flow and returns its node store.
func (b *Builder) Build() (*graph.Store, error) {
	store, err := graph.FromDefinition(b.Definition())
	if err != nil {
		return nil, fmt.Errorf("failed to build flow: %w", err)
	}
	return store, nil
}

// MustBuild is like Build but panics on error. Meant for flows declared in code.
func (b *Builder) MustBuild() *graph.Store {
	store, err := b.Build()
	if err != nil {
		panic(err)
	}
	return store
}
