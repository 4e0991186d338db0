package ports

import (
	"context"

	"github.com/albertviilik/pipecat-flows/pkg/domain"
)

// NodeStore gives read access to validated node definitions.
type NodeStore interface {
	// Initial returns the node every conversation starts in.
	Initial() domain.Node

	// Get returns *domain.UnknownNodeError if id does not resolve.
	Get(id string) (domain.Node, error)

	// Nodes lists every node in declaration order.
	Nodes() []domain.Node
}

// FlowLoader reads a flow definition from a source.
// The result is not validated; callers build a node store from it.
type FlowLoader interface {
	LoadFlow(ctx context.Context) (domain.FlowDefinition, error)
}
