package memory

import (
	"context"
	"fmt"

	"github.com/albertviilik/pipecat-flows/pkg/domain"
)

// Loader implements ports.FlowLoader over nodes held in memory.
type Loader struct {
	def domain.FlowDefinition
}

// NewFromNodes creates a loader from domain objects.
func NewFromNodes(initial string, nodes ...domain.Node) (*Loader, error) {
	for _, n := range nodes {
		if n.ID == "" {
			return nil, fmt.Errorf("node missing ID")
		}
	}
	return &Loader{def: domain.FlowDefinition{
		Initial: initial,
		Nodes:   append([]domain.Node(nil), nodes...),
	}}, nil
}

// LoadFlow returns a copy of the held definition.
func (l *Loader) LoadFlow(_ context.Context) (domain.FlowDefinition, error) {
	return domain.FlowDefinition{
		Initial: l.def.Initial,
		Nodes:   append([]domain.Node(nil), l.def.Nodes...),
	}, nil
}
