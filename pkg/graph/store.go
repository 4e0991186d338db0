package graph

import (
	"github.com/albertviilik/pipecat-flows/pkg/domain"
)

// Store is the read-only Node Definition Store.
type Store struct {
	initial string
	nodes   map[string]domain.Node
	order   []string
}

// New validates the nodes and builds a store. Every problem found is
// reported in a single *ValidationError.
func New(initial string, nodes ...domain.Node) (*Store, error) {
	if err := validate(initial, nodes); err != nil {
		return nil, err
	}

	s := &Store{
		initial: initial,
		nodes:   make(map[string]domain.Node, len(nodes)),
		order:   make([]string, 0, len(nodes)),
	}
	for _, n := range nodes {
		s.nodes[n.ID] = cloneNode(n)
		s.order = append(s.order, n.ID)
	}
	return s, nil
}

// FromDefinition builds a store from a decoded flow definition.
func FromDefinition(def domain.FlowDefinition) (*Store, error) {
	return New(def.Initial, def.Nodes...)
}

// Initial returns the node every conversation starts in.
func (s *Store) Initial() domain.Node {
	return cloneNode(s.nodes[s.initial])
}

// Get returns the node registered under id.
func (s *Store) Get(id string) (domain.Node, error) {
	n, ok := s.nodes[id]
	if !ok {
		return domain.Node{}, &domain.UnknownNodeError{NodeID: id}
	}
	return cloneNode(n), nil
}

// Nodes lists every node in declaration order.
func (s *Store) Nodes() []domain.Node {
	out := make([]domain.Node, len(s.order))
	for i, id := range s.order {
		out[i] = cloneNode(s.nodes[id])
	}
	return out
}

// IDs lists the node IDs in declaration order.
func (s *Store) IDs() []string {
	return append([]string(nil), s.order...)
}

// Definition returns the flow in its declarative form.
func (s *Store) Definition() domain.FlowDefinition {
	return domain.FlowDefinition{Initial: s.initial, Nodes: s.Nodes()}
}

// cloneNode copies the slices of n so callers cannot mutate the store.
// Parameter maps are shared; they are never written after construction.
func cloneNode(n domain.Node) domain.Node {
	n.Actions = append([]domain.Action(nil), n.Actions...)
	n.PreActions = append([]domain.Directive(nil), n.PreActions...)
	n.PostActions = append([]domain.Directive(nil), n.PostActions...)
	return n
}
