package graph

import (
	"fmt"
	"strings"

	"github.com/albertviilik/pipecat-flows/pkg/domain"
	"github.com/albertviilik/pipecat-flows/pkg/schema"
)

// ValidationError lists every problem found in a flow graph.
type ValidationError struct {
	Problems []string
}

func (e *ValidationError) Error() string {
	if len(e.Problems) == 1 {
		return fmt.Sprintf("%s: %s", domain.ErrInvalidGraph, e.Problems[0])
	}
	return fmt.Sprintf("%s: %d problems:\n- %s", domain.ErrInvalidGraph, len(e.Problems), strings.Join(e.Problems, "\n- "))
}

// Unwrap allows errors.Is(err, domain.ErrInvalidGraph).
func (e *ValidationError) Unwrap() error {
	return domain.ErrInvalidGraph
}

func validate(initial string, nodes []domain.Node) error {
	var problems []string
	addf := func(format string, args ...any) {
		problems = append(problems, fmt.Sprintf(format, args...))
	}

	ids := make(map[string]bool, len(nodes))
	for _, n := range nodes {
		switch {
		case n.ID == "":
			addf("node with empty id")
		case ids[n.ID]:
			addf("duplicate node %q", n.ID)
		}
		ids[n.ID] = true
	}

	if initial == "" {
		addf("no initial node")
	} else if !ids[initial] {
		addf("initial node %q does not exist", initial)
	}

	for _, n := range nodes {
		names := make(map[string]bool, len(n.Actions))
		for _, a := range n.Actions {
			if a.Name == "" {
				addf("node %q: action with empty name", n.ID)
				continue
			}
			if names[a.Name] {
				addf("node %q: duplicate action %q", n.ID, a.Name)
			}
			names[a.Name] = true

			switch a.Kind {
			case domain.KindEdge:
				if a.Target == "" {
					addf("node %q: edge action %q has no target", n.ID, a.Name)
				} else if !ids[a.Target] {
					addf("node %q: edge action %q targets unknown node %q", n.ID, a.Name, a.Target)
				}
			case domain.KindNode:
				if a.Target != "" {
					addf("node %q: node action %q must not have a target", n.ID, a.Name)
				}
			default:
				addf("node %q: action %q has invalid kind %q", n.ID, a.Name, a.Kind)
			}

			if _, err := schema.Compile(a.Parameters); err != nil {
				addf("node %q: action %q: %v", n.ID, a.Name, err)
			}
		}

		for _, d := range append(append([]domain.Directive(nil), n.PreActions...), n.PostActions...) {
			if d.Type == "" {
				addf("node %q: directive with empty type", n.ID)
			}
		}
	}

	if len(problems) > 0 {
		return &ValidationError{Problems: problems}
	}
	return nil
}
