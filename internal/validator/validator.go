package validator

import (
	"fmt"
	"sort"
	"strings"

	"github.com/albertviilik/pipecat-flows/pkg/domain"
)

// ValidateGraph lints a structurally valid flow: every node must be
// reachable from the initial node, every node must be able to reach a
// terminal node, and every node action must have a handler among
// handlers. A nil handlers slice skips the handler check.
func ValidateGraph(def domain.FlowDefinition, handlers []string) error {
	nodes := make(map[string]domain.Node, len(def.Nodes))
	for _, n := range def.Nodes {
		nodes[n.ID] = n
	}

	var errors []string

	// 1. Crawl forward from the initial node.
	visited := make(map[string]bool)
	queue := []string{def.Initial}
	for len(queue) > 0 {
		currentID := queue[0]
		queue = queue[1:]
		if visited[currentID] {
			continue
		}
		visited[currentID] = true

		node, ok := nodes[currentID]
		if !ok {
			errors = append(errors, fmt.Sprintf("Missing node: '%s'", currentID))
			continue
		}
		for _, a := range node.Actions {
			if a.IsEdge() && !visited[a.Target] {
				queue = append(queue, a.Target)
			}
		}
	}
	for _, n := range def.Nodes {
		if !visited[n.ID] {
			errors = append(errors, fmt.Sprintf("Unreachable node: '%s'", n.ID))
		}
	}

	// 2. Walk backwards from terminal nodes to find nodes that can end.
	canEnd := make(map[string]bool)
	for _, n := range def.Nodes {
		if n.IsTerminal() || endsConversation(n) {
			canEnd[n.ID] = true
		}
	}
	for changed := true; changed; {
		changed = false
		for _, n := range def.Nodes {
			if canEnd[n.ID] {
				continue
			}
			for _, a := range n.Actions {
				if a.IsEdge() && canEnd[a.Target] {
					canEnd[n.ID] = true
					changed = true
					break
				}
			}
		}
	}
	for _, n := range def.Nodes {
		if visited[n.ID] && !canEnd[n.ID] {
			errors = append(errors, fmt.Sprintf("Dead end: no path from '%s' ends the conversation", n.ID))
		}
	}

	// 3. Handler coverage.
	if handlers != nil {
		bound := make(map[string]bool, len(handlers))
		for _, h := range handlers {
			bound[h] = true
		}
		var missing []string
		for _, n := range def.Nodes {
			for _, a := range n.Actions {
				if a.Kind == domain.KindNode && !bound[a.Name] {
					missing = append(missing, fmt.Sprintf("Missing handler for action '%s' in node '%s'", a.Name, n.ID))
				}
			}
		}
		sort.Strings(missing)
		errors = append(errors, missing...)
	}

	if len(errors) > 0 {
		return fmt.Errorf("validation failed:\n- %s", strings.Join(errors, "\n- "))
	}
	return nil
}

func endsConversation(n domain.Node) bool {
	for _, d := range append(append([]domain.Directive(nil), n.PreActions...), n.PostActions...) {
		if d.Type == domain.DirectiveEndConversation {
			return true
		}
	}
	return false
}
