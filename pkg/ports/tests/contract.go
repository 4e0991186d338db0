package tests

import (
	"context"
	"testing"

	"github.com/albertviilik/pipecat-flows/pkg/domain"
	"github.com/albertviilik/pipecat-flows/pkg/ports"
)

// FlowLoaderContractTest is a reusable test suite that verifies if an adapter complies with ports.FlowLoader.
// want is the definition the loader is expected to produce, compared by node IDs, actions and prompts.
func FlowLoaderContractTest(t *testing.T, loader ports.FlowLoader, want domain.FlowDefinition) {
	t.Helper()

	got, err := loader.LoadFlow(context.Background())
	if err != nil {
		t.Fatalf("unexpected error loading flow: %v", err)
	}

	t.Run("InitialNode", func(t *testing.T) {
		if got.Initial != want.Initial {
			t.Errorf("initial node = %q, want %q", got.Initial, want.Initial)
		}
	})

	t.Run("Nodes", func(t *testing.T) {
		if len(got.Nodes) != len(want.Nodes) {
			t.Fatalf("expected %d nodes, got %d", len(want.Nodes), len(got.Nodes))
		}

		lookup := make(map[string]domain.Node)
		for _, n := range got.Nodes {
			lookup[n.ID] = n
		}

		for _, w := range want.Nodes {
			n, ok := lookup[w.ID]
			if !ok {
				t.Errorf("node %s missing from flow", w.ID)
				continue
			}
			if n.SystemPrompt != w.SystemPrompt {
				t.Errorf("prompt mismatch for %s. got %q, want %q", w.ID, n.SystemPrompt, w.SystemPrompt)
			}
			if len(n.Actions) != len(w.Actions) {
				t.Errorf("node %s: expected %d actions, got %d", w.ID, len(w.Actions), len(n.Actions))
				continue
			}
			for i, a := range w.Actions {
				g := n.Actions[i]
				if g.Name != a.Name || g.Kind != a.Kind || g.Target != a.Target {
					t.Errorf("node %s action %d = %s/%s->%s, want %s/%s->%s",
						w.ID, i, g.Name, g.Kind, g.Target, a.Name, a.Kind, a.Target)
				}
			}
			if len(n.PreActions) != len(w.PreActions) || len(n.PostActions) != len(w.PostActions) {
				t.Errorf("node %s: directive count mismatch", w.ID)
			}
		}
	})
}
