package graph_test

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/albertviilik/pipecat-flows/pkg/domain"
	"github.com/albertviilik/pipecat-flows/pkg/graph"
	"github.com/albertviilik/pipecat-flows/pkg/ports/tests"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func edge(name, target string) domain.Action {
	return domain.Action{Name: name, Kind: domain.KindEdge, Target: target}
}

func nodeAction(name string) domain.Action {
	return domain.Action{Name: name, Kind: domain.KindNode}
}

func TestNew_Valid(t *testing.T) {
	store, err := graph.New("start",
		domain.Node{ID: "start", SystemPrompt: "hi", Actions: []domain.Action{nodeAction("record"), edge("next", "loop")}},
		domain.Node{ID: "loop", Actions: []domain.Action{edge("again", "loop"), edge("done", "end")}},
		domain.Node{ID: "end"},
	)
	require.NoError(t, err, "cycles are allowed")

	assert.Equal(t, "start", store.Initial().ID)
	assert.Equal(t, []string{"start", "loop", "end"}, store.IDs())

	n, err := store.Get("loop")
	require.NoError(t, err)
	assert.Len(t, n.Actions, 2)

	_, err = store.Get("missing")
	var unknown *domain.UnknownNodeError
	require.True(t, errors.As(err, &unknown))
	assert.Equal(t, "missing", unknown.NodeID)
}

func TestNew_ReturnsCopies(t *testing.T) {
	store, err := graph.New("start", domain.Node{ID: "start", Actions: []domain.Action{nodeAction("a")}})
	require.NoError(t, err)

	n := store.Initial()
	n.Actions[0].Name = "mutated"

	assert.Equal(t, "a", store.Initial().Actions[0].Name)
}

func TestNew_Invalid(t *testing.T) {
	cases := []struct {
		name    string
		initial string
		nodes   []domain.Node
		want    string
	}{
		{
			name:    "missing initial",
			initial: "",
			nodes:   []domain.Node{{ID: "a"}},
			want:    "no initial node",
		},
		{
			name:    "initial does not exist",
			initial: "b",
			nodes:   []domain.Node{{ID: "a"}},
			want:    `initial node "b" does not exist`,
		},
		{
			name:    "duplicate node",
			initial: "a",
			nodes:   []domain.Node{{ID: "a"}, {ID: "a"}},
			want:    `duplicate node "a"`,
		},
		{
			name:    "duplicate action",
			initial: "a",
			nodes:   []domain.Node{{ID: "a", Actions: []domain.Action{nodeAction("x"), nodeAction("x")}}},
			want:    `duplicate action "x"`,
		},
		{
			name:    "dangling edge",
			initial: "a",
			nodes:   []domain.Node{{ID: "a", Actions: []domain.Action{edge("go", "nowhere")}}},
			want:    `targets unknown node "nowhere"`,
		},
		{
			name:    "edge without target",
			initial: "a",
			nodes:   []domain.Node{{ID: "a", Actions: []domain.Action{{Name: "go", Kind: domain.KindEdge}}}},
			want:    "has no target",
		},
		{
			name:    "invalid kind",
			initial: "a",
			nodes:   []domain.Node{{ID: "a", Actions: []domain.Action{{Name: "go", Kind: "jump"}}}},
			want:    `invalid kind "jump"`,
		},
		{
			name:    "non-object parameters",
			initial: "a",
			nodes: []domain.Node{{ID: "a", Actions: []domain.Action{
				{Name: "go", Kind: domain.KindNode, Parameters: map[string]any{"type": "string"}},
			}}},
			want: "parameters must be of type object",
		},
	}

	for _, tt := range cases {
		t.Run(tt.name, func(t *testing.T) {
			_, err := graph.New(tt.initial, tt.nodes...)
			require.Error(t, err)
			assert.ErrorIs(t, err, domain.ErrInvalidGraph)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestNew_ReportsAllProblems(t *testing.T) {
	_, err := graph.New("a",
		domain.Node{ID: "a", Actions: []domain.Action{edge("x", "nope"), edge("y", "")}},
	)

	var verr *graph.ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Len(t, verr.Problems, 2)
}

const restaurantYAML = `
initial_node: start
nodes:
  start:
    system_prompt: Warmly greet the customer and ask how many people are in their party.
    actions:
      - {name: record_party_size, kind: node}
      - {name: get_time, kind: edge, target: get_time}
  get_time:
    system_prompt: Ask what time they'd like to dine.
    actions:
      - {name: confirm, kind: edge, target: end}
  end:
    system_prompt: Thank them and end the conversation.
    post_actions:
      - type: end_conversation
`

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "flow.yaml")
	require.NoError(t, os.WriteFile(path, []byte(restaurantYAML), 0644))

	store, err := graph.LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"start", "get_time", "end"}, store.IDs())

	_, err = graph.LoadFile(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestParse_Invalid(t *testing.T) {
	_, err := graph.Parse([]byte("initial_node: start\nnodes:\n  other: {}\n"))
	assert.ErrorIs(t, err, domain.ErrInvalidGraph)
}

func TestBytesLoader_Contract(t *testing.T) {
	tests.FlowLoaderContractTest(t, graph.BytesLoader(restaurantYAML), domain.FlowDefinition{
		Initial: "start",
		Nodes: []domain.Node{
			{
				ID:           "start",
				SystemPrompt: "Warmly greet the customer and ask how many people are in their party.",
				Actions:      []domain.Action{nodeAction("record_party_size"), edge("get_time", "get_time")},
			},
			{
				ID:           "get_time",
				SystemPrompt: "Ask what time they'd like to dine.",
				Actions:      []domain.Action{edge("confirm", "end")},
			},
			{
				ID:           "end",
				SystemPrompt: "Thank them and end the conversation.",
				PostActions:  []domain.Directive{domain.EndConversation()},
			},
		},
	})
}
