package compiler

import (
	"testing"

	"github.com/albertviilik/pipecat-flows/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse_ActionsFormat(t *testing.T) {
	src := `
initial_node: start
nodes:
  start:
    system_prompt: Ask for the party size.
    actions:
      - name: record_party_size
        kind: node
        description: Record the number of people
        parameters:
          type: object
          properties:
            size: {type: integer, minimum: 1, maximum: 12}
          required: [size]
      - name: get_time
        kind: edge
        target: get_time
  get_time:
    system_prompt: Ask for the time.
    pre_actions:
      - type: tts_say
        text: One moment.
        voice: calm
    post_actions:
      - type: end_conversation
`
	def, err := NewParser().Parse([]byte(src))
	require.NoError(t, err)

	assert.Equal(t, "start", def.Initial)
	require.Len(t, def.Nodes, 2)
	assert.Equal(t, "start", def.Nodes[0].ID, "node order follows the file")
	assert.Equal(t, "get_time", def.Nodes[1].ID)

	start := def.Nodes[0]
	require.Len(t, start.Actions, 2)
	assert.Equal(t, domain.KindNode, start.Actions[0].Kind)
	assert.Equal(t, "object", start.Actions[0].Parameters["type"])
	assert.Equal(t, domain.KindEdge, start.Actions[1].Kind)
	assert.Equal(t, "get_time", start.Actions[1].Target)

	gt := def.Nodes[1]
	require.Len(t, gt.PreActions, 1)
	assert.Equal(t, "tts_say", gt.PreActions[0].Type)
	assert.Equal(t, "One moment.", gt.PreActions[0].Text)
	assert.Equal(t, "calm", gt.PreActions[0].Params["voice"])
	assert.Equal(t, []domain.Directive{{Type: "end_conversation"}}, gt.PostActions)
}

func TestParse_LegacyFunctions(t *testing.T) {
	src := `{
  "initial_node": "greeting",
  "nodes": {
    "greeting": {
      "messages": [{"role": "system", "content": "Greet the user."}],
      "functions": [
        {"type": "function", "function": {"name": "get_movies", "description": "List movies"}},
        {"function_declarations": [{"name": "explore_movie", "description": "Explore"}]}
      ]
    },
    "explore_movie": {
      "messages": [{"role": "system", "content": "Help explore."}],
      "functions": [{"name": "explore_movie", "kind": "node"}]
    }
  }
}`
	def, err := NewParser().Parse([]byte(src))
	require.NoError(t, err)
	require.Len(t, def.Nodes, 2)

	greeting := def.Nodes[0]
	assert.Equal(t, "Greet the user.", greeting.SystemPrompt)
	require.Len(t, greeting.Actions, 2)
	assert.Equal(t, domain.KindNode, greeting.Actions[0].Kind)
	assert.Equal(t, domain.KindEdge, greeting.Actions[1].Kind, "function named after a node is an edge")
	assert.Equal(t, "explore_movie", greeting.Actions[1].Target)

	explore := def.Nodes[1]
	assert.Equal(t, domain.KindNode, explore.Actions[0].Kind, "explicit kind wins")
}

func TestParse_Errors(t *testing.T) {
	_, err := NewParser().Parse([]byte("nodes: [unclosed"))
	assert.Error(t, err)

	_, err = NewParser().Parse([]byte("nodes:\n  a:\n    functions:\n      - function: 3\n"))
	assert.Error(t, err)
}
