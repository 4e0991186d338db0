package runner_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	flows "github.com/albertviilik/pipecat-flows"
	"github.com/albertviilik/pipecat-flows/pkg/domain"
	"github.com/albertviilik/pipecat-flows/pkg/dsl"
	"github.com/albertviilik/pipecat-flows/pkg/registry"
	"github.com/albertviilik/pipecat-flows/pkg/runner"
	"github.com/albertviilik/pipecat-flows/pkg/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// scriptedProvider replays canned replies and records what it was sent.
type scriptedProvider struct {
	mu       sync.Mutex
	replies  []domain.Message
	tools    [][]string
	requests [][]domain.Message
	err      error
}

func (p *scriptedProvider) Name() string { return "scripted" }

func (p *scriptedProvider) Complete(_ context.Context, msgs []domain.Message, tools []domain.Tool) (domain.Message, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.requests = append(p.requests, append([]domain.Message(nil), msgs...))
	names := make([]string, len(tools))
	for i, t := range tools {
		names[i] = t.Name
	}
	p.tools = append(p.tools, names)
	if p.err != nil {
		return domain.Message{}, p.err
	}
	if len(p.replies) == 0 {
		return domain.Message{Role: domain.RoleAssistant, Content: "..."}, nil
	}
	next := p.replies[0]
	p.replies = p.replies[1:]
	return next, nil
}

func text(s string) domain.Message {
	return domain.Message{Role: domain.RoleAssistant, Content: s}
}

func calls(tcs ...domain.ToolCall) domain.Message {
	return domain.Message{Role: domain.RoleAssistant, ToolCalls: tcs}
}

func call(id, name, args string) domain.ToolCall {
	tc := domain.ToolCall{ID: id, Name: name}
	if args != "" {
		tc.Arguments = json.RawMessage(args)
	}
	return tc
}

func newFlow(t *testing.T) *flows.Flow {
	t.Helper()
	b := dsl.New("start")
	b.Add("start").
		Prompt("Ask how many people are in their party.").
		Action("record_party_size", "Record the number of people in the party", schema.Object(
			schema.Integer("size").Range(1, 12).Required(),
		)).
		Edge("get_time", "Proceed to time selection", "get_time")
	b.Add("get_time").
		Prompt("Ask what time they'd like to dine.").
		Action("record_time", "Record the requested time", schema.Object(schema.String("time").Required())).
		Edge("end", "End the conversation", "end")
	b.Add("end").
		Prompt("Thank them and end the conversation.").
		EndConversation()

	reg := registry.NewRegistry()
	reg.MustRegister("record_party_size", func(_ context.Context, c domain.Call, _ domain.ConversationView) (domain.Result, error) {
		return domain.Result{"status": "success", "size": c.Args["size"]}, nil
	})
	reg.MustRegister("record_time", func(_ context.Context, c domain.Call, _ domain.ConversationView) (domain.Result, error) {
		return domain.Result{"status": "success", "time": c.Args["time"]}, nil
	})

	flow, err := flows.New(b.MustBuild(), reg)
	require.NoError(t, err)
	require.NoError(t, flow.Initialize(context.Background(), []domain.Message{
		{Role: domain.RoleSystem, Content: "You are a restaurant reservation assistant."},
	}))
	return flow
}

func TestRunner_Turn(t *testing.T) {
	flow := newFlow(t)
	provider := &scriptedProvider{replies: []domain.Message{
		calls(call("c1", "record_party_size", `{"size":4}`), call("c2", "get_time", "")),
		text("What time would you like to dine?"),
	}}

	var observed []string
	r := runner.New(flow, provider, runner.WithProviderObserver(func(name string, _ time.Duration, err error) {
		assert.NoError(t, err)
		observed = append(observed, name)
	}))

	res, err := r.Turn(context.Background(), "table for four")
	require.NoError(t, err)
	assert.Equal(t, 2, res.Calls)
	assert.Equal(t, "get_time", res.Node)
	assert.False(t, res.Ended)
	assert.Equal(t, []string{"What time would you like to dine?"}, res.Replies)
	assert.Equal(t, []string{"scripted", "scripted"}, observed)

	// The second completion sees the tools of the new node.
	require.Len(t, provider.tools, 2)
	assert.Equal(t, []string{"record_party_size", "get_time"}, provider.tools[0])
	assert.Equal(t, []string{"record_time", "end"}, provider.tools[1])

	msgs := flow.Messages()
	roles := make([]domain.Role, len(msgs))
	for i, m := range msgs {
		roles[i] = m.Role
	}
	assert.Equal(t, []domain.Role{
		domain.RoleSystem, domain.RoleSystem, // seed, start prompt
		domain.RoleUser,
		domain.RoleAssistant,
		domain.RoleTool, domain.RoleTool,
		domain.RoleSystem, // get_time prompt
		domain.RoleAssistant,
	}, roles)
	assert.Equal(t, "c1", msgs[4].ToolCallID)
	assert.Equal(t, "c2", msgs[5].ToolCallID)
}

func TestRunner_EndsWithFarewell(t *testing.T) {
	flow := newFlow(t)
	provider := &scriptedProvider{replies: []domain.Message{
		calls(call("c1", "get_time", "")),
		calls(call("c2", "record_time", `{"time":"19:00"}`), call("c3", "end", ""), call("c4", "record_time", `{"time":"20:00"}`)),
		text("Thanks, see you at seven!"),
	}}
	r := runner.New(flow, provider)

	res, err := r.Turn(context.Background(), "four people at seven")
	require.NoError(t, err)
	assert.True(t, res.Ended)
	assert.Equal(t, "end", res.Node)
	assert.Equal(t, 3, res.Calls, "the call after the end is not run")
	assert.Equal(t, []string{"Thanks, see you at seven!"}, res.Replies)
	assert.Empty(t, provider.tools[2], "farewell is asked without tools")

	// The farewell request answers every call of the last assistant turn.
	require.Len(t, provider.requests, 3)
	assertCallsAnswered(t, provider.requests[2])
	farewell := provider.requests[2]
	last := farewell[len(farewell)-1]
	assert.Equal(t, "c4", last.ToolCallID)
	assert.JSONEq(t, `{"error":"`+domain.ErrConversationEnded.Error()+`"}`, last.Content)

	_, err = r.Turn(context.Background(), "one more thing")
	assert.ErrorIs(t, err, domain.ErrConversationEnded)
}

func TestRunner_EndThenCallInSameTurn(t *testing.T) {
	flow := newFlow(t)
	provider := &scriptedProvider{replies: []domain.Message{
		calls(call("c1", "get_time", "")),
		calls(call("c2", "end", ""), call("c3", "record_time", `{"time":"19:00"}`)),
		text("Goodbye!"),
	}}
	r := runner.New(flow, provider)

	res, err := r.Turn(context.Background(), "seven please")
	require.NoError(t, err)
	assert.True(t, res.Ended)
	assert.Equal(t, 2, res.Calls)

	require.Len(t, provider.requests, 3)
	assertCallsAnswered(t, provider.requests[2])
}

func TestRunner_MalformedArgumentsAreNotRun(t *testing.T) {
	flow := newFlow(t)
	provider := &scriptedProvider{replies: []domain.Message{
		calls(call("c1", "get_time", `{"bogus":`)),
		text("Sorry, let me try that again."),
	}}
	r := runner.New(flow, provider)

	res, err := r.Turn(context.Background(), "four of us")
	require.NoError(t, err)
	assert.Equal(t, "start", res.Node, "the edge is not taken")
	assert.Zero(t, res.Calls)
	assert.Equal(t, []string{"record_party_size", "get_time"}, provider.tools[1])

	msgs := flow.Messages()
	toolMsg := msgs[len(msgs)-2]
	assert.Equal(t, domain.RoleTool, toolMsg.Role)
	assert.Equal(t, "c1", toolMsg.ToolCallID)
	assert.Contains(t, toolMsg.Content, "invalid arguments")
}

// assertCallsAnswered checks that every tool call in msgs has a tool reply.
func assertCallsAnswered(t *testing.T, msgs []domain.Message) {
	t.Helper()
	answered := map[string]bool{}
	for _, m := range msgs {
		if m.Role == domain.RoleTool {
			answered[m.ToolCallID] = true
		}
	}
	for _, m := range msgs {
		for _, tc := range m.ToolCalls {
			assert.True(t, answered[tc.ID], "call %s has no tool reply", tc.ID)
		}
	}
}

func TestRunner_UnavailableActionIsReportedToModel(t *testing.T) {
	flow := newFlow(t)
	provider := &scriptedProvider{replies: []domain.Message{
		calls(call("c1", "record_time", `{"time":"19:00"}`)),
		text("Sorry, how many people first?"),
	}}
	r := runner.New(flow, provider)

	res, err := r.Turn(context.Background(), "at seven")
	require.NoError(t, err)
	assert.Equal(t, "start", res.Node)

	msgs := flow.Messages()
	toolMsg := msgs[len(msgs)-2]
	assert.Equal(t, domain.RoleTool, toolMsg.Role)
	assert.Contains(t, toolMsg.Content, "error")
}

func TestRunner_MaxSteps(t *testing.T) {
	flow := newFlow(t)
	var replies []domain.Message
	for i := 0; i < 5; i++ {
		replies = append(replies, calls(call("c", "record_party_size", `{"size":2}`)))
	}
	r := runner.New(flow, &scriptedProvider{replies: replies}, runner.WithMaxSteps(3))

	res, err := r.Turn(context.Background(), "two")
	assert.ErrorIs(t, err, runner.ErrMaxSteps)
	assert.Equal(t, 3, res.Calls)
}

func TestRunner_ProviderError(t *testing.T) {
	flow := newFlow(t)
	boom := errors.New("rate limited")
	r := runner.New(flow, &scriptedProvider{err: boom})

	_, err := r.Start(context.Background())
	assert.ErrorIs(t, err, boom)
}

func TestChat(t *testing.T) {
	flow := newFlow(t)
	provider := &scriptedProvider{replies: []domain.Message{
		text("Welcome! How many people?"),
		calls(call("c1", "record_party_size", `{"size":2}`), call("c2", "get_time", "")),
		text("What time?"),
		calls(call("c3", "end", "")),
		text("Goodbye!"),
	}}

	var out bytes.Buffer
	console := runner.NewConsole(strings.NewReader("two\n\n19:00\nnever read\n"), &out)
	r := runner.New(flow, provider, runner.WithSpeaker(console))

	require.NoError(t, runner.Chat(context.Background(), r, console))

	got := out.String()
	assert.Contains(t, got, "Welcome! How many people?")
	assert.Contains(t, got, "What time?")
	assert.Contains(t, got, "Goodbye!")
	assert.Contains(t, got, "[System] conversation ended")
	assert.True(t, flow.Ended())
}

func TestConsole_ReadLineEOF(t *testing.T) {
	var out bytes.Buffer
	c := runner.NewConsole(strings.NewReader("hello"), &out, runner.WithPrompt("you> "))

	line, err := c.ReadLine(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "hello", line)

	_, err = c.ReadLine(context.Background())
	assert.Error(t, err)
	assert.Contains(t, out.String(), "you> ")
}

func TestConsole_SpeakRenders(t *testing.T) {
	var out bytes.Buffer
	c := runner.NewConsole(strings.NewReader(""), &out, runner.WithRenderer(func(s string) (string, error) {
		return strings.ToUpper(s), nil
	}))
	require.NoError(t, c.Speak(context.Background(), "  hi there \n"))
	assert.Equal(t, "HI THERE\n", out.String())
}
