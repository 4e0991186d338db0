package observability_test

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	flows "github.com/albertviilik/pipecat-flows"
	"github.com/albertviilik/pipecat-flows/pkg/domain"
	"github.com/albertviilik/pipecat-flows/pkg/dsl"
	"github.com/albertviilik/pipecat-flows/pkg/observability"
	"github.com/albertviilik/pipecat-flows/pkg/registry"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func runFlow(t *testing.T, hooks domain.LifecycleHooks) {
	t.Helper()
	b := dsl.New("start")
	b.Add("start").
		Prompt("Ask for a number.").
		Action("record", "Record a number", nil).
		Edge("finish", "Finish", "end")
	b.Add("end").
		Prompt("Say goodbye.").
		Speak("Goodbye!").
		EndConversation()
	store := b.MustBuild()

	reg := registry.NewRegistry()
	reg.MustRegister("record", func(_ context.Context, call domain.Call, _ domain.ConversationView) (domain.Result, error) {
		if call.ID == "bad" {
			return nil, errors.New("bad input")
		}
		return domain.Result{"status": "success"}, nil
	})

	flow, err := flows.New(store, reg, flows.WithLifecycleHooks(hooks), flows.WithConversationID("c1"))
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, flow.Initialize(ctx, nil))
	_, err = flow.HandleCall(ctx, domain.Call{ID: "ok", Name: "record"})
	require.NoError(t, err)
	_, err = flow.HandleCall(ctx, domain.Call{ID: "bad", Name: "record"})
	require.NoError(t, err)
	_, err = flow.HandleCall(ctx, domain.Call{ID: "f", Name: "finish"})
	require.NoError(t, err)
}

func TestMetrics_Hooks(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := observability.NewMetrics(reg)

	runFlow(t, m.Hooks())

	metrics, err := reg.Gather()
	require.NoError(t, err)
	assert.NotEmpty(t, metrics)

	// start node visit, end node visit
	assert.Equal(t, 2, testutil.CollectAndCount(m.Collectors()[0]))
	assert.Equal(t, 3, testutil.CollectAndCount(m.Collectors()[1]), "record success, record error, finish success")

	expected := `
# HELP flows_conversations_ended_total Total number of ended conversations by final node
# TYPE flows_conversations_ended_total counter
flows_conversations_ended_total{node="end"} 1
`
	assert.NoError(t, testutil.GatherAndCompare(reg, bytes.NewBufferString(expected), "flows_conversations_ended_total"))

	expected = `
# HELP flows_actions_total Total number of dispatched actions
# TYPE flows_actions_total counter
flows_actions_total{action="finish",kind="edge",status="success"} 1
flows_actions_total{action="record",kind="node",status="error"} 1
flows_actions_total{action="record",kind="node",status="success"} 1
`
	assert.NoError(t, testutil.GatherAndCompare(reg, bytes.NewBufferString(expected), "flows_actions_total"))
}

func TestMetrics_ObserveProvider(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := observability.NewMetrics(reg)

	m.ObserveProvider("openai", 200*time.Millisecond, nil)
	m.ObserveProvider("openai", time.Second, errors.New("timeout"))

	expected := `
# HELP flows_provider_requests_total Total number of LLM provider calls
# TYPE flows_provider_requests_total counter
flows_provider_requests_total{provider="openai",status="error"} 1
flows_provider_requests_total{provider="openai",status="success"} 1
`
	assert.NoError(t, testutil.GatherAndCompare(reg, bytes.NewBufferString(expected), "flows_provider_requests_total"))
}

func TestLogHooks(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	runFlow(t, domain.MergeHooks(observability.LogHooks(logger), observability.NewMetrics(nil).Hooks()))

	out := buf.String()
	assert.Contains(t, out, `"msg":"node_enter"`)
	assert.Contains(t, out, `"msg":"action_return"`)
	assert.Contains(t, out, `"msg":"conversation_end"`)
	assert.Contains(t, out, `"conversation_id":"c1"`)
}
