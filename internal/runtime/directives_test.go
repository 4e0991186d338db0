package runtime_test

import (
	"context"
	"errors"
	"testing"

	"github.com/albertviilik/pipecat-flows/internal/runtime"
	"github.com/albertviilik/pipecat-flows/pkg/domain"
	"github.com/albertviilik/pipecat-flows/pkg/dsl"
	"github.com/albertviilik/pipecat-flows/pkg/registry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestEngine_DirectiveOrder(t *testing.T) {
	ctx := context.Background()
	var trace []string
	record := func(ctx context.Context, d domain.Directive) error {
		trace = append(trace, d.Text)
		return nil
	}

	b := dsl.New("a")
	b.Add("a").
		Pre(domain.Directive{Type: "record", Text: "pre a"}).
		Post(domain.Directive{Type: "record", Text: "post a"}).
		Edge("to_b", "", "b")
	b.Add("b").
		Pre(domain.Directive{Type: "record", Text: "pre b"}).
		Post(domain.Directive{Type: "record", Text: "post b"}).
		Terminal()

	eng, err := runtime.NewEngine(b.MustBuild(), registry.NewRegistry(), runtime.WithDirective("record", record))
	require.NoError(t, err)

	require.NoError(t, eng.Initialize(ctx, nil))
	assert.Equal(t, []string{"pre a"}, trace)

	_, err = eng.HandleCall(ctx, domain.Call{Name: "to_b", ID: "c1"})
	require.NoError(t, err)
	assert.Equal(t, []string{"pre a", "post a", "pre b", "post b"}, trace,
		"leaving runs post of the current node before pre of the target; terminal nodes run post on entry")
	assert.True(t, eng.Ended())
}

func TestEngine_DirectiveFailuresAreSkipped(t *testing.T) {
	ctx := context.Background()
	speaker := &mockSpeaker{}
	speaker.On("Speak", mock.Anything, "Welcome!").Return(errors.New("tts offline"))
	speaker.On("Speak", mock.Anything, "Still here.").Return(nil)

	var events []*domain.DirectiveEvent
	hooks := domain.LifecycleHooks{
		OnDirective: func(_ context.Context, e *domain.DirectiveEvent) { events = append(events, e) },
	}

	b := dsl.New("greeting")
	b.Add("greeting").
		Pre(domain.Directive{Type: domain.DirectiveTTSSay, Text: "Welcome!"}).
		Pre(domain.Directive{Type: "confetti"}).
		Speak("Still here.").
		Edge("end", "", "end")
	b.Add("end").EndConversation()

	eng, err := runtime.NewEngine(b.MustBuild(), registry.NewRegistry(),
		runtime.WithSpeaker(speaker), runtime.WithLifecycleHooks(hooks))
	require.NoError(t, err)
	require.NoError(t, eng.Initialize(ctx, nil))

	speaker.AssertExpectations(t)
	require.Len(t, events, 3)
	assert.EqualError(t, events[0].Err, "tts offline")
	assert.ErrorContains(t, events[1].Err, `unknown directive type "confetti"`)
	assert.NoError(t, events[2].Err)
	assert.Equal(t, "greeting", eng.CurrentNode())
}

func TestEngine_SpeakWithoutSpeaker(t *testing.T) {
	b := dsl.New("a")
	b.Add("a").Speak("hello").Edge("x", "", "a")

	eng, err := runtime.NewEngine(b.MustBuild(), registry.NewRegistry())
	require.NoError(t, err)
	assert.NoError(t, eng.Initialize(context.Background(), nil), "missing speaker is only a warning")
}

func TestEngine_EndConversationDirective(t *testing.T) {
	ctx := context.Background()
	b := dsl.New("a")
	b.Add("a").Edge("leave", "", "b").Post(domain.EndConversation())
	b.Add("b").Edge("back", "", "a")

	eng, err := runtime.NewEngine(b.MustBuild(), registry.NewRegistry())
	require.NoError(t, err)
	require.NoError(t, eng.Initialize(ctx, nil))

	_, err = eng.HandleCall(ctx, domain.Call{Name: "leave", ID: "c1"})
	require.NoError(t, err)
	assert.True(t, eng.Ended(), "end_conversation ends even on non-terminal nodes")
	assert.Equal(t, "b", eng.CurrentNode(), "the transition still completes")
}
