package bots_test

import (
	"context"
	"testing"

	"github.com/albertviilik/pipecat-flows/pkg/bots"
	"github.com/albertviilik/pipecat-flows/pkg/domain"
	"github.com/albertviilik/pipecat-flows/pkg/dsl"
	"github.com/albertviilik/pipecat-flows/pkg/registry"
	"github.com/albertviilik/pipecat-flows/pkg/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromGraph(t *testing.T) {
	b := dsl.New("start")
	b.Add("start").
		Prompt("Ask for a color.").
		Action("record_color", "Record the color", schema.Object(schema.String("color").Required())).
		Edge("finish", "Finish", "end")
	b.Add("end").Prompt("Bye.")
	g, err := b.Build()
	require.NoError(t, err)

	bot := bots.FromGraph("colors", g, nil)
	flow, closer, err := bot.Factory(nil)(context.Background(), "c1")
	require.NoError(t, err)
	assert.Nil(t, closer)
	require.NoError(t, flow.Initialize(context.Background(), nil))

	res, err := flow.HandleCall(context.Background(), domain.Call{ID: "1", Name: "record_color", Args: map[string]any{"color": "teal"}})
	require.NoError(t, err)
	assert.Equal(t, domain.Result{"status": "success", "arguments": map[string]any{"color": "teal"}}, res)

	_, err = flow.HandleCall(context.Background(), domain.Call{ID: "2", Name: "finish"})
	require.NoError(t, err)
	select {
	case <-flow.Done():
	default:
		t.Fatal("terminal node should end the conversation")
	}
}

func TestFromGraph_RegisteredHandlersWin(t *testing.T) {
	b := dsl.New("start")
	b.Add("start").
		Prompt("Ask for a color.").
		Action("record_color", "Record the color", schema.Object(schema.String("color").Required()))
	g, err := b.Build()
	require.NoError(t, err)

	bot := bots.FromGraph("colors", g, nil, func(reg *registry.Registry) error {
		return reg.Register("record_color", func(context.Context, domain.Call, domain.ConversationView) (domain.Result, error) {
			return domain.Result{"status": "success", "stored": true}, nil
		})
	})
	flow, _, err := bot.NewFlow(context.Background())
	require.NoError(t, err)
	require.NoError(t, flow.Initialize(context.Background(), nil))

	res, err := flow.HandleCall(context.Background(), domain.Call{ID: "1", Name: "record_color", Args: map[string]any{"color": "teal"}})
	require.NoError(t, err)
	assert.Equal(t, true, res["stored"])
}

func TestIntArg(t *testing.T) {
	tests := []struct {
		name    string
		value   any
		want    int
		wantErr bool
	}{
		{"float", float64(42), 42, false},
		{"int", 7, 7, false},
		{"string", "12", 12, false},
		{"fraction", 1.5, 0, true},
		{"bool", true, 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := bots.IntArg(map[string]any{"n": tt.value}, "n")
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := bots.IntArg(map[string]any{}, "n")
	assert.EqualError(t, err, "n is required")
}

func TestDecodeArgs(t *testing.T) {
	var in struct {
		MovieID int    `json:"movie_id"`
		Title   string `json:"title"`
	}
	err := bots.DecodeArgs(map[string]any{"movie_id": float64(42), "title": "Heat"}, &in)
	require.NoError(t, err)
	assert.Equal(t, 42, in.MovieID)
	assert.Equal(t, "Heat", in.Title)

	err = bots.DecodeArgs(map[string]any{"movie_id": "7"}, &in)
	require.NoError(t, err)
	assert.Equal(t, 7, in.MovieID)

	err = bots.DecodeArgs(map[string]any{"movie_id": "seven"}, &in)
	assert.Error(t, err)
}
