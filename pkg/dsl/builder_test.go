package dsl

import (
	"testing"

	"github.com/albertviilik/pipecat-flows/pkg/domain"
	"github.com/albertviilik/pipecat-flows/pkg/schema"
)

func TestBuilder_SimpleFlow(t *testing.T) {
	b := New("start")

	b.Add("start").
		Prompt("Ask how many people are in the party.").
		Action("record_party_size", "Record the number of people", schema.Object(
			schema.Integer("size").Range(1, 12).Required(),
		)).
		Edge("get_time", "Proceed to time selection", "get_time")

	b.Add("get_time").
		Prompt("Ask for the time.").
		Edge("confirm", "Confirm", "end")

	b.Add("end").
		Prompt("Thank them.").
		Speak("Goodbye!").
		EndConversation()

	store, err := b.Build()
	if err != nil {
		t.Fatalf("Build() failed: %v", err)
	}

	if got := store.IDs(); len(got) != 3 || got[0] != "start" || got[2] != "end" {
		t.Fatalf("unexpected node order %v", got)
	}

	start := store.Initial()
	if start.SystemPrompt != "Ask how many people are in the party." {
		t.Errorf("unexpected prompt %q", start.SystemPrompt)
	}
	if len(start.Actions) != 2 {
		t.Fatalf("Expected 2 actions, got %d", len(start.Actions))
	}
	if start.Actions[0].Kind != domain.KindNode {
		t.Errorf("record_party_size should be a node action, got %s", start.Actions[0].Kind)
	}
	if a := start.Actions[1]; a.Kind != domain.KindEdge || a.Target != "get_time" {
		t.Errorf("get_time should be an edge to get_time, got %+v", a)
	}

	end, err := store.Get("end")
	if err != nil {
		t.Fatalf("Get('end') failed: %v", err)
	}
	if !end.IsTerminal() {
		t.Error("end should be terminal")
	}
	if len(end.PreActions) != 1 || end.PreActions[0].Type != domain.DirectiveSpeak {
		t.Errorf("unexpected pre actions %+v", end.PreActions)
	}
	if len(end.PostActions) != 1 || end.PostActions[0].Type != domain.DirectiveEndConversation {
		t.Errorf("unexpected post actions %+v", end.PostActions)
	}
}

func TestBuilder_AddReturnsExisting(t *testing.T) {
	b := New("a")
	b.Add("a").Prompt("first")
	b.Add("a").Action("x", "", nil)

	def := b.Definition()
	if len(def.Nodes) != 1 {
		t.Fatalf("expected 1 node, got %d", len(def.Nodes))
	}
	if def.Nodes[0].SystemPrompt != "first" || len(def.Nodes[0].Actions) != 1 {
		t.Errorf("builder lost configuration: %+v", def.Nodes[0])
	}
}

func TestBuilder_InvalidFlow(t *testing.T) {
	b := New("start")
	b.Add("start").Edge("go", "", "missing")

	if _, err := b.Build(); err == nil {
		t.Fatal("expected validation error for dangling edge")
	}

	defer func() {
		if recover() == nil {
			t.Error("MustBuild should panic on invalid flow")
		}
	}()
	b.MustBuild()
}
