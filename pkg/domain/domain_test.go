package domain

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
)

func TestResultFailed(t *testing.T) {
	if (Result{"status": "success"}).Failed() {
		t.Error("success result reported as failed")
	}
	r := ErrorResult("Failed to fetch movies")
	if !r.Failed() {
		t.Fatal("error result not reported as failed")
	}
	if got := r.ErrorMessage(); got != "Failed to fetch movies" {
		t.Errorf("ErrorMessage() = %q", got)
	}
	if got := (Result{"error": 42}).ErrorMessage(); got != "42" {
		t.Errorf("ErrorMessage() = %q, want 42", got)
	}
}

func TestToolCallDecode(t *testing.T) {
	tc := ToolCall{ID: "c1", Name: "record_party_size", Arguments: json.RawMessage(`{"size":4}`)}
	call, err := tc.Call()
	if err != nil {
		t.Fatal(err)
	}
	if call.ID != "c1" || call.Name != "record_party_size" || call.Args["size"] != float64(4) {
		t.Errorf("unexpected call %+v", call)
	}

	empty, err := ToolCall{ID: "c2", Name: "get_time"}.Call()
	if err != nil || empty.Args == nil {
		t.Errorf("empty args should decode to an empty map, got %+v, %v", empty, err)
	}

	bad, err := ToolCall{ID: "c3", Name: "get_time", Arguments: json.RawMessage(`{"bogus":`)}.Call()
	var invalid *InvalidArgumentsError
	if !errors.As(err, &invalid) || invalid.Name != "get_time" {
		t.Fatalf("expected InvalidArgumentsError, got %v", err)
	}
	if bad.ArgsErr != err || bad.ID != "c3" || len(bad.Args) != 0 {
		t.Errorf("undecodable call should keep its id and carry the error, got %+v", bad)
	}
}

func TestNodeHelpers(t *testing.T) {
	n := Node{ID: "start", Actions: []Action{
		{Name: "record_party_size", Kind: KindNode},
		{Name: "get_time", Kind: KindEdge, Target: "get_time"},
	}}
	if n.IsTerminal() {
		t.Error("node with actions is not terminal")
	}
	if !(Node{ID: "end"}).IsTerminal() {
		t.Error("node without actions is terminal")
	}
	a, ok := n.Action("get_time")
	if !ok || !a.IsEdge() || a.Target != "get_time" {
		t.Errorf("Action(get_time) = %+v, %v", a, ok)
	}
	if _, ok := n.Action("confirm"); ok {
		t.Error("confirm is not declared")
	}
	if tools := n.Tools(); len(tools) != 2 || tools[1].Name != "get_time" {
		t.Errorf("Tools() = %+v", tools)
	}
}

func TestErrorsAs(t *testing.T) {
	var err error = &ActionNotAvailableError{Name: "confirm", NodeID: "start", Available: []string{"get_time"}}
	var target *ActionNotAvailableError
	if !errors.As(err, &target) || target.NodeID != "start" {
		t.Fatalf("errors.As failed for %v", err)
	}
	if err.Error() != `action "confirm" is not available in node "start" (available: get_time)` {
		t.Errorf("unexpected message %q", err.Error())
	}
}

func TestMergeHooks(t *testing.T) {
	var order []string
	a := LifecycleHooks{OnNodeEnter: func(context.Context, *NodeEvent) { order = append(order, "a") }}
	b := LifecycleHooks{OnNodeEnter: func(context.Context, *NodeEvent) { order = append(order, "b") }}

	merged := MergeHooks(a, LifecycleHooks{}, b)
	merged.OnNodeEnter(context.Background(), &NodeEvent{})

	if len(order) != 2 || order[0] != "a" || order[1] != "b" {
		t.Errorf("hooks ran in order %v", order)
	}
	if merged.OnNodeLeave != nil {
		t.Error("unset hooks should stay nil")
	}
}
