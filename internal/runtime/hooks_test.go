package runtime_test

import (
	"context"
	"testing"

	"github.com/albertviilik/pipecat-flows/internal/runtime"
	"github.com/albertviilik/pipecat-flows/pkg/domain"
)

func TestEngine_LifecycleHooks(t *testing.T) {
	var entered, left, calls, ended []string
	var returned []*domain.ActionEvent

	hooks := domain.LifecycleHooks{
		OnNodeEnter: func(ctx context.Context, e *domain.NodeEvent) {
			entered = append(entered, e.NodeID)
		},
		OnNodeLeave: func(ctx context.Context, e *domain.NodeEvent) {
			left = append(left, e.NodeID)
		},
		OnActionCall: func(ctx context.Context, e *domain.ActionEvent) {
			calls = append(calls, e.Action)
		},
		OnActionReturn: func(ctx context.Context, e *domain.ActionEvent) {
			returned = append(returned, e)
		},
		OnConversationEnd: func(ctx context.Context, e *domain.NodeEvent) {
			ended = append(ended, e.NodeID)
		},
	}

	eng := newRestaurantEngine(t, runtime.WithLifecycleHooks(hooks), runtime.WithConversationID("conv-9"))
	ctx := context.Background()

	if len(entered) != 1 || entered[0] != "start" {
		t.Errorf("Expected enter 'start' on Initialize(), got: %v", entered)
	}

	for _, name := range []string{"record_party_size", "get_time", "confirm", "end"} {
		if _, err := eng.HandleCall(ctx, domain.Call{Name: name, ID: name, Args: map[string]any{"size": 2}}); err != nil {
			t.Fatalf("HandleCall(%s) failed: %v", name, err)
		}
	}

	wantEntered := []string{"start", "get_time", "confirm", "end"}
	wantLeft := []string{"start", "get_time", "confirm"}
	if !equal(entered, wantEntered) {
		t.Errorf("entered = %v, want %v", entered, wantEntered)
	}
	if !equal(left, wantLeft) {
		t.Errorf("left = %v, want %v", left, wantLeft)
	}
	if !equal(calls, []string{"record_party_size", "get_time", "confirm", "end"}) {
		t.Errorf("calls = %v", calls)
	}
	if len(ended) != 1 || ended[0] != "end" {
		t.Errorf("conversation end should fire once at 'end', got %v", ended)
	}

	if len(returned) != 4 {
		t.Fatalf("expected 4 action returns, got %d", len(returned))
	}
	first := returned[0]
	if first.ConversationID != "conv-9" || first.Kind != domain.KindNode || first.IsError {
		t.Errorf("unexpected return event %+v", first)
	}
	if returned[1].Kind != domain.KindEdge || returned[1].NodeID != "start" {
		t.Errorf("edge return should be reported from the source node, got %+v", returned[1])
	}
}

func equal(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
