package memory_test

import (
	"context"
	"testing"

	"github.com/albertviilik/pipecat-flows/pkg/adapters/memory"
	"github.com/albertviilik/pipecat-flows/pkg/domain"
	"github.com/albertviilik/pipecat-flows/pkg/ports"
	"github.com/albertviilik/pipecat-flows/pkg/ports/tests"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStore_Contract(t *testing.T) {
	store := memory.NewStore()
	ports.RunStateStoreContract(t, store)
}

func TestMemoryStore_CopyOnRead(t *testing.T) {
	store := memory.NewStore()
	ctx := context.Background()
	snap := &domain.Snapshot{CurrentNodeID: "start", History: []string{"start"}}
	require.NoError(t, store.Save(ctx, "c1", snap))

	snap.History[0] = "mutated"
	loaded, err := store.Load(ctx, "c1")
	require.NoError(t, err)
	loaded.History = append(loaded.History, "other")

	again, err := store.Load(ctx, "c1")
	require.NoError(t, err)
	assert.Equal(t, []string{"start"}, again.History)
}

func TestMemoryLoader_Contract(t *testing.T) {
	nodes := []domain.Node{
		{ID: "greeting", SystemPrompt: "Greet.", Actions: []domain.Action{{Name: "explore_movie", Kind: domain.KindEdge, Target: "explore_movie"}}},
		{ID: "explore_movie", SystemPrompt: "Explore."},
	}
	loader, err := memory.NewFromNodes("greeting", nodes...)
	require.NoError(t, err)

	tests.FlowLoaderContractTest(t, loader, domain.FlowDefinition{Initial: "greeting", Nodes: nodes})

	_, err = memory.NewFromNodes("x", domain.Node{})
	assert.Error(t, err)
}
