package ports

import (
	"context"
	"testing"
	"time"

	"github.com/albertviilik/pipecat-flows/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func contractSnapshot(id, node string) *domain.Snapshot {
	return &domain.Snapshot{
		ConversationID: id,
		CurrentNodeID:  node,
		Messages: []domain.Message{
			{Role: domain.RoleSystem, Content: "Warmly greet the customer."},
			{Role: domain.RoleAssistant, ToolCalls: []domain.ToolCall{{ID: "c1", Name: "record_party_size", Arguments: []byte(`{"size":4}`)}}},
			{Role: domain.RoleTool, ToolCallID: "c1", Content: `{"size":4,"status":"success"}`},
		},
		Tools:   []domain.Tool{{Name: "record_party_size", Parameters: map[string]any{"type": "object"}}},
		History: []string{node},
	}
}

// RunStateStoreContract runs a suite of tests to verify that a StateStore implementation
// adheres to the defined interface contract.
func RunStateStoreContract(t *testing.T, store StateStore) {
	ctx := context.Background()
	convID := "contract-test-conv-" + time.Now().Format("20060102150405")

	t.Run("Save and Load", func(t *testing.T) {
		snap := contractSnapshot(convID, "start")

		err := store.Save(ctx, convID, snap)
		require.NoError(t, err, "Save should not return error")

		loaded, err := store.Load(ctx, convID)
		require.NoError(t, err, "Load should not return error")
		assert.Equal(t, snap.CurrentNodeID, loaded.CurrentNodeID)
		assert.Equal(t, snap.History, loaded.History)
		require.Len(t, loaded.Messages, 3)
		assert.Equal(t, "c1", loaded.Messages[2].ToolCallID)
		assert.JSONEq(t, `{"size":4}`, string(loaded.Messages[1].ToolCalls[0].Arguments))
		require.Len(t, loaded.Tools, 1)
		assert.Equal(t, "record_party_size", loaded.Tools[0].Name)
	})

	t.Run("Load Non-Existent", func(t *testing.T) {
		_, err := store.Load(ctx, "non-existent-"+convID)
		assert.ErrorIs(t, err, domain.ErrSessionNotFound)
	})

	t.Run("Delete", func(t *testing.T) {
		err := store.Save(ctx, convID, contractSnapshot(convID, "start"))
		require.NoError(t, err)

		err = store.Delete(ctx, convID)
		require.NoError(t, err, "Delete should not return error")

		_, err = store.Load(ctx, convID)
		assert.ErrorIs(t, err, domain.ErrSessionNotFound, "Load after Delete should return ErrSessionNotFound")
	})

	t.Run("List", func(t *testing.T) {
		id1 := convID + "-1"
		id2 := convID + "-2"
		_ = store.Save(ctx, id1, contractSnapshot(id1, "start"))
		_ = store.Save(ctx, id2, contractSnapshot(id2, "get_time"))

		defer func() {
			_ = store.Delete(ctx, id1)
			_ = store.Delete(ctx, id2)
		}()

		ids, err := store.List(ctx)
		require.NoError(t, err)
		assert.Contains(t, ids, id1)
		assert.Contains(t, ids, id2)
	})
}
