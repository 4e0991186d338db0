package middleware_test

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"io"
	"testing"

	"github.com/albertviilik/pipecat-flows/pkg/adapters/memory"
	"github.com/albertviilik/pipecat-flows/pkg/domain"
	"github.com/albertviilik/pipecat-flows/pkg/persistence/middleware"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func generateKey(t *testing.T) []byte {
	k := make([]byte, 32)
	_, err := io.ReadFull(rand.Reader, k)
	require.NoError(t, err)
	return k
}

func snapshot() *domain.Snapshot {
	return &domain.Snapshot{
		ConversationID: "c1",
		CurrentNodeID:  "get_time",
		Messages: []domain.Message{
			{Role: domain.RoleSystem, Content: "reservation assistant"},
			{Role: domain.RoleUser, Content: "a table for 4, my number is 555-0100"},
		},
		History: []string{"start", "get_time"},
	}
}

func TestEncryption_Roundtrip(t *testing.T) {
	ctx := context.Background()
	underlying := memory.NewStore()
	mw, err := middleware.NewEncryption(middleware.EncryptionConfig{ActiveKey: generateKey(t)})
	require.NoError(t, err)
	store := mw(underlying)

	require.NoError(t, store.Save(ctx, "c1", snapshot()))

	stored, err := underlying.Load(ctx, "c1")
	require.NoError(t, err)
	assert.Equal(t, middleware.SealedNode, stored.CurrentNodeID)
	assert.Equal(t, "c1", stored.ConversationID)
	assert.Empty(t, stored.History)
	require.Len(t, stored.Messages, 1)
	assert.NotContains(t, stored.Messages[0].Content, "555-0100")

	loaded, err := store.Load(ctx, "c1")
	require.NoError(t, err)
	assert.Equal(t, snapshot(), loaded)

	ids, err := store.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"c1"}, ids)

	require.NoError(t, store.Delete(ctx, "c1"))
	_, err = store.Load(ctx, "c1")
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)
}

func TestEncryption_KeyRotation(t *testing.T) {
	ctx := context.Background()
	underlying := memory.NewStore()
	oldKey, newKey := generateKey(t), generateKey(t)

	oldMW, err := middleware.NewEncryption(middleware.EncryptionConfig{ActiveKey: oldKey})
	require.NoError(t, err)
	require.NoError(t, oldMW(underlying).Save(ctx, "c1", snapshot()))

	rotated, err := middleware.NewEncryption(middleware.EncryptionConfig{
		ActiveKey:    newKey,
		FallbackKeys: [][]byte{oldKey},
	})
	require.NoError(t, err)
	loaded, err := rotated(underlying).Load(ctx, "c1")
	require.NoError(t, err)
	assert.Equal(t, "get_time", loaded.CurrentNodeID)

	stranger, err := middleware.NewEncryption(middleware.EncryptionConfig{ActiveKey: generateKey(t)})
	require.NoError(t, err)
	_, err = stranger(underlying).Load(ctx, "c1")
	assert.Error(t, err)
}

func TestEncryption_RejectsPlainSnapshots(t *testing.T) {
	ctx := context.Background()
	underlying := memory.NewStore()
	require.NoError(t, underlying.Save(ctx, "c1", snapshot()))

	mw, err := middleware.NewEncryption(middleware.EncryptionConfig{ActiveKey: generateKey(t)})
	require.NoError(t, err)
	_, err = mw(underlying).Load(ctx, "c1")
	assert.ErrorIs(t, err, middleware.ErrNotSealed)
}

func TestNewEncryption_KeyLength(t *testing.T) {
	_, err := middleware.NewEncryption(middleware.EncryptionConfig{ActiveKey: []byte("short")})
	assert.Error(t, err)

	_, err = middleware.DecodeKey(base64.StdEncoding.EncodeToString([]byte("short")))
	assert.Error(t, err)

	key := generateKey(t)
	got, err := middleware.DecodeKey(base64.StdEncoding.EncodeToString(key))
	require.NoError(t, err)
	assert.Equal(t, key, got)
}

func TestChain(t *testing.T) {
	ctx := context.Background()
	underlying := memory.NewStore()
	mw, err := middleware.NewEncryption(middleware.EncryptionConfig{ActiveKey: generateKey(t)})
	require.NoError(t, err)

	store := middleware.Chain(underlying, mw)
	require.NoError(t, store.Save(ctx, "c1", snapshot()))
	loaded, err := store.Load(ctx, "c1")
	require.NoError(t, err)
	assert.Equal(t, "c1", loaded.ConversationID)
}
