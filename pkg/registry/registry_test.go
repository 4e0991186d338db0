package registry_test

import (
	"context"
	"errors"
	"testing"

	"github.com/albertviilik/pipecat-flows/pkg/domain"
	"github.com/albertviilik/pipecat-flows/pkg/registry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func recordSize(_ context.Context, call domain.Call, _ domain.ConversationView) (domain.Result, error) {
	return domain.Result{"status": "success", "size": call.Args["size"]}, nil
}

func TestRegistry_Dispatch(t *testing.T) {
	reg := registry.NewRegistry()
	require.NoError(t, reg.Register("record_party_size", recordSize))

	res, err := reg.Dispatch(context.Background(), domain.Call{
		Name: "record_party_size",
		ID:   "call-1",
		Args: map[string]any{"size": 4},
	}, nil)

	require.NoError(t, err)
	assert.Equal(t, domain.Result{"status": "success", "size": 4}, res)
}

func TestRegistry_DuplicateRegistration(t *testing.T) {
	reg := registry.NewRegistry()
	require.NoError(t, reg.Register("record_time", recordSize))

	err := reg.Register("record_time", recordSize)

	var dup *domain.DuplicateActionError
	require.True(t, errors.As(err, &dup))
	assert.Equal(t, "record_time", dup.Name)
	assert.Panics(t, func() { reg.MustRegister("record_time", recordSize) })
}

func TestRegistry_UnknownAction(t *testing.T) {
	reg := registry.NewRegistry()

	_, err := reg.Dispatch(context.Background(), domain.Call{Name: "get_movies"}, nil)

	var unknown *domain.UnknownActionError
	require.True(t, errors.As(err, &unknown))
	assert.Equal(t, "get_movies", unknown.Name)
}

func TestRegistry_HandlerErrorIsReturnedUnchanged(t *testing.T) {
	reg := registry.NewRegistry()
	boom := errors.New("upstream timeout")
	reg.MustRegister("get_movies", func(context.Context, domain.Call, domain.ConversationView) (domain.Result, error) {
		return nil, boom
	})

	_, err := reg.Dispatch(context.Background(), domain.Call{Name: "get_movies"}, nil)
	assert.ErrorIs(t, err, boom)
}

func TestRegistry_Names(t *testing.T) {
	reg := registry.NewRegistry()
	reg.MustRegister("b", recordSize)
	reg.MustRegister("a", recordSize)

	assert.Equal(t, []string{"a", "b"}, reg.Names())
	assert.True(t, reg.Has("a"))
	assert.False(t, reg.Has("c"))
}
