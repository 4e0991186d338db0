package bedrock

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/albertviilik/pipecat-flows/pkg/domain"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime/document"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockConverser struct {
	mock.Mock
}

func (m *mockConverser) Converse(ctx context.Context, params *bedrockruntime.ConverseInput, _ ...func(*bedrockruntime.Options)) (*bedrockruntime.ConverseOutput, error) {
	args := m.Called(ctx, params)
	out, _ := args.Get(0).(*bedrockruntime.ConverseOutput)
	return out, args.Error(1)
}

func TestConverseInput_GroupsTurns(t *testing.T) {
	c := NewClient(nil, "us.amazon.nova-pro-v1:0", WithMaxTokens(512))
	msgs := []domain.Message{
		{Role: domain.RoleSystem, Content: "You are a reservation assistant."},
		{Role: domain.RoleSystem, Content: "Ask for the party size."},
		{Role: domain.RoleUser, Content: "table for four"},
		{Role: domain.RoleAssistant, ToolCalls: []domain.ToolCall{
			{ID: "t1", Name: "record_party_size", Arguments: json.RawMessage(`{"size":4}`)},
			{ID: "t2", Name: "get_time"},
		}},
		{Role: domain.RoleTool, ToolCallID: "t1", Content: `{"status":"success","size":4}`},
		{Role: domain.RoleTool, ToolCallID: "t2", Content: `{"error":"no"}`},
		{Role: domain.RoleSystem, Content: "Ask what time they'd like to dine."},
	}
	tools := []domain.Tool{{Name: "record_time", Description: "Record the requested time"}}

	in := c.converseInput(msgs, tools)

	assert.Equal(t, "us.amazon.nova-pro-v1:0", aws.ToString(in.ModelId))
	require.Len(t, in.System, 3)
	require.Len(t, in.Messages, 3, "user, assistant, grouped tool results")
	assert.Equal(t, types.ConversationRoleUser, in.Messages[0].Role)
	assert.Equal(t, types.ConversationRoleAssistant, in.Messages[1].Role)
	assert.Len(t, in.Messages[1].Content, 2)

	results := in.Messages[2]
	assert.Equal(t, types.ConversationRoleUser, results.Role)
	require.Len(t, results.Content, 2)
	first := results.Content[0].(*types.ContentBlockMemberToolResult)
	assert.Equal(t, types.ToolResultStatusSuccess, first.Value.Status)
	second := results.Content[1].(*types.ContentBlockMemberToolResult)
	assert.Equal(t, types.ToolResultStatusError, second.Value.Status)

	require.NotNil(t, in.ToolConfig)
	require.Len(t, in.ToolConfig.Tools, 1)
	spec := in.ToolConfig.Tools[0].(*types.ToolMemberToolSpec)
	assert.Equal(t, "record_time", aws.ToString(spec.Value.Name))
	assert.EqualValues(t, 512, aws.ToInt32(in.InferenceConfig.MaxTokens))
}

func TestClient_Complete(t *testing.T) {
	api := &mockConverser{}
	api.On("Converse", mock.Anything, mock.AnythingOfType("*bedrockruntime.ConverseInput")).Return(&bedrockruntime.ConverseOutput{
		Output: &types.ConverseOutputMemberMessage{Value: types.Message{
			Role: types.ConversationRoleAssistant,
			Content: []types.ContentBlock{
				&types.ContentBlockMemberText{Value: "Let me note that."},
				&types.ContentBlockMemberToolUse{Value: types.ToolUseBlock{
					ToolUseId: aws.String("tool-1"),
					Name:      aws.String("record_party_size"),
					Input:     document.NewLazyDocument(map[string]any{"size": 4}),
				}},
			},
		}},
		StopReason: types.StopReasonToolUse,
	}, nil)

	c := NewClient(api, "model")
	msg, err := c.Complete(context.Background(), []domain.Message{{Role: domain.RoleUser, Content: "four"}}, nil)
	require.NoError(t, err)
	assert.Equal(t, "Let me note that.", msg.Content)
	require.Len(t, msg.ToolCalls, 1)
	call, err := msg.ToolCalls[0].Call()
	require.NoError(t, err)
	assert.Equal(t, "record_party_size", call.Name)
	assert.EqualValues(t, 4, call.Args["size"])
	api.AssertExpectations(t)
}

func TestClient_CompleteError(t *testing.T) {
	api := &mockConverser{}
	api.On("Converse", mock.Anything, mock.Anything).Return(nil, errors.New("throttled"))

	_, err := NewClient(api, "model").Complete(context.Background(), []domain.Message{{Role: domain.RoleUser, Content: "hi"}}, nil)
	assert.ErrorContains(t, err, "throttled")
}
