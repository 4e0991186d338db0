// Package bedrock implements llm.Provider over the AWS Bedrock Converse API.
package bedrock

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/albertviilik/pipecat-flows/pkg/domain"
	"github.com/albertviilik/pipecat-flows/pkg/llm"
	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime/document"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime/types"
)

// Converser abstracts the Bedrock Converse call for testing.
type Converser interface {
	Converse(ctx context.Context, params *bedrockruntime.ConverseInput, optFns ...func(*bedrockruntime.Options)) (*bedrockruntime.ConverseOutput, error)
}

// Client implements llm.Provider on Bedrock.
type Client struct {
	api         Converser
	model       string
	maxTokens   int32
	temperature *float32
}

// Option configures a Client.
type Option func(*Client)

// WithMaxTokens bounds the length of each completion.
func WithMaxTokens(n int32) Option {
	return func(c *Client) {
		c.maxTokens = n
	}
}

// WithTemperature sets the sampling temperature.
func WithTemperature(t float32) Option {
	return func(c *Client) {
		c.temperature = &t
	}
}

// NewClient creates a provider for model on api.
func NewClient(api Converser, model string, opts ...Option) *Client {
	c := &Client{api: api, model: model}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// NewClientFromConfig loads the default AWS configuration for region.
func NewClientFromConfig(ctx context.Context, region, model string, opts ...Option) (*Client, error) {
	var loadOpts []func(*awsconfig.LoadOptions) error
	if region != "" {
		loadOpts = append(loadOpts, awsconfig.WithRegion(region))
	}
	cfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	return NewClient(bedrockruntime.NewFromConfig(cfg), model, opts...), nil
}

// Name returns the provider name.
func (c *Client) Name() string {
	return "bedrock"
}

// Complete sends the context and tools and returns the assistant message.
func (c *Client) Complete(ctx context.Context, messages []domain.Message, tools []domain.Tool) (domain.Message, error) {
	out, err := c.api.Converse(ctx, c.converseInput(messages, tools))
	if err != nil {
		return domain.Message{}, fmt.Errorf("bedrock converse: %w", err)
	}
	return fromConverseOutput(out)
}

func (c *Client) converseInput(messages []domain.Message, tools []domain.Tool) *bedrockruntime.ConverseInput {
	input := &bedrockruntime.ConverseInput{ModelId: aws.String(c.model)}

	for _, m := range messages {
		if m.Role == domain.RoleSystem {
			input.System = append(input.System, &types.SystemContentBlockMemberText{Value: m.Content})
			continue
		}
		msg := toConverseMessage(m)
		if len(msg.Content) == 0 {
			continue
		}
		// Bedrock requires alternating roles: tool results and the user
		// reply that follows them share one user turn.
		if n := len(input.Messages); n > 0 && input.Messages[n-1].Role == msg.Role {
			input.Messages[n-1].Content = append(input.Messages[n-1].Content, msg.Content...)
			continue
		}
		input.Messages = append(input.Messages, msg)
	}

	if c.maxTokens > 0 || c.temperature != nil {
		ic := &types.InferenceConfiguration{Temperature: c.temperature}
		if c.maxTokens > 0 {
			ic.MaxTokens = aws.Int32(c.maxTokens)
		}
		input.InferenceConfig = ic
	}

	if len(tools) > 0 {
		tc := &types.ToolConfiguration{}
		for _, t := range tools {
			params := t.Parameters
			if params == nil {
				params = map[string]any{"type": "object", "properties": map[string]any{}}
			}
			spec := types.ToolSpecification{
				Name:        aws.String(t.Name),
				InputSchema: &types.ToolInputSchemaMemberJson{Value: document.NewLazyDocument(params)},
			}
			if t.Description != "" {
				spec.Description = aws.String(t.Description)
			}
			tc.Tools = append(tc.Tools, &types.ToolMemberToolSpec{Value: spec})
		}
		input.ToolConfig = tc
	}
	return input
}

func toConverseMessage(m domain.Message) types.Message {
	msg := types.Message{Role: types.ConversationRoleUser}

	switch m.Role {
	case domain.RoleAssistant:
		msg.Role = types.ConversationRoleAssistant
		if m.Content != "" {
			msg.Content = append(msg.Content, &types.ContentBlockMemberText{Value: m.Content})
		}
		for _, tc := range m.ToolCalls {
			var args any = map[string]any{}
			if len(tc.Arguments) > 0 {
				_ = json.Unmarshal(tc.Arguments, &args)
			}
			msg.Content = append(msg.Content, &types.ContentBlockMemberToolUse{
				Value: types.ToolUseBlock{
					ToolUseId: aws.String(tc.ID),
					Name:      aws.String(tc.Name),
					Input:     document.NewLazyDocument(args),
				},
			})
		}
	case domain.RoleTool:
		status := types.ToolResultStatusSuccess
		if failed(m.Content) {
			status = types.ToolResultStatusError
		}
		msg.Content = append(msg.Content, &types.ContentBlockMemberToolResult{
			Value: types.ToolResultBlock{
				ToolUseId: aws.String(m.ToolCallID),
				Content: []types.ToolResultContentBlock{
					&types.ToolResultContentBlockMemberText{Value: m.Content},
				},
				Status: status,
			},
		})
	default:
		if m.Content != "" {
			msg.Content = append(msg.Content, &types.ContentBlockMemberText{Value: m.Content})
		}
	}
	return msg
}

// failed reports whether a tool message carries an error result.
func failed(content string) bool {
	var res domain.Result
	if err := json.Unmarshal([]byte(content), &res); err != nil {
		return false
	}
	return res.Failed()
}

func fromConverseOutput(out *bedrockruntime.ConverseOutput) (domain.Message, error) {
	msgOut, ok := out.Output.(*types.ConverseOutputMemberMessage)
	if !ok {
		return domain.Message{}, fmt.Errorf("%w: unexpected output type %T", llm.ErrEmptyResponse, out.Output)
	}

	msg := domain.Message{Role: domain.RoleAssistant}
	for _, block := range msgOut.Value.Content {
		switch b := block.(type) {
		case *types.ContentBlockMemberText:
			msg.Content += b.Value
		case *types.ContentBlockMemberToolUse:
			var args json.RawMessage
			if b.Value.Input != nil {
				if data, err := b.Value.Input.MarshalSmithyDocument(); err == nil {
					args = data
				}
			}
			msg.ToolCalls = append(msg.ToolCalls, domain.ToolCall{
				ID:        aws.ToString(b.Value.ToolUseId),
				Name:      aws.ToString(b.Value.Name),
				Arguments: args,
			})
		}
	}
	return msg, nil
}
