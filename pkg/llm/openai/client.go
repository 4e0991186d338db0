// Package openai implements llm.Provider over any OpenAI-compatible chat
// completions endpoint with function calling.
package openai

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/albertviilik/pipecat-flows/internal/logging"
	"github.com/albertviilik/pipecat-flows/pkg/domain"
	"github.com/albertviilik/pipecat-flows/pkg/llm"
	openailib "github.com/sashabaranov/go-openai"
)

// Client implements llm.Provider using the OpenAI-compatible protocol.
type Client struct {
	client  *openailib.Client
	config  *Config
	logger  *slog.Logger
	backoff time.Duration
}

// Option configures a Client.
type Option func(*Client)

// WithLogger sets the logger used for retry warnings.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithBackoff sets the base wait between retries; attempt n waits n times base.
func WithBackoff(base time.Duration) Option {
	return func(c *Client) {
		c.backoff = base
	}
}

// NewClient creates a new OpenAI-compatible client.
func NewClient(config *Config, opts ...Option) (*Client, error) {
	if config == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	clientConfig := openailib.DefaultConfig(config.APIKey)
	if config.BaseURL != "" {
		clientConfig.BaseURL = config.BaseURL
	}

	c := &Client{
		client:  openailib.NewClientWithConfig(clientConfig),
		config:  config,
		logger:  logging.NewNop(),
		backoff: time.Second,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// NewClientFromEnv creates a client using environment variables.
func NewClientFromEnv(opts ...Option) (*Client, error) {
	config, err := NewConfigFromEnv()
	if err != nil {
		return nil, fmt.Errorf("failed to load config from env: %w", err)
	}
	return NewClient(config, opts...)
}

// Name returns the provider name.
func (c *Client) Name() string {
	return "openai"
}

// Complete sends the context and tools and returns the assistant message.
func (c *Client) Complete(ctx context.Context, messages []domain.Message, tools []domain.Tool) (domain.Message, error) {
	if len(messages) == 0 {
		return domain.Message{}, fmt.Errorf("no messages to send")
	}

	req := openailib.ChatCompletionRequest{
		Model:    c.config.Model,
		Messages: toChatMessages(messages),
		Tools:    toTools(tools),
	}
	if c.config.Temperature != nil {
		req.Temperature = *c.config.Temperature
	}
	if c.config.MaxTokens > 0 {
		req.MaxTokens = c.config.MaxTokens
	}

	var (
		resp    openailib.ChatCompletionResponse
		lastErr error
	)
	for attempt := 0; attempt <= c.config.MaxRetries; attempt++ {
		resp, lastErr = c.client.CreateChatCompletion(ctx, req)
		if lastErr == nil {
			break
		}
		if attempt < c.config.MaxRetries {
			wait := time.Duration(attempt+1) * c.backoff
			c.logger.WarnContext(ctx, "llm request failed, retrying",
				"attempt", attempt+1,
				"max_retries", c.config.MaxRetries,
				"wait", wait,
				"error", lastErr,
			)
			select {
			case <-time.After(wait):
			case <-ctx.Done():
				return domain.Message{}, ctx.Err()
			}
		}
	}
	if lastErr != nil {
		return domain.Message{}, fmt.Errorf("llm call failed after %d retries: %w", c.config.MaxRetries, lastErr)
	}
	if len(resp.Choices) == 0 {
		return domain.Message{}, llm.ErrEmptyResponse
	}

	return fromChatMessage(resp.Choices[0].Message), nil
}

// toChatMessages converts the context to the chat format. A system message
// that lands between the tool replies of one assistant turn is moved after
// the last reply, since the API rejects an interrupted tool exchange.
func toChatMessages(messages []domain.Message) []openailib.ChatCompletionMessage {
	out := make([]openailib.ChatCompletionMessage, 0, len(messages))
	var held []openailib.ChatCompletionMessage
	pending := map[string]bool{}

	flush := func() {
		out = append(out, held...)
		held = nil
		clear(pending)
	}

	for _, m := range messages {
		msg := toChatMessage(m)
		switch {
		case m.Role == domain.RoleTool:
			out = append(out, msg)
			delete(pending, m.ToolCallID)
			if len(pending) == 0 {
				flush()
			}
		case m.Role == domain.RoleSystem && len(pending) > 0:
			held = append(held, msg)
		default:
			flush()
			out = append(out, msg)
			for _, tc := range m.ToolCalls {
				pending[tc.ID] = true
			}
		}
	}
	flush()
	return out
}

func toChatMessage(m domain.Message) openailib.ChatCompletionMessage {
	msg := openailib.ChatCompletionMessage{
		Role:       string(m.Role),
		Content:    m.Content,
		ToolCallID: m.ToolCallID,
	}
	if m.Role == domain.RoleTool {
		msg.Name = m.Name
	}
	for _, tc := range m.ToolCalls {
		args := string(tc.Arguments)
		if args == "" {
			args = "{}"
		}
		msg.ToolCalls = append(msg.ToolCalls, openailib.ToolCall{
			ID:   tc.ID,
			Type: openailib.ToolTypeFunction,
			Function: openailib.FunctionCall{
				Name:      tc.Name,
				Arguments: args,
			},
		})
	}
	return msg
}

func toTools(tools []domain.Tool) []openailib.Tool {
	if len(tools) == 0 {
		return nil
	}
	out := make([]openailib.Tool, len(tools))
	for i, t := range tools {
		out[i] = openailib.Tool{
			Type: openailib.ToolTypeFunction,
			Function: &openailib.FunctionDefinition{
				Name:        t.Name,
				Description: t.Description,
				Parameters:  t.Parameters,
			},
		}
	}
	return out
}

func fromChatMessage(m openailib.ChatCompletionMessage) domain.Message {
	msg := domain.Message{Role: domain.RoleAssistant, Content: m.Content}
	for _, tc := range m.ToolCalls {
		msg.ToolCalls = append(msg.ToolCalls, domain.ToolCall{
			ID:        tc.ID,
			Name:      tc.Function.Name,
			Arguments: json.RawMessage(tc.Function.Arguments),
		})
	}
	return msg
}
