package domain

import "encoding/json"

// Role identifies the author of a context message.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)

// Message is one entry of the conversation context.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
	Name    string `json:"name,omitempty"`

	// ToolCallID links a tool message to the call it answers.
	ToolCallID string `json:"tool_call_id,omitempty"`

	// ToolCalls holds the function calls requested by an assistant message.
	ToolCalls []ToolCall `json:"tool_calls,omitempty"`
}

// ToolCall is a function call requested by the LLM.
type ToolCall struct {
	ID        string          `json:"id"`
	Name      string          `json:"name"`
	Arguments json.RawMessage `json:"arguments,omitempty"`
}

// Call decodes the raw arguments into a Call. On a decoding failure the
// returned Call carries the error in ArgsErr and has no arguments.
func (tc ToolCall) Call() (Call, error) {
	call := Call{Name: tc.Name, ID: tc.ID, Args: map[string]any{}}
	if len(tc.Arguments) == 0 {
		return call, nil
	}
	if err := json.Unmarshal(tc.Arguments, &call.Args); err != nil {
		call.Args = map[string]any{}
		call.ArgsErr = &InvalidArgumentsError{Name: tc.Name, Err: err}
		return call, call.ArgsErr
	}
	if call.Args == nil {
		call.Args = map[string]any{}
	}
	return call, nil
}

// Tool is the schema of a function advertised to the LLM.
type Tool struct {
	Name        string         `json:"name" yaml:"name" mapstructure:"name"`
	Description string         `json:"description" yaml:"description" mapstructure:"description"`
	Parameters  map[string]any `json:"parameters,omitempty" yaml:"parameters,omitempty" mapstructure:"parameters"`
}

// CloneMessages returns a copy of msgs that shares no slices with it.
func CloneMessages(msgs []Message) []Message {
	if msgs == nil {
		return nil
	}
	out := make([]Message, len(msgs))
	for i, m := range msgs {
		out[i] = m
		if m.ToolCalls != nil {
			out[i].ToolCalls = append([]ToolCall(nil), m.ToolCalls...)
		}
	}
	return out
}
