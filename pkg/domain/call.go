package domain

import "fmt"

// Call is one function call issued by the LLM.
type Call struct {
	Name string         `json:"name"`
	ID   string         `json:"call_id"`
	Args map[string]any `json:"arguments,omitempty"`

	// ArgsErr records why the raw arguments could not be decoded. The
	// engine answers such a call with an error result and never runs it.
	ArgsErr error `json:"-"`
}

// Result is the payload a handler returns for a call.
// A Result with an "error" key denotes a failed call.
type Result map[string]any

// ErrorResult builds a failed result carrying msg.
func ErrorResult(msg string) Result {
	return Result{"error": msg}
}

// Failed reports whether the result carries an error.
func (r Result) Failed() bool {
	_, ok := r["error"]
	return ok
}

// ErrorMessage returns the error carried by the result, if any.
func (r Result) ErrorMessage() string {
	v, ok := r["error"]
	if !ok {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprint(v)
}

// ConversationView is the read-only view of a conversation given to handlers.
type ConversationView interface {
	ConversationID() string
	CurrentNode() string
	Messages() []Message
}
