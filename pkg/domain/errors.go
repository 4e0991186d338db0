package domain

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrInvalidGraph is wrapped by every flow graph validation failure.
	ErrInvalidGraph = errors.New("invalid flow graph")

	// ErrNotInitialized is returned when a call arrives before Initialize.
	ErrNotInitialized = errors.New("flow not initialized")

	// ErrAlreadyInitialized is returned by a second Initialize.
	ErrAlreadyInitialized = errors.New("flow already initialized")

	// ErrConversationEnded is returned for calls after the conversation ended.
	ErrConversationEnded = errors.New("conversation ended")

	// ErrSessionNotFound is returned when a conversation ID cannot be found.
	ErrSessionNotFound = errors.New("session not found")
)

// UnknownNodeError is returned when a node ID does not resolve.
type UnknownNodeError struct {
	NodeID string
}

func (e *UnknownNodeError) Error() string {
	return fmt.Sprintf("unknown node %q", e.NodeID)
}

// UnknownActionError is returned when no handler is bound to an action name.
type UnknownActionError struct {
	Name string
}

func (e *UnknownActionError) Error() string {
	return fmt.Sprintf("no handler registered for action %q", e.Name)
}

// ActionNotAvailableError is returned when the LLM calls an action the
// current node does not declare.
type ActionNotAvailableError struct {
	Name      string
	NodeID    string
	Available []string
}

func (e *ActionNotAvailableError) Error() string {
	return fmt.Sprintf("action %q is not available in node %q (available: %s)",
		e.Name, e.NodeID, strings.Join(e.Available, ", "))
}

// DuplicateActionError is returned when registering an already bound name.
type DuplicateActionError struct {
	Name string
}

func (e *DuplicateActionError) Error() string {
	return fmt.Sprintf("action %q is already registered", e.Name)
}

// InvalidArgumentsError is returned for a call whose arguments could not be
// decoded. The call is answered with an error result and not dispatched.
type InvalidArgumentsError struct {
	Name string
	Err  error
}

func (e *InvalidArgumentsError) Error() string {
	return fmt.Sprintf("invalid arguments for action %q: %v", e.Name, e.Err)
}

func (e *InvalidArgumentsError) Unwrap() error { return e.Err }
