package dsl

import "github.com/albertviilik/pipecat-flows/pkg/domain"

// NodeBuilder provides a fluent API for configuring a node.
type NodeBuilder struct {
	node    domain.Node
	builder *Builder
}

// Prompt sets the system prompt appended when the node is entered.
func (n *NodeBuilder) Prompt(content string) *NodeBuilder {
	n.node.SystemPrompt = content
	return n
}

// Action declares a node action: the handler runs and the conversation stays here.
func (n *NodeBuilder) Action(name, description string, params map[string]any) *NodeBuilder {
	n.node.Actions = append(n.node.Actions, domain.Action{
		Name:        name,
		Description: description,
		Parameters:  params,
		Kind:        domain.KindNode,
	})
	return n
}

// Edge declares an edge action that moves the conversation to target.
func (n *NodeBuilder) Edge(name, description, target string) *NodeBuilder {
	return n.EdgeWith(name, description, target, nil)
}

// EdgeWith declares an edge action that takes parameters.
func (n *NodeBuilder) EdgeWith(name, description, target string, params map[string]any) *NodeBuilder {
	n.node.Actions = append(n.node.Actions, domain.Action{
		Name:        name,
		Description: description,
		Parameters:  params,
		Kind:        domain.KindEdge,
		Target:      target,
	})
	return n
}

// Pre adds a directive run when the node is entered.
func (n *NodeBuilder) Pre(d domain.Directive) *NodeBuilder {
	n.node.PreActions = append(n.node.PreActions, d)
	return n
}

// Post adds a directive run when the node is left.
func (n *NodeBuilder) Post(d domain.Directive) *NodeBuilder {
	n.node.PostActions = append(n.node.PostActions, d)
	return n
}

// Speak adds a pre-action speaking text on entry.
func (n *NodeBuilder) Speak(text string) *NodeBuilder {
	return n.Pre(domain.Speak(text))
}

// EndConversation marks the node terminal and ends the conversation on entry.
func (n *NodeBuilder) EndConversation() *NodeBuilder {
	return n.Terminal().Post(domain.EndConversation())
}

// Terminal removes every action so that entering the node ends the flow.
func (n *NodeBuilder) Terminal() *NodeBuilder {
	n.node.Actions = nil
	return n
}

// Build returns the underlying domain.Node.
// This is primarily used by the Builder, but exposed for advanced usage.
func (n *NodeBuilder) Build() domain.Node {
	return n.node
}
