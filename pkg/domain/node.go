package domain

// Node is one state of a conversation flow.
type Node struct {
	ID string `json:"id" yaml:"id"`

	// SystemPrompt is appended to the conversation context as a system
	// message every time the node is entered.
	SystemPrompt string `json:"system_prompt" yaml:"system_prompt"`

	// Actions are the functions advertised to the LLM while this node is
	// current. A node without actions is terminal.
	Actions []Action `json:"actions,omitempty" yaml:"actions,omitempty"`

	PreActions  []Directive `json:"pre_actions,omitempty" yaml:"pre_actions,omitempty"`
	PostActions []Directive `json:"post_actions,omitempty" yaml:"post_actions,omitempty"`
}

// IsTerminal reports whether entering the node ends the conversation.
func (n Node) IsTerminal() bool {
	return len(n.Actions) == 0
}

// Action returns the action declared under name, if any.
func (n Node) Action(name string) (Action, bool) {
	for _, a := range n.Actions {
		if a.Name == name {
			return a, true
		}
	}
	return Action{}, false
}

// ActionNames lists the names of the node actions in declaration order.
func (n Node) ActionNames() []string {
	names := make([]string, len(n.Actions))
	for i, a := range n.Actions {
		names[i] = a.Name
	}
	return names
}

// Tools converts the node actions into the tool list advertised to the LLM.
func (n Node) Tools() []Tool {
	tools := make([]Tool, len(n.Actions))
	for i, a := range n.Actions {
		tools[i] = a.Tool()
	}
	return tools
}

// FlowDefinition is the declarative form of a flow graph as read from a source.
type FlowDefinition struct {
	Initial string `json:"initial_node" yaml:"initial_node"`
	Nodes   []Node `json:"nodes" yaml:"nodes"`
}
