package domain

// ActionKind tells the engine what to do after a call succeeds.
type ActionKind string

const (
	// KindNode actions run a handler and keep the current node.
	KindNode ActionKind = "node"
	// KindEdge actions run an optional handler and then transition to Target.
	KindEdge ActionKind = "edge"
)

// Valid reports whether k is a known kind.
func (k ActionKind) Valid() bool {
	return k == KindNode || k == KindEdge
}

// Action declares a function the LLM may call inside a node.
type Action struct {
	Name        string         `json:"name" yaml:"name" mapstructure:"name"`
	Description string         `json:"description,omitempty" yaml:"description,omitempty" mapstructure:"description"`
	Parameters  map[string]any `json:"parameters,omitempty" yaml:"parameters,omitempty" mapstructure:"parameters"`
	Kind        ActionKind     `json:"kind" yaml:"kind" mapstructure:"kind"`

	// Target is the destination node of an edge action. Empty for node actions.
	Target string `json:"target,omitempty" yaml:"target,omitempty" mapstructure:"target"`
}

// IsEdge reports whether a successful call transitions the conversation.
func (a Action) IsEdge() bool {
	return a.Kind == KindEdge
}

// Tool returns the advertised form of the action.
func (a Action) Tool() Tool {
	return Tool{
		Name:        a.Name,
		Description: a.Description,
		Parameters:  a.Parameters,
	}
}
