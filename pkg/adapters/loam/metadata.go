package loam

import "github.com/albertviilik/pipecat-flows/pkg/domain"

// NodeMetadata is the front matter of a node document. The document body
// is the system prompt of the node.
type NodeMetadata struct {
	ID string `json:"id" mapstructure:"id"`

	// Initial marks the node conversations start in. Without it the node
	// named "start" is used.
	Initial bool `json:"initial" mapstructure:"initial"`

	// Library documents only hold actions for other nodes to include.
	Library bool `json:"library" mapstructure:"library"`

	Actions []LoaderAction `json:"actions" mapstructure:"actions"`

	// Include lists library documents whose actions are added to this node.
	// Actions declared on the node shadow included ones of the same name.
	Include []string `json:"include" mapstructure:"include"`

	PreActions  []domain.Directive `json:"pre_actions" mapstructure:"pre_actions"`
	PostActions []domain.Directive `json:"post_actions" mapstructure:"post_actions"`
}

// LoaderAction is an action as written in front matter. An action with a
// target and no kind is an edge.
type LoaderAction struct {
	Name        string         `json:"name" mapstructure:"name"`
	Kind        string         `json:"kind" mapstructure:"kind"`
	Description string         `json:"description" mapstructure:"description"`
	Parameters  map[string]any `json:"parameters" mapstructure:"parameters"`
	Target      string         `json:"target" mapstructure:"target"`
	To          string         `json:"to" mapstructure:"to"`
}
