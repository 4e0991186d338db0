package compiler

import (
	"fmt"

	"github.com/albertviilik/pipecat-flows/pkg/domain"
	"github.com/mitchellh/mapstructure"
	"gopkg.in/yaml.v3"
)

// Parser converts flow files (YAML or JSON) into a domain.FlowDefinition.
// The result is not validated; that is the node store's job.
type Parser struct{}

// NewParser creates a new parser instance.
func NewParser() *Parser {
	return &Parser{}
}

type flowFile struct {
	InitialNode string              `mapstructure:"initial_node"`
	Nodes       map[string]nodeFile `mapstructure:"nodes"`
}

type nodeFile struct {
	SystemPrompt string           `mapstructure:"system_prompt"`
	Messages     []messageFile    `mapstructure:"messages"`
	Actions      []actionFile     `mapstructure:"actions"`
	Functions    []map[string]any `mapstructure:"functions"`
	PreActions   []directiveFile  `mapstructure:"pre_actions"`
	PostActions  []directiveFile  `mapstructure:"post_actions"`
}

type messageFile struct {
	Role    string `mapstructure:"role"`
	Content string `mapstructure:"content"`
}

type actionFile struct {
	Name        string         `mapstructure:"name"`
	Description string         `mapstructure:"description"`
	Parameters  map[string]any `mapstructure:"parameters"`
	Kind        string         `mapstructure:"kind"`
	Target      string         `mapstructure:"target"`
}

type directiveFile struct {
	Type   string         `mapstructure:"type"`
	Text   string         `mapstructure:"text"`
	Params map[string]any `mapstructure:",remain"`
}

// Parse decodes a flow file. Node order follows the file.
func (p *Parser) Parse(data []byte) (domain.FlowDefinition, error) {
	var def domain.FlowDefinition

	var root yaml.Node
	if err := yaml.Unmarshal(data, &root); err != nil {
		return def, fmt.Errorf("failed to parse flow: %w", err)
	}
	order := nodeOrder(&root)

	var raw map[string]any
	if err := root.Decode(&raw); err != nil {
		return def, fmt.Errorf("failed to parse flow: %w", err)
	}

	var file flowFile
	if err := mapstructure.Decode(raw, &file); err != nil {
		return def, fmt.Errorf("failed to decode flow: %w", err)
	}

	def.Initial = file.InitialNode
	for _, id := range order {
		nf := file.Nodes[id]
		node, err := convertNode(id, nf, file.Nodes)
		if err != nil {
			return def, err
		}
		def.Nodes = append(def.Nodes, node)
	}
	return def, nil
}

// nodeOrder returns the keys of the top-level "nodes" mapping in file order.
func nodeOrder(root *yaml.Node) []string {
	doc := root
	if doc.Kind == yaml.DocumentNode && len(doc.Content) > 0 {
		doc = doc.Content[0]
	}
	if doc.Kind != yaml.MappingNode {
		return nil
	}
	for i := 0; i+1 < len(doc.Content); i += 2 {
		if doc.Content[i].Value != "nodes" {
			continue
		}
		nodes := doc.Content[i+1]
		var ids []string
		for j := 0; j+1 < len(nodes.Content); j += 2 {
			ids = append(ids, nodes.Content[j].Value)
		}
		return ids
	}
	return nil
}

func convertNode(id string, nf nodeFile, all map[string]nodeFile) (domain.Node, error) {
	node := domain.Node{ID: id, SystemPrompt: nf.SystemPrompt}

	if node.SystemPrompt == "" {
		for _, m := range nf.Messages {
			if m.Role != "" && m.Role != string(domain.RoleSystem) {
				continue
			}
			if node.SystemPrompt != "" {
				node.SystemPrompt += "\n"
			}
			node.SystemPrompt += m.Content
		}
	}

	for _, a := range nf.Actions {
		node.Actions = append(node.Actions, domain.Action{
			Name:        a.Name,
			Description: a.Description,
			Parameters:  a.Parameters,
			Kind:        domain.ActionKind(a.Kind),
			Target:      a.Target,
		})
	}

	legacy, err := legacyFunctions(nf.Functions, all)
	if err != nil {
		return node, fmt.Errorf("node %s: %w", id, err)
	}
	node.Actions = append(node.Actions, legacy...)

	node.PreActions = convertDirectives(nf.PreActions)
	node.PostActions = convertDirectives(nf.PostActions)
	return node, nil
}

func convertDirectives(in []directiveFile) []domain.Directive {
	if len(in) == 0 {
		return nil
	}
	out := make([]domain.Directive, len(in))
	for i, d := range in {
		out[i] = domain.Directive{Type: d.Type, Text: d.Text}
		if len(d.Params) > 0 {
			out[i].Params = d.Params
		}
	}
	return out
}

// legacyFunctions accepts function lists in the OpenAI shape
// ({type: function, function: {...}}), the Gemini shape
// ({function_declarations: [...]}) or bare declarations. A function named
// after a node is an edge to that node unless it says otherwise.
func legacyFunctions(fns []map[string]any, nodes map[string]nodeFile) ([]domain.Action, error) {
	var decls []map[string]any
	for _, fn := range fns {
		switch {
		case fn["function"] != nil:
			inner, ok := fn["function"].(map[string]any)
			if !ok {
				return nil, fmt.Errorf("function entry must be an object, got %T", fn["function"])
			}
			decls = append(decls, inner)
		case fn["function_declarations"] != nil:
			list, ok := fn["function_declarations"].([]any)
			if !ok {
				return nil, fmt.Errorf("function_declarations must be a list, got %T", fn["function_declarations"])
			}
			for _, item := range list {
				m, ok := item.(map[string]any)
				if !ok {
					return nil, fmt.Errorf("function declaration must be an object, got %T", item)
				}
				decls = append(decls, m)
			}
		default:
			decls = append(decls, fn)
		}
	}

	actions := make([]domain.Action, 0, len(decls))
	for _, d := range decls {
		var af actionFile
		if err := mapstructure.Decode(d, &af); err != nil {
			return nil, fmt.Errorf("failed to decode function: %w", err)
		}
		if af.Kind == "" {
			if _, isNode := nodes[af.Name]; isNode {
				af.Kind = string(domain.KindEdge)
				if af.Target == "" {
					af.Target = af.Name
				}
			} else {
				af.Kind = string(domain.KindNode)
			}
		}
		actions = append(actions, domain.Action{
			Name:        af.Name,
			Description: af.Description,
			Parameters:  af.Parameters,
			Kind:        domain.ActionKind(af.Kind),
			Target:      af.Target,
		})
	}
	return actions, nil
}
