package schema

// Property is one named parameter of an object schema.
type Property struct {
	name     string
	required bool
	def      map[string]any
}

func newProperty(name, typ string) *Property {
	return &Property{name: name, def: map[string]any{"type": typ}}
}

// String declares a string parameter.
func String(name string) *Property { return newProperty(name, "string") }

// Integer declares an integer parameter.
func Integer(name string) *Property { return newProperty(name, "integer") }

// Number declares a floating-point parameter.
func Number(name string) *Property { return newProperty(name, "number") }

// Boolean declares a boolean parameter.
func Boolean(name string) *Property { return newProperty(name, "boolean") }

// Describe sets the description shown to the LLM.
func (p *Property) Describe(text string) *Property {
	p.def["description"] = text
	return p
}

// Range bounds a numeric parameter, inclusive.
func (p *Property) Range(minimum, maximum float64) *Property {
	p.def["minimum"] = minimum
	p.def["maximum"] = maximum
	return p
}

// Pattern constrains a string parameter with a regular expression.
func (p *Property) Pattern(re string) *Property {
	p.def["pattern"] = re
	return p
}

// Enum restricts the parameter to the given values.
func (p *Property) Enum(values ...any) *Property {
	p.def["enum"] = values
	return p
}

// Required marks the parameter as mandatory.
func (p *Property) Required() *Property {
	p.required = true
	return p
}

// Name returns the parameter name.
func (p *Property) Name() string { return p.name }

// Object renders the properties as an object schema map.
func Object(props ...*Property) map[string]any {
	properties := make(map[string]any, len(props))
	var required []any
	for _, p := range props {
		def := make(map[string]any, len(p.def))
		for k, v := range p.def {
			def[k] = v
		}
		properties[p.name] = def
		if p.required {
			required = append(required, p.name)
		}
	}
	out := map[string]any{
		"type":       "object",
		"properties": properties,
	}
	if len(required) > 0 {
		out["required"] = required
	}
	return out
}

// Empty is the schema of an action without parameters.
func Empty() map[string]any {
	return map[string]any{"type": "object", "properties": map[string]any{}}
}
