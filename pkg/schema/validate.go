package schema

import (
	"fmt"

	"github.com/xeipuuv/gojsonschema"
)

// Compile checks that params is a valid JSON Schema describing an object.
// A nil map is accepted and means "no parameters".
func Compile(params map[string]any) (*gojsonschema.Schema, error) {
	if params == nil {
		params = Empty()
	}
	if t, ok := params["type"]; ok && t != "object" {
		return nil, fmt.Errorf("parameters must be of type object, got %v", t)
	}
	s, err := gojsonschema.NewSchema(gojsonschema.NewGoLoader(params))
	if err != nil {
		return nil, fmt.Errorf("invalid parameter schema: %w", err)
	}
	return s, nil
}

// Validate checks args against the parameter schema params.
// It returns an *ArgumentsError listing every failing field.
func Validate(params map[string]any, args map[string]any) error {
	s, err := Compile(params)
	if err != nil {
		return err
	}
	if args == nil {
		args = map[string]any{}
	}
	res, err := s.Validate(gojsonschema.NewGoLoader(args))
	if err != nil {
		return fmt.Errorf("validate arguments: %w", err)
	}
	if res.Valid() {
		return nil
	}

	verr := &ArgumentsError{}
	for _, re := range res.Errors() {
		verr.Fields = append(verr.Fields, newFieldError(re))
	}
	return verr
}
