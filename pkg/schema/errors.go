package schema

import (
	"errors"
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

// FieldError is one argument that does not satisfy its parameter schema.
type FieldError struct {
	Field   string // dotted path such as "size" or "guest.name"; empty for the arguments object itself
	Pointer string // JSON pointer to the offending value, "/size"
	Rule    string // failing validator rule, e.g. "required" or "number_lte"
	Message string
	Value   any
}

func (e *FieldError) Error() string {
	field := e.Field
	if field == "" {
		field = "arguments"
	}
	if e.Rule == "required" || e.Value == nil {
		return fmt.Sprintf("%s: %s", field, e.Message)
	}
	return fmt.Sprintf("%s: %s (got %v)", field, e.Message, e.Value)
}

// newFieldError converts a validator result. A missing property is reported
// against the property itself rather than the object that lacks it.
func newFieldError(re gojsonschema.ResultError) *FieldError {
	path := strings.TrimPrefix(re.Context().String("."), gojsonschema.STRING_CONTEXT_ROOT)
	path = strings.TrimPrefix(path, ".")
	if re.Type() == "required" {
		if prop, ok := re.Details()["property"].(string); ok {
			path = strings.TrimPrefix(path+"."+prop, ".")
		}
	}
	fe := &FieldError{
		Field:   path,
		Rule:    re.Type(),
		Message: re.Description(),
		Value:   re.Value(),
	}
	if path != "" {
		fe.Pointer = "/" + strings.ReplaceAll(path, ".", "/")
	}
	return fe
}

// ArgumentsError lists every argument that failed validation.
type ArgumentsError struct {
	Fields []*FieldError
}

func (e *ArgumentsError) Error() string {
	msgs := make([]string, len(e.Fields))
	for i, f := range e.Fields {
		msgs[i] = f.Error()
	}
	return "invalid arguments: " + strings.Join(msgs, "; ")
}

func (e *ArgumentsError) Unwrap() []error {
	errs := make([]error, len(e.Fields))
	for i, f := range e.Fields {
		errs[i] = f
	}
	return errs
}

// Failures returns the field failures carried by err, or nil when err is not
// an *ArgumentsError.
func Failures(err error) []*FieldError {
	var args *ArgumentsError
	if errors.As(err, &args) {
		return args.Fields
	}
	return nil
}
