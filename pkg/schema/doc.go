// Package schema builds and checks the JSON Schema fragments that describe
// action parameters.
//
// Parameters are declared in Go with small builders and rendered into the
// plain map form advertised to the LLM:
//
//	params := schema.Object(
//	    schema.Integer("size").Describe("Number of people").Range(1, 12).Required(),
//	)
//
// Compile checks that a parameter map is a usable JSON Schema. Validate checks
// arguments against it. The flow engine itself never validates arguments; the
// LLM provider is trusted to honor the advertised schema, so Validate is meant
// for handlers and tooling that want a second look.
package schema
