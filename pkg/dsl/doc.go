/*
Package dsl provides a Go DSL for programmatically constructing conversation flows.

It allows developers to define flows with a type-safe, fluent builder instead of
YAML or JSON files. This is particularly useful for flows whose prompts or
parameters are computed, for unit testing, and for IDE autocompletion.

Example usage:

	b := dsl.New("start")

	b.Add("start").
		Prompt("Warmly greet the customer and ask how many people are in their party.").
		Action("record_party_size", "Record the number of people", schema.Object(
			schema.Integer("size").Range(1, 12).Required(),
		)).
		Edge("get_time", "Proceed to time selection", "get_time")

	b.Add("get_time").
		Prompt("Ask what time they'd like to dine.").
		Edge("confirm", "Confirm the reservation", "end")

	b.Add("end").
		Prompt("Thank them and end the conversation.").
		EndConversation()

	store, err := b.Build()
*/
package dsl
