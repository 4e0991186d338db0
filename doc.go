/*
Package flows coordinates structured voice or chat conversations with an LLM.

A conversation follows a flow: a graph of nodes, each with its own system
prompt and its own set of actions (functions the LLM may call). A call to a
node action runs a handler and keeps the conversation in place; a call to an
edge action moves it to another node, swapping the prompt and the tool set.
Directives such as "speak" or "end_conversation" run around transitions.

# Building a flow

Flows are declared in Go with package dsl, in YAML/JSON with package graph,
or as Markdown documents with the Loam adapter. All of them produce a
validated node store:

	b := dsl.New("start")
	b.Add("start").
		Prompt("Ask how many people are in the party.").
		Action("record_party_size", "Record the party size", params).
		Edge("get_time", "Proceed to time selection", "get_time")
	...
	store, err := b.Build()

# Running a conversation

	reg := registry.NewRegistry()
	reg.MustRegister("record_party_size", recordPartySize)

	flow, err := flows.New(store, reg, flows.WithLogger(logger))
	err = flow.Initialize(ctx, seed)
	result, err := flow.HandleCall(ctx, domain.Call{Name: "record_party_size", ID: id, Args: args})

A Flow is single-owner. Package session serializes access when several
goroutines (HTTP requests, MCP tools) drive the same conversation, and
package runner drives a flow from an LLM provider turn by turn.
*/
package flows
