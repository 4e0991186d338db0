/*
Package runner drives a flow with an LLM.

It is the bridge between the flow engine, which only reacts to function
calls, and a chat model that produces them. Each user turn is observed into
the context, then the runner alternates between asking the provider for a
completion and handing every requested function call to the flow, in order,
until the model answers without calls.

# Usage

	r := runner.New(flow, provider,
		runner.WithSpeaker(console),
		runner.WithMaxSteps(8),
	)

	if _, err := r.Start(ctx); err != nil {
		log.Fatal(err)
	}
	res, err := r.Turn(ctx, "a table for four, please")

Console adapts a terminal (or any reader and writer) for interactive use and
Chat runs the read-eval loop on top of it.
*/
package runner
