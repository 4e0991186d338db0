// Package restaurant is a table reservation bot for La Maison: it collects
// the party size and a time between 5 PM and 10 PM, confirms and hangs up.
package restaurant

import (
	"context"
	"io"

	"github.com/albertviilik/pipecat-flows/pkg/bots"
	"github.com/albertviilik/pipecat-flows/pkg/domain"
	"github.com/albertviilik/pipecat-flows/pkg/dsl"
	"github.com/albertviilik/pipecat-flows/pkg/graph"
	"github.com/albertviilik/pipecat-flows/pkg/registry"
	"github.com/albertviilik/pipecat-flows/pkg/schema"
)

// SystemPrompt is the role description the conversation is seeded with.
const SystemPrompt = "You are a restaurant reservation assistant for La Maison, an upscale French restaurant. " +
	"You must ALWAYS use one of the available functions to progress the conversation. " +
	"This is a phone conversations and your responses will be converted to audio. " +
	"Avoid outputting special characters and emojis. Be causal and friendly."

var (
	partySize = schema.Object(schema.Integer("size").Range(1, 12).Required())
	dineTime  = schema.Object(schema.String("time").Pattern(`^([0-1][0-9]|2[0-3]):[0-5][0-9]$`).Required())
)

// Graph builds the reservation flow: start, get_time, confirm, end.
func Graph() (*graph.Store, error) {
	b := dsl.New("start")
	b.Add("start").
		Prompt("Warmly greet the customer and ask how many people are in their party.").
		Action("record_party_size", "Record the number of people in the party", partySize).
		EdgeWith("get_time", "Proceed to time selection", "get_time", schema.Empty())
	b.Add("get_time").
		Prompt("Ask what time they'd like to dine. Restaurant is open 5 PM to 10 PM.").
		Action("record_time", "Record the requested time", dineTime).
		EdgeWith("confirm", "Proceed to confirmation", "confirm", schema.Empty())
	b.Add("confirm").
		Prompt("Confirm the reservation details and end the conversation.").
		EdgeWith("end", "End the conversation", "end", schema.Empty())
	b.Add("end").
		Prompt("Thank them and end the conversation.").
		EndConversation()
	return b.Build()
}

// Register binds the node action handlers.
func Register(reg *registry.Registry) error {
	if err := reg.Register("record_party_size", recordPartySize); err != nil {
		return err
	}
	return reg.Register("record_time", recordTime)
}

// Seed returns the initial context.
func Seed() []domain.Message {
	return []domain.Message{{Role: domain.RoleSystem, Content: SystemPrompt}}
}

// New returns the bot.
func New() (*bots.Bot, error) {
	g, err := Graph()
	if err != nil {
		return nil, err
	}
	return &bots.Bot{
		Name:  "restaurant",
		Graph: g,
		Seed:  Seed(),
		Handlers: func(context.Context) (*registry.Registry, io.Closer, error) {
			reg := registry.NewRegistry()
			return reg, nil, Register(reg)
		},
	}, nil
}

func recordPartySize(_ context.Context, call domain.Call, _ domain.ConversationView) (domain.Result, error) {
	if err := schema.Validate(partySize, call.Args); err != nil {
		return domain.ErrorResult(err.Error()), nil
	}
	var in struct {
		Size int `json:"size"`
	}
	if err := bots.DecodeArgs(call.Args, &in); err != nil {
		return nil, err
	}
	return domain.Result{"status": "success", "size": in.Size}, nil
}

func recordTime(_ context.Context, call domain.Call, _ domain.ConversationView) (domain.Result, error) {
	if err := schema.Validate(dineTime, call.Args); err != nil {
		return domain.ErrorResult(err.Error()), nil
	}
	var in struct {
		Time string `json:"time"`
	}
	if err := bots.DecodeArgs(call.Args, &in); err != nil {
		return nil, err
	}
	return domain.Result{"status": "success", "time": in.Time}, nil
}
