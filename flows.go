package flows

import (
	"context"
	"log/slog"

	"github.com/albertviilik/pipecat-flows/internal/runtime"
	"github.com/albertviilik/pipecat-flows/pkg/domain"
	"github.com/albertviilik/pipecat-flows/pkg/ports"
	"go.opentelemetry.io/otel/trace"
)

// Version is the library version reported by the CLI and transports.
const Version = "0.4.0"

// DirectiveFunc executes one side-effect directive.
type DirectiveFunc = runtime.DirectiveFunc

// Flow is the high-level entry point of the library: one conversation
// driven through a flow graph. It wraps the internal runtime.
type Flow struct {
	runtime *runtime.Engine
	store   ports.NodeStore
}

// Option defines a functional option for configuring a Flow.
type Option func(*options)

type options struct {
	runtimeOpts []runtime.EngineOption
}

// WithLifecycleHooks registers observability hooks.
func WithLifecycleHooks(hooks domain.LifecycleHooks) Option {
	return func(o *options) {
		o.runtimeOpts = append(o.runtimeOpts, runtime.WithLifecycleHooks(hooks))
	}
}

// WithLogger sets a custom structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		o.runtimeOpts = append(o.runtimeOpts, runtime.WithLogger(logger))
	}
}

// WithSpeaker sets the sink for speak and tts_say directives.
func WithSpeaker(s ports.Speaker) Option {
	return func(o *options) {
		o.runtimeOpts = append(o.runtimeOpts, runtime.WithSpeaker(s))
	}
}

// WithDirective binds a handler to a directive type.
func WithDirective(typ string, fn DirectiveFunc) Option {
	return func(o *options) {
		o.runtimeOpts = append(o.runtimeOpts, runtime.WithDirective(typ, fn))
	}
}

// WithConversationID tags events, logs and snapshots with id.
func WithConversationID(id string) Option {
	return func(o *options) {
		o.runtimeOpts = append(o.runtimeOpts, runtime.WithConversationID(id))
	}
}

// WithTracerProvider sets the OpenTelemetry provider for call spans.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(o *options) {
		o.runtimeOpts = append(o.runtimeOpts, runtime.WithTracerProvider(tp))
	}
}

// New creates a conversation over store, resolving actions through dispatcher.
// It fails when a node action has no bound handler.
func New(store ports.NodeStore, dispatcher ports.Dispatcher, opts ...Option) (*Flow, error) {
	o := &options{}
	for _, opt := range opts {
		opt(o)
	}
	rt, err := runtime.NewEngine(store, dispatcher, o.runtimeOpts...)
	if err != nil {
		return nil, err
	}
	return &Flow{runtime: rt, store: store}, nil
}

// Initialize seeds the context and enters the initial node.
func (f *Flow) Initialize(ctx context.Context, seed []domain.Message) error {
	return f.runtime.Initialize(ctx, seed)
}

// HandleCall runs one LLM function call against the current node.
func (f *Flow) HandleCall(ctx context.Context, call domain.Call) (domain.Result, error) {
	return f.runtime.HandleCall(ctx, call)
}

// Observe appends a user or assistant message to the context.
func (f *Flow) Observe(msg domain.Message) error {
	return f.runtime.Observe(msg)
}

// Restore rehydrates a fresh flow from a snapshot.
func (f *Flow) Restore(snap *domain.Snapshot) error {
	return f.runtime.Restore(snap)
}

// Snapshot returns a copy of the observable state.
func (f *Flow) Snapshot() *domain.Snapshot {
	return f.runtime.Snapshot()
}

// CurrentNode returns the ID of the current node.
func (f *Flow) CurrentNode() string {
	return f.runtime.CurrentNode()
}

// Tools returns the tools currently advertised to the LLM.
func (f *Flow) Tools() []domain.Tool {
	return f.runtime.Tools()
}

// Messages returns a copy of the conversation context.
func (f *Flow) Messages() []domain.Message {
	return f.runtime.Messages()
}

// Ended reports whether the conversation has ended.
func (f *Flow) Ended() bool {
	return f.runtime.Ended()
}

// Done is closed once the conversation ends.
func (f *Flow) Done() <-chan struct{} {
	return f.runtime.Done()
}

// Inspect returns the graph the flow runs on, for visualization tools.
func (f *Flow) Inspect() []domain.Node {
	return f.store.Nodes()
}
