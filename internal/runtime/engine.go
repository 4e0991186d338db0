package runtime

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/albertviilik/pipecat-flows/internal/logging"
	"github.com/albertviilik/pipecat-flows/pkg/domain"
	"github.com/albertviilik/pipecat-flows/pkg/ports"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/albertviilik/pipecat-flows/internal/runtime"

// DirectiveFunc executes one side-effect directive.
type DirectiveFunc func(ctx context.Context, d domain.Directive) error

// Engine drives one conversation through a flow graph.
//
// The engine is single-owner: it holds no locks and callers must not invoke
// HandleCall, Observe or Initialize concurrently. The node store and
// dispatcher are read-only and may be shared between engines.
type Engine struct {
	store      ports.NodeStore
	dispatcher ports.Dispatcher
	directives map[string]DirectiveFunc
	hooks      domain.LifecycleHooks
	logger     *slog.Logger
	speaker    ports.Speaker
	tracer     trace.Tracer
	convID     string

	current     domain.Node
	messages    []domain.Message
	tools       []domain.Tool
	history     []string
	initialized bool
	ended       bool

	done    chan struct{}
	endOnce sync.Once
}

// EngineOption configures an Engine.
type EngineOption func(*Engine)

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) EngineOption {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithLifecycleHooks registers observability hooks.
func WithLifecycleHooks(hooks domain.LifecycleHooks) EngineOption {
	return func(e *Engine) {
		e.hooks = hooks
	}
}

// WithSpeaker sets the sink used by speak directives.
func WithSpeaker(s ports.Speaker) EngineOption {
	return func(e *Engine) {
		e.speaker = s
	}
}

// WithDirective binds a handler to a directive type, replacing any built-in.
func WithDirective(typ string, fn DirectiveFunc) EngineOption {
	return func(e *Engine) {
		e.directives[typ] = fn
	}
}

// WithConversationID tags events, logs and snapshots with id.
func WithConversationID(id string) EngineOption {
	return func(e *Engine) {
		e.convID = id
	}
}

// WithTracerProvider sets the OpenTelemetry provider used for call spans.
func WithTracerProvider(tp trace.TracerProvider) EngineOption {
	return func(e *Engine) {
		if tp != nil {
			e.tracer = tp.Tracer(tracerName)
		}
	}
}

// NewEngine creates an engine for one conversation.
// It fails when a node action of the graph has no handler in dispatcher.
// Edge actions may omit a handler.
func NewEngine(store ports.NodeStore, dispatcher ports.Dispatcher, opts ...EngineOption) (*Engine, error) {
	if store == nil {
		return nil, errors.New("node store is required")
	}
	if dispatcher == nil {
		return nil, errors.New("dispatcher is required")
	}

	e := &Engine{
		store:      store,
		dispatcher: dispatcher,
		directives: make(map[string]DirectiveFunc),
		logger:     logging.NewNop(),
		tracer:     otel.Tracer(tracerName),
		done:       make(chan struct{}),
	}
	e.directives[domain.DirectiveSpeak] = e.speak
	e.directives[domain.DirectiveTTSSay] = e.speak
	e.directives[domain.DirectiveEndConversation] = e.endConversation

	for _, opt := range opts {
		opt(e)
	}
	if e.convID != "" {
		e.logger = e.logger.With("conversation_id", e.convID)
	}

	if err := checkHandlers(store, dispatcher); err != nil {
		return nil, err
	}
	return e, nil
}

func checkHandlers(store ports.NodeStore, dispatcher ports.Dispatcher) error {
	var errs []error
	for _, n := range store.Nodes() {
		for _, a := range n.Actions {
			if a.Kind == domain.KindNode && !dispatcher.Has(a.Name) {
				errs = append(errs, fmt.Errorf("node %q: %w", n.ID, &domain.UnknownActionError{Name: a.Name}))
			}
		}
	}
	return errors.Join(errs...)
}

// Initialize seeds the context and enters the initial node: its system prompt
// is appended, its actions become the advertised tools and its pre_actions run.
func (e *Engine) Initialize(ctx context.Context, seed []domain.Message) error {
	if e.initialized {
		return domain.ErrAlreadyInitialized
	}
	e.initialized = true
	e.messages = domain.CloneMessages(seed)

	initial := e.store.Initial()
	e.setCurrent(initial)
	e.appendPrompt(initial)
	e.emitNodeEnter(ctx, initial.ID)
	e.logger.InfoContext(ctx, "flow initialized", "node", initial.ID, "tools", len(e.tools))

	e.runDirectives(ctx, initial.ID, phasePre, initial.PreActions)
	if initial.IsTerminal() {
		e.finish(ctx)
	}
	return nil
}

// Observe appends a user or assistant message to the context.
// Tool messages are only produced by HandleCall.
func (e *Engine) Observe(msg domain.Message) error {
	if !e.initialized {
		return domain.ErrNotInitialized
	}
	switch msg.Role {
	case domain.RoleUser, domain.RoleAssistant:
	default:
		return fmt.Errorf("cannot observe %q message", msg.Role)
	}
	e.messages = append(e.messages, domain.CloneMessages([]domain.Message{msg})...)
	return nil
}

// Restore rehydrates a fresh engine from a snapshot. Directives are not
// replayed and the advertised tools are recomputed from the graph.
func (e *Engine) Restore(snap *domain.Snapshot) error {
	if e.initialized {
		return domain.ErrAlreadyInitialized
	}
	if snap == nil {
		return errors.New("nil snapshot")
	}
	node, err := e.store.Get(snap.CurrentNodeID)
	if err != nil {
		return err
	}

	e.initialized = true
	if snap.ConversationID != "" && e.convID == "" {
		e.convID = snap.ConversationID
		e.logger = e.logger.With("conversation_id", e.convID)
	}
	e.current = node
	e.tools = node.Tools()
	e.messages = domain.CloneMessages(snap.Messages)
	e.history = append([]string(nil), snap.History...)
	if snap.Ended {
		e.ended = true
		e.endOnce.Do(func() { close(e.done) })
	}
	return nil
}

// CurrentNode returns the ID of the current node.
func (e *Engine) CurrentNode() string {
	return e.current.ID
}

// Tools returns the tools currently advertised to the LLM.
func (e *Engine) Tools() []domain.Tool {
	return append([]domain.Tool(nil), e.tools...)
}

// Messages returns a copy of the conversation context.
func (e *Engine) Messages() []domain.Message {
	return domain.CloneMessages(e.messages)
}

// ConversationID returns the ID the engine was created with.
func (e *Engine) ConversationID() string {
	return e.convID
}

// Ended reports whether the conversation has ended.
func (e *Engine) Ended() bool {
	return e.ended
}

// Done is closed once the conversation ends.
func (e *Engine) Done() <-chan struct{} {
	return e.done
}

// Snapshot returns a copy of the observable state.
func (e *Engine) Snapshot() *domain.Snapshot {
	return &domain.Snapshot{
		ConversationID: e.convID,
		CurrentNodeID:  e.current.ID,
		Messages:       e.Messages(),
		Tools:          e.Tools(),
		History:        append([]string(nil), e.history...),
		Ended:          e.ended,
	}
}

func (e *Engine) setCurrent(n domain.Node) {
	e.current = n
	e.tools = n.Tools()
	e.history = append(e.history, n.ID)
}

func (e *Engine) appendPrompt(n domain.Node) {
	if n.SystemPrompt == "" {
		return
	}
	e.messages = append(e.messages, domain.Message{Role: domain.RoleSystem, Content: n.SystemPrompt})
}

// finish runs the post_actions of the terminal current node and ends the conversation.
func (e *Engine) finish(ctx context.Context) {
	e.runDirectives(ctx, e.current.ID, phasePost, e.current.PostActions)
	e.end(ctx)
}

func (e *Engine) end(ctx context.Context) {
	e.endOnce.Do(func() {
		e.ended = true
		close(e.done)
		e.logger.InfoContext(ctx, "conversation ended", "node", e.current.ID)
		e.emitConversationEnd(ctx, e.current.ID)
	})
}
