package registry

import (
	"context"
	"sort"
	"sync"

	"github.com/albertviilik/pipecat-flows/pkg/domain"
)

// HandlerFunc defines the signature for an action implementation.
// It receives the call and a read-only view of the conversation and returns
// the payload the LLM will see. A result carrying an "error" key marks the
// call as failed.
type HandlerFunc func(ctx context.Context, call domain.Call, conv domain.ConversationView) (domain.Result, error)

// Registry binds action names to handlers.
type Registry struct {
	mu       sync.RWMutex
	handlers map[string]HandlerFunc
}

// NewRegistry creates a new empty registry.
func NewRegistry() *Registry {
	return &Registry{
		handlers: make(map[string]HandlerFunc),
	}
}

// Register binds fn to name.
// It returns *domain.DuplicateActionError if name is already bound.
func (r *Registry) Register(name string, fn HandlerFunc) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.handlers[name]; exists {
		return &domain.DuplicateActionError{Name: name}
	}
	r.handlers[name] = fn
	return nil
}

// MustRegister is like Register but panics on error.
func (r *Registry) MustRegister(name string, fn HandlerFunc) {
	if err := r.Register(name, fn); err != nil {
		panic(err)
	}
}

// Dispatch invokes the handler bound to call.Name and returns its result unchanged.
// It returns *domain.UnknownActionError if no handler is bound.
func (r *Registry) Dispatch(ctx context.Context, call domain.Call, conv domain.ConversationView) (domain.Result, error) {
	r.mu.RLock()
	fn, ok := r.handlers[call.Name]
	r.mu.RUnlock()

	if !ok {
		return nil, &domain.UnknownActionError{Name: call.Name}
	}

	return fn(ctx, call, conv)
}

// Has reports whether a handler is bound to name.
func (r *Registry) Has(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.handlers[name]
	return ok
}

// Names returns the bound action names, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.handlers))
	for name := range r.handlers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
