package session

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/albertviilik/pipecat-flows/internal/logging"
	"github.com/albertviilik/pipecat-flows/pkg/domain"
	"github.com/albertviilik/pipecat-flows/pkg/ports"
	"github.com/google/uuid"
)

// ErrConversationExists is returned by Start for an ID already in use.
var ErrConversationExists = errors.New("conversation already exists")

// Factory builds the flow of a new conversation. The returned closer, if
// any, releases per-conversation resources and is called exactly once when
// the conversation ends or is deleted.
type Factory func(ctx context.Context, conversationID string) (ports.Flow, io.Closer, error)

type conversation struct {
	flow   ports.Flow
	closer io.Closer
}

// Manager orchestrates conversation access, ensuring safe concurrent operations.
// It uses reference counting to garbage collect unused locks.
type Manager struct {
	factory Factory
	store   ports.StateStore

	mu    sync.Mutex            // guards locks
	locks map[string]*lockEntry // per-conversation locks

	liveMu sync.Mutex
	live   map[string]*conversation

	locker  ports.DistributedLocker
	lockTTL time.Duration
	logger  *slog.Logger
}

// Option configures the Manager.
type Option func(*Manager)

// WithStore keeps snapshots of live conversations in store.
func WithStore(store ports.StateStore) Option {
	return func(m *Manager) {
		m.store = store
	}
}

// WithLocker enables distributed locking.
func WithLocker(locker ports.DistributedLocker) Option {
	return func(m *Manager) {
		m.locker = locker
	}
}

// WithLockTTL bounds how long a distributed lock may be held.
func WithLockTTL(ttl time.Duration) Option {
	return func(m *Manager) {
		m.lockTTL = ttl
	}
}

// WithLogger configures a logger for the Manager.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Manager) {
		m.logger = logger
	}
}

// NewManager creates a manager building conversations with factory.
func NewManager(factory Factory, opts ...Option) *Manager {
	m := &Manager{
		factory: factory,
		locks:   make(map[string]*lockEntry),
		live:    make(map[string]*conversation),
		lockTTL: 30 * time.Second,
		logger:  logging.NewNop(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Start creates and initializes a conversation. An empty id is replaced by a
// fresh UUID. The returned snapshot carries the ID.
func (m *Manager) Start(ctx context.Context, id string, seed []domain.Message) (*domain.Snapshot, error) {
	if id == "" {
		id = uuid.NewString()
	}

	var snap *domain.Snapshot
	err := m.WithLock(ctx, id, func(ctx context.Context) error {
		if m.lookup(id) != nil {
			return fmt.Errorf("%w: %s", ErrConversationExists, id)
		}
		if m.store != nil {
			if _, err := m.store.Load(ctx, id); err == nil {
				return fmt.Errorf("%w: %s", ErrConversationExists, id)
			}
		}

		conv, err := m.build(ctx, id)
		if err != nil {
			return err
		}
		if err := conv.flow.Initialize(ctx, seed); err != nil {
			m.closeConversation(id, conv)
			return fmt.Errorf("initialize conversation %s: %w", id, err)
		}

		m.liveMu.Lock()
		m.live[id] = conv
		m.liveMu.Unlock()
		m.logger.InfoContext(ctx, "conversation started", "conversation_id", id)

		snap = m.settle(ctx, id, conv)
		return nil
	})
	return snap, err
}

// Call runs one function call on the conversation and returns the result
// and the snapshot after it. The error of the flow is returned as is, next
// to the result that was appended to the context.
func (m *Manager) Call(ctx context.Context, id string, call domain.Call) (domain.Result, *domain.Snapshot, error) {
	if call.ID == "" {
		call.ID = "call_" + uuid.NewString()
	}

	var (
		res  domain.Result
		snap *domain.Snapshot
	)
	err := m.WithLock(ctx, id, func(ctx context.Context) error {
		conv, err := m.get(ctx, id)
		if err != nil {
			return err
		}
		var callErr error
		res, callErr = conv.flow.HandleCall(ctx, call)
		snap = m.settle(ctx, id, conv)
		return callErr
	})
	return res, snap, err
}

// Observe appends a user or assistant message to the conversation.
func (m *Manager) Observe(ctx context.Context, id string, msg domain.Message) (*domain.Snapshot, error) {
	var snap *domain.Snapshot
	err := m.WithLock(ctx, id, func(ctx context.Context) error {
		conv, err := m.get(ctx, id)
		if err != nil {
			return err
		}
		if err := conv.flow.Observe(msg); err != nil {
			return err
		}
		snap = m.settle(ctx, id, conv)
		return nil
	})
	return snap, err
}

// Do runs fn with exclusive access to the conversation's flow, then saves
// its state. It is the hook for drivers that perform several steps per turn.
func (m *Manager) Do(ctx context.Context, id string, fn func(context.Context, ports.Flow) error) (*domain.Snapshot, error) {
	var snap *domain.Snapshot
	err := m.WithLock(ctx, id, func(ctx context.Context) error {
		conv, err := m.get(ctx, id)
		if err != nil {
			return err
		}
		fnErr := fn(ctx, conv.flow)
		snap = m.settle(ctx, id, conv)
		return fnErr
	})
	return snap, err
}

// Snapshot returns the current state of a conversation.
func (m *Manager) Snapshot(ctx context.Context, id string) (*domain.Snapshot, error) {
	var snap *domain.Snapshot
	err := m.WithLock(ctx, id, func(ctx context.Context) error {
		if conv := m.lookup(id); conv != nil {
			snap = conv.flow.Snapshot()
			return nil
		}
		if m.store == nil {
			return domain.ErrSessionNotFound
		}
		var err error
		snap, err = m.store.Load(ctx, id)
		return err
	})
	return snap, err
}

// End terminates a conversation, releasing its resources and snapshot.
func (m *Manager) End(ctx context.Context, id string) error {
	return m.WithLock(ctx, id, func(ctx context.Context) error {
		conv := m.lookup(id)
		if conv == nil && m.store == nil {
			return domain.ErrSessionNotFound
		}
		if conv == nil {
			if _, err := m.store.Load(ctx, id); err != nil {
				return err
			}
		}
		m.drop(ctx, id, conv)
		m.logger.InfoContext(ctx, "conversation deleted", "conversation_id", id)
		return nil
	})
}

// List returns the IDs of live conversations, including those only known to the store.
func (m *Manager) List(ctx context.Context) ([]string, error) {
	seen := make(map[string]bool)
	m.liveMu.Lock()
	for id := range m.live {
		seen[id] = true
	}
	m.liveMu.Unlock()

	if m.store != nil {
		ids, err := m.store.List(ctx)
		if err != nil {
			return nil, err
		}
		for _, id := range ids {
			seen[id] = true
		}
	}

	out := make([]string, 0, len(seen))
	for id := range seen {
		out = append(out, id)
	}
	sort.Strings(out)
	return out, nil
}

// Close ends every live conversation held by this manager.
func (m *Manager) Close(ctx context.Context) error {
	m.liveMu.Lock()
	ids := make([]string, 0, len(m.live))
	for id := range m.live {
		ids = append(ids, id)
	}
	m.liveMu.Unlock()

	var errs []error
	for _, id := range ids {
		if err := m.End(ctx, id); err != nil && !errors.Is(err, domain.ErrSessionNotFound) {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (m *Manager) build(ctx context.Context, id string) (*conversation, error) {
	flow, closer, err := m.factory(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("create conversation %s: %w", id, err)
	}
	return &conversation{flow: flow, closer: closer}, nil
}

func (m *Manager) lookup(id string) *conversation {
	m.liveMu.Lock()
	defer m.liveMu.Unlock()
	return m.live[id]
}

// get returns the live conversation, restoring it from the store if needed.
func (m *Manager) get(ctx context.Context, id string) (*conversation, error) {
	if conv := m.lookup(id); conv != nil {
		return conv, nil
	}
	if m.store == nil {
		return nil, domain.ErrSessionNotFound
	}

	snap, err := m.store.Load(ctx, id)
	if err != nil {
		return nil, err
	}
	conv, err := m.build(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := conv.flow.Restore(snap); err != nil {
		m.closeConversation(id, conv)
		return nil, fmt.Errorf("restore conversation %s: %w", id, err)
	}

	m.liveMu.Lock()
	m.live[id] = conv
	m.liveMu.Unlock()
	m.logger.InfoContext(ctx, "conversation restored", "conversation_id", id, "node", snap.CurrentNodeID)
	return conv, nil
}

// settle saves the snapshot of a running conversation or drops an ended one.
func (m *Manager) settle(ctx context.Context, id string, conv *conversation) *domain.Snapshot {
	snap := conv.flow.Snapshot()
	select {
	case <-conv.flow.Done():
		m.drop(ctx, id, conv)
		m.logger.InfoContext(ctx, "conversation ended", "conversation_id", id, "node", snap.CurrentNodeID)
		return snap
	default:
	}

	if m.store != nil {
		if err := m.store.Save(ctx, id, snap); err != nil {
			m.logger.WarnContext(ctx, "failed to save conversation snapshot", "conversation_id", id, "error", err)
		}
	}
	return snap
}

func (m *Manager) drop(ctx context.Context, id string, conv *conversation) {
	m.liveMu.Lock()
	delete(m.live, id)
	m.liveMu.Unlock()

	if conv != nil {
		m.closeConversation(id, conv)
	}
	if m.store != nil {
		if err := m.store.Delete(ctx, id); err != nil {
			m.logger.WarnContext(ctx, "failed to delete conversation snapshot", "conversation_id", id, "error", err)
		}
	}
}

func (m *Manager) closeConversation(id string, conv *conversation) {
	if conv.closer == nil {
		return
	}
	if err := conv.closer.Close(); err != nil {
		m.logger.Warn("failed to release conversation resources", "conversation_id", id, "error", err)
	}
}
