package ports

import (
	"context"

	"github.com/albertviilik/pipecat-flows/pkg/domain"
)

// StateStore keeps snapshots of live conversations.
// Entries live only as long as the conversation; they are removed when it ends.
type StateStore interface {
	// Save stores the snapshot for a given conversation ID.
	Save(ctx context.Context, conversationID string, snap *domain.Snapshot) error

	// Load retrieves the snapshot for a given conversation ID.
	// Returns domain.ErrSessionNotFound if the conversation does not exist.
	Load(ctx context.Context, conversationID string) (*domain.Snapshot, error)

	// Delete removes the snapshot for a given conversation ID.
	Delete(ctx context.Context, conversationID string) error

	// List returns the IDs of all stored conversations.
	List(ctx context.Context) ([]string, error)
}
