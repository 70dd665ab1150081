package member

import (
	"context"

	"github.com/google/uuid"
)

// Directory resolves member identities to display names. The member directory
// itself is owned by the surrounding application; this module only reads from
// it to render transfer suggestions.
type Directory interface {
	// Create registers a new member in the directory
	Create(ctx context.Context, m *Member) error

	// GetByID retrieves a member by its ID
	// Returns ErrMemberNotFound if the member doesn't exist
	GetByID(ctx context.Context, id uuid.UUID) (*Member, error)

	// GetByIDs retrieves a batch of members keyed by ID. Unknown IDs are
	// simply absent from the result map.
	GetByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]*Member, error)
}
