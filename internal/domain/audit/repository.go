package audit

import (
	"context"

	"github.com/google/uuid"
)

// Repository defines audit trail persistence operations
type Repository interface {
	// Create stores a new entry, returning ErrDuplicateEntry when the event
	// ID was already recorded
	Create(ctx context.Context, entry *Entry) error

	GetByEventID(ctx context.Context, eventID uuid.UUID) (*Entry, error)
	GetBySettlementID(ctx context.Context, settlementID uuid.UUID) ([]*Entry, error)
	GetByLedgerID(ctx context.Context, ledgerID uuid.UUID, limit, offset int) ([]*Entry, error)
	CountByLedgerID(ctx context.Context, ledgerID uuid.UUID) (int64, error)
}
