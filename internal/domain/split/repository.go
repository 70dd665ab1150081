package split

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/splitledger/internal/domain/shared"
)

// Repository defines split record persistence operations
type Repository interface {
	// Create stores a record together with its detail rows
	Create(ctx context.Context, record *Record) error

	GetByID(ctx context.Context, id uuid.UUID) (*Record, error)
	GetByTransactionID(ctx context.Context, transactionID uuid.UUID) (*Record, error)
	ListByLedger(ctx context.Context, ledgerID uuid.UUID, limit, offset int) ([]*Record, error)
	CountByLedger(ctx context.Context, ledgerID uuid.UUID) (int64, error)

	// GetByIDForUpdate obtains a pessimistic lock on the record row.
	// Must be called within a transaction.
	GetByIDForUpdate(ctx context.Context, id uuid.UUID) (*Record, error)

	// UpdateStatus persists a status transition made on the domain model
	UpdateStatus(ctx context.Context, record *Record) error

	// ReplaceDetails deletes the record's whole detail set and inserts the new
	// one, updating total and type on the record row in the same call
	ReplaceDetails(ctx context.Context, record *Record) error

	Delete(ctx context.Context, id uuid.UUID) error
	WithTx(tx pgx.Tx) Repository
}

// ErrSplitNotFound indicates missing split record
type ErrSplitNotFound struct {
	SplitID uuid.UUID
}

func (e ErrSplitNotFound) Error() string {
	return "split record not found: " + e.SplitID.String()
}

// ErrInvalidStatusTransition indicates a forbidden state machine move
type ErrInvalidStatusTransition struct {
	SplitID uuid.UUID
	From    shared.SplitStatus
	To      shared.SplitStatus
}

func (e ErrInvalidStatusTransition) Error() string {
	return "invalid split status transition from " + string(e.From) + " to " + string(e.To) + " for split: " + e.SplitID.String()
}
