package settlement

import (
	"context"
	"strconv"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/splitledger/internal/domain/shared"
)

// Repository defines settlement record persistence operations
type Repository interface {
	Create(ctx context.Context, record *Record) error
	GetByID(ctx context.Context, id uuid.UUID) (*Record, error)

	// GetByIDForUpdate obtains a pessimistic lock on the record row.
	// Must be called within a transaction.
	GetByIDForUpdate(ctx context.Context, id uuid.UUID) (*Record, error)

	ListByLedger(ctx context.Context, ledgerID uuid.UUID, limit, offset int) ([]*Record, error)
	CountByLedger(ctx context.Context, ledgerID uuid.UUID) (int64, error)

	// UpdateStatus persists a status transition made on the domain model,
	// including completed_by/completed_at when set
	UpdateStatus(ctx context.Context, record *Record) error

	WithTx(tx pgx.Tx) Repository
}

// ErrSettlementNotFound indicates missing settlement record
type ErrSettlementNotFound struct {
	SettlementID uuid.UUID
}

func (e ErrSettlementNotFound) Error() string {
	return "settlement record not found: " + e.SettlementID.String()
}

// ErrInvalidStatusTransition indicates a forbidden state machine move
type ErrInvalidStatusTransition struct {
	SettlementID uuid.UUID
	From         shared.SettlementStatus
	To           shared.SettlementStatus
}

func (e ErrInvalidStatusTransition) Error() string {
	return "invalid settlement status transition from " + string(e.From) + " to " + string(e.To) + " for settlement: " + e.SettlementID.String()
}

// ErrStaleSettlement indicates the snapshot's debts changed since creation,
// requiring the caller to re-run create
type ErrStaleSettlement struct {
	SettlementID uuid.UUID
}

func (e ErrStaleSettlement) Error() string {
	return "settlement snapshot is stale, re-create the settlement: " + e.SettlementID.String()
}

// ErrUnbalancedLedger indicates active debt balances do not sum to zero
type ErrUnbalancedLedger struct {
	Residual int64
}

func (e ErrUnbalancedLedger) Error() string {
	return "ledger debts violate money conservation, residual: " + strconv.FormatInt(e.Residual, 10)
}

// ErrNothingToSettle indicates the ledger has no active debts to settle
type ErrNothingToSettle struct {
	LedgerID uuid.UUID
}

func (e ErrNothingToSettle) Error() string {
	return "no active debts to settle for ledger: " + e.LedgerID.String()
}
