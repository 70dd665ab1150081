package debt

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// Repository defines debt relation persistence operations
type Repository interface {
	// AcquireLedgerLock takes an exclusive transaction-scoped advisory lock on
	// the (ledger, currency) scope, serializing all balance mutations for it.
	// Must be called within a transaction.
	AcquireLedgerLock(ctx context.Context, ledgerID uuid.UUID, currency string) error

	// GetActivePair retrieves the single Active relation covering the unordered
	// member pair, in either direction. Returns nil when no Active relation
	// exists for the pair.
	GetActivePair(ctx context.Context, ledgerID uuid.UUID, currency string, a, b uuid.UUID) (*Relation, error)

	// Upsert inserts the relation or updates its direction, amount, and
	// last_calculated_at in place
	Upsert(ctx context.Context, relation *Relation) error

	// GetActiveByLedger retrieves Active relations with a positive amount,
	// ordered by creditor then debtor for deterministic reads
	GetActiveByLedger(ctx context.Context, ledgerID uuid.UUID, currency string) ([]*Relation, error)

	GetByIDs(ctx context.Context, ids []uuid.UUID) ([]*Relation, error)

	// LockForSettlement stamps locked_by on every relation that is still
	// Active and unlocked. Returns ErrRelationsModified if any of the ids no
	// longer qualifies.
	LockForSettlement(ctx context.Context, ids []uuid.UUID, settlementID uuid.UUID) error

	// ReleaseSettlementLock clears locked_by on all relations held by the settlement
	ReleaseSettlementLock(ctx context.Context, settlementID uuid.UUID) error

	// MarkSettled flips every referenced relation from Active to Settled in one
	// statement. Returns ErrRelationsModified unless all ids were flipped.
	MarkSettled(ctx context.Context, ids []uuid.UUID, settlementID uuid.UUID, at time.Time) error

	// Cancel transitions a single relation to Cancelled
	Cancel(ctx context.Context, id uuid.UUID) error

	WithTx(tx pgx.Tx) Repository
}
