package debt

import (
	"time"

	"github.com/google/uuid"
	"github.com/splitledger/internal/domain/shared"
)

// Relation represents the net balance for one ordered (creditor, debtor) pair
// within one (ledger, currency). For any unordered pair at most one direction
// is Active at a time; opposite-direction debts are always pre-netted into a
// single signed relation.
type Relation struct {
	ID               uuid.UUID         `json:"id"`
	LedgerID         uuid.UUID         `json:"ledger_id"`
	CreditorID       uuid.UUID         `json:"creditor_id"`
	DebtorID         uuid.UUID         `json:"debtor_id"`
	Amount           int64             `json:"amount"` // Stored in cents/minor units, >= 0
	Currency         string            `json:"currency"`
	Status           shared.DebtStatus `json:"status"`
	LockedBy         *uuid.UUID        `json:"locked_by,omitempty"` // Settlement holding the advisory lock
	LastCalculatedAt time.Time         `json:"last_calculated_at"`
	CreatedAt        time.Time         `json:"created_at"`
	UpdatedAt        time.Time         `json:"updated_at"`
}

// Zero reports whether the relation is logically inactive: still Active in
// status but carrying no balance after netting cancelled it out exactly.
func (r *Relation) Zero() bool {
	return r.Amount == 0
}

// ErrRelationNotFound indicates missing debt relation
type ErrRelationNotFound struct {
	RelationID uuid.UUID
}

func (e ErrRelationNotFound) Error() string {
	return "debt relation not found: " + e.RelationID.String()
}

// ErrPairLocked indicates the pair is locked by an in-progress settlement
type ErrPairLocked struct {
	LedgerID     uuid.UUID
	CreditorID   uuid.UUID
	DebtorID     uuid.UUID
	SettlementID uuid.UUID
}

func (e ErrPairLocked) Error() string {
	return "debt relation between " + e.CreditorID.String() + " and " + e.DebtorID.String() +
		" is locked by in-progress settlement: " + e.SettlementID.String()
}

// ErrRelationsModified indicates a bulk status flip touched fewer rows than
// expected, meaning some relations changed underneath the caller
type ErrRelationsModified struct {
	Expected int
	Affected int64
}

func (e ErrRelationsModified) Error() string {
	return "debt relations modified concurrently: expected to update all referenced relations"
}
