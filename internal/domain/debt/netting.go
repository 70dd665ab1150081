package debt

import (
	"time"

	"github.com/google/uuid"
	"github.com/splitledger/internal/domain/shared"
	"github.com/splitledger/internal/domain/split"
)

// Delta is one pairwise debt change: the debtor owes the creditor Amount more.
// Amounts are always positive; a reversal is expressed by swapping direction.
type Delta struct {
	CreditorID uuid.UUID
	DebtorID   uuid.UUID
	Amount     int64
}

// DeltasFromSplit converts a split record into the pairwise debts it creates:
// every non-payer detail with a positive amount owes that amount to the payer.
func DeltasFromSplit(record *split.Record) []Delta {
	deltas := make([]Delta, 0, len(record.Details))
	for _, d := range record.Details {
		if d.MemberID == record.PayerID || d.Amount <= 0 {
			continue
		}
		deltas = append(deltas, Delta{
			CreditorID: record.PayerID,
			DebtorID:   d.MemberID,
			Amount:     d.Amount,
		})
	}
	return deltas
}

// Invert returns the exact inverse deltas, used to reverse a split's effect
// before an edit or on deletion.
func Invert(deltas []Delta) []Delta {
	inverted := make([]Delta, len(deltas))
	for i, d := range deltas {
		inverted[i] = Delta{CreditorID: d.DebtorID, DebtorID: d.CreditorID, Amount: d.Amount}
	}
	return inverted
}

// Merge folds a delta into the existing Active relation for the pair, or
// creates a fresh relation when none exists. Netting rules: a same-direction
// delta adds to the balance; an opposite-direction delta subtracts, flipping
// creditor and debtor when the sign crosses zero, and leaves a zero-amount
// logically inactive relation when the two cancel exactly.
func Merge(existing *Relation, d Delta, ledgerID uuid.UUID, currency string, now time.Time) *Relation {
	if existing == nil {
		return &Relation{
			ID:               uuid.New(),
			LedgerID:         ledgerID,
			CreditorID:       d.CreditorID,
			DebtorID:         d.DebtorID,
			Amount:           d.Amount,
			Currency:         currency,
			Status:           shared.DebtStatusActive,
			LastCalculatedAt: now,
			CreatedAt:        now,
			UpdatedAt:        now,
		}
	}

	switch {
	case existing.CreditorID == d.CreditorID && existing.DebtorID == d.DebtorID:
		existing.Amount += d.Amount
	case existing.Amount > d.Amount:
		existing.Amount -= d.Amount
	case existing.Amount < d.Amount:
		existing.CreditorID, existing.DebtorID = existing.DebtorID, existing.CreditorID
		existing.Amount = d.Amount - existing.Amount
	default:
		// Opposite directions cancel exactly
		existing.Amount = 0
	}

	existing.LastCalculatedAt = now
	existing.UpdatedAt = now
	return existing
}
