package service

import (
	"context"
	"fmt"
	"time"

	"github.com/splitledger/internal/domain/debt"
	"github.com/splitledger/internal/domain/split"
)

// applyDeltas folds the given deltas into the ledger's active debt relations
// one pair at a time. Each pair ends up with at most one active direction;
// opposite-direction amounts net against each other and may flip the
// direction. The repository must already be bound to a transaction holding
// the ledger's advisory lock.
func applyDeltas(ctx context.Context, repo debt.Repository, record *split.Record, deltas []debt.Delta) error {
	now := time.Now()
	for _, d := range deltas {
		existing, err := repo.GetActivePair(ctx, record.LedgerID, record.Currency, d.CreditorID, d.DebtorID)
		if err != nil {
			return err
		}
		if existing != nil && existing.LockedBy != nil {
			return debt.ErrPairLocked{
				LedgerID:     record.LedgerID,
				CreditorID:   existing.CreditorID,
				DebtorID:     existing.DebtorID,
				SettlementID: *existing.LockedBy,
			}
		}

		merged := debt.Merge(existing, d, record.LedgerID, record.Currency, now)
		if err := repo.Upsert(ctx, merged); err != nil {
			return err
		}
	}
	return nil
}

// applySplit folds a split's deltas into the debt relations
func applySplit(ctx context.Context, repo debt.Repository, record *split.Record) error {
	if err := applyDeltas(ctx, repo, record, debt.DeltasFromSplit(record)); err != nil {
		return fmt.Errorf("failed to apply split to debt relations: %w", err)
	}
	return nil
}

// reverseSplit folds the inverse of a split's deltas into the debt relations,
// undoing a previously applied split exactly
func reverseSplit(ctx context.Context, repo debt.Repository, record *split.Record) error {
	if err := applyDeltas(ctx, repo, record, debt.Invert(debt.DeltasFromSplit(record))); err != nil {
		return fmt.Errorf("failed to reverse split from debt relations: %w", err)
	}
	return nil
}
