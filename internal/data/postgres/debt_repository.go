package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/splitledger/internal/domain/debt"
	"github.com/splitledger/internal/domain/shared"
	"github.com/splitledger/internal/platform/persistence"
)

// DebtRepository implements the debt.Repository interface for PostgreSQL
type DebtRepository struct {
	querier persistence.Querier
	logger  *slog.Logger
}

// NewDebtRepository creates a new PostgreSQL debt relation repository
func NewDebtRepository(logger *slog.Logger, db *persistence.PostgresDB) debt.Repository {
	return &DebtRepository{
		querier: db.Pool(),
		logger:  logger,
	}
}

// WithTx wraps the repository with a transaction for atomic operations
func (r *DebtRepository) WithTx(tx pgx.Tx) debt.Repository {
	return &DebtRepository{
		querier: tx,
		logger:  r.logger,
	}
}

// AcquireLedgerLock takes an exclusive transaction-scoped advisory lock keyed
// on the (ledger, currency) scope. All balance mutations for the scope
// serialize behind it; the lock releases automatically at commit or rollback.
func (r *DebtRepository) AcquireLedgerLock(ctx context.Context, ledgerID uuid.UUID, currency string) error {
	query := `SELECT pg_advisory_xact_lock(hashtextextended($1, 0))`

	if _, err := r.querier.Exec(ctx, query, ledgerID.String()+":"+currency); err != nil {
		r.logger.Error("Failed to acquire ledger advisory lock", "ledger_id", ledgerID.String(), "currency", currency, "error", err)
		return fmt.Errorf("failed to acquire ledger advisory lock: %w", err)
	}
	return nil
}

// GetActivePair retrieves the single Active relation covering the unordered
// member pair, in either direction. Returns nil when no Active relation
// exists for the pair.
func (r *DebtRepository) GetActivePair(ctx context.Context, ledgerID uuid.UUID, currency string, a, b uuid.UUID) (*debt.Relation, error) {
	query := `
		SELECT id, ledger_id, creditor_id, debtor_id, amount, currency, status, locked_by, last_calculated_at, created_at, updated_at
		FROM debt_relations
		WHERE ledger_id = $1 AND currency = $2 AND status = $3
		  AND ((creditor_id = $4 AND debtor_id = $5) OR (creditor_id = $5 AND debtor_id = $4))
	`

	var rel debt.Relation
	err := r.querier.QueryRow(ctx, query, ledgerID, currency, shared.DebtStatusActive, a, b).Scan(
		&rel.ID,
		&rel.LedgerID,
		&rel.CreditorID,
		&rel.DebtorID,
		&rel.Amount,
		&rel.Currency,
		&rel.Status,
		&rel.LockedBy,
		&rel.LastCalculatedAt,
		&rel.CreatedAt,
		&rel.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil // No active relation for this pair yet
		}
		r.logger.Error("Failed to get debt relation pair", "ledger_id", ledgerID.String(), "error", err)
		return nil, fmt.Errorf("failed to get debt relation pair: %w", err)
	}

	return &rel, nil
}

// Upsert inserts the relation or updates its direction, amount, and
// last_calculated_at in place. Netting may flip creditor and debtor, so both
// columns are always rewritten.
func (r *DebtRepository) Upsert(ctx context.Context, relation *debt.Relation) error {
	query := `
		INSERT INTO debt_relations (id, ledger_id, creditor_id, debtor_id, amount, currency, status, locked_by, last_calculated_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (id) DO UPDATE
		SET creditor_id = EXCLUDED.creditor_id,
		    debtor_id = EXCLUDED.debtor_id,
		    amount = EXCLUDED.amount,
		    status = EXCLUDED.status,
		    last_calculated_at = EXCLUDED.last_calculated_at,
		    updated_at = EXCLUDED.updated_at
	`

	_, err := r.querier.Exec(ctx, query,
		relation.ID,
		relation.LedgerID,
		relation.CreditorID,
		relation.DebtorID,
		relation.Amount,
		relation.Currency,
		relation.Status,
		relation.LockedBy,
		relation.LastCalculatedAt,
		relation.CreatedAt,
		relation.UpdatedAt,
	)
	if err != nil {
		r.logger.Error("Failed to upsert debt relation", "id", relation.ID.String(), "error", err)
		return fmt.Errorf("failed to upsert debt relation: %w", err)
	}
	return nil
}

// GetActiveByLedger retrieves Active relations with a positive amount, ordered
// by creditor then debtor for deterministic reads
func (r *DebtRepository) GetActiveByLedger(ctx context.Context, ledgerID uuid.UUID, currency string) ([]*debt.Relation, error) {
	query := `
		SELECT id, ledger_id, creditor_id, debtor_id, amount, currency, status, locked_by, last_calculated_at, created_at, updated_at
		FROM debt_relations
		WHERE ledger_id = $1 AND currency = $2 AND status = $3 AND amount > 0
		ORDER BY creditor_id ASC, debtor_id ASC
	`

	rows, err := r.querier.Query(ctx, query, ledgerID, currency, shared.DebtStatusActive)
	if err != nil {
		r.logger.Error("Failed to list active debt relations", "ledger_id", ledgerID.String(), "error", err)
		return nil, fmt.Errorf("failed to list active debt relations: %w", err)
	}
	defer rows.Close()

	return scanRelations(rows)
}

// GetByIDs retrieves relations by their IDs in any status
func (r *DebtRepository) GetByIDs(ctx context.Context, ids []uuid.UUID) ([]*debt.Relation, error) {
	query := `
		SELECT id, ledger_id, creditor_id, debtor_id, amount, currency, status, locked_by, last_calculated_at, created_at, updated_at
		FROM debt_relations
		WHERE id = ANY($1)
		ORDER BY creditor_id ASC, debtor_id ASC
	`

	rows, err := r.querier.Query(ctx, query, ids)
	if err != nil {
		r.logger.Error("Failed to get debt relations by IDs", "error", err)
		return nil, fmt.Errorf("failed to get debt relations by IDs: %w", err)
	}
	defer rows.Close()

	return scanRelations(rows)
}

// LockForSettlement stamps locked_by on every relation that is still Active
// and unlocked. Returns ErrRelationsModified if any of the ids no longer
// qualifies, leaving it to the caller to roll back.
func (r *DebtRepository) LockForSettlement(ctx context.Context, ids []uuid.UUID, settlementID uuid.UUID) error {
	query := `
		UPDATE debt_relations
		SET locked_by = $1, updated_at = NOW()
		WHERE id = ANY($2) AND status = $3 AND locked_by IS NULL
	`

	result, err := r.querier.Exec(ctx, query, settlementID, ids, shared.DebtStatusActive)
	if err != nil {
		r.logger.Error("Failed to lock debt relations for settlement", "settlement_id", settlementID.String(), "error", err)
		return fmt.Errorf("failed to lock debt relations for settlement: %w", err)
	}
	if result.RowsAffected() != int64(len(ids)) {
		return debt.ErrRelationsModified{Expected: len(ids), Affected: result.RowsAffected()}
	}
	return nil
}

// ReleaseSettlementLock clears locked_by on all relations held by the settlement
func (r *DebtRepository) ReleaseSettlementLock(ctx context.Context, settlementID uuid.UUID) error {
	query := `
		UPDATE debt_relations
		SET locked_by = NULL, updated_at = NOW()
		WHERE locked_by = $1
	`

	if _, err := r.querier.Exec(ctx, query, settlementID); err != nil {
		r.logger.Error("Failed to release settlement lock", "settlement_id", settlementID.String(), "error", err)
		return fmt.Errorf("failed to release settlement lock: %w", err)
	}
	return nil
}

// MarkSettled flips every referenced relation from Active to Settled in one
// statement, releasing the settlement lock as it goes. Returns
// ErrRelationsModified unless all ids were flipped.
func (r *DebtRepository) MarkSettled(ctx context.Context, ids []uuid.UUID, settlementID uuid.UUID, at time.Time) error {
	query := `
		UPDATE debt_relations
		SET status = $1, locked_by = NULL, updated_at = $2
		WHERE id = ANY($3) AND status = $4 AND locked_by = $5
	`

	result, err := r.querier.Exec(ctx, query, shared.DebtStatusSettled, at, ids, shared.DebtStatusActive, settlementID)
	if err != nil {
		r.logger.Error("Failed to mark debt relations settled", "settlement_id", settlementID.String(), "error", err)
		return fmt.Errorf("failed to mark debt relations settled: %w", err)
	}
	if result.RowsAffected() != int64(len(ids)) {
		return debt.ErrRelationsModified{Expected: len(ids), Affected: result.RowsAffected()}
	}
	return nil
}

// Cancel transitions a single relation to Cancelled
func (r *DebtRepository) Cancel(ctx context.Context, id uuid.UUID) error {
	query := `
		UPDATE debt_relations
		SET status = $1, updated_at = NOW()
		WHERE id = $2
	`

	result, err := r.querier.Exec(ctx, query, shared.DebtStatusCancelled, id)
	if err != nil {
		r.logger.Error("Failed to cancel debt relation", "id", id.String(), "error", err)
		return fmt.Errorf("failed to cancel debt relation: %w", err)
	}
	if result.RowsAffected() == 0 {
		return debt.ErrRelationNotFound{RelationID: id}
	}
	return nil
}

func scanRelations(rows pgx.Rows) ([]*debt.Relation, error) {
	var relations []*debt.Relation
	for rows.Next() {
		var rel debt.Relation
		err := rows.Scan(
			&rel.ID,
			&rel.LedgerID,
			&rel.CreditorID,
			&rel.DebtorID,
			&rel.Amount,
			&rel.Currency,
			&rel.Status,
			&rel.LockedBy,
			&rel.LastCalculatedAt,
			&rel.CreatedAt,
			&rel.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan debt relation: %w", err)
		}
		relations = append(relations, &rel)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate debt relations: %w", err)
	}
	return relations, nil
}
