package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/splitledger/internal/domain/settlement"
	"github.com/splitledger/internal/platform/persistence"
)

// SettlementRepository implements the settlement.Repository interface for
// PostgreSQL. The snapshot collections (participants, summaries, transfers,
// referenced debts) are immutable after creation and stored as JSONB.
type SettlementRepository struct {
	querier persistence.Querier
	logger  *slog.Logger
}

// NewSettlementRepository creates a new PostgreSQL settlement repository
func NewSettlementRepository(logger *slog.Logger, db *persistence.PostgresDB) settlement.Repository {
	return &SettlementRepository{
		querier: db.Pool(),
		logger:  logger,
	}
}

// WithTx wraps the repository with a transaction for atomic operations
func (r *SettlementRepository) WithTx(tx pgx.Tx) settlement.Repository {
	return &SettlementRepository{
		querier: tx,
		logger:  r.logger,
	}
}

// Create stores a new settlement record with its full snapshot
func (r *SettlementRepository) Create(ctx context.Context, record *settlement.Record) error {
	participants, summaries, transfers, relationIDs, err := marshalSnapshot(record)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO settlement_records (id, ledger_id, currency, period_start, period_end, participant_ids, member_summaries, transfers, debt_relation_ids, total_amount, residual, status, initiated_by, completed_by, completed_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)
	`

	_, err = r.querier.Exec(ctx, query,
		record.ID,
		record.LedgerID,
		record.Currency,
		record.PeriodStart,
		record.PeriodEnd,
		participants,
		summaries,
		transfers,
		relationIDs,
		record.TotalAmount,
		record.Residual,
		record.Status,
		record.InitiatedBy,
		record.CompletedBy,
		record.CompletedAt,
		record.CreatedAt,
		record.UpdatedAt,
	)
	if err != nil {
		r.logger.Error("Failed to create settlement record", "error", err)
		return fmt.Errorf("failed to create settlement record: %w", err)
	}

	return nil
}

// GetByID retrieves a settlement record by its ID
func (r *SettlementRepository) GetByID(ctx context.Context, id uuid.UUID) (*settlement.Record, error) {
	query := selectSettlement + ` WHERE id = $1`
	return r.getOne(ctx, query, id)
}

// GetByIDForUpdate obtains a pessimistic lock on the settlement row and
// returns its current state. Must be used within a transaction.
func (r *SettlementRepository) GetByIDForUpdate(ctx context.Context, id uuid.UUID) (*settlement.Record, error) {
	query := selectSettlement + ` WHERE id = $1 FOR UPDATE`
	return r.getOne(ctx, query, id)
}

// ListByLedger retrieves a page of settlement records for a ledger, newest first
func (r *SettlementRepository) ListByLedger(ctx context.Context, ledgerID uuid.UUID, limit, offset int) ([]*settlement.Record, error) {
	query := selectSettlement + `
		WHERE ledger_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`

	rows, err := r.querier.Query(ctx, query, ledgerID, limit, offset)
	if err != nil {
		r.logger.Error("Failed to list settlement records", "ledger_id", ledgerID.String(), "error", err)
		return nil, fmt.Errorf("failed to list settlement records: %w", err)
	}
	defer rows.Close()

	var records []*settlement.Record
	for rows.Next() {
		rec, err := scanSettlement(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate settlement records: %w", err)
	}
	return records, nil
}

// CountByLedger returns the total number of settlement records for a ledger
func (r *SettlementRepository) CountByLedger(ctx context.Context, ledgerID uuid.UUID) (int64, error) {
	query := `SELECT COUNT(*) FROM settlement_records WHERE ledger_id = $1`

	var count int64
	if err := r.querier.QueryRow(ctx, query, ledgerID).Scan(&count); err != nil {
		r.logger.Error("Failed to count settlement records", "ledger_id", ledgerID.String(), "error", err)
		return 0, fmt.Errorf("failed to count settlement records: %w", err)
	}
	return count, nil
}

// UpdateStatus persists a status transition made on the domain model,
// including completed_by/completed_at when set. The snapshot columns stay
// untouched.
func (r *SettlementRepository) UpdateStatus(ctx context.Context, record *settlement.Record) error {
	query := `
		UPDATE settlement_records
		SET status = $1, completed_by = $2, completed_at = $3, updated_at = $4
		WHERE id = $5
	`

	result, err := r.querier.Exec(ctx, query,
		record.Status,
		record.CompletedBy,
		record.CompletedAt,
		record.UpdatedAt,
		record.ID,
	)
	if err != nil {
		r.logger.Error("Failed to update settlement record status", "id", record.ID.String(), "error", err)
		return fmt.Errorf("failed to update settlement record status: %w", err)
	}
	if result.RowsAffected() == 0 {
		return settlement.ErrSettlementNotFound{SettlementID: record.ID}
	}
	return nil
}

const selectSettlement = `
	SELECT id, ledger_id, currency, period_start, period_end, participant_ids, member_summaries, transfers, debt_relation_ids, total_amount, residual, status, initiated_by, completed_by, completed_at, created_at, updated_at
	FROM settlement_records
`

func (r *SettlementRepository) getOne(ctx context.Context, query string, id uuid.UUID) (*settlement.Record, error) {
	rec, err := scanSettlement(r.querier.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, settlement.ErrSettlementNotFound{SettlementID: id}
		}
		r.logger.Error("Failed to get settlement record", "id", id.String(), "error", err)
		return nil, fmt.Errorf("failed to get settlement record: %w", err)
	}
	return rec, nil
}

func scanSettlement(row pgx.Row) (*settlement.Record, error) {
	var rec settlement.Record
	var participants, summaries, transfers, relationIDs []byte

	err := row.Scan(
		&rec.ID,
		&rec.LedgerID,
		&rec.Currency,
		&rec.PeriodStart,
		&rec.PeriodEnd,
		&participants,
		&summaries,
		&transfers,
		&relationIDs,
		&rec.TotalAmount,
		&rec.Residual,
		&rec.Status,
		&rec.InitiatedBy,
		&rec.CompletedBy,
		&rec.CompletedAt,
		&rec.CreatedAt,
		&rec.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal(participants, &rec.ParticipantIDs); err != nil {
		return nil, fmt.Errorf("failed to unmarshal settlement participants: %w", err)
	}
	if err := json.Unmarshal(summaries, &rec.MemberSummaries); err != nil {
		return nil, fmt.Errorf("failed to unmarshal settlement member summaries: %w", err)
	}
	if err := json.Unmarshal(transfers, &rec.Transfers); err != nil {
		return nil, fmt.Errorf("failed to unmarshal settlement transfers: %w", err)
	}
	if err := json.Unmarshal(relationIDs, &rec.DebtRelationIDs); err != nil {
		return nil, fmt.Errorf("failed to unmarshal settlement debt relation IDs: %w", err)
	}
	return &rec, nil
}

func marshalSnapshot(record *settlement.Record) (participants, summaries, transfers, relationIDs []byte, err error) {
	if participants, err = json.Marshal(record.ParticipantIDs); err != nil {
		return nil, nil, nil, nil, fmt.Errorf("failed to marshal settlement participants: %w", err)
	}
	if summaries, err = json.Marshal(record.MemberSummaries); err != nil {
		return nil, nil, nil, nil, fmt.Errorf("failed to marshal settlement member summaries: %w", err)
	}
	if transfers, err = json.Marshal(record.Transfers); err != nil {
		return nil, nil, nil, nil, fmt.Errorf("failed to marshal settlement transfers: %w", err)
	}
	if relationIDs, err = json.Marshal(record.DebtRelationIDs); err != nil {
		return nil, nil, nil, nil, fmt.Errorf("failed to marshal settlement debt relation IDs: %w", err)
	}
	return participants, summaries, transfers, relationIDs, nil
}
