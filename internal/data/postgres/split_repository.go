// Package postgres provides PostgreSQL implementations of the domain repositories.
// It handles all database operations while maintaining transaction safety and
// proper error handling for the split ledger system.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
	"github.com/splitledger/internal/domain/split"
	"github.com/splitledger/internal/platform/persistence"
)

// SplitRepository implements the split.Repository interface for PostgreSQL
type SplitRepository struct {
	querier persistence.Querier // Can be *pgxpool.Pool or pgx.Tx
	logger  *slog.Logger
}

// NewSplitRepository creates a new PostgreSQL split repository.
// It expects db.Pool() to satisfy persistence.Querier.
func NewSplitRepository(logger *slog.Logger, db *persistence.PostgresDB) split.Repository {
	return &SplitRepository{
		querier: db.Pool(),
		logger:  logger,
	}
}

// WithTx wraps the repository with a transaction, allowing for atomic operations
// across multiple repository calls
func (r *SplitRepository) WithTx(tx pgx.Tx) split.Repository {
	return &SplitRepository{
		querier: tx,
		logger:  r.logger,
	}
}

// Create stores a split record together with its detail rows. The record row
// and detail rows must land atomically, so callers run this inside a
// transaction via WithTx.
func (r *SplitRepository) Create(ctx context.Context, record *split.Record) error {
	query := `
		INSERT INTO split_records (id, transaction_id, ledger_id, payer_id, total, currency, split_type, status, paid_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`

	_, err := r.querier.Exec(ctx, query,
		record.ID,
		record.TransactionID,
		record.LedgerID,
		record.PayerID,
		record.Total,
		record.Currency,
		record.Type,
		record.Status,
		record.PaidAt,
		record.CreatedAt,
		record.UpdatedAt,
	)
	if err != nil {
		r.logger.Error("Failed to create split record", "error", err)
		return fmt.Errorf("failed to create split record: %w", err)
	}

	if err := r.insertDetails(ctx, record.ID, record.Details); err != nil {
		return err
	}

	return nil
}

// GetByID retrieves a split record with its details by its ID
func (r *SplitRepository) GetByID(ctx context.Context, id uuid.UUID) (*split.Record, error) {
	query := `
		SELECT id, transaction_id, ledger_id, payer_id, total, currency, split_type, status, paid_at, created_at, updated_at
		FROM split_records
		WHERE id = $1
	`
	return r.getOne(ctx, query, id, split.ErrSplitNotFound{SplitID: id})
}

// GetByTransactionID retrieves the split record covering a transaction
func (r *SplitRepository) GetByTransactionID(ctx context.Context, transactionID uuid.UUID) (*split.Record, error) {
	query := `
		SELECT id, transaction_id, ledger_id, payer_id, total, currency, split_type, status, paid_at, created_at, updated_at
		FROM split_records
		WHERE transaction_id = $1
	`

	var rec split.Record
	err := r.querier.QueryRow(ctx, query, transactionID).Scan(
		&rec.ID,
		&rec.TransactionID,
		&rec.LedgerID,
		&rec.PayerID,
		&rec.Total,
		&rec.Currency,
		&rec.Type,
		&rec.Status,
		&rec.PaidAt,
		&rec.CreatedAt,
		&rec.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil // No split recorded for this transaction
		}
		r.logger.Error("Failed to get split record by transaction ID", "transaction_id", transactionID.String(), "error", err)
		return nil, fmt.Errorf("failed to get split record by transaction ID: %w", err)
	}

	if err := r.loadDetails(ctx, &rec); err != nil {
		return nil, err
	}
	return &rec, nil
}

// GetByIDForUpdate obtains a pessimistic lock on the split record row and
// returns its current state. Must be used within a transaction.
func (r *SplitRepository) GetByIDForUpdate(ctx context.Context, id uuid.UUID) (*split.Record, error) {
	query := `
		SELECT id, transaction_id, ledger_id, payer_id, total, currency, split_type, status, paid_at, created_at, updated_at
		FROM split_records
		WHERE id = $1
		FOR UPDATE
	`
	return r.getOne(ctx, query, id, split.ErrSplitNotFound{SplitID: id})
}

// ListByLedger retrieves a page of split records for a ledger, newest first
func (r *SplitRepository) ListByLedger(ctx context.Context, ledgerID uuid.UUID, limit, offset int) ([]*split.Record, error) {
	query := `
		SELECT id, transaction_id, ledger_id, payer_id, total, currency, split_type, status, paid_at, created_at, updated_at
		FROM split_records
		WHERE ledger_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`

	rows, err := r.querier.Query(ctx, query, ledgerID, limit, offset)
	if err != nil {
		r.logger.Error("Failed to list split records", "ledger_id", ledgerID.String(), "error", err)
		return nil, fmt.Errorf("failed to list split records: %w", err)
	}
	defer rows.Close()

	var records []*split.Record
	for rows.Next() {
		var rec split.Record
		err := rows.Scan(
			&rec.ID,
			&rec.TransactionID,
			&rec.LedgerID,
			&rec.PayerID,
			&rec.Total,
			&rec.Currency,
			&rec.Type,
			&rec.Status,
			&rec.PaidAt,
			&rec.CreatedAt,
			&rec.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan split record: %w", err)
		}
		records = append(records, &rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate split records: %w", err)
	}

	for _, rec := range records {
		if err := r.loadDetails(ctx, rec); err != nil {
			return nil, err
		}
	}
	return records, nil
}

// CountByLedger returns the total number of split records for a ledger
func (r *SplitRepository) CountByLedger(ctx context.Context, ledgerID uuid.UUID) (int64, error) {
	query := `SELECT COUNT(*) FROM split_records WHERE ledger_id = $1`

	var count int64
	if err := r.querier.QueryRow(ctx, query, ledgerID).Scan(&count); err != nil {
		r.logger.Error("Failed to count split records", "ledger_id", ledgerID.String(), "error", err)
		return 0, fmt.Errorf("failed to count split records: %w", err)
	}
	return count, nil
}

// UpdateStatus persists a status transition made on the domain model,
// including paid_at when the record reached Paid
func (r *SplitRepository) UpdateStatus(ctx context.Context, record *split.Record) error {
	query := `
		UPDATE split_records
		SET status = $1, paid_at = $2, updated_at = $3
		WHERE id = $4
	`

	result, err := r.querier.Exec(ctx, query,
		record.Status,
		record.PaidAt,
		record.UpdatedAt,
		record.ID,
	)
	if err != nil {
		r.logger.Error("Failed to update split record status", "id", record.ID.String(), "error", err)
		return fmt.Errorf("failed to update split record status: %w", err)
	}
	if result.RowsAffected() == 0 {
		return split.ErrSplitNotFound{SplitID: record.ID}
	}

	if record.PaidAt != nil {
		detailQuery := `
			UPDATE split_details
			SET is_paid = TRUE, paid_at = $1
			WHERE split_id = $2
		`
		if _, err := r.querier.Exec(ctx, detailQuery, record.PaidAt, record.ID); err != nil {
			r.logger.Error("Failed to mark split details paid", "id", record.ID.String(), "error", err)
			return fmt.Errorf("failed to mark split details paid: %w", err)
		}
	}

	return nil
}

// ReplaceDetails deletes the record's whole detail set and inserts the new
// one, updating total and type on the record row in the same call. Details are
// never patched row-by-row. Must be used within a transaction.
func (r *SplitRepository) ReplaceDetails(ctx context.Context, record *split.Record) error {
	query := `
		UPDATE split_records
		SET total = $1, split_type = $2, updated_at = $3
		WHERE id = $4
	`

	result, err := r.querier.Exec(ctx, query,
		record.Total,
		record.Type,
		record.UpdatedAt,
		record.ID,
	)
	if err != nil {
		r.logger.Error("Failed to update split record", "id", record.ID.String(), "error", err)
		return fmt.Errorf("failed to update split record: %w", err)
	}
	if result.RowsAffected() == 0 {
		return split.ErrSplitNotFound{SplitID: record.ID}
	}

	if _, err := r.querier.Exec(ctx, `DELETE FROM split_details WHERE split_id = $1`, record.ID); err != nil {
		r.logger.Error("Failed to delete split details", "id", record.ID.String(), "error", err)
		return fmt.Errorf("failed to delete split details: %w", err)
	}

	return r.insertDetails(ctx, record.ID, record.Details)
}

// Delete removes a split record; detail rows cascade via foreign key
func (r *SplitRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := r.querier.Exec(ctx, `DELETE FROM split_records WHERE id = $1`, id)
	if err != nil {
		r.logger.Error("Failed to delete split record", "id", id.String(), "error", err)
		return fmt.Errorf("failed to delete split record: %w", err)
	}
	if result.RowsAffected() == 0 {
		return split.ErrSplitNotFound{SplitID: id}
	}
	return nil
}

func (r *SplitRepository) getOne(ctx context.Context, query string, id uuid.UUID, notFound error) (*split.Record, error) {
	var rec split.Record
	err := r.querier.QueryRow(ctx, query, id).Scan(
		&rec.ID,
		&rec.TransactionID,
		&rec.LedgerID,
		&rec.PayerID,
		&rec.Total,
		&rec.Currency,
		&rec.Type,
		&rec.Status,
		&rec.PaidAt,
		&rec.CreatedAt,
		&rec.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, notFound
		}
		r.logger.Error("Failed to get split record", "id", id.String(), "error", err)
		return nil, fmt.Errorf("failed to get split record: %w", err)
	}

	if err := r.loadDetails(ctx, &rec); err != nil {
		return nil, err
	}
	return &rec, nil
}

func (r *SplitRepository) insertDetails(ctx context.Context, splitID uuid.UUID, details []split.Detail) error {
	query := `
		INSERT INTO split_details (split_id, member_id, amount, percentage, weight, is_paid, paid_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	for _, d := range details {
		_, err := r.querier.Exec(ctx, query,
			splitID,
			d.MemberID,
			d.Amount,
			decimalToString(d.Percentage),
			decimalToString(d.Weight),
			d.IsPaid,
			d.PaidAt,
		)
		if err != nil {
			r.logger.Error("Failed to create split detail", "split_id", splitID.String(), "member_id", d.MemberID.String(), "error", err)
			return fmt.Errorf("failed to create split detail: %w", err)
		}
	}
	return nil
}

func (r *SplitRepository) loadDetails(ctx context.Context, rec *split.Record) error {
	// Insertion order is the caller's participant order; the BIGSERIAL id
	// preserves it across the round trip
	query := `
		SELECT member_id, amount, percentage, weight, is_paid, paid_at
		FROM split_details
		WHERE split_id = $1
		ORDER BY id ASC
	`

	rows, err := r.querier.Query(ctx, query, rec.ID)
	if err != nil {
		r.logger.Error("Failed to load split details", "id", rec.ID.String(), "error", err)
		return fmt.Errorf("failed to load split details: %w", err)
	}
	defer rows.Close()

	var details []split.Detail
	for rows.Next() {
		var d split.Detail
		var percentage, weight *string
		if err := rows.Scan(&d.MemberID, &d.Amount, &percentage, &weight, &d.IsPaid, &d.PaidAt); err != nil {
			return fmt.Errorf("failed to scan split detail: %w", err)
		}
		if d.Percentage, err = decimalFromString(percentage); err != nil {
			return fmt.Errorf("failed to parse split detail percentage: %w", err)
		}
		if d.Weight, err = decimalFromString(weight); err != nil {
			return fmt.Errorf("failed to parse split detail weight: %w", err)
		}
		details = append(details, d)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("failed to iterate split details: %w", err)
	}

	rec.Details = details
	return nil
}

// Percentages and weights are stored as text: they are exact decimal inputs
// echoed back to clients, never operands of SQL arithmetic
func decimalToString(d *decimal.Decimal) *string {
	if d == nil {
		return nil
	}
	s := d.String()
	return &s
}

func decimalFromString(s *string) (*decimal.Decimal, error) {
	if s == nil {
		return nil, nil
	}
	d, err := decimal.NewFromString(*s)
	if err != nil {
		return nil, err
	}
	return &d, nil
}
