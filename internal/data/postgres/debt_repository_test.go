package postgres

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v3"
	"github.com/splitledger/internal/domain/debt"
	"github.com/splitledger/internal/domain/shared"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

var relationColumns = []string{"id", "ledger_id", "creditor_id", "debtor_id", "amount", "currency", "status", "locked_by", "last_calculated_at", "created_at", "updated_at"}

func newTestRelation(ledgerID uuid.UUID) *debt.Relation {
	now := time.Now()
	return &debt.Relation{
		ID:               uuid.New(),
		LedgerID:         ledgerID,
		CreditorID:       uuid.New(),
		DebtorID:         uuid.New(),
		Amount:           4200,
		Currency:         "USD",
		Status:           shared.DebtStatusActive,
		LastCalculatedAt: now,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
}

func relationRow(rows *pgxmock.Rows, rel *debt.Relation) *pgxmock.Rows {
	return rows.AddRow(rel.ID, rel.LedgerID, rel.CreditorID, rel.DebtorID, rel.Amount, rel.Currency, rel.Status, rel.LockedBy, rel.LastCalculatedAt, rel.CreatedAt, rel.UpdatedAt)
}

func TestDebtRepository_AcquireLedgerLock(t *testing.T) {
	ctx := context.Background()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := &DebtRepository{querier: mock, logger: newTestLogger()}
	ledgerID := uuid.New()

	query := `SELECT pg_advisory_xact_lock\(hashtextextended\(\$1, 0\)\)`

	t.Run("success", func(t *testing.T) {
		mock.ExpectExec(query).
			WithArgs(ledgerID.String() + ":USD").
			WillReturnResult(pgxmock.NewResult("SELECT", 1))

		err := repo.AcquireLedgerLock(ctx, ledgerID, "USD")
		assert.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("db error", func(t *testing.T) {
		dbErr := errors.New("lock db error")
		mock.ExpectExec(query).
			WithArgs(ledgerID.String() + ":USD").
			WillReturnError(dbErr)

		err := repo.AcquireLedgerLock(ctx, ledgerID, "USD")
		assert.Error(t, err)
		assert.ErrorIs(t, err, dbErr)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestDebtRepository_GetActivePair(t *testing.T) {
	ctx := context.Background()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := &DebtRepository{querier: mock, logger: newTestLogger()}
	ledgerID := uuid.New()
	expected := newTestRelation(ledgerID)

	query := `
		SELECT id, ledger_id, creditor_id, debtor_id, amount, currency, status, locked_by, last_calculated_at, created_at, updated_at
		FROM debt_relations
		WHERE ledger_id = \$1 AND currency = \$2 AND status = \$3
		  AND \(\(creditor_id = \$4 AND debtor_id = \$5\) OR \(creditor_id = \$5 AND debtor_id = \$4\)\)
	`

	t.Run("success", func(t *testing.T) {
		rows := relationRow(pgxmock.NewRows(relationColumns), expected)
		mock.ExpectQuery(query).
			WithArgs(ledgerID, "USD", shared.DebtStatusActive, expected.CreditorID, expected.DebtorID).
			WillReturnRows(rows)

		rel, err := repo.GetActivePair(ctx, ledgerID, "USD", expected.CreditorID, expected.DebtorID)
		assert.NoError(t, err)
		assert.Equal(t, expected, rel)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("no active relation", func(t *testing.T) {
		mock.ExpectQuery(query).
			WithArgs(ledgerID, "USD", shared.DebtStatusActive, expected.CreditorID, expected.DebtorID).
			WillReturnError(pgx.ErrNoRows)

		rel, err := repo.GetActivePair(ctx, ledgerID, "USD", expected.CreditorID, expected.DebtorID)
		assert.NoError(t, err)
		assert.Nil(t, rel)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("db error", func(t *testing.T) {
		dbErr := errors.New("pair db error")
		mock.ExpectQuery(query).
			WithArgs(ledgerID, "USD", shared.DebtStatusActive, expected.CreditorID, expected.DebtorID).
			WillReturnError(dbErr)

		rel, err := repo.GetActivePair(ctx, ledgerID, "USD", expected.CreditorID, expected.DebtorID)
		assert.Error(t, err)
		assert.Nil(t, rel)
		assert.ErrorIs(t, err, dbErr)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestDebtRepository_Upsert(t *testing.T) {
	ctx := context.Background()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := &DebtRepository{querier: mock, logger: newTestLogger()}
	rel := newTestRelation(uuid.New())

	query := `
		INSERT INTO debt_relations \(id, ledger_id, creditor_id, debtor_id, amount, currency, status, locked_by, last_calculated_at, created_at, updated_at\)
		VALUES \(\$1, \$2, \$3, \$4, \$5, \$6, \$7, \$8, \$9, \$10, \$11\)
		ON CONFLICT \(id\) DO UPDATE
	`

	t.Run("success", func(t *testing.T) {
		mock.ExpectExec(query).
			WithArgs(rel.ID, rel.LedgerID, rel.CreditorID, rel.DebtorID, rel.Amount, rel.Currency, rel.Status, rel.LockedBy, rel.LastCalculatedAt, rel.CreatedAt, rel.UpdatedAt).
			WillReturnResult(pgxmock.NewResult("INSERT", 1))

		err := repo.Upsert(ctx, rel)
		assert.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("db error", func(t *testing.T) {
		dbErr := errors.New("upsert db error")
		mock.ExpectExec(query).
			WithArgs(rel.ID, rel.LedgerID, rel.CreditorID, rel.DebtorID, rel.Amount, rel.Currency, rel.Status, rel.LockedBy, rel.LastCalculatedAt, rel.CreatedAt, rel.UpdatedAt).
			WillReturnError(dbErr)

		err := repo.Upsert(ctx, rel)
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "failed to upsert debt relation")
		assert.ErrorIs(t, err, dbErr)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestDebtRepository_GetActiveByLedger(t *testing.T) {
	ctx := context.Background()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := &DebtRepository{querier: mock, logger: newTestLogger()}
	ledgerID := uuid.New()
	first := newTestRelation(ledgerID)
	second := newTestRelation(ledgerID)

	query := `
		SELECT id, ledger_id, creditor_id, debtor_id, amount, currency, status, locked_by, last_calculated_at, created_at, updated_at
		FROM debt_relations
		WHERE ledger_id = \$1 AND currency = \$2 AND status = \$3 AND amount > 0
		ORDER BY creditor_id ASC, debtor_id ASC
	`

	t.Run("success", func(t *testing.T) {
		rows := relationRow(relationRow(pgxmock.NewRows(relationColumns), first), second)
		mock.ExpectQuery(query).
			WithArgs(ledgerID, "USD", shared.DebtStatusActive).
			WillReturnRows(rows)

		relations, err := repo.GetActiveByLedger(ctx, ledgerID, "USD")
		assert.NoError(t, err)
		require.Len(t, relations, 2)
		assert.Equal(t, first, relations[0])
		assert.Equal(t, second, relations[1])
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("empty ledger", func(t *testing.T) {
		mock.ExpectQuery(query).
			WithArgs(ledgerID, "USD", shared.DebtStatusActive).
			WillReturnRows(pgxmock.NewRows(relationColumns))

		relations, err := repo.GetActiveByLedger(ctx, ledgerID, "USD")
		assert.NoError(t, err)
		assert.Empty(t, relations)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("db error", func(t *testing.T) {
		dbErr := errors.New("list db error")
		mock.ExpectQuery(query).
			WithArgs(ledgerID, "USD", shared.DebtStatusActive).
			WillReturnError(dbErr)

		relations, err := repo.GetActiveByLedger(ctx, ledgerID, "USD")
		assert.Error(t, err)
		assert.Nil(t, relations)
		assert.ErrorIs(t, err, dbErr)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestDebtRepository_LockForSettlement(t *testing.T) {
	ctx := context.Background()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := &DebtRepository{querier: mock, logger: newTestLogger()}
	settlementID := uuid.New()
	ids := []uuid.UUID{uuid.New(), uuid.New()}

	query := `
		UPDATE debt_relations
		SET locked_by = \$1, updated_at = NOW\(\)
		WHERE id = ANY\(\$2\) AND status = \$3 AND locked_by IS NULL
	`

	t.Run("success", func(t *testing.T) {
		mock.ExpectExec(query).
			WithArgs(settlementID, ids, shared.DebtStatusActive).
			WillReturnResult(pgxmock.NewResult("UPDATE", 2))

		err := repo.LockForSettlement(ctx, ids, settlementID)
		assert.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("relations modified concurrently", func(t *testing.T) {
		mock.ExpectExec(query).
			WithArgs(settlementID, ids, shared.DebtStatusActive).
			WillReturnResult(pgxmock.NewResult("UPDATE", 1))

		err := repo.LockForSettlement(ctx, ids, settlementID)
		assert.Error(t, err)
		var modifiedErr debt.ErrRelationsModified
		require.ErrorAs(t, err, &modifiedErr)
		assert.Equal(t, 2, modifiedErr.Expected)
		assert.Equal(t, int64(1), modifiedErr.Affected)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("db error", func(t *testing.T) {
		dbErr := errors.New("lock db error")
		mock.ExpectExec(query).
			WithArgs(settlementID, ids, shared.DebtStatusActive).
			WillReturnError(dbErr)

		err := repo.LockForSettlement(ctx, ids, settlementID)
		assert.Error(t, err)
		assert.ErrorIs(t, err, dbErr)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestDebtRepository_ReleaseSettlementLock(t *testing.T) {
	ctx := context.Background()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := &DebtRepository{querier: mock, logger: newTestLogger()}
	settlementID := uuid.New()

	query := `
		UPDATE debt_relations
		SET locked_by = NULL, updated_at = NOW\(\)
		WHERE locked_by = \$1
	`

	t.Run("success", func(t *testing.T) {
		mock.ExpectExec(query).
			WithArgs(settlementID).
			WillReturnResult(pgxmock.NewResult("UPDATE", 3))

		err := repo.ReleaseSettlementLock(ctx, settlementID)
		assert.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("db error", func(t *testing.T) {
		dbErr := errors.New("release db error")
		mock.ExpectExec(query).
			WithArgs(settlementID).
			WillReturnError(dbErr)

		err := repo.ReleaseSettlementLock(ctx, settlementID)
		assert.Error(t, err)
		assert.ErrorIs(t, err, dbErr)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestDebtRepository_MarkSettled(t *testing.T) {
	ctx := context.Background()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := &DebtRepository{querier: mock, logger: newTestLogger()}
	settlementID := uuid.New()
	ids := []uuid.UUID{uuid.New(), uuid.New(), uuid.New()}
	settledAt := time.Now()

	query := `
		UPDATE debt_relations
		SET status = \$1, locked_by = NULL, updated_at = \$2
		WHERE id = ANY\(\$3\) AND status = \$4 AND locked_by = \$5
	`

	t.Run("success", func(t *testing.T) {
		mock.ExpectExec(query).
			WithArgs(shared.DebtStatusSettled, settledAt, ids, shared.DebtStatusActive, settlementID).
			WillReturnResult(pgxmock.NewResult("UPDATE", 3))

		err := repo.MarkSettled(ctx, ids, settlementID, settledAt)
		assert.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("relations modified concurrently", func(t *testing.T) {
		mock.ExpectExec(query).
			WithArgs(shared.DebtStatusSettled, settledAt, ids, shared.DebtStatusActive, settlementID).
			WillReturnResult(pgxmock.NewResult("UPDATE", 2))

		err := repo.MarkSettled(ctx, ids, settlementID, settledAt)
		var modifiedErr debt.ErrRelationsModified
		assert.ErrorAs(t, err, &modifiedErr)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("db error", func(t *testing.T) {
		dbErr := errors.New("settle db error")
		mock.ExpectExec(query).
			WithArgs(shared.DebtStatusSettled, settledAt, ids, shared.DebtStatusActive, settlementID).
			WillReturnError(dbErr)

		err := repo.MarkSettled(ctx, ids, settlementID, settledAt)
		assert.Error(t, err)
		assert.ErrorIs(t, err, dbErr)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestDebtRepository_Cancel(t *testing.T) {
	ctx := context.Background()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := &DebtRepository{querier: mock, logger: newTestLogger()}
	relationID := uuid.New()

	query := `
		UPDATE debt_relations
		SET status = \$1, updated_at = NOW\(\)
		WHERE id = \$2
	`

	t.Run("success", func(t *testing.T) {
		mock.ExpectExec(query).
			WithArgs(shared.DebtStatusCancelled, relationID).
			WillReturnResult(pgxmock.NewResult("UPDATE", 1))

		err := repo.Cancel(ctx, relationID)
		assert.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("not found", func(t *testing.T) {
		mock.ExpectExec(query).
			WithArgs(shared.DebtStatusCancelled, relationID).
			WillReturnResult(pgxmock.NewResult("UPDATE", 0))

		err := repo.Cancel(ctx, relationID)
		var notFoundErr debt.ErrRelationNotFound
		require.ErrorAs(t, err, &notFoundErr)
		assert.Equal(t, relationID, notFoundErr.RelationID)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestDebtRepository_WithTx(t *testing.T) {
	logger := newTestLogger()
	mockPool, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mockPool.Close()

	originalRepo := &DebtRepository{querier: mockPool, logger: logger}

	mockPool.ExpectBegin()
	pgxTx, err := mockPool.Begin(context.Background())
	require.NoError(t, err)

	txRepo := originalRepo.WithTx(pgxTx)

	assert.NotNil(t, txRepo)
	assert.Equal(t, originalRepo.logger, txRepo.(*DebtRepository).logger)
	assert.Equal(t, pgxTx, txRepo.(*DebtRepository).querier)

	assert.NoError(t, mockPool.ExpectationsWereMet())
}
