package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v3"
	"github.com/splitledger/internal/domain/settlement"
	"github.com/splitledger/internal/domain/shared"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var settlementColumns = []string{"id", "ledger_id", "currency", "period_start", "period_end", "participant_ids", "member_summaries", "transfers", "debt_relation_ids", "total_amount", "residual", "status", "initiated_by", "completed_by", "completed_at", "created_at", "updated_at"}

const settlementSelectQuery = `
	SELECT id, ledger_id, currency, period_start, period_end, participant_ids, member_summaries, transfers, debt_relation_ids, total_amount, residual, status, initiated_by, completed_by, completed_at, created_at, updated_at
	FROM settlement_records
`

func newTestSettlement() *settlement.Record {
	now := time.Now()
	creditor := uuid.New()
	debtor := uuid.New()
	return &settlement.Record{
		ID:             uuid.New(),
		LedgerID:       uuid.New(),
		Currency:       "USD",
		PeriodStart:    now.AddDate(0, 0, -30),
		PeriodEnd:      now,
		ParticipantIDs: []uuid.UUID{creditor, debtor},
		MemberSummaries: []settlement.MemberSummary{
			{MemberID: creditor, TotalOwedTo: 3000, NetBalance: 3000},
			{MemberID: debtor, TotalOwes: 3000, NetBalance: -3000},
		},
		Transfers: []settlement.Transfer{
			{FromMemberID: debtor, ToMemberID: creditor, Amount: 3000},
		},
		DebtRelationIDs: []uuid.UUID{uuid.New()},
		TotalAmount:     3000,
		Status:          shared.SettlementStatusPending,
		InitiatedBy:     creditor,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
}

func settlementRow(t *testing.T, rec *settlement.Record) *pgxmock.Rows {
	t.Helper()
	participants, err := json.Marshal(rec.ParticipantIDs)
	require.NoError(t, err)
	summaries, err := json.Marshal(rec.MemberSummaries)
	require.NoError(t, err)
	transfers, err := json.Marshal(rec.Transfers)
	require.NoError(t, err)
	relationIDs, err := json.Marshal(rec.DebtRelationIDs)
	require.NoError(t, err)

	return pgxmock.NewRows(settlementColumns).
		AddRow(rec.ID, rec.LedgerID, rec.Currency, rec.PeriodStart, rec.PeriodEnd, participants, summaries, transfers, relationIDs, rec.TotalAmount, rec.Residual, rec.Status, rec.InitiatedBy, rec.CompletedBy, rec.CompletedAt, rec.CreatedAt, rec.UpdatedAt)
}

func TestSettlementRepository_Create(t *testing.T) {
	ctx := context.Background()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := &SettlementRepository{querier: mock, logger: newTestLogger()}
	rec := newTestSettlement()

	query := `
		INSERT INTO settlement_records \(id, ledger_id, currency, period_start, period_end, participant_ids, member_summaries, transfers, debt_relation_ids, total_amount, residual, status, initiated_by, completed_by, completed_at, created_at, updated_at\)
		VALUES \(\$1, \$2, \$3, \$4, \$5, \$6, \$7, \$8, \$9, \$10, \$11, \$12, \$13, \$14, \$15, \$16, \$17\)
	`

	t.Run("success", func(t *testing.T) {
		mock.ExpectExec(query).
			WithArgs(rec.ID, rec.LedgerID, rec.Currency, rec.PeriodStart, rec.PeriodEnd,
				pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(),
				rec.TotalAmount, rec.Residual, rec.Status, rec.InitiatedBy, rec.CompletedBy, rec.CompletedAt, rec.CreatedAt, rec.UpdatedAt).
			WillReturnResult(pgxmock.NewResult("INSERT", 1))

		err := repo.Create(ctx, rec)
		assert.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("db error", func(t *testing.T) {
		dbErr := errors.New("db error")
		mock.ExpectExec(query).
			WithArgs(rec.ID, rec.LedgerID, rec.Currency, rec.PeriodStart, rec.PeriodEnd,
				pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(),
				rec.TotalAmount, rec.Residual, rec.Status, rec.InitiatedBy, rec.CompletedBy, rec.CompletedAt, rec.CreatedAt, rec.UpdatedAt).
			WillReturnError(dbErr)

		err := repo.Create(ctx, rec)
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "failed to create settlement record")
		assert.ErrorIs(t, err, dbErr)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestSettlementRepository_GetByID(t *testing.T) {
	ctx := context.Background()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := &SettlementRepository{querier: mock, logger: newTestLogger()}
	expected := newTestSettlement()

	query := settlementSelectQuery + ` WHERE id = \$1`

	t.Run("success", func(t *testing.T) {
		mock.ExpectQuery(query).WithArgs(expected.ID).WillReturnRows(settlementRow(t, expected))

		rec, err := repo.GetByID(ctx, expected.ID)
		assert.NoError(t, err)
		assert.Equal(t, expected, rec)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("not found", func(t *testing.T) {
		mock.ExpectQuery(query).WithArgs(expected.ID).WillReturnError(pgx.ErrNoRows)

		rec, err := repo.GetByID(ctx, expected.ID)
		assert.Error(t, err)
		assert.Nil(t, rec)
		var notFoundErr settlement.ErrSettlementNotFound
		require.ErrorAs(t, err, &notFoundErr)
		assert.Equal(t, expected.ID, notFoundErr.SettlementID)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("db error", func(t *testing.T) {
		dbErr := errors.New("some db error")
		mock.ExpectQuery(query).WithArgs(expected.ID).WillReturnError(dbErr)

		rec, err := repo.GetByID(ctx, expected.ID)
		assert.Error(t, err)
		assert.Nil(t, rec)
		assert.ErrorIs(t, err, dbErr)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestSettlementRepository_GetByIDForUpdate(t *testing.T) {
	ctx := context.Background()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := &SettlementRepository{querier: mock, logger: newTestLogger()}
	expected := newTestSettlement()

	query := settlementSelectQuery + ` WHERE id = \$1 FOR UPDATE`

	t.Run("success", func(t *testing.T) {
		mock.ExpectQuery(query).WithArgs(expected.ID).WillReturnRows(settlementRow(t, expected))

		rec, err := repo.GetByIDForUpdate(ctx, expected.ID)
		assert.NoError(t, err)
		assert.Equal(t, expected, rec)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("not found", func(t *testing.T) {
		mock.ExpectQuery(query).WithArgs(expected.ID).WillReturnError(pgx.ErrNoRows)

		rec, err := repo.GetByIDForUpdate(ctx, expected.ID)
		assert.Error(t, err)
		assert.Nil(t, rec)
		var notFoundErr settlement.ErrSettlementNotFound
		assert.ErrorAs(t, err, &notFoundErr)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestSettlementRepository_ListByLedger(t *testing.T) {
	ctx := context.Background()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := &SettlementRepository{querier: mock, logger: newTestLogger()}
	ledgerID := uuid.New()
	expected := newTestSettlement()
	expected.LedgerID = ledgerID

	query := settlementSelectQuery + `
		WHERE ledger_id = \$1
		ORDER BY created_at DESC
		LIMIT \$2 OFFSET \$3
	`

	t.Run("success", func(t *testing.T) {
		mock.ExpectQuery(query).WithArgs(ledgerID, 20, 0).WillReturnRows(settlementRow(t, expected))

		records, err := repo.ListByLedger(ctx, ledgerID, 20, 0)
		assert.NoError(t, err)
		require.Len(t, records, 1)
		assert.Equal(t, expected, records[0])
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("empty page", func(t *testing.T) {
		mock.ExpectQuery(query).WithArgs(ledgerID, 20, 40).WillReturnRows(pgxmock.NewRows(settlementColumns))

		records, err := repo.ListByLedger(ctx, ledgerID, 20, 40)
		assert.NoError(t, err)
		assert.Empty(t, records)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("db error", func(t *testing.T) {
		dbErr := errors.New("list db error")
		mock.ExpectQuery(query).WithArgs(ledgerID, 20, 0).WillReturnError(dbErr)

		records, err := repo.ListByLedger(ctx, ledgerID, 20, 0)
		assert.Error(t, err)
		assert.Nil(t, records)
		assert.ErrorIs(t, err, dbErr)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestSettlementRepository_CountByLedger(t *testing.T) {
	ctx := context.Background()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := &SettlementRepository{querier: mock, logger: newTestLogger()}
	ledgerID := uuid.New()

	query := `SELECT COUNT\(\*\) FROM settlement_records WHERE ledger_id = \$1`

	t.Run("success", func(t *testing.T) {
		rows := pgxmock.NewRows([]string{"count"}).AddRow(int64(3))
		mock.ExpectQuery(query).WithArgs(ledgerID).WillReturnRows(rows)

		count, err := repo.CountByLedger(ctx, ledgerID)
		assert.NoError(t, err)
		assert.Equal(t, int64(3), count)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("db error", func(t *testing.T) {
		dbErr := errors.New("count db error")
		mock.ExpectQuery(query).WithArgs(ledgerID).WillReturnError(dbErr)

		count, err := repo.CountByLedger(ctx, ledgerID)
		assert.Error(t, err)
		assert.Equal(t, int64(0), count)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestSettlementRepository_UpdateStatus(t *testing.T) {
	ctx := context.Background()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := &SettlementRepository{querier: mock, logger: newTestLogger()}

	query := `
		UPDATE settlement_records
		SET status = \$1, completed_by = \$2, completed_at = \$3, updated_at = \$4
		WHERE id = \$5
	`

	t.Run("success", func(t *testing.T) {
		rec := newTestSettlement()
		rec.Status = shared.SettlementStatusCompleted
		completedBy := uuid.New()
		completedAt := time.Now()
		rec.CompletedBy = &completedBy
		rec.CompletedAt = &completedAt

		mock.ExpectExec(query).
			WithArgs(rec.Status, rec.CompletedBy, rec.CompletedAt, rec.UpdatedAt, rec.ID).
			WillReturnResult(pgxmock.NewResult("UPDATE", 1))

		err := repo.UpdateStatus(ctx, rec)
		assert.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("not found", func(t *testing.T) {
		rec := newTestSettlement()

		mock.ExpectExec(query).
			WithArgs(rec.Status, rec.CompletedBy, rec.CompletedAt, rec.UpdatedAt, rec.ID).
			WillReturnResult(pgxmock.NewResult("UPDATE", 0))

		err := repo.UpdateStatus(ctx, rec)
		var notFoundErr settlement.ErrSettlementNotFound
		require.ErrorAs(t, err, &notFoundErr)
		assert.Equal(t, rec.ID, notFoundErr.SettlementID)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("db error", func(t *testing.T) {
		rec := newTestSettlement()
		dbErr := errors.New("update db error")

		mock.ExpectExec(query).
			WithArgs(rec.Status, rec.CompletedBy, rec.CompletedAt, rec.UpdatedAt, rec.ID).
			WillReturnError(dbErr)

		err := repo.UpdateStatus(ctx, rec)
		assert.Error(t, err)
		assert.ErrorIs(t, err, dbErr)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestSettlementRepository_WithTx(t *testing.T) {
	logger := newTestLogger()
	mockPool, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mockPool.Close()

	originalRepo := &SettlementRepository{querier: mockPool, logger: logger}

	mockPool.ExpectBegin()
	pgxTx, err := mockPool.Begin(context.Background())
	require.NoError(t, err)

	txRepo := originalRepo.WithTx(pgxTx)

	assert.NotNil(t, txRepo)
	assert.Equal(t, originalRepo.logger, txRepo.(*SettlementRepository).logger)
	assert.Equal(t, pgxTx, txRepo.(*SettlementRepository).querier)

	assert.NoError(t, mockPool.ExpectationsWereMet())
}
