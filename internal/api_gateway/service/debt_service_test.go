package service

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/splitledger/internal/domain/debt"
	"github.com/splitledger/internal/domain/member"
	"github.com/splitledger/internal/domain/shared"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

type MockDebtRepository struct {
	mock.Mock
}

func (m *MockDebtRepository) AcquireLedgerLock(ctx context.Context, ledgerID uuid.UUID, currency string) error {
	args := m.Called(ctx, ledgerID, currency)
	return args.Error(0)
}

func (m *MockDebtRepository) GetActivePair(ctx context.Context, ledgerID uuid.UUID, currency string, a, b uuid.UUID) (*debt.Relation, error) {
	args := m.Called(ctx, ledgerID, currency, a, b)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*debt.Relation), args.Error(1)
}

func (m *MockDebtRepository) Upsert(ctx context.Context, relation *debt.Relation) error {
	args := m.Called(ctx, relation)
	return args.Error(0)
}

func (m *MockDebtRepository) GetActiveByLedger(ctx context.Context, ledgerID uuid.UUID, currency string) ([]*debt.Relation, error) {
	args := m.Called(ctx, ledgerID, currency)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*debt.Relation), args.Error(1)
}

func (m *MockDebtRepository) GetByIDs(ctx context.Context, ids []uuid.UUID) ([]*debt.Relation, error) {
	args := m.Called(ctx, ids)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*debt.Relation), args.Error(1)
}

func (m *MockDebtRepository) LockForSettlement(ctx context.Context, ids []uuid.UUID, settlementID uuid.UUID) error {
	args := m.Called(ctx, ids, settlementID)
	return args.Error(0)
}

func (m *MockDebtRepository) ReleaseSettlementLock(ctx context.Context, settlementID uuid.UUID) error {
	args := m.Called(ctx, settlementID)
	return args.Error(0)
}

func (m *MockDebtRepository) MarkSettled(ctx context.Context, ids []uuid.UUID, settlementID uuid.UUID, at time.Time) error {
	args := m.Called(ctx, ids, settlementID, at)
	return args.Error(0)
}

func (m *MockDebtRepository) Cancel(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockDebtRepository) WithTx(tx pgx.Tx) debt.Repository {
	args := m.Called(tx)
	if args.Get(0) == nil {
		return nil
	}
	return args.Get(0).(debt.Repository)
}

func newActiveRelation(ledgerID, creditor, debtor uuid.UUID, amount int64) *debt.Relation {
	now := time.Now()
	return &debt.Relation{
		ID:               uuid.New(),
		LedgerID:         ledgerID,
		CreditorID:       creditor,
		DebtorID:         debtor,
		Amount:           amount,
		Currency:         "USD",
		Status:           shared.DebtStatusActive,
		LastCalculatedAt: now,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
}

func TestDebtServiceImpl_GetActiveDebts(t *testing.T) {
	ctx := context.Background()
	ledgerID := uuid.New()

	t.Run("Success", func(t *testing.T) {
		mockRepo := new(MockDebtRepository)
		mockDirectory := new(MockMemberDirectory)
		service := NewDebtService(newTestLogger(), mockRepo, mockDirectory)

		relations := []*debt.Relation{newActiveRelation(ledgerID, uuid.New(), uuid.New(), 3000)}
		mockRepo.On("GetActiveByLedger", ctx, ledgerID, "USD").Return(relations, nil).Once()

		result, err := service.GetActiveDebts(ctx, ledgerID, "USD")

		assert.NoError(t, err)
		assert.Equal(t, relations, result)
		mockRepo.AssertExpectations(t)
	})

	t.Run("RepositoryError", func(t *testing.T) {
		mockRepo := new(MockDebtRepository)
		mockDirectory := new(MockMemberDirectory)
		service := NewDebtService(newTestLogger(), mockRepo, mockDirectory)

		repoError := errors.New("database error")
		mockRepo.On("GetActiveByLedger", ctx, ledgerID, "USD").Return(nil, repoError).Once()

		result, err := service.GetActiveDebts(ctx, ledgerID, "USD")

		assert.Error(t, err)
		assert.Nil(t, result)
		assert.Equal(t, repoError, err)
		mockRepo.AssertExpectations(t)
	})
}

func TestDebtServiceImpl_GetMemberBalances(t *testing.T) {
	ctx := context.Background()
	ledgerID := uuid.New()

	t.Run("Success", func(t *testing.T) {
		mockRepo := new(MockDebtRepository)
		mockDirectory := new(MockMemberDirectory)
		service := NewDebtService(newTestLogger(), mockRepo, mockDirectory)

		creditor := uuid.New()
		debtor := uuid.New()
		relations := []*debt.Relation{newActiveRelation(ledgerID, creditor, debtor, 3000)}
		members := map[uuid.UUID]*member.Member{
			creditor: {ID: creditor, DisplayName: "Alice"},
			debtor:   {ID: debtor, DisplayName: "Bob"},
		}

		mockRepo.On("GetActiveByLedger", ctx, ledgerID, "USD").Return(relations, nil).Once()
		mockDirectory.On("GetByIDs", ctx, mock.AnythingOfType("[]uuid.UUID")).Return(members, nil).Once()

		summaries, err := service.GetMemberBalances(ctx, ledgerID, "USD")

		assert.NoError(t, err)
		require.Len(t, summaries, 2)
		byID := make(map[uuid.UUID]string)
		var netSum int64
		for _, s := range summaries {
			byID[s.MemberID] = s.DisplayName
			netSum += s.NetBalance
		}
		assert.Equal(t, "Alice", byID[creditor])
		assert.Equal(t, "Bob", byID[debtor])
		assert.Equal(t, int64(0), netSum)
		mockRepo.AssertExpectations(t)
		mockDirectory.AssertExpectations(t)
	})

	t.Run("EmptyLedger", func(t *testing.T) {
		mockRepo := new(MockDebtRepository)
		mockDirectory := new(MockMemberDirectory)
		service := NewDebtService(newTestLogger(), mockRepo, mockDirectory)

		mockRepo.On("GetActiveByLedger", ctx, ledgerID, "USD").Return([]*debt.Relation{}, nil).Once()

		summaries, err := service.GetMemberBalances(ctx, ledgerID, "USD")

		assert.NoError(t, err)
		assert.Empty(t, summaries)
		mockDirectory.AssertNotCalled(t, "GetByIDs", ctx, mock.Anything)
		mockRepo.AssertExpectations(t)
	})

	t.Run("UnknownMembersKeepEmptyNames", func(t *testing.T) {
		mockRepo := new(MockDebtRepository)
		mockDirectory := new(MockMemberDirectory)
		service := NewDebtService(newTestLogger(), mockRepo, mockDirectory)

		creditor := uuid.New()
		debtor := uuid.New()
		relations := []*debt.Relation{newActiveRelation(ledgerID, creditor, debtor, 1000)}
		members := map[uuid.UUID]*member.Member{
			creditor: {ID: creditor, DisplayName: "Alice"},
		}

		mockRepo.On("GetActiveByLedger", ctx, ledgerID, "USD").Return(relations, nil).Once()
		mockDirectory.On("GetByIDs", ctx, mock.AnythingOfType("[]uuid.UUID")).Return(members, nil).Once()

		summaries, err := service.GetMemberBalances(ctx, ledgerID, "USD")

		assert.NoError(t, err)
		require.Len(t, summaries, 2)
		for _, s := range summaries {
			if s.MemberID == debtor {
				assert.Empty(t, s.DisplayName)
			}
		}
		mockDirectory.AssertExpectations(t)
	})

	t.Run("DirectoryError", func(t *testing.T) {
		mockRepo := new(MockDebtRepository)
		mockDirectory := new(MockMemberDirectory)
		service := NewDebtService(newTestLogger(), mockRepo, mockDirectory)

		relations := []*debt.Relation{newActiveRelation(ledgerID, uuid.New(), uuid.New(), 1000)}
		dirError := errors.New("directory unavailable")

		mockRepo.On("GetActiveByLedger", ctx, ledgerID, "USD").Return(relations, nil).Once()
		mockDirectory.On("GetByIDs", ctx, mock.AnythingOfType("[]uuid.UUID")).Return(nil, dirError).Once()

		summaries, err := service.GetMemberBalances(ctx, ledgerID, "USD")

		assert.Error(t, err)
		assert.Nil(t, summaries)
		assert.Equal(t, dirError, err)
	})
}
