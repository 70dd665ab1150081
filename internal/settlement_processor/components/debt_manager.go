package components

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/splitledger/internal/domain/debt"
	"github.com/splitledger/internal/domain/settlement"
	"github.com/splitledger/internal/settlement_processor/service"
)

type DebtManagerImpl struct {
	debtRepo debt.Repository
	logger   *slog.Logger
}

func NewDebtManager(debtRepo debt.Repository, logger *slog.Logger) service.DebtManager {
	return &DebtManagerImpl{
		debtRepo: debtRepo,
		logger:   logger,
	}
}

// LockRelations stamps the settlement's ID on every referenced relation. A
// relation already held or no longer Active fails the bulk stamp, which
// surfaces as ErrStaleSettlement.
func (m *DebtManagerImpl) LockRelations(ctx context.Context, tx pgx.Tx, record *settlement.Record) error {
	if err := m.debtRepo.WithTx(tx).LockForSettlement(ctx, record.DebtRelationIDs, record.ID); err != nil {
		var modified debt.ErrRelationsModified
		if errors.As(err, &modified) {
			return settlement.ErrStaleSettlement{SettlementID: record.ID}
		}
		m.logger.Error("Failed to lock debt relations for settlement",
			"settlement_id", record.ID.String(),
			"debt_count", len(record.DebtRelationIDs),
			"error", err,
		)
		return err
	}
	return nil
}

// SettleRelations flips every referenced relation from Active to Settled
func (m *DebtManagerImpl) SettleRelations(ctx context.Context, tx pgx.Tx, record *settlement.Record, at time.Time) error {
	if err := m.debtRepo.WithTx(tx).MarkSettled(ctx, record.DebtRelationIDs, record.ID, at); err != nil {
		var modified debt.ErrRelationsModified
		if errors.As(err, &modified) {
			return settlement.ErrStaleSettlement{SettlementID: record.ID}
		}
		m.logger.Error("Failed to mark debt relations settled",
			"settlement_id", record.ID.String(),
			"debt_count", len(record.DebtRelationIDs),
			"error", err,
		)
		return err
	}
	return nil
}
