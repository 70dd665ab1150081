package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/splitledger/internal/domain/settlement"
	"github.com/splitledger/internal/domain/shared"
	"github.com/splitledger/internal/platform/persistence"
)

type ProcessingServiceImpl struct {
	pgDB            *persistence.PostgresDB
	settlementRepo  settlement.Repository
	snapshotManager SnapshotManager
	debtManager     DebtManager
	auditRecorder   AuditRecorder
	logger          *slog.Logger
}

func NewProcessingService(
	pgDB *persistence.PostgresDB,
	settlementRepo settlement.Repository,
	snapshotManager SnapshotManager,
	debtManager DebtManager,
	auditRecorder AuditRecorder,
	logger *slog.Logger,
) ProcessingService {
	return &ProcessingServiceImpl{
		pgDB:            pgDB,
		settlementRepo:  settlementRepo,
		snapshotManager: snapshotManager,
		debtManager:     debtManager,
		auditRecorder:   auditRecorder,
		logger:          logger,
	}
}

// ProcessSettlementRun executes a full settlement cycle for a ledger inside a
// single database transaction: snapshot the active debts, lock them, mark
// them settled, and complete the record. A rerun of the same request finds no
// remaining active debts and acknowledges without effect.
func (s *ProcessingServiceImpl) ProcessSettlementRun(ctx context.Context, request *shared.SettlementRunRequest) error {
	logger := s.logger
	if request.CorrelationID != "" {
		logger = s.logger.With("correlation_id", request.CorrelationID)
	}

	logger.Info("Processing settlement run",
		"request_id", request.RequestID.String(),
		"ledger_id", request.LedgerID.String(),
		"currency", request.Currency,
	)

	// 1. Begin database transaction
	var tx pgx.Tx
	tx, err := s.pgDB.Pool().Begin(ctx)
	if err != nil {
		logger.Error("Failed to begin database transaction", "request_id", request.RequestID.String(), "error", err)
		return fmt.Errorf("failed to begin DB transaction for run %s: %w", request.RequestID.String(), err)
	}
	defer func() {
		if p := recover(); p != nil {
			logger.Error("Panic recovered, rolling back transaction", "panic", p, "request_id", request.RequestID.String())
			_ = tx.Rollback(ctx)
			panic(p) // Re-panic
		} else if err != nil {
			logger.Error("Error occurred, rolling back transaction", "error", err, "request_id", request.RequestID.String())
			if rbErr := tx.Rollback(ctx); rbErr != nil {
				logger.Error("Failed to rollback transaction after error", "rollback_error", rbErr, "original_error", err, "request_id", request.RequestID.String())
			}
		}
	}()

	// 2. Snapshot the ledger's active debts under the advisory lock
	var record *settlement.Record
	record, err = s.snapshotManager.BuildSnapshot(ctx, tx, request)
	if err != nil {
		var nothing settlement.ErrNothingToSettle
		if errors.As(err, &nothing) {
			_ = tx.Rollback(ctx)
			err = nil
			logger.Info("No active debts to settle, acknowledging run",
				"request_id", request.RequestID.String(),
				"ledger_id", request.LedgerID.String(),
			)
			return nil // Return nil to Kafka consumer to acknowledge the message
		}
		return err
	}

	// 3. Flag a conservation violation on the snapshot itself
	if record.Residual != 0 {
		if err = s.auditRecorder.RecordEvent(ctx, tx, record, shared.AuditEventIntegrityViolation, request.CorrelationID); err != nil {
			return err
		}
	}

	// 4. Lock the referenced relations for this settlement
	if err = record.Start(); err != nil {
		return err
	}
	if err = s.debtManager.LockRelations(ctx, tx, record); err != nil {
		var stale settlement.ErrStaleSettlement
		if errors.As(err, &stale) {
			_ = tx.Rollback(ctx)
			err = nil
			logger.Warn("Referenced debts are held by another settlement, acknowledging run",
				"request_id", request.RequestID.String(),
				"ledger_id", request.LedgerID.String(),
			)
			return nil // Retrying cannot succeed until the other settlement resolves
		}
		return err
	}

	// 5. Resolve the debts and complete the settlement
	now := time.Now()
	if err = record.Complete(request.InitiatedBy, now); err != nil {
		return err
	}
	if err = s.debtManager.SettleRelations(ctx, tx, record, now); err != nil {
		return err
	}
	if err = s.settlementRepo.WithTx(tx).UpdateStatus(ctx, record); err != nil {
		return err
	}
	if err = s.auditRecorder.RecordEvent(ctx, tx, record, shared.AuditEventSettlementCompleted, request.CorrelationID); err != nil {
		return err
	}

	// 6. Commit transaction
	if err = tx.Commit(ctx); err != nil {
		logger.Error("Failed to commit database transaction",
			"request_id", request.RequestID.String(),
			"settlement_id", record.ID.String(),
			"error", err,
		)
		return fmt.Errorf("failed to commit DB transaction for run %s: %w", request.RequestID.String(), err)
	}

	logger.Info("Settlement run completed",
		"request_id", request.RequestID.String(),
		"settlement_id", record.ID.String(),
		"transfer_count", len(record.Transfers),
		"total_amount", record.TotalAmount,
	)
	return nil // SUCCESS!
}
