package service

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/splitledger/internal/domain/audit"
	"github.com/splitledger/internal/domain/debt"
	"github.com/splitledger/internal/domain/member"
	"github.com/splitledger/internal/domain/outbox"
	"github.com/splitledger/internal/domain/settlement"
	"github.com/splitledger/internal/domain/shared"
	"github.com/splitledger/internal/platform/messaging/producers"
	"github.com/splitledger/internal/platform/persistence"
)

// SettlementServiceImpl implements the SettlementService interface.
// All lifecycle transitions run inside database transactions: the settlement
// row lock, the debt relation flips, and the outbox audit event commit or
// roll back together.
type SettlementServiceImpl struct {
	db             *persistence.PostgresDB
	settlementRepo settlement.Repository
	debtRepo       debt.Repository
	outboxRepo     outbox.Repository
	directory      member.Directory
	producer       producers.MessagePublisher
	logger         *slog.Logger
}

// NewSettlementService creates a new settlement service
func NewSettlementService(
	logger *slog.Logger,
	db *persistence.PostgresDB,
	settlementRepo settlement.Repository,
	debtRepo debt.Repository,
	outboxRepo outbox.Repository,
	directory member.Directory,
	producer producers.MessagePublisher,
) SettlementService {
	return &SettlementServiceImpl{
		db:             db,
		settlementRepo: settlementRepo,
		debtRepo:       debtRepo,
		outboxRepo:     outboxRepo,
		directory:      directory,
		producer:       producer,
		logger:         logger,
	}
}

// PreviewSettlement computes the optimized transfer plan for the ledger's
// current active debts without persisting anything
func (s *SettlementServiceImpl) PreviewSettlement(ctx context.Context, ledgerID uuid.UUID, currency string) (*settlement.Result, error) {
	relations, err := s.debtRepo.GetActiveByLedger(ctx, ledgerID, currency)
	if err != nil {
		return nil, err
	}

	result, optErr := settlement.Optimize(relations)
	if optErr != nil {
		var unbalanced settlement.ErrUnbalancedLedger
		if !errors.As(optErr, &unbalanced) {
			return nil, optErr
		}
		s.logger.Error("Ledger debts violate money conservation",
			"ledger_id", ledgerID.String(),
			"currency", currency,
			"residual", unbalanced.Residual,
		)
	}

	if err := resolveMemberNames(ctx, s.directory, result.MemberSummaries, result.Transfers); err != nil {
		return nil, err
	}
	// The plan stays usable alongside the integrity error
	return result, optErr
}

// CreateSettlement snapshots the ledger's active debts into a Pending
// settlement record with its optimized transfer plan. The snapshot is taken
// under the ledger advisory lock so no split can slip in mid-read.
func (s *SettlementServiceImpl) CreateSettlement(ctx context.Context, ledgerID uuid.UUID, currency string, initiatedBy uuid.UUID, periodStart, periodEnd time.Time) (*settlement.Record, error) {
	var record *settlement.Record
	err := s.db.ExecuteTx(ctx, func(tx pgx.Tx) error {
		debtRepo := s.debtRepo.WithTx(tx)

		if err := debtRepo.AcquireLedgerLock(ctx, ledgerID, currency); err != nil {
			return err
		}

		relations, err := debtRepo.GetActiveByLedger(ctx, ledgerID, currency)
		if err != nil {
			return err
		}
		if len(relations) == 0 {
			return settlement.ErrNothingToSettle{LedgerID: ledgerID}
		}

		result, optErr := settlement.Optimize(relations)
		if optErr != nil {
			var unbalanced settlement.ErrUnbalancedLedger
			if !errors.As(optErr, &unbalanced) {
				return optErr
			}
			s.logger.Error("Settlement snapshot taken over unbalanced ledger",
				"ledger_id", ledgerID.String(),
				"currency", currency,
				"residual", unbalanced.Residual,
			)
		}

		if err := resolveMemberNames(ctx, s.directory, result.MemberSummaries, result.Transfers); err != nil {
			return err
		}

		record = settlement.NewRecord(ledgerID, currency, initiatedBy, periodStart, periodEnd, relations, result)
		if err := s.settlementRepo.WithTx(tx).Create(ctx, record); err != nil {
			return err
		}

		if record.Residual != 0 {
			return s.recordAuditEvent(ctx, tx, record, shared.AuditEventIntegrityViolation, "")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Settlement record created",
		"settlement_id", record.ID,
		"ledger_id", ledgerID,
		"transfer_count", len(record.Transfers),
		"total_amount", record.TotalAmount,
	)
	return record, nil
}

// RequestSettlementRun publishes an asynchronous settlement run command
func (s *SettlementServiceImpl) RequestSettlementRun(ctx context.Context, request *shared.SettlementRunRequest) (string, error) {
	key := request.RequestID.String()
	if err := s.producer.Publish(ctx, key, request); err != nil {
		s.logger.Error("Failed to publish settlement run request",
			"ledger_id", request.LedgerID,
			"currency", request.Currency,
			"error", err,
		)
		return "", err
	}

	s.logger.Info("Settlement run request published",
		"request_id", request.RequestID,
		"ledger_id", request.LedgerID,
		"currency", request.Currency,
	)
	return key, nil
}

// GetSettlementByID retrieves a settlement record by its ID
func (s *SettlementServiceImpl) GetSettlementByID(ctx context.Context, id uuid.UUID) (*settlement.Record, error) {
	return s.settlementRepo.GetByID(ctx, id)
}

// ListSettlementsByLedger retrieves a paginated list of settlements
func (s *SettlementServiceImpl) ListSettlementsByLedger(ctx context.Context, ledgerID uuid.UUID, page, perPage int) ([]*settlement.Record, int64, error) {
	offset := (page - 1) * perPage

	records, err := s.settlementRepo.ListByLedger(ctx, ledgerID, perPage, offset)
	if err != nil {
		return nil, 0, err
	}

	total, err := s.settlementRepo.CountByLedger(ctx, ledgerID)
	if err != nil {
		return nil, 0, err
	}

	return records, total, nil
}

// StartSettlement transitions the settlement to InProgress and locks the
// referenced debt relations. Locking doubles as the staleness check: any
// referenced relation that is no longer Active and unlocked fails the bulk
// stamp, which surfaces as ErrStaleSettlement.
func (s *SettlementServiceImpl) StartSettlement(ctx context.Context, id uuid.UUID) (*settlement.Record, error) {
	var record *settlement.Record
	err := s.db.ExecuteTx(ctx, func(tx pgx.Tx) error {
		var err error
		record, err = s.startSettlementTx(ctx, tx, id)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Settlement started", "settlement_id", id)
	return record, nil
}

func (s *SettlementServiceImpl) startSettlementTx(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*settlement.Record, error) {
	settlementRepo := s.settlementRepo.WithTx(tx)
	debtRepo := s.debtRepo.WithTx(tx)

	record, err := settlementRepo.GetByIDForUpdate(ctx, id)
	if err != nil {
		return nil, err
	}

	// Serialize against concurrent split confirmations on the same ledger
	// scope so no relation is rewritten between the staleness check and
	// the locked_by stamp
	if err := debtRepo.AcquireLedgerLock(ctx, record.LedgerID, record.Currency); err != nil {
		return nil, err
	}

	if err := record.Start(); err != nil {
		return nil, err
	}

	if err := debtRepo.LockForSettlement(ctx, record.DebtRelationIDs, record.ID); err != nil {
		var modified debt.ErrRelationsModified
		if errors.As(err, &modified) {
			return nil, settlement.ErrStaleSettlement{SettlementID: record.ID}
		}
		return nil, err
	}

	if err := settlementRepo.UpdateStatus(ctx, record); err != nil {
		return nil, err
	}
	return record, nil
}

// CompleteSettlement marks all referenced debts Settled and the record
// Completed, emitting the audit event through the outbox. Completing an
// already Completed settlement returns the record unchanged.
func (s *SettlementServiceImpl) CompleteSettlement(ctx context.Context, id uuid.UUID, completedBy uuid.UUID) (*settlement.Record, error) {
	var record *settlement.Record
	err := s.db.ExecuteTx(ctx, func(tx pgx.Tx) error {
		var err error
		record, err = s.completeSettlementTx(ctx, tx, id, completedBy)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Settlement completed",
		"settlement_id", id,
		"completed_by", completedBy,
		"debt_count", len(record.DebtRelationIDs),
	)
	return record, nil
}

func (s *SettlementServiceImpl) completeSettlementTx(ctx context.Context, tx pgx.Tx, id, completedBy uuid.UUID) (*settlement.Record, error) {
	settlementRepo := s.settlementRepo.WithTx(tx)
	debtRepo := s.debtRepo.WithTx(tx)

	record, err := settlementRepo.GetByIDForUpdate(ctx, id)
	if err != nil {
		return nil, err
	}
	if record.Status == shared.SettlementStatusCompleted {
		// Idempotent: a retried completion is a no-op
		return record, nil
	}

	// Settling flips relation statuses against the stored plan, so it must
	// hold the same ledger lock split confirmations serialize on
	if err := debtRepo.AcquireLedgerLock(ctx, record.LedgerID, record.Currency); err != nil {
		return nil, err
	}

	now := time.Now()
	if err := record.Complete(completedBy, now); err != nil {
		return nil, err
	}

	if err := debtRepo.MarkSettled(ctx, record.DebtRelationIDs, record.ID, now); err != nil {
		var modified debt.ErrRelationsModified
		if errors.As(err, &modified) {
			return nil, settlement.ErrStaleSettlement{SettlementID: record.ID}
		}
		return nil, err
	}

	if err := settlementRepo.UpdateStatus(ctx, record); err != nil {
		return nil, err
	}
	if err := s.recordAuditEvent(ctx, tx, record, shared.AuditEventSettlementCompleted, ""); err != nil {
		return nil, err
	}
	return record, nil
}

// CancelSettlement cancels a Pending or InProgress settlement, releasing its
// debt locks. The referenced debts remain Active.
func (s *SettlementServiceImpl) CancelSettlement(ctx context.Context, id uuid.UUID) (*settlement.Record, error) {
	var record *settlement.Record
	err := s.db.ExecuteTx(ctx, func(tx pgx.Tx) error {
		var err error
		record, err = s.cancelSettlementTx(ctx, tx, id)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Settlement cancelled", "settlement_id", id)
	return record, nil
}

func (s *SettlementServiceImpl) cancelSettlementTx(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*settlement.Record, error) {
	settlementRepo := s.settlementRepo.WithTx(tx)
	debtRepo := s.debtRepo.WithTx(tx)

	record, err := settlementRepo.GetByIDForUpdate(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := record.Cancel(); err != nil {
		return nil, err
	}

	if err := debtRepo.ReleaseSettlementLock(ctx, record.ID); err != nil {
		return nil, err
	}
	if err := settlementRepo.UpdateStatus(ctx, record); err != nil {
		return nil, err
	}
	if err := s.recordAuditEvent(ctx, tx, record, shared.AuditEventSettlementCancelled, ""); err != nil {
		return nil, err
	}
	return record, nil
}

// recordAuditEvent writes a settlement audit event into the transactional
// outbox. The poller publishes it to the audit trail after commit.
func (s *SettlementServiceImpl) recordAuditEvent(ctx context.Context, tx pgx.Tx, record *settlement.Record, eventType shared.AuditEventType, correlationID string) error {
	detail, err := json.Marshal(record)
	if err != nil {
		return err
	}

	entry := audit.NewEntry(record.ID, record.LedgerID, eventType, detail, correlationID)
	message, err := outbox.NewMessage(entry)
	if err != nil {
		return err
	}
	return s.outboxRepo.WithTx(tx).Create(ctx, message)
}
