package components

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/splitledger/internal/domain/debt"
	"github.com/splitledger/internal/domain/member"
	"github.com/splitledger/internal/domain/settlement"
	"github.com/splitledger/internal/domain/shared"
	"github.com/splitledger/internal/settlement_processor/service"
)

// Settlement runs cover the trailing period when the request carries no
// explicit bounds.
const defaultPeriodDays = 30

type SnapshotManagerImpl struct {
	settlementRepo settlement.Repository
	debtRepo       debt.Repository
	directory      member.Directory
	logger         *slog.Logger
}

func NewSnapshotManager(
	settlementRepo settlement.Repository,
	debtRepo debt.Repository,
	directory member.Directory,
	logger *slog.Logger,
) service.SnapshotManager {
	return &SnapshotManagerImpl{
		settlementRepo: settlementRepo,
		debtRepo:       debtRepo,
		directory:      directory,
		logger:         logger,
	}
}

// BuildSnapshot captures the ledger's active debts into a Pending settlement
// record. The ledger advisory lock is taken first so no split confirmation
// can change the balances mid-read.
func (m *SnapshotManagerImpl) BuildSnapshot(ctx context.Context, tx pgx.Tx, request *shared.SettlementRunRequest) (*settlement.Record, error) {
	logger := m.logger
	if request.CorrelationID != "" {
		logger = m.logger.With("correlation_id", request.CorrelationID)
	}

	debtRepo := m.debtRepo.WithTx(tx)

	if err := debtRepo.AcquireLedgerLock(ctx, request.LedgerID, request.Currency); err != nil {
		return nil, err
	}

	relations, err := debtRepo.GetActiveByLedger(ctx, request.LedgerID, request.Currency)
	if err != nil {
		return nil, err
	}
	if len(relations) == 0 {
		return nil, settlement.ErrNothingToSettle{LedgerID: request.LedgerID}
	}

	result, optErr := settlement.Optimize(relations)
	if optErr != nil {
		var unbalanced settlement.ErrUnbalancedLedger
		if !errors.As(optErr, &unbalanced) {
			return nil, optErr
		}
		logger.Error("Settlement snapshot taken over unbalanced ledger",
			"ledger_id", request.LedgerID.String(),
			"currency", request.Currency,
			"residual", unbalanced.Residual,
		)
	}

	if err := m.resolveNames(ctx, result); err != nil {
		return nil, err
	}

	periodEnd := request.Timestamp
	if periodEnd.IsZero() {
		periodEnd = time.Now()
	}
	periodStart := periodEnd.AddDate(0, 0, -defaultPeriodDays)

	record := settlement.NewRecord(request.LedgerID, request.Currency, request.InitiatedBy, periodStart, periodEnd, relations, result)
	if err := m.settlementRepo.WithTx(tx).Create(ctx, record); err != nil {
		logger.Error("Failed to create settlement record",
			"request_id", request.RequestID.String(),
			"ledger_id", request.LedgerID.String(),
			"error", err,
		)
		return nil, err
	}

	logger.Info("Settlement snapshot created",
		"settlement_id", record.ID.String(),
		"ledger_id", request.LedgerID.String(),
		"debt_count", len(relations),
		"transfer_count", len(record.Transfers),
	)
	return record, nil
}

// resolveNames fills member display names into the optimizer output. Unknown
// members keep an empty name rather than failing the snapshot.
func (m *SnapshotManagerImpl) resolveNames(ctx context.Context, result *settlement.Result) error {
	idSet := make(map[uuid.UUID]struct{})
	for _, s := range result.MemberSummaries {
		idSet[s.MemberID] = struct{}{}
	}
	if len(idSet) == 0 {
		return nil
	}

	ids := make([]uuid.UUID, 0, len(idSet))
	for id := range idSet {
		ids = append(ids, id)
	}

	members, err := m.directory.GetByIDs(ctx, ids)
	if err != nil {
		return err
	}

	summaries := result.MemberSummaries
	for i := range summaries {
		if mem, ok := members[summaries[i].MemberID]; ok {
			summaries[i].DisplayName = mem.DisplayName
		}
	}
	transfers := result.Transfers
	for i := range transfers {
		if mem, ok := members[transfers[i].FromMemberID]; ok {
			transfers[i].FromName = mem.DisplayName
		}
		if mem, ok := members[transfers[i].ToMemberID]; ok {
			transfers[i].ToName = mem.DisplayName
		}
	}
	return nil
}
