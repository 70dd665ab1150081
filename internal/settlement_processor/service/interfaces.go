package service

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/splitledger/internal/domain/settlement"
	"github.com/splitledger/internal/domain/shared"
)

// ProcessingService defines the interface for running settlement cycles.
type ProcessingService interface {
	ProcessSettlementRun(ctx context.Context, request *shared.SettlementRunRequest) error
}

// SnapshotManager captures the ledger's active debts into a Pending
// settlement record under the ledger advisory lock
type SnapshotManager interface {
	BuildSnapshot(ctx context.Context, tx pgx.Tx, request *shared.SettlementRunRequest) (*settlement.Record, error)
}

// DebtManager locks and resolves the debt relations referenced by a settlement
type DebtManager interface {
	LockRelations(ctx context.Context, tx pgx.Tx, record *settlement.Record) error
	SettleRelations(ctx context.Context, tx pgx.Tx, record *settlement.Record, at time.Time) error
}

// AuditRecorder writes settlement audit events into the transactional outbox
type AuditRecorder interface {
	RecordEvent(ctx context.Context, tx pgx.Tx, record *settlement.Record, eventType shared.AuditEventType, correlationID string) error
}
