package components

import (
	"log/slog"

	"github.com/splitledger/internal/config"
	"github.com/splitledger/internal/domain/debt"
	"github.com/splitledger/internal/domain/member"
	"github.com/splitledger/internal/domain/outbox"
	"github.com/splitledger/internal/domain/settlement"
	"github.com/splitledger/internal/platform/persistence"
	"github.com/splitledger/internal/settlement_processor/service"
)

// CreateProcessingService creates a new ProcessingService with all its dependencies.
func CreateProcessingService(
	pgDB *persistence.PostgresDB,
	settlementRepo settlement.Repository,
	debtRepo debt.Repository,
	outboxRepo outbox.Repository,
	directory member.Directory,
	logger *slog.Logger,
	cfg *config.Config,
) service.ProcessingService {
	snapshotManager := NewSnapshotManager(settlementRepo, debtRepo, directory, logger)
	debtManager := NewDebtManager(debtRepo, logger)
	auditRecorder := NewAuditRecorder(outboxRepo, logger)

	baseService := service.NewProcessingService(
		pgDB,
		settlementRepo,
		snapshotManager,
		debtManager,
		auditRecorder,
		logger,
	)

	workerPoolService, err := service.NewWorkerPoolProcessingService(
		baseService,
		service.WorkerPoolConfig{
			Size: cfg.WorkerPool.Size,
		},
		logger.With("component", "worker_pool"),
	)

	if err != nil {
		logger.Error("Failed to create worker pool service, falling back to base service", "error", err)
		return baseService
	}

	logger.Info("Created worker pool processing service", "pool_size", cfg.WorkerPool.Size)
	return workerPoolService
}
