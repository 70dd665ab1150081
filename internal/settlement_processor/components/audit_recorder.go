package components

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/splitledger/internal/domain/audit"
	"github.com/splitledger/internal/domain/outbox"
	"github.com/splitledger/internal/domain/settlement"
	"github.com/splitledger/internal/domain/shared"
	"github.com/splitledger/internal/settlement_processor/service"
)

type AuditRecorderImpl struct {
	outboxRepo outbox.Repository
	logger     *slog.Logger
}

func NewAuditRecorder(outboxRepo outbox.Repository, logger *slog.Logger) service.AuditRecorder {
	return &AuditRecorderImpl{
		outboxRepo: outboxRepo,
		logger:     logger,
	}
}

// RecordEvent writes a settlement audit event into the transactional outbox.
// The poller publishes it to the audit trail after commit.
func (r *AuditRecorderImpl) RecordEvent(ctx context.Context, tx pgx.Tx, record *settlement.Record, eventType shared.AuditEventType, correlationID string) error {
	logger := r.logger
	if correlationID != "" {
		logger = r.logger.With("correlation_id", correlationID)
	}

	detail, err := json.Marshal(record)
	if err != nil {
		logger.Error("Failed to marshal settlement record for audit event",
			"settlement_id", record.ID.String(),
			"event_type", eventType,
			"error", err,
		)
		return fmt.Errorf("failed to marshal audit payload for settlement %s: %w", record.ID.String(), err)
	}

	entry := audit.NewEntry(record.ID, record.LedgerID, eventType, detail, correlationID)
	message, err := outbox.NewMessage(entry)
	if err != nil {
		return fmt.Errorf("failed to create outbox message for settlement %s: %w", record.ID.String(), err)
	}

	if err := r.outboxRepo.WithTx(tx).Create(ctx, message); err != nil {
		var duplicate outbox.ErrDuplicateMessage
		if errors.As(err, &duplicate) {
			// Event already queued by an earlier attempt
			logger.Warn("Outbox message already exists for event",
				"settlement_id", record.ID.String(),
				"event_id", duplicate.EventID.String(),
			)
			return nil
		}
		logger.Error("Failed to create outbox message",
			"settlement_id", record.ID.String(),
			"event_type", eventType,
			"error", err,
		)
		return fmt.Errorf("failed to create outbox message for settlement %s: %w", record.ID.String(), err)
	}

	logger.Info("Outbox message created successfully",
		"settlement_id", record.ID.String(),
		"event_type", eventType,
		"outbox_id", message.ID,
	)
	return nil
}
