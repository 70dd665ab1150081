package outbox_poller

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/splitledger/internal/domain/audit"
	"github.com/splitledger/internal/domain/outbox"
	"github.com/splitledger/internal/domain/shared"
)

// AuditPublisher publishes outbox messages to the audit trail
type AuditPublisher interface {
	PublishToAuditTrail(ctx context.Context, message *outbox.Message) error
}

// AuditPublisherImpl implements AuditPublisher
type AuditPublisherImpl struct {
	outboxRepo outbox.Repository
	auditRepo  audit.Repository
	logger     *slog.Logger
}

// NewAuditPublisher creates a new publisher
func NewAuditPublisher(
	outboxRepo outbox.Repository,
	auditRepo audit.Repository,
	logger *slog.Logger,
) AuditPublisher {
	return &AuditPublisherImpl{
		outboxRepo: outboxRepo,
		auditRepo:  auditRepo,
		logger:     logger,
	}
}

// PublishToAuditTrail writes the message's audit entry to the trail and marks
// the message processed. Publishing the same event twice is a no-op.
func (p *AuditPublisherImpl) PublishToAuditTrail(ctx context.Context, message *outbox.Message) error {
	entry, err := message.GetAuditEntry()
	if err != nil {
		p.logger.Error("Failed to unmarshal audit entry from outbox payload",
			"outbox_id", message.ID, "settlement_id", message.SettlementID, "error", err,
		)
		if updateErr := p.outboxRepo.UpdateStatus(ctx, message.ID, shared.OutboxStatusFailedToPublish); updateErr != nil {
			p.logger.Error("Also failed to update outbox status to FAILED_TO_PUBLISH after unmarshal error", "outbox_id", message.ID, "update_error", updateErr)
		}
		return fmt.Errorf("unmarshal payload for outbox %d failed: %w", message.ID, err)
	}

	// Add correlation ID to logger
	logger := p.logger
	if entry.CorrelationID != "" {
		logger = p.logger.With("correlation_id", entry.CorrelationID)
	}

	logger.Info("Attempting to publish outbox message to audit trail", "outbox_id", message.ID, "event_id", entry.EventID)

	existing, err := p.auditRepo.GetByEventID(ctx, entry.EventID)
	var notFound audit.ErrEntryNotFound
	if err != nil && !errors.As(err, &notFound) {
		logger.Error("Failed to check existing audit entry before publishing", "event_id", entry.EventID, "error", err)
		return fmt.Errorf("failed to check existing audit entry %s: %w", entry.EventID, err)
	}

	if existing != nil {
		logger.Info("Audit entry already recorded", "event_id", entry.EventID)
	} else {
		if err := p.auditRepo.Create(ctx, entry); err != nil {
			var duplicate audit.ErrDuplicateEntry
			if !errors.As(err, &duplicate) {
				logger.Error("Failed to create audit entry in MongoDB", "event_id", entry.EventID, "error", err)
				return fmt.Errorf("failed to create audit entry %s: %w", entry.EventID, err)
			}
			logger.Info("Audit entry already recorded", "event_id", entry.EventID)
		} else {
			logger.Info("Successfully created audit entry in MongoDB", "event_id", entry.EventID)
		}
	}

	// Mark outbox message as processed
	if err := p.outboxRepo.UpdateStatus(ctx, message.ID, shared.OutboxStatusProcessed); err != nil {
		logger.Error("Failed to update outbox message status to PROCESSED",
			"outbox_id", message.ID, "event_id", entry.EventID, "error", err,
		)
		return fmt.Errorf("audit write for %s OK, but failed to mark outbox %d as PROCESSED: %w", entry.EventID, message.ID, err)
	}

	logger.Info("Outbox message successfully processed and marked as PROCESSED", "outbox_id", message.ID, "event_id", entry.EventID)
	return nil
}
