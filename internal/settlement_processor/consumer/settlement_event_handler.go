package consumer

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/splitledger/internal/domain/shared"
	"github.com/splitledger/internal/platform/messaging/producers"
	"github.com/splitledger/internal/settlement_processor/service"
)

// SettlementEventHandler handles incoming settlement run messages from Kafka
type SettlementEventHandler struct {
	processingService service.ProcessingService
	producer          producers.DeadLetterPublisher
	logger            *slog.Logger
}

// NewSettlementEventHandler creates a new handler
func NewSettlementEventHandler(
	logger *slog.Logger,
	processingService service.ProcessingService,
	producer producers.DeadLetterPublisher,
) *SettlementEventHandler {
	return &SettlementEventHandler{
		processingService: processingService,
		producer:          producer,
		logger:            logger,
	}
}

// HandleMessage processes Kafka messages
func (h *SettlementEventHandler) HandleMessage(ctx context.Context, key []byte, value []byte) error {
	var request shared.SettlementRunRequest
	if err := json.Unmarshal(value, &request); err != nil {
		unmarshalErrorMsg := "Failed to unmarshal settlement run request from Kafka message"
		h.logger.Error(unmarshalErrorMsg,
			"error", err,
			"message_key", string(key),
		)

		// Send to DLQ if available
		if h.producer != nil {
			dlqReason := fmt.Sprintf("%s: %s", unmarshalErrorMsg, err.Error())
			if dlqErr := h.producer.PublishToDLQ(ctx, string(key), value, dlqReason); dlqErr != nil {
				h.logger.Error("Failed to publish message to DLQ after unmarshal error",
					"dlq_error", dlqErr,
					"original_error", err,
					"message_key", string(key),
				)
				// Return original error if DLQ fails
			} else {
				h.logger.Info("Successfully published unprocessable message to DLQ", "message_key", string(key), "reason", dlqReason)
				// Message handled, commit offset
				return nil
			}
		}
		// Allow Kafka retries
		return fmt.Errorf("failed to unmarshal message value: %w", err)
	}

	// Add correlation ID to logger
	logger := h.logger
	if request.CorrelationID != "" {
		logger = h.logger.With("correlation_id", request.CorrelationID)
	}

	logger.Info("Received settlement run request for processing",
		"request_id", request.RequestID.String(),
		"ledger_id", request.LedgerID.String(),
		"currency", request.Currency,
	)

	if err := h.processingService.ProcessSettlementRun(ctx, &request); err != nil {
		logger.Error("Failed to process settlement run",
			"request_id", request.RequestID.String(),
			"ledger_id", request.LedgerID.String(),
			"error", err,
		)
		return fmt.Errorf("processing settlement run %s failed: %w", request.RequestID.String(), err)
	}

	logger.Info("Successfully processed settlement run", "request_id", request.RequestID.String())
	return nil // Success, commit offset
}
