package shared

import (
	"time"

	"github.com/google/uuid"
)

// SettlementRunRequest defines a Kafka message asking the settlement processor
// to run a full settlement cycle (snapshot, optimize, execute) for a ledger
type SettlementRunRequest struct {
	RequestID     uuid.UUID `json:"request_id"`
	LedgerID      uuid.UUID `json:"ledger_id"`
	Currency      string    `json:"currency"`
	InitiatedBy   uuid.UUID `json:"initiated_by"`
	CorrelationID string    `json:"correlation_id"`
	Timestamp     time.Time `json:"timestamp"`
}
