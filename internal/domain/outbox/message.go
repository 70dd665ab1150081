package outbox

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/splitledger/internal/domain/audit"
	"github.com/splitledger/internal/domain/shared"
)

// Message stores a settlement audit event for reliable publishing. Events are
// written in the same transaction as the settlement mutation they describe
// and drained by the outbox poller into the audit trail.
type Message struct {
	ID            int64                 `json:"id"`
	EventID       uuid.UUID             `json:"event_id"`
	SettlementID  uuid.UUID             `json:"settlement_id"`
	LedgerID      uuid.UUID             `json:"ledger_id"`
	EventType     shared.AuditEventType `json:"event_type"`
	Payload       json.RawMessage       `json:"payload"`
	Status        shared.OutboxStatus   `json:"status"`
	Attempts      int                   `json:"attempts"`
	CreatedAt     time.Time             `json:"created_at"`
	LastAttemptAt *time.Time            `json:"last_attempt_at,omitempty"`
}

func NewMessage(entry *audit.Entry) (*Message, error) {
	payload, err := json.Marshal(entry)
	if err != nil {
		return nil, err
	}

	return &Message{
		EventID:      entry.EventID,
		SettlementID: entry.SettlementID,
		LedgerID:     entry.LedgerID,
		EventType:    entry.EventType,
		Payload:      payload,
		Status:       shared.OutboxStatusPending,
		Attempts:     0,
		CreatedAt:    time.Now(),
	}, nil
}

func (m *Message) IncrementAttempts() {
	m.Attempts++
	now := time.Now()
	m.LastAttemptAt = &now
}

func (m *Message) MarkAsProcessed() {
	m.Status = shared.OutboxStatusProcessed
	now := time.Now()
	m.LastAttemptAt = &now
}

func (m *Message) MarkAsFailed() {
	m.Status = shared.OutboxStatusFailedToPublish
	now := time.Now()
	m.LastAttemptAt = &now
}

// GetAuditEntry extracts the audit entry from the payload
func (m *Message) GetAuditEntry() (*audit.Entry, error) {
	var entry audit.Entry
	if err := json.Unmarshal(m.Payload, &entry); err != nil {
		return nil, err
	}
	return &entry, nil
}
