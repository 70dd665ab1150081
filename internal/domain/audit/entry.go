package audit

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/splitledger/internal/domain/shared"
)

// Entry is one immutable record in the settlement audit trail. Completed and
// cancelled settlements land here, as do money-conservation violations that
// need investigation; entries are never updated or deleted.
type Entry struct {
	EventID       uuid.UUID             `json:"event_id" bson:"event_id"`
	SettlementID  uuid.UUID             `json:"settlement_id" bson:"settlement_id"`
	LedgerID      uuid.UUID             `json:"ledger_id" bson:"ledger_id"`
	EventType     shared.AuditEventType `json:"event_type" bson:"event_type"`
	Detail        json.RawMessage       `json:"detail,omitempty" bson:"detail,omitempty"`
	CorrelationID string                `json:"correlation_id,omitempty" bson:"correlation_id,omitempty"`
	RecordedAt    time.Time             `json:"recorded_at" bson:"recorded_at"`
}

// NewEntry creates an audit entry stamped with a fresh event ID
func NewEntry(settlementID, ledgerID uuid.UUID, eventType shared.AuditEventType, detail json.RawMessage, correlationID string) *Entry {
	return &Entry{
		EventID:       uuid.New(),
		SettlementID:  settlementID,
		LedgerID:      ledgerID,
		EventType:     eventType,
		Detail:        detail,
		CorrelationID: correlationID,
		RecordedAt:    time.Now(),
	}
}

// ErrEntryNotFound indicates missing audit entry
type ErrEntryNotFound struct {
	EventID uuid.UUID
}

func (e ErrEntryNotFound) Error() string {
	return "audit entry not found: " + e.EventID.String()
}

// ErrDuplicateEntry indicates event ID uniqueness violation
type ErrDuplicateEntry struct {
	EventID uuid.UUID
}

func (e ErrDuplicateEntry) Error() string {
	return "duplicate audit entry: " + e.EventID.String()
}
