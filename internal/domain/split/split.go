package split

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/splitledger/internal/domain/shared"
)

// Common errors
var (
	ErrInvalidTotal          = errors.New("total must be positive")
	ErrInvalidCurrencyFormat = errors.New("currency must be a 3-letter code")
	ErrDetailSumMismatch     = errors.New("detail amounts must sum to total")
	ErrPayerNotSet           = errors.New("payer member is required")
)

// Detail represents one member's share of a split transaction
type Detail struct {
	MemberID   uuid.UUID        `json:"member_id"`
	Amount     int64            `json:"amount"` // Stored in cents/minor units
	Percentage *decimal.Decimal `json:"percentage,omitempty"`
	Weight     *decimal.Decimal `json:"weight,omitempty"`
	IsPaid     bool             `json:"is_paid"`
	PaidAt     *time.Time       `json:"paid_at,omitempty"`
}

// Record represents one shared transaction's split across ledger members
type Record struct {
	ID            uuid.UUID          `json:"id"`
	TransactionID uuid.UUID          `json:"transaction_id"`
	LedgerID      uuid.UUID          `json:"ledger_id"`
	PayerID       uuid.UUID          `json:"payer_id"`
	Total         int64              `json:"total"` // Stored in cents/minor units
	Currency      string             `json:"currency"`
	Type          shared.SplitType   `json:"type"`
	Status        shared.SplitStatus `json:"status"`
	Details       []Detail           `json:"details"`
	PaidAt        *time.Time         `json:"paid_at,omitempty"`
	CreatedAt     time.Time          `json:"created_at"`
	UpdatedAt     time.Time          `json:"updated_at"`
}

// NewRecord creates a split record in Pending status. The detail set must
// already satisfy the exact-sum invariant (see Compute).
func NewRecord(transactionID, ledgerID, payerID uuid.UUID, total int64, currency string, splitType shared.SplitType, details []Detail) (*Record, error) {
	if payerID == uuid.Nil {
		return nil, ErrPayerNotSet
	}
	if total <= 0 {
		return nil, ErrInvalidTotal
	}
	if len(currency) != 3 {
		return nil, ErrInvalidCurrencyFormat
	}
	if sumDetails(details) != total {
		return nil, ErrDetailSumMismatch
	}

	now := time.Now()
	return &Record{
		ID:            uuid.New(),
		TransactionID: transactionID,
		LedgerID:      ledgerID,
		PayerID:       payerID,
		Total:         total,
		Currency:      currency,
		Type:          splitType,
		Status:        shared.SplitStatusPending,
		Details:       details,
		CreatedAt:     now,
		UpdatedAt:     now,
	}, nil
}

// Confirm transitions the record from Pending to Confirmed
func (r *Record) Confirm() error {
	if r.Status != shared.SplitStatusPending {
		return ErrInvalidStatusTransition{SplitID: r.ID, From: r.Status, To: shared.SplitStatusConfirmed}
	}
	r.Status = shared.SplitStatusConfirmed
	r.UpdatedAt = time.Now()
	return nil
}

// MarkPaid transitions the record from Confirmed to Paid and stamps paid_at.
// Paying a split is informational only: the aggregate debt relations advance
// exclusively through a settlement cycle.
func (r *Record) MarkPaid(at time.Time) error {
	if r.Status != shared.SplitStatusConfirmed {
		return ErrInvalidStatusTransition{SplitID: r.ID, From: r.Status, To: shared.SplitStatusPaid}
	}
	r.Status = shared.SplitStatusPaid
	r.PaidAt = &at
	for i := range r.Details {
		r.Details[i].IsPaid = true
		paidAt := at
		r.Details[i].PaidAt = &paidAt
	}
	r.UpdatedAt = at
	return nil
}

// Cancel transitions the record from Pending or Confirmed to Cancelled (terminal)
func (r *Record) Cancel() error {
	if r.Status != shared.SplitStatusPending && r.Status != shared.SplitStatusConfirmed {
		return ErrInvalidStatusTransition{SplitID: r.ID, From: r.Status, To: shared.SplitStatusCancelled}
	}
	r.Status = shared.SplitStatusCancelled
	r.UpdatedAt = time.Now()
	return nil
}

// ReplaceDetails swaps the whole detail collection atomically. Splits are never
// patched field-by-field; the new set must satisfy the sum invariant against
// the new total before any state changes.
func (r *Record) ReplaceDetails(total int64, splitType shared.SplitType, details []Detail) error {
	if r.Status != shared.SplitStatusPending && r.Status != shared.SplitStatusConfirmed {
		return ErrInvalidStatusTransition{SplitID: r.ID, From: r.Status, To: r.Status}
	}
	if total <= 0 {
		return ErrInvalidTotal
	}
	if sumDetails(details) != total {
		return ErrDetailSumMismatch
	}

	r.Total = total
	r.Type = splitType
	r.Details = details
	r.UpdatedAt = time.Now()
	return nil
}

// Editable reports whether the record may still be modified or reversed
func (r *Record) Editable() bool {
	return r.Status == shared.SplitStatusPending || r.Status == shared.SplitStatusConfirmed
}

func sumDetails(details []Detail) int64 {
	var sum int64
	for _, d := range details {
		sum += d.Amount
	}
	return sum
}
