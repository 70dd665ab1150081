package settlement

import (
	"time"

	"github.com/google/uuid"
	"github.com/splitledger/internal/domain/debt"
	"github.com/splitledger/internal/domain/shared"
)

// MemberSummary is the per-member paid/owed breakdown captured in a
// settlement snapshot
type MemberSummary struct {
	MemberID    uuid.UUID `json:"member_id"`
	DisplayName string    `json:"display_name,omitempty"`
	TotalOwedTo int64     `json:"total_owed_to"` // Sum owed to this member as creditor
	TotalOwes   int64     `json:"total_owes"`    // Sum this member owes as debtor
	NetBalance  int64     `json:"net_balance"`   // TotalOwedTo - TotalOwes
}

// Transfer is one payment in the optimized settlement plan
type Transfer struct {
	FromMemberID uuid.UUID `json:"from_member_id"`
	ToMemberID   uuid.UUID `json:"to_member_id"`
	FromName     string    `json:"from_name,omitempty"`
	ToName       string    `json:"to_name,omitempty"`
	Amount       int64     `json:"amount"` // Stored in cents/minor units
}

// Record is an immutable snapshot-and-resolution batch: the debts captured at
// creation time plus the optimized transfer plan that resolves them. Later
// debt changes never rewrite a pending snapshot; they make it stale instead.
type Record struct {
	ID              uuid.UUID               `json:"id"`
	LedgerID        uuid.UUID               `json:"ledger_id"`
	Currency        string                  `json:"currency"`
	PeriodStart     time.Time               `json:"period_start"`
	PeriodEnd       time.Time               `json:"period_end"`
	ParticipantIDs  []uuid.UUID             `json:"participant_ids"`
	MemberSummaries []MemberSummary         `json:"member_summaries"`
	Transfers       []Transfer              `json:"transfers"`
	DebtRelationIDs []uuid.UUID             `json:"debt_relation_ids"`
	TotalAmount     int64                   `json:"total_amount"`
	Residual        int64                   `json:"residual"` // Non-zero when the snapshot violated money conservation
	Status          shared.SettlementStatus `json:"status"`
	InitiatedBy     uuid.UUID               `json:"initiated_by"`
	CompletedBy     *uuid.UUID              `json:"completed_by,omitempty"`
	CompletedAt     *time.Time              `json:"completed_at,omitempty"`
	CreatedAt       time.Time               `json:"created_at"`
	UpdatedAt       time.Time               `json:"updated_at"`
}

// NewRecord assembles a Pending settlement snapshot from the captured
// relations and the optimizer output
func NewRecord(ledgerID uuid.UUID, currency string, initiatedBy uuid.UUID, periodStart, periodEnd time.Time, relations []*debt.Relation, result *Result) *Record {
	relationIDs := make([]uuid.UUID, len(relations))
	var totalAmount int64
	for i, rel := range relations {
		relationIDs[i] = rel.ID
		totalAmount += rel.Amount
	}

	participants := make([]uuid.UUID, len(result.MemberSummaries))
	for i, summary := range result.MemberSummaries {
		participants[i] = summary.MemberID
	}

	now := time.Now()
	return &Record{
		ID:              uuid.New(),
		LedgerID:        ledgerID,
		Currency:        currency,
		PeriodStart:     periodStart,
		PeriodEnd:       periodEnd,
		ParticipantIDs:  participants,
		MemberSummaries: result.MemberSummaries,
		Transfers:       result.Transfers,
		DebtRelationIDs: relationIDs,
		TotalAmount:     totalAmount,
		Residual:        result.Residual,
		Status:          shared.SettlementStatusPending,
		InitiatedBy:     initiatedBy,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
}

// Start transitions the record from Pending to InProgress
func (r *Record) Start() error {
	if r.Status != shared.SettlementStatusPending {
		return ErrInvalidStatusTransition{SettlementID: r.ID, From: r.Status, To: shared.SettlementStatusInProgress}
	}
	r.Status = shared.SettlementStatusInProgress
	r.UpdatedAt = time.Now()
	return nil
}

// Complete transitions the record from InProgress to Completed and records
// who resolved it. Idempotent completion of an already-Completed record is
// handled by the coordinator, not here.
func (r *Record) Complete(completedBy uuid.UUID, at time.Time) error {
	if r.Status != shared.SettlementStatusInProgress {
		return ErrInvalidStatusTransition{SettlementID: r.ID, From: r.Status, To: shared.SettlementStatusCompleted}
	}
	r.Status = shared.SettlementStatusCompleted
	r.CompletedBy = &completedBy
	r.CompletedAt = &at
	r.UpdatedAt = at
	return nil
}

// Cancel transitions the record from Pending or InProgress to Cancelled.
// The referenced debts remain Active and completely unaffected.
func (r *Record) Cancel() error {
	if r.Status != shared.SettlementStatusPending && r.Status != shared.SettlementStatusInProgress {
		return ErrInvalidStatusTransition{SettlementID: r.ID, From: r.Status, To: shared.SettlementStatusCancelled}
	}
	r.Status = shared.SettlementStatusCancelled
	r.UpdatedAt = time.Now()
	return nil
}

// Terminal reports whether the record has reached a final state
func (r *Record) Terminal() bool {
	return r.Status == shared.SettlementStatusCompleted || r.Status == shared.SettlementStatusCancelled
}
