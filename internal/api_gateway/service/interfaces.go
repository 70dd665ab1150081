package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/splitledger/internal/domain/debt"
	"github.com/splitledger/internal/domain/member"
	"github.com/splitledger/internal/domain/settlement"
	"github.com/splitledger/internal/domain/shared"
	"github.com/splitledger/internal/domain/split"
)

// MemberService defines the interface for member directory operations
type MemberService interface {
	// CreateMember registers a new member with the given display name
	CreateMember(ctx context.Context, displayName string) (*member.Member, error)

	// GetMemberByID retrieves a member by its ID
	// Returns ErrMemberNotFound if the member doesn't exist
	GetMemberByID(ctx context.Context, id uuid.UUID) (*member.Member, error)
}

// SplitInput carries one participant's share configuration for split creation
type SplitInput struct {
	MemberID   uuid.UUID
	Amount     *int64
	Percentage *string
	Weight     *string
}

// SplitService defines the interface for split record operations
type SplitService interface {
	// PreviewSplit runs the split strategy without persisting anything,
	// returning the computed detail set
	PreviewSplit(ctx context.Context, total int64, splitType shared.SplitType, participants []SplitInput) ([]split.Detail, error)

	// CreateSplit computes the detail set for the given strategy, stores the
	// record in Pending status, and returns it. The computed amounts always
	// sum exactly to the total.
	CreateSplit(ctx context.Context, transactionID, ledgerID, payerID uuid.UUID, total int64, currency string, splitType shared.SplitType, participants []SplitInput) (*split.Record, error)

	// GetSplitByID retrieves a split record by its ID
	// Returns ErrSplitNotFound if the record doesn't exist
	GetSplitByID(ctx context.Context, id uuid.UUID) (*split.Record, error)

	// GetSplitByTransactionID retrieves the split covering a transaction.
	// Returns nil if the transaction has no split.
	GetSplitByTransactionID(ctx context.Context, transactionID uuid.UUID) (*split.Record, error)

	// ListSplitsByLedger retrieves a paginated list of splits for a ledger
	// Returns records, total count, and any error
	ListSplitsByLedger(ctx context.Context, ledgerID uuid.UUID, page, perPage int) ([]*split.Record, int64, error)

	// ConfirmSplit transitions the split to Confirmed and applies its deltas
	// to the ledger's debt relations atomically
	ConfirmSplit(ctx context.Context, id uuid.UUID) (*split.Record, error)

	// MarkSplitPaid transitions the split from Confirmed to Paid. The move is
	// informational; debt relations advance only through settlements.
	MarkSplitPaid(ctx context.Context, id uuid.UUID) (*split.Record, error)

	// CancelSplit transitions the split to Cancelled, reversing its debt
	// deltas when the split had been confirmed
	CancelSplit(ctx context.Context, id uuid.UUID) (*split.Record, error)

	// UpdateSplitDetails replaces the whole detail set of an editable split.
	// When the split is Confirmed, the old deltas are reversed and the new
	// ones applied in the same transaction.
	UpdateSplitDetails(ctx context.Context, id uuid.UUID, total int64, splitType shared.SplitType, participants []SplitInput) (*split.Record, error)

	// DeleteSplit removes the split record outright, used when the parent
	// transaction is deleted or un-shared. A Confirmed split gets its debt
	// deltas reversed in the same transaction.
	DeleteSplit(ctx context.Context, id uuid.UUID) error
}

// DebtService defines the interface for debt relation queries
type DebtService interface {
	// GetActiveDebts retrieves the ledger's Active debt relations with a
	// positive balance, ordered deterministically
	GetActiveDebts(ctx context.Context, ledgerID uuid.UUID, currency string) ([]*debt.Relation, error)

	// GetMemberBalances computes the per-member net position over the
	// ledger's active debts
	GetMemberBalances(ctx context.Context, ledgerID uuid.UUID, currency string) ([]settlement.MemberSummary, error)
}

// SettlementService defines the interface for settlement lifecycle operations
type SettlementService interface {
	// PreviewSettlement computes the optimized transfer plan for the ledger's
	// current active debts without persisting anything. The returned result
	// is valid even when ErrUnbalancedLedger accompanies it.
	PreviewSettlement(ctx context.Context, ledgerID uuid.UUID, currency string) (*settlement.Result, error)

	// CreateSettlement snapshots the ledger's active debts into a Pending
	// settlement record with its optimized transfer plan.
	// Returns ErrNothingToSettle when the ledger carries no active debts.
	CreateSettlement(ctx context.Context, ledgerID uuid.UUID, currency string, initiatedBy uuid.UUID, periodStart, periodEnd time.Time) (*settlement.Record, error)

	// RequestSettlementRun publishes an asynchronous settlement run command.
	// The settlement processor snapshots, starts, and completes the cycle.
	// Returns the request ID used as the message key.
	RequestSettlementRun(ctx context.Context, request *shared.SettlementRunRequest) (string, error)

	// GetSettlementByID retrieves a settlement record by its ID
	// Returns ErrSettlementNotFound if the record doesn't exist
	GetSettlementByID(ctx context.Context, id uuid.UUID) (*settlement.Record, error)

	// ListSettlementsByLedger retrieves a paginated list of settlements
	// Returns records, total count, and any error
	ListSettlementsByLedger(ctx context.Context, ledgerID uuid.UUID, page, perPage int) ([]*settlement.Record, int64, error)

	// StartSettlement transitions the settlement to InProgress and locks the
	// referenced debt relations against concurrent modification.
	// Returns ErrStaleSettlement when any referenced debt changed since the
	// snapshot was taken.
	StartSettlement(ctx context.Context, id uuid.UUID) (*settlement.Record, error)

	// CompleteSettlement marks all referenced debts Settled and the record
	// Completed. Completing an already Completed settlement is idempotent.
	CompleteSettlement(ctx context.Context, id uuid.UUID, completedBy uuid.UUID) (*settlement.Record, error)

	// CancelSettlement cancels a Pending or InProgress settlement, releasing
	// its debt locks. The referenced debts remain Active and untouched.
	CancelSettlement(ctx context.Context, id uuid.UUID) (*settlement.Record, error)
}
