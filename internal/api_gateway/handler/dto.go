package handler

// CreateMemberRequest represents a request to register a new member
type CreateMemberRequest struct {
	DisplayName string `json:"display_name" binding:"required"`
}

// MemberResponse represents a member in API responses
type MemberResponse struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
	CreatedAt   string `json:"created_at"`
}

// SplitParticipantRequest represents one member's share configuration.
// Amount is required for FIXED_AMOUNT, Percentage for PERCENTAGE, and
// Weight for WEIGHTED splits.
type SplitParticipantRequest struct {
	MemberID   string  `json:"member_id" binding:"required,uuid"`
	Amount     *int64  `json:"amount,omitempty"`
	Percentage *string `json:"percentage,omitempty"`
	Weight     *string `json:"weight,omitempty"`
}

// PreviewSplitRequest represents a request to compute a split without
// persisting it
type PreviewSplitRequest struct {
	Total        int64                     `json:"total" binding:"required,gt=0"`
	Type         string                    `json:"type" binding:"required,oneof=EQUAL PERCENTAGE FIXED_AMOUNT WEIGHTED"`
	Participants []SplitParticipantRequest `json:"participants" binding:"required,min=1,dive"`
}

// SplitPreviewResponse carries the computed detail set of a split preview
type SplitPreviewResponse struct {
	Total   int64                 `json:"total"`
	Type    string                `json:"type"`
	Details []SplitDetailResponse `json:"details"`
}

// CreateSplitRequest represents a request to split a shared transaction
type CreateSplitRequest struct {
	TransactionID string                    `json:"transaction_id" binding:"required,uuid"`
	LedgerID      string                    `json:"ledger_id" binding:"required,uuid"`
	PayerID       string                    `json:"payer_id" binding:"required,uuid"`
	Total         int64                     `json:"total" binding:"required,gt=0"`
	Currency      string                    `json:"currency" binding:"required,len=3"`
	Type          string                    `json:"type" binding:"required,oneof=EQUAL PERCENTAGE FIXED_AMOUNT WEIGHTED"`
	Participants  []SplitParticipantRequest `json:"participants" binding:"required,min=1,dive"`
}

// UpdateSplitRequest represents a request to replace a split's whole detail
// set. Partial edits are not supported: the full configuration is restated.
type UpdateSplitRequest struct {
	Total        int64                     `json:"total" binding:"required,gt=0"`
	Type         string                    `json:"type" binding:"required,oneof=EQUAL PERCENTAGE FIXED_AMOUNT WEIGHTED"`
	Participants []SplitParticipantRequest `json:"participants" binding:"required,min=1,dive"`
}

// SplitDetailResponse represents one member's share in API responses
type SplitDetailResponse struct {
	MemberID   string  `json:"member_id"`
	Amount     int64   `json:"amount"`
	Percentage *string `json:"percentage,omitempty"`
	Weight     *string `json:"weight,omitempty"`
	IsPaid     bool    `json:"is_paid"`
	PaidAt     string  `json:"paid_at,omitempty"`
}

// SplitResponse represents a split record in API responses
type SplitResponse struct {
	ID            string                `json:"id"`
	TransactionID string                `json:"transaction_id"`
	LedgerID      string                `json:"ledger_id"`
	PayerID       string                `json:"payer_id"`
	Total         int64                 `json:"total"`
	Currency      string                `json:"currency"`
	Type          string                `json:"type"`
	Status        string                `json:"status"`
	Details       []SplitDetailResponse `json:"details"`
	PaidAt        string                `json:"paid_at,omitempty"`
	CreatedAt     string                `json:"created_at"`
	UpdatedAt     string                `json:"updated_at"`
}

// DebtRelationResponse represents an active debt relation in API responses
type DebtRelationResponse struct {
	ID               string `json:"id"`
	LedgerID         string `json:"ledger_id"`
	CreditorID       string `json:"creditor_id"`
	DebtorID         string `json:"debtor_id"`
	Amount           int64  `json:"amount"`
	Currency         string `json:"currency"`
	Status           string `json:"status"`
	LastCalculatedAt string `json:"last_calculated_at"`
}

// MemberBalanceResponse represents one member's net position
type MemberBalanceResponse struct {
	MemberID    string `json:"member_id"`
	DisplayName string `json:"display_name,omitempty"`
	TotalOwedTo int64  `json:"total_owed_to"`
	TotalOwes   int64  `json:"total_owes"`
	NetBalance  int64  `json:"net_balance"`
}

// TransferResponse represents one payment in an optimized settlement plan
type TransferResponse struct {
	FromMemberID string `json:"from_member_id"`
	ToMemberID   string `json:"to_member_id"`
	FromName     string `json:"from_name,omitempty"`
	ToName       string `json:"to_name,omitempty"`
	Amount       int64  `json:"amount"`
}

// SettlementPreviewResponse represents an optimized transfer plan without a
// persisted settlement. IntegrityViolation is set when the ledger's debts do
// not conserve money; the plan stays usable regardless.
type SettlementPreviewResponse struct {
	Transfers          []TransferResponse      `json:"transfers"`
	MemberBalances     []MemberBalanceResponse `json:"member_balances"`
	TransferCount      int                     `json:"transfer_count"`
	EstimatedSavings   int                     `json:"estimated_savings"`
	IntegrityViolation bool                    `json:"integrity_violation"`
	Residual           int64                   `json:"residual,omitempty"`
}

// CreateSettlementRequest represents a request to snapshot the ledger's
// active debts into a settlement
type CreateSettlementRequest struct {
	LedgerID    string `json:"ledger_id" binding:"required,uuid"`
	Currency    string `json:"currency" binding:"required,len=3"`
	InitiatedBy string `json:"initiated_by" binding:"required,uuid"`
	PeriodStart string `json:"period_start,omitempty"`
	PeriodEnd   string `json:"period_end,omitempty"`
}

// RunSettlementRequest represents a request for an asynchronous settlement
// cycle handled by the settlement processor
type RunSettlementRequest struct {
	LedgerID    string `json:"ledger_id" binding:"required,uuid"`
	Currency    string `json:"currency" binding:"required,len=3"`
	InitiatedBy string `json:"initiated_by" binding:"required,uuid"`
}

// CompleteSettlementRequest identifies who resolved the settlement
type CompleteSettlementRequest struct {
	CompletedBy string `json:"completed_by" binding:"required,uuid"`
}

// SettlementResponse represents a settlement record in API responses
type SettlementResponse struct {
	ID               string                  `json:"id"`
	LedgerID         string                  `json:"ledger_id"`
	Currency         string                  `json:"currency"`
	PeriodStart      string                  `json:"period_start"`
	PeriodEnd        string                  `json:"period_end"`
	ParticipantIDs   []string                `json:"participant_ids"`
	MemberBalances   []MemberBalanceResponse `json:"member_balances"`
	Transfers        []TransferResponse      `json:"transfers"`
	TotalAmount      int64                   `json:"total_amount"`
	Residual         int64                   `json:"residual,omitempty"`
	Status           string                  `json:"status"`
	InitiatedBy      string                  `json:"initiated_by"`
	CompletedBy      string                  `json:"completed_by,omitempty"`
	CompletedAt      string                  `json:"completed_at,omitempty"`
	CreatedAt        string                  `json:"created_at"`
	UpdatedAt        string                  `json:"updated_at"`
}

// PaginationParams represents pagination parameters for list endpoints
type PaginationParams struct {
	Page    int `form:"page,default=1" binding:"min=1"`
	PerPage int `form:"per_page,default=10" binding:"min=1,max=100"`
}
