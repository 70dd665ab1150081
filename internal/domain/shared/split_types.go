package shared

// SplitType defines how a transaction's cost is divided among members
type SplitType string

const (
	SplitTypeEqual       SplitType = "EQUAL"
	SplitTypePercentage  SplitType = "PERCENTAGE"
	SplitTypeFixedAmount SplitType = "FIXED_AMOUNT"
	SplitTypeWeighted    SplitType = "WEIGHTED"
)

// SplitStatus defines a split record's lifecycle states
type SplitStatus string

const (
	SplitStatusPending   SplitStatus = "PENDING"
	SplitStatusConfirmed SplitStatus = "CONFIRMED"
	SplitStatusPaid      SplitStatus = "PAID"
	SplitStatusCancelled SplitStatus = "CANCELLED"
)

// DebtStatus defines a debt relation's lifecycle states
type DebtStatus string

const (
	DebtStatusActive    DebtStatus = "ACTIVE"
	DebtStatusSettled   DebtStatus = "SETTLED"
	DebtStatusCancelled DebtStatus = "CANCELLED"
)

// SettlementStatus defines a settlement record's lifecycle states
type SettlementStatus string

const (
	SettlementStatusPending    SettlementStatus = "PENDING"
	SettlementStatusInProgress SettlementStatus = "IN_PROGRESS"
	SettlementStatusCompleted  SettlementStatus = "COMPLETED"
	SettlementStatusCancelled  SettlementStatus = "CANCELLED"
)

// AuditEventType defines settlement audit trail event categories
type AuditEventType string

const (
	AuditEventSettlementCompleted AuditEventType = "SETTLEMENT_COMPLETED"
	AuditEventSettlementCancelled AuditEventType = "SETTLEMENT_CANCELLED"
	AuditEventIntegrityViolation  AuditEventType = "LEDGER_INTEGRITY_VIOLATION"
)

// OutboxStatus defines audit event publishing states
type OutboxStatus string

const (
	OutboxStatusPending         OutboxStatus = "PENDING"
	OutboxStatusProcessed       OutboxStatus = "PROCESSED"
	OutboxStatusFailedToPublish OutboxStatus = "FAILED_TO_PUBLISH"
)
