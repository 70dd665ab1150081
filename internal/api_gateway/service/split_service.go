package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
	"github.com/splitledger/internal/domain/debt"
	"github.com/splitledger/internal/domain/shared"
	"github.com/splitledger/internal/domain/split"
	"github.com/splitledger/internal/platform/persistence"
)

// SplitServiceImpl implements the SplitService interface
type SplitServiceImpl struct {
	db        *persistence.PostgresDB
	splitRepo split.Repository
	debtRepo  debt.Repository
	logger    *slog.Logger
}

// NewSplitService creates a new split service
func NewSplitService(logger *slog.Logger, db *persistence.PostgresDB, splitRepo split.Repository, debtRepo debt.Repository) SplitService {
	return &SplitServiceImpl{
		db:        db,
		splitRepo: splitRepo,
		debtRepo:  debtRepo,
		logger:    logger,
	}
}

// CreateSplit computes the detail set for the given strategy and stores the
// record in Pending status. Debt relations are untouched until the split is
// confirmed.
func (s *SplitServiceImpl) CreateSplit(ctx context.Context, transactionID, ledgerID, payerID uuid.UUID, total int64, currency string, splitType shared.SplitType, participants []SplitInput) (*split.Record, error) {
	details, err := computeDetails(total, splitType, participants)
	if err != nil {
		return nil, err
	}

	record, err := split.NewRecord(transactionID, ledgerID, payerID, total, currency, splitType, details)
	if err != nil {
		return nil, err
	}

	err = s.db.ExecuteTx(ctx, func(tx pgx.Tx) error {
		return s.splitRepo.WithTx(tx).Create(ctx, record)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Split record created",
		"split_id", record.ID,
		"transaction_id", transactionID,
		"ledger_id", ledgerID,
		"split_type", string(splitType),
		"total", total,
	)
	return record, nil
}

// GetSplitByID retrieves a split record by its ID
func (s *SplitServiceImpl) GetSplitByID(ctx context.Context, id uuid.UUID) (*split.Record, error) {
	return s.splitRepo.GetByID(ctx, id)
}

// GetSplitByTransactionID retrieves the split covering a transaction.
// Returns nil if the transaction has no split.
func (s *SplitServiceImpl) GetSplitByTransactionID(ctx context.Context, transactionID uuid.UUID) (*split.Record, error) {
	return s.splitRepo.GetByTransactionID(ctx, transactionID)
}

// ListSplitsByLedger retrieves a paginated list of splits for a ledger
func (s *SplitServiceImpl) ListSplitsByLedger(ctx context.Context, ledgerID uuid.UUID, page, perPage int) ([]*split.Record, int64, error) {
	offset := (page - 1) * perPage

	records, err := s.splitRepo.ListByLedger(ctx, ledgerID, perPage, offset)
	if err != nil {
		return nil, 0, err
	}

	total, err := s.splitRepo.CountByLedger(ctx, ledgerID)
	if err != nil {
		return nil, 0, err
	}

	return records, total, nil
}

// ConfirmSplit transitions the split to Confirmed and applies its deltas to
// the ledger's debt relations. The record lock, the ledger advisory lock, the
// status flip, and the netting all commit atomically.
func (s *SplitServiceImpl) ConfirmSplit(ctx context.Context, id uuid.UUID) (*split.Record, error) {
	var record *split.Record
	err := s.db.ExecuteTx(ctx, func(tx pgx.Tx) error {
		splitRepo := s.splitRepo.WithTx(tx)
		debtRepo := s.debtRepo.WithTx(tx)

		var err error
		record, err = splitRepo.GetByIDForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if err := record.Confirm(); err != nil {
			return err
		}

		if err := debtRepo.AcquireLedgerLock(ctx, record.LedgerID, record.Currency); err != nil {
			return err
		}
		if err := applySplit(ctx, debtRepo, record); err != nil {
			return err
		}

		return splitRepo.UpdateStatus(ctx, record)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Split confirmed", "split_id", id, "ledger_id", record.LedgerID)
	return record, nil
}

// MarkSplitPaid transitions the split from Confirmed to Paid. Informational
// only: the aggregate debt relations do not move.
func (s *SplitServiceImpl) MarkSplitPaid(ctx context.Context, id uuid.UUID) (*split.Record, error) {
	var record *split.Record
	err := s.db.ExecuteTx(ctx, func(tx pgx.Tx) error {
		splitRepo := s.splitRepo.WithTx(tx)

		var err error
		record, err = splitRepo.GetByIDForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if err := record.MarkPaid(time.Now()); err != nil {
			return err
		}
		return splitRepo.UpdateStatus(ctx, record)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Split marked paid", "split_id", id)
	return record, nil
}

// CancelSplit transitions the split to Cancelled. A confirmed split already
// contributed to the debt relations, so its deltas are reversed in the same
// transaction; a pending split never touched them.
func (s *SplitServiceImpl) CancelSplit(ctx context.Context, id uuid.UUID) (*split.Record, error) {
	var record *split.Record
	err := s.db.ExecuteTx(ctx, func(tx pgx.Tx) error {
		splitRepo := s.splitRepo.WithTx(tx)
		debtRepo := s.debtRepo.WithTx(tx)

		var err error
		record, err = splitRepo.GetByIDForUpdate(ctx, id)
		if err != nil {
			return err
		}

		wasConfirmed := record.Status == shared.SplitStatusConfirmed
		if err := record.Cancel(); err != nil {
			return err
		}

		if wasConfirmed {
			if err := debtRepo.AcquireLedgerLock(ctx, record.LedgerID, record.Currency); err != nil {
				return err
			}
			if err := reverseSplit(ctx, debtRepo, record); err != nil {
				return err
			}
		}

		return splitRepo.UpdateStatus(ctx, record)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Split cancelled", "split_id", id)
	return record, nil
}

// UpdateSplitDetails replaces the whole detail set of an editable split.
// Confirmed splits get their old deltas reversed and the new ones applied
// atomically, so the debt relations always reflect exactly one version.
func (s *SplitServiceImpl) UpdateSplitDetails(ctx context.Context, id uuid.UUID, total int64, splitType shared.SplitType, participants []SplitInput) (*split.Record, error) {
	details, err := computeDetails(total, splitType, participants)
	if err != nil {
		return nil, err
	}

	var record *split.Record
	err = s.db.ExecuteTx(ctx, func(tx pgx.Tx) error {
		splitRepo := s.splitRepo.WithTx(tx)
		debtRepo := s.debtRepo.WithTx(tx)

		var err error
		record, err = splitRepo.GetByIDForUpdate(ctx, id)
		if err != nil {
			return err
		}

		confirmed := record.Status == shared.SplitStatusConfirmed
		if confirmed {
			if err := debtRepo.AcquireLedgerLock(ctx, record.LedgerID, record.Currency); err != nil {
				return err
			}
			if err := reverseSplit(ctx, debtRepo, record); err != nil {
				return err
			}
		}

		if err := record.ReplaceDetails(total, splitType, details); err != nil {
			return err
		}

		if confirmed {
			if err := applySplit(ctx, debtRepo, record); err != nil {
				return err
			}
		}

		return splitRepo.ReplaceDetails(ctx, record)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Split details replaced",
		"split_id", id,
		"split_type", string(splitType),
		"total", total,
	)
	return record, nil
}

// PreviewSplit runs the split strategy without persisting anything
func (s *SplitServiceImpl) PreviewSplit(ctx context.Context, total int64, splitType shared.SplitType, participants []SplitInput) ([]split.Detail, error) {
	return computeDetails(total, splitType, participants)
}

// DeleteSplit removes the split record outright, used when the parent
// transaction is deleted or un-shared. A split that reached Confirmed or Paid
// already contributed to the debt relations, so its deltas are reversed in
// the same transaction.
func (s *SplitServiceImpl) DeleteSplit(ctx context.Context, id uuid.UUID) error {
	err := s.db.ExecuteTx(ctx, func(tx pgx.Tx) error {
		splitRepo := s.splitRepo.WithTx(tx)
		debtRepo := s.debtRepo.WithTx(tx)

		record, err := splitRepo.GetByIDForUpdate(ctx, id)
		if err != nil {
			return err
		}

		if record.Status == shared.SplitStatusConfirmed || record.Status == shared.SplitStatusPaid {
			if err := debtRepo.AcquireLedgerLock(ctx, record.LedgerID, record.Currency); err != nil {
				return err
			}
			if err := reverseSplit(ctx, debtRepo, record); err != nil {
				return err
			}
		}

		return splitRepo.Delete(ctx, id)
	})
	if err != nil {
		return err
	}

	s.logger.Info("Split deleted", "split_id", id)
	return nil
}

// computeDetails converts the transport-level inputs into calculator
// participants and runs the strategy
func computeDetails(total int64, splitType shared.SplitType, inputs []SplitInput) ([]split.Detail, error) {
	participants := make([]split.Participant, 0, len(inputs))
	for _, in := range inputs {
		p := split.Participant{MemberID: in.MemberID, Amount: in.Amount}
		if in.Percentage != nil {
			pct, err := decimal.NewFromString(*in.Percentage)
			if err != nil {
				return nil, split.ErrInvalidSplitConfig{Field: "percentage", Reason: "not a valid decimal"}
			}
			p.Percentage = &pct
		}
		if in.Weight != nil {
			w, err := decimal.NewFromString(*in.Weight)
			if err != nil {
				return nil, split.ErrInvalidSplitConfig{Field: "weight", Reason: "not a valid decimal"}
			}
			p.Weight = &w
		}
		participants = append(participants, p)
	}
	return split.Compute(total, splitType, participants)
}
