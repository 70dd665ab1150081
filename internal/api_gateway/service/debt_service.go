package service

import (
	"context"
	"errors"
	"log/slog"

	"github.com/google/uuid"
	"github.com/splitledger/internal/domain/debt"
	"github.com/splitledger/internal/domain/member"
	"github.com/splitledger/internal/domain/settlement"
)

// DebtServiceImpl implements the DebtService interface
type DebtServiceImpl struct {
	debtRepo  debt.Repository
	directory member.Directory
	logger    *slog.Logger
}

// NewDebtService creates a new debt query service
func NewDebtService(logger *slog.Logger, debtRepo debt.Repository, directory member.Directory) DebtService {
	return &DebtServiceImpl{
		debtRepo:  debtRepo,
		directory: directory,
		logger:    logger,
	}
}

// GetActiveDebts retrieves the ledger's Active debt relations with a positive
// balance, ordered deterministically
func (s *DebtServiceImpl) GetActiveDebts(ctx context.Context, ledgerID uuid.UUID, currency string) ([]*debt.Relation, error) {
	return s.debtRepo.GetActiveByLedger(ctx, ledgerID, currency)
}

// GetMemberBalances computes the per-member net position over the ledger's
// active debts. A nonzero residual is reported but does not block the read.
func (s *DebtServiceImpl) GetMemberBalances(ctx context.Context, ledgerID uuid.UUID, currency string) ([]settlement.MemberSummary, error) {
	relations, err := s.debtRepo.GetActiveByLedger(ctx, ledgerID, currency)
	if err != nil {
		return nil, err
	}

	result, err := settlement.Optimize(relations)
	if err != nil {
		var unbalanced settlement.ErrUnbalancedLedger
		if !errors.As(err, &unbalanced) {
			return nil, err
		}
		s.logger.Error("Ledger debts violate money conservation",
			"ledger_id", ledgerID.String(),
			"currency", currency,
			"residual", unbalanced.Residual,
		)
	}

	summaries := result.MemberSummaries
	if err := resolveMemberNames(ctx, s.directory, summaries, nil); err != nil {
		return nil, err
	}
	return summaries, nil
}

// resolveMemberNames fills display names into summaries and transfers from
// the member directory. Unknown members keep an empty name rather than
// failing the read.
func resolveMemberNames(ctx context.Context, directory member.Directory, summaries []settlement.MemberSummary, transfers []settlement.Transfer) error {
	idSet := make(map[uuid.UUID]struct{})
	for _, s := range summaries {
		idSet[s.MemberID] = struct{}{}
	}
	for _, t := range transfers {
		idSet[t.FromMemberID] = struct{}{}
		idSet[t.ToMemberID] = struct{}{}
	}
	if len(idSet) == 0 {
		return nil
	}

	ids := make([]uuid.UUID, 0, len(idSet))
	for id := range idSet {
		ids = append(ids, id)
	}

	members, err := directory.GetByIDs(ctx, ids)
	if err != nil {
		return err
	}

	for i := range summaries {
		if m, ok := members[summaries[i].MemberID]; ok {
			summaries[i].DisplayName = m.DisplayName
		}
	}
	for i := range transfers {
		if m, ok := members[transfers[i].FromMemberID]; ok {
			transfers[i].FromName = m.DisplayName
		}
		if m, ok := members[transfers[i].ToMemberID]; ok {
			transfers[i].ToName = m.DisplayName
		}
	}
	return nil
}
