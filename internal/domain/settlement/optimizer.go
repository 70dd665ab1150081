package settlement

import (
	"sort"

	"github.com/google/uuid"
	"github.com/splitledger/internal/domain/debt"
)

// Result is the output of a settlement optimization run
type Result struct {
	Transfers        []Transfer      `json:"transfers"`
	MemberSummaries  []MemberSummary `json:"member_summaries"`
	TransferCount    int             `json:"transfer_count"`
	EstimatedSavings int             `json:"estimated_savings"`
	Residual         int64           `json:"residual"`
}

type balance struct {
	memberID uuid.UUID
	amount   int64 // Positive for creditors, negative for debtors
}

// Optimize computes the minimal transfer plan that zeroes all net balances.
// It is pure and deterministic: ties between equal balances break by ascending
// member ID. Greedy matching of the largest creditor against the largest
// debtor zeroes at least one party per emitted transfer, so the plan holds at
// most N-1 transfers for N members with nonzero balances.
//
// When the active debts do not conserve money (global balance sum != 0) the
// plan is still produced from the matchable portion, and ErrUnbalancedLedger
// is returned alongside it so callers can surface the violation without
// blocking reads.
func Optimize(relations []*debt.Relation) (*Result, error) {
	nets := make(map[uuid.UUID]int64)
	paid := make(map[uuid.UUID]int64)
	owed := make(map[uuid.UUID]int64)
	for _, r := range relations {
		nets[r.CreditorID] += r.Amount
		nets[r.DebtorID] -= r.Amount
		paid[r.CreditorID] += r.Amount
		owed[r.DebtorID] += r.Amount
	}

	summaries := make([]MemberSummary, 0, len(nets))
	var creditors, debtors []balance
	var residual int64
	for id, net := range nets {
		summaries = append(summaries, MemberSummary{
			MemberID:    id,
			TotalOwedTo: paid[id],
			TotalOwes:   owed[id],
			NetBalance:  net,
		})
		residual += net
		switch {
		case net > 0:
			creditors = append(creditors, balance{memberID: id, amount: net})
		case net < 0:
			debtors = append(debtors, balance{memberID: id, amount: net})
		}
	}
	sort.Slice(summaries, func(i, j int) bool {
		return summaries[i].MemberID.String() < summaries[j].MemberID.String()
	})

	transfers := match(creditors, debtors)

	result := &Result{
		Transfers:       transfers,
		MemberSummaries: summaries,
		TransferCount:   len(transfers),
		Residual:        residual,
	}
	if savings := len(relations) - len(transfers); savings > 0 {
		result.EstimatedSavings = savings
	}

	// Integer arithmetic makes conservation exact: any nonzero residual means
	// money was created or destroyed upstream
	if residual != 0 {
		return result, ErrUnbalancedLedger{Residual: residual}
	}
	return result, nil
}

// match repeatedly pairs the largest remaining creditor with the largest
// remaining debtor until one side is exhausted
func match(creditors, debtors []balance) []Transfer {
	transfers := []Transfer{}
	for len(creditors) > 0 && len(debtors) > 0 {
		ci := largestCreditor(creditors)
		di := largestDebtor(debtors)

		amount := creditors[ci].amount
		if owed := -debtors[di].amount; owed < amount {
			amount = owed
		}

		transfers = append(transfers, Transfer{
			FromMemberID: debtors[di].memberID,
			ToMemberID:   creditors[ci].memberID,
			Amount:       amount,
		})

		creditors[ci].amount -= amount
		debtors[di].amount += amount
		if creditors[ci].amount == 0 {
			creditors = append(creditors[:ci], creditors[ci+1:]...)
		}
		if debtors[di].amount == 0 {
			debtors = append(debtors[:di], debtors[di+1:]...)
		}
	}
	return transfers
}

func largestCreditor(balances []balance) int {
	best := 0
	for i := 1; i < len(balances); i++ {
		if balances[i].amount > balances[best].amount ||
			(balances[i].amount == balances[best].amount &&
				balances[i].memberID.String() < balances[best].memberID.String()) {
			best = i
		}
	}
	return best
}

func largestDebtor(balances []balance) int {
	best := 0
	for i := 1; i < len(balances); i++ {
		if balances[i].amount < balances[best].amount ||
			(balances[i].amount == balances[best].amount &&
				balances[i].memberID.String() < balances[best].memberID.String()) {
			best = i
		}
	}
	return best
}
