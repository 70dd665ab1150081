package split

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/splitledger/internal/domain/shared"
)

// Participant is the calculator input for one member's share configuration
type Participant struct {
	MemberID   uuid.UUID
	Percentage *decimal.Decimal // Required for PERCENTAGE splits
	Weight     *decimal.Decimal // Required for WEIGHTED splits
	Amount     *int64           // Required for FIXED_AMOUNT splits, in minor units
}

// ErrInvalidSplitConfig indicates an unusable split configuration
type ErrInvalidSplitConfig struct {
	Field  string
	Reason string
}

func (e ErrInvalidSplitConfig) Error() string {
	return "invalid split config: " + e.Field + ": " + e.Reason
}

var (
	oneHundred          = decimal.NewFromInt(100)
	percentageTolerance = decimal.RequireFromString("0.01")
)

// Compute divides a total amount among participants according to the split
// type. It is pure and deterministic. The returned details always sum to
// total exactly: Equal splits distribute the remainder one minor unit at a
// time to the first participants in input order, Percentage and Weighted
// splits round each share and let the last participant absorb the residue
// (each rounded share is capped at the unallocated remainder, so the residue
// never goes negative), and FixedAmount splits must already sum exactly.
func Compute(total int64, splitType shared.SplitType, participants []Participant) ([]Detail, error) {
	if len(participants) == 0 {
		return nil, ErrInvalidSplitConfig{Field: "participants", Reason: "list cannot be empty"}
	}
	if total <= 0 {
		return nil, ErrInvalidSplitConfig{Field: "total", Reason: "must be positive"}
	}
	seen := make(map[uuid.UUID]bool, len(participants))
	for _, p := range participants {
		if seen[p.MemberID] {
			return nil, ErrInvalidSplitConfig{Field: "participants", Reason: "duplicate member " + p.MemberID.String()}
		}
		seen[p.MemberID] = true
	}

	switch splitType {
	case shared.SplitTypeEqual:
		return computeEqual(total, participants), nil
	case shared.SplitTypePercentage:
		return computePercentage(total, participants)
	case shared.SplitTypeFixedAmount:
		return computeFixedAmount(total, participants)
	case shared.SplitTypeWeighted:
		return computeWeighted(total, participants)
	default:
		return nil, ErrInvalidSplitConfig{Field: "split_type", Reason: "unknown type " + string(splitType)}
	}
}

func computeEqual(total int64, participants []Participant) []Detail {
	n := int64(len(participants))
	base := total / n
	remainder := total % n

	details := make([]Detail, len(participants))
	for i, p := range participants {
		amount := base
		if int64(i) < remainder {
			amount++
		}
		details[i] = Detail{MemberID: p.MemberID, Amount: amount}
	}
	return details
}

func computePercentage(total int64, participants []Participant) ([]Detail, error) {
	sum := decimal.Zero
	for _, p := range participants {
		if p.Percentage == nil {
			return nil, ErrInvalidSplitConfig{Field: "percentage", Reason: "missing for member " + p.MemberID.String()}
		}
		if p.Percentage.IsNegative() {
			return nil, ErrInvalidSplitConfig{Field: "percentage", Reason: "negative for member " + p.MemberID.String()}
		}
		sum = sum.Add(*p.Percentage)
	}
	if sum.Sub(oneHundred).Abs().GreaterThan(percentageTolerance) {
		return nil, ErrInvalidSplitConfig{Field: "percentage", Reason: "must sum to 100, got " + sum.String()}
	}

	totalDec := decimal.NewFromInt(total)
	details := make([]Detail, len(participants))
	var allocated int64
	for i, p := range participants {
		var amount int64
		if i == len(participants)-1 {
			// Last participant absorbs the rounding residue so the sum is forced exact
			amount = total - allocated
		} else {
			amount = totalDec.Mul(*p.Percentage).Div(oneHundred).Round(0).IntPart()
			// Half-up rounding can overshoot on small totals; cap each share
			// at what is still unallocated so the residue stays non-negative
			if remaining := total - allocated; amount > remaining {
				amount = remaining
			}
			allocated += amount
		}
		pct := *p.Percentage
		details[i] = Detail{MemberID: p.MemberID, Amount: amount, Percentage: &pct}
	}
	return details, nil
}

func computeFixedAmount(total int64, participants []Participant) ([]Detail, error) {
	details := make([]Detail, len(participants))
	var sum int64
	for i, p := range participants {
		if p.Amount == nil {
			return nil, ErrInvalidSplitConfig{Field: "amount", Reason: "missing for member " + p.MemberID.String()}
		}
		if *p.Amount < 0 {
			return nil, ErrInvalidSplitConfig{Field: "amount", Reason: "negative for member " + p.MemberID.String()}
		}
		sum += *p.Amount
		details[i] = Detail{MemberID: p.MemberID, Amount: *p.Amount}
	}
	// No silent rounding here: caller-supplied amounts must match exactly
	if sum != total {
		return nil, ErrInvalidSplitConfig{Field: "amount", Reason: "amounts must sum to total exactly"}
	}
	return details, nil
}

func computeWeighted(total int64, participants []Participant) ([]Detail, error) {
	weightSum := decimal.Zero
	for _, p := range participants {
		if p.Weight == nil {
			return nil, ErrInvalidSplitConfig{Field: "weight", Reason: "missing for member " + p.MemberID.String()}
		}
		if p.Weight.IsNegative() {
			return nil, ErrInvalidSplitConfig{Field: "weight", Reason: "negative for member " + p.MemberID.String()}
		}
		weightSum = weightSum.Add(*p.Weight)
	}
	if weightSum.IsZero() {
		return nil, ErrInvalidSplitConfig{Field: "weight", Reason: "weights cannot all be zero"}
	}

	totalDec := decimal.NewFromInt(total)
	details := make([]Detail, len(participants))
	var allocated int64
	for i, p := range participants {
		var amount int64
		if i == len(participants)-1 {
			amount = total - allocated
		} else {
			amount = totalDec.Mul(*p.Weight).Div(weightSum).Round(0).IntPart()
			if remaining := total - allocated; amount > remaining {
				amount = remaining
			}
			allocated += amount
		}
		w := *p.Weight
		details[i] = Detail{MemberID: p.MemberID, Amount: amount, Weight: &w}
	}
	return details, nil
}
