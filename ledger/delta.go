package ledger

import "github.com/shopspring/decimal"

// =============================================================================
// DELTA RULES - What a change to one entry means for budget totals
// =============================================================================

// Attribution is the part of an entry the engine cares about: which budget
// it counts against (empty for none) and by how much.
type Attribution struct {
	BudgetID BudgetID
	Amount   decimal.Decimal
}

// Delta is a signed adjustment to one budget's ActualAmount.
type Delta struct {
	BudgetID BudgetID
	Amount   decimal.Decimal
}

// ComputeDelta returns the increments that carry budget totals from prev to
// next. A created entry has an empty prev, a deleted entry an empty next.
//
// Rules, first match wins:
//  1. same budget, same amount:      nothing
//  2. same budget, amount changed:   +(new-old) on the budget
//  3. budget A to budget B:          -old on A, +new on B
//  4. none to budget B:              +new on B
//  5. budget A to none:              -old on A
//
// Zero deltas are dropped.
func ComputeDelta(prev, next Attribution) []Delta {
	var out []Delta
	add := func(id BudgetID, amount decimal.Decimal) {
		if id == "" || amount.IsZero() {
			return
		}
		out = append(out, Delta{BudgetID: id, Amount: amount})
	}

	switch {
	case prev.BudgetID == next.BudgetID:
		add(next.BudgetID, next.Amount.Sub(prev.Amount))
	case prev.BudgetID != "" && next.BudgetID != "":
		add(prev.BudgetID, prev.Amount.Neg())
		add(next.BudgetID, next.Amount)
	case prev.BudgetID == "":
		add(next.BudgetID, next.Amount)
	default:
		add(prev.BudgetID, prev.Amount.Neg())
	}
	return out
}
