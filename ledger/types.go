/*
Package ledger provides the budget ledger reconciliation engine.

PURPOSE:
  A user plans monthly spending in budgets (one per category and month)
  and records daily expenses as ledger entries. An entry may be
  attributed to one budget of the same month. Every budget carries an
  ActualAmount that must always equal the sum of the entries attributed
  to it. This package owns the rules that keep that true.

KEY CONCEPTS IN THIS FILE (types.go):
  - Budget: planned vs. actual spend for one category in one month
  - Entry: a single dated expense, optionally attributed to a budget
  - ParentCategory / Income: owner-scoped records with no aggregate role
  - Type-safe identifiers for users, budgets and entries

INVARIANTS:
  - Budget.ActualAmount == sum of Entry.Amount over the entries whose
    BudgetID is the budget and whose Date is inside the budget's month.
  - An attributed entry's Date is inside its budget's month window.

  Attribution is a weak reference. Deleting a budget detaches its
  entries first, it never deletes them.

SEE ALSO:
  - month.go:   month/day windows
  - delta.go:   reconciliation delta rules
  - engine.go:  delta application
  - service.go: entry lifecycle
  - budgets.go: budget lifecycle
*/
package ledger

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// =============================================================================
// IDENTIFIERS
// =============================================================================

type UserID string
type BudgetID string
type EntryID string
type CategoryID string
type IncomeID string

// NewID returns a fresh random identifier.
func NewID() string {
	return uuid.NewString()
}

// =============================================================================
// BUDGET - Per user, per category, per month aggregate
// =============================================================================

// Budget is the planned and actual spend of one category in one month.
// ActualAmount is derived from attributed entries; only the engine moves it
// once the budget is selectable.
type Budget struct {
	ID               BudgetID
	UserID           UserID
	ParentCategoryID CategoryID // empty when ungrouped
	Description      string
	Month            time.Time // first instant of the month, UTC
	ProjectedAmount  decimal.Decimal
	ActualAmount     decimal.Decimal
	Selectable       bool
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// Window returns the month window of the budget.
func (b Budget) Window() Window {
	return MonthWindow(b.Month)
}

// BudgetOption is the projection offered to clients when choosing an
// attribution for an entry.
type BudgetOption struct {
	ID          BudgetID
	Description string
}

// =============================================================================
// ENTRY - A daily expense
// =============================================================================

// Entry is a single dated expense. BudgetID is empty when uncategorized.
type Entry struct {
	ID          EntryID
	UserID      UserID
	BudgetID    BudgetID
	Description string
	Amount      decimal.Decimal
	Date        time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Attributed reports whether the entry counts against a budget.
func (e Entry) Attributed() bool {
	return e.BudgetID != ""
}

// Attribution returns the entry's (budget, amount) pair as seen by the engine.
func (e Entry) Attribution() Attribution {
	return Attribution{BudgetID: e.BudgetID, Amount: e.Amount}
}

// =============================================================================
// SUPPORTING RECORDS
// =============================================================================

// ParentCategory groups budgets.
type ParentCategory struct {
	ID          CategoryID
	UserID      UserID
	Description string
	CreatedAt   time.Time
}

// Income is a planned and received income for one month.
type Income struct {
	ID              IncomeID
	UserID          UserID
	Description     string
	Month           time.Time
	ProjectedAmount decimal.Decimal
	ActualAmount    decimal.Decimal
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// FailureRecord is a persisted reconciliation failure awaiting repair.
type FailureRecord struct {
	ID         string
	UserID     UserID
	BudgetID   BudgetID
	EntryID    EntryID
	Delta      decimal.Decimal
	Reason     string
	CreatedAt  time.Time
	ResolvedAt *time.Time
}
