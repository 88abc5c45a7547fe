/*
store.go - Persistence contracts for entries, budgets and supporting records

PURPOSE:
  Defines the interface between the ledger rules and the database.
  Implementations: store/sqlite (production), ledger/store (in-memory).

KEY INTERFACES:
  EntryStore:    daily expenses, including the bulk detach sweep
  BudgetStore:   budgets, including the atomic actual-amount increment
  CategoryStore: parent categories
  IncomeStore:   incomes
  FailureLog:    reconciliation failures awaiting repair
  TxStore:       all of the above inside one store transaction

OWNERSHIP:
  Every lookup and every write is scoped by (id, userID). A record owned by
  another user is indistinguishable from a missing one.

MISSING ROWS:
  Get* methods return (nil, nil) when no row matches. Writes that target a
  single row return the matching Err*NotFound sentinel when nothing matched.

ATOMIC INCREMENT:
  IncrementActual adds a delta to one budget's ActualAmount as a single
  storage-level operation. Callers never read the budget, add, and write
  it back; two concurrent increments on the same budget both land.
  No other BudgetStore write rewrites ActualAmount from a value the caller
  read earlier, except SetActual inside a transaction.
*/
package ledger

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// ENTRY STORE
// =============================================================================

type EntryStore interface {
	CreateEntry(ctx context.Context, e Entry) error

	GetEntry(ctx context.Context, userID UserID, id EntryID) (*Entry, error)

	// ListEntries returns the user's entries inside w ordered by date, then
	// by creation.
	ListEntries(ctx context.Context, userID UserID, w Window) ([]Entry, error)

	// UpdateEntry overwrites description, amount and budget of an existing
	// entry. Returns ErrEntryNotFound when nothing matched.
	UpdateEntry(ctx context.Context, e Entry) error

	// DeleteEntry returns ErrEntryNotFound when nothing matched.
	DeleteEntry(ctx context.Context, userID UserID, id EntryID) error

	// DetachEntries clears BudgetID on every entry of the user attributed to
	// budgetID whose date is in w. Returns how many entries changed.
	// Re-running it after success changes nothing.
	DetachEntries(ctx context.Context, userID UserID, budgetID BudgetID, w Window) (int64, error)

	// SumAttributed sums the amounts of the entries attributed to budgetID
	// whose date is in w.
	SumAttributed(ctx context.Context, userID UserID, budgetID BudgetID, w Window) (decimal.Decimal, error)
}

// =============================================================================
// BUDGET STORE
// =============================================================================

type BudgetStore interface {
	CreateBudget(ctx context.Context, b Budget) error

	GetBudget(ctx context.Context, userID UserID, id BudgetID) (*Budget, error)

	// ListBudgets returns budgets whose month is in w, ordered by month then
	// creation. selectableOnly restricts to Selectable budgets.
	ListBudgets(ctx context.Context, userID UserID, w Window, selectableOnly bool) ([]Budget, error)

	// UpdateBudget overwrites description, projected amount and UpdatedAt.
	// It never touches ActualAmount or Selectable.
	// Returns ErrBudgetNotFound when nothing matched.
	UpdateBudget(ctx context.Context, b Budget) error

	// SetSelectable flips Selectable and stamps UpdatedAt.
	// Returns ErrBudgetNotFound when nothing matched.
	SetSelectable(ctx context.Context, userID UserID, id BudgetID, selectable bool, at time.Time) error

	// IncrementActual atomically adds delta to ActualAmount.
	// Returns ErrBudgetNotFound when nothing matched.
	IncrementActual(ctx context.Context, userID UserID, id BudgetID, delta decimal.Decimal) error

	// OverrideActual overwrites ActualAmount only while the budget is not
	// selectable, as one conditional write. It reports whether it wrote.
	// Returns ErrBudgetNotFound when the budget does not exist.
	OverrideActual(ctx context.Context, userID UserID, id BudgetID, actual decimal.Decimal, at time.Time) (bool, error)

	// SetActual overwrites ActualAmount unconditionally. Only repair calls
	// it, and only inside a TxStore transaction.
	SetActual(ctx context.Context, userID UserID, id BudgetID, actual decimal.Decimal) error

	// DeleteBudget returns ErrBudgetNotFound when nothing matched.
	DeleteBudget(ctx context.Context, userID UserID, id BudgetID) error

	// ClearParentCategory ungroups the user's budgets of a deleted category.
	ClearParentCategory(ctx context.Context, userID UserID, categoryID CategoryID) error
}

// =============================================================================
// SUPPORTING STORES
// =============================================================================

type CategoryStore interface {
	CreateCategory(ctx context.Context, c ParentCategory) error
	GetCategory(ctx context.Context, userID UserID, id CategoryID) (*ParentCategory, error)
	ListCategories(ctx context.Context, userID UserID) ([]ParentCategory, error)
	DeleteCategory(ctx context.Context, userID UserID, id CategoryID) error
}

type IncomeStore interface {
	CreateIncome(ctx context.Context, in Income) error
	GetIncome(ctx context.Context, userID UserID, id IncomeID) (*Income, error)
	ListIncomes(ctx context.Context, userID UserID, w Window) ([]Income, error)
	UpdateIncome(ctx context.Context, in Income) error
	DeleteIncome(ctx context.Context, userID UserID, id IncomeID) error
}

// FailureLog keeps reconciliation failures until the repair sweep has
// re-derived the affected budget.
type FailureLog interface {
	RecordFailure(ctx context.Context, f FailureRecord) error
	PendingFailures(ctx context.Context, limit int) ([]FailureRecord, error)
	ResolveFailures(ctx context.Context, userID UserID, budgetID BudgetID, at time.Time) error
}

// =============================================================================
// COMBINED STORES
// =============================================================================

type Store interface {
	EntryStore
	BudgetStore
	CategoryStore
	IncomeStore
	FailureLog
}

// TxStore wraps Store with transaction support.
// If fn returns an error every write made through the inner Store is
// rolled back; otherwise all of them are committed together.
type TxStore interface {
	Store
	WithTx(ctx context.Context, fn func(Store) error) error
}

// withTx runs fn inside a transaction when s supports one, and directly
// against s otherwise.
func withTx(ctx context.Context, s Store, fn func(Store) error) error {
	if ts, ok := s.(TxStore); ok {
		return ts.WithTx(ctx, fn)
	}
	return fn(s)
}
