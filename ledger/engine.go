/*
engine.go - Applies reconciliation deltas to budgets

PURPOSE:
  The Engine is the only writer of Budget.ActualAmount once a budget has
  entries attributed to it. Every entry mutation hands it the deltas from
  ComputeDelta; it turns each into one atomic IncrementActual.

FAILURE MODEL:
  - A delta whose budget vanished (deleted between validation and
    application) does not fail the entry mutation. It becomes a
    ReconciliationFailure warning, logged and written to the FailureLog.
  - Any other store error is returned and aborts the enclosing mutation.

REPAIR:
  Repair re-derives ActualAmount from the attributed entries of the
  budget's month and resolves recorded failures. The repair scheduler in
  api/scheduler.go drives it.

SEE ALSO:
  - delta.go: ComputeDelta rules
  - store.go: IncrementActual contract
*/
package ledger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"
)

// Engine applies deltas and repairs diverged budgets.
type Engine struct {
	Logger *slog.Logger
	Now    func() time.Time
}

// NewEngine creates an engine logging to logger.
func NewEngine(logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		Logger: logger.With("component", "reconciliation"),
		Now:    func() time.Time { return time.Now().UTC() },
	}
}

// Apply applies deltas caused by a mutation of entryID. It returns the
// deltas that could not land because their budget no longer exists.
func (e *Engine) Apply(ctx context.Context, s Store, userID UserID, entryID EntryID, deltas []Delta) ([]*ReconciliationFailure, error) {
	var warnings []*ReconciliationFailure

	for _, d := range deltas {
		err := s.IncrementActual(ctx, userID, d.BudgetID, d.Amount)
		if err == nil {
			e.Logger.DebugContext(ctx, "applied delta",
				"user_id", userID, "budget_id", d.BudgetID, "entry_id", entryID, "delta", d.Amount.String())
			continue
		}
		if !errors.Is(err, ErrBudgetNotFound) {
			return nil, fmt.Errorf("increment budget %s: %w", d.BudgetID, err)
		}

		failure := &ReconciliationFailure{BudgetID: d.BudgetID, EntryID: entryID, Delta: d.Amount, Err: err}
		e.Logger.WarnContext(ctx, "reconciliation delta lost",
			"user_id", userID, "budget_id", d.BudgetID, "entry_id", entryID,
			"delta", d.Amount.String(), "error", err)

		rec := FailureRecord{
			ID:        NewID(),
			UserID:    userID,
			BudgetID:  d.BudgetID,
			EntryID:   entryID,
			Delta:     d.Amount,
			Reason:    err.Error(),
			CreatedAt: e.Now(),
		}
		if err := s.RecordFailure(ctx, rec); err != nil {
			e.Logger.ErrorContext(ctx, "failed to record reconciliation failure",
				"budget_id", d.BudgetID, "entry_id", entryID, "error", err)
		}
		warnings = append(warnings, failure)
	}

	return warnings, nil
}

// Repair sets the budget's ActualAmount to the sum of its attributed entries
// and resolves its recorded failures. A budget that no longer exists has its
// failures resolved and ErrBudgetNotFound is returned.
//
// The sum and the overwrite must not interleave with increments, so an
// existing budget is only repaired on a TxStore. Other stores get
// ErrRepairNeedsTx and the failures stay pending.
func (e *Engine) Repair(ctx context.Context, s Store, userID UserID, budgetID BudgetID) (decimal.Decimal, error) {
	ts, ok := s.(TxStore)
	if !ok {
		return decimal.Zero, e.resolveMissing(ctx, s, userID, budgetID)
	}

	var actual decimal.Decimal
	missing := false

	err := ts.WithTx(ctx, func(s Store) error {
		b, err := s.GetBudget(ctx, userID, budgetID)
		if err != nil {
			return err
		}
		if b == nil {
			missing = true
			return s.ResolveFailures(ctx, userID, budgetID, e.Now())
		}

		actual, err = s.SumAttributed(ctx, userID, budgetID, b.Window())
		if err != nil {
			return err
		}
		if !actual.Equal(b.ActualAmount) {
			e.Logger.InfoContext(ctx, "repairing budget total",
				"user_id", userID, "budget_id", budgetID,
				"was", b.ActualAmount.String(), "now", actual.String())
			if err := s.SetActual(ctx, userID, budgetID, actual); err != nil {
				return err
			}
		}
		return s.ResolveFailures(ctx, userID, budgetID, e.Now())
	})
	if err == nil && missing {
		err = ErrBudgetNotFound
	}

	return actual, err
}

// resolveMissing clears the failures of a deleted budget without a
// transaction; that write never touches a total.
func (e *Engine) resolveMissing(ctx context.Context, s Store, userID UserID, budgetID BudgetID) error {
	b, err := s.GetBudget(ctx, userID, budgetID)
	if err != nil {
		return err
	}
	if b != nil {
		return ErrRepairNeedsTx
	}
	if err := s.ResolveFailures(ctx, userID, budgetID, e.Now()); err != nil {
		return err
	}
	return ErrBudgetNotFound
}
