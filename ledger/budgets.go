package ledger

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// detachAttempts bounds the detach sweep retries when the store has no
// transactions.
const detachAttempts = 3

// NewBudget is the input of CreateBudget. Nil amounts mean zero.
type NewBudget struct {
	ParentCategoryID CategoryID
	Description      string
	Month            time.Time
	ProjectedAmount  *decimal.Decimal
	ActualAmount     *decimal.Decimal
}

// BudgetPatch is the input of UpdateBudget. ActualAmount only applies while
// the budget is not selectable; otherwise it is dropped.
type BudgetPatch struct {
	Description     *string
	ProjectedAmount *decimal.Decimal
	ActualAmount    *decimal.Decimal
}

// =============================================================================
// BUDGET OPERATIONS
// =============================================================================

// CreateBudget creates a budget for one month. New budgets are not
// selectable until opened with SetSelectable.
func (s *Service) CreateBudget(ctx context.Context, userID UserID, in NewBudget) (*Budget, error) {
	description := strings.TrimSpace(in.Description)
	if description == "" {
		return nil, invalidInput("description", "description for monthly categorical expense is required")
	}
	if in.Month.IsZero() {
		return nil, invalidInput("month", "month for monthly categorical expense is required")
	}

	if in.ParentCategoryID != "" {
		parent, err := s.Store.GetCategory(ctx, userID, in.ParentCategoryID)
		if err != nil {
			return nil, fmt.Errorf("load parent category: %w", err)
		}
		if parent == nil {
			return nil, invalidInput("parentId", "missing or invalid parent category")
		}
	}

	now := s.Now()
	b := Budget{
		ID:               BudgetID(NewID()),
		UserID:           userID,
		ParentCategoryID: in.ParentCategoryID,
		Description:      description,
		Month:            MonthStart(in.Month),
		ProjectedAmount:  decimal.Zero,
		ActualAmount:     decimal.Zero,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if in.ProjectedAmount != nil {
		b.ProjectedAmount = *in.ProjectedAmount
	}
	if in.ActualAmount != nil {
		b.ActualAmount = *in.ActualAmount
	}

	if err := s.Store.CreateBudget(ctx, b); err != nil {
		return nil, fmt.Errorf("create budget: %w", err)
	}
	return &b, nil
}

// ListBudgets returns every budget of month.
func (s *Service) ListBudgets(ctx context.Context, userID UserID, month time.Time) ([]Budget, error) {
	budgets, err := s.Store.ListBudgets(ctx, userID, MonthWindow(month), false)
	if err != nil {
		return nil, fmt.Errorf("list budgets: %w", err)
	}
	return budgets, nil
}

// SetSelectable opens or closes a budget for attribution. Only the flag is
// written; concurrent increments to the actual amount are kept.
func (s *Service) SetSelectable(ctx context.Context, userID UserID, id BudgetID, selectable bool) (*Budget, error) {
	var updated *Budget
	err := withTx(ctx, s.Store, func(st Store) error {
		if err := st.SetSelectable(ctx, userID, id, selectable, s.Now()); err != nil {
			return err
		}
		var err error
		updated, err = reloadBudget(ctx, st, userID, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// UpdateBudget edits description and projected amount, and the actual amount
// while the budget is closed for attribution. The actual amount is written
// only when the patch sets it, through a write that re-checks the gate.
func (s *Service) UpdateBudget(ctx context.Context, userID UserID, id BudgetID, patch BudgetPatch) (*Budget, error) {
	var updated *Budget
	err := withTx(ctx, s.Store, func(st Store) error {
		b, err := st.GetBudget(ctx, userID, id)
		if err != nil {
			return fmt.Errorf("load budget: %w", err)
		}
		if b == nil {
			return ErrBudgetNotFound
		}

		fields := false
		if patch.Description != nil {
			if trimmed := strings.TrimSpace(*patch.Description); trimmed != "" {
				b.Description = trimmed
				fields = true
			}
		}
		if patch.ProjectedAmount != nil {
			b.ProjectedAmount = *patch.ProjectedAmount
			fields = true
		}
		overrideActual := patch.ActualAmount != nil && !b.Selectable
		if !fields && !overrideActual {
			return ErrNoFieldsProvided
		}

		now := s.Now()
		if fields {
			b.UpdatedAt = now
			if err := st.UpdateBudget(ctx, *b); err != nil {
				return err
			}
		}
		if overrideActual {
			wrote, err := st.OverrideActual(ctx, userID, id, *patch.ActualAmount, now)
			if err != nil {
				return err
			}
			if !wrote && !fields {
				return ErrNoFieldsProvided
			}
		}

		updated, err = reloadBudget(ctx, st, userID, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

func reloadBudget(ctx context.Context, st Store, userID UserID, id BudgetID) (*Budget, error) {
	b, err := st.GetBudget(ctx, userID, id)
	if err != nil {
		return nil, fmt.Errorf("load budget: %w", err)
	}
	if b == nil {
		return nil, ErrBudgetNotFound
	}
	return b, nil
}

// DeleteBudget detaches every entry attributed to the budget within its month,
// then removes the budget. It returns how many entries were detached.
func (s *Service) DeleteBudget(ctx context.Context, userID UserID, id BudgetID) (int64, error) {
	b, err := s.Store.GetBudget(ctx, userID, id)
	if err != nil {
		return 0, fmt.Errorf("load budget: %w", err)
	}
	if b == nil {
		return 0, ErrBudgetNotFound
	}

	var detached int64
	if ts, ok := s.Store.(TxStore); ok {
		err = ts.WithTx(ctx, func(st Store) error {
			n, err := st.DetachEntries(ctx, userID, id, b.Window())
			if err != nil {
				return fmt.Errorf("detach entries: %w", err)
			}
			detached = n
			return st.DeleteBudget(ctx, userID, id)
		})
	} else {
		detached, err = s.detachWithRetry(ctx, *b)
		if err == nil {
			err = s.Store.DeleteBudget(ctx, userID, id)
		}
	}
	if err != nil {
		return 0, err
	}

	s.Logger.InfoContext(ctx, "budget deleted",
		"user_id", userID, "budget_id", id, "detached_entries", detached)
	return detached, nil
}

func (s *Service) detachWithRetry(ctx context.Context, b Budget) (int64, error) {
	var err error
	for attempt := 1; attempt <= detachAttempts; attempt++ {
		var n int64
		n, err = s.Store.DetachEntries(ctx, b.UserID, b.ID, b.Window())
		if err == nil {
			return n, nil
		}
		s.Logger.WarnContext(ctx, "detach sweep failed",
			"budget_id", b.ID, "attempt", attempt, "error", err)
		if ctx.Err() != nil {
			break
		}
	}
	return 0, fmt.Errorf("detach entries: %w", err)
}

// =============================================================================
// REPAIR
// =============================================================================

// RepairBudget re-derives one budget's actual amount from its entries.
func (s *Service) RepairBudget(ctx context.Context, userID UserID, id BudgetID) (decimal.Decimal, error) {
	return s.Engine.Repair(ctx, s.Store, userID, id)
}

// RepairPending repairs every budget with an unresolved reconciliation
// failure, at most limit failures per call. It returns how many budgets were
// repaired. Budgets that need a transaction the store cannot give stay
// pending.
func (s *Service) RepairPending(ctx context.Context, limit int) (int, error) {
	failures, err := s.Store.PendingFailures(ctx, limit)
	if err != nil {
		return 0, fmt.Errorf("list pending failures: %w", err)
	}

	type target struct {
		user   UserID
		budget BudgetID
	}
	seen := make(map[target]bool)
	repaired, deferred := 0, 0
	for _, f := range failures {
		t := target{user: f.UserID, budget: f.BudgetID}
		if seen[t] {
			continue
		}
		seen[t] = true

		if _, err := s.RepairBudget(ctx, f.UserID, f.BudgetID); err != nil {
			if IsNotFound(err) {
				continue
			}
			if errors.Is(err, ErrRepairNeedsTx) {
				deferred++
				continue
			}
			return repaired, err
		}
		repaired++
	}
	if deferred > 0 {
		s.Logger.WarnContext(ctx, "budget repair skipped without transactions", "budgets", deferred)
	}
	return repaired, nil
}
