/*
service.go - Entry lifecycle and the selectable-budgets query

PURPOSE:
  Entry operations as seen by the HTTP layer. Every mutation runs in the
  same order: load the prior state, validate the new attribution, write the
  entry, hand ComputeDelta's output to the Engine.

TRANSACTIONS:
  When the Store is a TxStore the entry write and all of its increments
  share one store transaction, so reassigning an entry from budget A to
  budget B is all-or-nothing. A plain Store applies the increments one at a
  time after the entry write; a crash between them leaves one budget off by
  the entry's amount. Only a TxStore can re-derive that total, so on a
  plain Store the recorded failure stays pending.

SEE ALSO:
  - budgets.go: budget lifecycle
  - engine.go:  delta application and repair
*/
package ledger

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Service implements the ledger operations for one store.
type Service struct {
	Store  Store
	Engine *Engine
	Logger *slog.Logger
	Now    func() time.Time
}

// NewService creates a service over store.
func NewService(store Store, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	engine := NewEngine(logger)
	return &Service{
		Store:  store,
		Engine: engine,
		Logger: logger.With("component", "ledger"),
		Now:    engine.Now,
	}
}

// =============================================================================
// REQUEST / RESULT TYPES
// =============================================================================

// NewEntry is the input of CreateEntry. A nil Amount means zero.
type NewEntry struct {
	Description string
	Amount      *decimal.Decimal
	Date        time.Time
	BudgetID    BudgetID
}

// EntryPatch is the input of UpdateEntry. Nil fields are left untouched;
// a BudgetID pointing at "" detaches the entry.
type EntryPatch struct {
	Description *string
	Amount      *decimal.Decimal
	BudgetID    *BudgetID
}

// EntryResult is a committed entry mutation with any deltas that did not
// land on their budget.
type EntryResult struct {
	Entry    Entry
	Warnings []*ReconciliationFailure
}

// EntryListing is the result of ListEntries. Selectable is only filled when
// the listing is scoped to a single day.
type EntryListing struct {
	Window     Window
	ByDay      bool
	Entries    []Entry
	Selectable []BudgetOption
}

// =============================================================================
// ENTRY OPERATIONS
// =============================================================================

// CreateEntry records a daily expense and, when attributed, adds its amount
// to the budget.
func (s *Service) CreateEntry(ctx context.Context, userID UserID, in NewEntry) (*EntryResult, error) {
	description := strings.TrimSpace(in.Description)
	if description == "" {
		return nil, invalidInput("description", "description for daily expense is required")
	}
	if in.Date.IsZero() {
		return nil, invalidInput("date", "date for daily expense is required")
	}

	now := s.Now()
	entry := Entry{
		ID:          EntryID(NewID()),
		UserID:      userID,
		BudgetID:    in.BudgetID,
		Description: description,
		Amount:      decimal.Zero,
		Date:        in.Date.UTC(),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if in.Amount != nil {
		entry.Amount = *in.Amount
	}

	var warnings []*ReconciliationFailure
	err := withTx(ctx, s.Store, func(st Store) error {
		if entry.Attributed() {
			if err := validateAttribution(ctx, st, userID, entry.BudgetID, entry.Date); err != nil {
				return err
			}
		}
		if err := st.CreateEntry(ctx, entry); err != nil {
			return fmt.Errorf("create entry: %w", err)
		}

		var err error
		warnings, err = s.Engine.Apply(ctx, st, userID, entry.ID, ComputeDelta(Attribution{}, entry.Attribution()))
		return err
	})
	if err != nil {
		return nil, err
	}

	s.Logger.InfoContext(ctx, "daily expense created",
		"user_id", userID, "entry_id", entry.ID, "budget_id", entry.BudgetID, "amount", entry.Amount.String())
	return &EntryResult{Entry: entry, Warnings: warnings}, nil
}

// ListEntries returns the user's entries for a day (date) or a month. A day
// listing also carries the budgets selectable in that day's month.
func (s *Service) ListEntries(ctx context.Context, userID UserID, date, month string) (*EntryListing, error) {
	w, byDay, err := ResolveEntryWindow(date, month)
	if err != nil {
		return nil, err
	}

	entries, err := s.Store.ListEntries(ctx, userID, w)
	if err != nil {
		return nil, fmt.Errorf("list entries: %w", err)
	}

	listing := &EntryListing{Window: w, ByDay: byDay, Entries: entries}
	if byDay {
		listing.Selectable, err = s.SelectableBudgets(ctx, userID, w.Start)
		if err != nil {
			return nil, err
		}
	}
	return listing, nil
}

// UpdateEntry changes description, amount and/or attribution of an entry
// and moves budget totals accordingly.
func (s *Service) UpdateEntry(ctx context.Context, userID UserID, id EntryID, patch EntryPatch) (*EntryResult, error) {
	if patch.Description != nil {
		trimmed := strings.TrimSpace(*patch.Description)
		if trimmed == "" {
			patch.Description = nil
		} else {
			patch.Description = &trimmed
		}
	}
	if patch.Description == nil && patch.Amount == nil && patch.BudgetID == nil {
		return nil, ErrNoFieldsProvided
	}

	var result EntryResult
	err := withTx(ctx, s.Store, func(st Store) error {
		prior, err := st.GetEntry(ctx, userID, id)
		if err != nil {
			return fmt.Errorf("load entry: %w", err)
		}
		if prior == nil {
			return ErrEntryNotFound
		}

		next := *prior
		if patch.BudgetID != nil && *patch.BudgetID != prior.BudgetID {
			if *patch.BudgetID != "" {
				if err := validateAttribution(ctx, st, userID, *patch.BudgetID, prior.Date); err != nil {
					return err
				}
			}
			next.BudgetID = *patch.BudgetID
		}
		if patch.Description != nil {
			next.Description = *patch.Description
		}
		if patch.Amount != nil {
			next.Amount = *patch.Amount
		}
		next.UpdatedAt = s.Now()

		if err := st.UpdateEntry(ctx, next); err != nil {
			return fmt.Errorf("update entry: %w", err)
		}

		warnings, err := s.Engine.Apply(ctx, st, userID, id, ComputeDelta(prior.Attribution(), next.Attribution()))
		if err != nil {
			return err
		}
		result = EntryResult{Entry: next, Warnings: warnings}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return &result, nil
}

// DeleteEntry removes an entry after reversing its contribution to its budget.
func (s *Service) DeleteEntry(ctx context.Context, userID UserID, id EntryID) ([]*ReconciliationFailure, error) {
	var warnings []*ReconciliationFailure
	err := withTx(ctx, s.Store, func(st Store) error {
		prior, err := st.GetEntry(ctx, userID, id)
		if err != nil {
			return fmt.Errorf("load entry: %w", err)
		}
		if prior == nil {
			return ErrEntryNotFound
		}

		warnings, err = s.Engine.Apply(ctx, st, userID, id, ComputeDelta(prior.Attribution(), Attribution{}))
		if err != nil {
			return err
		}
		return st.DeleteEntry(ctx, userID, id)
	})
	if err != nil {
		return nil, err
	}

	s.Logger.InfoContext(ctx, "daily expense deleted", "user_id", userID, "entry_id", id)
	return warnings, nil
}

// =============================================================================
// SELECTABLE BUDGETS
// =============================================================================

// SelectableBudgets returns the budgets of month that accept new entries.
func (s *Service) SelectableBudgets(ctx context.Context, userID UserID, month time.Time) ([]BudgetOption, error) {
	budgets, err := s.Store.ListBudgets(ctx, userID, MonthWindow(month), true)
	if err != nil {
		return nil, fmt.Errorf("list selectable budgets: %w", err)
	}

	options := make([]BudgetOption, len(budgets))
	for i, b := range budgets {
		options[i] = BudgetOption{ID: b.ID, Description: b.Description}
	}
	return options, nil
}

// validateAttribution checks that budgetID exists for userID, is open for
// attribution, and that date falls inside its month.
func validateAttribution(ctx context.Context, st Store, userID UserID, budgetID BudgetID, date time.Time) error {
	b, err := st.GetBudget(ctx, userID, budgetID)
	if err != nil {
		return fmt.Errorf("load budget: %w", err)
	}
	if b == nil {
		return &AttributionError{BudgetID: budgetID, Reason: "budget does not exist"}
	}
	if !b.Window().Contains(date) {
		return &AttributionError{BudgetID: budgetID, Reason: "expense date " + date.Format("2006-01-02") + " is outside the budget month " + b.Month.Format("2006-01")}
	}
	if !b.Selectable {
		return &AttributionError{BudgetID: budgetID, Reason: "budget is not open for new expenses"}
	}
	return nil
}
