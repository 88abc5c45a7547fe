// Package store provides in-memory ledger.Store implementations.
package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/homebudget/budget-engine/ledger"
	"github.com/shopspring/decimal"
)

// =============================================================================
// MEMORY STORE - In-memory implementation (for testing/dev)
// =============================================================================

var (
	_ ledger.Store   = (*Memory)(nil)
	_ ledger.TxStore = (*TxMemory)(nil)
	_ ledger.Store   = (*tables)(nil)
)

// Memory is a ledger.Store guarded by a single RWMutex. Records keep their
// insertion order, which is the creation-order tie break of every listing.
type Memory struct {
	mu sync.RWMutex
	t  *tables
}

func NewMemory() *Memory {
	return &Memory{t: newTables()}
}

func (m *Memory) CreateEntry(ctx context.Context, e ledger.Entry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.t.CreateEntry(ctx, e)
}

func (m *Memory) GetEntry(ctx context.Context, userID ledger.UserID, id ledger.EntryID) (*ledger.Entry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.t.GetEntry(ctx, userID, id)
}

func (m *Memory) ListEntries(ctx context.Context, userID ledger.UserID, w ledger.Window) ([]ledger.Entry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.t.ListEntries(ctx, userID, w)
}

func (m *Memory) UpdateEntry(ctx context.Context, e ledger.Entry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.t.UpdateEntry(ctx, e)
}

func (m *Memory) DeleteEntry(ctx context.Context, userID ledger.UserID, id ledger.EntryID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.t.DeleteEntry(ctx, userID, id)
}

func (m *Memory) DetachEntries(ctx context.Context, userID ledger.UserID, budgetID ledger.BudgetID, w ledger.Window) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.t.DetachEntries(ctx, userID, budgetID, w)
}

func (m *Memory) SumAttributed(ctx context.Context, userID ledger.UserID, budgetID ledger.BudgetID, w ledger.Window) (decimal.Decimal, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.t.SumAttributed(ctx, userID, budgetID, w)
}

func (m *Memory) CreateBudget(ctx context.Context, b ledger.Budget) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.t.CreateBudget(ctx, b)
}

func (m *Memory) GetBudget(ctx context.Context, userID ledger.UserID, id ledger.BudgetID) (*ledger.Budget, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.t.GetBudget(ctx, userID, id)
}

func (m *Memory) ListBudgets(ctx context.Context, userID ledger.UserID, w ledger.Window, selectableOnly bool) ([]ledger.Budget, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.t.ListBudgets(ctx, userID, w, selectableOnly)
}

func (m *Memory) UpdateBudget(ctx context.Context, b ledger.Budget) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.t.UpdateBudget(ctx, b)
}

func (m *Memory) SetSelectable(ctx context.Context, userID ledger.UserID, id ledger.BudgetID, selectable bool, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.t.SetSelectable(ctx, userID, id, selectable, at)
}

func (m *Memory) OverrideActual(ctx context.Context, userID ledger.UserID, id ledger.BudgetID, actual decimal.Decimal, at time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.t.OverrideActual(ctx, userID, id, actual, at)
}

func (m *Memory) IncrementActual(ctx context.Context, userID ledger.UserID, id ledger.BudgetID, delta decimal.Decimal) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.t.IncrementActual(ctx, userID, id, delta)
}

func (m *Memory) SetActual(ctx context.Context, userID ledger.UserID, id ledger.BudgetID, actual decimal.Decimal) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.t.SetActual(ctx, userID, id, actual)
}

func (m *Memory) DeleteBudget(ctx context.Context, userID ledger.UserID, id ledger.BudgetID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.t.DeleteBudget(ctx, userID, id)
}

func (m *Memory) ClearParentCategory(ctx context.Context, userID ledger.UserID, categoryID ledger.CategoryID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.t.ClearParentCategory(ctx, userID, categoryID)
}

func (m *Memory) CreateCategory(ctx context.Context, c ledger.ParentCategory) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.t.CreateCategory(ctx, c)
}

func (m *Memory) GetCategory(ctx context.Context, userID ledger.UserID, id ledger.CategoryID) (*ledger.ParentCategory, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.t.GetCategory(ctx, userID, id)
}

func (m *Memory) ListCategories(ctx context.Context, userID ledger.UserID) ([]ledger.ParentCategory, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.t.ListCategories(ctx, userID)
}

func (m *Memory) DeleteCategory(ctx context.Context, userID ledger.UserID, id ledger.CategoryID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.t.DeleteCategory(ctx, userID, id)
}

func (m *Memory) CreateIncome(ctx context.Context, in ledger.Income) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.t.CreateIncome(ctx, in)
}

func (m *Memory) GetIncome(ctx context.Context, userID ledger.UserID, id ledger.IncomeID) (*ledger.Income, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.t.GetIncome(ctx, userID, id)
}

func (m *Memory) ListIncomes(ctx context.Context, userID ledger.UserID, w ledger.Window) ([]ledger.Income, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.t.ListIncomes(ctx, userID, w)
}

func (m *Memory) UpdateIncome(ctx context.Context, in ledger.Income) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.t.UpdateIncome(ctx, in)
}

func (m *Memory) DeleteIncome(ctx context.Context, userID ledger.UserID, id ledger.IncomeID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.t.DeleteIncome(ctx, userID, id)
}

func (m *Memory) RecordFailure(ctx context.Context, f ledger.FailureRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.t.RecordFailure(ctx, f)
}

func (m *Memory) PendingFailures(ctx context.Context, limit int) ([]ledger.FailureRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.t.PendingFailures(ctx, limit)
}

func (m *Memory) ResolveFailures(ctx context.Context, userID ledger.UserID, budgetID ledger.BudgetID, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.t.ResolveFailures(ctx, userID, budgetID, at)
}

// =============================================================================
// TRANSACTIONAL MEMORY STORE
// =============================================================================

// TxMemory wraps Memory with transaction support.
type TxMemory struct {
	*Memory
}

func NewTxMemory() *TxMemory {
	return &TxMemory{Memory: NewMemory()}
}

// WithTx executes fn within a transaction.
// For memory store, this is simulated with a snapshot + rollback on error.
func (tm *TxMemory) WithTx(ctx context.Context, fn func(ledger.Store) error) error {
	tm.mu.Lock()
	defer tm.mu.Unlock()

	snapshot := tm.t.clone()
	if err := fn(tm.t); err != nil {
		tm.t = snapshot
		return err
	}
	return nil
}

// =============================================================================
// TABLES - Unlocked state shared by Memory and transactional views
// =============================================================================

type tables struct {
	entries    []ledger.Entry
	budgets    []ledger.Budget
	categories []ledger.ParentCategory
	incomes    []ledger.Income
	failures   []ledger.FailureRecord
}

func newTables() *tables {
	return &tables{}
}

func (t *tables) clone() *tables {
	return &tables{
		entries:    append([]ledger.Entry(nil), t.entries...),
		budgets:    append([]ledger.Budget(nil), t.budgets...),
		categories: append([]ledger.ParentCategory(nil), t.categories...),
		incomes:    append([]ledger.Income(nil), t.incomes...),
		failures:   append([]ledger.FailureRecord(nil), t.failures...),
	}
}

// Entries

func (t *tables) entryIndex(userID ledger.UserID, id ledger.EntryID) int {
	for i, e := range t.entries {
		if e.ID == id && e.UserID == userID {
			return i
		}
	}
	return -1
}

func (t *tables) CreateEntry(_ context.Context, e ledger.Entry) error {
	t.entries = append(t.entries, e)
	return nil
}

func (t *tables) GetEntry(_ context.Context, userID ledger.UserID, id ledger.EntryID) (*ledger.Entry, error) {
	i := t.entryIndex(userID, id)
	if i < 0 {
		return nil, nil
	}
	e := t.entries[i]
	return &e, nil
}

func (t *tables) ListEntries(_ context.Context, userID ledger.UserID, w ledger.Window) ([]ledger.Entry, error) {
	result := []ledger.Entry{}
	for _, e := range t.entries {
		if e.UserID == userID && w.Contains(e.Date) {
			result = append(result, e)
		}
	}
	sort.SliceStable(result, func(i, j int) bool {
		return result[i].Date.Before(result[j].Date)
	})
	return result, nil
}

func (t *tables) UpdateEntry(_ context.Context, e ledger.Entry) error {
	i := t.entryIndex(e.UserID, e.ID)
	if i < 0 {
		return ledger.ErrEntryNotFound
	}
	cur := &t.entries[i]
	cur.Description = e.Description
	cur.Amount = e.Amount
	cur.BudgetID = e.BudgetID
	cur.UpdatedAt = e.UpdatedAt
	return nil
}

func (t *tables) DeleteEntry(_ context.Context, userID ledger.UserID, id ledger.EntryID) error {
	i := t.entryIndex(userID, id)
	if i < 0 {
		return ledger.ErrEntryNotFound
	}
	t.entries = append(t.entries[:i:i], t.entries[i+1:]...)
	return nil
}

func (t *tables) DetachEntries(_ context.Context, userID ledger.UserID, budgetID ledger.BudgetID, w ledger.Window) (int64, error) {
	var n int64
	for i := range t.entries {
		e := &t.entries[i]
		if e.UserID == userID && e.BudgetID == budgetID && w.Contains(e.Date) {
			e.BudgetID = ""
			n++
		}
	}
	return n, nil
}

func (t *tables) SumAttributed(_ context.Context, userID ledger.UserID, budgetID ledger.BudgetID, w ledger.Window) (decimal.Decimal, error) {
	sum := decimal.Zero
	for _, e := range t.entries {
		if e.UserID == userID && e.BudgetID == budgetID && w.Contains(e.Date) {
			sum = sum.Add(e.Amount)
		}
	}
	return sum, nil
}

// Budgets

func (t *tables) budgetIndex(userID ledger.UserID, id ledger.BudgetID) int {
	for i, b := range t.budgets {
		if b.ID == id && b.UserID == userID {
			return i
		}
	}
	return -1
}

func (t *tables) CreateBudget(_ context.Context, b ledger.Budget) error {
	t.budgets = append(t.budgets, b)
	return nil
}

func (t *tables) GetBudget(_ context.Context, userID ledger.UserID, id ledger.BudgetID) (*ledger.Budget, error) {
	i := t.budgetIndex(userID, id)
	if i < 0 {
		return nil, nil
	}
	b := t.budgets[i]
	return &b, nil
}

func (t *tables) ListBudgets(_ context.Context, userID ledger.UserID, w ledger.Window, selectableOnly bool) ([]ledger.Budget, error) {
	result := []ledger.Budget{}
	for _, b := range t.budgets {
		if b.UserID != userID || !w.Contains(b.Month) {
			continue
		}
		if selectableOnly && !b.Selectable {
			continue
		}
		result = append(result, b)
	}
	sort.SliceStable(result, func(i, j int) bool {
		return result[i].Month.Before(result[j].Month)
	})
	return result, nil
}

func (t *tables) UpdateBudget(_ context.Context, b ledger.Budget) error {
	i := t.budgetIndex(b.UserID, b.ID)
	if i < 0 {
		return ledger.ErrBudgetNotFound
	}
	cur := &t.budgets[i]
	cur.Description = b.Description
	cur.ProjectedAmount = b.ProjectedAmount
	cur.UpdatedAt = b.UpdatedAt
	return nil
}

func (t *tables) SetSelectable(_ context.Context, userID ledger.UserID, id ledger.BudgetID, selectable bool, at time.Time) error {
	i := t.budgetIndex(userID, id)
	if i < 0 {
		return ledger.ErrBudgetNotFound
	}
	t.budgets[i].Selectable = selectable
	t.budgets[i].UpdatedAt = at
	return nil
}

func (t *tables) OverrideActual(_ context.Context, userID ledger.UserID, id ledger.BudgetID, actual decimal.Decimal, at time.Time) (bool, error) {
	i := t.budgetIndex(userID, id)
	if i < 0 {
		return false, ledger.ErrBudgetNotFound
	}
	if t.budgets[i].Selectable {
		return false, nil
	}
	t.budgets[i].ActualAmount = actual
	t.budgets[i].UpdatedAt = at
	return true, nil
}

func (t *tables) IncrementActual(_ context.Context, userID ledger.UserID, id ledger.BudgetID, delta decimal.Decimal) error {
	i := t.budgetIndex(userID, id)
	if i < 0 {
		return ledger.ErrBudgetNotFound
	}
	t.budgets[i].ActualAmount = t.budgets[i].ActualAmount.Add(delta)
	return nil
}

func (t *tables) SetActual(_ context.Context, userID ledger.UserID, id ledger.BudgetID, actual decimal.Decimal) error {
	i := t.budgetIndex(userID, id)
	if i < 0 {
		return ledger.ErrBudgetNotFound
	}
	t.budgets[i].ActualAmount = actual
	return nil
}

func (t *tables) DeleteBudget(_ context.Context, userID ledger.UserID, id ledger.BudgetID) error {
	i := t.budgetIndex(userID, id)
	if i < 0 {
		return ledger.ErrBudgetNotFound
	}
	t.budgets = append(t.budgets[:i:i], t.budgets[i+1:]...)
	return nil
}

func (t *tables) ClearParentCategory(_ context.Context, userID ledger.UserID, categoryID ledger.CategoryID) error {
	for i := range t.budgets {
		if t.budgets[i].UserID == userID && t.budgets[i].ParentCategoryID == categoryID {
			t.budgets[i].ParentCategoryID = ""
		}
	}
	return nil
}

// Categories

func (t *tables) CreateCategory(_ context.Context, c ledger.ParentCategory) error {
	t.categories = append(t.categories, c)
	return nil
}

func (t *tables) GetCategory(_ context.Context, userID ledger.UserID, id ledger.CategoryID) (*ledger.ParentCategory, error) {
	for _, c := range t.categories {
		if c.ID == id && c.UserID == userID {
			c := c
			return &c, nil
		}
	}
	return nil, nil
}

func (t *tables) ListCategories(_ context.Context, userID ledger.UserID) ([]ledger.ParentCategory, error) {
	result := []ledger.ParentCategory{}
	for _, c := range t.categories {
		if c.UserID == userID {
			result = append(result, c)
		}
	}
	return result, nil
}

func (t *tables) DeleteCategory(_ context.Context, userID ledger.UserID, id ledger.CategoryID) error {
	for i, c := range t.categories {
		if c.ID == id && c.UserID == userID {
			t.categories = append(t.categories[:i:i], t.categories[i+1:]...)
			return nil
		}
	}
	return ledger.ErrCategoryNotFound
}

// Incomes

func (t *tables) incomeIndex(userID ledger.UserID, id ledger.IncomeID) int {
	for i, in := range t.incomes {
		if in.ID == id && in.UserID == userID {
			return i
		}
	}
	return -1
}

func (t *tables) CreateIncome(_ context.Context, in ledger.Income) error {
	t.incomes = append(t.incomes, in)
	return nil
}

func (t *tables) GetIncome(_ context.Context, userID ledger.UserID, id ledger.IncomeID) (*ledger.Income, error) {
	i := t.incomeIndex(userID, id)
	if i < 0 {
		return nil, nil
	}
	in := t.incomes[i]
	return &in, nil
}

func (t *tables) ListIncomes(_ context.Context, userID ledger.UserID, w ledger.Window) ([]ledger.Income, error) {
	result := []ledger.Income{}
	for _, in := range t.incomes {
		if in.UserID == userID && w.Contains(in.Month) {
			result = append(result, in)
		}
	}
	return result, nil
}

func (t *tables) UpdateIncome(_ context.Context, in ledger.Income) error {
	i := t.incomeIndex(in.UserID, in.ID)
	if i < 0 {
		return ledger.ErrIncomeNotFound
	}
	t.incomes[i] = in
	return nil
}

func (t *tables) DeleteIncome(_ context.Context, userID ledger.UserID, id ledger.IncomeID) error {
	i := t.incomeIndex(userID, id)
	if i < 0 {
		return ledger.ErrIncomeNotFound
	}
	t.incomes = append(t.incomes[:i:i], t.incomes[i+1:]...)
	return nil
}

// Failures

func (t *tables) RecordFailure(_ context.Context, f ledger.FailureRecord) error {
	t.failures = append(t.failures, f)
	return nil
}

func (t *tables) PendingFailures(_ context.Context, limit int) ([]ledger.FailureRecord, error) {
	var result []ledger.FailureRecord
	for _, f := range t.failures {
		if f.ResolvedAt != nil {
			continue
		}
		result = append(result, f)
		if limit > 0 && len(result) == limit {
			break
		}
	}
	return result, nil
}

func (t *tables) ResolveFailures(_ context.Context, userID ledger.UserID, budgetID ledger.BudgetID, at time.Time) error {
	for i := range t.failures {
		f := &t.failures[i]
		if f.UserID == userID && f.BudgetID == budgetID && f.ResolvedAt == nil {
			resolved := at
			f.ResolvedAt = &resolved
		}
	}
	return nil
}
