/*
service_test.go - Ledger service tests on the in-memory stores

Tests for:
- Budget totals staying equal to their attributed entries
- Reassignment, detach and delete cascades
- Attribution validation with no partial writes
- Lost increments reported as warnings and repaired later
- Budget writes that leave concurrent increments intact
- Concurrent entry creation on one budget
*/
package ledger_test

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/homebudget/budget-engine/ledger"
	"github.com/homebudget/budget-engine/ledger/store"
)

const user ledger.UserID = "user-1"

var march = time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)

func amount(v string) *decimal.Decimal {
	a := decimal.RequireFromString(v)
	return &a
}

func budgetPtr(id ledger.BudgetID) *ledger.BudgetID { return &id }

func newService(t *testing.T) (*ledger.Service, *store.TxMemory) {
	t.Helper()
	s := store.NewTxMemory()
	return ledger.NewService(s, nil), s
}

func openBudget(t *testing.T, svc *ledger.Service, description string, month time.Time) ledger.Budget {
	t.Helper()
	ctx := context.Background()
	b, err := svc.CreateBudget(ctx, user, ledger.NewBudget{Description: description, Month: month})
	require.NoError(t, err)
	b, err = svc.SetSelectable(ctx, user, b.ID, true)
	require.NoError(t, err)
	return *b
}

func addEntry(t *testing.T, svc *ledger.Service, budgetID ledger.BudgetID, amt string, date time.Time) ledger.Entry {
	t.Helper()
	res, err := svc.CreateEntry(context.Background(), user, ledger.NewEntry{
		Description: "expense",
		Amount:      amount(amt),
		Date:        date,
		BudgetID:    budgetID,
	})
	require.NoError(t, err)
	require.Empty(t, res.Warnings)
	return res.Entry
}

func actualOf(t *testing.T, s ledger.Store, id ledger.BudgetID) decimal.Decimal {
	t.Helper()
	b, err := s.GetBudget(context.Background(), user, id)
	require.NoError(t, err)
	require.NotNil(t, b)
	return b.ActualAmount
}

// assertBalanced checks that every listed budget carries the sum of its
// attributed entries.
func assertBalanced(t *testing.T, s ledger.Store, ids ...ledger.BudgetID) {
	t.Helper()
	ctx := context.Background()
	for _, id := range ids {
		b, err := s.GetBudget(ctx, user, id)
		require.NoError(t, err)
		require.NotNil(t, b)
		sum, err := s.SumAttributed(ctx, user, id, b.Window())
		require.NoError(t, err)
		assert.True(t, sum.Equal(b.ActualAmount), "budget %s: actual %s, entries %s", id, b.ActualAmount, sum)
	}
}

// =============================================================================
// BUDGET TOTALS
// =============================================================================

func TestCreateEntry_UpdatesBudget(t *testing.T) {
	svc, s := newService(t)
	b := openBudget(t, svc, "Groceries", march)

	addEntry(t, svc, b.ID, "12.50", march.AddDate(0, 0, 2))
	addEntry(t, svc, b.ID, "7.25", march.AddDate(0, 0, 3))
	addEntry(t, svc, "", "100", march.AddDate(0, 0, 3))

	assert.True(t, actualOf(t, s, b.ID).Equal(decimal.RequireFromString("19.75")))
	assertBalanced(t, s, b.ID)
}

func TestOperationSequence_KeepsTotalsBalanced(t *testing.T) {
	// GIVEN: Two selectable budgets in March
	svc, s := newService(t)
	ctx := context.Background()
	a := openBudget(t, svc, "A", march)
	b := openBudget(t, svc, "B", march)

	// WHEN: A mixed sequence of mutations runs
	e1 := addEntry(t, svc, a.ID, "10", march.AddDate(0, 0, 1))
	e2 := addEntry(t, svc, a.ID, "20", march.AddDate(0, 0, 2))
	e3 := addEntry(t, svc, "", "5", march.AddDate(0, 0, 3))
	assertBalanced(t, s, a.ID, b.ID)

	_, err := svc.UpdateEntry(ctx, user, e1.ID, ledger.EntryPatch{Amount: amount("15")})
	require.NoError(t, err)
	assertBalanced(t, s, a.ID, b.ID)

	_, err = svc.UpdateEntry(ctx, user, e2.ID, ledger.EntryPatch{BudgetID: budgetPtr(b.ID), Amount: amount("22")})
	require.NoError(t, err)
	assertBalanced(t, s, a.ID, b.ID)

	_, err = svc.UpdateEntry(ctx, user, e3.ID, ledger.EntryPatch{BudgetID: budgetPtr(b.ID)})
	require.NoError(t, err)
	assertBalanced(t, s, a.ID, b.ID)

	_, err = svc.UpdateEntry(ctx, user, e1.ID, ledger.EntryPatch{BudgetID: budgetPtr("")})
	require.NoError(t, err)
	assertBalanced(t, s, a.ID, b.ID)

	_, err = svc.DeleteEntry(ctx, user, e2.ID)
	require.NoError(t, err)

	// THEN: Totals match the surviving attributions
	assertBalanced(t, s, a.ID, b.ID)
	assert.True(t, actualOf(t, s, a.ID).IsZero())
	assert.True(t, actualOf(t, s, b.ID).Equal(decimal.NewFromInt(5)))
}

func TestUpdateEntry_ReassignMovesAmount(t *testing.T) {
	// GIVEN: 50 attributed to A
	svc, s := newService(t)
	a := openBudget(t, svc, "A", march)
	b := openBudget(t, svc, "B", march)
	e := addEntry(t, svc, a.ID, "50", march.AddDate(0, 0, 9))

	// WHEN: Reassigned to B
	res, err := svc.UpdateEntry(context.Background(), user, e.ID, ledger.EntryPatch{BudgetID: budgetPtr(b.ID)})

	// THEN: A gave back 50, B took 50
	require.NoError(t, err)
	assert.Empty(t, res.Warnings)
	assert.Equal(t, b.ID, res.Entry.BudgetID)
	assert.True(t, actualOf(t, s, a.ID).IsZero())
	assert.True(t, actualOf(t, s, b.ID).Equal(decimal.NewFromInt(50)))
}

func TestUpdateEntry_InvalidAttributionWritesNothing(t *testing.T) {
	svc, s := newService(t)
	ctx := context.Background()
	a := openBudget(t, svc, "A", march)
	april := openBudget(t, svc, "April", march.AddDate(0, 1, 0))
	e := addEntry(t, svc, a.ID, "50", march.AddDate(0, 0, 9))

	tests := []struct {
		name  string
		patch ledger.EntryPatch
	}{
		{"unknown budget", ledger.EntryPatch{BudgetID: budgetPtr("nope"), Amount: amount("1")}},
		{"other month", ledger.EntryPatch{BudgetID: budgetPtr(april.ID), Description: strPtr("moved")}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.UpdateEntry(ctx, user, e.ID, tt.patch)
			assert.ErrorIs(t, err, ledger.ErrInvalidAttribution)

			got, err := s.GetEntry(ctx, user, e.ID)
			require.NoError(t, err)
			assert.Equal(t, a.ID, got.BudgetID)
			assert.Equal(t, "expense", got.Description)
			assert.True(t, got.Amount.Equal(decimal.NewFromInt(50)))
			assert.True(t, actualOf(t, s, a.ID).Equal(decimal.NewFromInt(50)))
			assert.True(t, actualOf(t, s, april.ID).IsZero())
		})
	}
}

func TestUpdateEntry_UnchangedAttributionSkipsValidation(t *testing.T) {
	// GIVEN: An entry on a budget that was closed afterwards
	svc, s := newService(t)
	ctx := context.Background()
	a := openBudget(t, svc, "A", march)
	e := addEntry(t, svc, a.ID, "50", march.AddDate(0, 0, 9))
	_, err := svc.SetSelectable(ctx, user, a.ID, false)
	require.NoError(t, err)

	// WHEN: Only the amount changes, re-sending the same budget
	_, err = svc.UpdateEntry(ctx, user, e.ID, ledger.EntryPatch{BudgetID: budgetPtr(a.ID), Amount: amount("60")})

	// THEN: The update goes through
	require.NoError(t, err)
	assert.True(t, actualOf(t, s, a.ID).Equal(decimal.NewFromInt(60)))
}

func TestUpdateEntry_NoFieldsAndNotFound(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()
	e := addEntry(t, svc, "", "1", march)

	_, err := svc.UpdateEntry(ctx, user, e.ID, ledger.EntryPatch{Description: strPtr("   ")})
	assert.ErrorIs(t, err, ledger.ErrNoFieldsProvided)
	assert.ErrorIs(t, err, ledger.ErrInvalidInput)

	_, err = svc.UpdateEntry(ctx, user, "missing", ledger.EntryPatch{Amount: amount("1")})
	assert.ErrorIs(t, err, ledger.ErrEntryNotFound)

	// Another user's entry looks missing
	_, err = svc.UpdateEntry(ctx, "user-2", e.ID, ledger.EntryPatch{Amount: amount("1")})
	assert.ErrorIs(t, err, ledger.ErrEntryNotFound)

	_, err = svc.DeleteEntry(ctx, "user-2", e.ID)
	assert.ErrorIs(t, err, ledger.ErrEntryNotFound)
}

func TestCreateEntry_Validation(t *testing.T) {
	svc, s := newService(t)
	ctx := context.Background()
	closed, err := svc.CreateBudget(ctx, user, ledger.NewBudget{Description: "Closed", Month: march})
	require.NoError(t, err)
	open := openBudget(t, svc, "Open", march)
	foreign, err := svc.CreateBudget(ctx, "user-2", ledger.NewBudget{Description: "Theirs", Month: march})
	require.NoError(t, err)

	tests := []struct {
		name string
		in   ledger.NewEntry
		want error
	}{
		{"blank description", ledger.NewEntry{Description: "  ", Date: march}, ledger.ErrInvalidInput},
		{"no date", ledger.NewEntry{Description: "x"}, ledger.ErrInvalidInput},
		{"not selectable", ledger.NewEntry{Description: "x", Date: march, BudgetID: closed.ID}, ledger.ErrInvalidAttribution},
		{"other user's budget", ledger.NewEntry{Description: "x", Date: march, BudgetID: foreign.ID}, ledger.ErrInvalidAttribution},
		{"outside month", ledger.NewEntry{Description: "x", Date: march.AddDate(0, 1, 0), BudgetID: open.ID}, ledger.ErrInvalidAttribution},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.CreateEntry(ctx, user, tt.in)
			assert.ErrorIs(t, err, tt.want)
		})
	}

	entries, err := s.ListEntries(ctx, user, ledger.MonthWindow(march))
	require.NoError(t, err)
	assert.Empty(t, entries)
	assert.True(t, actualOf(t, s, open.ID).IsZero())
}

func TestCreateEntry_LastMillisecondOfMonth(t *testing.T) {
	svc, s := newService(t)
	b := openBudget(t, svc, "Groceries", march)

	addEntry(t, svc, b.ID, "3", ledger.MonthWindow(march).Last())
	assert.True(t, actualOf(t, s, b.ID).Equal(decimal.NewFromInt(3)))
}

// =============================================================================
// BUDGET LIFECYCLE
// =============================================================================

func TestDeleteBudget_DetachesEntries(t *testing.T) {
	// GIVEN: A budget with entries of 10 and 20
	svc, s := newService(t)
	ctx := context.Background()
	b := openBudget(t, svc, "Groceries", march)
	e1 := addEntry(t, svc, b.ID, "10", march.AddDate(0, 0, 1))
	e2 := addEntry(t, svc, b.ID, "20", march.AddDate(0, 0, 2))

	// WHEN: The budget is deleted
	detached, err := svc.DeleteBudget(ctx, user, b.ID)

	// THEN: Both entries survive, unattributed
	require.NoError(t, err)
	assert.Equal(t, int64(2), detached)
	for _, id := range []ledger.EntryID{e1.ID, e2.ID} {
		e, err := s.GetEntry(ctx, user, id)
		require.NoError(t, err)
		require.NotNil(t, e)
		assert.False(t, e.Attributed())
	}
	got, err := s.GetBudget(ctx, user, b.ID)
	require.NoError(t, err)
	assert.Nil(t, got)

	_, err = svc.DeleteBudget(ctx, user, b.ID)
	assert.ErrorIs(t, err, ledger.ErrBudgetNotFound)
}

func TestDeleteBudget_WithoutTransactions(t *testing.T) {
	s := store.NewMemory()
	svc := ledger.NewService(s, nil)
	ctx := context.Background()
	b := openBudget(t, svc, "Groceries", march)
	addEntry(t, svc, b.ID, "10", march.AddDate(0, 0, 1))

	detached, err := svc.DeleteBudget(ctx, user, b.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), detached)

	// The detach sweep is idempotent
	n, err := s.DetachEntries(ctx, user, b.ID, b.Window())
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestUpdateBudget_ActualGatedBySelectable(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()
	b, err := svc.CreateBudget(ctx, user, ledger.NewBudget{Description: "Groceries", Month: march})
	require.NoError(t, err)

	// Closed budget: actual is writable
	got, err := svc.UpdateBudget(ctx, user, b.ID, ledger.BudgetPatch{ActualAmount: amount("42")})
	require.NoError(t, err)
	assert.True(t, got.ActualAmount.Equal(decimal.NewFromInt(42)))

	_, err = svc.SetSelectable(ctx, user, b.ID, true)
	require.NoError(t, err)

	// Selectable: actual alone is nothing to change
	_, err = svc.UpdateBudget(ctx, user, b.ID, ledger.BudgetPatch{ActualAmount: amount("1")})
	assert.ErrorIs(t, err, ledger.ErrNoFieldsProvided)

	// Selectable: actual is dropped next to another field
	got, err = svc.UpdateBudget(ctx, user, b.ID, ledger.BudgetPatch{ActualAmount: amount("1"), Description: strPtr("Food")})
	require.NoError(t, err)
	assert.Equal(t, "Food", got.Description)
	assert.True(t, got.ActualAmount.Equal(decimal.NewFromInt(42)))

	_, err = svc.UpdateBudget(ctx, user, "missing", ledger.BudgetPatch{Description: strPtr("x")})
	assert.ErrorIs(t, err, ledger.ErrBudgetNotFound)
}

func TestCreateBudget_Validation(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	_, err := svc.CreateBudget(ctx, user, ledger.NewBudget{Month: march})
	assert.ErrorIs(t, err, ledger.ErrInvalidInput)

	_, err = svc.CreateBudget(ctx, user, ledger.NewBudget{Description: "x"})
	assert.ErrorIs(t, err, ledger.ErrInvalidInput)

	_, err = svc.CreateBudget(ctx, user, ledger.NewBudget{Description: "x", Month: march, ParentCategoryID: "nope"})
	assert.ErrorIs(t, err, ledger.ErrInvalidInput)

	b, err := svc.CreateBudget(ctx, user, ledger.NewBudget{Description: "x", Month: march.AddDate(0, 0, 14)})
	require.NoError(t, err)
	assert.Equal(t, march, b.Month)
	assert.False(t, b.Selectable)
}

func TestSelectableBudgets(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()
	first := openBudget(t, svc, "First", march)
	_, err := svc.CreateBudget(ctx, user, ledger.NewBudget{Description: "Closed", Month: march})
	require.NoError(t, err)
	second := openBudget(t, svc, "Second", march)
	openBudget(t, svc, "April", march.AddDate(0, 1, 0))

	options, err := svc.SelectableBudgets(ctx, user, march)
	require.NoError(t, err)
	assert.Equal(t, []ledger.BudgetOption{
		{ID: first.ID, Description: "First"},
		{ID: second.ID, Description: "Second"},
	}, options)

	listing, err := svc.ListEntries(ctx, user, "2024-03-10", "")
	require.NoError(t, err)
	assert.True(t, listing.ByDay)
	assert.Len(t, listing.Selectable, 2)
}

func TestDeleteCategory_UngroupsBudgets(t *testing.T) {
	svc, s := newService(t)
	ctx := context.Background()
	c, err := svc.CreateCategory(ctx, user, "Home")
	require.NoError(t, err)
	b, err := svc.CreateBudget(ctx, user, ledger.NewBudget{Description: "Rent", Month: march, ParentCategoryID: c.ID})
	require.NoError(t, err)

	require.NoError(t, svc.DeleteCategory(ctx, user, c.ID))

	got, err := s.GetBudget(ctx, user, b.ID)
	require.NoError(t, err)
	assert.Empty(t, got.ParentCategoryID)

	assert.ErrorIs(t, svc.DeleteCategory(ctx, user, c.ID), ledger.ErrCategoryNotFound)
}

func TestIncomes(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	in, err := svc.CreateIncome(ctx, user, ledger.NewIncome{Description: "Salary", Month: march, ProjectedAmount: amount("1000")})
	require.NoError(t, err)

	_, err = svc.UpdateIncome(ctx, user, in.ID, ledger.IncomePatch{})
	assert.ErrorIs(t, err, ledger.ErrNoFieldsProvided)

	got, err := svc.UpdateIncome(ctx, user, in.ID, ledger.IncomePatch{ActualAmount: amount("990")})
	require.NoError(t, err)
	assert.True(t, got.ActualAmount.Equal(decimal.NewFromInt(990)))

	list, err := svc.ListIncomes(ctx, user, march)
	require.NoError(t, err)
	assert.Len(t, list, 1)

	require.NoError(t, svc.DeleteIncome(ctx, user, in.ID))
	assert.ErrorIs(t, svc.DeleteIncome(ctx, user, in.ID), ledger.ErrIncomeNotFound)
}

// =============================================================================
// LOST INCREMENTS AND REPAIR
// =============================================================================

// vanishingStore deletes a budget right before its increment lands, as a
// concurrent budget delete would.
type vanishingStore struct {
	*store.Memory
	vanish ledger.BudgetID
}

func (v *vanishingStore) IncrementActual(ctx context.Context, userID ledger.UserID, id ledger.BudgetID, delta decimal.Decimal) error {
	if id == v.vanish {
		_ = v.Memory.DeleteBudget(ctx, userID, id)
	}
	return v.Memory.IncrementActual(ctx, userID, id, delta)
}

func TestCreateEntry_LostIncrementIsWarning(t *testing.T) {
	// GIVEN: A budget that disappears between validation and increment
	mem := store.NewMemory()
	vs := &vanishingStore{Memory: mem}
	svc := ledger.NewService(vs, nil)
	ctx := context.Background()
	b := openBudget(t, svc, "Groceries", march)
	vs.vanish = b.ID

	// WHEN: An entry is attributed to it
	res, err := svc.CreateEntry(ctx, user, ledger.NewEntry{
		Description: "milk", Amount: amount("10"), Date: march, BudgetID: b.ID,
	})

	// THEN: The entry is kept and the lost delta is reported and recorded
	require.NoError(t, err)
	require.Len(t, res.Warnings, 1)
	assert.ErrorIs(t, res.Warnings[0], ledger.ErrReconciliationFailure)
	assert.ErrorIs(t, res.Warnings[0], ledger.ErrBudgetNotFound)
	assert.Equal(t, b.ID, res.Warnings[0].BudgetID)

	e, err := mem.GetEntry(ctx, user, res.Entry.ID)
	require.NoError(t, err)
	require.NotNil(t, e)

	pending, err := mem.PendingFailures(ctx, 0)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, res.Entry.ID, pending[0].EntryID)

	// The sweep resolves failures of budgets that no longer exist
	repaired, err := svc.RepairPending(ctx, 10)
	require.NoError(t, err)
	assert.Zero(t, repaired)
	pending, err = mem.PendingFailures(ctx, 0)
	require.NoError(t, err)
	assert.Empty(t, pending)
}

func TestRepairPending_RederivesActual(t *testing.T) {
	// GIVEN: A budget whose total drifted, with a recorded failure
	svc, s := newService(t)
	ctx := context.Background()
	b := openBudget(t, svc, "Groceries", march)
	e := addEntry(t, svc, b.ID, "10", march.AddDate(0, 0, 1))
	addEntry(t, svc, b.ID, "20", march.AddDate(0, 0, 2))

	require.NoError(t, s.SetActual(ctx, user, b.ID, decimal.NewFromInt(999)))
	for i := 0; i < 2; i++ {
		require.NoError(t, s.RecordFailure(ctx, ledger.FailureRecord{
			ID: fmt.Sprintf("f%d", i), UserID: user, BudgetID: b.ID, EntryID: e.ID,
			Delta: decimal.NewFromInt(10), CreatedAt: time.Now().UTC(),
		}))
	}

	// WHEN: The sweep runs
	repaired, err := svc.RepairPending(ctx, 10)

	// THEN: The budget is repaired once and its failures are resolved
	require.NoError(t, err)
	assert.Equal(t, 1, repaired)
	assert.True(t, actualOf(t, s, b.ID).Equal(decimal.NewFromInt(30)))
	pending, err := s.PendingFailures(ctx, 0)
	require.NoError(t, err)
	assert.Empty(t, pending)
}

func TestRepairBudget_Missing(t *testing.T) {
	svc, _ := newService(t)
	_, err := svc.RepairBudget(context.Background(), user, "missing")
	assert.ErrorIs(t, err, ledger.ErrBudgetNotFound)
}

func TestRepair_WithoutTransactionsStaysPending(t *testing.T) {
	// GIVEN: A plain store with a drifted budget and a recorded failure
	mem := store.NewMemory()
	svc := ledger.NewService(mem, nil)
	ctx := context.Background()
	b := openBudget(t, svc, "Groceries", march)
	e := addEntry(t, svc, b.ID, "10", march.AddDate(0, 0, 1))
	require.NoError(t, mem.SetActual(ctx, user, b.ID, decimal.NewFromInt(999)))
	require.NoError(t, mem.RecordFailure(ctx, ledger.FailureRecord{
		ID: "f1", UserID: user, BudgetID: b.ID, EntryID: e.ID,
		Delta: decimal.NewFromInt(10), CreatedAt: time.Now().UTC(),
	}))

	// WHEN: A repair is attempted
	_, err := svc.RepairBudget(ctx, user, b.ID)
	assert.ErrorIs(t, err, ledger.ErrRepairNeedsTx)
	repaired, err := svc.RepairPending(ctx, 10)

	// THEN: Nothing is overwritten and the failure waits
	require.NoError(t, err)
	assert.Zero(t, repaired)
	assert.True(t, actualOf(t, mem, b.ID).Equal(decimal.NewFromInt(999)))
	pending, err := mem.PendingFailures(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, pending, 1)
}

// interleavingStore lands one increment on a budget right after the service
// reads it and again right before any budget write, as a concurrent entry
// mutation on a store without transactions would.
type interleavingStore struct {
	*store.Memory
	target ledger.BudgetID
	delta  decimal.Decimal
	fired  bool
}

func (s *interleavingStore) interleave(ctx context.Context, userID ledger.UserID, id ledger.BudgetID) {
	if s.fired || id != s.target {
		return
	}
	s.fired = true
	_ = s.Memory.IncrementActual(ctx, userID, id, s.delta)
}

func (s *interleavingStore) GetBudget(ctx context.Context, userID ledger.UserID, id ledger.BudgetID) (*ledger.Budget, error) {
	b, err := s.Memory.GetBudget(ctx, userID, id)
	s.interleave(ctx, userID, id)
	return b, err
}

func (s *interleavingStore) UpdateBudget(ctx context.Context, b ledger.Budget) error {
	s.interleave(ctx, b.UserID, b.ID)
	return s.Memory.UpdateBudget(ctx, b)
}

func (s *interleavingStore) SetSelectable(ctx context.Context, userID ledger.UserID, id ledger.BudgetID, selectable bool, at time.Time) error {
	s.interleave(ctx, userID, id)
	return s.Memory.SetSelectable(ctx, userID, id, selectable, at)
}

func TestBudgetWrites_KeepConcurrentIncrements(t *testing.T) {
	tests := []struct {
		name string
		run  func(svc *ledger.Service, id ledger.BudgetID) error
	}{
		{"close for attribution", func(svc *ledger.Service, id ledger.BudgetID) error {
			_, err := svc.SetSelectable(context.Background(), user, id, false)
			return err
		}},
		{"edit description and projection", func(svc *ledger.Service, id ledger.BudgetID) error {
			_, err := svc.UpdateBudget(context.Background(), user, id, ledger.BudgetPatch{
				Description: strPtr("Food"), ProjectedAmount: amount("300"),
			})
			return err
		}},
		{"actual dropped while selectable", func(svc *ledger.Service, id ledger.BudgetID) error {
			_, err := svc.UpdateBudget(context.Background(), user, id, ledger.BudgetPatch{
				Description: strPtr("Food"), ActualAmount: amount("1"),
			})
			return err
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// GIVEN: A budget holding one 10 entry on a store without transactions
			is := &interleavingStore{Memory: store.NewMemory(), delta: decimal.NewFromInt(40)}
			svc := ledger.NewService(is, nil)
			b := openBudget(t, svc, "Groceries", march)
			addEntry(t, svc, b.ID, "10", march.AddDate(0, 0, 1))

			// WHEN: A +40 increment lands while the budget is being written
			is.target = b.ID
			require.NoError(t, tt.run(svc, b.ID))

			// THEN: The increment survives the write
			require.True(t, is.fired)
			got := actualOf(t, is.Memory, b.ID)
			assert.True(t, got.Equal(decimal.NewFromInt(50)), "actual %s, want 50", got)
		})
	}
}

// =============================================================================
// CONCURRENCY
// =============================================================================

func TestCreateEntry_ConcurrentOnOneBudget(t *testing.T) {
	svc, s := newService(t)
	b := openBudget(t, svc, "Groceries", march)

	var wg sync.WaitGroup
	for i := 0; i < 40; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := svc.CreateEntry(context.Background(), user, ledger.NewEntry{
				Description: fmt.Sprintf("e%d", i),
				Amount:      amount("2.5"),
				Date:        march.AddDate(0, 0, i%28),
				BudgetID:    b.ID,
			})
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	assert.True(t, actualOf(t, s, b.ID).Equal(decimal.NewFromInt(100)))
	assertBalanced(t, s, b.ID)
}

func strPtr(s string) *string { return &s }
