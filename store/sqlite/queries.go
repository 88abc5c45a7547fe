package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/homebudget/budget-engine/ledger"
)

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// queries runs every statement against db without locking. Store wraps it
// with the mutex; WithTx hands it to callers bound to a transaction.
type queries struct {
	db querier
}

var _ ledger.Store = queries{}

// expectOne maps "no row changed" to notFound.
func expectOne(res sql.Result, notFound error) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return notFound
	}
	return nil
}

// =============================================================================
// ENTRIES
// =============================================================================

const entryColumns = `id, user_id, budget_id, description, amount, date, created_at, updated_at`

func (q queries) CreateEntry(ctx context.Context, e ledger.Entry) error {
	_, err := q.db.ExecContext(ctx, `
		INSERT INTO entries (`+entryColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.UserID, nullString(string(e.BudgetID)), e.Description, e.Amount.String(),
		formatTime(e.Date), formatTime(e.CreatedAt), formatTime(e.UpdatedAt),
	)
	if isUniqueConstraintError(err) {
		return fmt.Errorf("%w: entry %s already exists", ledger.ErrConflict, e.ID)
	}
	return err
}

func (q queries) GetEntry(ctx context.Context, userID ledger.UserID, id ledger.EntryID) (*ledger.Entry, error) {
	row := q.db.QueryRowContext(ctx, `
		SELECT `+entryColumns+` FROM entries WHERE id = ? AND user_id = ?`, id, userID)
	e, err := scanEntry(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return e, nil
}

func (q queries) ListEntries(ctx context.Context, userID ledger.UserID, w ledger.Window) ([]ledger.Entry, error) {
	rows, err := q.db.QueryContext(ctx, `
		SELECT `+entryColumns+` FROM entries
		WHERE user_id = ? AND date >= ? AND date < ?
		ORDER BY date, rowid`,
		userID, formatTime(w.Start), formatTime(w.End),
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	entries := []ledger.Entry{}
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, *e)
	}
	return entries, rows.Err()
}

func (q queries) UpdateEntry(ctx context.Context, e ledger.Entry) error {
	res, err := q.db.ExecContext(ctx, `
		UPDATE entries SET description = ?, amount = ?, budget_id = ?, updated_at = ?
		WHERE id = ? AND user_id = ?`,
		e.Description, e.Amount.String(), nullString(string(e.BudgetID)), formatTime(e.UpdatedAt),
		e.ID, e.UserID,
	)
	if err != nil {
		return err
	}
	return expectOne(res, ledger.ErrEntryNotFound)
}

func (q queries) DeleteEntry(ctx context.Context, userID ledger.UserID, id ledger.EntryID) error {
	res, err := q.db.ExecContext(ctx, `DELETE FROM entries WHERE id = ? AND user_id = ?`, id, userID)
	if err != nil {
		return err
	}
	return expectOne(res, ledger.ErrEntryNotFound)
}

func (q queries) DetachEntries(ctx context.Context, userID ledger.UserID, budgetID ledger.BudgetID, w ledger.Window) (int64, error) {
	res, err := q.db.ExecContext(ctx, `
		UPDATE entries SET budget_id = NULL
		WHERE user_id = ? AND budget_id = ? AND date >= ? AND date < ?`,
		userID, budgetID, formatTime(w.Start), formatTime(w.End),
	)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// SumAttributed adds in Go: amounts are decimal text and SQLite would sum
// them as floats.
func (q queries) SumAttributed(ctx context.Context, userID ledger.UserID, budgetID ledger.BudgetID, w ledger.Window) (decimal.Decimal, error) {
	rows, err := q.db.QueryContext(ctx, `
		SELECT amount FROM entries
		WHERE user_id = ? AND budget_id = ? AND date >= ? AND date < ?`,
		userID, budgetID, formatTime(w.Start), formatTime(w.End),
	)
	if err != nil {
		return decimal.Zero, err
	}
	defer rows.Close()

	sum := decimal.Zero
	for rows.Next() {
		var amount string
		if err := rows.Scan(&amount); err != nil {
			return decimal.Zero, err
		}
		d, err := parseDecimal(amount)
		if err != nil {
			return decimal.Zero, err
		}
		sum = sum.Add(d)
	}
	return sum, rows.Err()
}

// =============================================================================
// BUDGETS
// =============================================================================

const budgetColumns = `id, user_id, parent_category_id, description, month, projected_amount, actual_amount, selectable, created_at, updated_at`

func (q queries) CreateBudget(ctx context.Context, b ledger.Budget) error {
	_, err := q.db.ExecContext(ctx, `
		INSERT INTO budgets (`+budgetColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		b.ID, b.UserID, nullString(string(b.ParentCategoryID)), b.Description, formatTime(b.Month),
		b.ProjectedAmount.String(), b.ActualAmount.String(), b.Selectable,
		formatTime(b.CreatedAt), formatTime(b.UpdatedAt),
	)
	if isUniqueConstraintError(err) {
		return fmt.Errorf("%w: budget %s already exists", ledger.ErrConflict, b.ID)
	}
	return err
}

func (q queries) GetBudget(ctx context.Context, userID ledger.UserID, id ledger.BudgetID) (*ledger.Budget, error) {
	row := q.db.QueryRowContext(ctx, `
		SELECT `+budgetColumns+` FROM budgets WHERE id = ? AND user_id = ?`, id, userID)
	b, err := scanBudget(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return b, nil
}

func (q queries) ListBudgets(ctx context.Context, userID ledger.UserID, w ledger.Window, selectableOnly bool) ([]ledger.Budget, error) {
	query := `
		SELECT ` + budgetColumns + ` FROM budgets
		WHERE user_id = ? AND month >= ? AND month < ?`
	if selectableOnly {
		query += ` AND selectable = 1`
	}
	query += ` ORDER BY month, rowid`

	rows, err := q.db.QueryContext(ctx, query, userID, formatTime(w.Start), formatTime(w.End))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	budgets := []ledger.Budget{}
	for rows.Next() {
		b, err := scanBudget(rows)
		if err != nil {
			return nil, err
		}
		budgets = append(budgets, *b)
	}
	return budgets, rows.Err()
}

func (q queries) UpdateBudget(ctx context.Context, b ledger.Budget) error {
	res, err := q.db.ExecContext(ctx, `
		UPDATE budgets
		SET description = ?, projected_amount = ?, updated_at = ?
		WHERE id = ? AND user_id = ?`,
		b.Description, b.ProjectedAmount.String(), formatTime(b.UpdatedAt), b.ID, b.UserID,
	)
	if err != nil {
		return err
	}
	return expectOne(res, ledger.ErrBudgetNotFound)
}

func (q queries) SetSelectable(ctx context.Context, userID ledger.UserID, id ledger.BudgetID, selectable bool, at time.Time) error {
	res, err := q.db.ExecContext(ctx, `
		UPDATE budgets SET selectable = ?, updated_at = ?
		WHERE id = ? AND user_id = ?`,
		selectable, formatTime(at), id, userID,
	)
	if err != nil {
		return err
	}
	return expectOne(res, ledger.ErrBudgetNotFound)
}

// OverrideActual carries the selectable gate in its WHERE clause, so a
// budget opened concurrently is left alone.
func (q queries) OverrideActual(ctx context.Context, userID ledger.UserID, id ledger.BudgetID, actual decimal.Decimal, at time.Time) (bool, error) {
	res, err := q.db.ExecContext(ctx, `
		UPDATE budgets SET actual_amount = ?, updated_at = ?
		WHERE id = ? AND user_id = ? AND selectable = 0`,
		actual.String(), formatTime(at), id, userID,
	)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	if n > 0 {
		return true, nil
	}

	var one int
	err = q.db.QueryRowContext(ctx, `
		SELECT 1 FROM budgets WHERE id = ? AND user_id = ?`, id, userID,
	).Scan(&one)
	if err == sql.ErrNoRows {
		return false, ledger.ErrBudgetNotFound
	}
	return false, err
}

// IncrementActual reads and writes actual_amount. Atomicity comes from the
// caller: Store runs it in its own transaction under the write lock, WithTx
// runs it inside the caller's.
func (q queries) IncrementActual(ctx context.Context, userID ledger.UserID, id ledger.BudgetID, delta decimal.Decimal) error {
	var current string
	err := q.db.QueryRowContext(ctx, `
		SELECT actual_amount FROM budgets WHERE id = ? AND user_id = ?`, id, userID,
	).Scan(&current)
	if err == sql.ErrNoRows {
		return ledger.ErrBudgetNotFound
	}
	if err != nil {
		return err
	}

	prev, err := parseDecimal(current)
	if err != nil {
		return err
	}
	next := prev.Add(delta)
	_, err = q.db.ExecContext(ctx, `
		UPDATE budgets SET actual_amount = ? WHERE id = ? AND user_id = ?`,
		next.String(), id, userID,
	)
	return err
}

func (q queries) SetActual(ctx context.Context, userID ledger.UserID, id ledger.BudgetID, actual decimal.Decimal) error {
	res, err := q.db.ExecContext(ctx, `
		UPDATE budgets SET actual_amount = ? WHERE id = ? AND user_id = ?`,
		actual.String(), id, userID,
	)
	if err != nil {
		return err
	}
	return expectOne(res, ledger.ErrBudgetNotFound)
}

func (q queries) DeleteBudget(ctx context.Context, userID ledger.UserID, id ledger.BudgetID) error {
	res, err := q.db.ExecContext(ctx, `DELETE FROM budgets WHERE id = ? AND user_id = ?`, id, userID)
	if err != nil {
		return err
	}
	return expectOne(res, ledger.ErrBudgetNotFound)
}

func (q queries) ClearParentCategory(ctx context.Context, userID ledger.UserID, categoryID ledger.CategoryID) error {
	_, err := q.db.ExecContext(ctx, `
		UPDATE budgets SET parent_category_id = NULL
		WHERE user_id = ? AND parent_category_id = ?`, userID, categoryID)
	return err
}

// =============================================================================
// PARENT CATEGORIES
// =============================================================================

func (q queries) CreateCategory(ctx context.Context, c ledger.ParentCategory) error {
	_, err := q.db.ExecContext(ctx, `
		INSERT INTO parent_categories (id, user_id, description, created_at)
		VALUES (?, ?, ?, ?)`,
		c.ID, c.UserID, c.Description, formatTime(c.CreatedAt),
	)
	return err
}

func (q queries) GetCategory(ctx context.Context, userID ledger.UserID, id ledger.CategoryID) (*ledger.ParentCategory, error) {
	var c ledger.ParentCategory
	var createdAt string
	err := q.db.QueryRowContext(ctx, `
		SELECT id, user_id, description, created_at
		FROM parent_categories WHERE id = ? AND user_id = ?`, id, userID,
	).Scan(&c.ID, &c.UserID, &c.Description, &createdAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if c.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	return &c, nil
}

func (q queries) ListCategories(ctx context.Context, userID ledger.UserID) ([]ledger.ParentCategory, error) {
	rows, err := q.db.QueryContext(ctx, `
		SELECT id, user_id, description, created_at
		FROM parent_categories WHERE user_id = ? ORDER BY rowid`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	categories := []ledger.ParentCategory{}
	for rows.Next() {
		var c ledger.ParentCategory
		var createdAt string
		if err := rows.Scan(&c.ID, &c.UserID, &c.Description, &createdAt); err != nil {
			return nil, err
		}
		if c.CreatedAt, err = parseTime(createdAt); err != nil {
			return nil, err
		}
		categories = append(categories, c)
	}
	return categories, rows.Err()
}

func (q queries) DeleteCategory(ctx context.Context, userID ledger.UserID, id ledger.CategoryID) error {
	res, err := q.db.ExecContext(ctx, `DELETE FROM parent_categories WHERE id = ? AND user_id = ?`, id, userID)
	if err != nil {
		return err
	}
	return expectOne(res, ledger.ErrCategoryNotFound)
}

// =============================================================================
// INCOMES
// =============================================================================

const incomeColumns = `id, user_id, description, month, projected_amount, actual_amount, created_at, updated_at`

func (q queries) CreateIncome(ctx context.Context, in ledger.Income) error {
	_, err := q.db.ExecContext(ctx, `
		INSERT INTO incomes (`+incomeColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		in.ID, in.UserID, in.Description, formatTime(in.Month),
		in.ProjectedAmount.String(), in.ActualAmount.String(),
		formatTime(in.CreatedAt), formatTime(in.UpdatedAt),
	)
	return err
}

func (q queries) GetIncome(ctx context.Context, userID ledger.UserID, id ledger.IncomeID) (*ledger.Income, error) {
	row := q.db.QueryRowContext(ctx, `
		SELECT `+incomeColumns+` FROM incomes WHERE id = ? AND user_id = ?`, id, userID)
	in, err := scanIncome(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return in, nil
}

func (q queries) ListIncomes(ctx context.Context, userID ledger.UserID, w ledger.Window) ([]ledger.Income, error) {
	rows, err := q.db.QueryContext(ctx, `
		SELECT `+incomeColumns+` FROM incomes
		WHERE user_id = ? AND month >= ? AND month < ?
		ORDER BY rowid`,
		userID, formatTime(w.Start), formatTime(w.End),
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	incomes := []ledger.Income{}
	for rows.Next() {
		in, err := scanIncome(rows)
		if err != nil {
			return nil, err
		}
		incomes = append(incomes, *in)
	}
	return incomes, rows.Err()
}

func (q queries) UpdateIncome(ctx context.Context, in ledger.Income) error {
	res, err := q.db.ExecContext(ctx, `
		UPDATE incomes SET description = ?, projected_amount = ?, actual_amount = ?, updated_at = ?
		WHERE id = ? AND user_id = ?`,
		in.Description, in.ProjectedAmount.String(), in.ActualAmount.String(), formatTime(in.UpdatedAt),
		in.ID, in.UserID,
	)
	if err != nil {
		return err
	}
	return expectOne(res, ledger.ErrIncomeNotFound)
}

func (q queries) DeleteIncome(ctx context.Context, userID ledger.UserID, id ledger.IncomeID) error {
	res, err := q.db.ExecContext(ctx, `DELETE FROM incomes WHERE id = ? AND user_id = ?`, id, userID)
	if err != nil {
		return err
	}
	return expectOne(res, ledger.ErrIncomeNotFound)
}

// =============================================================================
// RECONCILIATION FAILURES
// =============================================================================

func (q queries) RecordFailure(ctx context.Context, f ledger.FailureRecord) error {
	_, err := q.db.ExecContext(ctx, `
		INSERT INTO reconciliation_failures (id, user_id, budget_id, entry_id, delta, reason, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		f.ID, f.UserID, f.BudgetID, f.EntryID, f.Delta.String(), nullString(f.Reason), formatTime(f.CreatedAt),
	)
	return err
}

func (q queries) PendingFailures(ctx context.Context, limit int) ([]ledger.FailureRecord, error) {
	query := `
		SELECT id, user_id, budget_id, entry_id, delta, reason, created_at
		FROM reconciliation_failures
		WHERE resolved_at IS NULL
		ORDER BY created_at, rowid`
	args := []any{}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := q.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var failures []ledger.FailureRecord
	for rows.Next() {
		var f ledger.FailureRecord
		var delta, createdAt string
		var reason sql.NullString
		if err := rows.Scan(&f.ID, &f.UserID, &f.BudgetID, &f.EntryID, &delta, &reason, &createdAt); err != nil {
			return nil, err
		}
		if f.Delta, err = parseDecimal(delta); err != nil {
			return nil, err
		}
		if f.CreatedAt, err = parseTime(createdAt); err != nil {
			return nil, err
		}
		f.Reason = reason.String
		failures = append(failures, f)
	}
	return failures, rows.Err()
}

func (q queries) ResolveFailures(ctx context.Context, userID ledger.UserID, budgetID ledger.BudgetID, at time.Time) error {
	_, err := q.db.ExecContext(ctx, `
		UPDATE reconciliation_failures SET resolved_at = ?
		WHERE user_id = ? AND budget_id = ? AND resolved_at IS NULL`,
		formatTime(at), userID, budgetID,
	)
	return err
}

// =============================================================================
// SCANNERS
// =============================================================================

type scanner interface {
	Scan(dest ...any) error
}

func scanEntry(row scanner) (*ledger.Entry, error) {
	var e ledger.Entry
	var budgetID sql.NullString
	var amount, date, createdAt, updatedAt string
	if err := row.Scan(&e.ID, &e.UserID, &budgetID, &e.Description, &amount, &date, &createdAt, &updatedAt); err != nil {
		return nil, err
	}
	e.BudgetID = ledger.BudgetID(budgetID.String)

	var c columns
	e.Amount = c.amount("amount", amount)
	e.Date = c.timestamp("date", date)
	e.CreatedAt = c.timestamp("created_at", createdAt)
	e.UpdatedAt = c.timestamp("updated_at", updatedAt)
	if c.err != nil {
		return nil, fmt.Errorf("entry %s: %w", e.ID, c.err)
	}
	return &e, nil
}

func scanBudget(row scanner) (*ledger.Budget, error) {
	var b ledger.Budget
	var parentID sql.NullString
	var month, projected, actual, createdAt, updatedAt string
	if err := row.Scan(&b.ID, &b.UserID, &parentID, &b.Description, &month,
		&projected, &actual, &b.Selectable, &createdAt, &updatedAt); err != nil {
		return nil, err
	}
	b.ParentCategoryID = ledger.CategoryID(parentID.String)

	var c columns
	b.Month = c.timestamp("month", month)
	b.ProjectedAmount = c.amount("projected_amount", projected)
	b.ActualAmount = c.amount("actual_amount", actual)
	b.CreatedAt = c.timestamp("created_at", createdAt)
	b.UpdatedAt = c.timestamp("updated_at", updatedAt)
	if c.err != nil {
		return nil, fmt.Errorf("budget %s: %w", b.ID, c.err)
	}
	return &b, nil
}

func scanIncome(row scanner) (*ledger.Income, error) {
	var in ledger.Income
	var month, projected, actual, createdAt, updatedAt string
	if err := row.Scan(&in.ID, &in.UserID, &in.Description, &month,
		&projected, &actual, &createdAt, &updatedAt); err != nil {
		return nil, err
	}

	var c columns
	in.Month = c.timestamp("month", month)
	in.ProjectedAmount = c.amount("projected_amount", projected)
	in.ActualAmount = c.amount("actual_amount", actual)
	in.CreatedAt = c.timestamp("created_at", createdAt)
	in.UpdatedAt = c.timestamp("updated_at", updatedAt)
	if c.err != nil {
		return nil, fmt.Errorf("income %s: %w", in.ID, c.err)
	}
	return &in, nil
}

// columns decodes text columns and keeps the first failure.
type columns struct {
	err error
}

func (c *columns) timestamp(name, s string) time.Time {
	t, err := parseTime(s)
	if err != nil && c.err == nil {
		c.err = fmt.Errorf("column %s: %w", name, err)
	}
	return t
}

func (c *columns) amount(name, s string) decimal.Decimal {
	d, err := parseDecimal(s)
	if err != nil && c.err == nil {
		c.err = fmt.Errorf("column %s: %w", name, err)
	}
	return d
}
