/*
Package sqlite provides a SQLite-backed implementation of the storage interfaces.

PURPOSE:
  Implements ledger.TxStore and auth.UserStore on SQLite.

KEY TABLES:
  budgets:                 one row per user, category and month
  entries:                 daily expenses, budget_id is a weak reference
  parent_categories:       budget grouping
  incomes:                 monthly incomes
  users:                   registered phone numbers
  reconciliation_failures: deltas that did not land, awaiting repair

AMOUNTS AND TIMES:
  Amounts are decimal strings (shopspring/decimal) so sums never go
  through floating point. Times are UTC with a fixed-width nanosecond
  layout so that text comparison is time comparison; every window query
  is a plain range scan on an indexed column.

ATOMIC INCREMENT:
  IncrementActual reads and writes actual_amount inside one database
  transaction while holding the store's write lock. No other writer can
  interleave, so concurrent increments on the same budget all land.

CONCURRENCY:
  Uses sync.RWMutex plus a single open connection. Writes are serialized;
  WithTx holds the write lock for the whole transaction.

MIGRATION:
  Schema is versioned with golang-migrate and applied on New().

USAGE:
  store, err := sqlite.New("./data/budget.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

  svc := ledger.NewService(store, logger)

SEE ALSO:
  - ledger/store.go: Interface definitions
  - ledger/store/memory.go: In-memory implementation for testing
*/
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"

	"github.com/homebudget/budget-engine/auth"
	"github.com/homebudget/budget-engine/ledger"
)

var (
	_ ledger.TxStore = (*Store)(nil)
	_ auth.UserStore = (*Store)(nil)
)

// timeLayout is fixed width so stored times sort lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// Store implements all storage interfaces using SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// One connection: ":memory:" databases are per connection, and writes
	// are serialized by mu anyway.
	db.SetMaxOpenConns(1)

	if err := runMigrations(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Ping checks the database connection.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// =============================================================================
// TRANSACTIONS
// =============================================================================

// WithTx executes fn within a transaction.
// If fn returns error, transaction is rolled back.
func (s *Store) WithTx(ctx context.Context, fn func(ledger.Store) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.inTx(ctx, func(q queries) error { return fn(q) })
}

// inTx runs fn in a database transaction. Caller holds the write lock.
func (s *Store) inTx(ctx context.Context, fn func(queries) error) error {
	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer sqlTx.Rollback()

	if err := fn(queries{db: sqlTx}); err != nil {
		return err
	}
	return sqlTx.Commit()
}

func (s *Store) q() queries {
	return queries{db: s.db}
}

// =============================================================================
// ENTRIES
// =============================================================================

func (s *Store) CreateEntry(ctx context.Context, e ledger.Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.q().CreateEntry(ctx, e)
}

func (s *Store) GetEntry(ctx context.Context, userID ledger.UserID, id ledger.EntryID) (*ledger.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.q().GetEntry(ctx, userID, id)
}

func (s *Store) ListEntries(ctx context.Context, userID ledger.UserID, w ledger.Window) ([]ledger.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.q().ListEntries(ctx, userID, w)
}

func (s *Store) UpdateEntry(ctx context.Context, e ledger.Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.q().UpdateEntry(ctx, e)
}

func (s *Store) DeleteEntry(ctx context.Context, userID ledger.UserID, id ledger.EntryID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.q().DeleteEntry(ctx, userID, id)
}

func (s *Store) DetachEntries(ctx context.Context, userID ledger.UserID, budgetID ledger.BudgetID, w ledger.Window) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.q().DetachEntries(ctx, userID, budgetID, w)
}

func (s *Store) SumAttributed(ctx context.Context, userID ledger.UserID, budgetID ledger.BudgetID, w ledger.Window) (decimal.Decimal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.q().SumAttributed(ctx, userID, budgetID, w)
}

// =============================================================================
// BUDGETS
// =============================================================================

func (s *Store) CreateBudget(ctx context.Context, b ledger.Budget) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.q().CreateBudget(ctx, b)
}

func (s *Store) GetBudget(ctx context.Context, userID ledger.UserID, id ledger.BudgetID) (*ledger.Budget, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.q().GetBudget(ctx, userID, id)
}

func (s *Store) ListBudgets(ctx context.Context, userID ledger.UserID, w ledger.Window, selectableOnly bool) ([]ledger.Budget, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.q().ListBudgets(ctx, userID, w, selectableOnly)
}

func (s *Store) UpdateBudget(ctx context.Context, b ledger.Budget) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.q().UpdateBudget(ctx, b)
}

// IncrementActual runs the increment in its own transaction.
func (s *Store) IncrementActual(ctx context.Context, userID ledger.UserID, id ledger.BudgetID, delta decimal.Decimal) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.inTx(ctx, func(q queries) error {
		return q.IncrementActual(ctx, userID, id, delta)
	})
}

func (s *Store) SetSelectable(ctx context.Context, userID ledger.UserID, id ledger.BudgetID, selectable bool, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.q().SetSelectable(ctx, userID, id, selectable, at)
}

func (s *Store) OverrideActual(ctx context.Context, userID ledger.UserID, id ledger.BudgetID, actual decimal.Decimal, at time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.q().OverrideActual(ctx, userID, id, actual, at)
}

func (s *Store) SetActual(ctx context.Context, userID ledger.UserID, id ledger.BudgetID, actual decimal.Decimal) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.q().SetActual(ctx, userID, id, actual)
}

func (s *Store) DeleteBudget(ctx context.Context, userID ledger.UserID, id ledger.BudgetID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.q().DeleteBudget(ctx, userID, id)
}

func (s *Store) ClearParentCategory(ctx context.Context, userID ledger.UserID, categoryID ledger.CategoryID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.q().ClearParentCategory(ctx, userID, categoryID)
}

// =============================================================================
// PARENT CATEGORIES
// =============================================================================

func (s *Store) CreateCategory(ctx context.Context, c ledger.ParentCategory) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.q().CreateCategory(ctx, c)
}

func (s *Store) GetCategory(ctx context.Context, userID ledger.UserID, id ledger.CategoryID) (*ledger.ParentCategory, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.q().GetCategory(ctx, userID, id)
}

func (s *Store) ListCategories(ctx context.Context, userID ledger.UserID) ([]ledger.ParentCategory, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.q().ListCategories(ctx, userID)
}

func (s *Store) DeleteCategory(ctx context.Context, userID ledger.UserID, id ledger.CategoryID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.q().DeleteCategory(ctx, userID, id)
}

// =============================================================================
// INCOMES
// =============================================================================

func (s *Store) CreateIncome(ctx context.Context, in ledger.Income) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.q().CreateIncome(ctx, in)
}

func (s *Store) GetIncome(ctx context.Context, userID ledger.UserID, id ledger.IncomeID) (*ledger.Income, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.q().GetIncome(ctx, userID, id)
}

func (s *Store) ListIncomes(ctx context.Context, userID ledger.UserID, w ledger.Window) ([]ledger.Income, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.q().ListIncomes(ctx, userID, w)
}

func (s *Store) UpdateIncome(ctx context.Context, in ledger.Income) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.q().UpdateIncome(ctx, in)
}

func (s *Store) DeleteIncome(ctx context.Context, userID ledger.UserID, id ledger.IncomeID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.q().DeleteIncome(ctx, userID, id)
}

// =============================================================================
// RECONCILIATION FAILURES
// =============================================================================

func (s *Store) RecordFailure(ctx context.Context, f ledger.FailureRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.q().RecordFailure(ctx, f)
}

func (s *Store) PendingFailures(ctx context.Context, limit int) ([]ledger.FailureRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.q().PendingFailures(ctx, limit)
}

func (s *Store) ResolveFailures(ctx context.Context, userID ledger.UserID, budgetID ledger.BudgetID, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.q().ResolveFailures(ctx, userID, budgetID, at)
}

// =============================================================================
// USERS (auth.UserStore)
// =============================================================================

func (s *Store) CreateUser(ctx context.Context, u auth.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO users (id, phone_number, display_name, phone_verified, is_active, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		u.ID, u.PhoneNumber, u.DisplayName, u.PhoneVerified, u.IsActive, formatTime(u.CreatedAt),
	)
	if isUniqueConstraintError(err) {
		return fmt.Errorf("%w: user with this phone number already exists", ledger.ErrConflict)
	}
	if err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

func (s *Store) GetUserByPhone(ctx context.Context, phone string) (*auth.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var u auth.User
	var createdAt string
	err := s.db.QueryRowContext(ctx, `
		SELECT id, phone_number, display_name, phone_verified, is_active, created_at
		FROM users WHERE phone_number = ?`, phone,
	).Scan(&u.ID, &u.PhoneNumber, &u.DisplayName, &u.PhoneVerified, &u.IsActive, &createdAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if u.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, fmt.Errorf("user %s: %w", u.ID, err)
	}
	return &u, nil
}

// =============================================================================
// HELPERS
// =============================================================================

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

// parseTime accepts the fixed-width layout and any RFC 3339 text.
func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		if t, err = time.Parse(time.RFC3339Nano, s); err != nil {
			return time.Time{}, fmt.Errorf("parse time %q: %w", s, err)
		}
	}
	return t.UTC(), nil
}

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

func parseDecimal(s string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("parse amount %q: %w", s, err)
	}
	return d, nil
}

func isUniqueConstraintError(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
