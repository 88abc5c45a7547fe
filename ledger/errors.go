/*
errors.go - Centralized error types for the ledger

PURPOSE:
  All error types in one place. Callers match with errors.Is against the
  sentinels; structured errors carry context and unwrap to a sentinel.

ERROR CATEGORIES:
  1. Input errors       - malformed month/date, missing fields     (400)
  2. Attribution errors - budget missing, foreign, other month     (400)
  3. Not found          - entry/budget/category/income             (404)
  4. Conflict           - duplicate unique key                     (409)
  5. Reconciliation     - increment lost after the entry committed (warning)

SEE ALSO:
  - api/respond.go: maps these to HTTP statuses
*/
package ledger

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrInvalidInput is returned for malformed or missing input.
	ErrInvalidInput = errors.New("invalid input")

	// ErrNoFieldsProvided is returned when an update carries nothing to change.
	ErrNoFieldsProvided = fmt.Errorf("%w: at least one field must be provided to update", ErrInvalidInput)

	// ErrInvalidAttribution is returned when an entry cannot be attributed to
	// the requested budget.
	ErrInvalidAttribution = errors.New("invalid attribution")

	// ErrEntryNotFound is returned when an entry is absent or not owned.
	ErrEntryNotFound = errors.New("daily expense not found")

	// ErrBudgetNotFound is returned when a budget is absent or not owned.
	ErrBudgetNotFound = errors.New("budget not found")

	// ErrCategoryNotFound is returned when a parent category is absent or not owned.
	ErrCategoryNotFound = errors.New("parent category not found")

	// ErrIncomeNotFound is returned when an income is absent or not owned.
	ErrIncomeNotFound = errors.New("income not found")

	// ErrConflict is returned when a unique key already exists.
	ErrConflict = errors.New("conflict")

	// ErrReconciliationFailure marks an increment that could not be applied
	// after the entry mutation was already accepted.
	ErrReconciliationFailure = errors.New("reconciliation failure")

	// ErrRepairNeedsTx is returned when a budget total cannot be re-derived
	// because the store has no transactions to hold the sum and the write
	// together.
	ErrRepairNeedsTx = errors.New("repair requires a transactional store")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// ValidationError names the offending field.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

func (e *ValidationError) Unwrap() error {
	return ErrInvalidInput
}

func invalidInput(field, message string) error {
	return &ValidationError{Field: field, Message: message}
}

// AttributionError explains why a budget cannot take an entry.
type AttributionError struct {
	BudgetID BudgetID
	Reason   string
}

func (e *AttributionError) Error() string {
	return fmt.Sprintf("invalid attribution to budget %s: %s", e.BudgetID, e.Reason)
}

func (e *AttributionError) Unwrap() error {
	return ErrInvalidAttribution
}

// ReconciliationFailure describes a delta that did not land on its budget.
// It is reported to the caller as a warning, never as the operation's error.
type ReconciliationFailure struct {
	BudgetID BudgetID
	EntryID  EntryID
	Delta    decimal.Decimal
	Err      error
}

func (e *ReconciliationFailure) Error() string {
	return fmt.Sprintf("could not apply %s to budget %s for entry %s: %v",
		e.Delta.String(), e.BudgetID, e.EntryID, e.Err)
}

func (e *ReconciliationFailure) Unwrap() []error {
	return []error{ErrReconciliationFailure, e.Err}
}

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsNotFound returns true if the error indicates a missing or foreign record.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrEntryNotFound) ||
		errors.Is(err, ErrBudgetNotFound) ||
		errors.Is(err, ErrCategoryNotFound) ||
		errors.Is(err, ErrIncomeNotFound)
}

// IsClientError returns true if the error is due to invalid client input.
func IsClientError(err error) bool {
	return errors.Is(err, ErrInvalidInput) ||
		errors.Is(err, ErrInvalidAttribution)
}
