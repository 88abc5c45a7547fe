/*
handlers.go - HTTP API handlers for the budget ledger

PURPOSE:
  Exposes the ledger service via REST API. Handles HTTP request/response,
  JSON serialization, and delegates to the ledger and auth services.

ENDPOINTS (prefix /api/v1):
  Users:
    POST   /users/register                         Register by phone
    POST   /users/login                            Login by phone

  Daily expenses:
    POST   /daily-expenses                         Create expense
    GET    /daily-expenses?date=|month=            List by day or month
    PATCH  /daily-expenses/{id}                    Update / re-attribute
    DELETE /daily-expenses/{id}                    Delete

  Monthly categorical expenses (budgets):
    POST   /monthly-categorical-expenses           Create budget
    GET    /monthly-categorical-expenses/{month}   List month
    GET    /monthly-categorical-expenses/{month}/selectable
    PATCH  /monthly-categorical-expenses/{id}      Update
    PATCH  /monthly-categorical-expenses/{id}/selectable
    DELETE /monthly-categorical-expenses/{id}      Delete (detaches entries)

REQUEST FLOW:
  1. Parse HTTP request
  2. Validate input shape (dates, months, body)
  3. Call the ledger service
  4. Serialize response envelope
  5. Map errors with statusFor

DEGRADED SUCCESS:
  An entry mutation whose budget increment was lost still succeeds. The
  warning is appended to the message and the repair scheduler fixes the
  budget total later.

SEE ALSO:
  - dto.go: Request/response data structures
  - respond.go: Envelopes and error mapping
  - catalog.go: Parent category and income handlers
  - server.go: Router setup and middleware
*/
package api

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/homebudget/budget-engine/auth"
	"github.com/homebudget/budget-engine/ledger"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Ledger *ledger.Service
	Users  *auth.Service
	Logger *slog.Logger

	// Ping reports storage health for /health. Optional.
	Ping func(ctx context.Context) error
}

// NewHandler creates a new handler.
func NewHandler(svc *ledger.Service, users *auth.Service, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		Ledger: svc,
		Users:  users,
		Logger: logger.With("component", "api"),
	}
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	fail(w, r, h.Logger, err)
}

// currentUser returns the user set by Authenticate.
func currentUser(r *http.Request) ledger.UserID {
	id, _ := auth.UserFrom(r.Context())
	return id
}

// Health reports liveness and storage reachability.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	if h.Ping != nil {
		if err := h.Ping(r.Context()); err != nil {
			h.Logger.ErrorContext(r.Context(), "health check failed", "error", err)
			writeError(w, http.StatusServiceUnavailable, "Database unavailable")
			return
		}
	}
	writeSuccess(w, http.StatusOK, map[string]string{"status": "ok"}, "OK")
}

// =============================================================================
// USER HANDLERS
// =============================================================================

// Register creates an account for a phone number.
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req PhoneRequest
	if err := decode(w, r, &req); err != nil {
		h.fail(w, r, err)
		return
	}

	user, token, err := h.Users.Register(r.Context(), req.PhoneNumber, req.DisplayName)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeSuccess(w, http.StatusCreated, SessionDTO{User: toUserDTO(user), Token: token}, "Registration successful")
}

// Login issues a token for a registered phone number.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req PhoneRequest
	if err := decode(w, r, &req); err != nil {
		h.fail(w, r, err)
		return
	}

	user, token, err := h.Users.Login(r.Context(), req.PhoneNumber)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeSuccess(w, http.StatusOK, SessionDTO{User: toUserDTO(user), Token: token}, "Login successful")
}

// =============================================================================
// DAILY EXPENSE HANDLERS
// =============================================================================

// CreateEntry records a daily expense.
// POST /api/v1/daily-expenses
func (h *Handler) CreateEntry(w http.ResponseWriter, r *http.Request) {
	var req CreateEntryRequest
	if err := decode(w, r, &req); err != nil {
		h.fail(w, r, err)
		return
	}

	in := ledger.NewEntry{
		Description: req.Description,
		Amount:      req.Amount,
		BudgetID:    ledger.BudgetID(strings.TrimSpace(req.BudgetID)),
	}
	if strings.TrimSpace(req.Date) != "" {
		date, err := ledger.ParseDate(req.Date)
		if err != nil {
			h.fail(w, r, err)
			return
		}
		in.Date = date
	}

	result, err := h.Ledger.CreateEntry(r.Context(), currentUser(r), in)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeSuccess(w, http.StatusCreated, toEntryDTO(result.Entry),
		withWarnings("Daily expense created successfully", result.Warnings))
}

// ListEntries returns the expenses of a day (?date=) or a month (?month=).
// GET /api/v1/daily-expenses
func (h *Handler) ListEntries(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	listing, err := h.Ledger.ListEntries(r.Context(), currentUser(r), q.Get("date"), q.Get("month"))
	if err != nil {
		h.fail(w, r, err)
		return
	}

	data := EntryListingDTO{DailyExpenses: make([]EntryDTO, len(listing.Entries))}
	for i, e := range listing.Entries {
		data.DailyExpenses[i] = toEntryDTO(e)
	}
	if listing.ByDay {
		data.SelectableCategoricalExpenses = toBudgetOptionDTOs(listing.Selectable)
	}

	writeSuccess(w, http.StatusOK, data,
		"Daily Expenses for "+listing.Window.Start.Format(time.RFC3339)+" is fetched successfully")
}

// UpdateEntry edits an expense. A null monthlyCategoricalExpenseId detaches it.
// PATCH /api/v1/daily-expenses/{id}
func (h *Handler) UpdateEntry(w http.ResponseWriter, r *http.Request) {
	id := ledger.EntryID(chi.URLParam(r, "id"))

	var req UpdateEntryRequest
	if err := decode(w, r, &req); err != nil {
		h.fail(w, r, err)
		return
	}

	patch := ledger.EntryPatch{Description: req.Description, Amount: req.Amount}
	if req.BudgetID.Set {
		var budgetID ledger.BudgetID
		if req.BudgetID.Value != nil {
			budgetID = ledger.BudgetID(strings.TrimSpace(*req.BudgetID.Value))
		}
		patch.BudgetID = &budgetID
	}

	result, err := h.Ledger.UpdateEntry(r.Context(), currentUser(r), id, patch)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeSuccess(w, http.StatusOK, toEntryDTO(result.Entry),
		withWarnings("The daily expense is updated successfully", result.Warnings))
}

// DeleteEntry removes an expense and reverses its budget contribution.
// DELETE /api/v1/daily-expenses/{id}
func (h *Handler) DeleteEntry(w http.ResponseWriter, r *http.Request) {
	id := ledger.EntryID(chi.URLParam(r, "id"))

	warnings, err := h.Ledger.DeleteEntry(r.Context(), currentUser(r), id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeSuccess(w, http.StatusOK, nil,
		withWarnings("The daily expense is deleted successfully", warnings))
}

// =============================================================================
// MONTHLY CATEGORICAL EXPENSE (BUDGET) HANDLERS
// =============================================================================

// CreateBudget creates a budget for one month.
// POST /api/v1/monthly-categorical-expenses
func (h *Handler) CreateBudget(w http.ResponseWriter, r *http.Request) {
	var req CreateBudgetRequest
	if err := decode(w, r, &req); err != nil {
		h.fail(w, r, err)
		return
	}

	in := ledger.NewBudget{
		ParentCategoryID: ledger.CategoryID(strings.TrimSpace(req.ParentID)),
		Description:      req.Description,
		ProjectedAmount:  req.ProjectedAmount,
		ActualAmount:     req.ActualAmount,
	}
	if strings.TrimSpace(req.Month) != "" {
		month, err := ledger.ParseMonth(req.Month)
		if err != nil {
			h.fail(w, r, err)
			return
		}
		in.Month = month
	}

	b, err := h.Ledger.CreateBudget(r.Context(), currentUser(r), in)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeSuccess(w, http.StatusCreated, toBudgetDTO(*b), "Monthly categorical expense created successfully")
}

// ListBudgets returns every budget of a month.
// GET /api/v1/monthly-categorical-expenses/{month}
func (h *Handler) ListBudgets(w http.ResponseWriter, r *http.Request) {
	month, err := ledger.ParseMonth(chi.URLParam(r, "key"))
	if err != nil {
		h.fail(w, r, err)
		return
	}

	budgets, err := h.Ledger.ListBudgets(r.Context(), currentUser(r), month)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	dtos := make([]BudgetDTO, len(budgets))
	for i, b := range budgets {
		dtos[i] = toBudgetDTO(b)
	}
	writeSuccess(w, http.StatusOK, dtos,
		"Monthly categorical expense records for "+month.Format("2006-01")+" is fetched successfully")
}

// SelectableBudgets returns the budgets of a month open for attribution.
// GET /api/v1/monthly-categorical-expenses/{month}/selectable
func (h *Handler) SelectableBudgets(w http.ResponseWriter, r *http.Request) {
	month, err := ledger.ParseMonth(chi.URLParam(r, "key"))
	if err != nil {
		h.fail(w, r, err)
		return
	}

	options, err := h.Ledger.SelectableBudgets(r.Context(), currentUser(r), month)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeSuccess(w, http.StatusOK, toBudgetOptionDTOs(options),
		"Selectable categorical expenses for "+month.Format("2006-01")+" are fetched successfully")
}

// UpdateBudget edits a budget. actualAmount is ignored while selectable.
// PATCH /api/v1/monthly-categorical-expenses/{id}
func (h *Handler) UpdateBudget(w http.ResponseWriter, r *http.Request) {
	id := ledger.BudgetID(chi.URLParam(r, "key"))

	var req UpdateBudgetRequest
	if err := decode(w, r, &req); err != nil {
		h.fail(w, r, err)
		return
	}

	b, err := h.Ledger.UpdateBudget(r.Context(), currentUser(r), id, ledger.BudgetPatch{
		Description:     req.Description,
		ProjectedAmount: req.ProjectedAmount,
		ActualAmount:    req.ActualAmount,
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeSuccess(w, http.StatusOK, toBudgetDTO(*b), "The monthly categorical expense record is updated successfully")
}

// SetSelectable opens or closes a budget for attribution.
// PATCH /api/v1/monthly-categorical-expenses/{id}/selectable
func (h *Handler) SetSelectable(w http.ResponseWriter, r *http.Request) {
	id := ledger.BudgetID(chi.URLParam(r, "key"))

	var req SelectableRequest
	if err := decode(w, r, &req); err != nil {
		h.fail(w, r, err)
		return
	}
	if req.Selectable == nil {
		h.fail(w, r, &ledger.ValidationError{Field: "selectable", Message: "please send the value in Boolean data type"})
		return
	}

	b, err := h.Ledger.SetSelectable(r.Context(), currentUser(r), id, *req.Selectable)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeSuccess(w, http.StatusOK, toBudgetDTO(*b), "The monthly categorical expense record is updated successfully")
}

// DeleteBudget detaches the budget's expenses and deletes it.
// DELETE /api/v1/monthly-categorical-expenses/{id}
func (h *Handler) DeleteBudget(w http.ResponseWriter, r *http.Request) {
	id := ledger.BudgetID(chi.URLParam(r, "key"))

	detached, err := h.Ledger.DeleteBudget(r.Context(), currentUser(r), id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeSuccess(w, http.StatusOK, map[string]int64{"detachedExpenses": detached},
		"The monthly categorical expense record is deleted successfully")
}
