package api

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/homebudget/budget-engine/ledger"
)

// =============================================================================
// PARENT CATEGORY HANDLERS
// =============================================================================

func (h *Handler) CreateCategory(w http.ResponseWriter, r *http.Request) {
	var req CreateCategoryRequest
	if err := decode(w, r, &req); err != nil {
		h.fail(w, r, err)
		return
	}

	c, err := h.Ledger.CreateCategory(r.Context(), currentUser(r), req.Description)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeSuccess(w, http.StatusCreated, toCategoryDTO(*c), "Parent category created successfully")
}

func (h *Handler) ListCategories(w http.ResponseWriter, r *http.Request) {
	categories, err := h.Ledger.ListCategories(r.Context(), currentUser(r))
	if err != nil {
		h.fail(w, r, err)
		return
	}

	dtos := make([]CategoryDTO, len(categories))
	for i, c := range categories {
		dtos[i] = toCategoryDTO(c)
	}
	writeSuccess(w, http.StatusOK, dtos, "Parent categories fetched successfully")
}

// DeleteCategory removes a category; its budgets become ungrouped.
func (h *Handler) DeleteCategory(w http.ResponseWriter, r *http.Request) {
	id := ledger.CategoryID(chi.URLParam(r, "id"))
	if err := h.Ledger.DeleteCategory(r.Context(), currentUser(r), id); err != nil {
		h.fail(w, r, err)
		return
	}
	writeSuccess(w, http.StatusOK, nil, "The parent category is deleted successfully")
}

// =============================================================================
// INCOME HANDLERS
// =============================================================================

func (h *Handler) CreateIncome(w http.ResponseWriter, r *http.Request) {
	var req CreateIncomeRequest
	if err := decode(w, r, &req); err != nil {
		h.fail(w, r, err)
		return
	}

	in := ledger.NewIncome{
		Description:     req.Description,
		ProjectedAmount: req.ProjectedAmount,
		ActualAmount:    req.ActualAmount,
	}
	if strings.TrimSpace(req.Month) != "" {
		month, err := ledger.ParseMonth(req.Month)
		if err != nil {
			h.fail(w, r, err)
			return
		}
		in.Month = month
	}

	income, err := h.Ledger.CreateIncome(r.Context(), currentUser(r), in)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeSuccess(w, http.StatusCreated, toIncomeDTO(*income), "Income created successfully")
}

// ListIncomes returns the incomes of ?month=YYYY-MM.
func (h *Handler) ListIncomes(w http.ResponseWriter, r *http.Request) {
	month, err := ledger.ParseMonth(r.URL.Query().Get("month"))
	if err != nil {
		h.fail(w, r, err)
		return
	}

	incomes, err := h.Ledger.ListIncomes(r.Context(), currentUser(r), month)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	dtos := make([]IncomeDTO, len(incomes))
	for i, in := range incomes {
		dtos[i] = toIncomeDTO(in)
	}
	writeSuccess(w, http.StatusOK, dtos, "Incomes for "+month.Format("2006-01")+" are fetched successfully")
}

func (h *Handler) UpdateIncome(w http.ResponseWriter, r *http.Request) {
	id := ledger.IncomeID(chi.URLParam(r, "id"))

	var req UpdateIncomeRequest
	if err := decode(w, r, &req); err != nil {
		h.fail(w, r, err)
		return
	}

	income, err := h.Ledger.UpdateIncome(r.Context(), currentUser(r), id, ledger.IncomePatch{
		Description:     req.Description,
		ProjectedAmount: req.ProjectedAmount,
		ActualAmount:    req.ActualAmount,
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeSuccess(w, http.StatusOK, toIncomeDTO(*income), "The income is updated successfully")
}

func (h *Handler) DeleteIncome(w http.ResponseWriter, r *http.Request) {
	id := ledger.IncomeID(chi.URLParam(r, "id"))
	if err := h.Ledger.DeleteIncome(r.Context(), currentUser(r), id); err != nil {
		h.fail(w, r, err)
		return
	}
	writeSuccess(w, http.StatusOK, nil, "The income is deleted successfully")
}
