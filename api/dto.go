/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. These types decouple
  the ledger model from the external API contract.

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients

AMOUNTS:
  Amounts are decimal.Decimal both ways. Requests accept JSON numbers and
  numeric strings; responses carry the exact decimal as a JSON string.

ENVELOPES:
  Success: {"statusCode": 200, "data": ..., "message": "...", "success": true}
  Error:   {"statusCode": 404, "message": "...", "success": false}

SEE ALSO:
  - handlers.go: Uses these types
*/
package api

import (
	"bytes"
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"

	"github.com/homebudget/budget-engine/auth"
	"github.com/homebudget/budget-engine/ledger"
)

// =============================================================================
// ENVELOPES
// =============================================================================

// Response is the success envelope.
type Response struct {
	StatusCode int    `json:"statusCode"`
	Data       any    `json:"data"`
	Message    string `json:"message"`
	Success    bool   `json:"success"`
}

// ErrorResponse is the error envelope.
type ErrorResponse struct {
	StatusCode int    `json:"statusCode"`
	Message    string `json:"message"`
	Success    bool   `json:"success"`
}

// OptionalString distinguishes an absent field from an explicit null.
type OptionalString struct {
	Set   bool
	Value *string
}

func (o *OptionalString) UnmarshalJSON(b []byte) error {
	o.Set = true
	if bytes.Equal(bytes.TrimSpace(b), []byte("null")) {
		o.Value = nil
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	o.Value = &s
	return nil
}

// =============================================================================
// USERS
// =============================================================================

type PhoneRequest struct {
	PhoneNumber string `json:"phoneNumber"`
	DisplayName string `json:"displayName,omitempty"`
}

type UserDTO struct {
	ID            string `json:"id"`
	PhoneNumber   string `json:"phoneNumber"`
	DisplayName   string `json:"displayName"`
	PhoneVerified bool   `json:"phoneVerified"`
	IsActive      bool   `json:"isActive"`
	CreatedAt     string `json:"createdAt"`
}

type SessionDTO struct {
	User  UserDTO `json:"user"`
	Token string  `json:"token"`
}

func toUserDTO(u *auth.User) UserDTO {
	return UserDTO{
		ID:            string(u.ID),
		PhoneNumber:   u.PhoneNumber,
		DisplayName:   u.DisplayName,
		PhoneVerified: u.PhoneVerified,
		IsActive:      u.IsActive,
		CreatedAt:     u.CreatedAt.Format(time.RFC3339),
	}
}

// =============================================================================
// DAILY EXPENSES
// =============================================================================

// CreateEntryRequest is the body of POST /daily-expenses.
type CreateEntryRequest struct {
	Description string           `json:"description"`
	Amount      *decimal.Decimal `json:"amount"`
	Date        string           `json:"date"`
	BudgetID    string           `json:"monthlyCategoricalExpenseId"`
}

// UpdateEntryRequest is the body of PATCH /daily-expenses/{id}. A null
// monthlyCategoricalExpenseId detaches the expense; omitting it keeps the
// current attribution.
type UpdateEntryRequest struct {
	Description *string          `json:"description"`
	Amount      *decimal.Decimal `json:"amount"`
	BudgetID    OptionalString   `json:"monthlyCategoricalExpenseId"`
}

type EntryDTO struct {
	ID          string          `json:"id"`
	UserID      string          `json:"userId"`
	BudgetID    *string         `json:"monthlyCategoricalExpenseId"`
	Description string          `json:"description"`
	Amount      decimal.Decimal `json:"amount"`
	Date        string          `json:"date"`
	CreatedAt   string          `json:"createdAt"`
	UpdatedAt   string          `json:"updatedAt"`
}

type BudgetOptionDTO struct {
	ID          string `json:"id"`
	Description string `json:"description"`
}

// EntryListingDTO is the data of GET /daily-expenses.
// SelectableCategoricalExpenses is only present for ?date= queries.
type EntryListingDTO struct {
	SelectableCategoricalExpenses []BudgetOptionDTO `json:"selectableCategoricalExpenses,omitempty"`
	DailyExpenses                 []EntryDTO        `json:"dailyExpenses"`
}

func toEntryDTO(e ledger.Entry) EntryDTO {
	dto := EntryDTO{
		ID:          string(e.ID),
		UserID:      string(e.UserID),
		Description: e.Description,
		Amount:      e.Amount,
		Date:        e.Date.Format(time.RFC3339Nano),
		CreatedAt:   e.CreatedAt.Format(time.RFC3339),
		UpdatedAt:   e.UpdatedAt.Format(time.RFC3339),
	}
	if e.Attributed() {
		id := string(e.BudgetID)
		dto.BudgetID = &id
	}
	return dto
}

func toBudgetOptionDTOs(options []ledger.BudgetOption) []BudgetOptionDTO {
	dtos := make([]BudgetOptionDTO, len(options))
	for i, o := range options {
		dtos[i] = BudgetOptionDTO{ID: string(o.ID), Description: o.Description}
	}
	return dtos
}

// =============================================================================
// MONTHLY CATEGORICAL EXPENSES (budgets)
// =============================================================================

type CreateBudgetRequest struct {
	ParentID        string           `json:"parentId"`
	Description     string           `json:"description"`
	ProjectedAmount *decimal.Decimal `json:"projectedAmount"`
	ActualAmount    *decimal.Decimal `json:"actualAmount"`
	Month           string           `json:"month"`
}

type UpdateBudgetRequest struct {
	Description     *string          `json:"description"`
	ProjectedAmount *decimal.Decimal `json:"projectedAmount"`
	ActualAmount    *decimal.Decimal `json:"actualAmount"`
}

// SelectableRequest uses a pointer so a missing or non-boolean value is
// rejected instead of read as false.
type SelectableRequest struct {
	Selectable *bool `json:"selectable"`
}

type BudgetDTO struct {
	ID              string          `json:"id"`
	UserID          string          `json:"userId"`
	ParentID        *string         `json:"parentId"`
	Description     string          `json:"description"`
	Month           string          `json:"month"`
	ProjectedAmount decimal.Decimal `json:"projectedAmount"`
	ActualAmount    decimal.Decimal `json:"actualAmount"`
	Selectable      bool            `json:"selectable"`
	CreatedAt       string          `json:"createdAt"`
	UpdatedAt       string          `json:"updatedAt"`
}

func toBudgetDTO(b ledger.Budget) BudgetDTO {
	dto := BudgetDTO{
		ID:              string(b.ID),
		UserID:          string(b.UserID),
		Description:     b.Description,
		Month:           b.Month.Format(time.RFC3339),
		ProjectedAmount: b.ProjectedAmount,
		ActualAmount:    b.ActualAmount,
		Selectable:      b.Selectable,
		CreatedAt:       b.CreatedAt.Format(time.RFC3339),
		UpdatedAt:       b.UpdatedAt.Format(time.RFC3339),
	}
	if b.ParentCategoryID != "" {
		id := string(b.ParentCategoryID)
		dto.ParentID = &id
	}
	return dto
}

// =============================================================================
// PARENT CATEGORIES AND INCOMES
// =============================================================================

type CreateCategoryRequest struct {
	Description string `json:"description"`
}

type CategoryDTO struct {
	ID          string `json:"id"`
	Description string `json:"description"`
	CreatedAt   string `json:"createdAt"`
}

func toCategoryDTO(c ledger.ParentCategory) CategoryDTO {
	return CategoryDTO{
		ID:          string(c.ID),
		Description: c.Description,
		CreatedAt:   c.CreatedAt.Format(time.RFC3339),
	}
}

type CreateIncomeRequest struct {
	Description     string           `json:"description"`
	ProjectedAmount *decimal.Decimal `json:"projectedAmount"`
	ActualAmount    *decimal.Decimal `json:"actualAmount"`
	Month           string           `json:"month"`
}

type UpdateIncomeRequest struct {
	Description     *string          `json:"description"`
	ProjectedAmount *decimal.Decimal `json:"projectedAmount"`
	ActualAmount    *decimal.Decimal `json:"actualAmount"`
}

type IncomeDTO struct {
	ID              string          `json:"id"`
	Description     string          `json:"description"`
	Month           string          `json:"month"`
	ProjectedAmount decimal.Decimal `json:"projectedAmount"`
	ActualAmount    decimal.Decimal `json:"actualAmount"`
	CreatedAt       string          `json:"createdAt"`
	UpdatedAt       string          `json:"updatedAt"`
}

func toIncomeDTO(in ledger.Income) IncomeDTO {
	return IncomeDTO{
		ID:              string(in.ID),
		Description:     in.Description,
		Month:           in.Month.Format(time.RFC3339),
		ProjectedAmount: in.ProjectedAmount,
		ActualAmount:    in.ActualAmount,
		CreatedAt:       in.CreatedAt.Format(time.RFC3339),
		UpdatedAt:       in.UpdatedAt.Format(time.RFC3339),
	}
}
