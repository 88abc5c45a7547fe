package ledger

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// PARENT CATEGORIES
// =============================================================================

func (s *Service) CreateCategory(ctx context.Context, userID UserID, description string) (*ParentCategory, error) {
	description = strings.TrimSpace(description)
	if description == "" {
		return nil, invalidInput("description", "description for parent category is required")
	}

	c := ParentCategory{
		ID:          CategoryID(NewID()),
		UserID:      userID,
		Description: description,
		CreatedAt:   s.Now(),
	}
	if err := s.Store.CreateCategory(ctx, c); err != nil {
		return nil, fmt.Errorf("create parent category: %w", err)
	}
	return &c, nil
}

func (s *Service) ListCategories(ctx context.Context, userID UserID) ([]ParentCategory, error) {
	return s.Store.ListCategories(ctx, userID)
}

// DeleteCategory ungroups the category's budgets and removes it.
func (s *Service) DeleteCategory(ctx context.Context, userID UserID, id CategoryID) error {
	return withTx(ctx, s.Store, func(st Store) error {
		c, err := st.GetCategory(ctx, userID, id)
		if err != nil {
			return err
		}
		if c == nil {
			return ErrCategoryNotFound
		}
		if err := st.ClearParentCategory(ctx, userID, id); err != nil {
			return fmt.Errorf("ungroup budgets: %w", err)
		}
		return st.DeleteCategory(ctx, userID, id)
	})
}

// =============================================================================
// INCOMES
// =============================================================================

// NewIncome is the input of CreateIncome. Nil amounts mean zero.
type NewIncome struct {
	Description     string
	Month           time.Time
	ProjectedAmount *decimal.Decimal
	ActualAmount    *decimal.Decimal
}

// IncomePatch is the input of UpdateIncome.
type IncomePatch struct {
	Description     *string
	ProjectedAmount *decimal.Decimal
	ActualAmount    *decimal.Decimal
}

func (s *Service) CreateIncome(ctx context.Context, userID UserID, in NewIncome) (*Income, error) {
	description := strings.TrimSpace(in.Description)
	if description == "" {
		return nil, invalidInput("description", "description for income is required")
	}
	if in.Month.IsZero() {
		return nil, invalidInput("month", "month for income is required")
	}

	now := s.Now()
	income := Income{
		ID:              IncomeID(NewID()),
		UserID:          userID,
		Description:     description,
		Month:           MonthStart(in.Month),
		ProjectedAmount: decimal.Zero,
		ActualAmount:    decimal.Zero,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if in.ProjectedAmount != nil {
		income.ProjectedAmount = *in.ProjectedAmount
	}
	if in.ActualAmount != nil {
		income.ActualAmount = *in.ActualAmount
	}

	if err := s.Store.CreateIncome(ctx, income); err != nil {
		return nil, fmt.Errorf("create income: %w", err)
	}
	return &income, nil
}

func (s *Service) ListIncomes(ctx context.Context, userID UserID, month time.Time) ([]Income, error) {
	return s.Store.ListIncomes(ctx, userID, MonthWindow(month))
}

func (s *Service) UpdateIncome(ctx context.Context, userID UserID, id IncomeID, patch IncomePatch) (*Income, error) {
	if patch.Description != nil && strings.TrimSpace(*patch.Description) == "" {
		patch.Description = nil
	}
	if patch.Description == nil && patch.ProjectedAmount == nil && patch.ActualAmount == nil {
		return nil, ErrNoFieldsProvided
	}

	income, err := s.Store.GetIncome(ctx, userID, id)
	if err != nil {
		return nil, fmt.Errorf("load income: %w", err)
	}
	if income == nil {
		return nil, ErrIncomeNotFound
	}

	if patch.Description != nil {
		income.Description = strings.TrimSpace(*patch.Description)
	}
	if patch.ProjectedAmount != nil {
		income.ProjectedAmount = *patch.ProjectedAmount
	}
	if patch.ActualAmount != nil {
		income.ActualAmount = *patch.ActualAmount
	}
	income.UpdatedAt = s.Now()

	if err := s.Store.UpdateIncome(ctx, *income); err != nil {
		return nil, err
	}
	return income, nil
}

func (s *Service) DeleteIncome(ctx context.Context, userID UserID, id IncomeID) error {
	return s.Store.DeleteIncome(ctx, userID, id)
}
