package ledger_test

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/homebudget/budget-engine/ledger"
)

func d(v int64) decimal.Decimal { return decimal.NewFromInt(v) }

func TestComputeDelta(t *testing.T) {
	tests := []struct {
		name string
		prev ledger.Attribution
		next ledger.Attribution
		want []ledger.Delta
	}{
		{
			name: "same budget same amount",
			prev: ledger.Attribution{BudgetID: "A", Amount: d(10)},
			next: ledger.Attribution{BudgetID: "A", Amount: d(10)},
			want: nil,
		},
		{
			name: "same budget amount changed",
			prev: ledger.Attribution{BudgetID: "A", Amount: d(10)},
			next: ledger.Attribution{BudgetID: "A", Amount: d(25)},
			want: []ledger.Delta{{BudgetID: "A", Amount: d(15)}},
		},
		{
			name: "same budget amount lowered",
			prev: ledger.Attribution{BudgetID: "A", Amount: d(25)},
			next: ledger.Attribution{BudgetID: "A", Amount: d(10)},
			want: []ledger.Delta{{BudgetID: "A", Amount: d(-15)}},
		},
		{
			name: "reassigned",
			prev: ledger.Attribution{BudgetID: "A", Amount: d(50)},
			next: ledger.Attribution{BudgetID: "B", Amount: d(50)},
			want: []ledger.Delta{{BudgetID: "A", Amount: d(-50)}, {BudgetID: "B", Amount: d(50)}},
		},
		{
			name: "reassigned with new amount",
			prev: ledger.Attribution{BudgetID: "A", Amount: d(50)},
			next: ledger.Attribution{BudgetID: "B", Amount: d(70)},
			want: []ledger.Delta{{BudgetID: "A", Amount: d(-50)}, {BudgetID: "B", Amount: d(70)}},
		},
		{
			name: "newly attributed",
			prev: ledger.Attribution{Amount: d(30)},
			next: ledger.Attribution{BudgetID: "B", Amount: d(30)},
			want: []ledger.Delta{{BudgetID: "B", Amount: d(30)}},
		},
		{
			name: "detached",
			prev: ledger.Attribution{BudgetID: "A", Amount: d(30)},
			next: ledger.Attribution{Amount: d(30)},
			want: []ledger.Delta{{BudgetID: "A", Amount: d(-30)}},
		},
		{
			name: "created unattributed",
			prev: ledger.Attribution{},
			next: ledger.Attribution{Amount: d(30)},
			want: nil,
		},
		{
			name: "zero amount reassigned",
			prev: ledger.Attribution{BudgetID: "A", Amount: d(0)},
			next: ledger.Attribution{BudgetID: "B", Amount: d(0)},
			want: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ledger.ComputeDelta(tt.prev, tt.next)
			assert.Len(t, got, len(tt.want))
			for i := range tt.want {
				if i >= len(got) {
					break
				}
				assert.Equal(t, tt.want[i].BudgetID, got[i].BudgetID)
				assert.True(t, tt.want[i].Amount.Equal(got[i].Amount),
					"delta %d: want %s got %s", i, tt.want[i].Amount, got[i].Amount)
			}
		})
	}
}
