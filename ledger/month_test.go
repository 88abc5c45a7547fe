package ledger_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/homebudget/budget-engine/ledger"
)

func TestMonthWindow_Boundaries(t *testing.T) {
	w := ledger.MonthWindow(time.Date(2024, 2, 17, 13, 0, 0, 0, time.UTC))

	assert.Equal(t, time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC), w.Start)
	assert.Equal(t, time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), w.End)

	assert.True(t, w.Contains(time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)))
	assert.True(t, w.Contains(time.Date(2024, 2, 29, 23, 59, 59, 999_000_000, time.UTC)), "leap day")
	assert.False(t, w.Contains(time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)))
	assert.False(t, w.Contains(time.Date(2024, 1, 31, 23, 59, 59, 0, time.UTC)))
	assert.Equal(t, time.Date(2024, 2, 29, 23, 59, 59, 999_000_000, time.UTC), w.Last())
}

func TestMonthWindow_December(t *testing.T) {
	w := ledger.MonthWindow(time.Date(2023, 12, 31, 0, 0, 0, 0, time.UTC))
	assert.Equal(t, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), w.End)
}

func TestMonthWindow_NormalizesToUTC(t *testing.T) {
	// 2024-03-01 02:00 in UTC+5 is still February in UTC
	loc := time.FixedZone("PKT", 5*60*60)
	w := ledger.MonthWindow(time.Date(2024, 3, 1, 2, 0, 0, 0, loc))
	assert.Equal(t, time.February, w.Start.Month())
}

func TestDayWindow(t *testing.T) {
	w := ledger.DayWindow(time.Date(2024, 3, 5, 18, 30, 0, 0, time.UTC))
	assert.Equal(t, time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC), w.Start)
	assert.Equal(t, time.Date(2024, 3, 6, 0, 0, 0, 0, time.UTC), w.End)
}

func TestParseMonth(t *testing.T) {
	tests := []struct {
		token string
		want  time.Time
		ok    bool
	}{
		{"2024-03", time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), true},
		{" 2024-12 ", time.Date(2024, 12, 1, 0, 0, 0, 0, time.UTC), true},
		{"2024-03-17", time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), true},
		{"2024-03-01T00:00:00.000Z", time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), true},
		{"2024-13", time.Time{}, false},
		{"2024-00", time.Time{}, false},
		{"march", time.Time{}, false},
		{"2024", time.Time{}, false},
		{"", time.Time{}, false},
		{"abcd-ef", time.Time{}, false},
	}

	for _, tt := range tests {
		t.Run(tt.token, func(t *testing.T) {
			got, err := ledger.ParseMonth(tt.token)
			if !tt.ok {
				require.Error(t, err)
				assert.ErrorIs(t, err, ledger.ErrInvalidInput)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseDate(t *testing.T) {
	got, err := ledger.ParseDate("2024-03-05")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC), got)

	got, err = ledger.ParseDate("2024-03-05T10:15:00+05:00")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 3, 5, 5, 15, 0, 0, time.UTC), got)

	_, err = ledger.ParseDate("05/03/2024")
	assert.ErrorIs(t, err, ledger.ErrInvalidInput)
}

func TestResolveEntryWindow(t *testing.T) {
	// Date wins over month
	w, byDay, err := ledger.ResolveEntryWindow("2024-03-05", "2024-07")
	require.NoError(t, err)
	assert.True(t, byDay)
	assert.Equal(t, ledger.DayWindow(time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC)), w)

	w, byDay, err = ledger.ResolveEntryWindow("", "2024-07")
	require.NoError(t, err)
	assert.False(t, byDay)
	assert.Equal(t, time.Date(2024, 7, 1, 0, 0, 0, 0, time.UTC), w.Start)

	_, _, err = ledger.ResolveEntryWindow("", "")
	assert.ErrorIs(t, err, ledger.ErrInvalidInput)

	_, _, err = ledger.ResolveEntryWindow("", "2024-13")
	assert.ErrorIs(t, err, ledger.ErrInvalidInput)
}
