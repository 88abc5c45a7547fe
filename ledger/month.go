package ledger

import (
	"strconv"
	"strings"
	"time"
)

// =============================================================================
// WINDOW - Half-open UTC instant range
// =============================================================================

// Window is the half-open range [Start, End). Every query and every
// reconciliation that is scoped by time goes through one.
type Window struct {
	Start time.Time
	End   time.Time
}

// Contains returns true if t is within [Start, End).
func (w Window) Contains(t time.Time) bool {
	t = t.UTC()
	return !t.Before(w.Start) && t.Before(w.End)
}

// Last returns the last representable millisecond of the window.
func (w Window) Last() time.Time {
	return w.End.Add(-time.Millisecond)
}

func (w Window) String() string {
	return "[" + w.Start.Format(time.RFC3339) + ", " + w.End.Format(time.RFC3339) + ")"
}

// =============================================================================
// RESOLVER
// =============================================================================

// MonthStart returns the first instant of t's month in UTC.
func MonthStart(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
}

// MonthWindow returns [first of month, first of next month) for t.
func MonthWindow(t time.Time) Window {
	start := MonthStart(t)
	return Window{Start: start, End: start.AddDate(0, 1, 0)}
}

// DayWindow returns [00:00 of t's UTC day, 00:00 of the next day).
func DayWindow(t time.Time) Window {
	t = t.UTC()
	start := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	return Window{Start: start, End: start.AddDate(0, 0, 1)}
}

// ParseMonth parses a month token. "YYYY-MM" is the canonical form; a full
// date or RFC3339 instant is accepted and normalized to its month.
func ParseMonth(token string) (time.Time, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return time.Time{}, invalidInput("month", "month is required")
	}

	if len(token) > len("2006-01") {
		t, err := ParseDate(token)
		if err != nil {
			return time.Time{}, invalidInput("month", "invalid month format, use YYYY-MM")
		}
		return MonthStart(t), nil
	}

	parts := strings.Split(token, "-")
	if len(parts) != 2 {
		return time.Time{}, invalidInput("month", "invalid month format, use YYYY-MM")
	}
	year, err := strconv.Atoi(parts[0])
	if err != nil || year < 1 || year > 9999 {
		return time.Time{}, invalidInput("month", "invalid year in month "+token)
	}
	month, err := strconv.Atoi(parts[1])
	if err != nil || month < 1 || month > 12 {
		return time.Time{}, invalidInput("month", "invalid month in month "+token)
	}

	return time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC), nil
}

// dateLayouts are tried in order by ParseDate.
var dateLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02",
}

// ParseDate parses an instant or a calendar day, returned in UTC.
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, invalidInput("date", "date is required")
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, invalidInput("date", "invalid date "+s+", use YYYY-MM-DD or RFC3339")
}

// ResolveEntryWindow picks the listing window for entries. A date scopes the
// listing to that day and wins over month; a month scopes it to the month.
func ResolveEntryWindow(date, month string) (w Window, byDay bool, err error) {
	switch {
	case strings.TrimSpace(date) != "":
		d, err := ParseDate(date)
		if err != nil {
			return Window{}, false, err
		}
		return DayWindow(d), true, nil

	case strings.TrimSpace(month) != "":
		m, err := ParseMonth(month)
		if err != nil {
			return Window{}, false, err
		}
		return MonthWindow(m), false, nil

	default:
		return Window{}, false, invalidInput("date", "provide a date or a month")
	}
}
