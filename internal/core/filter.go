package core

import (
	"fmt"
	"strings"
	"time"
)

const (
	WindowToday Window = "today"
	WindowWeek  Window = "week"
	WindowMonth Window = "month"
	WindowAll   Window = "all"
	WindowRange Window = "custom"
)

type (
	// Window names the date range applied to a record list before display.
	Window string

	// Filter restricts a record list to a date window and a free-text query.
	// Both conditions must pass. The zero value matches everything.
	Filter struct {
		Window Window
		// From/To bound a custom range, inclusive, as YYYY-MM-DD strings.
		From string
		To   string
		// Query matches case-insensitively against item name or party name.
		Query string
	}
)

// ParseWindow maps a query parameter to a Window. Empty input means all time.
func ParseWindow(s string) (Window, error) {
	switch Window(strings.ToLower(strings.TrimSpace(s))) {
	case "":
		return WindowAll, nil
	case WindowToday:
		return WindowToday, nil
	case WindowWeek:
		return WindowWeek, nil
	case WindowMonth:
		return WindowMonth, nil
	case WindowAll:
		return WindowAll, nil
	case WindowRange:
		return WindowRange, nil
	}
	return "", fmt.Errorf("unknown window %q", s)
}

// IsToday reports whether the filter is the exact combination that the
// same-day mirror cache serves: today's window with no search text.
func (f Filter) IsToday() bool {
	return f.Window == WindowToday && strings.TrimSpace(f.Query) == ""
}

// Apply returns the subset of records matching the filter at the given
// instant. Input ordering is preserved; filtering never re-sorts.
func (f Filter) Apply(records []Record, now time.Time) []Record {
	query := strings.ToLower(strings.TrimSpace(f.Query))

	out := make([]Record, 0, len(records))
	for _, r := range records {
		if !f.matchesDate(r.Date, now) {
			continue
		}
		if query != "" && !matchesQuery(r, query) {
			continue
		}
		out = append(out, r)
	}
	return out
}

func (f Filter) matchesDate(date string, now time.Time) bool {
	switch f.Window {
	case WindowAll, "":
		return true
	case WindowRange:
		// Lexicographic comparison is correct for YYYY-MM-DD strings.
		return date >= f.From && date <= f.To
	}

	d, err := time.ParseInLocation(DateLayout, date, now.Location())
	if err != nil {
		return false
	}

	switch f.Window {
	case WindowToday:
		y1, m1, d1 := d.Date()
		y2, m2, d2 := now.Date()
		return y1 == y2 && m1 == m2 && d1 == d2
	case WindowWeek:
		// Rolling trailing 7x24h, not a calendar week.
		return now.Sub(d) <= 7*24*time.Hour
	case WindowMonth:
		return d.Month() == now.Month() && d.Year() == now.Year()
	}
	return false
}

func matchesQuery(r Record, loweredQuery string) bool {
	return strings.Contains(strings.ToLower(r.Name), loweredQuery) ||
		strings.Contains(strings.ToLower(r.PartyName), loweredQuery)
}
