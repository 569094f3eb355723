package expenses

import "time"

// Recurrence values accepted on an expense.
const (
	RecurWeekly  = "weekly"
	RecurMonthly = "monthly"
	RecurYearly  = "yearly"
)

// Occurrence is a single concrete instance of an expense inside a
// reporting window.
type Occurrence struct {
	ExpenseID string    `json:"expense_id"`
	Label     string    `json:"label"`
	Category  string    `json:"category"`
	Amount    float64   `json:"amount"`
	Date      time.Time `json:"date"`
}

// ValidRecurrence reports whether v is a supported recurrence value.
func ValidRecurrence(v string) bool {
	switch v {
	case RecurWeekly, RecurMonthly, RecurYearly:
		return true
	}
	return false
}

// Expand materialises the occurrences of one expense inside [from, to).
// A one-off expense yields at most one occurrence. A recurring expense
// repeats from its incurred date until its recurrence_until date (or
// forever when nil), clipped to the window. Monthly recurrences on days
// a month lacks land on that month's last day.
func Expand(id, label, category string, amount float64, incurredOn time.Time, recurrence *string, until *time.Time, from, to time.Time) []Occurrence {
	if !to.After(from) {
		return nil
	}
	if recurrence == nil || !ValidRecurrence(*recurrence) {
		if incurredOn.Before(from) || !incurredOn.Before(to) {
			return nil
		}
		return []Occurrence{{ExpenseID: id, Label: label, Category: category, Amount: amount, Date: incurredOn}}
	}

	end := to
	if until != nil && until.Before(end) {
		// until is inclusive: an occurrence on that day still counts.
		end = until.AddDate(0, 0, 1)
	}

	var out []Occurrence
	for i, cur := 0, incurredOn; cur.Before(end); i++ {
		if !cur.Before(from) {
			out = append(out, Occurrence{ExpenseID: id, Label: label, Category: category, Amount: amount, Date: cur})
		}
		cur = next(incurredOn, *recurrence, i+1)
	}
	return out
}

// next computes occurrence n (1-based) from the anchor date. Stepping is
// always anchored on the original date so monthly runs do not drift after
// passing a short month.
func next(anchor time.Time, recurrence string, n int) time.Time {
	switch recurrence {
	case RecurWeekly:
		return anchor.AddDate(0, 0, 7*n)
	case RecurYearly:
		return anchor.AddDate(n, 0, 0)
	default:
		return addMonthsClamped(anchor, n)
	}
}

// addMonthsClamped advances by whole months, clamping day 29-31 to the
// target month's last day instead of Go's default overflow into the
// following month.
func addMonthsClamped(anchor time.Time, months int) time.Time {
	year, month, day := anchor.Date()
	first := time.Date(year, month, 1, 0, 0, 0, 0, anchor.Location())
	shifted := first.AddDate(0, months, 0)
	lastDay := shifted.AddDate(0, 1, -1).Day()
	if day > lastDay {
		day = lastDay
	}
	return time.Date(shifted.Year(), shifted.Month(), day,
		anchor.Hour(), anchor.Minute(), anchor.Second(), anchor.Nanosecond(), anchor.Location())
}
