package expenses

import (
	"testing"
	"time"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestExpandOneOffInsideWindow(t *testing.T) {
	out := Expand("e1", "Tow fee", "logistics", 75, day(2026, 8, 10), nil, nil,
		day(2026, 8, 1), day(2026, 9, 1))
	if len(out) != 1 {
		t.Fatalf("expected 1 occurrence, got %d", len(out))
	}
	if !out[0].Date.Equal(day(2026, 8, 10)) || out[0].Amount != 75 {
		t.Fatalf("unexpected occurrence: %+v", out[0])
	}
}

func TestExpandOneOffOutsideWindow(t *testing.T) {
	out := Expand("e1", "Tow fee", "logistics", 75, day(2026, 7, 10), nil, nil,
		day(2026, 8, 1), day(2026, 9, 1))
	if len(out) != 0 {
		t.Fatalf("expected no occurrences, got %d", len(out))
	}
}

func TestExpandMonthlyWithinWindow(t *testing.T) {
	rec := RecurMonthly
	out := Expand("e1", "Yard lease", "rent", 1200, day(2026, 5, 15), &rec, nil,
		day(2026, 8, 1), day(2026, 10, 1))
	if len(out) != 2 {
		t.Fatalf("expected 2 occurrences, got %d", len(out))
	}
	if !out[0].Date.Equal(day(2026, 8, 15)) || !out[1].Date.Equal(day(2026, 9, 15)) {
		t.Fatalf("unexpected dates: %v, %v", out[0].Date, out[1].Date)
	}
}

func TestExpandMonthlyClampsShortMonths(t *testing.T) {
	rec := RecurMonthly
	out := Expand("e1", "Storage", "rent", 300, day(2026, 1, 31), &rec, nil,
		day(2026, 1, 1), day(2026, 5, 1))
	if len(out) != 4 {
		t.Fatalf("expected 4 occurrences, got %d", len(out))
	}
	// Jan 31, Feb 28, Mar 31, Apr 30: anchored on the 31st, not drifting.
	want := []time.Time{day(2026, 1, 31), day(2026, 2, 28), day(2026, 3, 31), day(2026, 4, 30)}
	for i, w := range want {
		if !out[i].Date.Equal(w) {
			t.Fatalf("occurrence %d: want %v, got %v", i, w, out[i].Date)
		}
	}
}

func TestExpandWeeklyHonorsUntil(t *testing.T) {
	rec := RecurWeekly
	until := day(2026, 8, 18)
	out := Expand("e1", "Hauler", "logistics", 50, day(2026, 8, 4), &rec, &until,
		day(2026, 8, 1), day(2026, 9, 1))
	// Aug 4, 11, 18; the until date itself still counts.
	if len(out) != 3 {
		t.Fatalf("expected 3 occurrences, got %d", len(out))
	}
	if !out[2].Date.Equal(day(2026, 8, 18)) {
		t.Fatalf("last occurrence should be the until date, got %v", out[2].Date)
	}
}

func TestExpandYearly(t *testing.T) {
	rec := RecurYearly
	out := Expand("e1", "Dealer license", "licensing", 450, day(2024, 3, 1), &rec, nil,
		day(2026, 1, 1), day(2027, 1, 1))
	if len(out) != 1 {
		t.Fatalf("expected 1 occurrence, got %d", len(out))
	}
	if !out[0].Date.Equal(day(2026, 3, 1)) {
		t.Fatalf("unexpected date: %v", out[0].Date)
	}
}

func TestExpandUnknownRecurrenceTreatedAsOneOff(t *testing.T) {
	rec := "daily"
	out := Expand("e1", "Misc", "misc", 10, day(2026, 8, 10), &rec, nil,
		day(2026, 8, 1), day(2026, 9, 1))
	if len(out) != 1 {
		t.Fatalf("expected 1 occurrence, got %d", len(out))
	}
}

func TestExpandEmptyWindow(t *testing.T) {
	rec := RecurMonthly
	out := Expand("e1", "Rent", "rent", 100, day(2026, 1, 1), &rec, nil,
		day(2026, 8, 1), day(2026, 8, 1))
	if out != nil {
		t.Fatalf("expected nil for empty window, got %v", out)
	}
}
