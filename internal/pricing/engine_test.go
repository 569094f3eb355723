package pricing

import (
	"testing"
	"time"
)

func activeRule(id, kind, scope, value string, amount float64, amountType string) Rule {
	return Rule{
		ID:         id,
		Type:       kind,
		Scope:      scope,
		ScopeValue: value,
		Amount:     amount,
		AmountType: amountType,
		Active:     true,
	}
}

func TestApplyNoRules(t *testing.T) {
	part := Part{ID: "p1", Price: 250, Quantity: 2, PricePer: PerItem}
	res := Apply(part, nil)
	if res.FinalPrice != 500 {
		t.Fatalf("expected base lot price 500, got %v", res.FinalPrice)
	}
	if res.HasDiscount || res.HasMarkup || res.Applied != nil {
		t.Fatalf("expected identity resolution, got %+v", res)
	}
}

func TestApplyPercentDiscount(t *testing.T) {
	part := Part{ID: "p1", Price: 1000, Quantity: 1, PricePer: PerLot}
	rules := []Rule{activeRule("r1", RuleDiscount, ScopeAll, "", 15, AmountPercent)}
	res := Apply(part, rules)
	if res.FinalPrice != 850 {
		t.Fatalf("expected 850, got %v", res.FinalPrice)
	}
	if !res.HasDiscount || res.HasMarkup {
		t.Fatalf("expected discount flags, got %+v", res)
	}
	if res.Applied == nil || res.Applied.ID != "r1" {
		t.Fatalf("expected applied rule r1, got %+v", res.Applied)
	}
}

func TestApplyFixedMarkupAppliedOncePerLot(t *testing.T) {
	// USD 25 is added to the lot total once, never scaled by quantity.
	part := Part{ID: "p1", Make: "toyota", Price: 50, Quantity: 10, PricePer: PerItem}
	rules := []Rule{activeRule("r1", RuleMarkup, ScopeMake, "Toyota", 25, AmountFixed)}
	res := Apply(part, rules)
	if res.FinalPrice != 525 {
		t.Fatalf("expected 525, got %v", res.FinalPrice)
	}
	if !res.HasMarkup || res.HasDiscount {
		t.Fatalf("expected markup flags, got %+v", res)
	}
}

func TestApplyDiscountClampedAtZero(t *testing.T) {
	part := Part{ID: "p1", Price: 40, Quantity: 1, PricePer: PerLot}
	rules := []Rule{activeRule("r1", RuleDiscount, ScopeAll, "", 100, AmountFixed)}
	res := Apply(part, rules)
	if res.FinalPrice != 0 {
		t.Fatalf("expected clamp to 0, got %v", res.FinalPrice)
	}
}

func TestApplySpecificityPrecedence(t *testing.T) {
	// A part-scope markup beats an all-scope discount regardless of type.
	part := Part{ID: "p1", Price: 100, Quantity: 1, PricePer: PerLot}
	rules := []Rule{
		activeRule("r1", RuleDiscount, ScopeAll, "", 10, AmountPercent),
		activeRule("r2", RuleMarkup, ScopePart, "p1", 5, AmountFixed),
	}
	res := Apply(part, rules)
	if res.FinalPrice != 105 {
		t.Fatalf("expected 105, got %v", res.FinalPrice)
	}
	if !res.HasMarkup || res.HasDiscount {
		t.Fatalf("expected part-scope markup to win, got %+v", res)
	}
	if res.Applied == nil || res.Applied.ID != "r2" {
		t.Fatalf("expected rule r2 applied, got %+v", res.Applied)
	}
}

func TestApplyScopeRankOrder(t *testing.T) {
	part := Part{ID: "p1", Make: "BMW", Model: "320i", VIN: "WBA123", Price: 100, Quantity: 1, PricePer: PerLot}
	all := activeRule("ra", RuleDiscount, ScopeAll, "", 5, AmountFixed)
	mk := activeRule("rmk", RuleDiscount, ScopeMake, "bmw", 5, AmountFixed)
	mo := activeRule("rmo", RuleDiscount, ScopeModel, "320I", 5, AmountFixed)
	vin := activeRule("rv", RuleDiscount, ScopeVIN, "wba123", 5, AmountFixed)
	pt := activeRule("rp", RuleDiscount, ScopePart, "p1", 5, AmountFixed)

	cases := []struct {
		name   string
		rules  []Rule
		wantID string
	}{
		{"make beats all", []Rule{all, mk}, "rmk"},
		{"model beats make", []Rule{all, mk, mo}, "rmo"},
		{"vin beats model", []Rule{mk, mo, vin}, "rv"},
		{"part beats vin", []Rule{mo, vin, pt}, "rp"},
	}
	for _, tc := range cases {
		res := Apply(part, tc.rules)
		if res.Applied == nil || res.Applied.ID != tc.wantID {
			t.Fatalf("%s: expected %s, got %+v", tc.name, tc.wantID, res.Applied)
		}
	}
}

func TestApplyTieBreakNewestWins(t *testing.T) {
	older := activeRule("r1", RuleDiscount, ScopeMake, "BMW", 10, AmountPercent)
	older.CreatedAt = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	newer := activeRule("r2", RuleDiscount, ScopeMake, "bmw", 20, AmountPercent)
	newer.CreatedAt = time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)

	part := Part{ID: "p1", Make: "BMW", Price: 100, Quantity: 1, PricePer: PerLot}
	res := Apply(part, []Rule{older, newer})
	if res.Applied == nil || res.Applied.ID != "r2" {
		t.Fatalf("expected newest rule to win, got %+v", res.Applied)
	}
	if res.FinalPrice != 80 {
		t.Fatalf("expected 80, got %v", res.FinalPrice)
	}

	// Identical timestamps fall back to descending id.
	newer.CreatedAt = older.CreatedAt
	res = Apply(part, []Rule{older, newer})
	if res.Applied == nil || res.Applied.ID != "r2" {
		t.Fatalf("expected id tie-break, got %+v", res.Applied)
	}
}

func TestApplyCaseInsensitiveMakeMatching(t *testing.T) {
	rule := activeRule("r1", RuleDiscount, ScopeMake, "Bmw", 10, AmountPercent)
	for _, make := range []string{"BMW", " bmw "} {
		part := Part{ID: "p1", Make: make, Price: 100, Quantity: 1, PricePer: PerLot}
		res := Apply(part, []Rule{rule})
		if !res.HasDiscount {
			t.Fatalf("expected make %q to match", make)
		}
	}
	res := Apply(Part{ID: "p1", Price: 100, Quantity: 1, PricePer: PerLot}, []Rule{rule})
	if res.HasDiscount {
		t.Fatalf("empty make must not match a make-scope rule")
	}
}

func TestApplyPartScopeCaseSensitive(t *testing.T) {
	rule := activeRule("r1", RuleDiscount, ScopePart, "ABC", 10, AmountPercent)
	res := Apply(Part{ID: "abc", Price: 100, Quantity: 1, PricePer: PerLot}, []Rule{rule})
	if res.HasDiscount {
		t.Fatalf("part ids are opaque tokens, match must be exact")
	}
}

func TestApplyIgnoresInactiveAndMalformed(t *testing.T) {
	inactive := activeRule("r1", RuleDiscount, ScopeAll, "", 50, AmountPercent)
	inactive.Active = false
	rules := []Rule{
		inactive,
		activeRule("r2", RuleDiscount, ScopeMake, "", 10, AmountPercent),  // missing scope value
		activeRule("r3", "rebate", ScopeAll, "", 10, AmountPercent),       // unknown type
		activeRule("r4", RuleDiscount, "brand", "BMW", 10, AmountPercent), // unknown scope
		activeRule("r5", RuleDiscount, ScopeAll, "", 10, "points"),        // unknown amount type
		activeRule("r6", RuleDiscount, ScopeAll, "", 0, AmountPercent),    // non-positive amount
	}
	part := Part{ID: "p1", Make: "BMW", Price: 100, Quantity: 1, PricePer: PerLot}
	res := Apply(part, rules)
	if res.Applied != nil || res.FinalPrice != 100 {
		t.Fatalf("expected all rules ignored, got %+v", res)
	}
}

func TestApplyBasePriceIsLotPrice(t *testing.T) {
	// Stored per-item price must be expanded before the rule applies.
	part := Part{ID: "p1", Price: 10, Quantity: 4, PricePer: PerItem}
	rules := []Rule{activeRule("r1", RuleDiscount, ScopeAll, "", 50, AmountPercent)}
	res := Apply(part, rules)
	if res.FinalPrice != 20 {
		t.Fatalf("expected 50%% off lot price 40, got %v", res.FinalPrice)
	}
}
