package pricing

import (
	"strings"
	"time"
)

// Rule adjustment directions.
const (
	RuleDiscount = "discount"
	RuleMarkup   = "markup"
)

// Rule scopes ordered here from least to most specific.
const (
	ScopeAll   = "all"
	ScopeMake  = "make"
	ScopeModel = "model"
	ScopeVIN   = "vin"
	ScopePart  = "part"
)

// Amount types.
const (
	AmountPercent = "percent"
	AmountFixed   = "fixed"
)

// Part carries the attributes a pricing computation reads. It is a
// read-only snapshot of the stored part row.
type Part struct {
	ID       string  `json:"id"`
	Make     string  `json:"make"`
	Model    string  `json:"model"`
	VIN      string  `json:"vin"`
	Price    float64 `json:"price"`
	Quantity int     `json:"quantity"`
	PricePer string  `json:"price_per"`
}

// Rule is an admin-configured discount or markup applied automatically
// to matching parts.
type Rule struct {
	ID         string    `json:"id"`
	Type       string    `json:"type"`
	Scope      string    `json:"scope"`
	ScopeValue string    `json:"scope_value"`
	Amount     float64   `json:"amount"`
	AmountType string    `json:"amount_type"`
	Active     bool      `json:"is_active"`
	CreatedAt  time.Time `json:"created_at"`
}

// Resolution reports the outcome of evaluating a part against the rule
// set: the price to display, which direction it moved, and the rule
// that decided it.
type Resolution struct {
	FinalPrice  float64 `json:"final_price"`
	HasDiscount bool    `json:"has_discount"`
	HasMarkup   bool    `json:"has_markup"`
	Applied     *Rule   `json:"applied_rule,omitempty"`
}

// scopeRank orders scopes by specificity. A higher rank always beats a
// lower one; the adjustment direction never factors into precedence.
var scopeRank = map[string]int{
	ScopeAll:   0,
	ScopeMake:  1,
	ScopeModel: 2,
	ScopeVIN:   3,
	ScopePart:  4,
}

// Apply evaluates the active rules against the part and resolves a
// single winning rule. The base price is always the lot price. Rules
// that are inactive, malformed, or carry an unrecognised type, scope,
// or amount type are treated as non-matching rather than as errors, so
// one bad row cannot break price display for the catalog.
func Apply(part Part, rules []Rule) Resolution {
	base := LotPrice(part.Price, part.Quantity, part.PricePer)

	var winner *Rule
	for i := range rules {
		r := &rules[i]
		if !r.Active || !wellFormed(*r) || !matches(*r, part) {
			continue
		}
		if winner == nil || moreSpecific(*r, *winner) {
			winner = r
		}
	}
	if winner == nil {
		return Resolution{FinalPrice: base}
	}

	adj := winner.Amount
	if winner.AmountType == AmountPercent {
		adj = base * winner.Amount / 100
	}
	res := Resolution{Applied: winner}
	switch winner.Type {
	case RuleDiscount:
		res.HasDiscount = true
		res.FinalPrice = base - adj
		if res.FinalPrice < 0 {
			res.FinalPrice = 0
		}
	case RuleMarkup:
		res.HasMarkup = true
		res.FinalPrice = base + adj
	}
	return res
}

func wellFormed(r Rule) bool {
	if r.Type != RuleDiscount && r.Type != RuleMarkup {
		return false
	}
	if r.AmountType != AmountPercent && r.AmountType != AmountFixed {
		return false
	}
	if r.Amount <= 0 {
		return false
	}
	if _, ok := scopeRank[r.Scope]; !ok {
		return false
	}
	if r.Scope != ScopeAll && strings.TrimSpace(r.ScopeValue) == "" {
		return false
	}
	return true
}

func matches(r Rule, p Part) bool {
	switch r.Scope {
	case ScopeAll:
		return true
	case ScopeMake:
		return textEqual(p.Make, r.ScopeValue)
	case ScopeModel:
		return textEqual(p.Model, r.ScopeValue)
	case ScopeVIN:
		return p.VIN != "" && strings.EqualFold(p.VIN, r.ScopeValue)
	case ScopePart:
		// Part ids are opaque tokens, compared exactly.
		return p.ID != "" && p.ID == r.ScopeValue
	}
	return false
}

// textEqual compares human-entered values such as make and model with
// whitespace trimmed and case folded on both sides.
func textEqual(a, b string) bool {
	a = strings.TrimSpace(a)
	if a == "" {
		return false
	}
	return strings.EqualFold(a, strings.TrimSpace(b))
}

// moreSpecific reports whether a beats b: higher scope rank first, then
// newest creation time, then descending id so the order is total even
// when timestamps collide.
func moreSpecific(a, b Rule) bool {
	ra, rb := scopeRank[a.Scope], scopeRank[b.Scope]
	if ra != rb {
		return ra > rb
	}
	if !a.CreatedAt.Equal(b.CreatedAt) {
		return a.CreatedAt.After(b.CreatedAt)
	}
	return a.ID > b.ID
}
