package db

import "context"

const ruleColumns = `id, rule_type, scope, scope_value, amount, amount_type,
	is_active, created_at, updated_at`

func scanRule(row interface{ Scan(...any) error }) (PriceRule, error) {
	var r PriceRule
	err := row.Scan(
		&r.ID, &r.RuleType, &r.Scope, &r.ScopeValue, &r.Amount, &r.AmountType,
		&r.IsActive, &r.CreatedAt, &r.UpdatedAt,
	)
	return r, err
}

// ListActivePriceRules returns active rules newest first, the order the
// pricing engine expects.
func (q *Queries) ListActivePriceRules(ctx context.Context) ([]PriceRule, error) {
	rows, err := q.db.Query(ctx,
		`SELECT `+ruleColumns+` FROM price_rules WHERE is_active ORDER BY created_at DESC, id DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var rules []PriceRule
	for rows.Next() {
		r, err := scanRule(rows)
		if err != nil {
			return nil, err
		}
		rules = append(rules, r)
	}
	return rules, rows.Err()
}

// ListPriceRules returns every rule, active or not, newest first.
func (q *Queries) ListPriceRules(ctx context.Context) ([]PriceRule, error) {
	rows, err := q.db.Query(ctx,
		`SELECT `+ruleColumns+` FROM price_rules ORDER BY created_at DESC, id DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var rules []PriceRule
	for rows.Next() {
		r, err := scanRule(rows)
		if err != nil {
			return nil, err
		}
		rules = append(rules, r)
	}
	return rules, rows.Err()
}

// GetPriceRuleByID fetches a single rule.
func (q *Queries) GetPriceRuleByID(ctx context.Context, id string) (PriceRule, error) {
	return scanRule(q.db.QueryRow(ctx,
		`SELECT `+ruleColumns+` FROM price_rules WHERE id = $1`, id))
}

// CreatePriceRuleParams carries the insert payload for a rule.
type CreatePriceRuleParams struct {
	ID         string
	RuleType   string
	Scope      string
	ScopeValue *string
	Amount     float64
	AmountType string
	IsActive   bool
}

// CreatePriceRule inserts a rule and returns the stored row.
func (q *Queries) CreatePriceRule(ctx context.Context, arg CreatePriceRuleParams) (PriceRule, error) {
	return scanRule(q.db.QueryRow(ctx,
		`INSERT INTO price_rules (id, rule_type, scope, scope_value, amount, amount_type, is_active)
		 VALUES ($1,$2,$3,$4,$5,$6,$7)
		 RETURNING `+ruleColumns,
		arg.ID, arg.RuleType, arg.Scope, arg.ScopeValue, arg.Amount, arg.AmountType, arg.IsActive,
	))
}

// UpdatePriceRuleParams carries the update payload for a rule.
type UpdatePriceRuleParams struct {
	ID         string
	RuleType   string
	Scope      string
	ScopeValue *string
	Amount     float64
	AmountType string
	IsActive   bool
}

// UpdatePriceRule replaces the mutable columns of a rule.
func (q *Queries) UpdatePriceRule(ctx context.Context, arg UpdatePriceRuleParams) (PriceRule, error) {
	return scanRule(q.db.QueryRow(ctx,
		`UPDATE price_rules SET rule_type=$2, scope=$3, scope_value=$4, amount=$5,
			amount_type=$6, is_active=$7, updated_at=now()
		 WHERE id=$1
		 RETURNING `+ruleColumns,
		arg.ID, arg.RuleType, arg.Scope, arg.ScopeValue, arg.Amount, arg.AmountType, arg.IsActive,
	))
}

// DeletePriceRule removes a rule row.
func (q *Queries) DeletePriceRule(ctx context.Context, id string) (int64, error) {
	tag, err := q.db.Exec(ctx, `DELETE FROM price_rules WHERE id = $1`, id)
	return tag.RowsAffected(), err
}
