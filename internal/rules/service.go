package rules

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/atlasparts/backend-parts/internal/common"
	"github.com/atlasparts/backend-parts/internal/db"
	"github.com/atlasparts/backend-parts/internal/obs"
	"github.com/atlasparts/backend-parts/internal/pricing"
)

// Querier captures the database methods required by the rules service.
type Querier interface {
	ListPriceRules(ctx context.Context) ([]db.PriceRule, error)
	ListActivePriceRules(ctx context.Context) ([]db.PriceRule, error)
	GetPriceRuleByID(ctx context.Context, id string) (db.PriceRule, error)
	CreatePriceRule(ctx context.Context, arg db.CreatePriceRuleParams) (db.PriceRule, error)
	UpdatePriceRule(ctx context.Context, arg db.UpdatePriceRuleParams) (db.PriceRule, error)
	DeletePriceRule(ctx context.Context, id string) (int64, error)
	GetPartByID(ctx context.Context, id string) (db.Part, error)
}

// Input is the create/update payload for a price rule.
type Input struct {
	Type       string  `json:"type" validate:"required,oneof=discount markup"`
	Scope      string  `json:"scope" validate:"required,oneof=all make model vin part"`
	ScopeValue string  `json:"scope_value"`
	Amount     float64 `json:"amount" validate:"required,gt=0"`
	AmountType string  `json:"amount_type" validate:"required,oneof=percent fixed"`
	IsActive   *bool   `json:"is_active"`
}

// Preview describes a dry-run of the engine against one part.
type Preview struct {
	PartID        string             `json:"part_id"`
	BasePrice     float64            `json:"base_price"`
	ItemPrice     float64            `json:"item_price"`
	Resolution    pricing.Resolution `json:"resolution"`
	MatchingRules int                `json:"matching_rules"`
}

// Service manages price rule CRUD and engine previews.
// Invalidator drops stale catalog cache entries after rule changes.
// Detail caches expire on their own TTL; only the listing key needs an
// eager drop.
type Invalidator interface {
	InvalidateListing(ctx context.Context, partIDs ...string)
}

type Service struct {
	Q           Querier
	Validate    *validator.Validate
	Invalidator Invalidator
}

func (s *Service) invalidate(ctx context.Context) {
	if s.Invalidator != nil {
		s.Invalidator.InvalidateListing(ctx)
	}
}

// List returns every stored rule, newest first.
func (s *Service) List(ctx context.Context) ([]db.PriceRule, error) {
	if s == nil || s.Q == nil {
		return nil, errors.New("rules service not configured")
	}
	return s.Q.ListPriceRules(ctx)
}

// Get fetches one rule.
func (s *Service) Get(ctx context.Context, id string) (db.PriceRule, error) {
	rule, err := s.Q.GetPriceRuleByID(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return db.PriceRule{}, common.NotFound("price rule")
		}
		return db.PriceRule{}, fmt.Errorf("get price rule: %w", err)
	}
	return rule, nil
}

// Create validates and stores a new rule.
func (s *Service) Create(ctx context.Context, in Input) (db.PriceRule, error) {
	if err := s.checkInput(&in); err != nil {
		return db.PriceRule{}, err
	}
	active := true
	if in.IsActive != nil {
		active = *in.IsActive
	}
	rule, err := s.Q.CreatePriceRule(ctx, db.CreatePriceRuleParams{
		ID:         uuid.NewString(),
		RuleType:   in.Type,
		Scope:      in.Scope,
		ScopeValue: scopeValuePtr(in),
		Amount:     in.Amount,
		AmountType: in.AmountType,
		IsActive:   active,
	})
	if err != nil {
		return db.PriceRule{}, fmt.Errorf("create price rule: %w", err)
	}
	s.invalidate(ctx)
	return rule, nil
}

// Update validates and replaces an existing rule.
func (s *Service) Update(ctx context.Context, id string, in Input) (db.PriceRule, error) {
	if err := s.checkInput(&in); err != nil {
		return db.PriceRule{}, err
	}
	active := true
	if in.IsActive != nil {
		active = *in.IsActive
	}
	rule, err := s.Q.UpdatePriceRule(ctx, db.UpdatePriceRuleParams{
		ID:         id,
		RuleType:   in.Type,
		Scope:      in.Scope,
		ScopeValue: scopeValuePtr(in),
		Amount:     in.Amount,
		AmountType: in.AmountType,
		IsActive:   active,
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return db.PriceRule{}, common.NotFound("price rule")
		}
		return db.PriceRule{}, fmt.Errorf("update price rule: %w", err)
	}
	s.invalidate(ctx)
	return rule, nil
}

// Delete removes a rule.
func (s *Service) Delete(ctx context.Context, id string) error {
	affected, err := s.Q.DeletePriceRule(ctx, id)
	if err != nil {
		return fmt.Errorf("delete price rule: %w", err)
	}
	if affected == 0 {
		return common.NotFound("price rule")
	}
	s.invalidate(ctx)
	return nil
}

// PreviewPart dry-runs the engine against a stored part and the current
// active rule set, reporting the resolution the storefront would show.
func (s *Service) PreviewPart(ctx context.Context, partID string) (Preview, error) {
	part, err := s.Q.GetPartByID(ctx, partID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Preview{}, common.NotFound("part")
		}
		return Preview{}, fmt.Errorf("get part: %w", err)
	}
	stored, err := s.Q.ListActivePriceRules(ctx)
	if err != nil {
		return Preview{}, fmt.Errorf("list active rules: %w", err)
	}
	engineRules := ToEngineRules(stored)
	enginePart := ToEnginePart(part)
	res := pricing.Apply(enginePart, engineRules)
	RecordResolution(res)

	matching := 0
	for _, r := range engineRules {
		probe := pricing.Apply(enginePart, []pricing.Rule{r})
		if probe.Applied != nil {
			matching++
		}
	}
	return Preview{
		PartID:        part.ID,
		BasePrice:     pricing.LotPrice(part.Price, part.Quantity, part.PricePer),
		ItemPrice:     pricing.ItemPrice(part.Price, part.Quantity, part.PricePer),
		Resolution:    res,
		MatchingRules: matching,
	}, nil
}

func (s *Service) checkInput(in *Input) error {
	in.Type = strings.ToLower(strings.TrimSpace(in.Type))
	in.Scope = strings.ToLower(strings.TrimSpace(in.Scope))
	in.AmountType = strings.ToLower(strings.TrimSpace(in.AmountType))
	in.ScopeValue = strings.TrimSpace(in.ScopeValue)
	if s.Validate != nil {
		if err := s.Validate.Struct(in); err != nil {
			return common.NewAppError("BAD_REQUEST", err.Error(), http.StatusBadRequest, err)
		}
	}
	if in.Scope != pricing.ScopeAll && in.ScopeValue == "" {
		return common.BadRequest("scope_value", "scope_value is required for scoped rules", nil)
	}
	return nil
}

func scopeValuePtr(in Input) *string {
	if in.Scope == pricing.ScopeAll {
		return nil
	}
	v := in.ScopeValue
	return &v
}

// ToEngineRules converts stored rows into engine rules.
func ToEngineRules(stored []db.PriceRule) []pricing.Rule {
	out := make([]pricing.Rule, 0, len(stored))
	for _, r := range stored {
		out = append(out, ToEngineRule(r))
	}
	return out
}

// ToEngineRule converts one stored row into an engine rule.
func ToEngineRule(r db.PriceRule) pricing.Rule {
	rule := pricing.Rule{
		ID:         r.ID,
		Type:       r.RuleType,
		Scope:      r.Scope,
		Amount:     r.Amount,
		AmountType: r.AmountType,
		Active:     r.IsActive,
		CreatedAt:  r.CreatedAt,
	}
	if r.ScopeValue != nil {
		rule.ScopeValue = *r.ScopeValue
	}
	return rule
}

// ToEnginePart converts a stored part into the engine's read model.
func ToEnginePart(p db.Part) pricing.Part {
	part := pricing.Part{
		ID:       p.ID,
		Make:     p.Make,
		Model:    p.Model,
		Price:    p.Price,
		Quantity: p.Quantity,
		PricePer: p.PricePer,
	}
	if p.VIN != nil {
		part.VIN = *p.VIN
	}
	return part
}

// RecordResolution bumps the domain metric for an engine outcome.
func RecordResolution(res pricing.Resolution) {
	if obs.PriceResolutionTotal == nil {
		return
	}
	direction := "none"
	switch {
	case res.HasDiscount:
		direction = "discount"
	case res.HasMarkup:
		direction = "markup"
	}
	obs.PriceResolutionTotal.WithLabelValues(direction).Inc()
}
