package rules

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/jackc/pgx/v5"

	"github.com/atlasparts/backend-parts/internal/common"
	"github.com/atlasparts/backend-parts/internal/db"
)

type stubQueries struct {
	rules   []db.PriceRule
	part    db.Part
	partErr error
	created db.CreatePriceRuleParams
}

func (s *stubQueries) ListPriceRules(ctx context.Context) ([]db.PriceRule, error) {
	return s.rules, nil
}

func (s *stubQueries) ListActivePriceRules(ctx context.Context) ([]db.PriceRule, error) {
	var active []db.PriceRule
	for _, r := range s.rules {
		if r.IsActive {
			active = append(active, r)
		}
	}
	return active, nil
}

func (s *stubQueries) GetPriceRuleByID(ctx context.Context, id string) (db.PriceRule, error) {
	for _, r := range s.rules {
		if r.ID == id {
			return r, nil
		}
	}
	return db.PriceRule{}, pgx.ErrNoRows
}

func (s *stubQueries) CreatePriceRule(ctx context.Context, arg db.CreatePriceRuleParams) (db.PriceRule, error) {
	s.created = arg
	return db.PriceRule{
		ID: arg.ID, RuleType: arg.RuleType, Scope: arg.Scope, ScopeValue: arg.ScopeValue,
		Amount: arg.Amount, AmountType: arg.AmountType, IsActive: arg.IsActive,
		CreatedAt: time.Now(),
	}, nil
}

func (s *stubQueries) UpdatePriceRule(ctx context.Context, arg db.UpdatePriceRuleParams) (db.PriceRule, error) {
	for _, r := range s.rules {
		if r.ID == arg.ID {
			r.RuleType = arg.RuleType
			r.Scope = arg.Scope
			r.ScopeValue = arg.ScopeValue
			r.Amount = arg.Amount
			r.AmountType = arg.AmountType
			r.IsActive = arg.IsActive
			return r, nil
		}
	}
	return db.PriceRule{}, pgx.ErrNoRows
}

func (s *stubQueries) DeletePriceRule(ctx context.Context, id string) (int64, error) {
	for _, r := range s.rules {
		if r.ID == id {
			return 1, nil
		}
	}
	return 0, nil
}

func (s *stubQueries) GetPartByID(ctx context.Context, id string) (db.Part, error) {
	if s.partErr != nil {
		return db.Part{}, s.partErr
	}
	return s.part, nil
}

func newService(q *stubQueries) *Service {
	return &Service{Q: q, Validate: validator.New()}
}

func strPtr(v string) *string { return &v }

func TestCreateNormalizesAndStoresRule(t *testing.T) {
	q := &stubQueries{}
	svc := newService(q)
	rule, err := svc.Create(context.Background(), Input{
		Type:       " Discount ",
		Scope:      "MAKE",
		ScopeValue: " Toyota ",
		Amount:     15,
		AmountType: "Percent",
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if rule.RuleType != "discount" || rule.Scope != "make" || rule.AmountType != "percent" {
		t.Fatalf("payload not normalized: %+v", rule)
	}
	if q.created.ScopeValue == nil || *q.created.ScopeValue != "Toyota" {
		t.Fatalf("expected trimmed scope value, got %v", q.created.ScopeValue)
	}
	if !q.created.IsActive {
		t.Fatal("rules should default to active")
	}
}

func TestCreateRejectsScopedRuleWithoutValue(t *testing.T) {
	svc := newService(&stubQueries{})
	_, err := svc.Create(context.Background(), Input{
		Type:       "discount",
		Scope:      "vin",
		Amount:     10,
		AmountType: "fixed",
	})
	var appErr *common.AppError
	if !errors.As(err, &appErr) || appErr.Code != "BAD_REQUEST" {
		t.Fatalf("expected BAD_REQUEST, got %v", err)
	}
}

func TestCreateRejectsUnknownScope(t *testing.T) {
	svc := newService(&stubQueries{})
	_, err := svc.Create(context.Background(), Input{
		Type:       "discount",
		Scope:      "category",
		ScopeValue: "engines",
		Amount:     10,
		AmountType: "percent",
	})
	if err == nil {
		t.Fatal("expected validation error for unknown scope")
	}
}

func TestCreateAllScopeDropsScopeValue(t *testing.T) {
	q := &stubQueries{}
	svc := newService(q)
	_, err := svc.Create(context.Background(), Input{
		Type:       "markup",
		Scope:      "all",
		ScopeValue: "ignored",
		Amount:     5,
		AmountType: "fixed",
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if q.created.ScopeValue != nil {
		t.Fatalf("all-scope rules must store NULL scope_value, got %q", *q.created.ScopeValue)
	}
}

func TestUpdateMissingRule(t *testing.T) {
	svc := newService(&stubQueries{})
	_, err := svc.Update(context.Background(), "missing", Input{
		Type:       "discount",
		Scope:      "all",
		Amount:     10,
		AmountType: "percent",
	})
	var appErr *common.AppError
	if !errors.As(err, &appErr) || appErr.Code != "NOT_FOUND" {
		t.Fatalf("expected NOT_FOUND, got %v", err)
	}
}

func TestDeleteMissingRule(t *testing.T) {
	svc := newService(&stubQueries{})
	err := svc.Delete(context.Background(), "missing")
	var appErr *common.AppError
	if !errors.As(err, &appErr) || appErr.Code != "NOT_FOUND" {
		t.Fatalf("expected NOT_FOUND, got %v", err)
	}
}

func TestPreviewPartAppliesMostSpecificRule(t *testing.T) {
	now := time.Now()
	q := &stubQueries{
		part: db.Part{
			ID:       "part-1",
			Make:     "Toyota",
			Model:    "Camry",
			VIN:      strPtr("4T1BE46K17U123456"),
			Price:    100,
			Quantity: 1,
			PricePer: "lot",
		},
		rules: []db.PriceRule{
			{ID: "r-all", RuleType: "discount", Scope: "all", Amount: 10, AmountType: "percent", IsActive: true, CreatedAt: now},
			{ID: "r-make", RuleType: "markup", Scope: "make", ScopeValue: strPtr("toyota"), Amount: 20, AmountType: "fixed", IsActive: true, CreatedAt: now},
			{ID: "r-off", RuleType: "discount", Scope: "part", ScopeValue: strPtr("part-1"), Amount: 90, AmountType: "percent", IsActive: false, CreatedAt: now},
		},
	}
	svc := newService(q)
	preview, err := svc.PreviewPart(context.Background(), "part-1")
	if err != nil {
		t.Fatalf("preview: %v", err)
	}
	if preview.Resolution.Applied == nil || preview.Resolution.Applied.ID != "r-make" {
		t.Fatalf("expected make markup to win, got %+v", preview.Resolution.Applied)
	}
	if preview.Resolution.FinalPrice != 120 {
		t.Fatalf("expected 120, got %v", preview.Resolution.FinalPrice)
	}
	if preview.MatchingRules != 2 {
		t.Fatalf("expected 2 matching active rules, got %d", preview.MatchingRules)
	}
	if preview.BasePrice != 100 {
		t.Fatalf("expected base price 100, got %v", preview.BasePrice)
	}
}

func TestPreviewPartMissingPart(t *testing.T) {
	svc := newService(&stubQueries{partErr: pgx.ErrNoRows})
	_, err := svc.PreviewPart(context.Background(), "missing")
	var appErr *common.AppError
	if !errors.As(err, &appErr) || appErr.Code != "NOT_FOUND" {
		t.Fatalf("expected NOT_FOUND, got %v", err)
	}
}
