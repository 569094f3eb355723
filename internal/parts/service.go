package parts

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/http"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/atlasparts/backend-parts/internal/common"
	"github.com/atlasparts/backend-parts/internal/db"
	"github.com/atlasparts/backend-parts/internal/pricing"
)

// Querier captures the database methods required by the parts service.
type Querier interface {
	ListParts(ctx context.Context, arg db.ListPartsParams) ([]db.Part, error)
	CountParts(ctx context.Context, arg db.ListPartsParams) (int64, error)
	GetPartByID(ctx context.Context, id string) (db.Part, error)
	CreatePart(ctx context.Context, arg db.CreatePartParams) (db.Part, error)
	UpdatePart(ctx context.Context, arg db.UpdatePartParams) (db.Part, error)
	DeletePart(ctx context.Context, id string) (int64, error)
	UpdatePartPrice(ctx context.Context, id string, price float64, at time.Time) error
}

// Invalidator lets admin writes drop stale storefront cache entries.
type Invalidator interface {
	InvalidateListing(ctx context.Context, partIDs ...string)
}

// Input is the create/update payload for a part.
type Input struct {
	Title       string   `json:"title" validate:"required,max=200"`
	Description string   `json:"description"`
	Make        string   `json:"make" validate:"required,max=60"`
	Model       string   `json:"model" validate:"required,max=60"`
	Year        int      `json:"year" validate:"required,min=1900"`
	VIN         *string  `json:"vin"`
	Category    string   `json:"category" validate:"required,max=60"`
	Price       float64  `json:"price" validate:"gte=0"`
	Quantity    int      `json:"quantity"`
	PricePer    string   `json:"price_per"`
	InStock     *bool    `json:"in_stock"`
	PhotoKeys   []string `json:"photo_keys"`
}

// BulkAdjustInput selects a slice of inventory and shifts its base prices.
type BulkAdjustInput struct {
	Make       string  `json:"make"`
	Model      string  `json:"model"`
	Category   string  `json:"category"`
	Direction  string  `json:"direction" validate:"required,oneof=increase decrease"`
	Amount     float64 `json:"amount" validate:"required,gt=0"`
	AmountType string  `json:"amount_type" validate:"required,oneof=percent fixed"`
}

// BulkAdjustResult reports what a bulk adjustment touched.
type BulkAdjustResult struct {
	Matched int `json:"matched"`
	Updated int `json:"updated"`
}

// Service manages admin inventory CRUD.
type Service struct {
	Q           Querier
	Validate    *validator.Validate
	Invalidator Invalidator
	Now         func() time.Time
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

// List returns a filtered admin page of parts with a total count.
func (s *Service) List(ctx context.Context, arg db.ListPartsParams) ([]db.Part, int64, error) {
	if s == nil || s.Q == nil {
		return nil, 0, errors.New("parts service not configured")
	}
	total, err := s.Q.CountParts(ctx, arg)
	if err != nil {
		return nil, 0, fmt.Errorf("count parts: %w", err)
	}
	items, err := s.Q.ListParts(ctx, arg)
	if err != nil {
		return nil, 0, fmt.Errorf("list parts: %w", err)
	}
	return items, total, nil
}

// Get fetches one part.
func (s *Service) Get(ctx context.Context, id string) (db.Part, error) {
	part, err := s.Q.GetPartByID(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return db.Part{}, common.NotFound("part")
		}
		return db.Part{}, fmt.Errorf("get part: %w", err)
	}
	return part, nil
}

// Create validates and stores a new part.
func (s *Service) Create(ctx context.Context, in Input) (db.Part, error) {
	if err := s.checkInput(&in); err != nil {
		return db.Part{}, err
	}
	part, err := s.Q.CreatePart(ctx, db.CreatePartParams{
		ID:          uuid.NewString(),
		Title:       in.Title,
		Description: in.Description,
		Make:        in.Make,
		Model:       in.Model,
		Year:        in.Year,
		VIN:         in.VIN,
		Category:    in.Category,
		Price:       in.Price,
		Quantity:    in.Quantity,
		PricePer:    in.PricePer,
		InStock:     in.InStock == nil || *in.InStock,
		PhotoKeys:   in.PhotoKeys,
	})
	if err != nil {
		return db.Part{}, fmt.Errorf("create part: %w", err)
	}
	s.invalidate(ctx)
	return part, nil
}

// Update validates and replaces an existing part.
func (s *Service) Update(ctx context.Context, id string, in Input) (db.Part, error) {
	if err := s.checkInput(&in); err != nil {
		return db.Part{}, err
	}
	part, err := s.Q.UpdatePart(ctx, db.UpdatePartParams{
		ID:          id,
		Title:       in.Title,
		Description: in.Description,
		Make:        in.Make,
		Model:       in.Model,
		Year:        in.Year,
		VIN:         in.VIN,
		Category:    in.Category,
		Price:       in.Price,
		Quantity:    in.Quantity,
		PricePer:    in.PricePer,
		InStock:     in.InStock == nil || *in.InStock,
		PhotoKeys:   in.PhotoKeys,
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return db.Part{}, common.NotFound("part")
		}
		return db.Part{}, fmt.Errorf("update part: %w", err)
	}
	s.invalidate(ctx, id)
	return part, nil
}

// Delete removes a part.
func (s *Service) Delete(ctx context.Context, id string) error {
	affected, err := s.Q.DeletePart(ctx, id)
	if err != nil {
		return fmt.Errorf("delete part: %w", err)
	}
	if affected == 0 {
		return common.NotFound("part")
	}
	s.invalidate(ctx, id)
	return nil
}

// BulkAdjustPrices shifts the stored base price of every part matching the
// selection. Adjusted prices are rounded to cents and floored at zero; the
// rule engine is unaffected since it reads prices at resolution time.
func (s *Service) BulkAdjustPrices(ctx context.Context, in BulkAdjustInput) (BulkAdjustResult, error) {
	in.Direction = strings.ToLower(strings.TrimSpace(in.Direction))
	in.AmountType = strings.ToLower(strings.TrimSpace(in.AmountType))
	if s.Validate != nil {
		if err := s.Validate.Struct(in); err != nil {
			return BulkAdjustResult{}, common.NewAppError("BAD_REQUEST", err.Error(), http.StatusBadRequest, err)
		}
	}
	matched, err := s.Q.ListParts(ctx, db.ListPartsParams{
		Make:        optionalString(in.Make),
		Model:       optionalString(in.Model),
		Category:    optionalString(in.Category),
		LimitValue:  math.MaxInt32,
		OffsetValue: 0,
	})
	if err != nil {
		return BulkAdjustResult{}, fmt.Errorf("list parts for adjust: %w", err)
	}
	result := BulkAdjustResult{Matched: len(matched)}
	at := s.now()
	touched := make([]string, 0, len(matched))
	for _, part := range matched {
		next := adjustPrice(part.Price, in)
		if next == part.Price {
			continue
		}
		if err := s.Q.UpdatePartPrice(ctx, part.ID, next, at); err != nil {
			return result, fmt.Errorf("update price for %s: %w", part.ID, err)
		}
		result.Updated++
		touched = append(touched, part.ID)
	}
	s.invalidate(ctx, touched...)
	return result, nil
}

func adjustPrice(price float64, in BulkAdjustInput) float64 {
	delta := in.Amount
	if in.AmountType == "percent" {
		delta = price * in.Amount / 100
	}
	if in.Direction == "decrease" {
		delta = -delta
	}
	next := math.Round((price+delta)*100) / 100
	if next < 0 {
		next = 0
	}
	return next
}

func (s *Service) checkInput(in *Input) error {
	in.Title = strings.TrimSpace(in.Title)
	in.Make = strings.TrimSpace(in.Make)
	in.Model = strings.TrimSpace(in.Model)
	in.Category = strings.TrimSpace(in.Category)
	in.PricePer = strings.ToLower(strings.TrimSpace(in.PricePer))
	if in.PricePer == "" {
		in.PricePer = pricing.PerLot
	}
	if in.PricePer != pricing.PerLot && in.PricePer != pricing.PerItem {
		return common.BadRequest("price_per", "price_per must be lot or item", nil)
	}
	if in.Quantity < 1 {
		in.Quantity = 1
	}
	if in.VIN != nil {
		vin := strings.ToUpper(strings.TrimSpace(*in.VIN))
		if vin == "" {
			in.VIN = nil
		} else {
			in.VIN = &vin
		}
	}
	if s.Validate != nil {
		if err := s.Validate.Struct(in); err != nil {
			return common.NewAppError("BAD_REQUEST", err.Error(), http.StatusBadRequest, err)
		}
	}
	return nil
}

func (s *Service) invalidate(ctx context.Context, ids ...string) {
	if s.Invalidator != nil {
		s.Invalidator.InvalidateListing(ctx, ids...)
	}
}

func optionalString(value string) *string {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
