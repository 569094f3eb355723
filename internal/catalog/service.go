package catalog

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/atlasparts/backend-parts/internal/common"
	"github.com/atlasparts/backend-parts/internal/db"
	"github.com/atlasparts/backend-parts/internal/pricing"
	"github.com/atlasparts/backend-parts/internal/rules"
)

type queryProvider interface {
	CountParts(ctx context.Context, arg db.ListPartsParams) (int64, error)
	ListParts(ctx context.Context, arg db.ListPartsParams) ([]db.Part, error)
	GetPartByID(ctx context.Context, id string) (db.Part, error)
	ListPartsByVIN(ctx context.Context, vin string) ([]db.Part, error)
	ListActivePriceRules(ctx context.Context) ([]db.PriceRule, error)
}

// Service orchestrates storefront queries, price decoration, and caching.
type Service struct {
	queries      queryProvider
	cache        *Cache
	defaultPage  int
	defaultLimit int
	maxLimit     int
	relatedLimit int
}

// ServiceConfig groups Service dependencies.
type ServiceConfig struct {
	Queries      queryProvider
	Cache        *Cache
	DefaultPage  int
	DefaultLimit int
	MaxLimit     int
	RelatedLimit int
}

// ListParams captures filters for part listing.
type ListParams struct {
	Query    string
	Make     string
	Model    string
	Year     *int
	Category string
	MinPrice *float64
	MaxPrice *float64
	InStock  *bool
	Sort     string
	Page     int
	Limit    int
}

// PartListItem represents an entry in list/related responses. Price is the
// rule-adjusted lot price; CompareAt carries the undiscounted lot price when
// a discount applied.
type PartListItem struct {
	ID        string   `json:"id"`
	Title     string   `json:"title"`
	Make      string   `json:"make"`
	Model     string   `json:"model"`
	Year      int      `json:"year"`
	Category  string   `json:"category"`
	Price     float64  `json:"price"`
	ItemPrice float64  `json:"itemPrice"`
	CompareAt *float64 `json:"compareAt,omitempty"`
	Quantity  int      `json:"quantity"`
	PricePer  string   `json:"pricePer"`
	InStock   bool     `json:"inStock"`
	Thumbnail *string  `json:"thumbnail,omitempty"`
	Badges    []string `json:"badges"`
}

// PartDetail aggregates the full part payload.
type PartDetail struct {
	PartListItem
	Description string         `json:"description"`
	VIN         *string        `json:"vin,omitempty"`
	Photos      []string       `json:"photos"`
	Related     []PartListItem `json:"related"`
}

// PartListResult contains list data and pagination metadata.
type PartListResult struct {
	Items []PartListItem
	Total int64
	Page  int
	Limit int
}

// NewService constructs a Service instance.
func NewService(cfg ServiceConfig) (*Service, error) {
	if cfg.Queries == nil {
		return nil, errors.New("catalog: queries provider is required")
	}
	defaultPage := cfg.DefaultPage
	if defaultPage < 1 {
		defaultPage = 1
	}
	defaultLimit := cfg.DefaultLimit
	if defaultLimit < 1 {
		defaultLimit = 20
	}
	maxLimit := cfg.MaxLimit
	if maxLimit < 1 {
		maxLimit = 100
	}
	if defaultLimit > maxLimit {
		defaultLimit = maxLimit
	}
	relatedLimit := cfg.RelatedLimit
	if relatedLimit < 1 {
		relatedLimit = 8
	}
	return &Service{
		queries:      cfg.Queries,
		cache:        cfg.Cache,
		defaultPage:  defaultPage,
		defaultLimit: defaultLimit,
		maxLimit:     maxLimit,
		relatedLimit: relatedLimit,
	}, nil
}

// ParseListParams normalises raw query values into strongly typed filters.
func (s *Service) ParseListParams(values url.Values) (ListParams, error) {
	params := ListParams{
		Page:  s.defaultPage,
		Limit: s.defaultLimit,
	}
	params.Query = strings.TrimSpace(values.Get("q"))
	params.Make = strings.TrimSpace(values.Get("make"))
	params.Model = strings.TrimSpace(values.Get("model"))
	params.Category = strings.TrimSpace(values.Get("category"))

	if v := strings.TrimSpace(values.Get("year")); v != "" {
		year, err := strconv.Atoi(v)
		if err != nil || year < 1900 {
			return params, common.BadRequest("year", "year must be a valid model year", err)
		}
		params.Year = &year
	}

	if v := strings.TrimSpace(values.Get("page")); v != "" {
		page, err := strconv.Atoi(v)
		if err != nil || page < 1 {
			return params, common.BadRequest("page", "page must be a positive integer", err)
		}
		params.Page = page
	}

	limit := s.defaultLimit
	if v := strings.TrimSpace(values.Get("limit")); v != "" {
		l, err := strconv.Atoi(v)
		if err != nil || l < 1 {
			return params, common.BadRequest("limit", "limit must be a positive integer", err)
		}
		limit = l
	}
	if limit > s.maxLimit {
		limit = s.maxLimit
	}
	params.Limit = limit

	if v := strings.TrimSpace(values.Get("minPrice")); v != "" {
		parsed, err := strconv.ParseFloat(v, 64)
		if err != nil || parsed < 0 {
			return params, common.BadRequest("minPrice", "minPrice must be a non-negative number", err)
		}
		params.MinPrice = &parsed
	}
	if v := strings.TrimSpace(values.Get("maxPrice")); v != "" {
		parsed, err := strconv.ParseFloat(v, 64)
		if err != nil || parsed < 0 {
			return params, common.BadRequest("maxPrice", "maxPrice must be a non-negative number", err)
		}
		params.MaxPrice = &parsed
	}
	if params.MinPrice != nil && params.MaxPrice != nil && *params.MinPrice > *params.MaxPrice {
		return params, common.BadRequest("price", "minPrice cannot be greater than maxPrice", fmt.Errorf("invalid price range"))
	}

	if v := strings.TrimSpace(values.Get("inStock")); v != "" {
		b, err := parseBool(v)
		if err != nil {
			return params, common.BadRequest("inStock", "inStock must be true or false", err)
		}
		params.InStock = &b
	}

	params.Sort = normalizeSort(values.Get("sort"))
	return params, nil
}

// ListParts returns a filtered part list with rule-adjusted prices and
// pagination metadata.
func (s *Service) ListParts(ctx context.Context, params ListParams) (PartListResult, error) {
	key, shouldUseCache := s.listCacheKey(params)
	if shouldUseCache {
		var cached cachedList
		ok, err := s.cache.GetJSON(ctx, key, &cached)
		if err == nil && ok {
			return PartListResult{Items: cached.Items, Total: cached.Total, Page: params.Page, Limit: params.Limit}, nil
		}
	}

	filter := db.ListPartsParams{
		Query:    optionalString(params.Query),
		Make:     optionalString(params.Make),
		Model:    optionalString(params.Model),
		Year:     params.Year,
		Category: optionalString(params.Category),
		MinPrice: params.MinPrice,
		MaxPrice: params.MaxPrice,
		InStock:  params.InStock,
	}
	total, err := s.queries.CountParts(ctx, filter)
	if err != nil {
		return PartListResult{}, fmt.Errorf("count parts: %w", err)
	}
	offset := int32((params.Page - 1) * params.Limit)
	if offset < 0 {
		offset = 0
	}
	filter.Sort = params.Sort
	filter.LimitValue = int32(params.Limit)
	filter.OffsetValue = offset
	parts, err := s.queries.ListParts(ctx, filter)
	if err != nil {
		return PartListResult{}, fmt.Errorf("list parts: %w", err)
	}
	active, err := s.queries.ListActivePriceRules(ctx)
	if err != nil {
		return PartListResult{}, fmt.Errorf("list active rules: %w", err)
	}
	engineRules := rules.ToEngineRules(active)
	items := make([]PartListItem, 0, len(parts))
	for _, part := range parts {
		items = append(items, s.decorate(part, engineRules))
	}
	result := PartListResult{Items: items, Total: total, Page: params.Page, Limit: params.Limit}
	if shouldUseCache {
		_ = s.cache.SetJSON(ctx, key, cachedList{Items: items, Total: total})
	}
	return result, nil
}

// GetPartDetail returns a single part with photos, adjusted pricing, and
// related parts from the same donor vehicle.
func (s *Service) GetPartDetail(ctx context.Context, id string) (PartDetail, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return PartDetail{}, common.BadRequest("id", "id is required", nil)
	}
	cacheKey := detailCacheKey(id)
	if s.cache != nil {
		var cached PartDetail
		ok, err := s.cache.GetJSON(ctx, cacheKey, &cached)
		if err == nil && ok {
			return cached, nil
		}
	}
	part, err := s.queries.GetPartByID(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return PartDetail{}, common.NotFound("part")
		}
		return PartDetail{}, fmt.Errorf("get part: %w", err)
	}
	active, err := s.queries.ListActivePriceRules(ctx)
	if err != nil {
		return PartDetail{}, fmt.Errorf("list active rules: %w", err)
	}
	engineRules := rules.ToEngineRules(active)
	detail := PartDetail{
		PartListItem: s.decorate(part, engineRules),
		Description:  part.Description,
		VIN:          part.VIN,
		Photos:       part.PhotoKeys,
	}
	if detail.Photos == nil {
		detail.Photos = []string{}
	}
	related, err := s.relatedParts(ctx, part, engineRules)
	if err != nil {
		return PartDetail{}, err
	}
	detail.Related = related
	if s.cache != nil {
		_ = s.cache.SetJSON(ctx, cacheKey, detail)
	}
	return detail, nil
}

// ListRelatedParts fetches parts pulled from the same donor vehicle, or the
// same make/model when the part has no VIN.
func (s *Service) ListRelatedParts(ctx context.Context, id string) ([]PartListItem, error) {
	part, err := s.queries.GetPartByID(ctx, strings.TrimSpace(id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, common.NotFound("part")
		}
		return nil, fmt.Errorf("get part: %w", err)
	}
	active, err := s.queries.ListActivePriceRules(ctx)
	if err != nil {
		return nil, fmt.Errorf("list active rules: %w", err)
	}
	return s.relatedParts(ctx, part, rules.ToEngineRules(active))
}

// InvalidateListing drops the cached default listing. Admin mutations call
// this so price or stock changes show up without waiting out the TTL.
func (s *Service) InvalidateListing(ctx context.Context, partIDs ...string) {
	keys := []string{defaultListKey}
	for _, id := range partIDs {
		if id != "" {
			keys = append(keys, detailCacheKey(id))
		}
	}
	_ = s.cache.Invalidate(ctx, keys...)
}

func (s *Service) relatedParts(ctx context.Context, part db.Part, engineRules []pricing.Rule) ([]PartListItem, error) {
	var (
		candidates []db.Part
		err        error
	)
	if part.VIN != nil && strings.TrimSpace(*part.VIN) != "" {
		candidates, err = s.queries.ListPartsByVIN(ctx, *part.VIN)
	} else {
		candidates, err = s.queries.ListParts(ctx, db.ListPartsParams{
			Make:        optionalString(part.Make),
			Model:       optionalString(part.Model),
			LimitValue:  int32(s.relatedLimit + 1),
			OffsetValue: 0,
		})
	}
	if err != nil {
		return nil, fmt.Errorf("list related parts: %w", err)
	}
	items := make([]PartListItem, 0, len(candidates))
	for _, candidate := range candidates {
		if candidate.ID == part.ID {
			continue
		}
		items = append(items, s.decorate(candidate, engineRules))
		if len(items) == s.relatedLimit {
			break
		}
	}
	return items, nil
}

// decorate runs the pricing engine over one part and shapes the public DTO.
func (s *Service) decorate(part db.Part, engineRules []pricing.Rule) PartListItem {
	res := pricing.Apply(rules.ToEnginePart(part), engineRules)
	rules.RecordResolution(res)
	item := PartListItem{
		ID:       part.ID,
		Title:    part.Title,
		Make:     part.Make,
		Model:    part.Model,
		Year:     part.Year,
		Category: part.Category,
		Price:    res.FinalPrice,
		Quantity: part.Quantity,
		PricePer: part.PricePer,
		InStock:  part.InStock,
		Badges:   []string{},
	}
	base := pricing.LotPrice(part.Price, part.Quantity, part.PricePer)
	qty := part.Quantity
	if qty < 1 {
		qty = 1
	}
	item.ItemPrice = res.FinalPrice / float64(qty)
	if res.HasDiscount {
		compareAt := base
		item.CompareAt = &compareAt
		item.Badges = append(item.Badges, "sale")
	}
	if res.HasMarkup {
		item.Badges = append(item.Badges, "markup")
	}
	if len(part.PhotoKeys) > 0 {
		thumb := part.PhotoKeys[0]
		item.Thumbnail = &thumb
	}
	return item
}

type cachedList struct {
	Items []PartListItem `json:"items"`
	Total int64          `json:"total"`
}

const defaultListKey = "catalog:parts:list:default"

func (s *Service) listCacheKey(params ListParams) (string, bool) {
	if s.cache == nil {
		return "", false
	}
	if params.Page != s.defaultPage || params.Limit != s.defaultLimit {
		return "", false
	}
	if params.Query != "" || params.Make != "" || params.Model != "" || params.Year != nil ||
		params.Category != "" || params.MinPrice != nil || params.MaxPrice != nil ||
		params.InStock != nil || params.Sort != "" {
		return "", false
	}
	return defaultListKey, true
}

func detailCacheKey(id string) string {
	return "catalog:parts:detail:" + id
}

func optionalString(value string) *string {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

func parseBool(value string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "true", "1", "yes", "y":
		return true, nil
	case "false", "0", "no", "n":
		return false, nil
	default:
		return false, fmt.Errorf("invalid boolean: %s", value)
	}
}

func normalizeSort(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	switch s {
	case "price:asc", "price:desc", "title:asc", "title:desc":
		return s
	default:
		return ""
	}
}
