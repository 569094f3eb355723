package vindecode

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/atlasparts/backend-parts/internal/obs"
	"github.com/atlasparts/backend-parts/internal/resilience"
)

// ErrInvalidVIN is returned before any network call when the VIN fails the
// checksum-free shape test (17 chars, no I/O/Q).
var ErrInvalidVIN = errors.New("vindecode: invalid vin")

// ErrDecodeUnavailable wraps transport failures, including an open breaker.
var ErrDecodeUnavailable = errors.New("vindecode: decode service unavailable")

var vinShape = regexp.MustCompile(`^[A-HJ-NPR-Z0-9]{17}$`)

// Result carries the vehicle attributes extracted from a decode response.
type Result struct {
	VIN    string `json:"vin"`
	Make   string `json:"make"`
	Model  string `json:"model"`
	Year   int    `json:"year"`
	Trim   string `json:"trim"`
	Engine string `json:"engine"`
}

// Decoder models a VIN decoding backend.
type Decoder interface {
	Decode(ctx context.Context, vin string) (Result, error)
}

// Client decodes VINs against the NHTSA vPIC flat-format endpoint.
type Client struct {
	baseURL string
	http    resilience.HTTPClient
}

// Config groups Client construction parameters.
type Config struct {
	BaseURL     string
	HTTPClient  *http.Client
	Breaker     *resilience.Breaker
	Timeout     time.Duration
	MaxAttempts int
}

// NewClient constructs a vPIC decode client.
func NewClient(cfg Config) *Client {
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		http: resilience.HTTPClient{
			Client:      httpClient,
			Breaker:     cfg.Breaker,
			Timeout:     cfg.Timeout,
			MaxAttempts: cfg.MaxAttempts,
			BaseBackoff: 200 * time.Millisecond,
			Jitter:      0.2,
		},
	}
}

// NormalizeVIN uppercases and trims a raw VIN.
func NormalizeVIN(vin string) string {
	return strings.ToUpper(strings.TrimSpace(vin))
}

// ValidVIN reports whether the VIN has a plausible shape.
func ValidVIN(vin string) bool {
	return vinShape.MatchString(NormalizeVIN(vin))
}

type vpicResponse struct {
	Results []map[string]string `json:"Results"`
}

// Decode fetches vehicle attributes for a VIN.
func (c *Client) Decode(ctx context.Context, vin string) (Result, error) {
	vin = NormalizeVIN(vin)
	if !ValidVIN(vin) {
		recordDecode("invalid")
		return Result{}, ErrInvalidVIN
	}
	endpoint := fmt.Sprintf("%s/vehicles/DecodeVinValues/%s?format=json", c.baseURL, url.PathEscape(vin))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return Result{}, fmt.Errorf("vindecode: build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(ctx, req)
	if err != nil {
		recordDecode("error")
		return Result{}, fmt.Errorf("%w: %v", ErrDecodeUnavailable, err)
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		recordDecode("error")
		return Result{}, fmt.Errorf("%w: status %s", ErrDecodeUnavailable, resp.Status)
	}

	var payload vpicResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		recordDecode("error")
		return Result{}, fmt.Errorf("vindecode: decode response: %w", err)
	}
	if len(payload.Results) == 0 {
		recordDecode("empty")
		return Result{}, fmt.Errorf("vindecode: empty result for %s", vin)
	}
	result := fromFlatResult(vin, payload.Results[0])
	recordDecode("ok")
	return result, nil
}

func fromFlatResult(vin string, row map[string]string) Result {
	result := Result{
		VIN:   vin,
		Make:  titleCase(row["Make"]),
		Model: strings.TrimSpace(row["Model"]),
		Trim:  strings.TrimSpace(row["Trim"]),
	}
	if year, err := strconv.Atoi(strings.TrimSpace(row["ModelYear"])); err == nil {
		result.Year = year
	}
	engine := strings.TrimSpace(row["EngineModel"])
	if disp := strings.TrimSpace(row["DisplacementL"]); disp != "" {
		if engine != "" {
			engine += " "
		}
		engine += disp + "L"
	}
	result.Engine = engine
	return result
}

// titleCase tames the all-caps make names vPIC returns ("TOYOTA" -> "Toyota").
func titleCase(s string) string {
	s = strings.TrimSpace(s)
	words := strings.Fields(strings.ToLower(s))
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}

func recordDecode(result string) {
	if obs.VinDecodeTotal == nil {
		return
	}
	obs.VinDecodeTotal.WithLabelValues(result).Inc()
}

// Mock returns deterministic decode results for testing and development.
type Mock struct {
	Result Result
	Err    error
}

// Decode returns the canned result regardless of the VIN.
func (m Mock) Decode(ctx context.Context, vin string) (Result, error) {
	if m.Err != nil {
		return Result{}, m.Err
	}
	out := m.Result
	if out.VIN == "" {
		out.VIN = NormalizeVIN(vin)
	}
	return out, nil
}
