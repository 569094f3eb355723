package vehicles

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/atlasparts/backend-parts/internal/common"
	"github.com/atlasparts/backend-parts/internal/db"
	"github.com/atlasparts/backend-parts/pkg/vindecode"
)

// Querier captures the database methods required by the vehicles service.
type Querier interface {
	ListVehicles(ctx context.Context, limit, offset int32) ([]db.Vehicle, error)
	CountVehicles(ctx context.Context) (int64, error)
	GetVehicleByVIN(ctx context.Context, vin string) (db.Vehicle, error)
	CreateVehicle(ctx context.Context, arg db.CreateVehicleParams) (db.Vehicle, error)
	UpdateVehicle(ctx context.Context, arg db.UpdateVehicleParams) (db.Vehicle, error)
	DeleteVehicle(ctx context.Context, vin string) (int64, error)
	ListPartsByVIN(ctx context.Context, vin string) ([]db.Part, error)
}

// Input is the create/update payload for a donor vehicle.
type Input struct {
	VIN           string  `json:"vin" validate:"required"`
	Make          string  `json:"make" validate:"required,max=60"`
	Model         string  `json:"model" validate:"required,max=60"`
	Year          int     `json:"year" validate:"required,min=1900"`
	Trim          string  `json:"trim"`
	Engine        string  `json:"engine"`
	AcquiredPrice float64 `json:"acquired_price" validate:"gte=0"`
	Notes         string  `json:"notes"`
}

// Detail is a vehicle together with the parts pulled from it.
type Detail struct {
	db.Vehicle
	Parts []db.Part `json:"parts"`
}

// Service manages donor vehicle CRUD and decode-assisted intake.
type Service struct {
	Q        Querier
	Decoder  vindecode.Decoder
	Validate *validator.Validate
}

// List returns a page of vehicles with the total count.
func (s *Service) List(ctx context.Context, limit, offset int32) ([]db.Vehicle, int64, error) {
	if s == nil || s.Q == nil {
		return nil, 0, errors.New("vehicles service not configured")
	}
	total, err := s.Q.CountVehicles(ctx)
	if err != nil {
		return nil, 0, fmt.Errorf("count vehicles: %w", err)
	}
	items, err := s.Q.ListVehicles(ctx, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list vehicles: %w", err)
	}
	return items, total, nil
}

// Get fetches a vehicle by VIN along with its parts.
func (s *Service) Get(ctx context.Context, vin string) (Detail, error) {
	vin = vindecode.NormalizeVIN(vin)
	vehicle, err := s.Q.GetVehicleByVIN(ctx, vin)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Detail{}, common.NotFound("vehicle")
		}
		return Detail{}, fmt.Errorf("get vehicle: %w", err)
	}
	parts, err := s.Q.ListPartsByVIN(ctx, vehicle.VIN)
	if err != nil {
		return Detail{}, fmt.Errorf("list vehicle parts: %w", err)
	}
	if parts == nil {
		parts = []db.Part{}
	}
	return Detail{Vehicle: vehicle, Parts: parts}, nil
}

// Create validates and stores a vehicle.
func (s *Service) Create(ctx context.Context, in Input) (db.Vehicle, error) {
	if err := s.checkInput(&in); err != nil {
		return db.Vehicle{}, err
	}
	vehicle, err := s.Q.CreateVehicle(ctx, db.CreateVehicleParams{
		ID:            uuid.NewString(),
		VIN:           in.VIN,
		Make:          in.Make,
		Model:         in.Model,
		Year:          in.Year,
		Trim:          in.Trim,
		Engine:        in.Engine,
		AcquiredPrice: in.AcquiredPrice,
		Notes:         in.Notes,
	})
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return db.Vehicle{}, common.NewAppError("CONFLICT", "vehicle with this VIN already exists", http.StatusConflict, err)
		}
		return db.Vehicle{}, fmt.Errorf("create vehicle: %w", err)
	}
	return vehicle, nil
}

// Update replaces a vehicle identified by VIN.
func (s *Service) Update(ctx context.Context, vin string, in Input) (db.Vehicle, error) {
	in.VIN = vin
	if err := s.checkInput(&in); err != nil {
		return db.Vehicle{}, err
	}
	vehicle, err := s.Q.UpdateVehicle(ctx, db.UpdateVehicleParams{
		VIN:           in.VIN,
		Make:          in.Make,
		Model:         in.Model,
		Year:          in.Year,
		Trim:          in.Trim,
		Engine:        in.Engine,
		AcquiredPrice: in.AcquiredPrice,
		Notes:         in.Notes,
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return db.Vehicle{}, common.NotFound("vehicle")
		}
		return db.Vehicle{}, fmt.Errorf("update vehicle: %w", err)
	}
	return vehicle, nil
}

// Delete removes a vehicle by VIN. Parts referencing the VIN are kept; they
// carry their own copy of the donor attributes.
func (s *Service) Delete(ctx context.Context, vin string) error {
	affected, err := s.Q.DeleteVehicle(ctx, vindecode.NormalizeVIN(vin))
	if err != nil {
		return fmt.Errorf("delete vehicle: %w", err)
	}
	if affected == 0 {
		return common.NotFound("vehicle")
	}
	return nil
}

// DecodePrefill runs the external decode API and returns an intake payload
// pre-populated with the decoded attributes.
func (s *Service) DecodePrefill(ctx context.Context, vin string) (Input, error) {
	if s.Decoder == nil {
		return Input{}, common.NewAppError("UNAVAILABLE", "vin decoding is not configured", http.StatusServiceUnavailable, nil)
	}
	result, err := s.Decoder.Decode(ctx, vin)
	if err != nil {
		if errors.Is(err, vindecode.ErrInvalidVIN) {
			return Input{}, common.BadRequest("vin", "vin must be 17 characters without I, O or Q", err)
		}
		return Input{}, common.NewAppError("UNAVAILABLE", "vin decode service unavailable", http.StatusServiceUnavailable, err)
	}
	return Input{
		VIN:    result.VIN,
		Make:   result.Make,
		Model:  result.Model,
		Year:   result.Year,
		Trim:   result.Trim,
		Engine: result.Engine,
	}, nil
}

func (s *Service) checkInput(in *Input) error {
	in.VIN = vindecode.NormalizeVIN(in.VIN)
	in.Make = strings.TrimSpace(in.Make)
	in.Model = strings.TrimSpace(in.Model)
	in.Trim = strings.TrimSpace(in.Trim)
	in.Engine = strings.TrimSpace(in.Engine)
	if !vindecode.ValidVIN(in.VIN) {
		return common.BadRequest("vin", "vin must be 17 characters without I, O or Q", nil)
	}
	if s.Validate != nil {
		if err := s.Validate.Struct(in); err != nil {
			return common.NewAppError("BAD_REQUEST", err.Error(), http.StatusBadRequest, err)
		}
	}
	return nil
}
