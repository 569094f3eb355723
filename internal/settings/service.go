package settings

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/jackc/pgx/v5"

	"github.com/atlasparts/backend-parts/internal/common"
	"github.com/atlasparts/backend-parts/internal/db"
	"github.com/atlasparts/backend-parts/internal/obs"
)

// Querier is the subset of db.Queries the settings service needs. Backup
// pulls every table the storefront depends on.
type Querier interface {
	GetSetting(ctx context.Context, key string) (db.Setting, error)
	ListSettings(ctx context.Context) ([]db.Setting, error)
	UpsertSetting(ctx context.Context, key, value string) (db.Setting, error)
	DeleteSetting(ctx context.Context, key string) (int64, error)
	ListAllParts(ctx context.Context) ([]db.Part, error)
	ListAllVehicles(ctx context.Context) ([]db.Vehicle, error)
	ListAllExpenses(ctx context.Context) ([]db.Expense, error)
	ListPriceRules(ctx context.Context) ([]db.PriceRule, error)
}

// Input is the payload for creating or updating a setting.
type Input struct {
	Key   string `json:"key" validate:"required,max=100"`
	Value string `json:"value" validate:"max=10000"`
}

// Snapshot is a full JSON export of the store's data, used for manual
// backups before bulk edits.
type Snapshot struct {
	GeneratedAt time.Time      `json:"generated_at"`
	Parts       []db.Part      `json:"parts"`
	Vehicles    []db.Vehicle   `json:"vehicles"`
	PriceRules  []db.PriceRule `json:"price_rules"`
	Expenses    []db.Expense   `json:"expenses"`
	Settings    []db.Setting   `json:"settings"`
}

// Service manages site settings and backup snapshots.
type Service struct {
	Q        Querier
	Validate *validator.Validate
	Now      func() time.Time
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now().UTC()
}

// List returns all settings.
func (s *Service) List(ctx context.Context) ([]db.Setting, error) {
	if s.Q == nil {
		return nil, errors.New("settings: queries not configured")
	}
	out, err := s.Q.ListSettings(ctx)
	if err != nil {
		return nil, err
	}
	if out == nil {
		out = []db.Setting{}
	}
	return out, nil
}

// Get fetches a single setting by key.
func (s *Service) Get(ctx context.Context, key string) (db.Setting, error) {
	if s.Q == nil {
		return db.Setting{}, errors.New("settings: queries not configured")
	}
	setting, err := s.Q.GetSetting(ctx, strings.TrimSpace(key))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return db.Setting{}, common.NotFound("setting")
		}
		return db.Setting{}, err
	}
	return setting, nil
}

// Set creates or replaces a setting.
func (s *Service) Set(ctx context.Context, in Input) (db.Setting, error) {
	if s.Q == nil {
		return db.Setting{}, errors.New("settings: queries not configured")
	}
	in.Key = strings.ToLower(strings.TrimSpace(in.Key))
	if s.Validate != nil {
		if err := s.Validate.Struct(in); err != nil {
			return db.Setting{}, common.BadRequest("key", "key is required and at most 100 characters", err)
		}
	}
	if in.Key == "" {
		return db.Setting{}, common.BadRequest("key", "key is required", nil)
	}
	return s.Q.UpsertSetting(ctx, in.Key, in.Value)
}

// Delete removes a setting by key.
func (s *Service) Delete(ctx context.Context, key string) error {
	if s.Q == nil {
		return errors.New("settings: queries not configured")
	}
	affected, err := s.Q.DeleteSetting(ctx, strings.TrimSpace(key))
	if err != nil {
		return err
	}
	if affected == 0 {
		return common.NotFound("setting")
	}
	return nil
}

// Backup assembles a snapshot of all store data.
func (s *Service) Backup(ctx context.Context) (Snapshot, error) {
	if s.Q == nil {
		return Snapshot{}, errors.New("settings: queries not configured")
	}
	snap := Snapshot{GeneratedAt: s.now()}

	var err error
	if snap.Parts, err = s.Q.ListAllParts(ctx); err != nil {
		return Snapshot{}, err
	}
	if snap.Vehicles, err = s.Q.ListAllVehicles(ctx); err != nil {
		return Snapshot{}, err
	}
	if snap.PriceRules, err = s.Q.ListPriceRules(ctx); err != nil {
		return Snapshot{}, err
	}
	if snap.Expenses, err = s.Q.ListAllExpenses(ctx); err != nil {
		return Snapshot{}, err
	}
	if snap.Settings, err = s.Q.ListSettings(ctx); err != nil {
		return Snapshot{}, err
	}

	if snap.Parts == nil {
		snap.Parts = []db.Part{}
	}
	if snap.Vehicles == nil {
		snap.Vehicles = []db.Vehicle{}
	}
	if snap.PriceRules == nil {
		snap.PriceRules = []db.PriceRule{}
	}
	if snap.Expenses == nil {
		snap.Expenses = []db.Expense{}
	}
	if snap.Settings == nil {
		snap.Settings = []db.Setting{}
	}

	if obs.BackupSnapshotsTotal != nil {
		obs.BackupSnapshotsTotal.Inc()
	}
	return snap, nil
}
