// Package settings stores the job on/off switches in system_settings.
package settings

import (
	"context"
	"encoding/json"
	"sort"
	"strings"
	"time"

	"gorm.io/datatypes"

	"pricing/internal/models"
	"pricing/internal/repository"
)

const (
	Prefix = "feature."

	FeaturePriceBatch         = "feature.price_batch"
	FeatureElasticityTraining = "feature.elasticity_training"
	FeatureDemandTraining     = "feature.demand_training"
	FeatureMonitoring         = "feature.monitoring"
	FeatureFeatureETL         = "feature.feature_etl"
)

type switchDefault struct {
	enabled     bool
	description string
}

var defaults = map[string]switchDefault{
	FeaturePriceBatch:         {true, "nightly price suggestions for every key on the latest feature date"},
	FeatureElasticityTraining: {true, "weekly log-log elasticity refit over the full order history"},
	FeatureDemandTraining:     {true, "weekly demand model retrain from sku_features_daily"},
	FeatureMonitoring:         {true, "daily demand error, elasticity drift and coverage metrics"},
	FeatureFeatureETL:         {true, "daily sku_features_daily materialization"},
}

// Switch is the API view of one stored switch.
type Switch struct {
	Name        string    `json:"name"`
	Key         string    `json:"key"`
	Enabled     bool      `json:"enabled"`
	Description string    `json:"description,omitempty"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Known reports whether key names a switch this service defines.
func Known(key string) bool {
	_, ok := defaults[key]
	return ok
}

// KeyFor maps a switch name ("price_batch") to its setting key.
func KeyFor(name string) string {
	name = strings.TrimSpace(name)
	if strings.HasPrefix(name, Prefix) {
		return name
	}
	return Prefix + name
}

type Switches struct {
	Repo repository.SystemSettingRepository
}

// EnsureDefaults writes any missing switch with its default value. Existing
// values are left alone so an operator's OFF survives restarts.
func (s *Switches) EnsureDefaults(ctx context.Context) error {
	if s == nil || s.Repo == nil {
		return nil
	}
	now := time.Now().UTC()
	for _, key := range sortedKeys() {
		existing, err := s.Repo.GetSystemSettingByKey(ctx, key)
		if err != nil {
			return err
		}
		if existing != nil {
			continue
		}
		def := defaults[key]
		raw, _ := json.Marshal(def.enabled)
		item := &models.SystemSetting{
			Key:         key,
			Value:       datatypes.JSON(raw),
			Description: def.description,
			CreatedAt:   now,
			UpdatedAt:   now,
		}
		if err := s.Repo.UpsertSystemSetting(ctx, item); err != nil {
			return err
		}
	}
	return nil
}

// IsEnabled reads key, falling back to its default (or fallback for unknown
// keys) when the row is missing or unreadable.
func (s *Switches) IsEnabled(ctx context.Context, key string, fallback bool) bool {
	key = strings.TrimSpace(key)
	if def, ok := defaults[key]; ok {
		fallback = def.enabled
	}
	if s == nil || s.Repo == nil || key == "" {
		return fallback
	}
	item, err := s.Repo.GetSystemSettingByKey(ctx, key)
	if err != nil || item == nil || len(item.Value) == 0 {
		return fallback
	}
	var enabled bool
	if err := json.Unmarshal(item.Value, &enabled); err != nil {
		return fallback
	}
	return enabled
}

func (s *Switches) SetEnabled(ctx context.Context, key string, enabled bool) (Switch, error) {
	key = strings.TrimSpace(key)
	now := time.Now().UTC()
	out := Switch{Name: strings.TrimPrefix(key, Prefix), Key: key, Enabled: enabled, Description: defaults[key].description, UpdatedAt: now}
	if s == nil || s.Repo == nil {
		return out, nil
	}
	raw, _ := json.Marshal(enabled)
	item := &models.SystemSetting{
		Key:         key,
		Value:       datatypes.JSON(raw),
		Description: out.Description,
		UpdatedAt:   now,
	}
	return out, s.Repo.UpsertSystemSetting(ctx, item)
}

// List returns every stored switch ordered by key.
func (s *Switches) List(ctx context.Context) ([]Switch, error) {
	if s == nil || s.Repo == nil {
		return nil, nil
	}
	prefix := Prefix
	asc := true
	items, err := s.Repo.ListSystemSettings(ctx, repository.ListSystemSettingsParams{
		Limit:   200,
		Prefix:  &prefix,
		OrderBy: "setting_key",
		Asc:     &asc,
	})
	if err != nil {
		return nil, err
	}
	out := make([]Switch, 0, len(items))
	for _, it := range items {
		enabled := false
		_ = json.Unmarshal(it.Value, &enabled)
		out = append(out, Switch{
			Name:        strings.TrimPrefix(it.Key, Prefix),
			Key:         it.Key,
			Enabled:     enabled,
			Description: it.Description,
			UpdatedAt:   it.UpdatedAt,
		})
	}
	return out, nil
}

func sortedKeys() []string {
	out := make([]string, 0, len(defaults))
	for k := range defaults {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
