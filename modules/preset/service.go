package preset

import (
	"context"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/art-solutions/nanobana-gen/modules/common/apperr"
	"github.com/art-solutions/nanobana-gen/modules/common/model"
)

// Service - business rules for preset CRUD. Validation happens here, storage
// atomicity (unique names) happens in the store.
type Service struct {
	store Store
}

// NewService - preset service over the given store.
func NewService(store Store) *Service {
	return &Service{store: store}
}

// CreatePreset - validate, assign identity and timestamps, persist.
func (s *Service) CreatePreset(ctx context.Context, req CreatePresetRequest) (*model.Preset, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, apperr.Validationf("preset name is required")
	}
	if len(name) > 100 {
		return nil, apperr.Validationf("preset name must be 100 characters or fewer")
	}
	if strings.Contains(name, "/") {
		return nil, apperr.Validationf("preset name must not contain '/'")
	}

	if err := req.Config.Validate(); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	p := &model.Preset{
		ID:        uuid.New().String(),
		Name:      name,
		Config:    req.Config,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.store.Create(ctx, p); err != nil {
		return nil, err
	}

	log.Printf("🎯 Preset registered: %s (locale=%s)", p.Name, p.Config.TargetLocale)
	return p, nil
}

// GetPreset - lookup by name.
func (s *Service) GetPreset(ctx context.Context, name string) (*model.Preset, error) {
	if name == "" {
		return nil, apperr.Validationf("preset name is required")
	}
	return s.store.GetByName(ctx, name)
}

// GetPresetByID - lookup by id.
func (s *Service) GetPresetByID(ctx context.Context, id string) (*model.Preset, error) {
	if id == "" {
		return nil, apperr.Validationf("preset id is required")
	}
	return s.store.GetByID(ctx, id)
}

// UpdatePreset - replace the stored config. Existing jobs keep their snapshot.
func (s *Service) UpdatePreset(ctx context.Context, name string, cfg model.LocaleConfig) (*model.Preset, error) {
	if name == "" {
		return nil, apperr.Validationf("preset name is required")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	updated, err := s.store.Update(ctx, name, cfg)
	if err != nil {
		return nil, err
	}

	log.Printf("🔄 Preset updated: %s (locale=%s)", updated.Name, updated.Config.TargetLocale)
	return updated, nil
}

// DeletePreset - remove by name. Jobs that snapshotted this preset are
// unaffected.
func (s *Service) DeletePreset(ctx context.Context, name string) error {
	if name == "" {
		return apperr.Validationf("preset name is required")
	}
	return s.store.Delete(ctx, name)
}

// ListPresets - summaries of every preset, newest first.
func (s *Service) ListPresets(ctx context.Context) ([]model.PresetSummary, error) {
	return s.store.List(ctx)
}

// IsNameAvailable - availability probe for the create form. The answer is
// advisory; Create still enforces uniqueness atomically.
func (s *Service) IsNameAvailable(ctx context.Context, name string) (bool, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return false, apperr.Validationf("preset name is required")
	}
	return s.store.NameAvailable(ctx, name)
}
