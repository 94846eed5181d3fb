package preset

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/art-solutions/nanobana-gen/modules/common/apperr"
	"github.com/art-solutions/nanobana-gen/modules/common/model"
)

// Store - persistence for named locale presets. Name uniqueness is enforced
// by the store itself, not by a lookup in the caller, so concurrent creates
// of the same name leave exactly one winner.
type Store interface {
	Create(ctx context.Context, p *model.Preset) error
	Update(ctx context.Context, name string, cfg model.LocaleConfig) (*model.Preset, error)
	Delete(ctx context.Context, name string) error
	GetByName(ctx context.Context, name string) (*model.Preset, error)
	GetByID(ctx context.Context, id string) (*model.Preset, error)
	List(ctx context.Context) ([]model.PresetSummary, error)
	NameAvailable(ctx context.Context, name string) (bool, error)
}

var _ Store = (*MemoryStore)(nil)

// MemoryStore keeps presets in a mutex-guarded map keyed by name. Values are
// copied on the way in and out so callers can never mutate stored state.
type MemoryStore struct {
	mu      sync.RWMutex
	presets map[string]model.Preset
}

// NewMemoryStore - empty in-memory preset store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		presets: make(map[string]model.Preset),
	}
}

func (s *MemoryStore) Create(ctx context.Context, p *model.Preset) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.presets[p.Name]; exists {
		return fmt.Errorf("%w: preset %q already exists", apperr.ErrDuplicateName, p.Name)
	}

	s.presets[p.Name] = clonePreset(*p)
	return nil
}

func (s *MemoryStore) Update(ctx context.Context, name string, cfg model.LocaleConfig) (*model.Preset, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored, exists := s.presets[name]
	if !exists {
		return nil, apperr.NotFoundf("preset %q not found", name)
	}

	stored.Config = cloneConfig(cfg)
	stored.UpdatedAt = time.Now().UTC()
	s.presets[name] = stored

	out := clonePreset(stored)
	return &out, nil
}

func (s *MemoryStore) Delete(ctx context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.presets[name]; !exists {
		return apperr.NotFoundf("preset %q not found", name)
	}

	delete(s.presets, name)
	return nil
}

func (s *MemoryStore) GetByName(ctx context.Context, name string) (*model.Preset, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stored, exists := s.presets[name]
	if !exists {
		return nil, apperr.NotFoundf("preset %q not found", name)
	}

	out := clonePreset(stored)
	return &out, nil
}

func (s *MemoryStore) GetByID(ctx context.Context, id string) (*model.Preset, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, stored := range s.presets {
		if stored.ID == id {
			out := clonePreset(stored)
			return &out, nil
		}
	}

	return nil, apperr.NotFoundf("preset with id %q not found", id)
}

// List - newest first, name ascending on equal timestamps.
func (s *MemoryStore) List(ctx context.Context) ([]model.PresetSummary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	summaries := make([]model.PresetSummary, 0, len(s.presets))
	for _, stored := range s.presets {
		summaries = append(summaries, model.PresetSummary{
			ID:           stored.ID,
			Name:         stored.Name,
			TargetLocale: stored.Config.TargetLocale,
			CreatedAt:    stored.CreatedAt,
			UpdatedAt:    stored.UpdatedAt,
		})
	}

	sort.Slice(summaries, func(i, j int) bool {
		if summaries[i].CreatedAt.Equal(summaries[j].CreatedAt) {
			return summaries[i].Name < summaries[j].Name
		}
		return summaries[i].CreatedAt.After(summaries[j].CreatedAt)
	})

	return summaries, nil
}

func (s *MemoryStore) NameAvailable(ctx context.Context, name string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	_, exists := s.presets[name]
	return !exists, nil
}

func clonePreset(p model.Preset) model.Preset {
	p.Config = cloneConfig(p.Config)
	return p
}

func cloneConfig(cfg model.LocaleConfig) model.LocaleConfig {
	if cfg.LogoData != nil {
		logo := make([]byte, len(cfg.LogoData))
		copy(logo, cfg.LogoData)
		cfg.LogoData = logo
	}
	return cfg
}
