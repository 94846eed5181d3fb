package preset

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sort"
	"strings"
	"time"

	"github.com/art-solutions/nanobana-gen/modules/common/apperr"
	"github.com/art-solutions/nanobana-gen/modules/common/database"
	"github.com/art-solutions/nanobana-gen/modules/common/model"
)

var _ Store = (*SupabaseStore)(nil)

// SupabaseStore persists presets in the nb_presets table. The table carries a
// UNIQUE constraint on name, so duplicate creates fail in the database even
// when two requests race.
type SupabaseStore struct {
	db *database.Client
}

// NewSupabaseStore - preset store over the shared database client.
func NewSupabaseStore(db *database.Client) *SupabaseStore {
	return &SupabaseStore{db: db}
}

func (s *SupabaseStore) Create(ctx context.Context, p *model.Preset) error {
	insertData := map[string]interface{}{
		"preset_id":   p.ID,
		"preset_name": p.Name,
		"config":      p.Config,
		"created_at":  p.CreatedAt.Format(time.RFC3339),
		"updated_at":  p.UpdatedAt.Format(time.RFC3339),
	}

	_, _, err := s.db.Supabase.From(database.PresetsTable).
		Insert(insertData, false, "", "", "").
		Execute()
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: preset %q already exists", apperr.ErrDuplicateName, p.Name)
		}
		return fmt.Errorf("failed to insert preset: %v", err)
	}

	log.Printf("✅ Preset created: %s (%s)", p.Name, p.ID)
	return nil
}

func (s *SupabaseStore) Update(ctx context.Context, name string, cfg model.LocaleConfig) (*model.Preset, error) {
	stored, err := s.GetByName(ctx, name)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	updateData := map[string]interface{}{
		"config":     cfg,
		"updated_at": now.Format(time.RFC3339),
	}

	_, _, err = s.db.Supabase.From(database.PresetsTable).
		Update(updateData, "", "").
		Eq("preset_name", name).
		Execute()
	if err != nil {
		return nil, fmt.Errorf("failed to update preset: %v", err)
	}

	stored.Config = cfg
	stored.UpdatedAt = now
	return stored, nil
}

func (s *SupabaseStore) Delete(ctx context.Context, name string) error {
	if _, err := s.GetByName(ctx, name); err != nil {
		return err
	}

	_, _, err := s.db.Supabase.From(database.PresetsTable).
		Delete("", "").
		Eq("preset_name", name).
		Execute()
	if err != nil {
		return fmt.Errorf("failed to delete preset: %v", err)
	}

	log.Printf("🗑️ Preset deleted: %s", name)
	return nil
}

func (s *SupabaseStore) GetByName(ctx context.Context, name string) (*model.Preset, error) {
	data, _, err := s.db.Supabase.From(database.PresetsTable).
		Select("*", "exact", false).
		Eq("preset_name", name).
		Execute()
	if err != nil {
		return nil, fmt.Errorf("failed to fetch preset: %v", err)
	}

	var presets []model.Preset
	if err := json.Unmarshal(data, &presets); err != nil {
		return nil, fmt.Errorf("failed to parse preset data: %v", err)
	}

	if len(presets) == 0 {
		return nil, apperr.NotFoundf("preset %q not found", name)
	}

	return &presets[0], nil
}

func (s *SupabaseStore) GetByID(ctx context.Context, id string) (*model.Preset, error) {
	data, _, err := s.db.Supabase.From(database.PresetsTable).
		Select("*", "exact", false).
		Eq("preset_id", id).
		Execute()
	if err != nil {
		return nil, fmt.Errorf("failed to fetch preset: %v", err)
	}

	var presets []model.Preset
	if err := json.Unmarshal(data, &presets); err != nil {
		return nil, fmt.Errorf("failed to parse preset data: %v", err)
	}

	if len(presets) == 0 {
		return nil, apperr.NotFoundf("preset with id %q not found", id)
	}

	return &presets[0], nil
}

func (s *SupabaseStore) List(ctx context.Context) ([]model.PresetSummary, error) {
	data, _, err := s.db.Supabase.From(database.PresetsTable).
		Select("*", "exact", false).
		Execute()
	if err != nil {
		return nil, fmt.Errorf("failed to list presets: %v", err)
	}

	var presets []model.Preset
	if err := json.Unmarshal(data, &presets); err != nil {
		return nil, fmt.Errorf("failed to parse preset data: %v", err)
	}

	summaries := make([]model.PresetSummary, 0, len(presets))
	for _, p := range presets {
		summaries = append(summaries, model.PresetSummary{
			ID:           p.ID,
			Name:         p.Name,
			TargetLocale: p.Config.TargetLocale,
			CreatedAt:    p.CreatedAt,
			UpdatedAt:    p.UpdatedAt,
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

func (s *SupabaseStore) NameAvailable(ctx context.Context, name string) (bool, error) {
	_, count, err := s.db.Supabase.From(database.PresetsTable).
		Select("preset_id", "exact", false).
		Eq("preset_name", name).
		Execute()
	if err != nil {
		return false, fmt.Errorf("failed to check preset name: %v", err)
	}

	return count == 0, nil
}

// isUniqueViolation - Postgres signals a violated unique constraint with
// SQLSTATE 23505; PostgREST forwards the message text.
func isUniqueViolation(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "23505") || strings.Contains(msg, "duplicate key")
}
