package preset

import (
	"github.com/art-solutions/nanobana-gen/modules/common/model"
)

// CreatePresetRequest - payload for registering a reusable locale config.
type CreatePresetRequest struct {
	Name   string             `json:"name"`
	Config model.LocaleConfig `json:"config"`
}

// UpdatePresetRequest - replaces the stored config wholesale. Jobs created
// before the update keep the snapshot they were born with.
type UpdatePresetRequest struct {
	Config model.LocaleConfig `json:"config"`
}

// PresetResponse - mutation result carrying the stored preset.
type PresetResponse struct {
	Success bool          `json:"success"`
	Preset  *model.Preset `json:"preset"`
}

// DeletePresetResponse - result of a delete.
type DeletePresetResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// ListPresetsResponse - summaries of every stored preset.
type ListPresetsResponse struct {
	Presets []model.PresetSummary `json:"presets"`
	Total   int                   `json:"total"`
}

// CheckNameResponse - availability probe result for the create form.
type CheckNameResponse struct {
	Name      string `json:"name"`
	Available bool   `json:"available"`
}
