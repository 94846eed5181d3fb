package model

import (
	"strings"
	"time"

	"github.com/art-solutions/nanobana-gen/modules/common/apperr"
)

// Job status constants. A job walks pending → processing → completed | failed,
// never skips a state and never leaves a terminal state.
const (
	StatusPending    = "pending"
	StatusProcessing = "processing"
	StatusCompleted  = "completed"
	StatusFailed     = "failed"
)

// LocaleConfig - the full configuration a localization run needs. A copy of it
// is snapshotted onto every job at creation time; later preset edits never
// reach an in-flight or historical job.
type LocaleConfig struct {
	TargetLocale string `json:"target_locale"`
	StyleHints   string `json:"style_hints,omitempty"`

	// Branding flags
	RemoveBranding   bool   `json:"remove_branding,omitempty"`
	InjectBrandColor bool   `json:"inject_brand_color,omitempty"`
	BrandColor       string `json:"brand_color,omitempty"`
	AttachLogo       bool   `json:"attach_logo,omitempty"`
	LogoData         []byte `json:"logo_data,omitempty"` // base64 over JSON

	// Output filename rewrite rule
	FilenameFind    string `json:"filename_find,omitempty"`
	FilenameReplace string `json:"filename_replace,omitempty"`

	// Model hints
	Model       string `json:"model,omitempty"`
	AspectRatio string `json:"aspect_ratio,omitempty"`
	ImageSize   string `json:"image_size,omitempty"`
}

// Validate - checked once at the preset/job creation boundary, never downstream.
func (c *LocaleConfig) Validate() error {
	if strings.TrimSpace(c.TargetLocale) == "" {
		return apperr.Validationf("target_locale is required")
	}
	if c.AttachLogo && len(c.LogoData) == 0 {
		return apperr.Validationf("attach_logo set but logo_data is empty")
	}
	return nil
}

// Preset - nb_presets row. Name is unique across all presets.
type Preset struct {
	ID        string       `json:"preset_id"`
	Name      string       `json:"preset_name"`
	Config    LocaleConfig `json:"config"`
	CreatedAt time.Time    `json:"created_at"`
	UpdatedAt time.Time    `json:"updated_at"`
}

// PresetSummary - the list() projection: name, locale and timestamps only.
type PresetSummary struct {
	ID           string    `json:"preset_id"`
	Name         string    `json:"preset_name"`
	TargetLocale string    `json:"target_locale"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// TokenUsage - upstream token counters. All zero when the service omits them.
type TokenUsage struct {
	PromptTokens    int `json:"prompt_tokens"`
	CandidateTokens int `json:"candidate_tokens"`
	TotalTokens     int `json:"total_tokens"`
}

// Job - nb_jobs row. Mutated only through the store's state-machine operations.
//
// Invariants kept by the stores:
//   - ErrorMessage is non-nil iff JobStatus == failed
//   - ArtifactRef and OutputName are non-empty iff JobStatus == completed
//   - CompletedAt is non-nil iff JobStatus is terminal
//   - StartedAt is non-nil from processing onward
type Job struct {
	JobID        string       `json:"job_id"`
	BatchID      string       `json:"batch_id,omitempty"`
	SourceURL    string       `json:"source_url"`
	PresetName   string       `json:"preset_name,omitempty"` // informational only
	Config       LocaleConfig `json:"config"`
	JobStatus    string       `json:"job_status"`
	ErrorMessage *string      `json:"error_message,omitempty"`
	ArtifactRef  string       `json:"artifact_ref,omitempty"`
	ArtifactURL  string       `json:"artifact_url,omitempty"`
	OutputName   string       `json:"output_name,omitempty"`
	Usage        TokenUsage   `json:"usage"`
	CreatedAt    time.Time    `json:"created_at"`
	StartedAt    *time.Time   `json:"started_at,omitempty"`
	CompletedAt  *time.Time   `json:"completed_at,omitempty"`
}

// Terminal - true once a job can no longer transition.
func (j *Job) Terminal() bool {
	return j.JobStatus == StatusCompleted || j.JobStatus == StatusFailed
}

// BatchSummary - computed on demand by scanning jobs sharing a batch id.
// TotalTokens sums only completed jobs; everything else contributes zero.
type BatchSummary struct {
	BatchID     string `json:"batch_id"`
	Total       int    `json:"total"`
	Pending     int    `json:"pending"`
	Processing  int    `json:"processing"`
	Completed   int    `json:"completed"`
	Failed      int    `json:"failed"`
	TotalTokens int    `json:"total_tokens"`
}
