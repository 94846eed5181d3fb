package job

import (
	"context"
	"log"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/art-solutions/nanobana-gen/modules/common/apperr"
	"github.com/art-solutions/nanobana-gen/modules/common/model"
	"github.com/art-solutions/nanobana-gen/modules/preset"
)

// Service - job creation and queries. The config snapshot happens here:
// whatever config the job is born with is the config the orchestrator will
// run, regardless of later preset edits or deletes.
type Service struct {
	store   Store
	presets preset.Store
}

// NewService - job service over the given stores.
func NewService(store Store, presets preset.Store) *Service {
	return &Service{store: store, presets: presets}
}

// ValidateSourceURL - trim and check a source image URL. Shared with batch
// submission, which checks the whole URL list before creating any job.
func ValidateSourceURL(raw string) (string, error) {
	sourceURL := strings.TrimSpace(raw)
	if sourceURL == "" {
		return "", apperr.Validationf("source_url is required")
	}
	parsed, err := url.Parse(sourceURL)
	if err != nil || (parsed.Scheme != "http" && parsed.Scheme != "https") {
		return "", apperr.Validationf("source_url must be an http(s) URL")
	}
	return sourceURL, nil
}

// CreateJob - resolve the config (inline wins over preset name), validate,
// persist a pending job.
func (s *Service) CreateJob(ctx context.Context, req CreateJobRequest) (*model.Job, error) {
	sourceURL, err := ValidateSourceURL(req.SourceURL)
	if err != nil {
		return nil, err
	}

	cfg, err := s.resolveConfig(ctx, req)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	j := &model.Job{
		JobID:      uuid.New().String(),
		BatchID:    req.BatchID,
		SourceURL:  sourceURL,
		PresetName: req.PresetName,
		Config:     cfg,
		JobStatus:  model.StatusPending,
		CreatedAt:  time.Now().UTC(),
	}

	if err := s.store.Create(ctx, j); err != nil {
		return nil, err
	}

	log.Printf("🎯 Job queued: %s (locale=%s, batch=%s)", j.JobID, cfg.TargetLocale, j.BatchID)
	return j, nil
}

// resolveConfig - inline config when present, otherwise the named preset's
// current config. The returned value is already a private copy.
func (s *Service) resolveConfig(ctx context.Context, req CreateJobRequest) (model.LocaleConfig, error) {
	if req.Config != nil {
		return *req.Config, nil
	}

	if req.PresetName == "" {
		return model.LocaleConfig{}, apperr.Validationf("either config or preset_name is required")
	}

	p, err := s.presets.GetByName(ctx, req.PresetName)
	if err != nil {
		return model.LocaleConfig{}, err
	}
	return p.Config, nil
}

// GetJob - lookup by id.
func (s *Service) GetJob(ctx context.Context, id string) (*model.Job, error) {
	if id == "" {
		return nil, apperr.Validationf("job id is required")
	}
	return s.store.Get(ctx, id)
}

// ListJobs - filtered page plus total match count. An unknown status value
// is rejected rather than silently matching nothing.
func (s *Service) ListJobs(ctx context.Context, f Filter, limit, offset int) ([]model.Job, int, error) {
	if f.Status != "" {
		switch f.Status {
		case model.StatusPending, model.StatusProcessing, model.StatusCompleted, model.StatusFailed:
		default:
			return nil, 0, apperr.Validationf("unknown status %q", f.Status)
		}
	}
	return s.store.List(ctx, f, limit, offset)
}
