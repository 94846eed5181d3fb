package localize

import (
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"

	"github.com/art-solutions/nanobana-gen/modules/common/fallback"
	"github.com/art-solutions/nanobana-gen/modules/common/model"
	"github.com/art-solutions/nanobana-gen/modules/common/storage"
	"github.com/art-solutions/nanobana-gen/modules/common/utils"
	"github.com/art-solutions/nanobana-gen/modules/job"
	"github.com/art-solutions/nanobana-gen/modules/transform"
)

// Notifier - receives the job after every status transition. Optional; a nil
// notifier disables push updates without touching the pipeline.
type Notifier interface {
	Publish(j *model.Job)
}

// Service - the localization orchestrator. One Process call drives one job
// through fetch, transform, persist and terminal mark.
type Service struct {
	jobs       job.Store
	artifacts  storage.Store
	client     transform.Client
	notifier   Notifier
	deriver    *Deriver
	httpClient *http.Client
}

// NewService - orchestrator over explicit collaborators. notifier may be nil.
func NewService(jobs job.Store, artifacts storage.Store, client transform.Client, notifier Notifier) *Service {
	return &Service{
		jobs:       jobs,
		artifacts:  artifacts,
		client:     client,
		notifier:   notifier,
		deriver:    NewDeriver(),
		httpClient: &http.Client{Timeout: 60 * time.Second},
	}
}

// Process - run one job to a terminal status.
//
// Load and lease errors go back to the caller: an unknown job or a lost
// claim race is the caller's problem, the job is never failed on someone
// else's behalf. From the moment the lease is held, every error is caught,
// recorded via MarkFailed and absorbed - the job's final status is the only
// signal, and Process returns nil for a failed job.
func (s *Service) Process(ctx context.Context, jobID string) error {
	log.Printf("🚀 [Localize] Processing job %s", jobID)

	if _, err := s.jobs.Get(ctx, jobID); err != nil {
		return err
	}

	claimed, err := s.jobs.MarkProcessing(ctx, jobID)
	if err != nil {
		return err
	}
	s.notify(claimed)

	completed, runErr := s.run(ctx, claimed)
	if runErr != nil {
		log.Printf("❌ [Localize] Job %s failed: %v", jobID, runErr)
		failed, markErr := s.jobs.MarkFailed(ctx, jobID, runErr.Error())
		if markErr != nil {
			log.Printf("❌ [Localize] Could not record failure for job %s: %v", jobID, markErr)
			return nil
		}
		s.notify(failed)
		return nil
	}

	log.Printf("✅ [Localize] Job %s completed → %s", jobID, completed.OutputName)
	s.notify(completed)
	return nil
}

// run - steps 3 through 9: fetch, instruct, transform, persist, name, mark.
func (s *Service) run(ctx context.Context, j *model.Job) (*model.Job, error) {
	imageData, imageMIME, err := s.fetchSource(ctx, j.SourceURL)
	if err != nil {
		return nil, err
	}
	log.Printf("📥 [Localize] Source fetched: %d bytes (%s)", len(imageData), imageMIME)

	// The upstream prefers PNG/JPEG input; WebP sources are decoded first.
	// A decode failure is not fatal, the original bytes go up instead.
	if imageMIME == "image/webp" {
		converted, convErr := utils.ConvertWebPToPNG(imageData)
		if convErr != nil {
			log.Printf("⚠️  [Localize] WebP decode failed, sending original: %v", convErr)
		} else {
			imageData = converted
			imageMIME = "image/png"
		}
	}

	req := &transform.Request{
		Instruction: BuildInstruction(j.Config),
		Image:       imageData,
		ImageMIME:   imageMIME,
		Model:       j.Config.Model,
		AspectRatio: fallback.SafeAspectRatio(j.Config.AspectRatio),
	}
	if len(j.Config.LogoData) > 0 {
		req.Logo = j.Config.LogoData
		req.LogoMIME = utils.DetectImageMIME(j.Config.LogoData)
	}

	result, err := s.client.Generate(ctx, req)
	if err != nil {
		return nil, err
	}

	ref, err := s.artifacts.Store(ctx, result.Data, result.MIMEType)
	if err != nil {
		return nil, err
	}
	publicURL := s.artifacts.PublicURL(ref)

	outputName := s.deriver.Derive(j.SourceURL, j.Config.FilenameFind, j.Config.FilenameReplace)

	return s.jobs.MarkCompleted(ctx, j.JobID, ref, publicURL, outputName, result.Usage)
}

func (s *Service) fetchSource(ctx context.Context, sourceURL string) ([]byte, string, error) {
	req, err := http.NewRequestWithContext(ctx, "GET", sourceURL, nil)
	if err != nil {
		return nil, "", fmt.Errorf("failed to build source request: %v", err)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("failed to fetch source image: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, "", fmt.Errorf("source image fetch returned status %d", resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, "", fmt.Errorf("failed to read source image: %v", err)
	}
	if len(data) == 0 {
		return nil, "", fmt.Errorf("source image is empty")
	}

	return data, utils.DetectImageMIME(data), nil
}

func (s *Service) notify(j *model.Job) {
	if s.notifier == nil || j == nil {
		return
	}
	s.notifier.Publish(j)
}
