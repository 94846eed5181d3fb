package batch

import (
	"context"
	"log"
	"sync"

	"github.com/google/uuid"

	"github.com/art-solutions/nanobana-gen/modules/common/apperr"
	"github.com/art-solutions/nanobana-gen/modules/common/model"
	"github.com/art-solutions/nanobana-gen/modules/job"
	"github.com/art-solutions/nanobana-gen/modules/localize"
)

// Service - batch submission, processing and aggregation. A batch is not a
// stored entity, only a shared batch id over jobs; everything here works by
// scanning the job store.
type Service struct {
	jobs        job.Store
	creator     *job.Service
	localizer   *localize.Service
	concurrency int
}

// NewService - concurrency is the processing fan-out; 1 keeps the run
// strictly sequential in arrival order, which keeps token accounting stable.
func NewService(jobs job.Store, creator *job.Service, localizer *localize.Service, concurrency int) *Service {
	if concurrency < 1 {
		concurrency = 1
	}
	return &Service{
		jobs:        jobs,
		creator:     creator,
		localizer:   localizer,
		concurrency: concurrency,
	}
}

// SubmitBatch - validate every URL up front, then create one pending job per
// URL under a fresh batch id. A bad URL anywhere in the list rejects the
// whole request before any job exists.
func (s *Service) SubmitBatch(ctx context.Context, req SubmitBatchRequest) (string, []string, error) {
	if len(req.SourceURLs) == 0 {
		return "", nil, apperr.Validationf("source_urls must not be empty")
	}
	for i, raw := range req.SourceURLs {
		if _, err := job.ValidateSourceURL(raw); err != nil {
			return "", nil, apperr.Validationf("source_urls[%d]: %v", i, err)
		}
	}

	batchID := uuid.New().String()
	jobIDs := make([]string, 0, len(req.SourceURLs))
	for _, sourceURL := range req.SourceURLs {
		created, err := s.creator.CreateJob(ctx, job.CreateJobRequest{
			SourceURL:  sourceURL,
			BatchID:    batchID,
			PresetName: req.PresetName,
			Config:     req.Config,
		})
		if err != nil {
			return "", nil, err
		}
		jobIDs = append(jobIDs, created.JobID)
	}

	log.Printf("📦 Batch %s submitted with %d jobs", batchID, len(jobIDs))
	return batchID, jobIDs, nil
}

// ProcessBatch - run every pending job in the batch and report each outcome.
// Job failures land on the job records, never on this call: the results array
// is complete even when every job failed. Only an unknown batch id errors.
func (s *Service) ProcessBatch(ctx context.Context, batchID string) ([]Result, error) {
	if batchID == "" {
		return nil, apperr.Validationf("batch id is required")
	}
	all, err := s.jobs.ListByBatch(ctx, batchID)
	if err != nil {
		return nil, err
	}
	if len(all) == 0 {
		return nil, apperr.NotFoundf("batch %s has no jobs", batchID)
	}

	var pending []model.Job
	for _, j := range all {
		if j.JobStatus == model.StatusPending {
			pending = append(pending, j)
		}
	}
	log.Printf("📦 Batch %s: processing %d of %d jobs (concurrency=%d)", batchID, len(pending), len(all), s.concurrency)

	// ListByBatch returns arrival order. With concurrency 1 the semaphore
	// serializes the runs in that same order; a larger value trades the
	// ordering guarantee for throughput.
	results := make([]Result, len(pending))
	sem := make(chan struct{}, s.concurrency)
	var wg sync.WaitGroup
	for i, j := range pending {
		sem <- struct{}{}
		wg.Add(1)
		go func(i int, jobID string) {
			defer wg.Done()
			defer func() { <-sem }()
			results[i] = s.processOne(ctx, jobID)
		}(i, j.JobID)
	}
	wg.Wait()

	return results, nil
}

// processOne - run the orchestrator for one job and describe the record it
// left behind. A lost claim race is logged and the entry reflects whatever
// state the winning owner drove the job to.
func (s *Service) processOne(ctx context.Context, jobID string) Result {
	if err := s.localizer.Process(ctx, jobID); err != nil {
		log.Printf("⚠️  [Batch] Job %s skipped: %v", jobID, err)
	}

	j, err := s.jobs.Get(ctx, jobID)
	if err != nil {
		return Result{JobID: jobID, Status: model.StatusFailed, Error: err.Error()}
	}

	r := Result{
		JobID:       j.JobID,
		Status:      j.JobStatus,
		ArtifactURL: j.ArtifactURL,
		OutputName:  j.OutputName,
	}
	if j.ErrorMessage != nil {
		r.Error = *j.ErrorMessage
	}
	return r
}

// Summarize - status counts plus the token total over completed jobs only.
// Pure read; safe to poll.
func (s *Service) Summarize(ctx context.Context, batchID string) (*model.BatchSummary, error) {
	if batchID == "" {
		return nil, apperr.Validationf("batch id is required")
	}
	all, err := s.jobs.ListByBatch(ctx, batchID)
	if err != nil {
		return nil, err
	}
	if len(all) == 0 {
		return nil, apperr.NotFoundf("batch %s has no jobs", batchID)
	}

	summary := &model.BatchSummary{BatchID: batchID, Total: len(all)}
	for _, j := range all {
		switch j.JobStatus {
		case model.StatusPending:
			summary.Pending++
		case model.StatusProcessing:
			summary.Processing++
		case model.StatusCompleted:
			summary.Completed++
			summary.TotalTokens += j.Usage.TotalTokens
		case model.StatusFailed:
			summary.Failed++
		}
	}
	return summary, nil
}
