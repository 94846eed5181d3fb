package job

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/art-solutions/nanobana-gen/modules/common/apperr"
	"github.com/art-solutions/nanobana-gen/modules/common/model"
)

// Filter - optional narrowing for List. Zero values mean "any".
type Filter struct {
	Status  string
	BatchID string
}

// Store - persistence for jobs and their status walk. The status machine is
// enforced here: pending → processing → completed | failed, no skips, no
// re-entry into a terminal state.
//
// MarkProcessing is the single-owner lease. Exactly one caller can move a
// job from pending to processing; everyone else gets a conflict.
type Store interface {
	Create(ctx context.Context, j *model.Job) error
	Get(ctx context.Context, id string) (*model.Job, error)
	MarkProcessing(ctx context.Context, id string) (*model.Job, error)
	MarkCompleted(ctx context.Context, id, artifactRef, artifactURL, outputName string, usage model.TokenUsage) (*model.Job, error)
	MarkFailed(ctx context.Context, id, message string) (*model.Job, error)
	ListByStatus(ctx context.Context, status string) ([]model.Job, error)
	ListByBatch(ctx context.Context, batchID string) ([]model.Job, error)
	ListRecent(ctx context.Context, limit int) ([]model.Job, error)
	List(ctx context.Context, f Filter, limit, offset int) ([]model.Job, int, error)
}

var _ Store = (*MemoryStore)(nil)

// MemoryStore keeps jobs in a mutex-guarded map. Reads hand out deep copies,
// so a caller can never reach into stored state; all status math happens
// under the lock.
type MemoryStore struct {
	mu   sync.RWMutex
	jobs map[string]model.Job
}

// NewMemoryStore - empty in-memory job store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		jobs: make(map[string]model.Job),
	}
}

func (s *MemoryStore) Create(ctx context.Context, j *model.Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.jobs[j.JobID]; exists {
		return fmt.Errorf("%w: job %s already exists", apperr.ErrConflict, j.JobID)
	}

	s.jobs[j.JobID] = cloneJob(*j)
	return nil
}

func (s *MemoryStore) Get(ctx context.Context, id string) (*model.Job, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stored, exists := s.jobs[id]
	if !exists {
		return nil, apperr.NotFoundf("job %s not found", id)
	}

	out := cloneJob(stored)
	return &out, nil
}

// MarkProcessing - claim the job. Only a pending job can be claimed; the
// second claimant gets a conflict, never a silent double-start.
func (s *MemoryStore) MarkProcessing(ctx context.Context, id string) (*model.Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored, exists := s.jobs[id]
	if !exists {
		return nil, apperr.NotFoundf("job %s not found", id)
	}
	if stored.JobStatus != model.StatusPending {
		return nil, fmt.Errorf("%w: job %s is %s, expected pending", apperr.ErrConflict, id, stored.JobStatus)
	}

	now := time.Now().UTC()
	stored.JobStatus = model.StatusProcessing
	stored.StartedAt = &now
	s.jobs[id] = stored

	out := cloneJob(stored)
	return &out, nil
}

func (s *MemoryStore) MarkCompleted(ctx context.Context, id, artifactRef, artifactURL, outputName string, usage model.TokenUsage) (*model.Job, error) {
	if artifactRef == "" || outputName == "" {
		return nil, apperr.Validationf("completion requires an artifact ref and an output name")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	stored, exists := s.jobs[id]
	if !exists {
		return nil, apperr.NotFoundf("job %s not found", id)
	}
	if stored.JobStatus != model.StatusProcessing {
		return nil, fmt.Errorf("%w: job %s is %s, expected processing", apperr.ErrConflict, id, stored.JobStatus)
	}

	now := time.Now().UTC()
	stored.JobStatus = model.StatusCompleted
	stored.ArtifactRef = artifactRef
	stored.ArtifactURL = artifactURL
	stored.OutputName = outputName
	stored.Usage = usage
	stored.CompletedAt = &now
	s.jobs[id] = stored

	out := cloneJob(stored)
	return &out, nil
}

func (s *MemoryStore) MarkFailed(ctx context.Context, id, message string) (*model.Job, error) {
	if message == "" {
		return nil, apperr.Validationf("failure requires an error message")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	stored, exists := s.jobs[id]
	if !exists {
		return nil, apperr.NotFoundf("job %s not found", id)
	}
	if stored.JobStatus != model.StatusProcessing {
		return nil, fmt.Errorf("%w: job %s is %s, expected processing", apperr.ErrConflict, id, stored.JobStatus)
	}

	now := time.Now().UTC()
	stored.JobStatus = model.StatusFailed
	stored.ErrorMessage = &message
	stored.CompletedAt = &now
	s.jobs[id] = stored

	out := cloneJob(stored)
	return &out, nil
}

func (s *MemoryStore) ListByStatus(ctx context.Context, status string) ([]model.Job, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	jobs := s.collect(func(j model.Job) bool { return j.JobStatus == status })
	sortByCreatedAsc(jobs)
	return jobs, nil
}

// ListByBatch - arrival order, oldest first. Batch execution walks this
// slice front to back.
func (s *MemoryStore) ListByBatch(ctx context.Context, batchID string) ([]model.Job, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	jobs := s.collect(func(j model.Job) bool { return j.BatchID == batchID })
	sortByCreatedAsc(jobs)
	return jobs, nil
}

func (s *MemoryStore) ListRecent(ctx context.Context, limit int) ([]model.Job, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	jobs := s.collect(func(j model.Job) bool { return true })
	sortByCreatedDesc(jobs)
	if limit > 0 && limit < len(jobs) {
		jobs = jobs[:limit]
	}
	return jobs, nil
}

// List - full scan, then filter, then slice. Total is the match count
// before paging. Fine for the dashboard volumes this serves; an indexed
// query would be the upgrade path if job counts grow.
func (s *MemoryStore) List(ctx context.Context, f Filter, limit, offset int) ([]model.Job, int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	jobs := s.collect(func(j model.Job) bool {
		if f.Status != "" && j.JobStatus != f.Status {
			return false
		}
		if f.BatchID != "" && j.BatchID != f.BatchID {
			return false
		}
		return true
	})
	sortByCreatedDesc(jobs)

	total := len(jobs)
	jobs = pageSlice(jobs, limit, offset)
	return jobs, total, nil
}

// collect - snapshot every job matching the predicate. Caller holds the lock.
func (s *MemoryStore) collect(match func(model.Job) bool) []model.Job {
	jobs := make([]model.Job, 0)
	for _, stored := range s.jobs {
		if match(stored) {
			jobs = append(jobs, cloneJob(stored))
		}
	}
	return jobs
}

func pageSlice(jobs []model.Job, limit, offset int) []model.Job {
	if offset < 0 {
		offset = 0
	}
	if offset >= len(jobs) {
		return []model.Job{}
	}
	jobs = jobs[offset:]
	if limit > 0 && limit < len(jobs) {
		jobs = jobs[:limit]
	}
	return jobs
}

func sortByCreatedAsc(jobs []model.Job) {
	sort.Slice(jobs, func(i, j int) bool {
		if jobs[i].CreatedAt.Equal(jobs[j].CreatedAt) {
			return jobs[i].JobID < jobs[j].JobID
		}
		return jobs[i].CreatedAt.Before(jobs[j].CreatedAt)
	})
}

func sortByCreatedDesc(jobs []model.Job) {
	sort.Slice(jobs, func(i, j int) bool {
		if jobs[i].CreatedAt.Equal(jobs[j].CreatedAt) {
			return jobs[i].JobID < jobs[j].JobID
		}
		return jobs[i].CreatedAt.After(jobs[j].CreatedAt)
	})
}

func cloneJob(j model.Job) model.Job {
	if j.ErrorMessage != nil {
		msg := *j.ErrorMessage
		j.ErrorMessage = &msg
	}
	if j.StartedAt != nil {
		t := *j.StartedAt
		j.StartedAt = &t
	}
	if j.CompletedAt != nil {
		t := *j.CompletedAt
		j.CompletedAt = &t
	}
	if j.Config.LogoData != nil {
		logo := make([]byte, len(j.Config.LogoData))
		copy(logo, j.Config.LogoData)
		j.Config.LogoData = logo
	}
	return j
}
