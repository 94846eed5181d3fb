package job

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/art-solutions/nanobana-gen/modules/common/apperr"
	"github.com/art-solutions/nanobana-gen/modules/common/database"
	"github.com/art-solutions/nanobana-gen/modules/common/model"
)

var _ Store = (*SupabaseStore)(nil)

// SupabaseStore persists jobs in the nb_jobs table. Status transitions are
// conditional updates filtered on the expected current status, so the
// database is the arbiter when two workers race for the same job.
type SupabaseStore struct {
	db *database.Client
}

// NewSupabaseStore - job store over the shared database client.
func NewSupabaseStore(db *database.Client) *SupabaseStore {
	return &SupabaseStore{db: db}
}

func (s *SupabaseStore) Create(ctx context.Context, j *model.Job) error {
	insertData := map[string]interface{}{
		"job_id":     j.JobID,
		"source_url": j.SourceURL,
		"config":     j.Config,
		"job_status": j.JobStatus,
		"usage":      j.Usage,
		"created_at": j.CreatedAt.Format(time.RFC3339),
	}
	if j.BatchID != "" {
		insertData["batch_id"] = j.BatchID
	}
	if j.PresetName != "" {
		insertData["preset_name"] = j.PresetName
	}

	_, _, err := s.db.Supabase.From(database.JobsTable).
		Insert(insertData, false, "", "", "").
		Execute()
	if err != nil {
		return fmt.Errorf("failed to insert job: %v", err)
	}

	log.Printf("✅ Job created: %s (batch=%s)", j.JobID, j.BatchID)
	return nil
}

func (s *SupabaseStore) Get(ctx context.Context, id string) (*model.Job, error) {
	data, _, err := s.db.Supabase.From(database.JobsTable).
		Select("*", "exact", false).
		Eq("job_id", id).
		Execute()
	if err != nil {
		return nil, fmt.Errorf("failed to fetch job: %v", err)
	}

	var jobs []model.Job
	if err := json.Unmarshal(data, &jobs); err != nil {
		return nil, fmt.Errorf("failed to parse job data: %v", err)
	}

	if len(jobs) == 0 {
		return nil, apperr.NotFoundf("job %s not found", id)
	}

	return &jobs[0], nil
}

// MarkProcessing - claim the job with a conditional update: the status
// filter means the row only changes when it is still pending, no matter how
// many workers try at once. Zero affected rows is classified afterwards as
// not-found or conflict.
func (s *SupabaseStore) MarkProcessing(ctx context.Context, id string) (*model.Job, error) {
	now := time.Now().UTC()
	updateData := map[string]interface{}{
		"job_status": model.StatusProcessing,
		"started_at": now.Format(time.RFC3339),
	}

	rows, err := s.conditionalUpdate(id, model.StatusPending, updateData)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		stored, getErr := s.Get(ctx, id)
		if getErr != nil {
			return nil, getErr
		}
		return nil, fmt.Errorf("%w: job %s is %s, expected pending", apperr.ErrConflict, id, stored.JobStatus)
	}

	log.Printf("🔄 Job claimed: %s", id)
	return &rows[0], nil
}

func (s *SupabaseStore) MarkCompleted(ctx context.Context, id, artifactRef, artifactURL, outputName string, usage model.TokenUsage) (*model.Job, error) {
	if artifactRef == "" || outputName == "" {
		return nil, apperr.Validationf("completion requires an artifact ref and an output name")
	}

	now := time.Now().UTC()
	updateData := map[string]interface{}{
		"job_status":   model.StatusCompleted,
		"artifact_ref": artifactRef,
		"artifact_url": artifactURL,
		"output_name":  outputName,
		"usage":        usage,
		"completed_at": now.Format(time.RFC3339),
	}

	rows, err := s.conditionalUpdate(id, model.StatusProcessing, updateData)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		stored, getErr := s.Get(ctx, id)
		if getErr != nil {
			return nil, getErr
		}
		return nil, fmt.Errorf("%w: job %s is %s, expected processing", apperr.ErrConflict, id, stored.JobStatus)
	}

	log.Printf("✅ Job completed: %s → %s", id, outputName)
	return &rows[0], nil
}

func (s *SupabaseStore) MarkFailed(ctx context.Context, id, message string) (*model.Job, error) {
	if message == "" {
		return nil, apperr.Validationf("failure requires an error message")
	}

	now := time.Now().UTC()
	updateData := map[string]interface{}{
		"job_status":    model.StatusFailed,
		"error_message": message,
		"completed_at":  now.Format(time.RFC3339),
	}

	rows, err := s.conditionalUpdate(id, model.StatusProcessing, updateData)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		stored, getErr := s.Get(ctx, id)
		if getErr != nil {
			return nil, getErr
		}
		return nil, fmt.Errorf("%w: job %s is %s, expected processing", apperr.ErrConflict, id, stored.JobStatus)
	}

	log.Printf("❌ Job failed: %s (%s)", id, message)
	return &rows[0], nil
}

// conditionalUpdate - update a row only while it still has the expected
// status, returning the affected rows so the caller can tell a win from a
// lost race.
func (s *SupabaseStore) conditionalUpdate(id, expectedStatus string, updateData map[string]interface{}) ([]model.Job, error) {
	data, _, err := s.db.Supabase.From(database.JobsTable).
		Update(updateData, "representation", "").
		Eq("job_id", id).
		Eq("job_status", expectedStatus).
		Execute()
	if err != nil {
		return nil, fmt.Errorf("failed to update job: %v", err)
	}

	var rows []model.Job
	if len(data) > 0 {
		if err := json.Unmarshal(data, &rows); err != nil {
			return nil, fmt.Errorf("failed to parse job update result: %v", err)
		}
	}
	return rows, nil
}

func (s *SupabaseStore) ListByStatus(ctx context.Context, status string) ([]model.Job, error) {
	data, _, err := s.db.Supabase.From(database.JobsTable).
		Select("*", "exact", false).
		Eq("job_status", status).
		Execute()
	if err != nil {
		return nil, fmt.Errorf("failed to list jobs by status: %v", err)
	}

	jobs, err := parseJobs(data)
	if err != nil {
		return nil, err
	}
	sortByCreatedAsc(jobs)
	return jobs, nil
}

func (s *SupabaseStore) ListByBatch(ctx context.Context, batchID string) ([]model.Job, error) {
	data, _, err := s.db.Supabase.From(database.JobsTable).
		Select("*", "exact", false).
		Eq("batch_id", batchID).
		Execute()
	if err != nil {
		return nil, fmt.Errorf("failed to list jobs by batch: %v", err)
	}

	jobs, err := parseJobs(data)
	if err != nil {
		return nil, err
	}
	sortByCreatedAsc(jobs)
	return jobs, nil
}

func (s *SupabaseStore) ListRecent(ctx context.Context, limit int) ([]model.Job, error) {
	jobs, _, err := s.List(ctx, Filter{}, limit, 0)
	return jobs, err
}

// List - fetch the filtered rows, sort newest first, slice in memory. Same
// full-scan trade-off as the memory store.
func (s *SupabaseStore) List(ctx context.Context, f Filter, limit, offset int) ([]model.Job, int, error) {
	query := s.db.Supabase.From(database.JobsTable).
		Select("*", "exact", false)
	if f.Status != "" {
		query = query.Eq("job_status", f.Status)
	}
	if f.BatchID != "" {
		query = query.Eq("batch_id", f.BatchID)
	}

	data, _, err := query.Execute()
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list jobs: %v", err)
	}

	jobs, err := parseJobs(data)
	if err != nil {
		return nil, 0, err
	}
	sortByCreatedDesc(jobs)

	total := len(jobs)
	jobs = pageSlice(jobs, limit, offset)
	return jobs, total, nil
}

func parseJobs(data []byte) ([]model.Job, error) {
	var jobs []model.Job
	if err := json.Unmarshal(data, &jobs); err != nil {
		return nil, fmt.Errorf("failed to parse job data: %v", err)
	}
	return jobs, nil
}
