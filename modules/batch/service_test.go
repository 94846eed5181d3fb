package batch

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/art-solutions/nanobana-gen/modules/common/apperr"
	"github.com/art-solutions/nanobana-gen/modules/common/fallback"
	"github.com/art-solutions/nanobana-gen/modules/common/model"
	"github.com/art-solutions/nanobana-gen/modules/common/storage"
	"github.com/art-solutions/nanobana-gen/modules/job"
	"github.com/art-solutions/nanobana-gen/modules/localize"
	"github.com/art-solutions/nanobana-gen/modules/preset"
	"github.com/art-solutions/nanobana-gen/modules/transform"
)

// scriptedTransform - transform.Client whose outcome is decided per request
// by the test. Records the source bytes of every call in order.
type scriptedTransform struct {
	mu     sync.Mutex
	seen   [][]byte
	decide func(req *transform.Request) (*transform.Result, error)
}

func (c *scriptedTransform) Generate(ctx context.Context, req *transform.Request) (*transform.Result, error) {
	c.mu.Lock()
	c.seen = append(c.seen, req.Image)
	c.mu.Unlock()
	if c.decide != nil {
		return c.decide(req)
	}
	return okResult(), nil
}

func (c *scriptedTransform) calls() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.seen)
}

func okResult() *transform.Result {
	return &transform.Result{
		Data:     []byte{0x89, 0x50, 0x4E, 0x47, 0x01},
		MIMEType: "image/png",
		Usage:    model.TokenUsage{PromptTokens: 4, CandidateTokens: 6, TotalTokens: 10},
	}
}

// payloadFor - a valid PNG payload made distinguishable per path, so a test
// can tell which source image a transform call carried.
func payloadFor(path string) []byte {
	return append(fallback.PlaceholderBytes(), []byte(path)...)
}

func imageServer(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/png")
		w.Write(payloadFor(r.URL.Path))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func newBatchService(t *testing.T, client transform.Client, concurrency int) (*Service, *job.MemoryStore, *preset.MemoryStore) {
	t.Helper()
	jobs := job.NewMemoryStore()
	presets := preset.NewMemoryStore()
	creator := job.NewService(jobs, presets)
	localizer := localize.NewService(jobs, storage.NewMemoryStore(), client, nil)
	return NewService(jobs, creator, localizer, concurrency), jobs, presets
}

func inlineConfig() *model.LocaleConfig {
	return &model.LocaleConfig{TargetLocale: "ko-KR"}
}

func TestService_SubmitBatch_CreatesJobsInOrder(t *testing.T) {
	svc, jobs, _ := newBatchService(t, &scriptedTransform{}, 1)

	urls := []string{
		"http://cdn.example.com/a.png",
		"http://cdn.example.com/b.png",
		"http://cdn.example.com/c.png",
	}
	batchID, jobIDs, err := svc.SubmitBatch(context.Background(), SubmitBatchRequest{
		SourceURLs: urls,
		Config:     inlineConfig(),
	})
	require.NoError(t, err)
	assert.NotEmpty(t, batchID)
	require.Len(t, jobIDs, 3)

	members, err := jobs.ListByBatch(context.Background(), batchID)
	require.NoError(t, err)
	require.Len(t, members, 3)
	for i, j := range members {
		assert.Equal(t, jobIDs[i], j.JobID)
		assert.Equal(t, urls[i], j.SourceURL)
		assert.Equal(t, model.StatusPending, j.JobStatus)
		assert.Equal(t, batchID, j.BatchID)
	}

	summary, err := svc.Summarize(context.Background(), batchID)
	require.NoError(t, err)
	assert.Equal(t, 3, summary.Total)
	assert.Equal(t, 3, summary.Pending)
	assert.Equal(t, 0, summary.TotalTokens)
}

func TestService_SubmitBatch_EmptyListRejected(t *testing.T) {
	svc, _, _ := newBatchService(t, &scriptedTransform{}, 1)

	_, _, err := svc.SubmitBatch(context.Background(), SubmitBatchRequest{Config: inlineConfig()})
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperr.ErrValidation))
}

func TestService_SubmitBatch_BadURLRejectsWholeBatch(t *testing.T) {
	svc, jobs, _ := newBatchService(t, &scriptedTransform{}, 1)

	_, _, err := svc.SubmitBatch(context.Background(), SubmitBatchRequest{
		SourceURLs: []string{"http://cdn.example.com/a.png", "   ", "http://cdn.example.com/c.png"},
		Config:     inlineConfig(),
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperr.ErrValidation))
	assert.Contains(t, err.Error(), "source_urls[1]")

	// Nothing may be half-created when the list is rejected.
	_, total, err := jobs.List(context.Background(), job.Filter{}, 0, 0)
	require.NoError(t, err)
	assert.Equal(t, 0, total)
}

func TestService_SubmitBatch_UnknownPresetRejected(t *testing.T) {
	svc, jobs, _ := newBatchService(t, &scriptedTransform{}, 1)

	_, _, err := svc.SubmitBatch(context.Background(), SubmitBatchRequest{
		SourceURLs: []string{"http://cdn.example.com/a.png"},
		PresetName: "missing",
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperr.ErrNotFound))

	_, total, err := jobs.List(context.Background(), job.Filter{}, 0, 0)
	require.NoError(t, err)
	assert.Equal(t, 0, total)
}

func TestService_ProcessBatch_SecondJobBlocked(t *testing.T) {
	srv := imageServer(t)
	blocked := payloadFor("/two.png")
	client := &scriptedTransform{
		decide: func(req *transform.Request) (*transform.Result, error) {
			if bytes.Equal(req.Image, blocked) {
				return nil, fmt.Errorf("%w: finish reason SAFETY", apperr.ErrUpstreamBlocked)
			}
			return okResult(), nil
		},
	}
	svc, _, _ := newBatchService(t, client, 1)

	batchID, jobIDs, err := svc.SubmitBatch(context.Background(), SubmitBatchRequest{
		SourceURLs: []string{srv.URL + "/one.png", srv.URL + "/two.png", srv.URL + "/three.png"},
		Config:     inlineConfig(),
	})
	require.NoError(t, err)

	// The run itself succeeds even though a job inside it failed.
	results, err := svc.ProcessBatch(context.Background(), batchID)
	require.NoError(t, err)
	require.Len(t, results, 3)

	assert.Equal(t, jobIDs[1], results[1].JobID)
	assert.Equal(t, model.StatusFailed, results[1].Status)
	assert.NotEmpty(t, results[1].Error)
	assert.Empty(t, results[1].ArtifactURL)

	for _, i := range []int{0, 2} {
		assert.Equal(t, model.StatusCompleted, results[i].Status, "result %d", i)
		assert.Empty(t, results[i].Error)
		assert.NotEmpty(t, results[i].ArtifactURL)
		assert.NotEmpty(t, results[i].OutputName)
	}

	summary, err := svc.Summarize(context.Background(), batchID)
	require.NoError(t, err)
	assert.Equal(t, 3, summary.Total)
	assert.Equal(t, 2, summary.Completed)
	assert.Equal(t, 1, summary.Failed)
	assert.Equal(t, 0, summary.Pending)
	assert.Equal(t, 0, summary.Processing)
	assert.Equal(t, 20, summary.TotalTokens, "only completed jobs contribute tokens")
}

func TestService_ProcessBatch_SequentialArrivalOrder(t *testing.T) {
	srv := imageServer(t)
	client := &scriptedTransform{}
	svc, _, _ := newBatchService(t, client, 1)

	batchID, _, err := svc.SubmitBatch(context.Background(), SubmitBatchRequest{
		SourceURLs: []string{srv.URL + "/one.png", srv.URL + "/two.png", srv.URL + "/three.png"},
		Config:     inlineConfig(),
	})
	require.NoError(t, err)

	_, err = svc.ProcessBatch(context.Background(), batchID)
	require.NoError(t, err)

	require.Len(t, client.seen, 3)
	assert.Equal(t, payloadFor("/one.png"), client.seen[0])
	assert.Equal(t, payloadFor("/two.png"), client.seen[1])
	assert.Equal(t, payloadFor("/three.png"), client.seen[2])
}

func TestService_ProcessBatch_SkipsTerminalJobs(t *testing.T) {
	srv := imageServer(t)
	client := &scriptedTransform{}
	svc, _, _ := newBatchService(t, client, 1)

	batchID, _, err := svc.SubmitBatch(context.Background(), SubmitBatchRequest{
		SourceURLs: []string{srv.URL + "/one.png", srv.URL + "/two.png"},
		Config:     inlineConfig(),
	})
	require.NoError(t, err)

	first, err := svc.ProcessBatch(context.Background(), batchID)
	require.NoError(t, err)
	assert.Len(t, first, 2)
	assert.Equal(t, 2, client.calls())

	// Nothing pending is left; a second run does no upstream work.
	second, err := svc.ProcessBatch(context.Background(), batchID)
	require.NoError(t, err)
	assert.Empty(t, second)
	assert.Equal(t, 2, client.calls())
}

func TestService_ProcessBatch_UnknownBatch(t *testing.T) {
	svc, _, _ := newBatchService(t, &scriptedTransform{}, 1)

	_, err := svc.ProcessBatch(context.Background(), "no-such-batch")
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperr.ErrNotFound))
}

func TestService_Summarize_CountsAndTokenSum(t *testing.T) {
	svc, jobs, _ := newBatchService(t, &scriptedTransform{}, 1)
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	seed := []*model.Job{
		{JobID: "a", JobStatus: model.StatusCompleted, Usage: model.TokenUsage{TotalTokens: 100}},
		{JobID: "b", JobStatus: model.StatusCompleted, Usage: model.TokenUsage{TotalTokens: 50}},
		{JobID: "c", JobStatus: model.StatusFailed, Usage: model.TokenUsage{TotalTokens: 999}},
		{JobID: "d", JobStatus: model.StatusPending},
		{JobID: "e", JobStatus: model.StatusProcessing},
	}
	for i, j := range seed {
		j.BatchID = "batch-1"
		j.SourceURL = "http://cdn.example.com/x.png"
		j.CreatedAt = base.Add(time.Duration(i) * time.Second)
		require.NoError(t, jobs.Create(context.Background(), j))
	}

	summary, err := svc.Summarize(context.Background(), "batch-1")
	require.NoError(t, err)
	assert.Equal(t, 5, summary.Total)
	assert.Equal(t, 2, summary.Completed)
	assert.Equal(t, 1, summary.Failed)
	assert.Equal(t, 1, summary.Pending)
	assert.Equal(t, 1, summary.Processing)
	assert.Equal(t, summary.Total, summary.Completed+summary.Failed+summary.Pending+summary.Processing)
	assert.Equal(t, 150, summary.TotalTokens, "failed job tokens are not counted")
}

func TestService_Summarize_UnknownBatch(t *testing.T) {
	svc, _, _ := newBatchService(t, &scriptedTransform{}, 1)

	_, err := svc.Summarize(context.Background(), "ghost")
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperr.ErrNotFound))
}
