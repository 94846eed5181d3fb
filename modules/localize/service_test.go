package localize

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/art-solutions/nanobana-gen/modules/common/apperr"
	"github.com/art-solutions/nanobana-gen/modules/common/fallback"
	"github.com/art-solutions/nanobana-gen/modules/common/model"
	"github.com/art-solutions/nanobana-gen/modules/common/storage"
	"github.com/art-solutions/nanobana-gen/modules/job"
	"github.com/art-solutions/nanobana-gen/modules/transform"
)

// stubTransform - transform.Client with a scripted Generate, recording the
// last request so tests can inspect what the orchestrator sent upstream.
type stubTransform struct {
	generate func(ctx context.Context, req *transform.Request) (*transform.Result, error)
	calls    int
	lastReq  *transform.Request
}

func (c *stubTransform) Generate(ctx context.Context, req *transform.Request) (*transform.Result, error) {
	c.calls++
	c.lastReq = req
	return c.generate(ctx, req)
}

// recordingNotifier - collects the status of every published job in order.
type recordingNotifier struct {
	statuses []string
}

func (n *recordingNotifier) Publish(j *model.Job) {
	n.statuses = append(n.statuses, j.JobStatus)
}

func okTransform(usage model.TokenUsage) *stubTransform {
	return &stubTransform{
		generate: func(ctx context.Context, req *transform.Request) (*transform.Result, error) {
			return &transform.Result{
				Data:     []byte{0x89, 0x50, 0x4E, 0x47, 0x01},
				MIMEType: "image/png",
				Usage:    usage,
			}, nil
		},
	}
}

func sourceServer(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/png")
		w.Write(fallback.PlaceholderBytes())
	}))
	t.Cleanup(srv.Close)
	return srv
}

func pendingLocalizeJob(t *testing.T, jobs *job.MemoryStore, sourceURL string, cfg model.LocaleConfig) *model.Job {
	t.Helper()
	j := &model.Job{
		JobID:     "job-" + t.Name(),
		SourceURL: sourceURL,
		Config:    cfg,
		JobStatus: model.StatusPending,
		CreatedAt: time.Now().UTC(),
	}
	require.NoError(t, jobs.Create(context.Background(), j))
	return j
}

func TestService_Process_CompletesJob(t *testing.T) {
	srv := sourceServer(t)
	jobs := job.NewMemoryStore()
	artifacts := storage.NewMemoryStore()
	notifier := &recordingNotifier{}
	client := okTransform(model.TokenUsage{PromptTokens: 5, CandidateTokens: 6, TotalTokens: 11})
	svc := NewService(jobs, artifacts, client, notifier)

	created := pendingLocalizeJob(t, jobs, srv.URL+"/banner-en.png", model.LocaleConfig{
		TargetLocale:    "ko-KR",
		FilenameFind:    `banner-([a-z]+)\.png`,
		FilenameReplace: "banner_$1_ko.png",
	})

	require.NoError(t, svc.Process(context.Background(), created.JobID))

	got, err := jobs.Get(context.Background(), created.JobID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusCompleted, got.JobStatus)
	assert.NotEmpty(t, got.ArtifactRef)
	assert.Equal(t, "memory://"+got.ArtifactRef, got.ArtifactURL)
	assert.Equal(t, "banner_en_ko.png", got.OutputName)
	assert.Equal(t, 11, got.Usage.TotalTokens)
	assert.Nil(t, got.ErrorMessage)
	require.NotNil(t, got.StartedAt)
	require.NotNil(t, got.CompletedAt)

	assert.Equal(t, 1, artifacts.Len())
	assert.Equal(t, []string{model.StatusProcessing, model.StatusCompleted}, notifier.statuses)
}

func TestService_Process_SendsSourceAndLogoUpstream(t *testing.T) {
	srv := sourceServer(t)
	jobs := job.NewMemoryStore()
	client := okTransform(model.TokenUsage{})
	svc := NewService(jobs, storage.NewMemoryStore(), client, nil)

	created := pendingLocalizeJob(t, jobs, srv.URL+"/shop.png", model.LocaleConfig{
		TargetLocale: "ja-JP",
		AttachLogo:   true,
		LogoData:     fallback.PlaceholderBytes(),
		Model:        "gemini-2.5-flash-image",
		AspectRatio:  "16:9",
	})

	require.NoError(t, svc.Process(context.Background(), created.JobID))

	require.Equal(t, 1, client.calls)
	req := client.lastReq
	require.NotNil(t, req)
	assert.Equal(t, fallback.PlaceholderBytes(), req.Image)
	assert.Equal(t, "image/png", req.ImageMIME)
	assert.Equal(t, fallback.PlaceholderBytes(), req.Logo)
	assert.Equal(t, "image/png", req.LogoMIME)
	assert.Equal(t, "gemini-2.5-flash-image", req.Model)
	assert.Equal(t, "16:9", req.AspectRatio)
	assert.Contains(t, req.Instruction, "[BRANDING - LOGO]")
	assert.Contains(t, req.Instruction, "ja-JP")
}

func TestService_Process_DefaultsAspectRatio(t *testing.T) {
	srv := sourceServer(t)
	jobs := job.NewMemoryStore()
	client := okTransform(model.TokenUsage{})
	svc := NewService(jobs, storage.NewMemoryStore(), client, nil)

	// Whitespace collapses to unset; the request carries the square default.
	created := pendingLocalizeJob(t, jobs, srv.URL+"/shop.png", model.LocaleConfig{
		TargetLocale: "ko-KR",
		AspectRatio:  "   ",
	})

	require.NoError(t, svc.Process(context.Background(), created.JobID))

	require.NotNil(t, client.lastReq)
	assert.Equal(t, "1:1", client.lastReq.AspectRatio)
}

func TestService_Process_UpstreamBlockedMarksFailed(t *testing.T) {
	srv := sourceServer(t)
	jobs := job.NewMemoryStore()
	notifier := &recordingNotifier{}
	client := &stubTransform{
		generate: func(ctx context.Context, req *transform.Request) (*transform.Result, error) {
			return nil, fmt.Errorf("%w: finish reason SAFETY", apperr.ErrUpstreamBlocked)
		},
	}
	svc := NewService(jobs, storage.NewMemoryStore(), client, notifier)

	created := pendingLocalizeJob(t, jobs, srv.URL+"/shop.png", model.LocaleConfig{TargetLocale: "ko-KR"})

	// The failure lands on the job record, never on the caller.
	require.NoError(t, svc.Process(context.Background(), created.JobID))

	got, err := jobs.Get(context.Background(), created.JobID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusFailed, got.JobStatus)
	require.NotNil(t, got.ErrorMessage)
	assert.Contains(t, *got.ErrorMessage, "upstream blocked")
	assert.Empty(t, got.ArtifactRef)
	assert.Empty(t, got.OutputName)
	require.NotNil(t, got.CompletedAt)
	assert.Equal(t, []string{model.StatusProcessing, model.StatusFailed}, notifier.statuses)
}

func TestService_Process_StorageFailureMarksFailed(t *testing.T) {
	srv := sourceServer(t)
	jobs := job.NewMemoryStore()
	client := &stubTransform{
		generate: func(ctx context.Context, req *transform.Request) (*transform.Result, error) {
			// The memory store rejects empty payloads with a storage error.
			return &transform.Result{Data: nil, MIMEType: "image/png"}, nil
		},
	}
	svc := NewService(jobs, storage.NewMemoryStore(), client, nil)

	created := pendingLocalizeJob(t, jobs, srv.URL+"/shop.png", model.LocaleConfig{TargetLocale: "ko-KR"})

	require.NoError(t, svc.Process(context.Background(), created.JobID))

	got, err := jobs.Get(context.Background(), created.JobID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusFailed, got.JobStatus)
	require.NotNil(t, got.ErrorMessage)
	assert.Contains(t, *got.ErrorMessage, "storage failure")
}

func TestService_Process_SourceFetchFailureMarksFailed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	t.Cleanup(srv.Close)

	jobs := job.NewMemoryStore()
	client := okTransform(model.TokenUsage{})
	svc := NewService(jobs, storage.NewMemoryStore(), client, nil)

	created := pendingLocalizeJob(t, jobs, srv.URL+"/gone.png", model.LocaleConfig{TargetLocale: "ko-KR"})

	require.NoError(t, svc.Process(context.Background(), created.JobID))

	got, err := jobs.Get(context.Background(), created.JobID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusFailed, got.JobStatus)
	require.NotNil(t, got.ErrorMessage)
	assert.Contains(t, *got.ErrorMessage, "status 404")
	assert.Equal(t, 0, client.calls, "transform must not run without a source image")
}

func TestService_Process_BadPatternStillCompletes(t *testing.T) {
	srv := sourceServer(t)
	jobs := job.NewMemoryStore()
	client := okTransform(model.TokenUsage{})
	svc := NewService(jobs, storage.NewMemoryStore(), client, nil)
	fixed := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	svc.deriver = NewDeriverWithClock(func() time.Time { return fixed })

	created := pendingLocalizeJob(t, jobs, srv.URL+"/banner.png", model.LocaleConfig{
		TargetLocale:    "ko-KR",
		FilenameFind:    "([unclosed",
		FilenameReplace: "ignored_$1.png",
	})

	require.NoError(t, svc.Process(context.Background(), created.JobID))

	got, err := jobs.Get(context.Background(), created.JobID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusCompleted, got.JobStatus)
	assert.Equal(t, fmt.Sprintf("localized_%d.png", fixed.UnixMilli()), got.OutputName)
}

func TestService_Process_UnknownJobReturnsError(t *testing.T) {
	svc := NewService(job.NewMemoryStore(), storage.NewMemoryStore(), okTransform(model.TokenUsage{}), nil)

	err := svc.Process(context.Background(), "no-such-job")
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperr.ErrNotFound))
}

func TestService_Process_LostLeaseReturnsError(t *testing.T) {
	srv := sourceServer(t)
	jobs := job.NewMemoryStore()
	notifier := &recordingNotifier{}
	client := okTransform(model.TokenUsage{})
	svc := NewService(jobs, storage.NewMemoryStore(), client, notifier)

	created := pendingLocalizeJob(t, jobs, srv.URL+"/shop.png", model.LocaleConfig{TargetLocale: "ko-KR"})
	_, err := jobs.MarkProcessing(context.Background(), created.JobID)
	require.NoError(t, err)

	err = svc.Process(context.Background(), created.JobID)
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperr.ErrConflict))

	// The job belongs to whoever holds the lease; it must not be failed.
	got, err := jobs.Get(context.Background(), created.JobID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusProcessing, got.JobStatus)
	assert.Nil(t, got.ErrorMessage)
	assert.Equal(t, 0, client.calls)
	assert.Empty(t, notifier.statuses)
}
