package batch

import "github.com/art-solutions/nanobana-gen/modules/common/model"

// SubmitBatchRequest - one entry per source image; all jobs share the same
// resolved config and a freshly minted batch id.
type SubmitBatchRequest struct {
	SourceURLs []string            `json:"source_urls"`
	PresetName string              `json:"preset_name,omitempty"`
	Config     *model.LocaleConfig `json:"config,omitempty"`
}

// SubmitBatchResponse - job ids are in source_urls order.
type SubmitBatchResponse struct {
	Success bool     `json:"success"`
	BatchID string   `json:"batch_id"`
	JobIDs  []string `json:"job_ids"`
}

// Result - outcome of one job within a processing run. Error is filled only
// for failed jobs; artifact fields only for completed ones.
type Result struct {
	JobID       string `json:"job_id"`
	Status      string `json:"status"`
	Error       string `json:"error,omitempty"`
	ArtifactURL string `json:"artifact_url,omitempty"`
	OutputName  string `json:"output_name,omitempty"`
}

// ProcessBatchResponse - always carries the full per-job results array, even
// when some of the jobs failed.
type ProcessBatchResponse struct {
	Success bool     `json:"success"`
	BatchID string   `json:"batch_id"`
	Results []Result `json:"results"`
}

// SummaryResponse - status counts and the completed-only token total.
type SummaryResponse struct {
	Success bool               `json:"success"`
	Summary model.BatchSummary `json:"summary"`
}
