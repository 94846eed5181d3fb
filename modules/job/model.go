package job

import (
	"github.com/art-solutions/nanobana-gen/modules/common/model"
)

// CreateJobRequest - payload for a single localization job. Either an inline
// config or a preset name must be supplied; inline wins when both are
// present. The resolved config is snapshotted onto the job at creation.
type CreateJobRequest struct {
	SourceURL  string              `json:"source_url"`
	BatchID    string              `json:"batch_id,omitempty"`
	PresetName string              `json:"preset_name,omitempty"`
	Config     *model.LocaleConfig `json:"config,omitempty"`
}

// CreateJobResponse - the freshly created pending job.
type CreateJobResponse struct {
	Success bool       `json:"success"`
	JobID   string     `json:"job_id"`
	Job     *model.Job `json:"job"`
}

// ListJobsResponse - one filtered page plus the total match count before
// paging.
type ListJobsResponse struct {
	Items []model.Job `json:"items"`
	Total int         `json:"total"`
}
