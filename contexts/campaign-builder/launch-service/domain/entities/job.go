package entities

import (
	"encoding/json"
	"time"
)

type JobStatus string

const (
	JobStatusQueued   JobStatus = "queued"
	JobStatusRunning  JobStatus = "running"
	JobStatusDone     JobStatus = "done"
	JobStatusError    JobStatus = "error"
	JobStatusCanceled JobStatus = "canceled"

	JobTypeCampaignLaunch = "campaign_launch"

	StepStarted = "started"
)

func (s JobStatus) IsTerminal() bool {
	switch s {
	case JobStatusDone, JobStatusError, JobStatusCanceled:
		return true
	default:
		return false
	}
}

func (s JobStatus) IsValid() bool {
	switch s {
	case JobStatusQueued, JobStatusRunning, JobStatusDone, JobStatusError, JobStatusCanceled:
		return true
	default:
		return false
	}
}

// Job is one tracked orchestration attempt. Only the pipeline executing the
// job mutates it, and it is frozen once Status is terminal.
type Job struct {
	JobID           string
	OwnerID         string
	Type            string
	Status          JobStatus
	Step            string
	Percent         int
	Error           string
	Meta            map[string]any
	Input           json.RawMessage
	CancelRequested bool
	Attempt         int
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// JobPatch carries the optional fields of an advance. Nil fields are left
// untouched; Meta replaces the stored map when non-nil.
type JobPatch struct {
	Step    *string
	Percent *int
	Status  *JobStatus
	Error   *string
	Meta    map[string]any
}

func (p JobPatch) WithStep(step string) JobPatch {
	p.Step = &step
	return p
}

func (p JobPatch) WithPercent(percent int) JobPatch {
	percent = ClampPercent(percent)
	p.Percent = &percent
	return p
}

func (p JobPatch) WithStatus(status JobStatus) JobPatch {
	p.Status = &status
	return p
}

func (p JobPatch) WithError(message string) JobPatch {
	p.Error = &message
	return p
}

func ClampPercent(value int) int {
	if value < 0 {
		return 0
	}
	if value > 100 {
		return 100
	}
	return value
}

// ApplyPatch folds a patch into a job the way the durable stores do:
// percent never moves backwards and terminal jobs are left as they are.
func ApplyPatch(job Job, patch JobPatch, now time.Time) Job {
	if job.Status.IsTerminal() {
		return job
	}
	if patch.Step != nil {
		job.Step = *patch.Step
	}
	if patch.Percent != nil && *patch.Percent > job.Percent {
		job.Percent = ClampPercent(*patch.Percent)
	}
	if patch.Status != nil {
		job.Status = *patch.Status
	}
	if patch.Error != nil {
		job.Error = *patch.Error
	}
	if patch.Meta != nil {
		job.Meta = CopyMeta(patch.Meta)
	}
	job.UpdatedAt = now.UTC()
	return job
}

func CopyMeta(meta map[string]any) map[string]any {
	if meta == nil {
		return nil
	}
	out := make(map[string]any, len(meta))
	for key, value := range meta {
		out[key] = value
	}
	return out
}
