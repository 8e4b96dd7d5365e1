package postgresadapter

import (
	"strings"
	"time"

	"adpilot/contexts/campaign-builder/launch-service/domain/entities"

	"gorm.io/datatypes"
)

type jobModel struct {
	JobID           string            `gorm:"column:job_id;primaryKey;size:64"`
	OwnerID         string            `gorm:"column:owner_id;size:128;index"`
	Type            string            `gorm:"column:job_type;size:64"`
	Status          string            `gorm:"column:status;size:16;index"`
	Step            string            `gorm:"column:step;size:128"`
	Percent         int               `gorm:"column:percent"`
	Error           string            `gorm:"column:error_message"`
	Meta            datatypes.JSONMap `gorm:"column:meta"`
	Input           datatypes.JSON    `gorm:"column:input"`
	CancelRequested bool              `gorm:"column:cancel_requested"`
	Attempt         int               `gorm:"column:attempt"`
	CreatedAt       time.Time         `gorm:"column:created_at"`
	UpdatedAt       time.Time         `gorm:"column:updated_at;index"`
}

func (jobModel) TableName() string {
	return "launch_jobs"
}

func jobModelFromEntity(item entities.Job) jobModel {
	return jobModel{
		JobID:           strings.TrimSpace(item.JobID),
		OwnerID:         strings.TrimSpace(item.OwnerID),
		Type:            strings.TrimSpace(item.Type),
		Status:          string(item.Status),
		Step:            item.Step,
		Percent:         entities.ClampPercent(item.Percent),
		Error:           item.Error,
		Meta:            datatypes.JSONMap(entities.CopyMeta(item.Meta)),
		Input:           datatypes.JSON(append([]byte(nil), item.Input...)),
		CancelRequested: item.CancelRequested,
		Attempt:         item.Attempt,
		CreatedAt:       item.CreatedAt.UTC(),
		UpdatedAt:       item.UpdatedAt.UTC(),
	}
}

func (m jobModel) toEntity() entities.Job {
	return entities.Job{
		JobID:           m.JobID,
		OwnerID:         m.OwnerID,
		Type:            m.Type,
		Status:          entities.JobStatus(m.Status),
		Step:            m.Step,
		Percent:         m.Percent,
		Error:           m.Error,
		Meta:            entities.CopyMeta(map[string]any(m.Meta)),
		Input:           append([]byte(nil), m.Input...),
		CancelRequested: m.CancelRequested,
		Attempt:         m.Attempt,
		CreatedAt:       m.CreatedAt.UTC(),
		UpdatedAt:       m.UpdatedAt.UTC(),
	}
}

type progressEventModel struct {
	EventID   string            `gorm:"column:event_id;primaryKey;size:64"`
	JobID     string            `gorm:"column:job_id;size:64;uniqueIndex:idx_progress_events_job_seq,priority:1"`
	Seq       int64             `gorm:"column:seq;uniqueIndex:idx_progress_events_job_seq,priority:2"`
	Step      string            `gorm:"column:step;size:128"`
	Status    string            `gorm:"column:status;size:16"`
	Percent   *int              `gorm:"column:percent"`
	Message   string            `gorm:"column:message"`
	Meta      datatypes.JSONMap `gorm:"column:meta"`
	CreatedAt time.Time         `gorm:"column:created_at"`
}

func (progressEventModel) TableName() string {
	return "launch_progress_events"
}

func (m progressEventModel) toEntity() entities.ProgressEvent {
	var percent *int
	if m.Percent != nil {
		value := *m.Percent
		percent = &value
	}
	return entities.ProgressEvent{
		EventID:   m.EventID,
		JobID:     m.JobID,
		Step:      m.Step,
		Status:    entities.EventStatus(m.Status),
		Percent:   percent,
		Message:   m.Message,
		Meta:      entities.CopyMeta(map[string]any(m.Meta)),
		Seq:       m.Seq,
		CreatedAt: m.CreatedAt.UTC(),
	}
}

type idempotencyModel struct {
	Key             string    `gorm:"column:idempotency_key;primaryKey;size:191"`
	RequestHash     string    `gorm:"column:request_hash;size:64"`
	ResponsePayload []byte    `gorm:"column:response_payload"`
	ExpiresAt       time.Time `gorm:"column:expires_at"`
}

func (idempotencyModel) TableName() string {
	return "launch_idempotency"
}
