package postgresadapter

import (
	"strings"
	"time"

	"adpilot/contexts/campaign-builder/draft-service/domain/entities"

	"gorm.io/datatypes"
)

type draftModel struct {
	DraftID        string         `gorm:"column:draft_id;primaryKey;size:128"`
	UserID         string         `gorm:"column:user_id;size:128;index"`
	AdAccountID    string         `gorm:"column:ad_account_id;size:64"`
	CreativeID     string         `gorm:"column:creative_id;size:64"`
	Payload        datatypes.JSON `gorm:"column:payload_json"`
	Status         string         `gorm:"column:status;size:16"`
	Version        int            `gorm:"column:version;not null"`
	IdempotencyKey string         `gorm:"column:idempotency_key;size:128;uniqueIndex"`
	JobID          string         `gorm:"column:job_id;size:64"`
	CreatedAt      time.Time      `gorm:"column:created_at"`
	UpdatedAt      time.Time      `gorm:"column:updated_at"`
}

func (draftModel) TableName() string {
	return "campaign_drafts"
}

func draftModelFromEntity(item entities.Draft) draftModel {
	return draftModel{
		DraftID:        strings.TrimSpace(item.DraftID),
		UserID:         strings.TrimSpace(item.UserID),
		AdAccountID:    item.AdAccountID,
		CreativeID:     item.CreativeID,
		Payload:        datatypes.JSON(append([]byte(nil), item.Payload...)),
		Status:         string(item.Status),
		Version:        item.Version,
		IdempotencyKey: strings.TrimSpace(item.IdempotencyKey),
		JobID:          item.JobID,
		CreatedAt:      item.CreatedAt.UTC(),
		UpdatedAt:      item.UpdatedAt.UTC(),
	}
}

func (m draftModel) toEntity() entities.Draft {
	return entities.Draft{
		DraftID:        m.DraftID,
		UserID:         m.UserID,
		AdAccountID:    m.AdAccountID,
		CreativeID:     m.CreativeID,
		Payload:        append([]byte(nil), m.Payload...),
		Status:         entities.DraftStatus(m.Status),
		Version:        m.Version,
		IdempotencyKey: m.IdempotencyKey,
		JobID:          m.JobID,
		CreatedAt:      m.CreatedAt.UTC(),
		UpdatedAt:      m.UpdatedAt.UTC(),
	}
}
