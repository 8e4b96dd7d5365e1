package http

import (
	"encoding/json"
	"time"
)

type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// UpdateDraftRequest keeps version raw so a string or fractional version
// can be rejected before the store is touched.
type UpdateDraftRequest struct {
	Payload json.RawMessage `json:"payload"`
	Version json.RawMessage `json:"version"`
}

type CreateDraftCallbackRequest struct {
	DraftID string          `json:"draftId"`
	UserID  string          `json:"userId"`
	Payload json.RawMessage `json:"payload"`
}

type DraftDTO struct {
	ID             string          `json:"id"`
	UserID         string          `json:"userId"`
	AdAccountID    string          `json:"adAccountId,omitempty"`
	CreativeID     string          `json:"creativeId,omitempty"`
	Payload        json.RawMessage `json:"payload"`
	Status         string          `json:"status"`
	Version        int             `json:"version"`
	IdempotencyKey string          `json:"idempotencyKey,omitempty"`
	JobID          string          `json:"jobId,omitempty"`
	CreatedAt      time.Time       `json:"createdAt"`
	UpdatedAt      time.Time       `json:"updatedAt"`
}

type DraftResponse struct {
	Draft DraftDTO `json:"draft"`
}

type CreateDraftCallbackResponse struct {
	Draft    DraftDTO `json:"draft"`
	Replayed bool     `json:"replayed"`
}
