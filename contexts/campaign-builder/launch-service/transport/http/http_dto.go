package http

import (
	"encoding/json"
	"time"
)

type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// SubmitLaunchRequest carries exactly one of Specification or DraftID.
type SubmitLaunchRequest struct {
	Specification json.RawMessage `json:"specification,omitempty"`
	DraftID       string          `json:"draftId,omitempty"`
	Meta          map[string]any  `json:"meta,omitempty"`
}

type NodeDTO struct {
	ID    string `json:"id"`
	Type  string `json:"type"`
	Label string `json:"label"`
}

type EdgeDTO struct {
	ID     string `json:"id"`
	Source string `json:"source"`
	Target string `json:"target"`
}

type SubmitLaunchResponse struct {
	JobID    string    `json:"jobId"`
	Nodes    []NodeDTO `json:"nodes,omitempty"`
	Edges    []EdgeDTO `json:"edges,omitempty"`
	Replayed bool      `json:"replayed,omitempty"`
}

type JobDTO struct {
	ID              string         `json:"id"`
	OwnerID         string         `json:"ownerId"`
	Type            string         `json:"type"`
	Status          string         `json:"status"`
	Step            *string        `json:"step"`
	Percent         int            `json:"percent"`
	Error           *string        `json:"error"`
	Meta            map[string]any `json:"meta"`
	CancelRequested bool           `json:"cancelRequested"`
	Attempt         int            `json:"attempt"`
	CreatedAt       time.Time      `json:"createdAt"`
	UpdatedAt       time.Time      `json:"updatedAt"`
}

type JobResponse struct {
	Job JobDTO `json:"job"`
}

type ProgressEventDTO struct {
	ID        string         `json:"id"`
	JobID     string         `json:"jobId"`
	Step      string         `json:"step"`
	Status    string         `json:"status"`
	Percent   *int           `json:"percent"`
	Message   *string        `json:"message"`
	Meta      map[string]any `json:"meta"`
	Seq       int64          `json:"seq"`
	CreatedAt time.Time      `json:"createdAt"`
}

type ListEventsResponse struct {
	Items []ProgressEventDTO `json:"items"`
}

// StreamMessage is one server-sent event on the job stream. Exactly one of
// Job or Event is set.
type StreamMessage struct {
	Type  string            `json:"type"`
	Job   *JobDTO           `json:"job,omitempty"`
	Event *ProgressEventDTO `json:"event,omitempty"`
}
