package events

import (
	"encoding/json"
	"time"
)

const (
	TypeJobUpdated    = "job.updated"
	TypeEventRecorded = "event.recorded"
)

// Envelope is the realtime notification shape. Data carries only the ids a
// subscriber needs to read the authoritative row back from the store.
type Envelope struct {
	EventID       string          `json:"event_id"`
	EventType     string          `json:"event_type"`
	OccurredAt    time.Time       `json:"occurred_at"`
	SourceService string          `json:"source_service"`
	PartitionKey  string          `json:"partition_key"`
	SchemaVersion int             `json:"schema_version"`
	Data          json.RawMessage `json:"data"`
}

// JobNotice is the Data payload of both envelope types. Seq is set for
// event.recorded only.
type JobNotice struct {
	JobID  string `json:"job_id"`
	Seq    int64  `json:"seq,omitempty"`
	Status string `json:"status,omitempty"`
}

// JobTopic is the per-job realtime topic.
func JobTopic(jobID string) string {
	return "jobs." + jobID
}

func DecodeNotice(envelope Envelope) (JobNotice, error) {
	var notice JobNotice
	if err := json.Unmarshal(envelope.Data, &notice); err != nil {
		return JobNotice{}, err
	}
	return notice, nil
}
