package ports

import (
	"context"
	"encoding/json"
	"time"

	"adpilot/contexts/campaign-builder/launch-service/domain/entities"
	"adpilot/internal/shared/events"
)

// JobRepository is the JobStore. Every mutation is a single atomic statement
// or transaction in the backing store.
type JobRepository interface {
	CreateJob(ctx context.Context, job entities.Job) error
	GetJob(ctx context.Context, jobID string) (entities.Job, error)
	// ClaimJob moves a queued job to running with step "started".
	ClaimJob(ctx context.Context, jobID string, now time.Time) (entities.Job, error)
	// AdvanceJob never inserts and never touches a terminal job.
	AdvanceJob(ctx context.Context, jobID string, patch entities.JobPatch, now time.Time) (entities.Job, error)
	RequestCancel(ctx context.Context, jobID string, now time.Time) (entities.Job, error)
	ListStaleRunning(ctx context.Context, cutoff time.Time, limit int) ([]entities.Job, error)
}

type RecordEventInput struct {
	EventID   string
	JobID     string
	Step      string
	Status    entities.EventStatus
	Percent   *int
	Message   string
	Meta      map[string]any
	CreatedAt time.Time
}

// EventLog is the append-only ProgressEventLog.
type EventLog interface {
	// AppendEvent assigns the per-job seq and fails with
	// ErrUnknownJobForEvent when the job row does not exist.
	AppendEvent(ctx context.Context, input RecordEventInput) (entities.ProgressEvent, error)
	ListEvents(ctx context.Context, jobID string, afterSeq int64) ([]entities.ProgressEvent, error)
}

type IdempotencyRecord struct {
	Key             string
	RequestHash     string
	ResponsePayload []byte
	ExpiresAt       time.Time
}

// IdempotencyStore reserves a key before the work it guards starts. A
// reserved record without a response payload is still in flight.
type IdempotencyStore interface {
	// ReserveRecord stores record unless a live record already holds the key,
	// in which case that record comes back with reserved=false. Expired
	// records are replaced.
	ReserveRecord(ctx context.Context, record IdempotencyRecord, now time.Time) (stored IdempotencyRecord, reserved bool, err error)
	// CompleteRecord attaches the response to the reservation made with the
	// same request hash.
	CompleteRecord(ctx context.Context, key string, requestHash string, response []byte) error
	// ReleaseRecord drops an unfinished reservation so the key can be retried.
	ReleaseRecord(ctx context.Context, key string, requestHash string) error
}

type LaunchTask struct {
	JobID string `json:"job_id"`
}

type LaunchQueue interface {
	Enqueue(ctx context.Context, task LaunchTask) error
}

type LaunchHandler func(ctx context.Context, task LaunchTask) error

// LaunchSource delivers enqueued tasks until ctx ends.
type LaunchSource interface {
	Consume(ctx context.Context, handler LaunchHandler) error
}

type RemoteOperation string

const (
	RemoteCreate RemoteOperation = "create"
	RemoteUpdate RemoteOperation = "update"
	RemoteDelete RemoteOperation = "delete"
	RemoteGet    RemoteOperation = "get"
)

type RemoteRequest struct {
	Kind       entities.StageKind
	Path       string
	Payload    map[string]any
	Credential string
}

// RemoteEntityClient talks to the ad platform. Errors are always
// *errors.RemoteAPIError.
type RemoteEntityClient interface {
	Create(ctx context.Context, req RemoteRequest) (string, error)
	Update(ctx context.Context, req RemoteRequest) error
	Delete(ctx context.Context, req RemoteRequest) error
	Get(ctx context.Context, req RemoteRequest) (map[string]any, error)
}

type CredentialResolver interface {
	ResolveCredential(ctx context.Context, ownerID string, adAccountID string) (string, error)
}

type LaunchDraft struct {
	DraftID string
	UserID  string
	Version int
	Payload json.RawMessage
}

// DraftSource lets a launch read and claim a collaborative draft.
type DraftSource interface {
	LoadForLaunch(ctx context.Context, draftID string) (LaunchDraft, error)
	MarkSubmitted(ctx context.Context, draftID string, expectedVersion int, jobID string) error
	// ReleaseSubmitted returns a draft claimed by jobID to pending.
	// submittedVersion is the version MarkSubmitted produced.
	ReleaseSubmitted(ctx context.Context, draftID string, submittedVersion int, jobID string) error
}

type EventEnvelope = events.Envelope

type EventPublisher interface {
	Publish(ctx context.Context, topic string, event EventEnvelope) error
}

type Metrics interface {
	ObserveStage(stage entities.StageKind, status entities.EventStatus)
	ObserveRemoteCall(kind entities.StageKind, operation RemoteOperation, elapsed time.Duration)
	ObserveJob(status entities.JobStatus)
}

type Clock interface {
	Now() time.Time
}

type IDGenerator interface {
	NewID(ctx context.Context) (string, error)
}
