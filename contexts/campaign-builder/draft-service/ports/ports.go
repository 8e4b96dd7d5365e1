package ports

import (
	"context"
	"encoding/json"
	"time"

	"adpilot/contexts/campaign-builder/draft-service/domain/entities"
)

// DraftRepository is the DraftStore. UpdateDraft and UpdateStatus are
// compare-and-swap on version; the comparison and the write are one
// statement in the backing store.
type DraftRepository interface {
	// CreateDraft inserts draft unless its idempotency key exists, in which
	// case the stored draft is returned with created=false.
	CreateDraft(ctx context.Context, draft entities.Draft) (stored entities.Draft, created bool, err error)
	GetDraft(ctx context.Context, draftID string) (entities.Draft, error)
	UpdateDraft(ctx context.Context, input UpdateDraftInput) (entities.Draft, error)
	UpdateStatus(ctx context.Context, input UpdateStatusInput) (entities.Draft, error)
	// ReopenDraft returns a draft submitted for input.JobID to pending.
	ReopenDraft(ctx context.Context, input ReopenDraftInput) (entities.Draft, error)
}

type UpdateDraftInput struct {
	DraftID         string
	Payload         json.RawMessage
	AdAccountID     string
	CreativeID      string
	ExpectedVersion int
	UpdatedAt       time.Time
}

type UpdateStatusInput struct {
	DraftID         string
	ExpectedVersion int
	Status          entities.DraftStatus
	JobID           string
	UpdatedAt       time.Time
}

type ReopenDraftInput struct {
	DraftID         string
	ExpectedVersion int
	JobID           string
	UpdatedAt       time.Time
}

type Clock interface {
	Now() time.Time
}
