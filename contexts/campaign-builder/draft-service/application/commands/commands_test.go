package commands

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"adpilot/contexts/campaign-builder/draft-service/adapters/memory"
	"adpilot/contexts/campaign-builder/draft-service/domain/entities"
	domainerrors "adpilot/contexts/campaign-builder/draft-service/domain/errors"
)

func TestCreateDraftCallbackReplay(t *testing.T) {
	store := memory.NewStore(nil)
	uc := CreateDraftUseCase{Drafts: store, Clock: store}
	ctx := context.Background()
	payload := json.RawMessage(`{"adAccountId":"act_9","adSets":[{"creatives":[{"creativeId":"cr_1"}]}]}`)

	first, err := uc.Execute(ctx, CreateDraftCommand{DraftID: "d1", UserID: "user-1", Payload: payload})
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if first.Replayed || first.Draft.Version != 1 || first.Draft.Status != entities.DraftStatusPending {
		t.Fatalf("unexpected first result %+v", first)
	}
	if first.Draft.AdAccountID != "act_9" || first.Draft.CreativeID != "cr_1" {
		t.Fatalf("expected denormalized refs, got %q %q", first.Draft.AdAccountID, first.Draft.CreativeID)
	}

	second, err := uc.Execute(ctx, CreateDraftCommand{DraftID: "d1", UserID: "user-1", Payload: json.RawMessage(`{"other":true}`)})
	if err != nil {
		t.Fatalf("replay failed: %v", err)
	}
	if !second.Replayed || string(second.Draft.Payload) != string(payload) {
		t.Fatalf("expected replay of stored draft, got %+v", second)
	}

	_, err = uc.Execute(ctx, CreateDraftCommand{DraftID: "d1", UserID: "user-2", Payload: payload})
	if !errors.Is(err, domainerrors.ErrIdempotencyKeyConflict) {
		t.Fatalf("expected ErrIdempotencyKeyConflict, got %v", err)
	}
}

func TestCreateDraftRejectsBadInput(t *testing.T) {
	store := memory.NewStore(nil)
	uc := CreateDraftUseCase{Drafts: store, Clock: store}
	cases := []CreateDraftCommand{
		{UserID: "user-1", Payload: json.RawMessage(`{}`)},
		{DraftID: "d1", Payload: json.RawMessage(`{}`)},
		{DraftID: "d1", UserID: "user-1", Payload: json.RawMessage(`[1,2]`)},
		{DraftID: "d1", UserID: "user-1", Payload: json.RawMessage(`{broken`)},
	}
	for i, cmd := range cases {
		if _, err := uc.Execute(context.Background(), cmd); !errors.Is(err, domainerrors.ErrInvalidDraftInput) {
			t.Fatalf("case %d: expected ErrInvalidDraftInput, got %v", i, err)
		}
	}
}

func TestConcurrentEditorsSecondWriteConflicts(t *testing.T) {
	store := memory.NewStore([]entities.Draft{{
		DraftID: "d1",
		UserID:  "user-1",
		Payload: json.RawMessage(`{"campaign":{"name":"v1"}}`),
		Status:  entities.DraftStatusPending,
		Version: 1,
	}})
	uc := UpdateDraftUseCase{Drafts: store, Clock: store}
	ctx := context.Background()

	first, err := uc.Execute(ctx, UpdateDraftCommand{DraftID: "d1", ActorID: "user-1", Payload: json.RawMessage(`{"campaign":{"name":"tab A"}}`), ExpectedVersion: 1})
	if err != nil {
		t.Fatalf("first update failed: %v", err)
	}
	if first.Version != 2 {
		t.Fatalf("expected version 2, got %d", first.Version)
	}

	_, err = uc.Execute(ctx, UpdateDraftCommand{DraftID: "d1", ActorID: "user-1", Payload: json.RawMessage(`{"campaign":{"name":"tab B"}}`), ExpectedVersion: 1})
	if !errors.Is(err, domainerrors.ErrVersionConflict) {
		t.Fatalf("expected ErrVersionConflict, got %v", err)
	}

	retried, err := uc.Execute(ctx, UpdateDraftCommand{DraftID: "d1", ActorID: "user-1", Payload: json.RawMessage(`{"campaign":{"name":"tab B"}}`), ExpectedVersion: 2})
	if err != nil || retried.Version != 3 {
		t.Fatalf("expected retry at version 2 to win, got %+v %v", retried, err)
	}

	_, err = uc.Execute(ctx, UpdateDraftCommand{DraftID: "d1", ActorID: "user-2", Payload: json.RawMessage(`{}`), ExpectedVersion: 3})
	if !errors.Is(err, domainerrors.ErrUnauthorizedActor) {
		t.Fatalf("expected ErrUnauthorizedActor, got %v", err)
	}
}

func TestMarkSubmitted(t *testing.T) {
	store := memory.NewStore([]entities.Draft{{DraftID: "d1", UserID: "user-1", Payload: json.RawMessage(`{}`), Status: entities.DraftStatusPending, Version: 4}})
	uc := MarkSubmittedUseCase{Drafts: store, Clock: store}

	if _, err := uc.Execute(context.Background(), MarkSubmittedCommand{DraftID: "d1", ExpectedVersion: 3, JobID: "job-1"}); !errors.Is(err, domainerrors.ErrVersionConflict) {
		t.Fatalf("expected ErrVersionConflict, got %v", err)
	}
	draft, err := uc.Execute(context.Background(), MarkSubmittedCommand{DraftID: "d1", ExpectedVersion: 4, JobID: "job-1"})
	if err != nil {
		t.Fatalf("mark submitted failed: %v", err)
	}
	if draft.Status != entities.DraftStatusSubmitted || draft.JobID != "job-1" || draft.Version != 5 {
		t.Fatalf("unexpected draft %+v", draft)
	}
}
