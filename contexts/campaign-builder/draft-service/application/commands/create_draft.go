package commands

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"

	application "adpilot/contexts/campaign-builder/draft-service/application"
	"adpilot/contexts/campaign-builder/draft-service/domain/entities"
	domainerrors "adpilot/contexts/campaign-builder/draft-service/domain/errors"
	"adpilot/contexts/campaign-builder/draft-service/ports"
)

// CreateDraftCommand is the automation callback. DraftID doubles as the
// idempotency key.
type CreateDraftCommand struct {
	DraftID string
	UserID  string
	Payload json.RawMessage
}

type CreateDraftResult struct {
	Draft    entities.Draft
	Replayed bool
}

type CreateDraftUseCase struct {
	Drafts ports.DraftRepository
	Clock  ports.Clock
	Logger *slog.Logger
}

func (uc CreateDraftUseCase) Execute(ctx context.Context, cmd CreateDraftCommand) (CreateDraftResult, error) {
	logger := application.ResolveLogger(uc.Logger)
	draftID := strings.TrimSpace(cmd.DraftID)
	userID := strings.TrimSpace(cmd.UserID)
	if draftID == "" || userID == "" || !entities.ValidPayload(cmd.Payload) {
		return CreateDraftResult{}, domainerrors.ErrInvalidDraftInput
	}

	now := uc.Clock.Now().UTC()
	adAccountID, creativeID := entities.PayloadRefs(cmd.Payload)
	stored, created, err := uc.Drafts.CreateDraft(ctx, entities.Draft{
		DraftID:        draftID,
		UserID:         userID,
		AdAccountID:    adAccountID,
		CreativeID:     creativeID,
		Payload:        append([]byte(nil), cmd.Payload...),
		Status:         entities.DraftStatusPending,
		Version:        entities.InitialVersion,
		IdempotencyKey: draftID,
		CreatedAt:      now,
		UpdatedAt:      now,
	})
	if err != nil {
		return CreateDraftResult{}, err
	}
	if !created {
		if stored.UserID != userID {
			return CreateDraftResult{}, domainerrors.ErrIdempotencyKeyConflict
		}
		logger.Info("draft callback replayed",
			"event", "draft_callback_replayed",
			"module", "campaign-builder/draft-service",
			"layer", "application",
			"draft_id", stored.DraftID,
			"version", stored.Version,
		)
		return CreateDraftResult{Draft: stored, Replayed: true}, nil
	}

	logger.Info("draft created",
		"event", "draft_created",
		"module", "campaign-builder/draft-service",
		"layer", "application",
		"draft_id", stored.DraftID,
		"user_id", stored.UserID,
	)
	return CreateDraftResult{Draft: stored}, nil
}
