package commands

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"

	application "adpilot/contexts/campaign-builder/draft-service/application"
	"adpilot/contexts/campaign-builder/draft-service/domain/entities"
	domainerrors "adpilot/contexts/campaign-builder/draft-service/domain/errors"
	"adpilot/contexts/campaign-builder/draft-service/ports"
)

type UpdateDraftCommand struct {
	DraftID         string
	ActorID         string
	Payload         json.RawMessage
	ExpectedVersion int
}

// UpdateDraftUseCase writes a new payload only when ExpectedVersion still
// matches. A mismatch writes nothing; the caller re-fetches and retries.
type UpdateDraftUseCase struct {
	Drafts ports.DraftRepository
	Clock  ports.Clock
	Logger *slog.Logger
}

func (uc UpdateDraftUseCase) Execute(ctx context.Context, cmd UpdateDraftCommand) (entities.Draft, error) {
	logger := application.ResolveLogger(uc.Logger)
	draftID := strings.TrimSpace(cmd.DraftID)
	if draftID == "" {
		return entities.Draft{}, domainerrors.ErrDraftNotFound
	}
	if !entities.ValidPayload(cmd.Payload) {
		return entities.Draft{}, domainerrors.ErrInvalidDraftInput
	}

	if actor := strings.TrimSpace(cmd.ActorID); actor != "" {
		current, err := uc.Drafts.GetDraft(ctx, draftID)
		if err != nil {
			return entities.Draft{}, err
		}
		if current.UserID != actor {
			return entities.Draft{}, domainerrors.ErrUnauthorizedActor
		}
	}

	adAccountID, creativeID := entities.PayloadRefs(cmd.Payload)
	updated, err := uc.Drafts.UpdateDraft(ctx, ports.UpdateDraftInput{
		DraftID:         draftID,
		Payload:         append([]byte(nil), cmd.Payload...),
		AdAccountID:     adAccountID,
		CreativeID:      creativeID,
		ExpectedVersion: cmd.ExpectedVersion,
		UpdatedAt:       uc.Clock.Now().UTC(),
	})
	if err != nil {
		if errors.Is(err, domainerrors.ErrVersionConflict) {
			logger.Info("draft update rejected on stale version",
				"event", "draft_version_conflict",
				"module", "campaign-builder/draft-service",
				"layer", "application",
				"draft_id", draftID,
				"expected_version", cmd.ExpectedVersion,
			)
		}
		return entities.Draft{}, err
	}

	logger.Info("draft updated",
		"event", "draft_updated",
		"module", "campaign-builder/draft-service",
		"layer", "application",
		"draft_id", updated.DraftID,
		"version", updated.Version,
	)
	return updated, nil
}
