package commands

import (
	"context"
	"log/slog"
	"strings"

	application "adpilot/contexts/campaign-builder/draft-service/application"
	"adpilot/contexts/campaign-builder/draft-service/domain/entities"
	domainerrors "adpilot/contexts/campaign-builder/draft-service/domain/errors"
	"adpilot/contexts/campaign-builder/draft-service/ports"
)

type MarkSubmittedCommand struct {
	DraftID         string
	ExpectedVersion int
	JobID           string
}

// MarkSubmittedUseCase freezes a pending draft once a launch job owns it.
type MarkSubmittedUseCase struct {
	Drafts ports.DraftRepository
	Clock  ports.Clock
	Logger *slog.Logger
}

func (uc MarkSubmittedUseCase) Execute(ctx context.Context, cmd MarkSubmittedCommand) (entities.Draft, error) {
	logger := application.ResolveLogger(uc.Logger)
	draftID := strings.TrimSpace(cmd.DraftID)
	if draftID == "" {
		return entities.Draft{}, domainerrors.ErrDraftNotFound
	}
	updated, err := uc.Drafts.UpdateStatus(ctx, ports.UpdateStatusInput{
		DraftID:         draftID,
		ExpectedVersion: cmd.ExpectedVersion,
		Status:          entities.DraftStatusSubmitted,
		JobID:           strings.TrimSpace(cmd.JobID),
		UpdatedAt:       uc.Clock.Now().UTC(),
	})
	if err != nil {
		return entities.Draft{}, err
	}
	logger.Info("draft submitted for launch",
		"event", "draft_submitted",
		"module", "campaign-builder/draft-service",
		"layer", "application",
		"draft_id", updated.DraftID,
		"job_id", updated.JobID,
		"version", updated.Version,
	)
	return updated, nil
}
