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

type ReopenDraftCommand struct {
	DraftID         string
	ExpectedVersion int
	JobID           string
}

// ReopenDraftUseCase undoes MarkSubmitted when the launch job never reached
// the queue.
type ReopenDraftUseCase struct {
	Drafts ports.DraftRepository
	Clock  ports.Clock
	Logger *slog.Logger
}

func (uc ReopenDraftUseCase) Execute(ctx context.Context, cmd ReopenDraftCommand) (entities.Draft, error) {
	logger := application.ResolveLogger(uc.Logger)
	draftID := strings.TrimSpace(cmd.DraftID)
	if draftID == "" {
		return entities.Draft{}, domainerrors.ErrDraftNotFound
	}
	reopened, err := uc.Drafts.ReopenDraft(ctx, ports.ReopenDraftInput{
		DraftID:         draftID,
		ExpectedVersion: cmd.ExpectedVersion,
		JobID:           strings.TrimSpace(cmd.JobID),
		UpdatedAt:       uc.Clock.Now().UTC(),
	})
	if err != nil {
		return entities.Draft{}, err
	}
	logger.Info("draft reopened after failed launch",
		"event", "draft_reopened",
		"module", "campaign-builder/draft-service",
		"layer", "application",
		"draft_id", reopened.DraftID,
		"job_id", strings.TrimSpace(cmd.JobID),
		"version", reopened.Version,
	)
	return reopened, nil
}
