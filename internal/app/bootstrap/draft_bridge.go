package bootstrap

import (
	"context"
	"errors"
	"fmt"

	draftservice "adpilot/contexts/campaign-builder/draft-service"
	draftcommands "adpilot/contexts/campaign-builder/draft-service/application/commands"
	draftentities "adpilot/contexts/campaign-builder/draft-service/domain/entities"
	drafterrors "adpilot/contexts/campaign-builder/draft-service/domain/errors"
	launcherrors "adpilot/contexts/campaign-builder/launch-service/domain/errors"
	launchports "adpilot/contexts/campaign-builder/launch-service/ports"
)

// draftBridge exposes the draft context to launches through the launch
// service's DraftSource port. Each context keeps its own error vocabulary.
type draftBridge struct {
	drafts draftservice.Module
}

var _ launchports.DraftSource = draftBridge{}

func (b draftBridge) LoadForLaunch(ctx context.Context, draftID string) (launchports.LaunchDraft, error) {
	draft, err := b.drafts.Handler.GetDraft.Execute(ctx, draftID)
	if err != nil {
		if errors.Is(err, drafterrors.ErrDraftNotFound) {
			return launchports.LaunchDraft{}, launcherrors.ErrDraftNotFound
		}
		return launchports.LaunchDraft{}, err
	}
	if draft.Status != draftentities.DraftStatusPending {
		return launchports.LaunchDraft{}, fmt.Errorf("%w: status %s", launcherrors.ErrDraftNotLaunchable, draft.Status)
	}
	return launchports.LaunchDraft{
		DraftID: draft.DraftID,
		UserID:  draft.UserID,
		Version: draft.Version,
		Payload: append([]byte(nil), draft.Payload...),
	}, nil
}

func (b draftBridge) MarkSubmitted(ctx context.Context, draftID string, expectedVersion int, jobID string) error {
	_, err := b.drafts.MarkSubmitted.Execute(ctx, draftcommands.MarkSubmittedCommand{
		DraftID:         draftID,
		ExpectedVersion: expectedVersion,
		JobID:           jobID,
	})
	switch {
	case err == nil:
		return nil
	case errors.Is(err, drafterrors.ErrDraftNotFound):
		return launcherrors.ErrDraftNotFound
	case errors.Is(err, drafterrors.ErrVersionConflict), errors.Is(err, drafterrors.ErrDraftNotEditable):
		return launcherrors.ErrDraftConflict
	default:
		return err
	}
}

func (b draftBridge) ReleaseSubmitted(ctx context.Context, draftID string, submittedVersion int, jobID string) error {
	_, err := b.drafts.Reopen.Execute(ctx, draftcommands.ReopenDraftCommand{
		DraftID:         draftID,
		ExpectedVersion: submittedVersion,
		JobID:           jobID,
	})
	switch {
	case err == nil:
		return nil
	case errors.Is(err, drafterrors.ErrDraftNotFound):
		return launcherrors.ErrDraftNotFound
	case errors.Is(err, drafterrors.ErrVersionConflict), errors.Is(err, drafterrors.ErrDraftNotEditable):
		return launcherrors.ErrDraftConflict
	default:
		return err
	}
}
