package queries

import (
	"context"
	"strings"

	"adpilot/contexts/campaign-builder/draft-service/domain/entities"
	domainerrors "adpilot/contexts/campaign-builder/draft-service/domain/errors"
	"adpilot/contexts/campaign-builder/draft-service/ports"
)

type GetDraftQuery struct {
	Drafts ports.DraftRepository
}

func (q GetDraftQuery) Execute(ctx context.Context, draftID string) (entities.Draft, error) {
	draftID = strings.TrimSpace(draftID)
	if draftID == "" {
		return entities.Draft{}, domainerrors.ErrDraftNotFound
	}
	return q.Drafts.GetDraft(ctx, draftID)
}
