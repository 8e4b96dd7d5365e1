package queries

import (
	"context"
	"strings"

	"adpilot/contexts/campaign-builder/launch-service/domain/entities"
	domainerrors "adpilot/contexts/campaign-builder/launch-service/domain/errors"
	"adpilot/contexts/campaign-builder/launch-service/ports"
)

// ListEventsQuery returns a job's history in recording order. AfterSeq lets
// a reconnecting consumer fetch only what it missed.
type ListEventsQuery struct {
	Events ports.EventLog
}

func (q ListEventsQuery) Execute(ctx context.Context, jobID string, afterSeq int64) ([]entities.ProgressEvent, error) {
	jobID = strings.TrimSpace(jobID)
	if jobID == "" {
		return nil, domainerrors.ErrJobNotFound
	}
	if afterSeq < 0 {
		afterSeq = 0
	}
	items, err := q.Events.ListEvents(ctx, jobID, afterSeq)
	if err != nil {
		return nil, err
	}
	entities.SortEvents(items)
	return items, nil
}
