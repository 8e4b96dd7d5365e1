package queries

import (
	"context"
	"strings"

	"adpilot/contexts/campaign-builder/launch-service/domain/entities"
	domainerrors "adpilot/contexts/campaign-builder/launch-service/domain/errors"
	"adpilot/contexts/campaign-builder/launch-service/ports"
)

type GetJobQuery struct {
	Jobs ports.JobRepository
}

func (q GetJobQuery) Execute(ctx context.Context, jobID string) (entities.Job, error) {
	jobID = strings.TrimSpace(jobID)
	if jobID == "" {
		return entities.Job{}, domainerrors.ErrJobNotFound
	}
	return q.Jobs.GetJob(ctx, jobID)
}
