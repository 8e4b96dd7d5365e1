package commands

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"

	application "adpilot/contexts/campaign-builder/launch-service/application"
	"adpilot/contexts/campaign-builder/launch-service/domain/entities"
	domainerrors "adpilot/contexts/campaign-builder/launch-service/domain/errors"
	"adpilot/contexts/campaign-builder/launch-service/ports"
	"adpilot/internal/shared/events"
)

type CancelJobCommand struct {
	JobID   string
	ActorID string
}

// CancelJobUseCase cancels a queued job outright and flags a running one;
// the pipeline honors the flag at its next stage boundary.
type CancelJobUseCase struct {
	Jobs        ports.JobRepository
	Publisher   ports.EventPublisher
	Clock       ports.Clock
	IDGenerator ports.IDGenerator
	Logger      *slog.Logger
}

func (uc CancelJobUseCase) Execute(ctx context.Context, cmd CancelJobCommand) (entities.Job, error) {
	logger := application.ResolveLogger(uc.Logger)
	jobID := strings.TrimSpace(cmd.JobID)
	if jobID == "" {
		return entities.Job{}, domainerrors.ErrJobNotFound
	}
	current, err := uc.Jobs.GetJob(ctx, jobID)
	if err != nil {
		return entities.Job{}, err
	}
	if actor := strings.TrimSpace(cmd.ActorID); actor == "" || actor != current.OwnerID {
		return entities.Job{}, domainerrors.ErrUnauthorizedActor
	}

	job, err := uc.Jobs.RequestCancel(ctx, jobID, uc.Clock.Now().UTC())
	if err != nil {
		return entities.Job{}, err
	}
	uc.publish(ctx, job)
	logger.Info("launch cancel requested",
		"event", "launch_cancel_requested",
		"module", "campaign-builder/launch-service",
		"layer", "application",
		"job_id", job.JobID,
		"status", string(job.Status),
	)
	return job, nil
}

func (uc CancelJobUseCase) publish(ctx context.Context, job entities.Job) {
	if uc.Publisher == nil {
		return
	}
	eventID, err := uc.IDGenerator.NewID(ctx)
	if err != nil {
		return
	}
	data, _ := json.Marshal(events.JobNotice{JobID: job.JobID, Status: string(job.Status)})
	_ = uc.Publisher.Publish(ctx, events.JobTopic(job.JobID), ports.EventEnvelope{
		EventID:       eventID,
		EventType:     events.TypeJobUpdated,
		OccurredAt:    uc.Clock.Now().UTC(),
		SourceService: "launch-service",
		PartitionKey:  job.JobID,
		SchemaVersion: 1,
		Data:          data,
	})
}
