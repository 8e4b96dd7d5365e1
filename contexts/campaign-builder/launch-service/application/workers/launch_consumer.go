package workers

import (
	"context"
	"log/slog"

	application "adpilot/contexts/campaign-builder/launch-service/application"
	"adpilot/contexts/campaign-builder/launch-service/ports"
)

// Executor runs one claimed launch. pipeline.Pipeline satisfies it.
type Executor interface {
	Execute(ctx context.Context, jobID string) error
}

// LaunchConsumer drains the launch queue into the stage pipeline.
type LaunchConsumer struct {
	Source   ports.LaunchSource
	Executor Executor
	Disabled bool
	Logger   *slog.Logger
}

func (c LaunchConsumer) Start(ctx context.Context) error {
	logger := application.ResolveLogger(c.Logger)
	if c.Disabled {
		logger.Info("launch consumer disabled by feature flag",
			"event", "launch_consumer_disabled",
			"module", "campaign-builder/launch-service",
			"layer", "worker",
		)
		return nil
	}
	return c.Source.Consume(ctx, c.handle)
}

func (c LaunchConsumer) handle(ctx context.Context, task ports.LaunchTask) error {
	logger := application.ResolveLogger(c.Logger)
	logger.Info("launch task received",
		"event", "launch_task_received",
		"module", "campaign-builder/launch-service",
		"layer", "worker",
		"job_id", task.JobID,
	)
	if err := c.Executor.Execute(ctx, task.JobID); err != nil {
		logger.Error("launch execution failed",
			"event", "launch_execution_failed",
			"module", "campaign-builder/launch-service",
			"layer", "worker",
			"job_id", task.JobID,
			"error", err.Error(),
		)
		return err
	}
	return nil
}
