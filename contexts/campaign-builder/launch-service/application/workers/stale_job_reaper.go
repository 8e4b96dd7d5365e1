package workers

import (
	"context"
	"log/slog"
	"time"

	application "adpilot/contexts/campaign-builder/launch-service/application"
	"adpilot/contexts/campaign-builder/launch-service/domain/entities"
	"adpilot/contexts/campaign-builder/launch-service/ports"

	"github.com/robfig/cron/v3"
)

const (
	DefaultStaleAfter     = 10 * time.Minute
	DefaultReaperSchedule = "@every 1m"
	staleJobMessage       = "launch worker stopped responding"
)

// StaleJobReaper resolves jobs whose driving worker went away. A running job
// untouched for StaleAfter is closed out with error events and status error.
type StaleJobReaper struct {
	Jobs       ports.JobRepository
	Events     ports.EventLog
	Clock      ports.Clock
	IDGen      ports.IDGenerator
	StaleAfter time.Duration
	Schedule   string
	BatchSize  int
	Disabled   bool
	Logger     *slog.Logger
}

// Start registers RunOnce on the cron schedule and stops the scheduler when
// ctx ends.
func (r StaleJobReaper) Start(ctx context.Context) error {
	logger := application.ResolveLogger(r.Logger)
	if r.Disabled {
		logger.Info("stale job reaper disabled by feature flag",
			"event", "launch_reaper_disabled",
			"module", "campaign-builder/launch-service",
			"layer", "worker",
		)
		return nil
	}
	schedule := r.Schedule
	if schedule == "" {
		schedule = DefaultReaperSchedule
	}
	scheduler := cron.New()
	if _, err := scheduler.AddFunc(schedule, func() {
		_, _ = r.RunOnce(ctx)
	}); err != nil {
		return err
	}
	scheduler.Start()
	go func() {
		<-ctx.Done()
		<-scheduler.Stop().Done()
	}()
	return nil
}

// RunOnce sweeps one batch and returns how many jobs were resolved.
func (r StaleJobReaper) RunOnce(ctx context.Context) (int, error) {
	logger := application.ResolveLogger(r.Logger)
	now := time.Now().UTC()
	if r.Clock != nil {
		now = r.Clock.Now().UTC()
	}
	staleAfter := r.StaleAfter
	if staleAfter <= 0 {
		staleAfter = DefaultStaleAfter
	}
	limit := r.BatchSize
	if limit <= 0 {
		limit = 50
	}

	jobs, err := r.Jobs.ListStaleRunning(ctx, now.Add(-staleAfter), limit)
	if err != nil {
		logger.Error("stale job list failed",
			"event", "launch_reaper_list_failed",
			"module", "campaign-builder/launch-service",
			"layer", "worker",
			"error", err.Error(),
		)
		return 0, err
	}

	resolved := 0
	for _, job := range jobs {
		if err := r.resolve(ctx, job, now); err != nil {
			logger.Error("stale job could not be resolved",
				"event", "launch_reaper_resolve_failed",
				"module", "campaign-builder/launch-service",
				"layer", "worker",
				"job_id", job.JobID,
				"error", err.Error(),
			)
			continue
		}
		resolved++
		logger.Warn("stale launch job resolved to error",
			"event", "launch_reaper_resolved",
			"module", "campaign-builder/launch-service",
			"layer", "worker",
			"job_id", job.JobID,
			"step", job.Step,
			"last_update", job.UpdatedAt,
		)
	}
	return resolved, nil
}

func (r StaleJobReaper) resolve(ctx context.Context, job entities.Job, now time.Time) error {
	history, err := r.Events.ListEvents(ctx, job.JobID, 0)
	if err != nil {
		return err
	}
	open := entities.OpenSteps(history)
	if len(open) == 0 {
		if err := r.record(ctx, job, "orchestration", entities.EventStatusLoading, "", now); err != nil {
			return err
		}
		open = []string{"orchestration"}
	}
	for _, step := range open {
		if err := r.record(ctx, job, step, entities.EventStatusError, staleJobMessage, now); err != nil {
			return err
		}
	}
	patch := entities.JobPatch{}.
		WithStatus(entities.JobStatusError).
		WithError(staleJobMessage)
	_, err = r.Jobs.AdvanceJob(ctx, job.JobID, patch, now)
	return err
}

func (r StaleJobReaper) record(ctx context.Context, job entities.Job, step string, status entities.EventStatus, message string, now time.Time) error {
	eventID, err := r.IDGen.NewID(ctx)
	if err != nil {
		return err
	}
	percent := job.Percent
	_, err = r.Events.AppendEvent(ctx, ports.RecordEventInput{
		EventID:   eventID,
		JobID:     job.JobID,
		Step:      step,
		Status:    status,
		Percent:   &percent,
		Message:   message,
		Meta:      map[string]any{"reason": "stale"},
		CreatedAt: now,
	})
	return err
}
