package pipeline

import (
	"context"
	"time"

	application "adpilot/contexts/campaign-builder/launch-service/application"
	"adpilot/contexts/campaign-builder/launch-service/domain/entities"
	domainerrors "adpilot/contexts/campaign-builder/launch-service/domain/errors"
	"adpilot/contexts/campaign-builder/launch-service/ports"
)

// rollback issues compensating deletes for every entity this run created,
// newest first. Compensation failures are recorded and logged; they never
// change the job's original error.
func (p Pipeline) rollback(ctx context.Context, r *run) {
	logger := application.ResolveLogger(p.Logger)

	r.mu.Lock()
	created := append([]createdEntity(nil), r.created...)
	r.mu.Unlock()

	for i := len(created) - 1; i >= 0; i-- {
		entity := created[i]
		step := rollbackPrefix + entity.unit.Step
		meta := map[string]any{
			"kind":     string(entity.unit.Kind),
			"remoteId": entity.remoteID,
		}
		if err := r.tracker.note(ctx, step, entities.EventStatusLoading, "", meta); err != nil {
			logger.Error("rollback event could not be recorded",
				"event", "launch_rollback_record_failed",
				"module", "campaign-builder/launch-service",
				"layer", "application",
				"job_id", r.job.JobID,
				"step", step,
				"error", err.Error(),
			)
			return
		}

		callCtx, cancel := context.WithTimeout(ctx, p.remoteTimeout())
		started := time.Now()
		err := p.Remote.Delete(callCtx, ports.RemoteRequest{
			Kind:       entity.unit.Kind,
			Path:       entity.remoteID,
			Credential: r.credential,
		})
		p.metrics().ObserveRemoteCall(entity.unit.Kind, ports.RemoteDelete, time.Since(started))
		cancel()

		if err != nil {
			message := domainerrors.UserMessage(err)
			_ = r.tracker.note(ctx, step, entities.EventStatusError, message, meta)
			logger.Warn("compensating delete failed",
				"event", "launch_rollback_failed",
				"module", "campaign-builder/launch-service",
				"layer", "application",
				"job_id", r.job.JobID,
				"step", step,
				"remote_id", entity.remoteID,
				"error", message,
			)
			continue
		}
		_ = r.tracker.note(ctx, step, entities.EventStatusSuccess, "", meta)
		logger.Info("compensating delete succeeded",
			"event", "launch_rollback_succeeded",
			"module", "campaign-builder/launch-service",
			"layer", "application",
			"job_id", r.job.JobID,
			"step", step,
			"remote_id", entity.remoteID,
		)
	}
}
