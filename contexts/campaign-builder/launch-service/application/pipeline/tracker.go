package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"

	"adpilot/contexts/campaign-builder/launch-service/domain/entities"
	domainerrors "adpilot/contexts/campaign-builder/launch-service/domain/errors"
	"adpilot/contexts/campaign-builder/launch-service/ports"
	"adpilot/internal/shared/events"
)

// tracker owns every progress write of one job. The mutex covers store
// writes only; remote calls happen outside it.
type tracker struct {
	mu sync.Mutex

	jobID     string
	total     int
	completed int
	percent   int
	lastStep  string
	open      map[string]struct{}
	openOrder []string
	firstFail string

	jobs      ports.JobRepository
	events    ports.EventLog
	publisher ports.EventPublisher
	clock     ports.Clock
	idGen     ports.IDGenerator
	logger    *slog.Logger
}

func (t *tracker) setTotal(total int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.total = total
}

// begin writes the loading event for step and points the job at it.
func (t *tracker) begin(ctx context.Context, step string, meta map[string]any) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if err := t.appendLocked(ctx, step, entities.EventStatusLoading, "", meta); err != nil {
		return err
	}
	t.open[step] = struct{}{}
	t.openOrder = append(t.openOrder, step)
	t.lastStep = step
	return t.advanceLocked(ctx, entities.JobPatch{}.WithStep(step).WithPercent(t.percent))
}

// succeed closes step and moves percent forward by one planned unit.
func (t *tracker) succeed(ctx context.Context, step string, meta map[string]any) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.completed++
	t.percent = t.runningPercent()
	delete(t.open, step)
	if err := t.appendLocked(ctx, step, entities.EventStatusSuccess, "", meta); err != nil {
		return err
	}
	return t.advanceLocked(ctx, entities.JobPatch{}.WithPercent(t.percent))
}

// fail closes step with an error event. The job status is left to finish.
func (t *tracker) fail(ctx context.Context, step string, message string, meta map[string]any) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	delete(t.open, step)
	if t.firstFail == "" {
		t.firstFail = step
	}
	return t.appendLocked(ctx, step, entities.EventStatusError, message, meta)
}

func (t *tracker) failedStep() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.firstFail
}

// closeOpen writes an error event for every step still loading and returns
// how many were closed.
func (t *tracker) closeOpen(ctx context.Context, message string) int {
	t.mu.Lock()
	defer t.mu.Unlock()

	closed := 0
	for _, step := range t.openOrder {
		if _, ok := t.open[step]; !ok {
			continue
		}
		delete(t.open, step)
		if t.firstFail == "" {
			t.firstFail = step
		}
		if err := t.appendLocked(ctx, step, entities.EventStatusError, message, nil); err != nil {
			t.logger.Error("open step could not be closed",
				"event", "launch_close_step_failed",
				"module", "campaign-builder/launch-service",
				"layer", "application",
				"job_id", t.jobID,
				"step", step,
				"error", err.Error(),
			)
			continue
		}
		closed++
	}
	return closed
}

// note appends an event without moving the job's step or percent.
func (t *tracker) note(ctx context.Context, step string, status entities.EventStatus, message string, meta map[string]any) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.appendLocked(ctx, step, status, message, meta)
}

// finish writes the terminal job state.
func (t *tracker) finish(ctx context.Context, patch entities.JobPatch) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if patch.Step == nil && t.lastStep != "" {
		patch = patch.WithStep(t.lastStep)
	}
	return t.advanceLocked(ctx, patch)
}

func (t *tracker) runningPercent() int {
	if t.total <= 0 {
		return t.percent
	}
	value := t.completed * 100 / t.total
	if value > 99 {
		value = 99
	}
	if value < t.percent {
		return t.percent
	}
	return value
}

func (t *tracker) appendLocked(ctx context.Context, step string, status entities.EventStatus, message string, meta map[string]any) error {
	eventID, err := t.idGen.NewID(ctx)
	if err != nil {
		return err
	}
	percent := t.percent
	event, err := t.events.AppendEvent(ctx, ports.RecordEventInput{
		EventID:   eventID,
		JobID:     t.jobID,
		Step:      step,
		Status:    status,
		Percent:   &percent,
		Message:   message,
		Meta:      meta,
		CreatedAt: t.clock.Now().UTC(),
	})
	if err != nil {
		return err
	}
	t.publish(ctx, events.TypeEventRecorded, events.JobNotice{JobID: t.jobID, Seq: event.Seq}, event.EventID)
	return nil
}

func (t *tracker) advanceLocked(ctx context.Context, patch entities.JobPatch) error {
	job, err := t.jobs.AdvanceJob(ctx, t.jobID, patch, t.clock.Now().UTC())
	if err != nil {
		if errors.Is(err, domainerrors.ErrJobTerminal) {
			t.logger.Warn("job already terminal, advance skipped",
				"event", "launch_advance_skipped",
				"module", "campaign-builder/launch-service",
				"layer", "application",
				"job_id", t.jobID,
			)
		}
		return err
	}
	noticeID, _ := t.idGen.NewID(ctx)
	t.publish(ctx, events.TypeJobUpdated, events.JobNotice{JobID: t.jobID, Status: string(job.Status)}, noticeID)
	return nil
}

func (t *tracker) publish(ctx context.Context, eventType string, notice events.JobNotice, eventID string) {
	if t.publisher == nil {
		return
	}
	data, err := json.Marshal(notice)
	if err != nil {
		return
	}
	envelope := ports.EventEnvelope{
		EventID:       eventID,
		EventType:     eventType,
		OccurredAt:    t.clock.Now().UTC(),
		SourceService: "launch-service",
		PartitionKey:  t.jobID,
		SchemaVersion: 1,
		Data:          data,
	}
	if err := t.publisher.Publish(ctx, events.JobTopic(t.jobID), envelope); err != nil {
		t.logger.Warn("realtime publish failed",
			"event", "launch_publish_failed",
			"module", "campaign-builder/launch-service",
			"layer", "application",
			"job_id", t.jobID,
			"event_type", eventType,
			"error", err.Error(),
		)
	}
}
