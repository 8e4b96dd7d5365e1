package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	application "adpilot/contexts/campaign-builder/launch-service/application"
	"adpilot/contexts/campaign-builder/launch-service/domain/entities"
	domainerrors "adpilot/contexts/campaign-builder/launch-service/domain/errors"
	"adpilot/contexts/campaign-builder/launch-service/domain/services/graph"
	"adpilot/contexts/campaign-builder/launch-service/domain/services/params"
	"adpilot/contexts/campaign-builder/launch-service/ports"
	"adpilot/internal/shared/events"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

const (
	DefaultFanout        = 3
	DefaultRemoteTimeout = 12 * time.Second

	orchestrationStep = "orchestration"
	rollbackPrefix    = "rollback:"
)

var errCanceled = errors.New("launch canceled")

// Pipeline drives one launch job from claim to a terminal status.
type Pipeline struct {
	Jobs        ports.JobRepository
	Events      ports.EventLog
	Remote      ports.RemoteEntityClient
	Credentials ports.CredentialResolver
	Publisher   ports.EventPublisher
	Metrics     ports.Metrics
	Builder     params.Builder
	Clock       ports.Clock
	IDGen       ports.IDGenerator

	// Fanout bounds concurrent sibling creates within one stage.
	Fanout            int
	RemoteTimeout     time.Duration
	RollbackOnFailure bool
	Logger            *slog.Logger
}

// createdEntity is one remote object this run created.
type createdEntity struct {
	unit     graph.Unit
	remoteID string
}

type run struct {
	job        entities.Job
	spec       entities.CampaignSpecification
	plan       graph.Plan
	credential string
	tracker    *tracker

	mu        sync.Mutex
	remoteIDs map[string]string
	created   []createdEntity
}

func (r *run) record(unit graph.Unit, remoteID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.remoteIDs[unit.Step] = remoteID
	r.created = append(r.created, createdEntity{unit: unit, remoteID: remoteID})
}

func (r *run) remoteID(step string) string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.remoteIDs[step]
}

// resultMeta summarizes created ids by kind in plan order.
func (r *run) resultMeta() map[string]any {
	r.mu.Lock()
	defer r.mu.Unlock()

	meta := entities.CopyMeta(r.job.Meta)
	if meta == nil {
		meta = map[string]any{}
	}
	byKind := map[entities.StageKind][]string{}
	for _, stage := range r.plan.Stages {
		for _, unit := range stage.Units {
			if id, ok := r.remoteIDs[unit.Step]; ok {
				byKind[unit.Kind] = append(byKind[unit.Kind], id)
			}
		}
	}
	if ids := byKind[entities.StageCampaign]; len(ids) > 0 {
		meta["campaignId"] = ids[0]
	}
	if ids := byKind[entities.StageAdSet]; len(ids) > 0 {
		meta["adSetIds"] = ids
	}
	if ids := byKind[entities.StageCreative]; len(ids) > 0 {
		meta["creativeIds"] = ids
	}
	if ids := byKind[entities.StageAd]; len(ids) > 0 {
		meta["adIds"] = ids
	}
	return meta
}

// Execute claims jobID and runs every stage. A job that is no longer queued
// is left alone. Errors returned here are infrastructure failures; a stage
// failure ends the job in error and returns nil.
func (p Pipeline) Execute(ctx context.Context, jobID string) (err error) {
	logger := application.ResolveLogger(p.Logger)

	job, err := p.Jobs.ClaimJob(ctx, jobID, p.now())
	if err != nil {
		if errors.Is(err, domainerrors.ErrJobNotClaimable) {
			logger.Info("launch job not claimable, skipping",
				"event", "launch_claim_skipped",
				"module", "campaign-builder/launch-service",
				"layer", "application",
				"job_id", jobID,
			)
			return nil
		}
		return err
	}

	t := &tracker{
		jobID:     job.JobID,
		open:      make(map[string]struct{}),
		jobs:      p.Jobs,
		events:    p.Events,
		publisher: p.Publisher,
		clock:     p.clock(),
		idGen:     p.idGen(),
		logger:    logger,
	}
	t.lastStep = entities.StepStarted
	if noticeID, idErr := p.idGen().NewID(ctx); idErr == nil {
		t.publish(ctx, events.TypeJobUpdated, events.JobNotice{JobID: job.JobID, Status: string(job.Status)}, noticeID)
	}

	r := &run{job: job, tracker: t, remoteIDs: make(map[string]string)}

	defer func() {
		if recovered := recover(); recovered != nil {
			logger.Error("launch pipeline panicked",
				"event", "launch_pipeline_panic",
				"module", "campaign-builder/launch-service",
				"layer", "application",
				"job_id", job.JobID,
				"panic", fmt.Sprint(recovered),
			)
			err = p.failJob(ctx, r, fmt.Errorf("internal error during launch: %v", recovered))
		}
	}()

	logger.Info("launch job claimed",
		"event", "launch_job_claimed",
		"module", "campaign-builder/launch-service",
		"layer", "application",
		"job_id", job.JobID,
		"attempt", job.Attempt,
	)

	spec, err := entities.DecodeSpecification(job.Input)
	if err == nil {
		err = spec.Validate()
	}
	if err != nil {
		return p.failJob(ctx, r, fmt.Errorf("%w: %v", domainerrors.ErrInvalidSpecification, err))
	}
	r.spec = spec

	if _, matched := p.Builder.StrategyFor(spec, 0); !matched {
		logger.Info("no strategy for tags, using default",
			"event", "launch_strategy_fallback",
			"module", "campaign-builder/launch-service",
			"layer", "application",
			"job_id", job.JobID,
			"destination_type", spec.DestinationType,
			"objective", spec.ObjectiveTag(),
			"strategy", params.DefaultStrategyName,
		)
	}

	if p.Credentials != nil {
		credential, credErr := p.Credentials.ResolveCredential(ctx, job.OwnerID, spec.AdAccountID)
		if credErr != nil {
			return p.failJob(ctx, r, fmt.Errorf("%w: %v", domainerrors.ErrCredentialUnavailable, credErr))
		}
		r.credential = credential
	}

	r.plan = graph.BuildPlan(spec, p.Builder.VariantLabels(spec))
	t.setTotal(r.plan.Total())

	for _, stage := range r.plan.Stages {
		if err := p.checkpoint(ctx, r); err != nil {
			if errors.Is(err, errCanceled) {
				return p.cancelJob(ctx, r)
			}
			return p.failJob(ctx, r, err)
		}
		if err := p.runStage(ctx, r, stage); err != nil {
			return p.failJob(ctx, r, err)
		}
	}

	done := entities.JobPatch{Meta: r.resultMeta()}.
		WithStatus(entities.JobStatusDone).
		WithPercent(100).
		WithError("")
	if err := t.finish(context.WithoutCancel(ctx), done); err != nil {
		return err
	}
	p.metrics().ObserveJob(entities.JobStatusDone)
	logger.Info("launch job completed",
		"event", "launch_job_completed",
		"module", "campaign-builder/launch-service",
		"layer", "application",
		"job_id", job.JobID,
		"entities", r.plan.Total(),
	)
	return nil
}

// checkpoint is the cooperative cancellation point between stages.
func (p Pipeline) checkpoint(ctx context.Context, r *run) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("launch interrupted: %w", err)
	}
	current, err := p.Jobs.GetJob(ctx, r.job.JobID)
	if err != nil {
		return err
	}
	if current.CancelRequested {
		return errCanceled
	}
	return nil
}

// runStage executes sibling units with bounded concurrency. The first
// failure stops siblings that have not started yet.
func (p Pipeline) runStage(ctx context.Context, r *run, stage graph.Stage) error {
	if len(stage.Units) == 1 {
		return p.runUnitSafe(ctx, r, stage.Units[0])
	}

	var halted atomic.Bool
	group := errgroup.Group{}
	group.SetLimit(p.fanout())
	for _, unit := range stage.Units {
		unit := unit
		group.Go(func() error {
			if halted.Load() {
				return nil
			}
			if err := p.runUnitSafe(ctx, r, unit); err != nil {
				halted.Store(true)
				return err
			}
			return nil
		})
	}
	return group.Wait()
}

func (p Pipeline) runUnitSafe(ctx context.Context, r *run, unit graph.Unit) (err error) {
	defer func() {
		if recovered := recover(); recovered != nil {
			err = fmt.Errorf("internal error while creating %s: %v", unit.Kind, recovered)
		}
	}()
	return p.runUnit(ctx, r, unit)
}

func (p Pipeline) runUnit(ctx context.Context, r *run, unit graph.Unit) error {
	logger := application.ResolveLogger(p.Logger)
	t := r.tracker

	if err := t.begin(ctx, unit.Step, unitMeta(unit)); err != nil {
		return err
	}

	payload, err := p.payloadFor(r, unit)
	if err != nil {
		_ = t.fail(ctx, unit.Step, err.Error(), unitMeta(unit))
		p.metrics().ObserveStage(unit.Kind, entities.EventStatusError)
		return err
	}

	callCtx, cancel := context.WithTimeout(ctx, p.remoteTimeout())
	started := time.Now()
	remoteID, err := p.Remote.Create(callCtx, ports.RemoteRequest{
		Kind:       unit.Kind,
		Path:       r.spec.AccountPath() + "/" + unit.Kind.RemotePath(),
		Payload:    payload,
		Credential: r.credential,
	})
	p.metrics().ObserveRemoteCall(unit.Kind, ports.RemoteCreate, time.Since(started))
	callErr := callCtx.Err()
	cancel()

	if err != nil {
		err = normalizeRemoteError(unit.Kind, err, callErr, p.remoteTimeout())
		message := domainerrors.UserMessage(err)
		meta := unitMeta(unit)
		var remote *domainerrors.RemoteAPIError
		if errors.As(err, &remote) {
			meta["statusCode"] = remote.StatusCode
			meta["errorType"] = remote.Type
			meta["errorCode"] = remote.Code
			meta["transport"] = remote.Transport
		}
		if writeErr := t.fail(context.WithoutCancel(ctx), unit.Step, message, meta); writeErr != nil {
			return writeErr
		}
		p.metrics().ObserveStage(unit.Kind, entities.EventStatusError)
		logger.Warn("launch stage failed",
			"event", "launch_stage_failed",
			"module", "campaign-builder/launch-service",
			"layer", "application",
			"job_id", r.job.JobID,
			"stage", string(unit.Kind),
			"step", unit.Step,
			"error", message,
		)
		return err
	}

	r.record(unit, remoteID)
	meta := unitMeta(unit)
	meta["remoteId"] = remoteID
	if err := t.succeed(ctx, unit.Step, meta); err != nil {
		return err
	}
	p.metrics().ObserveStage(unit.Kind, entities.EventStatusSuccess)
	logger.Info("launch stage succeeded",
		"event", "launch_stage_succeeded",
		"module", "campaign-builder/launch-service",
		"layer", "application",
		"job_id", r.job.JobID,
		"stage", string(unit.Kind),
		"step", unit.Step,
		"remote_id", remoteID,
	)
	return nil
}

func (p Pipeline) payloadFor(r *run, unit graph.Unit) (map[string]any, error) {
	switch unit.Kind {
	case entities.StageCampaign:
		return p.Builder.CampaignParams(r.spec), nil
	case entities.StageAdSet:
		campaignID := r.remoteID(string(entities.StageCampaign))
		variants, err := p.Builder.AdSetParams(r.spec, unit.AdSetIndex, campaignID)
		if err != nil {
			return nil, err
		}
		for _, variant := range variants {
			if variant.Label == unit.Variant {
				return variant.Payload, nil
			}
		}
		return nil, fmt.Errorf("%w: variant %q", params.ErrOutOfRange, unit.Variant)
	case entities.StageCreative:
		return p.Builder.CreativeParams(r.spec, unit.AdSetIndex, unit.CreativeIndex)
	case entities.StageAd:
		if len(unit.DependsOn) != 2 {
			return nil, fmt.Errorf("ad %s has no parent entities", unit.Step)
		}
		adSetID := r.remoteID(unit.DependsOn[0])
		creativeID := r.remoteID(unit.DependsOn[1])
		if adSetID == "" || creativeID == "" {
			return nil, fmt.Errorf("ad %s is missing its ad set or creative id", unit.Step)
		}
		return p.Builder.AdParams(r.spec, unit.AdSetIndex, unit.CreativeIndex, adSetID, creativeID)
	default:
		return nil, fmt.Errorf("%w: %q", params.ErrUnsupportedKind, unit.Kind)
	}
}

// failJob resolves the job to error. It runs detached from ctx so a worker
// shutting down still leaves no job running.
func (p Pipeline) failJob(ctx context.Context, r *run, cause error) error {
	logger := application.ResolveLogger(p.Logger)
	ctx = context.WithoutCancel(ctx)
	t := r.tracker
	message := domainerrors.UserMessage(cause)
	if message == "" {
		message = "launch failed"
	}

	closed := t.closeOpen(ctx, message)
	if closed == 0 && t.failedStep() == "" {
		if err := t.begin(ctx, orchestrationStep, nil); err == nil {
			_ = t.fail(ctx, orchestrationStep, message, map[string]any{"kind": "orchestration"})
		}
	}

	if p.RollbackOnFailure {
		p.rollback(ctx, r)
	}

	meta := r.resultMeta()
	if failed := t.failedStep(); failed != "" {
		meta["failedStep"] = failed
	}
	patch := entities.JobPatch{Meta: meta}.
		WithStatus(entities.JobStatusError).
		WithError(message)
	if err := t.finish(ctx, patch); err != nil && !errors.Is(err, domainerrors.ErrJobTerminal) {
		return err
	}
	p.metrics().ObserveJob(entities.JobStatusError)
	logger.Error("launch job failed",
		"event", "launch_job_failed",
		"module", "campaign-builder/launch-service",
		"layer", "application",
		"job_id", r.job.JobID,
		"step", t.lastStep,
		"error", message,
	)
	return nil
}

func (p Pipeline) cancelJob(ctx context.Context, r *run) error {
	logger := application.ResolveLogger(p.Logger)
	ctx = context.WithoutCancel(ctx)
	r.tracker.closeOpen(ctx, "canceled")
	if p.RollbackOnFailure {
		p.rollback(ctx, r)
	}
	patch := entities.JobPatch{Meta: r.resultMeta()}.WithStatus(entities.JobStatusCanceled)
	if err := r.tracker.finish(ctx, patch); err != nil && !errors.Is(err, domainerrors.ErrJobTerminal) {
		return err
	}
	p.metrics().ObserveJob(entities.JobStatusCanceled)
	logger.Info("launch job canceled",
		"event", "launch_job_canceled",
		"module", "campaign-builder/launch-service",
		"layer", "application",
		"job_id", r.job.JobID,
		"step", r.tracker.lastStep,
	)
	return nil
}

func (p Pipeline) now() time.Time {
	return p.clock().Now().UTC()
}

func (p Pipeline) clock() ports.Clock {
	if p.Clock == nil {
		return systemClock{}
	}
	return p.Clock
}

func (p Pipeline) idGen() ports.IDGenerator {
	if p.IDGen == nil {
		return uuidGenerator{}
	}
	return p.IDGen
}

func (p Pipeline) fanout() int {
	if p.Fanout <= 0 {
		return DefaultFanout
	}
	return p.Fanout
}

func (p Pipeline) remoteTimeout() time.Duration {
	if p.RemoteTimeout <= 0 {
		return DefaultRemoteTimeout
	}
	return p.RemoteTimeout
}

func (p Pipeline) metrics() ports.Metrics {
	if p.Metrics == nil {
		return noopMetrics{}
	}
	return p.Metrics
}

func unitMeta(unit graph.Unit) map[string]any {
	meta := map[string]any{
		"kind": string(unit.Kind),
		"name": unit.Name,
	}
	if unit.Variant != "" {
		meta["variant"] = unit.Variant
	}
	return meta
}

// normalizeRemoteError guarantees the stage sees a RemoteAPIError, turning a
// bare deadline into a transport failure.
func normalizeRemoteError(kind entities.StageKind, err error, callErr error, timeout time.Duration) error {
	var remote *domainerrors.RemoteAPIError
	if errors.As(err, &remote) {
		return err
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(callErr, context.DeadlineExceeded) {
		return &domainerrors.RemoteAPIError{
			Kind:      string(kind),
			Operation: string(ports.RemoteCreate),
			Message:   fmt.Sprintf("ad platform did not respond within %s", timeout),
			Transport: true,
			Cause:     err,
		}
	}
	return &domainerrors.RemoteAPIError{
		Kind:      string(kind),
		Operation: string(ports.RemoteCreate),
		Message:   err.Error(),
		Transport: true,
		Cause:     err,
	}
}

type systemClock struct{}

func (systemClock) Now() time.Time {
	return time.Now().UTC()
}

type uuidGenerator struct{}

func (uuidGenerator) NewID(context.Context) (string, error) {
	return uuid.NewString(), nil
}

type noopMetrics struct{}

func (noopMetrics) ObserveStage(entities.StageKind, entities.EventStatus) {}

func (noopMetrics) ObserveRemoteCall(entities.StageKind, ports.RemoteOperation, time.Duration) {}

func (noopMetrics) ObserveJob(entities.JobStatus) {}
