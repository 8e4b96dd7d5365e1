package commands

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	application "adpilot/contexts/campaign-builder/launch-service/application"
	"adpilot/contexts/campaign-builder/launch-service/domain/entities"
	domainerrors "adpilot/contexts/campaign-builder/launch-service/domain/errors"
	"adpilot/contexts/campaign-builder/launch-service/domain/services/graph"
	"adpilot/contexts/campaign-builder/launch-service/domain/services/params"
	"adpilot/contexts/campaign-builder/launch-service/ports"
)

const defaultIdempotencyTTL = 24 * time.Hour

// SubmitLaunchCommand carries either an inline specification or a draft id,
// never both.
type SubmitLaunchCommand struct {
	OwnerID        string
	IdempotencyKey string
	DraftID        string
	Specification  json.RawMessage
	Meta           map[string]any
}

type SubmitLaunchResult struct {
	Job      entities.Job
	Nodes    []graph.Node
	Edges    []graph.Edge
	Replayed bool
}

// SubmitLaunchUseCase creates a queued job and hands it to the launch queue.
// It never waits for the pipeline.
type SubmitLaunchUseCase struct {
	Jobs           ports.JobRepository
	Idempotency    ports.IdempotencyStore
	Queue          ports.LaunchQueue
	Drafts         ports.DraftSource
	Builder        params.Builder
	Clock          ports.Clock
	IDGenerator    ports.IDGenerator
	IdempotencyTTL time.Duration
	Logger         *slog.Logger
}

type submitLaunchReplayPayload struct {
	JobID string `json:"job_id"`
}

func (uc SubmitLaunchUseCase) Execute(ctx context.Context, cmd SubmitLaunchCommand) (SubmitLaunchResult, error) {
	logger := application.ResolveLogger(uc.Logger)
	cmd.OwnerID = strings.TrimSpace(cmd.OwnerID)
	cmd.DraftID = strings.TrimSpace(cmd.DraftID)
	cmd.IdempotencyKey = strings.TrimSpace(cmd.IdempotencyKey)
	if cmd.OwnerID == "" {
		return SubmitLaunchResult{}, domainerrors.ErrUnauthorizedActor
	}
	hasSpec := len(bytes.TrimSpace(cmd.Specification)) > 0 && !bytes.Equal(bytes.TrimSpace(cmd.Specification), []byte("null"))
	if hasSpec == (cmd.DraftID != "") {
		return SubmitLaunchResult{}, fmt.Errorf("%w: provide exactly one of specification or draftId", domainerrors.ErrInvalidSubmission)
	}

	now := uc.Clock.Now().UTC()
	if cmd.IdempotencyKey == "" {
		return uc.submit(ctx, cmd, now, logger)
	}

	requestHash := hashSubmitLaunchCommand(cmd)
	stored, reserved, err := uc.Idempotency.ReserveRecord(ctx, ports.IdempotencyRecord{
		Key:         cmd.IdempotencyKey,
		RequestHash: requestHash,
		ExpiresAt:   now.Add(uc.idempotencyTTL()),
	}, now)
	if err != nil {
		return SubmitLaunchResult{}, err
	}
	if !reserved {
		if stored.RequestHash != requestHash {
			return SubmitLaunchResult{}, domainerrors.ErrIdempotencyKeyConflict
		}
		if len(stored.ResponsePayload) == 0 {
			return SubmitLaunchResult{}, fmt.Errorf("%w: a launch with this key is still being submitted", domainerrors.ErrIdempotencyKeyConflict)
		}
		return uc.replay(ctx, stored)
	}

	result, err := uc.submit(ctx, cmd, now, logger)
	if err != nil {
		if releaseErr := uc.Idempotency.ReleaseRecord(context.WithoutCancel(ctx), cmd.IdempotencyKey, requestHash); releaseErr != nil {
			logger.Warn("launch idempotency reservation could not be released",
				"event", "launch_idempotency_release_failed",
				"module", "campaign-builder/launch-service",
				"layer", "application",
				"error", releaseErr.Error(),
			)
		}
		return SubmitLaunchResult{}, err
	}
	serialized, err := json.Marshal(submitLaunchReplayPayload{JobID: result.Job.JobID})
	if err != nil {
		return SubmitLaunchResult{}, err
	}
	if err := uc.Idempotency.CompleteRecord(context.WithoutCancel(ctx), cmd.IdempotencyKey, requestHash, serialized); err != nil {
		// the job is already queued; retries see the key as in flight until it expires
		logger.Warn("launch idempotency record failed",
			"event", "launch_idempotency_complete_failed",
			"module", "campaign-builder/launch-service",
			"layer", "application",
			"job_id", result.Job.JobID,
			"error", err.Error(),
		)
	}
	return result, nil
}

func (uc SubmitLaunchUseCase) submit(ctx context.Context, cmd SubmitLaunchCommand, now time.Time, logger *slog.Logger) (SubmitLaunchResult, error) {
	meta := entities.CopyMeta(cmd.Meta)
	if meta == nil {
		meta = map[string]any{}
	}
	raw := cmd.Specification
	var draft ports.LaunchDraft
	if cmd.DraftID != "" {
		if uc.Drafts == nil {
			return SubmitLaunchResult{}, fmt.Errorf("%w: drafts are not available", domainerrors.ErrInvalidSubmission)
		}
		loaded, err := uc.Drafts.LoadForLaunch(ctx, cmd.DraftID)
		if err != nil {
			return SubmitLaunchResult{}, err
		}
		if loaded.UserID != cmd.OwnerID {
			return SubmitLaunchResult{}, domainerrors.ErrUnauthorizedActor
		}
		draft = loaded
		raw = loaded.Payload
		meta["draftId"] = loaded.DraftID
		meta["draftVersion"] = loaded.Version
	}

	spec, err := entities.DecodeSpecification(raw)
	if err == nil {
		err = spec.Validate()
	}
	if err != nil {
		return SubmitLaunchResult{}, fmt.Errorf("%w: %v", domainerrors.ErrInvalidSubmission, err)
	}
	input, err := compactJSON(raw)
	if err != nil {
		return SubmitLaunchResult{}, fmt.Errorf("%w: %v", domainerrors.ErrInvalidSubmission, err)
	}
	meta["adAccountId"] = spec.AdAccountID
	if cmd.IdempotencyKey != "" {
		meta["idempotencyKey"] = cmd.IdempotencyKey
	}

	jobID, err := uc.IDGenerator.NewID(ctx)
	if err != nil {
		return SubmitLaunchResult{}, err
	}
	job := entities.Job{
		JobID:     jobID,
		OwnerID:   cmd.OwnerID,
		Type:      entities.JobTypeCampaignLaunch,
		Status:    entities.JobStatusQueued,
		Meta:      meta,
		Input:     input,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := uc.Jobs.CreateJob(ctx, job); err != nil {
		return SubmitLaunchResult{}, err
	}

	if cmd.DraftID != "" {
		if err := uc.Drafts.MarkSubmitted(ctx, draft.DraftID, draft.Version, jobID); err != nil {
			if _, cancelErr := uc.Jobs.RequestCancel(ctx, jobID, now); cancelErr != nil {
				logger.Error("orphaned launch job could not be canceled",
					"event", "launch_submit_cancel_failed",
					"module", "campaign-builder/launch-service",
					"layer", "application",
					"job_id", jobID,
					"error", cancelErr.Error(),
				)
			}
			return SubmitLaunchResult{}, err
		}
	}

	if err := uc.Queue.Enqueue(ctx, ports.LaunchTask{JobID: jobID}); err != nil {
		cleanupCtx := context.WithoutCancel(ctx)
		message := "launch could not be queued"
		patch := entities.JobPatch{}.WithStatus(entities.JobStatusError).WithError(message)
		if _, advanceErr := uc.Jobs.AdvanceJob(cleanupCtx, jobID, patch, now); advanceErr != nil {
			logger.Error("unqueued launch job could not be failed",
				"event", "launch_submit_fail_failed",
				"module", "campaign-builder/launch-service",
				"layer", "application",
				"job_id", jobID,
				"error", advanceErr.Error(),
			)
		}
		if cmd.DraftID != "" {
			// MarkSubmitted moved the draft exactly one version forward
			if releaseErr := uc.Drafts.ReleaseSubmitted(cleanupCtx, draft.DraftID, draft.Version+1, jobID); releaseErr != nil {
				logger.Error("draft of unqueued launch could not be reopened",
					"event", "launch_submit_draft_release_failed",
					"module", "campaign-builder/launch-service",
					"layer", "application",
					"job_id", jobID,
					"draft_id", draft.DraftID,
					"error", releaseErr.Error(),
				)
			}
		}
		if !errors.Is(err, domainerrors.ErrEnqueueFailed) {
			err = fmt.Errorf("%w: %v", domainerrors.ErrEnqueueFailed, err)
		}
		return SubmitLaunchResult{}, err
	}

	nodes, edges := graph.Visualize(graph.BuildPlan(spec, uc.Builder.VariantLabels(spec)))
	logger.Info("launch submitted",
		"event", "launch_submitted",
		"module", "campaign-builder/launch-service",
		"layer", "application",
		"job_id", jobID,
		"owner_id", cmd.OwnerID,
		"draft_id", cmd.DraftID,
	)
	return SubmitLaunchResult{Job: job, Nodes: nodes, Edges: edges}, nil
}

func (uc SubmitLaunchUseCase) replay(ctx context.Context, record ports.IdempotencyRecord) (SubmitLaunchResult, error) {
	var payload submitLaunchReplayPayload
	if err := json.Unmarshal(record.ResponsePayload, &payload); err != nil {
		return SubmitLaunchResult{}, err
	}
	job, err := uc.Jobs.GetJob(ctx, payload.JobID)
	if err != nil {
		return SubmitLaunchResult{}, err
	}
	result := SubmitLaunchResult{Job: job, Replayed: true}
	if spec, err := entities.DecodeSpecification(job.Input); err == nil {
		result.Nodes, result.Edges = graph.Visualize(graph.BuildPlan(spec, uc.Builder.VariantLabels(spec)))
	}
	return result, nil
}

func (uc SubmitLaunchUseCase) idempotencyTTL() time.Duration {
	if uc.IdempotencyTTL <= 0 {
		return defaultIdempotencyTTL
	}
	return uc.IdempotencyTTL
}

func hashSubmitLaunchCommand(cmd SubmitLaunchCommand) string {
	spec, err := compactJSON(cmd.Specification)
	if err != nil {
		spec = bytes.TrimSpace(cmd.Specification)
	}
	payload := map[string]any{
		"owner_id":      cmd.OwnerID,
		"draft_id":      cmd.DraftID,
		"specification": string(spec),
	}
	raw, _ := json.Marshal(payload)
	sum := sha256.Sum256(raw)
	return hex.EncodeToString(sum[:])
}

func compactJSON(raw json.RawMessage) (json.RawMessage, error) {
	if len(bytes.TrimSpace(raw)) == 0 {
		return nil, nil
	}
	var buf bytes.Buffer
	if err := json.Compact(&buf, raw); err != nil {
		return nil, err
	}
	return json.RawMessage(buf.Bytes()), nil
}
