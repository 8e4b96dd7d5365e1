package httpadapter

import (
	"context"
	"log/slog"

	"adpilot/contexts/campaign-builder/launch-service/application/commands"
	"adpilot/contexts/campaign-builder/launch-service/application/queries"
	"adpilot/contexts/campaign-builder/launch-service/domain/entities"
	"adpilot/contexts/campaign-builder/launch-service/domain/services/graph"
	httptransport "adpilot/contexts/campaign-builder/launch-service/transport/http"
)

type Handler struct {
	SubmitLaunch commands.SubmitLaunchUseCase
	CancelJob    commands.CancelJobUseCase
	GetJob       queries.GetJobQuery
	ListEvents   queries.ListEventsQuery
	Logger       *slog.Logger
}

// SubmitLaunchHandler godoc
// @Summary Submit a campaign launch
// @Description Creates a queued launch job from an inline specification or a pending draft and returns immediately.
// @Tags launches
// @Accept json
// @Produce json
// @Param X-User-Id header string true "Owner id"
// @Param Idempotency-Key header string false "Replay key"
// @Param request body httptransport.SubmitLaunchRequest true "Launch submission"
// @Success 200 {object} httptransport.SubmitLaunchResponse
// @Failure 400 {object} httptransport.ErrorResponse
// @Failure 401 {object} httptransport.ErrorResponse
// @Failure 409 {object} httptransport.ErrorResponse
// @Failure 500 {object} httptransport.ErrorResponse
// @Router /v1/launches [post]
func (h Handler) SubmitLaunchHandler(
	ctx context.Context,
	userID string,
	idempotencyKey string,
	req httptransport.SubmitLaunchRequest,
) (httptransport.SubmitLaunchResponse, error) {
	result, err := h.SubmitLaunch.Execute(ctx, commands.SubmitLaunchCommand{
		OwnerID:        userID,
		IdempotencyKey: idempotencyKey,
		DraftID:        req.DraftID,
		Specification:  req.Specification,
		Meta:           req.Meta,
	})
	if err != nil {
		return httptransport.SubmitLaunchResponse{}, err
	}
	return httptransport.SubmitLaunchResponse{
		JobID:    result.Job.JobID,
		Nodes:    mapNodes(result.Nodes),
		Edges:    mapEdges(result.Edges),
		Replayed: result.Replayed,
	}, nil
}

// GetJobHandler godoc
// @Summary Get a launch job
// @Tags launches
// @Produce json
// @Param job_id path string true "Job id"
// @Success 200 {object} httptransport.JobResponse
// @Failure 404 {object} httptransport.ErrorResponse
// @Router /v1/jobs/{job_id} [get]
func (h Handler) GetJobHandler(ctx context.Context, jobID string) (httptransport.JobResponse, error) {
	job, err := h.GetJob.Execute(ctx, jobID)
	if err != nil {
		return httptransport.JobResponse{}, err
	}
	return httptransport.JobResponse{Job: MapJob(job)}, nil
}

// ListEventsHandler godoc
// @Summary List a job's progress events
// @Tags launches
// @Produce json
// @Param job_id path string true "Job id"
// @Param after_seq query int false "Only events after this sequence"
// @Success 200 {object} httptransport.ListEventsResponse
// @Failure 404 {object} httptransport.ErrorResponse
// @Router /v1/jobs/{job_id}/events [get]
func (h Handler) ListEventsHandler(ctx context.Context, jobID string, afterSeq int64) (httptransport.ListEventsResponse, error) {
	items, err := h.ListEvents.Execute(ctx, jobID, afterSeq)
	if err != nil {
		return httptransport.ListEventsResponse{}, err
	}
	out := make([]httptransport.ProgressEventDTO, 0, len(items))
	for _, item := range items {
		out = append(out, MapEvent(item))
	}
	return httptransport.ListEventsResponse{Items: out}, nil
}

// CancelJobHandler godoc
// @Summary Cancel a launch job
// @Tags launches
// @Produce json
// @Param X-User-Id header string true "Owner id"
// @Param job_id path string true "Job id"
// @Success 200 {object} httptransport.JobResponse
// @Failure 404 {object} httptransport.ErrorResponse
// @Failure 409 {object} httptransport.ErrorResponse
// @Router /v1/jobs/{job_id}/cancel [post]
func (h Handler) CancelJobHandler(ctx context.Context, userID string, jobID string) (httptransport.JobResponse, error) {
	job, err := h.CancelJob.Execute(ctx, commands.CancelJobCommand{JobID: jobID, ActorID: userID})
	if err != nil {
		return httptransport.JobResponse{}, err
	}
	return httptransport.JobResponse{Job: MapJob(job)}, nil
}

func MapJob(item entities.Job) httptransport.JobDTO {
	return httptransport.JobDTO{
		ID:              item.JobID,
		OwnerID:         item.OwnerID,
		Type:            item.Type,
		Status:          string(item.Status),
		Step:            optionalString(item.Step),
		Percent:         item.Percent,
		Error:           optionalString(item.Error),
		Meta:            entities.CopyMeta(item.Meta),
		CancelRequested: item.CancelRequested,
		Attempt:         item.Attempt,
		CreatedAt:       item.CreatedAt,
		UpdatedAt:       item.UpdatedAt,
	}
}

func MapEvent(item entities.ProgressEvent) httptransport.ProgressEventDTO {
	var percent *int
	if item.Percent != nil {
		value := *item.Percent
		percent = &value
	}
	return httptransport.ProgressEventDTO{
		ID:        item.EventID,
		JobID:     item.JobID,
		Step:      item.Step,
		Status:    string(item.Status),
		Percent:   percent,
		Message:   optionalString(item.Message),
		Meta:      entities.CopyMeta(item.Meta),
		Seq:       item.Seq,
		CreatedAt: item.CreatedAt,
	}
}

func mapNodes(items []graph.Node) []httptransport.NodeDTO {
	out := make([]httptransport.NodeDTO, 0, len(items))
	for _, item := range items {
		out = append(out, httptransport.NodeDTO{ID: item.ID, Type: item.Type, Label: item.Label})
	}
	return out
}

func mapEdges(items []graph.Edge) []httptransport.EdgeDTO {
	out := make([]httptransport.EdgeDTO, 0, len(items))
	for _, item := range items {
		out = append(out, httptransport.EdgeDTO{ID: item.ID, Source: item.Source, Target: item.Target})
	}
	return out
}

func optionalString(value string) *string {
	if value == "" {
		return nil
	}
	return &value
}
