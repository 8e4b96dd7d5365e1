package httpadapter

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"math"

	"adpilot/contexts/campaign-builder/draft-service/application/commands"
	"adpilot/contexts/campaign-builder/draft-service/application/queries"
	"adpilot/contexts/campaign-builder/draft-service/domain/entities"
	domainerrors "adpilot/contexts/campaign-builder/draft-service/domain/errors"
	httptransport "adpilot/contexts/campaign-builder/draft-service/transport/http"
)

type Handler struct {
	CreateDraft commands.CreateDraftUseCase
	UpdateDraft commands.UpdateDraftUseCase
	GetDraft    queries.GetDraftQuery
	Logger      *slog.Logger
}

// GetDraftHandler godoc
// @Summary Get a draft
// @Tags drafts
// @Produce json
// @Param draft_id path string true "Draft id"
// @Success 200 {object} httptransport.DraftResponse
// @Failure 404 {object} httptransport.ErrorResponse
// @Router /v1/drafts/{draft_id} [get]
func (h Handler) GetDraftHandler(ctx context.Context, draftID string) (httptransport.DraftResponse, error) {
	draft, err := h.GetDraft.Execute(ctx, draftID)
	if err != nil {
		return httptransport.DraftResponse{}, err
	}
	return httptransport.DraftResponse{Draft: mapDraft(draft)}, nil
}

// UpdateDraftHandler godoc
// @Summary Update a draft
// @Description Writes the payload only when version matches the stored version.
// @Tags drafts
// @Accept json
// @Produce json
// @Param draft_id path string true "Draft id"
// @Param request body httptransport.UpdateDraftRequest true "Payload and expected version"
// @Success 200 {object} httptransport.DraftResponse
// @Failure 400 {object} httptransport.ErrorResponse
// @Failure 404 {object} httptransport.ErrorResponse
// @Failure 409 {object} httptransport.ErrorResponse
// @Router /v1/drafts/{draft_id} [patch]
func (h Handler) UpdateDraftHandler(
	ctx context.Context,
	userID string,
	draftID string,
	req httptransport.UpdateDraftRequest,
) (httptransport.DraftResponse, error) {
	version, err := ParseVersion(req.Version)
	if err != nil {
		return httptransport.DraftResponse{}, err
	}
	draft, err := h.UpdateDraft.Execute(ctx, commands.UpdateDraftCommand{
		DraftID:         draftID,
		ActorID:         userID,
		Payload:         req.Payload,
		ExpectedVersion: version,
	})
	if err != nil {
		return httptransport.DraftResponse{}, err
	}
	return httptransport.DraftResponse{Draft: mapDraft(draft)}, nil
}

// CreateDraftCallbackHandler godoc
// @Summary Automation draft callback
// @Description draftId doubles as the idempotency key; a replay returns the stored draft.
// @Tags drafts
// @Accept json
// @Produce json
// @Param request body httptransport.CreateDraftCallbackRequest true "Callback"
// @Success 200 {object} httptransport.CreateDraftCallbackResponse
// @Failure 400 {object} httptransport.ErrorResponse
// @Failure 409 {object} httptransport.ErrorResponse
// @Router /v1/drafts/callback [post]
func (h Handler) CreateDraftCallbackHandler(
	ctx context.Context,
	req httptransport.CreateDraftCallbackRequest,
) (httptransport.CreateDraftCallbackResponse, error) {
	result, err := h.CreateDraft.Execute(ctx, commands.CreateDraftCommand{
		DraftID: req.DraftID,
		UserID:  req.UserID,
		Payload: req.Payload,
	})
	if err != nil {
		return httptransport.CreateDraftCallbackResponse{}, err
	}
	return httptransport.CreateDraftCallbackResponse{
		Draft:    mapDraft(result.Draft),
		Replayed: result.Replayed,
	}, nil
}

// ParseVersion accepts only a JSON integer. "3", 3.5 and null are rejected.
func ParseVersion(raw json.RawMessage) (int, error) {
	decoder := json.NewDecoder(bytes.NewReader(raw))
	decoder.UseNumber()
	var value any
	if err := decoder.Decode(&value); err != nil {
		return 0, domainerrors.ErrInvalidVersion
	}
	number, ok := value.(json.Number)
	if !ok {
		return 0, domainerrors.ErrInvalidVersion
	}
	parsed, err := number.Int64()
	if err != nil || parsed < math.MinInt32 || parsed > math.MaxInt32 {
		return 0, domainerrors.ErrInvalidVersion
	}
	return int(parsed), nil
}

func mapDraft(item entities.Draft) httptransport.DraftDTO {
	return httptransport.DraftDTO{
		ID:             item.DraftID,
		UserID:         item.UserID,
		AdAccountID:    item.AdAccountID,
		CreativeID:     item.CreativeID,
		Payload:        append(json.RawMessage(nil), item.Payload...),
		Status:         string(item.Status),
		Version:        item.Version,
		IdempotencyKey: item.IdempotencyKey,
		JobID:          item.JobID,
		CreatedAt:      item.CreatedAt,
		UpdatedAt:      item.UpdatedAt,
	}
}
