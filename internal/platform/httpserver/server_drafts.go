package httpserver

import (
	"errors"
	"net/http"
	"strings"

	drafterrors "adpilot/contexts/campaign-builder/draft-service/domain/errors"
	drafthttp "adpilot/contexts/campaign-builder/draft-service/transport/http"

	"github.com/go-chi/chi/v5"
)

func (s *Server) handleGetDraft(w http.ResponseWriter, r *http.Request) {
	resp, err := s.drafts.Handler.GetDraftHandler(r.Context(), chi.URLParam(r, "draft_id"))
	if err != nil {
		writeDraftDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleUpdateDraft(w http.ResponseWriter, r *http.Request) {
	var req drafthttp.UpdateDraftRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeDraftError(w, http.StatusBadRequest, "invalid_json", "request body must be valid JSON")
		return
	}
	resp, err := s.drafts.Handler.UpdateDraftHandler(
		r.Context(),
		strings.TrimSpace(r.Header.Get("X-User-Id")),
		chi.URLParam(r, "draft_id"),
		req,
	)
	if err != nil {
		writeDraftDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleDraftCallback(w http.ResponseWriter, r *http.Request) {
	var req drafthttp.CreateDraftCallbackRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeDraftError(w, http.StatusBadRequest, "invalid_json", "request body must be valid JSON")
		return
	}
	resp, err := s.drafts.Handler.CreateDraftCallbackHandler(r.Context(), req)
	if err != nil {
		writeDraftDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func writeDraftDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, drafterrors.ErrInvalidVersion):
		writeDraftError(w, http.StatusBadRequest, "invalid_version", err.Error())
	case errors.Is(err, drafterrors.ErrInvalidDraftInput):
		writeDraftError(w, http.StatusBadRequest, "invalid_draft", err.Error())
	case errors.Is(err, drafterrors.ErrDraftNotFound):
		writeDraftError(w, http.StatusNotFound, "draft_not_found", err.Error())
	case errors.Is(err, drafterrors.ErrVersionConflict):
		writeDraftError(w, http.StatusConflict, "version_conflict", err.Error())
	case errors.Is(err, drafterrors.ErrDraftNotEditable):
		writeDraftError(w, http.StatusConflict, "draft_not_editable", err.Error())
	case errors.Is(err, drafterrors.ErrIdempotencyKeyConflict):
		writeDraftError(w, http.StatusConflict, "idempotency_conflict", err.Error())
	case errors.Is(err, drafterrors.ErrUnauthorizedActor):
		writeDraftError(w, http.StatusForbidden, "forbidden", err.Error())
	default:
		writeDraftError(w, http.StatusInternalServerError, "internal_error", "internal server error")
	}
}

func writeDraftError(w http.ResponseWriter, status int, code string, message string) {
	writeJSON(w, status, drafthttp.ErrorResponse{
		Code:    code,
		Message: message,
	})
}
