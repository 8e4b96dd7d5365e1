package httpserver

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	launcherrors "adpilot/contexts/campaign-builder/launch-service/domain/errors"
	launchhttp "adpilot/contexts/campaign-builder/launch-service/transport/http"

	"github.com/go-chi/chi/v5"
)

func (s *Server) handleSubmitLaunch(w http.ResponseWriter, r *http.Request) {
	userID := strings.TrimSpace(r.Header.Get("X-User-Id"))
	if userID == "" {
		writeLaunchError(w, http.StatusUnauthorized, "missing_user", "X-User-Id header is required")
		return
	}

	var req launchhttp.SubmitLaunchRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeLaunchError(w, http.StatusBadRequest, "invalid_json", "request body must be valid JSON")
		return
	}

	resp, err := s.launch.Handler.SubmitLaunchHandler(
		r.Context(),
		userID,
		r.Header.Get("Idempotency-Key"),
		req,
	)
	if err != nil {
		writeLaunchDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleGetJob(w http.ResponseWriter, r *http.Request) {
	resp, err := s.launch.Handler.GetJobHandler(r.Context(), chi.URLParam(r, "job_id"))
	if err != nil {
		writeLaunchDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleListEvents(w http.ResponseWriter, r *http.Request) {
	afterSeq, err := parseAfterSeq(r.URL.Query().Get("after_seq"))
	if err != nil {
		writeLaunchError(w, http.StatusBadRequest, "invalid_after_seq", "after_seq must be a non-negative integer")
		return
	}
	resp, err := s.launch.Handler.ListEventsHandler(r.Context(), chi.URLParam(r, "job_id"), afterSeq)
	if err != nil {
		writeLaunchDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleCancelJob(w http.ResponseWriter, r *http.Request) {
	userID := strings.TrimSpace(r.Header.Get("X-User-Id"))
	if userID == "" {
		writeLaunchError(w, http.StatusUnauthorized, "missing_user", "X-User-Id header is required")
		return
	}
	resp, err := s.launch.Handler.CancelJobHandler(r.Context(), userID, chi.URLParam(r, "job_id"))
	if err != nil {
		writeLaunchDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func parseAfterSeq(raw string) (int64, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, nil
	}
	value, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || value < 0 {
		return 0, errors.New("invalid after_seq")
	}
	return value, nil
}

func writeLaunchDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, launcherrors.ErrJobNotFound):
		writeLaunchError(w, http.StatusNotFound, "job_not_found", err.Error())
	case errors.Is(err, launcherrors.ErrDraftNotFound):
		writeLaunchError(w, http.StatusNotFound, "draft_not_found", err.Error())
	case errors.Is(err, launcherrors.ErrInvalidSubmission),
		errors.Is(err, launcherrors.ErrInvalidSpecification):
		writeLaunchError(w, http.StatusBadRequest, "invalid_submission", err.Error())
	case errors.Is(err, launcherrors.ErrUnauthorizedActor):
		writeLaunchError(w, http.StatusForbidden, "forbidden", err.Error())
	case errors.Is(err, launcherrors.ErrIdempotencyKeyConflict):
		writeLaunchError(w, http.StatusConflict, "idempotency_conflict", err.Error())
	case errors.Is(err, launcherrors.ErrJobTerminal):
		writeLaunchError(w, http.StatusConflict, "job_terminal", err.Error())
	case errors.Is(err, launcherrors.ErrDraftConflict):
		writeLaunchError(w, http.StatusConflict, "draft_conflict", err.Error())
	case errors.Is(err, launcherrors.ErrDraftNotLaunchable):
		writeLaunchError(w, http.StatusConflict, "draft_not_launchable", err.Error())
	case errors.Is(err, launcherrors.ErrEnqueueFailed):
		writeLaunchError(w, http.StatusInternalServerError, "enqueue_failed", "launch could not be queued")
	default:
		writeLaunchError(w, http.StatusInternalServerError, "internal_error", "internal server error")
	}
}

func writeLaunchError(w http.ResponseWriter, status int, code string, message string) {
	writeJSON(w, status, launchhttp.ErrorResponse{
		Code:    code,
		Message: message,
	})
}
