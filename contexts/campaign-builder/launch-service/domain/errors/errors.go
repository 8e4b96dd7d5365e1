package errors

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrJobNotFound            = errors.New("job not found")
	ErrJobTerminal            = errors.New("job is already terminal")
	ErrJobNotClaimable        = errors.New("job is not queued")
	ErrUnknownJobForEvent     = errors.New("progress event references unknown job")
	ErrInvalidSubmission      = errors.New("invalid launch submission")
	ErrInvalidSpecification   = errors.New("invalid campaign specification")
	ErrUnauthorizedActor      = errors.New("actor is not authorized")
	ErrIdempotencyKeyConflict = errors.New("idempotency key conflict")
	ErrDraftNotFound          = errors.New("draft not found")
	ErrDraftConflict          = errors.New("draft changed concurrently")
	ErrDraftNotLaunchable     = errors.New("draft is not pending")
	ErrCredentialUnavailable  = errors.New("ad account credential unavailable")
	ErrEnqueueFailed          = errors.New("launch job could not be enqueued")

	// ErrRemoteAPI matches every RemoteAPIError.
	ErrRemoteAPI = errors.New("remote api error")
	// ErrTransport matches RemoteAPIErrors that never produced an HTTP status.
	ErrTransport = errors.New("remote transport error")
)

// RemoteAPIError is the normalized failure of one remote entity call. Message
// is the platform's own error message when one was returned; the raw body is
// never carried.
type RemoteAPIError struct {
	Kind       string
	Operation  string
	StatusCode int
	Message    string
	Type       string
	Code       int
	Transport  bool
	Cause      error
}

func (e *RemoteAPIError) Error() string {
	message := strings.TrimSpace(e.Message)
	if message == "" {
		message = "request failed"
	}
	if e.Transport {
		return fmt.Sprintf("%s %s: %s", e.Operation, e.Kind, message)
	}
	return fmt.Sprintf("%s %s: %s (status %d)", e.Operation, e.Kind, message, e.StatusCode)
}

func (e *RemoteAPIError) Is(target error) bool {
	if target == ErrRemoteAPI {
		return true
	}
	return target == ErrTransport && e.Transport
}

func (e *RemoteAPIError) IsTransport() bool {
	return e.Transport
}

func (e *RemoteAPIError) Unwrap() error {
	return e.Cause
}

// UserMessage is the text surfaced on progress events and job.error.
func (e *RemoteAPIError) UserMessage() string {
	if message := strings.TrimSpace(e.Message); message != "" {
		return message
	}
	if e.Transport {
		return "could not reach the ad platform"
	}
	return fmt.Sprintf("ad platform returned status %d", e.StatusCode)
}

// UserMessage extracts the surfaced message from any error.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}
	var remote *RemoteAPIError
	if errors.As(err, &remote) {
		return remote.UserMessage()
	}
	return err.Error()
}
