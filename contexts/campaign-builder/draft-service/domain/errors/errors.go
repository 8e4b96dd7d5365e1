package errors

import "errors"

var (
	ErrDraftNotFound          = errors.New("draft not found")
	ErrVersionConflict        = errors.New("draft version conflict")
	ErrInvalidVersion         = errors.New("version must be an integer")
	ErrInvalidDraftInput      = errors.New("invalid draft input")
	ErrDraftNotEditable       = errors.New("draft is no longer pending")
	ErrIdempotencyKeyConflict = errors.New("draft idempotency key belongs to another user")
	ErrUnauthorizedActor      = errors.New("actor is not authorized")
)
