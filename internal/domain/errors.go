package domain

import "errors"

// Sentinel errors for domain-level error discrimination.
// Services wrap these so handlers can map to HTTP status codes without leaking infrastructure details.
var (
	ErrNotFound     = errors.New("not found")
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")
	ErrBadRequest   = errors.New("bad request")
	// ErrMissingDraft means store was reached without a confirmed draft in the session.
	ErrMissingDraft = errors.New("no notice draft in session")
	// ErrUnavailable wraps persistence failures.
	ErrUnavailable = errors.New("storage unavailable")
)
