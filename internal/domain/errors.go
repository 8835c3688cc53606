package domain

import "errors"

// Sentinel errors for domain-level error discrimination.
// Services wrap these so handlers can map to HTTP status codes without leaking infrastructure details.
var (
	ErrNotFound      = errors.New("not found")
	ErrConflict      = errors.New("conflict")
	ErrUnauthorized  = errors.New("unauthorized")
	ErrUnprocessable = errors.New("unprocessable")
	ErrRateLimited   = errors.New("rate limited")
	ErrBadRequest    = errors.New("bad request")
)
