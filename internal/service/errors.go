package service

import "errors"

// Error taxonomy for the service layer. Handlers map these onto HTTP status
// codes; anything not matching is treated as an internal failure and the
// underlying message is surfaced to the caller.
var (
	ErrBadRequest   = errors.New("bad request")
	ErrUnauthorized = errors.New("unauthorized")
	ErrConflict     = errors.New("conflict")
	ErrNotFound     = errors.New("not found")
)
