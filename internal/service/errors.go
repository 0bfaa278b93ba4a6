package service

import "errors"

// Error taxonomy for the synchronous request path. Background and GC
// failures are absorbed and logged, never surfaced through these.
var (
	ErrValidation = errors.New("invalid payload")
	ErrNotFound   = errors.New("not found")
	ErrForbidden  = errors.New("forbidden")
	ErrStorage    = errors.New("storage failure")
)
