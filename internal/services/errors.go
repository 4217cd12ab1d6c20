package services

import "errors"

// Error taxonomy for the intake workflow. Authorization and input errors
// are raised before any durable write; extraction/persistence errors after
// the anchor invoice exists additionally mark the invoice FAILED.
var (
	ErrUnauthorized     = errors.New("unauthorized")
	ErrForbidden        = errors.New("forbidden")
	ErrNotFound         = errors.New("invoice not found")
	ErrInvalidInput     = errors.New("invalid input")
	ErrInvalidFormat    = errors.New("invalid format")
	ErrExtractionFailed = errors.New("extraction failed")
	ErrPersistence      = errors.New("persistence error")
)
