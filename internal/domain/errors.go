package domain

import "errors"

var (
	// ErrValidation marks a malformed request. It is raised before any state changes.
	ErrValidation = errors.New("validation failed")

	// ErrAuthRequired marks an operation that needs an authenticated owner.
	ErrAuthRequired = errors.New("authentication required")
)
