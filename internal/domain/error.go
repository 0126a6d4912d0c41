package domain

import "errors"

var (
	// Common domain errors
	ErrNotFound        = errors.New("entity not found")
	ErrInvalidArgument = errors.New("invalid argument")
	ErrSessionNotFound = errors.New("session not found")
	ErrModelNotFound   = errors.New("model not found")
	ErrRoleNotFound    = errors.New("role not found")
	ErrRateLimited     = errors.New("too many requests")
)
