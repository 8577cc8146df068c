package services

import "errors"

// Common service-level errors
var (
	// Session errors
	ErrNotAuthenticated = errors.New("not authenticated")

	// Entity errors
	ErrNotFound         = errors.New("entity not found")
	ErrInvalidReference = errors.New("invalid contact reference")

	// Job errors
	ErrJobNotFound = errors.New("job not found")
)
