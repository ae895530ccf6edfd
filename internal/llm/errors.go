package llm

import "errors"

var (
	// ErrInvalidInput is returned when text to embed or generate from is
	// empty after trimming whitespace. Never retried.
	ErrInvalidInput = errors.New("invalid input")

	// ErrProviderUnavailable is returned when the embedding or generation
	// provider cannot be reached or answers with a non-success status.
	// Callers decide whether the surrounding operation degrades or fails.
	ErrProviderUnavailable = errors.New("provider unavailable")
)
