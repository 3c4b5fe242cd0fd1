package domain

import (
	"errors"
	"fmt"
)

var (
	ErrDocumentNotFound = errors.New("document not found")
	ErrInvalidInput     = errors.New("invalid input")

	// ErrRetrievalUnavailable means the chunk store or sparse index cannot
	// serve the request; the whole request fails as service-unavailable.
	ErrRetrievalUnavailable = errors.New("retrieval unavailable")

	// ErrGeneration marks model transport or timeout failures. The answer
	// pipeline recovers it into a degraded response, it never escapes
	// the orchestrator.
	ErrGeneration = errors.New("generation failed")

	ErrTemporary = errors.New("temporary failure")
)

// WrapError preserves typed semantic errors with operation context.
func WrapError(kind error, operation string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w: %w", operation, kind, err)
}

func IsKind(err error, kind error) bool {
	return errors.Is(err, kind)
}
