// Package apperr defines the sentinel errors shared across Promptree layers.
// Callers distinguish failure kinds with errors.Is; the concrete message
// carries the offending id.
package apperr

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound means a referenced conversation id does not resolve.
	ErrNotFound = errors.New("not found")

	// ErrConflict is the umbrella for self-reference and duplicate-link
	// failures. ErrSelfLink and ErrDuplicateLink both wrap it, so a caller
	// may match either the broad kind or the specific reason.
	ErrConflict = errors.New("conflict")

	// ErrSelfLink means a conversation was asked to link to itself.
	ErrSelfLink = fmt.Errorf("%w: self link", ErrConflict)

	// ErrDuplicateLink means the unordered pair already has a stored link.
	ErrDuplicateLink = fmt.Errorf("%w: link already exists", ErrConflict)

	// ErrCycle means a reparent would make a conversation its own ancestor.
	ErrCycle = errors.New("parent cycle")

	// ErrValidation means malformed input reached the core (e.g. a
	// non-positive id or an empty prompt).
	ErrValidation = errors.New("invalid input")

	// ErrBackend means the generation backend call failed; nothing was
	// persisted and the operation can be retried.
	ErrBackend = errors.New("generation backend failure")
)
