package domain

import "errors"

// Error taxonomy shared across the engine. Callers distinguish categories
// with errors.Is; wrapping adds the entity and id context.
var (
	// ErrNotFound means a referenced report, offer, request, or reputation
	// record does not exist. Propagated to the caller with no partial mutation.
	ErrNotFound = errors.New("not found")

	// ErrInvalidState means an entity is not in a status that permits the
	// requested operation. Non-fatal inside a batch run.
	ErrInvalidState = errors.New("invalid state")

	// ErrInvalidTransition means a status change violates the forward-only
	// state machine.
	ErrInvalidTransition = errors.New("invalid status transition")
)
