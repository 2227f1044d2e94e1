package engine

import "errors"

var (
	// ErrNonMonotonicSequence marks an event whose sequence does not match
	// the state's next expected sequence. Fatal to the ingestion or replay
	// call; state is left unchanged.
	ErrNonMonotonicSequence = errors.New("non-monotonic sequence")

	// ErrMalformedEvent marks an event that fails structural validation
	// (non-positive deposit, unknown account or market on a mutation path,
	// duplicate market init). Fatal; state is left unchanged.
	ErrMalformedEvent = errors.New("malformed event")

	// ErrInvariantViolation marks a state invariant breach (im or mm
	// fraction out of range, cost-basis sign mismatch, position with no
	// funding mark, partial liquidation close). Indicates a bug; replay aborts rather than proceed with
	// corrupted state.
	ErrInvariantViolation = errors.New("invariant violation")

	// ErrReplayMismatch marks a determinism failure: replayed state or
	// hash chain diverged from the recorded run.
	ErrReplayMismatch = errors.New("replay mismatch")
)
