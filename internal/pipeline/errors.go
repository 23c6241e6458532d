package pipeline

import "errors"

// Domain errors for the command pipeline package.
var (
	// ErrVerificationTimeout is returned when a switch position is not
	// confirmed by the registry within the verification window. It drives
	// another attempt and only surfaces once retries are exhausted.
	ErrVerificationTimeout = errors.New("pipeline: verification timed out")

	// ErrExhausted is returned when a command has used all its attempts
	// without confirmation. The command is abandoned; there is no further
	// automatic retry.
	ErrExhausted = errors.New("pipeline: retries exhausted")

	// ErrShuttingDown is returned when a command is enqueued while the
	// pipeline is stopping.
	ErrShuttingDown = errors.New("pipeline: shutting down")
)
