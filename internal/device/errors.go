package device

import "errors"

// Domain errors for the device registry package.
var (
	// ErrUnknownDevice is returned when an operation targets a channel
	// that has never been registered. Callers wait for auto-registration
	// or register explicitly via GetOrCreate.
	ErrUnknownDevice = errors.New("device: unknown channel")

	// ErrInvalidPort is returned when a port string is not A, B, C or D.
	ErrInvalidPort = errors.New("device: invalid port")

	// ErrInvalidPosition is returned when a position is not straight (0)
	// or diverging (1).
	ErrInvalidPosition = errors.New("device: invalid position")

	// ErrWrongKind is returned when an operation targets a hub of the
	// other class, e.g. a train command sent to a switch channel.
	ErrWrongKind = errors.New("device: wrong hub kind")
)
