package pup

import "errors"

// Domain errors for the Powered-Up codec package.
var (
	// ErrInvalidCommand is returned when a value is outside the protocol
	// range. The codec never clamps; callers clamp before encoding.
	ErrInvalidCommand = errors.New("pup: invalid command value")

	// ErrInvalidFrame is returned when a received frame or status payload
	// is malformed, too short, or carries a foreign manufacturer id.
	ErrInvalidFrame = errors.New("pup: invalid frame")
)
