package pipeline

import (
	"time"

	"github.com/google/uuid"
	"github.com/pupworks/railyard-core/internal/ble"
	"github.com/pupworks/railyard-core/internal/device"
)

// State is one step of a command's lifecycle.
type State string

const (
	StateQueued    State = "queued"
	StateSending   State = "sending"
	StateVerifying State = "verifying"
	StateSucceeded State = "succeeded"
	StateExhausted State = "exhausted"
)

// Logger defines the logging interface used by the pipelines.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// noopLogger is a logger that does nothing.
type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Transmitter is the slice of the radio the pipelines need.
type Transmitter interface {
	Broadcast(frame []byte, opts ble.BroadcastOptions) error
}

// PositionReader is the slice of the registry the switch pipeline polls
// during verification.
type PositionReader interface {
	SwitchPosition(channel byte, port device.Port) (device.Position, bool)
}

// TrainCommand is an immutable, pre-encoded train instruction. Trains
// are fire-and-forget: no verification, no result delivery.
type TrainCommand struct {
	ID      uuid.UUID
	Channel byte

	// Frame is the full codec output, ready for broadcast.
	Frame []byte

	// Label describes the command for logs ("power 40", "selfdrive on").
	Label string

	EnqueuedAt time.Time
}

// NewTrainCommand stamps a frame with an id and enqueue time.
func NewTrainCommand(channel byte, frame []byte, label string) TrainCommand {
	return TrainCommand{
		ID:         uuid.New(),
		Channel:    channel,
		Frame:      frame,
		Label:      label,
		EnqueuedAt: time.Now(),
	}
}

// SwitchCommand is an immutable, pre-encoded switch instruction. The
// pipeline confirms it against the registry and reports the outcome.
type SwitchCommand struct {
	ID       uuid.UUID
	Channel  byte
	Port     device.Port
	Position device.Position
	Frame    []byte

	EnqueuedAt time.Time

	result chan SwitchResult
}

// NewSwitchCommand stamps a frame with an id and enqueue time.
func NewSwitchCommand(channel byte, port device.Port, position device.Position, frame []byte) SwitchCommand {
	return SwitchCommand{
		ID:         uuid.New(),
		Channel:    channel,
		Port:       port,
		Position:   position,
		Frame:      frame,
		EnqueuedAt: time.Now(),
	}
}

// SwitchResult is the final outcome of one switch command.
type SwitchResult struct {
	// Success is true when the registry confirmed the intended position.
	Success bool

	// Attempts is how many physical transmissions were made.
	Attempts int

	// Err carries the terminal failure (wrapped ErrExhausted) when
	// Success is false.
	Err error
}
