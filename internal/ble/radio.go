package ble

import (
	"context"
	"fmt"
	"os/exec"
	"sync"
	"time"

	"github.com/pupworks/railyard-core/internal/pup"
)

// Logger defines the logging interface used by the Radio.
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

// commandRunner executes an external command. Seam for tests; the
// default shells out via os/exec.
type commandRunner func(ctx context.Context, name string, args ...string) ([]byte, error)

func execRunner(ctx context.Context, name string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, name, args...).CombinedOutput()
}

// BroadcastOptions control one best-effort transmit burst.
type BroadcastOptions struct {
	// Repeats is how many enable/dwell/disable cycles to run. A single
	// advertisement on the lossy medium may be missed; repetition is the
	// only reliability mechanism at this layer.
	Repeats int

	// Dwell is how long advertising stays enabled per cycle.
	Dwell time.Duration

	// Interval is the advertising interval handed to the stack.
	Interval time.Duration
}

// Options configure a Radio.
type Options struct {
	// SettleDelay is the pause after stopping a scan or power-cycling
	// before the next radio operation. BlueZ needs the gap.
	SettleDelay time.Duration

	Logger Logger
}

// Radio owns the single physical BLE adapter and serialises access to it.
//
// At most one scan session is active at a time; StartScan while already
// scanning performs an implicit stop, settling delay, then restart.
// Broadcast bursts and scan start/stop never interleave.
type Radio struct {
	adapter     Adapter
	logger      Logger
	settleDelay time.Duration
	run         commandRunner

	mu      sync.Mutex
	session *scanSession
}

// scanSession tracks one scan's lifecycle so a restarted session can
// never be confused with the one it replaced.
type scanSession struct {
	stopped bool
}

// NewRadio creates a Radio around the given adapter.
func NewRadio(adapter Adapter, opts Options) *Radio {
	logger := opts.Logger
	if logger == nil {
		logger = noopLogger{}
	}
	settle := opts.SettleDelay
	if settle <= 0 {
		settle = 500 * time.Millisecond
	}
	return &Radio{
		adapter:     adapter,
		logger:      logger,
		settleDelay: settle,
		run:         execRunner,
	}
}

// StartScan begins a scan session, delivering every received
// advertisement to callback. If a session is already running it is
// stopped first, followed by a settling delay, before the new one starts.
//
// The scan itself runs on an internal goroutine. The returned channel
// receives exactly one value when the session ends: nil after a
// deliberate StopScan, or the wrapped failure otherwise.
//
// Parameters:
//   - callback: Invoked for every advertisement; must be fast
//
// Returns:
//   - <-chan error: Session outcome, delivered once
//   - error: ErrScanFailure if the previous session cannot be stopped
func (r *Radio) StartScan(callback func(Advertisement)) (<-chan error, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.session != nil {
		r.logger.Debug("scan already active, restarting")
		r.session.stopped = true
		if err := r.adapter.StopScan(); err != nil {
			r.session.stopped = false
			return nil, fmt.Errorf("%w: stopping previous session: %v", ErrScanFailure, err)
		}
		time.Sleep(r.settleDelay)
	}

	session := &scanSession{}
	r.session = session

	done := make(chan error, 1)
	go func() {
		err := r.adapter.Scan(callback)

		r.mu.Lock()
		wasStopped := session.stopped
		if r.session == session {
			r.session = nil
		}
		r.mu.Unlock()

		if err != nil {
			done <- fmt.Errorf("%w: %v", ErrScanFailure, err)
			return
		}
		if !wasStopped {
			// The stack returned without error but nobody asked it to stop.
			done <- fmt.Errorf("%w: scan ended unexpectedly", ErrScanFailure)
			return
		}
		done <- nil
	}()

	return done, nil
}

// StopScan ends the current scan session, if any. Safe to call when no
// session is active.
func (r *Radio) StopScan() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.session == nil {
		return nil
	}
	r.session.stopped = true
	if err := r.adapter.StopScan(); err != nil {
		r.session.stopped = false
		return fmt.Errorf("%w: %v", ErrScanFailure, err)
	}
	return nil
}

// Broadcast transmits a command frame as manufacturer-data advertising.
//
// The frame is the full codec output; the stack rebuilds the advertising
// header itself, so only the bytes after the manufacturer id are loaded.
// The enable/dwell/disable cycle repeats opts.Repeats times. An in-flight
// burst always runs to completion; shutdown waits for it.
//
// Returns:
//   - error: ErrTransmitFailure if the payload is malformed or the stack
//     rejects the advertisement
func (r *Radio) Broadcast(frame []byte, opts BroadcastOptions) error {
	payload, err := pup.ManufacturerPayload(frame)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrTransmitFailure, err)
	}

	repeats := opts.Repeats
	if repeats < 1 {
		repeats = 1
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.adapter.ConfigureAdvertisement(pup.ManufacturerID, payload, opts.Interval); err != nil {
		return fmt.Errorf("%w: configure: %v", ErrTransmitFailure, err)
	}

	for i := 0; i < repeats; i++ {
		if err := r.adapter.StartAdvertisement(); err != nil {
			return fmt.Errorf("%w: start: %v", ErrTransmitFailure, err)
		}
		time.Sleep(opts.Dwell)
		if err := r.adapter.StopAdvertisement(); err != nil {
			return fmt.Errorf("%w: stop: %v", ErrTransmitFailure, err)
		}
	}

	r.logger.Debug("broadcast complete", "bytes", len(payload), "repeats", repeats)
	return nil
}

// Reset power-cycles the adapter via bluetoothctl. Used at startup and
// for on-demand recovery. A failure is returned but callers treat it as
// non-fatal and keep retrying their own operations.
func (r *Radio) Reset(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.logger.Info("power-cycling bluetooth adapter")

	if out, err := r.run(ctx, "bluetoothctl", "power", "off"); err != nil {
		return fmt.Errorf("%w: power off: %v (%s)", ErrResetFailure, err, out)
	}

	select {
	case <-time.After(r.settleDelay):
	case <-ctx.Done():
		return fmt.Errorf("%w: %v", ErrResetFailure, ctx.Err())
	}

	if out, err := r.run(ctx, "bluetoothctl", "power", "on"); err != nil {
		return fmt.Errorf("%w: power on: %v (%s)", ErrResetFailure, err, out)
	}

	time.Sleep(r.settleDelay)
	r.logger.Info("bluetooth adapter reset complete")
	return nil
}
