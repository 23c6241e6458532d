package pipeline

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/pupworks/railyard-core/internal/ble"
)

// SwitchOptions configure the switch pipeline.
type SwitchOptions struct {
	// QueueSize bounds the FIFO work queue.
	QueueSize int

	// MaxAttempts is the total number of physical transmissions per
	// command before it is abandoned.
	MaxAttempts int

	// RetryDelay is the backoff unit: attempt n waits
	// RetryDelay × (n-1) before transmitting.
	RetryDelay time.Duration

	// VerifyTimeout bounds how long each attempt waits for the registry
	// to confirm the commanded position.
	VerifyTimeout time.Duration

	// VerifyPoll is the registry polling interval during verification.
	VerifyPoll time.Duration

	// Broadcast are the radio parameters for each transmission.
	Broadcast ble.BroadcastOptions

	Logger Logger
}

// SwitchPipeline processes switch commands one at a time, with retries,
// backoff and registry verification. Every physical attempt and every
// confirmed success feeds the reliability tracker.
type SwitchPipeline struct {
	tx          Transmitter
	positions   PositionReader
	reliability *ReliabilityTracker
	opts        SwitchOptions
	logger      Logger

	queue chan SwitchCommand

	startOnce sync.Once
	stopOnce  sync.Once
	done      chan struct{}
	wg        sync.WaitGroup
}

// NewSwitchPipeline creates a stopped switch pipeline.
func NewSwitchPipeline(tx Transmitter, positions PositionReader, reliability *ReliabilityTracker, opts SwitchOptions) *SwitchPipeline {
	if opts.QueueSize <= 0 {
		opts.QueueSize = 16
	}
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = 3
	}
	if opts.RetryDelay <= 0 {
		opts.RetryDelay = 500 * time.Millisecond
	}
	if opts.VerifyTimeout <= 0 {
		opts.VerifyTimeout = 2 * time.Second
	}
	if opts.VerifyPoll <= 0 {
		opts.VerifyPoll = 100 * time.Millisecond
	}
	logger := opts.Logger
	if logger == nil {
		logger = noopLogger{}
	}
	return &SwitchPipeline{
		tx:          tx,
		positions:   positions,
		reliability: reliability,
		opts:        opts,
		logger:      logger,
		queue:       make(chan SwitchCommand, opts.QueueSize),
		done:        make(chan struct{}),
	}
}

// Start launches the single drain goroutine. Subsequent calls are no-ops.
func (p *SwitchPipeline) Start(ctx context.Context) {
	p.startOnce.Do(func() {
		p.wg.Add(1)
		go p.drain(ctx)
	})
}

// Stop ends the drain loop after the in-flight command finishes.
func (p *SwitchPipeline) Stop() {
	p.stopOnce.Do(func() {
		close(p.done)
	})
	p.wg.Wait()
}

// Submit enqueues a command and returns the channel its final outcome
// will be delivered on. The channel receives exactly one SwitchResult,
// after success or after all attempts are exhausted.
func (p *SwitchPipeline) Submit(cmd SwitchCommand) (<-chan SwitchResult, error) {
	cmd.result = make(chan SwitchResult, 1)
	p.logger.Debug("switch command queued",
		"id", cmd.ID, "channel", cmd.Channel, "port", cmd.Port,
		"position", cmd.Position.String(), "state", StateQueued)
	select {
	case p.queue <- cmd:
		return cmd.result, nil
	case <-p.done:
		return nil, ErrShuttingDown
	}
}

// drain processes one command at a time in FIFO order.
func (p *SwitchPipeline) drain(ctx context.Context) {
	defer p.wg.Done()

	for {
		select {
		case cmd := <-p.queue:
			cmd.result <- p.process(ctx, cmd)
		case <-ctx.Done():
			return
		case <-p.done:
			return
		}
	}
}

// process runs the attempt/verify cycle for one command.
func (p *SwitchPipeline) process(ctx context.Context, cmd SwitchCommand) SwitchResult {
	var lastErr error

	for attempt := 1; attempt <= p.opts.MaxAttempts; attempt++ {
		// Backoff grows with the attempt index: 0, 0.5s, 1.0s, ...
		if attempt > 1 {
			backoff := p.opts.RetryDelay * time.Duration(attempt-1)
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return SwitchResult{Attempts: attempt - 1, Err: ctx.Err()}
			}
		}

		p.logger.Debug("switch command sending",
			"id", cmd.ID, "channel", cmd.Channel, "port", cmd.Port,
			"attempt", attempt, "state", StateSending)

		p.reliability.RecordAttempt(cmd.Channel, cmd.Port)

		if err := p.tx.Broadcast(cmd.Frame, p.opts.Broadcast); err != nil {
			// Absorbed until retries run out.
			lastErr = err
			p.logger.Warn("switch broadcast failed",
				"id", cmd.ID, "channel", cmd.Channel, "attempt", attempt, "error", err)
			continue
		}

		p.logger.Debug("switch command verifying",
			"id", cmd.ID, "channel", cmd.Channel, "port", cmd.Port, "state", StateVerifying)

		if p.verify(ctx, cmd) {
			p.reliability.RecordSuccess(cmd.Channel, cmd.Port)
			p.logger.Info("switch command confirmed",
				"id", cmd.ID, "channel", cmd.Channel, "port", cmd.Port,
				"position", cmd.Position.String(), "attempts", attempt, "state", StateSucceeded)
			return SwitchResult{Success: true, Attempts: attempt}
		}

		lastErr = ErrVerificationTimeout
		p.logger.Warn("switch position unconfirmed",
			"id", cmd.ID, "channel", cmd.Channel, "port", cmd.Port, "attempt", attempt)
	}

	p.logger.Error("switch command exhausted",
		"id", cmd.ID, "channel", cmd.Channel, "port", cmd.Port,
		"attempts", p.opts.MaxAttempts, "state", StateExhausted)
	return SwitchResult{
		Attempts: p.opts.MaxAttempts,
		Err:      fmt.Errorf("%w after %d attempts: %v", ErrExhausted, p.opts.MaxAttempts, lastErr),
	}
}

// verify polls the registry until the commanded position shows up or the
// window closes.
func (p *SwitchPipeline) verify(ctx context.Context, cmd SwitchCommand) bool {
	deadline := time.NewTimer(p.opts.VerifyTimeout)
	defer deadline.Stop()
	ticker := time.NewTicker(p.opts.VerifyPoll)
	defer ticker.Stop()

	for {
		if pos, ok := p.positions.SwitchPosition(cmd.Channel, cmd.Port); ok && pos == cmd.Position {
			return true
		}
		select {
		case <-ticker.C:
		case <-deadline.C:
			return false
		case <-ctx.Done():
			return false
		}
	}
}
