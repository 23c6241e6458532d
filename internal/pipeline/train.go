package pipeline

import (
	"context"
	"sync"
	"time"

	"github.com/pupworks/railyard-core/internal/ble"
)

// TrainOptions configure the train pipeline.
type TrainOptions struct {
	// QueueSize bounds the FIFO work queue; enqueue blocks only when full.
	QueueSize int

	// BatchSize is how many queued commands one drain cycle takes at
	// most. Bursts are captured efficiently without starving the radio.
	BatchSize int

	// BatchPause is the yield between drain cycles.
	BatchPause time.Duration

	// Broadcast are the radio parameters for each transmission.
	Broadcast ble.BroadcastOptions

	Logger Logger
}

// TrainPipeline drains train commands to the radio fire-and-forget.
//
// There is no verification loop: trains need low-latency successive
// updates (live speed changes), so reliability comes from broadcast
// repetition and from the monitor densifying status updates for active
// hubs, not from blocking confirmation.
type TrainPipeline struct {
	tx     Transmitter
	opts   TrainOptions
	logger Logger

	queue chan TrainCommand

	startOnce sync.Once
	stopOnce  sync.Once
	done      chan struct{}
	wg        sync.WaitGroup
}

// NewTrainPipeline creates a stopped train pipeline. Call Start to begin
// draining.
func NewTrainPipeline(tx Transmitter, opts TrainOptions) *TrainPipeline {
	if opts.QueueSize <= 0 {
		opts.QueueSize = 64
	}
	if opts.BatchSize <= 0 {
		opts.BatchSize = 5
	}
	if opts.BatchPause <= 0 {
		opts.BatchPause = 20 * time.Millisecond
	}
	logger := opts.Logger
	if logger == nil {
		logger = noopLogger{}
	}
	return &TrainPipeline{
		tx:     tx,
		opts:   opts,
		logger: logger,
		queue:  make(chan TrainCommand, opts.QueueSize),
		done:   make(chan struct{}),
	}
}

// Start launches the single drain goroutine. Subsequent calls are no-ops.
func (p *TrainPipeline) Start(ctx context.Context) {
	p.startOnce.Do(func() {
		p.wg.Add(1)
		go p.drain(ctx)
	})
}

// Stop ends the drain loop and waits for the in-flight transmission to
// complete. Queued commands that were never drained are dropped.
func (p *TrainPipeline) Stop() {
	p.stopOnce.Do(func() {
		close(p.done)
	})
	p.wg.Wait()
}

// Enqueue appends a command to the FIFO queue. It blocks only when the
// queue is at capacity, and fails once the pipeline is stopping.
func (p *TrainPipeline) Enqueue(cmd TrainCommand) error {
	p.logger.Debug("train command queued",
		"id", cmd.ID, "channel", cmd.Channel, "label", cmd.Label, "state", StateQueued)
	select {
	case p.queue <- cmd:
		return nil
	case <-p.done:
		return ErrShuttingDown
	}
}

// drain is the single active drain loop. Each cycle takes up to
// BatchSize queued commands, transmits them, then yields for BatchPause.
func (p *TrainPipeline) drain(ctx context.Context) {
	defer p.wg.Done()

	for {
		// Block for the first command of the cycle.
		var first TrainCommand
		select {
		case first = <-p.queue:
		case <-ctx.Done():
			return
		case <-p.done:
			return
		}

		batch := []TrainCommand{first}
	fill:
		for len(batch) < p.opts.BatchSize {
			select {
			case cmd := <-p.queue:
				batch = append(batch, cmd)
			default:
				break fill
			}
		}

		for _, cmd := range batch {
			p.logger.Debug("train command sending",
				"id", cmd.ID, "channel", cmd.Channel, "state", StateSending)
			if err := p.tx.Broadcast(cmd.Frame, p.opts.Broadcast); err != nil {
				// Fire-and-forget: log and move on, the caller already
				// returned. The monitor's status stream shows the truth.
				p.logger.Warn("train broadcast failed",
					"id", cmd.ID, "channel", cmd.Channel, "error", err)
				continue
			}
			p.logger.Debug("train command sent",
				"id", cmd.ID, "channel", cmd.Channel, "label", cmd.Label,
				"queue_latency_ms", time.Since(cmd.EnqueuedAt).Milliseconds())
		}

		select {
		case <-time.After(p.opts.BatchPause):
		case <-ctx.Done():
			return
		case <-p.done:
			return
		}
	}
}
