package pipeline

import (
	"sync"

	"github.com/pupworks/railyard-core/internal/device"
)

// Stats are the monotonic delivery counters for one (channel, port) pair.
// The success rate is always derived, never stored.
type Stats struct {
	Attempts  uint64 `json:"attempts"`
	Successes uint64 `json:"successes"`
}

// Rate returns the success percentage, 0 when nothing was attempted.
func (s Stats) Rate() float64 {
	if s.Attempts == 0 {
		return 0
	}
	return float64(s.Successes) / float64(s.Attempts) * 100
}

type reliabilityKey struct {
	channel byte
	port    device.Port
}

// ReliabilityTracker counts physical switch-command attempts and
// confirmed successes per (channel, port). Counters only ever grow.
//
// All methods are safe for concurrent use.
type ReliabilityTracker struct {
	mu       sync.RWMutex
	counters map[reliabilityKey]Stats
}

// NewReliabilityTracker creates an empty tracker.
func NewReliabilityTracker() *ReliabilityTracker {
	return &ReliabilityTracker{
		counters: make(map[reliabilityKey]Stats),
	}
}

// RecordAttempt increments the attempt counter for one physical
// transmission, regardless of its outcome.
func (t *ReliabilityTracker) RecordAttempt(channel byte, port device.Port) {
	t.mu.Lock()
	defer t.mu.Unlock()

	key := reliabilityKey{channel: channel, port: port}
	s := t.counters[key]
	s.Attempts++
	t.counters[key] = s
}

// RecordSuccess increments the success counter after the registry
// confirmed the commanded position.
func (t *ReliabilityTracker) RecordSuccess(channel byte, port device.Port) {
	t.mu.Lock()
	defer t.mu.Unlock()

	key := reliabilityKey{channel: channel, port: port}
	s := t.counters[key]
	s.Successes++
	t.counters[key] = s
}

// Get returns the counters for one (channel, port) pair. Unknown pairs
// return zero counters.
func (t *ReliabilityTracker) Get(channel byte, port device.Port) Stats {
	t.mu.RLock()
	defer t.mu.RUnlock()

	return t.counters[reliabilityKey{channel: channel, port: port}]
}

// Snapshot returns the counters of every port seen on a channel.
func (t *ReliabilityTracker) Snapshot(channel byte) map[device.Port]Stats {
	t.mu.RLock()
	defer t.mu.RUnlock()

	out := make(map[device.Port]Stats)
	for key, s := range t.counters {
		if key.channel == channel {
			out[key.port] = s
		}
	}
	return out
}
