package device

import (
	"sync"
	"time"
)

// Logger defines the logging interface used by the Registry.
// This allows different logging implementations to be used.
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

// DefaultActiveWindow is how long a hub stays marked active after the
// last command aimed at it.
const DefaultActiveWindow = 5 * time.Second

// hubEntry is the registry's internal mutable record for one channel.
type hubEntry struct {
	channel   byte
	kind      Kind
	name      string
	rssi      int16
	lastSeen  time.Time
	active    bool
	selfDrive bool
	train     *TrainStatus
	sw        *SwitchStatus

	// activeTimer clears the active flag; rearmed on every MarkActive.
	// activeGen identifies the current arming, so a stopped timer whose
	// callback already fired cannot clear a freshly rearmed flag.
	activeTimer *time.Timer
	activeGen   uint64
}

// Registry tracks every hub ever sighted and its liveness.
//
// Hubs are created implicitly on first observed advertisement and never
// deleted; they only age out of the connected views once no advertisement
// has arrived within the liveness window. All state is in-memory and is
// rebuilt from observed advertisements after a restart.
//
// All public methods are thread-safe.
type Registry struct {
	mu           sync.RWMutex
	hubs         map[byte]*hubEntry
	activeWindow time.Duration
	logger       Logger
}

// NewRegistry creates an empty registry with the default active window.
func NewRegistry() *Registry {
	return &Registry{
		hubs:         make(map[byte]*hubEntry),
		activeWindow: DefaultActiveWindow,
		logger:       noopLogger{},
	}
}

// SetLogger sets the logger for the registry.
func (r *Registry) SetLogger(logger Logger) {
	r.logger = logger
}

// SetActiveWindow overrides how long the active flag persists after
// MarkActive. Zero or negative values are ignored.
func (r *Registry) SetActiveWindow(d time.Duration) {
	if d > 0 {
		r.activeWindow = d
	}
}

// GetOrCreate returns the hub for channel, registering it first if this
// is its first sighting.
//
// Parameters:
//   - channel: Broadcast channel, doubling as the hub id
//   - kind: Hub class, inferred from the advertisement name marker
//   - name: Advertised local name (may be empty)
//
// Returns:
//   - Hub: Snapshot of the registered hub
func (r *Registry) GetOrCreate(channel byte, kind Kind, name string) Hub {
	r.mu.Lock()
	defer r.mu.Unlock()

	e := r.getOrCreateLocked(channel, kind, name)
	return e.snapshot()
}

func (r *Registry) getOrCreateLocked(channel byte, kind Kind, name string) *hubEntry {
	if e, ok := r.hubs[channel]; ok {
		if name != "" {
			e.name = name
		}
		return e
	}

	e := &hubEntry{
		channel: channel,
		kind:    kind,
		name:    name,
	}
	r.hubs[channel] = e
	r.logger.Info("hub registered", "channel", channel, "kind", kind, "name", name)
	return e
}

// Get returns a snapshot of the hub on channel, or ErrUnknownDevice.
func (r *Registry) Get(channel byte) (Hub, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	e, ok := r.hubs[channel]
	if !ok {
		return Hub{}, ErrUnknownDevice
	}
	return e.snapshot(), nil
}

// RecordTrainStatus stores a decoded train status, auto-registering the
// channel if needed. The previous status is replaced wholesale, never
// merged. Self-drive is local state and is left untouched.
func (r *Registry) RecordTrainStatus(channel byte, name string, rssi int16, status TrainStatus) Hub {
	r.mu.Lock()
	defer r.mu.Unlock()

	e := r.getOrCreateLocked(channel, KindTrain, name)
	e.rssi = rssi
	e.lastSeen = status.Timestamp
	e.train = &status
	return e.snapshot()
}

// RecordSwitchStatus stores a decoded switch status, auto-registering the
// channel if needed. The previous status is replaced wholesale.
func (r *Registry) RecordSwitchStatus(channel byte, name string, rssi int16, status SwitchStatus) Hub {
	r.mu.Lock()
	defer r.mu.Unlock()

	e := r.getOrCreateLocked(channel, KindSwitch, name)
	e.rssi = rssi
	e.lastSeen = status.Timestamp
	e.sw = &status
	return e.snapshot()
}

// IsLive reports whether channel has been seen within the window.
// The boundary is exclusive: exactly window since the last sighting is
// no longer live. Unknown channels are never live.
func (r *Registry) IsLive(channel byte, window time.Duration) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	e, ok := r.hubs[channel]
	if !ok || e.lastSeen.IsZero() {
		return false
	}
	return time.Since(e.lastSeen) < window
}

// MarkActive flags the hub as recently commanded and (re)arms the timer
// that clears the flag after the active window. Callers use this to
// densify status handling right after issuing a command.
//
// Returns ErrUnknownDevice if the channel has never been registered.
func (r *Registry) MarkActive(channel byte) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.hubs[channel]
	if !ok {
		return ErrUnknownDevice
	}

	e.active = true
	if e.activeTimer != nil {
		e.activeTimer.Stop()
	}
	e.activeGen++
	gen := e.activeGen
	e.activeTimer = time.AfterFunc(r.activeWindow, func() {
		r.clearActive(channel, gen)
	})
	return nil
}

// clearActive is the timer callback. Stop cannot guarantee an
// already-fired callback is cancelled, so only the arming that is still
// current may clear the flag.
func (r *Registry) clearActive(channel byte, gen uint64) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if e, ok := r.hubs[channel]; ok && e.activeGen == gen {
		e.active = false
		e.activeTimer = nil
	}
}

// IsActive reports whether the hub was commanded within the active window.
func (r *Registry) IsActive(channel byte) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	e, ok := r.hubs[channel]
	return ok && e.active
}

// SetSelfDrive records the self-drive state for a train channel. The hub
// never advertises this, so the registry is its only source of truth.
//
// Returns ErrUnknownDevice for unregistered channels and ErrWrongKind
// for switch hubs.
func (r *Registry) SetSelfDrive(channel byte, enabled bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.hubs[channel]
	if !ok {
		return ErrUnknownDevice
	}
	if e.kind != KindTrain {
		return ErrWrongKind
	}
	e.selfDrive = enabled
	return nil
}

// ConnectedTrains returns a view of every train hub seen within the
// liveness window, keyed by channel.
func (r *Registry) ConnectedTrains(window time.Duration) map[byte]TrainView {
	r.mu.RLock()
	defer r.mu.RUnlock()

	now := time.Now()
	views := make(map[byte]TrainView)
	for ch, e := range r.hubs {
		if e.kind != KindTrain || e.lastSeen.IsZero() {
			continue
		}
		age := now.Sub(e.lastSeen)
		if age >= window {
			continue
		}

		v := TrainView{
			Channel:    ch,
			Name:       e.name,
			RSSI:       e.rssi,
			SelfDrive:  e.selfDrive,
			Active:     e.active,
			AgeSeconds: age.Seconds(),
		}
		if e.train != nil {
			v.Running = e.train.Running
			v.SpeedPercent = e.train.SpeedPercent
			v.Direction = e.train.Direction()
		}
		views[ch] = v
	}
	return views
}

// ConnectedSwitches returns a view of every switch hub seen within the
// liveness window, keyed by channel.
func (r *Registry) ConnectedSwitches(window time.Duration) map[byte]SwitchView {
	r.mu.RLock()
	defer r.mu.RUnlock()

	now := time.Now()
	views := make(map[byte]SwitchView)
	for ch, e := range r.hubs {
		if e.kind != KindSwitch || e.lastSeen.IsZero() {
			continue
		}
		age := now.Sub(e.lastSeen)
		if age >= window {
			continue
		}

		v := SwitchView{
			Channel:    ch,
			Name:       e.name,
			RSSI:       e.rssi,
			Positions:  make(map[Port]string),
			Connected:  make(map[Port]bool),
			Active:     e.active,
			AgeSeconds: age.Seconds(),
		}
		if e.sw != nil {
			for port, pos := range e.sw.Positions {
				v.Positions[port] = pos.String()
			}
			for port, connected := range e.sw.PortConnected {
				v.Connected[port] = connected
			}
		}
		views[ch] = v
	}
	return views
}

// SwitchPosition returns the last reported position of one port on a
// switch channel. Used by the command pipeline's verification poll.
//
// Returns:
//   - Position: Last decoded position
//   - bool: False when the channel is unknown, is not a switch, has no
//     status yet, or the port has no recorded position
func (r *Registry) SwitchPosition(channel byte, port Port) (Position, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	e, ok := r.hubs[channel]
	if !ok || e.kind != KindSwitch || e.sw == nil {
		return 0, false
	}
	pos, ok := e.sw.Positions[port]
	return pos, ok
}

// snapshot copies the entry into an externally safe Hub value.
// Caller must hold at least a read lock.
func (e *hubEntry) snapshot() Hub {
	h := Hub{
		Channel:   e.channel,
		Kind:      e.kind,
		Name:      e.name,
		RSSI:      e.rssi,
		LastSeen:  e.lastSeen,
		Active:    e.active,
		SelfDrive: e.selfDrive,
	}
	if e.train != nil {
		t := *e.train
		h.Train = &t
	}
	if e.sw != nil {
		s := SwitchStatus{
			Positions:     make(map[Port]Position, len(e.sw.Positions)),
			PortConnected: make(map[Port]bool, len(e.sw.PortConnected)),
			RawStatusByte: e.sw.RawStatusByte,
			Timestamp:     e.sw.Timestamp,
		}
		for k, v := range e.sw.Positions {
			s.Positions[k] = v
		}
		for k, v := range e.sw.PortConnected {
			s.PortConnected[k] = v
		}
		h.Switch = &s
	}
	return h
}
