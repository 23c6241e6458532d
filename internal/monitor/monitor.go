package monitor

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/pupworks/railyard-core/internal/ble"
	"github.com/pupworks/railyard-core/internal/device"
	"github.com/pupworks/railyard-core/internal/pup"
)

// Name markers hubs advertise; they decide the hub kind on first sighting.
const (
	trainNameMarker  = "Train"
	switchNameMarker = "Technic Hub"
)

// Logger defines the logging interface used by the Monitor.
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

// Scanner is the slice of the radio the monitor drives.
type Scanner interface {
	StartScan(callback func(ble.Advertisement)) (<-chan error, error)
	StopScan() error
}

// Observer receives every hub snapshot the monitor accepts into the
// registry. Observers must not block; slow sinks buffer internally.
type Observer func(device.Hub)

// Options configure the Monitor.
type Options struct {
	// RetryDelay is the pause between a scan failure and the restart.
	RetryDelay time.Duration

	// StatusInterval throttles how often an idle hub's advertisements
	// are accepted into the registry.
	StatusInterval time.Duration

	// ActiveStatusInterval is the denser throttle for hubs that were
	// commanded recently.
	ActiveStatusInterval time.Duration

	Logger Logger
}

// Monitor runs the scan loop for the lifetime of the service.
//
// It filters advertisements by manufacturer id and name marker, decodes
// the payload, updates the registry and fans the accepted snapshot out
// to observers. Any scan failure is recovered by stop, wait, restart.
// There is no cause discrimination and no retry ceiling; the loop runs
// until the context is cancelled.
type Monitor struct {
	radio    Scanner
	registry *device.Registry
	opts     Options
	logger   Logger

	observers []Observer

	mu           sync.Mutex
	lastAccepted map[byte]time.Time
}

// New creates a Monitor. Observers must be added before Run.
func New(radio Scanner, registry *device.Registry, opts Options) *Monitor {
	if opts.RetryDelay <= 0 {
		opts.RetryDelay = time.Second
	}
	if opts.StatusInterval <= 0 {
		opts.StatusInterval = 500 * time.Millisecond
	}
	if opts.ActiveStatusInterval <= 0 {
		opts.ActiveStatusInterval = 100 * time.Millisecond
	}
	logger := opts.Logger
	if logger == nil {
		logger = noopLogger{}
	}
	return &Monitor{
		radio:        radio,
		registry:     registry,
		opts:         opts,
		logger:       logger,
		lastAccepted: make(map[byte]time.Time),
	}
}

// AddObserver registers a sink for accepted hub snapshots.
// Not safe to call once Run has started.
func (m *Monitor) AddObserver(fn Observer) {
	m.observers = append(m.observers, fn)
}

// Run drives the scan loop until ctx is cancelled. It blocks; callers
// run it on its own goroutine.
func (m *Monitor) Run(ctx context.Context) {
	m.logger.Info("monitor started")

	for {
		if ctx.Err() != nil {
			m.logger.Info("monitor stopped")
			return
		}

		sessionErr, err := m.radio.StartScan(m.handleAdvertisement)
		if err != nil {
			m.logger.Warn("scan start failed, retrying", "error", err)
			if !m.wait(ctx) {
				return
			}
			continue
		}

		select {
		case err := <-sessionErr:
			// Whatever ended the session, the recovery is the same:
			// wait, then scan again.
			m.logger.Warn("scan session ended, restarting", "error", err)
			if !m.wait(ctx) {
				return
			}

		case <-ctx.Done():
			if err := m.radio.StopScan(); err != nil {
				m.logger.Warn("stopping scan on shutdown", "error", err)
			}
			<-sessionErr
			m.logger.Info("monitor stopped")
			return
		}
	}
}

// wait sleeps the retry delay; false means the context ended first.
func (m *Monitor) wait(ctx context.Context) bool {
	select {
	case <-time.After(m.opts.RetryDelay):
		return true
	case <-ctx.Done():
		m.logger.Info("monitor stopped")
		return false
	}
}

// handleAdvertisement is the scan callback. It runs on the radio's scan
// goroutine and must stay fast.
func (m *Monitor) handleAdvertisement(adv ble.Advertisement) {
	kind, ok := kindFromName(adv.LocalName)
	if !ok {
		return
	}

	for _, mfg := range adv.ManufacturerData {
		if mfg.CompanyID != pup.ManufacturerID {
			continue
		}

		// The hub's identity is the command channel inside the payload,
		// so the throttle can only apply after decoding.
		switch kind {
		case device.KindTrain:
			m.recordTrain(adv, mfg.Data)
		case device.KindSwitch:
			m.recordSwitch(adv, mfg.Data)
		}
	}
}

// accept applies the per-channel status throttle: active hubs get the
// denser interval so a just-commanded device shows feedback quickly.
func (m *Monitor) accept(channel byte) bool {
	interval := m.opts.StatusInterval
	if m.registry.IsActive(channel) {
		interval = m.opts.ActiveStatusInterval
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now()
	if last, ok := m.lastAccepted[channel]; ok && now.Sub(last) < interval {
		return false
	}
	m.lastAccepted[channel] = now
	return true
}

func (m *Monitor) recordTrain(adv ble.Advertisement, data []byte) {
	status, err := pup.DecodeTrainStatus(data)
	if err != nil {
		m.logger.Debug("undecodable train status", "name", adv.LocalName, "error", err)
		return
	}
	if !m.accept(status.Channel) {
		return
	}

	hub := m.registry.RecordTrainStatus(status.Channel, adv.LocalName, adv.RSSI, device.TrainStatus{
		Running:      status.Running,
		SpeedPercent: status.Power,
		Timestamp:    time.Now(),
	})
	m.notify(hub)
}

func (m *Monitor) recordSwitch(adv ble.Advertisement, data []byte) {
	status, err := pup.DecodeSwitchStatus(data)
	if err != nil {
		m.logger.Debug("undecodable switch status", "name", adv.LocalName, "error", err)
		return
	}
	if !m.accept(status.Channel) {
		return
	}

	// The position nibble covers all four ports whether or not the
	// connection nibble flags them; verification reads positions, the
	// connected map is informational.
	positions := make(map[device.Port]device.Position, len(device.AllPorts))
	connected := make(map[device.Port]bool, len(device.AllPorts))
	for _, port := range device.AllPorts {
		n := port.Number()
		if status.PortDiverging(n) {
			positions[port] = device.Diverging
		} else {
			positions[port] = device.Straight
		}
		connected[port] = status.PortConnected(n)
	}

	hub := m.registry.RecordSwitchStatus(status.Channel, adv.LocalName, adv.RSSI, device.SwitchStatus{
		Positions:     positions,
		PortConnected: connected,
		RawStatusByte: status.Positions,
		Timestamp:     time.Now(),
	})
	m.notify(hub)
}

func (m *Monitor) notify(hub device.Hub) {
	for _, fn := range m.observers {
		fn(hub)
	}
}

// kindFromName infers the hub class from the advertised local name.
func kindFromName(name string) (device.Kind, bool) {
	switch {
	case strings.Contains(name, switchNameMarker):
		return device.KindSwitch, true
	case strings.Contains(name, trainNameMarker):
		return device.KindTrain, true
	default:
		return "", false
	}
}
