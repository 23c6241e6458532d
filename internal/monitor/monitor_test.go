package monitor

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/pupworks/railyard-core/internal/ble"
	"github.com/pupworks/railyard-core/internal/device"
	"github.com/pupworks/railyard-core/internal/pup"
)

// fakeScanner scripts scan sessions. Each StartScan consumes the next
// outcome; the callback is captured so tests can inject advertisements.
type fakeScanner struct {
	mu        sync.Mutex
	starts    int
	stops     int
	callback  func(ble.Advertisement)
	outcomes  []error
	sessions  []chan error
	noOutcome bool
}

func (f *fakeScanner) StartScan(cb func(ble.Advertisement)) (<-chan error, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.starts++
	f.callback = cb

	ch := make(chan error, 1)
	f.sessions = append(f.sessions, ch)
	if !f.noOutcome && len(f.outcomes) > 0 {
		ch <- f.outcomes[0]
		f.outcomes = f.outcomes[1:]
	}
	return ch, nil
}

func (f *fakeScanner) StopScan() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stops++
	// Complete the newest session as a deliberate stop.
	if n := len(f.sessions); n > 0 {
		select {
		case f.sessions[n-1] <- nil:
		default:
		}
	}
	return nil
}

func (f *fakeScanner) startCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.starts
}

func (f *fakeScanner) inject(adv ble.Advertisement) {
	f.mu.Lock()
	cb := f.callback
	f.mu.Unlock()
	if cb != nil {
		cb(adv)
	}
}

// Status payloads as the hub firmware shapes them: the hub broadcasts on
// a status channel of its own (12 for trains, 11 for switches) and embeds
// the command channel it listens on at data[2].
func trainAdvertisement(channel byte, statusByte byte, power int8) ble.Advertisement {
	return ble.Advertisement{
		LocalName: "Train",
		RSSI:      -58,
		ManufacturerData: []ble.MfgData{
			{CompanyID: pup.ManufacturerID, Data: []byte{0x0C, 0x00, channel, statusByte, byte(power)}},
		},
	}
}

func switchAdvertisement(channel byte, positions, connected byte) ble.Advertisement {
	return ble.Advertisement{
		LocalName: "Technic Hub",
		RSSI:      -61,
		ManufacturerData: []ble.MfgData{
			{CompanyID: pup.ManufacturerID, Data: []byte{0x0B, 0x00, channel, positions, connected}},
		},
	}
}

func TestMonitor_RestartsFailedScan(t *testing.T) {
	scanner := &fakeScanner{outcomes: []error{
		errors.New("scan died"),
		errors.New("scan died again"),
	}}
	m := New(scanner, device.NewRegistry(), Options{RetryDelay: time.Millisecond})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		m.Run(ctx)
		close(done)
	}()

	deadline := time.After(2 * time.Second)
	for scanner.startCount() < 3 {
		select {
		case <-deadline:
			t.Fatalf("starts = %d, want at least 3 after two failures", scanner.startCount())
		case <-time.After(time.Millisecond):
		}
	}

	cancel()
	scanner.StopScan()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("monitor did not stop")
	}
}

func TestMonitor_CancelStopsWithoutRestart(t *testing.T) {
	scanner := &fakeScanner{noOutcome: true}
	m := New(scanner, device.NewRegistry(), Options{RetryDelay: time.Millisecond})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		m.Run(ctx)
		close(done)
	}()

	deadline := time.After(2 * time.Second)
	for scanner.startCount() < 1 {
		select {
		case <-deadline:
			t.Fatal("scan never started")
		case <-time.After(time.Millisecond):
		}
	}

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("monitor did not stop on cancel")
	}

	if got := scanner.startCount(); got != 1 {
		t.Errorf("starts = %d, want 1 (no restart after cancel)", got)
	}
}

func TestMonitor_RecordsTrainStatus(t *testing.T) {
	scanner := &fakeScanner{noOutcome: true}
	registry := device.NewRegistry()
	m := New(scanner, registry, Options{})

	var observed []device.Hub
	var obsMu sync.Mutex
	m.AddObserver(func(h device.Hub) {
		obsMu.Lock()
		observed = append(observed, h)
		obsMu.Unlock()
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go m.Run(ctx)

	waitForCallback(t, scanner)
	scanner.inject(trainAdvertisement(21, 0x01, -40))

	hub, err := registry.Get(21)
	if err != nil {
		t.Fatalf("hub not registered: %v", err)
	}
	if hub.Kind != device.KindTrain {
		t.Errorf("kind = %v, want train", hub.Kind)
	}
	if hub.Train == nil || hub.Train.SpeedPercent != -40 || !hub.Train.Running {
		t.Errorf("train status = %+v", hub.Train)
	}
	if hub.RSSI != -58 {
		t.Errorf("rssi = %d, want -58", hub.RSSI)
	}

	obsMu.Lock()
	defer obsMu.Unlock()
	if len(observed) != 1 || observed[0].Channel != 21 {
		t.Errorf("observed = %+v, want one snapshot for channel 21", observed)
	}
}

func TestMonitor_RecordsSwitchStatus(t *testing.T) {
	scanner := &fakeScanner{noOutcome: true}
	registry := device.NewRegistry()
	m := New(scanner, registry, Options{})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go m.Run(ctx)

	waitForCallback(t, scanner)
	// Positions 0b0101 (B, D diverging), connected 0b0011 (C, D).
	scanner.inject(switchAdvertisement(1, 0x05, 0x03))

	hub, err := registry.Get(1)
	if err != nil {
		t.Fatalf("hub not registered: %v", err)
	}
	if hub.Kind != device.KindSwitch {
		t.Errorf("kind = %v, want switch", hub.Kind)
	}
	if hub.Switch == nil {
		t.Fatal("switch status missing")
	}
	if !hub.Switch.PortConnected[device.PortC] || !hub.Switch.PortConnected[device.PortD] {
		t.Errorf("connected = %v, want C and D", hub.Switch.PortConnected)
	}
	if hub.Switch.PortConnected[device.PortA] {
		t.Error("port A should not be connected")
	}
	if hub.Switch.Positions[device.PortD] != device.Diverging {
		t.Errorf("port D = %v, want diverging", hub.Switch.Positions[device.PortD])
	}
	if hub.Switch.Positions[device.PortC] != device.Straight {
		t.Errorf("port C = %v, want straight", hub.Switch.Positions[device.PortC])
	}
}

func TestMonitor_RecordsPositionsForUnattachedPorts(t *testing.T) {
	scanner := &fakeScanner{noOutcome: true}
	registry := device.NewRegistry()
	m := New(scanner, registry, Options{})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go m.Run(ctx)
	waitForCallback(t, scanner)

	// Port B reports diverging while the connection nibble only flags
	// C and D. The position must land in the registry regardless, or a
	// delivered command could never verify.
	scanner.inject(switchAdvertisement(2, 0x04, 0x03))

	pos, ok := registry.SwitchPosition(2, device.PortB)
	if !ok {
		t.Fatal("no position recorded for port B")
	}
	if pos != device.Diverging {
		t.Errorf("port B = %v, want diverging", pos)
	}

	hub, err := registry.Get(2)
	if err != nil {
		t.Fatalf("hub not registered: %v", err)
	}
	if hub.Switch.PortConnected[device.PortB] {
		t.Error("port B should still report unattached")
	}
}

func TestMonitor_IgnoresForeignAdvertisements(t *testing.T) {
	scanner := &fakeScanner{noOutcome: true}
	registry := device.NewRegistry()
	m := New(scanner, registry, Options{})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go m.Run(ctx)
	waitForCallback(t, scanner)

	// Wrong name marker.
	scanner.inject(ble.Advertisement{
		LocalName: "Fitness Tracker",
		ManufacturerData: []ble.MfgData{
			{CompanyID: pup.ManufacturerID, Data: []byte{9, 1, 50}},
		},
	})
	// Right name, wrong manufacturer.
	scanner.inject(ble.Advertisement{
		LocalName: "Train",
		ManufacturerData: []ble.MfgData{
			{CompanyID: 76, Data: []byte{9, 1, 50}},
		},
	})

	if _, err := registry.Get(9); !errors.Is(err, device.ErrUnknownDevice) {
		t.Errorf("channel 9 registered from foreign advertisement, err = %v", err)
	}
}

func TestMonitor_ThrottlesIdleUpdates(t *testing.T) {
	scanner := &fakeScanner{noOutcome: true}
	registry := device.NewRegistry()
	m := New(scanner, registry, Options{
		StatusInterval:       time.Hour,
		ActiveStatusInterval: time.Millisecond,
	})

	var count int
	var obsMu sync.Mutex
	m.AddObserver(func(device.Hub) {
		obsMu.Lock()
		count++
		obsMu.Unlock()
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go m.Run(ctx)
	waitForCallback(t, scanner)

	scanner.inject(trainAdvertisement(5, 1, 10))
	scanner.inject(trainAdvertisement(5, 1, 20))
	scanner.inject(trainAdvertisement(5, 1, 30))

	obsMu.Lock()
	idle := count
	obsMu.Unlock()
	if idle != 1 {
		t.Fatalf("accepted = %d, want 1 while idle", idle)
	}

	// An active hub accepts denser updates.
	if err := registry.MarkActive(5); err != nil {
		t.Fatalf("MarkActive: %v", err)
	}
	time.Sleep(5 * time.Millisecond)
	scanner.inject(trainAdvertisement(5, 1, 40))

	obsMu.Lock()
	active := count
	obsMu.Unlock()
	if active != 2 {
		t.Errorf("accepted = %d, want 2 after activation", active)
	}
}

func waitForCallback(t *testing.T, scanner *fakeScanner) {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		scanner.mu.Lock()
		ready := scanner.callback != nil
		scanner.mu.Unlock()
		if ready {
			return
		}
		select {
		case <-deadline:
			t.Fatal("scan callback never registered")
		case <-time.After(time.Millisecond):
		}
	}
}
