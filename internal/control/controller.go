package control

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/pupworks/railyard-core/internal/device"
	"github.com/pupworks/railyard-core/internal/infrastructure/mqtt"
	"github.com/pupworks/railyard-core/internal/pipeline"
	"github.com/pupworks/railyard-core/internal/pup"
)

// Logger defines the logging interface used by the Controller.
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

// Resetter is the slice of the radio the controller uses for recovery.
type Resetter interface {
	Reset(ctx context.Context) error
}

// Publisher is the slice of the MQTT client used for state fan-out.
type Publisher interface {
	PublishRetained(topic string, payload []byte) error
}

// Telemetry is the slice of the InfluxDB client used for metrics.
type Telemetry interface {
	WriteTrainMetric(channel byte, speedPercent int8, running bool, rssi int16)
	WriteSwitchMetric(channel byte, port string, diverging bool, rssi int16)
	WriteReliabilityMetric(channel byte, port string, attempts, successes uint64)
}

// Deps are the collaborators a Controller is built from. Publisher and
// Telemetry are optional; nil disables the corresponding fan-out.
type Deps struct {
	Registry    *device.Registry
	Trains      *pipeline.TrainPipeline
	Switches    *pipeline.SwitchPipeline
	Reliability *pipeline.ReliabilityTracker
	Radio       Resetter
	Publisher   Publisher
	Telemetry   Telemetry

	// LivenessWindow bounds the connected-device views.
	LivenessWindow time.Duration

	Logger Logger
}

// SwitchOutcome is the blocking result of a switch command, including
// the port's reliability counters for the caller's response.
type SwitchOutcome struct {
	Success     bool
	Attempts    int
	Reliability pipeline.Stats
}

// Controller is the inbound API surface of the core. The HTTP layer,
// and nothing else, talks to the pipelines and registry through it.
type Controller struct {
	registry    *device.Registry
	trains      *pipeline.TrainPipeline
	switches    *pipeline.SwitchPipeline
	reliability *pipeline.ReliabilityTracker
	radio       Resetter
	publisher   Publisher
	telemetry   Telemetry

	livenessWindow time.Duration
	logger         Logger
	topics         mqtt.Topics
}

// New creates a Controller from its collaborators.
func New(deps Deps) *Controller {
	logger := deps.Logger
	if logger == nil {
		logger = noopLogger{}
	}
	window := deps.LivenessWindow
	if window <= 0 {
		window = 5 * time.Second
	}
	return &Controller{
		registry:       deps.Registry,
		trains:         deps.Trains,
		switches:       deps.Switches,
		reliability:    deps.Reliability,
		radio:          deps.Radio,
		publisher:      deps.Publisher,
		telemetry:      deps.Telemetry,
		livenessWindow: window,
		logger:         logger,
	}
}

// ClampPower folds any requested power into the protocol's ±100 range.
// Clamping is the caller's job, never the codec's.
func ClampPower(power int) int {
	if power > pup.MaxPower {
		return pup.MaxPower
	}
	if power < -pup.MaxPower {
		return -pup.MaxPower
	}
	return power
}

// SetTrainPower clamps and enqueues a power command for a train channel.
//
// The hub is marked active so the monitor densifies its status updates;
// the command itself is fire-and-forget.
//
// Returns:
//   - error: device.ErrUnknownDevice for unregistered channels,
//     device.ErrWrongKind when the channel is a switch hub
func (c *Controller) SetTrainPower(channel byte, power int) error {
	hub, err := c.registry.Get(channel)
	if err != nil {
		return err
	}
	if hub.Kind != device.KindTrain {
		return device.ErrWrongKind
	}

	clamped := ClampPower(power)
	frame, err := pup.EncodeTrainPower(channel, clamped)
	if err != nil {
		return err
	}

	if err := c.registry.MarkActive(channel); err != nil {
		return err
	}

	c.logger.Info("train power requested", "channel", channel, "power", clamped)
	return c.trains.Enqueue(pipeline.NewTrainCommand(channel, frame,
		fmt.Sprintf("power %d", clamped)))
}

// SetSelfDrive enqueues a self-drive toggle for a train channel and
// records the new mode in the registry, which is its only source of
// truth since hubs never advertise it.
func (c *Controller) SetSelfDrive(channel byte, enabled bool) error {
	hub, err := c.registry.Get(channel)
	if err != nil {
		return err
	}
	if hub.Kind != device.KindTrain {
		return device.ErrWrongKind
	}

	if err := c.registry.MarkActive(channel); err != nil {
		return err
	}

	label := "selfdrive off"
	if enabled {
		label = "selfdrive on"
	}
	c.logger.Info("self-drive requested", "channel", channel, "enabled", enabled)

	frame := pup.EncodeSelfDrive(channel, enabled)
	if err := c.trains.Enqueue(pipeline.NewTrainCommand(channel, frame, label)); err != nil {
		return err
	}

	return c.registry.SetSelfDrive(channel, enabled)
}

// SetSwitch submits a switch position command and blocks until the
// pipeline confirms it or exhausts its retries.
//
// Parameters:
//   - ctx: Bounds the wait; cancellation abandons the wait, not the command
//   - channel: Switch hub channel
//   - port: Port A..D
//   - position: Straight or Diverging
//
// Returns:
//   - SwitchOutcome: Result plus the port's reliability counters
//   - error: device.ErrUnknownDevice, device.ErrWrongKind, or a wrapped
//     pipeline error once retries are exhausted
func (c *Controller) SetSwitch(ctx context.Context, channel byte, port device.Port, position device.Position) (SwitchOutcome, error) {
	hub, err := c.registry.Get(channel)
	if err != nil {
		return SwitchOutcome{}, err
	}
	if hub.Kind != device.KindSwitch {
		return SwitchOutcome{}, device.ErrWrongKind
	}

	frame, err := pup.EncodeSwitchCommand(channel, port.Number(), int(position))
	if err != nil {
		return SwitchOutcome{}, err
	}

	if err := c.registry.MarkActive(channel); err != nil {
		return SwitchOutcome{}, err
	}

	c.logger.Info("switch position requested",
		"channel", channel, "port", port, "position", position.String())

	resultCh, err := c.switches.Submit(pipeline.NewSwitchCommand(channel, port, position, frame))
	if err != nil {
		return SwitchOutcome{}, err
	}

	select {
	case result := <-resultCh:
		outcome := SwitchOutcome{
			Success:     result.Success,
			Attempts:    result.Attempts,
			Reliability: c.reliability.Get(channel, port),
		}
		c.publishReliability(channel, port)
		return outcome, result.Err
	case <-ctx.Done():
		return SwitchOutcome{}, ctx.Err()
	}
}

// ConnectedTrains lists every train seen within the liveness window.
func (c *Controller) ConnectedTrains() map[byte]device.TrainView {
	return c.registry.ConnectedTrains(c.livenessWindow)
}

// ConnectedSwitches lists every switch hub seen within the liveness window.
func (c *Controller) ConnectedSwitches() map[byte]device.SwitchView {
	return c.registry.ConnectedSwitches(c.livenessWindow)
}

// SwitchReliability returns the per-port delivery counters for a channel.
func (c *Controller) SwitchReliability(channel byte) map[device.Port]pipeline.Stats {
	return c.reliability.Snapshot(channel)
}

// ResetAdapter power-cycles the BLE adapter. Failures are reported but
// the service keeps running; the monitor reacquires the radio by itself.
func (c *Controller) ResetAdapter(ctx context.Context) error {
	c.logger.Warn("adapter reset requested")
	return c.radio.Reset(ctx)
}

// StatusObserver returns the monitor observer that fans accepted hub
// updates out to MQTT and the telemetry sink.
func (c *Controller) StatusObserver() func(device.Hub) {
	return func(hub device.Hub) {
		switch hub.Kind {
		case device.KindTrain:
			c.publishTrain(hub)
		case device.KindSwitch:
			c.publishSwitch(hub)
		}
	}
}

func (c *Controller) publishTrain(hub device.Hub) {
	if hub.Train != nil && c.telemetry != nil {
		c.telemetry.WriteTrainMetric(hub.Channel, hub.Train.SpeedPercent, hub.Train.Running, hub.RSSI)
	}
	if c.publisher == nil {
		return
	}

	view := device.NewTrainView(hub)
	payload, err := json.Marshal(view)
	if err != nil {
		c.logger.Error("marshalling train state", "channel", hub.Channel, "error", err)
		return
	}
	if err := c.publisher.PublishRetained(c.topics.TrainState(hub.Channel), payload); err != nil {
		c.logger.Warn("publishing train state", "channel", hub.Channel, "error", err)
	}
}

func (c *Controller) publishSwitch(hub device.Hub) {
	if hub.Switch != nil && c.telemetry != nil {
		for port, pos := range hub.Switch.Positions {
			c.telemetry.WriteSwitchMetric(hub.Channel, string(port), pos == device.Diverging, hub.RSSI)
		}
	}
	if c.publisher == nil {
		return
	}

	view := device.NewSwitchView(hub)
	payload, err := json.Marshal(view)
	if err != nil {
		c.logger.Error("marshalling switch state", "channel", hub.Channel, "error", err)
		return
	}
	if err := c.publisher.PublishRetained(c.topics.SwitchState(hub.Channel), payload); err != nil {
		c.logger.Warn("publishing switch state", "channel", hub.Channel, "error", err)
	}
}

func (c *Controller) publishReliability(channel byte, port device.Port) {
	if c.telemetry == nil {
		return
	}
	stats := c.reliability.Get(channel, port)
	c.telemetry.WriteReliabilityMetric(channel, string(port), stats.Attempts, stats.Successes)
}
