// Railyard Core - connectionless control for LEGO Powered-Up layouts.
//
// This is the main entry point for the Railyard Core service. It drives
// train and switch hubs purely over BLE advertisements: commands go out
// as manufacturer-data broadcasts, hub state comes back the same way.
// No connections are ever established; reliability comes from repetition
// and verification against observed status.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/pupworks/railyard-core/internal/api"
	"github.com/pupworks/railyard-core/internal/ble"
	"github.com/pupworks/railyard-core/internal/control"
	"github.com/pupworks/railyard-core/internal/device"
	"github.com/pupworks/railyard-core/internal/infrastructure/config"
	"github.com/pupworks/railyard-core/internal/infrastructure/influxdb"
	"github.com/pupworks/railyard-core/internal/infrastructure/logging"
	"github.com/pupworks/railyard-core/internal/infrastructure/mqtt"
	"github.com/pupworks/railyard-core/internal/monitor"
	"github.com/pupworks/railyard-core/internal/pipeline"
)

// Version information - set at build time via ldflags
// Example: go build -ldflags "-X main.version=1.0.0 -X main.commit=abc123"
var (
	version = "dev"     // Semantic version (e.g., "1.0.0")
	commit  = "unknown" // Git commit hash
	date    = "unknown" // Build date
)

// Default configuration file path
const defaultConfigPath = "configs/config.yaml"

func main() {
	// Cancel on interrupt signals (Ctrl+C, SIGTERM) for graceful shutdown
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run is the actual application logic, separated from main for testability.
// Returning an error allows main to handle exit codes consistently.
//
// Parameters:
//   - ctx: Context for cancellation and shutdown signals
//
// Returns:
//   - error: nil on clean shutdown, or error describing failure
func run(ctx context.Context) error {
	// Use default logger until config is loaded
	log := logging.Default()
	log.Info("starting Railyard Core",
		"version", version,
		"commit", commit,
		"build_date", date,
	)

	// Load configuration
	configPath := getConfigPath()
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	log.Info("configuration loaded", "path", configPath)

	// Reinitialise logger with config settings
	log = logging.New(cfg.Logging, version)
	log.Info("logger initialised",
		"level", cfg.Logging.Level,
		"format", cfg.Logging.Format,
	)

	// Connect to MQTT broker (optional). The railway runs without it;
	// only retained state fan-out is lost.
	var mqttClient *mqtt.Client
	if cfg.MQTT.Enabled {
		mqttClient, err = mqtt.Connect(cfg.MQTT)
		if err != nil {
			log.Warn("MQTT unavailable, continuing without state fan-out", "error", err)
		} else {
			defer func() {
				log.Info("disconnecting from MQTT")
				if closeErr := mqttClient.Close(); closeErr != nil {
					log.Error("error closing MQTT", "error", closeErr)
				}
			}()
			log.Info("MQTT connected",
				"broker", fmt.Sprintf("%s:%d", cfg.MQTT.Broker.Host, cfg.MQTT.Broker.Port),
				"client_id", cfg.MQTT.Broker.ClientID,
			)
		}
	} else {
		log.Info("MQTT disabled")
	}

	// Connect to InfluxDB (optional)
	var influxClient *influxdb.Client
	if cfg.InfluxDB.Enabled {
		influxClient, err = influxdb.Connect(cfg.InfluxDB)
		if err != nil {
			log.Warn("InfluxDB unavailable, continuing without telemetry", "error", err)
			influxClient = nil
		} else {
			defer func() {
				log.Info("closing InfluxDB connection")
				if closeErr := influxClient.Close(); closeErr != nil {
					log.Error("error closing InfluxDB", "error", closeErr)
				}
			}()
			log.Info("InfluxDB connected",
				"url", cfg.InfluxDB.URL,
				"org", cfg.InfluxDB.Org,
				"bucket", cfg.InfluxDB.Bucket,
			)
			influxClient.SetOnError(func(err error) {
				log.Error("InfluxDB write error", "error", err)
			})
		}
	} else {
		log.Info("InfluxDB disabled")
	}

	// Bring up the radio
	adapter, err := ble.NewDefaultAdapter()
	if err != nil {
		return fmt.Errorf("enabling BLE adapter: %w", err)
	}
	radio := ble.NewRadio(adapter, ble.Options{
		SettleDelay: cfg.Bluetooth.SettleDelay,
		Logger:      log.With("component", "ble"),
	})

	if cfg.Bluetooth.ResetOnStartup {
		log.Info("power-cycling BLE adapter")
		if resetErr := radio.Reset(ctx); resetErr != nil {
			log.Warn("adapter reset failed, continuing anyway", "error", resetErr)
		}
	}

	// Device registry
	registry := device.NewRegistry()
	registry.SetLogger(log.With("component", "registry"))
	registry.SetActiveWindow(cfg.Timing.ActiveWindow)

	// Command pipelines
	reliability := pipeline.NewReliabilityTracker()

	trains := pipeline.NewTrainPipeline(radio, pipeline.TrainOptions{
		Broadcast: ble.BroadcastOptions{
			Repeats:  cfg.Bluetooth.BroadcastRepeats,
			Dwell:    cfg.Bluetooth.BroadcastDwell,
			Interval: cfg.Bluetooth.TrainAdvertiseInterval,
		},
		Logger: log.With("component", "train-pipeline"),
	})
	switches := pipeline.NewSwitchPipeline(radio, registry, reliability, pipeline.SwitchOptions{
		MaxAttempts:   cfg.Timing.MaxCommandRetries,
		RetryDelay:    cfg.Timing.CommandRetryDelay,
		VerifyTimeout: cfg.Timing.VerifyTimeout,
		VerifyPoll:    cfg.Timing.VerifyPollInterval,
		Broadcast: ble.BroadcastOptions{
			Repeats:  cfg.Bluetooth.BroadcastRepeats,
			Dwell:    cfg.Bluetooth.BroadcastDwell,
			Interval: cfg.Bluetooth.SwitchAdvertiseInterval,
		},
		Logger: log.With("component", "switch-pipeline"),
	})

	trains.Start(ctx)
	defer trains.Stop()
	switches.Start(ctx)
	defer switches.Stop()
	log.Info("command pipelines started")

	// Controller facade. Interface fields stay nil when a sink is absent.
	deps := control.Deps{
		Registry:       registry,
		Trains:         trains,
		Switches:       switches,
		Reliability:    reliability,
		Radio:          radio,
		LivenessWindow: cfg.Timing.LivenessWindow,
		Logger:         log.With("component", "control"),
	}
	if mqttClient != nil {
		deps.Publisher = mqttClient
	}
	if influxClient != nil {
		deps.Telemetry = influxClient
	}
	controller := control.New(deps)

	// API server
	apiServer, err := api.New(api.Deps{
		Config:     cfg.API,
		WS:         cfg.WebSocket,
		Security:   cfg.Security,
		Logger:     log.With("component", "api"),
		Controller: controller,
		Version:    version,
	})
	if err != nil {
		return fmt.Errorf("creating API server: %w", err)
	}
	if err := apiServer.Start(ctx); err != nil {
		return fmt.Errorf("starting API server: %w", err)
	}
	defer func() {
		if closeErr := apiServer.Close(); closeErr != nil {
			log.Error("error closing API server", "error", closeErr)
		}
	}()
	log.Info("API server started", "host", cfg.API.Host, "port", cfg.API.Port)

	// Advertisement monitor, feeding the registry and the fan-out sinks
	mon := monitor.New(radio, registry, monitor.Options{
		RetryDelay:           cfg.Timing.MonitorRetryDelay,
		StatusInterval:       cfg.Timing.StatusInterval,
		ActiveStatusInterval: cfg.Timing.ActiveStatusInterval,
		Logger:               log.With("component", "monitor"),
	})
	mon.AddObserver(controller.StatusObserver())
	mon.AddObserver(apiServer.StateObserver())

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		mon.Run(ctx)
	}()
	log.Info("initialisation complete, waiting for shutdown signal")

	// Wait for shutdown signal
	<-ctx.Done()

	log.Info("shutdown signal received, cleaning up")
	wg.Wait()

	// Deferred Close() calls will run in reverse order:
	// 1. API server
	// 2. Pipelines
	// 3. InfluxDB (if enabled)
	// 4. MQTT (if enabled)

	log.Info("Railyard Core stopped")
	return nil
}

// getConfigPath returns the configuration file path.
// Uses RAILYARD_CONFIG environment variable if set, otherwise default.
func getConfigPath() string {
	if path := os.Getenv("RAILYARD_CONFIG"); path != "" {
		return path
	}
	return defaultConfigPath
}
