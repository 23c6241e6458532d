package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration structure for Railyard Core.
// All configuration is loaded from YAML and can be overridden by environment variables.
type Config struct {
	Site      SiteConfig      `yaml:"site"`
	MQTT      MQTTConfig      `yaml:"mqtt"`
	InfluxDB  InfluxDBConfig  `yaml:"influxdb"`
	API       APIConfig       `yaml:"api"`
	WebSocket WebSocketConfig `yaml:"websocket"`
	Logging   LoggingConfig   `yaml:"logging"`
	Security  SecurityConfig  `yaml:"security"`
	Bluetooth BluetoothConfig `yaml:"bluetooth"`
	Timing    TimingConfig    `yaml:"timing"`
}

// SiteConfig contains layout-specific information.
type SiteConfig struct {
	ID   string `yaml:"id"`
	Name string `yaml:"name"`
}

// MQTTConfig contains MQTT broker connection settings.
type MQTTConfig struct {
	Enabled   bool                `yaml:"enabled"`
	Broker    MQTTBrokerConfig    `yaml:"broker"`
	Auth      MQTTAuthConfig      `yaml:"auth"`
	QoS       int                 `yaml:"qos"`
	Reconnect MQTTReconnectConfig `yaml:"reconnect"`
}

// MQTTBrokerConfig contains MQTT broker connection details.
type MQTTBrokerConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	TLS      bool   `yaml:"tls"`
	ClientID string `yaml:"client_id"`
}

// MQTTAuthConfig contains MQTT authentication credentials.
type MQTTAuthConfig struct {
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// MQTTReconnectConfig contains MQTT reconnection settings (seconds).
type MQTTReconnectConfig struct {
	InitialDelay int `yaml:"initial_delay"`
	MaxDelay     int `yaml:"max_delay"`
}

// InfluxDBConfig contains InfluxDB telemetry settings.
type InfluxDBConfig struct {
	Enabled       bool   `yaml:"enabled"`
	URL           string `yaml:"url"`
	Token         string `yaml:"token"`
	Org           string `yaml:"org"`
	Bucket        string `yaml:"bucket"`
	BatchSize     int    `yaml:"batch_size"`
	FlushInterval int    `yaml:"flush_interval"`
}

// APIConfig contains HTTP API server settings.
type APIConfig struct {
	Host     string           `yaml:"host"`
	Port     int              `yaml:"port"`
	TLS      TLSConfig        `yaml:"tls"`
	Timeouts APITimeoutConfig `yaml:"timeouts"`
	CORS     CORSConfig       `yaml:"cors"`
}

// TLSConfig contains TLS certificate settings.
type TLSConfig struct {
	Enabled  bool   `yaml:"enabled"`
	CertFile string `yaml:"cert_file"`
	KeyFile  string `yaml:"key_file"`
}

// APITimeoutConfig contains HTTP timeout settings (seconds).
type APITimeoutConfig struct {
	Read  int `yaml:"read"`
	Write int `yaml:"write"`
	Idle  int `yaml:"idle"`
}

// CORSConfig contains Cross-Origin Resource Sharing settings.
type CORSConfig struct {
	AllowedOrigins []string `yaml:"allowed_origins"`
	AllowedMethods []string `yaml:"allowed_methods"`
	AllowedHeaders []string `yaml:"allowed_headers"`
}

// WebSocketConfig contains WebSocket server settings.
type WebSocketConfig struct {
	Path           string `yaml:"path"`
	MaxMessageSize int    `yaml:"max_message_size"`
	PingInterval   int    `yaml:"ping_interval"`
	PongTimeout    int    `yaml:"pong_timeout"`
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// SecurityConfig contains API authentication settings.
//
// Authentication is static API keys presented in the X-API-Key header.
// There are no users or sessions; hubs are anonymous broadcast devices.
type SecurityConfig struct {
	RequireAuth bool     `yaml:"require_auth"`
	APIKeys     []string `yaml:"api_keys"`
}

// BluetoothConfig contains radio access layer settings.
type BluetoothConfig struct {
	// ResetOnStartup power-cycles the adapter before the first scan.
	ResetOnStartup bool `yaml:"reset_on_startup"`

	// SettleDelay is the pause after stopping a scan or resetting the
	// adapter before the next radio operation. BlueZ needs the gap.
	SettleDelay time.Duration `yaml:"settle_delay"`

	// BroadcastRepeats is how many enable/payload/disable cycles a single
	// transmit performs. The medium is lossy; repetition is the only
	// delivery mechanism there is.
	BroadcastRepeats int `yaml:"broadcast_repeats"`

	// BroadcastDwell is how long each advertising cycle stays on air.
	BroadcastDwell time.Duration `yaml:"broadcast_dwell"`

	// TrainAdvertiseInterval is the advertising interval for train command
	// bursts. Short, so live speed changes feel immediate.
	TrainAdvertiseInterval time.Duration `yaml:"train_advertise_interval"`

	// SwitchAdvertiseInterval is the advertising interval for switch
	// command bursts. Longer than the train interval; switch hubs observe
	// less often and miss short bursts.
	SwitchAdvertiseInterval time.Duration `yaml:"switch_advertise_interval"`
}

// TimingConfig contains liveness and retry timing settings.
type TimingConfig struct {
	// LivenessWindow is how long after the last advertisement a hub still
	// counts as connected.
	LivenessWindow time.Duration `yaml:"liveness_window"`

	// ActiveWindow is how long a hub stays marked active after a command.
	ActiveWindow time.Duration `yaml:"active_window"`

	// StatusInterval is the minimum gap between accepted status updates
	// for an idle hub.
	StatusInterval time.Duration `yaml:"status_interval"`

	// ActiveStatusInterval is the minimum gap for hubs marked active.
	ActiveStatusInterval time.Duration `yaml:"active_status_interval"`

	// CommandRetryDelay is the base inter-attempt backoff for switch
	// commands, multiplied by the attempt index.
	CommandRetryDelay time.Duration `yaml:"command_retry_delay"`

	// MaxCommandRetries is the number of attempts before a switch command
	// is abandoned.
	MaxCommandRetries int `yaml:"max_command_retries"`

	// VerifyTimeout is how long each attempt waits for the registry to
	// confirm the commanded switch position.
	VerifyTimeout time.Duration `yaml:"verify_timeout"`

	// VerifyPollInterval is how often the registry is checked while
	// verifying.
	VerifyPollInterval time.Duration `yaml:"verify_poll_interval"`

	// MonitorRetryDelay is the pause before restarting a failed scan.
	MonitorRetryDelay time.Duration `yaml:"monitor_retry_delay"`
}

// Load reads configuration from a YAML file and applies environment variable overrides.
//
// The configuration loading order is:
//  1. Default values (hardcoded)
//  2. YAML file values (override defaults)
//  3. Environment variables (override file values)
//
// Environment variables follow the pattern: RAILYARD_SECTION_KEY
// For example: RAILYARD_MQTT_HOST, RAILYARD_API_PORT
//
// Parameters:
//   - path: Path to the YAML configuration file
//
// Returns:
//   - *Config: Loaded and validated configuration
//   - error: If file cannot be read, parsed, or validation fails
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// Default returns a Config with sensible defaults.
//
// The timing defaults mirror the values the hub firmware was tuned
// against; change them only with a hub on the bench.
func Default() *Config {
	return &Config{
		Site: SiteConfig{
			ID:   "layout-001",
			Name: "Railyard",
		},
		MQTT: MQTTConfig{
			Enabled: false,
			Broker: MQTTBrokerConfig{
				Host:     "localhost",
				Port:     1883,
				ClientID: "railyard-core",
			},
			QoS: 1,
			Reconnect: MQTTReconnectConfig{
				InitialDelay: 1,
				MaxDelay:     60,
			},
		},
		API: APIConfig{
			Host: "0.0.0.0",
			Port: 8000,
			Timeouts: APITimeoutConfig{
				Read:  30,
				Write: 30,
				Idle:  60,
			},
		},
		WebSocket: WebSocketConfig{
			Path:           "/ws",
			MaxMessageSize: 8192,
			PingInterval:   30,
			PongTimeout:    10,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
		Security: SecurityConfig{
			RequireAuth: true,
		},
		Bluetooth: BluetoothConfig{
			ResetOnStartup:          true,
			SettleDelay:             time.Second,
			BroadcastRepeats:        2,
			BroadcastDwell:          200 * time.Millisecond,
			TrainAdvertiseInterval:  50 * time.Millisecond,
			SwitchAdvertiseInterval: 160 * time.Millisecond,
		},
		Timing: TimingConfig{
			LivenessWindow:       5 * time.Second,
			ActiveWindow:         5 * time.Second,
			StatusInterval:       500 * time.Millisecond,
			ActiveStatusInterval: 100 * time.Millisecond,
			CommandRetryDelay:    500 * time.Millisecond,
			MaxCommandRetries:    3,
			VerifyTimeout:        2 * time.Second,
			VerifyPollInterval:   100 * time.Millisecond,
			MonitorRetryDelay:    time.Second,
		},
	}
}

// applyEnvOverrides applies environment variable overrides to the configuration.
// Environment variables follow the pattern: RAILYARD_SECTION_KEY
func applyEnvOverrides(cfg *Config) {
	// MQTT
	if v := os.Getenv("RAILYARD_MQTT_HOST"); v != "" {
		cfg.MQTT.Broker.Host = v
	}
	if v := os.Getenv("RAILYARD_MQTT_USERNAME"); v != "" {
		cfg.MQTT.Auth.Username = v
	}
	if v := os.Getenv("RAILYARD_MQTT_PASSWORD"); v != "" {
		cfg.MQTT.Auth.Password = v
	}

	// API
	if v := os.Getenv("RAILYARD_API_HOST"); v != "" {
		cfg.API.Host = v
	}
	if v := os.Getenv("RAILYARD_API_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.API.Port = port
		}
	}

	// InfluxDB
	if v := os.Getenv("RAILYARD_INFLUXDB_TOKEN"); v != "" {
		cfg.InfluxDB.Token = v
	}

	// Security — comma-separated key list (IMPORTANT: set in production)
	if v := os.Getenv("RAILYARD_API_KEYS"); v != "" {
		keys := make([]string, 0)
		for _, key := range strings.Split(v, ",") {
			if key = strings.TrimSpace(key); key != "" {
				keys = append(keys, key)
			}
		}
		cfg.Security.APIKeys = keys
	}
}

// Validate checks the configuration for errors and security issues.
//
// Returns:
//   - error: Description of validation failure, or nil if valid
func (c *Config) Validate() error {
	var errs []string

	if c.Site.ID == "" {
		errs = append(errs, "site.id is required")
	}

	if c.API.Host == "" {
		errs = append(errs, "api.host is required")
	}
	if c.API.Port <= 0 || c.API.Port > 65535 {
		errs = append(errs, fmt.Sprintf("api.port must be 1-65535, got %d", c.API.Port))
	}
	if c.API.TLS.Enabled && (c.API.TLS.CertFile == "" || c.API.TLS.KeyFile == "") {
		errs = append(errs, "api.tls.cert_file and api.tls.key_file are required when TLS is enabled")
	}

	if c.MQTT.Enabled {
		if c.MQTT.Broker.Host == "" {
			errs = append(errs, "mqtt.broker.host is required when MQTT is enabled")
		}
		if c.MQTT.QoS < 0 || c.MQTT.QoS > 2 {
			errs = append(errs, fmt.Sprintf("mqtt.qos must be 0-2, got %d", c.MQTT.QoS))
		}
	}

	if c.InfluxDB.Enabled {
		if c.InfluxDB.URL == "" {
			errs = append(errs, "influxdb.url is required when InfluxDB is enabled")
		}
		if c.InfluxDB.Bucket == "" {
			errs = append(errs, "influxdb.bucket is required when InfluxDB is enabled")
		}
	}

	if c.Security.RequireAuth && len(c.Security.APIKeys) == 0 {
		errs = append(errs, "security.api_keys must be set when security.require_auth is true (or set RAILYARD_API_KEYS)")
	}

	if c.Bluetooth.BroadcastRepeats < 1 {
		errs = append(errs, "bluetooth.broadcast_repeats must be at least 1")
	}

	if c.Timing.LivenessWindow <= 0 {
		errs = append(errs, "timing.liveness_window must be positive")
	}
	if c.Timing.MaxCommandRetries < 1 {
		errs = append(errs, "timing.max_command_retries must be at least 1")
	}
	if c.Timing.VerifyPollInterval <= 0 || c.Timing.VerifyTimeout < c.Timing.VerifyPollInterval {
		errs = append(errs, "timing.verify_timeout must be at least timing.verify_poll_interval")
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed: %s", strings.Join(errs, "; "))
	}
	return nil
}
