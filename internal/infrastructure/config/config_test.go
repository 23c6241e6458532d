package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("writing config: %v", err)
	}
	return path
}

func TestLoad_Defaults(t *testing.T) {
	// Minimal file; everything else should come from defaults.
	path := writeConfig(t, `
security:
  require_auth: false
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() unexpected error: %v", err)
	}

	if cfg.API.Port != 8000 {
		t.Errorf("API.Port = %d, want 8000", cfg.API.Port)
	}
	if cfg.Timing.LivenessWindow != 5*time.Second {
		t.Errorf("LivenessWindow = %v, want 5s", cfg.Timing.LivenessWindow)
	}
	if cfg.Timing.MaxCommandRetries != 3 {
		t.Errorf("MaxCommandRetries = %d, want 3", cfg.Timing.MaxCommandRetries)
	}
	if cfg.Bluetooth.BroadcastRepeats != 2 {
		t.Errorf("BroadcastRepeats = %d, want 2", cfg.Bluetooth.BroadcastRepeats)
	}
	if cfg.MQTT.Enabled {
		t.Error("MQTT should be disabled by default")
	}
}

func TestLoad_FileOverridesDefaults(t *testing.T) {
	path := writeConfig(t, `
api:
  port: 9090
timing:
  liveness_window: 10s
  active_status_interval: 50ms
security:
  require_auth: false
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() unexpected error: %v", err)
	}

	if cfg.API.Port != 9090 {
		t.Errorf("API.Port = %d, want 9090", cfg.API.Port)
	}
	if cfg.Timing.LivenessWindow != 10*time.Second {
		t.Errorf("LivenessWindow = %v, want 10s", cfg.Timing.LivenessWindow)
	}
	if cfg.Timing.ActiveStatusInterval != 50*time.Millisecond {
		t.Errorf("ActiveStatusInterval = %v, want 50ms", cfg.Timing.ActiveStatusInterval)
	}
	// Untouched sections keep defaults.
	if cfg.Timing.VerifyTimeout != 2*time.Second {
		t.Errorf("VerifyTimeout = %v, want 2s", cfg.Timing.VerifyTimeout)
	}
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	t.Setenv("RAILYARD_MQTT_HOST", "broker.example")
	t.Setenv("RAILYARD_API_PORT", "7070")
	t.Setenv("RAILYARD_API_KEYS", "key-one, key-two,")

	path := writeConfig(t, `
api:
  port: 9090
mqtt:
  broker:
    host: from-file
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() unexpected error: %v", err)
	}

	if cfg.MQTT.Broker.Host != "broker.example" {
		t.Errorf("MQTT host = %q, want broker.example", cfg.MQTT.Broker.Host)
	}
	if cfg.API.Port != 7070 {
		t.Errorf("API.Port = %d, want 7070", cfg.API.Port)
	}
	if len(cfg.Security.APIKeys) != 2 || cfg.Security.APIKeys[0] != "key-one" || cfg.Security.APIKeys[1] != "key-two" {
		t.Errorf("APIKeys = %v, want [key-one key-two]", cfg.Security.APIKeys)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	if _, err := Load("/nonexistent/config.yaml"); err == nil {
		t.Fatal("Load() should fail for a missing file")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{
			name:   "default with auth disabled is valid",
			mutate: func(c *Config) { c.Security.RequireAuth = false },
		},
		{
			name:   "default with keys is valid",
			mutate: func(c *Config) { c.Security.APIKeys = []string{"k"} },
		},
		{
			name: "auth required without keys",
			mutate: func(c *Config) {
				c.Security.RequireAuth = true
				c.Security.APIKeys = nil
			},
			wantErr: true,
		},
		{
			name: "empty api host",
			mutate: func(c *Config) {
				c.Security.RequireAuth = false
				c.API.Host = ""
			},
			wantErr: true,
		},
		{
			name: "zero liveness window",
			mutate: func(c *Config) {
				c.Security.RequireAuth = false
				c.Timing.LivenessWindow = 0
			},
			wantErr: true,
		},
		{
			name: "zero retries",
			mutate: func(c *Config) {
				c.Security.RequireAuth = false
				c.Timing.MaxCommandRetries = 0
			},
			wantErr: true,
		},
		{
			name: "verify timeout shorter than poll",
			mutate: func(c *Config) {
				c.Security.RequireAuth = false
				c.Timing.VerifyTimeout = 50 * time.Millisecond
			},
			wantErr: true,
		},
		{
			name: "mqtt enabled without host",
			mutate: func(c *Config) {
				c.Security.RequireAuth = false
				c.MQTT.Enabled = true
				c.MQTT.Broker.Host = ""
			},
			wantErr: true,
		},
		{
			name: "influx enabled without url",
			mutate: func(c *Config) {
				c.Security.RequireAuth = false
				c.InfluxDB.Enabled = true
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr && err == nil {
				t.Error("Validate() expected error, got nil")
			}
			if !tt.wantErr && err != nil {
				t.Errorf("Validate() unexpected error: %v", err)
			}
		})
	}
}
