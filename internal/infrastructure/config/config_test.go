package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoad_ValidConfig(t *testing.T) {
	content := `
device:
  name: "bench-esp32"
  sensor_interval: 2000
  led_enabled: false
  reboot_delay: 250ms
api:
  host: "127.0.0.1"
  port: 8080
database:
  enabled: true
  path: "/tmp/test.db"
reporter:
  thing_name: "bench-thing"
  interval: 2s
`
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")
	if err := os.WriteFile(configPath, []byte(content), 0600); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Device.Name != "bench-esp32" {
		t.Errorf("Device.Name = %q, want %q", cfg.Device.Name, "bench-esp32")
	}
	if cfg.Device.SensorInterval != 2000 {
		t.Errorf("Device.SensorInterval = %d, want 2000", cfg.Device.SensorInterval)
	}
	if cfg.Device.LEDEnabled {
		t.Error("Device.LEDEnabled = true, want false")
	}
	if cfg.Device.RebootDelay != 250*time.Millisecond {
		t.Errorf("Device.RebootDelay = %v, want 250ms", cfg.Device.RebootDelay)
	}
	if cfg.API.Addr() != "127.0.0.1:8080" {
		t.Errorf("API.Addr() = %q, want %q", cfg.API.Addr(), "127.0.0.1:8080")
	}
	if cfg.Reporter.ThingName != "bench-thing" {
		t.Errorf("Reporter.ThingName = %q, want %q", cfg.Reporter.ThingName, "bench-thing")
	}
	if cfg.Reporter.Interval != 2*time.Second {
		t.Errorf("Reporter.Interval = %v, want 2s", cfg.Reporter.Interval)
	}
	// Untouched sections keep their defaults.
	if cfg.Reporter.Server != "dweet.io" {
		t.Errorf("Reporter.Server = %q, want dweet.io", cfg.Reporter.Server)
	}
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Device.Name != "ESP32-Simulator" {
		t.Errorf("Device.Name = %q, want default", cfg.Device.Name)
	}
	if cfg.API.Port != 80 {
		t.Errorf("API.Port = %d, want 80", cfg.API.Port)
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")
	if err := os.WriteFile(configPath, []byte("invalid: [yaml: content"), 0600); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	if _, err := Load(configPath); err == nil {
		t.Error("Load() expected error for invalid YAML, got nil")
	}
}

func TestLoad_ValidationFailure(t *testing.T) {
	content := `
device:
  name: ""
`
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")
	if err := os.WriteFile(configPath, []byte(content), 0600); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	if _, err := Load(configPath); err == nil {
		t.Error("Load() expected validation error for empty device.name, got nil")
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("ESP32SIM_DEVICE_NAME", "env-device")
	t.Setenv("ESP32SIM_API_PORT", "9090")
	t.Setenv("ESP32SIM_REPORTER_THING", "env-thing")

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Device.Name != "env-device" {
		t.Errorf("Device.Name = %q, want env-device", cfg.Device.Name)
	}
	if cfg.API.Port != 9090 {
		t.Errorf("API.Port = %d, want 9090", cfg.API.Port)
	}
	if cfg.Reporter.ThingName != "env-thing" {
		t.Errorf("Reporter.ThingName = %q, want env-thing", cfg.Reporter.ThingName)
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr bool
	}{
		{
			name:    "defaults are valid",
			mutate:  func(*Config) {},
			wantErr: false,
		},
		{
			name:    "missing device name",
			mutate:  func(c *Config) { c.Device.Name = "" },
			wantErr: true,
		},
		{
			name:    "port out of range",
			mutate:  func(c *Config) { c.API.Port = 70000 },
			wantErr: true,
		},
		{
			name:    "invalid QoS",
			mutate:  func(c *Config) { c.MQTT.QoS = 3 },
			wantErr: true,
		},
		{
			name: "database enabled without path",
			mutate: func(c *Config) {
				c.Database.Enabled = true
				c.Database.Path = ""
			},
			wantErr: true,
		},
		{
			name:    "influxdb enabled without url",
			mutate:  func(c *Config) { c.InfluxDB.Enabled = true },
			wantErr: true,
		},
		{
			name: "reporter bounds inverted",
			mutate: func(c *Config) {
				c.Reporter.MinValue = 40
				c.Reporter.MaxValue = 20
			},
			wantErr: true,
		},
		{
			name:    "reporter zero interval",
			mutate:  func(c *Config) { c.Reporter.Interval = 0 },
			wantErr: true,
		},
		{
			name:    "short token secret",
			mutate:  func(c *Config) { c.Security.APIToken.Secret = "short" },
			wantErr: true,
		},
		{
			name:    "long token secret",
			mutate:  func(c *Config) { c.Security.APIToken.Secret = "test-secret-key-at-least-32-chars!" },
			wantErr: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestTimeoutHelpers(t *testing.T) {
	cfg := Default()
	cfg.API.Timeouts = APITimeoutConfig{Read: 1, Write: 2, Idle: 3}
	cfg.Database.RetentionHours = 2

	if got := cfg.API.ReadTimeout(); got != time.Second {
		t.Errorf("ReadTimeout() = %v, want 1s", got)
	}
	if got := cfg.API.WriteTimeout(); got != 2*time.Second {
		t.Errorf("WriteTimeout() = %v, want 2s", got)
	}
	if got := cfg.API.IdleTimeout(); got != 3*time.Second {
		t.Errorf("IdleTimeout() = %v, want 3s", got)
	}
	if got := cfg.Database.Retention(); got != 2*time.Hour {
		t.Errorf("Retention() = %v, want 2h", got)
	}
}
