package config

import (
	"os"
	"path/filepath"
	"testing"
)

// validConfig returns a configuration that passes Validate, for tests to
// break one field at a time.
func validConfig() *Config {
	return &Config{
		Site: SiteConfig{ID: "site-001"},
		Bus: BusConfig{
			MaxDevices: 16,
			Resolution: 12,
		},
		Acquisition: AcquisitionConfig{
			ReadInterval:    10,
			PublishInterval: 60,
		},
		Database: DatabaseConfig{
			Path: "/data/glonewire.db",
		},
		MQTT: MQTTConfig{
			QoS:       1,
			BaseTopic: "glonewire",
		},
	}
}

// writeTestConfig writes content to a temp file and returns its path.
func writeTestConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatalf("writing test config: %v", err)
	}
	return path
}

func TestLoad_ValidConfig(t *testing.T) {
	content := `
site:
  id: "boiler-room"
bus:
  name: "w1-gpio4"
  max_devices: 8
  resolution: 11
acquisition:
  read_interval: 5
  publish_interval: 30
  scan_on_start: true
database:
  path: "/tmp/sensors.db"
  wal_mode: true
  busy_timeout: 5
mqtt:
  broker:
    host: "broker.lan"
    port: 1883
    client_id: "glonewire-test"
  qos: 1
  base_topic: "glonewire"
`
	cfg, err := Load(writeTestConfig(t, content))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Site.ID != "boiler-room" {
		t.Errorf("Site.ID = %q, want %q", cfg.Site.ID, "boiler-room")
	}

	if cfg.Bus.Name != "w1-gpio4" {
		t.Errorf("Bus.Name = %q, want %q", cfg.Bus.Name, "w1-gpio4")
	}

	if cfg.Bus.MaxDevices != 8 {
		t.Errorf("Bus.MaxDevices = %d, want 8", cfg.Bus.MaxDevices)
	}

	if cfg.Bus.Resolution != 11 {
		t.Errorf("Bus.Resolution = %d, want 11", cfg.Bus.Resolution)
	}

	if cfg.Database.Path != "/tmp/sensors.db" {
		t.Errorf("Database.Path = %q, want %q", cfg.Database.Path, "/tmp/sensors.db")
	}

	if cfg.MQTT.Broker.Host != "broker.lan" {
		t.Errorf("MQTT.Broker.Host = %q, want %q", cfg.MQTT.Broker.Host, "broker.lan")
	}

	// Defaults fill what the file leaves out
	if !cfg.MQTT.HomeAssistant.Enabled {
		t.Error("MQTT.HomeAssistant.Enabled = false, want default true")
	}

	if cfg.MQTT.HomeAssistant.DiscoveryPrefix != "homeassistant" {
		t.Errorf("MQTT.HomeAssistant.DiscoveryPrefix = %q, want %q",
			cfg.MQTT.HomeAssistant.DiscoveryPrefix, "homeassistant")
	}
}

func TestLoad_MissingFile(t *testing.T) {
	if _, err := Load("/nonexistent/path/config.yaml"); err == nil {
		t.Error("Load() = nil error for a missing file")
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	path := writeTestConfig(t, "bus: [unclosed")
	if _, err := Load(path); err == nil {
		t.Error("Load() = nil error for malformed YAML")
	}
}

func TestLoad_ValidationFailure(t *testing.T) {
	// Explicit empty site.id overrides the default and must be caught.
	content := `
site:
  id: ""
database:
  path: "/tmp/sensors.db"
`
	if _, err := Load(writeTestConfig(t, content)); err == nil {
		t.Error("Load() = nil error for empty site.id")
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{
			name:    "valid config",
			mutate:  func(*Config) {},
			wantErr: false,
		},
		{
			name:    "missing site ID",
			mutate:  func(c *Config) { c.Site.ID = "" },
			wantErr: true,
		},
		{
			name:    "zero max devices",
			mutate:  func(c *Config) { c.Bus.MaxDevices = 0 },
			wantErr: true,
		},
		{
			name:    "resolution too low",
			mutate:  func(c *Config) { c.Bus.Resolution = 8 },
			wantErr: true,
		},
		{
			name:    "resolution too high",
			mutate:  func(c *Config) { c.Bus.Resolution = 13 },
			wantErr: true,
		},
		{
			name:    "zero read interval",
			mutate:  func(c *Config) { c.Acquisition.ReadInterval = 0 },
			wantErr: true,
		},
		{
			name:    "zero publish interval",
			mutate:  func(c *Config) { c.Acquisition.PublishInterval = 0 },
			wantErr: true,
		},
		{
			name:    "missing database path",
			mutate:  func(c *Config) { c.Database.Path = "" },
			wantErr: true,
		},
		{
			name:    "invalid QoS",
			mutate:  func(c *Config) { c.MQTT.QoS = 3 },
			wantErr: true,
		},
		{
			name:    "missing base topic",
			mutate:  func(c *Config) { c.MQTT.BaseTopic = "" },
			wantErr: true,
		},
		{
			name:    "wildcard in base topic",
			mutate:  func(c *Config) { c.MQTT.BaseTopic = "glonewire/#" },
			wantErr: true,
		},
		{
			name: "discovery enabled without prefix",
			mutate: func(c *Config) {
				c.MQTT.HomeAssistant.Enabled = true
				c.MQTT.HomeAssistant.DiscoveryPrefix = ""
			},
			wantErr: true,
		},
		{
			name: "influxdb enabled without url",
			mutate: func(c *Config) {
				c.InfluxDB.Enabled = true
				c.InfluxDB.Org = "home"
				c.InfluxDB.Bucket = "sensors"
			},
			wantErr: true,
		},
		{
			name: "influxdb enabled fully specified",
			mutate: func(c *Config) {
				c.InfluxDB.Enabled = true
				c.InfluxDB.URL = "http://localhost:8086"
				c.InfluxDB.Org = "home"
				c.InfluxDB.Bucket = "sensors"
			},
			wantErr: false,
		},
		{
			name: "influxdb disabled needs nothing",
			mutate: func(c *Config) {
				c.InfluxDB.Enabled = false
				c.InfluxDB.URL = ""
			},
			wantErr: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)

			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestConfig_GetIntervals(t *testing.T) {
	cfg := &Config{
		Acquisition: AcquisitionConfig{
			ReadInterval:    10,
			PublishInterval: 90,
		},
	}

	if got := cfg.GetReadInterval().Seconds(); got != 10 {
		t.Errorf("GetReadInterval() = %v, want 10", got)
	}

	if got := cfg.GetPublishInterval().Seconds(); got != 90 {
		t.Errorf("GetPublishInterval() = %v, want 90", got)
	}
}

func TestApplyEnvOverrides(t *testing.T) {
	cfg := defaultConfig()

	t.Setenv("GLONEWIRE_BUS_NAME", "w1-bus0")
	t.Setenv("GLONEWIRE_DATABASE_PATH", "/var/lib/glonewire/override.db")
	t.Setenv("GLONEWIRE_MQTT_HOST", "broker.lan")
	t.Setenv("GLONEWIRE_MQTT_USERNAME", "glonewire")
	t.Setenv("GLONEWIRE_MQTT_PASSWORD", "s3cret")
	t.Setenv("GLONEWIRE_INFLUXDB_TOKEN", "env-token")
	t.Setenv("GLONEWIRE_LOG_LEVEL", "debug")

	applyEnvOverrides(cfg)

	checks := []struct {
		field string
		got   string
		want  string
	}{
		{"Bus.Name", cfg.Bus.Name, "w1-bus0"},
		{"Database.Path", cfg.Database.Path, "/var/lib/glonewire/override.db"},
		{"MQTT.Broker.Host", cfg.MQTT.Broker.Host, "broker.lan"},
		{"MQTT.Auth.Username", cfg.MQTT.Auth.Username, "glonewire"},
		{"MQTT.Auth.Password", cfg.MQTT.Auth.Password, "s3cret"},
		{"InfluxDB.Token", cfg.InfluxDB.Token, "env-token"},
		{"Logging.Level", cfg.Logging.Level, "debug"},
	}

	for _, c := range checks {
		if c.got != c.want {
			t.Errorf("%s = %q, want %q", c.field, c.got, c.want)
		}
	}
}

func TestDefaultConfig(t *testing.T) {
	cfg := defaultConfig()

	if cfg.Site.ID == "" {
		t.Error("default Site.ID is empty")
	}

	if cfg.Database.Path == "" {
		t.Error("default Database.Path is empty")
	}

	if cfg.Bus.MaxDevices != 16 {
		t.Errorf("default Bus.MaxDevices = %d, want 16", cfg.Bus.MaxDevices)
	}

	if cfg.Bus.Resolution != 12 {
		t.Errorf("default Bus.Resolution = %d, want 12", cfg.Bus.Resolution)
	}

	if cfg.MQTT.Broker.Port != 1883 {
		t.Errorf("default MQTT.Broker.Port = %d, want 1883", cfg.MQTT.Broker.Port)
	}

	// Defaults alone must form a valid configuration
	if err := cfg.Validate(); err != nil {
		t.Errorf("defaultConfig().Validate() error = %v", err)
	}
}
