package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration for Gray Logic 1-Wire, loaded from
// YAML with selected environment variable overrides on top.
type Config struct {
	Site        SiteConfig        `yaml:"site"`
	Bus         BusConfig         `yaml:"bus"`
	Acquisition AcquisitionConfig `yaml:"acquisition"`
	Database    DatabaseConfig    `yaml:"database"`
	MQTT        MQTTConfig        `yaml:"mqtt"`
	InfluxDB    InfluxDBConfig    `yaml:"influxdb"`
	Logging     LoggingConfig     `yaml:"logging"`
}

// SiteConfig identifies the installation. The ID appears in MQTT
// discovery payloads so multiple sites can share a broker.
type SiteConfig struct {
	ID   string `yaml:"id"`
	Name string `yaml:"name"`
}

// BusConfig contains 1-Wire bus settings.
type BusConfig struct {
	// Name selects the 1-Wire bus to open. Empty means the first
	// registered bus on the host.
	Name string `yaml:"name"`

	// MaxDevices caps how many sensors a scan will track.
	MaxDevices int `yaml:"max_devices"`

	// Resolution is the conversion resolution in bits (9-12). A value
	// persisted in the settings store takes precedence at startup.
	Resolution int `yaml:"resolution"`
}

// AcquisitionConfig contains acquisition and publish cadence settings.
type AcquisitionConfig struct {
	// ReadInterval is the seconds between acquisition cycles.
	ReadInterval int `yaml:"read_interval"`

	// PublishInterval is the seconds between MQTT state publishes.
	PublishInterval int `yaml:"publish_interval"`

	// ScanOnStart enumerates the bus before the first acquisition cycle.
	ScanOnStart bool `yaml:"scan_on_start"`
}

// DatabaseConfig holds SQLite settings for the identity store.
type DatabaseConfig struct {
	Path        string `yaml:"path"`
	WALMode     bool   `yaml:"wal_mode"`
	BusyTimeout int    `yaml:"busy_timeout"`
}

// MQTTConfig holds broker connection and topic settings.
type MQTTConfig struct {
	Broker        MQTTBrokerConfig    `yaml:"broker"`
	Auth          MQTTAuthConfig      `yaml:"auth"`
	QoS           int                 `yaml:"qos"`
	Reconnect     MQTTReconnectConfig `yaml:"reconnect"`
	BaseTopic     string              `yaml:"base_topic"`
	HomeAssistant HomeAssistantConfig `yaml:"homeassistant"`
}

// MQTTBrokerConfig identifies the broker endpoint.
type MQTTBrokerConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	TLS      bool   `yaml:"tls"`
	ClientID string `yaml:"client_id"`
}

// MQTTAuthConfig holds broker credentials. Prefer setting these via
// GLONEWIRE_MQTT_USERNAME and GLONEWIRE_MQTT_PASSWORD.
type MQTTAuthConfig struct {
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// MQTTReconnectConfig tunes the reconnect backoff. Delays are in
// seconds; MaxAttempts of zero retries forever.
type MQTTReconnectConfig struct {
	InitialDelay int `yaml:"initial_delay"`
	MaxDelay     int `yaml:"max_delay"`
	MaxAttempts  int `yaml:"max_attempts"`
}

// HomeAssistantConfig contains Home Assistant MQTT discovery settings.
type HomeAssistantConfig struct {
	Enabled         bool   `yaml:"enabled"`
	DiscoveryPrefix string `yaml:"discovery_prefix"`
}

// InfluxDBConfig holds time-series history settings. The whole section
// is optional; Enabled false runs without history.
type InfluxDBConfig struct {
	Enabled       bool   `yaml:"enabled"`
	URL           string `yaml:"url"`
	Token         string `yaml:"token"`
	Org           string `yaml:"org"`
	Bucket        string `yaml:"bucket"`
	BatchSize     int    `yaml:"batch_size"`
	FlushInterval int    `yaml:"flush_interval"`
}

// LoggingConfig controls log level, format and destination.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// Load reads the YAML file at path and returns a validated Config.
//
// Values layer in increasing precedence:
//  1. Built-in defaults
//  2. The YAML file
//  3. GLONEWIRE_* environment variables
//
// Env overrides exist so secrets (broker password, InfluxDB token) can
// stay out of the file. See applyEnvOverrides for the recognised names.
//
// Parameters:
//   - path: Path to the YAML configuration file
//
// Returns:
//   - *Config: Loaded and validated configuration
//   - error: If the file cannot be read or parsed, or validation fails
func Load(path string) (*Config, error) {
	cfg := defaultConfig()

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

// defaultConfig returns the baseline every load starts from. A missing
// YAML section leaves these values in place.
func defaultConfig() *Config {
	return &Config{
		Site: SiteConfig{
			ID:   "glonewire-001",
			Name: "Gray Logic 1-Wire",
		},
		Bus: BusConfig{
			MaxDevices: 16,
			Resolution: 12,
		},
		Acquisition: AcquisitionConfig{
			ReadInterval:    10,
			PublishInterval: 60,
			ScanOnStart:     true,
		},
		Database: DatabaseConfig{
			Path:        "./data/glonewire.db",
			WALMode:     true,
			BusyTimeout: 5,
		},
		MQTT: MQTTConfig{
			Broker: MQTTBrokerConfig{
				Host:     "localhost",
				Port:     1883,
				ClientID: "glonewire",
			},
			QoS: 1,
			Reconnect: MQTTReconnectConfig{
				InitialDelay: 1,
				MaxDelay:     60,
				MaxAttempts:  0,
			},
			BaseTopic: "glonewire",
			HomeAssistant: HomeAssistantConfig{
				Enabled:         true,
				DiscoveryPrefix: "homeassistant",
			},
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
	}
}

// applyEnvOverrides maps GLONEWIRE_SECTION_KEY environment variables
// onto the loaded config. Only a deliberate subset is exposed this way,
// chiefly secrets and deployment-specific paths.
func applyEnvOverrides(cfg *Config) {
	// Bus
	if v := os.Getenv("GLONEWIRE_BUS_NAME"); v != "" {
		cfg.Bus.Name = v
	}

	// Database
	if v := os.Getenv("GLONEWIRE_DATABASE_PATH"); v != "" {
		cfg.Database.Path = v
	}

	// MQTT
	if v := os.Getenv("GLONEWIRE_MQTT_HOST"); v != "" {
		cfg.MQTT.Broker.Host = v
	}
	if v := os.Getenv("GLONEWIRE_MQTT_USERNAME"); v != "" {
		cfg.MQTT.Auth.Username = v
	}
	if v := os.Getenv("GLONEWIRE_MQTT_PASSWORD"); v != "" {
		cfg.MQTT.Auth.Password = v
	}

	// InfluxDB
	if v := os.Getenv("GLONEWIRE_INFLUXDB_TOKEN"); v != "" {
		cfg.InfluxDB.Token = v
	}

	// Logging
	if v := os.Getenv("GLONEWIRE_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
}

// Validate checks the configuration and collects every problem into a
// single error so a bad file is fixed in one pass rather than one
// restart per mistake.
//
// Returns:
//   - error: Description of all validation failures, or nil if valid
func (c *Config) Validate() error {
	var errs []string

	// Site validation
	if c.Site.ID == "" {
		errs = append(errs, "site.id is required")
	}

	// Bus validation
	if c.Bus.MaxDevices < 1 {
		errs = append(errs, "bus.max_devices must be at least 1")
	}
	if c.Bus.Resolution < 9 || c.Bus.Resolution > 12 {
		errs = append(errs, "bus.resolution must be between 9 and 12")
	}

	// Acquisition validation
	if c.Acquisition.ReadInterval < 1 {
		errs = append(errs, "acquisition.read_interval must be at least 1 second")
	}
	if c.Acquisition.PublishInterval < 1 {
		errs = append(errs, "acquisition.publish_interval must be at least 1 second")
	}

	// Database validation
	if c.Database.Path == "" {
		errs = append(errs, "database.path is required")
	}

	// MQTT validation
	if c.MQTT.QoS < 0 || c.MQTT.QoS > 2 {
		errs = append(errs, "mqtt.qos must be 0, 1, or 2")
	}
	if c.MQTT.BaseTopic == "" {
		errs = append(errs, "mqtt.base_topic is required")
	}
	if strings.ContainsAny(c.MQTT.BaseTopic, "+#") {
		errs = append(errs, "mqtt.base_topic must not contain wildcard characters")
	}
	if c.MQTT.HomeAssistant.Enabled && c.MQTT.HomeAssistant.DiscoveryPrefix == "" {
		errs = append(errs, "mqtt.homeassistant.discovery_prefix is required when discovery is enabled")
	}

	// InfluxDB validation (only when enabled)
	if c.InfluxDB.Enabled {
		if c.InfluxDB.URL == "" {
			errs = append(errs, "influxdb.url is required when influxdb is enabled")
		}
		if c.InfluxDB.Org == "" {
			errs = append(errs, "influxdb.org is required when influxdb is enabled")
		}
		if c.InfluxDB.Bucket == "" {
			errs = append(errs, "influxdb.bucket is required when influxdb is enabled")
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors: %s", strings.Join(errs, "; "))
	}

	return nil
}

// GetReadInterval returns the acquisition interval as a Duration.
func (c *Config) GetReadInterval() time.Duration {
	return time.Duration(c.Acquisition.ReadInterval) * time.Second
}

// GetPublishInterval returns the publish interval as a Duration.
func (c *Config) GetPublishInterval() time.Duration {
	return time.Duration(c.Acquisition.PublishInterval) * time.Second
}
