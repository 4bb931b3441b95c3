package mqtt

import (
	"fmt"
	"strings"

	"github.com/nerrad567/gray-logic-onewire/internal/infrastructure/config"
)

// Default topic roots. The base topic is configurable so several instances
// can share a broker without colliding.
const (
	// DefaultBaseTopic is the root of all service topics.
	DefaultBaseTopic = "glonewire"

	// DefaultDiscoveryPrefix is the Home Assistant discovery root.
	DefaultDiscoveryPrefix = "homeassistant"
)

// Topics provides builders for the MQTT topic hierarchy.
// Using these helpers ensures consistent topic naming across the codebase.
//
//	topics := mqtt.NewTopics(cfg.MQTT)
//	stateTopic := topics.SensorState("28FF4A2B00000031")
//	// Returns: "glonewire/sensor/28FF4A2B00000031/state"
type Topics struct {
	// Base is the root of all service topics, e.g. "glonewire".
	Base string

	// DiscoveryPrefix is the Home Assistant discovery root,
	// e.g. "homeassistant".
	DiscoveryPrefix string
}

// NewTopics builds a Topics value from MQTT configuration.
// Empty fields fall back to the defaults.
func NewTopics(cfg config.MQTTConfig) Topics {
	t := Topics{
		Base:            cfg.BaseTopic,
		DiscoveryPrefix: cfg.HomeAssistant.DiscoveryPrefix,
	}
	if t.Base == "" {
		t.Base = DefaultBaseTopic
	}
	if t.DiscoveryPrefix == "" {
		t.DiscoveryPrefix = DefaultDiscoveryPrefix
	}
	return t
}

// Status returns the service availability topic. The payload is the plain
// string "online" or "offline" (retained), matching the Home Assistant
// availability convention. The same topic carries the Last Will.
//
// Example: glonewire/status
func (t Topics) Status() string {
	return fmt.Sprintf("%s/status", t.Base)
}

// SensorState returns the per-sensor state topic.
//
// Example: glonewire/sensor/28FF4A2B00000031/state
func (t Topics) SensorState(addr string) string {
	return fmt.Sprintf("%s/sensor/%s/state", t.Base, addr)
}

// BusStats returns the bus statistics topic.
//
// Example: glonewire/bus/stats
func (t Topics) BusStats() string {
	return fmt.Sprintf("%s/bus/stats", t.Base)
}

// CommandRescan returns the topic that triggers a bus rescan.
//
// Example: glonewire/command/rescan
func (t Topics) CommandRescan() string {
	return fmt.Sprintf("%s/command/rescan", t.Base)
}

// CommandResolution returns the topic that sets the conversion resolution.
// The payload is the resolution in bits ("9" to "12").
//
// Example: glonewire/command/resolution
func (t Topics) CommandResolution() string {
	return fmt.Sprintf("%s/command/resolution", t.Base)
}

// CommandSettings returns the topic that adjusts runtime settings.
// The payload is a JSON document with optional read_interval,
// publish_interval (seconds) and resolution (bits) fields.
//
// Example: glonewire/command/settings
func (t Topics) CommandSettings() string {
	return fmt.Sprintf("%s/command/settings", t.Base)
}

// CommandName returns the topic that names a specific sensor.
// The payload is the display name; an empty payload clears it.
//
// Example: glonewire/command/name/28FF4A2B00000031
func (t Topics) CommandName(addr string) string {
	return fmt.Sprintf("%s/command/name/%s", t.Base, addr)
}

// AllCommandNames returns a pattern matching name commands for any sensor.
//
// Pattern: glonewire/command/name/+
func (t Topics) AllCommandNames() string {
	return fmt.Sprintf("%s/command/name/+", t.Base)
}

// ParseCommandName extracts the sensor address from a name command topic.
// Returns false if the topic is not a name command or carries no address.
func (t Topics) ParseCommandName(topic string) (addr string, ok bool) {
	prefix := fmt.Sprintf("%s/command/name/", t.Base)

	addr = strings.TrimPrefix(topic, prefix)
	if addr == topic || addr == "" || strings.Contains(addr, "/") {
		return "", false
	}
	return addr, true
}

// ObjectBase returns the base topic flattened for use inside Home
// Assistant object and unique IDs. A multi-level base like
// "heating/cellar" would otherwise add topic levels to the discovery
// topic, which Home Assistant rejects.
func (t Topics) ObjectBase() string {
	return strings.ReplaceAll(t.Base, "/", "_")
}

// SensorDiscovery returns the Home Assistant discovery topic for a sensor.
// The object ID is prefixed with the base topic so several instances can
// feed the same Home Assistant.
//
// Example: homeassistant/sensor/glonewire_28FF4A2B00000031/config
func (t Topics) SensorDiscovery(addr string) string {
	return fmt.Sprintf("%s/sensor/%s_%s/config", t.DiscoveryPrefix, t.ObjectBase(), addr)
}

// BusStatsDiscovery returns the Home Assistant discovery topic for the bus
// statistics diagnostic entity.
//
// Example: homeassistant/sensor/glonewire_bus_stats/config
func (t Topics) BusStatsDiscovery() string {
	return fmt.Sprintf("%s/sensor/%s_bus_stats/config", t.DiscoveryPrefix, t.ObjectBase())
}
