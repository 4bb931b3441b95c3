package publisher

import (
	"encoding/json"
	"fmt"

	"github.com/nerrad567/gray-logic-onewire/internal/sensor"
)

// Home Assistant discovery field values. The device block groups every
// entity under one device in the UI, keyed by the base topic so two
// instances on the same broker stay apart.
const (
	deviceManufacturer = "Gray Logic"
	deviceModel        = "DS18B20 1-Wire"

	deviceClassTemperature = "temperature"
	unitCelsius            = "°C"
	stateClassMeasurement  = "measurement"
	stateClassTotal        = "total_increasing"
	categoryDiagnostic     = "diagnostic"
)

// discoveryDevice is the shared device block carried in every
// discovery document.
type discoveryDevice struct {
	Identifiers  []string `json:"identifiers"`
	Name         string   `json:"name"`
	Model        string   `json:"model"`
	Manufacturer string   `json:"manufacturer"`
	SWVersion    string   `json:"sw_version,omitempty"`
}

// discoveryConfig is a Home Assistant MQTT discovery document.
type discoveryConfig struct {
	Name                string          `json:"name"`
	UniqueID            string          `json:"unique_id"`
	StateTopic          string          `json:"state_topic"`
	AvailabilityTopic   string          `json:"availability_topic"`
	DeviceClass         string          `json:"device_class,omitempty"`
	UnitOfMeasurement   string          `json:"unit_of_measurement,omitempty"`
	StateClass          string          `json:"state_class,omitempty"`
	ValueTemplate       string          `json:"value_template,omitempty"`
	EntityCategory      string          `json:"entity_category,omitempty"`
	JSONAttributesTopic string          `json:"json_attributes_topic,omitempty"`
	Device              discoveryDevice `json:"device"`
}

// deviceBlock returns the shared device descriptor.
func (p *Publisher) deviceBlock() discoveryDevice {
	return discoveryDevice{
		Identifiers:  []string{p.topics.Base},
		Name:         p.deviceName,
		Model:        deviceModel,
		Manufacturer: deviceManufacturer,
		SWVersion:    p.swVersion,
	}
}

// sensorDiscovery builds the discovery document for one sensor.
// The state payload is JSON, so the value template picks the
// temperature field out; a null temperature renders as unknown in
// Home Assistant rather than a stale number.
func (p *Publisher) sensorDiscovery(s *sensor.ManagedSensor) discoveryConfig {
	addr := s.AddressHex
	return discoveryConfig{
		Name:              s.Name(),
		UniqueID:          fmt.Sprintf("%s_%s", p.topics.ObjectBase(), addr),
		StateTopic:        p.topics.SensorState(addr),
		AvailabilityTopic: p.topics.Status(),
		DeviceClass:       deviceClassTemperature,
		UnitOfMeasurement: unitCelsius,
		StateClass:        stateClassMeasurement,
		ValueTemplate:     "{{ value_json.temperature }}",
		Device:            p.deviceBlock(),
	}
}

// busStatsDiscovery builds the diagnostic entity for the bus counters.
// The entity state tracks the failure counter; the full stats document
// rides along as attributes.
func (p *Publisher) busStatsDiscovery() discoveryConfig {
	return discoveryConfig{
		Name:                "Read failures",
		UniqueID:            fmt.Sprintf("%s_bus_stats", p.topics.ObjectBase()),
		StateTopic:          p.topics.BusStats(),
		AvailabilityTopic:   p.topics.Status(),
		StateClass:          stateClassTotal,
		ValueTemplate:       "{{ value_json.failed_reads }}",
		EntityCategory:      categoryDiagnostic,
		JSONAttributesTopic: p.topics.BusStats(),
		Device:              p.deviceBlock(),
	}
}

// Announce publishes a retained discovery document for every managed
// sensor plus the bus statistics entity, and clears the documents of
// sensors that have left the bus since the last announcement. Call it
// at startup and after every rescan or rename.
func (p *Publisher) Announce() {
	sensors := p.source.Sensors()

	current := make(map[string]struct{}, len(sensors))
	announced := 0
	for _, s := range sensors {
		addr := s.AddressHex
		current[addr] = struct{}{}
		if err := p.publishDiscovery(p.topics.SensorDiscovery(addr), p.sensorDiscovery(s)); err != nil {
			p.log.Warn("discovery publish failed", "address", addr, "error", err)
			continue
		}
		announced++
	}

	if err := p.publishDiscovery(p.topics.BusStatsDiscovery(), p.busStatsDiscovery()); err != nil {
		p.log.Warn("bus stats discovery publish failed", "error", err)
	}

	p.clearDeparted(current)

	p.log.Info("discovery announced", "sensors", announced)
}

// publishDiscovery marshals and publishes one retained discovery
// document.
func (p *Publisher) publishDiscovery(topic string, cfg discoveryConfig) error {
	payload, err := json.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshaling discovery config: %w", err)
	}
	return p.client.Publish(topic, payload, p.qos, true)
}

// clearDeparted removes the retained discovery and state documents of
// sensors no longer on the bus. An empty retained payload deletes the
// retained message on the broker and the entity in Home Assistant.
func (p *Publisher) clearDeparted(current map[string]struct{}) {
	p.announcedMu.Lock()
	defer p.announcedMu.Unlock()

	for addr := range p.announced {
		if _, ok := current[addr]; ok {
			continue
		}
		if err := p.client.Publish(p.topics.SensorDiscovery(addr), nil, p.qos, true); err != nil {
			p.log.Warn("discovery clear failed", "address", addr, "error", err)
			continue
		}
		if err := p.client.Publish(p.topics.SensorState(addr), nil, p.qos, true); err != nil {
			p.log.Warn("state clear failed", "address", addr, "error", err)
		}
		p.log.Info("departed sensor cleared", "address", addr)
	}

	p.announced = current
}
