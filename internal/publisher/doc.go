// Package publisher owns the MQTT surface of the service: Home
// Assistant discovery, per-sensor state, bus statistics, and the
// inbound command topics.
//
// # Topic Surface
//
// Outbound (all retained):
//
//	homeassistant/sensor/<base>_<addr>/config   discovery document per sensor
//	homeassistant/sensor/<base>_bus_stats/config diagnostic entity
//	<base>/sensor/<addr>/state                  state JSON per sensor
//	<base>/bus/stats                            aggregate counters JSON
//
// Inbound commands:
//
//	<base>/command/rescan       re-run bus discovery
//	<base>/command/resolution   set conversion resolution ("9".."12")
//	<base>/command/name/<addr>  set display name (empty payload clears)
//	<base>/command/settings     JSON: read_interval, publish_interval, resolution
//
// # State Semantics
//
// The state document's temperature field is null whenever the sensor
// has no valid reading; consumers never see a stale number presented
// as current. The discovery documents reference the service
// availability topic, so every entity flips to unavailable when the
// connection drops and the broker delivers the will.
//
// # Concurrency
//
// Command handlers run on the MQTT client's handler goroutines while
// the poller calls PublishAll from its own; both paths converge on the
// registry, which serialises them. Stop cancels in-flight command
// handling.
//
// # Usage
//
//	pub, err := publisher.New(publisher.Options{
//	    Client:     mqttClient,
//	    Topics:     mqttClient.Topics(),
//	    Source:     registry,
//	    Bus:        driver,
//	    Store:      store,
//	    History:    influxClient,
//	    QoS:        byte(cfg.MQTT.QoS),
//	    DeviceName: cfg.Site.Name,
//	    SWVersion:  version,
//	    Logger:     log,
//	})
//	if err != nil {
//	    return err
//	}
//	if err := pub.Start(); err != nil {
//	    return err
//	}
//	defer pub.Stop()
package publisher
