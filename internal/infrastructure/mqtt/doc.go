// Package mqtt provides MQTT client connectivity for Gray Logic 1-Wire.
//
// MQTT is the service's outward face: sensor state and Home Assistant
// discovery documents go out, rescan/name/settings commands come in.
// The broker decouples the acquisition loop from every consumer.
//
//	1-Wire bus → glonewire → MQTT Broker ↔ Home Assistant / dashboards
//
// The client wraps paho with the pieces a long-running sensor service
// needs: a retained Last Will on the status topic so a crash marks
// every entity unavailable, subscription replay after reconnect, and
// panic recovery around message handlers.
//
// # Topic Scheme
//
//	<base>/status                      availability (retained, LWT)
//	<base>/sensor/<addr>/state         per-sensor state JSON
//	<base>/bus/stats                   bus statistics JSON
//	<base>/command/rescan              trigger bus re-enumeration
//	<base>/command/resolution          set conversion resolution
//	<base>/command/settings            adjust intervals/resolution
//	<base>/command/name/<addr>         set a sensor display name
//	<prefix>/sensor/<base>_<addr>/config   Home Assistant discovery
//
// <base> defaults to "glonewire" and <prefix> to "homeassistant"; both
// come from config. Addresses are 16 uppercase hex characters.
//
// # Security Considerations
//
// Credentials and TLS come from config. A passwordless tcp:// link is
// fine on a trusted LAN segment but nothing here encrypts payloads, so
// anything beyond that wants cfg.Broker.TLS and broker-side ACLs that
// limit who may publish under <base>/command/.
//
// # Usage
//
//	client, err := mqtt.Connect(cfg.MQTT)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Close()
//
//	topics := client.Topics()
//
//	// Subscribe to name commands for every sensor
//	err = client.Subscribe(topics.AllCommandNames(), 1,
//	    func(topic string, payload []byte) error {
//	        log.Printf("Received: %s = %s", topic, payload)
//	        return nil
//	    })
//
//	// Publish a state update
//	client.Publish(topics.SensorState("28FF4A2B00000031"),
//	    []byte(`{"temperature":21.4}`), 1, false)
package mqtt
