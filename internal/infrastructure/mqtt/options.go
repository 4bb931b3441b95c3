package mqtt

import (
	"crypto/tls"
	"fmt"
	"time"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/nerrad567/gray-logic-onewire/internal/infrastructure/config"
)

const (
	defaultConnectTimeout    = 10 * time.Second
	defaultPublishTimeout    = 5 * time.Second
	defaultDisconnectQuiesce = 1000 // milliseconds, passed straight to paho
	defaultKeepAlive         = 60 * time.Second

	// maxQoS caps what Publish and Subscribe accept. MQTT defines 0-2.
	maxQoS = 2

	tlsMinVersion = tls.VersionTLS12
)

// Availability payloads for the status topic. Plain strings rather than
// JSON: Home Assistant's availability_topic matches on these exact
// values out of the box.
const (
	statusOnline  = "online"
	statusOffline = "offline"
)

// buildClientOptions translates service config into paho options:
// broker URL with tcp or ssl scheme, credentials when set, clean
// session, and auto-reconnect with backoff bounded by the configured
// initial and max delays.
func buildClientOptions(cfg config.MQTTConfig) *pahomqtt.ClientOptions {
	opts := pahomqtt.NewClientOptions()

	scheme := "tcp"
	if cfg.Broker.TLS {
		scheme = "ssl"
		opts.SetTLSConfig(&tls.Config{MinVersion: tlsMinVersion})
	}
	opts.AddBroker(fmt.Sprintf("%s://%s:%d", scheme, cfg.Broker.Host, cfg.Broker.Port))
	opts.SetClientID(cfg.Broker.ClientID)

	if cfg.Auth.Username != "" {
		opts.SetUsername(cfg.Auth.Username)
		opts.SetPassword(cfg.Auth.Password)
	}

	// Clean session: subscriptions are replayed from our own table on
	// reconnect, so broker-side session state would only go stale.
	opts.SetCleanSession(true)

	opts.SetAutoReconnect(true)
	opts.SetConnectRetry(true)
	opts.SetConnectRetryInterval(time.Duration(cfg.Reconnect.InitialDelay) * time.Second)
	opts.SetMaxReconnectInterval(time.Duration(cfg.Reconnect.MaxDelay) * time.Second)

	opts.SetConnectTimeout(defaultConnectTimeout)
	opts.SetKeepAlive(defaultKeepAlive)

	return opts
}

// configureLWT registers the Last Will: retained "offline" at QoS 1 on
// the status topic. The broker publishes it on an unclean disconnect,
// which flips every entity whose availability references the topic to
// unavailable.
func configureLWT(opts *pahomqtt.ClientOptions, topics Topics) {
	opts.SetWill(topics.Status(), statusOffline, 1, true)
}
