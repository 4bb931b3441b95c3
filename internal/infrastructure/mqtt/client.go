package mqtt

import (
	"context"
	"fmt"
	"sync"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/nerrad567/gray-logic-onewire/internal/infrastructure/config"
)

// Client wraps the paho MQTT client for this service: it owns the Last
// Will on the status topic, tracks subscriptions so they survive a
// reconnect, and recovers handler panics so a bad payload cannot take
// the service down.
//
// All methods are safe for concurrent use.
type Client struct {
	client  pahomqtt.Client
	options *pahomqtt.ClientOptions
	cfg     config.MQTTConfig
	topics  Topics

	// mu guards connected, the callbacks and the logger.
	mu           sync.RWMutex
	connected    bool
	onConnect    func()
	onDisconnect func(err error)
	logger       Logger

	// subMu guards the subscription table used for restore-on-reconnect.
	subMu         sync.RWMutex
	subscriptions map[string]subscription
}

// Logger is the slice of logging this package needs. logging.Logger
// satisfies it.
type Logger interface {
	Error(msg string, args ...any)
	Warn(msg string, args ...any)
}

type subscription struct {
	topic   string
	qos     byte
	handler MessageHandler
}

// MessageHandler is the callback for received messages. Paho invokes
// handlers on its own goroutines; they should return quickly. A
// returned error is logged and the message is still acknowledged.
type MessageHandler func(topic string, payload []byte) error

// Connect dials the broker and returns a ready client. The connection
// carries a retained Last Will of "offline" on the status topic, so
// Home Assistant marks every entity unavailable if the service dies
// without a clean shutdown. Reconnection afterwards is automatic;
// Connect itself fails if the broker does not answer within the
// connect timeout.
func Connect(cfg config.MQTTConfig) (*Client, error) {
	topics := NewTopics(cfg)
	opts := buildClientOptions(cfg)
	configureLWT(opts, topics)

	c := &Client{
		cfg:           cfg,
		topics:        topics,
		options:       opts,
		subscriptions: make(map[string]subscription),
	}

	opts.SetOnConnectHandler(func(_ pahomqtt.Client) {
		c.handleConnect()
	})
	opts.SetConnectionLostHandler(func(_ pahomqtt.Client, err error) {
		c.handleDisconnect(err)
	})
	opts.SetReconnectingHandler(func(_ pahomqtt.Client, _ *pahomqtt.ClientOptions) {
		if log := c.getLogger(); log != nil {
			log.Warn("reconnecting to MQTT broker")
		}
	})

	c.client = pahomqtt.NewClient(opts)
	token := c.client.Connect()
	if !token.WaitTimeout(defaultConnectTimeout) {
		return nil, fmt.Errorf("%w: timeout after %v", ErrConnectionFailed, defaultConnectTimeout)
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConnectionFailed, err)
	}

	// The OnConnect callback runs asynchronously and may not have fired
	// yet; mark connected here so IsConnected is true on return.
	c.mu.Lock()
	c.connected = true
	c.mu.Unlock()

	return c, nil
}

// handleConnect runs on initial connect and every reconnect.
func (c *Client) handleConnect() {
	c.mu.Lock()
	c.connected = true
	callback := c.onConnect
	c.mu.Unlock()

	c.restoreSubscriptions()
	c.publishOnlineStatus()

	if callback != nil {
		callback()
	}
}

func (c *Client) handleDisconnect(err error) {
	c.mu.Lock()
	c.connected = false
	callback := c.onDisconnect
	c.mu.Unlock()

	if callback != nil {
		callback(err)
	}
}

// restoreSubscriptions replays the subscription table after a
// reconnect. Errors are ignored here; a still-broken link surfaces
// through the connection-lost handler soon enough.
func (c *Client) restoreSubscriptions() {
	c.subMu.RLock()
	defer c.subMu.RUnlock()

	for _, sub := range c.subscriptions {
		c.client.Subscribe(sub.topic, sub.qos, c.wrapHandler(sub.handler))
	}
}

// publishOnlineStatus puts the retained "online" marker on the status
// topic. Entities referencing it in their discovery config flip back to
// available the moment it lands.
func (c *Client) publishOnlineStatus() {
	c.client.Publish(c.topics.Status(), byte(c.cfg.QoS), true, statusOnline)
}

// Close publishes a clean "offline" (distinct from the Last Will firing
// on a crash, though the payload is the same) and disconnects, giving
// in-flight publishes a short quiesce window.
func (c *Client) Close() error {
	if c.client == nil {
		return nil
	}

	if c.IsConnected() {
		token := c.client.Publish(c.topics.Status(), byte(c.cfg.QoS), true, statusOffline)
		token.WaitTimeout(defaultPublishTimeout)
	}

	c.client.Disconnect(defaultDisconnectQuiesce)

	c.mu.Lock()
	c.connected = false
	c.mu.Unlock()

	return nil
}

// HealthCheck reports whether the broker link is up.
func (c *Client) HealthCheck(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return fmt.Errorf("mqtt health check: %w", ctx.Err())
	default:
	}
	if !c.IsConnected() {
		return ErrNotConnected
	}
	return nil
}

// IsConnected reports the last known connection state.
func (c *Client) IsConnected() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.connected && c.client.IsConnected()
}

// Topics returns the topic scheme the client was configured with. The
// Last Will uses the same scheme, so publishers build their topics from
// this rather than constructing their own.
func (c *Client) Topics() Topics {
	return c.topics
}

// SetOnConnect registers a callback invoked on initial connect and
// every reconnect.
func (c *Client) SetOnConnect(callback func()) {
	c.mu.Lock()
	c.onConnect = callback
	c.mu.Unlock()
}

// SetOnDisconnect registers a callback invoked when the connection
// drops, with the reason.
func (c *Client) SetOnDisconnect(callback func(err error)) {
	c.mu.Lock()
	c.onDisconnect = callback
	c.mu.Unlock()
}

// SetLogger wires a logger for handler errors and recovered panics.
// Without one those are dropped silently.
func (c *Client) SetLogger(logger Logger) {
	c.mu.Lock()
	c.logger = logger
	c.mu.Unlock()
}

func (c *Client) getLogger() Logger {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.logger
}

// wrapHandler adapts a MessageHandler to paho's signature, adding panic
// recovery and error logging.
func (c *Client) wrapHandler(handler MessageHandler) pahomqtt.MessageHandler {
	return func(_ pahomqtt.Client, msg pahomqtt.Message) {
		defer func() {
			if r := recover(); r != nil {
				if log := c.getLogger(); log != nil {
					log.Error("MQTT handler panic recovered", "topic", msg.Topic(), "panic", r)
				}
			}
		}()

		if err := handler(msg.Topic(), msg.Payload()); err != nil {
			if log := c.getLogger(); log != nil {
				log.Warn("MQTT handler returned error", "topic", msg.Topic(), "error", err)
			}
		}
	}
}
