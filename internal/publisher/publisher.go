package publisher

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/nerrad567/gray-logic-onewire/internal/ds18b20"
	"github.com/nerrad567/gray-logic-onewire/internal/infrastructure/mqtt"
	"github.com/nerrad567/gray-logic-onewire/internal/sensor"
)

// Command handling timeouts. Rescan walks the full ROM search and
// probes new devices, so it gets more headroom than the rest.
const (
	rescanTimeout  = 30 * time.Second
	commandTimeout = 10 * time.Second
)

// Logger defines the logging interface used by the Publisher. Satisfied
// by *logging.Logger.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// noopLogger is a logger that does nothing.
type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// MQTTClient is the broker surface the publisher needs.
// Implemented by *mqtt.Client; mocked in tests.
type MQTTClient interface {
	Publish(topic string, payload []byte, qos byte, retained bool) error
	Subscribe(topic string, qos byte, handler mqtt.MessageHandler) error
	IsConnected() bool
}

// SensorSource is the registry slice the publisher reads from and
// forwards commands to. Implemented by *sensor.Registry.
type SensorSource interface {
	Sensors() []*sensor.ManagedSensor
	Count() int
	Truncated() bool
	Rescan(ctx context.Context) error
	SetDisplayName(ctx context.Context, addr ds18b20.Address, name string) error
}

// BusControl is the driver slice the command path and the bus
// statistics publisher need. Implemented by *ds18b20.Driver.
type BusControl interface {
	SetResolution(bits int) error
	Resolution() ds18b20.Resolution
	Stats() ds18b20.Stats
}

// SettingsStore persists runtime settings changed over MQTT so they
// survive a restart. Implemented by *sensor.SQLiteStore.
type SettingsStore interface {
	SaveResolution(ctx context.Context, bits int) error
	SaveReadInterval(ctx context.Context, interval time.Duration) error
	SavePublishInterval(ctx context.Context, interval time.Duration) error
}

// History receives readings for long-term storage.
// Implemented by *influxdb.Client. Optional.
type History interface {
	WriteTemperature(addr string, name string, celsius float64)
	WriteBusStats(sensors int, totalReads uint64, failedReads uint64)
}

// IntervalControl adjusts acquisition cadences at runtime.
// Implemented by *poller.Poller. Optional, wired after construction
// with SetIntervalControl since the poller is built later.
type IntervalControl interface {
	SetReadInterval(interval time.Duration)
	SetPublishInterval(interval time.Duration)
}

// Options holds configuration for creating a Publisher.
type Options struct {
	// Client is the MQTT connection. Required.
	Client MQTTClient

	// Topics is the topic scheme, normally client.Topics().
	// Empty fields fall back to the defaults.
	Topics mqtt.Topics

	// Source provides the managed sensor set. Required.
	Source SensorSource

	// Bus provides resolution control and aggregate counters. Required.
	Bus BusControl

	// Store persists settings changed over the command path. Required.
	Store SettingsStore

	// History receives readings for long-term storage. Optional.
	History History

	// QoS for every publish and subscription.
	QoS byte

	// DeviceName is the Home Assistant device block name.
	DeviceName string

	// SWVersion is reported in the Home Assistant device block.
	SWVersion string

	// Logger receives publisher log output. Nil disables logging.
	Logger Logger
}

// Publisher owns the MQTT output surface: retained Home Assistant
// discovery documents, per-sensor state, bus statistics, and the
// inbound command topics. It is the second thread of control next to
// the acquisition poller; both funnel into the registry, which
// serialises them.
//
// All public methods are safe for concurrent use.
type Publisher struct {
	client  MQTTClient
	topics  mqtt.Topics
	source  SensorSource
	bus     BusControl
	store   SettingsStore
	history History
	qos     byte

	deviceName string
	swVersion  string

	// intervals is wired late via SetIntervalControl; nil until then.
	intervals   IntervalControl
	intervalsMu sync.RWMutex

	// announced tracks addresses with a retained discovery document on
	// the broker, so a rescan can clear the ones that departed.
	announced   map[string]struct{}
	announcedMu sync.Mutex

	// Shutdown coordination. ctx bounds in-flight command handling.
	ctx       context.Context
	ctxCancel context.CancelFunc
	stopOnce  sync.Once

	log Logger
}

// New creates a publisher. Call Start to subscribe and announce.
func New(opts Options) (*Publisher, error) {
	if opts.Client == nil {
		return nil, fmt.Errorf("mqtt client is required")
	}
	if opts.Source == nil {
		return nil, fmt.Errorf("sensor source is required")
	}
	if opts.Bus == nil {
		return nil, fmt.Errorf("bus control is required")
	}
	if opts.Store == nil {
		return nil, fmt.Errorf("settings store is required")
	}

	topics := opts.Topics
	if topics.Base == "" {
		topics.Base = mqtt.DefaultBaseTopic
	}
	if topics.DiscoveryPrefix == "" {
		topics.DiscoveryPrefix = mqtt.DefaultDiscoveryPrefix
	}

	deviceName := opts.DeviceName
	if deviceName == "" {
		deviceName = "1-Wire Sensors"
	}

	log := opts.Logger
	if log == nil {
		log = noopLogger{}
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &Publisher{
		client:     opts.Client,
		topics:     topics,
		source:     opts.Source,
		bus:        opts.Bus,
		store:      opts.Store,
		history:    opts.History,
		qos:        opts.QoS,
		deviceName: deviceName,
		swVersion:  opts.SWVersion,
		announced:  make(map[string]struct{}),
		ctx:        ctx,
		ctxCancel:  cancel,
		log:        log,
	}, nil
}

// SetIntervalControl wires the cadence adjuster for the settings
// command. Safe to call at any time; nil detaches it.
func (p *Publisher) SetIntervalControl(ctl IntervalControl) {
	p.intervalsMu.Lock()
	p.intervals = ctl
	p.intervalsMu.Unlock()
}

// Start subscribes to the command topics and announces the current
// sensor set: retained discovery documents first, then one state
// publish per sensor plus bus statistics.
//
// Reconnects are handled by the MQTT client (subscriptions restore
// automatically); retained documents survive on the broker, so no
// reconnect hook is needed here. Call Announce after events that
// change the sensor set.
func (p *Publisher) Start() error {
	subscriptions := []struct {
		topic   string
		handler mqtt.MessageHandler
	}{
		{p.topics.CommandRescan(), p.handleRescan},
		{p.topics.CommandResolution(), p.handleResolution},
		{p.topics.CommandSettings(), p.handleSettings},
		{p.topics.AllCommandNames(), p.handleName},
	}

	for _, sub := range subscriptions {
		if err := p.client.Subscribe(sub.topic, p.qos, sub.handler); err != nil {
			return fmt.Errorf("subscribing to %s: %w", sub.topic, err)
		}
	}
	p.log.Info("command topics subscribed",
		"rescan", p.topics.CommandRescan(),
		"names", p.topics.AllCommandNames())

	p.Announce()
	p.PublishAll()

	return nil
}

// Stop cancels in-flight command handling. Retained documents are left
// on the broker; the service availability topic flips to offline via
// the MQTT client's will.
func (p *Publisher) Stop() {
	p.stopOnce.Do(func() {
		p.ctxCancel()
		p.log.Info("publisher stopped")
	})
}

// PublishAll publishes the state of every managed sensor plus bus
// statistics, and forwards valid readings to the history sink. Called
// by the poller on the publish cadence. Skips quietly when the broker
// is unreachable; the next cadence retries.
func (p *Publisher) PublishAll() {
	if !p.client.IsConnected() {
		p.log.Debug("publish cycle skipped, broker not connected")
		return
	}

	sensors := p.source.Sensors()
	published := 0
	for _, s := range sensors {
		if err := p.publishSensorState(s); err != nil {
			p.log.Warn("state publish failed", "address", s.AddressHex, "error", err)
			continue
		}
		published++
	}

	if err := p.publishBusStats(sensors); err != nil {
		p.log.Warn("bus stats publish failed", "error", err)
	}

	p.writeHistory(sensors)

	p.log.Debug("publish cycle complete", "sensors", len(sensors), "published", published)
}

// writeHistory forwards the cycle's valid readings and the aggregate
// counters to the history sink, if one is wired.
func (p *Publisher) writeHistory(sensors []*sensor.ManagedSensor) {
	if p.history == nil {
		return
	}

	for _, s := range sensors {
		if !s.Valid {
			continue
		}
		p.history.WriteTemperature(s.AddressHex, s.DisplayName, s.Temperature)
	}

	stats := p.bus.Stats()
	p.history.WriteBusStats(len(sensors), stats.TotalReads, stats.FailedReads)
}
