package poller

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
)

// Defaults applied when Options carries a zero interval. They match
// the configuration file defaults.
const (
	DefaultReadInterval    = 10 * time.Second
	DefaultPublishInterval = 60 * time.Second
)

// Logger defines the logging interface used by the Poller.
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

// Reader runs one acquisition cycle over the sensor set.
// Implemented by *sensor.Registry.
type Reader interface {
	ReadAll()
}

// Sink pushes the current sensor state out.
// Implemented by *publisher.Publisher.
type Sink interface {
	PublishAll()
}

// Options holds configuration for creating a Poller.
type Options struct {
	// Reader receives acquisition ticks. Required.
	Reader Reader

	// Sink receives publish ticks. Required.
	Sink Sink

	// ReadInterval is the acquisition cadence. Zero or negative uses
	// DefaultReadInterval.
	ReadInterval time.Duration

	// PublishInterval is the publish cadence. Zero or negative uses
	// DefaultPublishInterval.
	PublishInterval time.Duration

	// Clock drives the cadences. Nil uses the wall clock; tests inject
	// a mock.
	Clock clock.Clock

	// Logger receives poller log output. Nil disables logging.
	Logger Logger
}

// Poller drives the two cadences of the service: acquisition cycles on
// the read interval, state publishes on the publish interval. The
// cadences run independently, so a slow acquisition never delays a
// publish. Both end up at the registry, which serialises access.
//
// Intervals are adjustable while running and a change takes effect
// immediately, restarting the current wait.
type Poller struct {
	reader Reader
	sink   Sink
	clk    clock.Clock

	mu              sync.Mutex
	readInterval    time.Duration
	publishInterval time.Duration
	readTicker      *clock.Ticker
	publishTicker   *clock.Ticker

	ctx       context.Context
	ctxCancel context.CancelFunc
	stopOnce  sync.Once
	wg        sync.WaitGroup

	log Logger
}

// New creates a poller. Call Start to begin ticking.
func New(opts Options) (*Poller, error) {
	if opts.Reader == nil {
		return nil, fmt.Errorf("reader is required")
	}
	if opts.Sink == nil {
		return nil, fmt.Errorf("sink is required")
	}

	readInterval := opts.ReadInterval
	if readInterval <= 0 {
		readInterval = DefaultReadInterval
	}
	publishInterval := opts.PublishInterval
	if publishInterval <= 0 {
		publishInterval = DefaultPublishInterval
	}

	clk := opts.Clock
	if clk == nil {
		clk = clock.New()
	}

	log := opts.Logger
	if log == nil {
		log = noopLogger{}
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &Poller{
		reader:          opts.Reader,
		sink:            opts.Sink,
		clk:             clk,
		readInterval:    readInterval,
		publishInterval: publishInterval,
		ctx:             ctx,
		ctxCancel:       cancel,
		log:             log,
	}, nil
}

// Start launches the cadence loops. The first acquisition fires one
// read interval after Start; run a cycle beforehand if the first
// publish should carry live values.
func (p *Poller) Start() error {
	p.mu.Lock()
	if p.readTicker != nil {
		p.mu.Unlock()
		return fmt.Errorf("poller already started")
	}
	p.readTicker = p.clk.Ticker(p.readInterval)
	p.publishTicker = p.clk.Ticker(p.publishInterval)
	readInterval, publishInterval := p.readInterval, p.publishInterval
	p.mu.Unlock()

	p.wg.Add(2)
	go p.readLoop()
	go p.publishLoop()

	p.log.Info("poller started",
		"read_interval", readInterval,
		"publish_interval", publishInterval)
	return nil
}

// Stop halts both cadences and waits for an in-flight cycle to finish.
// Safe to call more than once.
func (p *Poller) Stop() {
	p.stopOnce.Do(func() {
		p.ctxCancel()

		p.mu.Lock()
		if p.readTicker != nil {
			p.readTicker.Stop()
		}
		if p.publishTicker != nil {
			p.publishTicker.Stop()
		}
		p.mu.Unlock()

		p.wg.Wait()
		p.log.Info("poller stopped")
	})
}

// SetReadInterval adjusts the acquisition cadence. Non-positive values
// are ignored.
func (p *Poller) SetReadInterval(interval time.Duration) {
	if interval <= 0 {
		p.log.Warn("ignoring non-positive read interval", "interval", interval)
		return
	}

	p.mu.Lock()
	p.readInterval = interval
	if p.readTicker != nil {
		p.readTicker.Reset(interval)
	}
	p.mu.Unlock()

	p.log.Info("read interval set", "interval", interval)
}

// SetPublishInterval adjusts the publish cadence. Non-positive values
// are ignored.
func (p *Poller) SetPublishInterval(interval time.Duration) {
	if interval <= 0 {
		p.log.Warn("ignoring non-positive publish interval", "interval", interval)
		return
	}

	p.mu.Lock()
	p.publishInterval = interval
	if p.publishTicker != nil {
		p.publishTicker.Reset(interval)
	}
	p.mu.Unlock()

	p.log.Info("publish interval set", "interval", interval)
}

// ReadInterval returns the current acquisition cadence.
func (p *Poller) ReadInterval() time.Duration {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.readInterval
}

// PublishInterval returns the current publish cadence.
func (p *Poller) PublishInterval() time.Duration {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.publishInterval
}

func (p *Poller) readLoop() {
	defer p.wg.Done()
	for {
		select {
		case <-p.ctx.Done():
			return
		case <-p.readTicker.C:
			p.reader.ReadAll()
		}
	}
}

func (p *Poller) publishLoop() {
	defer p.wg.Done()
	for {
		select {
		case <-p.ctx.Done():
			return
		case <-p.publishTicker.C:
			p.sink.PublishAll()
		}
	}
}
