package poller

import (
	"sync"
	"testing"
	"time"

	"github.com/benbjohnson/clock"

	"github.com/nerrad567/gray-logic-onewire/internal/publisher"
)

// The settings command path hands the poller to the publisher through
// this interface.
var _ publisher.IntervalControl = (*Poller)(nil)

type fakeReader struct {
	mu    sync.Mutex
	reads int
}

func (f *fakeReader) ReadAll() {
	f.mu.Lock()
	f.reads++
	f.mu.Unlock()
}

func (f *fakeReader) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.reads
}

type fakeSink struct {
	mu        sync.Mutex
	publishes int
}

func (f *fakeSink) PublishAll() {
	f.mu.Lock()
	f.publishes++
	f.mu.Unlock()
}

func (f *fakeSink) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.publishes
}

// waitForCount polls until get returns at least want, failing after a
// generous real-time deadline. The mock clock delivers ticks through
// channels, so the loop goroutines need a moment to consume them.
func waitForCount(t *testing.T, get func() int, want int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if get() >= want {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("count = %d, want at least %d", get(), want)
}

func newTestPoller(t *testing.T, mk *clock.Mock, read, publish time.Duration) (*Poller, *fakeReader, *fakeSink) {
	t.Helper()

	reader := &fakeReader{}
	sink := &fakeSink{}
	p, err := New(Options{
		Reader:          reader,
		Sink:            sink,
		ReadInterval:    read,
		PublishInterval: publish,
		Clock:           mk,
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	t.Cleanup(p.Stop)
	return p, reader, sink
}

func TestNew_Validation(t *testing.T) {
	if _, err := New(Options{Sink: &fakeSink{}}); err == nil {
		t.Error("New() without reader, want error")
	}
	if _, err := New(Options{Reader: &fakeReader{}}); err == nil {
		t.Error("New() without sink, want error")
	}
}

func TestNew_DefaultIntervals(t *testing.T) {
	p, err := New(Options{Reader: &fakeReader{}, Sink: &fakeSink{}})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer p.Stop()

	if got := p.ReadInterval(); got != DefaultReadInterval {
		t.Errorf("ReadInterval() = %v, want %v", got, DefaultReadInterval)
	}
	if got := p.PublishInterval(); got != DefaultPublishInterval {
		t.Errorf("PublishInterval() = %v, want %v", got, DefaultPublishInterval)
	}
}

func TestReadCadence(t *testing.T) {
	mk := clock.NewMock()
	p, reader, sink := newTestPoller(t, mk, 10*time.Second, time.Hour)

	if err := p.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	mk.Add(10 * time.Second)
	waitForCount(t, reader.count, 1)

	mk.Add(10 * time.Second)
	waitForCount(t, reader.count, 2)

	if got := sink.count(); got != 0 {
		t.Errorf("publishes = %d, want 0", got)
	}
}

func TestPublishCadence(t *testing.T) {
	mk := clock.NewMock()
	p, reader, sink := newTestPoller(t, mk, time.Hour, 30*time.Second)

	if err := p.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	mk.Add(30 * time.Second)
	waitForCount(t, sink.count, 1)

	mk.Add(30 * time.Second)
	waitForCount(t, sink.count, 2)

	if got := reader.count(); got != 0 {
		t.Errorf("reads = %d, want 0", got)
	}
}

func TestCadencesRunIndependently(t *testing.T) {
	mk := clock.NewMock()
	p, reader, sink := newTestPoller(t, mk, 10*time.Second, 25*time.Second)

	if err := p.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	// Advance 50s in 5s steps: reads at 10,20,30,40,50 and publishes
	// at 25,50. Stepping keeps each ticker to at most one pending tick.
	for i := 1; i <= 10; i++ {
		mk.Add(5 * time.Second)
		elapsed := 5 * i
		waitForCount(t, reader.count, elapsed/10)
		waitForCount(t, sink.count, elapsed/25)
	}

	if got := reader.count(); got != 5 {
		t.Errorf("reads = %d, want 5", got)
	}
	if got := sink.count(); got != 2 {
		t.Errorf("publishes = %d, want 2", got)
	}
}

func TestSetReadInterval(t *testing.T) {
	mk := clock.NewMock()
	p, reader, _ := newTestPoller(t, mk, time.Hour, time.Hour)

	if err := p.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	p.SetReadInterval(5 * time.Second)
	if got := p.ReadInterval(); got != 5*time.Second {
		t.Errorf("ReadInterval() = %v, want 5s", got)
	}

	mk.Add(5 * time.Second)
	waitForCount(t, reader.count, 1)
}

func TestSetPublishInterval(t *testing.T) {
	mk := clock.NewMock()
	p, _, sink := newTestPoller(t, mk, time.Hour, time.Hour)

	if err := p.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	p.SetPublishInterval(5 * time.Second)

	mk.Add(5 * time.Second)
	waitForCount(t, sink.count, 1)
}

func TestSetInterval_IgnoresNonPositive(t *testing.T) {
	mk := clock.NewMock()
	p, _, _ := newTestPoller(t, mk, 10*time.Second, 60*time.Second)

	p.SetReadInterval(0)
	p.SetPublishInterval(-time.Second)

	if got := p.ReadInterval(); got != 10*time.Second {
		t.Errorf("ReadInterval() = %v, want 10s", got)
	}
	if got := p.PublishInterval(); got != 60*time.Second {
		t.Errorf("PublishInterval() = %v, want 60s", got)
	}
}

func TestSetIntervalBeforeStart(t *testing.T) {
	mk := clock.NewMock()
	p, reader, _ := newTestPoller(t, mk, time.Hour, time.Hour)

	// No ticker exists yet; the new value must stick and apply at Start
	p.SetReadInterval(5 * time.Second)

	if err := p.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	mk.Add(5 * time.Second)
	waitForCount(t, reader.count, 1)
}

func TestStartTwice(t *testing.T) {
	mk := clock.NewMock()
	p, _, _ := newTestPoller(t, mk, time.Hour, time.Hour)

	if err := p.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if err := p.Start(); err == nil {
		t.Error("second Start() expected error, got nil")
	}
}

func TestStop(t *testing.T) {
	mk := clock.NewMock()
	p, reader, _ := newTestPoller(t, mk, 10*time.Second, time.Hour)

	if err := p.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	mk.Add(10 * time.Second)
	waitForCount(t, reader.count, 1)

	p.Stop()

	mk.Add(10 * time.Minute)
	time.Sleep(10 * time.Millisecond)
	if got := reader.count(); got != 1 {
		t.Errorf("reads after Stop = %d, want 1", got)
	}

	// Idempotent
	p.Stop()
}

func TestStopWithoutStart(t *testing.T) {
	p, _, _ := newTestPoller(t, clock.NewMock(), time.Hour, time.Hour)
	p.Stop()
}
