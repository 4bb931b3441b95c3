package influxdb_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/nerrad567/gray-logic-onewire/internal/infrastructure/config"
	"github.com/nerrad567/gray-logic-onewire/internal/infrastructure/influxdb"
)

// These tests need a live InfluxDB and skip themselves when none
// answers. The config below matches docker-compose.yml.

func testConfig() config.InfluxDBConfig {
	return config.InfluxDBConfig{
		Enabled:       true,
		URL:           "http://127.0.0.1:8086",
		Token:         "glonewire-dev-token",
		Org:           "glonewire",
		Bucket:        "sensors",
		BatchSize:     100,
		FlushInterval: 1, // short flush for test feedback
	}
}

// connectOrSkip returns a connected client, skipping the test when no
// server is reachable. Close is registered on t.
func connectOrSkip(t *testing.T) *influxdb.Client {
	t.Helper()

	client, err := influxdb.Connect(context.Background(), testConfig())
	if err != nil {
		t.Skipf("InfluxDB not available (%v), skipping", err)
	}
	t.Cleanup(func() { client.Close() })
	return client
}

// trackErrors registers an error callback and returns a getter for the
// last async write error seen.
func trackErrors(client *influxdb.Client) func() error {
	var mu sync.Mutex
	var writeErr error
	client.SetOnError(func(err error) {
		mu.Lock()
		writeErr = err
		mu.Unlock()
	})
	return func() error {
		mu.Lock()
		defer mu.Unlock()
		return writeErr
	}
}

// flushAndCheck flushes pending writes and fails the test if the async
// error callback fired.
func flushAndCheck(t *testing.T, client *influxdb.Client, lastErr func() error) {
	t.Helper()

	client.Flush()
	time.Sleep(100 * time.Millisecond) // let the error drain goroutine run

	if err := lastErr(); err != nil {
		t.Errorf("async write error = %v", err)
	}
}

func TestConnectDisabled(t *testing.T) {
	cfg := testConfig()
	cfg.Enabled = false

	_, err := influxdb.Connect(context.Background(), cfg)
	if !errors.Is(err, influxdb.ErrDisabled) {
		t.Errorf("Connect() error = %v, want ErrDisabled", err)
	}
}

func TestConnectUnreachable(t *testing.T) {
	cfg := testConfig()
	cfg.URL = "http://127.0.0.1:59999" // nothing listens here

	_, err := influxdb.Connect(context.Background(), cfg)
	if !errors.Is(err, influxdb.ErrConnectionFailed) {
		t.Errorf("Connect() error = %v, want ErrConnectionFailed", err)
	}
}

func TestConnect(t *testing.T) {
	client := connectOrSkip(t)

	if !client.IsConnected() {
		t.Error("IsConnected() = false after Connect()")
	}

	t.Run("zero batch settings fall back to defaults", func(t *testing.T) {
		cfg := testConfig()
		cfg.BatchSize = 0
		cfg.FlushInterval = 0

		c, err := influxdb.Connect(context.Background(), cfg)
		if err != nil {
			t.Fatalf("Connect() error = %v", err)
		}
		defer c.Close()

		if !c.IsConnected() {
			t.Error("IsConnected() = false with defaulted batch settings")
		}
	})
}

func TestHealthCheck(t *testing.T) {
	client := connectOrSkip(t)

	t.Run("healthy", func(t *testing.T) {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := client.HealthCheck(ctx); err != nil {
			t.Errorf("HealthCheck() error = %v", err)
		}
	})

	t.Run("cancelled context", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		if err := client.HealthCheck(ctx); err == nil {
			t.Error("HealthCheck() with cancelled context expected error")
		}
	})
}

func TestWriteTemperature(t *testing.T) {
	client := connectOrSkip(t)
	lastErr := trackErrors(client)

	client.WriteTemperature("28FF4A2B00000031", "Boiler Flow", 54.3)
	flushAndCheck(t, client, lastErr)
}

func TestWriteTemperatureUnnamed(t *testing.T) {
	client := connectOrSkip(t)
	lastErr := trackErrors(client)

	// An unnamed sensor must not produce an empty name tag.
	client.WriteTemperature("28A1B2C300000042", "", 21.0)
	flushAndCheck(t, client, lastErr)
}

func TestWriteBusStats(t *testing.T) {
	client := connectOrSkip(t)
	lastErr := trackErrors(client)

	client.WriteBusStats(4, 12345, 17)
	flushAndCheck(t, client, lastErr)
}

func TestClose(t *testing.T) {
	cfg := testConfig()

	client, err := influxdb.Connect(context.Background(), cfg)
	if err != nil {
		t.Skipf("InfluxDB not available (%v), skipping", err)
	}

	client.WriteTemperature("28FF4A2B00000031", "close-test", 1.0)

	if err := client.Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}
	if client.IsConnected() {
		t.Error("IsConnected() = true after Close()")
	}

	// Writes after close are dropped, not panics.
	client.WriteTemperature("28FF4A2B00000031", "close-test", 2.0)
	client.Flush()
}
