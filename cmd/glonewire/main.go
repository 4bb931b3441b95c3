// Gray Logic 1-Wire - Sensor Acquisition Service
//
// This is the main entry point for the Gray Logic 1-Wire service, a
// DS18B20 temperature acquisition daemon designed for:
//   - Unattended multi-year operation on small boards
//   - Offline-first operation (broker outages never stop acquisition)
//   - Stable sensor identity via persisted name mappings
//   - Home Assistant integration over MQTT discovery
//
// Readings flow bus -> driver -> registry -> MQTT, with optional
// InfluxDB history. Sensor names, resolution, and cadences persist in
// SQLite and survive restarts.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/nerrad567/gray-logic-onewire/migrations"

	"github.com/nerrad567/gray-logic-onewire/internal/ds18b20"
	"github.com/nerrad567/gray-logic-onewire/internal/infrastructure/config"
	"github.com/nerrad567/gray-logic-onewire/internal/infrastructure/database"
	"github.com/nerrad567/gray-logic-onewire/internal/infrastructure/influxdb"
	"github.com/nerrad567/gray-logic-onewire/internal/infrastructure/logging"
	"github.com/nerrad567/gray-logic-onewire/internal/infrastructure/mqtt"
	"github.com/nerrad567/gray-logic-onewire/internal/poller"
	"github.com/nerrad567/gray-logic-onewire/internal/publisher"
	"github.com/nerrad567/gray-logic-onewire/internal/sensor"
)

// Stamped at build time:
//
//	go build -ldflags "-X main.version=1.0.0 -X main.commit=abc123"
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

const defaultConfigPath = "configs/config.yaml"

func main() {
	// SIGINT/SIGTERM cancel the context; everything below shuts down
	// through its deferred Close.
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run wires the service together and blocks until ctx is cancelled.
// Split from main so failures come back as errors rather than exits.
func run(ctx context.Context) error {
	// Bootstrap logger until config says otherwise.
	log := logging.Default()
	log.Info("starting Gray Logic 1-Wire",
		"version", version,
		"commit", commit,
		"build_date", date,
	)

	configPath := getConfigPath()
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	log.Info("configuration loaded", "path", configPath)

	log = logging.New(cfg.Logging, version)
	log.Info("logger initialised",
		"level", cfg.Logging.Level,
		"format", cfg.Logging.Format,
	)

	db, err := database.Open(ctx, database.Config{
		Path:        cfg.Database.Path,
		WALMode:     cfg.Database.WALMode,
		BusyTimeout: cfg.Database.BusyTimeout,
	})
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer func() {
		log.Info("closing database")
		if closeErr := db.Close(); closeErr != nil {
			log.Error("error closing database", "error", closeErr)
		}
	}()
	log.Info("database connected", "path", cfg.Database.Path)

	if migrateErr := db.Migrate(ctx); migrateErr != nil {
		return fmt.Errorf("running migrations: %w", migrateErr)
	}
	log.Info("database migrations complete")

	// Settings store: persisted values take precedence over the config
	// file, so changes made over MQTT survive a restart.
	store := sensor.NewSQLiteStore(db.DB)
	resolution, readInterval, publishInterval := loadStoredSettings(ctx, cfg, store, log)

	bus, err := ds18b20.OpenBus(cfg.Bus.Name)
	if err != nil {
		return fmt.Errorf("opening 1-wire bus: %w", err)
	}
	defer func() {
		log.Info("closing 1-wire bus")
		if closeErr := bus.Close(); closeErr != nil {
			log.Error("error closing 1-wire bus", "error", closeErr)
		}
	}()
	log.Info("1-wire bus open", "bus", cfg.Bus.Name)

	driver, err := ds18b20.NewDriver(ds18b20.DriverOptions{
		Bus:        bus,
		Resolution: resolution,
		Logger:     log,
	})
	if err != nil {
		return fmt.Errorf("creating bus driver: %w", err)
	}

	registry, err := sensor.NewRegistry(sensor.RegistryOptions{
		Driver:     driver,
		Store:      store,
		MaxDevices: cfg.Bus.MaxDevices,
		Logger:     log,
	})
	if err != nil {
		return fmt.Errorf("creating sensor registry: %w", err)
	}

	// Initial scan and acquisition cycle, so the first publish carries
	// live values instead of placeholders.
	if cfg.Acquisition.ScanOnStart {
		if initErr := registry.Init(ctx); initErr != nil {
			return fmt.Errorf("scanning 1-wire bus: %w", initErr)
		}
		log.Info("initial bus scan complete",
			"sensors", registry.Count(),
			"truncated", registry.Truncated(),
		)
		registry.ReadAll()
	} else {
		log.Info("initial bus scan disabled, waiting for rescan command")
	}

	mqttClient, err := mqtt.Connect(cfg.MQTT)
	if err != nil {
		return fmt.Errorf("connecting to MQTT: %w", err)
	}
	defer func() {
		log.Info("disconnecting from MQTT")
		if closeErr := mqttClient.Close(); closeErr != nil {
			log.Error("error closing MQTT", "error", closeErr)
		}
	}()
	log.Info("MQTT connected",
		"broker", fmt.Sprintf("%s:%d", cfg.MQTT.Broker.Host, cfg.MQTT.Broker.Port),
		"client_id", cfg.MQTT.Broker.ClientID,
	)

	mqttClient.SetLogger(log)
	mqttClient.SetOnConnect(func() {
		log.Info("MQTT reconnected")
	})
	mqttClient.SetOnDisconnect(func(err error) {
		log.Warn("MQTT disconnected", "error", err)
	})

	// History is optional; a missing InfluxDB config just means MQTT-only.
	var influxClient *influxdb.Client
	if cfg.InfluxDB.Enabled {
		influxClient, err = influxdb.Connect(ctx, cfg.InfluxDB)
		if err != nil {
			return fmt.Errorf("connecting to InfluxDB: %w", err)
		}
		defer func() {
			log.Info("closing InfluxDB connection")
			if closeErr := influxClient.Close(); closeErr != nil {
				log.Error("error closing InfluxDB", "error", closeErr)
			}
		}()
		log.Info("InfluxDB connected",
			"url", cfg.InfluxDB.URL,
			"org", cfg.InfluxDB.Org,
			"bucket", cfg.InfluxDB.Bucket,
		)

		influxClient.SetOnError(func(err error) {
			log.Error("InfluxDB write error", "error", err)
		})
	} else {
		log.Info("InfluxDB disabled")
	}

	// Publisher: discovery, state, and inbound command handling.
	pubOpts := publisher.Options{
		Client:     mqttClient,
		Topics:     mqttClient.Topics(),
		Source:     registry,
		Bus:        driver,
		Store:      store,
		QoS:        byte(cfg.MQTT.QoS), // #nosec G115 -- validated 0-2
		DeviceName: cfg.Site.Name,
		SWVersion:  version,
		Logger:     log,
	}
	if influxClient != nil {
		pubOpts.History = influxClient
	}
	pub, err := publisher.New(pubOpts)
	if err != nil {
		return fmt.Errorf("creating publisher: %w", err)
	}
	if startErr := pub.Start(); startErr != nil {
		return fmt.Errorf("starting publisher: %w", startErr)
	}
	defer func() {
		log.Info("stopping publisher")
		pub.Stop()
	}()
	log.Info("publisher started", "base_topic", cfg.MQTT.BaseTopic)

	poll, err := poller.New(poller.Options{
		Reader:          registry,
		Sink:            pub,
		ReadInterval:    readInterval,
		PublishInterval: publishInterval,
		Logger:          log,
	})
	if err != nil {
		return fmt.Errorf("creating poller: %w", err)
	}
	if startErr := poll.Start(); startErr != nil {
		return fmt.Errorf("starting poller: %w", startErr)
	}
	defer func() {
		log.Info("stopping poller")
		poll.Stop()
	}()
	// Settings commands adjust the live cadences through the poller.
	pub.SetIntervalControl(poll)

	if err := healthCheck(ctx, db, mqttClient, influxClient); err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	log.Info("all health checks passed")

	log.Info("initialisation complete, waiting for shutdown signal")

	<-ctx.Done()

	log.Info("shutdown signal received, cleaning up")

	// Deferred Close() calls unwind in reverse order: poller first
	// (stops the cadences), then publisher, InfluxDB (flushes pending
	// writes), MQTT (will flips availability to offline), the bus, and
	// finally the database.

	log.Info("Gray Logic 1-Wire stopped")
	return nil
}

// getConfigPath honours GLONEWIRE_CONFIG, falling back to the default.
func getConfigPath() string {
	if path := os.Getenv("GLONEWIRE_CONFIG"); path != "" {
		return path
	}
	return defaultConfigPath
}

// loadStoredSettings resolves the effective resolution and cadences.
// Config file values are the baseline; values persisted in the settings
// store override them, mirroring how the MQTT settings command saved
// them. Store errors fall back to the config file with a warning, since
// a damaged settings row should not stop the service.
func loadStoredSettings(
	ctx context.Context,
	cfg *config.Config,
	store *sensor.SQLiteStore,
	log *logging.Logger,
) (ds18b20.Resolution, time.Duration, time.Duration) {
	resolution := ds18b20.Resolution(cfg.Bus.Resolution)
	readInterval := cfg.GetReadInterval()
	publishInterval := cfg.GetPublishInterval()

	if bits, err := store.LoadResolution(ctx); err != nil {
		log.Warn("loading stored resolution", "error", err)
	} else if bits != 0 {
		resolution = ds18b20.Resolution(bits)
		log.Info("using stored resolution", "bits", bits)
	}

	if interval, err := store.LoadReadInterval(ctx); err != nil {
		log.Warn("loading stored read interval", "error", err)
	} else if interval != 0 {
		readInterval = interval
		log.Info("using stored read interval", "interval", interval)
	}

	if interval, err := store.LoadPublishInterval(ctx); err != nil {
		log.Warn("loading stored publish interval", "error", err)
	} else if interval != 0 {
		publishInterval = interval
		log.Info("using stored publish interval", "interval", interval)
	}

	return resolution, readInterval, publishInterval
}

// healthCheck probes every connected backend once at startup. influxClient
// may be nil when history is disabled. Bus health is implicit: the
// initial scan and acquisition cycle already exercised the 1-Wire
// master.
func healthCheck(ctx context.Context, db *database.DB, mqttClient *mqtt.Client, influxClient *influxdb.Client) error {
	if err := db.HealthCheck(ctx); err != nil {
		return fmt.Errorf("database: %w", err)
	}

	if err := mqttClient.HealthCheck(ctx); err != nil {
		return fmt.Errorf("mqtt: %w", err)
	}

	if influxClient != nil {
		if err := influxClient.HealthCheck(ctx); err != nil {
			return fmt.Errorf("influxdb: %w", err)
		}
	}

	return nil
}
