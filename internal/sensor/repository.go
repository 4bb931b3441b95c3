package sensor

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/nerrad567/gray-logic-onewire/internal/ds18b20"
)

// Settings-table keys. Settings are stored as strings and parsed on load.
const (
	settingResolution      = "resolution"
	settingReadInterval    = "read_interval"
	settingPublishInterval = "publish_interval"
)

// Store defines the interface for sensor persistence operations.
// This abstraction allows for different implementations (SQLite, mock, etc.)
// and enables unit testing without database dependencies.
//
// All Load methods treat absence as a zero value rather than an error, so
// callers can fall back to their configured defaults on a fresh database.
type Store interface {
	// LoadName retrieves the display name persisted for a sensor address.
	// Returns the empty string when no name has been saved.
	LoadName(ctx context.Context, addr string) (string, error)

	// SaveName persists a display name for a sensor address, replacing
	// any previous one. An empty name is stored as-is and clears the
	// display name without forgetting the sensor.
	SaveName(ctx context.Context, addr, name string) error

	// LoadResolution retrieves the persisted conversion resolution in
	// bits, or zero when none has been saved yet.
	LoadResolution(ctx context.Context) (int, error)

	// SaveResolution persists the conversion resolution so it survives
	// a restart. Returns ErrInvalidResolution for values outside 9-12.
	SaveResolution(ctx context.Context, bits int) error

	// LoadReadInterval retrieves the persisted acquisition interval, or
	// zero when none has been saved yet.
	LoadReadInterval(ctx context.Context) (time.Duration, error)

	// SaveReadInterval persists the acquisition interval.
	SaveReadInterval(ctx context.Context, interval time.Duration) error

	// LoadPublishInterval retrieves the persisted publish interval, or
	// zero when none has been saved yet.
	LoadPublishInterval(ctx context.Context) (time.Duration, error)

	// SavePublishInterval persists the publish interval.
	SavePublishInterval(ctx context.Context, interval time.Duration) error
}

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore creates a new SQLite-backed store.
// The db parameter should be an open SQLite connection with the schema
// already migrated.
func NewSQLiteStore(db *sql.DB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

// LoadName retrieves the display name persisted for a sensor address.
func (s *SQLiteStore) LoadName(ctx context.Context, addr string) (string, error) {
	query := `SELECT display_name FROM sensor_names WHERE address = ?`

	var name string

	err := s.db.QueryRowContext(ctx, query, addr).Scan(&name)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("querying display name: %w", err)
	}

	return name, nil
}

// SaveName persists a display name for a sensor address.
func (s *SQLiteStore) SaveName(ctx context.Context, addr, name string) error {
	now := time.Now().UTC().Format(time.RFC3339)

	query := `
		INSERT INTO sensor_names (address, display_name, created_at, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(address) DO UPDATE SET
			display_name = excluded.display_name,
			updated_at = excluded.updated_at
	`

	if _, err := s.db.ExecContext(ctx, query, addr, name, now, now); err != nil {
		return fmt.Errorf("saving display name: %w", err)
	}

	return nil
}

// LoadResolution retrieves the persisted conversion resolution in bits.
func (s *SQLiteStore) LoadResolution(ctx context.Context) (int, error) {
	value, err := s.loadSetting(ctx, settingResolution)
	if err != nil || value == "" {
		return 0, err
	}

	bits, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("parsing resolution setting %q: %w", value, err)
	}

	return bits, nil
}

// SaveResolution persists the conversion resolution.
func (s *SQLiteStore) SaveResolution(ctx context.Context, bits int) error {
	if !ds18b20.Resolution(bits).Valid() {
		return fmt.Errorf("%w: %d bits", ds18b20.ErrInvalidResolution, bits)
	}

	return s.saveSetting(ctx, settingResolution, strconv.Itoa(bits))
}

// LoadReadInterval retrieves the persisted acquisition interval.
func (s *SQLiteStore) LoadReadInterval(ctx context.Context) (time.Duration, error) {
	return s.loadInterval(ctx, settingReadInterval)
}

// SaveReadInterval persists the acquisition interval.
func (s *SQLiteStore) SaveReadInterval(ctx context.Context, interval time.Duration) error {
	return s.saveInterval(ctx, settingReadInterval, interval)
}

// LoadPublishInterval retrieves the persisted publish interval.
func (s *SQLiteStore) LoadPublishInterval(ctx context.Context) (time.Duration, error) {
	return s.loadInterval(ctx, settingPublishInterval)
}

// SavePublishInterval persists the publish interval.
func (s *SQLiteStore) SavePublishInterval(ctx context.Context, interval time.Duration) error {
	return s.saveInterval(ctx, settingPublishInterval, interval)
}

// loadInterval reads a duration-valued setting. Durations are stored in
// time.Duration string form ("10s", "1m30s").
func (s *SQLiteStore) loadInterval(ctx context.Context, key string) (time.Duration, error) {
	value, err := s.loadSetting(ctx, key)
	if err != nil || value == "" {
		return 0, err
	}

	interval, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("parsing %s setting %q: %w", key, value, err)
	}

	return interval, nil
}

func (s *SQLiteStore) saveInterval(ctx context.Context, key string, interval time.Duration) error {
	if interval <= 0 {
		return fmt.Errorf("%s must be positive, got %v", key, interval)
	}

	return s.saveSetting(ctx, key, interval.String())
}

// loadSetting reads a raw setting value. Returns the empty string when the
// key has never been saved.
func (s *SQLiteStore) loadSetting(ctx context.Context, key string) (string, error) {
	query := `SELECT value FROM settings WHERE key = ?`

	var value string

	err := s.db.QueryRowContext(ctx, query, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("querying %s setting: %w", key, err)
	}

	return value, nil
}

func (s *SQLiteStore) saveSetting(ctx context.Context, key, value string) error {
	now := time.Now().UTC().Format(time.RFC3339)

	query := `
		INSERT INTO settings (key, value, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET
			value = excluded.value,
			updated_at = excluded.updated_at
	`

	if _, err := s.db.ExecContext(ctx, query, key, value, now); err != nil {
		return fmt.Errorf("saving %s setting: %w", key, err)
	}

	return nil
}
