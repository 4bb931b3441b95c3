package database

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

const (
	// dirPerm keeps the database directory private to the service user.
	dirPerm = 0o750

	// filePerm keeps the database file private to the service user.
	filePerm = 0o600

	// msPerSecond converts the configured busy timeout to milliseconds.
	msPerSecond = 1000

	// pingTimeout bounds the connectivity probe in Open.
	pingTimeout = 5 * time.Second
)

// DB is the service's handle on its SQLite file. It embeds *sql.DB, so
// callers query through the standard methods; the wrapper adds opening,
// migrations and a health probe.
type DB struct {
	*sql.DB
	path string
}

// Config mirrors the database section of the YAML config.
type Config struct {
	// Path is the SQLite file location. The parent directory is created
	// on first run.
	Path string

	// WALMode switches the journal to write-ahead logging so reads do
	// not block the single writer.
	WALMode bool

	// BusyTimeout is how long a locked database is retried, in seconds.
	BusyTimeout int
}

// Open opens the SQLite database, creating file and directory as
// needed, and verifies it answers before returning. The pool is pinned
// to one connection: SQLite allows a single writer, and the row volume
// here (name mappings plus a handful of settings) never needs more.
func Open(ctx context.Context, cfg Config) (*DB, error) {
	if err := os.MkdirAll(filepath.Dir(cfg.Path), dirPerm); err != nil {
		return nil, fmt.Errorf("creating database directory: %w", err)
	}

	dsn := fmt.Sprintf("file:%s?_busy_timeout=%d&_foreign_keys=on",
		cfg.Path, cfg.BusyTimeout*msPerSecond)
	if cfg.WALMode {
		dsn += "&_journal_mode=WAL&_synchronous=NORMAL"
	}

	sqlDB, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	sqlDB.SetMaxOpenConns(1)
	sqlDB.SetMaxIdleConns(1)
	sqlDB.SetConnMaxLifetime(time.Hour)

	db := &DB{DB: sqlDB, path: cfg.Path}

	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		sqlDB.Close() //nolint:errcheck // already on the error path
		return nil, fmt.Errorf("verifying database connection: %w", err)
	}

	// The file may not exist until the first write; tightening the
	// permissions is best effort on a fresh database.
	_ = os.Chmod(cfg.Path, filePerm) //nolint:errcheck // see above

	return db, nil
}

// Close releases the connection. Safe to call on a DB whose connection
// was never established.
func (db *DB) Close() error {
	if db.DB == nil {
		return nil
	}
	if err := db.DB.Close(); err != nil {
		return fmt.Errorf("closing database: %w", err)
	}
	return nil
}

// Path returns the filesystem path of the database file.
func (db *DB) Path() string {
	return db.path
}

// HealthCheck verifies the database still answers queries. Used by the
// startup health check alongside the broker and history sink probes.
func (db *DB) HealthCheck(ctx context.Context) error {
	var one int
	if err := db.QueryRowContext(ctx, "SELECT 1").Scan(&one); err != nil {
		return fmt.Errorf("database health check failed: %w", err)
	}
	return nil
}

// BeginTx starts a transaction. The migration runner uses this so each
// migration applies atomically.
func (db *DB) BeginTx(ctx context.Context, opts *sql.TxOptions) (*sql.Tx, error) {
	tx, err := db.DB.BeginTx(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("starting transaction: %w", err)
	}
	return tx, nil
}
