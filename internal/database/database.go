package database

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog"
)

// DB wraps the sqlite connection pool. The UNIQUE(vendor_id, slot_start_utc)
// index on slot_claims is the only double-booking protection in the system;
// everything above it is advisory.
type DB struct {
	*sql.DB
	logger *zerolog.Logger
}

func NewDB(path string, logger *zerolog.Logger) (*DB, error) {
	dsn := path
	if path != ":memory:" {
		dir := filepath.Dir(path)
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
		dsn = path + "?_busy_timeout=5000&_journal_mode=WAL&_foreign_keys=on"
	}

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if path == ":memory:" {
		// Each pool connection would get its own in-memory database.
		db.SetMaxOpenConns(1)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := createTables(db); err != nil {
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	logger.Info().Str("path", path).Msg("database initialized")
	return &DB{DB: db, logger: logger}, nil
}

func createTables(db *sql.DB) error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS vendors (
            id INTEGER PRIMARY KEY,
            name TEXT NOT NULL,
            tz_offset_minutes INTEGER NOT NULL DEFAULT 60
        )`,

		`CREATE TABLE IF NOT EXISTS bookings (
            id TEXT PRIMARY KEY,
            vendor_id INTEGER NOT NULL REFERENCES vendors(id),
            buyer_id TEXT NOT NULL,
            start_time_utc TEXT NOT NULL,
            end_time_utc TEXT NOT NULL,
            status TEXT NOT NULL DEFAULT 'pending',
            created_at TEXT NOT NULL
        )`,

		// The correctness-critical invariant: at most one claim per
		// (vendor, instant) can ever exist.
		`CREATE TABLE IF NOT EXISTS slot_claims (
            id INTEGER PRIMARY KEY AUTOINCREMENT,
            booking_id TEXT NOT NULL REFERENCES bookings(id),
            vendor_id INTEGER NOT NULL REFERENCES vendors(id),
            slot_start_utc TEXT NOT NULL,
            UNIQUE(vendor_id, slot_start_utc)
        )`,

		`CREATE TABLE IF NOT EXISTS payments (
            id INTEGER PRIMARY KEY AUTOINCREMENT,
            booking_id TEXT NOT NULL REFERENCES bookings(id),
            ref TEXT NOT NULL UNIQUE,
            status TEXT NOT NULL DEFAULT 'pending',
            raw_event_json TEXT
        )`,

		`CREATE TABLE IF NOT EXISTS idempotency_keys (
            key TEXT PRIMARY KEY,
            scope TEXT NOT NULL,
            status_code INTEGER NOT NULL,
            response_body TEXT NOT NULL,
            created_at TEXT NOT NULL
        )`,

		`CREATE TABLE IF NOT EXISTS processed_events (
            reference TEXT PRIMARY KEY,
            processed_at TEXT NOT NULL
        )`,

		`CREATE INDEX IF NOT EXISTS idx_bookings_vendor_id ON bookings(vendor_id)`,
		`CREATE INDEX IF NOT EXISTS idx_bookings_status ON bookings(status)`,
		`CREATE INDEX IF NOT EXISTS idx_payments_booking_id ON payments(booking_id)`,
	}

	for _, query := range queries {
		if _, err := db.Exec(query); err != nil {
			return fmt.Errorf("error executing query %s: %w", query, err)
		}
	}
	return nil
}

// instantLayout is fixed-width millisecond UTC, so stored instants compare
// correctly both for the uniqueness constraint and for lexicographic range
// scans.
const instantLayout = "2006-01-02T15:04:05.000Z"

func formatInstant(t time.Time) string {
	return t.UTC().Format(instantLayout)
}

func parseInstant(s string) (time.Time, error) {
	t, err := time.Parse(instantLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to parse instant %s: %w", s, err)
	}
	return t.UTC(), nil
}

func (db *DB) Close() error {
	return db.DB.Close()
}
