package db

import (
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"
)

// InitDB opens/creates a SQLite DB file and ensures tables exist.
func InitDB(path string) (*sql.DB, error) {
	db, err := sql.Open(sqliteDriverName, path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite at %q: %w", path, err)
	}

	// Conservative pool settings for SQLite
	db.SetMaxOpenConns(1) // SQLite is not great with many writers
	db.SetMaxIdleConns(1)

	// Pragmas to improve reliability
	if _, err := db.Exec("PRAGMA journal_mode = WAL;"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("set PRAGMA journal_mode=WAL: %w", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys = ON;"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("set PRAGMA foreign_keys=ON: %w", err)
	}
	if _, err := db.Exec("PRAGMA busy_timeout = 5000;"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("set PRAGMA busy_timeout=5000: %w", err)
	}

	if err := ensureSchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}

	// Fail fast if the DB cannot be reached
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}

	return db, nil
}

const sqliteDriverName = "sqlite"

const schemaOutlets = `
CREATE TABLE IF NOT EXISTS outlets (
    id TEXT PRIMARY KEY,
    name TEXT NOT NULL,
    powerstrip_id TEXT NOT NULL,
    powered_on BOOLEAN NOT NULL DEFAULT 0,
    default_duration_s INTEGER NOT NULL DEFAULT 0,
    timer_active BOOLEAN NOT NULL DEFAULT 0,
    timer_duration_s INTEGER NOT NULL DEFAULT 0,
    timer_ends_at TIMESTAMP,
    timer_source TEXT NOT NULL DEFAULT '',
    updated_at TIMESTAMP NOT NULL
);
`

const schemaTimerLogs = `
CREATE TABLE IF NOT EXISTS timer_logs (
    id TEXT PRIMARY KEY,
    outlet_id TEXT NOT NULL,
    status TEXT NOT NULL,
    duration_s INTEGER NOT NULL,
    remaining_s INTEGER NOT NULL,
    source TEXT NOT NULL,
    note TEXT,
    created_at TIMESTAMP NOT NULL
);
`

const schemaGeofenceSettings = `
CREATE TABLE IF NOT EXISTS geofence_settings (
    powerstrip_id TEXT PRIMARY KEY,
    enabled BOOLEAN NOT NULL DEFAULT 0,
    home_lat REAL,
    home_lon REAL,
    radius_m REAL NOT NULL DEFAULT 0,
    auto_shutdown_s INTEGER NOT NULL DEFAULT 0,
    last_zone TEXT NOT NULL DEFAULT 'INSIDE',
    countdown_active BOOLEAN NOT NULL DEFAULT 0,
    countdown_started_at TIMESTAMP,
    countdown_ends_at TIMESTAMP,
    updated_at TIMESTAMP NOT NULL
);
`

const schemaAutoShutdownRequests = `
CREATE TABLE IF NOT EXISTS auto_shutdown_requests (
    id TEXT PRIMARY KEY,
    powerstrip_id TEXT NOT NULL,
    outlet_id TEXT,
    status TEXT NOT NULL,
    initiated_at TIMESTAMP NOT NULL,
    expires_at TIMESTAMP,
    note TEXT
);
`

const schemaNotifications = `
CREATE TABLE IF NOT EXISTS notifications (
    id TEXT PRIMARY KEY,
    outlet_id TEXT NOT NULL,
    message TEXT NOT NULL,
    severity TEXT NOT NULL,
    created_at TIMESTAMP NOT NULL
);
`

const schemaUsers = `
CREATE TABLE IF NOT EXISTS users (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    username TEXT UNIQUE NOT NULL,
    password_hash TEXT NOT NULL
);
`

func ensureSchema(db *sql.DB) error {
	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("begin schema transaction: %w", err)
	}
	defer func() {
		// In case of panic, rollback to avoid leaving an open transaction
		_ = tx.Rollback()
	}()

	for i, stmt := range []string{
		schemaOutlets,
		schemaTimerLogs,
		schemaGeofenceSettings,
		schemaAutoShutdownRequests,
		schemaNotifications,
		schemaUsers,
	} {
		if _, err := tx.Exec(stmt); err != nil {
			return fmt.Errorf("apply schema statement %d: %w", i+1, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schema transaction: %w", err)
	}
	return nil
}
