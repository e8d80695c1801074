// Package database implements the SQLite-backed store.
package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3" // sqlite3 driver
	"github.com/rs/zerolog"
)

// DB represents the database connection.
type DB struct {
	*sql.DB
	logger *zerolog.Logger
}

var (
	// ErrNotFound is returned when a row does not exist.
	ErrNotFound = errors.New("not found")
	// ErrSlotTaken is returned when an interval conflicts with an existing booking.
	ErrSlotTaken = errors.New("slot taken")
	// ErrVersionConflict is returned when a version-guarded update matched no row.
	ErrVersionConflict = errors.New("concurrent modification")
	// ErrDuplicate is returned when a uniqueness constraint would be violated.
	ErrDuplicate = errors.New("duplicate")
	// ErrCapacityFull is returned when an event has no remaining seats.
	ErrCapacityFull = errors.New("capacity full")
)

// New opens the database and creates tables if they don't exist.
// Transactions are opened immediate so the check-then-insert sequences in
// bookings.go and events.go hold the write lock for their whole span.
func New(path string, logger *zerolog.Logger) (*DB, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	dsn := path + "?_journal_mode=WAL&_synchronous=NORMAL&_busy_timeout=5000&_txlock=immediate&_foreign_keys=on"
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(time.Hour)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	instance := &DB{DB: db, logger: logger}

	if err := instance.createTables(); err != nil {
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	logger.Info().Str("path", path).Msg("database initialized")
	return instance, nil
}

func (db *DB) createTables() error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS profiles (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			email TEXT UNIQUE NOT NULL,
			password_hash TEXT NOT NULL DEFAULT '',
			full_name TEXT NOT NULL,
			phone TEXT,
			role TEXT NOT NULL DEFAULT 'member',
			apartment_number TEXT,
			building_name TEXT,
			is_active BOOLEAN NOT NULL DEFAULT 1,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,

		`CREATE TABLE IF NOT EXISTS facilities (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			name TEXT UNIQUE NOT NULL,
			description TEXT,
			capacity INTEGER NOT NULL DEFAULT 0,
			hourly_rate INTEGER NOT NULL DEFAULT 0,
			amenities TEXT,
			open_time INTEGER NOT NULL DEFAULT 480,
			close_time INTEGER NOT NULL DEFAULT 1200,
			min_duration INTEGER NOT NULL DEFAULT 30,
			max_duration INTEGER NOT NULL DEFAULT 0,
			is_active BOOLEAN NOT NULL DEFAULT 1,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,

		`CREATE TABLE IF NOT EXISTS bookings (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			facility_id INTEGER NOT NULL,
			requester_id INTEGER NOT NULL,
			date TEXT NOT NULL,
			start_minute INTEGER NOT NULL,
			end_minute INTEGER NOT NULL,
			purpose TEXT,
			status TEXT NOT NULL DEFAULT 'pending',
			total_amount INTEGER NOT NULL DEFAULT 0,
			decided_by INTEGER,
			decided_at DATETIME,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			updated_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			version INTEGER NOT NULL DEFAULT 1,
			FOREIGN KEY(facility_id) REFERENCES facilities(id),
			FOREIGN KEY(requester_id) REFERENCES profiles(id)
		)`,

		`CREATE TABLE IF NOT EXISTS visitors (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			host_id INTEGER NOT NULL,
			visitor_name TEXT NOT NULL,
			visitor_phone TEXT,
			purpose TEXT,
			expected_date TEXT NOT NULL,
			status TEXT NOT NULL DEFAULT 'pending',
			gate_pass TEXT UNIQUE NOT NULL,
			approved_by INTEGER,
			approved_at DATETIME,
			checked_in_by INTEGER,
			checked_in_at DATETIME,
			checked_out_at DATETIME,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			updated_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			FOREIGN KEY(host_id) REFERENCES profiles(id)
		)`,

		`CREATE TABLE IF NOT EXISTS events (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			title TEXT NOT NULL,
			description TEXT,
			event_date TEXT NOT NULL,
			start_minute INTEGER NOT NULL,
			end_minute INTEGER NOT NULL,
			location TEXT,
			max_attendees INTEGER NOT NULL DEFAULT 0,
			registration_fee INTEGER NOT NULL DEFAULT 0,
			created_by INTEGER NOT NULL,
			is_active BOOLEAN NOT NULL DEFAULT 1,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			updated_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			FOREIGN KEY(created_by) REFERENCES profiles(id)
		)`,

		`CREATE TABLE IF NOT EXISTS event_registrations (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			event_id INTEGER NOT NULL,
			user_id INTEGER NOT NULL,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			UNIQUE(event_id, user_id),
			FOREIGN KEY(event_id) REFERENCES events(id),
			FOREIGN KEY(user_id) REFERENCES profiles(id)
		)`,

		`CREATE TABLE IF NOT EXISTS maintenance_requests (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			user_id INTEGER NOT NULL,
			title TEXT NOT NULL,
			description TEXT NOT NULL,
			category TEXT NOT NULL,
			priority TEXT NOT NULL DEFAULT 'medium',
			status TEXT NOT NULL DEFAULT 'pending',
			assigned_to INTEGER,
			estimated_cost INTEGER NOT NULL DEFAULT 0,
			actual_cost INTEGER NOT NULL DEFAULT 0,
			scheduled_date TEXT,
			completed_at DATETIME,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			updated_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			FOREIGN KEY(user_id) REFERENCES profiles(id)
		)`,

		`CREATE TABLE IF NOT EXISTS payments (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			user_id INTEGER NOT NULL,
			amount INTEGER NOT NULL,
			payment_type TEXT NOT NULL,
			reference_id INTEGER NOT NULL DEFAULT 0,
			receipt TEXT UNIQUE NOT NULL,
			status TEXT NOT NULL DEFAULT 'pending',
			description TEXT,
			due_date TEXT,
			paid_at DATETIME,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			updated_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			FOREIGN KEY(user_id) REFERENCES profiles(id)
		)`,

		`CREATE TABLE IF NOT EXISTS polls (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			created_by INTEGER NOT NULL,
			title TEXT NOT NULL,
			description TEXT,
			options TEXT NOT NULL,
			is_multiple_choice BOOLEAN NOT NULL DEFAULT 0,
			end_date TEXT,
			is_active BOOLEAN NOT NULL DEFAULT 1,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			updated_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			FOREIGN KEY(created_by) REFERENCES profiles(id)
		)`,

		`CREATE TABLE IF NOT EXISTS poll_votes (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			poll_id INTEGER NOT NULL,
			user_id INTEGER NOT NULL,
			option_id TEXT NOT NULL,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			UNIQUE(poll_id, user_id, option_id),
			FOREIGN KEY(poll_id) REFERENCES polls(id),
			FOREIGN KEY(user_id) REFERENCES profiles(id)
		)`,

		`CREATE TABLE IF NOT EXISTS notifications (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			user_id INTEGER NOT NULL,
			title TEXT NOT NULL,
			message TEXT NOT NULL,
			type TEXT NOT NULL,
			reference_id INTEGER NOT NULL DEFAULT 0,
			is_read BOOLEAN NOT NULL DEFAULT 0,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			FOREIGN KEY(user_id) REFERENCES profiles(id)
		)`,

		`CREATE INDEX IF NOT EXISTS idx_bookings_facility_date ON bookings(facility_id, date, status)`,
		`CREATE INDEX IF NOT EXISTS idx_bookings_requester ON bookings(requester_id)`,
		`CREATE INDEX IF NOT EXISTS idx_bookings_status ON bookings(status)`,
		`CREATE INDEX IF NOT EXISTS idx_visitors_host ON visitors(host_id)`,
		`CREATE INDEX IF NOT EXISTS idx_visitors_date_status ON visitors(expected_date, status)`,
		`CREATE INDEX IF NOT EXISTS idx_visitors_gate_pass ON visitors(gate_pass)`,
		`CREATE INDEX IF NOT EXISTS idx_event_regs_event ON event_registrations(event_id)`,
		`CREATE INDEX IF NOT EXISTS idx_maintenance_user ON maintenance_requests(user_id)`,
		`CREATE INDEX IF NOT EXISTS idx_maintenance_status ON maintenance_requests(status)`,
		`CREATE INDEX IF NOT EXISTS idx_payments_user ON payments(user_id)`,
		`CREATE INDEX IF NOT EXISTS idx_payments_status ON payments(status)`,
		`CREATE INDEX IF NOT EXISTS idx_poll_votes_poll ON poll_votes(poll_id)`,
		`CREATE INDEX IF NOT EXISTS idx_notifications_user ON notifications(user_id, is_read)`,
		`CREATE INDEX IF NOT EXISTS idx_profiles_email ON profiles(email)`,
		`CREATE INDEX IF NOT EXISTS idx_profiles_role ON profiles(role)`,
	}

	for _, query := range queries {
		if _, err := db.Exec(query); err != nil {
			return fmt.Errorf("error executing query %s: %w", query, err)
		}
	}
	return nil
}

func (db *DB) Close() error {
	return db.DB.Close()
}

// dateKey normalizes a timestamp into the TEXT date format used by the schema.
func dateKey(t time.Time) string {
	return t.Format("2006-01-02")
}

func parseDateKey(s string) time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return time.Time{}
	}
	return t
}

// withTx runs fn inside a transaction, committing on nil error.
func (db *DB) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}
