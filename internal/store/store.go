// Package store provides the local SQLite database for the PMS bridge.
//
// The database holds four tables: Patients and Insurance synced from
// the PMS API, Reports tracking files through the import pipeline, and
// Config as a key/value scratchpad (sync cursor, counters).
//
// The database runs in embedded mode with WAL so the sync engine and
// the report pipeline can touch it concurrently without stepping on
// each other.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"
)

// timeFormat is the timestamp layout used for every column in the
// database, matching the PMS export format.
const timeFormat = "2006-01-02 15:04:05"

// Store wraps the SQLite connection with bridge-specific queries.
type Store struct {
	conn *sql.DB
	path string
}

// Open creates a database connection at the specified path.
//
// The database is opened in embedded mode with WAL. If it doesn't
// exist it is created; call InitSchema afterwards to create tables.
// The caller MUST call Close() when done.
func Open(path string) (*Store, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	conn, err := sql.Open("sqlite3", fmt.Sprintf("file:%s", path))
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := conn.Ping(); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	conn.SetMaxOpenConns(10)
	conn.SetMaxIdleConns(2)
	conn.SetConnMaxLifetime(5 * time.Minute)

	s := &Store{conn: conn, path: path}

	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA foreign_keys=ON",
	} {
		if _, err := s.conn.Exec(pragma); err != nil {
			_ = s.Close()
			return nil, fmt.Errorf("failed to apply %q: %w", pragma, err)
		}
	}

	return s, nil
}

// RawDB returns the underlying sql.DB connection.
func (s *Store) RawDB() *sql.DB {
	return s.conn
}

// Close closes the database connection after checkpointing the WAL.
func (s *Store) Close() error {
	if s.conn == nil {
		return nil
	}

	if _, err := s.conn.Exec("PRAGMA wal_checkpoint(TRUNCATE)"); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: failed to checkpoint WAL: %v\n", err)
	}

	if err := s.conn.Close(); err != nil {
		return fmt.Errorf("failed to close database: %w", err)
	}

	s.conn = nil
	return nil
}

// InitSchema creates the database schema if it doesn't exist.
// Idempotent - safe to call on every startup.
func (s *Store) InitSchema(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS Patients (
		Id INTEGER PRIMARY KEY,
		FirstName TEXT NOT NULL,
		LastName TEXT NOT NULL,
		Phone TEXT NOT NULL,
		Email TEXT,
		Address TEXT NOT NULL,
		City TEXT NOT NULL,
		State TEXT NOT NULL,
		ZipCode TEXT NOT NULL,
		BirthDate TEXT NOT NULL,
		ReportReady BOOLEAN NOT NULL DEFAULT 0
	);

	CREATE TABLE IF NOT EXISTS Insurance (
		Id INTEGER PRIMARY KEY AUTOINCREMENT,
		PatientId INTEGER NOT NULL,
		CarrierName TEXT NOT NULL,
		PolicyNumber TEXT NOT NULL,
		GroupNumber TEXT,
		PolicyholderName TEXT NOT NULL,
		Relationship TEXT NOT NULL,
		Priority TEXT NOT NULL,
		IsActive BOOLEAN NOT NULL DEFAULT 1,
		CreatedAt TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP,
		FOREIGN KEY (PatientId) REFERENCES Patients (Id),
		UNIQUE(PatientId, CarrierName, PolicyNumber)
	);

	CREATE TABLE IF NOT EXISTS Reports (
		Id INTEGER PRIMARY KEY AUTOINCREMENT,
		FileName TEXT NOT NULL,
		OriginalPath TEXT NOT NULL,
		PatientName TEXT,
		DestinationPath TEXT,
		Status TEXT NOT NULL,
		ErrorMessage TEXT,
		CreatedAt TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP,
		ProcessedAt TEXT,
		ImportedAt TEXT,
		CompletedAt TEXT
	);

	CREATE TABLE IF NOT EXISTS Config (
		Key TEXT PRIMARY KEY,
		Value TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_reports_status ON Reports(Status);
	CREATE INDEX IF NOT EXISTS idx_insurance_patient ON Insurance(PatientId);
	`

	if _, err := s.conn.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to initialize schema: %w", err)
	}

	return nil
}

// nullStringToTime converts a nullable SQL string to a time pointer.
func nullStringToTime(ns sql.NullString) *time.Time {
	if !ns.Valid {
		return nil
	}
	t, err := time.Parse(timeFormat, ns.String)
	if err != nil {
		return nil
	}
	return &t
}
