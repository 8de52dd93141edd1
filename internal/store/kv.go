package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// Config keys owned by the sync engine.
const (
	// KeyLastExportDate is the sync cursor: patients modified at or
	// after this timestamp are fetched on the next cycle.
	KeyLastExportDate = "LastExportDate"
	// KeyLastPatientCount is the number of patients imported by the
	// last successful cycle.
	KeyLastPatientCount = "LastPatientCount"
	// KeyLastSyncTime is when a sync cycle last ran, successful or not.
	KeyLastSyncTime = "LastSyncTime"
)

// SetConfig inserts or updates a config value.
func (s *Store) SetConfig(ctx context.Context, key, value string) error {
	query := `
	INSERT INTO Config (Key, Value)
	VALUES (?, ?)
	ON CONFLICT(Key) DO UPDATE SET Value = excluded.Value
	`
	if _, err := s.conn.ExecContext(ctx, query, key, value); err != nil {
		return fmt.Errorf("failed to set config %s: %w", key, err)
	}
	return nil
}

// GetConfig returns the value for key, or "" if the key is absent.
func (s *Store) GetConfig(ctx context.Context, key string) (string, error) {
	var value string
	err := s.conn.QueryRowContext(ctx, "SELECT Value FROM Config WHERE Key = ?", key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to get config %s: %w", key, err)
	}
	return value, nil
}

// GetConfigTime parses the value for key as a stored timestamp.
// Returns ok=false when the key is absent or unparseable.
func (s *Store) GetConfigTime(ctx context.Context, key string) (time.Time, bool, error) {
	value, err := s.GetConfig(ctx, key)
	if err != nil {
		return time.Time{}, false, err
	}
	if value == "" {
		return time.Time{}, false, nil
	}

	t, err := time.Parse(timeFormat, value)
	if err != nil {
		return time.Time{}, false, nil
	}
	return t, true, nil
}

// SetConfigTime stores a timestamp under key in the database layout.
func (s *Store) SetConfigTime(ctx context.Context, key string, t time.Time) error {
	return s.SetConfig(ctx, key, t.UTC().Format(timeFormat))
}
