package db

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
)

// NewSQLiteConnection opens the SQLite file at path, creating parent
// directories as needed. The pool is limited to one connection so every
// write is serialized through a single SQLite handle.
func NewSQLiteConnection(path string, busyTimeout time.Duration) (*Database, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	dsn := fmt.Sprintf(
		"%s?_pragma=busy_timeout(%d)&_pragma=journal_mode(WAL)&_time_format=sqlite",
		path, busyTimeout.Milliseconds(),
	)

	db, err := gorm.Open(sqlite.Open(dsn), gormConfig())
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}
	sqlDB.SetMaxOpenConns(1)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := sqlDB.PingContext(ctx); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("failed to ping sqlite database: %w", err)
	}

	slog.Debug("SQLite connection established", "path", path)

	return &Database{
		db:   db,
		name: path,
	}, nil
}

// Checkpoint flushes the write-ahead log into the main database file.
func (d *Database) Checkpoint(ctx context.Context) error {
	if err := d.db.WithContext(ctx).Exec("PRAGMA wal_checkpoint(TRUNCATE)").Error; err != nil {
		return fmt.Errorf("failed to checkpoint database: %w", err)
	}
	return nil
}

// sidecarSuffixes are the files SQLite keeps next to a WAL-mode database.
var sidecarSuffixes = []string{"", "-wal", "-shm"}

// MoveAside renames the database file and its WAL sidecars to
// <path>.backup-<UTC timestamp> and returns the new main file path.
// The connection must be closed first.
func MoveAside(path string, at time.Time) (string, error) {
	backup := fmt.Sprintf("%s.backup-%s", path, at.UTC().Format("20060102T150405Z"))

	for _, suffix := range sidecarSuffixes {
		src := path + suffix
		if _, err := os.Stat(src); os.IsNotExist(err) {
			continue
		}
		if err := os.Rename(src, backup+suffix); err != nil {
			return "", fmt.Errorf("failed to move %s aside: %w", src, err)
		}
	}

	return backup, nil
}
