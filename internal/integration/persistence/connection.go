// Package persistence implements repository interfaces for database operations.
package persistence

import (
	"errors"
	"strings"
	"time"

	"gorm.io/gorm"
)

// Connection supplies the current ledger database handle. The handle may
// change between calls when the store is rebuilt.
type Connection interface {
	DB() *gorm.DB
}

// Pinner is implemented by connections that can hold the current handle
// stable while a unit of work runs.
type Pinner interface {
	// Pin returns the current handle and a release function. The handle is
	// not swapped until release is called. It returns a nil handle when the
	// store is closed.
	Pin() (*gorm.DB, func())
}

type staticConnection struct {
	db *gorm.DB
}

// NewConnection wraps a fixed database handle.
func NewConnection(db *gorm.DB) Connection {
	return &staticConnection{db: db}
}

func (c *staticConnection) DB() *gorm.DB {
	return c.db
}

// IsDuplicateKeyError reports whether err is a unique constraint violation.
func IsDuplicateKeyError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") ||
		strings.Contains(msg, "duplicate key value")
}

// softDelete marks matching rows deleted and bumps updated_at so the
// deletion replicates as the newest write.
func softDelete(db *gorm.DB, value interface{}, query string, args ...interface{}) *gorm.DB {
	now := time.Now().UTC()
	return db.Model(value).
		Where(query, args...).
		Updates(map[string]interface{}{
			"deleted_at": now,
			"updated_at": now,
		})
}
