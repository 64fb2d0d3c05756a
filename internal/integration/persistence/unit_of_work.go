// Package persistence implements repository interfaces for database operations.
package persistence

import (
	"context"

	"gorm.io/gorm"

	"github.com/finance-tracker/ledger/internal/application/adapter"
	domainerror "github.com/finance-tracker/ledger/internal/domain/error"
)

// unitOfWork implements the adapter.UnitOfWork interface on a GORM transaction.
type unitOfWork struct {
	conn Connection
}

// NewUnitOfWork creates a new unit of work bound to the connection.
func NewUnitOfWork(conn Connection) adapter.UnitOfWork {
	return &unitOfWork{
		conn: conn,
	}
}

// NewRepositories builds the repository set on a database handle.
func NewRepositories(db *gorm.DB) adapter.Repositories {
	return adapter.Repositories{
		Accounts:   NewAccountRepository(db),
		Users:      NewUserRepository(db),
		Categories: NewCategoryRepository(db),
		Entries:    NewLedgerEntryRepository(db),
	}
}

// Do runs fn inside a transaction. The store cannot be swapped while fn runs.
func (u *unitOfWork) Do(ctx context.Context, fn func(repos adapter.Repositories) error) error {
	var db *gorm.DB
	if pinner, ok := u.conn.(Pinner); ok {
		pinned, release := pinner.Pin()
		defer release()
		db = pinned
	} else {
		db = u.conn.DB()
	}

	if db == nil {
		return domainerror.ErrStoreNotOpen
	}

	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(NewRepositories(tx))
	})
}
