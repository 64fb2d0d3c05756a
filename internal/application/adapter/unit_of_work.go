// Package adapter defines interfaces that will be implemented in the integration layer.
package adapter

import "context"

// Repositories groups the repositories bound to one unit of work.
type Repositories struct {
	Accounts   AccountRepository
	Users      UserRepository
	Categories CategoryRepository
	Entries    LedgerEntryRepository
}

// UnitOfWork runs a function atomically against the ledger store.
// fn must only use the repositories it is given; the work commits when fn
// returns nil and rolls back otherwise.
type UnitOfWork interface {
	Do(ctx context.Context, fn func(repos Repositories) error) error
}
