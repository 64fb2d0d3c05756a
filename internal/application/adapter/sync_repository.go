// Package adapter defines interfaces that will be implemented in the integration layer.
package adapter

import (
	"context"
	"time"

	"github.com/finance-tracker/ledger/internal/domain/entity"
)

// ChangeSet holds records changed since a watermark, soft-deleted rows included.
type ChangeSet struct {
	Users      []*entity.User        `json:"users,omitempty"`
	Accounts   []*entity.Account     `json:"accounts,omitempty"`
	Categories []*entity.Category    `json:"categories,omitempty"`
	Contacts   []*entity.Contact     `json:"contacts,omitempty"`
	Entries    []*entity.LedgerEntry `json:"entries,omitempty"`
}

// Len returns the number of records in the change set.
func (c *ChangeSet) Len() int {
	if c == nil {
		return 0
	}
	return len(c.Users) + len(c.Accounts) + len(c.Categories) + len(c.Contacts) + len(c.Entries)
}

// Latest returns the newest change time in the set, or the zero time when empty.
func (c *ChangeSet) Latest() time.Time {
	var latest time.Time
	if c == nil {
		return latest
	}
	bump := func(updated time.Time, deleted *time.Time) {
		if updated.After(latest) {
			latest = updated
		}
		if deleted != nil && deleted.After(latest) {
			latest = *deleted
		}
	}
	for _, u := range c.Users {
		bump(u.UpdatedAt, u.DeletedAt)
	}
	for _, a := range c.Accounts {
		bump(a.UpdatedAt, a.DeletedAt)
	}
	for _, cat := range c.Categories {
		bump(cat.UpdatedAt, cat.DeletedAt)
	}
	for _, ct := range c.Contacts {
		bump(ct.UpdatedAt, ct.DeletedAt)
	}
	for _, e := range c.Entries {
		bump(e.UpdatedAt, e.DeletedAt)
	}
	return latest
}

// SyncRepository reads and merges ledger changes for replication.
type SyncRepository interface {
	// ChangesSince returns every record updated or deleted after since.
	ChangesSince(ctx context.Context, since time.Time) (*ChangeSet, error)

	// Merge applies remote records last-writer-wins by UpdatedAt.
	// Returns the number of records written.
	Merge(ctx context.Context, changes *ChangeSet) (int, error)
}
