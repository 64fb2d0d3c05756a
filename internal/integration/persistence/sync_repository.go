// Package persistence implements repository interfaces for database operations.
package persistence

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/finance-tracker/ledger/internal/application/adapter"
	"github.com/finance-tracker/ledger/internal/integration/persistence/model"
)

// syncRepository implements the adapter.SyncRepository interface.
type syncRepository struct {
	db *gorm.DB
}

// NewSyncRepository creates a new sync repository instance.
func NewSyncRepository(db *gorm.DB) adapter.SyncRepository {
	return &syncRepository{
		db: db,
	}
}

// LedgerModels returns the models of the replicated ledger tables.
func LedgerModels() []interface{} {
	return []interface{}{
		&model.UserModel{},
		&model.AccountModel{},
		&model.CategoryModel{},
		&model.ContactModel{},
		&model.LedgerEntryModel{},
	}
}

// changedSince selects rows written after since, including soft-deleted rows.
func changedSince(since time.Time) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		since = since.UTC()
		return db.Unscoped().
			Where("updated_at > ? OR (deleted_at IS NOT NULL AND deleted_at > ?)", since, since).
			Order("updated_at ASC")
	}
}

// ChangesSince returns every record updated or deleted after since.
func (r *syncRepository) ChangesSince(ctx context.Context, since time.Time) (*adapter.ChangeSet, error) {
	db := r.db.WithContext(ctx)
	changes := &adapter.ChangeSet{}

	var users []model.UserModel
	if err := db.Scopes(changedSince(since)).Find(&users).Error; err != nil {
		return nil, fmt.Errorf("failed to read changed users: %w", err)
	}
	for i := range users {
		changes.Users = append(changes.Users, users[i].ToEntity())
	}

	var accounts []model.AccountModel
	if err := db.Scopes(changedSince(since)).Find(&accounts).Error; err != nil {
		return nil, fmt.Errorf("failed to read changed accounts: %w", err)
	}
	for i := range accounts {
		changes.Accounts = append(changes.Accounts, accounts[i].ToEntity())
	}

	var categories []model.CategoryModel
	if err := db.Scopes(changedSince(since)).Find(&categories).Error; err != nil {
		return nil, fmt.Errorf("failed to read changed categories: %w", err)
	}
	for i := range categories {
		changes.Categories = append(changes.Categories, categories[i].ToEntity())
	}

	var contacts []model.ContactModel
	if err := db.Scopes(changedSince(since)).Find(&contacts).Error; err != nil {
		return nil, fmt.Errorf("failed to read changed contacts: %w", err)
	}
	for i := range contacts {
		changes.Contacts = append(changes.Contacts, contacts[i].ToEntity())
	}

	var entries []model.LedgerEntryModel
	if err := db.Scopes(changedSince(since)).Find(&entries).Error; err != nil {
		return nil, fmt.Errorf("failed to read changed ledger entries: %w", err)
	}
	for i := range entries {
		changes.Entries = append(changes.Entries, entries[i].ToEntity())
	}

	return changes, nil
}

// Merge applies remote records last-writer-wins by UpdatedAt in one
// transaction. A record that collides with a different local row on a unique
// key is skipped; the local row stays authoritative.
func (r *syncRepository) Merge(ctx context.Context, changes *adapter.ChangeSet) (int, error) {
	if changes.Len() == 0 {
		return 0, nil
	}

	written := 0
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		apply := func(table string, columns []string, id fmt.Stringer, value interface{}) error {
			n, err := upsertNewer(tx, table, columns, value)
			if err != nil {
				if IsDuplicateKeyError(err) {
					slog.Warn("Skipping remote record colliding with local row",
						"table", table,
						"id", id.String(),
						"error", err,
					)
					return nil
				}
				return fmt.Errorf("failed to merge %s %s: %w", table, id, err)
			}
			written += int(n)
			return nil
		}

		for _, u := range changes.Users {
			if err := apply("users", model.UserColumns, u.ID, model.UserFromEntity(u)); err != nil {
				return err
			}
		}
		for _, a := range changes.Accounts {
			if err := apply("accounts", model.AccountColumns, a.ID, model.AccountFromEntity(a)); err != nil {
				return err
			}
		}
		for _, c := range changes.Categories {
			if err := apply("categories", model.CategoryColumns, c.ID, model.CategoryFromEntity(c)); err != nil {
				return err
			}
		}
		for _, c := range changes.Contacts {
			if err := apply("contacts", model.ContactColumns, c.ID, model.ContactFromEntity(c)); err != nil {
				return err
			}
		}
		for _, e := range changes.Entries {
			if err := apply("ledger_entries", model.LedgerEntryColumns, e.ID, model.LedgerEntryFromEntity(e)); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return written, nil
}

// upsertNewer inserts value or replaces the stored row when value is newer.
func upsertNewer(tx *gorm.DB, table string, columns []string, value interface{}) (int64, error) {
	result := tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns(columns),
		Where: clause.Where{Exprs: []clause.Expression{
			clause.Expr{SQL: fmt.Sprintf("excluded.updated_at > %s.updated_at", table)},
		}},
	}).Create(value)
	return result.RowsAffected, result.Error
}
