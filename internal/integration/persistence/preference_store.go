// Package persistence implements repository interfaces for database operations.
package persistence

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/finance-tracker/ledger/internal/application/adapter"
	"github.com/finance-tracker/ledger/internal/domain/entity"
	"github.com/finance-tracker/ledger/internal/integration/persistence/model"
)

const (
	prefCurrentAccountID    = "current_account_id"
	prefStoreMode           = "store_mode"
	prefIdentity            = "identity"
	prefCarryForwardPrefix  = "carry_forward_enabled:"
	prefSyncWatermarkPrefix = "sync_watermark:"
)

// preferenceStore implements the adapter.PreferenceStore interface on a
// database separate from the ledger store.
type preferenceStore struct {
	db                  *gorm.DB
	carryForwardDefault bool
}

// PreferenceModels returns the models backing the preference store.
func PreferenceModels() []interface{} {
	return []interface{}{&model.PreferenceModel{}, &model.SuppressionModel{}}
}

// NewPreferenceStore creates a new preference store instance.
// carryForwardDefault applies to accounts without a saved flag.
func NewPreferenceStore(db *gorm.DB, carryForwardDefault bool) adapter.PreferenceStore {
	return &preferenceStore{
		db:                  db,
		carryForwardDefault: carryForwardDefault,
	}
}

func (s *preferenceStore) get(ctx context.Context, key string) (string, bool, error) {
	var pref model.PreferenceModel
	result := s.db.WithContext(ctx).Where("name = ?", key).First(&pref)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("failed to read preference %s: %w", key, result.Error)
	}
	return pref.Value, true, nil
}

func (s *preferenceStore) set(ctx context.Context, key, value string) error {
	pref := model.PreferenceModel{
		Name:      key,
		Value:     value,
		UpdatedAt: time.Now().UTC(),
	}
	result := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "name"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
	}).Create(&pref)
	if result.Error != nil {
		return fmt.Errorf("failed to write preference %s: %w", key, result.Error)
	}
	return nil
}

func (s *preferenceStore) unset(ctx context.Context, key string) error {
	result := s.db.WithContext(ctx).Where("name = ?", key).Delete(&model.PreferenceModel{})
	if result.Error != nil {
		return fmt.Errorf("failed to delete preference %s: %w", key, result.Error)
	}
	return nil
}

// CurrentAccountID returns the saved account id, or nil when unset.
func (s *preferenceStore) CurrentAccountID(ctx context.Context) (*uuid.UUID, error) {
	value, ok, err := s.get(ctx, prefCurrentAccountID)
	if err != nil || !ok {
		return nil, err
	}
	id, err := uuid.Parse(value)
	if err != nil {
		// A corrupt value is treated as unset so resolution falls back to the oldest account.
		return nil, nil
	}
	return &id, nil
}

func (s *preferenceStore) SetCurrentAccountID(ctx context.Context, id uuid.UUID) error {
	return s.set(ctx, prefCurrentAccountID, id.String())
}

func (s *preferenceStore) ClearCurrentAccountID(ctx context.Context) error {
	return s.unset(ctx, prefCurrentAccountID)
}

// StoreMode returns the persisted mode, defaulting to local.
func (s *preferenceStore) StoreMode(ctx context.Context) (entity.StoreMode, error) {
	value, ok, err := s.get(ctx, prefStoreMode)
	if err != nil {
		return entity.StoreModeLocal, err
	}
	mode := entity.StoreMode(value)
	if !ok || !mode.IsValid() {
		return entity.StoreModeLocal, nil
	}
	return mode, nil
}

func (s *preferenceStore) SetStoreMode(ctx context.Context, mode entity.StoreMode) error {
	return s.set(ctx, prefStoreMode, string(mode))
}

// Identity returns the signed-in external identity, or "" for guests.
func (s *preferenceStore) Identity(ctx context.Context) (string, error) {
	value, _, err := s.get(ctx, prefIdentity)
	return value, err
}

func (s *preferenceStore) SetIdentity(ctx context.Context, identity string) error {
	if identity == "" {
		return s.unset(ctx, prefIdentity)
	}
	return s.set(ctx, prefIdentity, identity)
}

func (s *preferenceStore) CarryForwardEnabled(ctx context.Context, accountID uuid.UUID) (bool, error) {
	value, ok, err := s.get(ctx, prefCarryForwardPrefix+accountID.String())
	if err != nil {
		return false, err
	}
	if !ok {
		return s.carryForwardDefault, nil
	}
	enabled, err := strconv.ParseBool(value)
	if err != nil {
		return s.carryForwardDefault, nil
	}
	return enabled, nil
}

func (s *preferenceStore) SetCarryForwardEnabled(ctx context.Context, accountID uuid.UUID, enabled bool) error {
	return s.set(ctx, prefCarryForwardPrefix+accountID.String(), strconv.FormatBool(enabled))
}

// IsSuppressed reports whether carry-forward into period is suppressed for the account.
func (s *preferenceStore) IsSuppressed(ctx context.Context, accountID uuid.UUID, period entity.Period) (bool, error) {
	var count int64
	result := s.db.WithContext(ctx).
		Model(&model.SuppressionModel{}).
		Where("account_id = ? AND year = ? AND month = ?", accountID, period.Year, int(period.Month)).
		Count(&count)
	if result.Error != nil {
		return false, fmt.Errorf("failed to read suppression: %w", result.Error)
	}
	return count > 0, nil
}

// Suppress records that carry-forward into period must not be recreated.
func (s *preferenceStore) Suppress(ctx context.Context, accountID uuid.UUID, period entity.Period) error {
	record := model.SuppressionModel{
		AccountID: accountID,
		Year:      period.Year,
		Month:     int(period.Month),
		CreatedAt: time.Now().UTC(),
	}
	result := s.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&record)
	if result.Error != nil {
		return fmt.Errorf("failed to record suppression: %w", result.Error)
	}
	return nil
}

// PruneSuppressions deletes suppression records for periods before cutoff.
func (s *preferenceStore) PruneSuppressions(ctx context.Context, cutoff entity.Period) (int64, error) {
	result := s.db.WithContext(ctx).
		Where("year < ? OR (year = ? AND month < ?)", cutoff.Year, cutoff.Year, int(cutoff.Month)).
		Delete(&model.SuppressionModel{})
	if result.Error != nil {
		return 0, fmt.Errorf("failed to prune suppressions: %w", result.Error)
	}
	return result.RowsAffected, nil
}

// ClearAccount removes every preference scoped to the account.
func (s *preferenceStore) ClearAccount(ctx context.Context, accountID uuid.UUID) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("account_id = ?", accountID).Delete(&model.SuppressionModel{}).Error; err != nil {
			return fmt.Errorf("failed to clear suppressions: %w", err)
		}
		if err := tx.Where("name = ?", prefCarryForwardPrefix+accountID.String()).Delete(&model.PreferenceModel{}).Error; err != nil {
			return fmt.Errorf("failed to clear carry-forward flag: %w", err)
		}
		if err := tx.Where("name = ? AND value = ?", prefCurrentAccountID, accountID.String()).Delete(&model.PreferenceModel{}).Error; err != nil {
			return fmt.Errorf("failed to clear current account: %w", err)
		}
		return nil
	})
}

func (s *preferenceStore) SyncWatermark(ctx context.Context, direction adapter.SyncDirection) (time.Time, error) {
	value, ok, err := s.get(ctx, prefSyncWatermarkPrefix+string(direction))
	if err != nil || !ok {
		return time.Time{}, err
	}
	at, err := time.Parse(time.RFC3339Nano, value)
	if err != nil {
		return time.Time{}, nil
	}
	return at.UTC(), nil
}

func (s *preferenceStore) SetSyncWatermark(ctx context.Context, direction adapter.SyncDirection, at time.Time) error {
	return s.set(ctx, prefSyncWatermarkPrefix+string(direction), at.UTC().Format(time.RFC3339Nano))
}
