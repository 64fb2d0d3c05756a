package persistence

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/finance-tracker/ledger/internal/application/adapter"
	"github.com/finance-tracker/ledger/internal/domain/entity"
	domainerror "github.com/finance-tracker/ledger/internal/domain/error"
	"github.com/finance-tracker/ledger/internal/integration/persistence/model"
)

type userRepository struct {
	db *gorm.DB
}

// NewUserRepository returns the gorm UserRepository. Soft-deleted users are
// invisible to every lookup.
func NewUserRepository(db *gorm.DB) adapter.UserRepository {
	return &userRepository{db: db}
}

func (r *userRepository) Create(ctx context.Context, user *entity.User) error {
	return r.db.WithContext(ctx).Create(model.UserFromEntity(user)).Error
}

func (r *userRepository) FindByID(ctx context.Context, id uuid.UUID) (*entity.User, error) {
	return r.findOne(ctx, "id = ?", id)
}

// FindByAppleUserIdentifier matches the identifier exactly; callers trim it.
func (r *userRepository) FindByAppleUserIdentifier(ctx context.Context, identifier string) (*entity.User, error) {
	return r.findOne(ctx, "apple_user_identifier = ?", identifier)
}

func (r *userRepository) findOne(ctx context.Context, query string, args ...interface{}) (*entity.User, error) {
	var userModel model.UserModel
	err := r.db.WithContext(ctx).Where(query, args...).First(&userModel).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domainerror.ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}
	return userModel.ToEntity(), nil
}

// RecordSignIn writes only the sign-in stamps, so the identity itself is
// never rewritten by a sign-in.
func (r *userRepository) RecordSignIn(ctx context.Context, user *entity.User) error {
	result := r.db.WithContext(ctx).
		Model(&model.UserModel{}).
		Where("id = ?", user.ID).
		Updates(map[string]interface{}{
			"last_sign_in_at": user.LastSignInAt.UTC(),
			"updated_at":      user.UpdatedAt.UTC(),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domainerror.ErrUserNotFound
	}
	return nil
}

// Delete soft-deletes the user; the delete replicates as a newer write.
func (r *userRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return softDelete(r.db.WithContext(ctx), &model.UserModel{}, "id = ?", id).Error
}
