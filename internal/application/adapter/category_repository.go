// Package adapter defines interfaces that will be implemented in the integration layer.
package adapter

import (
	"context"

	"github.com/google/uuid"

	"github.com/finance-tracker/ledger/internal/domain/entity"
)

// CategoryRepository defines the interface for category persistence operations.
type CategoryRepository interface {
	// Create creates a new category in the database.
	Create(ctx context.Context, category *entity.Category) error

	// FindByID retrieves a category by its ID.
	FindByID(ctx context.Context, id uuid.UUID) (*entity.Category, error)

	// FindAll retrieves all non-deleted categories, oldest first.
	FindAll(ctx context.Context) ([]*entity.Category, error)

	// FindByNameAndType retrieves a category by exact name and type.
	// Returns nil without error when none exists.
	FindByNameAndType(ctx context.Context, name string, categoryType entity.CategoryType) (*entity.Category, error)

	// Delete soft-deletes a category.
	Delete(ctx context.Context, id uuid.UUID) error
}
