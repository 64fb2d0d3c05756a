package category

import (
	"context"
	"fmt"

	"github.com/finance-tracker/ledger/internal/application/adapter"
	"github.com/finance-tracker/ledger/internal/domain/entity"
)

// SeedDefaultCategoriesOutput represents the output of default category seeding.
type SeedDefaultCategoriesOutput struct {
	Created []*entity.Category
}

// SeedDefaultCategoriesUseCase creates the system categories that are missing.
type SeedDefaultCategoriesUseCase struct {
	uow adapter.UnitOfWork
}

// NewSeedDefaultCategoriesUseCase creates a new SeedDefaultCategoriesUseCase instance.
func NewSeedDefaultCategoriesUseCase(uow adapter.UnitOfWork) *SeedDefaultCategoriesUseCase {
	return &SeedDefaultCategoriesUseCase{
		uow: uow,
	}
}

// Execute creates each default category whose canonical key is not already
// taken by an existing category.
func (uc *SeedDefaultCategoriesUseCase) Execute(ctx context.Context) (*SeedDefaultCategoriesOutput, error) {
	output := &SeedDefaultCategoriesOutput{}

	err := uc.uow.Do(ctx, func(repos adapter.Repositories) error {
		existing, err := repos.Categories.FindAll(ctx)
		if err != nil {
			return fmt.Errorf("failed to list categories: %w", err)
		}

		taken := make(map[Key]bool, len(existing))
		for _, c := range existing {
			taken[KeyOf(c)] = true
		}

		for _, def := range entity.DefaultCategories {
			category := entity.NewCategory(def.Name, def.Type, def.Icon, false)
			key := KeyOf(category)
			if taken[key] {
				continue
			}
			if err := repos.Categories.Create(ctx, category); err != nil {
				return fmt.Errorf("failed to create default category %s: %w", def.Name, err)
			}
			taken[key] = true
			output.Created = append(output.Created, category)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return output, nil
}
