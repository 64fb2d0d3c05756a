package category

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/finance-tracker/ledger/internal/application/adapter"
	"github.com/finance-tracker/ledger/internal/domain/entity"
)

// ReconcileCategoriesOutput represents the output of category reconciliation.
type ReconcileCategoriesOutput struct {
	Merged       int
	EntriesMoved int64
}

// ReconcileCategoriesUseCase merges categories sharing a canonical name and type.
type ReconcileCategoriesUseCase struct {
	uow adapter.UnitOfWork
}

// NewReconcileCategoriesUseCase creates a new ReconcileCategoriesUseCase instance.
func NewReconcileCategoriesUseCase(uow adapter.UnitOfWork) *ReconcileCategoriesUseCase {
	return &ReconcileCategoriesUseCase{
		uow: uow,
	}
}

// Execute keeps one category per key, moves the entries of the others onto
// it and deletes the others. Running it again changes nothing.
func (uc *ReconcileCategoriesUseCase) Execute(ctx context.Context) (*ReconcileCategoriesOutput, error) {
	output := &ReconcileCategoriesOutput{}

	err := uc.uow.Do(ctx, func(repos adapter.Repositories) error {
		categories, err := repos.Categories.FindAll(ctx)
		if err != nil {
			return fmt.Errorf("failed to list categories: %w", err)
		}

		keepers := make(map[Key]*entity.Category)
		for _, c := range categories {
			key := KeyOf(c)
			if current, ok := keepers[key]; !ok || preferred(c, current) {
				keepers[key] = c
			}
		}

		for _, c := range categories {
			keeper := keepers[KeyOf(c)]
			if keeper.ID == c.ID {
				continue
			}

			moved, err := repos.Entries.ReassignCategory(ctx, c.ID, keeper.ID)
			if err != nil {
				return fmt.Errorf("failed to reassign entries of category %s: %w", c.ID, err)
			}
			if err := repos.Categories.Delete(ctx, c.ID); err != nil {
				return fmt.Errorf("failed to delete duplicate category %s: %w", c.ID, err)
			}

			slog.Info("Merged duplicate category",
				"duplicate_id", c.ID,
				"duplicate_name", c.Name,
				"kept_id", keeper.ID,
				"kept_name", keeper.Name,
				"entries_moved", moved,
			)
			output.Merged++
			output.EntriesMoved += moved
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	return output, nil
}
