// Package entity defines the core business entities for the domain layer.
package entity

import (
	"time"

	"github.com/google/uuid"
)

// CategoryType represents the type of category (expense or income).
type CategoryType string

const (
	CategoryTypeExpense CategoryType = "expense"
	CategoryTypeIncome  CategoryType = "income"
)

// DefaultCategoryIcon is the default icon for categories.
const DefaultCategoryIcon = "tag"

// CarryOverCategoryName is the system category holding carry-forward entries.
const CarryOverCategoryName = "Balance Carry-Over"

// CarryOverCategoryIcon is the icon of the carry-over category.
const CarryOverCategoryIcon = "arrow.uturn.forward"

// Category represents a ledger entry category.
type Category struct {
	ID        uuid.UUID
	Name      string
	Type      CategoryType
	Icon      string
	IsCustom  bool // false for system defaults
	CreatedAt time.Time
	UpdatedAt time.Time
	DeletedAt *time.Time // Soft-delete support
}

// NewCategory creates a new Category entity.
func NewCategory(name string, categoryType CategoryType, icon string, isCustom bool) *Category {
	now := time.Now().UTC()
	if icon == "" {
		icon = DefaultCategoryIcon
	}

	return &Category{
		ID:        uuid.New(),
		Name:      name,
		Type:      categoryType,
		Icon:      icon,
		IsCustom:  isCustom,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// DefaultCategory describes a system category seeded on first launch.
type DefaultCategory struct {
	Name string
	Type CategoryType
	Icon string
}

// DefaultCategories is the system category set.
var DefaultCategories = []DefaultCategory{
	{Name: "Groceries", Type: CategoryTypeExpense, Icon: "cart"},
	{Name: "Food and Dining", Type: CategoryTypeExpense, Icon: "fork.knife"},
	{Name: "Transportation", Type: CategoryTypeExpense, Icon: "car"},
	{Name: "Bills and Utilities", Type: CategoryTypeExpense, Icon: "bolt"},
	{Name: "Healthcare", Type: CategoryTypeExpense, Icon: "cross"},
	{Name: "Entertainment", Type: CategoryTypeExpense, Icon: "film"},
	{Name: "Shopping", Type: CategoryTypeExpense, Icon: "bag"},
	{Name: "Gifts", Type: CategoryTypeExpense, Icon: "gift"},
	{Name: "Salary", Type: CategoryTypeIncome, Icon: "briefcase"},
	{Name: "Investments", Type: CategoryTypeIncome, Icon: "chart.line.uptrend.xyaxis"},
	{Name: "Other", Type: CategoryTypeIncome, Icon: DefaultCategoryIcon},
	{Name: "Other", Type: CategoryTypeExpense, Icon: DefaultCategoryIcon},
}
