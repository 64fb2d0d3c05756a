// Package category contains category-related use cases.
package category

import (
	"regexp"
	"strings"

	"golang.org/x/text/cases"

	"github.com/finance-tracker/ledger/internal/domain/entity"
)

var (
	whitespaceRegex   = regexp.MustCompile(`\s+`)
	trailingTypeRegex = regexp.MustCompile(` (income|expenses?)$`)
)

// synonyms maps normalized names to the canonical name they merge into.
var synonyms = map[string]string{
	"grocery":                   "groceries",
	"supermarket":               "groceries",
	"food":                      "food and dining",
	"dining":                    "food and dining",
	"dining out":                "food and dining",
	"restaurants":               "food and dining",
	"restaurant":                "food and dining",
	"food and drink":            "food and dining",
	"transport":                 "transportation",
	"travel and transport":      "transportation",
	"utilities":                 "bills and utilities",
	"utilities and bills":       "bills and utilities",
	"bills":                     "bills and utilities",
	"wages":                     "salary",
	"salary and wages":          "salary",
	"paycheck":                  "salary",
	"health":                    "healthcare",
	"medical":                   "healthcare",
	"health care":               "healthcare",
	"entertainment and leisure": "entertainment",
	"leisure":                   "entertainment",
	"gift":                      "gifts",
	"investment":                "investments",
	"misc":                      "other",
	"miscellaneous":             "other",
}

// CanonicalName normalizes a category name for duplicate detection: case
// folded, whitespace collapsed, "&" spelled out, a trailing "income" or
// "expense(s)" dropped, then mapped through the synonym table.
func CanonicalName(name string) string {
	s := cases.Fold().String(name)
	s = strings.ReplaceAll(s, "&", " and ")
	s = strings.TrimSpace(whitespaceRegex.ReplaceAllString(s, " "))

	if stripped := trailingTypeRegex.ReplaceAllString(s, ""); stripped != "" {
		s = stripped
	}

	if canonical, ok := synonyms[s]; ok {
		return canonical
	}
	return s
}

// Key identifies categories that must not coexist.
type Key struct {
	Name string
	Type entity.CategoryType
}

// KeyOf returns the deduplication key of a category.
func KeyOf(c *entity.Category) Key {
	return Key{Name: CanonicalName(c.Name), Type: c.Type}
}

// preferred reports whether a should be kept over b: system categories
// win over custom ones, then the oldest wins.
func preferred(a, b *entity.Category) bool {
	if a.IsCustom != b.IsCustom {
		return !a.IsCustom
	}
	if !a.CreatedAt.Equal(b.CreatedAt) {
		return a.CreatedAt.Before(b.CreatedAt)
	}
	return a.ID.String() < b.ID.String()
}
