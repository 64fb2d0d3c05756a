// Package entity defines the core business entities for the domain layer.
package entity

import (
	"fmt"
	"time"
)

// Period is a calendar month. All period boundaries are UTC.
type Period struct {
	Year  int
	Month time.Month
}

// PeriodOf returns the period containing t.
func PeriodOf(t time.Time) Period {
	t = t.UTC()
	return Period{Year: t.Year(), Month: t.Month()}
}

// NewPeriod builds a period, normalising out-of-range months.
func NewPeriod(year int, month time.Month) Period {
	return PeriodOf(time.Date(year, month, 1, 0, 0, 0, 0, time.UTC))
}

// Start returns the first instant of the period.
func (p Period) Start() time.Time {
	return time.Date(p.Year, p.Month, 1, 0, 0, 0, 0, time.UTC)
}

// End returns the first instant of the following period.
func (p Period) End() time.Time {
	return p.Start().AddDate(0, 1, 0)
}

// AddMonths returns the period n months away.
func (p Period) AddMonths(n int) Period {
	return PeriodOf(p.Start().AddDate(0, n, 0))
}

// Prev returns the preceding period.
func (p Period) Prev() Period {
	return p.AddMonths(-1)
}

// Before reports whether p is strictly earlier than other.
func (p Period) Before(other Period) bool {
	if p.Year != other.Year {
		return p.Year < other.Year
	}
	return p.Month < other.Month
}

// String formats the period as YYYY-MM.
func (p Period) String() string {
	return fmt.Sprintf("%04d-%02d", p.Year, int(p.Month))
}

// Label formats the period for display, e.g. "January 2026".
func (p Period) Label() string {
	return p.Start().Format("January 2006")
}
