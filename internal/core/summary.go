package core

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// CategoryAmount represents an amount aggregated by category name.
type CategoryAmount struct {
	Name   string          `json:"name"`
	Amount decimal.Decimal `json:"amount"`
}

// YearMonth identifies a calendar month.
type YearMonth struct {
	Year  int `json:"year"`
	Month int `json:"month"` // 1-12
}

// YearMonthOf returns the calendar month containing t.
func YearMonthOf(t time.Time) YearMonth {
	return YearMonth{Year: t.Year(), Month: int(t.Month())}
}

// First returns the first day of the month.
func (ym YearMonth) First() Date {
	return NewDate(ym.Year, ym.Month, 1)
}

// Last returns the last day of the month.
func (ym YearMonth) Last() Date {
	return NewDate(ym.Year, ym.Month+1, 0)
}

// AddMonths shifts the month by n (n may be negative).
func (ym YearMonth) AddMonths(n int) YearMonth {
	t := time.Date(ym.Year, time.Month(ym.Month)+time.Month(n), 1, 0, 0, 0, 0, time.UTC)
	return YearMonthOf(t)
}

// Contains reports whether d falls within the month, both bounds inclusive.
func (ym YearMonth) Contains(d Date) bool {
	return !d.Before(ym.First()) && !d.After(ym.Last())
}

func (ym YearMonth) String() string {
	return fmt.Sprintf("%04d-%02d", ym.Year, ym.Month)
}
