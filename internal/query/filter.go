// Package query derives read-only views from ledger snapshots: filtered
// transaction lists and the rollups behind the dashboard. Nothing here
// mutates its input.
package query

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"conti/internal/core"
)

// WindowKind selects how a DateWindow bounds transaction dates.
type WindowKind string

const (
	WindowAll         WindowKind = "all"
	WindowLast7Days   WindowKind = "7days"
	WindowMonthToDate WindowKind = "month"
	WindowYearToDate  WindowKind = "year"
	WindowCustom      WindowKind = "custom"
)

// DateWindow is a date predicate. For custom windows Start and End are
// optional; a nil bound is open.
type DateWindow struct {
	Kind  WindowKind
	Start *core.Date
	End   *core.Date
}

// All matches every date.
func All() DateWindow { return DateWindow{Kind: WindowAll} }

// Last7Days matches today and the seven days before it.
func Last7Days() DateWindow { return DateWindow{Kind: WindowLast7Days} }

// MonthToDate matches the first of the current month through today.
func MonthToDate() DateWindow { return DateWindow{Kind: WindowMonthToDate} }

// YearToDate matches January 1st of the current year through today.
func YearToDate() DateWindow { return DateWindow{Kind: WindowYearToDate} }

// Custom matches dates between start and end, both inclusive. Either may be nil.
func Custom(start, end *core.Date) DateWindow {
	return DateWindow{Kind: WindowCustom, Start: start, End: end}
}

// ParseWindow maps a window name to a DateWindow. Custom bounds are read from
// start and end, each empty or YYYY-MM-DD.
func ParseWindow(kind, start, end string) (DateWindow, error) {
	switch WindowKind(strings.ToLower(strings.TrimSpace(kind))) {
	case "", WindowAll:
		return All(), nil
	case WindowLast7Days:
		return Last7Days(), nil
	case WindowMonthToDate:
		return MonthToDate(), nil
	case WindowYearToDate:
		return YearToDate(), nil
	case WindowCustom:
		s, err := optionalDate(start)
		if err != nil {
			return DateWindow{}, core.Invalid("start", core.ErrInvalidDate)
		}
		e, err := optionalDate(end)
		if err != nil {
			return DateWindow{}, core.Invalid("end", core.ErrInvalidDate)
		}
		return Custom(s, e), nil
	default:
		return DateWindow{}, core.Invalid("window", fmt.Errorf("unknown window %q", kind))
	}
}

func optionalDate(s string) (*core.Date, error) {
	if strings.TrimSpace(s) == "" {
		return nil, nil
	}
	d, err := core.ParseDate(s)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

// bounds resolves the window against today. A nil bound is open.
func (w DateWindow) bounds(today core.Date) (start, end *core.Date) {
	switch w.Kind {
	case WindowLast7Days:
		s := today.AddDays(-7)
		return &s, &today
	case WindowMonthToDate:
		s := core.NewDate(today.Year(), today.Month(), 1)
		return &s, &today
	case WindowYearToDate:
		s := core.NewDate(today.Year(), 1, 1)
		return &s, &today
	case WindowCustom:
		return w.Start, w.End
	default:
		return nil, nil
	}
}

// Contains reports whether d falls inside the window as of now.
func (w DateWindow) Contains(d core.Date, now time.Time) bool {
	start, end := w.bounds(core.DateOf(now))
	if start != nil && d.Before(*start) {
		return false
	}
	if end != nil && d.After(*end) {
		return false
	}
	return true
}

// Filter combines a date window with a set of transaction types. Types is a
// set: nil or empty matches no transaction, so the zero Filter matches
// nothing. Start from DefaultFilter to match everything.
type Filter struct {
	Window DateWindow
	Types  []core.TransactionType
}

// DefaultFilter matches everything.
func DefaultFilter() Filter {
	return Filter{Window: All(), Types: core.TransactionTypes()}
}

// ParseTypes reads a comma separated list of transaction types.
func ParseTypes(s string) ([]core.TransactionType, error) {
	types := []core.TransactionType{}
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		t := core.TransactionType(strings.ToLower(part))
		if !t.IsValid() {
			return nil, core.Invalid("types", core.ErrInvalidType)
		}
		if !slices.Contains(types, t) {
			types = append(types, t)
		}
	}
	return types, nil
}

func (f Filter) allTypes() bool {
	for _, t := range core.TransactionTypes() {
		if !slices.Contains(f.Types, t) {
			return false
		}
	}
	return true
}

// Apply returns the transactions matching f, newest date first. Transactions
// sharing a date keep their input order. An empty type set matches nothing.
func Apply(txs []core.Transaction, f Filter, now time.Time) []core.Transaction {
	passAll := f.allTypes()
	out := make([]core.Transaction, 0, len(txs))
	for _, tx := range txs {
		if !f.Window.Contains(tx.Date, now) {
			continue
		}
		if !passAll && !slices.Contains(f.Types, tx.Type) {
			continue
		}
		out = append(out, tx)
	}
	sortByDateDesc(out)
	return out
}

func sortByDateDesc(txs []core.Transaction) {
	slices.SortStableFunc(txs, func(a, b core.Transaction) int {
		return b.Date.Compare(a.Date.Time)
	})
}
