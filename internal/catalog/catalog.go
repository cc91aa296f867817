// Package catalog holds the closed lists of income and expense categories a
// transaction may be filed under.
package catalog

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/pelletier/go-toml"

	"conti/internal/core"
)

var (
	defaultIncome = []string{
		"Salary",
		"Freelance",
		"Investment",
		"Business",
		"Gift",
		"Other Income",
	}
	defaultExpense = []string{
		"Food & Groceries",
		"Transportation",
		"Housing",
		"Utilities",
		"Healthcare",
		"Entertainment",
		"Shopping",
		"Education",
		"Insurance",
		"Other Expenses",
	}
)

// Catalog is immutable after construction and safe for concurrent reads.
type Catalog struct {
	income     []string
	expense    []string
	incomeSet  map[string]struct{}
	expenseSet map[string]struct{}
}

type file struct {
	Income  []string `toml:"income"`
	Expense []string `toml:"expense"`
}

// New builds a catalog from explicit lists. Blank and duplicate names are dropped.
func New(income, expense []string) *Catalog {
	c := &Catalog{
		income:  dedupe(income),
		expense: dedupe(expense),
	}
	c.incomeSet = toSet(c.income)
	c.expenseSet = toSet(c.expense)
	return c
}

// Default returns the built-in catalog.
func Default() *Catalog {
	return New(defaultIncome, defaultExpense)
}

// Load reads a TOML catalog:
//
//	income = ["Salary", "Gift"]
//	expense = ["Housing", "Food & Groceries"]
//
// A missing file yields the default catalog; a list left empty in the file
// falls back to the corresponding default list.
func Load(path string) (*Catalog, error) {
	if strings.TrimSpace(path) == "" {
		return Default(), nil
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return Default(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}
	var f file
	if err := toml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse catalog %s: %w", path, err)
	}
	if len(f.Income) == 0 {
		f.Income = defaultIncome
	}
	if len(f.Expense) == 0 {
		f.Expense = defaultExpense
	}
	return New(f.Income, f.Expense), nil
}

// Categories returns the categories valid for t. Transfers have none.
func (c *Catalog) Categories(t core.TransactionType) []string {
	switch t {
	case core.Income:
		return append([]string(nil), c.income...)
	case core.Expense:
		return append([]string(nil), c.expense...)
	default:
		return nil
	}
}

// Contains reports whether name is a valid category for t.
func (c *Catalog) Contains(t core.TransactionType, name string) bool {
	var ok bool
	switch t {
	case core.Income:
		_, ok = c.incomeSet[name]
	case core.Expense:
		_, ok = c.expenseSet[name]
	}
	return ok
}

func dedupe(in []string) []string {
	seen := map[string]struct{}{}
	out := make([]string, 0, len(in))
	for _, v := range in {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}

func toSet(in []string) map[string]struct{} {
	set := make(map[string]struct{}, len(in))
	for _, v := range in {
		set[v] = struct{}{}
	}
	return set
}
