package core

import (
	"encoding/json"
	"errors"
	"testing"
	"time"
)

func TestDateValidate(t *testing.T) {
	cases := []struct {
		d  Date
		ok bool
	}{
		{NewDate(2025, 1, 1), true},
		{NewDate(2025, 12, 31), true},
		{Date{Time: time.Time{}}, false}, // zero time
	}
	for i, tc := range cases {
		err := tc.d.Validate()
		if tc.ok && err != nil {
			t.Fatalf("case %d expected ok, got %v", i, err)
		}
		if !tc.ok && err == nil {
			t.Fatalf("case %d expected error", i)
		}
	}
}

func TestDateJSONRoundTrip(t *testing.T) {
	d := NewDate(2024, 2, 29)
	b, err := json.Marshal(d)
	if err != nil || string(b) != `"2024-02-29"` {
		t.Fatalf("marshal: %s %v", b, err)
	}
	var back Date
	if err := json.Unmarshal(b, &back); err != nil || !back.Equal(d.Time) {
		t.Fatalf("unmarshal: %v %v", back, err)
	}
}

func TestDateOfTruncates(t *testing.T) {
	got := DateOf(time.Date(2025, 3, 9, 23, 59, 0, 0, time.UTC))
	if got.String() != "2025-03-09" {
		t.Fatalf("DateOf = %s", got)
	}
}

func TestYearMonthBounds(t *testing.T) {
	feb := YearMonth{Year: 2024, Month: 2}
	if feb.Last().String() != "2024-02-29" {
		t.Fatalf("last day = %s", feb.Last())
	}
	if !feb.Contains(NewDate(2024, 2, 1)) || !feb.Contains(NewDate(2024, 2, 29)) {
		t.Fatalf("bounds must be inclusive")
	}
	if feb.Contains(NewDate(2024, 3, 1)) {
		t.Fatalf("march must be excluded")
	}
	if got := (YearMonth{Year: 2025, Month: 1}).AddMonths(-1); got != (YearMonth{Year: 2024, Month: 12}) {
		t.Fatalf("AddMonths = %v", got)
	}
}

func TestDisplayCategory(t *testing.T) {
	tx := Transaction{Type: Transfer, Category: "ignored"}
	if tx.DisplayCategory() != TransferCategory {
		t.Fatalf("transfer category = %q", tx.DisplayCategory())
	}
	tx = Transaction{Type: Expense, Category: "Housing"}
	if tx.DisplayCategory() != "Housing" {
		t.Fatalf("expense category = %q", tx.DisplayCategory())
	}
}

func TestAccountValidate(t *testing.T) {
	if err := (Account{Name: "Main", Type: Checking}).Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}
	err := (Account{Name: " ", Type: Checking}).Validate()
	if !errors.Is(err, ErrValidation) || !errors.Is(err, ErrEmptyName) {
		t.Fatalf("expected empty name validation error, got %v", err)
	}
	if err := (Account{Name: "x", Type: "loan"}).Validate(); !errors.Is(err, ErrInvalidAccountType) {
		t.Fatalf("expected invalid type, got %v", err)
	}
}

func TestErrorMatching(t *testing.T) {
	var nf *NotFoundError
	err := AccountNotFound("a1")
	if !errors.Is(err, ErrNotFound) || !errors.As(err, &nf) || nf.ID != "a1" {
		t.Fatalf("unexpected not found error: %v", err)
	}
	if errors.Is(err, ErrValidation) {
		t.Fatalf("not found must not match validation")
	}
}
