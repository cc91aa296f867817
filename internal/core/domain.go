package core

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const (
	Checking AccountType = "checking"
	Savings  AccountType = "savings"
	Credit   AccountType = "credit"
	Cash     AccountType = "cash"
	Other    AccountType = "other"
)

const (
	Income   TransactionType = "income"
	Expense  TransactionType = "expense"
	Transfer TransactionType = "transfer"
)

// TransferCategory is the display category synthesized for transfers.
const TransferCategory = "Transfer"

// DateLayout is the ISO-8601 calendar date layout used for storage and APIs.
const DateLayout = "2006-01-02"

type (
	AccountType     string
	TransactionType string

	Date struct {
		time.Time
	}

	Account struct {
		ID        string          `json:"id"`
		Bank      string          `json:"bank"`
		Name      string          `json:"name"`
		Number    string          `json:"number"`
		Type      AccountType     `json:"type"`
		Balance   decimal.Decimal `json:"balance"`
		Color     string          `json:"color"`
		CreatedAt time.Time       `json:"created_at"`
	}

	Transaction struct {
		ID          string          `json:"id"`
		Type        TransactionType `json:"type"`
		Category    string          `json:"category,omitempty"` // empty for transfers
		Amount      decimal.Decimal `json:"amount"`
		Description string          `json:"description"`
		Remarks     string          `json:"remarks,omitempty"`
		Date        Date            `json:"date"`
		AccountID   string          `json:"account_id"`
		ToAccountID string          `json:"to_account_id,omitempty"`
		CreatedAt   time.Time       `json:"created_at"`
	}
)

// AccountTypes returns the closed set of account types.
func AccountTypes() []AccountType {
	return []AccountType{Checking, Savings, Credit, Cash, Other}
}

// IsValid reports whether t belongs to the closed set of account types.
func (t AccountType) IsValid() bool {
	switch t {
	case Checking, Savings, Credit, Cash, Other:
		return true
	default:
		return false
	}
}

// TransactionTypes returns the full set of transaction types.
func TransactionTypes() []TransactionType {
	return []TransactionType{Income, Expense, Transfer}
}

// IsValid reports whether t is income, expense or transfer.
func (t TransactionType) IsValid() bool {
	switch t {
	case Income, Expense, Transfer:
		return true
	default:
		return false
	}
}

// DisplayCategory returns the category shown to users. Transfers never store
// a category; they are labelled with TransferCategory.
func (t Transaction) DisplayCategory() string {
	if t.Type == Transfer {
		return TransferCategory
	}
	return t.Category
}

// References reports whether the transaction touches the given account on
// either side.
func (t Transaction) References(accountID string) bool {
	return t.AccountID == accountID || (t.Type == Transfer && t.ToAccountID == accountID)
}

// Validate checks the intrinsic fields of an account.
func (a Account) Validate() error {
	if strings.TrimSpace(a.Name) == "" {
		return Invalid("name", ErrEmptyName)
	}
	if !a.Type.IsValid() {
		return Invalid("type", ErrInvalidAccountType)
	}
	return nil
}

func (d Date) Validate() error {
	if d.IsZero() {
		return ErrInvalidDate
	}
	return nil
}

// Day returns the day of the month
func (d Date) Day() int {
	return d.Time.Day()
}

// Month returns the month
func (d Date) Month() int {
	return int(d.Time.Month())
}

// Year returns the year
func (d Date) Year() int {
	return d.Time.Year()
}

// NewDate creates a new Date from year, month, day
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// DateOf truncates t to its calendar day in t's location, expressed in UTC.
func DateOf(t time.Time) Date {
	return NewDate(t.Year(), int(t.Month()), t.Day())
}

// ParseDate parses an ISO-8601 calendar date (YYYY-MM-DD).
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(DateLayout, strings.TrimSpace(s))
	if err != nil {
		return Date{}, err
	}
	return Date{Time: t}, nil
}

// String formats the date as YYYY-MM-DD.
func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.Format(DateLayout)
}

// Before reports whether d is a strictly earlier calendar day than o.
func (d Date) Before(o Date) bool {
	return d.Time.Before(o.Time)
}

// After reports whether d is a strictly later calendar day than o.
func (d Date) After(o Date) bool {
	return d.Time.After(o.Time)
}

// AddDays returns the date n days after d (n may be negative).
func (d Date) AddDays(n int) Date {
	return Date{Time: d.Time.AddDate(0, 0, n)}
}

func (d Date) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

func (d *Date) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	if s == "" {
		*d = Date{}
		return nil
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}
