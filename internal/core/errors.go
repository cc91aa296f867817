package core

import (
	"errors"
	"fmt"
)

var (
	// ErrValidation matches every *ValidationError via errors.Is.
	ErrValidation = errors.New("validation failed")
	// ErrNotFound matches every *NotFoundError via errors.Is.
	ErrNotFound = errors.New("not found")
)

var (
	ErrInvalidDate        = errors.New("invalid date")
	ErrInvalidAmount      = errors.New("invalid amount")
	ErrInvalidType        = errors.New("invalid transaction type")
	ErrEmptyCategory      = errors.New("empty category")
	ErrUnknownCategory    = errors.New("category not in catalog")
	ErrUnknownAccount     = errors.New("account does not exist")
	ErrMissingDestination = errors.New("transfer destination required")
	ErrSelfTransfer       = errors.New("transfer destination equals source")
	ErrUnexpectedDest     = errors.New("destination only allowed for transfers")
	ErrEmptyName          = errors.New("empty name")
	ErrInvalidAccountType = errors.New("invalid account type")
	ErrBalanceEdit        = errors.New("balance cannot be edited as metadata")
)

// ValidationError reports malformed input. It is raised before any mutation.
type ValidationError struct {
	Field string
	Err   error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %v", e.Field, e.Err)
}

func (e *ValidationError) Unwrap() error { return e.Err }

func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

// Invalid builds a *ValidationError for field.
func Invalid(field string, err error) error {
	return &ValidationError{Field: field, Err: err}
}

// NotFoundError reports a lookup of an unknown account or transaction id.
type NotFoundError struct {
	Entity string
	ID     string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %q not found", e.Entity, e.ID)
}

func (e *NotFoundError) Is(target error) bool { return target == ErrNotFound }

func AccountNotFound(id string) error {
	return &NotFoundError{Entity: "account", ID: id}
}

func TransactionNotFound(id string) error {
	return &NotFoundError{Entity: "transaction", ID: id}
}
