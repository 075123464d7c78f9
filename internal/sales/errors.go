package sales

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned when a sale with the given ID is not found.
var ErrNotFound = errors.New("sale not found")

// ErrEmptyID is returned when trying to store a sale with an empty ID.
var ErrEmptyID = errors.New("empty sale ID")

// ErrDuplicateSaleNumber is returned when creating a sale whose sale number
// is already taken.
var ErrDuplicateSaleNumber = errors.New("sale number already exists")

// Errores de construcción del agregado y sus items.
var (
	ErrSaleNumberRequired    = errors.New("sale number is required")
	ErrBranchRequired        = errors.New("branch is required")
	ErrCustomerIDRequired    = errors.New("customer ID is required")
	ErrSaleMustHaveItems     = errors.New("at least one sale item is required")
	ErrProductIDRequired     = errors.New("product ID is required")
	ErrInvalidQuantity       = errors.New("quantity must be greater than 0")
	ErrQuantityLimitExceeded = errors.New("cannot sell more than 20 units of a product")
	ErrInvalidUnitPrice      = errors.New("unit price must be greater than 0")
)

// FieldViolation describes a single failed field rule on an inbound command.
type FieldViolation struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError carries every field rule violated by a command. Commands
// are checked in full before any side effect, so callers always get the
// complete list rather than the first failure.
type ValidationError struct {
	Violations []FieldViolation
}

func (e *ValidationError) Error() string {
	if len(e.Violations) == 1 {
		return fmt.Sprintf("validation failed: %s: %s", e.Violations[0].Field, e.Violations[0].Message)
	}
	return fmt.Sprintf("validation failed: %d field violations", len(e.Violations))
}
