package service

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// Error categories. Handlers map these to 400, 409 and 404; anything else
// is an unexpected store failure.
var (
	ErrValidation = errors.New("validation failed")
	ErrConflict   = errors.New("conflict")
	ErrNotFound   = errors.New("not found")
)

// Errors returned by the order service.
var (
	ErrEmptyLines           = fmt.Errorf("%w: order lines are required", ErrValidation)
	ErrInvalidQuantity      = fmt.Errorf("%w: quantity must be > 0", ErrValidation)
	ErrInvalidItemID        = fmt.Errorf("%w: invalid item_id", ErrValidation)
	ErrInvalidOrderID       = fmt.Errorf("%w: invalid order_id", ErrValidation)
	ErrInvalidPaymentMethod = fmt.Errorf("%w: payment_method must be ONLINE or IN_PERSON", ErrValidation)
	ErrInvalidPhone         = fmt.Errorf("%w: phone is too long", ErrValidation)
	ErrInvalidStatus        = fmt.Errorf("%w: unsupported status", ErrValidation)
	ErrItemNotFound         = fmt.Errorf("%w: item not found", ErrValidation)
	ErrItemUnavailable      = fmt.Errorf("%w: item is not available", ErrValidation)

	ErrInsufficientStock = fmt.Errorf("%w: not enough remaining today", ErrConflict)
	ErrInvalidTransition = fmt.Errorf("%w: invalid status transition", ErrConflict)
	ErrStatusChanged     = fmt.Errorf("%w: order status changed, please retry", ErrConflict)
	ErrOrderNotPayable   = fmt.Errorf("%w: order can no longer be paid", ErrConflict)

	// Every code in the range belongs to an order still in the kitchen.
	ErrOrderCodesExhausted = fmt.Errorf("%w: no free order code, try again shortly", ErrConflict)

	ErrOrderNotFound = fmt.Errorf("%w: order not found", ErrNotFound)
)

// ItemError names the menu item a validation or conflict error is about.
type ItemError struct {
	ItemID uuid.UUID
	Name   string
	Err    error
}

func (e *ItemError) Error() string {
	if e.Name != "" {
		return fmt.Sprintf("%s: %v", e.Name, e.Err)
	}
	return fmt.Sprintf("item %s: %v", e.ItemID, e.Err)
}

func (e *ItemError) Unwrap() error { return e.Err }
