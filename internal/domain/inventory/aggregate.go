package inventory

import (
	"errors"
	"fmt"
)

var (
	ErrInsufficientStock = errors.New("insufficient stock")
	ErrInvalidQuantity   = errors.New("quantity must be positive")
)

// InsufficientStockError reports which product could not cover a request and
// how much of it is actually available.
type InsufficientStockError struct {
	ProductID int64
	Requested int
	Available int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("Insufficient stock for item ID %d. Available: %d", e.ProductID, e.Available)
}

func (e *InsufficientStockError) Unwrap() error {
	return ErrInsufficientStock
}

// CheckAvailability decides whether requested units of a product can be
// satisfied from the available stock. Cart writes call it with the prospective
// cart total; checkout calls it again against stock read under a row lock.
func CheckAvailability(productID int64, available, requested int) error {
	if requested <= 0 {
		return ErrInvalidQuantity
	}
	if available < 0 {
		available = 0
	}
	if requested > available {
		return &InsufficientStockError{
			ProductID: productID,
			Requested: requested,
			Available: available,
		}
	}
	return nil
}

// AsInsufficientStock extracts the detailed error if err carries one.
func AsInsufficientStock(err error) (*InsufficientStockError, bool) {
	var ise *InsufficientStockError
	if errors.As(err, &ise) {
		return ise, true
	}
	return nil, false
}
