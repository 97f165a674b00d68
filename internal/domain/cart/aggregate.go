package cart

import (
	"errors"

	"github.com/shopspring/decimal"
)

var (
	ErrCartNotFound    = errors.New("cart not found for this customer")
	ErrEmptyCart       = errors.New("cart is empty")
	ErrItemNotInCart   = errors.New("item not found in cart")
	ErrInvalidQuantity = errors.New("quantity must be at least 1")
	ErrInvalidProduct  = errors.New("product_id is required")
)

// Line is one product in a cart joined with the product's current price and
// stock as read at the time the line was loaded.
type Line struct {
	ProductID int64           `json:"product_id"`
	Name      string          `json:"name"`
	ImageURL  string          `json:"image_url"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"mrp"`
	Stock     int             `json:"stock_quantity"`
}

func (l Line) Subtotal() decimal.Decimal {
	return l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

type Cart struct {
	ID         int64  `json:"cart_id"`
	CustomerID int64  `json:"customer_id"`
	Lines      []Line `json:"items"`
}

func (c *Cart) IsEmpty() bool {
	return len(c.Lines) == 0
}

// Total sums unit price times quantity across every line.
func (c *Cart) Total() decimal.Decimal {
	total := decimal.Zero
	for _, l := range c.Lines {
		total = total.Add(l.Subtotal())
	}
	return total
}

// QuantityOf returns the quantity already in the cart for a product.
func (c *Cart) QuantityOf(productID int64) int {
	for _, l := range c.Lines {
		if l.ProductID == productID {
			return l.Quantity
		}
	}
	return 0
}

// ValidateItem checks a requested cart line before any stock lookup.
func ValidateItem(productID int64, quantity int) error {
	if productID <= 0 {
		return ErrInvalidProduct
	}
	if quantity < 1 {
		return ErrInvalidQuantity
	}
	return nil
}
