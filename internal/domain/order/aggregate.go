package order

import (
	"errors"
	"fmt"
	"time"

	"github.com/example/ec-checkout/internal/domain/cart"
	"github.com/example/ec-checkout/internal/domain/customer"
	"github.com/shopspring/decimal"
)

type Status string

const (
	StatusPlaced         Status = "Order Placed"
	StatusShipped        Status = "Shipped"
	StatusOutForDelivery Status = "Out for Delivery"
	StatusDelivered      Status = "Delivered"
	StatusCancelled      Status = "Cancelled"
)

var (
	ErrOrderNotFound     = errors.New("order not found")
	ErrEmptyOrder        = errors.New("order must have at least one item")
	ErrUnknownStatus     = errors.New("invalid status value")
	ErrInvalidTransition = errors.New("invalid order status transition")
	ErrOrderCancelled    = errors.New("order is already cancelled")
	ErrOrderDelivered    = errors.New("order is already delivered")
	ErrOrderDispatched   = errors.New("cannot cancel an order that has been dispatched")
)

// validTransitions defines allowed state transitions
var validTransitions = map[Status][]Status{
	StatusPlaced:         {StatusShipped, StatusCancelled},
	StatusShipped:        {StatusOutForDelivery},
	StatusOutForDelivery: {StatusDelivered},
	StatusDelivered:      {}, // terminal state
	StatusCancelled:      {}, // terminal state
}

// ParseStatus maps the wire value of a status onto a known Status.
func ParseStatus(s string) (Status, error) {
	status := Status(s)
	if _, ok := validTransitions[status]; !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownStatus, s)
	}
	return status, nil
}

type Item struct {
	ProductID    int64           `json:"product_id"`
	Name         string          `json:"name,omitempty"`
	ImageURL     string          `json:"image_url,omitempty"`
	Quantity     int             `json:"quantity"`
	PricePerItem decimal.Decimal `json:"price_per_item"`
}

type Order struct {
	ID             int64             `json:"order_id"`
	CustomerID     int64             `json:"customer_id"`
	CustomerName   string            `json:"customer_name,omitempty"`
	AddressID      int64             `json:"address_id"`
	Address        *customer.Address `json:"address,omitempty"`
	TrackingNumber string            `json:"tracking_number"`
	Total          decimal.Decimal   `json:"total_amount"`
	Status         Status            `json:"status"`
	OrderDate      time.Time         `json:"order_date"`
	Items          []Item            `json:"items,omitempty"`
}

// NewFromCart prices an order from cart lines. Each item captures the unit
// price carried by its line, so later catalogue price changes never touch it.
func NewFromCart(customerID, addressID int64, lines []cart.Line, trackingNumber string) (*Order, error) {
	if len(lines) == 0 {
		return nil, ErrEmptyOrder
	}

	items := make([]Item, len(lines))
	total := decimal.Zero
	for i, l := range lines {
		items[i] = Item{
			ProductID:    l.ProductID,
			Name:         l.Name,
			ImageURL:     l.ImageURL,
			Quantity:     l.Quantity,
			PricePerItem: l.UnitPrice,
		}
		total = total.Add(l.Subtotal())
	}

	return &Order{
		CustomerID:     customerID,
		AddressID:      addressID,
		TrackingNumber: trackingNumber,
		Total:          total,
		Status:         StatusPlaced,
		OrderDate:      time.Now(),
		Items:          items,
	}, nil
}

// CanTransitionTo checks if the order can transition to the target status
func (o *Order) CanTransitionTo(target Status) bool {
	allowed, exists := validTransitions[o.Status]
	if !exists {
		return false
	}
	for _, s := range allowed {
		if s == target {
			return true
		}
	}
	return false
}

// TransitionTo moves the order to target or explains why it cannot.
func (o *Order) TransitionTo(target Status) error {
	if !o.CanTransitionTo(target) {
		return o.transitionError(target)
	}
	o.Status = target
	return nil
}

// transitionError returns an appropriate error for an invalid transition
func (o *Order) transitionError(target Status) error {
	switch {
	case o.Status == StatusCancelled:
		return ErrOrderCancelled
	case o.Status == StatusDelivered:
		return ErrOrderDelivered
	case target == StatusCancelled:
		return ErrOrderDispatched
	default:
		return fmt.Errorf("%w: cannot transition from %s to %s", ErrInvalidTransition, o.Status, target)
	}
}
