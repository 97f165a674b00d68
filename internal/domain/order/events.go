package order

import (
	"time"

	"github.com/shopspring/decimal"
)

const AggregateType = "Order"

const (
	EventOrderPlaced        = "OrderPlaced"
	EventOrderStatusChanged = "OrderStatusChanged"
)

type OrderItem struct {
	ProductID int64           `json:"product_id"`
	Name      string          `json:"name"`
	Quantity  int             `json:"quantity"`
	Price     decimal.Decimal `json:"price"`
}

type OrderPlaced struct {
	OrderID        int64           `json:"order_id"`
	CustomerID     int64           `json:"customer_id"`
	AddressID      int64           `json:"address_id"`
	TrackingNumber string          `json:"tracking_number"`
	Items          []OrderItem     `json:"items"`
	Total          decimal.Decimal `json:"total"`
	PlacedAt       time.Time       `json:"placed_at"`
}

type OrderStatusChanged struct {
	OrderID   int64     `json:"order_id"`
	From      Status    `json:"from"`
	To        Status    `json:"to"`
	ChangedAt time.Time `json:"changed_at"`
}

// PlacedEvent builds the event published once an order is committed.
func (o *Order) PlacedEvent() OrderPlaced {
	items := make([]OrderItem, len(o.Items))
	for i, it := range o.Items {
		items[i] = OrderItem{
			ProductID: it.ProductID,
			Name:      it.Name,
			Quantity:  it.Quantity,
			Price:     it.PricePerItem,
		}
	}
	return OrderPlaced{
		OrderID:        o.ID,
		CustomerID:     o.CustomerID,
		AddressID:      o.AddressID,
		TrackingNumber: o.TrackingNumber,
		Items:          items,
		Total:          o.Total,
		PlacedAt:       o.OrderDate,
	}
}
