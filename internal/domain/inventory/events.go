package inventory

import "time"

const AggregateType = "Inventory"

const (
	EventStockDeducted = "StockDeducted"
	EventStockReleased = "StockReleased"
)

type StockDeducted struct {
	ProductID  int64     `json:"product_id"`
	OrderID    int64     `json:"order_id"`
	Quantity   int       `json:"quantity"`
	Remaining  int       `json:"remaining"`
	DeductedAt time.Time `json:"deducted_at"`
}

type StockReleased struct {
	ProductID  int64     `json:"product_id"`
	OrderID    int64     `json:"order_id"`
	Quantity   int       `json:"quantity"`
	ReleasedAt time.Time `json:"released_at"`
}
