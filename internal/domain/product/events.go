package product

import (
	"time"

	"github.com/shopspring/decimal"
)

const AggregateType = "Product"

const (
	EventProductCreated = "ProductCreated"
	EventProductUpdated = "ProductUpdated"
	EventProductDeleted = "ProductDeleted"
)

type ProductCreated struct {
	ProductID int64           `json:"product_id"`
	Name      string          `json:"name"`
	MRP       decimal.Decimal `json:"mrp"`
	Quantity  int             `json:"quantity"`
	CreatedAt time.Time       `json:"created_at"`
}

type ProductUpdated struct {
	ProductID int64           `json:"product_id"`
	Name      string          `json:"name"`
	MRP       decimal.Decimal `json:"mrp"`
	Quantity  int             `json:"quantity"`
	UpdatedAt time.Time       `json:"updated_at"`
}

type ProductDeleted struct {
	ProductID int64     `json:"product_id"`
	DeletedAt time.Time `json:"deleted_at"`
}
