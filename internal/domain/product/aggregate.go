package product

import (
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

var (
	ErrProductNotFound = errors.New("product not found")
	ErrInvalidPrice    = errors.New("mrp must be positive")
	ErrInvalidName     = errors.New("name is required")
	ErrInvalidStock    = errors.New("quantity cannot be negative")
	ErrInvalidRating   = errors.New("rating must be between 1 and 5")
)

type Product struct {
	ID                  int64           `json:"product_id"`
	Name                string          `json:"name"`
	Description         string          `json:"description"`
	DetailedDescription string          `json:"detailed_description"`
	MRP                 decimal.Decimal `json:"mrp"`
	Quantity            int             `json:"quantity"`
	ImageURL            string          `json:"image_url"`
	SellerID            *int64          `json:"seller_id,omitempty"`
	CategoryID          *int64          `json:"category_id,omitempty"`
	CategoryName        string          `json:"category_name,omitempty"`
	CreatedAt           time.Time       `json:"created_at"`
}

// Validate checks the fields an admin must supply when creating or editing a
// product.
func (p *Product) Validate() error {
	p.Name = strings.TrimSpace(p.Name)
	if p.Name == "" {
		return ErrInvalidName
	}
	if !p.MRP.IsPositive() {
		return ErrInvalidPrice
	}
	if p.Quantity < 0 {
		return ErrInvalidStock
	}
	return nil
}

// Review is a customer's rating of a product.
type Review struct {
	ID           int64     `json:"review_id"`
	ProductID    int64     `json:"product_id"`
	CustomerID   int64     `json:"customer_id"`
	CustomerName string    `json:"customer_name,omitempty"`
	Rating       int       `json:"rating"`
	Comment      string    `json:"comment"`
	CreatedAt    time.Time `json:"created_at"`
}

func (r *Review) Validate() error {
	if r.Rating < 1 || r.Rating > 5 {
		return ErrInvalidRating
	}
	return nil
}
