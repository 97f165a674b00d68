package readmodel

import (
	"github.com/example/ec-checkout/internal/domain/cart"
	"github.com/example/ec-checkout/internal/domain/customer"
	"github.com/example/ec-checkout/internal/domain/product"
	"github.com/shopspring/decimal"
)

// ProductPage is one page of the catalogue
type ProductPage struct {
	Products      []product.Product `json:"products"`
	CurrentPage   int               `json:"currentPage"`
	TotalPages    int               `json:"totalPages"`
	TotalProducts int               `json:"totalProducts"`
}

// ProductDetail is a product with its rating summary
type ProductDetail struct {
	product.Product
	AverageRating float64 `json:"average_rating"`
	ReviewCount   int     `json:"review_count"`
}

// CartView is the shopping cart as shown to its owner
type CartView struct {
	CartID int64           `json:"cart_id"`
	Items  []cart.Line     `json:"items"`
	Total  decimal.Decimal `json:"total"`
}

// CustomerView is a customer without credentials
type CustomerView struct {
	ID            int64         `json:"customer_id"`
	Name          string        `json:"name"`
	Email         string        `json:"email"`
	Phone         string        `json:"phone,omitempty"`
	Role          customer.Role `json:"role"`
	LoyaltyPoints int           `json:"loyalty_points"`
}

func NewCustomerView(c *customer.Customer) CustomerView {
	return CustomerView{
		ID:            c.ID,
		Name:          c.Name,
		Email:         c.Email,
		Phone:         c.Phone,
		Role:          c.Role,
		LoyaltyPoints: c.LoyaltyPoints,
	}
}
