package command

import (
	"github.com/shopspring/decimal"
)

// Checkout Commands
type Checkout struct {
	CustomerID     int64  `json:"-"`
	AddressID      int64  `json:"addressId"`
	IdempotencyKey string `json:"-"`
}

type CheckoutResult struct {
	OrderID        int64           `json:"orderId"`
	TrackingNumber string          `json:"trackingNumber"`
	Total          decimal.Decimal `json:"total"`
	// Replayed is set when the result was recalled for a repeated
	// idempotency key instead of placing a new order.
	Replayed bool `json:"-"`
}

// Customer Commands
type Register struct {
	Name      string `json:"name"`
	Email     string `json:"email"`
	Password  string `json:"password"`
	Phone     string `json:"phone"`
	AdminCode string `json:"adminCode"`
}

type SaveAddress struct {
	CustomerID int64  `json:"-"`
	StreetNo   string `json:"street_no"`
	City       string `json:"city"`
	State      string `json:"state"`
	ZipCode    string `json:"zip_code"`
}

// Cart Commands
type AddToCart struct {
	CustomerID int64 `json:"-"`
	ProductID  int64 `json:"product_id"`
	Quantity   int   `json:"quantity"`
}

type UpdateCartItem struct {
	CustomerID int64 `json:"-"`
	ProductID  int64 `json:"-"`
	Quantity   int   `json:"quantity"`
}

type RemoveFromCart struct {
	CustomerID int64
	ProductID  int64
}

// Wishlist Commands
type AddToWishlist struct {
	CustomerID int64 `json:"-"`
	ProductID  int64 `json:"product_id"`
}

type RemoveFromWishlist struct {
	CustomerID int64
	ProductID  int64
}

// Review Commands
type PostReview struct {
	CustomerID int64  `json:"-"`
	ProductID  int64  `json:"-"`
	Rating     int    `json:"rating"`
	Comment    string `json:"comment"`
}

// Product Commands
type CreateProduct struct {
	Name                string          `json:"name"`
	Description         string          `json:"description"`
	DetailedDescription string          `json:"detailed_description"`
	MRP                 decimal.Decimal `json:"mrp"`
	Quantity            int             `json:"quantity"`
	ImageURL            string          `json:"image_url"`
	CategoryID          *int64          `json:"category_id"`
	SellerID            *int64          `json:"-"`
}

type UpdateProduct struct {
	ProductID           int64           `json:"-"`
	Name                string          `json:"name"`
	Description         string          `json:"description"`
	DetailedDescription string          `json:"detailed_description"`
	MRP                 decimal.Decimal `json:"mrp"`
	Quantity            int             `json:"quantity"`
	ImageURL            string          `json:"image_url"`
	CategoryID          *int64          `json:"category_id"`
}

type DeleteProduct struct {
	ProductID int64
}

// Order Commands
type UpdateOrderStatus struct {
	OrderID int64  `json:"-"`
	Status  string `json:"status"`
}
