package query

import (
	"context"
	"errors"
	"log"
	"math"
	"strings"

	"github.com/example/ec-checkout/internal/apperr"
	"github.com/example/ec-checkout/internal/auth"
	"github.com/example/ec-checkout/internal/domain/cart"
	"github.com/example/ec-checkout/internal/domain/category"
	"github.com/example/ec-checkout/internal/domain/customer"
	"github.com/example/ec-checkout/internal/domain/order"
	"github.com/example/ec-checkout/internal/domain/product"
	"github.com/example/ec-checkout/internal/infrastructure/store"
	"github.com/example/ec-checkout/internal/readmodel"
)

const (
	DefaultPageSize = 10
	MaxPageSize     = 100
	// MaxPage keeps the row offset inside a Postgres bigint and a 32-bit int.
	MaxPage = math.MaxInt32 / MaxPageSize
)

// ProductListParams are the catalogue paging options as received from a
// client. Zero values select the defaults.
type ProductListParams struct {
	CategoryID *int64
	Sort       string
	Order      string
	Page       int
	Limit      int
}

func (p ProductListParams) normalize() store.ProductQuery {
	q := store.ProductQuery{
		CategoryID: p.CategoryID,
		Desc:       p.Order == "desc",
		Page:       p.Page,
		Limit:      p.Limit,
	}
	if p.Sort == "mrp" || p.Sort == "name" {
		q.Sort = p.Sort
	}
	if q.Page < 1 {
		q.Page = 1
	}
	if q.Page > MaxPage {
		q.Page = MaxPage
	}
	if q.Limit < 1 {
		q.Limit = DefaultPageSize
	}
	if q.Limit > MaxPageSize {
		q.Limit = MaxPageSize
	}
	return q
}

type Handler struct {
	readStore store.ReadStore
}

func NewHandler(readStore store.ReadStore) *Handler {
	return &Handler{readStore: readStore}
}

// Products
func (h *Handler) ListProducts(ctx context.Context, params ProductListParams) (*ProductPage, error) {
	q := params.normalize()
	if q.CategoryID != nil {
		if _, err := h.readStore.FindCategory(ctx, *q.CategoryID); err != nil {
			return nil, h.fail("finding category", err)
		}
	}

	products, total, err := h.readStore.ListProducts(ctx, q)
	if err != nil {
		return nil, h.fail("listing products", err)
	}
	return &readmodel.ProductPage{
		Products:      products,
		CurrentPage:   q.Page,
		TotalPages:    int(math.Ceil(float64(total) / float64(q.Limit))),
		TotalProducts: total,
	}, nil
}

func (h *Handler) GetProduct(ctx context.Context, productID int64) (*ProductDetail, error) {
	p, err := h.readStore.FindProduct(ctx, productID)
	if err != nil {
		return nil, h.fail("getting product", err)
	}
	reviews, err := h.readStore.ListReviews(ctx, productID)
	if err != nil {
		return nil, h.fail("listing reviews", err)
	}

	detail := &readmodel.ProductDetail{Product: *p, ReviewCount: len(reviews)}
	if len(reviews) > 0 {
		sum := 0
		for _, r := range reviews {
			sum += r.Rating
		}
		detail.AverageRating = math.Round(float64(sum)/float64(len(reviews))*10) / 10
	}
	return detail, nil
}

func (h *Handler) ListReviews(ctx context.Context, productID int64) ([]product.Review, error) {
	if _, err := h.readStore.FindProduct(ctx, productID); err != nil {
		return nil, h.fail("getting product", err)
	}
	reviews, err := h.readStore.ListReviews(ctx, productID)
	if err != nil {
		return nil, h.fail("listing reviews", err)
	}
	return reviews, nil
}

// Categories
func (h *Handler) ListCategories(ctx context.Context) ([]category.Category, error) {
	categories, err := h.readStore.ListCategories(ctx)
	if err != nil {
		return nil, h.fail("listing categories", err)
	}
	return categories, nil
}

// Cart
func (h *Handler) GetCart(ctx context.Context, customerID int64) (*CartView, error) {
	c, err := h.readStore.FindCart(ctx, customerID)
	if err != nil {
		return nil, h.fail("getting cart", err)
	}
	lines := c.Lines
	if lines == nil {
		lines = []cart.Line{}
	}
	return &readmodel.CartView{CartID: c.ID, Items: lines, Total: c.Total()}, nil
}

// Wishlist
func (h *Handler) GetWishlist(ctx context.Context, customerID int64) ([]product.Product, error) {
	products, err := h.readStore.ListWishlist(ctx, customerID)
	if err != nil {
		return nil, h.fail("getting wishlist", err)
	}
	return products, nil
}

// Addresses
func (h *Handler) ListAddresses(ctx context.Context, customerID int64) ([]customer.Address, error) {
	addresses, err := h.readStore.ListAddresses(ctx, customerID)
	if err != nil {
		return nil, h.fail("listing addresses", err)
	}
	return addresses, nil
}

// Orders
func (h *Handler) ListOrders(ctx context.Context, customerID int64) ([]order.Order, error) {
	orders, err := h.readStore.ListOrdersByCustomer(ctx, customerID)
	if err != nil {
		return nil, h.fail("listing orders", err)
	}
	return orders, nil
}

func (h *Handler) TrackOrder(ctx context.Context, trackingNumber string) (*order.Order, error) {
	o, err := h.readStore.FindOrderByTracking(ctx, trackingNumber)
	if err != nil {
		return nil, h.fail("tracking order", err)
	}
	return o, nil
}

func (h *Handler) ListAllOrders(ctx context.Context) ([]order.Order, error) {
	orders, err := h.readStore.ListAllOrders(ctx)
	if err != nil {
		return nil, h.fail("listing all orders", err)
	}
	return orders, nil
}

// Customers
func (h *Handler) GetCustomer(ctx context.Context, customerID int64) (*CustomerView, error) {
	c, err := h.readStore.FindCustomer(ctx, customerID)
	if err != nil {
		return nil, h.fail("getting customer", err)
	}
	view := readmodel.NewCustomerView(c)
	return &view, nil
}

// CustomerRole returns the role currently stored for a customer.
func (h *Handler) CustomerRole(ctx context.Context, customerID int64) (customer.Role, error) {
	c, err := h.readStore.FindCustomer(ctx, customerID)
	if err != nil {
		return "", h.fail("reading customer role", err)
	}
	return c.Role, nil
}

func (h *Handler) ListCustomers(ctx context.Context) ([]CustomerView, error) {
	customers, err := h.readStore.ListCustomers(ctx)
	if err != nil {
		return nil, h.fail("listing customers", err)
	}
	views := make([]CustomerView, len(customers))
	for i := range customers {
		views[i] = readmodel.NewCustomerView(&customers[i])
	}
	return views, nil
}

// Authenticate checks an email and password pair. Unknown emails and wrong
// passwords yield the same error.
func (h *Handler) Authenticate(ctx context.Context, email, password string) (*customer.Customer, error) {
	c, err := h.readStore.FindCustomerByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if errors.Is(err, customer.ErrCustomerNotFound) {
		return nil, apperr.Unauthorized(customer.ErrInvalidCredentials)
	}
	if err != nil {
		return nil, h.fail("finding customer", err)
	}
	if !auth.CheckPassword(password, c.PasswordHash) {
		return nil, apperr.Unauthorized(customer.ErrInvalidCredentials)
	}
	return c, nil
}

var notFoundErrors = []error{
	cart.ErrCartNotFound,
	category.ErrCategoryNotFound,
	customer.ErrCustomerNotFound,
	order.ErrOrderNotFound,
	product.ErrProductNotFound,
}

func (h *Handler) fail(what string, err error) error {
	for _, target := range notFoundErrors {
		if errors.Is(err, target) {
			return apperr.NotFound(err)
		}
	}
	log.Printf("[Query] Error %s: %v", what, err)
	return apperr.Persistence(err)
}
