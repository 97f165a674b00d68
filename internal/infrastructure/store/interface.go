package store

import (
	"context"
	"errors"
	"math"

	"github.com/example/ec-checkout/internal/domain/cart"
	"github.com/example/ec-checkout/internal/domain/category"
	"github.com/example/ec-checkout/internal/domain/customer"
	"github.com/example/ec-checkout/internal/domain/order"
	"github.com/example/ec-checkout/internal/domain/product"
)

var (
	// ErrDuplicateTrackingNumber means another order already uses the
	// tracking number. The transaction is still usable.
	ErrDuplicateTrackingNumber = errors.New("tracking number already in use")
	// ErrLockTimeout means a row lock could not be obtained in time.
	ErrLockTimeout = errors.New("lock wait timeout exceeded")
	// ErrSerialization covers deadlocks and serialization failures. The
	// whole transaction may be retried.
	ErrSerialization = errors.New("transaction aborted by concurrent update")
)

// TxFunc is the body of a transaction. Returning an error rolls back every
// write made through tx.
type TxFunc func(ctx context.Context, tx Tx) error

// Store is the persistence boundary of the shop.
type Store interface {
	// WithinTx runs fn in one transaction. Commit happens only when fn
	// returns nil. fn may run more than once if the transaction is retried
	// after a serialization failure.
	WithinTx(ctx context.Context, fn TxFunc) error

	ReadStore
	OutboxStore

	Close() error
}

// Tx is the set of operations available inside a transaction. Methods whose
// name starts with Lock take an exclusive row lock held until the transaction
// ends.
type Tx interface {
	// Customers
	CreateCustomer(ctx context.Context, c *customer.Customer) (int64, error)
	CreateCart(ctx context.Context, customerID int64) (int64, error)
	CreateWishlist(ctx context.Context, customerID int64) (int64, error)

	// Carts
	LockCart(ctx context.Context, customerID int64) (int64, error)
	// CartLines joins cart items with product price and stock. With
	// lockProducts set, every product row is locked in ascending id order.
	CartLines(ctx context.Context, cartID int64, lockProducts bool) ([]cart.Line, error)
	SetCartItem(ctx context.Context, cartID, productID int64, quantity int) error
	DeleteCartItem(ctx context.Context, cartID, productID int64) error
	ClearCart(ctx context.Context, cartID int64) error

	// Wishlists
	AddWishlistItem(ctx context.Context, customerID, productID int64) error
	RemoveWishlistItem(ctx context.Context, customerID, productID int64) error

	// Addresses
	GetAddress(ctx context.Context, addressID int64) (*customer.Address, error)
	InsertAddress(ctx context.Context, a *customer.Address) (int64, error)

	// Catalogue and stock
	GetProduct(ctx context.Context, productID int64) (*product.Product, error)
	LockProduct(ctx context.Context, productID int64) (*product.Product, error)
	InsertProduct(ctx context.Context, p *product.Product) (int64, error)
	UpdateProduct(ctx context.Context, p *product.Product) error
	DeleteProduct(ctx context.Context, productID int64) error
	// DecrementStock removes quantity units only if that many remain and
	// returns the new stock level. A shortfall yields an
	// *inventory.InsufficientStockError.
	DecrementStock(ctx context.Context, productID int64, quantity int) (int, error)
	IncrementStock(ctx context.Context, productID int64, quantity int) error
	InsertReview(ctx context.Context, r *product.Review) (int64, error)

	// Orders
	// InsertOrder returns ErrDuplicateTrackingNumber on a tracking number
	// collision without aborting the transaction.
	InsertOrder(ctx context.Context, o *order.Order) (int64, error)
	InsertOrderItems(ctx context.Context, orderID int64, items []order.Item) error
	LockOrder(ctx context.Context, orderID int64) (*order.Order, error)
	SetOrderStatus(ctx context.Context, orderID int64, status order.Status) error

	// Outbox
	AppendEvent(ctx context.Context, aggregateType string, aggregateID int64, eventType string, data any) (*Event, error)
}

// OutboxStore is used by the relay that forwards committed events.
type OutboxStore interface {
	FetchPending(ctx context.Context, limit int) ([]Event, error)
	MarkSent(ctx context.Context, eventID string) error
}

// ProductQuery selects one page of the catalogue.
type ProductQuery struct {
	CategoryID *int64
	Sort       string // "mrp", "name" or "" for id
	Desc       bool
	Page       int
	Limit      int
}

// Offset is the number of rows skipped before the page. It saturates at
// math.MaxInt instead of overflowing.
func (q ProductQuery) Offset() int {
	if q.Page < 1 || q.Limit < 1 {
		return 0
	}
	if q.Page-1 > math.MaxInt/q.Limit {
		return math.MaxInt
	}
	return (q.Page - 1) * q.Limit
}

// ReadStore serves non-locking reads outside of transactions.
type ReadStore interface {
	ListProducts(ctx context.Context, q ProductQuery) ([]product.Product, int, error)
	FindProduct(ctx context.Context, productID int64) (*product.Product, error)
	ListCategories(ctx context.Context) ([]category.Category, error)
	FindCategory(ctx context.Context, categoryID int64) (*category.Category, error)
	ListReviews(ctx context.Context, productID int64) ([]product.Review, error)

	FindCart(ctx context.Context, customerID int64) (*cart.Cart, error)
	ListWishlist(ctx context.Context, customerID int64) ([]product.Product, error)
	ListAddresses(ctx context.Context, customerID int64) ([]customer.Address, error)

	ListOrdersByCustomer(ctx context.Context, customerID int64) ([]order.Order, error)
	FindOrderByTracking(ctx context.Context, trackingNumber string) (*order.Order, error)
	ListAllOrders(ctx context.Context) ([]order.Order, error)

	FindCustomer(ctx context.Context, customerID int64) (*customer.Customer, error)
	FindCustomerByEmail(ctx context.Context, email string) (*customer.Customer, error)
	ListCustomers(ctx context.Context) ([]customer.Customer, error)
}
