package command

import (
	"context"
	"errors"
	"log"
	"strings"
	"time"

	"github.com/example/ec-checkout/internal/apperr"
	"github.com/example/ec-checkout/internal/auth"
	"github.com/example/ec-checkout/internal/domain/cart"
	"github.com/example/ec-checkout/internal/domain/category"
	"github.com/example/ec-checkout/internal/domain/customer"
	"github.com/example/ec-checkout/internal/domain/inventory"
	"github.com/example/ec-checkout/internal/domain/order"
	"github.com/example/ec-checkout/internal/domain/product"
	"github.com/example/ec-checkout/internal/domain/wishlist"
	"github.com/example/ec-checkout/internal/infrastructure/store"
)

const defaultTrackingAttempts = 5

// TrackingSource hands out candidate tracking numbers.
type TrackingSource interface {
	Next() string
}

// IdempotencyStore remembers the outcome of keyed requests.
type IdempotencyStore interface {
	TryLock(ctx context.Context, scope, key string) (bool, error)
	Remember(ctx context.Context, scope, key, value string) error
	Recall(ctx context.Context, scope, key string) (string, bool, error)
	Forget(ctx context.Context, scope, key string) error
}

// CheckoutRecorder observes checkout outcomes.
type CheckoutRecorder interface {
	ObserveCheckout(outcome string, d time.Duration)
}

type nopRecorder struct{}

func (nopRecorder) ObserveCheckout(string, time.Duration) {}

type Options struct {
	Tracking         TrackingSource
	TrackingAttempts int
	AdminCode        string
	Idempotency      IdempotencyStore
	Recorder         CheckoutRecorder
}

type Handler struct {
	store            store.Store
	tracking         TrackingSource
	trackingAttempts int
	adminCode        string
	idempotency      IdempotencyStore
	recorder         CheckoutRecorder
}

func NewHandler(s store.Store, opts Options) *Handler {
	h := &Handler{
		store:            s,
		tracking:         opts.Tracking,
		trackingAttempts: opts.TrackingAttempts,
		adminCode:        opts.AdminCode,
		idempotency:      opts.Idempotency,
		recorder:         opts.Recorder,
	}
	if h.tracking == nil {
		h.tracking = order.NewTrackingGenerator(order.DefaultTrackingPrefix)
	}
	if h.trackingAttempts <= 0 {
		h.trackingAttempts = defaultTrackingAttempts
	}
	if h.recorder == nil {
		h.recorder = nopRecorder{}
	}
	return h
}

// Register creates a customer together with an empty cart and wishlist.
func (h *Handler) Register(ctx context.Context, cmd Register) (*customer.Customer, error) {
	role := customer.RoleUser
	if h.adminCode != "" && cmd.AdminCode == h.adminCode {
		role = customer.RoleAdmin
	}

	c, err := customer.New(cmd.Name, cmd.Email, "", cmd.Phone, role)
	if err != nil {
		return nil, classify(err)
	}
	if c.PasswordHash, err = auth.HashPassword(cmd.Password); err != nil {
		return nil, classify(err)
	}

	err = h.store.WithinTx(ctx, func(ctx context.Context, tx store.Tx) error {
		id, err := tx.CreateCustomer(ctx, c)
		if err != nil {
			return err
		}
		c.ID = id
		if _, err := tx.CreateCart(ctx, id); err != nil {
			return err
		}
		if _, err := tx.CreateWishlist(ctx, id); err != nil {
			return err
		}
		_, err = tx.AppendEvent(ctx, customer.AggregateType, id, customer.EventCustomerRegistered, customer.CustomerRegistered{
			CustomerID: id,
			Email:      c.Email,
			Name:       c.Name,
			Role:       c.Role,
			CreatedAt:  c.CreatedAt,
		})
		return err
	})
	if err != nil {
		return nil, classify(err)
	}

	log.Printf("[Register] Customer %d registered as %s", c.ID, c.Role)
	return c, nil
}

// SaveAddress adds a delivery address to the customer's address book.
func (h *Handler) SaveAddress(ctx context.Context, cmd SaveAddress) (*customer.Address, error) {
	a := &customer.Address{
		CustomerID: cmd.CustomerID,
		StreetNo:   cmd.StreetNo,
		City:       cmd.City,
		State:      cmd.State,
		ZipCode:    cmd.ZipCode,
	}
	if err := a.Validate(); err != nil {
		return nil, classify(err)
	}

	err := h.store.WithinTx(ctx, func(ctx context.Context, tx store.Tx) error {
		id, err := tx.InsertAddress(ctx, a)
		a.ID = id
		return err
	})
	if err != nil {
		return nil, classify(err)
	}
	return a, nil
}

// AddToCart adds quantity units of a product to the cart, merging with any
// line already there. Stock is checked here as a courtesy; checkout checks
// it again under lock.
func (h *Handler) AddToCart(ctx context.Context, cmd AddToCart) error {
	if err := cart.ValidateItem(cmd.ProductID, cmd.Quantity); err != nil {
		return classify(err)
	}

	err := h.store.WithinTx(ctx, func(ctx context.Context, tx store.Tx) error {
		cartID, err := tx.LockCart(ctx, cmd.CustomerID)
		if err != nil {
			return err
		}
		p, err := tx.GetProduct(ctx, cmd.ProductID)
		if err != nil {
			return err
		}
		lines, err := tx.CartLines(ctx, cartID, false)
		if err != nil {
			return err
		}
		c := cart.Cart{ID: cartID, CustomerID: cmd.CustomerID, Lines: lines}
		want := c.QuantityOf(p.ID) + cmd.Quantity
		if err := inventory.CheckAvailability(p.ID, p.Quantity, want); err != nil {
			return err
		}
		return tx.SetCartItem(ctx, cartID, p.ID, want)
	})
	return classify(err)
}

// UpdateCartItem replaces the quantity of a line already in the cart.
func (h *Handler) UpdateCartItem(ctx context.Context, cmd UpdateCartItem) error {
	if err := cart.ValidateItem(cmd.ProductID, cmd.Quantity); err != nil {
		return classify(err)
	}

	err := h.store.WithinTx(ctx, func(ctx context.Context, tx store.Tx) error {
		cartID, err := tx.LockCart(ctx, cmd.CustomerID)
		if err != nil {
			return err
		}
		lines, err := tx.CartLines(ctx, cartID, false)
		if err != nil {
			return err
		}
		c := cart.Cart{ID: cartID, CustomerID: cmd.CustomerID, Lines: lines}
		if c.QuantityOf(cmd.ProductID) == 0 {
			return cart.ErrItemNotInCart
		}
		p, err := tx.GetProduct(ctx, cmd.ProductID)
		if err != nil {
			return err
		}
		if err := inventory.CheckAvailability(p.ID, p.Quantity, cmd.Quantity); err != nil {
			return err
		}
		return tx.SetCartItem(ctx, cartID, p.ID, cmd.Quantity)
	})
	return classify(err)
}

// RemoveFromCart removes a line from the cart
func (h *Handler) RemoveFromCart(ctx context.Context, cmd RemoveFromCart) error {
	err := h.store.WithinTx(ctx, func(ctx context.Context, tx store.Tx) error {
		cartID, err := tx.LockCart(ctx, cmd.CustomerID)
		if err != nil {
			return err
		}
		return tx.DeleteCartItem(ctx, cartID, cmd.ProductID)
	})
	return classify(err)
}

// AddToWishlist adds a product to the customer's wishlist
func (h *Handler) AddToWishlist(ctx context.Context, cmd AddToWishlist) error {
	err := h.store.WithinTx(ctx, func(ctx context.Context, tx store.Tx) error {
		if _, err := tx.GetProduct(ctx, cmd.ProductID); err != nil {
			return err
		}
		return tx.AddWishlistItem(ctx, cmd.CustomerID, cmd.ProductID)
	})
	return classify(err)
}

// RemoveFromWishlist removes a product from the customer's wishlist
func (h *Handler) RemoveFromWishlist(ctx context.Context, cmd RemoveFromWishlist) error {
	err := h.store.WithinTx(ctx, func(ctx context.Context, tx store.Tx) error {
		return tx.RemoveWishlistItem(ctx, cmd.CustomerID, cmd.ProductID)
	})
	return classify(err)
}

// PostReview records a rating and optional comment for a product.
func (h *Handler) PostReview(ctx context.Context, cmd PostReview) (*product.Review, error) {
	r := &product.Review{
		ProductID:  cmd.ProductID,
		CustomerID: cmd.CustomerID,
		Rating:     cmd.Rating,
		Comment:    strings.TrimSpace(cmd.Comment),
		CreatedAt:  time.Now(),
	}
	if err := r.Validate(); err != nil {
		return nil, classify(err)
	}

	err := h.store.WithinTx(ctx, func(ctx context.Context, tx store.Tx) error {
		if _, err := tx.GetProduct(ctx, cmd.ProductID); err != nil {
			return err
		}
		id, err := tx.InsertReview(ctx, r)
		r.ID = id
		return err
	})
	if err != nil {
		return nil, classify(err)
	}
	return r, nil
}

// CreateProduct creates a new product
func (h *Handler) CreateProduct(ctx context.Context, cmd CreateProduct) (*product.Product, error) {
	p := &product.Product{
		Name:                cmd.Name,
		Description:         cmd.Description,
		DetailedDescription: cmd.DetailedDescription,
		MRP:                 cmd.MRP,
		Quantity:            cmd.Quantity,
		ImageURL:            cmd.ImageURL,
		SellerID:            cmd.SellerID,
		CategoryID:          cmd.CategoryID,
		CreatedAt:           time.Now(),
	}
	if err := p.Validate(); err != nil {
		return nil, classify(err)
	}

	err := h.store.WithinTx(ctx, func(ctx context.Context, tx store.Tx) error {
		id, err := tx.InsertProduct(ctx, p)
		if err != nil {
			return err
		}
		p.ID = id
		_, err = tx.AppendEvent(ctx, product.AggregateType, id, product.EventProductCreated, product.ProductCreated{
			ProductID: id,
			Name:      p.Name,
			MRP:       p.MRP,
			Quantity:  p.Quantity,
			CreatedAt: p.CreatedAt,
		})
		return err
	})
	if err != nil {
		return nil, classify(err)
	}

	log.Printf("[Product] Created product %d (%s)", p.ID, p.Name)
	return p, nil
}

// UpdateProduct overwrites a product's catalogue fields and stock level.
func (h *Handler) UpdateProduct(ctx context.Context, cmd UpdateProduct) (*product.Product, error) {
	var updated *product.Product
	err := h.store.WithinTx(ctx, func(ctx context.Context, tx store.Tx) error {
		p, err := tx.LockProduct(ctx, cmd.ProductID)
		if err != nil {
			return err
		}
		p.Name = cmd.Name
		p.Description = cmd.Description
		p.DetailedDescription = cmd.DetailedDescription
		p.MRP = cmd.MRP
		p.Quantity = cmd.Quantity
		p.ImageURL = cmd.ImageURL
		p.CategoryID = cmd.CategoryID
		if err := p.Validate(); err != nil {
			return err
		}
		if err := tx.UpdateProduct(ctx, p); err != nil {
			return err
		}
		updated = p
		_, err = tx.AppendEvent(ctx, product.AggregateType, p.ID, product.EventProductUpdated, product.ProductUpdated{
			ProductID: p.ID,
			Name:      p.Name,
			MRP:       p.MRP,
			Quantity:  p.Quantity,
			UpdatedAt: time.Now(),
		})
		return err
	})
	if err != nil {
		return nil, classify(err)
	}
	return updated, nil
}

// DeleteProduct deletes a product
func (h *Handler) DeleteProduct(ctx context.Context, cmd DeleteProduct) error {
	err := h.store.WithinTx(ctx, func(ctx context.Context, tx store.Tx) error {
		if err := tx.DeleteProduct(ctx, cmd.ProductID); err != nil {
			return err
		}
		_, err := tx.AppendEvent(ctx, product.AggregateType, cmd.ProductID, product.EventProductDeleted, product.ProductDeleted{
			ProductID: cmd.ProductID,
			DeletedAt: time.Now(),
		})
		return err
	})
	if err != nil {
		return classify(err)
	}
	log.Printf("[Product] Deleted product %d", cmd.ProductID)
	return nil
}

// UpdateOrderStatus moves an order along its lifecycle. Cancelling an order
// returns its units to stock.
func (h *Handler) UpdateOrderStatus(ctx context.Context, cmd UpdateOrderStatus) (*order.Order, error) {
	target, err := order.ParseStatus(cmd.Status)
	if err != nil {
		return nil, classify(err)
	}

	var changed *order.Order
	err = h.store.WithinTx(ctx, func(ctx context.Context, tx store.Tx) error {
		o, err := tx.LockOrder(ctx, cmd.OrderID)
		if err != nil {
			return err
		}
		from := o.Status
		if err := o.TransitionTo(target); err != nil {
			return err
		}
		if err := tx.SetOrderStatus(ctx, o.ID, o.Status); err != nil {
			return err
		}

		now := time.Now()
		if o.Status == order.StatusCancelled {
			for _, it := range o.Items {
				if err := tx.IncrementStock(ctx, it.ProductID, it.Quantity); err != nil {
					return err
				}
				if _, err := tx.AppendEvent(ctx, inventory.AggregateType, it.ProductID, inventory.EventStockReleased, inventory.StockReleased{
					ProductID:  it.ProductID,
					OrderID:    o.ID,
					Quantity:   it.Quantity,
					ReleasedAt: now,
				}); err != nil {
					return err
				}
			}
		}

		changed = o
		_, err = tx.AppendEvent(ctx, order.AggregateType, o.ID, order.EventOrderStatusChanged, order.OrderStatusChanged{
			OrderID:   o.ID,
			From:      from,
			To:        o.Status,
			ChangedAt: now,
		})
		return err
	})
	if err != nil {
		return nil, classify(err)
	}

	log.Printf("[Order] Order %d is now %s", changed.ID, changed.Status)
	return changed, nil
}

var (
	notFoundErrors = []error{
		cart.ErrCartNotFound,
		cart.ErrItemNotInCart,
		category.ErrCategoryNotFound,
		customer.ErrCustomerNotFound,
		customer.ErrAddressNotFound,
		order.ErrOrderNotFound,
		product.ErrProductNotFound,
		wishlist.ErrWishlistNotFound,
		wishlist.ErrNotListed,
	}
	validationErrors = []error{
		ErrInvalidCustomer,
		ErrInvalidAddress,
		auth.ErrPasswordTooShort,
		auth.ErrPasswordTooLong,
		cart.ErrEmptyCart,
		cart.ErrInvalidQuantity,
		cart.ErrInvalidProduct,
		customer.ErrInvalidEmail,
		customer.ErrInvalidName,
		customer.ErrIncompleteAddress,
		inventory.ErrInsufficientStock,
		inventory.ErrInvalidQuantity,
		order.ErrEmptyOrder,
		order.ErrUnknownStatus,
		product.ErrInvalidName,
		product.ErrInvalidPrice,
		product.ErrInvalidStock,
		product.ErrInvalidRating,
	}
	conflictErrors = []error{
		customer.ErrEmailTaken,
		wishlist.ErrAlreadyListed,
		order.ErrInvalidTransition,
		order.ErrOrderCancelled,
		order.ErrOrderDelivered,
		order.ErrOrderDispatched,
	}
)

// classify attaches an apperr.Kind to err. Anything unrecognised is treated
// as a persistence fault: the transaction was rolled back and may be retried.
func classify(err error) error {
	if err == nil {
		return nil
	}
	var classified *apperr.Error
	if errors.As(err, &classified) {
		return err
	}
	switch {
	case isAny(err, notFoundErrors):
		return apperr.NotFound(err)
	case isAny(err, validationErrors):
		return apperr.Validation(err)
	case isAny(err, conflictErrors):
		return apperr.Conflict(err)
	case errors.Is(err, customer.ErrInvalidCredentials):
		return apperr.Unauthorized(err)
	}
	return apperr.Persistence(err)
}

func isAny(err error, targets []error) bool {
	for _, t := range targets {
		if errors.Is(err, t) {
			return true
		}
	}
	return false
}
