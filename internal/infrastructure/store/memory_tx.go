package store

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/example/ec-checkout/internal/domain/cart"
	"github.com/example/ec-checkout/internal/domain/customer"
	"github.com/example/ec-checkout/internal/domain/inventory"
	"github.com/example/ec-checkout/internal/domain/order"
	"github.com/example/ec-checkout/internal/domain/product"
	"github.com/example/ec-checkout/internal/domain/wishlist"
)

// rowLocks hands out exclusive locks keyed by row. A lock is a one-slot
// channel so waiting can be abandoned when the context ends.
type rowLocks struct {
	mu   sync.Mutex
	rows map[string]chan struct{}
}

func newRowLocks() *rowLocks {
	return &rowLocks{rows: make(map[string]chan struct{})}
}

func (l *rowLocks) slot(key string) chan struct{} {
	l.mu.Lock()
	defer l.mu.Unlock()
	ch, ok := l.rows[key]
	if !ok {
		ch = make(chan struct{}, 1)
		l.rows[key] = ch
	}
	return ch
}

func (l *rowLocks) acquire(ctx context.Context, key string) error {
	select {
	case l.slot(key) <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (l *rowLocks) release(key string) {
	<-l.slot(key)
}

func cartKey(cartID int64) string       { return fmt.Sprintf("cart:%d", cartID) }
func productKey(productID int64) string { return fmt.Sprintf("product:%d", productID) }
func orderKey(orderID int64) string     { return fmt.Sprintf("order:%d", orderID) }
func wishlistKey(customerID int64) string {
	return fmt.Sprintf("wishlist:%d", customerID)
}

type memoryTx struct {
	s       *MemoryStore
	held    []string
	holding map[string]bool
	undo    []func()
	events  []*Event
}

var _ Tx = (*memoryTx)(nil)

func newMemoryTx(s *MemoryStore) *memoryTx {
	return &memoryTx{s: s, holding: make(map[string]bool)}
}

func (t *memoryTx) lock(ctx context.Context, key string) error {
	if t.holding[key] {
		return nil
	}
	lockCtx := ctx
	if t.s.lockTimeout > 0 {
		var cancel context.CancelFunc
		lockCtx, cancel = context.WithTimeout(ctx, t.s.lockTimeout)
		defer cancel()
	}
	if err := t.s.locks.acquire(lockCtx, key); err != nil {
		if errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
			return fmt.Errorf("%w: %s", ErrLockTimeout, key)
		}
		return err
	}
	t.holding[key] = true
	t.held = append(t.held, key)
	return nil
}

func (t *memoryTx) releaseAll() {
	for i := len(t.held) - 1; i >= 0; i-- {
		t.s.locks.release(t.held[i])
	}
	t.held = nil
	t.holding = make(map[string]bool)
}

func (t *memoryTx) rollback() {
	t.s.mu.Lock()
	for i := len(t.undo) - 1; i >= 0; i-- {
		t.undo[i]()
	}
	t.s.mu.Unlock()
	t.undo = nil
	t.events = nil
}

func (t *memoryTx) commit() {
	t.s.mu.Lock()
	t.s.outbox = append(t.s.outbox, t.events...)
	t.s.mu.Unlock()
	t.undo = nil
	t.events = nil
}

// write runs fn under the store mutex and records its undo step.
func (t *memoryTx) write(fn func() func()) {
	t.s.mu.Lock()
	undo := fn()
	t.s.mu.Unlock()
	if undo != nil {
		t.undo = append(t.undo, undo)
	}
}

func (t *memoryTx) CreateCustomer(ctx context.Context, c *customer.Customer) (int64, error) {
	if err := t.s.fail("CreateCustomer"); err != nil {
		return 0, err
	}
	var id int64
	var taken bool
	t.write(func() func() {
		if _, ok := t.s.emails[c.Email]; ok {
			taken = true
			return nil
		}
		id = t.s.next("customer")
		cp := *c
		cp.ID = id
		t.s.customers[id] = &cp
		t.s.emails[c.Email] = id
		return func() {
			delete(t.s.customers, id)
			delete(t.s.emails, c.Email)
		}
	})
	if taken {
		return 0, customer.ErrEmailTaken
	}
	return id, nil
}

func (t *memoryTx) CreateCart(ctx context.Context, customerID int64) (int64, error) {
	if err := t.s.fail("CreateCart"); err != nil {
		return 0, err
	}
	var id int64
	t.write(func() func() {
		id = t.s.next("cart")
		t.s.carts[id] = customerID
		t.s.cartByCustomer[customerID] = id
		t.s.cartItems[id] = make(map[int64]int)
		return func() {
			delete(t.s.carts, id)
			delete(t.s.cartByCustomer, customerID)
			delete(t.s.cartItems, id)
		}
	})
	return id, nil
}

func (t *memoryTx) CreateWishlist(ctx context.Context, customerID int64) (int64, error) {
	if err := t.s.fail("CreateWishlist"); err != nil {
		return 0, err
	}
	t.write(func() func() {
		t.s.wishlists[customerID] = make(map[int64]time.Time)
		return func() { delete(t.s.wishlists, customerID) }
	})
	return customerID, nil
}

func (t *memoryTx) LockCart(ctx context.Context, customerID int64) (int64, error) {
	if err := t.s.fail("LockCart"); err != nil {
		return 0, err
	}
	t.s.mu.RLock()
	cartID, ok := t.s.cartByCustomer[customerID]
	t.s.mu.RUnlock()
	if !ok {
		return 0, cart.ErrCartNotFound
	}
	if err := t.lock(ctx, cartKey(cartID)); err != nil {
		return 0, err
	}
	return cartID, nil
}

func (t *memoryTx) CartLines(ctx context.Context, cartID int64, lockProducts bool) ([]cart.Line, error) {
	if err := t.s.fail("CartLines"); err != nil {
		return nil, err
	}
	if lockProducts {
		t.s.mu.RLock()
		ids := make([]int64, 0, len(t.s.cartItems[cartID]))
		for productID := range t.s.cartItems[cartID] {
			ids = append(ids, productID)
		}
		t.s.mu.RUnlock()
		sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

		for _, productID := range ids {
			if err := t.lock(ctx, productKey(productID)); err != nil {
				return nil, err
			}
		}
	}

	t.s.mu.RLock()
	defer t.s.mu.RUnlock()
	return t.s.cartLinesLocked(cartID), nil
}

func (t *memoryTx) SetCartItem(ctx context.Context, cartID, productID int64, quantity int) error {
	if err := t.s.fail("SetCartItem"); err != nil {
		return err
	}
	t.write(func() func() {
		items := t.s.cartItems[cartID]
		prev, existed := items[productID]
		items[productID] = quantity
		return func() {
			if existed {
				items[productID] = prev
			} else {
				delete(items, productID)
			}
		}
	})
	return nil
}

func (t *memoryTx) DeleteCartItem(ctx context.Context, cartID, productID int64) error {
	if err := t.s.fail("DeleteCartItem"); err != nil {
		return err
	}
	var missing bool
	t.write(func() func() {
		items := t.s.cartItems[cartID]
		prev, existed := items[productID]
		if !existed {
			missing = true
			return nil
		}
		delete(items, productID)
		return func() { items[productID] = prev }
	})
	if missing {
		return cart.ErrItemNotInCart
	}
	return nil
}

func (t *memoryTx) ClearCart(ctx context.Context, cartID int64) error {
	if err := t.s.fail("ClearCart"); err != nil {
		return err
	}
	t.write(func() func() {
		prev := t.s.cartItems[cartID]
		t.s.cartItems[cartID] = make(map[int64]int)
		return func() { t.s.cartItems[cartID] = prev }
	})
	return nil
}

func (t *memoryTx) AddWishlistItem(ctx context.Context, customerID, productID int64) error {
	if err := t.s.fail("AddWishlistItem"); err != nil {
		return err
	}
	if err := t.lock(ctx, wishlistKey(customerID)); err != nil {
		return err
	}
	var err error
	t.write(func() func() {
		items, ok := t.s.wishlists[customerID]
		if !ok {
			err = wishlist.ErrWishlistNotFound
			return nil
		}
		if _, listed := items[productID]; listed {
			err = wishlist.ErrAlreadyListed
			return nil
		}
		items[productID] = time.Now()
		return func() { delete(items, productID) }
	})
	return err
}

func (t *memoryTx) RemoveWishlistItem(ctx context.Context, customerID, productID int64) error {
	if err := t.s.fail("RemoveWishlistItem"); err != nil {
		return err
	}
	if err := t.lock(ctx, wishlistKey(customerID)); err != nil {
		return err
	}
	var err error
	t.write(func() func() {
		items, ok := t.s.wishlists[customerID]
		if !ok {
			err = wishlist.ErrWishlistNotFound
			return nil
		}
		added, listed := items[productID]
		if !listed {
			err = wishlist.ErrNotListed
			return nil
		}
		delete(items, productID)
		return func() { items[productID] = added }
	})
	return err
}

func (t *memoryTx) GetAddress(ctx context.Context, addressID int64) (*customer.Address, error) {
	if err := t.s.fail("GetAddress"); err != nil {
		return nil, err
	}
	t.s.mu.RLock()
	defer t.s.mu.RUnlock()
	a, ok := t.s.addresses[addressID]
	if !ok {
		return nil, customer.ErrAddressNotFound
	}
	cp := *a
	return &cp, nil
}

func (t *memoryTx) InsertAddress(ctx context.Context, a *customer.Address) (int64, error) {
	if err := t.s.fail("InsertAddress"); err != nil {
		return 0, err
	}
	var id int64
	t.write(func() func() {
		id = t.s.next("address")
		cp := *a
		cp.ID = id
		t.s.addresses[id] = &cp
		return func() { delete(t.s.addresses, id) }
	})
	return id, nil
}

func (t *memoryTx) GetProduct(ctx context.Context, productID int64) (*product.Product, error) {
	if err := t.s.fail("GetProduct"); err != nil {
		return nil, err
	}
	return t.s.FindProduct(ctx, productID)
}

func (t *memoryTx) LockProduct(ctx context.Context, productID int64) (*product.Product, error) {
	if err := t.s.fail("LockProduct"); err != nil {
		return nil, err
	}
	if err := t.lock(ctx, productKey(productID)); err != nil {
		return nil, err
	}
	return t.s.FindProduct(ctx, productID)
}

func (t *memoryTx) InsertProduct(ctx context.Context, p *product.Product) (int64, error) {
	if err := t.s.fail("InsertProduct"); err != nil {
		return 0, err
	}
	var id int64
	t.write(func() func() {
		id = t.s.next("product")
		cp := *p
		cp.ID = id
		if cp.CreatedAt.IsZero() {
			cp.CreatedAt = time.Now()
		}
		t.s.products[id] = &cp
		return func() { delete(t.s.products, id) }
	})
	return id, nil
}

func (t *memoryTx) UpdateProduct(ctx context.Context, p *product.Product) error {
	if err := t.s.fail("UpdateProduct"); err != nil {
		return err
	}
	if err := t.lock(ctx, productKey(p.ID)); err != nil {
		return err
	}
	var missing bool
	t.write(func() func() {
		prev, ok := t.s.products[p.ID]
		if !ok {
			missing = true
			return nil
		}
		cp := *p
		cp.CreatedAt = prev.CreatedAt
		cp.SellerID = prev.SellerID
		t.s.products[p.ID] = &cp
		return func() { t.s.products[p.ID] = prev }
	})
	if missing {
		return product.ErrProductNotFound
	}
	return nil
}

func (t *memoryTx) DeleteProduct(ctx context.Context, productID int64) error {
	if err := t.s.fail("DeleteProduct"); err != nil {
		return err
	}
	if err := t.lock(ctx, productKey(productID)); err != nil {
		return err
	}
	var missing bool
	t.write(func() func() {
		prev, ok := t.s.products[productID]
		if !ok {
			missing = true
			return nil
		}
		delete(t.s.products, productID)

		// Cascade to carts and wishlists like the foreign keys do.
		cartQty := make(map[int64]int)
		for cartID, items := range t.s.cartItems {
			if q, ok := items[productID]; ok {
				cartQty[cartID] = q
				delete(items, productID)
			}
		}
		listed := make(map[int64]time.Time)
		for customerID, items := range t.s.wishlists {
			if at, ok := items[productID]; ok {
				listed[customerID] = at
				delete(items, productID)
			}
		}
		return func() {
			t.s.products[productID] = prev
			for cartID, q := range cartQty {
				t.s.cartItems[cartID][productID] = q
			}
			for customerID, at := range listed {
				t.s.wishlists[customerID][productID] = at
			}
		}
	})
	if missing {
		return product.ErrProductNotFound
	}
	return nil
}

func (t *memoryTx) DecrementStock(ctx context.Context, productID int64, quantity int) (int, error) {
	if err := t.s.fail("DecrementStock"); err != nil {
		return 0, err
	}
	if err := t.lock(ctx, productKey(productID)); err != nil {
		return 0, err
	}
	var remaining int
	var err error
	t.write(func() func() {
		p, ok := t.s.products[productID]
		if !ok {
			err = product.ErrProductNotFound
			return nil
		}
		if p.Quantity < quantity {
			err = &inventory.InsufficientStockError{ProductID: productID, Requested: quantity, Available: p.Quantity}
			return nil
		}
		p.Quantity -= quantity
		remaining = p.Quantity
		return func() { p.Quantity += quantity }
	})
	return remaining, err
}

func (t *memoryTx) IncrementStock(ctx context.Context, productID int64, quantity int) error {
	if err := t.s.fail("IncrementStock"); err != nil {
		return err
	}
	if err := t.lock(ctx, productKey(productID)); err != nil {
		return err
	}
	t.write(func() func() {
		p, ok := t.s.products[productID]
		if !ok {
			return nil
		}
		p.Quantity += quantity
		return func() { p.Quantity -= quantity }
	})
	return nil
}

func (t *memoryTx) InsertReview(ctx context.Context, r *product.Review) (int64, error) {
	if err := t.s.fail("InsertReview"); err != nil {
		return 0, err
	}
	var id int64
	t.write(func() func() {
		id = t.s.next("review")
		cp := *r
		cp.ID = id
		cp.CreatedAt = time.Now()
		r.CreatedAt = cp.CreatedAt
		t.s.reviews[id] = &cp
		return func() { delete(t.s.reviews, id) }
	})
	return id, nil
}

func (t *memoryTx) InsertOrder(ctx context.Context, o *order.Order) (int64, error) {
	if err := t.s.fail("InsertOrder"); err != nil {
		return 0, err
	}
	var id int64
	var duplicate bool
	t.write(func() func() {
		if _, ok := t.s.tracking[o.TrackingNumber]; ok {
			duplicate = true
			return nil
		}
		id = t.s.next("order")
		cp := *o
		cp.ID = id
		cp.Items = nil
		cp.Address = nil
		t.s.orders[id] = &cp
		t.s.tracking[o.TrackingNumber] = id
		return func() {
			delete(t.s.orders, id)
			delete(t.s.tracking, o.TrackingNumber)
		}
	})
	if duplicate {
		return 0, ErrDuplicateTrackingNumber
	}
	return id, nil
}

func (t *memoryTx) InsertOrderItems(ctx context.Context, orderID int64, items []order.Item) error {
	if err := t.s.fail("InsertOrderItems"); err != nil {
		return err
	}
	var missing bool
	t.write(func() func() {
		o, ok := t.s.orders[orderID]
		if !ok {
			missing = true
			return nil
		}
		prev := o.Items
		o.Items = append(append([]order.Item(nil), prev...), items...)
		return func() { o.Items = prev }
	})
	if missing {
		return order.ErrOrderNotFound
	}
	return nil
}

func (t *memoryTx) LockOrder(ctx context.Context, orderID int64) (*order.Order, error) {
	if err := t.s.fail("LockOrder"); err != nil {
		return nil, err
	}
	t.s.mu.RLock()
	_, ok := t.s.orders[orderID]
	t.s.mu.RUnlock()
	if !ok {
		return nil, order.ErrOrderNotFound
	}
	if err := t.lock(ctx, orderKey(orderID)); err != nil {
		return nil, err
	}

	t.s.mu.RLock()
	defer t.s.mu.RUnlock()
	o, ok := t.s.orders[orderID]
	if !ok {
		return nil, order.ErrOrderNotFound
	}
	cp := *o
	cp.Items = append([]order.Item(nil), o.Items...)
	return &cp, nil
}

func (t *memoryTx) SetOrderStatus(ctx context.Context, orderID int64, status order.Status) error {
	if err := t.s.fail("SetOrderStatus"); err != nil {
		return err
	}
	if err := t.lock(ctx, orderKey(orderID)); err != nil {
		return err
	}
	var missing bool
	t.write(func() func() {
		o, ok := t.s.orders[orderID]
		if !ok {
			missing = true
			return nil
		}
		prev := o.Status
		o.Status = status
		return func() { o.Status = prev }
	})
	if missing {
		return order.ErrOrderNotFound
	}
	return nil
}

func (t *memoryTx) AppendEvent(ctx context.Context, aggregateType string, aggregateID int64, eventType string, data any) (*Event, error) {
	if err := t.s.fail("AppendEvent"); err != nil {
		return nil, err
	}
	event, err := newEvent(aggregateType, aggregateID, eventType, data)
	if err != nil {
		return nil, err
	}
	t.events = append(t.events, event)
	cp := *event
	return &cp, nil
}
