package store

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/example/ec-checkout/internal/domain/cart"
	"github.com/example/ec-checkout/internal/domain/category"
	"github.com/example/ec-checkout/internal/domain/customer"
	"github.com/example/ec-checkout/internal/domain/order"
	"github.com/example/ec-checkout/internal/domain/product"
)

// MemoryStore implements Store in process. Transactions take the same row
// locks the PostgreSQL store takes and apply writes in place, undoing them on
// rollback. Outbox events become visible only on commit. Non-locking reads
// made outside a transaction may observe writes of a transaction that has not
// finished yet.
type MemoryStore struct {
	mu          sync.RWMutex
	locks       *rowLocks
	lockTimeout time.Duration

	hookMu   sync.RWMutex
	failHook func(op string) error

	seq            map[string]int64
	customers      map[int64]*customer.Customer
	emails         map[string]int64
	carts          map[int64]int64 // cartID -> customerID
	cartByCustomer map[int64]int64
	cartItems      map[int64]map[int64]int       // cartID -> productID -> quantity
	wishlists      map[int64]map[int64]time.Time // customerID -> productID -> added at
	addresses      map[int64]*customer.Address
	categories     map[int64]*category.Category
	products       map[int64]*product.Product
	reviews        map[int64]*product.Review
	orders         map[int64]*order.Order
	tracking       map[string]int64
	outbox         []*Event
}

var _ Store = (*MemoryStore)(nil)

func NewMemoryStore(lockTimeout time.Duration) *MemoryStore {
	return &MemoryStore{
		locks:          newRowLocks(),
		lockTimeout:    lockTimeout,
		seq:            make(map[string]int64),
		customers:      make(map[int64]*customer.Customer),
		emails:         make(map[string]int64),
		carts:          make(map[int64]int64),
		cartByCustomer: make(map[int64]int64),
		cartItems:      make(map[int64]map[int64]int),
		wishlists:      make(map[int64]map[int64]time.Time),
		addresses:      make(map[int64]*customer.Address),
		categories:     make(map[int64]*category.Category),
		products:       make(map[int64]*product.Product),
		reviews:        make(map[int64]*product.Review),
		orders:         make(map[int64]*order.Order),
		tracking:       make(map[string]int64),
	}
}

// SetFailHook installs a function consulted before every transactional
// operation and before commit. A non-nil return fails that step.
func (s *MemoryStore) SetFailHook(hook func(op string) error) {
	s.hookMu.Lock()
	defer s.hookMu.Unlock()
	s.failHook = hook
}

func (s *MemoryStore) fail(op string) error {
	s.hookMu.RLock()
	hook := s.failHook
	s.hookMu.RUnlock()
	if hook == nil {
		return nil
	}
	return hook(op)
}

// next must be called with mu held.
func (s *MemoryStore) next(kind string) int64 {
	s.seq[kind]++
	return s.seq[kind]
}

func (s *MemoryStore) Close() error { return nil }

func (s *MemoryStore) WithinTx(ctx context.Context, fn TxFunc) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := s.fail("begin"); err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}

	tx := newMemoryTx(s)
	defer tx.releaseAll()

	if err := fn(ctx, tx); err != nil {
		tx.rollback()
		return err
	}
	if err := s.fail("commit"); err != nil {
		tx.rollback()
		return fmt.Errorf("commit: %w", err)
	}
	tx.commit()
	return nil
}

// cartLinesLocked must be called with mu held.
func (s *MemoryStore) cartLinesLocked(cartID int64) []cart.Line {
	items := s.cartItems[cartID]
	lines := make([]cart.Line, 0, len(items))
	for productID, qty := range items {
		p, ok := s.products[productID]
		if !ok {
			continue
		}
		lines = append(lines, cart.Line{
			ProductID: productID,
			Name:      p.Name,
			ImageURL:  p.ImageURL,
			Quantity:  qty,
			UnitPrice: p.MRP,
			Stock:     p.Quantity,
		})
	}
	sort.Slice(lines, func(i, j int) bool { return lines[i].ProductID < lines[j].ProductID })
	return lines
}

// productLocked must be called with mu held.
func (s *MemoryStore) productLocked(p *product.Product) product.Product {
	cp := *p
	cp.CategoryName = ""
	if p.CategoryID != nil {
		if c, ok := s.categories[*p.CategoryID]; ok {
			cp.CategoryName = c.Name
		}
	}
	return cp
}

func (s *MemoryStore) ListProducts(ctx context.Context, q ProductQuery) ([]product.Product, int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var matched []product.Product
	for _, p := range s.products {
		if q.CategoryID != nil && (p.CategoryID == nil || *p.CategoryID != *q.CategoryID) {
			continue
		}
		matched = append(matched, s.productLocked(p))
	}

	less := func(a, b product.Product) int {
		switch q.Sort {
		case "mrp":
			return a.MRP.Cmp(b.MRP)
		case "name":
			return strings.Compare(a.Name, b.Name)
		}
		return 0
	}
	sort.Slice(matched, func(i, j int) bool {
		c := less(matched[i], matched[j])
		if q.Desc {
			c = -c
		}
		if c == 0 {
			if q.Sort == "" && q.Desc {
				return matched[i].ID > matched[j].ID
			}
			return matched[i].ID < matched[j].ID
		}
		return c < 0
	})

	total := len(matched)
	start := q.Offset()
	if start < 0 || start > total {
		start = total
	}
	end := total
	if q.Limit > 0 && q.Limit < total-start {
		end = start + q.Limit
	}
	return append([]product.Product{}, matched[start:end]...), total, nil
}

func (s *MemoryStore) FindProduct(ctx context.Context, productID int64) (*product.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.products[productID]
	if !ok {
		return nil, product.ErrProductNotFound
	}
	cp := s.productLocked(p)
	return &cp, nil
}

func (s *MemoryStore) ListCategories(ctx context.Context) ([]category.Category, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	categories := make([]category.Category, 0, len(s.categories))
	for _, c := range s.categories {
		categories = append(categories, *c)
	}
	sort.Slice(categories, func(i, j int) bool { return categories[i].Name < categories[j].Name })
	return categories, nil
}

func (s *MemoryStore) FindCategory(ctx context.Context, categoryID int64) (*category.Category, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.categories[categoryID]
	if !ok {
		return nil, category.ErrCategoryNotFound
	}
	cp := *c
	return &cp, nil
}

func (s *MemoryStore) ListReviews(ctx context.Context, productID int64) ([]product.Review, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	reviews := []product.Review{}
	for _, r := range s.reviews {
		if r.ProductID != productID {
			continue
		}
		cp := *r
		if c, ok := s.customers[r.CustomerID]; ok {
			cp.CustomerName = c.Name
		}
		reviews = append(reviews, cp)
	}
	sort.Slice(reviews, func(i, j int) bool { return reviews[i].ID > reviews[j].ID })
	return reviews, nil
}

func (s *MemoryStore) FindCart(ctx context.Context, customerID int64) (*cart.Cart, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	cartID, ok := s.cartByCustomer[customerID]
	if !ok {
		return nil, cart.ErrCartNotFound
	}
	return &cart.Cart{
		ID:         cartID,
		CustomerID: customerID,
		Lines:      s.cartLinesLocked(cartID),
	}, nil
}

func (s *MemoryStore) ListWishlist(ctx context.Context, customerID int64) ([]product.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	type listed struct {
		p  product.Product
		at time.Time
	}
	var entries []listed
	for productID, at := range s.wishlists[customerID] {
		if p, ok := s.products[productID]; ok {
			entries = append(entries, listed{p: s.productLocked(p), at: at})
		}
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].at.After(entries[j].at) })

	products := make([]product.Product, len(entries))
	for i, e := range entries {
		products[i] = e.p
	}
	return products, nil
}

func (s *MemoryStore) ListAddresses(ctx context.Context, customerID int64) ([]customer.Address, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	addresses := []customer.Address{}
	for _, a := range s.addresses {
		if a.CustomerID == customerID {
			addresses = append(addresses, *a)
		}
	}
	sort.Slice(addresses, func(i, j int) bool { return addresses[i].ID < addresses[j].ID })
	return addresses, nil
}

// orderViewLocked must be called with mu held.
func (s *MemoryStore) orderViewLocked(o *order.Order, withItems bool) order.Order {
	cp := *o
	if c, ok := s.customers[o.CustomerID]; ok {
		cp.CustomerName = c.Name
	}
	if a, ok := s.addresses[o.AddressID]; ok {
		addr := *a
		cp.Address = &addr
	}
	cp.Items = nil
	if withItems {
		for _, it := range o.Items {
			if p, ok := s.products[it.ProductID]; ok {
				it.Name = p.Name
				it.ImageURL = p.ImageURL
			}
			cp.Items = append(cp.Items, it)
		}
	}
	return cp
}

func (s *MemoryStore) sortedOrders(withItems bool, keep func(*order.Order) bool) []order.Order {
	orders := []order.Order{}
	for _, o := range s.orders {
		if keep(o) {
			orders = append(orders, s.orderViewLocked(o, withItems))
		}
	}
	sort.Slice(orders, func(i, j int) bool {
		if !orders[i].OrderDate.Equal(orders[j].OrderDate) {
			return orders[i].OrderDate.After(orders[j].OrderDate)
		}
		return orders[i].ID > orders[j].ID
	})
	return orders
}

func (s *MemoryStore) ListOrdersByCustomer(ctx context.Context, customerID int64) ([]order.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.sortedOrders(true, func(o *order.Order) bool { return o.CustomerID == customerID }), nil
}

func (s *MemoryStore) FindOrderByTracking(ctx context.Context, trackingNumber string) (*order.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.tracking[trackingNumber]
	if !ok {
		return nil, order.ErrOrderNotFound
	}
	view := s.orderViewLocked(s.orders[id], true)
	return &view, nil
}

func (s *MemoryStore) ListAllOrders(ctx context.Context) ([]order.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.sortedOrders(false, func(*order.Order) bool { return true }), nil
}

func (s *MemoryStore) FindCustomer(ctx context.Context, customerID int64) (*customer.Customer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.customers[customerID]
	if !ok {
		return nil, customer.ErrCustomerNotFound
	}
	cp := *c
	return &cp, nil
}

func (s *MemoryStore) FindCustomerByEmail(ctx context.Context, email string) (*customer.Customer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.emails[email]
	if !ok {
		return nil, customer.ErrCustomerNotFound
	}
	cp := *s.customers[id]
	return &cp, nil
}

func (s *MemoryStore) ListCustomers(ctx context.Context) ([]customer.Customer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	customers := make([]customer.Customer, 0, len(s.customers))
	for _, c := range s.customers {
		customers = append(customers, *c)
	}
	sort.Slice(customers, func(i, j int) bool {
		if !customers[i].CreatedAt.Equal(customers[j].CreatedAt) {
			return customers[i].CreatedAt.After(customers[j].CreatedAt)
		}
		return customers[i].ID > customers[j].ID
	})
	return customers, nil
}

func (s *MemoryStore) FetchPending(ctx context.Context, limit int) ([]Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var events []Event
	for _, e := range s.outbox {
		if e.SentAt != nil {
			continue
		}
		events = append(events, *e)
		if limit > 0 && len(events) == limit {
			break
		}
	}
	return events, nil
}

func (s *MemoryStore) MarkSent(ctx context.Context, eventID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range s.outbox {
		if e.ID == eventID {
			now := time.Now()
			e.SentAt = &now
			return nil
		}
	}
	return nil
}

// ============================================
// Seeding
// ============================================

// SeedCategory stores a category directly, outside any transaction.
func (s *MemoryStore) SeedCategory(c category.Category) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	c.ID = s.next("category")
	if c.Slug == "" {
		c.Slug = category.Slug(c.Name)
	}
	s.categories[c.ID] = &c
	return c.ID
}

// SeedProduct stores a product directly, outside any transaction.
func (s *MemoryStore) SeedProduct(p product.Product) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	p.ID = s.next("product")
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now()
	}
	s.products[p.ID] = &p
	return p.ID
}

// SeedAddress stores an address directly, outside any transaction.
func (s *MemoryStore) SeedAddress(a customer.Address) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	a.ID = s.next("address")
	s.addresses[a.ID] = &a
	return a.ID
}
