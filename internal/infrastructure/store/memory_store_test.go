package store

import (
	"context"
	"errors"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/example/ec-checkout/internal/domain/cart"
	"github.com/example/ec-checkout/internal/domain/category"
	"github.com/example/ec-checkout/internal/domain/customer"
	"github.com/example/ec-checkout/internal/domain/inventory"
	"github.com/example/ec-checkout/internal/domain/order"
	"github.com/example/ec-checkout/internal/domain/product"
	"github.com/example/ec-checkout/internal/domain/wishlist"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestMemoryStore() *MemoryStore {
	return NewMemoryStore(200 * time.Millisecond)
}

func seedCustomer(t *testing.T, s *MemoryStore, email string) (customerID, cartID int64) {
	t.Helper()
	err := s.WithinTx(context.Background(), func(ctx context.Context, tx Tx) error {
		c, err := customer.New("Test", email, "hash", "", customer.RoleUser)
		if err != nil {
			return err
		}
		if customerID, err = tx.CreateCustomer(ctx, c); err != nil {
			return err
		}
		if cartID, err = tx.CreateCart(ctx, customerID); err != nil {
			return err
		}
		_, err = tx.CreateWishlist(ctx, customerID)
		return err
	})
	require.NoError(t, err)
	return customerID, cartID
}

func seedProduct(s *MemoryStore, price int64, stock int) int64 {
	return s.SeedProduct(product.Product{Name: "Item", MRP: decimal.NewFromInt(price), Quantity: stock})
}

func stockOf(t *testing.T, s *MemoryStore, productID int64) int {
	t.Helper()
	p, err := s.FindProduct(context.Background(), productID)
	require.NoError(t, err)
	return p.Quantity
}

// ============================================
// Transaction Tests
// ============================================

func TestMemoryStore_WithinTx_RollbackUndoesWrites(t *testing.T) {
	s := newTestMemoryStore()
	customerID, cartID := seedCustomer(t, s, "a@example.com")
	productID := seedProduct(s, 100, 5)
	boom := errors.New("boom")

	err := s.WithinTx(context.Background(), func(ctx context.Context, tx Tx) error {
		require.NoError(t, tx.SetCartItem(ctx, cartID, productID, 2))
		_, err := tx.DecrementStock(ctx, productID, 3)
		require.NoError(t, err)
		_, err = tx.AppendEvent(ctx, "Test", 1, "Happened", map[string]int{"n": 1})
		require.NoError(t, err)
		return boom
	})

	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 5, stockOf(t, s, productID))
	c, err := s.FindCart(context.Background(), customerID)
	require.NoError(t, err)
	assert.True(t, c.IsEmpty())
	pending, err := s.FetchPending(context.Background(), 10)
	require.NoError(t, err)
	assert.Empty(t, pending)
}

func TestMemoryStore_WithinTx_CommitFailureRollsBack(t *testing.T) {
	s := newTestMemoryStore()
	productID := seedProduct(s, 100, 5)
	s.SetFailHook(func(op string) error {
		if op == "commit" {
			return errors.New("disk full")
		}
		return nil
	})

	err := s.WithinTx(context.Background(), func(ctx context.Context, tx Tx) error {
		_, err := tx.DecrementStock(ctx, productID, 2)
		return err
	})

	assert.Error(t, err)
	assert.Equal(t, 5, stockOf(t, s, productID))
}

func TestMemoryStore_WithinTx_CommitPublishesOutbox(t *testing.T) {
	s := newTestMemoryStore()

	err := s.WithinTx(context.Background(), func(ctx context.Context, tx Tx) error {
		_, err := tx.AppendEvent(ctx, order.AggregateType, 7, order.EventOrderPlaced, order.OrderPlaced{OrderID: 7})
		return err
	})
	require.NoError(t, err)

	pending, err := s.FetchPending(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, "7", pending[0].AggregateID)
	assert.Equal(t, order.EventOrderPlaced, pending[0].EventType)

	require.NoError(t, s.MarkSent(context.Background(), pending[0].ID))
	pending, err = s.FetchPending(context.Background(), 10)
	require.NoError(t, err)
	assert.Empty(t, pending)
}

// ============================================
// Stock Tests
// ============================================

func TestMemoryStore_DecrementStock_Guard(t *testing.T) {
	s := newTestMemoryStore()
	productID := seedProduct(s, 100, 3)

	err := s.WithinTx(context.Background(), func(ctx context.Context, tx Tx) error {
		_, err := tx.DecrementStock(ctx, productID, 10)
		return err
	})

	ise, ok := inventory.AsInsufficientStock(err)
	require.True(t, ok)
	assert.Equal(t, 3, ise.Available)
	assert.Equal(t, 3, stockOf(t, s, productID))
}

func TestMemoryStore_DecrementStock_ReturnsRemaining(t *testing.T) {
	s := newTestMemoryStore()
	productID := seedProduct(s, 100, 5)

	var remaining int
	err := s.WithinTx(context.Background(), func(ctx context.Context, tx Tx) error {
		var err error
		remaining, err = tx.DecrementStock(ctx, productID, 5)
		return err
	})

	require.NoError(t, err)
	assert.Equal(t, 0, remaining)
	assert.Equal(t, 0, stockOf(t, s, productID))
}

// ============================================
// Locking Tests
// ============================================

func TestMemoryStore_LockCart_TimesOut(t *testing.T) {
	s := NewMemoryStore(50 * time.Millisecond)
	customerID, _ := seedCustomer(t, s, "a@example.com")

	held := make(chan struct{})
	release := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		_ = s.WithinTx(context.Background(), func(ctx context.Context, tx Tx) error {
			if _, err := tx.LockCart(ctx, customerID); err != nil {
				return err
			}
			close(held)
			<-release
			return nil
		})
	}()
	<-held

	err := s.WithinTx(context.Background(), func(ctx context.Context, tx Tx) error {
		_, err := tx.LockCart(ctx, customerID)
		return err
	})
	close(release)
	wg.Wait()

	assert.ErrorIs(t, err, ErrLockTimeout)
}

func TestMemoryStore_LockIsReentrantWithinTx(t *testing.T) {
	s := newTestMemoryStore()
	customerID, _ := seedCustomer(t, s, "a@example.com")
	productID := seedProduct(s, 1, 1)

	err := s.WithinTx(context.Background(), func(ctx context.Context, tx Tx) error {
		if _, err := tx.LockCart(ctx, customerID); err != nil {
			return err
		}
		if _, err := tx.LockCart(ctx, customerID); err != nil {
			return err
		}
		if _, err := tx.LockProduct(ctx, productID); err != nil {
			return err
		}
		_, err := tx.DecrementStock(ctx, productID, 1)
		return err
	})

	assert.NoError(t, err)
}

func TestMemoryStore_CartLines_LocksProducts(t *testing.T) {
	s := NewMemoryStore(50 * time.Millisecond)
	customerID, cartID := seedCustomer(t, s, "a@example.com")
	productID := seedProduct(s, 100, 5)
	require.NoError(t, s.WithinTx(context.Background(), func(ctx context.Context, tx Tx) error {
		return tx.SetCartItem(ctx, cartID, productID, 1)
	}))

	held := make(chan struct{})
	release := make(chan struct{})
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = s.WithinTx(context.Background(), func(ctx context.Context, tx Tx) error {
			if _, err := tx.LockCart(ctx, customerID); err != nil {
				return err
			}
			lines, err := tx.CartLines(ctx, cartID, true)
			if err != nil {
				return err
			}
			assert.Len(t, lines, 1)
			close(held)
			<-release
			return nil
		})
	}()
	<-held

	err := s.WithinTx(context.Background(), func(ctx context.Context, tx Tx) error {
		_, err := tx.DecrementStock(ctx, productID, 1)
		return err
	})
	close(release)
	<-done

	assert.ErrorIs(t, err, ErrLockTimeout)
	assert.Equal(t, 5, stockOf(t, s, productID))
}

// ============================================
// Order Tests
// ============================================

func TestMemoryStore_InsertOrder_DuplicateTracking(t *testing.T) {
	s := newTestMemoryStore()
	o := &order.Order{CustomerID: 1, AddressID: 1, TrackingNumber: "MYECOM-26-11111", Status: order.StatusPlaced}

	err := s.WithinTx(context.Background(), func(ctx context.Context, tx Tx) error {
		_, err := tx.InsertOrder(ctx, o)
		return err
	})
	require.NoError(t, err)

	var firstErr, secondErr error
	err = s.WithinTx(context.Background(), func(ctx context.Context, tx Tx) error {
		_, firstErr = tx.InsertOrder(ctx, o)
		dup := *o
		dup.TrackingNumber = "MYECOM-26-22222"
		_, secondErr = tx.InsertOrder(ctx, &dup)
		return secondErr
	})

	require.NoError(t, err)
	assert.ErrorIs(t, firstErr, ErrDuplicateTrackingNumber)
	assert.NoError(t, secondErr)
}

func TestMemoryStore_SetOrderStatus(t *testing.T) {
	s := newTestMemoryStore()
	var orderID int64
	require.NoError(t, s.WithinTx(context.Background(), func(ctx context.Context, tx Tx) error {
		var err error
		orderID, err = tx.InsertOrder(ctx, &order.Order{TrackingNumber: "T", Status: order.StatusPlaced})
		if err != nil {
			return err
		}
		return tx.InsertOrderItems(ctx, orderID, []order.Item{{ProductID: 1, Quantity: 2}})
	}))

	err := s.WithinTx(context.Background(), func(ctx context.Context, tx Tx) error {
		o, err := tx.LockOrder(ctx, orderID)
		if err != nil {
			return err
		}
		assert.Len(t, o.Items, 1)
		return tx.SetOrderStatus(ctx, orderID, order.StatusShipped)
	})
	require.NoError(t, err)

	found, err := s.FindOrderByTracking(context.Background(), "T")
	require.NoError(t, err)
	assert.Equal(t, order.StatusShipped, found.Status)

	_, err = s.FindOrderByTracking(context.Background(), "missing")
	assert.ErrorIs(t, err, order.ErrOrderNotFound)
}

// ============================================
// Customer, Cart and Wishlist Tests
// ============================================

func TestMemoryStore_CreateCustomer_DuplicateEmail(t *testing.T) {
	s := newTestMemoryStore()
	seedCustomer(t, s, "dup@example.com")

	err := s.WithinTx(context.Background(), func(ctx context.Context, tx Tx) error {
		c, _ := customer.New("Other", "dup@example.com", "hash", "", customer.RoleUser)
		_, err := tx.CreateCustomer(ctx, c)
		return err
	})

	assert.ErrorIs(t, err, customer.ErrEmailTaken)
}

func TestMemoryStore_LockCart_NotFound(t *testing.T) {
	s := newTestMemoryStore()

	err := s.WithinTx(context.Background(), func(ctx context.Context, tx Tx) error {
		_, err := tx.LockCart(ctx, 99)
		return err
	})

	assert.ErrorIs(t, err, cart.ErrCartNotFound)
}

func TestMemoryStore_Wishlist(t *testing.T) {
	s := newTestMemoryStore()
	customerID, _ := seedCustomer(t, s, "w@example.com")
	productID := seedProduct(s, 10, 1)

	add := func() error {
		return s.WithinTx(context.Background(), func(ctx context.Context, tx Tx) error {
			return tx.AddWishlistItem(ctx, customerID, productID)
		})
	}
	require.NoError(t, add())
	assert.ErrorIs(t, add(), wishlist.ErrAlreadyListed)

	items, err := s.ListWishlist(context.Background(), customerID)
	require.NoError(t, err)
	assert.Len(t, items, 1)

	remove := func() error {
		return s.WithinTx(context.Background(), func(ctx context.Context, tx Tx) error {
			return tx.RemoveWishlistItem(ctx, customerID, productID)
		})
	}
	require.NoError(t, remove())
	assert.ErrorIs(t, remove(), wishlist.ErrNotListed)
}

func TestMemoryStore_DeleteProduct_CascadesToCart(t *testing.T) {
	s := newTestMemoryStore()
	customerID, cartID := seedCustomer(t, s, "c@example.com")
	productID := seedProduct(s, 10, 1)
	require.NoError(t, s.WithinTx(context.Background(), func(ctx context.Context, tx Tx) error {
		return tx.SetCartItem(ctx, cartID, productID, 1)
	}))

	require.NoError(t, s.WithinTx(context.Background(), func(ctx context.Context, tx Tx) error {
		return tx.DeleteProduct(ctx, productID)
	}))

	c, err := s.FindCart(context.Background(), customerID)
	require.NoError(t, err)
	assert.True(t, c.IsEmpty())
	_, err = s.FindProduct(context.Background(), productID)
	assert.ErrorIs(t, err, product.ErrProductNotFound)
}

// ============================================
// Catalogue Query Tests
// ============================================

func TestMemoryStore_ListProducts_SortAndPaginate(t *testing.T) {
	s := newTestMemoryStore()
	catID := s.SeedCategory(category.Category{Name: "Kitchen"})
	for i, name := range []string{"Cup", "Apron", "Bowl"} {
		p := product.Product{Name: name, MRP: decimal.NewFromInt(int64(30 - i*10)), Quantity: 1}
		if name != "Apron" {
			p.CategoryID = &catID
		}
		s.SeedProduct(p)
	}

	products, total, err := s.ListProducts(context.Background(), ProductQuery{Sort: "name", Page: 1, Limit: 2})
	require.NoError(t, err)
	assert.Equal(t, 3, total)
	require.Len(t, products, 2)
	assert.Equal(t, "Apron", products[0].Name)
	assert.Equal(t, "Bowl", products[1].Name)

	products, _, err = s.ListProducts(context.Background(), ProductQuery{Sort: "mrp", Desc: true, Page: 1, Limit: 10})
	require.NoError(t, err)
	assert.Equal(t, "Cup", products[0].Name)

	products, total, err = s.ListProducts(context.Background(), ProductQuery{CategoryID: &catID, Page: 1, Limit: 10})
	require.NoError(t, err)
	assert.Equal(t, 2, total)
	assert.Equal(t, "Kitchen", products[0].CategoryName)

	products, _, err = s.ListProducts(context.Background(), ProductQuery{Page: 5, Limit: 10})
	require.NoError(t, err)
	assert.Empty(t, products)
}

func TestMemoryStore_ListProducts_OffsetSaturates(t *testing.T) {
	s := newTestMemoryStore()
	s.SeedProduct(product.Product{Name: "Cup", MRP: decimal.NewFromInt(10), Quantity: 1})

	q := ProductQuery{Page: math.MaxInt64 / 5, Limit: 10}
	assert.Equal(t, math.MaxInt, q.Offset())

	products, total, err := s.ListProducts(context.Background(), q)
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	assert.Empty(t, products)
}
