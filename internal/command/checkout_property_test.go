package command

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/example/ec-checkout/internal/domain/inventory"
	"github.com/example/ec-checkout/internal/infrastructure/store"
	"pgregory.net/rapid"
)

// Concurrent checkouts over random carts never oversell, and every unit that
// left stock is accounted for by exactly one placed order.
func TestCheckout_StockConservation(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		s := store.NewMemoryStore(2 * time.Second)
		h := NewHandler(s, Options{})
		ctx := context.Background()

		products := rapid.IntRange(1, 4).Draw(rt, "products")
		initial := make(map[int64]int, products)
		var productIDs []int64
		for i := 0; i < products; i++ {
			stock := rapid.IntRange(0, 6).Draw(rt, fmt.Sprintf("stock-%d", i))
			id := stockItem(s, "10", stock)
			initial[id] = stock
			productIDs = append(productIDs, id)
		}

		type buyer struct {
			customerID, addressID int64
			wants                 map[int64]int
		}
		buyers := make([]buyer, rapid.IntRange(1, 6).Draw(rt, "buyers"))
		for i := range buyers {
			customerID, addressID, err := newShopper(s, fmt.Sprintf("p%d@example.com", i))
			if err != nil {
				rt.Fatalf("seed shopper: %v", err)
			}
			wants := map[int64]int{}
			for _, pid := range productIDs {
				qty := rapid.IntRange(0, 3).Draw(rt, fmt.Sprintf("qty-%d-%d", i, pid))
				if qty == 0 {
					continue
				}
				// Cart lines are written directly so carts may exceed stock.
				err := s.WithinTx(ctx, func(ctx context.Context, tx store.Tx) error {
					cartID, err := tx.LockCart(ctx, customerID)
					if err != nil {
						return err
					}
					return tx.SetCartItem(ctx, cartID, pid, qty)
				})
				if err != nil {
					rt.Fatalf("fill cart: %v", err)
				}
				wants[pid] = qty
			}
			buyers[i] = buyer{customerID: customerID, addressID: addressID, wants: wants}
		}

		var wg sync.WaitGroup
		errs := make([]error, len(buyers))
		for i, b := range buyers {
			wg.Add(1)
			go func(i int, b buyer) {
				defer wg.Done()
				_, errs[i] = h.Checkout(ctx, Checkout{CustomerID: b.customerID, AddressID: b.addressID})
			}(i, b)
		}
		wg.Wait()

		sold := map[int64]int{}
		for i, b := range buyers {
			if errs[i] != nil {
				if !errors.Is(errs[i], inventory.ErrInsufficientStock) && len(b.wants) > 0 {
					rt.Fatalf("buyer %d: unexpected error %v", i, errs[i])
				}
				continue
			}
			for pid, qty := range b.wants {
				sold[pid] += qty
			}
		}

		for _, pid := range productIDs {
			p, err := s.FindProduct(ctx, pid)
			if err != nil {
				rt.Fatalf("find product: %v", err)
			}
			if p.Quantity < 0 {
				rt.Fatalf("product %d oversold: %d", pid, p.Quantity)
			}
			if initial[pid]-p.Quantity != sold[pid] {
				rt.Fatalf("product %d: stock moved by %d but orders hold %d", pid, initial[pid]-p.Quantity, sold[pid])
			}
		}
	})
}
