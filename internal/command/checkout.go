package command

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strconv"
	"time"

	"github.com/example/ec-checkout/internal/apperr"
	"github.com/example/ec-checkout/internal/domain/cart"
	"github.com/example/ec-checkout/internal/domain/customer"
	"github.com/example/ec-checkout/internal/domain/inventory"
	"github.com/example/ec-checkout/internal/domain/order"
	"github.com/example/ec-checkout/internal/infrastructure/store"
)

var (
	ErrInvalidCustomer    = errors.New("customer id is required")
	ErrInvalidAddress     = errors.New("addressId is required")
	ErrTrackingExhausted  = errors.New("could not allocate a unique tracking number")
	ErrCheckoutInProgress = errors.New("a checkout with this idempotency key is already in progress")
)

const checkoutScope = "checkout"

// Checkout turns the customer's cart into an order. Cart, stock and order
// writes happen in one transaction: either every step lands or none does.
func (h *Handler) Checkout(ctx context.Context, cmd Checkout) (*CheckoutResult, error) {
	start := time.Now()

	var res *CheckoutResult
	var err error
	if cmd.IdempotencyKey != "" && h.idempotency != nil {
		res, err = h.checkoutOnce(ctx, cmd)
	} else {
		res, err = h.checkout(ctx, cmd)
	}

	h.recorder.ObserveCheckout(checkoutOutcome(err), time.Since(start))
	if err != nil {
		log.Printf("[Checkout] Customer %d checkout failed: %v", cmd.CustomerID, err)
		return nil, err
	}
	if !res.Replayed {
		log.Printf("[Checkout] Order %d (%s) placed for customer %d, total %s",
			res.OrderID, res.TrackingNumber, cmd.CustomerID, res.Total.StringFixed(2))
	}
	return res, nil
}

func (h *Handler) checkout(ctx context.Context, cmd Checkout) (*CheckoutResult, error) {
	if cmd.CustomerID <= 0 {
		return nil, apperr.Validation(ErrInvalidCustomer)
	}
	if cmd.AddressID <= 0 {
		return nil, apperr.Validation(ErrInvalidAddress)
	}

	var placed *order.Order
	err := h.store.WithinTx(ctx, func(ctx context.Context, tx store.Tx) error {
		placed = nil

		cartID, err := tx.LockCart(ctx, cmd.CustomerID)
		if err != nil {
			return err
		}

		addr, err := tx.GetAddress(ctx, cmd.AddressID)
		if err != nil {
			return err
		}
		if !addr.OwnedBy(cmd.CustomerID) {
			return customer.ErrAddressNotFound
		}

		lines, err := tx.CartLines(ctx, cartID, true)
		if err != nil {
			return fmt.Errorf("load cart lines: %w", err)
		}
		if len(lines) == 0 {
			return cart.ErrEmptyCart
		}
		for _, l := range lines {
			if err := inventory.CheckAvailability(l.ProductID, l.Stock, l.Quantity); err != nil {
				return err
			}
		}

		o, err := h.insertOrder(ctx, tx, cmd, lines)
		if err != nil {
			return err
		}
		if err := tx.InsertOrderItems(ctx, o.ID, o.Items); err != nil {
			return fmt.Errorf("insert order items: %w", err)
		}

		for _, it := range o.Items {
			remaining, err := tx.DecrementStock(ctx, it.ProductID, it.Quantity)
			if err != nil {
				return err
			}
			if _, err := tx.AppendEvent(ctx, inventory.AggregateType, it.ProductID, inventory.EventStockDeducted, inventory.StockDeducted{
				ProductID:  it.ProductID,
				OrderID:    o.ID,
				Quantity:   it.Quantity,
				Remaining:  remaining,
				DeductedAt: o.OrderDate,
			}); err != nil {
				return err
			}
		}

		if err := tx.ClearCart(ctx, cartID); err != nil {
			return fmt.Errorf("clear cart: %w", err)
		}

		if _, err := tx.AppendEvent(ctx, order.AggregateType, o.ID, order.EventOrderPlaced, o.PlacedEvent()); err != nil {
			return err
		}

		placed = o
		return nil
	})
	if err != nil {
		return nil, classify(err)
	}

	return &CheckoutResult{
		OrderID:        placed.ID,
		TrackingNumber: placed.TrackingNumber,
		Total:          placed.Total,
	}, nil
}

// insertOrder stores the order under a fresh tracking number, drawing a new
// one whenever the number is already taken.
func (h *Handler) insertOrder(ctx context.Context, tx store.Tx, cmd Checkout, lines []cart.Line) (*order.Order, error) {
	for attempt := 1; attempt <= h.trackingAttempts; attempt++ {
		o, err := order.NewFromCart(cmd.CustomerID, cmd.AddressID, lines, h.tracking.Next())
		if err != nil {
			return nil, err
		}
		id, err := tx.InsertOrder(ctx, o)
		if errors.Is(err, store.ErrDuplicateTrackingNumber) {
			log.Printf("[Checkout] Tracking number %s already used (attempt %d)", o.TrackingNumber, attempt)
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("insert order: %w", err)
		}
		o.ID = id
		return o, nil
	}
	return nil, ErrTrackingExhausted
}

// checkoutOnce guards a checkout with an idempotency key so a retried
// request returns the order it already placed.
func (h *Handler) checkoutOnce(ctx context.Context, cmd Checkout) (*CheckoutResult, error) {
	scope := checkoutScope + ":" + strconv.FormatInt(cmd.CustomerID, 10)

	if prev, ok, err := h.idempotency.Recall(ctx, scope, cmd.IdempotencyKey); err != nil {
		return nil, apperr.Persistence(fmt.Errorf("recall idempotency key: %w", err))
	} else if ok {
		var res CheckoutResult
		if err := json.Unmarshal([]byte(prev), &res); err != nil {
			return nil, apperr.Persistence(fmt.Errorf("decode remembered checkout: %w", err))
		}
		res.Replayed = true
		return &res, nil
	}

	locked, err := h.idempotency.TryLock(ctx, scope, cmd.IdempotencyKey)
	if err != nil {
		return nil, apperr.Persistence(fmt.Errorf("lock idempotency key: %w", err))
	}
	if !locked {
		return nil, apperr.Conflict(ErrCheckoutInProgress)
	}

	res, err := h.checkout(ctx, cmd)
	if err != nil {
		if ferr := h.idempotency.Forget(context.WithoutCancel(ctx), scope, cmd.IdempotencyKey); ferr != nil {
			log.Printf("[Checkout] Failed to release idempotency key: %v", ferr)
		}
		return nil, err
	}

	data, err := json.Marshal(res)
	if err == nil {
		err = h.idempotency.Remember(context.WithoutCancel(ctx), scope, cmd.IdempotencyKey, string(data))
	}
	if err != nil {
		log.Printf("[Checkout] Failed to remember order %d for idempotency key: %v", res.OrderID, err)
		// The cart is empty now, so a retry cannot place a second order.
		if ferr := h.idempotency.Forget(context.WithoutCancel(ctx), scope, cmd.IdempotencyKey); ferr != nil {
			log.Printf("[Checkout] Failed to release idempotency key: %v", ferr)
		}
	}
	return res, nil
}

func checkoutOutcome(err error) string {
	if err == nil {
		return "success"
	}
	switch {
	case errors.Is(err, inventory.ErrInsufficientStock):
		return "insufficient_stock"
	case errors.Is(err, cart.ErrEmptyCart):
		return "empty_cart"
	}
	return apperr.KindOf(err).String()
}
