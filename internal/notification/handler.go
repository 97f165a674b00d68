package notification

import (
	"context"
	"encoding/json"
	"errors"
	"log"

	"github.com/example/ec-checkout/internal/domain/customer"
	"github.com/example/ec-checkout/internal/domain/order"
	"github.com/example/ec-checkout/internal/email"
	"github.com/example/ec-checkout/internal/infrastructure/store"
)

// Sender delivers order confirmation emails.
type Sender interface {
	SendOrderConfirmation(to string, c email.OrderConfirmation) error
}

// CustomerFinder resolves the recipient of a notification.
type CustomerFinder interface {
	FindCustomer(ctx context.Context, customerID int64) (*customer.Customer, error)
}

// Recorder observes delivery results.
type Recorder interface {
	NotificationSent(ok bool)
}

type nopRecorder struct{}

func (nopRecorder) NotificationSent(bool) {}

// Handler processes events for sending notifications
type Handler struct {
	sender    Sender
	customers CustomerFinder
	recorder  Recorder
}

// NewHandler creates a new notification handler
func NewHandler(sender Sender, customers CustomerFinder, recorder Recorder) *Handler {
	if recorder == nil {
		recorder = nopRecorder{}
	}
	return &Handler{
		sender:    sender,
		customers: customers,
		recorder:  recorder,
	}
}

// HandleEvent processes an event from Kafka
func (h *Handler) HandleEvent(ctx context.Context, key, value []byte) error {
	var event store.Event
	if err := json.Unmarshal(value, &event); err != nil {
		log.Printf("[Notifier] Failed to unmarshal event: %v", err)
		return err
	}

	// Only process OrderPlaced events
	if event.EventType == order.EventOrderPlaced {
		return h.handleOrderPlaced(ctx, event)
	}

	return nil
}

func (h *Handler) handleOrderPlaced(ctx context.Context, event store.Event) error {
	var e order.OrderPlaced
	if err := json.Unmarshal(event.Data, &e); err != nil {
		log.Printf("[Notifier] Failed to unmarshal OrderPlaced event: %v", err)
		return err
	}

	log.Printf("[Notifier] Processing OrderPlaced event for order %d, customer %d", e.OrderID, e.CustomerID)

	c, err := h.customers.FindCustomer(ctx, e.CustomerID)
	if errors.Is(err, customer.ErrCustomerNotFound) {
		log.Printf("[Notifier] Customer not found: %d", e.CustomerID)
		return nil
	}
	if err != nil {
		log.Printf("[Notifier] Error getting customer %d: %v", e.CustomerID, err)
		return err
	}

	items := make([]email.OrderItem, len(e.Items))
	for i, item := range e.Items {
		items[i] = email.OrderItem{
			Name:     item.Name,
			Quantity: item.Quantity,
			Price:    item.Price,
		}
	}

	err = h.sender.SendOrderConfirmation(c.Email, email.OrderConfirmation{
		CustomerName:   c.Name,
		OrderID:        e.OrderID,
		TrackingNumber: e.TrackingNumber,
		Items:          items,
		Total:          e.Total,
	})
	h.recorder.NotificationSent(err == nil)
	if err != nil {
		log.Printf("[Notifier] Failed to send email to %s: %v", c.Email, err)
		return err
	}

	log.Printf("[Notifier] Order confirmation email sent to %s for order %s", c.Email, e.TrackingNumber)
	return nil
}
