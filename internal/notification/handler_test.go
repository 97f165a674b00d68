package notification

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/example/ec-checkout/internal/domain/customer"
	"github.com/example/ec-checkout/internal/domain/order"
	"github.com/example/ec-checkout/internal/email"
	"github.com/example/ec-checkout/internal/infrastructure/store"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sentMail struct {
	to string
	c  email.OrderConfirmation
}

type fakeSender struct {
	sent []sentMail
	err  error
}

func (f *fakeSender) SendOrderConfirmation(to string, c email.OrderConfirmation) error {
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, sentMail{to, c})
	return nil
}

type resultRecorder struct{ ok, failed int }

func (r *resultRecorder) NotificationSent(ok bool) {
	if ok {
		r.ok++
	} else {
		r.failed++
	}
}

func newTestCustomer(t *testing.T, s *store.MemoryStore) int64 {
	t.Helper()
	var id int64
	err := s.WithinTx(context.Background(), func(ctx context.Context, tx store.Tx) error {
		c, err := customer.New("Asha", "asha@example.com", "hash", "", customer.RoleUser)
		if err != nil {
			return err
		}
		id, err = tx.CreateCustomer(ctx, c)
		return err
	})
	require.NoError(t, err)
	return id
}

func eventMessage(t *testing.T, eventType string, data any) []byte {
	t.Helper()
	raw, err := json.Marshal(data)
	require.NoError(t, err)
	msg, err := json.Marshal(store.Event{
		ID:            "evt-1",
		AggregateType: order.AggregateType,
		AggregateID:   "1",
		EventType:     eventType,
		Data:          raw,
		Timestamp:     time.Now(),
	})
	require.NoError(t, err)
	return msg
}

func placed(customerID int64) order.OrderPlaced {
	return order.OrderPlaced{
		OrderID:        1,
		CustomerID:     customerID,
		TrackingNumber: "MYECOM-26-00001",
		Items: []order.OrderItem{
			{ProductID: 3, Name: "Mug", Quantity: 2, Price: decimal.RequireFromString("199.00")},
		},
		Total: decimal.RequireFromString("398.00"),
	}
}

// ============================================
// HandleEvent Tests
// ============================================

func TestHandleEvent_OrderPlacedSendsConfirmation(t *testing.T) {
	s := store.NewMemoryStore(time.Second)
	customerID := newTestCustomer(t, s)
	sender := &fakeSender{}
	rec := &resultRecorder{}
	h := NewHandler(sender, s, rec)

	err := h.HandleEvent(context.Background(), nil, eventMessage(t, order.EventOrderPlaced, placed(customerID)))

	require.NoError(t, err)
	require.Len(t, sender.sent, 1)
	assert.Equal(t, "asha@example.com", sender.sent[0].to)
	assert.Equal(t, "MYECOM-26-00001", sender.sent[0].c.TrackingNumber)
	assert.Equal(t, "Asha", sender.sent[0].c.CustomerName)
	require.Len(t, sender.sent[0].c.Items, 1)
	assert.Equal(t, "Mug", sender.sent[0].c.Items[0].Name)
	assert.Equal(t, 1, rec.ok)
}

func TestHandleEvent_IgnoresOtherEvents(t *testing.T) {
	sender := &fakeSender{}
	h := NewHandler(sender, store.NewMemoryStore(time.Second), nil)

	err := h.HandleEvent(context.Background(), nil, eventMessage(t, order.EventOrderStatusChanged, order.OrderStatusChanged{OrderID: 1}))

	require.NoError(t, err)
	assert.Empty(t, sender.sent)
}

func TestHandleEvent_UnknownCustomerIsSkipped(t *testing.T) {
	sender := &fakeSender{}
	h := NewHandler(sender, store.NewMemoryStore(time.Second), nil)

	err := h.HandleEvent(context.Background(), nil, eventMessage(t, order.EventOrderPlaced, placed(404)))

	require.NoError(t, err)
	assert.Empty(t, sender.sent)
}

func TestHandleEvent_SendFailure(t *testing.T) {
	s := store.NewMemoryStore(time.Second)
	customerID := newTestCustomer(t, s)
	boom := errors.New("smtp unavailable")
	rec := &resultRecorder{}
	h := NewHandler(&fakeSender{err: boom}, s, rec)

	err := h.HandleEvent(context.Background(), nil, eventMessage(t, order.EventOrderPlaced, placed(customerID)))

	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 1, rec.failed)
}

func TestHandleEvent_MalformedMessage(t *testing.T) {
	h := NewHandler(&fakeSender{}, store.NewMemoryStore(time.Second), nil)

	err := h.HandleEvent(context.Background(), nil, []byte("{not json"))

	assert.Error(t, err)
}
